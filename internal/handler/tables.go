package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/delicias-restaurant/api/internal/database"
	"github.com/delicias-restaurant/api/internal/enum"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// EventTableUpdated carries a single table after a status change.
const EventTableUpdated = "table.updated"

// TableStore defines the database methods needed by table handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type TableStore interface {
	ListTables(ctx context.Context) ([]database.Table, error)
	ListFreeTables(ctx context.Context) ([]database.Table, error)
	GetTable(ctx context.Context, code string) (database.Table, error)
	SetTableStatus(ctx context.Context, arg database.SetTableStatusParams) (database.Table, error)
}

// TableHandler handles the table registry endpoints.
type TableHandler struct {
	store TableStore
	pub   Publisher
}

// NewTableHandler creates a new TableHandler.
func NewTableHandler(store TableStore, pub Publisher) *TableHandler {
	return &TableHandler{store: store, pub: pub}
}

// RegisterRoutes registers the read endpoints.
func (h *TableHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/available", h.ListAvailable)
	r.Get("/{code}", h.Get)
}

// RegisterStaffRoutes registers the status mutation; freeing a table is
// always an explicit staff action, never automatic.
func (h *TableHandler) RegisterStaffRoutes(r chi.Router) {
	r.Patch("/{code}/status", h.SetStatus)
}

type setTableStatusRequest struct {
	Status string `json:"status"`
}

type tableResponse struct {
	Code           string     `json:"code"`
	Capacity       int32      `json:"capacity"`
	Status         string     `json:"status"`
	CurrentOrderID *uuid.UUID `json:"current_order_id"`
}

func toTableResponse(t database.Table) tableResponse {
	resp := tableResponse{
		Code:     t.Code,
		Capacity: t.Capacity,
		Status:   t.Status,
	}
	if t.CurrentOrderID.Valid {
		id := uuid.UUID(t.CurrentOrderID.Bytes)
		resp.CurrentOrderID = &id
	}
	return resp
}

func isValidTableStatus(s string) bool {
	switch s {
	case enum.TableStatusLibre, enum.TableStatusOcupada, enum.TableStatusReservada:
		return true
	}
	return false
}

// List returns the whole registry.
func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	tables, err := h.store.ListTables(r.Context())
	if err != nil {
		log.Printf("ERROR: list tables: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	h.writeTables(w, tables)
}

// ListAvailable returns only libre tables, the choice set for placing a
// Mesa order.
func (h *TableHandler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	tables, err := h.store.ListFreeTables(r.Context())
	if err != nil {
		log.Printf("ERROR: list free tables: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	h.writeTables(w, tables)
}

// Get returns one registry entry by code.
func (h *TableHandler) Get(w http.ResponseWriter, r *http.Request) {
	table, err := h.store.GetTable(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		log.Printf("ERROR: get table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toTableResponse(table))
}

func (h *TableHandler) writeTables(w http.ResponseWriter, tables []database.Table) {
	resp := make([]tableResponse, len(tables))
	for i, t := range tables {
		resp[i] = toTableResponse(t)
	}
	writeJSON(w, http.StatusOK, resp)
}

// SetStatus handles PATCH /api/tables/{code}/status.
func (h *TableHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	var req setTableStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if !isValidTableStatus(req.Status) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	table, err := h.store.SetTableStatus(r.Context(), database.SetTableStatusParams{
		Code:   code,
		Status: req.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		log.Printf("ERROR: set table status: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := toTableResponse(table)
	h.pub.Broadcast(EventTableUpdated, resp)
	writeJSON(w, http.StatusOK, resp)
}
