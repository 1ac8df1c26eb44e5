package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/delicias-restaurant/api/internal/database"
	"github.com/delicias-restaurant/api/internal/enum"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ReservationStore defines the database methods needed by reservation
// handlers. Satisfied by *database.Queries.
type ReservationStore interface {
	CreateReservation(ctx context.Context, arg database.CreateReservationParams) (database.Reservation, error)
	GetReservation(ctx context.Context, id uuid.UUID) (database.Reservation, error)
	ListReservations(ctx context.Context) ([]database.Reservation, error)
	UpdateReservationStatus(ctx context.Context, arg database.UpdateReservationStatusParams) (database.Reservation, error)
	DeleteReservation(ctx context.Context, id uuid.UUID) error
}

// ReservationHandler handles reservation endpoints.
type ReservationHandler struct {
	store ReservationStore
}

// NewReservationHandler creates a new ReservationHandler.
func NewReservationHandler(store ReservationStore) *ReservationHandler {
	return &ReservationHandler{store: store}
}

// RegisterPublicRoutes registers the booking endpoint; anyone may book.
func (h *ReservationHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/", h.Create)
}

// RegisterAdminRoutes registers the management endpoints.
func (h *ReservationHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Delete("/{id}", h.Delete)
}

type createReservationRequest struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Date   string `json:"date"` // RFC3339
	Guests int32  `json:"guests"`
}

type updateReservationStatusRequest struct {
	Status string `json:"status"`
}

type reservationResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	ReservedFor time.Time `json:"reserved_for"`
	Guests      int32     `json:"guests"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func toReservationResponse(r database.Reservation) reservationResponse {
	return reservationResponse{
		ID:          r.ID,
		Name:        r.Name,
		Phone:       r.Phone,
		ReservedFor: r.ReservedFor,
		Guests:      r.Guests,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
	}
}

func isValidReservationStatus(s string) bool {
	switch s {
	case enum.ReservationStatusPending, enum.ReservationStatusConfirmed,
		enum.ReservationStatusCancelled:
		return true
	}
	return false
}

// Create handles POST /api/reservations.
func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" || req.Phone == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and phone are required"})
		return
	}
	if req.Guests <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "guests must be > 0"})
		return
	}
	reservedFor, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date, use RFC3339"})
		return
	}

	reservation, err := h.store.CreateReservation(r.Context(), database.CreateReservationParams{
		Name:        req.Name,
		Phone:       req.Phone,
		ReservedFor: reservedFor,
		Guests:      req.Guests,
	})
	if err != nil {
		log.Printf("ERROR: create reservation: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toReservationResponse(reservation))
}

// Get handles GET /api/reservations/{id}.
func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid reservation ID"})
		return
	}

	reservation, err := h.store.GetReservation(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "reservation not found"})
			return
		}
		log.Printf("ERROR: get reservation: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toReservationResponse(reservation))
}

// List handles GET /api/reservations.
func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	reservations, err := h.store.ListReservations(r.Context())
	if err != nil {
		log.Printf("ERROR: list reservations: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]reservationResponse, len(reservations))
	for i, res := range reservations {
		resp[i] = toReservationResponse(res)
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateStatus handles PATCH /api/reservations/{id}/status.
func (h *ReservationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid reservation ID"})
		return
	}

	var req updateReservationStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if !isValidReservationStatus(req.Status) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	reservation, err := h.store.UpdateReservationStatus(r.Context(), database.UpdateReservationStatusParams{
		ID:     id,
		Status: req.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "reservation not found"})
			return
		}
		log.Printf("ERROR: update reservation status: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toReservationResponse(reservation))
}

// Delete handles DELETE /api/reservations/{id}.
func (h *ReservationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid reservation ID"})
		return
	}

	if err := h.store.DeleteReservation(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "reservation not found"})
			return
		}
		log.Printf("ERROR: delete reservation: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
