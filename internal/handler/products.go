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
	"github.com/delicias-restaurant/api/internal/pricing"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// EventMenuUpdated carries the full catalog after any menu mutation;
// clients replace their copy wholesale.
const EventMenuUpdated = "menu.updated"

// Publisher pushes events to every connected client.
// Satisfied by *ws.Hub.
type Publisher interface {
	Broadcast(eventType string, payload any)
}

// ProductStore defines the database methods needed by product handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ProductStore interface {
	ListProducts(ctx context.Context) ([]database.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	CreateProduct(ctx context.Context, arg database.CreateProductParams) (database.Product, error)
	UpdateProduct(ctx context.Context, arg database.UpdateProductParams) (database.Product, error)
	SetProductAvailability(ctx context.Context, arg database.SetProductAvailabilityParams) (database.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

// ProductHandler handles menu CRUD endpoints.
type ProductHandler struct {
	store ProductStore
	pub   Publisher
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(store ProductStore, pub Publisher) *ProductHandler {
	return &ProductHandler{store: store, pub: pub}
}

// RegisterPublicRoutes registers the read-only menu endpoints.
func (h *ProductHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
}

// RegisterAdminRoutes registers the mutating endpoints; the router
// wraps them in role middleware.
func (h *ProductHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// RegisterAvailabilityRoute is separate because cajero may toggle
// availability but not edit the menu.
func (h *ProductHandler) RegisterAvailabilityRoute(r chi.Router) {
	r.Patch("/{id}/availability", h.SetAvailability)
}

// --- Request / Response types ---

type productRequest struct {
	Name            string            `json:"name"`
	Description     string            `json:"description"`
	Price           string            `json:"price"`
	Category        string            `json:"category"`
	Image           string            `json:"image"`
	IsAvailable     *bool             `json:"is_available"`
	PreparationTime *int32            `json:"preparation_time"`
	Modifiers       pricing.Modifiers `json:"modifiers"`
}

type setAvailabilityRequest struct {
	IsAvailable bool `json:"is_available"`
}

type productResponse struct {
	ID              uuid.UUID         `json:"id"`
	Name            string            `json:"name"`
	Description     *string           `json:"description"`
	Price           string            `json:"price"`
	Category        string            `json:"category"`
	Image           *string           `json:"image"`
	IsAvailable     bool              `json:"is_available"`
	PreparationTime int32             `json:"preparation_time"`
	Modifiers       pricing.Modifiers `json:"modifiers"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func toProductResponse(p database.Product) productResponse {
	resp := productResponse{
		ID:              p.ID,
		Name:            p.Name,
		Price:           pricing.FromNumeric(p.Price).StringFixed(2),
		Category:        p.Category,
		IsAvailable:     p.IsAvailable,
		PreparationTime: p.PreparationTime,
		Modifiers:       pricing.ParseModifiers(p.Modifiers),
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
	if p.Description.Valid {
		resp.Description = &p.Description.String
	}
	if p.Image.Valid {
		resp.Image = &p.Image.String
	}
	return resp
}

// --- Helpers ---

func isValidCategory(category string) bool {
	switch category {
	case enum.CategoryPlatos, enum.CategoryBebidas,
		enum.CategoryEntradas, enum.CategoryPostres:
		return true
	}
	return false
}

var errNegativePrice = errors.New("negative price")

func parsePrice(s string) (pgtype.Numeric, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return pgtype.Numeric{}, err
	}
	if d.IsNegative() {
		return pgtype.Numeric{}, errNegativePrice
	}
	var n pgtype.Numeric
	if err := n.Scan(d.String()); err != nil {
		return pgtype.Numeric{}, err
	}
	return n, nil
}

func pgTextOrNull(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

// publishMenu pushes the whole catalog after a mutation. Push failures
// must never fail the request that caused them.
func (h *ProductHandler) publishMenu(ctx context.Context) {
	products, err := h.store.ListProducts(ctx)
	if err != nil {
		log.Printf("ERROR: list products for menu push: %v", err)
		return
	}
	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = toProductResponse(p)
	}
	h.pub.Broadcast(EventMenuUpdated, resp)
}

// --- Handlers ---

// List returns the full catalog.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.ListProducts(r.Context())
	if err != nil {
		log.Printf("ERROR: list products: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = toProductResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single menu item by ID.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	product, err := h.store.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: get product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(product))
}

// Create adds a new menu item.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if req.Price == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price is required"})
		return
	}
	price, err := parsePrice(req.Price)
	if err != nil {
		if errors.Is(err, errNegativePrice) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price must be >= 0"})
		} else {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid price"})
		}
		return
	}
	if !isValidCategory(req.Category) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category"})
		return
	}

	modifiers, err := json.Marshal(req.Modifiers)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid modifiers"})
		return
	}

	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}
	prepTime := int32(10)
	if req.PreparationTime != nil {
		prepTime = *req.PreparationTime
	}

	product, err := h.store.CreateProduct(r.Context(), database.CreateProductParams{
		Name:            req.Name,
		Description:     pgTextOrNull(req.Description),
		Price:           price,
		Category:        req.Category,
		Image:           pgTextOrNull(req.Image),
		IsAvailable:     available,
		PreparationTime: prepTime,
		Modifiers:       modifiers,
	})
	if err != nil {
		log.Printf("ERROR: create product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.publishMenu(r.Context())
	writeJSON(w, http.StatusCreated, toProductResponse(product))
}

// Update replaces the mutable fields of a menu item. Fields omitted
// from the request keep their current value.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	current, err := h.store.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: get product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	params := database.UpdateProductParams{
		ID:              id,
		Name:            current.Name,
		Description:     current.Description,
		Price:           current.Price,
		Category:        current.Category,
		Image:           current.Image,
		IsAvailable:     current.IsAvailable,
		PreparationTime: current.PreparationTime,
		Modifiers:       current.Modifiers,
	}

	if req.Name != "" {
		params.Name = req.Name
	}
	if req.Description != "" {
		params.Description = pgTextOrNull(req.Description)
	}
	if req.Price != "" {
		price, err := parsePrice(req.Price)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid price"})
			return
		}
		params.Price = price
	}
	if req.Category != "" {
		if !isValidCategory(req.Category) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category"})
			return
		}
		params.Category = req.Category
	}
	if req.Image != "" {
		params.Image = pgTextOrNull(req.Image)
	}
	if req.IsAvailable != nil {
		params.IsAvailable = *req.IsAvailable
	}
	if req.PreparationTime != nil {
		params.PreparationTime = *req.PreparationTime
	}
	if len(req.Modifiers.Obligatorios) > 0 || len(req.Modifiers.Opcionales) > 0 {
		modifiers, err := json.Marshal(req.Modifiers)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid modifiers"})
			return
		}
		params.Modifiers = modifiers
	}

	product, err := h.store.UpdateProduct(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: update product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.publishMenu(r.Context())
	writeJSON(w, http.StatusOK, toProductResponse(product))
}

// SetAvailability flips the binary availability flag.
func (h *ProductHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	var req setAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	product, err := h.store.SetProductAvailability(r.Context(), database.SetProductAvailabilityParams{
		ID:          id,
		IsAvailable: req.IsAvailable,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: set product availability: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.publishMenu(r.Context())
	writeJSON(w, http.StatusOK, toProductResponse(product))
}

// Delete removes a menu item.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	if err := h.store.DeleteProduct(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: delete product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.publishMenu(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
