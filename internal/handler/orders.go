package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/delicias-restaurant/api/internal/database"
	"github.com/delicias-restaurant/api/internal/enum"
	"github.com/delicias-restaurant/api/internal/middleware"
	"github.com/delicias-restaurant/api/internal/pricing"
	"github.com/delicias-restaurant/api/internal/rbac"
	"github.com/delicias-restaurant/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Order push event types.
const (
	EventOrderCreated = "order.created"
	EventOrderUpdated = "order.updated"
)

// OrderCreator defines the service methods needed to create orders.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
}

// OrderTransitioner defines the role-gated transition methods.
// Satisfied by *service.TransitionService.
type OrderTransitioner interface {
	Confirm(ctx context.Context, actorRole string, orderID uuid.UUID) (*service.TransitionResult, error)
	Cancel(ctx context.Context, actorRole string, orderID uuid.UUID) (*service.TransitionResult, error)
	MarkItemReady(ctx context.Context, actorRole string, orderID, itemID uuid.UUID) (*service.TransitionResult, error)
	MarkAllItemsReady(ctx context.Context, actorRole string, orderID uuid.UUID) (*service.TransitionResult, error)
	RecordPayment(ctx context.Context, actorRole string, actorID uuid.UUID, orderID uuid.UUID, req service.PaymentRequest) (*service.TransitionResult, error)
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrdersByUser(ctx context.Context, createdBy uuid.UUID) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Payment, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc         OrderCreator
	transitions OrderTransitioner
	store       OrderStore
	pub         Publisher
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderCreator, transitions OrderTransitioner, store OrderStore, pub Publisher) *OrderHandler {
	return &OrderHandler{svc: svc, transitions: transitions, store: store, pub: pub}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// All of them sit behind Authenticate; fine-grained role checks happen
// in the transition service.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/my-orders", h.ListMine)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Patch("/{id}/items/{itemID}/status", h.MarkItemReady)
	r.Post("/{id}/payments", h.RecordPayment)
	r.Delete("/{id}", h.Cancel)
}

// RegisterStaffRoutes registers the endpoints only staff may call.
func (h *OrderHandler) RegisterStaffRoutes(r chi.Router) {
	r.Get("/", h.List)
}

// --- Request / Response types ---

type createOrderRequest struct {
	OrderType       string                   `json:"order_type"`
	TableCode       string                   `json:"table_code"`
	CustomerName    string                   `json:"customer_name"`
	CustomerPhone   string                   `json:"customer_phone"`
	DeliveryAddress string                   `json:"delivery_address"`
	PaymentMethod   string                   `json:"payment_method"`
	Instructions    string                   `json:"instructions"`
	Items           []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	ProductID      string         `json:"product_id"`
	Quantity       int32          `json:"quantity"`
	Customizations map[string]any `json:"customizations"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type recordPaymentRequest struct {
	Method         string `json:"method"`
	AmountReceived string `json:"amount_received"`
}

type orderResponse struct {
	ID              uuid.UUID           `json:"id"`
	OrderNumber     string              `json:"order_number"`
	OrderType       string              `json:"order_type"`
	TableCode       *string             `json:"table_code"`
	CustomerName    *string             `json:"customer_name"`
	CustomerPhone   *string             `json:"customer_phone"`
	DeliveryAddress *string             `json:"delivery_address"`
	PaymentMethod   *string             `json:"payment_method"`
	Instructions    *string             `json:"instructions"`
	Status          string              `json:"status"`
	Total           string              `json:"total"`
	CreatedBy       uuid.UUID           `json:"created_by"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	Items           []orderItemResponse `json:"items"`
}

type orderItemResponse struct {
	ID             uuid.UUID      `json:"id"`
	ProductID      uuid.UUID      `json:"product_id"`
	Name           string         `json:"name"`
	UnitPrice      string         `json:"unit_price"`
	Customizations map[string]any `json:"customizations"`
	Quantity       int32          `json:"quantity"`
	Status         string         `json:"status"`
}

type paymentResponse struct {
	ID             uuid.UUID `json:"id"`
	OrderID        uuid.UUID `json:"order_id"`
	Method         string    `json:"method"`
	Amount         string    `json:"amount"`
	AmountReceived string    `json:"amount_received"`
	ChangeAmount   string    `json:"change_amount"`
	ProcessedBy    uuid.UUID `json:"processed_by"`
	ProcessedAt    time.Time `json:"processed_at"`
}

// orderDetailResponse extends orderResponse with payments for the GET
// detail endpoint.
type orderDetailResponse struct {
	orderResponse
	Payments []paymentResponse `json:"payments"`
}

func toOrderResponse(order database.Order, items []database.OrderItem) orderResponse {
	resp := orderResponse{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		OrderType:   order.OrderType,
		Status:      order.Status,
		Total:       service.OrderTotal(items).StringFixed(2),
		CreatedBy:   order.CreatedBy,
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
		Items:       make([]orderItemResponse, len(items)),
	}
	if order.TableCode.Valid {
		resp.TableCode = &order.TableCode.String
	}
	if order.CustomerName.Valid {
		resp.CustomerName = &order.CustomerName.String
	}
	if order.CustomerPhone.Valid {
		resp.CustomerPhone = &order.CustomerPhone.String
	}
	if order.DeliveryAddress.Valid {
		resp.DeliveryAddress = &order.DeliveryAddress.String
	}
	if order.PaymentMethod.Valid {
		resp.PaymentMethod = &order.PaymentMethod.String
	}
	if order.Instructions.Valid {
		resp.Instructions = &order.Instructions.String
	}
	for i, it := range items {
		resp.Items[i] = toOrderItemResponse(it)
	}
	return resp
}

func toOrderItemResponse(it database.OrderItem) orderItemResponse {
	var customizations map[string]any
	if len(it.Customizations) > 0 {
		_ = json.Unmarshal(it.Customizations, &customizations)
	}
	return orderItemResponse{
		ID:             it.ID,
		ProductID:      it.ProductID,
		Name:           it.Name,
		UnitPrice:      pricing.FromNumeric(it.UnitPrice).StringFixed(2),
		Customizations: customizations,
		Quantity:       it.Quantity,
		Status:         it.Status,
	}
}

func toPaymentResponse(p database.Payment) paymentResponse {
	return paymentResponse{
		ID:             p.ID,
		OrderID:        p.OrderID,
		Method:         p.Method,
		Amount:         pricing.FromNumeric(p.Amount).StringFixed(2),
		AmountReceived: pricing.FromNumeric(p.AmountReceived).StringFixed(2),
		ChangeAmount:   pricing.FromNumeric(p.ChangeAmount).StringFixed(2),
		ProcessedBy:    p.ProcessedBy,
		ProcessedAt:    p.ProcessedAt,
	}
}

// --- Error mapping ---

// writeServiceError maps service errors onto HTTP statuses. State
// conflicts (409) report the order's current status so clients can
// resync.
func writeServiceError(w http.ResponseWriter, err error) {
	var stateErr *service.StateError
	switch {
	case errors.Is(err, rbac.ErrInsufficientRole):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "insufficient permissions"})
	case errors.As(err, &stateErr):
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":          stateErr.Error(),
			"current_status": stateErr.Current,
		})
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrItemNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case isOrderValidationError(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrTableUnavailable):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrProductNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: order operation: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func isOrderValidationError(err error) bool {
	for _, target := range []error{
		service.ErrEmptyItems,
		service.ErrInvalidOrderType,
		service.ErrInvalidQuantity,
		service.ErrInvalidProductID,
		service.ErrProductUnavailable,
		service.ErrMissingSelection,
		service.ErrTableRequired,
		service.ErrDeliveryAddress,
		service.ErrPaymentMethod,
		service.ErrCustomerNameRequired,
		service.ErrInsufficientCash,
		service.ErrCashAmount,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// --- Handlers ---

// Create handles POST /api/orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	items := make([]service.CreateOrderItemRequest, len(req.Items))
	for i, item := range req.Items {
		items[i] = service.CreateOrderItemRequest{
			ProductID:      item.ProductID,
			Quantity:       item.Quantity,
			Customizations: item.Customizations,
		}
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		CreatedBy:       claims.UserID,
		OrderType:       req.OrderType,
		TableCode:       req.TableCode,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		DeliveryAddress: req.DeliveryAddress,
		PaymentMethod:   req.PaymentMethod,
		Instructions:    req.Instructions,
		Items:           items,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := toOrderResponse(result.Order, result.Items)
	h.pub.Broadcast(EventOrderCreated, resp)
	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /api/orders with optional status/type filters.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}
	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	params := database.ListOrdersParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		params.Status = pgtype.Text{String: s, Valid: true}
	}
	if s := r.URL.Query().Get("type"); s != "" {
		params.OrderType = pgtype.Text{String: s, Valid: true}
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.writeOrderList(w, r.Context(), orders)
}

// ListMine handles GET /api/orders/my-orders.
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orders, err := h.store.ListOrdersByUser(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: list orders by user: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.writeOrderList(w, r.Context(), orders)
}

func (h *OrderHandler) writeOrderList(w http.ResponseWriter, ctx context.Context, orders []database.Order) {
	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		items, err := h.store.ListOrderItemsByOrder(ctx, o.ID)
		if err != nil {
			log.Printf("ERROR: list order items: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		resp[i] = toOrderResponse(o, items)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/orders/{id}. Clients may only read their own
// orders; staff may read any.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if order.CreatedBy != claims.UserID && !rbac.Allow(claims.Role, rbac.ActionViewAllOrders) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "insufficient permissions"})
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	payments, err := h.store.ListPaymentsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list payments: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := orderDetailResponse{
		orderResponse: toOrderResponse(order, items),
		Payments:      make([]paymentResponse, len(payments)),
	}
	for i, p := range payments {
		resp.Payments[i] = toPaymentResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateStatus handles PATCH /api/orders/{id}/status. The requested
// status selects the transition; the service enforces role and state.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	var result *service.TransitionResult
	switch req.Status {
	case enum.OrderStatusConfirmado:
		result, err = h.transitions.Confirm(r.Context(), claims.Role, orderID)
	case enum.OrderStatusListo:
		result, err = h.transitions.MarkAllItemsReady(r.Context(), claims.Role, orderID)
	case enum.OrderStatusCancelado:
		result, err = h.transitions.Cancel(r.Context(), claims.Role, orderID)
	case enum.OrderStatusPagado:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "record a payment to mark an order paid"})
		return
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := toOrderResponse(result.Order, result.Items)
	h.pub.Broadcast(EventOrderUpdated, resp)
	writeJSON(w, http.StatusOK, resp)
}

// MarkItemReady handles PATCH /api/orders/{id}/items/{itemID}/status.
func (h *OrderHandler) MarkItemReady(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	result, err := h.transitions.MarkItemReady(r.Context(), claims.Role, orderID, itemID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := toOrderResponse(result.Order, result.Items)
	h.pub.Broadcast(EventOrderUpdated, resp)
	writeJSON(w, http.StatusOK, resp)
}

// RecordPayment handles POST /api/orders/{id}/payments.
func (h *OrderHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req recordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	var received decimal.Decimal
	if req.AmountReceived != "" {
		received, err = decimal.NewFromString(req.AmountReceived)
		if err != nil || received.IsNegative() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid amount_received"})
			return
		}
	}

	result, err := h.transitions.RecordPayment(r.Context(), claims.Role, claims.UserID, orderID, service.PaymentRequest{
		Method:         req.Method,
		AmountReceived: received,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := toOrderResponse(result.Order, result.Items)
	h.pub.Broadcast(EventOrderUpdated, resp)
	writeJSON(w, http.StatusOK, resp)
}

// Cancel handles DELETE /api/orders/{id}.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	result, err := h.transitions.Cancel(r.Context(), claims.Role, orderID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := toOrderResponse(result.Order, result.Items)
	h.pub.Broadcast(EventOrderUpdated, resp)
	writeJSON(w, http.StatusOK, resp)
}
