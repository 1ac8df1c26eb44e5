package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/delicias-restaurant/api/internal/database"
	"github.com/delicias-restaurant/api/internal/pricing"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// ReportStore defines the database methods needed by the reports
// endpoint. Satisfied by *database.Queries.
type ReportStore interface {
	GetDailyPaymentSummary(ctx context.Context) (database.DailySummaryRow, error)
	CountTodayOrdersByStatus(ctx context.Context) ([]database.OrderStatusCount, error)
}

// ReportHandler serves the cashier dashboard metrics.
type ReportHandler struct {
	store ReportStore
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(store ReportStore) *ReportHandler {
	return &ReportHandler{store: store}
}

// RegisterRoutes registers the report endpoints; the router wraps them
// in cajero/admin middleware.
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/summary", h.Summary)
}

type summaryResponse struct {
	OrdersByStatus map[string]int64 `json:"orders_by_status"`
	TotalOrders    int64            `json:"total_orders"`
	PaidOrders     int64            `json:"paid_orders"`
	Revenue        string           `json:"revenue"`
	AverageTicket  string           `json:"average_ticket"`
}

// Summary handles GET /api/reports/summary: today's order counts by
// status, revenue over settled orders, and average ticket.
func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.CountTodayOrdersByStatus(r.Context())
	if err != nil {
		log.Printf("ERROR: count today orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	summary, err := h.store.GetDailyPaymentSummary(r.Context())
	if err != nil {
		log.Printf("ERROR: daily payment summary: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := summaryResponse{
		OrdersByStatus: make(map[string]int64, len(counts)),
		PaidOrders:     summary.PaidOrders,
	}
	for _, c := range counts {
		resp.OrdersByStatus[c.Status] = c.Count
		resp.TotalOrders += c.Count
	}

	revenue := pricing.FromNumeric(summary.Revenue)
	resp.Revenue = revenue.StringFixed(2)

	average := decimal.Zero
	if summary.PaidOrders > 0 {
		average = revenue.Div(decimal.NewFromInt(summary.PaidOrders))
	}
	resp.AverageTicket = average.StringFixed(2)

	writeJSON(w, http.StatusOK, resp)
}
