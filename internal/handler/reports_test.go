package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/delicias-restaurant/api/internal/database"
	"github.com/delicias-restaurant/api/internal/handler"
	"github.com/go-chi/chi/v5"
)

type mockReportStore struct {
	summary database.DailySummaryRow
	counts  []database.OrderStatusCount
}

func (m *mockReportStore) GetDailyPaymentSummary(_ context.Context) (database.DailySummaryRow, error) {
	return m.summary, nil
}

func (m *mockReportStore) CountTodayOrdersByStatus(_ context.Context) ([]database.OrderStatusCount, error) {
	return m.counts, nil
}

func TestDailySummary(t *testing.T) {
	store := &mockReportStore{
		summary: database.DailySummaryRow{
			Revenue:    makeNumeric(t, "258.00"),
			PaidOrders: 4,
		},
		counts: []database.OrderStatusCount{
			{Status: "PENDIENTE", Count: 2},
			{Status: "CONFIRMADO", Count: 3},
			{Status: "PAGADO", Count: 4},
			{Status: "CANCELADO", Count: 1},
		},
	}
	h := handler.NewReportHandler(store)
	r := chi.NewRouter()
	r.Route("/reports", h.RegisterRoutes)

	req := httptest.NewRequest(http.MethodGet, "/reports/summary", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)

	if resp["total_orders"] != float64(10) {
		t.Errorf("expected 10 total orders, got %v", resp["total_orders"])
	}
	if resp["paid_orders"] != float64(4) {
		t.Errorf("expected 4 paid orders, got %v", resp["paid_orders"])
	}
	if resp["revenue"] != "258.00" {
		t.Errorf("expected revenue 258.00, got %v", resp["revenue"])
	}
	if resp["average_ticket"] != "64.50" {
		t.Errorf("expected average ticket 64.50, got %v", resp["average_ticket"])
	}

	byStatus := resp["orders_by_status"].(map[string]interface{})
	if byStatus["CONFIRMADO"] != float64(3) {
		t.Errorf("unexpected status counts: %+v", byStatus)
	}
}

func TestDailySummary_NoPaidOrders(t *testing.T) {
	store := &mockReportStore{
		summary: database.DailySummaryRow{PaidOrders: 0},
		counts:  []database.OrderStatusCount{{Status: "PENDIENTE", Count: 1}},
	}
	h := handler.NewReportHandler(store)
	r := chi.NewRouter()
	r.Route("/reports", h.RegisterRoutes)

	req := httptest.NewRequest(http.MethodGet, "/reports/summary", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["average_ticket"] != "0.00" {
		t.Errorf("average over zero paid orders must be 0.00, got %v", resp["average_ticket"])
	}
	if resp["revenue"] != "0.00" {
		t.Errorf("expected zero revenue, got %v", resp["revenue"])
	}
}
