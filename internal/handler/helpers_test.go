package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/delicias-restaurant/api/internal/auth"
	"github.com/delicias-restaurant/api/internal/middleware"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// --- Shared test doubles ---

type broadcastCall struct {
	Type    string
	Payload any
}

// mockPublisher records every broadcast so tests can assert on the push
// side effects of a handler.
type mockPublisher struct {
	calls []broadcastCall
}

func (m *mockPublisher) Broadcast(eventType string, payload any) {
	m.calls = append(m.calls, broadcastCall{Type: eventType, Payload: payload})
}

func (m *mockPublisher) lastEvent() string {
	if len(m.calls) == 0 {
		return ""
	}
	return m.calls[len(m.calls)-1].Type
}

// --- Helpers ---

func makeNumeric(t *testing.T, s string) pgtype.Numeric {
	t.Helper()
	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		t.Fatalf("scan numeric %q: %v", s, err)
	}
	return n
}

// asRole attaches auth claims to the request, simulating a request that
// passed the Authenticate middleware.
func asRole(r *http.Request, userID uuid.UUID, role string) *http.Request {
	claims := &auth.Claims{UserID: userID, Role: role}
	return r.WithContext(middleware.WithClaims(r.Context(), claims))
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func decodeListResponse(t *testing.T, rr *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var resp []map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}
