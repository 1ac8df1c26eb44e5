package handler_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/delicias-restaurant/api/internal/auth"
	"github.com/delicias-restaurant/api/internal/database"
	"github.com/delicias-restaurant/api/internal/handler"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test-secret"

// --- Mock store ---

type mockAuthStore struct {
	users map[string]database.User // keyed by email
}

func newMockAuthStore() *mockAuthStore {
	return &mockAuthStore{users: make(map[string]database.User)}
}

func (m *mockAuthStore) GetUserByEmail(_ context.Context, email string) (database.User, error) {
	u, ok := m.users[email]
	if !ok {
		return database.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *mockAuthStore) GetUserByID(_ context.Context, id uuid.UUID) (database.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return database.User{}, pgx.ErrNoRows
}

func (m *mockAuthStore) CreateUser(_ context.Context, arg database.CreateUserParams) (database.User, error) {
	if _, exists := m.users[arg.Email]; exists {
		return database.User{}, &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	}
	now := time.Now()
	u := database.User{
		ID:           uuid.New(),
		Email:        arg.Email,
		PasswordHash: arg.PasswordHash,
		FullName:     arg.FullName,
		Phone:        arg.Phone,
		Role:         arg.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.users[arg.Email] = u
	return u, nil
}

func setupAuthRouter(store *mockAuthStore) *chi.Mux {
	h := handler.NewAuthHandler(store, testJWTSecret)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	h.RegisterProtectedRoutes(r)
	return r
}

// --- Tests ---

func TestRegister(t *testing.T) {
	store := newMockAuthStore()
	router := setupAuthRouter(store)

	body := `{"email": "maria@example.com", "password": "secret123", "full_name": "Maria Quispe", "phone": "987654321"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	token, _ := resp["token"].(string)
	if token == "" {
		t.Fatal("expected a token in the response")
	}

	claims, err := auth.ValidateToken(testJWTSecret, token)
	if err != nil {
		t.Fatalf("issued token failed validation: %v", err)
	}
	if claims.Role != "cliente" {
		t.Errorf("self-registration must create a cliente, got role %q", claims.Role)
	}

	user := resp["user"].(map[string]interface{})
	if user["role"] != "cliente" {
		t.Errorf("expected cliente role in response, got %v", user["role"])
	}

	stored := store.users["maria@example.com"]
	if stored.PasswordHash == "secret123" {
		t.Error("password must be stored hashed, not in the clear")
	}
	if bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret123")) != nil {
		t.Error("stored hash does not match the registration password")
	}
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing email", `{"password": "secret123", "full_name": "Maria"}`},
		{"missing full name", `{"email": "a@b.com", "password": "secret123"}`},
		{"short password", `{"email": "a@b.com", "password": "abc", "full_name": "Maria"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router := setupAuthRouter(newMockAuthStore())
			req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(tc.body))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rr.Code)
			}
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	store := newMockAuthStore()
	router := setupAuthRouter(store)

	body := `{"email": "maria@example.com", "password": "secret123", "full_name": "Maria Quispe"}`
	for i, want := range []int{http.StatusCreated, http.StatusConflict} {
		req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(body))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != want {
			t.Fatalf("attempt %d: expected %d, got %d", i+1, want, rr.Code)
		}
	}
}

func TestLogin(t *testing.T) {
	store := newMockAuthStore()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	userID := uuid.New()
	store.users["admin@delicias.pe"] = database.User{
		ID:           userID,
		Email:        "admin@delicias.pe",
		PasswordHash: string(hash),
		FullName:     "Admin",
		Role:         "admin",
	}
	router := setupAuthRouter(store)

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		bytes.NewBufferString(`{"email": "admin@delicias.pe", "password": "secret123"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	claims, err := auth.ValidateToken(testJWTSecret, resp["token"].(string))
	if err != nil {
		t.Fatalf("issued token failed validation: %v", err)
	}
	if claims.UserID != userID || claims.Role != "admin" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestMe(t *testing.T) {
	store := newMockAuthStore()
	userID := uuid.New()
	store.users["maria@example.com"] = database.User{
		ID:       userID,
		Email:    "maria@example.com",
		FullName: "Maria Quispe",
		Role:     "mesero",
	}
	router := setupAuthRouter(store)

	req := asRole(httptest.NewRequest(http.MethodGet, "/auth/me", nil), userID, "mesero")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["email"] != "maria@example.com" || resp["role"] != "mesero" {
		t.Errorf("unexpected profile: %+v", resp)
	}

	req = asRole(httptest.NewRequest(http.MethodGet, "/auth/me", nil), uuid.New(), "cliente")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for deleted account, got %d", rr.Code)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	store := newMockAuthStore()
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	store.users["admin@delicias.pe"] = database.User{
		ID:           uuid.New(),
		Email:        "admin@delicias.pe",
		PasswordHash: string(hash),
		Role:         "admin",
	}
	router := setupAuthRouter(store)

	tests := []struct {
		name string
		body string
	}{
		{"wrong password", `{"email": "admin@delicias.pe", "password": "wrong"}`},
		{"unknown email", `{"email": "ghost@delicias.pe", "password": "secret123"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(tc.body))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rr.Code)
			}
			if got := decodeResponse(t, rr)["error"]; got != "invalid credentials" {
				t.Errorf("expected uniform credential error, got %q", got)
			}
		})
	}
}
