package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// --- mock session lookup ---

type mockSessions struct {
	users map[string]*User
	err   error
}

func (m *mockSessions) LookupSession(_ context.Context, token string) (*User, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.users[token], nil
}

// --- Context helpers ---

func TestUserContext_RoundTrip(t *testing.T) {
	u := &User{ID: "u1", Email: "a@example.com"}
	ctx := ContextWithUser(context.Background(), u)
	got := UserFromContext(ctx)
	if got == nil {
		t.Fatal("expected user from context, got nil")
	}
	if got.ID != u.ID {
		t.Errorf("expected ID %q, got %q", u.ID, got.ID)
	}
}

func TestUserFromContext_Empty(t *testing.T) {
	if got := UserFromContext(context.Background()); got != nil {
		t.Errorf("expected nil from empty context, got %+v", got)
	}
}

// --- ExtractBearerToken ---

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"valid", "Bearer abc123", "abc123"},
		{"lowercase scheme", "bearer abc123", "abc123"},
		{"missing header", "", ""},
		{"wrong scheme", "Basic abc123", ""},
		{"no token", "Bearer", ""},
		{"extra whitespace", "Bearer   abc123", "abc123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if got := ExtractBearerToken(r); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

// --- Middleware ---

func runMiddleware(t *testing.T, sessions SessionLookup, header string) (*httptest.ResponseRecorder, *User) {
	t.Helper()
	var seen *User
	handler := Middleware(sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, seen
}

func TestMiddleware_ValidToken(t *testing.T) {
	sessions := &mockSessions{users: map[string]*User{
		"tok123": {ID: "u1", Email: "a@example.com"},
	}}

	rec, seen := runMiddleware(t, sessions, "Bearer tok123")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seen == nil || seen.ID != "u1" {
		t.Errorf("expected user u1 in context, got %+v", seen)
	}
}

func TestMiddleware_MissingHeader(t *testing.T) {
	rec, _ := runMiddleware(t, &mockSessions{}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Error.Code != "UNAUTHORIZED" {
		t.Errorf("expected code UNAUTHORIZED, got %q", body.Error.Code)
	}
}

func TestMiddleware_UnknownToken(t *testing.T) {
	rec, _ := runMiddleware(t, &mockSessions{users: map[string]*User{}}, "Bearer nope")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestMiddleware_LookupError(t *testing.T) {
	rec, _ := runMiddleware(t, &mockSessions{err: errors.New("db down")}, "Bearer tok")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestMiddleware_ReportsOutcome(t *testing.T) {
	sessions := &mockSessions{users: map[string]*User{"tok": {ID: "u1"}}}
	var results []bool
	handler := Middleware(sessions, func(ok bool) { results = append(results, ok) })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if len(results) != 2 || !results[0] || results[1] {
		t.Errorf("expected [true false], got %v", results)
	}
}
