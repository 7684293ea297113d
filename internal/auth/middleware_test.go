package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuthenticate(t *testing.T) {
	hash, err := HashAPIKey("hashed-admin")
	if err != nil {
		t.Fatalf("HashAPIKey() error = %v", err)
	}
	a := NewAuthenticator("client-key", "admin-key", hash)

	tests := []struct {
		name     string
		header   string
		wantAuth bool
		wantRole Role
	}{
		{"client key", "Bearer client-key", true, RoleClient},
		{"admin key", "Bearer admin-key", true, RoleAdmin},
		{"hashed admin key", "Bearer hashed-admin", true, RoleAdmin},
		{"wrong key", "Bearer nope", false, ""},
		{"missing", "", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.Authenticate(tt.header)
			if got.Authenticated != tt.wantAuth {
				t.Errorf("Authenticated = %v, want %v (%s)", got.Authenticated, tt.wantAuth, got.Error)
			}
			if got.Role != tt.wantRole {
				t.Errorf("Role = %v, want %v", got.Role, tt.wantRole)
			}
		})
	}
}

func TestAuthenticate_EmptyKeysNeverMatch(t *testing.T) {
	a := NewAuthenticator("", "", "")
	if got := a.Authenticate("Bearer anything"); got.Authenticated {
		t.Error("Expected no key to match when none are configured")
	}
}

func TestRequireAuth(t *testing.T) {
	a := NewAuthenticator("client-key", "admin-key", "")

	var gotRole Role
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRole, _ = GetRoleFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name     string
		required Role
		header   string
		want     int
	}{
		{"client on client route", RoleClient, "Bearer client-key", http.StatusNoContent},
		{"admin on client route", RoleClient, "Bearer admin-key", http.StatusNoContent},
		{"client on admin route", RoleAdmin, "Bearer client-key", http.StatusForbidden},
		{"no key", RoleClient, "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			a.RequireAuth(tt.required)(next).ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, rec.Code)
			}
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer admin-key")
	a.RequireAuth(RoleClient)(next).ServeHTTP(httptest.NewRecorder(), req)
	if gotRole != RoleAdmin {
		t.Errorf("Expected admin role in context, got %q", gotRole)
	}
}
