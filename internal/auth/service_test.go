package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/veriscope/veriscope/internal/config"
	"github.com/veriscope/veriscope/internal/testutil"
)

func newTestAuthService(t *testing.T) *Service {
	t.Helper()
	cfg := config.AuthConfig{
		JWTSecret:      "test-secret-key-minimum-32-chars-long",
		JWTIssuer:      "veriscope-test",
		JWTAudience:    "veriscope-users",
		AccessTokenTTL: 15 * time.Minute,
	}
	return NewService(cfg, testutil.NullLogger())
}

func TestIssueAndValidateToken(t *testing.T) {
	service := newTestAuthService(t)

	token, err := service.IssueToken("user-1", "analyst@example.com")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	userID, err := service.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if userID != "user-1" {
		t.Errorf("userID = %s, want user-1", userID)
	}
}

func TestIssueToken_RequiresSubject(t *testing.T) {
	service := newTestAuthService(t)

	if _, err := service.IssueToken("", ""); err == nil {
		t.Error("Expected error for empty user id, got nil")
	}
}

func TestValidateAccessToken_Invalid(t *testing.T) {
	service := newTestAuthService(t)

	if _, err := service.ValidateAccessToken("invalid-token"); err == nil {
		t.Error("Expected error for invalid token, got nil")
	}
	if _, err := service.ValidateAccessToken(""); err == nil {
		t.Error("Expected error for empty token, got nil")
	}
}

func TestValidateAccessToken_WrongIssuer(t *testing.T) {
	issuing := NewService(config.AuthConfig{
		JWTSecret:      "test-secret-key-minimum-32-chars-long",
		JWTIssuer:      "someone-else",
		JWTAudience:    "veriscope-users",
		AccessTokenTTL: 15 * time.Minute,
	}, testutil.NullLogger())

	token, err := issuing.IssueToken("user-1", "")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	validating := newTestAuthService(t)
	if _, err := validating.ValidateAccessToken(token); err == nil {
		t.Error("Expected error for wrong issuer, got nil")
	}
}

func TestValidateAccessToken_Expired(t *testing.T) {
	expired := NewService(config.AuthConfig{
		JWTSecret:      "test-secret-key-minimum-32-chars-long",
		JWTIssuer:      "veriscope-test",
		JWTAudience:    "veriscope-users",
		AccessTokenTTL: -time.Minute,
	}, testutil.NullLogger())

	token, err := expired.IssueToken("user-1", "")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := expired.ValidateAccessToken(token); err == nil {
		t.Error("Expected error for expired token, got nil")
	}
}

func TestRequireAuth(t *testing.T) {
	service := newTestAuthService(t)
	middleware := NewMiddleware(service)

	var sawUserID string
	handler := middleware.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		sawUserID = GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		handler(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := service.IssueToken("user-42", "")
		if err != nil {
			t.Fatalf("IssueToken: %v", err)
		}
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		handler(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
		if sawUserID != "user-42" {
			t.Errorf("userID in context = %q, want user-42", sawUserID)
		}
	})
}

func TestAuthError(t *testing.T) {
	err := &AuthError{Code: "invalid_token", Message: "invalid or expired token"}
	if err.Error() != "invalid or expired token" {
		t.Errorf("AuthError.Error() = %s", err.Error())
	}
}
