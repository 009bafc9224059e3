package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/johnrirwin/newsdesk/internal/config"
	"github.com/johnrirwin/newsdesk/internal/testutil"
)

func testConfig(t *testing.T) config.AuthConfig {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword() error = %v", err)
	}
	return config.AuthConfig{
		JWTSecret:         "test-secret-key-minimum-32-chars-long",
		JWTIssuer:         "newsdesk-test",
		JWTAudience:       "newsdesk-admin",
		AccessTokenTTL:    15 * time.Minute,
		AdminUsername:     "editor",
		AdminPasswordHash: string(hash),
	}
}

func TestAuthError(t *testing.T) {
	err := &AuthError{Code: "invalid_credentials", Message: "invalid username or password"}
	if err.Error() != "invalid username or password" {
		t.Errorf("AuthError.Error() = %s, want %s", err.Error(), "invalid username or password")
	}
}

func TestLogin(t *testing.T) {
	svc := NewService(testConfig(t), testutil.NullLogger())

	tests := []struct {
		name     string
		username string
		password string
		wantCode string
	}{
		{"valid", "editor", "correct horse", ""},
		{"wrong password", "editor", "battery staple", "invalid_credentials"},
		{"wrong user", "someone", "correct horse", "invalid_credentials"},
		{"empty", "", "", "invalid_input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.Login(tt.username, tt.password)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("Login() error = %v", err)
				}
				claims, err := svc.ValidateAccessToken(resp.AccessToken)
				if err != nil || !claims.IsAdmin() || claims.Subject != "editor" {
					t.Errorf("ValidateAccessToken() = %+v, %v", claims, err)
				}
				return
			}
			authErr, ok := err.(*AuthError)
			if !ok || authErr.Code != tt.wantCode {
				t.Errorf("Login() error = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestLogin_Disabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.AdminPasswordHash = ""
	svc := NewService(cfg, testutil.NullLogger())

	if _, err := svc.Login("editor", "correct horse"); err == nil {
		t.Error("Login() should fail when no password hash is configured")
	}
}

func TestValidateAccessToken(t *testing.T) {
	cfg := testConfig(t)
	svc := NewService(cfg, testutil.NullLogger())

	valid, _ := svc.IssueToken("editor", RoleAdmin)

	otherIssuer := cfg
	otherIssuer.JWTIssuer = "someone-else"
	foreign, _ := NewService(otherIssuer, testutil.NullLogger()).IssueToken("editor", RoleAdmin)

	otherSecret := cfg
	otherSecret.JWTSecret = "a-completely-different-secret-value"
	forged, _ := NewService(otherSecret, testutil.NullLogger()).IssueToken("editor", RoleAdmin)

	expiredSvc := NewService(cfg, testutil.NullLogger())
	expiredSvc.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, _ := expiredSvc.IssueToken("editor", RoleAdmin)

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{"valid", valid, false},
		{"empty", "", true},
		{"garbage", "invalid-token", true},
		{"wrong issuer", foreign, true},
		{"wrong secret", forged, true},
		{"expired", expired, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateAccessToken(tt.token)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAccessToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	svc := NewService(testConfig(t), testutil.NullLogger())
	admin, _ := svc.IssueToken("editor", RoleAdmin)
	reader, _ := svc.IssueToken("reader", "user")

	handler := NewMiddleware(svc).RequireAdmin(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := GetClaims(r.Context())
		if !ok || claims.Subject != "editor" {
			t.Errorf("GetClaims() = %+v, %v", claims, ok)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"admin token", "Bearer " + admin, http.StatusNoContent},
		{"non-admin token", "Bearer " + reader, http.StatusForbidden},
		{"missing header", "", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + admin, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/feed/refresh", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRequireAdmin_NoService(t *testing.T) {
	handler := NewMiddleware(nil).RequireAdmin(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run")
	})
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}
