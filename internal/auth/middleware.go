package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

// ClaimsKey is the context key for verified token claims.
const ClaimsKey contextKey = "claims"

// Middleware guards HTTP handlers with admin tokens.
type Middleware struct {
	authService *Service
}

// NewMiddleware creates a new auth middleware. A nil service rejects every
// protected request.
func NewMiddleware(authService *Service) *Middleware {
	return &Middleware{authService: authService}
}

// RequireAdmin only lets requests with a valid admin token through.
func (m *Middleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.authService == nil {
			writeAuthError(w, http.StatusServiceUnavailable, "authentication unavailable")
			return
		}

		token := extractToken(r)
		if token == "" {
			writeAuthError(w, http.StatusUnauthorized, "authorization required")
			return
		}

		claims, err := m.authService.ValidateAccessToken(token)
		if err != nil {
			writeAuthError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		if !claims.IsAdmin() {
			writeAuthError(w, http.StatusForbidden, "admin access required")
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsKey, claims)
		next(w, r.WithContext(ctx))
	}
}

// GetClaims returns the claims stored by RequireAdmin.
func GetClaims(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(Claims)
	return claims, ok
}

func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}
