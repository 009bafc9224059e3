package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/johnrirwin/newsdesk/internal/auth"
	"github.com/johnrirwin/newsdesk/internal/logging"
)

// AuthAPI handles authentication HTTP endpoints
type AuthAPI struct {
	authService *auth.Service
	logger      *logging.Logger
}

func NewAuthAPI(authService *auth.Service, logger *logging.Logger) *AuthAPI {
	return &AuthAPI{
		authService: authService,
		logger:      logger,
	}
}

// RegisterRoutes registers auth routes on the given mux
func (api *AuthAPI) RegisterRoutes(mux *http.ServeMux, corsMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("/api/auth/login", corsMiddleware(api.handleLogin))
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (api *AuthAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var params loginRequest
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	response, err := api.authService.Login(params.Username, params.Password)
	if err != nil {
		var authErr *auth.AuthError
		if errors.As(err, &authErr) {
			status := http.StatusUnauthorized
			switch authErr.Code {
			case "invalid_input":
				status = http.StatusBadRequest
			case "login_disabled":
				status = http.StatusServiceUnavailable
			}
			writeError(w, status, authErr.Code, authErr.Message)
			return
		}
		api.logger.Error("Login failed", logging.WithField("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal_error", "login failed")
		return
	}

	writeJSON(w, http.StatusOK, response)
}
