package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/johnrirwin/newsdesk/internal/config"
	"github.com/johnrirwin/newsdesk/internal/logging"
)

// RoleAdmin is the role claim required by admin endpoints.
const RoleAdmin = "admin"

// Claims is what a verified token tells us about the caller.
type Claims struct {
	Subject string
	Role    string
}

func (c Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// TokenResponse is returned by Login.
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int    `json:"expiresIn"`
}

// Service issues and validates HS256 admin tokens.
type Service struct {
	config config.AuthConfig
	logger *logging.Logger
	now    func() time.Time
}

func NewService(cfg config.AuthConfig, logger *logging.Logger) *Service {
	return &Service{
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Login checks the configured admin credentials and returns an access token.
func (s *Service) Login(username, password string) (*TokenResponse, error) {
	if s.config.AdminPasswordHash == "" {
		return nil, &AuthError{Code: "login_disabled", Message: "admin login is not configured"}
	}
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, &AuthError{Code: "invalid_input", Message: "username and password are required"}
	}

	if username != s.config.AdminUsername ||
		bcrypt.CompareHashAndPassword([]byte(s.config.AdminPasswordHash), []byte(password)) != nil {
		s.logger.Warn("Admin login rejected", logging.WithField("username", username))
		return nil, &AuthError{Code: "invalid_credentials", Message: "invalid username or password"}
	}

	token, err := s.IssueToken(username, RoleAdmin)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Admin logged in", logging.WithField("username", username))
	return &TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.config.AccessTokenTTL.Seconds()),
	}, nil
}

// IssueToken signs an access token for subject with the given role.
func (s *Service) IssueToken(subject, role string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"iss":  s.config.JWTIssuer,
		"aud":  s.config.JWTAudience,
		"iat":  now.Unix(),
		"exp":  now.Add(s.config.AccessTokenTTL).Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// ValidateAccessToken checks signature, expiry, issuer and audience.
func (s *Service) ValidateAccessToken(tokenString string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	},
		jwt.WithIssuer(s.config.JWTIssuer),
		jwt.WithAudience(s.config.JWTAudience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Claims{}, &AuthError{Code: "invalid_token", Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Claims{}, &AuthError{Code: "invalid_token", Message: "invalid token claims"}
	}

	subject, _ := claims["sub"].(string)
	if subject == "" {
		return Claims{}, &AuthError{Code: "invalid_token", Message: "invalid token subject"}
	}
	role, _ := claims["role"].(string)

	return Claims{Subject: subject, Role: role}, nil
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *AuthError) Error() string {
	return e.Message
}
