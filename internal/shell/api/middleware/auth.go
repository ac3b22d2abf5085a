// Package middleware provides HTTP middleware for the validator API.
package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// HeaderSharedSecret carries the caller's shared secret.
const HeaderSharedSecret = "X-Validator-Secret"

// =============================================================================
// Auth Configuration
// =============================================================================

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	// SecretHash is the bcrypt hash of the shared secret callers must send in
	// the X-Validator-Secret header. If empty, secret validation is skipped.
	SecretHash string

	// Logger for auth middleware logging.
	Logger *slog.Logger
}

// =============================================================================
// Auth Middleware
// =============================================================================

// AuthMiddleware rejects requests that do not present the shared secret.
type AuthMiddleware struct {
	config AuthConfig
}

// NewAuthMiddleware creates a new auth middleware with the given config.
func NewAuthMiddleware(cfg AuthConfig) *AuthMiddleware {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &AuthMiddleware{config: cfg}
}

// Enabled reports whether a secret is required.
func (m *AuthMiddleware) Enabled() bool {
	return m.config.SecretHash != ""
}

// Handler returns the middleware handler function.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	if !m.Enabled() {
		return next
	}
	hash := []byte(m.config.SecretHash)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret := r.Header.Get(HeaderSharedSecret)
		if secret == "" || bcrypt.CompareHashAndPassword(hash, []byte(secret)) != nil {
			m.config.Logger.Warn("invalid shared secret",
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path,
			)
			writeJSONError(w, http.StatusForbidden, "invalid shared secret", "FORBIDDEN")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// JSON Error Response
// =============================================================================

// errorResponse mirrors the API error body.
type errorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func writeJSONError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Message: message, Code: code})
}
