// Package api provides HTTP handlers for the validator service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/artpar/helmvalidator/internal/core/validation"
	"github.com/artpar/helmvalidator/internal/shell/api/middleware"
	"github.com/artpar/helmvalidator/internal/shell/api/openapi"
	"github.com/artpar/helmvalidator/internal/shell/validator"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Multipart form field names.
const (
	FieldFile           = "file"
	FieldVersionDesired = "versionDesired"
	FieldIsLinted       = "isLinted"
	FieldIsStrictLinted = "isStrictLinted"
)

// Error codes for failures raised by the HTTP layer itself.
const (
	CodeInvalidForm     = "INVALID_FORM"
	CodeMissingFile     = "MISSING_FILE"
	CodePayloadTooLarge = "PAYLOAD_TOO_LARGE"
	CodeBusy            = "BUSY"
	CodeInternal        = "INTERNAL"
)

// multipartMemory is held in memory before parts spill to temporary files.
const multipartMemory = 1 << 20

// =============================================================================
// Dependencies
// =============================================================================

// Validator runs validations and reports installed versions.
type Validator interface {
	Validate(ctx context.Context, req validator.Request) (*validation.Result, error)
	Versions() []string
}

// ScratchProbe reports whether scratch storage can accept uploads.
type ScratchProbe interface {
	Writable() error
}

// =============================================================================
// Handler
// =============================================================================

// Config holds the HTTP-level limits.
type Config struct {
	// MaxUploadBytes caps the request body of /validate. Zero means no cap.
	MaxUploadBytes int64

	// MaxConcurrent caps in-flight validations. Default: 4.
	MaxConcurrent int64

	// RateLimit and RateBurst configure the token bucket on API routes.
	// A zero RateLimit disables limiting.
	RateLimit rate.Limit
	RateBurst int

	// SecretHash is the bcrypt hash of the shared secret. Empty disables the check.
	SecretHash string
}

// Handler provides HTTP handlers for the API.
type Handler struct {
	validator Validator
	scratch   ScratchProbe
	config    Config
	slots     *semaphore.Weighted
	openapi   *openapi.Generator
	logger    *slog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(v Validator, scratch ScratchProbe, cfg Config, l *slog.Logger) *Handler {
	if l == nil {
		l = slog.Default()
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	h := &Handler{
		validator: v,
		scratch:   scratch,
		config:    cfg,
		slots:     semaphore.NewWeighted(cfg.MaxConcurrent),
		openapi:   openapi.NewGenerator(),
		logger:    l.With("component", "api"),
	}
	h.registerOpenAPI()
	return h
}

// Routes returns the router with all routes configured.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(ensureRequestID)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(h.requestIDHeader)

	// Operational endpoints
	r.Get("/health", h.handleHealth)
	r.Get("/ready", h.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/openapi.json", h.openapi.Handler())

	// Validation endpoints
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewRateLimiter(middleware.RateLimitConfig{
			Rate:   h.config.RateLimit,
			Burst:  h.config.RateBurst,
			Logger: h.logger,
		}).Handler)
		r.Use(middleware.NewAuthMiddleware(middleware.AuthConfig{
			SecretHash: h.config.SecretHash,
			Logger:     h.logger,
		}).Handler)

		r.Post("/validate", h.handleValidate)
		r.Get("/versions", h.handleVersions)
	})

	return r
}

// =============================================================================
// Middleware
// =============================================================================

// ensureRequestID assigns a UUID request ID when the caller did not send one,
// so chi's RequestID middleware adopts it instead of generating its own.
func ensureRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(chimiddleware.RequestIDHeader) == "" {
			r.Header.Set(chimiddleware.RequestIDHeader, uuid.NewString())
		}
		next.ServeHTTP(w, r)
	})
}

// requestIDHeader copies the request ID to the response header.
func (h *Handler) requestIDHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := chimiddleware.GetReqID(r.Context()); reqID != "" {
			w.Header().Set("X-Request-ID", reqID)
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Health Handlers
// =============================================================================

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	ready := true

	if err := h.scratch.Writable(); err != nil {
		h.logger.Warn("scratch storage not writable", "error", err)
		checks["scratch"] = "failed"
		ready = false
	} else {
		checks["scratch"] = "ok"
	}

	if len(h.validator.Versions()) == 0 {
		checks["versions"] = "none configured"
		ready = false
	} else {
		checks["versions"] = "ok"
	}

	if !ready {
		h.writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{Status: "not_ready", Checks: checks})
		return
	}
	h.writeJSON(w, http.StatusOK, ReadyResponse{Status: "ready", Checks: checks})
}

// =============================================================================
// Validation Handlers
// =============================================================================

func (h *Handler) handleVersions(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, VersionsResponse{Versions: h.validator.Versions()})
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	if !h.slots.TryAcquire(1) {
		h.writeError(w, http.StatusServiceUnavailable, "too many validations in progress", CodeBusy)
		return
	}
	defer h.slots.Release(1)

	if h.config.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit), CodePayloadTooLarge)
			return
		}
		h.writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error(), CodeInvalidForm)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(FieldFile)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "file is required", CodeMissingFile)
		return
	}
	defer file.Close()

	lint, err := parseFlag(r, FieldIsLinted)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error(), CodeInvalidForm)
		return
	}
	strict, err := parseFlag(r, FieldIsStrictLinted)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error(), CodeInvalidForm)
		return
	}

	result, err := h.validator.Validate(r.Context(), validator.Request{
		Version:    r.FormValue(FieldVersionDesired),
		Filename:   header.Filename,
		Chart:      file,
		Lint:       lint,
		StrictLint: strict,
	})
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// parseFlag reads an optional boolean form field. Absent means false.
func parseFlag(r *http.Request, name string) (bool, error) {
	raw := r.FormValue(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", name, raw)
	}
	return v, nil
}

// =============================================================================
// Helpers
// =============================================================================

// StatusForKind maps a failure kind to its HTTP status.
func StatusForKind(kind validation.Kind) int {
	if kind.IsClientError() {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	f, ok := validation.AsFailure(err)
	if !ok {
		h.logger.Error("unexpected validation error",
			"request_id", chimiddleware.GetReqID(r.Context()),
			"error", err,
		)
		h.writeError(w, http.StatusInternalServerError, "internal error", CodeInternal)
		return
	}

	status := StatusForKind(f.Kind)
	if status >= http.StatusInternalServerError {
		h.logger.Error("validation failed",
			"request_id", chimiddleware.GetReqID(r.Context()),
			"code", f.Kind.String(),
			"error", err,
		)
	}
	h.writeError(w, status, f.Error(), f.Kind.String())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode JSON", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message, code string) {
	h.writeJSON(w, status, ErrorResponse{
		Message: message,
		Code:    code,
	})
}

// =============================================================================
// OpenAPI
// =============================================================================

func (h *Handler) registerOpenAPI() {
	h.openapi.RegisterEndpoint(openapi.Endpoint{
		Method:      http.MethodPost,
		Path:        "/validate",
		OperationID: "validateChart",
		Summary:     "Render and optionally lint a packaged Helm chart",
		Tag:         "Validation",
		Form: []openapi.FormField{
			{Name: FieldFile, Type: "file", Required: true, Description: "Chart archive (.tgz)"},
			{Name: FieldVersionDesired, Type: "string", Description: "Exact version (3.11.3) or major alias (v3)"},
			{Name: FieldIsLinted, Type: "boolean", Description: "Also run helm lint"},
			{Name: FieldIsStrictLinted, Type: "boolean", Description: "Pass --strict to helm lint"},
		},
		Responses: map[int]openapi.Response{
			http.StatusOK:                    {Description: "Validation result", Model: ValidationResult{}},
			http.StatusBadRequest:            {Description: "Unsupported version or unreadable chart metadata", Model: ErrorResponse{}},
			http.StatusForbidden:             {Description: "Missing or invalid shared secret", Model: ErrorResponse{}},
			http.StatusRequestEntityTooLarge: {Description: "Upload too large", Model: ErrorResponse{}},
			http.StatusTooManyRequests:       {Description: "Rate limit exceeded", Model: ErrorResponse{}},
			http.StatusInternalServerError:   {Description: "Storage or process failure", Model: ErrorResponse{}},
			http.StatusServiceUnavailable:    {Description: "Too many validations in progress", Model: ErrorResponse{}},
		},
	})
	h.openapi.RegisterEndpoint(openapi.Endpoint{
		Method:      http.MethodGet,
		Path:        "/versions",
		OperationID: "listVersions",
		Summary:     "List installed helm versions, newest first",
		Tag:         "Validation",
		Responses: map[int]openapi.Response{
			http.StatusOK: {Description: "Installed versions", Model: VersionsResponse{}},
		},
	})
	h.openapi.RegisterEndpoint(openapi.Endpoint{
		Method:      http.MethodGet,
		Path:        "/health",
		OperationID: "health",
		Summary:     "Liveness probe",
		Tag:         "Operations",
		Responses: map[int]openapi.Response{
			http.StatusOK: {Description: "Service is alive", Model: HealthResponse{}},
		},
	})
	h.openapi.RegisterEndpoint(openapi.Endpoint{
		Method:      http.MethodGet,
		Path:        "/ready",
		OperationID: "ready",
		Summary:     "Readiness probe",
		Tag:         "Operations",
		Responses: map[int]openapi.Response{
			http.StatusOK:                 {Description: "Ready to validate", Model: ReadyResponse{}},
			http.StatusServiceUnavailable: {Description: "Scratch storage or versions unavailable", Model: ReadyResponse{}},
		},
	})
}
