package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/artpar/helmvalidator/internal/core/versions"
	"github.com/artpar/helmvalidator/internal/shell/api"
	"github.com/artpar/helmvalidator/internal/shell/executor"
	"github.com/artpar/helmvalidator/internal/shell/scratch"
	"github.com/artpar/helmvalidator/internal/shell/validator"
	"github.com/artpar/helmvalidator/internal/shell/workers"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess         = 0
	ExitConfigError     = 1
	ExitScratchError    = 2
	ExitHTTPServerError = 4
)

// =============================================================================
// Server
// =============================================================================

// Server wires the validator service, the HTTP API and the scratch janitor.
type Server struct {
	config     *Config
	httpServer *http.Server
	janitor    *workers.Janitor
	logger     *slog.Logger
}

// NewServer creates a new server from configuration.
func NewServer(cfg *Config, logger *slog.Logger) (*Server, error) {
	if hash := cfg.Auth.SharedSecretHash; hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, &ServerError{
				Op:       "NewServer",
				Err:      errors.New("auth.shared_secret_hash is not a bcrypt hash"),
				ExitCode: ExitConfigError,
			}
		}
	}

	store := scratch.New(cfg.Helm.ChartsBasePath, logger)
	if err := store.Writable(); err != nil {
		return nil, &ServerError{
			Op:       "NewServer",
			Err:      err,
			ExitCode: ExitScratchError,
		}
	}

	catalog := versions.NewCatalog(envVersionSource{fallback: cfg.Helm.SupportedVersions})
	if len(catalog.List()) == 0 {
		logger.Warn("no helm versions configured", "env", EnvSupportedVersions)
	} else {
		logger.Info("helm versions configured", "versions", catalog.List())
	}

	runner := executor.New(executor.Config{
		Shell:   cfg.Helm.Shell,
		Timeout: cfg.Helm.Timeout,
	}, logger)

	svc := validator.New(store, catalog, runner, validator.Config{
		BinaryPrefix: cfg.Helm.BinaryPrefix,
	}, logger)

	handler := api.NewHandler(svc, store, api.Config{
		MaxUploadBytes: cfg.Limits.MaxUploadBytes,
		MaxConcurrent:  cfg.Limits.MaxConcurrent,
		RateLimit:      rate.Limit(cfg.Limits.Rate),
		RateBurst:      cfg.Limits.Burst,
		SecretHash:     cfg.Auth.SharedSecretHash,
	}, logger)

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	janitor := workers.NewJanitor(store, workers.JanitorConfig{
		Interval: cfg.Janitor.Interval,
		MaxAge:   cfg.Janitor.MaxAge,
	}, logger)

	return &Server{
		config:     cfg,
		httpServer: httpServer,
		janitor:    janitor,
		logger:     logger,
	}, nil
}

// Start runs the server until a shutdown signal, a listener error or ctx ends.
func (s *Server) Start(ctx context.Context) error {
	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	s.janitor.Start()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server",
			"address", s.config.Server.Address())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-sigCh:
		s.logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		s.janitor.Stop()
		return &ServerError{
			Op:       "Start",
			Err:      err,
			ExitCode: ExitHTTPServerError,
		}
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the server. In-flight validations finish
// and clean up before it returns, bounded by the shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	s.janitor.Stop()

	if err != nil {
		return &ServerError{
			Op:       "Shutdown",
			Err:      err,
			ExitCode: ExitHTTPServerError,
		}
	}

	s.logger.Info("shutdown complete")
	return nil
}

// =============================================================================
// Errors
// =============================================================================

// ServerError represents an error during server operation.
type ServerError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *ServerError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ServerError) Unwrap() error {
	return e.Err
}
