// Package validator runs one chart validation end to end: store the upload,
// pick a helm version, render, optionally lint, and clean up.
package validator

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/artpar/helmvalidator/internal/core/chart"
	"github.com/artpar/helmvalidator/internal/core/validation"
	"github.com/artpar/helmvalidator/internal/core/versions"
)

// =============================================================================
// Dependencies
// =============================================================================

// Runner executes one helm command line.
type Runner interface {
	Run(ctx context.Context, command string) (validation.ProcessOutcome, error)
}

// Storage holds the uploaded archive for the duration of one call.
type Storage interface {
	Save(name string, r io.Reader) (string, error)
	Remove(path string)
}

// =============================================================================
// Request
// =============================================================================

// Request is one validation call.
type Request struct {
	// Version is the requested helm version: empty, a major alias like "v3",
	// or an exact installed version.
	Version string

	// Filename is the declared name of the uploaded archive.
	Filename string

	// Chart streams the packaged chart.
	Chart io.Reader

	Lint       bool
	StrictLint bool
}

// =============================================================================
// Service
// =============================================================================

// Config configures a Service.
type Config struct {
	// BinaryPrefix names the helm binaries, "<prefix>-v<version>". Default: helm.
	BinaryPrefix string
}

// Service validates charts. It keeps no state between calls and is safe for
// concurrent use.
type Service struct {
	storage  Storage
	catalog  *versions.Catalog
	resolver *versions.Resolver
	runner   Runner
	config   Config
	logger   *slog.Logger
}

// New creates a Service.
func New(storage Storage, catalog *versions.Catalog, runner Runner, cfg Config, logger *slog.Logger) *Service {
	if cfg.BinaryPrefix == "" {
		cfg.BinaryPrefix = validation.DefaultBinaryPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		storage:  storage,
		catalog:  catalog,
		resolver: versions.NewResolver(catalog, chart.ReadAPIVersionFile),
		runner:   runner,
		config:   cfg,
		logger:   logger.With("component", "validator"),
	}
}

// Versions lists the installed helm versions, newest first.
func (s *Service) Versions() []string {
	return s.catalog.List()
}

// Validate runs the template command, and the lint command when requested,
// with a single resolved helm version. The scratch copy of the chart is
// removed before Validate returns, on every path.
func (s *Service) Validate(ctx context.Context, req Request) (*validation.Result, error) {
	start := time.Now()
	logger := s.logger.With("filename", req.Filename, "version_desired", req.Version)

	result, err := s.validate(ctx, req, logger)

	validationDuration.Observe(time.Since(start).Seconds())
	validationsTotal.WithLabelValues(outcomeLabel(result, err)).Inc()

	if err != nil {
		logger.Warn("validation failed", "error", err)
		return nil, err
	}

	logger.Info("validation completed",
		"version_used", result.VersionUsed,
		"deployable", result.Deployable,
		"linted", result.Linted(),
		"duration", time.Since(start),
	)
	return result, nil
}

func (s *Service) validate(ctx context.Context, req Request, logger *slog.Logger) (*validation.Result, error) {
	path, err := s.storage.Save(req.Filename, req.Chart)
	if err != nil {
		return nil, err
	}
	defer s.storage.Remove(path)

	version, err := s.resolver.Resolve(versions.ParseRequest(req.Version), path)
	if err != nil {
		return nil, err
	}
	logger.Debug("resolved helm version", "version", version, "path", path)

	outcome, err := s.run(ctx, "template", validation.TemplateCommand(s.config.BinaryPrefix, version, path))
	if err != nil {
		return nil, err
	}
	template := validation.ClassifyTemplate(outcome)

	var lint *validation.LintOutcome
	if req.Lint {
		outcome, err := s.run(ctx, "lint", validation.LintCommand(s.config.BinaryPrefix, version, path, req.StrictLint))
		if err != nil {
			return nil, err
		}
		classified := validation.ClassifyLint(outcome)
		lint = &classified
	}

	return validation.NewResult(template, lint, version), nil
}

func (s *Service) run(ctx context.Context, operation, command string) (validation.ProcessOutcome, error) {
	start := time.Now()
	outcome, err := s.runner.Run(ctx, command)
	processDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	return outcome, err
}

func outcomeLabel(result *validation.Result, err error) string {
	if err != nil {
		if f, ok := validation.AsFailure(err); ok {
			return f.Kind.String()
		}
		return "error"
	}
	if result.Deployable {
		return "deployable"
	}
	return "not_deployable"
}
