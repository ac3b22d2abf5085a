// Command chartcheck validates a packaged helm chart locally with the same
// rules the helmvalidator service applies.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/artpar/helmvalidator/internal/core/validation"
	"github.com/artpar/helmvalidator/internal/core/versions"
	"github.com/artpar/helmvalidator/internal/shell/executor"
	"github.com/artpar/helmvalidator/internal/shell/scratch"
	"github.com/artpar/helmvalidator/internal/shell/validator"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// EnvSupportedVersions supplies -versions when the flag is not set.
const EnvSupportedVersions = "HELM_SUPPORTED_VERSIONS"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// options holds the parsed command line.
type options struct {
	version  string
	lint     bool
	strict   bool
	output   string
	versions string
	shell    string
	prefix   string
	timeout  time.Duration
	verbose  bool
	chart    string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("chartcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: chartcheck [flags] <chart.tgz>")
		fs.PrintDefaults()
	}

	opts := &options{}
	fs.StringVar(&opts.version, "version", "", "Helm version to use: v2, v3 or an installed version (default: from Chart.yaml)")
	fs.BoolVar(&opts.lint, "lint", false, "Also run helm lint")
	fs.BoolVar(&opts.strict, "strict", false, "Lint with --strict (requires -lint)")
	fs.StringVar(&opts.output, "output", "json", "Output format: json or yaml")
	fs.StringVar(&opts.versions, "versions", os.Getenv(EnvSupportedVersions), "Comma-separated installed helm versions")
	fs.StringVar(&opts.shell, "shell", executor.DefaultShell, "Shell that runs helm")
	fs.StringVar(&opts.prefix, "prefix", validation.DefaultBinaryPrefix, "Helm binary prefix, binaries are <prefix>-v<version>")
	fs.DurationVar(&opts.timeout, "timeout", 0, "Bound on each helm invocation (0 = none)")
	fs.BoolVar(&opts.verbose, "v", false, "Log debug output to stderr")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, errors.New("exactly one chart archive is required")
	}
	if opts.output != "json" && opts.output != "yaml" {
		return nil, fmt.Errorf("unknown output format %q", opts.output)
	}
	opts.chart = fs.Arg(0)
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(stderr, "chartcheck: %v\n", err)
		}
		return ExitUsage
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	f, err := os.Open(opts.chart)
	if err != nil {
		fmt.Fprintf(stderr, "chartcheck: %v\n", err)
		return ExitUsage
	}
	defer f.Close()

	dir, err := os.MkdirTemp("", "chartcheck-")
	if err != nil {
		fmt.Fprintf(stderr, "chartcheck: %v\n", err)
		return ExitFailure
	}
	defer os.RemoveAll(dir)

	svc := validator.New(
		scratch.New(dir, logger),
		versions.NewCatalog(versions.Static(opts.versions)),
		executor.New(executor.Config{Shell: opts.shell, Timeout: opts.timeout}, logger),
		validator.Config{BinaryPrefix: opts.prefix},
		logger,
	)

	result, err := svc.Validate(ctx, validator.Request{
		Version:    opts.version,
		Filename:   filepath.Base(opts.chart),
		Chart:      f,
		Lint:       opts.lint,
		StrictLint: opts.strict,
	})
	if err != nil {
		if failure, ok := validation.AsFailure(err); ok {
			fmt.Fprintf(stderr, "chartcheck: %s: %v\n", failure.Kind, failure)
		} else {
			fmt.Fprintf(stderr, "chartcheck: %v\n", err)
		}
		return ExitFailure
	}

	if err := writeResult(stdout, opts.output, result); err != nil {
		fmt.Fprintf(stderr, "chartcheck: %v\n", err)
		return ExitFailure
	}
	return ExitSuccess
}

func writeResult(w io.Writer, format string, result *validation.Result) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
