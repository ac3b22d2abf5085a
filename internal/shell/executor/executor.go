// Package executor runs helm command lines as external processes.
package executor

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/artpar/helmvalidator/internal/core/validation"
)

// DefaultShell interprets command lines.
const DefaultShell = "/bin/bash"

// Runner runs one command line to completion.
type Runner interface {
	Run(ctx context.Context, command string) (validation.ProcessOutcome, error)
}

// Config configures an Executor.
type Config struct {
	// Shell is invoked as `<Shell> -c <command>`. Default: /bin/bash.
	Shell string

	// Timeout bounds a single invocation. Zero means no bound.
	Timeout time.Duration
}

// Executor runs commands through a shell with stdout and stderr merged.
type Executor struct {
	config Config
	logger *slog.Logger
}

// New creates an Executor.
func New(cfg Config, logger *slog.Logger) *Executor {
	if cfg.Shell == "" {
		cfg.Shell = DefaultShell
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		config: cfg,
		logger: logger.With("component", "executor"),
	}
}

// Run starts exactly one process for command and blocks until it exits.
//
// A non-zero exit status is not an error; it is reported in the outcome.
// Errors are always a ProcessExecution failure. If ctx ends first, the whole
// process group is killed and reaped before Run returns, and the failure
// wraps ctx.Err().
func (e *Executor) Run(ctx context.Context, command string) (validation.ProcessOutcome, error) {
	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	cmd := exec.Command(e.config.Shell, "-c", command)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	// Same writer for both streams: exec shares one pipe, preserving order.
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	e.logger.Debug("starting process", "command", command)
	start := time.Now()

	if err := cmd.Start(); err != nil {
		return validation.ProcessOutcome{}, validation.ProcessExecutionFailure(command,
			"error during bash execution", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var err error
	select {
	case <-ctx.Done():
		if cmd.Process != nil {
			syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		<-done
		e.logger.Warn("process interrupted", "command", command, "error", ctx.Err())
		return validation.ProcessOutcome{}, validation.ProcessExecutionFailure(command,
			"bash execution interrupted", ctx.Err())
	case err = <-done:
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return validation.ProcessOutcome{}, validation.ProcessExecutionFailure(command,
				"error during bash execution", err)
		}
		exitCode = exitErr.ExitCode()
	}

	e.logger.Debug("process finished",
		"command", command,
		"exit_code", exitCode,
		"duration", time.Since(start),
	)

	return validation.ProcessOutcome{
		ExitCode: exitCode,
		Lines:    splitLines(output.String()),
	}, nil
}

// splitLines breaks output on "\n", dropping a trailing newline and any "\r".
func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return []string{}
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
