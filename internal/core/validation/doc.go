// Package validation provides the pure core of chart validation.
//
// This package contains the functional core logic for turning raw helm
// process output into structured results. All functions are pure (no I/O,
// no side effects) and comply with ADR-002 "Values as Boundaries".
//
// # Functions
//
//   - TemplateCommand, LintCommand: Build the helm command lines for a version
//   - ClassifyTemplate: Turn a template run into a TemplateOutcome
//   - ClassifyLint: Turn a lint run into a LintOutcome
//   - NewResult: Assemble the externally visible Result
//
// # Usage
//
// The imperative shell (internal/shell/validator) runs the commands and
// feeds the captured output through the classifiers:
//
//	outcome, err := runner.Run(ctx, validation.TemplateCommand("helm", version, path))
//	template := validation.ClassifyTemplate(outcome)
package validation
