package validation

import (
	"regexp"
	"strings"
)

// =============================================================================
// Output Classification
// =============================================================================

const (
	templateErrorPrefix = "Error:"
	lintErrorPrefix     = "[ERROR]"
	lintErrorWordPrefix = "Error"
	lintWarningPrefix   = "[WARNING]"
)

// lintSummary matches the trailer helm lint always prints on failure.
var lintSummary = regexp.MustCompile(`^Error: \d+ chart\(s\) linted, \d+ chart\(s\) failed$`)

// ClassifyTemplate turns a `helm template` run into a TemplateOutcome.
// Render errors are only collected when the run failed.
func ClassifyTemplate(outcome ProcessOutcome) TemplateOutcome {
	if outcome.Succeeded() {
		return TemplateOutcome{Deployable: true, RenderErrors: []string{}}
	}
	return TemplateOutcome{
		Deployable:   false,
		RenderErrors: filterLines(outcome.Lines, isTemplateError),
	}
}

// ClassifyLint turns a `helm lint` run into a LintOutcome.
//
// A failed run with no recognizable error or warning line reports the whole
// raw output as errors, so an invalid result always carries an explanation.
func ClassifyLint(outcome ProcessOutcome) LintOutcome {
	errs := filterLines(outcome.Lines, isLintError)
	warnings := filterLines(outcome.Lines, isLintWarning)

	if !outcome.Succeeded() && len(errs) == 0 && len(warnings) == 0 {
		raw := make([]string, len(outcome.Lines))
		copy(raw, outcome.Lines)
		return LintOutcome{
			Valid:        false,
			LintErrors:   raw,
			LintWarnings: []string{},
		}
	}

	return LintOutcome{
		Valid:        outcome.Succeeded(),
		LintErrors:   errs,
		LintWarnings: warnings,
	}
}

func isTemplateError(line string) bool {
	return strings.HasPrefix(line, templateErrorPrefix)
}

func isLintError(line string) bool {
	if !strings.HasPrefix(line, lintErrorPrefix) && !strings.HasPrefix(line, lintErrorWordPrefix) {
		return false
	}
	return !lintSummary.MatchString(line)
}

func isLintWarning(line string) bool {
	return strings.HasPrefix(line, lintWarningPrefix)
}

func filterLines(lines []string, keep func(string) bool) []string {
	out := []string{}
	for _, line := range lines {
		if keep(line) {
			out = append(out, line)
		}
	}
	return out
}
