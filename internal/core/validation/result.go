package validation

import "encoding/json"

// =============================================================================
// Outcome Types
// =============================================================================

// ProcessOutcome is the captured result of one helm invocation.
// Lines holds stdout and stderr interleaved in emission order.
type ProcessOutcome struct {
	ExitCode int
	Lines    []string
}

// Succeeded reports whether the process exited with status 0.
func (o ProcessOutcome) Succeeded() bool {
	return o.ExitCode == 0
}

// TemplateOutcome is the classified result of a `helm template` run.
type TemplateOutcome struct {
	Deployable   bool
	RenderErrors []string
}

// LintOutcome is the classified result of a `helm lint` run.
type LintOutcome struct {
	Valid        bool
	LintErrors   []string
	LintWarnings []string
}

// =============================================================================
// Result
// =============================================================================

// Result is the externally visible outcome of validating one chart.
// Lint is nil when linting was not requested.
type Result struct {
	Deployable   bool
	RenderErrors []string
	Lint         *LintOutcome
	VersionUsed  string
}

// NewResult assembles a Result. Pass a nil lint when linting did not run.
func NewResult(template TemplateOutcome, lint *LintOutcome, versionUsed string) *Result {
	r := &Result{
		Deployable:   template.Deployable,
		RenderErrors: nonNil(template.RenderErrors),
		VersionUsed:  versionUsed,
	}
	if lint != nil {
		r.Lint = &LintOutcome{
			Valid:        lint.Valid,
			LintErrors:   nonNil(lint.LintErrors),
			LintWarnings: nonNil(lint.LintWarnings),
		}
	}
	return r
}

// Linted reports whether the result carries lint fields.
func (r *Result) Linted() bool {
	return r.Lint != nil
}

// resultJSON is the wire shape. The embedded pointer drops all three lint
// keys when nil, so "lint not requested" differs from "lint ran clean".
type resultJSON struct {
	Deployable   bool     `json:"deployable"`
	RenderErrors []string `json:"renderErrors"`
	*lintJSON
	VersionUsed string `json:"versionUsed"`
}

type lintJSON struct {
	Valid        bool     `json:"valid"`
	LintWarnings []string `json:"lintWarning"`
	LintErrors   []string `json:"lintError"`
}

// MarshalJSON implements json.Marshaler.
func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{
		Deployable:   r.Deployable,
		RenderErrors: nonNil(r.RenderErrors),
		VersionUsed:  r.VersionUsed,
	}
	if r.Lint != nil {
		out.lintJSON = &lintJSON{
			Valid:        r.Lint.Valid,
			LintWarnings: nonNil(r.Lint.LintWarnings),
			LintErrors:   nonNil(r.Lint.LintErrors),
		}
	}
	return json.Marshal(out)
}

// MarshalYAML implements yaml.Marshaler with the same keys as the JSON form.
func (r Result) MarshalYAML() (interface{}, error) {
	out := map[string]interface{}{
		"deployable":   r.Deployable,
		"renderErrors": nonNil(r.RenderErrors),
		"versionUsed":  r.VersionUsed,
	}
	if r.Lint != nil {
		out["valid"] = r.Lint.Valid
		out["lintWarning"] = nonNil(r.Lint.LintWarnings)
		out["lintError"] = nonNil(r.Lint.LintErrors)
	}
	return out, nil
}

func nonNil(lines []string) []string {
	if lines == nil {
		return []string{}
	}
	return lines
}
