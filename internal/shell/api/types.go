package api

// =============================================================================
// Response Types
// =============================================================================

// ValidationResult documents the JSON form of validation.Result. The three
// lint fields are present only when linting was requested.
type ValidationResult struct {
	Deployable   bool     `json:"deployable" description:"True when helm template exited with status 0"`
	RenderErrors []string `json:"renderErrors" description:"Template output lines starting with Error:"`
	Valid        *bool    `json:"valid,omitempty" description:"True when helm lint exited with status 0"`
	LintWarning  []string `json:"lintWarning,omitempty" description:"Lint output lines starting with [WARNING]"`
	LintError    []string `json:"lintError,omitempty" description:"Lint error lines, or the raw output of a failed run"`
	VersionUsed  string   `json:"versionUsed" description:"Installed helm version that validated the chart"`
}

// VersionsResponse lists the installed helm versions.
type VersionsResponse struct {
	Versions []string `json:"versions"`
}

// ErrorResponse is the error response format.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// HealthResponse is the health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse is the readiness check response.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
