package validation

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Result Shape Tests
// =============================================================================

func TestResult_JSONWithoutLintOmitsLintKeys(t *testing.T) {
	r := NewResult(TemplateOutcome{Deployable: true}, nil, "3.11.3")

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, true, got["deployable"])
	assert.Equal(t, []interface{}{}, got["renderErrors"])
	assert.Equal(t, "3.11.3", got["versionUsed"])
	assert.NotContains(t, got, "valid")
	assert.NotContains(t, got, "lintError")
	assert.NotContains(t, got, "lintWarning")
}

func TestResult_JSONWithLintHasAllKeys(t *testing.T) {
	r := NewResult(
		TemplateOutcome{Deployable: false, RenderErrors: []string{"Error: boom"}},
		&LintOutcome{Valid: true},
		"2.17.0",
	)

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, false, got["deployable"])
	assert.Equal(t, []interface{}{"Error: boom"}, got["renderErrors"])
	assert.Equal(t, true, got["valid"])
	assert.Equal(t, []interface{}{}, got["lintError"])
	assert.Equal(t, []interface{}{}, got["lintWarning"])
	assert.Equal(t, "2.17.0", got["versionUsed"])
}

func TestResult_YAMLMatchesJSONKeys(t *testing.T) {
	r := NewResult(TemplateOutcome{Deployable: true}, &LintOutcome{
		Valid:        false,
		LintWarnings: []string{"[WARNING] icon"},
	}, "3.0.0")

	data, err := yaml.Marshal(r)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, yaml.Unmarshal(data, &got))

	assert.Equal(t, true, got["deployable"])
	assert.Equal(t, false, got["valid"])
	assert.Equal(t, []interface{}{"[WARNING] icon"}, got["lintWarning"])
	assert.Equal(t, "3.0.0", got["versionUsed"])
}

func TestNewResult_DoesNotAliasLint(t *testing.T) {
	lint := &LintOutcome{Valid: true}
	r := NewResult(TemplateOutcome{Deployable: true}, lint, "3.0.0")

	lint.Valid = false
	assert.True(t, r.Lint.Valid)
	assert.True(t, r.Linted())
}

// =============================================================================
// Failure Tests
// =============================================================================

func TestKind_IsClientError(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindScratchWrite, false},
		{KindArchiveRead, false},
		{KindManifestVersionMissing, true},
		{KindUnsupportedAPIVersion, true},
		{KindUnsupportedRequestedVersion, true},
		{KindProcessExecution, false},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.IsClientError())
		})
	}
	assert.Equal(t, "UNKNOWN", Kind(0).String())
}

func TestFailure_WrapAndUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := error(ScratchWriteFailure("chart.tgz", cause))

	f, ok := AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, KindScratchWrite, f.Kind)
	assert.Equal(t, "chart.tgz", f.Subject)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "cannot save file: chart.tgz: disk full", err.Error())
	assert.True(t, IsKind(err, KindScratchWrite))
	assert.False(t, IsKind(errors.New("plain"), KindScratchWrite))
}

func TestFailure_Constructors(t *testing.T) {
	assert.Equal(t, "cannot obtain helm version from API version: v9", UnsupportedAPIVersion("v9").Error())
	assert.Equal(t, "version not supported: 4", UnsupportedRequestedVersion("4").Error())
	assert.Equal(t, KindArchiveRead, ArchiveReadFailure("/tmp/x", nil).Kind)
	assert.ErrorIs(t, ManifestVersionMissing(ErrManifestNotFound), ErrManifestNotFound)
}
