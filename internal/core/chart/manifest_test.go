package chart

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/artpar/helmvalidator/internal/core/validation"
	"github.com/artpar/helmvalidator/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadAPIVersion(t *testing.T) {
	tests := []struct {
		name    string
		entries []testutil.Entry
		want    string
	}{
		{
			name:    "v1 chart",
			entries: testutil.SimpleChart("v1"),
			want:    "v1",
		},
		{
			name:    "v2 chart",
			entries: testutil.SimpleChart("v2"),
			want:    "v2",
		},
		{
			name: "value is trimmed",
			entries: []testutil.Entry{
				{Name: "demo/Chart.yaml", Content: "name: demo\napiVersion:    v2   \n"},
			},
			want: "v2",
		},
		{
			name: "sub-chart before root manifest is skipped",
			entries: []testutil.Entry{
				{Name: "demo/charts/sub/Chart.yaml", Content: testutil.ChartManifest("v1")},
				{Name: "demo/Chart.yaml", Content: testutil.ChartManifest("v2")},
			},
			want: "v2",
		},
		{
			name: "first root manifest wins",
			entries: []testutil.Entry{
				{Name: "a/Chart.yaml", Content: testutil.ChartManifest("v1")},
				{Name: "b/Chart.yaml", Content: testutil.ChartManifest("v2")},
			},
			want: "v1",
		},
		{
			name: "line longer than 64 KiB before apiVersion",
			entries: []testutil.Entry{
				{Name: "demo/Chart.yaml", Content: "description: " + strings.Repeat("x", 70*1024) + "\napiVersion: v2\nname: demo\n"},
			},
			want: "v2",
		},
		{
			name: "last line without newline",
			entries: []testutil.Entry{
				{Name: "demo/Chart.yaml", Content: "name: demo\napiVersion: v1"},
			},
			want: "v1",
		},
		{
			name: "repeated separator collapses",
			entries: []testutil.Entry{
				{Name: "demo//Chart.yaml", Content: testutil.ChartManifest("v2")},
			},
			want: "v2",
		},
		{
			name: "unknown token is returned as is",
			entries: []testutil.Entry{
				{Name: "demo/Chart.yaml", Content: testutil.ChartManifest("v3")},
			},
			want: "v3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := testutil.BuildArchive(t, tt.entries)

			got, err := ReadAPIVersion(bytes.NewReader(data), "fixture.tgz")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadAPIVersion_ManifestMissing(t *testing.T) {
	tests := []struct {
		name    string
		entries []testutil.Entry
		cause   error
	}{
		{
			name:    "no manifest at all",
			entries: []testutil.Entry{{Name: "demo/values.yaml", Content: "a: 1\n"}},
			cause:   validation.ErrManifestNotFound,
		},
		{
			name:    "manifest at archive root is too shallow",
			entries: []testutil.Entry{{Name: "Chart.yaml", Content: testutil.ChartManifest("v2")}},
			cause:   validation.ErrManifestNotFound,
		},
		{
			name:    "dot-slash prefix counts as a segment",
			entries: []testutil.Entry{{Name: "./demo/Chart.yaml", Content: testutil.ChartManifest("v2")}},
			cause:   validation.ErrManifestNotFound,
		},
		{
			name:    "only nested manifest",
			entries: []testutil.Entry{{Name: "demo/charts/sub/Chart.yaml", Content: testutil.ChartManifest("v2")}},
			cause:   validation.ErrManifestNotFound,
		},
		{
			name:    "directory named Chart.yaml",
			entries: []testutil.Entry{{Name: "demo/Chart.yaml/"}},
			cause:   validation.ErrManifestNotFound,
		},
		{
			name:    "manifest without apiVersion",
			entries: []testutil.Entry{{Name: "demo/Chart.yaml", Content: "name: demo\nversion: 0.1.0\n"}},
			cause:   validation.ErrAPIVersionNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := testutil.BuildArchive(t, tt.entries)

			_, err := ReadAPIVersion(bytes.NewReader(data), "fixture.tgz")
			require.Error(t, err)
			assert.True(t, validation.IsKind(err, validation.KindManifestVersionMissing))
			assert.ErrorIs(t, err, tt.cause)
		})
	}
}

func TestReadAPIVersion_NotGzip(t *testing.T) {
	_, err := ReadAPIVersion(bytes.NewReader([]byte("plain text, not an archive")), "bad.tgz")

	require.Error(t, err)
	f, ok := validation.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, validation.KindArchiveRead, f.Kind)
	assert.Equal(t, "bad.tgz", f.Subject)
}

func TestReadAPIVersionFile(t *testing.T) {
	dir := t.TempDir()
	p := testutil.WriteArchive(t, dir, "chart.tgz", testutil.SimpleChart("v2"))

	got, err := ReadAPIVersionFile(p)
	require.NoError(t, err)
	assert.Equal(t, "v2", got)
}

func TestReadAPIVersionFile_Missing(t *testing.T) {
	p := filepath.Join(t.TempDir(), "absent.tgz")

	_, err := ReadAPIVersionFile(p)
	require.Error(t, err)
	f, ok := validation.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, validation.KindArchiveRead, f.Kind)
	assert.Equal(t, p, f.Subject)
}
