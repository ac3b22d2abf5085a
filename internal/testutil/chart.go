// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
)

// =============================================================================
// Chart Archives
// =============================================================================

// Entry is one member of a fixture archive. A Name ending in "/" is a directory.
type Entry struct {
	Name    string
	Content string
}

// ChartManifest returns a minimal Chart.yaml body for the given apiVersion.
func ChartManifest(apiVersion string) string {
	return "apiVersion: " + apiVersion + "\nname: demo\nversion: 0.1.0\n"
}

// SimpleChart returns the entries of a one-template chart named "demo".
func SimpleChart(apiVersion string) []Entry {
	return []Entry{
		{Name: "demo/"},
		{Name: "demo/Chart.yaml", Content: ChartManifest(apiVersion)},
		{Name: "demo/values.yaml", Content: "replicas: 1\n"},
		{Name: "demo/templates/cm.yaml", Content: "kind: ConfigMap\n"},
	}
}

// BuildArchive packs entries, in order, into a gzip-compressed tar.
func BuildArchive(t testing.TB, entries []Entry) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for _, e := range entries {
		hdr := &tar.Header{Name: e.Name, Mode: 0o644, Size: int64(len(e.Content)), Typeflag: tar.TypeReg}
		if e.Name[len(e.Name)-1] == '/' {
			hdr.Typeflag = tar.TypeDir
			hdr.Mode = 0o755
			hdr.Size = 0
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write tar header %s: %v", e.Name, err)
		}
		if hdr.Typeflag == tar.TypeReg {
			if _, err := tw.Write([]byte(e.Content)); err != nil {
				t.Fatalf("write tar entry %s: %v", e.Name, err)
			}
		}
	}

	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
	return buf.Bytes()
}

// WriteArchive writes a fixture archive into dir and returns its path.
func WriteArchive(t testing.TB, dir, name string, entries []Entry) string {
	t.Helper()

	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, BuildArchive(t, entries), 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}
	return p
}
