// Package chart reads metadata out of packaged helm charts.
// Archives are streamed, never extracted to disk.
package chart

import (
	"archive/tar"
	"bufio"
	"compress/gzip"
	"io"
	"os"
	"strings"

	"github.com/artpar/helmvalidator/internal/core/validation"
)

const (
	// ManifestFile is the name of a chart's root descriptor.
	ManifestFile = "Chart.yaml"

	// APIVersionPrefix marks the manifest line carrying the chart API version.
	APIVersionPrefix = "apiVersion:"

	// rootManifestDepth is "<chart dir>/Chart.yaml"; sub-charts sit deeper.
	rootManifestDepth = 2
)

// ReadAPIVersionFile reads the chart apiVersion from the .tgz at path.
func ReadAPIVersionFile(p string) (string, error) {
	f, err := os.Open(p)
	if err != nil {
		return "", validation.ArchiveReadFailure(p, err)
	}
	defer f.Close()

	return ReadAPIVersion(f, p)
}

// ReadAPIVersion scans a gzip-compressed tar stream for the root Chart.yaml
// and returns the trimmed value of its apiVersion line. name identifies the
// stream in failures.
//
// Entries are visited once, in stream order; the first root manifest wins.
func ReadAPIVersion(r io.Reader, name string) (string, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return "", validation.ArchiveReadFailure(name, err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return "", validation.ManifestVersionMissing(validation.ErrManifestNotFound)
		}
		if err != nil {
			return "", validation.ArchiveReadFailure(name, err)
		}
		if !isRootManifest(hdr) {
			continue
		}

		version, found, err := scanAPIVersion(tr)
		if err != nil {
			return "", validation.ArchiveReadFailure(name, err)
		}
		if !found {
			return "", validation.ManifestVersionMissing(validation.ErrAPIVersionNotFound)
		}
		return version, nil
	}
}

// isRootManifest reports whether hdr is "<dir>/Chart.yaml" as a regular file.
func isRootManifest(hdr *tar.Header) bool {
	if hdr.Typeflag != tar.TypeReg {
		return false
	}
	segments := nameSegments(hdr.Name)
	return len(segments) == rootManifestDepth && segments[len(segments)-1] == ManifestFile
}

// nameSegments splits an entry name on "/", dropping empty segments so that
// "demo//Chart.yaml" has two. "." is kept as a segment.
func nameSegments(name string) []string {
	var out []string
	for _, s := range strings.Split(name, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// scanAPIVersion reads r line by line with no limit on line length.
func scanAPIVersion(r io.Reader) (string, bool, error) {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if idx := strings.Index(line, APIVersionPrefix); idx >= 0 {
			value := line[:idx] + line[idx+len(APIVersionPrefix):]
			return strings.TrimSpace(value), true, nil
		}
		if err == io.EOF {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}
	}
}
