// Package versions decides which installed helm version validates a chart.
//
// The installed set comes from a comma-separated configuration string that
// is re-read on every query, so a configuration change takes effect on the
// next call without a restart.
package versions

import (
	"sort"
	"strings"

	"github.com/artpar/helmvalidator/internal/core/validation"
)

// Source supplies the raw comma-separated list of installed versions.
type Source interface {
	SupportedVersions() string
}

// Static is a Source with a fixed value.
type Static string

// SupportedVersions implements Source.
func (s Static) SupportedVersions() string {
	return string(s)
}

// Parse splits raw on commas, drops blank tokens and sorts the rest in
// descending string order. The order is lexicographic, not numeric:
// "2.9.0" sorts ahead of "2.10.0".
func Parse(raw string) []string {
	out := []string{}
	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		out = append(out, token)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out
}

// Catalog answers questions about the installed helm versions.
type Catalog struct {
	source Source
}

// NewCatalog creates a Catalog backed by source.
func NewCatalog(source Source) *Catalog {
	if source == nil {
		source = Static("")
	}
	return &Catalog{source: source}
}

// List returns the installed versions, newest (lexicographically) first.
func (c *Catalog) List() []string {
	return Parse(c.source.SupportedVersions())
}

// Latest returns the first listed version whose major component is major.
func (c *Catalog) Latest(major string) (string, error) {
	prefix := major + "."
	for _, v := range c.List() {
		if strings.HasPrefix(v, prefix) {
			return v, nil
		}
	}
	return "", validation.UnsupportedRequestedVersion(major)
}

// Contains reports whether version is installed (exact, case-sensitive).
func (c *Catalog) Contains(version string) bool {
	for _, v := range c.List() {
		if v == version {
			return true
		}
	}
	return false
}
