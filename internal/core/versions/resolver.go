package versions

import (
	"regexp"

	"github.com/artpar/helmvalidator/internal/core/validation"
)

// =============================================================================
// Requested Version
// =============================================================================

// RequestKind tells how a caller asked for a helm version.
type RequestKind int

const (
	// Unspecified means the version is derived from the chart manifest.
	Unspecified RequestKind = iota
	// MajorAlias means "latest installed version of this major", e.g. "v3".
	MajorAlias
	// Exact means a full version string that must be installed as is.
	Exact
)

var majorAliasPattern = regexp.MustCompile(`^v(\d+)$`)

// Request is the caller's version choice, fixed once per validation.
type Request struct {
	Kind  RequestKind
	Value string // major digits for MajorAlias, version for Exact
}

// ParseRequest classifies the raw versionDesired value. Empty means Unspecified.
func ParseRequest(raw string) Request {
	if raw == "" {
		return Request{Kind: Unspecified}
	}
	if m := majorAliasPattern.FindStringSubmatch(raw); m != nil {
		return Request{Kind: MajorAlias, Value: m[1]}
	}
	return Request{Kind: Exact, Value: raw}
}

// =============================================================================
// Chart API Version Mapping
// =============================================================================

// chartAPIMajors maps a Chart.yaml apiVersion to the helm major that renders it.
var chartAPIMajors = map[string]string{
	"v1": "2",
	"v2": "3",
}

// MajorForAPIVersion returns the helm major for a chart apiVersion token.
func MajorForAPIVersion(apiVersion string) (string, error) {
	major, ok := chartAPIMajors[apiVersion]
	if !ok {
		return "", validation.UnsupportedAPIVersion(apiVersion)
	}
	return major, nil
}

// =============================================================================
// Resolver
// =============================================================================

// ManifestReader returns the apiVersion of the chart archive at path.
type ManifestReader func(path string) (string, error)

// Resolver picks one concrete installed version per validation.
type Resolver struct {
	catalog  *Catalog
	manifest ManifestReader
}

// NewResolver creates a Resolver. manifest is only consulted for Unspecified requests.
func NewResolver(catalog *Catalog, manifest ManifestReader) *Resolver {
	return &Resolver{catalog: catalog, manifest: manifest}
}

// Resolve returns the version to run for req against the chart at chartPath.
func (r *Resolver) Resolve(req Request, chartPath string) (string, error) {
	switch req.Kind {
	case MajorAlias:
		return r.catalog.Latest(req.Value)
	case Exact:
		if !r.catalog.Contains(req.Value) {
			return "", validation.UnsupportedRequestedVersion(req.Value)
		}
		return req.Value, nil
	default:
		apiVersion, err := r.manifest(chartPath)
		if err != nil {
			return "", err
		}
		major, err := MajorForAPIVersion(apiVersion)
		if err != nil {
			return "", err
		}
		return r.catalog.Latest(major)
	}
}
