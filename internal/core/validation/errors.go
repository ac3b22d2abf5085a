package validation

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

// Kind identifies one of the closed set of reasons a validation can fail.
type Kind int

const (
	// KindScratchWrite means the uploaded chart could not be written to scratch storage.
	KindScratchWrite Kind = iota + 1
	// KindArchiveRead means the chart archive could not be opened or read.
	KindArchiveRead
	// KindManifestVersionMissing means Chart.yaml or its apiVersion field is absent.
	KindManifestVersionMissing
	// KindUnsupportedAPIVersion means the chart's apiVersion maps to no helm generation.
	KindUnsupportedAPIVersion
	// KindUnsupportedRequestedVersion means the requested helm version is not installed.
	KindUnsupportedRequestedVersion
	// KindProcessExecution means the helm process could not be run to completion.
	KindProcessExecution
)

var kindNames = map[Kind]string{
	KindScratchWrite:                "SCRATCH_WRITE_FAILURE",
	KindArchiveRead:                 "ARCHIVE_READ_FAILURE",
	KindManifestVersionMissing:      "MANIFEST_VERSION_MISSING",
	KindUnsupportedAPIVersion:       "UNSUPPORTED_API_VERSION",
	KindUnsupportedRequestedVersion: "UNSUPPORTED_REQUESTED_VERSION",
	KindProcessExecution:            "PROCESS_EXECUTION_FAILURE",
}

// String returns the stable machine-readable code for the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// IsClientError reports whether the failure was caused by the caller's input
// or the chart content rather than by the service itself.
func (k Kind) IsClientError() bool {
	switch k {
	case KindManifestVersionMissing, KindUnsupportedAPIVersion, KindUnsupportedRequestedVersion:
		return true
	default:
		return false
	}
}

var (
	// ErrManifestNotFound is wrapped when the archive has no top-level Chart.yaml.
	ErrManifestNotFound = errors.New("chart manifest not found")

	// ErrAPIVersionNotFound is wrapped when Chart.yaml has no apiVersion line.
	ErrAPIVersionNotFound = errors.New("apiVersion not found in chart manifest")
)

// Failure is the single error type returned by the validation pipeline.
type Failure struct {
	Kind    Kind
	Subject string // file name, path, version or token the failure concerns
	Message string
	Err     error
}

func (e *Failure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Failure) Unwrap() error {
	return e.Err
}

// NewFailure creates a new Failure.
func NewFailure(kind Kind, subject, message string, err error) *Failure {
	return &Failure{
		Kind:    kind,
		Subject: subject,
		Message: message,
		Err:     err,
	}
}

// AsFailure extracts a *Failure from err's chain.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// IsKind reports whether err carries a Failure of the given kind.
func IsKind(err error, kind Kind) bool {
	f, ok := AsFailure(err)
	return ok && f.Kind == kind
}

// ScratchWriteFailure reports that the upload named name could not be stored.
func ScratchWriteFailure(name string, err error) *Failure {
	return NewFailure(KindScratchWrite, name, "cannot save file: "+name, err)
}

// ArchiveReadFailure reports that the archive at path could not be read.
func ArchiveReadFailure(path string, err error) *Failure {
	return NewFailure(KindArchiveRead, path, "cannot read tar from path: "+path, err)
}

// ManifestVersionMissing reports that no apiVersion could be derived from the chart.
func ManifestVersionMissing(err error) *Failure {
	return NewFailure(KindManifestVersionMissing, "", "cannot obtain API version from chart", err)
}

// UnsupportedAPIVersion reports a chart apiVersion that maps to no helm generation.
func UnsupportedAPIVersion(token string) *Failure {
	return NewFailure(KindUnsupportedAPIVersion, token,
		"cannot obtain helm version from API version: "+token, nil)
}

// UnsupportedRequestedVersion reports a version or major alias with no installed match.
func UnsupportedRequestedVersion(version string) *Failure {
	return NewFailure(KindUnsupportedRequestedVersion, version,
		"version not supported: "+version, nil)
}

// ProcessExecutionFailure reports that command could not be run to completion.
func ProcessExecutionFailure(command, message string, err error) *Failure {
	return NewFailure(KindProcessExecution, command, message, err)
}
