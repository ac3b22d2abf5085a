package validation

// DefaultBinaryPrefix is the conventional name prefix of installed helm binaries.
// A version V is expected on PATH as "<prefix>-vV".
const DefaultBinaryPrefix = "helm"

// Binary returns the executable name for a helm version, e.g. "helm-v3.11.3".
func Binary(prefix, version string) string {
	if prefix == "" {
		prefix = DefaultBinaryPrefix
	}
	return prefix + "-v" + version
}

// TemplateCommand builds the command line that renders the chart at path.
func TemplateCommand(prefix, version, path string) string {
	return Binary(prefix, version) + " template " + path
}

// LintCommand builds the command line that lints the chart at path.
func LintCommand(prefix, version, path string, strict bool) string {
	cmd := Binary(prefix, version) + " lint " + path
	if strict {
		cmd += " --strict"
	}
	return cmd
}
