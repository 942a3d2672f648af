package appenv

import "os"

// Source is any key/value lookup whose values are string-or-absent.
// A non-string value at a key counts as absent; implementations report
// absence as an empty string and never coerce.
type Source interface {
	// Lookup returns the string value for key, or "" when the key is
	// absent or not a string.
	Lookup(key string) string
}

// Map is a Source backed by a plain map. Edge runtimes hand their bound
// variables over in this shape, and tests use it as a stand-in for the
// process environment. Non-string values are treated as absent.
type Map map[string]any

// Lookup implements Source.
func (m Map) Lookup(key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

// environ is a Source backed by the process environment.
type environ struct{}

// Lookup implements Source.
func (environ) Lookup(key string) string {
	return os.Getenv(key)
}

// Environ returns a Source reading from the process environment table.
// Used by the server-process runtimes and tooling entrypoints.
func Environ() Source {
	return environ{}
}
