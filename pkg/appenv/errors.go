package appenv

import "strings"

// ValidationError reports every missing mandatory key discovered in one
// extraction pass.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "appenv: missing required configuration: " + strings.Join(e.Missing, ", ")
}
