// Package appenv extracts and validates application configuration from
// whatever key/value source the hosting runtime provides.
//
// The same extraction logic serves all runtimes: server processes pass the
// process environment, edge invocations pass their bound variable map, and
// tests pass a plain map. Extraction is pure: same source in, same config
// out, no logging, no I/O.
//
// Usage:
//
//	cfg, err := appenv.Extract(appenv.Environ())
//	if err != nil {
//	    var verr *appenv.ValidationError
//	    if errors.As(err, &verr) {
//	        log.Fatalf("missing config: %v", verr.Missing)
//	    }
//	}
package appenv
