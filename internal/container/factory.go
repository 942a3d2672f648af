package container

import (
	"context"

	"github.com/dmitrymomot/manifold/pkg/appenv"
)

// Factory builds the per-request Container from validated config. The
// runtime bridges call it once per request; tests substitute their own.
type Factory func(ctx context.Context, cfg appenv.Config) (*Container, error)

// DefaultFactory returns the production factory with opts applied to
// every build.
func DefaultFactory(opts ...Option) Factory {
	return func(ctx context.Context, cfg appenv.Config) (*Container, error) {
		return New(ctx, cfg, opts...)
	}
}
