// Package registry resolves model references against remote registries.
//
//go:generate mockgen -destination=./mocks/registry.go -package=mocks . Resolver
package registry

import (
	"context"

	"github.com/glorpus-work/modelman/pkg/auth"
	"github.com/glorpus-work/modelman/pkg/model"
)

// Resolver turns a reference into a concrete download plan. Implementations
// never retry internally; retry policy belongs to the caller.
type Resolver interface {
	// Resolve returns the download URLs, size and expected checksum for ref.
	// The credential may be nil for anonymous access.
	Resolve(ctx context.Context, ref model.Reference, credential auth.Authenticator) (*model.ResolvedArtifact, error)

	// Variants enumerates the quantization variants available for ref without
	// starting a transfer. Only meaningful for hosted references.
	Variants(ctx context.Context, ref model.Reference, credential auth.Authenticator) ([]model.Variant, error)
}
