package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/glorpus-work/modelman/pkg/auth"
	"github.com/glorpus-work/modelman/pkg/errors"
	"github.com/glorpus-work/modelman/pkg/model"
)

// Dispatcher routes references to the backend matching their registry kind.
// The set of kinds is closed; adding a convention means adding a backend here.
type Dispatcher struct {
	hosted *HostedClient
	direct *DirectClient
}

// NewDispatcher creates a resolver covering both registry conventions.
func NewDispatcher(hostedBaseURL string, timeout time.Duration, userAgent string) *Dispatcher {
	return &Dispatcher{
		hosted: NewHostedClient(hostedBaseURL, timeout, userAgent),
		direct: NewDirectClient(timeout, userAgent),
	}
}

// Resolve dispatches to the backend for the reference's registry kind.
func (d *Dispatcher) Resolve(ctx context.Context, ref model.Reference, credential auth.Authenticator) (*model.ResolvedArtifact, error) {
	backend, err := d.backendFor(ref)
	if err != nil {
		return nil, err
	}
	return backend.Resolve(ctx, ref, credential)
}

// Variants dispatches to the backend for the reference's registry kind.
func (d *Dispatcher) Variants(ctx context.Context, ref model.Reference, credential auth.Authenticator) ([]model.Variant, error) {
	backend, err := d.backendFor(ref)
	if err != nil {
		return nil, err
	}
	return backend.Variants(ctx, ref, credential)
}

func (d *Dispatcher) backendFor(ref model.Reference) (Resolver, error) {
	switch ref.Registry {
	case model.RegistryHosted:
		return d.hosted, nil
	case model.RegistryDirectURL:
		return d.direct, nil
	default:
		return nil, fmt.Errorf("unknown registry kind %q: %w", ref.Registry, errors.ErrInvalidReference)
	}
}
