//go:generate mockgen -destination=./mocks/orchestrator.go -package=mocks . ModelResolver,TransferManager,ManifestStore

package orchestrator

import (
	"context"
	"time"

	"github.com/glorpus-work/modelman/pkg/auth"
	"github.com/glorpus-work/modelman/pkg/download"
	"github.com/glorpus-work/modelman/pkg/hooks"
	"github.com/glorpus-work/modelman/pkg/model"
)

// ModelResolver is the subset of the registry layer used by the orchestrator.
type ModelResolver interface {
	Resolve(ctx context.Context, ref model.Reference, credential auth.Authenticator) (*model.ResolvedArtifact, error)
	Variants(ctx context.Context, ref model.Reference, credential auth.Authenticator) ([]model.Variant, error)
}

// TransferManager is the subset of the download engine used by the orchestrator.
type TransferManager interface {
	Start(ctx context.Context, resolved *model.ResolvedArtifact, credential auth.Authenticator, destDir string) (*download.Handle, error)
	Cancel(ref model.Reference) bool
	Status(ref model.Reference) (model.TaskSnapshot, bool)
	Active() []model.TaskSnapshot
}

// ManifestStore is the subset of the manifest store used by the orchestrator.
// Writes after a successful transfer go through the engine, so only reads and
// removal surface here.
type ManifestStore interface {
	List() []*model.ManifestEntry
	Get(ref model.Reference) *model.ManifestEntry
	Remove(ref model.Reference) error
}

// HookRunner executes lifecycle hook scripts.
type HookRunner interface {
	Execute(hookType hooks.HookType, ctx hooks.HookContext) error
}

// BundleExtractor unpacks archive-packaged artifacts after verification.
type BundleExtractor interface {
	ExtractAll(ctx context.Context, bundlePath, destDir string) error
}

// Event represents a simple progress notification.
type Event struct {
	Phase string // resolving|downloading|installing|removing|done|error
	Ref   string // reference key
	Msg   string
}

// Hooks carries callbacks for progress events.
type Hooks struct {
	OnEvent func(Event)
}

// Options control orchestrator execution.
type Options struct {
	ModelsDir      string        // where artifacts are installed
	MaxRetries     uint          // registry resolve attempts beyond the first
	BackoffInitial time.Duration // first retry delay
	BackoffMax     time.Duration // retry delay ceiling
}

// Retry defaults, applied when the corresponding option is zero.
const (
	DefaultMaxRetries     = 3
	DefaultBackoffInitial = 500 * time.Millisecond
	DefaultBackoffMax     = 10 * time.Second
)

func (o Options) withDefaults() Options {
	if o.MaxRetries == 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.BackoffInitial <= 0 {
		o.BackoffInitial = DefaultBackoffInitial
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = DefaultBackoffMax
	}
	return o
}
