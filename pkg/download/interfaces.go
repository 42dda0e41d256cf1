// Package download implements the resumable transfer engine: one task per
// reference key, range-request resume from sidecar state, cooperative
// cancellation and a coalescing progress feed.
//
//go:generate mockgen -destination=./mocks/download.go -package=mocks . Manager,ManifestWriter
package download

import (
	"context"
	"time"

	"github.com/glorpus-work/modelman/pkg/auth"
	"github.com/glorpus-work/modelman/pkg/model"
)

// Manager is the download engine's caller-facing surface.
type Manager interface {
	// Start begins (or joins) the transfer for the resolved artifact's
	// reference. It is idempotent: a second call while a task for the same
	// key is active returns the existing handle, guaranteeing at most one
	// concurrent transfer per key.
	Start(ctx context.Context, resolved *model.ResolvedArtifact, credential auth.Authenticator, destDir string) (*Handle, error)

	// Cancel requests cooperative cancellation of the active task for ref.
	// Partial state is preserved so a later Start can resume. Returns false
	// when no active task exists.
	Cancel(ref model.Reference) bool

	// Status returns a snapshot of the task for ref, if one is tracked.
	Status(ref model.Reference) (model.TaskSnapshot, bool)

	// Active returns snapshots of all tracked tasks.
	Active() []model.TaskSnapshot
}

// ManifestWriter is the subset of the manifest store the engine needs: it
// records an entry only after the engine has verified the artifact.
type ManifestWriter interface {
	Put(entry *model.ManifestEntry) error
}

// Config tunes the engine. Zero values are replaced with defaults.
type Config struct {
	UserAgent       string
	MaxConcurrent   int           // simultaneous transfers; excess tasks queue in arrival order
	ChunkSize       int           // stream buffer size in bytes
	SidecarInterval time.Duration // minimum spacing between sidecar flushes and progress events
	GracePeriod     time.Duration // how long terminal tasks stay visible to status queries
}

// Engine defaults.
const (
	DefaultMaxConcurrent   = 3
	DefaultChunkSize       = 128 << 10
	DefaultSidecarInterval = 500 * time.Millisecond
	DefaultGracePeriod     = 5 * time.Second
)

func (c Config) withDefaults() Config {
	if c.UserAgent == "" {
		c.UserAgent = "modelman/1.0"
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.SidecarInterval <= 0 {
		c.SidecarInterval = DefaultSidecarInterval
	}
	if c.GracePeriod <= 0 {
		c.GracePeriod = DefaultGracePeriod
	}
	return c
}
