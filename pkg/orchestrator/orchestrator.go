// Package orchestrator ties the registry, download engine, manifest store and
// lifecycle hooks together. It is the surface the CLI talks to.
package orchestrator

import (
	"context"
	stderrors "errors"
	"os"
	"sync"

	"github.com/cenkalti/backoff/v4"

	"github.com/glorpus-work/modelman/pkg/archive"
	"github.com/glorpus-work/modelman/pkg/auth"
	"github.com/glorpus-work/modelman/pkg/download"
	"github.com/glorpus-work/modelman/pkg/errors"
	"github.com/glorpus-work/modelman/pkg/hooks"
	"github.com/glorpus-work/modelman/pkg/model"
)

// Orchestrator drives the model lifecycle: resolve, download, install,
// enumerate and delete.
type Orchestrator struct {
	Registry   ModelResolver
	DL         TransferManager
	Manifest   ManifestStore
	HookRunner HookRunner      // optional
	Extractor  BundleExtractor // optional
	Hooks      Hooks
	Opts       Options

	mu       sync.Mutex
	watching map[string]struct{}
}

// New constructs an Orchestrator from existing components. HookRunner and
// Extractor may be nil; hooks and bundle extraction are then skipped.
func New(registry ModelResolver, dl TransferManager, manifest ManifestStore, hookRunner HookRunner, extractor BundleExtractor, eventHooks Hooks, opts Options) *Orchestrator {
	return &Orchestrator{
		Registry:   registry,
		DL:         dl,
		Manifest:   manifest,
		HookRunner: hookRunner,
		Extractor:  extractor,
		Hooks:      eventHooks,
		Opts:       opts.withDefaults(),
		watching:   make(map[string]struct{}),
	}
}

func emit(h Hooks, e Event) {
	if h.OnEvent != nil {
		h.OnEvent(e)
	}
}

// RequestDownload resolves rawRef against its registry and starts (or joins)
// the download task for it. Resolution is retried with exponential backoff
// when the registry is unavailable; all other resolve failures are returned
// immediately. The returned handle reports progress and completion.
func (o *Orchestrator) RequestDownload(ctx context.Context, rawRef string, credential auth.Authenticator) (*download.Handle, error) {
	if o.Registry == nil || o.DL == nil {
		return nil, errors.Wrap(errors.ErrConfigValidation, "orchestrator is missing registry or download manager")
	}

	ref, err := model.ParseReference(rawRef)
	if err != nil {
		return nil, err
	}

	emit(o.Hooks, Event{Phase: "resolving", Ref: ref.Key()})
	resolved, err := o.resolveWithRetry(ctx, ref, credential)
	if err != nil {
		emit(o.Hooks, Event{Phase: "error", Ref: ref.Key(), Msg: err.Error()})
		return nil, err
	}

	emit(o.Hooks, Event{Phase: "downloading", Ref: ref.Key(), Msg: resolved.Filename})
	handle, err := o.DL.Start(ctx, resolved, credential, o.Opts.ModelsDir)
	if err != nil {
		emit(o.Hooks, Event{Phase: "error", Ref: ref.Key(), Msg: err.Error()})
		return nil, err
	}

	o.watch(handle)
	return handle, nil
}

// resolveWithRetry applies the bounded backoff policy around registry
// resolution. Only ErrRegistryUnavailable is retried.
func (o *Orchestrator) resolveWithRetry(ctx context.Context, ref model.Reference, credential auth.Authenticator) (*model.ResolvedArtifact, error) {
	var resolved *model.ResolvedArtifact
	op := func() error {
		var err error
		resolved, err = o.Registry.Resolve(ctx, ref, credential)
		if err == nil {
			return nil
		}
		if stderrors.Is(err, errors.ErrRegistryUnavailable) {
			return err
		}
		return backoff.Permanent(err)
	}

	if err := backoff.Retry(op, o.retryPolicy(ctx)); err != nil {
		return nil, err
	}
	return resolved, nil
}

func (o *Orchestrator) retryPolicy(ctx context.Context) backoff.BackOffContext {
	opts := o.Opts.withDefaults()
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = opts.BackoffInitial
	bo.MaxInterval = opts.BackoffMax
	return backoff.WithContext(backoff.WithMaxRetries(bo, uint64(opts.MaxRetries)), ctx)
}

// watch runs the post-install steps once the task for handle terminates.
// Duplicate handles for the same key are watched only once.
func (o *Orchestrator) watch(handle *download.Handle) {
	key := handle.Reference().Key()

	o.mu.Lock()
	if o.watching == nil {
		o.watching = make(map[string]struct{})
	}
	if _, dup := o.watching[key]; dup {
		o.mu.Unlock()
		return
	}
	o.watching[key] = struct{}{}
	o.mu.Unlock()

	go func() {
		defer func() {
			o.mu.Lock()
			delete(o.watching, key)
			o.mu.Unlock()
		}()

		<-handle.Done()
		snap := handle.Snapshot()
		if snap.State != model.TaskCompleted {
			if snap.Error != "" {
				emit(o.Hooks, Event{Phase: "error", Ref: key, Msg: snap.Error})
			}
			return
		}

		o.finishInstall(snap.Reference)
	}()
}

// finishInstall unpacks bundle artifacts and runs the post-install hook for a
// verified, recorded artifact. Failures here do not undo the install; they
// are reported through the event feed.
func (o *Orchestrator) finishInstall(ref model.Reference) {
	key := ref.Key()
	entry := o.entry(ref)
	if entry == nil {
		emit(o.Hooks, Event{Phase: "error", Ref: key, Msg: "completed task has no manifest entry"})
		return
	}

	emit(o.Hooks, Event{Phase: "installing", Ref: key, Msg: entry.LocalPath})

	if o.Extractor != nil && archive.IsBundle(entry.LocalPath) {
		if err := o.Extractor.ExtractAll(context.Background(), entry.LocalPath, archive.ExtractDir(entry.LocalPath)); err != nil {
			emit(o.Hooks, Event{Phase: "error", Ref: key, Msg: "bundle extraction failed: " + err.Error()})
			return
		}
	}

	if o.HookRunner != nil {
		hctx := hooks.HookContext{
			ModelReference: key,
			VariantLabel:   entry.VariantLabel,
			ModelPath:      entry.LocalPath,
			ModelsDir:      o.Opts.ModelsDir,
		}
		if err := o.HookRunner.Execute(hooks.PostInstall, hctx); err != nil {
			emit(o.Hooks, Event{Phase: "error", Ref: key, Msg: err.Error()})
			return
		}
	}

	emit(o.Hooks, Event{Phase: "done", Ref: key})
}

func (o *Orchestrator) entry(ref model.Reference) *model.ManifestEntry {
	if o.Manifest == nil {
		return nil
	}
	return o.Manifest.Get(ref)
}

// Cancel requests cooperative cancellation of the active task for rawRef.
// Partial download state is preserved for a later resume. The boolean is
// false when no active task exists.
func (o *Orchestrator) Cancel(rawRef string) (bool, error) {
	ref, err := model.ParseReference(rawRef)
	if err != nil {
		return false, err
	}
	return o.DL.Cancel(ref), nil
}

// Status returns the tracked task snapshot for rawRef, if any.
func (o *Orchestrator) Status(rawRef string) (model.TaskSnapshot, bool, error) {
	ref, err := model.ParseReference(rawRef)
	if err != nil {
		return model.TaskSnapshot{}, false, err
	}
	snap, ok := o.DL.Status(ref)
	return snap, ok, nil
}

// Active returns snapshots of all tracked download tasks.
func (o *Orchestrator) Active() []model.TaskSnapshot {
	return o.DL.Active()
}

// ListInstalled returns the manifest entries of all installed models.
func (o *Orchestrator) ListInstalled() []*model.ManifestEntry {
	if o.Manifest == nil {
		return nil
	}
	return o.Manifest.List()
}

// ListVariants enumerates the quantization variants available for rawRef
// without starting a transfer. The same retry policy as resolution applies.
func (o *Orchestrator) ListVariants(ctx context.Context, rawRef string, credential auth.Authenticator) ([]model.Variant, error) {
	if o.Registry == nil {
		return nil, errors.Wrap(errors.ErrConfigValidation, "orchestrator is missing registry")
	}

	ref, err := model.ParseReference(rawRef)
	if err != nil {
		return nil, err
	}

	var variants []model.Variant
	op := func() error {
		var err error
		variants, err = o.Registry.Variants(ctx, ref, credential)
		if err == nil {
			return nil
		}
		if stderrors.Is(err, errors.ErrRegistryUnavailable) {
			return err
		}
		return backoff.Permanent(err)
	}

	if err := backoff.Retry(op, o.retryPolicy(ctx)); err != nil {
		return nil, err
	}
	return variants, nil
}

// Delete removes the installed model rawRef: its manifest entry, artifact
// file and any extracted bundle directory. It fails with
// ErrDownloadInProgress while a task for the reference is still active, and
// with ErrNotInstalled when no manifest entry exists. The pre-remove hook
// runs before anything is removed; a hook failure aborts the delete.
func (o *Orchestrator) Delete(ctx context.Context, rawRef string) error {
	ref, err := model.ParseReference(rawRef)
	if err != nil {
		return err
	}
	key := ref.Key()

	if o.DL != nil {
		if snap, ok := o.DL.Status(ref); ok && !snap.State.Terminal() {
			return errors.Wrapf(errors.ErrDownloadInProgress, "cannot delete %s", key)
		}
	}

	entry := o.entry(ref)
	if entry == nil {
		return errors.Wrapf(errors.ErrNotInstalled, "%s", key)
	}

	emit(o.Hooks, Event{Phase: "removing", Ref: key, Msg: entry.LocalPath})

	if o.HookRunner != nil {
		hctx := hooks.HookContext{
			ModelReference: key,
			VariantLabel:   entry.VariantLabel,
			ModelPath:      entry.LocalPath,
			ModelsDir:      o.Opts.ModelsDir,
		}
		if err := o.HookRunner.Execute(hooks.PreRemove, hctx); err != nil {
			return err
		}
	}

	if archive.IsBundle(entry.LocalPath) {
		if err := os.RemoveAll(archive.ExtractDir(entry.LocalPath)); err != nil {
			return errors.Wrapf(err, "failed to remove extracted bundle for %s", key)
		}
	}
	if err := os.Remove(entry.LocalPath); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to remove artifact for %s", key)
	}

	if err := o.Manifest.Remove(ref); err != nil {
		return err
	}

	emit(o.Hooks, Event{Phase: "done", Ref: key})
	return nil
}
