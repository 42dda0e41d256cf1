package download

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/glorpus-work/modelman/pkg/auth"
	pkgerrors "github.com/glorpus-work/modelman/pkg/errors"
	"github.com/glorpus-work/modelman/pkg/fsutil"
	"github.com/glorpus-work/modelman/pkg/model"
	"github.com/glorpus-work/modelman/pkg/verify"
)

// ManagerImpl is the HTTP download engine. It owns the per-key task table;
// all table reads and writes go through its mutex so concurrent Start calls
// for one key cannot race into two transfers.
type ManagerImpl struct {
	client   *http.Client
	cfg      Config
	manifest ManifestWriter

	mu    sync.Mutex
	tasks map[string]*task
	sem   chan struct{}
}

// NewManager creates a download engine. The manifest writer may be nil, in
// which case completed downloads are not recorded (useful in tests).
func NewManager(cfg Config, manifest ManifestWriter) *ManagerImpl {
	cfg = cfg.withDefaults()
	return &ManagerImpl{
		// No client-level timeout: multi-gigabyte transfers outlive any fixed
		// deadline. Cancellation rides on the request context instead.
		client:   &http.Client{},
		cfg:      cfg,
		manifest: manifest,
		tasks:    make(map[string]*task),
		sem:      make(chan struct{}, cfg.MaxConcurrent),
	}
}

// task is the mutable per-reference download state. Owned exclusively by the
// engine; callers see only snapshots.
type task struct {
	handle *Handle

	mu   sync.Mutex
	snap model.TaskSnapshot
	rate *rateTracker

	cancelRequested atomic.Bool
	cancel          context.CancelFunc
	done            chan struct{}
	events          chan model.Progress
	eventsClosed    bool
}

// Handle is the caller's view of a download task.
type Handle struct{ t *task }

// Reference returns the reference this task downloads.
func (h *Handle) Reference() model.Reference { return h.t.snapshot().Reference }

// Snapshot returns an immutable copy of the task state. It never blocks on
// the transfer itself.
func (h *Handle) Snapshot() model.TaskSnapshot { return h.t.snapshot() }

// Events returns the task's progress feed. Records are coalesced to the
// latest value; the channel is closed after a terminal record is delivered.
func (h *Handle) Events() <-chan model.Progress { return h.t.events }

// Done is closed when the task reaches a terminal state.
func (h *Handle) Done() <-chan struct{} { return h.t.done }

// Wait blocks until the task terminates or ctx expires, returning the final
// snapshot.
func (h *Handle) Wait(ctx context.Context) (model.TaskSnapshot, error) {
	select {
	case <-h.t.done:
		return h.t.snapshot(), nil
	case <-ctx.Done():
		return h.t.snapshot(), ctx.Err()
	}
}

func newTask(ref model.Reference, total int64) *task {
	now := time.Now()
	t := &task{
		snap: model.TaskSnapshot{
			Reference:    ref,
			State:        model.TaskQueued,
			BytesTotal:   total,
			StartedAt:    now,
			LastUpdateAt: now,
		},
		rate:   newRateTracker(now),
		done:   make(chan struct{}),
		events: make(chan model.Progress, 1),
	}
	t.handle = &Handle{t: t}
	return t
}

func (t *task) snapshot() model.TaskSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}

func (t *task) setState(s model.TaskState) {
	t.mu.Lock()
	t.snap.State = s
	t.snap.LastUpdateAt = time.Now()
	t.emitLocked()
	t.mu.Unlock()
}

// addBytes adjusts the downloaded byte count without touching the rate, used
// for bytes credited from a resumed partial file.
func (t *task) addBytes(n int64) {
	t.mu.Lock()
	t.snap.BytesDownloaded += n
	t.snap.LastUpdateAt = time.Now()
	t.mu.Unlock()
}

// observe folds a freshly transferred chunk into the counters and the rate.
func (t *task) observe(n int64) {
	now := time.Now()
	t.mu.Lock()
	t.snap.BytesDownloaded += n
	t.snap.LastUpdateAt = now
	t.rate.observe(n, now)
	t.mu.Unlock()
}

func (t *task) maybeSetTotal(total int64) {
	t.mu.Lock()
	if t.snap.BytesTotal == 0 && total > 0 {
		t.snap.BytesTotal = total
	}
	t.mu.Unlock()
}

// emit publishes the current progress, coalescing to latest-wins so a slow
// consumer never blocks the transfer.
func (t *task) emit() {
	t.mu.Lock()
	t.emitLocked()
	t.mu.Unlock()
}

func (t *task) emitLocked() {
	if t.eventsClosed {
		return
	}
	p := t.progressLocked()
	select {
	case t.events <- p:
	default:
		select {
		case <-t.events:
		default:
		}
		select {
		case t.events <- p:
		default:
		}
	}
}

func (t *task) progressLocked() model.Progress {
	p := model.Progress{
		Reference:       t.snap.Reference,
		State:           t.snap.State,
		BytesDownloaded: t.snap.BytesDownloaded,
		BytesTotal:      t.snap.BytesTotal,
		SpeedBPS:        t.rate.speed(),
		Percent:         -1,
		ETASeconds:      -1,
		Error:           t.snap.Error,
	}
	if t.snap.BytesTotal > 0 {
		p.Percent = float64(t.snap.BytesDownloaded) / float64(t.snap.BytesTotal) * 100
		p.ETASeconds = t.rate.eta(t.snap.BytesTotal - t.snap.BytesDownloaded)
	}
	return p
}

// finish records the terminal state, delivers the final progress record and
// closes the feed.
func (t *task) finish(state model.TaskState, err error) {
	t.mu.Lock()
	t.snap.State = state
	t.snap.LastUpdateAt = time.Now()
	if err != nil {
		t.snap.Error = err.Error()
	}
	t.emitLocked()
	t.eventsClosed = true
	close(t.events)
	t.mu.Unlock()
}

// Start implements Manager.
func (m *ManagerImpl) Start(ctx context.Context, resolved *model.ResolvedArtifact, credential auth.Authenticator, destDir string) (*Handle, error) {
	if resolved == nil || len(resolved.DownloadURLs) == 0 {
		return nil, fmt.Errorf("resolved artifact has no download URLs: %w", pkgerrors.ErrDownloadFailed)
	}
	if destDir == "" || !filepath.IsAbs(destDir) {
		return nil, fmt.Errorf("destination dir must be absolute: %s: %w", destDir, pkgerrors.ErrInvalidPath)
	}
	if err := fsutil.EnsureDir(destDir); err != nil {
		return nil, pkgerrors.Wrap(err, "could not create destination dir")
	}

	key := resolved.Reference.Key()

	m.mu.Lock()
	if existing, ok := m.tasks[key]; ok && !existing.snapshot().State.Terminal() {
		m.mu.Unlock()
		return existing.handle, nil
	}
	t := newTask(resolved.Reference, resolved.DeclaredSize)
	// The transfer must outlive the caller's request context; only Cancel
	// stops it.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	t.cancel = cancel
	m.tasks[key] = t
	m.mu.Unlock()

	go m.run(runCtx, t, resolved, credential, destDir)
	return t.handle, nil
}

// Cancel implements Manager.
func (m *ManagerImpl) Cancel(ref model.Reference) bool {
	m.mu.Lock()
	t, ok := m.tasks[ref.Key()]
	m.mu.Unlock()
	if !ok || t.snapshot().State.Terminal() {
		return false
	}
	t.cancelRequested.Store(true)
	t.cancel()
	return true
}

// Status implements Manager.
func (m *ManagerImpl) Status(ref model.Reference) (model.TaskSnapshot, bool) {
	m.mu.Lock()
	t, ok := m.tasks[ref.Key()]
	m.mu.Unlock()
	if !ok {
		return model.TaskSnapshot{}, false
	}
	return t.snapshot(), true
}

// Active implements Manager.
func (m *ManagerImpl) Active() []model.TaskSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.TaskSnapshot, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, t.snapshot())
	}
	return out
}

func (m *ManagerImpl) run(ctx context.Context, t *task, resolved *model.ResolvedArtifact, credential auth.Authenticator, destDir string) {
	err := m.execute(ctx, t, resolved, credential, destDir)
	switch {
	case err == nil:
		t.finish(model.TaskCompleted, nil)
	case isCancellation(t, err):
		t.finish(model.TaskCancelled, fmt.Errorf("%s: %w", resolved.Reference.Key(), pkgerrors.ErrCancelled))
	default:
		t.finish(model.TaskFailed, err)
	}
	close(t.done)
	m.scheduleRemoval(t)
}

func isCancellation(t *task, err error) bool {
	if t.cancelRequested.Load() {
		return true
	}
	return stderrors.Is(err, pkgerrors.ErrCancelled)
}

// scheduleRemoval drops the terminal task from the table after the grace
// window, so a status query racing a fast-completing download still sees it.
func (m *ManagerImpl) scheduleRemoval(t *task) {
	key := t.snapshot().Reference.Key()
	time.AfterFunc(m.cfg.GracePeriod, func() {
		m.mu.Lock()
		if current, ok := m.tasks[key]; ok && current == t {
			delete(m.tasks, key)
		}
		m.mu.Unlock()
	})
}

func (m *ManagerImpl) execute(ctx context.Context, t *task, resolved *model.ResolvedArtifact, credential auth.Authenticator, destDir string) error {
	// Wait for a transfer slot; excess requests queue in arrival order.
	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", resolved.Reference.Key(), pkgerrors.ErrCancelled)
	}
	defer func() { <-m.sem }()

	t.setState(model.TaskDownloading)

	paths := shardPaths(destDir, resolved)
	for i, u := range resolved.DownloadURLs {
		if err := m.downloadFile(ctx, t, u, paths[i], credential, resolved); err != nil {
			return err
		}
	}

	t.setState(model.TaskVerifying)

	// Verification is always a streaming re-read of the whole file. A resume
	// must not rely on a digest accumulated before the interruption.
	primary := paths[0]
	if err := verify.File(primary, resolved.ExpectedChecksum, resolved.ChecksumAlgorithm); err != nil {
		for _, p := range paths {
			_ = os.Remove(p)
			removeSidecar(p)
		}
		return err
	}

	if m.manifest != nil {
		entry, err := buildEntry(resolved, paths)
		if err != nil {
			return err
		}
		if err := m.manifest.Put(entry); err != nil {
			return pkgerrors.Wrap(err, "recording manifest entry")
		}
	}

	for _, p := range paths {
		removeSidecar(p)
	}
	return nil
}

// shardPaths maps every download URL of the artifact to a destination path.
// The first URL is the primary artifact file; extra shards keep their remote
// basenames.
func shardPaths(destDir string, resolved *model.ResolvedArtifact) []string {
	paths := make([]string, len(resolved.DownloadURLs))
	paths[0] = filepath.Join(destDir, resolved.Filename)
	for i := 1; i < len(resolved.DownloadURLs); i++ {
		base := filepath.Base(resolved.DownloadURLs[i].Path)
		if base == "." || base == "/" || base == resolved.Filename {
			base = fmt.Sprintf("%s.part%d", resolved.Filename, i)
		}
		paths[i] = filepath.Join(destDir, base)
	}
	return paths
}

func buildEntry(resolved *model.ResolvedArtifact, paths []string) (*model.ManifestEntry, error) {
	var total int64
	for _, p := range paths {
		st, err := os.Stat(p)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "stat downloaded artifact")
		}
		total += st.Size()
	}
	return &model.ManifestEntry{
		Reference:         resolved.Reference,
		LocalPath:         paths[0],
		SizeBytes:         total,
		Checksum:          resolved.ExpectedChecksum,
		ChecksumAlgorithm: resolved.ChecksumAlgorithm,
		InstalledAt:       time.Now(),
		SourceRegistry:    resolved.Reference.Registry,
		VariantLabel:      resolved.Reference.Quantization,
	}, nil
}

// downloadFile transfers one URL to destPath, resuming from sidecar state
// when it is trustworthy.
func (m *ManagerImpl) downloadFile(ctx context.Context, t *task, u *url.URL, destPath string, credential auth.Authenticator, resolved *model.ResolvedArtifact) error {
	refKey := resolved.Reference.Key()
	singleShard := len(resolved.DownloadURLs) == 1

	offset := resumeOffset(destPath, u, refKey)
	if offset == 0 {
		// Any leftover bytes without a matching sidecar are untrusted.
		_ = os.Remove(destPath)
		removeSidecar(destPath)
	}

	expected := int64(0)
	if singleShard {
		expected = resolved.DeclaredSize
	}
	if expected > 0 && offset == expected {
		t.addBytes(offset)
		return nil
	}
	if offset > 0 {
		t.addBytes(offset)
	}

	f, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, fsutil.FileModeSecure)
	if err != nil {
		return pkgerrors.Wrap(err, "could not open destination file")
	}
	defer func() { _ = f.Close() }()

	resp, err := m.request(ctx, u, credential, offset)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		if offset > 0 {
			// Server ignored the range header; appending would duplicate
			// bytes, so restart from zero.
			if err := f.Truncate(0); err != nil {
				return pkgerrors.Wrap(err, "could not truncate partial file")
			}
			t.addBytes(-offset)
			offset = 0
		}
	case http.StatusPartialContent:
		// resume honored
	case http.StatusRequestedRangeNotSatisfiable:
		// Stale partial longer than the remote file: discard and restart.
		_ = f.Truncate(0)
		t.addBytes(-offset)
		_ = resp.Body.Close()
		removeSidecar(destPath)
		resp, err = m.request(ctx, u, credential, 0)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status code %d after range rejection: %w", resp.StatusCode, pkgerrors.ErrDownloadFailed)
		}
		offset = 0
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%s: %w", refKey, pkgerrors.ErrAuthRequired)
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", refKey, pkgerrors.ErrNotFound)
	default:
		if resp.StatusCode >= 500 {
			return fmt.Errorf("download server returned status %d: %w", resp.StatusCode, pkgerrors.ErrRegistryUnavailable)
		}
		return fmt.Errorf("unexpected status code: %d: %w", resp.StatusCode, pkgerrors.ErrDownloadFailed)
	}

	if singleShard && resp.ContentLength > 0 {
		t.maybeSetTotal(offset + resp.ContentLength)
	}

	sc := sidecar{
		Reference:     refKey,
		BytesWritten:  offset,
		ExpectedTotal: expected,
		URL:           u.String(),
		StartedAt:     time.Now(),
	}
	if err := saveSidecar(destPath, sc); err != nil {
		return err
	}

	return m.stream(ctx, t, resp.Body, f, destPath, &sc)
}

// stream copies the response body to the file chunk by chunk. Cancellation is
// checked between chunks; sidecar flushes and progress events are throttled
// to the configured interval.
func (m *ManagerImpl) stream(ctx context.Context, t *task, body io.Reader, f *os.File, destPath string, sc *sidecar) error {
	buf := make([]byte, m.cfg.ChunkSize)
	written := sc.BytesWritten
	lastFlush := time.Now()

	persist := func() {
		_ = f.Sync()
		sc.BytesWritten = written
		_ = saveSidecar(destPath, *sc)
	}

	for {
		if t.cancelRequested.Load() {
			persist()
			return fmt.Errorf("%s: %w", sc.Reference, pkgerrors.ErrCancelled)
		}

		n, readErr := body.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				persist()
				if fsutil.IsDiskFull(werr) {
					return fmt.Errorf("writing %s: %w", destPath, pkgerrors.ErrInsufficientDiskSpace)
				}
				return pkgerrors.Wrap(werr, "could not write chunk")
			}
			written += int64(n)
			t.observe(int64(n))

			if time.Since(lastFlush) >= m.cfg.SidecarInterval {
				sc.BytesWritten = written
				_ = saveSidecar(destPath, *sc)
				t.emit()
				lastFlush = time.Now()
			}
		}

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			persist()
			if t.cancelRequested.Load() || ctx.Err() != nil {
				return fmt.Errorf("%s: %w", sc.Reference, pkgerrors.ErrCancelled)
			}
			return fmt.Errorf("stream interrupted: %v: %w", readErr, pkgerrors.ErrDownloadFailed)
		}
	}

	if err := f.Sync(); err != nil {
		return pkgerrors.Wrap(err, "could not sync file")
	}
	sc.BytesWritten = written
	if err := saveSidecar(destPath, *sc); err != nil {
		return err
	}
	t.emit()
	return nil
}

func (m *ManagerImpl) request(ctx context.Context, u *url.URL, credential auth.Authenticator, offset int64) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", m.cfg.UserAgent)
	if credential != nil {
		if err := credential.Apply(req); err != nil {
			return nil, pkgerrors.Wrap(err, "failed to apply credential")
		}
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}
	resp, err := m.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("request aborted: %w", pkgerrors.ErrCancelled)
		}
		return nil, fmt.Errorf("download request failed: %v: %w", err, pkgerrors.ErrDownloadFailed)
	}
	return resp, nil
}

// resumeOffset returns the byte offset a transfer may resume from, or zero
// when the sidecar is missing, belongs to a different URL or reference, or
// disagrees with the partial file's length.
func resumeOffset(destPath string, u *url.URL, refKey string) int64 {
	sc, ok := loadSidecar(destPath)
	if !ok {
		return 0
	}
	if sc.URL != u.String() || sc.Reference != refKey {
		return 0
	}
	st, err := os.Stat(destPath)
	if err != nil || st.Size() != sc.BytesWritten {
		return 0
	}
	return sc.BytesWritten
}
