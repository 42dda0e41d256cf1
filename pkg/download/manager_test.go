package download

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/modelman/pkg/errors"
	"github.com/glorpus-work/modelman/pkg/model"
)

// fakeManifest captures Put calls so tests can assert when entries are (not)
// recorded.
type fakeManifest struct {
	mu      sync.Mutex
	entries []*model.ManifestEntry
	err     error
}

func (f *fakeManifest) Put(entry *model.ManifestEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeManifest) all() []*model.ManifestEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*model.ManifestEntry(nil), f.entries...)
}

func testConfig() Config {
	return Config{
		UserAgent:       "modelman-test",
		MaxConcurrent:   2,
		ChunkSize:       1024,
		SidecarInterval: time.Millisecond,
		GracePeriod:     time.Minute,
	}
}

func testContent(n int) []byte {
	content := make([]byte, n)
	for i := range content {
		content[i] = byte(i % 251)
	}
	return content
}

func digestOf(content []byte) string {
	d := sha256.Sum256(content)
	return hex.EncodeToString(d[:])
}

// rangeServer serves content with full range-request support and records the
// Range headers it saw.
func rangeServer(t *testing.T, content []byte) (*httptest.Server, *[]string, *int32) {
	t.Helper()
	var ranges []string
	var mu sync.Mutex
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		mu.Lock()
		ranges = append(ranges, r.Header.Get("Range"))
		mu.Unlock()
		http.ServeContent(w, r, "model.gguf", time.Unix(0, 0), bytes.NewReader(content))
	}))
	t.Cleanup(server.Close)
	return server, &ranges, &hits
}

func resolvedFor(t *testing.T, rawURL string, content []byte, withChecksum bool) *model.ResolvedArtifact {
	t.Helper()
	ref, err := model.ParseReference(rawURL)
	require.NoError(t, err)
	u, err := url.Parse(rawURL)
	require.NoError(t, err)

	resolved := &model.ResolvedArtifact{
		Reference:         ref,
		DownloadURLs:      []*url.URL{u},
		DeclaredSize:      int64(len(content)),
		ChecksumAlgorithm: model.ChecksumNone,
		Filename:          "model.gguf",
	}
	if withChecksum {
		resolved.ExpectedChecksum = digestOf(content)
		resolved.ChecksumAlgorithm = model.ChecksumSHA256
	}
	return resolved
}

func waitTerminal(t *testing.T, h *Handle) model.TaskSnapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	snap, err := h.Wait(ctx)
	require.NoError(t, err)
	return snap
}

func TestStart_FullDownload(t *testing.T) {
	content := testContent(10 * 1024)
	server, _, _ := rangeServer(t, content)

	manifest := &fakeManifest{}
	m := NewManager(testConfig(), manifest)
	dir := t.TempDir()

	h, err := m.Start(context.Background(), resolvedFor(t, server.URL+"/model.gguf", content, true), nil, dir)
	require.NoError(t, err)

	snap := waitTerminal(t, h)
	assert.Equal(t, model.TaskCompleted, snap.State)
	assert.Equal(t, int64(len(content)), snap.BytesDownloaded)

	got, err := os.ReadFile(filepath.Join(dir, "model.gguf"))
	require.NoError(t, err)
	assert.Equal(t, content, got)

	// Success removes the sidecar and records exactly one manifest entry.
	_, err = os.Stat(filepath.Join(dir, "model.gguf"+sidecarSuffix))
	assert.True(t, os.IsNotExist(err))
	entries := manifest.all()
	require.Len(t, entries, 1)
	assert.Equal(t, digestOf(content), entries[0].Checksum)
	assert.Equal(t, int64(len(content)), entries[0].SizeBytes)
}

func TestStart_ResumeFromPartial(t *testing.T) {
	content := testContent(20 * 1024)
	server, ranges, _ := rangeServer(t, content)
	rawURL := server.URL + "/model.gguf"

	dir := t.TempDir()
	dest := filepath.Join(dir, "model.gguf")

	// Simulate a crash at an arbitrary offset: partial file plus sidecar.
	offset := int64(7 * 1024)
	require.NoError(t, os.WriteFile(dest, content[:offset], 0o640))
	ref, err := model.ParseReference(rawURL)
	require.NoError(t, err)
	require.NoError(t, saveSidecar(dest, sidecar{
		Reference:    ref.Key(),
		BytesWritten: offset,
		URL:          rawURL,
		StartedAt:    time.Now(),
	}))

	manifest := &fakeManifest{}
	m := NewManager(testConfig(), manifest)
	h, err := m.Start(context.Background(), resolvedFor(t, rawURL, content, true), nil, dir)
	require.NoError(t, err)

	snap := waitTerminal(t, h)
	require.Equal(t, model.TaskCompleted, snap.State, "error: %s", snap.Error)

	// The request resumed rather than restarting.
	require.NotEmpty(t, *ranges)
	assert.Equal(t, "bytes=7168-", (*ranges)[0])

	// Resumed file is byte-identical with an uninterrupted download.
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, digestOf(content), digestOf(got))
	require.Len(t, manifest.all(), 1)
}

func TestStart_StalePartialDiscarded(t *testing.T) {
	content := testContent(8 * 1024)
	server, ranges, _ := rangeServer(t, content)
	rawURL := server.URL + "/model.gguf"

	dir := t.TempDir()
	dest := filepath.Join(dir, "model.gguf")

	// Partial bytes with a sidecar pointing at a different URL: untrusted.
	require.NoError(t, os.WriteFile(dest, []byte("stale junk"), 0o640))
	ref, err := model.ParseReference(rawURL)
	require.NoError(t, err)
	require.NoError(t, saveSidecar(dest, sidecar{
		Reference:    ref.Key(),
		BytesWritten: 10,
		URL:          "https://other.example.com/model.gguf",
		StartedAt:    time.Now(),
	}))

	m := NewManager(testConfig(), &fakeManifest{})
	h, err := m.Start(context.Background(), resolvedFor(t, rawURL, content, true), nil, dir)
	require.NoError(t, err)

	snap := waitTerminal(t, h)
	require.Equal(t, model.TaskCompleted, snap.State, "error: %s", snap.Error)
	assert.Empty(t, (*ranges)[0], "a distrusted partial must restart from zero")

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestStart_RangeIgnoredFallsBackToRestart(t *testing.T) {
	content := testContent(6 * 1024)
	// This server ignores Range headers and always sends the whole body.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(content)
	}))
	defer server.Close()
	rawURL := server.URL + "/model.gguf"

	dir := t.TempDir()
	dest := filepath.Join(dir, "model.gguf")
	offset := int64(2048)
	require.NoError(t, os.WriteFile(dest, content[:offset], 0o640))
	ref, err := model.ParseReference(rawURL)
	require.NoError(t, err)
	require.NoError(t, saveSidecar(dest, sidecar{Reference: ref.Key(), BytesWritten: offset, URL: rawURL, StartedAt: time.Now()}))

	m := NewManager(testConfig(), &fakeManifest{})
	h, err := m.Start(context.Background(), resolvedFor(t, rawURL, content, true), nil, dir)
	require.NoError(t, err)

	snap := waitTerminal(t, h)
	require.Equal(t, model.TaskCompleted, snap.State, "error: %s", snap.Error)

	// No silently appended duplicate bytes.
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestStart_ChecksumMismatchCleansUp(t *testing.T) {
	content := testContent(4 * 1024)
	server, _, _ := rangeServer(t, content)

	resolved := resolvedFor(t, server.URL+"/model.gguf", content, true)
	resolved.ExpectedChecksum = digestOf([]byte("different bytes entirely"))

	manifest := &fakeManifest{}
	m := NewManager(testConfig(), manifest)
	dir := t.TempDir()

	h, err := m.Start(context.Background(), resolved, nil, dir)
	require.NoError(t, err)

	snap := waitTerminal(t, h)
	assert.Equal(t, model.TaskFailed, snap.State)
	assert.Contains(t, snap.Error, "checksum mismatch")

	// Poisoned artifact and sidecar are removed, nothing recorded.
	_, err = os.Stat(filepath.Join(dir, "model.gguf"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "model.gguf"+sidecarSuffix))
	assert.True(t, os.IsNotExist(err))
	assert.Empty(t, manifest.all())
}

// slowServer trickles the content so tests can act mid-transfer.
func slowServer(t *testing.T, content []byte, chunk int, delay time.Duration) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		require.True(t, ok)
		w.Header().Set("Content-Length", "")
		for i := 0; i < len(content); i += chunk {
			end := i + chunk
			if end > len(content) {
				end = len(content)
			}
			if _, err := w.Write(content[i:end]); err != nil {
				return
			}
			flusher.Flush()
			select {
			case <-r.Context().Done():
				return
			case <-time.After(delay):
			}
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestStart_Deduplicates(t *testing.T) {
	content := testContent(16 * 1024)
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.ServeContent(w, r, "model.gguf", time.Unix(0, 0), bytes.NewReader(content))
	}))
	defer server.Close()

	m := NewManager(testConfig(), &fakeManifest{})
	dir := t.TempDir()
	resolved := resolvedFor(t, server.URL+"/model.gguf", content, true)

	h1, err := m.Start(context.Background(), resolved, nil, dir)
	require.NoError(t, err)
	h2, err := m.Start(context.Background(), resolved, nil, dir)
	require.NoError(t, err)

	assert.Same(t, h1, h2, "second start for an active key must return the existing handle")

	snap := waitTerminal(t, h1)
	require.Equal(t, model.TaskCompleted, snap.State, "error: %s", snap.Error)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "exactly one transfer must occur")
}

func TestCancel_PreservesResumability(t *testing.T) {
	content := testContent(64 * 1024)
	server := slowServer(t, content, 1024, 5*time.Millisecond)
	rawURL := server.URL + "/model.gguf"

	m := NewManager(testConfig(), &fakeManifest{})
	dir := t.TempDir()
	resolved := resolvedFor(t, rawURL, content, false)

	h, err := m.Start(context.Background(), resolved, nil, dir)
	require.NoError(t, err)

	// Let some bytes arrive, then cancel.
	require.Eventually(t, func() bool {
		return h.Snapshot().BytesDownloaded > 4096
	}, 5*time.Second, 5*time.Millisecond)

	require.True(t, m.Cancel(resolved.Reference))
	snap := waitTerminal(t, h)
	assert.Equal(t, model.TaskCancelled, snap.State)
	assert.Contains(t, snap.Error, "cancelled")

	// Partial file and sidecar remain for a later resume.
	dest := filepath.Join(dir, "model.gguf")
	st, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Positive(t, st.Size())

	sc, ok := loadSidecar(dest)
	require.True(t, ok)
	assert.Equal(t, st.Size(), sc.BytesWritten, "sidecar must agree with the partial file")

	// A new request resumes at or near the cancellation offset. The slow
	// server does not honor ranges, so point the sidecar at a range-capable
	// mirror of the same content.
	fast, ranges, _ := rangeServer(t, content)
	resumedURL := fast.URL + "/model.gguf"
	ref2, err := model.ParseReference(resumedURL)
	require.NoError(t, err)
	require.NoError(t, saveSidecar(dest, sidecar{
		Reference:    ref2.Key(),
		BytesWritten: st.Size(),
		URL:          resumedURL,
		StartedAt:    time.Now(),
	}))

	resolved2 := resolvedFor(t, resumedURL, content, true)
	h2, err := m.Start(context.Background(), resolved2, nil, dir)
	require.NoError(t, err)
	snap2 := waitTerminal(t, h2)
	require.Equal(t, model.TaskCompleted, snap2.State, "error: %s", snap2.Error)

	require.NotEmpty(t, *ranges)
	assert.NotEmpty(t, (*ranges)[0], "resume must issue a range request, not restart")

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, digestOf(content), digestOf(got))
}

func TestStart_TaskVisibleWithinGraceWindow(t *testing.T) {
	content := testContent(512)
	server, _, _ := rangeServer(t, content)

	m := NewManager(testConfig(), &fakeManifest{})
	resolved := resolvedFor(t, server.URL+"/model.gguf", content, false)

	h, err := m.Start(context.Background(), resolved, nil, t.TempDir())
	require.NoError(t, err)
	waitTerminal(t, h)

	// Even a near-instant download stays queryable for the grace window.
	snap, ok := m.Status(resolved.Reference)
	require.True(t, ok)
	assert.Equal(t, model.TaskCompleted, snap.State)
}

func TestStart_NewTaskAfterTerminal(t *testing.T) {
	content := testContent(512)
	server, _, _ := rangeServer(t, content)

	m := NewManager(testConfig(), &fakeManifest{})
	resolved := resolvedFor(t, server.URL+"/model.gguf", content, true)
	dir := t.TempDir()

	h1, err := m.Start(context.Background(), resolved, nil, dir)
	require.NoError(t, err)
	waitTerminal(t, h1)

	h2, err := m.Start(context.Background(), resolved, nil, dir)
	require.NoError(t, err)
	assert.NotSame(t, h1, h2, "a terminal task is never resurrected")
	waitTerminal(t, h2)
}

func TestStart_ProgressFeedTerminates(t *testing.T) {
	content := testContent(32 * 1024)
	server, _, _ := rangeServer(t, content)

	m := NewManager(testConfig(), &fakeManifest{})
	resolved := resolvedFor(t, server.URL+"/model.gguf", content, true)

	h, err := m.Start(context.Background(), resolved, nil, t.TempDir())
	require.NoError(t, err)

	var last model.Progress
	var count int
	for p := range h.Events() {
		last = p
		count++
	}
	require.Positive(t, count, "at least the terminal record must arrive")
	assert.Equal(t, model.TaskCompleted, last.State)
	assert.Equal(t, int64(len(content)), last.BytesDownloaded)
	assert.InDelta(t, 100.0, last.Percent, 0.01)
}

func TestStart_InvalidDestDir(t *testing.T) {
	m := NewManager(testConfig(), nil)
	content := testContent(16)
	resolved := resolvedFor(t, "https://example.com/model.gguf", content, false)

	_, err := m.Start(context.Background(), resolved, nil, "relative/dir")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidPath)
}

func TestStart_ServerErrorFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	m := NewManager(testConfig(), &fakeManifest{})
	resolved := resolvedFor(t, server.URL+"/model.gguf", testContent(16), false)

	h, err := m.Start(context.Background(), resolved, nil, t.TempDir())
	require.NoError(t, err)
	snap := waitTerminal(t, h)
	assert.Equal(t, model.TaskFailed, snap.State)
	assert.Contains(t, snap.Error, "registry unavailable")
}
