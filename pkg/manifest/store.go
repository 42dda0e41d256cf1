// Package manifest provides the authoritative JSON-backed record of installed
// model artifacts.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/glorpus-work/modelman/pkg/errors"
	"github.com/glorpus-work/modelman/pkg/fsutil"
	"github.com/glorpus-work/modelman/pkg/model"
	"github.com/glorpus-work/modelman/pkg/verify"
)

// FormatVersion is the current manifest document format.
const FormatVersion = "1"

// document is the on-disk shape of manifest.json.
type document struct {
	FormatVersion string                 `json:"format_version"`
	LastUpdate    time.Time              `json:"last_update"`
	Entries       []*model.ManifestEntry `json:"entries"`
}

// Store is the single writer of the manifest file. Reads are safe for
// concurrent callers.
type Store struct {
	path string

	mu  sync.RWMutex
	doc document
}

// New creates a store backed by the manifest file at path. The file is loaded
// if it exists; a missing file yields an empty manifest.
func New(path string) (*Store, error) {
	cleanPath := filepath.Clean(path)
	if !filepath.IsAbs(cleanPath) {
		return nil, fmt.Errorf("manifest path must be absolute: %s: %w", path, errors.ErrInvalidPath)
	}

	s := &Store{
		path: cleanPath,
		doc:  document{FormatVersion: FormatVersion, LastUpdate: time.Now()},
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "failed to read manifest")
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return errors.Wrap(err, "failed to parse manifest")
	}
	s.doc = doc
	if s.doc.FormatVersion == "" {
		s.doc.FormatVersion = FormatVersion
	}
	return nil
}

// List returns a copy of all manifest entries.
func (s *Store) List() []*model.ManifestEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]*model.ManifestEntry, len(s.doc.Entries))
	for i, e := range s.doc.Entries {
		copied := *e
		entries[i] = &copied
	}
	return entries
}

// Get returns the entry for ref, or nil when the model is not installed.
func (s *Store) Get(ref model.Reference) *model.ManifestEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.doc.Entries {
		if e.Reference.Key() == ref.Key() {
			copied := *e
			return &copied
		}
	}
	return nil
}

// Put records entry, replacing any existing entry for the same reference.
// The entry's checksum is re-verified against the file at LocalPath before
// anything is written; a caller cannot install a record the store has not
// itself verified. Entries with ChecksumAlgorithm none are stored with the
// unverified flag forced on.
func (s *Store) Put(entry *model.ManifestEntry) error {
	if entry == nil {
		return fmt.Errorf("nil manifest entry: %w", errors.ErrConfigValidation)
	}
	if !filepath.IsAbs(entry.LocalPath) {
		return fmt.Errorf("manifest entry path must be absolute: %s: %w", entry.LocalPath, errors.ErrInvalidPath)
	}

	if err := verify.File(entry.LocalPath, entry.Checksum, entry.ChecksumAlgorithm); err != nil {
		return errors.Wrapf(err, "refusing to record %s", entry.Reference.Key())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *entry
	if stored.ChecksumAlgorithm == model.ChecksumNone {
		stored.Unverified = true
	}

	replaced := false
	for i, e := range s.doc.Entries {
		if e.Reference.Key() == stored.Reference.Key() {
			s.doc.Entries[i] = &stored
			replaced = true
			break
		}
	}
	if !replaced {
		s.doc.Entries = append(s.doc.Entries, &stored)
	}
	s.doc.LastUpdate = time.Now()

	return s.saveLocked()
}

// Remove deletes the entry for ref. The caller is responsible for deleting
// the artifact file itself; the two are deliberately decoupled.
func (s *Store) Remove(ref model.Reference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.doc.Entries {
		if e.Reference.Key() == ref.Key() {
			s.doc.Entries = append(s.doc.Entries[:i], s.doc.Entries[i+1:]...)
			s.doc.LastUpdate = time.Now()
			return s.saveLocked()
		}
	}
	return fmt.Errorf("%s: %w", ref.Key(), errors.ErrNotInstalled)
}

// saveLocked writes the manifest atomically: marshal to a temp file in the
// same directory, then rename over the manifest file. A crash can never leave
// a half-written manifest behind.
func (s *Store) saveLocked() (err error) {
	dir := filepath.Dir(s.path)
	if err := fsutil.EnsureDir(dir); err != nil {
		return errors.Wrap(err, "failed to create manifest directory")
	}

	tmp, err := os.CreateTemp(dir, "manifest-*.tmp")
	if err != nil {
		return errors.Wrap(err, "failed to create temporary manifest")
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	data, err := json.MarshalIndent(&s.doc, "", "  ")
	if err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "failed to encode manifest")
	}
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "failed to write manifest")
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "failed to sync manifest")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close manifest")
	}
	if err = os.Rename(tmpPath, s.path); err != nil {
		return errors.Wrap(err, "failed to replace manifest")
	}
	return os.Chmod(s.path, fsutil.FileModeSecure)
}
