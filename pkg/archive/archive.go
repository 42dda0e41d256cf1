// Package archive provides extraction of bundle-packaged model artifacts.
package archive

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"

	"github.com/glorpus-work/modelman/pkg/fsutil"
)

// bundleExtensions lists the artifact filename suffixes treated as bundles.
var bundleExtensions = []string{".tar.gz", ".tgz", ".tar", ".zip"}

// IsBundle reports whether the artifact at path is an archive bundle that
// should be unpacked after installation.
func IsBundle(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	for _, ext := range bundleExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// ExtractDir returns the directory a bundle at path is unpacked into: the
// bundle path with its archive extension stripped.
func ExtractDir(path string) string {
	name := filepath.Base(path)
	lower := strings.ToLower(name)
	for _, ext := range bundleExtensions {
		if strings.HasSuffix(lower, ext) {
			return filepath.Join(filepath.Dir(path), name[:len(name)-len(ext)])
		}
	}
	return path + ".d"
}

// Manager handles bundle extraction and creation operations.
type Manager struct{}

// NewManager creates a new Manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// ExtractAll extracts all files from a bundle to the specified destination directory.
func (am *Manager) ExtractAll(ctx context.Context, bundlePath, destDir string) error {
	fsys, err := archives.FileSystem(ctx, bundlePath, nil)
	if err != nil {
		return fmt.Errorf("failed to open bundle file: %w", err)
	}
	if closer, ok := fsys.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	if err := fsutil.EnsureDir(destDir); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	walkFn := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		return am.extractEntry(fsys, path, destDir, d)
	}

	return fs.WalkDir(fsys, ".", walkFn)
}

// ExtractFile extracts a single named file from a bundle to destPath.
func (am *Manager) ExtractFile(ctx context.Context, bundlePath, filePath, destPath string) error {
	fsys, err := archives.FileSystem(ctx, bundlePath, nil)
	if err != nil {
		return fmt.Errorf("failed to open bundle file: %w", err)
	}
	if closer, ok := fsys.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	srcFile, err := fsys.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", filePath, err)
	}
	defer func() { _ = srcFile.Close() }()

	if err := fsutil.EnsureDir(filepath.Dir(destPath)); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	dstFile, err := fsutil.CreateFilePerm(destPath, fsutil.FileModeSecure)
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", destPath, err)
	}
	defer func() { _ = dstFile.Close() }()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("failed to copy file %s to %s: %w", filePath, destPath, err)
	}

	return nil
}

// Create creates a gzipped tar bundle from the specified source directory.
func (am *Manager) Create(ctx context.Context, sourceDir, bundlePath string) error {
	absolutePath, err := filepath.Abs(sourceDir)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for source directory: %w", err)
	}

	bundleFiles, err := archives.FilesFromDisk(ctx, nil, map[string]string{
		absolutePath + string(os.PathSeparator): "",
	})
	if err != nil {
		return fmt.Errorf("failed to read files from disk: %w", err)
	}

	file, err := os.Create(bundlePath)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", bundlePath, err)
	}
	defer func() {
		_ = file.Sync()
		_ = file.Close()
	}()

	format := archives.CompressedArchive{
		Compression: archives.Gz{},
		Archival:    archives.Tar{},
	}

	if err := format.Archive(ctx, file, bundleFiles); err != nil {
		return fmt.Errorf("failed to create bundle: %w", err)
	}

	return nil
}

// extractEntry processes a single bundle entry and writes it to destDir.
func (am *Manager) extractEntry(fsys fs.FS, path, destDir string, d fs.DirEntry) error {
	if path == "." {
		return nil
	}

	targetPath := filepath.Join(destDir, path)

	if d.IsDir() {
		return fsutil.EnsureDir(targetPath)
	}

	info, err := d.Info()
	if err != nil {
		return fmt.Errorf("failed to get file info for %s: %w", path, err)
	}

	if info.Mode()&os.ModeSymlink != 0 {
		return am.writeSymlink(fsys, path, targetPath)
	}

	return am.writeRegularFile(fsys, path, targetPath, info)
}

// writeSymlink creates a symlink at targetPath with contents from the bundle entry at path.
func (am *Manager) writeSymlink(fsys fs.FS, path, targetPath string) error {
	linkTarget, err := fsys.Open(path)
	if err != nil {
		return fmt.Errorf("failed to read symlink %s: %w", path, err)
	}
	defer func() { _ = linkTarget.Close() }()

	targetBytes, err := io.ReadAll(linkTarget)
	if err != nil {
		return fmt.Errorf("failed to read symlink target %s: %w", path, err)
	}

	if err := fsutil.EnsureDir(filepath.Dir(targetPath)); err != nil {
		return fmt.Errorf("failed to create parent directory for symlink %s: %w", path, err)
	}

	_ = os.Remove(targetPath)

	return os.Symlink(string(targetBytes), targetPath)
}

// writeRegularFile writes a regular file from the bundle entry to targetPath and preserves metadata.
func (am *Manager) writeRegularFile(fsys fs.FS, path, targetPath string, info fs.FileInfo) error {
	srcFile, err := fsys.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", path, err)
	}
	defer func() { _ = srcFile.Close() }()

	if err := fsutil.EnsureDir(filepath.Dir(targetPath)); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", path, err)
	}

	dstFile, err := fsutil.CreateFilePerm(targetPath, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", targetPath, err)
	}
	defer func() { _ = dstFile.Close() }()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("failed to copy file %s: %w", path, err)
	}

	if err := os.Chmod(targetPath, info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to set permissions for %s: %w", targetPath, err)
	}
	if err := os.Chtimes(targetPath, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("failed to set modification time for %s: %w", targetPath, err)
	}
	return nil
}
