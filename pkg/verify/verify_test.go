package verify

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/modelman/pkg/errors"
	"github.com/glorpus-work/modelman/pkg/model"
)

func writeTestFile(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "artifact.gguf")
	require.NoError(t, os.WriteFile(path, content, 0o640))
	return path
}

func TestFile_SHA256(t *testing.T) {
	content := []byte("quantized weights")
	digest := sha256.Sum256(content)
	expected := hex.EncodeToString(digest[:])

	path := writeTestFile(t, content)

	tests := []struct {
		name        string
		expected    string
		expectError bool
	}{
		{name: "matching digest", expected: expected},
		{name: "matching digest upper-case", expected: "  " + expected},
		{name: "mismatching digest", expected: "deadbeef", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := File(path, tt.expected, model.ChecksumSHA256)
			if tt.expectError {
				require.Error(t, err)
				assert.ErrorIs(t, err, errors.ErrChecksumMismatch)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestFile_NoneAlwaysPasses(t *testing.T) {
	path := writeTestFile(t, []byte("anything"))
	assert.NoError(t, File(path, "", model.ChecksumNone))
	assert.NoError(t, File(path, "ignored", model.ChecksumNone))
}

func TestFile_UnknownAlgorithm(t *testing.T) {
	path := writeTestFile(t, []byte("anything"))
	err := File(path, "x", model.ChecksumAlgorithm("md5"))
	require.Error(t, err)
}

func TestFile_MissingFile(t *testing.T) {
	err := File(filepath.Join(t.TempDir(), "missing.gguf"), "abc", model.ChecksumSHA256)
	require.Error(t, err)
}

func TestSum_LargeFile(t *testing.T) {
	// Larger than one hash block so the streaming path is exercised.
	content := make([]byte, 3<<20)
	for i := range content {
		content[i] = byte(i % 251)
	}
	digest := sha256.Sum256(content)

	path := writeTestFile(t, content)
	actual, err := Sum(path)
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(digest[:]), actual)
}
