package download

import (
	"encoding/json"
	"os"
	"time"

	"github.com/glorpus-work/modelman/pkg/errors"
	"github.com/glorpus-work/modelman/pkg/fsutil"
)

// sidecarSuffix is appended to the artifact filename to form the sidecar path.
const sidecarSuffix = ".partial.json"

// sidecar is the on-disk record of an in-progress transfer. Its presence at
// startup signals that a resume may be possible; its absence means leftover
// bytes in the target file are untrusted.
type sidecar struct {
	Reference     string    `json:"reference"`
	BytesWritten  int64     `json:"bytes_written"`
	ExpectedTotal int64     `json:"expected_total,omitempty"`
	URL           string    `json:"url"`
	StartedAt     time.Time `json:"started_at"`
}

func sidecarPath(filePath string) string {
	return filePath + sidecarSuffix
}

// loadSidecar reads the sidecar next to filePath. A missing or unreadable
// sidecar returns ok=false; a corrupt one is treated the same way since the
// engine then discards the partial file.
func loadSidecar(filePath string) (sidecar, bool) {
	data, err := os.ReadFile(sidecarPath(filePath))
	if err != nil {
		return sidecar{}, false
	}
	var sc sidecar
	if err := json.Unmarshal(data, &sc); err != nil {
		return sidecar{}, false
	}
	return sc, true
}

// saveSidecar writes the sidecar next to filePath.
func saveSidecar(filePath string, sc sidecar) error {
	data, err := json.Marshal(sc)
	if err != nil {
		return errors.Wrap(err, "failed to encode sidecar")
	}
	if err := os.WriteFile(sidecarPath(filePath), data, fsutil.FileModeSecure); err != nil {
		return errors.Wrap(err, "failed to write sidecar")
	}
	return nil
}

// removeSidecar deletes the sidecar next to filePath, tolerating absence.
func removeSidecar(filePath string) {
	_ = os.Remove(sidecarPath(filePath))
}
