package model

import (
	"net/url"
	"time"
)

// ChecksumAlgorithm identifies how an artifact's expected checksum was computed.
type ChecksumAlgorithm string

const (
	// ChecksumSHA256 is a hex-encoded SHA-256 digest.
	ChecksumSHA256 ChecksumAlgorithm = "sha256"
	// ChecksumNone means the registry supplied no checksum; verification is
	// skipped and the manifest entry is flagged unverified.
	ChecksumNone ChecksumAlgorithm = "none"
)

// Variant describes one quantization of a model as advertised by a registry.
type Variant struct {
	Label    string `json:"label"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	SHA256   string `json:"sha256,omitempty"`
}

// ResolvedArtifact is the concrete download plan for a reference. It is
// produced fresh on every resolve call and never persisted directly.
type ResolvedArtifact struct {
	Reference          Reference
	DownloadURLs       []*url.URL // ordered; multi-part artifacts download sequentially
	DeclaredSize       int64      // total bytes, 0 when unknown
	ExpectedChecksum   string
	ChecksumAlgorithm  ChecksumAlgorithm
	RequiresCredential bool
	Filename           string
}

// ManifestEntry is the persisted record of one installed artifact. An entry
// exists iff LocalPath points at a file whose checksum matched Checksum at
// install time (or the entry is explicitly Unverified).
type ManifestEntry struct {
	Reference         Reference         `json:"reference"`
	LocalPath         string            `json:"local_path"`
	SizeBytes         int64             `json:"size_bytes"`
	Checksum          string            `json:"checksum,omitempty"`
	ChecksumAlgorithm ChecksumAlgorithm `json:"checksum_algorithm"`
	InstalledAt       time.Time         `json:"installed_at"`
	SourceRegistry    RegistryKind      `json:"source_registry"`
	VariantLabel      string            `json:"variant_label,omitempty"`
	Unverified        bool              `json:"unverified,omitempty"`
}
