package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	version "github.com/hashicorp/go-version"

	"github.com/glorpus-work/modelman/pkg/auth"
	"github.com/glorpus-work/modelman/pkg/errors"
	"github.com/glorpus-work/modelman/pkg/model"
)

// schemaConstraint is the range of hosted index schema versions this client
// understands.
const schemaConstraint = ">= 1.0, < 2.0"

// repoIndex is the wire format of the hosted registry's per-repository
// metadata endpoint: GET {base}/v1/models/{owner}/{repo}.
type repoIndex struct {
	SchemaVersion string                   `json:"schema_version"`
	Owner         string                   `json:"owner"`
	Name          string                   `json:"name"`
	Tags          map[string]repoIndexTag  `json:"tags"`
}

type repoIndexTag struct {
	Variants []repoIndexVariant `json:"variants"`
}

type repoIndexVariant struct {
	Label    string   `json:"label"`
	Filename string   `json:"filename"`
	Size     int64    `json:"size"`
	SHA256   string   `json:"sha256,omitempty"`
	URLs     []string `json:"urls"`
}

// HostedClient resolves references against a hosted model registry.
type HostedClient struct {
	baseURL   string
	client    *http.Client
	userAgent string
}

// NewHostedClient creates a resolver backend for the hosted registry at baseURL.
func NewHostedClient(baseURL string, timeout time.Duration, userAgent string) *HostedClient {
	if userAgent == "" {
		userAgent = "modelman/1.0"
	}
	return &HostedClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Resolve fetches the repository index and picks the variant matching the
// reference's tag and quantization.
func (c *HostedClient) Resolve(ctx context.Context, ref model.Reference, credential auth.Authenticator) (*model.ResolvedArtifact, error) {
	idx, err := c.fetchIndex(ctx, ref, credential)
	if err != nil {
		return nil, err
	}

	tag, ok := idx.Tags[ref.Tag]
	if !ok {
		return nil, fmt.Errorf("tag %q for %s/%s: %w", ref.Tag, ref.Owner, ref.Repository, errors.ErrNotFound)
	}

	variant, err := pickVariant(ref, tag.Variants)
	if err != nil {
		return nil, err
	}

	urls := make([]*url.URL, 0, len(variant.URLs))
	for _, raw := range variant.URLs {
		u, err := url.Parse(raw)
		if err != nil || !u.IsAbs() {
			return nil, fmt.Errorf("registry returned malformed download URL %q: %w", raw, errors.ErrRegistryUnavailable)
		}
		urls = append(urls, u)
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("registry returned no download URLs for %s: %w", ref.Key(), errors.ErrRegistryUnavailable)
	}

	algorithm := model.ChecksumSHA256
	if variant.SHA256 == "" {
		algorithm = model.ChecksumNone
	}
	filename := variant.Filename
	if filename == "" {
		filename = filenameFromURL(urls[0])
	}

	return &model.ResolvedArtifact{
		Reference:          ref,
		DownloadURLs:       urls,
		DeclaredSize:       variant.Size,
		ExpectedChecksum:   strings.ToLower(variant.SHA256),
		ChecksumAlgorithm:  algorithm,
		RequiresCredential: credential != nil,
		Filename:           filename,
	}, nil
}

// Variants lists the quantizations available for the reference's tag.
func (c *HostedClient) Variants(ctx context.Context, ref model.Reference, credential auth.Authenticator) ([]model.Variant, error) {
	idx, err := c.fetchIndex(ctx, ref, credential)
	if err != nil {
		return nil, err
	}
	tag, ok := idx.Tags[ref.Tag]
	if !ok {
		return nil, fmt.Errorf("tag %q for %s/%s: %w", ref.Tag, ref.Owner, ref.Repository, errors.ErrNotFound)
	}

	variants := make([]model.Variant, 0, len(tag.Variants))
	for _, v := range tag.Variants {
		variants = append(variants, model.Variant{
			Label:    strings.ToUpper(v.Label),
			Filename: v.Filename,
			Size:     v.Size,
			SHA256:   strings.ToLower(v.SHA256),
		})
	}
	sort.Slice(variants, func(i, j int) bool { return variants[i].Label < variants[j].Label })
	return variants, nil
}

func (c *HostedClient) fetchIndex(ctx context.Context, ref model.Reference, credential auth.Authenticator) (*repoIndex, error) {
	if ref.Registry != model.RegistryHosted {
		return nil, fmt.Errorf("hosted resolver got %s reference: %w", ref.Registry, errors.ErrInvalidReference)
	}
	if c.baseURL == "" {
		return nil, fmt.Errorf("no hosted registry configured: %w", errors.ErrConfigValidation)
	}
	owner := ref.Owner
	if owner == "" {
		owner = "_"
	}
	endpoint := fmt.Sprintf("%s/v1/models/%s/%s", c.baseURL, url.PathEscape(owner), url.PathEscape(ref.Repository))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create registry request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if credential != nil {
		if err := credential.Apply(req); err != nil {
			return nil, errors.Wrap(err, "failed to apply credential")
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry request failed: %v: %w", err, errors.ErrRegistryUnavailable)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := classifyStatus(resp.StatusCode, ref); err != nil {
		return nil, err
	}

	var idx repoIndex
	if err := json.NewDecoder(resp.Body).Decode(&idx); err != nil {
		return nil, fmt.Errorf("malformed registry response: %v: %w", err, errors.ErrRegistryUnavailable)
	}
	if err := checkSchemaVersion(idx.SchemaVersion); err != nil {
		return nil, err
	}
	return &idx, nil
}

// classifyStatus maps registry HTTP status codes onto the error taxonomy.
// Auth failures must stay distinguishable from not-found so callers can
// prompt for a token instead of reporting a generic failure.
func classifyStatus(status int, ref model.Reference) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%s: %w", ref.Key(), errors.ErrAuthRequired)
	case status == http.StatusNotFound:
		return fmt.Errorf("%s: %w", ref.Key(), errors.ErrNotFound)
	case status >= 500:
		return fmt.Errorf("registry returned status %d: %w", status, errors.ErrRegistryUnavailable)
	default:
		return fmt.Errorf("registry returned unexpected status %d: %w", status, errors.ErrDownloadFailed)
	}
}

func checkSchemaVersion(raw string) error {
	if raw == "" {
		return fmt.Errorf("registry index missing schema_version: %w", errors.ErrSchemaUnsupported)
	}
	v, err := version.NewVersion(raw)
	if err != nil {
		return fmt.Errorf("registry schema_version %q: %w", raw, errors.ErrSchemaUnsupported)
	}
	constraint, err := version.NewConstraint(schemaConstraint)
	if err != nil {
		return errors.Wrap(err, "parsing schema constraint")
	}
	if !constraint.Check(v) {
		return fmt.Errorf("registry schema_version %s outside %q: %w", raw, schemaConstraint, errors.ErrSchemaUnsupported)
	}
	return nil
}

// pickVariant selects the variant matching the reference's quantization. When
// the reference names no quantization and exactly one variant exists, that
// variant is used.
func pickVariant(ref model.Reference, variants []repoIndexVariant) (*repoIndexVariant, error) {
	if ref.Quantization == "" {
		if len(variants) == 1 {
			return &variants[0], nil
		}
		return nil, fmt.Errorf("%s has %d variants, specify one of %s: %w",
			ref.Key(), len(variants), variantLabels(variants), errors.ErrVariantNotFound)
	}
	for i := range variants {
		if strings.EqualFold(variants[i].Label, ref.Quantization) {
			return &variants[i], nil
		}
	}
	return nil, fmt.Errorf("variant %q for %s, available: %s: %w",
		ref.Quantization, ref.Key(), variantLabels(variants), errors.ErrVariantNotFound)
}

func variantLabels(variants []repoIndexVariant) string {
	labels := make([]string, 0, len(variants))
	for _, v := range variants {
		labels = append(labels, strings.ToUpper(v.Label))
	}
	sort.Strings(labels)
	return strings.Join(labels, ", ")
}

func filenameFromURL(u *url.URL) string {
	segments := strings.Split(strings.TrimRight(u.Path, "/"), "/")
	last := segments[len(segments)-1]
	if last == "" {
		return "artifact.bin"
	}
	return last
}
