package registry

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/glorpus-work/modelman/pkg/auth"
	"github.com/glorpus-work/modelman/pkg/errors"
	"github.com/glorpus-work/modelman/pkg/model"
)

// DirectClient resolves direct-URL references. Resolution is a pass-through
// plus a best-effort HEAD probe for the declared size; a server that refuses
// HEAD still resolves, with progress degraded to byte counts downstream.
type DirectClient struct {
	client    *http.Client
	userAgent string
}

// NewDirectClient creates a resolver backend for raw URL references.
func NewDirectClient(timeout time.Duration, userAgent string) *DirectClient {
	if userAgent == "" {
		userAgent = "modelman/1.0"
	}
	return &DirectClient{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Resolve probes the URL and returns a single-URL download plan with no
// expected checksum.
func (c *DirectClient) Resolve(ctx context.Context, ref model.Reference, credential auth.Authenticator) (*model.ResolvedArtifact, error) {
	if ref.Registry != model.RegistryDirectURL {
		return nil, fmt.Errorf("direct resolver got %s reference: %w", ref.Registry, errors.ErrInvalidReference)
	}
	u, err := url.Parse(ref.Raw)
	if err != nil || !u.IsAbs() {
		return nil, fmt.Errorf("malformed direct URL %q: %w", ref.Raw, errors.ErrInvalidReference)
	}

	size := c.probeSize(ctx, u, credential)

	return &model.ResolvedArtifact{
		Reference:          ref,
		DownloadURLs:       []*url.URL{u},
		DeclaredSize:       size,
		ChecksumAlgorithm:  model.ChecksumNone,
		RequiresCredential: credential != nil,
		Filename:           filenameFromURL(u),
	}, nil
}

// Variants returns an empty list: a raw URL has no enumerable quantizations.
func (c *DirectClient) Variants(_ context.Context, _ model.Reference, _ auth.Authenticator) ([]model.Variant, error) {
	return []model.Variant{}, nil
}

func (c *DirectClient) probeSize(ctx context.Context, u *url.URL, credential auth.Authenticator) int64 {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u.String(), http.NoBody)
	if err != nil {
		return 0
	}
	req.Header.Set("User-Agent", c.userAgent)
	if credential != nil {
		if err := credential.Apply(req); err != nil {
			return 0
		}
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK || resp.ContentLength < 0 {
		return 0
	}
	return resp.ContentLength
}
