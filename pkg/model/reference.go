// Package model provides data structures and types for representing model
// references, resolved artifacts, download tasks and manifest entries in the
// modelman download manager.
package model

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/glorpus-work/modelman/pkg/errors"
)

// RegistryKind identifies which resolution convention a reference uses.
type RegistryKind string

const (
	// RegistryHosted references a model on a hosted registry via owner/repo coordinates.
	RegistryHosted RegistryKind = "hosted"
	// RegistryDirectURL references a model by a raw download URL.
	RegistryDirectURL RegistryKind = "direct-url"
)

// DefaultTag is used when a hosted reference omits an explicit tag.
const DefaultTag = "latest"

// hostedRefPattern matches [owner/]repo[:tag][@quant].
var hostedRefPattern = regexp.MustCompile(
	`^(?:([A-Za-z0-9][A-Za-z0-9._-]*)/)?([A-Za-z0-9][A-Za-z0-9._-]*)(?::([A-Za-z0-9][A-Za-z0-9._-]*))?(?:@([A-Za-z0-9][A-Za-z0-9._]*))?$`)

// Reference is an immutable, normalized identifier for a requestable model
// artifact. Key() is the deduplication key for in-flight downloads and the
// primary key in the manifest.
type Reference struct {
	Registry     RegistryKind `json:"registry"`
	Owner        string       `json:"owner,omitempty"`
	Repository   string       `json:"repository,omitempty"`
	Tag          string       `json:"tag,omitempty"`
	Quantization string       `json:"quantization,omitempty"`
	Raw          string       `json:"raw"`
}

// ParseReference parses a user-supplied model string into a Reference.
// Accepted forms are the hosted grammar "[owner/]repo[:tag][@quant]" and a
// well-formed absolute URL. Missing tags default to "latest" and the
// quantization suffix is upper-cased (q4_k_m -> Q4_K_M).
func ParseReference(raw string) (Reference, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Reference{}, fmt.Errorf("empty reference: %w", errors.ErrInvalidReference)
	}

	if strings.Contains(trimmed, "://") {
		parsed, err := url.Parse(trimmed)
		if err != nil || !parsed.IsAbs() || parsed.Host == "" {
			return Reference{}, fmt.Errorf("malformed URL %q: %w", raw, errors.ErrInvalidReference)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return Reference{}, fmt.Errorf("unsupported URL scheme %q: %w", parsed.Scheme, errors.ErrInvalidReference)
		}
		return Reference{
			Registry: RegistryDirectURL,
			Tag:      DefaultTag,
			Raw:      parsed.String(),
		}, nil
	}

	m := hostedRefPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return Reference{}, fmt.Errorf("reference %q matches neither owner/repo:tag@quant nor a URL: %w", raw, errors.ErrInvalidReference)
	}

	ref := Reference{
		Registry:     RegistryHosted,
		Owner:        m[1],
		Repository:   m[2],
		Tag:          m[3],
		Quantization: strings.ToUpper(m[4]),
		Raw:          trimmed,
	}
	if ref.Tag == "" {
		ref.Tag = DefaultTag
	}
	return ref, nil
}

// Key returns the normalized string form used for equality, deduplication
// and manifest lookups.
func (r Reference) Key() string {
	if r.Registry == RegistryDirectURL {
		return r.Raw
	}
	var b strings.Builder
	if r.Owner != "" {
		b.WriteString(r.Owner)
		b.WriteString("/")
	}
	b.WriteString(r.Repository)
	b.WriteString(":")
	b.WriteString(r.Tag)
	if r.Quantization != "" {
		b.WriteString("@")
		b.WriteString(r.Quantization)
	}
	return b.String()
}

// String returns the normalized form, same as Key.
func (r Reference) String() string { return r.Key() }

// Equal reports whether two references identify the same artifact.
func (r Reference) Equal(other Reference) bool {
	return r.Key() == other.Key()
}
