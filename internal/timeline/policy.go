package timeline

import (
	"net/url"
	"path"
	"strings"
)

// DefaultAllowedExtensions are the image formats a player can render.
var DefaultAllowedExtensions = []string{"jpg", "jpeg", "png", "webp", "gif"}

// DefaultTrustedDomains are the CDN and storage hosts images are served from.
var DefaultTrustedDomains = []string{
	"sarvcast.com",
	"sarvcast.ir",
	"arvanstorage.ir",
	"amazonaws.com",
	"cloudinary.com",
}

// ImagePolicy decides whether an image URL may appear in a timeline.
// The zero value allows nothing; use NewImagePolicy.
type ImagePolicy struct {
	extensions map[string]struct{}
	domains    []string
}

// NewImagePolicy normalizes the configured lists. Extensions are matched
// case-insensitively with or without a leading dot, domains as host suffixes.
func NewImagePolicy(extensions, trustedDomains []string) ImagePolicy {
	p := ImagePolicy{extensions: make(map[string]struct{}, len(extensions))}
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			p.extensions[ext] = struct{}{}
		}
	}
	for _, d := range trustedDomains {
		d = strings.ToLower(strings.Trim(strings.TrimSpace(d), "."))
		if d != "" {
			p.domains = append(p.domains, d)
		}
	}
	return p
}

// DefaultImagePolicy uses DefaultAllowedExtensions and DefaultTrustedDomains.
func DefaultImagePolicy() ImagePolicy {
	return NewImagePolicy(DefaultAllowedExtensions, DefaultTrustedDomains)
}

// AllowedExtensions returns the normalized extension set in no particular order.
func (p ImagePolicy) AllowedExtensions() []string {
	out := make([]string, 0, len(p.extensions))
	for ext := range p.extensions {
		out = append(out, ext)
	}
	return out
}

// TrustedDomains returns the normalized domain suffixes.
func (p ImagePolicy) TrustedDomains() []string {
	return append([]string(nil), p.domains...)
}

// ParseURL accepts only absolute URLs: a scheme and a host are required.
func ParseURL(raw string) (*url.URL, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Hostname() == "" {
		return nil, false
	}
	return u, true
}

// Extension returns the lower-cased file extension of the URL path without
// the dot. The query string and fragment never contribute.
func Extension(u *url.URL) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), "."))
}

// ExtensionAllowed reports whether the URL path ends in an allowed format.
func (p ImagePolicy) ExtensionAllowed(u *url.URL) bool {
	_, ok := p.extensions[Extension(u)]
	return ok
}

// DomainTrusted reports whether the host equals a trusted domain or is a
// subdomain of one.
func (p ImagePolicy) DomainTrusted(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	for _, d := range p.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// Allows reports whether raw is an absolute URL with an allowed format on a
// trusted host.
func (p ImagePolicy) Allows(raw string) bool {
	u, ok := ParseURL(raw)
	if !ok {
		return false
	}
	return p.ExtensionAllowed(u) && p.DomainTrusted(u)
}
