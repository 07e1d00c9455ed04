package assemble

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Resolver maps a segment's audio reference to a fetchable location.
type Resolver interface {
	Resolve(ref string) (*url.URL, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ref string) (*url.URL, error)

func (f ResolverFunc) Resolve(ref string) (*url.URL, error) { return f(ref) }

// BaseResolver resolves relative references against a base directory or
// URL. Absolute paths and file, http and https URLs pass through.
type BaseResolver struct {
	base *url.URL
}

// NewResolver returns a resolver rooted at base, which is either a local
// directory or an http(s) URL.
func NewResolver(base string) (*BaseResolver, error) {
	if isRemote(base) {
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("parse base url: %w", err)
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		return &BaseResolver{base: u}, nil
	}
	dir, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("resolve base dir: %w", err)
	}
	return &BaseResolver{base: fileURL(dir + string(filepath.Separator))}, nil
}

// Resolve implements Resolver.
func (r *BaseResolver) Resolve(ref string) (*url.URL, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, errors.New("empty audio reference")
	}
	if filepath.IsAbs(ref) {
		return fileURL(ref), nil
	}
	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("parse audio reference %q: %w", ref, err)
	}
	switch u.Scheme {
	case "file", "http", "https":
		return u, nil
	case "":
		return r.base.ResolveReference(u), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

func isRemote(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func fileURL(path string) *url.URL {
	return &url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
}
