package assemble

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/dgnsrekt/narrator/internal/cache"
)

const (
	DefaultMaxBytes  = 256 << 20
	DefaultUserAgent = "narrator/1.0"
)

// Fetcher retrieves the raw bytes at a resolved location.
type Fetcher interface {
	Fetch(ctx context.Context, u *url.URL) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, u *url.URL) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, u *url.URL) ([]byte, error) { return f(ctx, u) }

// FetchOptions configures a SourceFetcher. Zero values select defaults.
type FetchOptions struct {
	Client            *http.Client
	MaxBytes          int64
	RequestsPerSecond float64
	UserAgent         string
	Cache             cache.Store
	Logger            *log.Logger
}

// SourceFetcher reads file URLs from disk and http(s) URLs over the
// network. Remote requests share a rate limiter and results are kept in
// the optional cache.
type SourceFetcher struct {
	client    *http.Client
	maxBytes  int64
	userAgent string
	limiter   *rate.Limiter
	cache     cache.Store
	logger    *log.Logger
}

// NewFetcher returns a SourceFetcher for opts.
func NewFetcher(opts FetchOptions) *SourceFetcher {
	f := &SourceFetcher{
		client:    opts.Client,
		maxBytes:  opts.MaxBytes,
		userAgent: opts.UserAgent,
		limiter:   rate.NewLimiter(rate.Inf, 0),
		cache:     opts.Cache,
		logger:    opts.Logger,
	}
	if f.client == nil {
		f.client = http.DefaultClient
	}
	if f.maxBytes <= 0 {
		f.maxBytes = DefaultMaxBytes
	}
	if f.userAgent == "" {
		f.userAgent = DefaultUserAgent
	}
	if opts.RequestsPerSecond > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	if f.logger == nil {
		f.logger = log.Default()
	}
	return f
}

// Fetch implements Fetcher.
func (f *SourceFetcher) Fetch(ctx context.Context, u *url.URL) ([]byte, error) {
	switch u.Scheme {
	case "file":
		return f.fetchFile(u)
	case "http", "https":
		return f.fetchHTTP(ctx, u)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

func (f *SourceFetcher) fetchFile(u *url.URL) ([]byte, error) {
	path := filepath.FromSlash(u.Path)
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > f.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, info.Size())
	}
	key := cache.Key(u.String(), info.ModTime().UnixNano(), info.Size())
	if data, ok := f.cached(key); ok {
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f.store(key, data)
	return data, nil
}

func (f *SourceFetcher) fetchHTTP(ctx context.Context, u *url.URL) ([]byte, error) {
	key := cache.Key(u.String())
	if data, ok := f.cached(key); ok {
		return data, nil
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s", ErrStatus, resp.Status)
	}
	if resp.ContentLength > f.maxBytes {
		return nil, fmt.Errorf("%w: content-length %d", ErrTooLarge, resp.ContentLength)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, f.maxBytes)
	}
	f.store(key, data)
	return data, nil
}

func (f *SourceFetcher) cached(key string) ([]byte, bool) {
	if f.cache == nil {
		return nil, false
	}
	return f.cache.Get(key)
}

func (f *SourceFetcher) store(key string, data []byte) {
	if f.cache == nil {
		return
	}
	if err := f.cache.Put(key, data); err != nil && !errors.Is(err, cache.ErrTooLarge) {
		f.logger.Warn("cache segment audio", "err", err)
	}
}
