// Package netcache fetches remote templates over HTTP and keeps a
// persistent copy, revalidated with ETag/Last-Modified on later runs.
package netcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/neurodesk/ste/pkg/loader"
)

// MaxBodySize bounds a fetched template.
const MaxBodySize = 8 << 20

// Cache is a persistent HTTP cache keyed by URL.
type Cache struct {
	Dir    string
	Client *http.Client
	Logger *slog.Logger
	// Retries is the number of extra attempts after a network error or a
	// 5xx response.
	Retries int
	// Backoff is the delay before the first retry; it doubles each time.
	Backoff time.Duration
}

// New returns a Cache storing its entries under dir.
func New(dir string) *Cache {
	return &Cache{
		Dir:     dir,
		Client:  &http.Client{Timeout: 30 * time.Second},
		Logger:  slog.Default(),
		Retries: 2,
		Backoff: 500 * time.Millisecond,
	}
}

type meta struct {
	URL          string    `cbor:"1,keyasint"`
	ETag         string    `cbor:"2,keyasint,omitempty"`
	LastModified string    `cbor:"3,keyasint,omitempty"`
	Fetched      time.Time `cbor:"4,keyasint"`
}

// StatusError is a non-success HTTP response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string { return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.Code) }

// Get returns the body at rawURL and whether it came from the cache. A
// cached copy is revalidated first; when the server cannot be reached the
// cached copy is served as is.
func (c *Cache) Get(ctx context.Context, rawURL string) ([]byte, bool, error) {
	key := hash(rawURL)
	metaPath := filepath.Join(c.Dir, key+".meta")
	dataPath := filepath.Join(c.Dir, key+".data")

	m, cached := c.readMeta(metaPath, rawURL)
	if cached && !fileExists(dataPath) {
		cached = false
	}

	resp, err := c.fetch(ctx, rawURL, m, cached)
	if err != nil {
		if cached && ctx.Err() == nil {
			c.Logger.Warn("serving stale cached template", "url", rawURL, "error", err)
			b, rerr := os.ReadFile(dataPath)
			return b, true, rerr
		}
		return nil, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && cached {
		c.Logger.Debug("cached template still valid", "url", rawURL)
		b, err := os.ReadFile(dataPath)
		return b, true, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", rawURL, err)
	}
	if len(body) > MaxBodySize {
		return nil, false, fmt.Errorf("%s exceeds %d bytes", rawURL, MaxBodySize)
	}
	if err := writeAtomic(dataPath, body); err != nil {
		return nil, false, err
	}
	nm := meta{
		URL:          rawURL,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		Fetched:      time.Now().UTC(),
	}
	b, err := cbor.Marshal(nm)
	if err != nil {
		return nil, false, err
	}
	if err := writeAtomic(metaPath, b); err != nil {
		return nil, false, err
	}
	c.Logger.Debug("fetched template", "url", rawURL, "bytes", len(body))
	return body, false, nil
}

// fetch issues the GET, retrying network errors and 5xx responses. The
// returned response is either 2xx or 304.
func (c *Cache) fetch(ctx context.Context, rawURL string, m meta, conditional bool) (*http.Response, error) {
	delay := c.Backoff
	var lastErr error
	for attempt := 0; attempt <= c.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		if conditional {
			if m.ETag != "" {
				req.Header.Set("If-None-Match", m.ETag)
			}
			if m.LastModified != "" {
				req.Header.Set("If-Modified-Since", m.LastModified)
			}
		}
		resp, err := c.Client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300, resp.StatusCode == http.StatusNotModified:
			return resp, nil
		case resp.StatusCode >= 500:
			resp.Body.Close()
			lastErr = &StatusError{URL: rawURL, Code: resp.StatusCode}
		default:
			resp.Body.Close()
			return nil, &StatusError{URL: rawURL, Code: resp.StatusCode}
		}
	}
	return nil, lastErr
}

func (c *Cache) readMeta(p, rawURL string) (meta, bool) {
	var m meta
	b, err := os.ReadFile(p)
	if err != nil {
		return m, false
	}
	if err := cbor.Unmarshal(b, &m); err != nil {
		c.Logger.Debug("ignoring corrupt cache metadata", "path", p, "error", err)
		return meta{}, false
	}
	return m, m.URL == rawURL
}

// Loader serves include names relative to a base URL.
type Loader struct {
	Base  *url.URL
	Cache *Cache
	// Ctx bounds each fetch; nil means context.Background.
	Ctx context.Context
}

// NewLoader returns a Loader for base, which must be an http or https URL.
func NewLoader(base string, c *Cache) (*Loader, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("template url %q: %w", base, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("template url %q: unsupported scheme %q", base, u.Scheme)
	}
	return &Loader{Base: u, Cache: c}, nil
}

// IsURL reports whether s names a remote template directory.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func (l *Loader) Load(name string) (string, error) {
	clean := strings.TrimPrefix(path.Clean("/"+name), "/")
	if clean == "" {
		return "", &loader.NotFoundError{Name: name}
	}
	u := *l.Base
	u.Path = path.Join(u.Path, clean)
	ctx := l.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	b, _, err := l.Cache.Get(ctx, u.String())
	var se *StatusError
	if errors.As(err, &se) && (se.Code == http.StatusNotFound || se.Code == http.StatusGone) {
		return "", &loader.NotFoundError{Name: name}
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func writeAtomic(dst string, b []byte) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}
