package netcache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/neurodesk/ste/pkg/expr"
	"github.com/neurodesk/ste/pkg/loader"
	"github.com/neurodesk/ste/pkg/template"
)

func newTestCache(t *testing.T) *Cache {
	c := New(t.TempDir())
	c.Backoff = time.Millisecond
	return c
}

func TestGetRevalidates(t *testing.T) {
	var hits, notModified atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			notModified.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte("hello $name$"))
	}))
	defer srv.Close()

	c := newTestCache(t)
	b, cached, err := c.Get(context.Background(), srv.URL+"/a.ste")
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "hello $name$", string(b))

	b, cached, err = c.Get(context.Background(), srv.URL+"/a.ste")
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, "hello $name$", string(b))
	assert.EqualValues(t, 2, hits.Load())
	assert.EqualValues(t, 1, notModified.Load())
}

func TestGetServesStaleWhenOffline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("v1"))
	}))
	c := newTestCache(t)
	_, _, err := c.Get(context.Background(), srv.URL+"/x")
	require.NoError(t, err)
	srv.Close()

	b, cached, err := c.Get(context.Background(), srv.URL+"/x")
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, "v1", string(b))
}

func TestGetRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	b, _, err := newTestCache(t).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(b))
	assert.EqualValues(t, 3, hits.Load())

	hits.Store(-10)
	c := newTestCache(t)
	c.Retries = 1
	_, _, err = c.Get(context.Background(), srv.URL)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.Code)
}

func TestGetConcurrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 64<<10)))
	}))
	defer srv.Close()

	c := newTestCache(t)
	var g errgroup.Group
	for i := 0; i < 32; i++ {
		g.Go(func() error {
			b, _, err := c.Get(context.Background(), srv.URL+"/shared.ste")
			if err == nil && len(b) != 64<<10 {
				err = fmt.Errorf("got %d bytes", len(b))
			}
			return err
		})
	}
	require.NoError(t, g.Wait())

	entries, err := os.ReadDir(c.Dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "only the data and meta files remain")
}

func TestLoaderWithIncludes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tpl/page.ste", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<$include('parts/head.ste')$>"))
	})
	mux.HandleFunc("/tpl/parts/head.ste", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("$title$"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	l, err := NewLoader(srv.URL+"/tpl/", newTestCache(t))
	require.NoError(t, err)

	_, err = l.Load("missing.ste")
	assert.True(t, errors.Is(err, loader.ErrNotFound))

	e := template.New(template.WithLoader(l))
	out, err := e.RenderString("$include('page.ste')$", expr.Context{"title": expr.StringValue("Hi")})
	require.NoError(t, err)
	assert.Equal(t, "<Hi>", out)

	_, err = NewLoader("ftp://example.com/", nil)
	assert.ErrorContains(t, err, "unsupported scheme")
	assert.True(t, IsURL("https://example.com/t"))
	assert.False(t, IsURL("templates"))
}
