package scraper

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/bannergrab/config"
	"github.com/use-agent/bannergrab/models"
)

func testConfig() config.ScraperConfig {
	return config.ScraperConfig{
		PageTimeout:   5 * time.Second,
		ImageTimeout:  5 * time.Second,
		MaxPageBytes:  1 << 20,
		MaxImageBytes: 1 << 20,
		UserAgent:     "bannergrab-test/1.0",
	}
}

func TestFetchPage(t *testing.T) {
	var gotUA, gotAccept string
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>  Spring Launch </title></head><body></body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := NewScraper(testConfig())
	page, err := s.FetchPage(context.Background(), srv.URL+"/old")
	require.NoError(t, err)

	assert.Equal(t, "Spring Launch", page.Title)
	assert.Equal(t, srv.URL+"/new", page.FinalURL)
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Contains(t, page.HTML, "<body>")
	assert.Equal(t, "bannergrab-test/1.0", gotUA)
	assert.True(t, strings.HasPrefix(gotAccept, "text/html"))
}

func TestFetchPage_DefaultUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.UserAgent = ""
	_, err := NewScraper(cfg).FetchPage(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultUserAgent, gotUA)
}

func TestFetchPage_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewScraper(testConfig()).FetchPage(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeNetwork, models.ErrorCode(err))
	assert.Contains(t, err.Error(), "HTTP 500")
}

func TestFetchPage_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.PageTimeout = 50 * time.Millisecond
	_, err := NewScraper(cfg).FetchPage(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeTimeout, models.ErrorCode(err))
}

func TestFetchPage_BodyCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.MaxPageBytes = 32
	_, err := NewScraper(cfg).FetchPage(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 32 bytes")
}

func TestFetchPage_UnsupportedScheme(t *testing.T) {
	_, err := NewScraper(testConfig()).FetchPage(context.Background(), "ftp://example.com/")
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeNetwork, models.ErrorCode(err))
}

func TestFetchImage(t *testing.T) {
	var gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write([]byte("GIF89a"))
	}))
	defer srv.Close()

	data, err := NewScraper(testConfig()).FetchImage(context.Background(), srv.URL+"/a.gif")
	require.NoError(t, err)
	assert.Equal(t, []byte("GIF89a"), data)
	assert.True(t, strings.HasPrefix(gotAccept, "image/"))
}

func TestFetchImage_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.ImageTimeout = 50 * time.Millisecond
	_, err := NewScraper(cfg).FetchImage(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"simple", "<title>Hello</title>", "Hello"},
		{"nested in head", "<html><head><meta charset=utf-8><title> Shop </title></head></html>", "Shop"},
		{"missing", "<html><body>no title</body></html>", ""},
		{"empty", "<title></title>", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractTitle([]byte(tt.html)))
		})
	}
}

// fakeFetcher returns err (or a canned body) and counts calls.
type fakeFetcher struct {
	err   error
	calls int
}

func (f *fakeFetcher) fetch(_ context.Context, targetURL, _ string, _ int64) (*fetchResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &fetchResult{body: []byte("ok"), finalURL: targetURL, statusCode: http.StatusOK}, nil
}

func fallbackScraper(primary, plain *fakeFetcher) *Scraper {
	return &Scraper{cfg: testConfig(), primary: primary, plain: plain, hosts: newHostMemory(time.Hour)}
}

func TestFetch_FallsBackOnTransportError(t *testing.T) {
	primary := &fakeFetcher{err: &transportError{err: errors.New("tls: handshake failure")}}
	plain := &fakeFetcher{}
	s := fallbackScraper(primary, plain)

	data, err := s.FetchImage(context.Background(), "https://cdn.example.com/a.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), data)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, plain.calls)
	assert.True(t, s.hosts.plain("cdn.example.com"))

	// Remembered host skips the fingerprinted client.
	_, err = s.FetchImage(context.Background(), "https://cdn.example.com/b.png")
	require.NoError(t, err)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 2, plain.calls)
}

func TestFetch_NoFallbackOnHTTPError(t *testing.T) {
	primary := &fakeFetcher{err: errors.New("httpfetch: HTTP 404 for https://example.com/x")}
	plain := &fakeFetcher{}
	s := fallbackScraper(primary, plain)

	_, err := s.FetchImage(context.Background(), "https://example.com/x")
	require.Error(t, err)
	assert.Zero(t, plain.calls)
	assert.False(t, s.hosts.plain("example.com"))
}

func TestFetch_ForgetsHostWhenPlainFails(t *testing.T) {
	primary := &fakeFetcher{}
	plain := &fakeFetcher{err: &transportError{err: errors.New("connection reset")}}
	s := fallbackScraper(primary, plain)
	s.hosts.remember("example.com")

	_, err := s.FetchImage(context.Background(), "https://example.com/x")
	require.Error(t, err)
	assert.False(t, s.hosts.plain("example.com"))

	_, err = s.FetchImage(context.Background(), "https://example.com/x")
	require.NoError(t, err)
	assert.Equal(t, 1, primary.calls)
}

func TestHostMemory_Expiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := newHostMemory(time.Hour)
	m.now = func() time.Time { return now }

	m.remember("example.com")
	assert.True(t, m.plain("example.com"))

	now = now.Add(2 * time.Hour)
	assert.False(t, m.plain("example.com"))
}

// closingListener accepts connections, counts them and hangs up at once.
func closingListener(t *testing.T) (addr string, accepted *atomic.Int32) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	accepted = &atomic.Int32{}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			accepted.Add(1)
			conn.Close()
		}
	}()
	return ln.Addr().String(), accepted
}

func TestFetchImage_SingleAttemptByDefault(t *testing.T) {
	addr, accepted := closingListener(t)
	cfg := testConfig()
	cfg.TLSFingerprint = true

	s := NewScraper(cfg)
	assert.Nil(t, s.plain)

	_, err := s.FetchImage(context.Background(), "https://"+addr+"/a.png")
	require.Error(t, err)
	assert.Equal(t, int32(1), accepted.Load())
}

func TestFetchImage_OptInFallbackRetriesOnce(t *testing.T) {
	if chromeH1Spec == nil {
		t.Skip("chrome hello spec unavailable")
	}
	addr, accepted := closingListener(t)
	cfg := testConfig()
	cfg.TLSFingerprint = true
	cfg.TLSFallback = true

	_, err := NewScraper(cfg).FetchImage(context.Background(), "https://"+addr+"/a.png")
	require.Error(t, err)
	assert.Equal(t, int32(2), accepted.Load())
}
