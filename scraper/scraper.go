package scraper

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/use-agent/bannergrab/config"
	"github.com/use-agent/bannergrab/models"
	"golang.org/x/net/html"
)

// fallbackTTL is how long a host stays on the plain client after its TLS
// stack rejected the fingerprinted handshake.
const fallbackTTL = 24 * time.Hour

// Scraper fetches pages and images for banner runs.
// It is safe for concurrent use; connections are pooled across calls.
//
// Every fetch is a single attempt. With TLSFingerprint and TLSFallback both
// on, a transport-level failure of the fingerprinted client is retried once
// with standard TLS and the host is remembered, so its later requests skip
// the fingerprint.
type Scraper struct {
	cfg     config.ScraperConfig
	primary fetcher
	plain   fetcher // nil unless TLSFallback applies
	hosts   *hostMemory
}

// NewScraper creates a Scraper from cfg.
func NewScraper(cfg config.ScraperConfig) *Scraper {
	if cfg.UserAgent == "" {
		cfg.UserAgent = config.DefaultUserAgent
	}
	slog.Info("scraper initialised",
		"pageTimeout", cfg.PageTimeout,
		"imageTimeout", cfg.ImageTimeout,
		"tlsFingerprint", cfg.TLSFingerprint,
		"tlsFallback", cfg.TLSFallback,
		"proxy", cfg.Proxy != "",
	)
	s := &Scraper{
		cfg:     cfg,
		primary: newHTTPFetcher(cfg.Proxy, cfg.UserAgent, cfg.TLSFingerprint),
		hosts:   newHostMemory(fallbackTTL),
	}
	if cfg.TLSFallback && cfg.TLSFingerprint && cfg.Proxy == "" && chromeH1Spec != nil {
		s.plain = newHTTPFetcher(cfg.Proxy, cfg.UserAgent, false)
	}
	return s
}

// fetch picks the client for targetURL's host and falls back to the plain
// client on a transport failure of the fingerprinted one.
func (s *Scraper) fetch(ctx context.Context, targetURL, accept string, maxBytes int64) (*fetchResult, error) {
	if s.plain == nil {
		return s.primary.fetch(ctx, targetURL, accept, maxBytes)
	}

	host := hostOf(targetURL)
	if host != "" && s.hosts.plain(host) {
		res, err := s.plain.fetch(ctx, targetURL, accept, maxBytes)
		var te *transportError
		if errors.As(err, &te) {
			s.hosts.forget(host)
		}
		return res, err
	}

	res, err := s.primary.fetch(ctx, targetURL, accept, maxBytes)
	var te *transportError
	if err == nil || !errors.As(err, &te) || ctx.Err() != nil {
		return res, err
	}

	slog.Debug("fingerprinted fetch failed, retrying with standard TLS", "url", targetURL, "error", err)
	res, perr := s.plain.fetch(ctx, targetURL, accept, maxBytes)
	if perr != nil {
		return nil, perr
	}
	if host != "" {
		s.hosts.remember(host)
	}
	return res, nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// FetchPage downloads an HTML page under the page timeout. Every failure is
// a *models.ScrapeError with ErrCodeTimeout or ErrCodeNetwork.
func (s *Scraper) FetchPage(ctx context.Context, pageURL string) (*Page, error) {
	if s.cfg.PageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.PageTimeout)
		defer cancel()
	}

	res, err := s.fetch(ctx, pageURL, acceptHTML, s.cfg.MaxPageBytes)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, models.NewScrapeError(models.ErrCodeTimeout, "page fetch timed out: "+pageURL, err)
		}
		return nil, models.NewScrapeError(models.ErrCodeNetwork, "page fetch failed: "+pageURL, err)
	}

	return &Page{
		HTML:       string(res.body),
		Title:      extractTitle(res.body),
		FinalURL:   res.finalURL,
		StatusCode: res.statusCode,
	}, nil
}

// FetchImage downloads one image under the (shorter) image timeout.
func (s *Scraper) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	if s.cfg.ImageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ImageTimeout)
		defer cancel()
	}
	res, err := s.fetch(ctx, imageURL, acceptImage, s.cfg.MaxImageBytes)
	if err != nil {
		return nil, err
	}
	return res.body, nil
}

// extractTitle extracts the <title> content from raw HTML bytes.
func extractTitle(body []byte) string {
	tokenizer := html.NewTokenizer(bytes.NewReader(body))
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "title" {
				if tokenizer.Next() == html.TextToken {
					return strings.TrimSpace(string(tokenizer.Text()))
				}
				return ""
			}
		}
	}
}
