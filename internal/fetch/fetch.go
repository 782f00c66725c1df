// Package fetch loads the pages shown in preview windows.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/Gaurav-Gosain/linkpeek/internal/config"
	"github.com/Gaurav-Gosain/linkpeek/internal/logging"
	readability "github.com/go-shiori/go-readability"
)

var (
	// ErrUnsupportedURL is returned for anything but http and https.
	ErrUnsupportedURL = errors.New("fetch: unsupported url")
	// ErrEmbedRefused is returned when the page forbids being framed.
	ErrEmbedRefused = errors.New("fetch: page refuses to be embedded")
)

// MaxBodySize caps how much of a response is read.
const MaxBodySize = 8 << 20

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// StatusError is returned for responses with status 400 and above.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.Code)
}

// Page is a raw HTML response.
type Page struct {
	// URL is the final URL after redirects.
	URL    string
	Header http.Header
	HTML   []byte
}

// Article is the readable part of a page.
type Article struct {
	URL   string
	Title string
	Text  string
}

// Client fetches pages.
type Client struct {
	http *http.Client
	log  logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New returns a client with the default timeout.
func New(opts ...Option) *Client {
	c := &Client{
		http: &http.Client{Timeout: config.DefaultFetchTimeout},
		log:  logging.Noop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func checkURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedURL, raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, raw)
	}
	return u, nil
}

func (c *Client) do(ctx context.Context, raw string) (*http.Response, error) {
	u, err := checkURL(raw)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", raw, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", raw, err)
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, &StatusError{URL: raw, Code: resp.StatusCode}
	}
	return resp, nil
}

// Page downloads raw HTML.
func (c *Client) Page(ctx context.Context, raw string) (*Page, error) {
	start := time.Now()
	resp, err := c.do(ctx, raw)
	if err != nil {
		c.log.Debug("page fetch failed", "url", raw, "err", err)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", raw, err)
	}
	c.log.Debug("page fetched", "url", raw, "bytes", len(body), "took", time.Since(start))
	return &Page{URL: resp.Request.URL.String(), Header: resp.Header, HTML: body}, nil
}

// Readable downloads a page and extracts its article text.
func (c *Client) Readable(ctx context.Context, raw string) (*Article, error) {
	p, err := c.Page(ctx, raw)
	if err != nil {
		return nil, err
	}
	return Extract(p)
}

// Extract runs readability over a downloaded page.
func Extract(p *Page) (*Article, error) {
	base, _ := url.Parse(p.URL)
	article, err := readability.FromReader(bytes.NewReader(p.HTML), base)
	if err != nil {
		return nil, fmt.Errorf("extract readable content from %s: %w", p.URL, err)
	}
	return &Article{
		URL:   p.URL,
		Title: strings.TrimSpace(article.Title),
		Text:  strings.TrimSpace(article.TextContent),
	}, nil
}

// CheckFraming checks whether raw may be shown in a frame. It returns
// ErrEmbedRefused when the response headers forbid it.
func (c *Client) CheckFraming(ctx context.Context, raw string) error {
	resp, err := c.do(ctx, raw)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if FrameRefused(resp.Header) {
		return fmt.Errorf("%w: %s", ErrEmbedRefused, raw)
	}
	return nil
}

// FrameRefused reports whether the headers forbid embedding the page in a
// frame on another origin.
func FrameRefused(h http.Header) bool {
	for _, v := range h.Values("X-Frame-Options") {
		switch strings.ToUpper(strings.TrimSpace(v)) {
		case "DENY", "SAMEORIGIN":
			return true
		}
	}
	for _, policy := range h.Values("Content-Security-Policy") {
		for _, directive := range strings.Split(policy, ";") {
			fields := strings.Fields(strings.ToLower(directive))
			if len(fields) == 0 || fields[0] != "frame-ancestors" {
				continue
			}
			sources := fields[1:]
			if len(sources) == 0 || slices.Contains(sources, "'none'") {
				return true
			}
			if len(sources) == 1 && sources[0] == "'self'" {
				return true
			}
		}
	}
	return false
}
