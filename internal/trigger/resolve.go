package trigger

import (
	"net"
	"net/url"
	"strings"

	"github.com/Gaurav-Gosain/linkpeek/internal/config"
)

// ResolveHref returns the absolute http(s) URL for href, resolved against
// base when href is relative. ok is false for any other scheme or for input
// that does not parse.
func ResolveHref(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}
	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if !u.IsAbs() {
		if base == nil {
			return "", false
		}
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if u.Host == "" {
		return "", false
	}
	return u.String(), true
}

// NormalizeDraggedText turns a dragged selection into a URL. Text that looks
// like a URL or a bare domain is opened directly when autoOpen is set;
// anything else becomes a search query on engine.
func NormalizeDraggedText(text string, engine config.SearchEngine, autoOpen bool) (string, bool) {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return "", false
	}
	if autoOpen {
		if u, ok := textAsURL(text); ok {
			return u, true
		}
	}
	return engine.QueryPrefix() + url.QueryEscape(text), true
}

func textAsURL(text string) (string, bool) {
	if strings.ContainsAny(text, " \t") {
		return "", false
	}
	lower := strings.ToLower(text)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return ResolveHref(nil, text)
	}
	host := text
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if !config.ValidDomain(host) {
		return "", false
	}
	return ResolveHref(nil, "https://"+text)
}

// HostMatches reports whether rawURL's host is one of domains or a subdomain
// of one.
func HostMatches(rawURL string, domains []string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return hostIn(u.Hostname(), domains)
}

func hostIn(host string, domains []string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" {
		return false
	}
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
