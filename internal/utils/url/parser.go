package urlutil

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ValidateURL checks that urlStr is an absolute http(s) URL
func ValidateURL(urlStr string) error {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: must be http or https, got %s", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("invalid URL: missing host")
	}

	return nil
}

// ResolveURL resolves a possibly-relative href against a base URL and returns a string
func ResolveURL(base, href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if u.IsAbs() {
		return href
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(u).String()
}

// StripFragment drops the #fragment part of a URL
func StripFragment(urlStr string) string {
	if i := strings.IndexByte(urlStr, '#'); i >= 0 {
		return urlStr[:i]
	}
	return urlStr
}

// PartitionURL joins the site base URL and a partition path
func PartitionURL(base, path string) string {
	base = strings.TrimRight(base, "/")
	if path == "" {
		return base + "/"
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

// PageURL returns the address of page n of a partition. Page 1 is the bare
// partition URL, later pages carry a page query parameter.
func PageURL(base, path string, n int) string {
	u := PartitionURL(base, path)
	if n <= 1 {
		return u
	}
	parsed, err := url.Parse(u)
	if err != nil {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		return u + sep + "page=" + strconv.Itoa(n)
	}
	q := parsed.Query()
	q.Set("page", strconv.Itoa(n))
	parsed.RawQuery = q.Encode()
	return parsed.String()
}

// LastSegment returns the last non-empty path segment of p
func LastSegment(p string) string {
	if u, err := url.Parse(p); err == nil && u.Path != "" {
		p = u.Path
	}
	parts := strings.Split(p, "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(parts[i]); s != "" {
			return s
		}
	}
	return ""
}
