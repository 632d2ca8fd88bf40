package parse

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// NormalizeBaseURL standardizes the public base URL sitemap locations are built on.
// It requires an absolute http(s) URL, lowercases the scheme and host, removes default ports,
// drops query and fragment, and strips trailing slashes so "<base>/sitemap_x.xml" never doubles them.
func NormalizeBaseURL(raw string) (string, error) {
	parsed, err := url.ParseRequestURI(strings.TrimSpace(raw)) // Stricter parsing
	if err != nil {
		return "", err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("base URL '%s' must be absolute", raw)
	}

	normalized := *parsed
	normalized.Scheme = strings.ToLower(normalized.Scheme)
	normalized.Host = strings.ToLower(normalized.Host)
	if normalized.Scheme != "http" && normalized.Scheme != "https" {
		return "", fmt.Errorf("base URL '%s' must use http or https", raw)
	}

	host, port, err := net.SplitHostPort(normalized.Host)
	if err == nil {
		if (normalized.Scheme == "http" && port == "80") ||
			(normalized.Scheme == "https" && port == "443") {
			normalized.Host = host
		}
	}

	normalized.Path = strings.TrimRight(normalized.Path, "/")
	normalized.RawPath = ""
	normalized.Fragment = ""
	normalized.RawQuery = ""

	return normalized.String(), nil
}

// JoinURL appends a path to a normalized base URL with exactly one slash between them
func JoinURL(base, path string) string {
	if path == "" {
		return base
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
