package internal

import (
	"net/http"
	"net/url"
	"strings"
)

// fallbackOrigin is reported when no hosts are configured.
const fallbackOrigin = "http://invalid.local"

// Origins is the set of sites allowed to embed the service, taken from
// general.host.
type Origins struct {
	hosts []string
}

// NewOrigins normalizes hosts to scheme://host[:port]. Unparseable entries
// are skipped.
func NewOrigins(hosts []string) Origins {
	o := Origins{}
	for _, h := range hosts {
		if n, ok := normalizeOrigin(h); ok {
			o.hosts = append(o.hosts, n)
		}
	}
	return o
}

// Hosts returns the normalized origins in configuration order.
func (o Origins) Hosts() []string {
	return append([]string(nil), o.hosts...)
}

// Match returns the configured origin loc belongs to.
func (o Origins) Match(loc string) (string, bool) {
	n, ok := normalizeOrigin(loc)
	if !ok {
		return "", false
	}
	for _, h := range o.hosts {
		if h == n {
			return h, true
		}
	}
	return "", false
}

// Allowed reports whether origin is one of the configured hosts.
func (o Origins) Allowed(origin string) bool {
	_, ok := o.Match(origin)
	return ok
}

// Resolve picks the origin for r from its Origin or Referer header.
// Unknown or missing locations fall back to the first configured host.
func (o Origins) Resolve(r *http.Request) string {
	if len(o.hosts) == 0 {
		return fallbackOrigin
	}
	loc := r.Header.Get("Origin")
	if loc == "" {
		loc = r.Header.Get("Referer")
	}
	if h, ok := o.Match(loc); ok {
		return h
	}
	return o.hosts[0]
}

func normalizeOrigin(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	port := u.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		host += ":" + port
	}
	return scheme + "://" + host, true
}
