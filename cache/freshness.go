package cache

import (
	"strings"
	"time"

	"github.com/webcache/webproxy/httpmsg"
)

// DefaultMaxAge is the conservative freshness lifetime used when a
// response carries neither Cache-Control max-age nor Expires.
const DefaultMaxAge = 60 * time.Second

// CacheControl holds the parsed directives of a Cache-Control header.
type CacheControl struct {
	m map[string]string
}

func (c CacheControl) Get(directive string) (string, bool) {
	val, ok := c.m[directive]
	return val, ok
}

func ParseCacheControl(header string) CacheControl {
	m := make(map[string]string)
	for _, directive := range strings.Split(header, ",") {
		directive = strings.TrimSpace(directive)
		if directive == "" {
			continue
		}
		parts := strings.SplitN(directive, "=", 2)
		var val string
		if len(parts) > 1 {
			val = strings.Trim(parts[1], `"`)
		}
		m[strings.ToLower(parts[0])] = val
	}
	return CacheControl{m}
}

// Storable reports whether a response may be stored at all:
// a 2xx status and no directive forbidding storage.
func Storable(res *httpmsg.Response) bool {
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return false
	}
	cc := ParseCacheControl(res.Header.Get("Cache-Control"))
	if _, ok := cc.Get("no-store"); ok {
		return false
	}
	if _, ok := cc.Get("no-cache"); ok {
		return false
	}
	return true
}

// Freshness returns the expiration time for a response stored at storedAt.
// Lifetime is taken from Cache-Control (s-maxage over max-age), then the
// Expires header, then the given fallback. An entry is stale, and treated
// as absent by Get, once the returned time has passed.
func Freshness(res *httpmsg.Response, storedAt time.Time, fallback time.Duration) time.Time {
	cc := ParseCacheControl(res.Header.Get("Cache-Control"))

	var maxAgeStr string
	if val, ok := cc.Get("s-maxage"); ok {
		maxAgeStr = val
	} else if val, ok := cc.Get("max-age"); ok {
		maxAgeStr = val
	}
	if maxAgeStr != "" {
		if maxAge, err := time.ParseDuration(maxAgeStr + "s"); err == nil {
			return storedAt.Add(maxAge)
		}
	}

	if expires := res.Header.Get("Expires"); expires != "" {
		if t, err := time.Parse(time.RFC1123, expires); err == nil {
			return t
		}
	}

	if fallback <= 0 {
		fallback = DefaultMaxAge
	}
	return storedAt.Add(fallback)
}
