package cache

import (
	"testing"
	"time"

	"github.com/webcache/webproxy/httpmsg"
)

func response(status int, headers ...[2]string) *httpmsg.Response {
	res := &httpmsg.Response{
		Proto:      "HTTP/1.1",
		StatusCode: status,
		Reason:     "OK",
	}
	for _, h := range headers {
		res.Header.Add(h[0], h[1])
	}
	return res
}

func TestStorableSuccess(t *testing.T) {
	if !Storable(response(200)) {
		t.Fatal("plain 200 should be storable")
	}
	if !Storable(response(204)) {
		t.Fatal("2xx should be storable")
	}
}

func TestStorableRejectsNonSuccess(t *testing.T) {
	for _, status := range []int{301, 304, 404, 500, 502} {
		if Storable(response(status)) {
			t.Fatalf("status %d should not be storable", status)
		}
	}
}

func TestStorableRejectsNoStore(t *testing.T) {
	if Storable(response(200, [2]string{"Cache-Control", "no-store"})) {
		t.Fatal("no-store should not be storable")
	}
	if Storable(response(200, [2]string{"Cache-Control", "max-age=60, no-cache"})) {
		t.Fatal("no-cache should not be storable")
	}
}

func TestFreshnessMaxAge(t *testing.T) {
	storedAt := time.Now()
	expires := Freshness(response(200, [2]string{"Cache-Control", "max-age=120"}), storedAt, time.Minute)
	if got := expires.Sub(storedAt); got != 2*time.Minute {
		t.Fatalf("lifetime is %s", got)
	}
}

func TestFreshnessPrefersSMaxAge(t *testing.T) {
	storedAt := time.Now()
	expires := Freshness(response(200, [2]string{"Cache-Control", "max-age=10, s-maxage=300"}), storedAt, time.Minute)
	if got := expires.Sub(storedAt); got != 5*time.Minute {
		t.Fatalf("lifetime is %s", got)
	}
}

func TestFreshnessExpiresHeader(t *testing.T) {
	storedAt := time.Now()
	want := storedAt.Add(time.Hour).UTC().Truncate(time.Second)
	expires := Freshness(response(200, [2]string{"Expires", want.Format(time.RFC1123)}), storedAt, time.Minute)
	if !expires.Equal(want) {
		t.Fatalf("expiry is %s, want %s", expires, want)
	}
}

func TestFreshnessFallback(t *testing.T) {
	storedAt := time.Now()
	expires := Freshness(response(200), storedAt, 45*time.Second)
	if got := expires.Sub(storedAt); got != 45*time.Second {
		t.Fatalf("lifetime is %s", got)
	}
}

func TestFreshnessDefault(t *testing.T) {
	storedAt := time.Now()
	expires := Freshness(response(200), storedAt, 0)
	if got := expires.Sub(storedAt); got != DefaultMaxAge {
		t.Fatalf("lifetime is %s", got)
	}
}

func TestParseCacheControl(t *testing.T) {
	cc := ParseCacheControl("public, max-age=3600, no-transform")
	if val, ok := cc.Get("max-age"); !ok || val != "3600" {
		t.Fatalf("max-age is %q (ok=%v)", val, ok)
	}
	if _, ok := cc.Get("public"); !ok {
		t.Fatal("public directive missing")
	}
	if _, ok := cc.Get("no-store"); ok {
		t.Fatal("no-store should be absent")
	}
}
