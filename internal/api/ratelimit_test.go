package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func newFakeRequest(headers map[string]string) *http.Request {
	req := httptest.NewRequest("GET", "/land/states/", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

func TestIPLimiterAllowsUpToBurstThenBlocks(t *testing.T) {
	l := newIPLimiter(1, 2, 0)

	if !l.allow("1.2.3.4") {
		t.Fatal("expected first request to be allowed")
	}
	if !l.allow("1.2.3.4") {
		t.Fatal("expected second request (within burst) to be allowed")
	}
	if l.allow("1.2.3.4") {
		t.Fatal("expected third immediate request to be rate limited")
	}
}

func TestIPLimiterTracksIndependentBuckets(t *testing.T) {
	l := newIPLimiter(1, 1, 0)

	if !l.allow("1.1.1.1") {
		t.Fatal("expected first IP to be allowed")
	}
	if !l.allow("2.2.2.2") {
		t.Fatal("expected second IP to have its own bucket")
	}
}

func TestClientIPPrefersXForwardedFor(t *testing.T) {
	req := newFakeRequest(map[string]string{"X-Forwarded-For": "9.9.9.9, 1.1.1.1"})
	if got := clientIP(req); got != "9.9.9.9" {
		t.Errorf("clientIP = %q, want 9.9.9.9", got)
	}
}

func TestClientIPFallsBackToRemoteAddr(t *testing.T) {
	req := newFakeRequest(nil)
	req.RemoteAddr = "5.5.5.5:4000"
	if got := clientIP(req); got != "5.5.5.5" {
		t.Errorf("clientIP = %q, want 5.5.5.5", got)
	}
}
