package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hazyhaar/carnet/idgen"
	"github.com/hazyhaar/carnet/kit"
)

func TestRequestContext_GeneratesAndEchoesID(t *testing.T) {
	var seen string
	h := requestContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = kit.GetRequestID(r.Context())
		if tr := kit.GetTransport(r.Context()); tr != "http" {
			t.Errorf("transport: got %q", tr)
		}
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	if seen == "" {
		t.Fatal("no request ID in context")
	}
	if got := rec.Header().Get("X-Request-ID"); got != seen {
		t.Errorf("header: got %q, context has %q", got, seen)
	}
}

func TestRequestContext_ClientSuppliedID(t *testing.T) {
	var seen string
	h := requestContext(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = kit.GetRequestID(r.Context())
	}))

	id := idgen.New()
	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Request-ID", id)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != id {
		t.Errorf("valid client ID not kept: got %q, want %q", seen, id)
	}

	req = httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Request-ID", "not-a-uuid")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen == "not-a-uuid" {
		t.Error("invalid client ID accepted")
	}
}
