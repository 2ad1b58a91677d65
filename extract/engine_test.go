package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hazyhaar/carnet/surface"
)

// evalSurface implements surface.Surface with a scripted Eval result.
type evalSurface struct {
	result  any
	evalErr error
}

func (s *evalSurface) NavigateTo(context.Context, string) error { return nil }
func (s *evalSurface) Stop(context.Context) error               { return nil }
func (s *evalSurface) Reload(context.Context) error             { return nil }
func (s *evalSurface) Status(context.Context) (*surface.Status, error) {
	return &surface.Status{}, nil
}
func (s *evalSurface) Eval(context.Context, string) (json.RawMessage, error) {
	if s.evalErr != nil {
		return nil, s.evalErr
	}
	raw, err := json.Marshal(s.result)
	if err != nil {
		return nil, err
	}
	return raw, nil
}
func (s *evalSurface) Events() <-chan surface.Event { return nil }
func (s *evalSurface) Reinit(context.Context) error { return nil }
func (s *evalSurface) Close() error                 { return nil }

func longParagraph(word string) string {
	return strings.TrimSpace(strings.Repeat(word+" lorem ipsum dolor sit amet consectetur. ", 12))
}

func articlePage() string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html><head>
<title>Test Article</title>
<meta name="description" content="A page about testing.">
<meta name="author" content="Jo Writer">
<meta property="og:site_name" content="Testing Weekly">
</head><body>
<nav><a href="/home">Home</a><a href="/about">About</a></nav>
<div class="sidebar">Trending now, subscribe to our newsletter for more.</div>
<article>
<h1>Test Article</h1>
<p>%s</p>
<h2>Details</h2>
<p>%s See <a href="/related-post">the related post</a> and
<a href="https://other.example/ref">an external reference</a>.</p>
<script>console.log("never extracted")</script>
</article>
<footer>Copyright notice and a very long legal disclaimer nobody reads.</footer>
</body></html>`, longParagraph("alpha"), longParagraph("beta"))
}

func TestExtract_StructuredStrategy(t *testing.T) {
	surf := &evalSurface{result: map[string]string{
		"url":   "https://example.com/post",
		"title": "Test Article",
		"html":  articlePage(),
	}}

	e := New(Config{})
	snap, err := e.Extract(context.Background(), surf, "https://example.com/post")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	if snap.StrategyUsed != StrategyStructured {
		t.Errorf("strategy: got %q, want structured", snap.StrategyUsed)
	}
	if snap.URL != "https://example.com/post" {
		t.Errorf("url: got %q", snap.URL)
	}
	if snap.Title != "Test Article" {
		t.Errorf("title: got %q", snap.Title)
	}
	if !strings.Contains(snap.MainText, "alpha lorem ipsum") {
		t.Error("main text missing article body")
	}
	if strings.Contains(snap.MainText, "Trending now") {
		t.Error("main text contains sidebar boilerplate")
	}
	if strings.Contains(snap.MainText, "never extracted") {
		t.Error("main text contains script content")
	}

	if len(snap.Headings) != 2 || snap.Headings[0].Level != 1 || snap.Headings[1].Text != "Details" {
		t.Errorf("headings: got %+v", snap.Headings)
	}

	wantLinks := map[string]bool{
		"https://example.com/related-post": true,
		"https://other.example/ref":        true,
	}
	if len(snap.Links) != len(wantLinks) {
		t.Fatalf("links: got %+v", snap.Links)
	}
	for _, l := range snap.Links {
		if !wantLinks[l.URL] {
			t.Errorf("unexpected link %q", l.URL)
		}
	}

	if snap.Metadata["description"] != "A page about testing." {
		t.Errorf("metadata description: got %q", snap.Metadata["description"])
	}
	if snap.Metadata["author"] != "Jo Writer" {
		t.Errorf("metadata author: got %q", snap.Metadata["author"])
	}
	if snap.CapturedAt.IsZero() {
		t.Error("captured_at not set")
	}
	if strings.Contains(snap.ContentHTML, "<script") {
		t.Error("content html not sanitized")
	}
}

func TestExtract_SimpleFallback(t *testing.T) {
	page := fmt.Sprintf(`<html><head><title>Plain</title></head>
<body><p>%s</p><p>%s</p></body></html>`, longParagraph("gamma"), longParagraph("delta"))
	surf := &evalSurface{result: map[string]string{
		"url": "https://example.com/plain", "title": "Plain", "html": page,
	}}

	e := New(Config{})
	snap, err := e.Extract(context.Background(), surf, "https://example.com/plain")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if snap.StrategyUsed != StrategySimple {
		t.Errorf("strategy: got %q, want simple", snap.StrategyUsed)
	}
	if !strings.Contains(snap.MainText, "gamma lorem ipsum") {
		t.Error("main text missing body content")
	}
}

func TestExtract_InsufficientContent(t *testing.T) {
	surf := &evalSurface{result: map[string]string{
		"url": "https://example.com/thin", "title": "Thin",
		"html": "<html><body><p>almost nothing here</p></body></html>",
	}}

	e := New(Config{})
	_, err := e.Extract(context.Background(), surf, "https://example.com/thin")
	if !IsKind(err, KindInsufficientContent) {
		t.Fatalf("got %v, want insufficient-content", err)
	}
}

func TestExtract_InvalidContent(t *testing.T) {
	surf := &evalSurface{result: map[string]string{
		"url": "https://example.com/empty", "title": "", "html": "   ",
	}}

	e := New(Config{})
	_, err := e.Extract(context.Background(), surf, "https://example.com/empty")
	if !IsKind(err, KindInvalidContent) {
		t.Fatalf("got %v, want invalid-content", err)
	}
}

func TestExtract_ProxiedStrategy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articlePage())
	}))
	defer srv.Close()

	surf := &evalSurface{evalErr: surface.ErrScriptUnavailable}
	e := New(Config{HTTPClient: srv.Client()})

	snap, err := e.Extract(context.Background(), surf, srv.URL+"/post")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if snap.StrategyUsed != StrategyProxied {
		t.Errorf("strategy: got %q, want proxied", snap.StrategyUsed)
	}
	if snap.Title != "Test Article" {
		t.Errorf("title: got %q", snap.Title)
	}
	if !strings.Contains(snap.MainText, "alpha lorem ipsum") {
		t.Error("main text missing article body")
	}
}

func TestExtract_RestrictedAccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	surf := &evalSurface{evalErr: surface.ErrScriptUnavailable}
	e := New(Config{HTTPClient: srv.Client()})

	_, err := e.Extract(context.Background(), surf, srv.URL+"/blocked")
	if !IsKind(err, KindRestrictedAccess) {
		t.Fatalf("got %v, want restricted-access", err)
	}
}

func TestIsSufficient(t *testing.T) {
	shell := []byte(`<html><head><script src="/bundle.js"></script></head>` +
		`<body><div id="root"></div></body></html>` + strings.Repeat("<!-- pad -->", 50))
	if isSufficient(shell, 200) {
		t.Error("SPA shell reported sufficient")
	}

	full := []byte("<html><body><p>" + longParagraph("omega") + "</p></body></html>")
	if !isSufficient(full, 200) {
		t.Error("text-heavy page reported insufficient")
	}
}
