// Package extract turns a loaded rendering surface into an immutable
// ContentSnapshot, or fails explicitly.
//
// Three strategies run as an ordered fallback chain. The structured strategy
// pulls the rendered markup out of the surface and locates the main content
// container through prioritized selectors, semantic landmarks, and text
// density scoring. The simple strategy falls back to the full visible text of
// the document. The proxied strategy handles surfaces that refuse script
// execution by fetching the address over plain HTTP instead.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/hazyhaar/carnet/surface"
)

// Strategy names recorded on snapshots.
const (
	StrategyStructured = "structured"
	StrategySimple     = "simple"
	StrategyProxied    = "proxied"
)

// contentSelectors locate a main-content container, tried in order. The
// first selector with a qualifying match wins.
var contentSelectors = []string{
	"article",
	"main",
	"div[role=main]",
	"#content",
	"#main-content",
	".post-content",
	".article-body",
	".entry-content",
	".article-content",
	".story-body",
	".content",
}

// Config configures the engine.
type Config struct {
	// MinTextLen is the canonical minimum extracted-text length. Anything
	// shorter fails with KindInsufficientContent. Default: 200.
	MinTextLen int `yaml:"min_text_len"`
	// MaxLinks bounds the de-duplicated outbound link set. Default: 50.
	MaxLinks int `yaml:"max_links"`
	// UserAgent is sent on proxied fetches.
	UserAgent string `yaml:"user_agent"`

	HTTPClient *http.Client `yaml:"-"`
	Logger     *slog.Logger `yaml:"-"`
}

func (c *Config) defaults() {
	if c.MinTextLen <= 0 {
		c.MinTextLen = 200
	}
	if c.MaxLinks <= 0 {
		c.MaxLinks = 50
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Engine produces content snapshots from rendering surfaces. Safe for
// concurrent use.
type Engine struct {
	cfg      Config
	sanitize *bluemonday.Policy
	fetch    *fetcher
	logger   *slog.Logger
}

// New creates an Engine.
func New(cfg Config) *Engine {
	cfg.defaults()
	return &Engine{
		cfg:      cfg,
		sanitize: bluemonday.UGCPolicy(),
		fetch:    newFetcher(cfg.HTTPClient, cfg.UserAgent),
		logger:   cfg.Logger,
	}
}

// pageScript pulls the rendered document out of the surface in one round
// trip. It only reads; the page is never mutated.
const pageScript = `({url: location.href, title: document.title, html: document.documentElement.outerHTML})`

type pageDoc struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	HTML  string `json:"html"`
}

// Extract runs the strategy chain against a loaded surface and returns a
// snapshot whose URL is the surface's resolved address.
func (e *Engine) Extract(ctx context.Context, surf surface.Surface, pageURL string) (*ContentSnapshot, error) {
	raw, err := surf.Eval(ctx, pageScript)
	if err != nil {
		if errors.Is(err, surface.ErrScriptUnavailable) {
			e.logger.Debug("extract: script execution unavailable, proxying", "url", pageURL)
			return e.extractProxied(ctx, pageURL)
		}
		return nil, &Error{Kind: KindInvalidContent, URL: pageURL, Err: err}
	}

	var doc pageDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &Error{Kind: KindInvalidContent, URL: pageURL,
			Err: fmt.Errorf("decode page payload: %w", err)}
	}
	if strings.TrimSpace(doc.HTML) == "" {
		return nil, &Error{Kind: KindInvalidContent, URL: pageURL,
			Err: errors.New("empty document markup")}
	}
	if doc.URL == "" {
		doc.URL = pageURL
	}

	return e.fromMarkup(doc.URL, doc.Title, []byte(doc.HTML), false)
}

// extractProxied is the tertiary strategy: a host-mediated HTTP fetch for
// surfaces that restrict script execution.
func (e *Engine) extractProxied(ctx context.Context, pageURL string) (*ContentSnapshot, error) {
	body, err := e.fetch.fetch(ctx, pageURL)
	if err != nil {
		return nil, &Error{Kind: KindRestrictedAccess, URL: pageURL, Err: err}
	}
	if !isSufficient(body, e.cfg.MinTextLen) {
		return nil, &Error{Kind: KindInsufficientContent, URL: pageURL,
			Err: errors.New("fetched markup has too little visible text")}
	}
	return e.fromMarkup(pageURL, "", body, true)
}

// fromMarkup parses markup and applies the structured strategy, then the
// simple one. proxied only changes the strategy recorded on the snapshot.
func (e *Engine) fromMarkup(pageURL, title string, markup []byte, proxied bool) (*ContentSnapshot, error) {
	doc, err := html.Parse(bytes.NewReader(markup))
	if err != nil {
		return nil, &Error{Kind: KindInvalidContent, URL: pageURL, Err: err}
	}
	if title == "" {
		title = documentTitle(doc)
	}
	base, _ := url.Parse(pageURL)

	strategy := StrategyStructured
	container := e.findMainContainer(doc)

	var mainText string
	if container != nil {
		mainText = collectCleanText(container)
	}
	if len(mainText) < e.cfg.MinTextLen {
		// Secondary strategy: full visible text of the whole document.
		strategy = StrategySimple
		body := findBody(doc)
		if body == nil {
			body = doc
		}
		container = body
		mainText = collectCleanText(body)
	}
	if len(mainText) < e.cfg.MinTextLen {
		return nil, &Error{Kind: KindInsufficientContent, URL: pageURL,
			Err: fmt.Errorf("extracted %d chars, need %d", len(mainText), e.cfg.MinTextLen)}
	}
	if proxied {
		strategy = StrategyProxied
	}

	snap := &ContentSnapshot{
		URL:          pageURL,
		Title:        title,
		MainText:     mainText,
		ContentHTML:  e.sanitize.Sanitize(renderNode(container)),
		Headings:     collectHeadings(container),
		Links:        collectLinks(container, base, e.cfg.MaxLinks),
		Metadata:     collectMetadata(doc),
		CapturedAt:   time.Now(),
		StrategyUsed: strategy,
	}
	e.logger.Debug("extract: snapshot built",
		"url", pageURL, "strategy", strategy,
		"text_len", len(mainText), "headings", len(snap.Headings), "links", len(snap.Links))
	return snap, nil
}

// findMainContainer applies the prioritized selector list, then semantic
// landmarks, then density scoring. When multiple candidates match a selector
// the one with the most text wins, provided it clears the threshold.
func (e *Engine) findMainContainer(doc *html.Node) *html.Node {
	for _, sel := range contentSelectors {
		var best *html.Node
		bestLen := 0
		for _, n := range querySelectorAll(doc, sel) {
			if isBoilerplate(n) {
				continue
			}
			if l := len(collectCleanText(n)); l >= e.cfg.MinTextLen && l > bestLen {
				best, bestLen = n, l
			}
		}
		if best != nil {
			return best
		}
	}

	for _, n := range findContentByLandmarks(doc) {
		if !isBoilerplate(n) && len(collectCleanText(n)) >= e.cfg.MinTextLen {
			return n
		}
	}

	body := findBody(doc)
	if body == nil {
		body = doc
	}
	return findDensestNode(body, e.cfg.MinTextLen)
}
