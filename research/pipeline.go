// Package research turns content snapshots into a durable, analyzable,
// exportable record of captured pages.
//
// The pipeline holds the live entry list in memory, most recently captured
// first. Analysis attaches an LLM summary to an entry; Save persists the
// entry to the knowledge store. Both are optional, independent, and never
// remove an entry on failure.
package research

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/hazyhaar/carnet/extract"
	"github.com/hazyhaar/carnet/idgen"
	"github.com/hazyhaar/carnet/kit"
	"github.com/hazyhaar/carnet/llm"
	"github.com/hazyhaar/carnet/notify"
	"github.com/hazyhaar/carnet/store"
	"github.com/hazyhaar/carnet/surface"
)

// ErrNotFound is returned when an entry id does not exist.
var ErrNotFound = errors.New("research: entry not found")

// ErrInactive is returned by ProcessPage while research mode is off.
var ErrInactive = errors.New("research: research mode not active")

// Config configures the pipeline.
type Config struct {
	// AutoAnalyze triggers analysis immediately after each capture.
	AutoAnalyze bool `yaml:"auto_analyze"`
	// PromptTextLimit caps the page text embedded in analysis prompts.
	// Default: 8000 characters.
	PromptTextLimit int `yaml:"prompt_text_limit"`

	Logger *slog.Logger `yaml:"-"`
}

func (c *Config) defaults() {
	if c.PromptTextLimit <= 0 {
		c.PromptTextLimit = 8000
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Pipeline owns the research entry collection.
type Pipeline struct {
	cfg      Config
	engine   *extract.Engine
	llm      *llm.Client
	store    *store.Store
	notifier notify.Notifier
	newID    idgen.Generator
	logger   *slog.Logger

	mu          sync.Mutex
	active      bool
	entries     []*Entry // most recently captured first
	latest      *extract.ContentSnapshot
	latestTitle string
}

// New creates a Pipeline. The store and notifier may be nil; Save then fails
// and notifications go nowhere.
func New(engine *extract.Engine, client *llm.Client, st *store.Store, n notify.Notifier, cfg Config) *Pipeline {
	cfg.defaults()
	if n == nil {
		n = notify.NewLog(cfg.Logger)
	}
	return &Pipeline{
		cfg:      cfg,
		engine:   engine,
		llm:      client,
		store:    st,
		notifier: n,
		newID:    idgen.Prefixed("ent_", idgen.Default),
		logger:   cfg.Logger,
	}
}

// Active reports whether research mode is on.
func (p *Pipeline) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Toggle flips research mode and returns the new state. Turning the mode on
// while a page is already captured records that page immediately.
func (p *Pipeline) Toggle(ctx context.Context) bool {
	p.mu.Lock()
	p.active = !p.active
	on := p.active
	snap, title := p.latest, p.latestTitle
	p.mu.Unlock()

	if on && snap != nil {
		p.record(ctx, snap, title)
	}
	return on
}

// SetActive sets research mode explicitly.
func (p *Pipeline) SetActive(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = on
}

// Capture extracts the given surface regardless of research mode: every
// loaded page yields a snapshot. The snapshot is remembered as the current
// page so a later activation can pick it up; when research mode is active an
// entry is recorded as well. With the mode off the returned entry is nil.
func (p *Pipeline) Capture(ctx context.Context, surf surface.Surface, url, title string) (*Entry, error) {
	snap, err := p.engine.Extract(ctx, surf, url)
	if err != nil {
		return nil, fmt.Errorf("research: capture: %w", err)
	}

	p.mu.Lock()
	p.latest = snap
	p.latestTitle = title
	active := p.active
	p.mu.Unlock()

	if !active {
		return nil, nil
	}
	return p.record(ctx, snap, title), nil
}

// ProcessPage extracts the given surface and prepends a new entry. The title
// argument overrides the snapshot title when non-empty. Extraction failure
// creates no entry.
func (p *Pipeline) ProcessPage(ctx context.Context, surf surface.Surface, url, title string) (*Entry, error) {
	if !p.Active() {
		return nil, ErrInactive
	}

	snap, err := p.engine.Extract(ctx, surf, url)
	if err != nil {
		return nil, fmt.Errorf("research: process page: %w", err)
	}

	p.mu.Lock()
	p.latest = snap
	p.latestTitle = title
	p.mu.Unlock()

	return p.record(ctx, snap, title), nil
}

// record prepends a new entry built from snap. With AutoAnalyze on, analysis
// runs in the background and attaches its result or error to the entry.
func (p *Pipeline) record(ctx context.Context, snap *extract.ContentSnapshot, title string) *Entry {
	if title == "" {
		title = snap.Title
	}
	entry := &Entry{
		ID:        p.newID(),
		URL:       snap.URL,
		Title:     title,
		Timestamp: time.Now(),
		Snapshot:  snap,
	}

	p.mu.Lock()
	p.entries = append([]*Entry{entry}, p.entries...)
	p.mu.Unlock()

	p.logger.Info("research: captured", "id", entry.ID, "url", entry.URL,
		"strategy", snap.StrategyUsed, "transport", kit.GetTransport(ctx),
		"request_id", kit.GetRequestID(ctx))

	if p.cfg.AutoAnalyze {
		go func() {
			if err := p.Analyze(context.WithoutCancel(ctx), entry.ID); err != nil {
				p.logger.Warn("research: auto-analysis failed", "id", entry.ID, "error", err)
			}
		}()
	}
	return entry.clone()
}

// Analyze builds a prompt from an entry's title, URL, and truncated text,
// sends it to the analysis client, and attaches the result. On failure the
// entry gets a recoverable error field and stays in the collection.
// Concurrent calls on one entry are last-write-wins.
func (p *Pipeline) Analyze(ctx context.Context, id string) error {
	entry := p.lookup(id)
	if entry == nil {
		return ErrNotFound
	}

	text, err := p.llm.SendMessage(ctx, p.analysisPrompt(entry), nil)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		entry.Error = err.Error()
		return fmt.Errorf("research: analyze %s: %w", id, err)
	}
	entry.Analysis = &Analysis{Text: text, Timestamp: time.Now()}
	entry.Error = ""
	p.logger.Info("research: analyzed", "id", id, "chars", len(text))
	return nil
}

func (p *Pipeline) analysisPrompt(e *Entry) string {
	text := truncate(e.Snapshot.MainText, p.cfg.PromptTextLimit)
	return fmt.Sprintf(
		"Analyze the following page and summarize its key points, notable claims, and anything worth following up on.\n\nTitle: %s\nURL: %s\n\n%s",
		e.Title, e.URL, text)
}

// truncate caps s at limit bytes, backing up so a multi-byte rune is never
// split mid-sequence.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

// Save persists an entry to the knowledge store. Failure propagates to the
// caller without retry.
func (p *Pipeline) Save(ctx context.Context, id string) error {
	entry := p.lookup(id)
	if entry == nil {
		return ErrNotFound
	}
	if p.store == nil {
		return store.ErrSaveFailed
	}

	p.mu.Lock()
	rec := &store.Entry{
		ID:         entry.ID,
		URL:        entry.URL,
		Title:      entry.Title,
		Text:       entry.Snapshot.MainText,
		HTML:       entry.Snapshot.ContentHTML,
		CapturedAt: entry.Snapshot.CapturedAt.UnixMilli(),
	}
	if entry.Analysis != nil {
		rec.Analysis = entry.Analysis.Text
	}
	for _, h := range entry.Snapshot.Headings {
		rec.Headings = append(rec.Headings, store.Heading{Level: h.Level, Text: h.Text})
	}
	p.mu.Unlock()

	if err := p.store.SaveEntry(ctx, rec); err != nil {
		p.notifier.Show("Failed to save research entry: "+err.Error(), notify.LevelError)
		return err
	}

	p.mu.Lock()
	entry.SavedToStore = true
	entry.SaveTimestamp = time.Now()
	p.mu.Unlock()

	p.logger.Info("research: saved", "id", id)
	p.notifier.Show("Research entry saved", notify.LevelInfo)
	return nil
}

// Clear empties the entry collection.
func (p *Pipeline) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = nil
}

// Entries returns the collection, most recently captured first.
func (p *Pipeline) Entries() []*Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Entry, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.clone()
	}
	return out
}

// Entry returns one entry by id, or nil.
func (p *Pipeline) Entry(id string) *Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e := p.lookupLocked(id); e != nil {
		return e.clone()
	}
	return nil
}

func (p *Pipeline) lookup(id string) *Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lookupLocked(id)
}

func (p *Pipeline) lookupLocked(id string) *Entry {
	for _, e := range p.entries {
		if e.ID == id {
			return e
		}
	}
	return nil
}
