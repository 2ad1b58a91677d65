package surface

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Config configures the rod-backed surface host.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// Headless controls the Chrome mode. Default: true.
	Headless *bool

	// NavigateTimeout bounds a single NavigateTo call. Default: 30s.
	NavigateTimeout time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Headless == nil {
		v := true
		c.Headless = &v
	}
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Rod is a Surface backed by a headless Chrome page via go-rod.
// One Rod owns exactly one page; create one per rendering surface.
type Rod struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	page    *rod.Page
	closed  bool

	events chan Event
}

// NewRod launches (or connects to) Chrome and opens one stealth page.
func NewRod(ctx context.Context, cfg Config) (*Rod, error) {
	cfg.defaults()

	r := &Rod{
		cfg:    cfg,
		logger: cfg.Logger,
		events: make(chan Event, 64),
	}

	if err := r.launch(ctx); err != nil {
		return nil, err
	}
	if err := r.openPage(); err != nil {
		r.teardown()
		return nil, err
	}
	return r, nil
}

func (r *Rod) launch(_ context.Context) error {
	var wsURL string
	if r.cfg.RemoteURL != "" {
		wsURL = r.cfg.RemoteURL
		r.logger.Info("surface: connecting to remote chrome", "url", wsURL)
	} else {
		l := launcher.New().
			Headless(*r.cfg.Headless).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return fmt.Errorf("surface: launch: %w", err)
		}
		wsURL = u
		r.lnch = l
		r.logger.Info("surface: launched local chrome", "url", wsURL)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return fmt.Errorf("surface: connect: %w", err)
	}
	if err := b.IgnoreCertErrors(true); err != nil {
		r.logger.Warn("surface: ignore cert errors failed", "error", err)
	}
	r.browser = b
	return nil
}

// openPage creates the stealth page and wires lifecycle events onto the
// shared event channel.
func (r *Rod) openPage() error {
	page, err := stealth.Page(r.browser)
	if err != nil {
		return fmt.Errorf("surface: create page: %w", err)
	}
	r.page = page

	wait := page.EachEvent(
		func(e *proto.PageFrameStartedLoading) {
			r.emit(Event{Kind: EventLoadStart})
		},
		func(e *proto.PageLoadEventFired) {
			r.emit(Event{Kind: EventLoadStop})
		},
		func(e *proto.PageFrameNavigated) {
			if e.Frame != nil && e.Frame.ParentID == "" {
				r.emit(Event{Kind: EventNavigated, URL: e.Frame.URL})
			}
		},
	)
	go wait()
	return nil
}

// emit never blocks: if the consumer is behind, the oldest event is dropped.
// Completion detection tolerates lost events by design of the redundant poll.
func (r *Rod) emit(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.events <- ev:
	default:
		select {
		case <-r.events:
		default:
		}
		select {
		case r.events <- ev:
		default:
		}
	}
}

// NavigateTo issues the load request.
func (r *Rod) NavigateTo(ctx context.Context, url string) error {
	page := r.currentPage()
	if page == nil {
		return fmt.Errorf("surface: no active page")
	}
	navCtx, cancel := context.WithTimeout(ctx, r.cfg.NavigateTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(url); err != nil {
		return fmt.Errorf("surface: navigate %s: %w", url, err)
	}
	return nil
}

// Stop asks Chrome to halt the in-flight load.
func (r *Rod) Stop(ctx context.Context) error {
	page := r.currentPage()
	if page == nil {
		return fmt.Errorf("surface: no active page")
	}
	if err := (proto.PageStopLoading{}).Call(page.Context(ctx)); err != nil {
		return fmt.Errorf("surface: stop: %w", err)
	}
	return nil
}

// Reload reissues the current document.
func (r *Rod) Reload(ctx context.Context) error {
	page := r.currentPage()
	if page == nil {
		return fmt.Errorf("surface: no active page")
	}
	if err := page.Context(ctx).Reload(); err != nil {
		return fmt.Errorf("surface: reload: %w", err)
	}
	return nil
}

// Status probes the page directly. This is the poll path that compensates
// for load events the host fails to emit.
func (r *Rod) Status(ctx context.Context) (*Status, error) {
	raw, err := r.Eval(ctx, `() => ({
		url: location.href,
		title: document.title,
		ready: document.readyState === "complete" || document.readyState === "interactive",
	})`)
	if err != nil {
		return nil, err
	}
	var st Status
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("surface: status decode: %w", err)
	}
	return &st, nil
}

// Eval executes js in the page and returns the JSON-serialised result.
func (r *Rod) Eval(ctx context.Context, js string) (json.RawMessage, error) {
	page := r.currentPage()
	if page == nil {
		return nil, fmt.Errorf("surface: no active page")
	}
	res, err := page.Context(ctx).Eval(js)
	if err != nil {
		if isScriptUnavailable(err) {
			return nil, fmt.Errorf("%w: %v", ErrScriptUnavailable, err)
		}
		return nil, fmt.Errorf("surface: eval: %w", err)
	}
	data, err := json.Marshal(res.Value)
	if err != nil {
		return nil, fmt.Errorf("surface: eval encode: %w", err)
	}
	return data, nil
}

// Events returns the lifecycle event stream.
func (r *Rod) Events() <-chan Event {
	return r.events
}

// Reinit closes the current page and opens a fresh one against the same
// browser. The event channel is preserved.
func (r *Rod) Reinit(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("surface: closed")
	}
	if r.page != nil {
		r.page.Close()
		r.page = nil
	}
	if err := r.openPage(); err != nil {
		return err
	}
	r.logger.Info("surface: reinitialised page")
	return nil
}

// Close releases the page, browser and launcher, and closes the event stream.
func (r *Rod) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.teardown()
	close(r.events)
	return nil
}

func (r *Rod) currentPage() *rod.Page {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.page
}

func (r *Rod) teardown() {
	if r.page != nil {
		r.page.Close()
		r.page = nil
	}
	if r.browser != nil {
		r.browser.Close()
		r.browser = nil
	}
	if r.lnch != nil {
		r.lnch.Cleanup()
		r.lnch = nil
	}
}

// isScriptUnavailable classifies eval failures caused by a missing or
// restricted execution context rather than by the script itself.
func isScriptUnavailable(err error) bool {
	msg := err.Error()
	for _, probe := range []string{
		"Cannot find context",
		"Execution context was destroyed",
		"cross-origin",
		"Inspected target navigated or closed",
	} {
		if strings.Contains(msg, probe) {
			return true
		}
	}
	return false
}
