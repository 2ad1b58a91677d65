// Package nav drives a rendering surface to a requested address and reliably
// reports completion.
//
// The host surface sometimes fails to emit its load-stop event, so completion
// is detected by racing two independent sources: the surface event stream and
// a redundant direct-readiness poll, both bounded by a hard timeout. The
// first reporter wins; the loser is cancelled via the session context.
//
// Session state is a single-owner struct replaced wholesale on each
// Navigate call. A generation counter makes a superseded session's callbacks
// no-ops even when its detector goroutine races the replacement.
package nav

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/carnet/idgen"
	"github.com/hazyhaar/carnet/surface"
)

// Config configures the controller.
type Config struct {
	// LoadTimeout is the hard completion budget. Default: 8s.
	LoadTimeout time.Duration `yaml:"load_timeout"`
	// PollInterval is the redundant readiness-poll cadence. Default: 250ms.
	PollInterval time.Duration `yaml:"poll_interval"`
	// MaxReinit caps automatic surface reinitialisations after genuine
	// failures. Default: 3.
	MaxReinit int `yaml:"max_reinit"`
	// ReinitBackoff is the backoff base; attempt n waits base * 2^n.
	// Default: 500ms.
	ReinitBackoff time.Duration `yaml:"reinit_backoff"`
	// SearchURL receives dot-free or space-containing input. Default:
	// DefaultSearchURL.
	SearchURL string `yaml:"search_url"`

	Logger *slog.Logger `yaml:"-"`
}

func (c *Config) defaults() {
	if c.LoadTimeout <= 0 {
		c.LoadTimeout = 8 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 250 * time.Millisecond
	}
	if c.MaxReinit <= 0 {
		c.MaxReinit = 3
	}
	if c.ReinitBackoff <= 0 {
		c.ReinitBackoff = 500 * time.Millisecond
	}
	if c.SearchURL == "" {
		c.SearchURL = DefaultSearchURL
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Hooks are the controller's outbound notifications. All fields are optional.
// Hooks run on the detector goroutine; keep them brief or hand off.
type Hooks struct {
	// OnLoaded fires once per session that reaches Loaded, with the resolved
	// address and document title.
	OnLoaded func(ctx context.Context, url, title string)
	// OnFailed fires on a genuine load failure with the recoverable error
	// view. Aborted navigations never reach it.
	OnFailed func(view *ErrorView)
	// OnLoadingCleared fires when a timed-out session is soft-completed so
	// the UI can drop its loading indicator.
	OnLoadingCleared func()
}

// Controller owns one rendering surface's navigation lifecycle.
type Controller struct {
	surf   surface.Surface
	cfg    Config
	hooks  Hooks
	newID  idgen.Generator
	logger *slog.Logger

	// baseCtx scopes all sessions; cancelled on Close.
	baseCtx  context.Context
	baseStop context.CancelFunc

	mu       sync.Mutex
	gen      uint64
	current  *session
	history  []HistoryEntry
	failures int // consecutive genuine failures, reset on success
}

// New creates a Controller bound to one surface.
func New(surf surface.Surface, cfg Config, hooks Hooks) *Controller {
	cfg.defaults()
	ctx, stop := context.WithCancel(context.Background())
	return &Controller{
		surf:     surf,
		cfg:      cfg,
		hooks:    hooks,
		newID:    idgen.Prefixed("nav_", idgen.Default),
		logger:   cfg.Logger,
		baseCtx:  ctx,
		baseStop: stop,
	}
}

// Navigate formats raw input into an address, invalidates any previous
// session, and starts a new one. It returns the new session snapshot
// immediately; completion is reported through hooks.
func (c *Controller) Navigate(raw string) *Session {
	target := FormatAddress(raw, c.cfg.SearchURL)

	c.mu.Lock()
	c.gen++
	gen := c.gen
	if c.current != nil && c.current.cancel != nil {
		c.current.cancel()
	}
	ctx, cancel := context.WithCancel(c.baseCtx)
	sess := &session{
		id:        c.newID(),
		targetURL: target,
		status:    StatusNavigating,
		startedAt: time.Now(),
		gen:       gen,
		cancel:    cancel,
	}
	c.current = sess
	snap := sess.snapshot()
	c.mu.Unlock()

	c.logger.Info("nav: navigating", "url", target, "session", sess.id)
	go c.run(ctx, sess, target)
	return snap
}

// Stop halts any in-flight navigation. With nothing in flight it is a no-op:
// state and timers are untouched.
func (c *Controller) Stop(ctx context.Context) {
	c.mu.Lock()
	sess := c.current
	if sess == nil || sess.status != StatusNavigating {
		c.mu.Unlock()
		return
	}
	sess.cancel()
	sess.status = StatusIdle
	c.mu.Unlock()

	if err := c.surf.Stop(ctx); err != nil {
		c.logger.Warn("nav: stop", "error", err)
	}
	if c.hooks.OnLoadingCleared != nil {
		c.hooks.OnLoadingCleared()
	}
}

// Refresh reissues the current target address.
func (c *Controller) Refresh() *Session {
	c.mu.Lock()
	var target string
	if c.current != nil {
		target = c.current.targetURL
	}
	c.mu.Unlock()
	if target == "" {
		return nil
	}
	return c.Navigate(target)
}

// Session returns a snapshot of the current session, or nil before the first
// Navigate call.
func (c *Controller) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	return c.current.snapshot()
}

// History returns completed loads, oldest first.
func (c *Controller) History() []HistoryEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]HistoryEntry, len(c.history))
	copy(out, c.history)
	return out
}

// Close cancels all sessions and detectors. The surface itself is owned by
// the caller.
func (c *Controller) Close() {
	c.baseStop()
}

// run is the per-session detector: it issues the load request and races the
// event stream against the redundant poll under the hard-timeout budget.
func (c *Controller) run(ctx context.Context, sess *session, target string) {
	navErr := make(chan error, 1)
	go func() { navErr <- c.surf.NavigateTo(ctx, target) }()

	timer := time.NewTimer(c.cfg.LoadTimeout)
	defer timer.Stop()
	poll := time.NewTicker(c.cfg.PollInterval)
	defer poll.Stop()

	events := c.surf.Events()
	timedOut := false

	for {
		select {
		case <-ctx.Done():
			return

		case err := <-navErr:
			if err != nil {
				c.fail(ctx, sess, target, err)
				return
			}
			// Request accepted; completion still pending.
			navErr = nil

		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Kind == surface.EventLoadStop {
				c.complete(ctx, sess, "event")
				return
			}

		case <-poll.C:
			if timedOut {
				continue
			}
			st := c.probe(ctx)
			if st != nil && st.Ready && st.URL != "" {
				c.completeWith(ctx, sess, st, "poll")
				return
			}

		case <-timer.C:
			// One last direct check; the common case is late completion,
			// not true failure.
			if st := c.probe(ctx); st != nil && st.Ready && st.URL != "" {
				c.completeWith(ctx, sess, st, "timeout-check")
				return
			}
			c.softComplete(sess)
			timedOut = true
			poll.Stop()
			// Keep listening: a late load-stop still upgrades TimedOut
			// to Loaded until the next Navigate supersedes this session.
		}
	}
}

// probe queries the surface directly with a short budget.
func (c *Controller) probe(ctx context.Context) *surface.Status {
	probeCtx, cancel := context.WithTimeout(ctx, c.cfg.PollInterval*4)
	defer cancel()
	st, err := c.surf.Status(probeCtx)
	if err != nil {
		return nil
	}
	return st
}

// complete resolves the final address and title, then finishes the session.
func (c *Controller) complete(ctx context.Context, sess *session, via string) {
	st := c.probe(ctx)
	if st == nil {
		st = &surface.Status{URL: sess.targetURL}
	}
	c.completeWith(ctx, sess, st, via)
}

func (c *Controller) completeWith(ctx context.Context, sess *session, st *surface.Status, via string) {
	c.mu.Lock()
	if sess.gen != c.gen {
		// Superseded while the detector was racing the replacement.
		c.mu.Unlock()
		return
	}
	if sess.status == StatusLoaded {
		c.mu.Unlock()
		return
	}
	sess.status = StatusLoaded
	sess.title = st.Title
	sess.finalURL = st.URL
	c.failures = 0
	c.history = append(c.history, HistoryEntry{
		URL:       st.URL,
		Title:     st.Title,
		Timestamp: time.Now(),
	})
	c.mu.Unlock()

	c.logger.Info("nav: loaded", "url", st.URL, "via", via,
		"elapsed", time.Since(sess.startedAt))
	if c.hooks.OnLoaded != nil {
		c.hooks.OnLoaded(ctx, st.URL, st.Title)
	}
}

// softComplete marks a session timed out and clears the loading indicator
// without reporting an error.
func (c *Controller) softComplete(sess *session) {
	c.mu.Lock()
	if sess.gen != c.gen || sess.status != StatusNavigating {
		c.mu.Unlock()
		return
	}
	sess.status = StatusTimedOut
	c.mu.Unlock()

	c.logger.Warn("nav: load timeout, soft-completing", "url", sess.targetURL)
	if c.hooks.OnLoadingCleared != nil {
		c.hooks.OnLoadingCleared()
	}
}

// fail handles a load-request error: aborted codes are swallowed, genuine
// failures render an error view and trigger the reinit/backoff policy.
func (c *Controller) fail(ctx context.Context, sess *session, target string, err error) {
	code := classify(err)
	if code == CodeAborted {
		c.logger.Debug("nav: aborted", "url", target)
		return
	}

	c.mu.Lock()
	if sess.gen != c.gen {
		c.mu.Unlock()
		return
	}
	sess.status = StatusFailed
	c.failures++
	attempt := c.failures
	sess.retryCount = attempt
	c.mu.Unlock()

	c.logger.Error("nav: load failed", "url", target, "error", err, "attempt", attempt)
	if c.hooks.OnFailed != nil {
		c.hooks.OnFailed(&ErrorView{Code: code, URL: target, Message: err.Error()})
	}

	if attempt > c.cfg.MaxReinit {
		c.logger.Error("nav: reinit budget exhausted", "failures", attempt)
		return
	}

	backoff := c.cfg.ReinitBackoff * (1 << (attempt - 1))
	select {
	case <-ctx.Done():
		return
	case <-time.After(backoff):
	}
	if err := c.surf.Reinit(ctx); err != nil {
		c.logger.Error("nav: surface reinit failed", "error", err)
	}
}
