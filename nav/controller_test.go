package nav

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hazyhaar/carnet/surface"
)

// fakeSurface is a scriptable rendering surface for controller tests.
type fakeSurface struct {
	mu        sync.Mutex
	events    chan surface.Event
	status    surface.Status
	statusErr error
	navErr    error
	navCalls  []string
	stopCalls int
	reinits   int
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{events: make(chan surface.Event, 16)}
}

func (f *fakeSurface) NavigateTo(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navCalls = append(f.navCalls, url)
	return f.navErr
}

func (f *fakeSurface) Stop(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	return nil
}

func (f *fakeSurface) Reload(context.Context) error { return nil }

func (f *fakeSurface) Status(context.Context) (*surface.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	st := f.status
	return &st, nil
}

func (f *fakeSurface) Eval(context.Context, string) (json.RawMessage, error) {
	return nil, surface.ErrScriptUnavailable
}

func (f *fakeSurface) Events() <-chan surface.Event { return f.events }

func (f *fakeSurface) Reinit(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reinits++
	return nil
}

func (f *fakeSurface) Close() error { return nil }

func (f *fakeSurface) setStatus(st surface.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = st
}

func fastConfig() Config {
	return Config{
		LoadTimeout:   300 * time.Millisecond,
		PollInterval:  10 * time.Millisecond,
		ReinitBackoff: 5 * time.Millisecond,
	}
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestNavigate_CompletesViaPoll(t *testing.T) {
	surf := newFakeSurface()
	surf.setStatus(surface.Status{URL: "https://example.com/", Title: "Example", Ready: true})

	loaded := make(chan struct{})
	var gotURL, gotTitle string
	c := New(surf, fastConfig(), Hooks{
		OnLoaded: func(_ context.Context, url, title string) {
			gotURL, gotTitle = url, title
			close(loaded)
		},
	})
	defer c.Close()

	sess := c.Navigate("example.com")
	if sess.TargetURL != "https://example.com" {
		t.Errorf("target: got %q, want normalized https URL", sess.TargetURL)
	}
	if sess.Status != StatusNavigating {
		t.Errorf("status: got %v, want navigating", sess.Status)
	}

	waitFor(t, loaded, "load")
	if gotURL != "https://example.com/" {
		t.Errorf("resolved url: got %q", gotURL)
	}
	if gotTitle != "Example" {
		t.Errorf("title: got %q", gotTitle)
	}

	cur := c.Session()
	if cur.Status != StatusLoaded {
		t.Errorf("session status: got %v, want loaded", cur.Status)
	}

	hist := c.History()
	if len(hist) != 1 || hist[0].URL != "https://example.com/" {
		t.Errorf("history: got %+v, want one record for resolved url", hist)
	}
}

func TestNavigate_CompletesViaEvent(t *testing.T) {
	surf := newFakeSurface()
	// Poll path never reports ready; only the event can complete.
	surf.setStatus(surface.Status{URL: "https://example.com/", Title: "Example"})

	loaded := make(chan struct{})
	c := New(surf, fastConfig(), Hooks{
		OnLoaded: func(context.Context, string, string) { close(loaded) },
	})
	defer c.Close()

	c.Navigate("https://example.com")
	surf.events <- surface.Event{Kind: surface.EventLoadStop}

	waitFor(t, loaded, "load via event")
	if got := c.Session().Status; got != StatusLoaded {
		t.Errorf("status: got %v, want loaded", got)
	}
}

func TestNavigate_TimeoutSoftCompletes_ThenLateUpgrade(t *testing.T) {
	surf := newFakeSurface()
	surf.setStatus(surface.Status{URL: "https://slow.example/", Title: "Slow"})

	cleared := make(chan struct{})
	loaded := make(chan struct{})
	c := New(surf, fastConfig(), Hooks{
		OnLoadingCleared: func() { close(cleared) },
		OnLoaded:         func(context.Context, string, string) { close(loaded) },
	})
	defer c.Close()

	c.Navigate("https://slow.example")

	waitFor(t, cleared, "soft completion")
	if got := c.Session().Status; got != StatusTimedOut {
		t.Errorf("status after timeout: got %v, want timed-out", got)
	}

	// A late load-stop still upgrades the session.
	surf.events <- surface.Event{Kind: surface.EventLoadStop}
	waitFor(t, loaded, "late upgrade")
	if got := c.Session().Status; got != StatusLoaded {
		t.Errorf("status after late signal: got %v, want loaded", got)
	}
}

func TestNavigate_RapidRenavigation(t *testing.T) {
	surf := newFakeSurface()
	// Not ready: neither session can complete via poll.
	surf.setStatus(surface.Status{URL: "https://b.example/", Title: "B"})

	loaded := make(chan struct{})
	var gotURL string
	c := New(surf, fastConfig(), Hooks{
		OnLoaded: func(_ context.Context, url, _ string) {
			gotURL = url
			close(loaded)
		},
	})
	defer c.Close()

	c.Navigate("https://a.example")
	sessB := c.Navigate("https://b.example")

	// A's detector may drain one signal before its cancellation lands, but
	// its completion is a generation-checked no-op; a second signal always
	// reaches B.
	surf.events <- surface.Event{Kind: surface.EventLoadStop}
	surf.events <- surface.Event{Kind: surface.EventLoadStop}
	waitFor(t, loaded, "load of b")

	if gotURL != "https://b.example/" {
		t.Errorf("loaded url: got %q, want b", gotURL)
	}
	cur := c.Session()
	if cur.ID != sessB.ID {
		t.Errorf("current session: got %q, want %q", cur.ID, sessB.ID)
	}
	if cur.Status != StatusLoaded {
		t.Errorf("status: got %v, want loaded", cur.Status)
	}
}

func TestStop_NoopWhenIdle(t *testing.T) {
	surf := newFakeSurface()
	c := New(surf, fastConfig(), Hooks{})
	defer c.Close()

	c.Stop(context.Background())

	if surf.stopCalls != 0 {
		t.Errorf("stop calls: got %d, want 0", surf.stopCalls)
	}
	if c.Session() != nil {
		t.Error("session: expected nil before first navigation")
	}
}

func TestStop_HaltsInFlight(t *testing.T) {
	surf := newFakeSurface()
	// Never completes.
	surf.setStatus(surface.Status{})

	cleared := make(chan struct{})
	c := New(surf, fastConfig(), Hooks{
		OnLoadingCleared: func() { close(cleared) },
	})
	defer c.Close()

	c.Navigate("https://example.com")
	c.Stop(context.Background())

	waitFor(t, cleared, "loading cleared")
	if surf.stopCalls != 1 {
		t.Errorf("stop calls: got %d, want 1", surf.stopCalls)
	}
	if got := c.Session().Status; got != StatusIdle {
		t.Errorf("status after stop: got %v, want idle", got)
	}
}

func TestNavigate_GenuineFailureTriggersReinit(t *testing.T) {
	surf := newFakeSurface()
	surf.navErr = errors.New("net::ERR_NAME_NOT_RESOLVED")

	failed := make(chan struct{})
	var view *ErrorView
	c := New(surf, fastConfig(), Hooks{
		OnFailed: func(v *ErrorView) {
			view = v
			close(failed)
		},
	})
	defer c.Close()

	c.Navigate("https://nope.example")
	waitFor(t, failed, "failure report")

	if view.Code != CodeLoadFailed {
		t.Errorf("code: got %q, want load-failed", view.Code)
	}
	if view.URL != "https://nope.example" {
		t.Errorf("url: got %q", view.URL)
	}

	// Reinit happens after backoff.
	deadline := time.After(2 * time.Second)
	for {
		surf.mu.Lock()
		n := surf.reinits
		surf.mu.Unlock()
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("reinit: got %d, want 1", n)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestNavigate_AbortedIsSwallowed(t *testing.T) {
	surf := newFakeSurface()
	surf.navErr = errors.New("net::ERR_ABORTED")

	c := New(surf, fastConfig(), Hooks{
		OnFailed: func(*ErrorView) { t.Error("OnFailed called for aborted navigation") },
	})
	defer c.Close()

	c.Navigate("https://example.com")
	time.Sleep(100 * time.Millisecond)

	surf.mu.Lock()
	defer surf.mu.Unlock()
	if surf.reinits != 0 {
		t.Errorf("reinits: got %d, want 0", surf.reinits)
	}
}
