// Package surface defines the rendering-surface host: an isolated, sandboxed
// view that loads remote documents and exposes lifecycle events plus an
// in-page script-execution primitive.
//
// The nav package drives a Surface through navigations; the extract package
// only reads from it via Eval. The rod-backed implementation lives in rod.go;
// tests substitute fakes.
package surface

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrScriptUnavailable is returned by Eval when in-page script execution is
// not possible (e.g. the document enforces cross-origin-style restrictions or
// the execution context is gone). Extraction falls back to a host-mediated
// fetch when it sees this.
var ErrScriptUnavailable = errors.New("surface: script execution unavailable")

// EventKind classifies surface lifecycle events.
type EventKind int

const (
	// EventLoadStart fires when the surface begins loading a document.
	EventLoadStart EventKind = iota
	// EventLoadStop fires when the surface reports the document loaded.
	// The host emits this unreliably; consumers must not depend on it alone.
	EventLoadStop
	// EventNavigated fires when the surface's top frame commits a navigation.
	EventNavigated
)

func (k EventKind) String() string {
	switch k {
	case EventLoadStart:
		return "load-start"
	case EventLoadStop:
		return "load-stop"
	case EventNavigated:
		return "navigated"
	}
	return "unknown"
}

// Event is one surface lifecycle notification.
type Event struct {
	Kind EventKind
	URL  string
}

// Status is the result of a direct readiness probe, used by the redundant
// poll to compensate for missing load-stop events.
type Status struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Ready bool   `json:"ready"`
}

// Surface is the rendering-surface host contract.
type Surface interface {
	// NavigateTo issues a load request for url. It returns once the request
	// is accepted; completion is observed via Events or Status.
	NavigateTo(ctx context.Context, url string) error

	// Stop asks the surface to halt any in-flight load.
	Stop(ctx context.Context) error

	// Reload reissues the current document.
	Reload(ctx context.Context) error

	// Status probes the surface directly for its resolved location, title
	// and document-ready indicator.
	Status(ctx context.Context) (*Status, error)

	// Eval executes a script expression in the page and returns its
	// JSON-serialised result.
	Eval(ctx context.Context, js string) (json.RawMessage, error)

	// Events returns the surface lifecycle event stream. The channel is
	// closed when the surface is closed.
	Events() <-chan Event

	// Reinit tears the underlying view down and recreates it, keeping the
	// same event stream. Used for crash recovery after repeated failures.
	Reinit(ctx context.Context) error

	// Close releases the surface and all associated resources.
	Close() error
}
