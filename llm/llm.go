// Package llm provides the analysis client used by the research pipeline.
//
// A Client fans requests out to the first available Provider. Providers are
// resolved once at construction; availability is re-checked per call so a
// provider that loses its credentials mid-run degrades gracefully.
package llm

import (
	"context"
	"errors"
)

// ErrBackendUnavailable is returned when no provider is configured or ready.
var ErrBackendUnavailable = errors.New("llm: no backend available")

// Message is a single turn in a conversation history.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Provider is a language-model backend.
type Provider interface {
	// Name identifies the provider for logging.
	Name() string

	// Available reports whether the provider is ready to serve requests.
	Available() bool

	// Send submits a prompt with optional prior history and returns the
	// model's text reply.
	Send(ctx context.Context, prompt string, history []Message) (string, error)
}

// Client selects among configured providers.
type Client struct {
	providers []Provider
}

// NewClient creates a Client. Providers are tried in the given order.
func NewClient(providers ...Provider) *Client {
	return &Client{providers: providers}
}

// Available reports whether any provider is ready.
func (c *Client) Available() bool {
	return c.provider() != nil
}

// SendMessage submits a prompt (plus optional history) to the first available
// provider. Returns ErrBackendUnavailable when none is ready.
func (c *Client) SendMessage(ctx context.Context, prompt string, history []Message) (string, error) {
	p := c.provider()
	if p == nil {
		return "", ErrBackendUnavailable
	}
	return p.Send(ctx, prompt, history)
}

func (c *Client) provider() Provider {
	for _, p := range c.providers {
		if p.Available() {
			return p
		}
	}
	return nil
}
