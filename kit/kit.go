// Package kit holds the small cross-transport plumbing shared by carnet's
// HTTP and MCP surfaces: the Endpoint shape and context accessors.
package kit

import "context"

// Endpoint is a transport-agnostic request handler. Transports decode their
// wire format into a typed request, call the endpoint, and encode the reply.
type Endpoint func(ctx context.Context, req any) (any, error)

type contextKey string

const (
	// TransportKey records which transport carried the request ("http", "mcp").
	TransportKey contextKey = "carnet_transport"
	// RequestIDKey carries a per-request correlation ID.
	RequestIDKey contextKey = "carnet_request_id"
)

// WithTransport tags the context with the carrying transport.
func WithTransport(ctx context.Context, t string) context.Context {
	return context.WithValue(ctx, TransportKey, t)
}

// GetTransport returns the transport name, defaulting to "http".
func GetTransport(ctx context.Context) string {
	if v, ok := ctx.Value(TransportKey).(string); ok {
		return v
	}
	return "http"
}

// WithRequestID tags the context with a correlation ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// GetRequestID returns the correlation ID, or "" if unset.
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(RequestIDKey).(string)
	return v
}
