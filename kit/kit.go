// Package kit holds transport-agnostic service plumbing: the Endpoint
// abstraction, middleware chaining, request-scoped context keys, and the
// MCP tool registration shim.
package kit

import "context"

// Endpoint is the transport-agnostic unit of work: a typed request in,
// a typed response out. Transports (MCP, HTTP) decode into the request
// type and hand it to an Endpoint.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint with cross-cutting behaviour.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares so the first argument is the outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}
