// Package interceptor implements the onion-model chain for wrapping a
// request/reply exchange over a channel with cross-cutting concerns such
// as logging, rate limiting, retry, and timeouts.
//
// Onion model execution order:
//
//	Chain(A, B, C)(handler)  →  A(B(C(handler)))
//
//	Request:   A.before → B.before → C.before → handler
//	Response:  handler → C.after → B.after → A.after
//
// Each interceptor can:
//   - Do pre-processing (before calling next)
//   - Call next(ctx, req) to pass to the next layer
//   - Do post-processing (after next returns)
//   - Short-circuit by returning early without calling next (e.g., rate limiting)
package interceptor

import (
	"context"

	"github.com/ttproto/ttp/packet"
)

// HandlerFunc sends req and returns the reply packet for it. The caller
// that builds the innermost HandlerFunc is usually one that calls
// Channel.Send(req) followed by Channel.AwaitInputContext(ctx) and
// Channel.Receive().
type HandlerFunc func(ctx context.Context, req packet.Packet) (packet.Packet, error)

// Interceptor takes a handler and returns a new handler wrapping it.
type Interceptor func(next HandlerFunc) HandlerFunc

// Chain composes multiple interceptors into one. It builds the chain from
// right to left so the first interceptor in the list is the outermost
// layer (runs first on the request, last on the response).
//
//	chain := Chain(Logging(), RateLimit(10, 5))
//	handler := chain(businessHandler)
//	// Execution: Logging -> RateLimit -> businessHandler -> RateLimit -> Logging
func Chain(interceptors ...Interceptor) Interceptor {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(interceptors) - 1; i >= 0; i-- {
			next = interceptors[i](next)
		}
		return next
	}
}
