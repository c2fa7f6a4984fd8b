package interceptor

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/ttproto/ttp/packet"
)

// RateLimit creates an interceptor guarded by a token bucket.
//
// Token bucket: tokens are added at r per second, up to burst. Each
// exchange consumes one token; if the bucket is empty the exchange is
// rejected. Unlike a leaky bucket (constant drain rate), a token bucket
// allows short bursts of traffic — suitable for channel sends that spike.
//
// The limiter is created in the outer closure, once per RateLimit call,
// not inside the returned HandlerFunc — a fresh limiter per exchange would
// defeat rate limiting entirely.
func RateLimit(r float64, burst int) Interceptor {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req packet.Packet) (packet.Packet, error) {
			if !limiter.Allow() {
				return packet.Packet{}, fmt.Errorf("ttp: interceptor: rate limit exceeded")
			}
			return next(ctx, req)
		}
	}
}
