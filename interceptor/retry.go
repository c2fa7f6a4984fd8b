package interceptor

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/ttproto/ttp/packet"
)

// Retry retries a failed exchange up to maxRetries times with exponential
// backoff, as long as the context hasn't been cancelled in the meantime.
func Retry(maxRetries int, baseDelay time.Duration) Interceptor {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req packet.Packet) (packet.Packet, error) {
			reply, err := next(ctx, req)
			for i := 0; i < maxRetries && err != nil; i++ {
				if errors.Is(ctx.Err(), context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return reply, err
				}
				log.Printf("ttp: interceptor: retry attempt %d due to error: %v", i+1, err)
				select {
				case <-time.After(baseDelay * time.Duration(1<<uint(i))):
				case <-ctx.Done():
					return reply, err
				}
				reply, err = next(ctx, req)
			}
			return reply, err
		}
	}
}
