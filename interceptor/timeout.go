package interceptor

import (
	"context"
	"fmt"
	"time"

	"github.com/ttproto/ttp/packet"
)

// Timeout enforces a maximum duration for each exchange. If the handler
// doesn't complete within timeout, it returns an error immediately.
//
// The handler goroutine is not cancelled when the timeout fires — it
// keeps running in the background. The timeout only controls when the
// caller gives up waiting; for true cancellation the handler must check
// ctx.Done() internally (AwaitInputContext does).
func Timeout(timeout time.Duration) Interceptor {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req packet.Packet) (packet.Packet, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			type result struct {
				reply packet.Packet
				err   error
			}
			done := make(chan result, 1)
			go func() {
				reply, err := next(ctx, req)
				done <- result{reply, err}
			}()

			select {
			case r := <-done:
				return r.reply, r.err
			case <-ctx.Done():
				return packet.Packet{}, fmt.Errorf("ttp: interceptor: exchange timed out")
			}
		}
	}
}
