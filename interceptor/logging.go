package interceptor

import (
	"context"
	"log"
	"time"

	"github.com/ttproto/ttp/packet"
)

// Logging records the request header, duration, and any error for each
// exchange.
//
// Example output:
//
//	ttp: interceptor: header=103 duration=42µs
func Logging() Interceptor {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req packet.Packet) (packet.Packet, error) {
			start := time.Now()

			reply, err := next(ctx, req)

			duration := time.Since(start)
			log.Printf("ttp: interceptor: header=%d duration=%s", req.Header(), duration)
			if err != nil {
				log.Printf("ttp: interceptor: error=%s", err)
			}
			return reply, err
		}
	}
}
