// Package netstream provides the byte-stream collaborators a portal is
// opened over: a retrying dialer and a borrow/return connection pool.
// Neither package imports portal — either can dial a raw net.Conn for any
// caller that wants one.
package netstream

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"time"
)

// DialRetry dials addr, retrying up to maxRetries times with exponential
// backoff when the error looks transient (timeout or connection refused).
// Any other dial error returns immediately.
func DialRetry(ctx context.Context, addr string, maxRetries int, baseDelay time.Duration) (net.Conn, error) {
	var dialer net.Dialer
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			return conn, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return nil, fmt.Errorf("ttp: netstream: dial %s: %w", addr, err)
		}
		if i == maxRetries {
			break
		}

		log.Printf("ttp: netstream: dial %s failed (attempt %d/%d): %v", addr, i+1, maxRetries+1, err)
		delay := baseDelay * time.Duration(1<<uint(i))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("ttp: netstream: dial %s: %w", addr, ctx.Err())
		}
	}
	return nil, fmt.Errorf("ttp: netstream: dial %s after %d attempts: %w", addr, maxRetries+1, lastErr)
}

func isRetryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "connection refused")
}
