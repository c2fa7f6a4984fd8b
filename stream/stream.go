// Package stream declares the minimal byte-stream contract the multiplexer
// needs from its underlying transport: a reliable, ordered, bidirectional
// stream that can honor a read deadline so the selector can poll one
// channel at a time instead of blocking forever.
//
// Connection acceptance, dialing, and timeout tuning are deliberately kept
// out of this package — they are a collaborator's job. Any net.Conn already
// satisfies Conn with no adapter.
package stream

import (
	"io"
	"time"
)

// Conn is the external byte-stream collaborator. A read that cannot produce
// a byte before a previously set deadline must return an error satisfying
// net.Error with Timeout() == true, distinguishable from io.EOF.
type Conn interface {
	io.Reader
	io.Writer
	io.Closer
	SetReadDeadline(t time.Time) error
}
