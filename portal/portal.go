// Package portal implements the multiplexed endpoint that owns a byte
// stream, its codec, a fixed array of channels, and the selector that
// drives I/O on their behalf.
//
// A portal never performs stream I/O itself once its selector is attached;
// centralizing all I/O in the selector keeps framing atomic.
package portal

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ttproto/ttp/channel"
	"github.com/ttproto/ttp/codec"
	"github.com/ttproto/ttp/selector"
	"github.com/ttproto/ttp/stream"
)

// ErrOutOfRangeChannel is returned by Channel when the requested id is not
// in 0..ChannelCount()-1. Asking for it is a programming error.
var ErrOutOfRangeChannel = errors.New("ttp: portal: channel id out of range")

// Option configures a Portal at Open time.
type Option func(*options)

type options struct {
	pollWindow time.Duration
}

// WithPollWindow overrides the selector's default read-poll window.
func WithPollWindow(d time.Duration) Option {
	return func(o *options) { o.pollWindow = d }
}

// Portal owns one underlying stream, a codec bound to it, channelCount
// channels (ids 0..channelCount-1), and the one selector that multiplexes
// them over the stream.
type Portal struct {
	name     string
	channels []*channel.Channel
	conn     stream.Conn
	sel      *selector.Selector
	closed   atomic.Bool
}

// Open creates channelCount channels, binds a codec to conn, attaches and
// starts a selector, and returns the running portal. The caller's conn must
// already be configured to support SetReadDeadline for the selector's
// polling reads (any net.Conn qualifies).
func Open(conn stream.Conn, name string, channelCount int, opts ...Option) (*Portal, error) {
	if channelCount <= 0 {
		return nil, fmt.Errorf("ttp: portal: channel count must be positive, got %d", channelCount)
	}

	cfg := options{pollWindow: selector.DefaultPollWindow}
	for _, opt := range opts {
		opt(&cfg)
	}

	channels := make([]*channel.Channel, channelCount)
	for i := range channels {
		channels[i] = channel.New(i)
	}

	w := codec.NewWriter(conn)
	r := codec.NewReader(conn)
	sel := selector.New(channels, w, r, cfg.pollWindow)

	p := &Portal{
		name:     name,
		channels: channels,
		conn:     conn,
		sel:      sel,
	}
	sel.Start()
	return p, nil
}

// Channel returns channel i. Asking for an id outside 0..ChannelCount()-1 is
// a caller error.
func (p *Portal) Channel(i int) (*channel.Channel, error) {
	if i < 0 || i >= len(p.channels) {
		return nil, fmt.Errorf("%w: %d", ErrOutOfRangeChannel, i)
	}
	return p.channels[i], nil
}

// ChannelCount returns the number of channels the portal was opened with.
func (p *Portal) ChannelCount() int { return len(p.channels) }

// Name returns the portal's advisory name.
func (p *Portal) Name() string { return p.name }

// IsClosed reports whether Close has been called. Once true, it never
// becomes false again.
func (p *Portal) IsClosed() bool { return p.closed.Load() }

// Selector exposes the portal's selector for observability (cycle count,
// lifecycle state). Applications should not drive it directly.
func (p *Portal) Selector() *selector.Selector { return p.sel }

// Close is idempotent. It sets the closed flag, waits for the selector to
// finish draining outbound packets and reach STOPPED, then closes the
// underlying stream.
func (p *Portal) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	p.sel.Stop()
	return p.conn.Close()
}
