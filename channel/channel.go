// Package channel implements the per-channel inbound and outbound packet
// queues, with the await-for-empty-output and await-for-nonempty-input
// primitives applications use to synchronize with the selector.
package channel

import (
	"context"
	"sync"

	"github.com/ttproto/ttp/packet"
)

// Channel is a logical, bidirectional conversation multiplexed over one
// portal's stream, identified by a nonnegative id unique within that portal.
// Both queues are unbounded FIFOs; their only back-pressure is the blocking
// Await* primitives below.
type Channel struct {
	id int

	mu       sync.Mutex
	outbound []packet.Packet
	inbound  []packet.Packet
	// outEmpty is closed (and replaced) whenever outbound transitions to
	// empty; inReady is closed (and replaced) whenever inbound transitions
	// to nonempty. Waiters re-check the predicate after each wake, so a
	// spurious signal (e.g. from a replaced channel raced with a new
	// enqueue) is harmless.
	outEmpty chan struct{}
	inReady  chan struct{}
}

// New creates a channel with the given id and empty queues.
func New(id int) *Channel {
	return &Channel{
		id:       id,
		outEmpty: make(chan struct{}),
		inReady:  make(chan struct{}),
	}
}

// ID returns the channel's id.
func (c *Channel) ID() int { return c.id }

// Send enqueues p into the outbound queue. Never blocks and never fails on
// an open channel; the selector consumes it asynchronously.
func (c *Channel) Send(p packet.Packet) {
	c.mu.Lock()
	c.outbound = append(c.outbound, p)
	c.mu.Unlock()
}

// Receive dequeues and returns the head of the inbound queue, or reports
// false if it is empty. Never blocks.
func (c *Channel) Receive() (packet.Packet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.inbound) == 0 {
		return packet.Packet{}, false
	}
	p := c.inbound[0]
	c.inbound = c.inbound[1:]
	return p, true
}

// Peek returns the head of the inbound queue without removing it.
func (c *Channel) Peek() (packet.Packet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.inbound) == 0 {
		return packet.Packet{}, false
	}
	return c.inbound[0], true
}

// OutputSize reports the current outbound queue length. The count may be
// stale the instant it is returned.
func (c *Channel) OutputSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.outbound)
}

// InputSize reports the current inbound queue length. The count may be
// stale the instant it is returned.
func (c *Channel) InputSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inbound)
}

// AwaitOutput blocks until the outbound queue is empty, i.e. every packet
// enqueued by Send so far has been consumed by the selector.
func (c *Channel) AwaitOutput() {
	for {
		c.mu.Lock()
		if len(c.outbound) == 0 {
			c.mu.Unlock()
			return
		}
		signal := c.outEmpty
		c.mu.Unlock()
		<-signal
	}
}

// AwaitInput blocks until the inbound queue is nonempty.
func (c *Channel) AwaitInput() {
	for {
		c.mu.Lock()
		if len(c.inbound) != 0 {
			c.mu.Unlock()
			return
		}
		signal := c.inReady
		c.mu.Unlock()
		<-signal
	}
}

// AwaitInputContext is AwaitInput bounded by ctx. The core exposes no
// per-operation timeout (applications are expected to layer their own over
// AwaitInput); this is that layering.
func (c *Channel) AwaitInputContext(ctx context.Context) error {
	for {
		c.mu.Lock()
		if len(c.inbound) != 0 {
			c.mu.Unlock()
			return nil
		}
		signal := c.inReady
		c.mu.Unlock()
		select {
		case <-signal:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Get dequeues from outbound for the selector, waking any AwaitOutput
// waiters if the queue becomes empty. Not for application use.
func (c *Channel) Get() (packet.Packet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.outbound) == 0 {
		return packet.Packet{}, false
	}
	p := c.outbound[0]
	c.outbound = c.outbound[1:]
	if len(c.outbound) == 0 {
		close(c.outEmpty)
		c.outEmpty = make(chan struct{})
	}
	return p, true
}

// Put deposits a packet into inbound for the selector, waking any
// AwaitInput waiters if the queue was empty. Not for application use.
func (c *Channel) Put(p packet.Packet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	wasEmpty := len(c.inbound) == 0
	c.inbound = append(c.inbound, p)
	if wasEmpty {
		close(c.inReady)
		c.inReady = make(chan struct{})
	}
}
