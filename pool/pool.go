// Package pool maintains a shared, per-address pool of multiplexed portals
// and selects among them round robin, resolving the address itself from a
// directory lookup and a load-balancing pick.
//
// Design: portals are SHARED, not borrowed/returned. Since each portal
// already multiplexes many channels over one connection, there is no need
// to hold one exclusively during a send — a channel's Send/Receive take
// microseconds, not the lifetime of a logical exchange. Shared access
// avoids idle time that exclusive holding would waste.
package pool

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ttproto/ttp/channel"
	"github.com/ttproto/ttp/directory"
	"github.com/ttproto/ttp/netstream"
	"github.com/ttproto/ttp/portal"
)

// defaultDialRetries and defaultDialBaseDelay configure the retrying
// dialer PortalPool uses when the caller doesn't supply one via Option.
const (
	defaultDialRetries   = 3
	defaultDialBaseDelay = 100 * time.Millisecond
)

// Option configures a PortalPool at New time.
type Option func(*PortalPool)

// WithDialer overrides how PortalPool opens a raw connection to a
// resolved address — mainly for tests that want to substitute an in-memory
// pipe for a real TCP dial.
func WithDialer(dial func(addr string) (net.Conn, error)) Option {
	return func(p *PortalPool) { p.dial = dial }
}

// WithDialRetry sets the retry count and base backoff delay for the
// default dialer, which dials over TCP through netstream.DialRetry.
func WithDialRetry(maxRetries int, baseDelay time.Duration) Option {
	return func(p *PortalPool) {
		p.dial = func(addr string) (net.Conn, error) {
			return netstream.DialRetry(context.Background(), addr, maxRetries, baseDelay)
		}
	}
}

// PortalPool manages a fixed number of portals per resolved address, all
// opened against the same channelCount. A Get call resolves addr itself:
// directory.Discover(name) lists the candidate endpoints, and balancer.Pick
// chooses one.
//
// Lock strategy: mu protects the portals/connPools maps (read + write),
// which is nanosecond-level. Dialing happens inside the lock only on first
// access to an address (pool creation). Subsequent calls just read the map
// and select via an atomic counter — no lock needed for selection.
type PortalPool struct {
	directory    directory.Directory
	balancer     directory.Balancer
	channelCount int
	poolSize     int
	dial         func(addr string) (net.Conn, error)

	mu        sync.Mutex
	connPools map[string]*netstream.ConnPool
	portals   map[string][]*portal.Portal
	counter   uint64
}

// New creates a pool that resolves names through dir and bal, and opens
// poolSize portals per resolved address on first use, each with
// channelCount logical channels.
func New(dir directory.Directory, bal directory.Balancer, channelCount, poolSize int, opts ...Option) *PortalPool {
	p := &PortalPool{
		directory:    dir,
		balancer:     bal,
		channelCount: channelCount,
		poolSize:     poolSize,
		connPools:    make(map[string]*netstream.ConnPool),
		portals:      make(map[string][]*portal.Portal),
	}
	p.dial = func(addr string) (net.Conn, error) {
		return netstream.DialRetry(context.Background(), addr, defaultDialRetries, defaultDialBaseDelay)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Get resolves name to an address via directory.Discover and balancer.Pick,
// then returns a shared channel to that address, selected round robin
// across the pool of portals maintained for it. The pool of portals for an
// address is created eagerly, all at once, on first access, with each
// connection acquired through a netstream.ConnPool whose factory dials
// with retry.
func (p *PortalPool) Get(name string, channelIndex int) (*channel.Channel, error) {
	endpoints, err := p.directory.Discover(name)
	if err != nil {
		return nil, fmt.Errorf("ttp: pool: discover %s: %w", name, err)
	}
	ep, err := p.balancer.Pick(endpoints)
	if err != nil {
		return nil, fmt.Errorf("ttp: pool: pick endpoint for %s: %w", name, err)
	}
	addr := ep.Addr

	n := atomic.AddUint64(&p.counter, 1)

	p.mu.Lock()
	portals, ok := p.portals[addr]
	if !ok {
		connPool := netstream.NewConnPool(addr, p.poolSize, func() (net.Conn, error) {
			return p.dial(addr)
		})
		p.connPools[addr] = connPool

		portals = make([]*portal.Portal, p.poolSize)
		p.portals[addr] = portals
		for i := 0; i < p.poolSize; i++ {
			conn, err := connPool.Get()
			if err != nil {
				p.mu.Unlock()
				return nil, fmt.Errorf("ttp: pool: acquire connection to %s: %w", addr, err)
			}
			pt, err := portal.Open(conn, addr, p.channelCount)
			if err != nil {
				p.mu.Unlock()
				return nil, fmt.Errorf("ttp: pool: open portal to %s: %w", addr, err)
			}
			portals[i] = pt
		}
	}
	p.mu.Unlock()

	pt := portals[n%uint64(p.poolSize)]
	return pt.Channel(channelIndex)
}

// Close closes every portal the pool has opened and the connection pools
// backing them.
func (p *PortalPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for _, portals := range p.portals {
		for _, pt := range portals {
			if err := pt.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	for _, connPool := range p.connPools {
		if err := connPool.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	p.portals = make(map[string][]*portal.Portal)
	p.connPools = make(map[string]*netstream.ConnPool)
	return firstErr
}
