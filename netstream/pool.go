package netstream

import (
	"fmt"
	"net"
	"sync"
)

// ConnPool manages a pool of reusable raw connections to a single address,
// each held by one user at a time between Get and Put. pool.PortalPool
// acquires the connections beneath its portals through one.
//
// Pool design: uses a buffered channel as a natural FIFO queue. Buffered
// channels are concurrency-safe, and blocking on empty is built in.
type ConnPool struct {
	mu       sync.Mutex
	conns    chan *PoolConn
	addr     string
	maxConns int
	curConns int
	factory  func() (net.Conn, error)
}

// PoolConn wraps a net.Conn with pool metadata.
type PoolConn struct {
	net.Conn
	pool     *ConnPool
	unusable bool
}

// NewConnPool creates a connection pool with the given max size.
// Connections are created lazily — the pool starts empty and grows on
// demand.
func NewConnPool(addr string, maxConns int, factory func() (net.Conn, error)) *ConnPool {
	return &ConnPool{
		conns:    make(chan *PoolConn, maxConns),
		addr:     addr,
		maxConns: maxConns,
		factory:  factory,
	}
}

// Get retrieves a connection from the pool.
// Strategy:
//  1. Try to get an existing connection from the channel (non-blocking select)
//  2. If the pool is empty but under the limit, create a new connection
//  3. If the pool is empty and at the limit, block until one is returned
func (p *ConnPool) Get() (*PoolConn, error) {
	select {
	case conn := <-p.conns:
		if conn.unusable {
			return p.createNew()
		}
		return conn, nil
	default:
		if p.curConns < p.maxConns {
			return p.createNew()
		}
		conn := <-p.conns
		return conn, nil
	}
}

// Put returns a connection to the pool. If it was marked unusable
// (an I/O error occurred), it's closed and discarded instead.
func (p *ConnPool) Put(conn *PoolConn) {
	if conn.unusable {
		conn.Close()
		p.mu.Lock()
		p.curConns--
		p.mu.Unlock()
		return
	}
	p.conns <- conn
}

// MarkUnusable flags conn so the next Put discards it instead of
// returning it to circulation. Callers should call this after any I/O
// error on the underlying connection.
func (conn *PoolConn) MarkUnusable() {
	conn.unusable = true
}

// Close shuts down the pool and closes all connections currently held in
// the channel. Connections checked out via Get are not closed.
func (p *ConnPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	close(p.conns)
	for conn := range p.conns {
		conn.Close()
		p.curConns--
	}
	return nil
}

// createNew creates a new connection via the factory function. Protected
// by a mutex so concurrent callers never exceed maxConns.
func (p *ConnPool) createNew() (*PoolConn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.curConns >= p.maxConns {
		return nil, fmt.Errorf("ttp: netstream: connection pool for %s exhausted", p.addr)
	}

	netConn, err := p.factory()
	if err != nil {
		return nil, err
	}

	p.curConns++
	return &PoolConn{
		Conn: netConn,
		pool: p,
	}, nil
}
