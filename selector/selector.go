// Package selector implements the background worker that drives all stream
// I/O on behalf of a portal's channels: the routing-frame discipline that
// lets many channels share one stream, the write-then-read cycle, and the
// graceful drain on shutdown.
//
// The selector is the sole party performing stream I/O once it is attached
// to a portal; the portal and its channels never touch the stream directly.
package selector

import (
	"errors"
	"log"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/ttproto/ttp/channel"
	"github.com/ttproto/ttp/codec"
	"github.com/ttproto/ttp/header"
	"github.com/ttproto/ttp/packet"
)

// DefaultPollWindow is the reference read-poll timeout: short enough that
// the selector rotates briskly between channels, long enough not to
// busy-loop the connection.
const DefaultPollWindow = time.Millisecond

// State is the selector's lifecycle stage.
type State int32

const (
	StateNew State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// ErrInvalidRouting is the fatal protocol error raised when a routing
// frame's body does not name a channel in range.
var ErrInvalidRouting = errors.New("ttp: selector: invalid routing id")

// Selector is the single worker that cycles over a fixed set of channels,
// writing at most one queued packet per channel per cycle (preceded by its
// routing frame) and opportunistically reading one logical packet per
// channel slot.
type Selector struct {
	channels   []*channel.Channel
	writer     *codec.Writer
	reader     *codec.Reader
	pollWindow time.Duration

	state  atomic.Int32
	cycles atomic.Uint64
	done   chan struct{}
}

// New builds a selector over channels, writing with w and reading with r.
// pollWindow bounds how long a read waits for the start of a new frame
// before the selector rotates to the next channel.
func New(channels []*channel.Channel, w *codec.Writer, r *codec.Reader, pollWindow time.Duration) *Selector {
	return &Selector{
		channels:   channels,
		writer:     w,
		reader:     r,
		pollWindow: pollWindow,
		done:       make(chan struct{}),
	}
}

// Start transitions NEW->RUNNING and launches the worker goroutine. Calling
// Start more than once has no additional effect.
func (s *Selector) Start() {
	if s.state.CompareAndSwap(int32(StateNew), int32(StateRunning)) {
		go s.run()
	}
}

// Stop transitions RUNNING->STOPPING and blocks until the worker has
// finished draining and reached STOPPED. Stop is idempotent: calling it
// again, or from multiple goroutines, simply waits for the same STOPPED
// transition.
func (s *Selector) Stop() {
	s.state.CompareAndSwap(int32(StateRunning), int32(StateStopping))
	<-s.done
}

// State reports the selector's current lifecycle stage.
func (s *Selector) State() State { return State(s.state.Load()) }

// Cycles reports how many full passes over the channel set the worker has
// completed, for observability.
func (s *Selector) Cycles() uint64 { return s.cycles.Load() }

func (s *Selector) run() {
	defer func() {
		s.state.Store(int32(StateStopped))
		close(s.done)
	}()

	for s.runningOrDraining() {
		outcome := fatalNone
		for _, ch := range s.channels {
			s.output(ch)
			if outcome = s.input(); outcome != fatalNone {
				break
			}
		}
		s.cycles.Add(1)
		switch outcome {
		case fatalDrainOutbound:
			s.drainOutbound()
			return
		case fatalNoDrain:
			return
		}
	}
}

// drainOutbound flushes every channel's remaining outbound packets with no
// further reads, for the truncated-frame failure path where the read side
// is no longer usable but the write side may still be.
func (s *Selector) drainOutbound() {
	for _, ch := range s.channels {
		for n := ch.OutputSize(); n > 0; n-- {
			s.output(ch)
		}
	}
}

// runningOrDraining implements the drain rule: the worker keeps cycling
// while RUNNING, or while STOPPING with any channel still holding outbound
// packets, so that everything enqueued before Stop was called is still
// delivered.
func (s *Selector) runningOrDraining() bool {
	if State(s.state.Load()) == StateRunning {
		return true
	}
	for _, ch := range s.channels {
		if ch.OutputSize() > 0 {
			return true
		}
	}
	return false
}

// output flushes at most one outbound packet from ch, preceded by its
// routing frame. The two writes are never interleaved with another
// channel's bytes because the selector is the only writer.
func (s *Selector) output(ch *channel.Channel) {
	p, ok := ch.Get()
	if !ok {
		return
	}

	routing := packet.OfInt(int64(ch.ID()))
	if err := s.writer.WritePacket(routing); err != nil {
		log.Printf("ttp: selector: write routing frame for channel %d: %v", ch.ID(), err)
		return
	}
	if err := s.writer.WritePacket(p); err != nil {
		log.Printf("ttp: selector: write payload frame for channel %d: %v", ch.ID(), err)
		return
	}
}

// fatalOutcome classifies why input() stopped the worker, so run() can
// decide whether the write side still gets a chance to drain queued
// outbound packets before STOPPED.
type fatalOutcome int

const (
	fatalNone fatalOutcome = iota
	// fatalDrainOutbound is a truncated frame: the read side is no longer
	// usable, but already-queued outbound packets still get flushed.
	fatalDrainOutbound
	// fatalNoDrain is a protocol violation (bad routing frame or id): the
	// worker stops immediately, with no further writes.
	fatalNoDrain
)

// input opportunistically reads one logical packet (a routing frame
// followed by its payload) and deposits it into the destination channel's
// inbound queue. It reports which, if any, fatal condition occurred and
// the worker must stop.
func (s *Selector) input() fatalOutcome {
	routing, err := s.reader.TryReadPacket(s.pollWindow)
	if err != nil {
		if errors.Is(err, codec.ErrPollTimeout) || errors.Is(err, codec.ErrEndOfStream) {
			return fatalNone
		}
		log.Printf("ttp: selector: %v", err)
		if errors.Is(err, codec.ErrTruncated) {
			return fatalDrainOutbound
		}
		return fatalNoDrain
	}

	if routing.Header() != header.INTEGER {
		log.Printf("ttp: selector: %v: routing frame has header %d, want %d", ErrInvalidRouting, routing.Header(), header.INTEGER)
		return fatalNoDrain
	}

	id, err := strconv.Atoi(routing.Format())
	if err != nil || id < 0 || id >= len(s.channels) {
		log.Printf("ttp: selector: %v: %q", ErrInvalidRouting, routing.Format())
		return fatalNoDrain
	}

	payload, err := s.reader.ReadPacket()
	if err != nil {
		log.Printf("ttp: selector: reading payload for channel %d: %v", id, err)
		if errors.Is(err, codec.ErrTruncated) {
			return fatalDrainOutbound
		}
		return fatalNoDrain
	}

	s.channels[id].Put(payload)
	return fatalNone
}
