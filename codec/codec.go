// Package codec reads and writes a Packet to a byte stream using the fixed
// big-endian frame layout:
//
//	offset  size  field
//	0       4     header (int32)
//	4       4     body_length (int32, nonnegative)
//	8       L     body (body_length bytes)
//	8+L     2     footer (uint16)
//
// The codec does not validate that header is a known mask and does not
// interpret body — it is a pure framing layer built on io.ReadFull and
// io.Writer.
package codec

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/ttproto/ttp/header"
	"github.com/ttproto/ttp/packet"
)

// frameHeaderSize is the size in bytes of the header+body_length prefix
// (offsets 0..8 in the layout above). The footer trails the body and is
// always 2 bytes.
const frameHeaderSize = 8

// Sentinel signals, never errors in the panic sense: a caller's read loop
// checks for these with errors.Is and continues.
var (
	// ErrEndOfStream reports that the peer closed cleanly at a frame
	// boundary — no byte of a new frame had been read yet.
	ErrEndOfStream = errors.New("ttp: codec: end of stream")
	// ErrPollTimeout reports that a TryReadPacket call's polling window
	// elapsed with no byte available. Benign: the caller should rotate to
	// another channel and try again later.
	ErrPollTimeout = errors.New("ttp: codec: poll timeout")
	// ErrTruncated reports that the stream ended (or errored) in the
	// middle of a frame. Fatal for the connection.
	ErrTruncated = errors.New("ttp: codec: truncated frame")
)

// Writer writes Packets to an underlying buffered stream.
type Writer struct {
	bw *bufio.Writer
}

// NewWriter wraps w in a buffered frame writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriter(w)}
}

// WritePacket writes header, body_length, body, and footer, then flushes the
// underlying buffered stream.
func (w *Writer) WritePacket(p packet.Packet) error {
	body := p.Body()

	prefix := make([]byte, frameHeaderSize)
	binary.BigEndian.PutUint32(prefix[0:4], uint32(p.Header()))
	binary.BigEndian.PutUint32(prefix[4:8], uint32(len(body)))
	if _, err := w.bw.Write(prefix); err != nil {
		return fmt.Errorf("ttp: codec: write header: %w", err)
	}

	if len(body) > 0 {
		if _, err := w.bw.Write(body); err != nil {
			return fmt.Errorf("ttp: codec: write body: %w", err)
		}
	}

	footer := make([]byte, 2)
	binary.BigEndian.PutUint16(footer, p.Footer())
	if _, err := w.bw.Write(footer); err != nil {
		return fmt.Errorf("ttp: codec: write footer: %w", err)
	}

	if err := w.bw.Flush(); err != nil {
		return fmt.Errorf("ttp: codec: flush: %w", err)
	}
	return nil
}

// Reader reads Packets from a stream.Conn-like source. It reads directly
// from the connection rather than through a bufio.Reader so that a read
// deadline set for TryReadPacket applies to exactly the bytes it is meant
// to bound.
type Reader struct {
	conn deadlineReader
}

// deadlineReader is the subset of stream.Conn the Reader needs. Declared
// locally (rather than importing stream) to keep codec usable against
// anything with this shape, including a bare net.Conn.
type deadlineReader interface {
	io.Reader
	SetReadDeadline(t time.Time) error
}

// NewReader builds a Reader over conn.
func NewReader(conn deadlineReader) *Reader {
	return &Reader{conn: conn}
}

// ReadPacket reads one complete frame, blocking indefinitely. End-of-stream
// before any byte of the frame returns ErrEndOfStream; any other failure
// partway through returns ErrTruncated.
func (r *Reader) ReadPacket() (packet.Packet, error) {
	prefix := make([]byte, frameHeaderSize)
	n, err := io.ReadFull(r.conn, prefix)
	if n == 0 && errors.Is(err, io.EOF) {
		return packet.Packet{}, ErrEndOfStream
	}
	if err != nil {
		return packet.Packet{}, fmt.Errorf("%w: reading header: %v", ErrTruncated, err)
	}
	return r.readRemainder(prefix)
}

// TryReadPacket attempts to read one complete frame within pollWindow. If no
// byte of a new frame arrives in time, it returns ErrPollTimeout. If the
// peer has closed cleanly at the frame boundary, it returns ErrEndOfStream.
// Once the first byte has been read, the read commits and blocks
// indefinitely for the rest of the frame, exactly like ReadPacket.
func (r *Reader) TryReadPacket(pollWindow time.Duration) (packet.Packet, error) {
	if err := r.conn.SetReadDeadline(time.Now().Add(pollWindow)); err != nil {
		// A closed connection rejects the deadline but does not block a
		// read, so the read below tells a peer close (end of stream) apart
		// from a local one.
		if !errors.Is(err, io.ErrClosedPipe) && !errors.Is(err, net.ErrClosed) {
			return packet.Packet{}, fmt.Errorf("ttp: codec: set read deadline: %w", err)
		}
	}

	first := make([]byte, 1)
	n, err := io.ReadFull(r.conn, first)
	if n == 0 {
		_ = r.conn.SetReadDeadline(time.Time{})
		if isTimeout(err) {
			return packet.Packet{}, ErrPollTimeout
		}
		if errors.Is(err, io.EOF) {
			return packet.Packet{}, ErrEndOfStream
		}
		return packet.Packet{}, fmt.Errorf("ttp: codec: read routing frame: %w", err)
	}

	// Committed: a byte arrived, so the rest of the frame is read with no
	// deadline, per the "blocks indefinitely once the first byte has been
	// read" rule.
	if err := r.conn.SetReadDeadline(time.Time{}); err != nil {
		return packet.Packet{}, fmt.Errorf("ttp: codec: clear read deadline: %w", err)
	}

	rest := make([]byte, frameHeaderSize-1)
	if _, err := io.ReadFull(r.conn, rest); err != nil {
		return packet.Packet{}, fmt.Errorf("%w: reading header: %v", ErrTruncated, err)
	}
	prefix := append(first, rest...)
	return r.readRemainder(prefix)
}

// readRemainder reads the body and footer that follow an already-read
// 8-byte header+body_length prefix. Any failure here is truncation: the
// frame boundary has already been crossed.
func (r *Reader) readRemainder(prefix []byte) (packet.Packet, error) {
	h := int32(binary.BigEndian.Uint32(prefix[0:4]))
	bodyLen := binary.BigEndian.Uint32(prefix[4:8])

	body := make([]byte, bodyLen)
	if bodyLen > 0 {
		if _, err := io.ReadFull(r.conn, body); err != nil {
			return packet.Packet{}, fmt.Errorf("%w: reading body: %v", ErrTruncated, err)
		}
	}

	footerBuf := make([]byte, 2)
	if _, err := io.ReadFull(r.conn, footerBuf); err != nil {
		return packet.Packet{}, fmt.Errorf("%w: reading footer: %v", ErrTruncated, err)
	}
	footer := binary.BigEndian.Uint16(footerBuf)

	return packet.Raw(header.Mask(h), body, footer), nil
}

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return errors.Is(err, os.ErrDeadlineExceeded)
}
