// Package directcodec exposes the frame codec directly over a stream with
// no channels, no routing frames, and no selector goroutine — for the
// singleplex case where a connection carries exactly one logical stream of
// packets and multiplexing overhead isn't needed.
package directcodec

import (
	"github.com/ttproto/ttp/codec"
	"github.com/ttproto/ttp/packet"
	"github.com/ttproto/ttp/stream"
)

// Stream wraps a single connection with a packet writer and a blocking
// packet reader, skipping the routing-frame discipline a multiplexed
// portal needs.
type Stream struct {
	conn   stream.Conn
	writer *codec.Writer
	reader *codec.Reader
}

// Open wraps conn for direct, unmultiplexed packet exchange.
func Open(conn stream.Conn) *Stream {
	return &Stream{
		conn:   conn,
		writer: codec.NewWriter(conn),
		reader: codec.NewReader(conn),
	}
}

// Send writes p directly to the wire, with no routing frame ahead of it.
func (s *Stream) Send(p packet.Packet) error {
	return s.writer.WritePacket(p)
}

// Receive blocks until a full packet has arrived or the connection ends.
func (s *Stream) Receive() (packet.Packet, error) {
	return s.reader.ReadPacket()
}

// Close closes the underlying connection.
func (s *Stream) Close() error {
	return s.conn.Close()
}
