// Package packet defines Packet, the protocol's immutable message unit: a
// (header, body, footer) triple that the codec reads and writes verbatim.
//
// A Packet never mutates once constructed; every accessor returns a copy of
// its body so callers cannot reach back into the internal buffer.
package packet

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ttproto/ttp/header"
)

// Packet is an immutable (header, body, footer) triple.
type Packet struct {
	header header.Mask
	body   []byte
	footer uint16
}

// Raw builds a Packet from an already-encoded body with no re-encoding. It is
// the codec's constructor: the wire never carries anything but bytes, and
// this is the only place a decoded frame becomes a Packet. A nil body is
// normalized to empty; Raw never fails.
func Raw(mask header.Mask, body []byte, footer uint16) Packet {
	b := make([]byte, len(body))
	copy(b, body)
	return Packet{header: mask, body: b, footer: footer}
}

// Of encodes body as UTF-8 under the given header tag and footer.
func Of(mask header.Mask, body string, footer uint16) Packet {
	return Raw(mask, []byte(body), footer)
}

// OfBool builds a BOOLEAN packet whose body is "true" or "false".
func OfBool(v bool) Packet {
	if v {
		return Of(header.BOOLEAN, "true", 0)
	}
	return Of(header.BOOLEAN, "false", 0)
}

// OfInt builds an INTEGER packet whose body is the decimal form of v.
func OfInt(v int64) Packet {
	return Of(header.INTEGER, strconv.FormatInt(v, 10), 0)
}

// OfDouble builds a DOUBLE packet whose body is the decimal form of v.
func OfDouble(v float64) Packet {
	return Of(header.DOUBLE, strconv.FormatFloat(v, 'g', -1, 64), 0)
}

// OfString builds a STRING packet whose body is s.
func OfString(s string) Packet {
	return Of(header.STRING, s, 0)
}

// Header returns the packet's header mask.
func (p Packet) Header() header.Mask { return p.header }

// Footer returns the packet's 16-bit auxiliary code.
func (p Packet) Footer() uint16 { return p.footer }

// Body returns a copy of the packet's body bytes.
func (p Packet) Body() []byte {
	b := make([]byte, len(p.body))
	copy(b, p.body)
	return b
}

// Format returns the body decoded as UTF-8. Invalid byte sequences are
// replaced rather than causing an error — Format never fails.
func (p Packet) Format() string {
	if utf8.Valid(p.body) {
		return string(p.body)
	}
	return strings.ToValidUTF8(string(p.body), string(utf8.RuneError))
}

// Equal reports whether p and o have identical header, body, and footer.
func (p Packet) Equal(o Packet) bool {
	return p.header == o.header && p.footer == o.footer && bytes.Equal(p.body, o.body)
}

// Compare orders packets lexicographically on (header, body, footer).
func (p Packet) Compare(o Packet) int {
	if p.header != o.header {
		if p.header < o.header {
			return -1
		}
		return 1
	}
	if c := bytes.Compare(p.body, o.body); c != 0 {
		return c
	}
	if p.footer != o.footer {
		if p.footer < o.footer {
			return -1
		}
		return 1
	}
	return 0
}

// String renders the packet as "[HHH:body:FFFFF]", header zero-padded to 3
// digits and footer zero-padded to 5 digits.
func (p Packet) String() string {
	return fmt.Sprintf("[%03d:%s:%05d]", p.header, p.Format(), p.footer)
}

// Parse is the inverse of String, for printable bodies. It relies on the
// footer always being the trailing 5 digits after the last colon, so a body
// that itself ends in ":ddddd" is ambiguous; callers with such bodies should
// not round-trip through the string form.
func Parse(s string) (Packet, error) {
	if len(s) < 12 || s[0] != '[' || s[len(s)-1] != ']' {
		return Packet{}, fmt.Errorf("packet: malformed string form %q", s)
	}
	inner := s[1 : len(s)-1]
	firstColon := strings.Index(inner, ":")
	if firstColon < 0 {
		return Packet{}, fmt.Errorf("packet: malformed string form %q", s)
	}
	h, err := strconv.ParseInt(inner[:firstColon], 10, 32)
	if err != nil {
		return Packet{}, fmt.Errorf("packet: malformed header in %q: %w", s, err)
	}
	rest := inner[firstColon+1:]
	lastColon := strings.LastIndex(rest, ":")
	if lastColon < 0 {
		return Packet{}, fmt.Errorf("packet: malformed string form %q", s)
	}
	body := rest[:lastColon]
	footerStr := rest[lastColon+1:]
	f, err := strconv.ParseUint(footerStr, 10, 16)
	if err != nil {
		return Packet{}, fmt.Errorf("packet: malformed footer in %q: %w", s, err)
	}
	return Raw(header.Mask(h), []byte(body), uint16(f)), nil
}
