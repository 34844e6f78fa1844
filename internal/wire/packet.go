// Package wire implements the asciichat binary framing protocol: a fixed
// 20-byte header (magic, type, flags, source id, payload length, CRC32)
// followed by the payload. See spec.md §4.1 for the wire contract.
package wire

import "fmt"

// Magic is the fixed 4-byte marker at the start of every packet. A mismatch
// is unrecoverable for the socket (spec.md §4.1).
const Magic uint32 = 0x41534349 // "ASCI"

// HeaderSize is the number of bytes in the fixed packet header, preceding
// the payload: MAGIC(4) | TYPE(1) | FLAGS(1) | RESERVED(2) | SRC_ID(4) |
// LEN(4) | CRC32(4).
const HeaderSize = 20

// MaxPayloadSize bounds a single packet's payload (spec.md §3).
const MaxPayloadSize = 5 * 1024 * 1024 // 5 MiB

// Type identifies the kind of packet carried in the envelope.
type Type uint8

// Packet types in the core protocol (spec.md §3).
const (
	TypeHandshake Type = iota + 1
	TypeHandshakeAccept
	TypeHandshakeReject
	TypeTerminalSize
	TypeImageFrame
	TypeAudioFrame
	TypeAsciiFrame
	TypeAudioMix
	TypePing
	TypePong
	TypeDisconnect
)

func (t Type) String() string {
	switch t {
	case TypeHandshake:
		return "handshake"
	case TypeHandshakeAccept:
		return "handshake-accept"
	case TypeHandshakeReject:
		return "handshake-reject"
	case TypeTerminalSize:
		return "terminal-size-update"
	case TypeImageFrame:
		return "image-frame"
	case TypeAudioFrame:
		return "audio-frame"
	case TypeAsciiFrame:
		return "ascii-frame"
	case TypeAudioMix:
		return "audio-mix-frame"
	case TypePing:
		return "ping"
	case TypePong:
		return "pong"
	case TypeDisconnect:
		return "disconnect"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// Flag bits understood in the header's FLAGS byte. Currently unused by the
// core protocol but reserved so future capability negotiation does not
// require a wire format change.
const (
	FlagNone byte = 0
)

// Packet is the in-memory representation of one wire message. SourceID is
// the originating client's registry id; for server-to-client packets it
// identifies whichever source the payload concerns (0 when not applicable).
type Packet struct {
	Type     Type
	Flags    byte
	SourceID uint32
	Payload  []byte
}

// Size returns the encoded length of the packet (header + payload).
func (p *Packet) Size() int {
	if p == nil {
		return 0
	}
	return HeaderSize + len(p.Payload)
}
