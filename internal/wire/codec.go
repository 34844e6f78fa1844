package wire

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/zfogg/asciichat-server/internal/bufpool"
	"github.com/zfogg/asciichat-server/internal/chaterrors"
)

// Encode serializes p into a newly allocated byte slice: MAGIC(4) | TYPE(1) |
// FLAGS(1) | RESERVED(2) | SRC_ID(4) | LEN(4) | CRC32(4) | PAYLOAD. All
// multi-byte integers are big-endian; the CRC32 covers TYPE, FLAGS,
// RESERVED, SRC_ID, LEN, and PAYLOAD, so corruption anywhere in the header
// besides MAGIC is caught as a checksum mismatch rather than silently
// accepted.
func Encode(p *Packet) ([]byte, error) {
	if p == nil {
		return nil, chaterrors.NewProtocolError("wire.encode", fmt.Errorf("nil packet"))
	}
	if len(p.Payload) > MaxPayloadSize {
		return nil, chaterrors.NewProtocolError("wire.encode", fmt.Errorf("payload too large: %d bytes", len(p.Payload)))
	}

	buf := make([]byte, HeaderSize+len(p.Payload))
	binary.BigEndian.PutUint32(buf[0:4], Magic)
	buf[4] = byte(p.Type)
	buf[5] = p.Flags
	// buf[6:8] reserved, left zero.
	binary.BigEndian.PutUint32(buf[8:12], p.SourceID)
	binary.BigEndian.PutUint32(buf[12:16], uint32(len(p.Payload)))
	copy(buf[HeaderSize:], p.Payload)
	binary.BigEndian.PutUint32(buf[16:20], checksumFields(buf[4:16], p.Payload))
	return buf, nil
}

// checksumFields computes the CRC32 covering the checksummed header fields
// (TYPE through LEN, i.e. buf[4:16]) and the payload, as a single running
// hash so neither side needs to allocate a concatenated buffer.
func checksumFields(headerFields []byte, payload []byte) uint32 {
	h := crc32.NewIEEE()
	h.Write(headerFields)
	h.Write(payload)
	return h.Sum32()
}

// WritePacket encodes and writes p to w in a single Write call. Combined with
// the caller's per-socket write mutex (spec.md §5), this guarantees no other
// writer can interleave bytes mid-packet.
func WritePacket(w io.Writer, p *Packet) error {
	buf, err := Encode(p)
	if err != nil {
		return err
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("wire.write: %w", err)
	}
	return nil
}

// header is the parsed fixed-size envelope preceding the payload.
type header struct {
	Type     Type
	Flags    byte
	SourceID uint32
	Length   uint32
	CRC      uint32
}

func decodeHeader(raw []byte) (header, error) {
	var h header
	if len(raw) != HeaderSize {
		return h, chaterrors.NewProtocolError("wire.decode_header", fmt.Errorf("short header: %d bytes", len(raw)))
	}
	magic := binary.BigEndian.Uint32(raw[0:4])
	if magic != Magic {
		return h, chaterrors.NewProtocolError("wire.decode_header", fmt.Errorf("bad magic %#08x", magic))
	}
	h.Type = Type(raw[4])
	h.Flags = raw[5]
	h.SourceID = binary.BigEndian.Uint32(raw[8:12])
	h.Length = binary.BigEndian.Uint32(raw[12:16])
	h.CRC = binary.BigEndian.Uint32(raw[16:20])
	if h.Length > MaxPayloadSize {
		return h, chaterrors.NewProtocolError("wire.decode_header", fmt.Errorf("payload length %d exceeds max %d", h.Length, MaxPayloadSize))
	}
	if !isKnownType(h.Type) {
		return h, chaterrors.NewProtocolError("wire.decode_header", fmt.Errorf("unknown packet type %d", h.Type))
	}
	return h, nil
}

func isKnownType(t Type) bool {
	switch t {
	case TypeHandshake, TypeHandshakeAccept, TypeHandshakeReject, TypeTerminalSize,
		TypeImageFrame, TypeAudioFrame, TypeAsciiFrame, TypeAudioMix,
		TypePing, TypePong, TypeDisconnect:
		return true
	default:
		return false
	}
}

// ReadPacket reads one complete packet from r: the fixed header first, then
// exactly Length payload bytes, validating the CRC32 before returning. A bad
// magic or CRC mismatch is unrecoverable for the connection (spec.md §4.1);
// the caller is expected to close the socket on either. pool may be nil, in
// which case a fresh slice is allocated per payload.
func ReadPacket(r io.Reader, pool *bufpool.Pool) (*Packet, error) {
	var hdrBuf [HeaderSize]byte
	if _, err := io.ReadFull(r, hdrBuf[:]); err != nil {
		return nil, err // EOF / closed propagated untouched so callers detect clean disconnects
	}
	h, err := decodeHeader(hdrBuf[:])
	if err != nil {
		return nil, err
	}

	var payload []byte
	if h.Length > 0 {
		if pool != nil {
			payload = pool.Get(int(h.Length))
		} else {
			payload = make([]byte, h.Length)
		}
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, fmt.Errorf("wire.read_payload: %w", err)
		}
	}

	if actual := checksumFields(hdrBuf[4:16], payload); actual != h.CRC {
		return nil, chaterrors.NewCRCError("wire.decode", h.CRC, actual)
	}

	return &Packet{Type: h.Type, Flags: h.Flags, SourceID: h.SourceID, Payload: payload}, nil
}

// Decode parses a complete in-memory buffer (header+payload) into a Packet.
// Used by tests exercising the codec round-trip property directly against
// an encoded byte slice rather than a stream.
func Decode(buf []byte) (*Packet, error) {
	if len(buf) < HeaderSize {
		return nil, chaterrors.NewProtocolError("wire.decode", fmt.Errorf("short buffer: %d bytes", len(buf)))
	}
	h, err := decodeHeader(buf[:HeaderSize])
	if err != nil {
		return nil, err
	}
	payload := buf[HeaderSize:]
	if uint32(len(payload)) != h.Length {
		return nil, chaterrors.NewProtocolError("wire.decode", fmt.Errorf("payload length mismatch: header=%d actual=%d", h.Length, len(payload)))
	}
	if actual := checksumFields(buf[4:16], payload); actual != h.CRC {
		return nil, chaterrors.NewCRCError("wire.decode", h.CRC, actual)
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	return &Packet{Type: h.Type, Flags: h.Flags, SourceID: h.SourceID, Payload: cp}, nil
}
