package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/zfogg/asciichat-server/internal/chaterrors"
)

// ProtocolVersion is the only handshake version this server accepts
// (spec.md §6: "protocol-version mismatch closes the connection").
const ProtocolVersion uint16 = 1

// Capability bits in the handshake payload (spec.md §6).
const (
	CapVideo byte = 1 << 0
	CapAudio byte = 1 << 1
)

// Reject reason codes sent in a HandshakeReject payload.
const (
	RejectVersionMismatch byte = 1
	RejectRegistryFull    byte = 2
	RejectMalformed       byte = 3
)

// Handshake is the decoded payload of a TypeHandshake packet.
type Handshake struct {
	Version      uint16
	DisplayName  string
	Width        uint16
	Height       uint16
	Capabilities byte
}

// HasVideo reports whether the video capability bit is set.
func (h Handshake) HasVideo() bool { return h.Capabilities&CapVideo != 0 }

// HasAudio reports whether the audio capability bit is set.
func (h Handshake) HasAudio() bool { return h.Capabilities&CapAudio != 0 }

// EncodeHandshake serializes h as: VERSION(2) | NAME_LEN(1) | NAME(n) |
// WIDTH(2) | HEIGHT(2) | CAPS(1).
func EncodeHandshake(h Handshake) ([]byte, error) {
	if len(h.DisplayName) > 255 {
		return nil, fmt.Errorf("wire: display name exceeds 255 bytes")
	}
	buf := make([]byte, 2+1+len(h.DisplayName)+2+2+1)
	binary.BigEndian.PutUint16(buf[0:2], h.Version)
	buf[2] = byte(len(h.DisplayName))
	n := copy(buf[3:], h.DisplayName)
	off := 3 + n
	binary.BigEndian.PutUint16(buf[off:off+2], h.Width)
	binary.BigEndian.PutUint16(buf[off+2:off+4], h.Height)
	buf[off+4] = h.Capabilities
	return buf, nil
}

// DecodeHandshake parses a handshake payload produced by EncodeHandshake.
func DecodeHandshake(payload []byte) (Handshake, error) {
	var h Handshake
	if len(payload) < 3 {
		return h, chaterrors.NewProtocolError("wire.decode_handshake", fmt.Errorf("short payload: %d bytes", len(payload)))
	}
	h.Version = binary.BigEndian.Uint16(payload[0:2])
	nameLen := int(payload[2])
	if len(payload) < 3+nameLen+5 {
		return h, chaterrors.NewProtocolError("wire.decode_handshake", fmt.Errorf("short payload for name_len=%d", nameLen))
	}
	h.DisplayName = string(payload[3 : 3+nameLen])
	off := 3 + nameLen
	h.Width = binary.BigEndian.Uint16(payload[off : off+2])
	h.Height = binary.BigEndian.Uint16(payload[off+2 : off+4])
	h.Capabilities = payload[off+4]
	return h, nil
}

// HandshakeAccept is the decoded payload of a TypeHandshakeAccept packet.
type HandshakeAccept struct {
	ClientID     uint32
	RegistrySize uint32
}

// EncodeHandshakeAccept serializes a: CLIENT_ID(4) | REGISTRY_SIZE(4).
func EncodeHandshakeAccept(a HandshakeAccept) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[0:4], a.ClientID)
	binary.BigEndian.PutUint32(buf[4:8], a.RegistrySize)
	return buf
}

// DecodeHandshakeAccept parses a handshake-accept payload.
func DecodeHandshakeAccept(payload []byte) (HandshakeAccept, error) {
	var a HandshakeAccept
	if len(payload) < 8 {
		return a, chaterrors.NewProtocolError("wire.decode_handshake_accept", fmt.Errorf("short payload: %d bytes", len(payload)))
	}
	a.ClientID = binary.BigEndian.Uint32(payload[0:4])
	a.RegistrySize = binary.BigEndian.Uint32(payload[4:8])
	return a, nil
}

// EncodeHandshakeReject serializes a reject reason code and free-text reason.
func EncodeHandshakeReject(reason byte, message string) []byte {
	buf := make([]byte, 1+len(message))
	buf[0] = reason
	copy(buf[1:], message)
	return buf
}

// DecodeHandshakeReject parses a handshake-reject payload.
func DecodeHandshakeReject(payload []byte) (reason byte, message string, err error) {
	if len(payload) < 1 {
		return 0, "", chaterrors.NewProtocolError("wire.decode_handshake_reject", fmt.Errorf("empty payload"))
	}
	return payload[0], string(payload[1:]), nil
}

// EncodeTerminalSize serializes a terminal-size-update payload: WIDTH(2) |
// HEIGHT(2).
func EncodeTerminalSize(width, height uint16) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint16(buf[0:2], width)
	binary.BigEndian.PutUint16(buf[2:4], height)
	return buf
}

// DecodeTerminalSize parses a terminal-size-update payload.
func DecodeTerminalSize(payload []byte) (width, height uint16, err error) {
	if len(payload) < 4 {
		return 0, 0, chaterrors.NewProtocolError("wire.decode_terminal_size", fmt.Errorf("short payload: %d bytes", len(payload)))
	}
	return binary.BigEndian.Uint16(payload[0:2]), binary.BigEndian.Uint16(payload[2:4]), nil
}
