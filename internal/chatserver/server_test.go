package chatserver

import (
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/zfogg/asciichat-server/internal/wire"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dialAndHandshake(t *testing.T, addr, name string, width, height uint16, caps byte) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	payload, err := wire.EncodeHandshake(wire.Handshake{
		Version: wire.ProtocolVersion, DisplayName: name, Width: width, Height: height, Capabilities: caps,
	})
	if err != nil {
		t.Fatalf("EncodeHandshake: %v", err)
	}
	if err := wire.WritePacket(conn, &wire.Packet{Type: wire.TypeHandshake, Payload: payload}); err != nil {
		t.Fatalf("WritePacket handshake: %v", err)
	}
	return conn
}

func TestServerStartStop(t *testing.T) {
	t.Parallel()

	s := New(Config{ListenAddr: ":0"}, testLogger())
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.Addr() == nil {
		t.Fatalf("expected non-nil addr")
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	// Stop is idempotent.
	if err := s.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestServerAcceptsHandshakeAndRegistersClient(t *testing.T) {
	t.Parallel()

	s := New(Config{ListenAddr: ":0", MaxClients: 3}, testLogger())
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	conn := dialAndHandshake(t, s.Addr().String(), "alice", 80, 24, wire.CapVideo)
	defer conn.Close()

	p, err := wire.ReadPacket(conn, nil)
	if err != nil {
		t.Fatalf("ReadPacket: %v", err)
	}
	if p.Type != wire.TypeHandshakeAccept {
		t.Fatalf("expected handshake-accept, got %v", p.Type)
	}
	accept, err := wire.DecodeHandshakeAccept(p.Payload)
	if err != nil {
		t.Fatalf("DecodeHandshakeAccept: %v", err)
	}
	if accept.ClientID == 0 {
		t.Fatalf("expected nonzero client id")
	}
	if accept.RegistrySize != 3 {
		t.Fatalf("expected registry size 3, got %d", accept.RegistrySize)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && s.ClientCount() != 1 {
		time.Sleep(10 * time.Millisecond)
	}
	if s.ClientCount() != 1 {
		t.Fatalf("expected 1 registered client, got %d", s.ClientCount())
	}
}

func TestServerRejectsVersionMismatch(t *testing.T) {
	t.Parallel()

	s := New(Config{ListenAddr: ":0"}, testLogger())
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	conn, err := net.DialTimeout("tcp", s.Addr().String(), 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	payload, _ := wire.EncodeHandshake(wire.Handshake{Version: wire.ProtocolVersion + 1, DisplayName: "bob"})
	if err := wire.WritePacket(conn, &wire.Packet{Type: wire.TypeHandshake, Payload: payload}); err != nil {
		t.Fatalf("WritePacket: %v", err)
	}

	p, err := wire.ReadPacket(conn, nil)
	if err != nil {
		t.Fatalf("ReadPacket: %v", err)
	}
	if p.Type != wire.TypeHandshakeReject {
		t.Fatalf("expected handshake-reject, got %v", p.Type)
	}
	reason, _, err := wire.DecodeHandshakeReject(p.Payload)
	if err != nil {
		t.Fatalf("DecodeHandshakeReject: %v", err)
	}
	if reason != wire.RejectVersionMismatch {
		t.Fatalf("expected RejectVersionMismatch, got %d", reason)
	}
}

func TestServerRejectsWhenRegistryFull(t *testing.T) {
	t.Parallel()

	s := New(Config{ListenAddr: ":0", MaxClients: 1}, testLogger())
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	first := dialAndHandshake(t, s.Addr().String(), "alice", 80, 24, wire.CapVideo)
	defer first.Close()
	if _, err := wire.ReadPacket(first, nil); err != nil {
		t.Fatalf("first ReadPacket: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && s.ClientCount() != 1 {
		time.Sleep(10 * time.Millisecond)
	}

	second := dialAndHandshake(t, s.Addr().String(), "bob", 80, 24, wire.CapVideo)
	defer second.Close()
	p, err := wire.ReadPacket(second, nil)
	if err != nil {
		t.Fatalf("second ReadPacket: %v", err)
	}
	if p.Type != wire.TypeHandshakeReject {
		t.Fatalf("expected handshake-reject for full registry, got %v", p.Type)
	}
	reason, _, _ := wire.DecodeHandshakeReject(p.Payload)
	if reason != wire.RejectRegistryFull {
		t.Fatalf("expected RejectRegistryFull, got %d", reason)
	}
}

func TestServerStopClosesActiveConnections(t *testing.T) {
	t.Parallel()

	s := New(Config{ListenAddr: ":0"}, testLogger())
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	conn := dialAndHandshake(t, s.Addr().String(), "alice", 80, 24, wire.CapVideo)
	defer conn.Close()
	if _, err := wire.ReadPacket(conn, nil); err != nil {
		t.Fatalf("ReadPacket: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && s.ClientCount() != 1 {
		time.Sleep(10 * time.Millisecond)
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	// The server may already have streamed frames to this client; drain them
	// until the read fails, then require the failure to be the server's close
	// (EOF or reset) rather than the read deadline.
	buf := make([]byte, 4096)
	var err error
	for err == nil {
		_, err = conn.Read(buf)
	}
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		t.Fatalf("expected read error after server stop closed the connection, got timeout: %v", err)
	}
}
