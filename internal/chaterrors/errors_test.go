package chaterrors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"testing"
	"time"
)

type fakeTimeoutErr struct{}

func (fakeTimeoutErr) Error() string { return "fake timeout" }
func (fakeTimeoutErr) Timeout() bool { return true }

func TestIsProtocolErrorClassification(t *testing.T) {
	root := stdErrors.New("root")
	wrapped := fmt.Errorf("adding context: %w", root)
	hs := NewHandshakeError("handshake.read", wrapped)
	if !IsProtocolError(hs) {
		t.Fatalf("expected IsProtocolError=true for handshake error")
	}
	if !stdErrors.Is(hs, root) {
		t.Fatalf("expected errors.Is to find root cause")
	}
	var he *HandshakeError
	if !stdErrors.As(hs, &he) {
		t.Fatalf("expected errors.As to *HandshakeError")
	}
	if he.Op != "handshake.read" {
		t.Fatalf("unexpected op: %s", he.Op)
	}

	crc := NewCRCError("decode.payload", 0xdeadbeef, 0x1)
	if !IsProtocolError(crc) {
		t.Fatalf("expected crc error classified as protocol")
	}

	p := NewProtocolError("decode.header", stdErrors.New("bad magic"))
	if !IsProtocolError(p) {
		t.Fatalf("expected protocol error classified")
	}
}

func TestIsTimeout(t *testing.T) {
	root := fakeTimeoutErr{}
	to := NewTimeoutError("socket.read", 10*time.Second, root)
	if !IsTimeout(to) {
		t.Fatalf("expected TimeoutError recognized")
	}
	if IsProtocolError(to) {
		t.Fatalf("timeout should NOT be protocol error")
	}
	if !IsTimeout(context.DeadlineExceeded) {
		t.Fatalf("expected context deadline recognized")
	}
	var ne error = root
	if !IsTimeout(ne) {
		t.Fatalf("expected net-like timeout recognized")
	}
}

func TestIsFatal(t *testing.T) {
	if !IsFatal(NewCRCError("decode", 1, 2)) {
		t.Fatalf("CRC errors must be fatal for the socket")
	}
	if !IsFatal(NewTimeoutError("read", time.Second, nil)) {
		t.Fatalf("timeouts must be fatal for the socket")
	}
	if IsFatal(NewOverflowError("ring.push", "ring_buffer", "drop_oldest")) {
		t.Fatalf("overflow must never be fatal")
	}
}

func TestNilSafety(t *testing.T) {
	if IsProtocolError(nil) {
		t.Fatalf("nil should not be protocol error")
	}
	if IsTimeout(nil) {
		t.Fatalf("nil should not be timeout")
	}
	if IsFatal(nil) {
		t.Fatalf("nil should not be fatal")
	}
}

func TestErrorStrings(t *testing.T) {
	if s := NewProtocolError("op", nil).Error(); s == "" {
		t.Fatalf("empty protocol error string")
	}
	if s := NewHandshakeError("op", nil).Error(); s == "" {
		t.Fatalf("empty handshake error string")
	}
	if s := NewCRCError("op", 1, 2).Error(); s == "" {
		t.Fatalf("empty crc error string")
	}
	if s := NewTimeoutError("op", time.Second, nil).Error(); s == "" {
		t.Fatalf("empty timeout error string")
	}
	if s := NewOverflowError("op", "ring_buffer", "drop_oldest").Error(); s == "" {
		t.Fatalf("empty overflow error string")
	}
}

func TestUnwrapChains(t *testing.T) {
	base := stdErrors.New("closed")
	l1 := fmt.Errorf("read: %w", base)
	l2 := NewHandshakeError("handshake.read", l1)
	if !stdErrors.Is(l2, base) {
		t.Fatalf("errors.Is should reach base cause")
	}
	var pm protocolMarker
	if !stdErrors.As(l2, &pm) {
		t.Fatalf("expected to match protocolMarker via As")
	}
}

func TestNegativePredicates(t *testing.T) {
	if IsProtocolError(stdErrors.New("plain")) {
		t.Fatalf("plain error shouldn't be protocol")
	}
	if IsTimeout(stdErrors.New("plain")) {
		t.Fatalf("plain error shouldn't be timeout")
	}
}
