package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/zfogg/asciichat-server/internal/wire"
)

func pkt(id uint32) *wire.Packet {
	return &wire.Packet{Type: wire.TypeAsciiFrame, SourceID: id}
}

func TestEnqueueDequeueFIFO(t *testing.T) {
	t.Parallel()

	q := New(4, DropOldest, nil)
	for i := uint32(1); i <= 3; i++ {
		if !q.Enqueue(pkt(i)) {
			t.Fatalf("expected enqueue %d to succeed", i)
		}
	}
	for i := uint32(1); i <= 3; i++ {
		p, ok := q.TryDequeue()
		if !ok || p.SourceID != i {
			t.Fatalf("expected packet %d, got %+v ok=%v", i, p, ok)
		}
	}
	if _, ok := q.TryDequeue(); ok {
		t.Fatalf("expected empty queue")
	}
}

func TestDropOldestPolicy(t *testing.T) {
	t.Parallel()

	q := New(3, DropOldest, nil)
	for i := uint32(1); i <= 5; i++ {
		q.Enqueue(pkt(i))
	}
	if got := q.Dropped(); got != 2 {
		t.Fatalf("expected 2 dropped, got %d", got)
	}
	want := []uint32{3, 4, 5}
	for _, w := range want {
		p, ok := q.TryDequeue()
		if !ok || p.SourceID != w {
			t.Fatalf("expected source %d, got %+v ok=%v", w, p, ok)
		}
	}
}

func TestDropNewPolicy(t *testing.T) {
	t.Parallel()

	q := New(3, DropNew, nil)
	for i := uint32(1); i <= 5; i++ {
		q.Enqueue(pkt(i))
	}
	if got := q.Dropped(); got != 2 {
		t.Fatalf("expected 2 dropped, got %d", got)
	}
	want := []uint32{1, 2, 3}
	for _, w := range want {
		p, ok := q.TryDequeue()
		if !ok || p.SourceID != w {
			t.Fatalf("expected source %d, got %+v ok=%v", w, p, ok)
		}
	}
}

// TestTryDequeueNeverBlocks exercises spec.md §8's non-blocking dequeue
// property: an empty queue returns absent within a bounded time rather than
// waiting for a producer.
func TestTryDequeueNeverBlocks(t *testing.T) {
	t.Parallel()

	q := New(4, DropOldest, nil)
	done := make(chan struct{})
	go func() {
		_, ok := q.TryDequeue()
		if ok {
			t.Error("expected empty dequeue to report absent")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(50 * time.Millisecond):
		t.Fatal("TryDequeue blocked on an empty queue")
	}
}

func TestConcurrentEnqueueDequeue(t *testing.T) {
	t.Parallel()

	q := New(8, DropOldest, nil)
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := uint32(0); i < 500; i++ {
			q.Enqueue(pkt(i))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			q.TryDequeue()
		}
	}()
	wg.Wait()
}
