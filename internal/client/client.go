// Package client implements the per-participant Client record and its four
// worker tasks (spec.md §3 Client, §4.4-§4.7): receive, send, video-render,
// audio-render.
package client

import (
	"context"
	"log/slog"
	"net"
	"sync"

	"github.com/zfogg/asciichat-server/internal/frame"
	"github.com/zfogg/asciichat-server/internal/queue"
	"github.com/zfogg/asciichat-server/internal/ring"
)

// Default ring buffer capacity per spec.md §3; the outbound queue
// capacities are defined in the queue package.
const (
	DefaultRingCapacity = 5
)

// Registry is the subset of the client registry a render worker needs: a
// consistent snapshot of the currently connected clients. Defined here
// (rather than imported from the registry package) so client has no
// dependency on registry, avoiding an import cycle — registry depends on
// client, not the reverse.
type Registry interface {
	Snapshot() []*Client
}

// Client is one connected participant's full state: socket, identity,
// advertised terminal size and capabilities, its four data structures, and
// the mutexes guarding them (spec.md §3).
type Client struct {
	ID          uint32
	Conn        net.Conn
	DisplayName string

	Log *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// state mutex: guards width/height/capabilities/shouldExit only, never
	// held across I/O or compositing (spec.md §5).
	stateMu    sync.Mutex
	width      int
	height     int
	hasVideo   bool
	hasAudio   bool
	shouldExit bool

	// writeMu serializes every write to Conn made through WritePacket —
	// spec.md §5 lock #3, §9 single-socket-owner note. The receive task does
	// not take it: pongs go through VideoOut and the send task.
	writeMu sync.Mutex

	// frameMu guards the last-valid-frame cache (spec.md §5 lock #4,
	// "specialized mutexes (stats, frame cache)").
	frameMu      sync.Mutex
	lastFrame    *frame.RawImage
	hasLastFrame bool

	VideoIn  *ring.Buffer[*frame.RawImage]
	AudioIn  *ring.Buffer[*frame.AudioChunk]
	VideoOut *queue.PacketQueue
	AudioOut *queue.PacketQueue

	doneReceive chan struct{}
	doneSend    chan struct{}
	doneVideo   chan struct{}
	doneAudio   chan struct{}
}

// New constructs a Client with freshly allocated buffers and queues. The
// caller is responsible for registering it and spawning its tasks.
func New(id uint32, conn net.Conn, displayName string, width, height int, hasVideo, hasAudio bool, log *slog.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		ID:          id,
		Conn:        conn,
		DisplayName: displayName,
		Log:         log,
		ctx:         ctx,
		cancel:      cancel,
		width:       width,
		height:      height,
		hasVideo:    hasVideo,
		hasAudio:    hasAudio,
		VideoIn:     ring.New[*frame.RawImage](DefaultRingCapacity),
		AudioIn:     ring.New[*frame.AudioChunk](DefaultRingCapacity),
		VideoOut:    queue.New(queue.DefaultVideoCapacity, queue.DropOldest, log),
		AudioOut:    queue.New(queue.DefaultAudioCapacity, queue.DropNew, log),
		doneReceive: make(chan struct{}),
		doneSend:    make(chan struct{}),
		doneVideo:   make(chan struct{}),
		doneAudio:   make(chan struct{}),
	}
}

// Dimensions returns the client's currently advertised terminal size.
func (c *Client) Dimensions() (width, height int) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.width, c.height
}

// SetDimensions updates the advertised terminal size (spec.md §4.4,
// terminal-size-update dispatch).
func (c *Client) SetDimensions(width, height int) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.width, c.height = width, height
}

// HasVideo reports whether this client currently has a live video source.
func (c *Client) HasVideo() bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.hasVideo
}

// SetHasVideo updates the video capability flag.
func (c *Client) SetHasVideo(v bool) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.hasVideo = v
}

// HasAudio reports whether this client currently has a live audio source.
func (c *Client) HasAudio() bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.hasAudio
}

// SetHasAudio updates the audio capability flag.
func (c *Client) SetHasAudio(v bool) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.hasAudio = v
}

// ShouldExit reports whether this client's local exit flag has been set
// (disconnect packet received, or a task hit a fatal error).
func (c *Client) ShouldExit() bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.shouldExit
}

// SetShouldExit sets the local exit flag and cancels the client's context,
// waking every task blocked on ctx.Done() within one tick (spec.md §5).
func (c *Client) SetShouldExit() {
	c.stateMu.Lock()
	c.shouldExit = true
	c.stateMu.Unlock()
	c.cancel()
}

// Context returns the client's lifecycle context, cancelled once
// SetShouldExit is called or the global shutdown flag tears the client down.
func (c *Client) Context() context.Context { return c.ctx }

// Cancel cancels the client's context without flipping shouldExit. The
// server's per-client teardown calls it once the receive task has exited,
// to stop the send and render tasks before joining them.
func (c *Client) Cancel() { c.cancel() }

// UpdateLastFrame replaces the last-valid-frame cache (spec.md §4.6 step 4).
func (c *Client) UpdateLastFrame(f *frame.RawImage) {
	c.frameMu.Lock()
	defer c.frameMu.Unlock()
	c.lastFrame = f
	c.hasLastFrame = true
}

// LastFrame returns the cached last-valid frame, if any.
func (c *Client) LastFrame() (*frame.RawImage, bool) {
	c.frameMu.Lock()
	defer c.frameMu.Unlock()
	return c.lastFrame, c.hasLastFrame
}
