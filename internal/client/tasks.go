package client

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/zfogg/asciichat-server/internal/asciikernel"
	"github.com/zfogg/asciichat-server/internal/bufpool"
	"github.com/zfogg/asciichat-server/internal/chaterrors"
	"github.com/zfogg/asciichat-server/internal/frame"
	"github.com/zfogg/asciichat-server/internal/grid"
	"github.com/zfogg/asciichat-server/internal/mixer"
	"github.com/zfogg/asciichat-server/internal/wire"
)

// socketTimeout bounds every blocking socket operation (spec.md §5).
const socketTimeout = 10 * time.Second

// WritePacket encodes and writes p to the client's socket, serialized by
// the per-client write mutex (spec.md §5 lock #3). Among the client's tasks
// only the send task calls it; the receive task enqueues pongs on VideoOut
// for the send task to deliver instead of writing to the socket itself.
func (c *Client) WritePacket(p *wire.Packet) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.Conn.SetWriteDeadline(time.Now().Add(socketTimeout))
	return wire.WritePacket(c.Conn, p)
}

// StartReceiveTask drains the socket, dispatching packets per spec.md §4.4.
// Terminates on EOF, read error, CRC error, or the client's own exit flag;
// before returning it cancels the client's context so the other three
// tasks observe shutdown within one tick.
func (c *Client) StartReceiveTask(pool *bufpool.Pool) {
	go func() {
		defer close(c.doneReceive)
		defer c.cancel()

		for {
			select {
			case <-c.ctx.Done():
				return
			default:
			}

			_ = c.Conn.SetReadDeadline(time.Now().Add(socketTimeout))
			p, err := wire.ReadPacket(c.Conn, pool)
			if err != nil {
				c.logReceiveError(err)
				return
			}

			// Every decode path below copies what it needs out of p.Payload, so
			// the pool buffer is safe to return as soon as dispatch is done.
			switch p.Type {
			case wire.TypeImageFrame:
				img, err := frame.DecodeRawImage(p.Payload)
				pool.Put(p.Payload)
				if err != nil {
					c.Log.Warn("malformed image-frame payload", "error", err)
					continue
				}
				img.Timestamp = time.Now()
				c.VideoIn.TryPush(img)
				c.SetHasVideo(true)

			case wire.TypeAudioFrame:
				chunk, err := frame.DecodeAudioChunk(p.Payload)
				pool.Put(p.Payload)
				if err != nil {
					c.Log.Warn("malformed audio-frame payload", "error", err)
					continue
				}
				c.AudioIn.TryPush(chunk)
				c.SetHasAudio(true)

			case wire.TypeTerminalSize:
				w, h, err := wire.DecodeTerminalSize(p.Payload)
				pool.Put(p.Payload)
				if err != nil {
					c.Log.Warn("malformed terminal-size-update payload", "error", err)
					continue
				}
				c.SetDimensions(int(w), int(h))

			case wire.TypePing:
				pool.Put(p.Payload)
				if !c.VideoOut.Enqueue(&wire.Packet{Type: wire.TypePong, SourceID: c.ID}) {
					c.Log.Debug("dropped pong: outbound video queue full")
				}

			case wire.TypeDisconnect:
				pool.Put(p.Payload)
				c.SetShouldExit()
				return

			default:
				pool.Put(p.Payload)
				c.Log.Debug("ignoring unexpected packet type on receive path", "type", p.Type)
			}
		}
	}()
}

func (c *Client) logReceiveError(err error) {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		c.Log.Debug("receive task: connection closed", "error", err)
		return
	}
	if chaterrors.IsTimeout(err) {
		c.Log.Warn("receive task: socket timeout", "error", err)
		return
	}
	if chaterrors.IsProtocolError(err) {
		c.Log.Warn("receive task: protocol error, closing connection", "error", err)
		return
	}
	c.Log.Error("receive task: unexpected error", "error", err)
}

// StartSendTask drains the outbound queues to the socket per spec.md §4.5:
// audio is tried first (latency-sensitive), then video; both dequeues are
// non-blocking, and an empty pair sleeps 1ms before retrying rather than
// blocking on either channel.
func (c *Client) StartSendTask() {
	go func() {
		defer close(c.doneSend)
		defer c.cancel()

		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-c.ctx.Done():
				return
			default:
			}

			sent := false
			if p, ok := c.AudioOut.TryDequeue(); ok {
				if err := c.WritePacket(p); err != nil {
					c.Log.Warn("send task: write failed", "error", err)
					return
				}
				sent = true
			}
			if p, ok := c.VideoOut.TryDequeue(); ok {
				if err := c.WritePacket(p); err != nil {
					c.Log.Warn("send task: write failed", "error", err)
					return
				}
				sent = true
			}
			if sent {
				continue
			}

			select {
			case <-c.ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// StartVideoRenderTask ticks at fps, composing a grid of every other
// has-video client's latest frame and enqueuing the result (spec.md §4.6).
func (c *Client) StartVideoRenderTask(reg Registry, kernel asciikernel.Kernel, fps int) {
	if fps <= 0 {
		fps = 60
	}
	interval := time.Second / time.Duration(fps)

	go func() {
		defer close(c.doneVideo)

		next := time.Now().Add(interval)
		for {
			select {
			case <-c.ctx.Done():
				return
			default:
			}

			c.renderVideoTick(reg, kernel)

			sleep := time.Until(next)
			if sleep > 0 {
				select {
				case <-c.ctx.Done():
					return
				case <-time.After(sleep):
				}
			}
			next = next.Add(interval)
			if time.Now().After(next) {
				next = time.Now().Add(interval) // collapsed a long stall; resync instead of burst-catching-up
			}
		}
	}()
}

func (c *Client) renderVideoTick(reg Registry, kernel asciikernel.Kernel) {
	width, height := c.Dimensions()
	if width <= 0 || height <= 0 {
		return // edge case: zero terminal size skips the tick
	}

	peers := reg.Snapshot()
	sources := make([]grid.Source, 0, len(peers))
	for _, peer := range peers {
		if peer.ID == c.ID || !peer.HasVideo() {
			continue
		}
		if img, ok := peer.VideoIn.TryPop(); ok {
			peer.UpdateLastFrame(img)
			sources = append(sources, grid.Source{ID: peer.ID, Image: img})
			continue
		}
		if img, ok := peer.LastFrame(); ok {
			sources = append(sources, grid.Source{ID: peer.ID, Image: img})
		}
		// neither a fresh frame nor a cached one: omit this source.
	}

	cells, err := grid.Compose(kernel, sources, width, height, asciikernel.PaletteStandard)
	if err != nil {
		c.Log.Warn("video render tick: kernel failure, skipping tick", "error", err)
		return
	}

	pkt := &wire.Packet{Type: wire.TypeAsciiFrame, SourceID: c.ID, Payload: frame.EncodeAsciiCells(cells)}
	c.VideoOut.Enqueue(pkt)
}

// StartAudioRenderTask ticks at rate Hz, mixing every other has-audio
// client's latest chunk (silence for stalled sources) and enqueuing the
// result (spec.md §4.7).
func (c *Client) StartAudioRenderTask(reg Registry, rate int) {
	if rate <= 0 {
		rate = 172
	}
	interval := time.Second / time.Duration(rate)

	go func() {
		defer close(c.doneAudio)

		next := time.Now().Add(interval)
		for {
			select {
			case <-c.ctx.Done():
				return
			default:
			}

			c.renderAudioTick(reg)

			sleep := time.Until(next)
			if sleep > 0 {
				select {
				case <-c.ctx.Done():
					return
				case <-time.After(sleep):
				}
			}
			next = next.Add(interval)
			if time.Now().After(next) {
				next = time.Now().Add(interval)
			}
		}
	}()
}

func (c *Client) renderAudioTick(reg Registry) {
	peers := reg.Snapshot()
	chunks := make([]*frame.AudioChunk, 0, len(peers))
	for _, peer := range peers {
		if peer.ID == c.ID || !peer.HasAudio() {
			continue
		}
		if chunk, ok := peer.AudioIn.TryPop(); ok {
			chunks = append(chunks, chunk)
		} else {
			chunks = append(chunks, frame.Silence(false)) // stale audio is worse than silence
		}
	}

	mixed, err := mixer.Mix(chunks)
	if err != nil {
		c.Log.Warn("audio render tick: mix failure, skipping tick", "error", err)
		return
	}

	pkt := &wire.Packet{Type: wire.TypeAudioMix, SourceID: c.ID, Payload: frame.EncodeAudioChunk(mixed)}
	c.AudioOut.Enqueue(pkt)
}

// JoinReceive blocks until the receive task has exited.
func (c *Client) JoinReceive() { <-c.doneReceive }

// JoinSend blocks until the send task has exited.
func (c *Client) JoinSend() { <-c.doneSend }

// JoinVideo blocks until the video-render task has exited.
func (c *Client) JoinVideo() { <-c.doneVideo }

// JoinAudio blocks until the audio-render task has exited.
func (c *Client) JoinAudio() { <-c.doneAudio }
