// Package frame defines the media value types passed between the wire
// codec, per-source ring buffers, and the compositor/mixer (spec.md §3).
package frame

import "time"

// PixelFormat identifies the layout of a RawImage's pixel buffer.
type PixelFormat uint8

// RGB24 is the only pixel format the core protocol carries.
const RGB24 PixelFormat = 0

// RawImage is one decoded video frame from a client's capture device.
// Pixels is exclusively owned by whoever currently holds the frame; a
// compositor takes only a read-only reference for the duration of one mix.
type RawImage struct {
	Width     int
	Height    int
	Format    PixelFormat
	Timestamp time.Time
	Pixels    []byte // Width*Height*3 bytes, row-major, RGB24
}

// Clone returns a deep copy of the frame's pixel buffer so a caller may hold
// it past the lifetime of the original ring buffer slot.
func (f *RawImage) Clone() *RawImage {
	if f == nil {
		return nil
	}
	cp := make([]byte, len(f.Pixels))
	copy(cp, f.Pixels)
	return &RawImage{
		Width:     f.Width,
		Height:    f.Height,
		Format:    f.Format,
		Timestamp: f.Timestamp,
		Pixels:    cp,
	}
}

// AudioSampleCount is the fixed chunk size carried by every AudioChunk
// (spec.md §3: "fixed 256 samples").
const AudioSampleCount = 256

// AudioChunk is one fixed-size block of PCM samples at the system's single
// shared sample rate. Samples are interleaved when Stereo is true.
type AudioChunk struct {
	Samples []int16
	Stereo  bool
}

// Clone returns a deep copy of the sample buffer.
func (c *AudioChunk) Clone() *AudioChunk {
	if c == nil {
		return nil
	}
	cp := make([]int16, len(c.Samples))
	copy(cp, c.Samples)
	return &AudioChunk{Samples: cp, Stereo: c.Stereo}
}

// Silence returns an AudioChunk of AudioSampleCount zero samples per channel
// (twice that many interleaved samples when stereo), used when
// a source contributes nothing to a mix tick rather than stale audio
// (spec.md §4.7).
func Silence(stereo bool) *AudioChunk {
	n := AudioSampleCount
	if stereo {
		n *= 2
	}
	return &AudioChunk{Samples: make([]int16, n), Stereo: stereo}
}

// AsciiCells is the output of the ASCII kernel: one composited screen as
// pre-formatted bytes (characters plus inline color/cursor escapes),
// sized in terminal cells.
type AsciiCells struct {
	Cols  int
	Rows  int
	Bytes []byte
}
