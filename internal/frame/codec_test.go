package frame

import (
	"bytes"
	"testing"
)

func TestRawImageRoundTrip(t *testing.T) {
	t.Parallel()

	f := &RawImage{Width: 4, Height: 2, Format: RGB24, Pixels: bytes.Repeat([]byte{0x11, 0x22, 0x33}, 8)}
	payload := EncodeRawImage(f)
	got, err := DecodeRawImage(payload)
	if err != nil {
		t.Fatalf("DecodeRawImage: %v", err)
	}
	if got.Width != f.Width || got.Height != f.Height || got.Format != f.Format {
		t.Fatalf("metadata mismatch: got %+v", got)
	}
	if !bytes.Equal(got.Pixels, f.Pixels) {
		t.Fatalf("pixel mismatch")
	}
}

func TestDecodeRawImageRejectsShortPayload(t *testing.T) {
	t.Parallel()

	if _, err := DecodeRawImage([]byte{0, 0, 0, 4}); err == nil {
		t.Fatalf("expected error for short payload")
	}
}

func TestAudioChunkRoundTrip(t *testing.T) {
	t.Parallel()

	c := &AudioChunk{Samples: []int16{1, -1, 32000, -32000, 0}, Stereo: true}
	payload := EncodeAudioChunk(c)
	got, err := DecodeAudioChunk(payload)
	if err != nil {
		t.Fatalf("DecodeAudioChunk: %v", err)
	}
	if got.Stereo != c.Stereo {
		t.Fatalf("expected stereo=%v, got %v", c.Stereo, got.Stereo)
	}
	if len(got.Samples) != len(c.Samples) {
		t.Fatalf("expected %d samples, got %d", len(c.Samples), len(got.Samples))
	}
	for i, s := range c.Samples {
		if got.Samples[i] != s {
			t.Fatalf("sample %d: got %d want %d", i, got.Samples[i], s)
		}
	}
}

func TestSilenceProducesZeroedChunk(t *testing.T) {
	t.Parallel()

	s := Silence(true)
	if len(s.Samples) != AudioSampleCount*2 {
		t.Fatalf("expected %d stereo samples, got %d", AudioSampleCount*2, len(s.Samples))
	}
	for _, v := range s.Samples {
		if v != 0 {
			t.Fatalf("expected silence, got sample %d", v)
		}
	}
}
