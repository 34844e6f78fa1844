package frame

import (
	"encoding/binary"
	"fmt"
)

// EncodeRawImage serializes an image-frame payload: WIDTH(4) | HEIGHT(4) |
// FORMAT(1) | PIXELS(width*height*3).
func EncodeRawImage(f *RawImage) []byte {
	buf := make([]byte, 4+4+1+len(f.Pixels))
	binary.BigEndian.PutUint32(buf[0:4], uint32(f.Width))
	binary.BigEndian.PutUint32(buf[4:8], uint32(f.Height))
	buf[8] = byte(f.Format)
	copy(buf[9:], f.Pixels)
	return buf
}

// DecodeRawImage parses an image-frame payload produced by EncodeRawImage.
func DecodeRawImage(payload []byte) (*RawImage, error) {
	if len(payload) < 9 {
		return nil, fmt.Errorf("frame: short image payload: %d bytes", len(payload))
	}
	width := int(binary.BigEndian.Uint32(payload[0:4]))
	height := int(binary.BigEndian.Uint32(payload[4:8]))
	format := PixelFormat(payload[8])
	want := width * height * 3
	if len(payload)-9 < want {
		return nil, fmt.Errorf("frame: image payload too short: have %d want %d", len(payload)-9, want)
	}
	pixels := make([]byte, want)
	copy(pixels, payload[9:9+want])
	return &RawImage{Width: width, Height: height, Format: format, Pixels: pixels}, nil
}

// EncodeAsciiCells serializes an ascii-frame payload: COLS(2) | ROWS(2) |
// BYTES(remainder).
func EncodeAsciiCells(c AsciiCells) []byte {
	buf := make([]byte, 4+len(c.Bytes))
	binary.BigEndian.PutUint16(buf[0:2], uint16(c.Cols))
	binary.BigEndian.PutUint16(buf[2:4], uint16(c.Rows))
	copy(buf[4:], c.Bytes)
	return buf
}

// DecodeAsciiCells parses an ascii-frame payload produced by EncodeAsciiCells.
func DecodeAsciiCells(payload []byte) (AsciiCells, error) {
	if len(payload) < 4 {
		return AsciiCells{}, fmt.Errorf("frame: short ascii-cells payload: %d bytes", len(payload))
	}
	cols := int(binary.BigEndian.Uint16(payload[0:2]))
	rows := int(binary.BigEndian.Uint16(payload[2:4]))
	data := make([]byte, len(payload)-4)
	copy(data, payload[4:])
	return AsciiCells{Cols: cols, Rows: rows, Bytes: data}, nil
}

// EncodeAudioChunk serializes an audio-frame payload: STEREO(1) |
// SAMPLES(2*len, int16 big-endian each).
func EncodeAudioChunk(c *AudioChunk) []byte {
	buf := make([]byte, 1+2*len(c.Samples))
	if c.Stereo {
		buf[0] = 1
	}
	for i, s := range c.Samples {
		binary.BigEndian.PutUint16(buf[1+2*i:3+2*i], uint16(s))
	}
	return buf
}

// DecodeAudioChunk parses an audio-frame payload produced by EncodeAudioChunk.
func DecodeAudioChunk(payload []byte) (*AudioChunk, error) {
	if len(payload) < 1 {
		return nil, fmt.Errorf("frame: empty audio payload")
	}
	if (len(payload)-1)%2 != 0 {
		return nil, fmt.Errorf("frame: odd-length audio sample data: %d bytes", len(payload)-1)
	}
	stereo := payload[0] != 0
	n := (len(payload) - 1) / 2
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		samples[i] = int16(binary.BigEndian.Uint16(payload[1+2*i : 3+2*i]))
	}
	return &AudioChunk{Samples: samples, Stereo: stereo}, nil
}
