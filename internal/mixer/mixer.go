// Package mixer implements the per-client audio mix from spec.md §4.7: a
// sample-wise sum of every other client's current audio chunk, gain 1.0,
// clamped to the sample range, never normalized by source count.
package mixer

import (
	"fmt"
	"math"

	"github.com/zfogg/asciichat-server/internal/frame"
)

// Mix sums chunks sample-wise into a single chunk of the same length.
// Chunks must all share the same Stereo-ness and sample count (the system
// has one fixed sample rate and chunk size, per spec.md §3); Mix returns an
// error rather than silently truncating on a mismatch.
//
// Volume is deliberately not normalized by len(chunks): total perceived
// volume must not depend on how many participants are talking.
func Mix(chunks []*frame.AudioChunk) (*frame.AudioChunk, error) {
	if len(chunks) == 0 {
		return frame.Silence(false), nil
	}

	stereo := chunks[0].Stereo
	n := len(chunks[0].Samples)
	for _, c := range chunks {
		if c == nil {
			return nil, fmt.Errorf("mixer: nil chunk")
		}
		if c.Stereo != stereo {
			return nil, fmt.Errorf("mixer: mismatched stereo flag")
		}
		if len(c.Samples) != n {
			return nil, fmt.Errorf("mixer: mismatched sample count: %d vs %d", len(c.Samples), n)
		}
	}

	sums := make([]int32, n)
	for _, c := range chunks {
		for i, s := range c.Samples {
			sums[i] += int32(s)
		}
	}

	out := make([]int16, n)
	for i, s := range sums {
		out[i] = clampInt16(s)
	}

	return &frame.AudioChunk{Samples: out, Stereo: stereo}, nil
}

func clampInt16(v int32) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
