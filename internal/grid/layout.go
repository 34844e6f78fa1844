// Package grid implements the per-tick grid compositor from spec.md §4.6:
// given a terminal size and a set of source frames, lays them out in a
// rows x cols grid and invokes the ASCII kernel once per cell.
package grid

import "math"

// DefaultSourceAspect approximates a typical webcam capture (4:3).
const DefaultSourceAspect = 4.0 / 3.0

// Layout describes one grid arrangement: rows x cols cells. Each cell gets
// termCols/cols x termRows/rows terminal cells minus one column and one row,
// which separate it from its right and lower neighbours.
type Layout struct {
	Rows, Cols     int
	CellW, CellH   int // usable pixel/cell width and height, border excluded
}

// Compute derives the grid layout for m sources within a termCols x
// termRows terminal. It guarantees rows*cols >= m (when m > 0) and breaks
// ties between candidate (rows, cols) pairs by minimizing the distance
// between the resulting cell aspect ratio and sourceAspect (spec.md §3).
// The layout is a pure function of its inputs, so it is stable across
// frames for unchanged (m, termCols, termRows).
func Compute(m, termCols, termRows int, sourceAspect float64) Layout {
	if m <= 0 {
		m = 1
	}
	if termCols <= 0 || termRows <= 0 {
		return Layout{}
	}
	if sourceAspect <= 0 {
		sourceAspect = DefaultSourceAspect
	}

	bestRows, bestCols := 1, m
	bestScore := math.Inf(1)

	for rows := 1; rows <= m; rows++ {
		cols := ceilDiv(m, rows)
		cellW := termCols/cols - 1
		cellH := termRows/rows - 1
		if cellW <= 0 || cellH <= 0 {
			continue
		}
		cellAspect := float64(cellW) / float64(cellH)
		score := math.Abs(cellAspect - sourceAspect)
		if score < bestScore {
			bestScore = score
			bestRows, bestCols = rows, cols
		}
	}

	cellW := termCols/bestCols - 1
	cellH := termRows/bestRows - 1
	if cellW < 1 {
		cellW = 1
	}
	if cellH < 1 {
		cellH = 1
	}

	return Layout{Rows: bestRows, Cols: bestCols, CellW: cellW, CellH: cellH}
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
