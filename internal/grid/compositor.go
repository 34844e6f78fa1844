package grid

import (
	"bytes"
	"fmt"

	"github.com/zfogg/asciichat-server/internal/asciikernel"
	"github.com/zfogg/asciichat-server/internal/frame"
)

// Source is one contributing video source for a single compositing pass:
// a client id paired with the frame to render into its grid cell (either
// freshly popped from the ring buffer or the last-valid-frame cache,
// per spec.md §4.6 step 4).
type Source struct {
	ID    uint32
	Image *frame.RawImage
}

const emptyGridMessage = "(no other participants)"

// EmptyGrid returns the placeholder frame sent when zero sources are
// contributing (spec.md §4.6 edge case): the client still receives a frame
// every tick so send cadence is maintained.
func EmptyGrid(termCols, termRows int) frame.AsciiCells {
	if termCols <= 0 || termRows <= 0 {
		return frame.AsciiCells{}
	}
	var buf bytes.Buffer
	msg := emptyGridMessage
	if len(msg) > termCols {
		msg = msg[:termCols]
	}
	pad := (termCols - len(msg)) / 2
	midRow := termRows / 2
	for row := 0; row < termRows; row++ {
		if row == midRow {
			buf.WriteString(spaces(pad))
			buf.WriteString(msg)
			buf.WriteString(spaces(termCols - pad - len(msg)))
		} else {
			buf.WriteString(spaces(termCols))
		}
		buf.WriteByte('\n')
	}
	return frame.AsciiCells{Cols: termCols, Rows: termRows, Bytes: buf.Bytes()}
}

func spaces(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}

// Compose lays out sources in a grid sized to termCols x termRows and
// invokes kernel once per cell, concatenating the results into one framed
// screen with cursor-positioning escapes (spec.md §4.6 steps 6-8). Sources
// beyond rows*cols (should not happen given Compute's guarantee) are
// silently truncated.
func Compose(kernel asciikernel.Kernel, sources []Source, termCols, termRows int, palette asciikernel.Palette) (frame.AsciiCells, error) {
	if termCols <= 0 || termRows <= 0 {
		return frame.AsciiCells{}, fmt.Errorf("grid: zero terminal size")
	}
	if len(sources) == 0 {
		return EmptyGrid(termCols, termRows), nil
	}

	layout := Compute(len(sources), termCols, termRows, DefaultSourceAspect)
	if layout.Cols == 0 || layout.Rows == 0 {
		return EmptyGrid(termCols, termRows), nil
	}

	var buf bytes.Buffer
	buf.WriteString("\x1b[2J") // clear screen once per frame; cells below position absolutely

	for idx, src := range sources {
		if idx >= layout.Rows*layout.Cols {
			break
		}
		row := idx / layout.Cols
		col := idx % layout.Cols

		if src.Image == nil {
			continue
		}
		cells, err := kernel.Render(src.Image.Pixels, src.Image.Width, src.Image.Height, layout.CellW, layout.CellH, palette)
		if err != nil {
			return frame.AsciiCells{}, fmt.Errorf("grid: source %d: %w", src.ID, err)
		}
		writeCellAt(&buf, cells, row, col, layout)
	}
	buf.WriteString("\x1b[0m")

	return frame.AsciiCells{Cols: termCols, Rows: termRows, Bytes: buf.Bytes()}, nil
}

// writeCellAt emits cells at the terminal position for grid cell (row, col),
// one cursor-positioning escape per line so partial-screen updates remain
// correct even if a neighboring cell renders at a different height.
func writeCellAt(buf *bytes.Buffer, cells frame.AsciiCells, row, col int, layout Layout) {
	top := row*(layout.CellH+1) + 1
	left := col*(layout.CellW+1) + 1

	lines := bytes.Split(bytes.TrimRight(cells.Bytes, "\n"), []byte{'\n'})
	for i, line := range lines {
		fmt.Fprintf(buf, "\x1b[%d;%dH", top+i, left)
		buf.Write(line)
	}
}
