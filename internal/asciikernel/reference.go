package asciikernel

import (
	"fmt"

	"github.com/zfogg/asciichat-server/internal/frame"
)

// standardRamp is ordered darkest to lightest.
const standardRamp = " .:-=+*#%@"

var blockRamp = []rune{' ', '░', '▒', '▓', '█'}

// referenceKernel implements Kernel with a box-filter downsample into each
// target cell followed by a luminance-to-glyph lookup. It is deliberately
// simple: a stand-in for a real kernel, not a claim of production quality.
type referenceKernel struct{}

func (referenceKernel) Render(pixels []byte, srcW, srcH, targetCols, targetRows int, palette Palette) (frame.AsciiCells, error) {
	if srcW <= 0 || srcH <= 0 {
		return frame.AsciiCells{}, fmt.Errorf("asciikernel: invalid source dimensions %dx%d", srcW, srcH)
	}
	if targetCols <= 0 || targetRows <= 0 {
		return frame.AsciiCells{}, fmt.Errorf("asciikernel: invalid target dimensions %dx%d", targetCols, targetRows)
	}
	if len(pixels) < srcW*srcH*3 {
		return frame.AsciiCells{}, fmt.Errorf("asciikernel: pixel buffer too short: have %d want %d", len(pixels), srcW*srcH*3)
	}

	out := make([]byte, 0, targetCols*targetRows+targetRows)
	for row := 0; row < targetRows; row++ {
		y0 := row * srcH / targetRows
		y1 := (row + 1) * srcH / targetRows
		if y1 <= y0 {
			y1 = y0 + 1
		}
		for col := 0; col < targetCols; col++ {
			x0 := col * srcW / targetCols
			x1 := (col + 1) * srcW / targetCols
			if x1 <= x0 {
				x1 = x0 + 1
			}
			lum := avgLuminance(pixels, srcW, srcH, x0, x1, y0, y1)
			out = append(out, glyphFor(lum, palette)...)
		}
		out = append(out, '\n')
	}

	return frame.AsciiCells{Cols: targetCols, Rows: targetRows, Bytes: out}, nil
}

func avgLuminance(pixels []byte, srcW, srcH, x0, x1, y0, y1 int) uint8 {
	var sum, count int
	for y := y0; y < y1 && y < srcH; y++ {
		rowOff := y * srcW * 3
		for x := x0; x < x1 && x < srcW; x++ {
			off := rowOff + x*3
			r, g, b := int(pixels[off]), int(pixels[off+1]), int(pixels[off+2])
			// ITU-R BT.601 luma weights, integer approximation.
			sum += (r*299 + g*587 + b*114) / 1000
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return uint8(sum / count)
}

func glyphFor(lum uint8, palette Palette) []byte {
	switch palette {
	case PaletteBlocks:
		idx := int(lum) * (len(blockRamp) - 1) / 255
		return []byte(string(blockRamp[idx]))
	default:
		idx := int(lum) * (len(standardRamp) - 1) / 255
		return []byte{standardRamp[idx]}
	}
}
