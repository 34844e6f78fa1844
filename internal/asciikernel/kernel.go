// Package asciikernel defines the external collaborator boundary from
// spec.md §4.9 / §6: a pure, reentrant image-to-glyph renderer. The real
// production kernel (palette tuning, color quantization, braille/half-block
// modes) is explicitly out of scope; this package provides the interface
// the rest of the server programs against plus a reference implementation
// good enough to exercise the pipeline end to end.
package asciikernel

import "github.com/zfogg/asciichat-server/internal/frame"

// Palette selects the glyph ramp used to map luminance to a character.
type Palette int

const (
	// PaletteStandard is a 10-level dark-to-light ramp suitable for most
	// terminal color schemes.
	PaletteStandard Palette = iota
	// PaletteBlocks uses Unicode block-element characters for denser output.
	PaletteBlocks
)

// Kernel renders a source frame into a target cell rectangle. Implementations
// must be reentrant: the server shares one Kernel across every client's
// video render task, so calls may run concurrently.
type Kernel interface {
	// Render maps pixels (src_w x src_h RGB24) down into targetCols x
	// targetRows ASCII cells using the given palette. It must be a pure
	// function of its arguments and must not retain pixels after returning.
	Render(pixels []byte, srcW, srcH, targetCols, targetRows int, palette Palette) (frame.AsciiCells, error)
}

// New returns the reference kernel implementation.
func New() Kernel {
	return referenceKernel{}
}
