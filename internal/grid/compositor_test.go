package grid

import (
	"bytes"
	"testing"
	"time"

	"github.com/zfogg/asciichat-server/internal/asciikernel"
	"github.com/zfogg/asciichat-server/internal/frame"
)

func solidImage(w, h int, v byte) *frame.RawImage {
	px := make([]byte, w*h*3)
	for i := range px {
		px[i] = v
	}
	return &frame.RawImage{Width: w, Height: h, Format: frame.RGB24, Timestamp: time.Unix(0, 0), Pixels: px}
}

func TestComposeZeroSourcesReturnsEmptyGrid(t *testing.T) {
	t.Parallel()

	cells, err := Compose(asciikernel.New(), nil, 80, 24, asciikernel.PaletteStandard)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !bytes.Contains(cells.Bytes, []byte(emptyGridMessage)) {
		t.Fatalf("expected placeholder message in empty grid output")
	}
	if cells.Cols != 80 || cells.Rows != 24 {
		t.Fatalf("expected 80x24 cells, got %dx%d", cells.Cols, cells.Rows)
	}
}

func TestComposeZeroTerminalSizeErrors(t *testing.T) {
	t.Parallel()

	_, err := Compose(asciikernel.New(), []Source{{ID: 1, Image: solidImage(4, 4, 1)}}, 0, 24, asciikernel.PaletteStandard)
	if err == nil {
		t.Fatalf("expected error for zero terminal size")
	}
}

func TestComposeSingleSourceProducesPositionedOutput(t *testing.T) {
	t.Parallel()

	cells, err := Compose(asciikernel.New(), []Source{{ID: 1, Image: solidImage(32, 32, 200)}}, 80, 24, asciikernel.PaletteStandard)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if len(cells.Bytes) == 0 {
		t.Fatalf("expected non-empty output")
	}
	if !bytes.Contains(cells.Bytes, []byte("\x1b[")) {
		t.Fatalf("expected cursor-positioning escape sequences in output")
	}
}

func TestComposeMultipleSourcesNoSourceOmitted(t *testing.T) {
	t.Parallel()

	sources := []Source{
		{ID: 1, Image: solidImage(16, 16, 10)},
		{ID: 2, Image: solidImage(16, 16, 250)},
	}
	cells, err := Compose(asciikernel.New(), sources, 80, 24, asciikernel.PaletteStandard)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	// Dark (space, luminance 10) and light ('%', luminance 250) glyphs
	// should both appear somewhere.
	if !bytes.ContainsRune(cells.Bytes, ' ') {
		t.Fatalf("expected dark source to contribute ' ' glyphs")
	}
	if !bytes.ContainsRune(cells.Bytes, '%') {
		t.Fatalf("expected bright source to contribute '%%' glyphs")
	}
}
