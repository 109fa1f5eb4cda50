// Package display implements the 64x32 monochrome framebuffer with
// XOR-draw and collision detection.
package display

import (
	"fmt"
	"iter"
	"maps"
)

const (
	COLS = 64 // Pixels per row.
	ROWS = 32 // Pixel rows.
)

var _display_defines = map[string]string{
	"SCREEN_COLS": fmt.Sprintf("%v", COLS),
	"SCREEN_ROWS": fmt.Sprintf("%v", ROWS),
}

// Display is the framebuffer, all pixels initially clear. Only CLS and DRW
// mutate it.
type Display struct {
	pixels [ROWS][COLS]bool
}

// Defines for the screen geometry.
func (scr *Display) Defines() iter.Seq2[string, string] {
	return maps.All(_display_defines)
}

// Clear sets every pixel off.
func (scr *Display) Clear() {
	for y := range scr.pixels {
		clear(scr.pixels[y][:])
	}
}

// Draw XORs a sprite into the framebuffer at (x, y), one byte per row,
// bit 7 leftmost. Coordinates wrap at the screen edges rather than clip.
// Returns true if any pixel transitioned from set to unset.
func (scr *Display) Draw(x, y uint8, sprite []uint8) (collision bool) {
	for row, bits := range sprite {
		py := (int(y) + row) % ROWS
		for bit := range 8 {
			if bits&(0x80>>bit) == 0 {
				continue
			}
			px := (int(x) + bit) % COLS
			if scr.pixels[py][px] {
				collision = true
			}
			scr.pixels[py][px] = !scr.pixels[py][px]
		}
	}

	return
}

// Get reports the pixel at (x, y). Out-of-range coordinates are a caller
// bug, not a recoverable fault.
func (scr *Display) Get(x, y int) bool {
	return scr.pixels[y][x]
}
