// Package memory implements the 4 KiB address space of the CHIP-8 machine,
// including the built-in hex digit font sprites and ROM image loading.
package memory

import (
	"errors"
	"fmt"
	"iter"
	"maps"
)

const (
	MEMORY_SIZE   = 4096  // Total addressable bytes.
	PROGRAM_START = 0x200 // Fixed load offset for ROM images.
	FONT_START    = 0x50  // First byte of the built-in font sprites.
	FONT_HEIGHT   = 5     // Bytes per font glyph.
)

var _memory_defines = map[string]string{
	"MEMORY_SIZE":   fmt.Sprintf("%v", MEMORY_SIZE),
	"PROGRAM_START": fmt.Sprintf("%#x", PROGRAM_START),
	"FONT_START":    fmt.Sprintf("%#x", FONT_START),
}

// font is the 16 hex digit glyphs, FONT_HEIGHT bytes each, 0 through F.
var font = [16 * FONT_HEIGHT]uint8{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

// Memory is the zero-initialized 4 KiB address space. Every access is
// bounds checked; there is no address wrapping.
type Memory struct {
	Data [MEMORY_SIZE]uint8
}

// Defines for the memory map.
func (mem *Memory) Defines() iter.Seq2[string, string] {
	return maps.All(_memory_defines)
}

// Read returns the byte at addr.
func (mem *Memory) Read(addr uint16) (value uint8, err error) {
	if int(addr) >= len(mem.Data) {
		err = errors.Join(ErrAddress(addr), ErrAddressOutOfRange)
		return
	}

	value = mem.Data[addr]
	return
}

// Write stores value at addr.
func (mem *Memory) Write(addr uint16, value uint8) (err error) {
	if int(addr) >= len(mem.Data) {
		err = errors.Join(ErrAddress(addr), ErrAddressOutOfRange)
		return
	}

	mem.Data[addr] = value
	return
}

// Load copies a ROM image into memory starting at origin. The content is
// not validated; malformed opcodes surface at decode time.
func (mem *Memory) Load(rom []byte, origin uint16) (err error) {
	if int(origin)+len(rom) > len(mem.Data) {
		err = ErrRomTooLarge
		return
	}

	copy(mem.Data[origin:], rom)
	return
}

// StoreFont writes the built-in hex digit sprites into the reserved low
// region. Must be called once before any font address lookup is meaningful.
func (mem *Memory) StoreFont() {
	copy(mem.Data[FONT_START:], font[:])
}

// FontAddress returns the address of the sprite for the hex digit in the
// low nibble of digit.
func FontAddress(digit uint8) uint16 {
	return FONT_START + uint16(digit&0xf)*FONT_HEIGHT
}

// Reset zeroes the address space.
func (mem *Memory) Reset() {
	clear(mem.Data[:])
}
