// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package emulator assembles the CHIP-8 components into a whole machine:
// memory, display, keyboard, timers, and the CPU that drives them.
package emulator

import (
	"iter"

	"github.com/ezrec/chip8/cpu"
	"github.com/ezrec/chip8/display"
	"github.com/ezrec/chip8/input"
	"github.com/ezrec/chip8/internal"
	"github.com/ezrec/chip8/memory"
	"github.com/ezrec/chip8/timer"
)

// Emulator is a complete CHIP-8 machine.
type Emulator struct {
	*cpu.Cpu
}

// NewEmulator returns a machine with freshly reset components and the
// font sprites already stored.
func NewEmulator() (emu *Emulator) {
	mem := &memory.Memory{}
	scr := &display.Display{}
	kbd := &input.Keyboard{}
	timers := &timer.Timers{}

	mem.StoreFont()

	emu = &Emulator{
		Cpu: cpu.NewCpu(mem, scr, kbd, timers),
	}

	return
}

// Defines returns the assembler pre-defines of every component.
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.ConcatSeq2(
		emu.Mem.Defines(),
		emu.Scr.Defines(),
		emu.Cpu.Defines(),
	)
}

// Load copies a ROM image into memory at the program origin and points
// the program counter at its first instruction.
func (emu *Emulator) Load(rom []byte) (err error) {
	err = emu.Mem.Load(rom, memory.PROGRAM_START)
	if err != nil {
		return
	}

	emu.Pc = memory.PROGRAM_START

	return
}

// StoreFont writes the built-in font sprites into low memory. NewEmulator
// and Reset already do this; it is exposed for machines built from raw parts.
func (emu *Emulator) StoreFont() {
	emu.Mem.StoreFont()
}

// Reset returns every component to power-on state and re-stores the font.
func (emu *Emulator) Reset() {
	emu.Mem.Reset()
	emu.Mem.StoreFont()
	emu.Scr.Clear()
	emu.Kbd.Reset()
	emu.Timers.Reset()
	emu.Cpu.Reset()
}

// Step fetches and executes a single instruction.
func (emu *Emulator) Step() (err error) {
	in, err := emu.Fetch()
	if err != nil {
		return
	}

	return emu.Execute(in)
}

// Run steps the machine until an instruction faults.
func (emu *Emulator) Run() (err error) {
	for err == nil {
		err = emu.Step()
	}

	return
}

// Tick advances the 60 Hz timers by one period.
func (emu *Emulator) Tick() (delay, sound uint8) {
	return emu.Timers.Tick()
}

// KeyPressed records a keypad key going down.
func (emu *Emulator) KeyPressed(key uint8) {
	emu.Kbd.Press(key)
}

// KeyReleased records the tracked key going up.
func (emu *Emulator) KeyReleased() {
	emu.Kbd.Release()
}

// Pixel reports the framebuffer state at (x, y).
func (emu *Emulator) Pixel(x, y int) bool {
	return emu.Scr.Get(x, y)
}

// Key reports whether a keypad key is currently held.
func (emu *Emulator) Key(key uint8) bool {
	return emu.Kbd.Get(key)
}
