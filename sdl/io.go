// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package sdl is the SDL2 frontend: it renders the framebuffer, feeds the
// keypad, and paces the machine clock and the 60 Hz timers.
package sdl

import (
	"context"
	"time"

	"github.com/retroenv/retrogolib/log"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/ezrec/chip8/display"
	"github.com/ezrec/chip8/emulator"
	"github.com/ezrec/chip8/timer"
)

const (
	pixelSize = 10

	screenColor = 0x1A237E
	spriteColor = 0x9FA8DA

	frameRate = 120 // Machine steps per second.

	// MinPressDuration is how long a keypad key stays pressed even if the
	// host key is released sooner, so short taps survive a full frame.
	MinPressDuration = 50 * time.Millisecond
)

// IO drives an Emulator from an SDL2 window.
type IO struct {
	Stepwise bool // Wait for a keystroke before each instruction.

	window  *sdl.Window
	surface *sdl.Surface

	emu    *emulator.Emulator
	logger *log.Logger

	pressedAt      time.Time
	releasePending bool
}

// NewIO returns a new I/O instance for the SDL frontend.
func NewIO(emu *emulator.Emulator, logger *log.Logger) *IO {
	return &IO{
		emu:    emu,
		logger: logger,
	}
}

// SetupWindow initialises and sets up the main SDL window.
func (io *IO) SetupWindow(title string) (err error) {
	if err = sdl.Init(sdl.INIT_EVERYTHING); err != nil {
		return
	}

	io.window, err = sdl.CreateWindow(title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		display.COLS*pixelSize, display.ROWS*pixelSize, sdl.WINDOW_SHOWN)
	if err != nil {
		return
	}

	io.surface, err = io.window.GetSurface()
	if err != nil {
		return
	}

	io.surface.FillRect(nil, screenColor)

	return
}

// Destroy should be called before quitting the application.
func (io *IO) Destroy() {
	if io.window != nil {
		io.window.Destroy()
	}
	sdl.Quit()
}

// Loop runs the machine until the window closes, the quit key (',') is
// pressed, the context is cancelled, or an instruction faults.
func (io *IO) Loop(ctx context.Context) (err error) {
	tickPeriod := time.Second / timer.TICK_HZ
	framePeriod := time.Second / frameRate
	lastTick := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		frameStart := time.Now()

		if quit := io.pumpEvents(); quit {
			return nil
		}

		if io.releasePending && time.Since(io.pressedAt) >= MinPressDuration {
			io.emu.KeyReleased()
			io.releasePending = false
		}

		if time.Since(lastTick) >= tickPeriod {
			_, sound := io.emu.Tick()
			if sound > 0 {
				io.logger.Debug("beep", log.Uint8("sound", sound))
			}
			lastTick = time.Now()
		}

		err = io.emu.Step()
		if err != nil {
			return
		}

		io.draw()

		if io.Stepwise {
			if quit := io.awaitKeystroke(); quit {
				return nil
			}
			continue
		}

		if elapsed := time.Since(frameStart); elapsed < framePeriod {
			time.Sleep(framePeriod - elapsed)
		}
	}
}

// pumpEvents drains the SDL event queue, reporting whether to quit.
func (io *IO) pumpEvents() (quit bool) {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		if io.handleEvent(event) {
			return true
		}
	}

	return
}

// awaitKeystroke blocks until a key goes down, reporting whether to quit.
func (io *IO) awaitKeystroke() (quit bool) {
	for {
		event := sdl.WaitEvent()
		if event == nil {
			continue
		}
		down := false
		if t, ok := event.(*sdl.KeyboardEvent); ok {
			down = t.GetType() == sdl.KEYDOWN
		}
		if io.handleEvent(event) {
			return true
		}
		if down {
			return
		}
	}
}

// handleEvent applies one SDL event to the keypad, reporting whether to quit.
func (io *IO) handleEvent(event sdl.Event) (quit bool) {
	switch t := event.(type) {
	case *sdl.KeyboardEvent:
		scancode := t.Keysym.Scancode
		if scancode == sdl.SCANCODE_COMMA {
			return t.GetType() == sdl.KEYDOWN
		}
		key := keymap(scancode)
		if key < 0 {
			return
		}
		switch t.GetType() {
		case sdl.KEYDOWN:
			io.emu.KeyPressed(uint8(key))
			io.pressedAt = time.Now()
			io.releasePending = false
		case sdl.KEYUP:
			if !io.emu.Key(uint8(key)) {
				return
			}
			if time.Since(io.pressedAt) >= MinPressDuration {
				io.emu.KeyReleased()
			} else {
				io.releasePending = true
			}
		}
	case *sdl.QuitEvent:
		return true
	}

	return
}

// draw repaints the whole framebuffer.
func (io *IO) draw() {
	io.surface.FillRect(nil, screenColor)
	for y := int32(0); y < display.ROWS; y++ {
		for x := int32(0); x < display.COLS; x++ {
			if io.emu.Pixel(int(x), int(y)) {
				rect := &sdl.Rect{X: x * pixelSize, Y: y * pixelSize, W: pixelSize, H: pixelSize}
				io.surface.FillRect(rect, spriteColor)
			}
		}
	}
	io.window.UpdateSurface()
}

// Maps keys from a QWERTY keyboard to the CHIP-8 keypad:
// +--------+--------+--------+--------+
// | 1 -> 1 | 2 -> 2 | 3 -> 3 | 4 -> C |
// +--------+--------+--------+--------+
// | Q -> 4 | W -> 5 | E -> 6 | R -> D |
// +--------+--------+--------+--------+
// | A -> 7 | S -> 8 | D -> 9 | F -> E |
// +--------+--------+--------+--------+
// | Z -> A | X -> 0 | C -> B | V -> F |
// +--------+--------+--------+--------+
func keymap(code sdl.Scancode) int8 {
	switch code {
	case sdl.SCANCODE_1:
		return 0x1
	case sdl.SCANCODE_2:
		return 0x2
	case sdl.SCANCODE_3:
		return 0x3
	case sdl.SCANCODE_4:
		return 0xC
	case sdl.SCANCODE_Q:
		return 0x4
	case sdl.SCANCODE_W:
		return 0x5
	case sdl.SCANCODE_E:
		return 0x6
	case sdl.SCANCODE_R:
		return 0xD
	case sdl.SCANCODE_A:
		return 0x7
	case sdl.SCANCODE_S:
		return 0x8
	case sdl.SCANCODE_D:
		return 0x9
	case sdl.SCANCODE_F:
		return 0xE
	case sdl.SCANCODE_Z:
		return 0xA
	case sdl.SCANCODE_X:
		return 0x0
	case sdl.SCANCODE_C:
		return 0xB
	case sdl.SCANCODE_V:
		return 0xF
	default:
		return -1
	}
}
