// Package input implements the 16-key CHIP-8 keypad with single-tracked-key
// debounce semantics.
package input

const (
	KEY_COUNT = 16 // Keypad keys, 0x0 through 0xF.
)

// Keyboard models a single-keystroke input source: sixteen boolean key
// states of which at most one is held at a time. A new press implicitly
// releases whatever key was previously held. The driving loop is expected
// to call Release once its debounce window elapses with no fresh event,
// to compensate for input sources that report key-down but not key-up.
type Keyboard struct {
	keys    [KEY_COUNT]bool
	tracked uint8
	held    bool
}

// Press records key (low nibble) as the active key, releasing the
// previously tracked key if any.
func (kbd *Keyboard) Press(key uint8) {
	if kbd.held {
		kbd.keys[kbd.tracked] = false
	}

	key &= 0xf
	kbd.keys[key] = true
	kbd.tracked = key
	kbd.held = true
}

// Release clears the tracked key and forgets it.
func (kbd *Keyboard) Release() {
	if !kbd.held {
		return
	}

	kbd.keys[kbd.tracked] = false
	kbd.held = false
}

// Get reports whether key (low nibble) is currently down. No debounce
// logic is invoked by this read.
func (kbd *Keyboard) Get(key uint8) bool {
	return kbd.keys[key&0xf]
}

// FirstPressed returns the lowest key currently down. Used by the
// wait-for-key instruction's polling loop.
func (kbd *Keyboard) FirstPressed() (key uint8, ok bool) {
	for n, down := range kbd.keys {
		if down {
			key = uint8(n)
			ok = true
			return
		}
	}

	return
}

// Reset releases all keys.
func (kbd *Keyboard) Reset() {
	clear(kbd.keys[:])
	kbd.held = false
}
