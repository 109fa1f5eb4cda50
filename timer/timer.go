// Package timer implements the delay and sound counters of the CHIP-8
// machine.
package timer

const (
	TICK_HZ = 60 // Logical rate at which the driving loop must call Tick.
)

// Timers are the two independent 8-bit counters. They are only ever
// decremented by Tick; the FX15/FX18 instructions write them directly.
// A nonzero Sound value means the frontend should emit a tone; the core
// itself produces no audio.
type Timers struct {
	Delay uint8
	Sound uint8
}

// Tick returns the current counter values, then decrements each by one,
// floored at zero. Instruction execution rate is independent of the tick
// rate.
func (tm *Timers) Tick() (delay, sound uint8) {
	delay = tm.Delay
	sound = tm.Sound

	if tm.Delay > 0 {
		tm.Delay--
	}
	if tm.Sound > 0 {
		tm.Sound--
	}

	return
}

// Reset zeroes both counters.
func (tm *Timers) Reset() {
	tm.Delay = 0
	tm.Sound = 0
}
