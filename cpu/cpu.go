// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"
	"math/rand/v2"

	"github.com/ezrec/chip8/display"
	"github.com/ezrec/chip8/input"
	"github.com/ezrec/chip8/memory"
	"github.com/ezrec/chip8/timer"
)

var _cpu_defines = map[string]string{
	"STACK_LIMIT": fmt.Sprintf("%v", STACK_LIMIT),
}

// Cpu is the CHIP-8 execution unit. It owns the register file and call
// stack, and drives the memory, display, keyboard and timers it is wired to.
type Cpu struct {
	Verbose bool // Enable execution tracing

	V     [16]uint8 // General purpose registers, VF is the flag
	I     uint16    // Index register
	Pc    uint16    // Program counter
	Stack Stack     // Call stack
	Instr Instruction

	// Rand supplies the random byte consumed by the rnd instruction.
	// Replace with a deterministic source for repeatable runs.
	Rand func() uint8

	Mem    *memory.Memory
	Scr    *display.Display
	Kbd    *input.Keyboard
	Timers *timer.Timers
}

// NewCpu wires a CPU to its peripherals, with the program counter at the
// program origin and a PRNG-backed random source.
func NewCpu(mem *memory.Memory, scr *display.Display, kbd *input.Keyboard, timers *timer.Timers) (cpu *Cpu) {
	cpu = &Cpu{
		Pc:     memory.PROGRAM_START,
		Rand:   func() uint8 { return uint8(rand.Uint32()) },
		Mem:    mem,
		Scr:    scr,
		Kbd:    kbd,
		Timers: timers,
	}

	return
}

// Defines returns the assembler pre-defines for this component.
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// Reset returns the register file, call stack, and program counter to
// power-on state. Peripherals are not touched.
func (cpu *Cpu) Reset() {
	cpu.V = [16]uint8{}
	cpu.I = 0
	cpu.Pc = memory.PROGRAM_START
	cpu.Stack.Reset()
	cpu.Instr = Instruction{}
}

// Sp returns the current call stack depth.
func (cpu *Cpu) Sp() int {
	return cpu.Stack.Depth()
}

// Fetch reads the two bytes at the program counter, decodes them as a
// big-endian opcode, and records the result in cpu.Instr. The program
// counter does not move; only Execute advances it.
func (cpu *Cpu) Fetch() (in Instruction, err error) {
	var hi, lo uint8

	hi, err = cpu.Mem.Read(cpu.Pc)
	if err != nil {
		return
	}

	lo, err = cpu.Mem.Read(cpu.Pc + 1)
	if err != nil {
		return
	}

	in = Decode(uint16(hi)<<8 | uint16(lo))
	cpu.Instr = in

	return
}

// flag sets VF to 1 or 0.
func (cpu *Cpu) flag(set bool) {
	if set {
		cpu.V[0xF] = 1
	} else {
		cpu.V[0xF] = 0
	}
}

// Execute runs a single decoded instruction, advancing the program counter
// as the instruction dictates. On a fault the program counter does not
// advance, and the error carries the offending instruction.
func (cpu *Cpu) Execute(in Instruction) (err error) {
	defer func() {
		if err != nil {
			err = errors.Join(ErrInstruction(in), err)
		}
	}()

	if cpu.Verbose {
		log.Printf("%03x: %v", cpu.Pc, in)
	}

	next := cpu.Pc + 2

	switch in.Kind {
	case OP_CLS:
		cpu.Scr.Clear()
	case OP_RET:
		addr, ok := cpu.Stack.Pop()
		if !ok {
			return ErrStackUnderflow
		}
		next = addr
	case OP_JP:
		next = in.NNN
	case OP_CALL:
		if cpu.Stack.Full() {
			return ErrStackOverflow
		}
		cpu.Stack.Push(next)
		next = in.NNN
	case OP_SE_KK:
		if cpu.V[in.X] == in.KK {
			next += 2
		}
	case OP_SNE_KK:
		if cpu.V[in.X] != in.KK {
			next += 2
		}
	case OP_SE_VY:
		if cpu.V[in.X] == cpu.V[in.Y] {
			next += 2
		}
	case OP_LD_KK:
		cpu.V[in.X] = in.KK
	case OP_ADD_KK:
		cpu.V[in.X] += in.KK
	case OP_LD_VY:
		cpu.V[in.X] = cpu.V[in.Y]
	case OP_OR:
		cpu.V[in.X] |= cpu.V[in.Y]
	case OP_AND:
		cpu.V[in.X] &= cpu.V[in.Y]
	case OP_XOR:
		cpu.V[in.X] ^= cpu.V[in.Y]
	case OP_ADD_VY:
		sum := uint16(cpu.V[in.X]) + uint16(cpu.V[in.Y])
		cpu.V[in.X] = uint8(sum)
		cpu.flag(sum > 0xff)
	case OP_SUB:
		borrow := cpu.V[in.X] >= cpu.V[in.Y]
		cpu.V[in.X] -= cpu.V[in.Y]
		cpu.flag(borrow)
	case OP_SHR:
		bit := cpu.V[in.X] & 0x01
		cpu.V[in.X] >>= 1
		cpu.flag(bit != 0)
	case OP_SUBN:
		borrow := cpu.V[in.Y] >= cpu.V[in.X]
		cpu.V[in.X] = cpu.V[in.Y] - cpu.V[in.X]
		cpu.flag(borrow)
	case OP_SHL:
		bit := cpu.V[in.X] & 0x80
		cpu.V[in.X] <<= 1
		cpu.flag(bit != 0)
	case OP_SNE_VY:
		if cpu.V[in.X] != cpu.V[in.Y] {
			next += 2
		}
	case OP_LD_I:
		cpu.I = in.NNN
	case OP_JP_V0:
		next = in.NNN + uint16(cpu.V[0])
	case OP_RND:
		cpu.V[in.X] = cpu.Rand() & in.KK
	case OP_DRW:
		sprite := make([]uint8, in.N)
		for row := range sprite {
			sprite[row], err = cpu.Mem.Read(cpu.I + uint16(row))
			if err != nil {
				return err
			}
		}
		cpu.flag(cpu.Scr.Draw(cpu.V[in.X], cpu.V[in.Y], sprite))
	case OP_SKP:
		if cpu.Kbd.Get(cpu.V[in.X]) {
			next += 2
		}
	case OP_SKNP:
		if !cpu.Kbd.Get(cpu.V[in.X]) {
			next += 2
		}
	case OP_LD_VX_DT:
		cpu.V[in.X] = cpu.Timers.Delay
	case OP_LD_VX_K:
		key, ok := cpu.Kbd.FirstPressed()
		if ok {
			cpu.V[in.X] = key
		} else {
			// Re-execute at the same address until a key arrives.
			next = cpu.Pc
		}
	case OP_LD_DT_VX:
		cpu.Timers.Delay = cpu.V[in.X]
	case OP_LD_ST_VX:
		cpu.Timers.Sound = cpu.V[in.X]
	case OP_ADD_I:
		cpu.I += uint16(cpu.V[in.X])
	case OP_LD_F:
		cpu.I = memory.FontAddress(cpu.V[in.X])
	case OP_LD_B:
		value := cpu.V[in.X]
		digits := [3]uint8{value / 100, (value / 10) % 10, value % 10}
		for n, digit := range digits {
			err = cpu.Mem.Write(cpu.I+uint16(n), digit)
			if err != nil {
				return err
			}
		}
	case OP_LD_I_VX:
		for n := uint16(0); n <= uint16(in.X); n++ {
			err = cpu.Mem.Write(cpu.I+n, cpu.V[n])
			if err != nil {
				return err
			}
		}
	case OP_LD_VX_I:
		for n := uint16(0); n <= uint16(in.X); n++ {
			cpu.V[n], err = cpu.Mem.Read(cpu.I + n)
			if err != nil {
				return err
			}
		}
	default:
		return ErrUnknownOpcode{Raw: in.Raw, Pc: cpu.Pc}
	}

	cpu.Pc = next

	return
}
