package cpu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/chip8/display"
	"github.com/ezrec/chip8/input"
	"github.com/ezrec/chip8/memory"
	"github.com/ezrec/chip8/timer"
)

func testCpu() *Cpu {
	mem := &memory.Memory{}
	mem.StoreFont()

	return NewCpu(mem, &display.Display{}, &input.Keyboard{}, &timer.Timers{})
}

// run executes a single raw opcode.
func run(cpu *Cpu, raw uint16) error {
	return cpu.Execute(Decode(raw))
}

func TestCpu_New(t *testing.T) {
	assert := assert.New(t)

	cpu := testCpu()

	assert.Equal(uint16(memory.PROGRAM_START), cpu.Pc)
	assert.Equal(0, cpu.Sp())
	assert.NotNil(cpu.Rand)
}

func TestCpu_Fetch(t *testing.T) {
	assert := assert.New(t)

	cpu := testCpu()
	assert.NoError(cpu.Mem.Write(cpu.Pc, 0x6A))
	assert.NoError(cpu.Mem.Write(cpu.Pc+1, 0x42))

	in, err := cpu.Fetch()
	assert.NoError(err)
	assert.Equal(OP_LD_KK, in.Kind)
	assert.Equal(uint16(0x6A42), in.Raw)
	assert.Equal(in, cpu.Instr)

	// Fetch never moves the program counter.
	assert.Equal(uint16(memory.PROGRAM_START), cpu.Pc)
}

func TestCpu_Fetch_OutOfRange(t *testing.T) {
	assert := assert.New(t)

	cpu := testCpu()
	cpu.Pc = memory.MEMORY_SIZE - 1

	_, err := cpu.Fetch()
	assert.ErrorIs(err, memory.ErrAddressOutOfRange)
	assert.Equal(uint16(memory.MEMORY_SIZE-1), cpu.Pc)
}

func TestCpu_LoadImmediate(t *testing.T) {
	assert := assert.New(t)

	cpu := testCpu()
	assert.NoError(run(cpu, 0x600A)) // ld v0 $0A
	assert.NoError(run(cpu, 0x7005)) // add v0 $05

	assert.Equal(uint8(0x0F), cpu.V[0])
	assert.Equal(uint16(memory.PROGRAM_START+4), cpu.Pc)
}

func TestCpu_AddImmediate_NoFlag(t *testing.T) {
	assert := assert.New(t)

	cpu := testCpu()
	cpu.V[0] = 0xFF
	cpu.V[0xF] = 0x42

	assert.NoError(run(cpu, 0x7001)) // add v0 $01

	// The immediate add wraps without touching VF.
	assert.Equal(uint8(0x00), cpu.V[0])
	assert.Equal(uint8(0x42), cpu.V[0xF])
}

func TestCpu_Add_Flag(t *testing.T) {
	assert := assert.New(t)

	for _, vx := range []uint8{0x00, 0x01, 0x7F, 0x80, 0xFF} {
		for _, vy := range []uint8{0x00, 0x01, 0x7F, 0x80, 0xFF} {
			cpu := testCpu()
			cpu.V[1] = vx
			cpu.V[2] = vy

			assert.NoError(run(cpu, 0x8124)) // add v1 v2

			sum := uint16(vx) + uint16(vy)
			assert.Equal(uint8(sum), cpu.V[1], "vx=%#x vy=%#x", vx, vy)
			if sum > 0xFF {
				assert.Equal(uint8(1), cpu.V[0xF])
			} else {
				assert.Equal(uint8(0), cpu.V[0xF])
			}
		}
	}
}

func TestCpu_Add_FlagWins(t *testing.T) {
	assert := assert.New(t)

	// When VF is the destination, the carry flag overwrites the sum.
	cpu := testCpu()
	cpu.V[0xF] = 0x80
	cpu.V[2] = 0x80

	assert.NoError(run(cpu, 0x8F24)) // add vF v2
	assert.Equal(uint8(1), cpu.V[0xF])
}

func TestCpu_Sub_Flag(t *testing.T) {
	assert := assert.New(t)

	for _, vx := range []uint8{0x00, 0x01, 0x42, 0xFF} {
		for _, vy := range []uint8{0x00, 0x01, 0x42, 0xFF} {
			cpu := testCpu()
			cpu.V[1] = vx
			cpu.V[2] = vy

			assert.NoError(run(cpu, 0x8125)) // sub v1 v2

			assert.Equal(vx-vy, cpu.V[1], "vx=%#x vy=%#x", vx, vy)
			if vx >= vy {
				assert.Equal(uint8(1), cpu.V[0xF])
			} else {
				assert.Equal(uint8(0), cpu.V[0xF])
			}
		}
	}
}

func TestCpu_Subn_Flag(t *testing.T) {
	assert := assert.New(t)

	for _, vx := range []uint8{0x00, 0x01, 0x42, 0xFF} {
		for _, vy := range []uint8{0x00, 0x01, 0x42, 0xFF} {
			cpu := testCpu()
			cpu.V[1] = vx
			cpu.V[2] = vy

			assert.NoError(run(cpu, 0x8127)) // subn v1 v2

			assert.Equal(vy-vx, cpu.V[1], "vx=%#x vy=%#x", vx, vy)
			if vy >= vx {
				assert.Equal(uint8(1), cpu.V[0xF])
			} else {
				assert.Equal(uint8(0), cpu.V[0xF])
			}
		}
	}
}

func TestCpu_Logic(t *testing.T) {
	assert := assert.New(t)

	cpu := testCpu()
	cpu.V[1] = 0xF0
	cpu.V[2] = 0x3C

	assert.NoError(run(cpu, 0x8121)) // or v1 v2
	assert.Equal(uint8(0xFC), cpu.V[1])

	cpu.V[1] = 0xF0
	assert.NoError(run(cpu, 0x8122)) // and v1 v2
	assert.Equal(uint8(0x30), cpu.V[1])

	cpu.V[1] = 0xF0
	assert.NoError(run(cpu, 0x8123)) // xor v1 v2
	assert.Equal(uint8(0xCC), cpu.V[1])

	assert.NoError(run(cpu, 0x8120)) // ld v1 v2
	assert.Equal(uint8(0x3C), cpu.V[1])
}

func TestCpu_Shift(t *testing.T) {
	assert := assert.New(t)

	cpu := testCpu()
	cpu.V[1] = 0x81

	assert.NoError(run(cpu, 0x8106)) // shr v1
	assert.Equal(uint8(0x40), cpu.V[1])
	assert.Equal(uint8(1), cpu.V[0xF])

	assert.NoError(run(cpu, 0x8106)) // shr v1
	assert.Equal(uint8(0x20), cpu.V[1])
	assert.Equal(uint8(0), cpu.V[0xF])

	cpu.V[1] = 0x81
	assert.NoError(run(cpu, 0x810E)) // shl v1
	assert.Equal(uint8(0x02), cpu.V[1])
	assert.Equal(uint8(1), cpu.V[0xF])

	assert.NoError(run(cpu, 0x810E)) // shl v1
	assert.Equal(uint8(0x04), cpu.V[1])
	assert.Equal(uint8(0), cpu.V[0xF])
}

func TestCpu_Skips(t *testing.T) {
	assert := assert.New(t)

	tests := []struct {
		raw  uint16
		v1   uint8
		v2   uint8
		skip bool
	}{
		{0x3142, 0x42, 0, true},  // se v1 $42
		{0x3142, 0x41, 0, false}, //
		{0x4142, 0x42, 0, false}, // sne v1 $42
		{0x4142, 0x41, 0, true},  //
		{0x5120, 0x42, 0x42, true},  // se v1 v2
		{0x5120, 0x42, 0x41, false}, //
		{0x9120, 0x42, 0x42, false}, // sne v1 v2
		{0x9120, 0x42, 0x41, true},  //
	}

	for _, test := range tests {
		cpu := testCpu()
		cpu.V[1] = test.v1
		cpu.V[2] = test.v2

		assert.NoError(run(cpu, test.raw))

		expect := uint16(memory.PROGRAM_START + 2)
		if test.skip {
			expect += 2
		}
		assert.Equal(expect, cpu.Pc, "raw=%#04x v1=%#x v2=%#x", test.raw, test.v1, test.v2)
	}
}

func TestCpu_Jump(t *testing.T) {
	assert := assert.New(t)

	cpu := testCpu()
	assert.NoError(run(cpu, 0x1456)) // jp $456
	assert.Equal(uint16(0x456), cpu.Pc)

	cpu.V[0] = 0x10
	assert.NoError(run(cpu, 0xB456)) // jp v0 $456
	assert.Equal(uint16(0x466), cpu.Pc)
}

func TestCpu_CallRet(t *testing.T) {
	assert := assert.New(t)

	cpu := testCpu()
	assert.NoError(run(cpu, 0x2456)) // call $456

	assert.Equal(uint16(0x456), cpu.Pc)
	assert.Equal(1, cpu.Sp())

	assert.NoError(run(cpu, 0x00EE)) // ret
	assert.Equal(uint16(memory.PROGRAM_START+2), cpu.Pc)
	assert.Equal(0, cpu.Sp())
}

func TestCpu_Call_Overflow(t *testing.T) {
	assert := assert.New(t)

	cpu := testCpu()
	for n := 0; n < STACK_LIMIT; n++ {
		assert.NoError(run(cpu, 0x2456))
	}
	assert.Equal(STACK_LIMIT, cpu.Sp())

	pc := cpu.Pc
	err := run(cpu, 0x2456)
	assert.ErrorIs(err, ErrStackOverflow)
	assert.ErrorIs(err, ErrInstruction{})

	// The faulting call leaves the machine untouched.
	assert.Equal(pc, cpu.Pc)
	assert.Equal(STACK_LIMIT, cpu.Sp())
}

func TestCpu_Ret_Underflow(t *testing.T) {
	assert := assert.New(t)

	cpu := testCpu()
	err := run(cpu, 0x00EE)
	assert.ErrorIs(err, ErrStackUnderflow)
	assert.Equal(uint16(memory.PROGRAM_START), cpu.Pc)
}

func TestCpu_Rnd(t *testing.T) {
	assert := assert.New(t)

	cpu := testCpu()
	cpu.Rand = func() uint8 { return 0xA5 }

	assert.NoError(run(cpu, 0xC1FF)) // rnd v1 $FF
	assert.Equal(uint8(0xA5), cpu.V[1])

	assert.NoError(run(cpu, 0xC10F)) // rnd v1 $0F
	assert.Equal(uint8(0x05), cpu.V[1])

	assert.NoError(run(cpu, 0xC100)) // rnd v1 $00
	assert.Equal(uint8(0x00), cpu.V[1])
}

func TestCpu_Bcd(t *testing.T) {
	assert := assert.New(t)

	for _, value := range []uint8{0, 7, 42, 100, 255} {
		cpu := testCpu()
		cpu.V[1] = value
		cpu.I = 0x300

		assert.NoError(run(cpu, 0xF133)) // ld b v1

		hundreds, _ := cpu.Mem.Read(0x300)
		tens, _ := cpu.Mem.Read(0x301)
		ones, _ := cpu.Mem.Read(0x302)
		assert.Equal(value/100, hundreds, "value=%v", value)
		assert.Equal((value/10)%10, tens, "value=%v", value)
		assert.Equal(value%10, ones, "value=%v", value)
	}
}

func TestCpu_RegisterDumpLoad(t *testing.T) {
	assert := assert.New(t)

	cpu := testCpu()
	for n := range cpu.V {
		cpu.V[n] = uint8(0x10 + n)
	}
	cpu.I = 0x300

	assert.NoError(run(cpu, 0xF555)) // ld m v5

	// The dump is inclusive of Vx.
	for n := uint16(0); n <= 5; n++ {
		value, err := cpu.Mem.Read(0x300 + n)
		assert.NoError(err)
		assert.Equal(uint8(0x10+n), value)
	}
	value, err := cpu.Mem.Read(0x306)
	assert.NoError(err)
	assert.Equal(uint8(0), value)

	// I is not modified by the dump.
	assert.Equal(uint16(0x300), cpu.I)

	cpu.V = [16]uint8{}
	assert.NoError(run(cpu, 0xF565)) // ld v5 m
	for n := 0; n <= 5; n++ {
		assert.Equal(uint8(0x10+n), cpu.V[n])
	}
	for n := 6; n < 16; n++ {
		assert.Equal(uint8(0), cpu.V[n])
	}
}

func TestCpu_Index(t *testing.T) {
	assert := assert.New(t)

	cpu := testCpu()
	assert.NoError(run(cpu, 0xA123)) // ld i $123
	assert.Equal(uint16(0x123), cpu.I)

	cpu.V[1] = 0x10
	assert.NoError(run(cpu, 0xF11E)) // add i v1
	assert.Equal(uint16(0x133), cpu.I)
}

func TestCpu_FontIndex(t *testing.T) {
	assert := assert.New(t)

	cpu := testCpu()
	cpu.V[1] = 0xA

	assert.NoError(run(cpu, 0xF129)) // ld f v1
	assert.Equal(memory.FontAddress(0xA), cpu.I)
}

func TestCpu_Timers(t *testing.T) {
	assert := assert.New(t)

	cpu := testCpu()
	cpu.V[1] = 42

	assert.NoError(run(cpu, 0xF115)) // ld dt v1
	assert.Equal(uint8(42), cpu.Timers.Delay)

	assert.NoError(run(cpu, 0xF118)) // ld st v1
	assert.Equal(uint8(42), cpu.Timers.Sound)

	cpu.Timers.Delay = 7
	assert.NoError(run(cpu, 0xF207)) // ld v2 dt
	assert.Equal(uint8(7), cpu.V[2])
}

func TestCpu_KeySkips(t *testing.T) {
	assert := assert.New(t)

	cpu := testCpu()
	cpu.V[1] = 0x5
	cpu.Kbd.Press(0x5)

	assert.NoError(run(cpu, 0xE19E)) // skp v1
	assert.Equal(uint16(memory.PROGRAM_START+4), cpu.Pc)

	assert.NoError(run(cpu, 0xE1A1)) // sknp v1
	assert.Equal(uint16(memory.PROGRAM_START+6), cpu.Pc)

	cpu.Kbd.Release()
	assert.NoError(run(cpu, 0xE1A1)) // sknp v1
	assert.Equal(uint16(memory.PROGRAM_START+10), cpu.Pc)
}

func TestCpu_WaitForKey(t *testing.T) {
	assert := assert.New(t)

	cpu := testCpu()

	// Without a key held, the instruction re-executes at the same address.
	for range 3 {
		assert.NoError(run(cpu, 0xF10A)) // ld v1 k
		assert.Equal(uint16(memory.PROGRAM_START), cpu.Pc)
	}

	cpu.Kbd.Press(0x7)
	assert.NoError(run(cpu, 0xF10A))
	assert.Equal(uint8(0x7), cpu.V[1])
	assert.Equal(uint16(memory.PROGRAM_START+2), cpu.Pc)
}

func TestCpu_Draw(t *testing.T) {
	assert := assert.New(t)

	cpu := testCpu()
	cpu.I = memory.FontAddress(0)
	cpu.V[1] = 4
	cpu.V[2] = 2

	assert.NoError(run(cpu, 0xD125)) // drw v1 v2 $5
	assert.Equal(uint8(0), cpu.V[0xF])
	assert.True(cpu.Scr.Get(4, 2))

	// Redrawing the glyph erases it and sets the collision flag.
	assert.NoError(run(cpu, 0xD125))
	assert.Equal(uint8(1), cpu.V[0xF])
	assert.False(cpu.Scr.Get(4, 2))
}

func TestCpu_Clear(t *testing.T) {
	assert := assert.New(t)

	cpu := testCpu()
	cpu.I = memory.FontAddress(8)
	assert.NoError(run(cpu, 0xD005)) // drw v0 v0 $5
	assert.True(cpu.Scr.Get(0, 0))

	assert.NoError(run(cpu, 0x00E0)) // cls
	assert.False(cpu.Scr.Get(0, 0))
}

func TestCpu_UnknownOpcode(t *testing.T) {
	assert := assert.New(t)

	cpu := testCpu()
	err := run(cpu, 0xFFFF)

	assert.ErrorIs(err, ErrUnknownOpcode{})
	assert.ErrorIs(err, ErrInstruction{})

	var unknown ErrUnknownOpcode
	assert.True(errors.As(err, &unknown))
	assert.Equal(uint16(0xFFFF), unknown.Raw)
	assert.Equal(uint16(memory.PROGRAM_START), unknown.Pc)

	// The faulting instruction does not advance the machine.
	assert.Equal(uint16(memory.PROGRAM_START), cpu.Pc)
}

func TestCpu_Reset(t *testing.T) {
	assert := assert.New(t)

	cpu := testCpu()
	assert.NoError(run(cpu, 0x2456))
	assert.NoError(run(cpu, 0x6A42))
	cpu.I = 0x333

	cpu.Reset()

	assert.Equal(uint16(memory.PROGRAM_START), cpu.Pc)
	assert.Equal(uint16(0), cpu.I)
	assert.Equal(0, cpu.Sp())
	assert.Equal([16]uint8{}, cpu.V)
}
