// Package cpu implements the register file, instruction decoder, and
// execution unit of the CHIP-8 virtual machine.
//
// The CPU consists of sixteen 8-bit general purpose registers (V0-VF, with
// VF doubling as the arithmetic flag), a 16-bit index register I, the
// program counter, and a fixed-capacity call stack of sixteen return
// addresses. Decode is a pure, total function from a raw 16-bit opcode to
// an Instruction value; Execute consumes one Instruction and applies it
// against the memory, display, keyboard, and timers the CPU is wired to.
// All program counter movement happens in Execute, so skip, jump and call
// instructions can override the default two-byte advance.
package cpu
