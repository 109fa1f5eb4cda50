package cpu

import (
	"errors"

	"github.com/ezrec/chip8/translate"
)

var f = translate.From

var (
	// Cpu errors
	ErrStackOverflow  = errors.New(f("call stack overflow"))
	ErrStackUnderflow = errors.New(f("call stack underflow"))
)

// ErrUnknownOpcode reports execution of an opcode the decoder could not
// match, with the raw value and the program counter it was fetched from.
type ErrUnknownOpcode struct {
	Raw uint16
	Pc  uint16
}

func (eu ErrUnknownOpcode) Error() string {
	return f("unknown opcode 0x%04x at pc 0x%03x", eu.Raw, eu.Pc)
}

func (eu ErrUnknownOpcode) Is(err error) (ok bool) {
	_, ok = err.(ErrUnknownOpcode)
	return
}

// ErrInstruction tags an execution fault with the instruction that raised it.
type ErrInstruction Instruction

func (ei ErrInstruction) Error() string {
	return f("opcode 0x%04x (%v)", ei.Raw, Instruction(ei).String())
}

func (ei ErrInstruction) Is(err error) (ok bool) {
	_, ok = err.(ErrInstruction)
	return
}
