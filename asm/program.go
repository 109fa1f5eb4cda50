package asm

import (
	"iter"
)

// Opcode is one assembled source line: the emitted bytes, the address they
// land at, and enough source context to report faults back to the line.
type Opcode struct {
	LineNo    int      // Line number of the source line.
	Addr      uint16   // Load address of the first emitted byte.
	Words     []string // Parsed source words.
	Bytes     []uint8  // Emitted bytes.
	LinkLabel string   // Label to patch into the final instruction.
}

type Program struct {
	Opcodes []Opcode
}

type Debug struct {
	*Opcode
	Index int
}

// Debug locates the source line whose bytes cover the given address.
func (prog *Program) Debug(addr uint16) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if addr >= op.Addr && addr < op.Addr+uint16(len(op.Bytes)) {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  int(addr - op.Addr),
			}
			break
		}
	}

	return
}

// Binary flattens the program into a loadable ROM image.
func (prog *Program) Binary() (bin []byte) {
	for _, b := range prog.Bytes() {
		bin = append(bin, b)
	}

	return
}

func (prog *Program) Bytes() iter.Seq2[uint16, uint8] {
	return func(yield func(addr uint16, b uint8) bool) {
		for _, op := range prog.Opcodes {
			for n, b := range op.Bytes {
				if !yield(op.Addr+uint16(n), b) {
					return
				}
			}
		}
	}
}
