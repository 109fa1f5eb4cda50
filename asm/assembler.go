// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package asm implements a single pass assembler for the CHIP-8 instruction
// set, with equates, jump labels, and compile-time $(...) expressions.
package asm

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/chip8/memory"
)

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO": "0",
}

// Assembler is a single pass assembler for CHIP-8 programs.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Opcode  []Opcode // List of generated opcodes.

	predefine map[string]string // Predefines
	Label     map[string]uint16 // Map of jump labels to load addresses.
	Equate    map[string]string // Map of equates.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value uint16, err error) {
	if word[0] == '$' {
		word = "0x" + word[1:]
	}
	v64, err := strconv.ParseInt(word, 0, 32)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	if v64 < 0 || v64 > 0xffff {
		err = ErrValueRange
		return
	}

	value = uint16(v64)

	return
}

// register returns the Vx register index of a word.
func (asm *Assembler) register(word string) (x uint8, err error) {
	if len(word) == 2 && (word[0] == 'v' || word[0] == 'V') {
		v, perr := strconv.ParseUint(word[1:], 16, 8)
		if perr == nil {
			x = uint8(v)
			return
		}
	}

	err = ErrRegisterInvalid

	return
}

// addrOf returns a 12-bit address, or the label to link it from.
func (asm *Assembler) addrOf(word string) (nnn uint16, label string, err error) {
	value, verr := asm.valueOf(word)
	if verr != nil {
		// Not a number, so it must be a label.
		label = word
		return
	}

	if value > 0xfff {
		err = ErrValueRange
		return
	}

	nnn = value

	return
}

// byteOf returns an 8-bit immediate.
func (asm *Assembler) byteOf(word string) (kk uint8, err error) {
	value, err := asm.valueOf(word)
	if err != nil {
		return
	}

	if value > 0xff {
		err = ErrValueRange
		return
	}

	kk = uint8(value)

	return
}

// nibbleOf returns a 4-bit immediate.
func (asm *Assembler) nibbleOf(word string) (n uint8, err error) {
	value, err := asm.valueOf(word)
	if err != nil {
		return
	}

	if value > 0xf {
		err = ErrValueRange
		return
	}

	n = uint8(value)

	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value uint16, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var value16 uint16
		value16, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or labels.
			continue
		}
		pred[key] = starlark.MakeInt(int(value16))
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = uint16(st_int64)
	return
}

// parseLine parses a single line as an opcode.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do $() evaluations
	re := regexp.MustCompile(`\$\([^\$]*\)`)
	line = re.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%#v", value)
	})
	if err != nil {
		return
	}

	words = slices.DeleteFunc(strings.Split(line, " "), func(a string) bool { return len(a) == 0 })

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if len(words) > 0 && words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		if len(word) == 0 {
			continue
		}

		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		if asm.Label == nil {
			asm.Label = make(map[string]uint16, 16)
		}
		asm.Label[label] = asm.currentAddr()
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	return
}

// currentAddr gets the load address of the next emitted byte.
func (asm *Assembler) currentAddr() uint16 {
	if len(asm.Opcode) == 0 {
		return memory.PROGRAM_START
	}

	last := asm.Opcode[len(asm.Opcode)-1]

	return last.Addr + uint16(len(last.Bytes))
}

// Parse parses an input stream into a Program containing opcodes.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {

	scanner := bufio.NewScanner(input)

	var line string
	var lineno int

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	clear(asm.Label)
	asm.Opcode = asm.Opcode[:0]
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		text_comment := strings.Split(text, ";")
		line = strings.TrimSpace(text_comment[0])

		var words []string
		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	// Final linking of jump labels.
	for n := range asm.Opcode {
		op := &asm.Opcode[n]

		if len(op.LinkLabel) == 0 {
			continue
		}
		label := op.LinkLabel
		addr, ok := asm.Label[label]
		if !ok {
			err = ErrLabelMissing(label)
			return
		}
		if len(op.Bytes) < 2 {
			log.Fatalf("Unable to link label '%s' to line %d: %v", label, op.LineNo, op.Words)
		}
		op.Bytes[len(op.Bytes)-2] |= uint8(addr>>8) & 0x0f
		op.Bytes[len(op.Bytes)-1] |= uint8(addr)
	}

	prog = &Program{
		Opcodes: slices.Clone(asm.Opcode),
	}

	return
}

// aluMap maps 8xyN ALU mnemonics to their low nibble.
var aluMap = map[string]uint16{
	"or":   0x1,
	"and":  0x2,
	"xor":  0x3,
	"sub":  0x5,
	"subn": 0x7,
}

// ldTargetMap maps the Fx__ ld target mnemonics to their low byte.
var ldTargetMap = map[string]uint16{
	"dt": 0x15,
	"st": 0x18,
	"f":  0x29,
	"b":  0x33,
	"m":  0x55,
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var bytes []uint8
	var label string

	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := words

	defer func() {
		if len(bytes) == 0 {
			return
		}
		opcode := Opcode{LineNo: lineno, Addr: asm.currentAddr(), Words: initial_words, Bytes: bytes, LinkLabel: label}
		asm.Opcode = append(asm.Opcode, opcode)
	}()

	emit := func(op uint16) {
		bytes = append(bytes, uint8(op>>8), uint8(op))
	}

	args := words[1:]

	switch words[0] {
	case ".byte":
		if len(args) == 0 {
			err = ErrOpcodeValueMissing
			return
		}
		for _, word := range args {
			var b uint8
			b, err = asm.byteOf(word)
			if err != nil {
				return
			}
			bytes = append(bytes, b)
		}
	case "cls":
		if len(args) > 0 {
			err = ErrOpcodeExtraArgs
			return
		}
		emit(0x00E0)
	case "ret":
		if len(args) > 0 {
			err = ErrOpcodeExtraArgs
			return
		}
		emit(0x00EE)
	case "jp":
		var nnn uint16
		switch len(args) {
		case 1:
			nnn, label, err = asm.addrOf(args[0])
			if err != nil {
				return
			}
			emit(0x1000 | nnn)
		case 2:
			if args[0] != "v0" && args[0] != "V0" {
				err = ErrRegisterInvalid
				return
			}
			nnn, label, err = asm.addrOf(args[1])
			if err != nil {
				return
			}
			emit(0xB000 | nnn)
		case 0:
			err = ErrOpcodeValueMissing
			return
		default:
			err = ErrOpcodeExtraArgs
			return
		}
	case "call":
		if len(args) == 0 {
			err = ErrOpcodeValueMissing
			return
		}
		if len(args) > 1 {
			err = ErrOpcodeExtraArgs
			return
		}
		var nnn uint16
		nnn, label, err = asm.addrOf(args[0])
		if err != nil {
			return
		}
		emit(0x2000 | nnn)
	case "se", "sne":
		if len(args) < 2 {
			err = ErrOpcodeValueMissing
			return
		}
		if len(args) > 2 {
			err = ErrOpcodeExtraArgs
			return
		}
		base := uint16(0x3000)
		baseVy := uint16(0x5000)
		if words[0] == "sne" {
			base = 0x4000
			baseVy = 0x9000
		}
		var x uint8
		x, err = asm.register(args[0])
		if err != nil {
			return
		}
		y, yerr := asm.register(args[1])
		if yerr == nil {
			emit(baseVy | uint16(x)<<8 | uint16(y)<<4)
			return
		}
		var kk uint8
		kk, err = asm.byteOf(args[1])
		if err != nil {
			return
		}
		emit(base | uint16(x)<<8 | uint16(kk))
	case "ld":
		err = asm.parseLoad(args, emit, &label)
	case "add":
		if len(args) < 2 {
			err = ErrOpcodeValueMissing
			return
		}
		if len(args) > 2 {
			err = ErrOpcodeExtraArgs
			return
		}
		if args[0] == "i" {
			var x uint8
			x, err = asm.register(args[1])
			if err != nil {
				return
			}
			emit(0xF01E | uint16(x)<<8)
			return
		}
		var x uint8
		x, err = asm.register(args[0])
		if err != nil {
			return
		}
		y, yerr := asm.register(args[1])
		if yerr == nil {
			emit(0x8004 | uint16(x)<<8 | uint16(y)<<4)
			return
		}
		var kk uint8
		kk, err = asm.byteOf(args[1])
		if err != nil {
			return
		}
		emit(0x7000 | uint16(x)<<8 | uint16(kk))
	case "or", "and", "xor", "sub", "subn":
		if len(args) < 2 {
			err = ErrOpcodeValueMissing
			return
		}
		if len(args) > 2 {
			err = ErrOpcodeExtraArgs
			return
		}
		n := aluMap[words[0]]
		var x, y uint8
		x, err = asm.register(args[0])
		if err != nil {
			return
		}
		y, err = asm.register(args[1])
		if err != nil {
			return
		}
		emit(0x8000 | uint16(x)<<8 | uint16(y)<<4 | n)
	case "shr", "shl":
		if len(args) == 0 {
			err = ErrOpcodeValueMissing
			return
		}
		if len(args) > 1 {
			err = ErrOpcodeExtraArgs
			return
		}
		n := uint16(0x6)
		if words[0] == "shl" {
			n = 0xE
		}
		var x uint8
		x, err = asm.register(args[0])
		if err != nil {
			return
		}
		emit(0x8000 | uint16(x)<<8 | n)
	case "rnd":
		if len(args) < 2 {
			err = ErrOpcodeValueMissing
			return
		}
		if len(args) > 2 {
			err = ErrOpcodeExtraArgs
			return
		}
		var x, kk uint8
		x, err = asm.register(args[0])
		if err != nil {
			return
		}
		kk, err = asm.byteOf(args[1])
		if err != nil {
			return
		}
		emit(0xC000 | uint16(x)<<8 | uint16(kk))
	case "drw":
		if len(args) < 3 {
			err = ErrOpcodeValueMissing
			return
		}
		if len(args) > 3 {
			err = ErrOpcodeExtraArgs
			return
		}
		var x, y, n uint8
		x, err = asm.register(args[0])
		if err != nil {
			return
		}
		y, err = asm.register(args[1])
		if err != nil {
			return
		}
		n, err = asm.nibbleOf(args[2])
		if err != nil {
			return
		}
		emit(0xD000 | uint16(x)<<8 | uint16(y)<<4 | uint16(n))
	case "skp", "sknp":
		if len(args) == 0 {
			err = ErrOpcodeValueMissing
			return
		}
		if len(args) > 1 {
			err = ErrOpcodeExtraArgs
			return
		}
		kk := uint16(0x9E)
		if words[0] == "sknp" {
			kk = 0xA1
		}
		var x uint8
		x, err = asm.register(args[0])
		if err != nil {
			return
		}
		emit(0xE000 | uint16(x)<<8 | kk)
	default:
		err = ErrInstructionInvalid
		return
	}

	return
}

// parseLoad encodes the ld instruction family.
func (asm *Assembler) parseLoad(args []string, emit func(uint16), label *string) (err error) {
	if len(args) < 2 {
		err = ErrOpcodeValueMissing
		return
	}
	if len(args) > 2 {
		err = ErrOpcodeExtraArgs
		return
	}

	switch args[0] {
	case "i":
		var nnn uint16
		nnn, *label, err = asm.addrOf(args[1])
		if err != nil {
			return
		}
		emit(0xA000 | nnn)
		return
	case "dt", "st", "f", "b", "m":
		kk := ldTargetMap[args[0]]
		var x uint8
		x, err = asm.register(args[1])
		if err != nil {
			return
		}
		emit(0xF000 | uint16(x)<<8 | kk)
		return
	}

	var x uint8
	x, err = asm.register(args[0])
	if err != nil {
		return
	}

	switch args[1] {
	case "dt":
		emit(0xF007 | uint16(x)<<8)
	case "k":
		emit(0xF00A | uint16(x)<<8)
	case "m":
		emit(0xF065 | uint16(x)<<8)
	default:
		y, yerr := asm.register(args[1])
		if yerr == nil {
			emit(0x8000 | uint16(x)<<8 | uint16(y)<<4)
			return
		}
		var kk uint8
		kk, err = asm.byteOf(args[1])
		if err != nil {
			return
		}
		emit(0x6000 | uint16(x)<<8 | uint16(kk))
	}

	return
}
