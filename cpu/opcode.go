package cpu

import (
	"fmt"
)

// OpKind is the operation kind of a decoded instruction.
type OpKind int

//go:generate go tool stringer -linecomment -type=OpKind
const (
	OP_UNKNOWN  = OpKind(iota) // ???
	OP_CLS                     // cls
	OP_RET                     // ret
	OP_JP                      // jp
	OP_CALL                    // call
	OP_SE_KK                   // se
	OP_SNE_KK                  // sne
	OP_SE_VY                   // se
	OP_LD_KK                   // ld
	OP_ADD_KK                  // add
	OP_LD_VY                   // ld
	OP_OR                      // or
	OP_AND                     // and
	OP_XOR                     // xor
	OP_ADD_VY                  // add
	OP_SUB                     // sub
	OP_SHR                     // shr
	OP_SUBN                    // subn
	OP_SHL                     // shl
	OP_SNE_VY                  // sne
	OP_LD_I                    // ld
	OP_JP_V0                   // jp
	OP_RND                     // rnd
	OP_DRW                     // drw
	OP_SKP                     // skp
	OP_SKNP                    // sknp
	OP_LD_VX_DT                // ld
	OP_LD_VX_K                 // ld
	OP_LD_DT_VX                // ld
	OP_LD_ST_VX                // ld
	OP_ADD_I                   // add
	OP_LD_F                    // ld
	OP_LD_B                    // ld
	OP_LD_I_VX                 // ld
	OP_LD_VX_I                 // ld
)

// Instruction is one decoded opcode: the operation kind plus its typed
// operands, constructed fresh on every fetch and consumed once by Execute.
// The raw opcode is retained for diagnostic rendering.
type Instruction struct {
	Kind OpKind

	X   uint8  // Vx register index.
	Y   uint8  // Vy register index.
	N   uint8  // Low nibble immediate.
	KK  uint8  // 8-bit immediate.
	NNN uint16 // 12-bit address immediate.

	Raw uint16 // Raw opcode, big-endian as fetched.
}

// Decode translates a raw 16-bit opcode into an Instruction. Decode is
// total and side-effect-free: a value matching no known pattern yields
// OP_UNKNOWN, and the fault surfaces only when Execute is asked to run it.
func Decode(raw uint16) (in Instruction) {
	in = Instruction{
		Kind: OP_UNKNOWN,
		X:    uint8((raw >> 8) & 0xf),
		Y:    uint8((raw >> 4) & 0xf),
		N:    uint8(raw & 0xf),
		KK:   uint8(raw & 0xff),
		NNN:  raw & 0xfff,
		Raw:  raw,
	}

	switch raw >> 12 {
	case 0x0:
		switch raw {
		case 0x00E0:
			in.Kind = OP_CLS
		case 0x00EE:
			in.Kind = OP_RET
		}
	case 0x1:
		in.Kind = OP_JP
	case 0x2:
		in.Kind = OP_CALL
	case 0x3:
		in.Kind = OP_SE_KK
	case 0x4:
		in.Kind = OP_SNE_KK
	case 0x5:
		if in.N == 0x0 {
			in.Kind = OP_SE_VY
		}
	case 0x6:
		in.Kind = OP_LD_KK
	case 0x7:
		in.Kind = OP_ADD_KK
	case 0x8:
		switch in.N {
		case 0x0:
			in.Kind = OP_LD_VY
		case 0x1:
			in.Kind = OP_OR
		case 0x2:
			in.Kind = OP_AND
		case 0x3:
			in.Kind = OP_XOR
		case 0x4:
			in.Kind = OP_ADD_VY
		case 0x5:
			in.Kind = OP_SUB
		case 0x6:
			in.Kind = OP_SHR
		case 0x7:
			in.Kind = OP_SUBN
		case 0xE:
			in.Kind = OP_SHL
		}
	case 0x9:
		if in.N == 0x0 {
			in.Kind = OP_SNE_VY
		}
	case 0xA:
		in.Kind = OP_LD_I
	case 0xB:
		in.Kind = OP_JP_V0
	case 0xC:
		in.Kind = OP_RND
	case 0xD:
		in.Kind = OP_DRW
	case 0xE:
		switch in.KK {
		case 0x9E:
			in.Kind = OP_SKP
		case 0xA1:
			in.Kind = OP_SKNP
		}
	case 0xF:
		switch in.KK {
		case 0x07:
			in.Kind = OP_LD_VX_DT
		case 0x0A:
			in.Kind = OP_LD_VX_K
		case 0x15:
			in.Kind = OP_LD_DT_VX
		case 0x18:
			in.Kind = OP_LD_ST_VX
		case 0x1E:
			in.Kind = OP_ADD_I
		case 0x29:
			in.Kind = OP_LD_F
		case 0x33:
			in.Kind = OP_LD_B
		case 0x55:
			in.Kind = OP_LD_I_VX
		case 0x65:
			in.Kind = OP_LD_VX_I
		}
	}

	return
}

// String returns the assembly language representation of the instruction.
func (in Instruction) String() (out string) {
	switch in.Kind {
	case OP_CLS, OP_RET:
		out = in.Kind.String()
	case OP_JP, OP_CALL:
		out = fmt.Sprintf("%v $%03X", in.Kind, in.NNN)
	case OP_JP_V0:
		out = fmt.Sprintf("jp v0 $%03X", in.NNN)
	case OP_LD_I:
		out = fmt.Sprintf("ld i $%03X", in.NNN)
	case OP_SE_KK, OP_SNE_KK, OP_LD_KK, OP_ADD_KK, OP_RND:
		out = fmt.Sprintf("%v v%X $%02X", in.Kind, in.X, in.KK)
	case OP_SE_VY, OP_SNE_VY, OP_LD_VY, OP_OR, OP_AND, OP_XOR, OP_ADD_VY, OP_SUB, OP_SUBN:
		out = fmt.Sprintf("%v v%X v%X", in.Kind, in.X, in.Y)
	case OP_SHR, OP_SHL, OP_SKP, OP_SKNP:
		out = fmt.Sprintf("%v v%X", in.Kind, in.X)
	case OP_DRW:
		out = fmt.Sprintf("drw v%X v%X $%X", in.X, in.Y, in.N)
	case OP_LD_VX_DT:
		out = fmt.Sprintf("ld v%X dt", in.X)
	case OP_LD_VX_K:
		out = fmt.Sprintf("ld v%X k", in.X)
	case OP_LD_DT_VX:
		out = fmt.Sprintf("ld dt v%X", in.X)
	case OP_LD_ST_VX:
		out = fmt.Sprintf("ld st v%X", in.X)
	case OP_ADD_I:
		out = fmt.Sprintf("add i v%X", in.X)
	case OP_LD_F:
		out = fmt.Sprintf("ld f v%X", in.X)
	case OP_LD_B:
		out = fmt.Sprintf("ld b v%X", in.X)
	case OP_LD_I_VX:
		out = fmt.Sprintf("ld m v%X", in.X)
	case OP_LD_VX_I:
		out = fmt.Sprintf("ld v%X m", in.X)
	default:
		out = fmt.Sprintf("??? $%04X", in.Raw)
	}

	return
}
