// Package decoder extracts the 12-bit opcode from an instruction word's
// upper bits and interprets the remaining 52 bits per that opcode's
// layout. It reconstructs the same ast.Operand shape the encoder
// consumed, so the execution engine can dispatch on isa.Family exactly
// the way the encoder picked a layout, just in reverse.
package decoder

import (
	"encoding/binary"
	"fmt"

	"github.com/sunjay/wolf-asm/internal/ast"
	"github.com/sunjay/wolf-asm/internal/isa"
)

// Instruction is one decoded instruction: its canonical mnemonic, operand
// shape family, and operands in the same order the encoder consumed them.
type Instruction struct {
	Mnemonic string
	Family   isa.Family
	Operands []ast.Operand
}

// Decode interprets one 64-bit instruction word. Reserved bits (anything
// not part of the matched opcode's layout) are ignored, never validated.
func Decode(word uint64) (Instruction, error) {
	opcode := uint16(word >> uint(isa.OperandBits))
	op, ok := isa.Lookup(opcode)
	if !ok {
		return Instruction{}, fmt.Errorf("unknown opcode %d", opcode)
	}
	values := isa.UnpackFields(op.Layout, word)
	operands := rebuildOperands(op.Family, op.Layout, values)
	return Instruction{Mnemonic: op.Mnemonic, Family: op.Family, Operands: operands}, nil
}

// DecodeBytes reads one little-endian 64-bit word starting at buf[0] and
// decodes it.
func DecodeBytes(buf []byte) (Instruction, error) {
	if len(buf) < 8 {
		return Instruction{}, fmt.Errorf("short instruction word: %d bytes", len(buf))
	}
	return Decode(binary.LittleEndian.Uint64(buf))
}

func reg(v int64) ast.Operand       { return ast.Operand{Kind: ast.OperandRegister, Reg: int(v)} }
func imm(v int64) ast.Operand       { return ast.Operand{Kind: ast.OperandImmediate, Imm: v} }
func regOff(r, off int64) ast.Operand {
	return ast.Operand{Kind: ast.OperandRegOffset, Reg: int(r), Imm: off}
}

func rebuildOperands(fam isa.Family, layout isa.Layout, v []int64) []ast.Operand {
	switch fam {
	case isa.FamNone:
		return nil

	case isa.FamDestSource:
		if layout == isa.Layout1 {
			return []ast.Operand{reg(v[0]), reg(v[1])}
		}
		return []ast.Operand{reg(v[0]), imm(v[1])}

	case isa.FamDestHiDestSrc:
		if layout == isa.Layout7 {
			return []ast.Operand{reg(v[0]), reg(v[1]), reg(v[2])}
		}
		return []ast.Operand{reg(v[0]), reg(v[1]), imm(v[2])}

	case isa.FamSourceSource:
		switch layout {
		case isa.Layout1:
			return []ast.Operand{reg(v[0]), reg(v[1])}
		case isa.Layout2:
			return []ast.Operand{reg(v[0]), imm(v[1])}
		case isa.Layout3:
			return []ast.Operand{imm(v[0]), reg(v[1])}
		default:
			return []ast.Operand{imm(v[0]), imm(v[1])}
		}

	case isa.FamDestLoc:
		switch layout {
		case isa.Layout1:
			return []ast.Operand{reg(v[0]), reg(v[1])}
		case isa.Layout4:
			return []ast.Operand{reg(v[0]), regOff(v[1], v[2])}
		default:
			return []ast.Operand{reg(v[0]), imm(v[1])}
		}

	case isa.FamLocSource:
		switch layout {
		case isa.Layout1:
			return []ast.Operand{reg(v[0]), reg(v[1])}
		case isa.Layout2:
			return []ast.Operand{reg(v[0]), imm(v[1])}
		case isa.Layout3:
			return []ast.Operand{imm(v[0]), reg(v[1])}
		case isa.Layout4:
			return []ast.Operand{regOff(v[0], v[2]), reg(v[1])}
		case isa.Layout5:
			return []ast.Operand{regOff(v[0], v[1]), imm(v[2])}
		default:
			return []ast.Operand{imm(v[0]), imm(v[1])}
		}

	case isa.FamLoc:
		switch layout {
		case isa.Layout9:
			return []ast.Operand{reg(v[0])}
		case isa.Layout11:
			return []ast.Operand{regOff(v[0], v[1])}
		default:
			return []ast.Operand{imm(v[0])}
		}

	case isa.FamSource:
		if layout == isa.Layout9 {
			return []ast.Operand{reg(v[0])}
		}
		return []ast.Operand{imm(v[0])}

	case isa.FamDestOnly:
		return []ast.Operand{reg(v[0])}
	}
	return nil
}
