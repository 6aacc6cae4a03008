// Package encoder implements component E: turning the fully-resolved
// statement list (no identifiers left, only registers/immediates/
// register+offsets) into the executable image's byte stream. It shares the
// isa package's layout table with the decoder so both sides of the
// instruction encoding agree bit-for-bit by construction.
package encoder

import (
	"encoding/binary"

	"github.com/sunjay/wolf-asm/internal/ast"
	"github.com/sunjay/wolf-asm/internal/diag"
	"github.com/sunjay/wolf-asm/internal/image"
	"github.com/sunjay/wolf-asm/internal/isa"
	"github.com/sunjay/wolf-asm/internal/token"
)

func toSpan(s token.Span) diag.Span {
	return diag.Span{File: s.File, Line: s.Line, Col: s.Col}
}

// Run encodes stmts into an Image, reporting EncodeError diagnostics for
// immediates that don't fit their chosen layout's field width.
func Run(stmts []ast.Statement, sink *diag.Sink) image.Image {
	var static, code []byte
	section := ast.SectionCode

	for _, s := range stmts {
		switch s.Kind {
		case ast.StmtSection:
			section = s.Section
		case ast.StmtDirective:
			b := encodeDirective(s, sink)
			if section == ast.SectionStatic {
				static = append(static, b...)
			} else {
				code = append(code, b...)
			}
		case ast.StmtInstruction:
			word := encodeInstruction(s, sink)
			var buf [8]byte
			binary.LittleEndian.PutUint64(buf[:], word)
			if section == ast.SectionStatic {
				static = append(static, buf[:]...)
			} else {
				code = append(code, buf[:]...)
			}
		}
	}
	return image.Image{Static: static, Code: code}
}

func encodeDirective(s ast.Statement, sink *diag.Sink) []byte {
	switch s.Name {
	case ".b1", ".b2", ".b4", ".b8":
		n := map[string]int{".b1": 1, ".b2": 2, ".b4": 4, ".b8": 8}[s.Name]
		v := uint64(0)
		if len(s.Operands) == 1 {
			v = uint64(s.Operands[0].Imm)
		}
		out := make([]byte, n)
		for i := 0; i < n; i++ {
			out[i] = byte(v >> uint(8*i))
		}
		return out

	case ".zero", ".uninit":
		n := 0
		if len(s.Operands) == 1 {
			n = int(s.Operands[0].Imm)
		}
		if n < 0 {
			n = 0
		}
		return make([]byte, n)

	case ".bytes":
		if len(s.Operands) == 1 {
			return append([]byte(nil), s.Operands[0].Str...)
		}
		return nil

	default:
		return nil
	}
}

func encodeInstruction(s ast.Statement, sink *diag.Sink) uint64 {
	variants := isa.Variants(s.Name)
	if len(variants) == 0 {
		sink.Report(diag.ValUnknownOpcode, toSpan(s.Span), "unknown opcode %s", s.Name)
		return 0
	}
	fam := variants[0].Family

	layout, values, ok := selectEncoding(fam, s.Operands)
	if !ok {
		sink.Report(diag.EncodeNoValidLayout, toSpan(s.Span), "%s: no layout matches these operands", s.Name)
		return 0
	}

	var op isa.OpDef
	found := false
	for _, v := range variants {
		if v.Layout == layout {
			op = v
			found = true
			break
		}
	}
	if !found {
		sink.Report(diag.EncodeNoValidLayout, toSpan(s.Span), "%s: layout %s not valid for this opcode", s.Name, layout)
		return 0
	}

	fields := isa.Fields(layout)
	for i, f := range fields {
		if f.Kind == isa.FReg {
			continue
		}
		if !isa.FitsSigned(values[i], f.Bits) {
			sink.Report(diag.EncodeImmTooWide, toSpan(s.Span), "%s: immediate %d does not fit in %d bits", s.Name, values[i], f.Bits)
		}
	}

	word, err := isa.PackFields(layout, values)
	if err != nil {
		sink.Report(diag.EncodeNoValidLayout, toSpan(s.Span), "%s: %s", s.Name, err)
		return 0
	}
	return (uint64(op.Opcode) << uint(isa.OperandBits)) | word
}

// selectEncoding picks a Layout and its ordered field values for one
// instruction's concrete, already-resolved operands.
func selectEncoding(fam isa.Family, operands []ast.Operand) (isa.Layout, []int64, bool) {
	switch fam {
	case isa.FamNone:
		return isa.LayoutNone, nil, true

	case isa.FamDestSource:
		dest, src := operands[0], operands[1]
		if src.Kind == ast.OperandRegister {
			return isa.Layout1, []int64{int64(dest.Reg), int64(src.Reg)}, true
		}
		return isa.Layout2, []int64{int64(dest.Reg), src.Imm}, true

	case isa.FamDestHiDestSrc:
		hi, dest, src := operands[0], operands[1], operands[2]
		if src.Kind == ast.OperandRegister {
			return isa.Layout7, []int64{int64(hi.Reg), int64(dest.Reg), int64(src.Reg)}, true
		}
		return isa.Layout8, []int64{int64(hi.Reg), int64(dest.Reg), src.Imm}, true

	case isa.FamSourceSource:
		a, b := operands[0], operands[1]
		switch {
		case a.Kind == ast.OperandRegister && b.Kind == ast.OperandRegister:
			return isa.Layout1, []int64{int64(a.Reg), int64(b.Reg)}, true
		case a.Kind == ast.OperandRegister:
			return isa.Layout2, []int64{int64(a.Reg), b.Imm}, true
		case b.Kind == ast.OperandRegister:
			return isa.Layout3, []int64{a.Imm, int64(b.Reg)}, true
		default:
			return isa.Layout6, []int64{a.Imm, b.Imm}, true
		}

	case isa.FamDestLoc:
		dest, loc := operands[0], operands[1]
		switch loc.Kind {
		case ast.OperandRegister:
			return isa.Layout1, []int64{int64(dest.Reg), int64(loc.Reg)}, true
		case ast.OperandRegOffset:
			return isa.Layout4, []int64{int64(dest.Reg), int64(loc.Reg), loc.Imm}, true
		default:
			return isa.Layout2, []int64{int64(dest.Reg), loc.Imm}, true
		}

	case isa.FamLocSource:
		loc, src := operands[0], operands[1]
		switch {
		case loc.Kind == ast.OperandRegOffset && src.Kind == ast.OperandRegister:
			return isa.Layout4, []int64{int64(loc.Reg), int64(src.Reg), loc.Imm}, true
		case loc.Kind == ast.OperandRegOffset:
			return isa.Layout5, []int64{int64(loc.Reg), loc.Imm, src.Imm}, true
		case loc.Kind == ast.OperandRegister && src.Kind == ast.OperandRegister:
			return isa.Layout1, []int64{int64(loc.Reg), int64(src.Reg)}, true
		case loc.Kind == ast.OperandRegister:
			return isa.Layout2, []int64{int64(loc.Reg), src.Imm}, true
		case src.Kind == ast.OperandRegister:
			return isa.Layout3, []int64{loc.Imm, int64(src.Reg)}, true
		default:
			return isa.Layout6, []int64{loc.Imm, src.Imm}, true
		}

	case isa.FamLoc:
		loc := operands[0]
		switch loc.Kind {
		case ast.OperandRegister:
			return isa.Layout9, []int64{int64(loc.Reg)}, true
		case ast.OperandRegOffset:
			return isa.Layout11, []int64{int64(loc.Reg), loc.Imm}, true
		default:
			return isa.Layout10, []int64{loc.Imm}, true
		}

	case isa.FamSource:
		src := operands[0]
		if src.Kind == ast.OperandRegister {
			return isa.Layout9, []int64{int64(src.Reg)}, true
		}
		return isa.Layout10, []int64{src.Imm}, true

	case isa.FamDestOnly:
		return isa.Layout9, []int64{int64(operands[0].Reg)}, true
	}
	return isa.LayoutNone, nil, false
}
