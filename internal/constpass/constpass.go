// Package constpass is a two-sweep constant collection and structural
// validation pass. Sweep one gathers `.const` declarations and label
// names into one namespace; sweep two substitutes constant references,
// enforces section/directive/instruction shape rules, and leaves
// unresolved identifiers as label references for the layout pass to
// settle.
package constpass

import (
	"github.com/sunjay/wolf-asm/internal/ast"
	"github.com/sunjay/wolf-asm/internal/diag"
	"github.com/sunjay/wolf-asm/internal/isa"
	"github.com/sunjay/wolf-asm/internal/token"
)

// Result is the validated, constant-substituted statement list plus the
// label name set pass A will assign addresses to.
type Result struct {
	Statements []ast.Statement
	Labels     map[string]bool
}

func toSpan(s token.Span) diag.Span {
	return diag.Span{File: s.File, Line: s.Line, Col: s.Col}
}

// Run performs both sweeps over stmts, reporting every diagnostic to sink.
func Run(stmts []ast.Statement, sink *diag.Sink) Result {
	consts, labels := sweepOne(stmts, sink)
	out := sweepTwo(stmts, consts, labels, sink)
	return Result{Statements: out, Labels: labels}
}

func sweepOne(stmts []ast.Statement, sink *diag.Sink) (map[string]int64, map[string]bool) {
	consts := map[string]int64{}
	labels := map[string]bool{}

	for _, s := range stmts {
		switch s.Kind {
		case ast.StmtLabel:
			if _, isConst := consts[s.Label]; isConst {
				sink.Report(diag.ValNameCollision, toSpan(s.Span), "%q is both a label and a constant", s.Label)
			}
			if labels[s.Label] {
				sink.Report(diag.ValNameCollision, toSpan(s.Span), "label %q is defined more than once", s.Label)
			}
			labels[s.Label] = true

		case ast.StmtDirective:
			if s.Name != ".const" {
				continue
			}
			if len(s.Operands) != 2 || s.Operands[0].Kind != ast.OperandIdent || s.Operands[1].Kind != ast.OperandImmediate {
				sink.Report(diag.ValBadDirectiveArity, toSpan(s.Span), ".const takes exactly one identifier and one immediate")
				continue
			}
			name := s.Operands[0].Ident
			value := s.Operands[1].Imm
			if labels[name] {
				sink.Report(diag.ValNameCollision, toSpan(s.Span), "%q is both a label and a constant", name)
			}
			if old, ok := consts[name]; ok && old != value {
				sink.Report(diag.WarnConstRedefined, toSpan(s.Span), "constant %q redefined from %d to %d", name, old, value)
			}
			consts[name] = value
		}
	}
	return consts, labels
}

// sectionState tracks the section-order invariants across sweep two.
type sectionState struct {
	sawStatic, sawCode bool
}

func sweepTwo(stmts []ast.Statement, consts map[string]int64, labels map[string]bool, sink *diag.Sink) []ast.Statement {
	out := make([]ast.Statement, 0, len(stmts))
	var st sectionState
	inSection := false

	for _, s := range stmts {
		switch s.Kind {
		case ast.StmtSection:
			if s.Section == ast.SectionStatic {
				if st.sawStatic {
					sink.Report(diag.ValDuplicateSection, toSpan(s.Span), "section .static declared more than once")
				}
				if !st.sawCode {
					sink.Report(diag.ValWrongSectionOrder, toSpan(s.Span), "section .static must follow section .code in declaration order")
				}
				st.sawStatic = true
			} else {
				if st.sawCode {
					sink.Report(diag.ValDuplicateSection, toSpan(s.Span), "section .code declared more than once")
				}
				st.sawCode = true
			}
			inSection = true
			out = append(out, s)
			continue

		case ast.StmtLabel:
			if !inSection {
				sink.Report(diag.ValNoSection, toSpan(s.Span), "label %q appears before any section header", s.Label)
			}
			out = append(out, s)
			continue

		case ast.StmtDirective:
			if s.Name == ".include" {
				sink.Report(diag.ValUnknownDirective, toSpan(s.Span), "internal error: .include should have been expanded")
				continue
			}
			if s.Name != ".const" && !inSection {
				sink.Report(diag.ValNoSection, toSpan(s.Span), "directive %s appears before any section header", s.Name)
			}
			resolved := substituteOperands(s.Operands, consts)
			if s.Name != ".const" {
				validateDirective(s, resolved, sink)
			}
			s.Operands = resolved
			out = append(out, s)
			continue

		case ast.StmtInstruction:
			if !inSection {
				sink.Report(diag.ValNoSection, toSpan(s.Span), "instruction %s appears before any section header", s.Name)
			}
			resolved := substituteOperands(s.Operands, consts)
			validateInstruction(s, resolved, sink)
			s.Operands = resolved
			out = append(out, s)
			continue
		}
	}

	if !st.sawCode {
		sink.Report(diag.ValNoSection, diag.Span{}, "program has no section .code")
	}

	return out
}

// substituteOperands replaces every Ident operand naming a known constant
// with its immediate value. Idents that don't name a constant are left
// alone; they are assumed to be label references, resolved (or reported as
// unknown) in pass A.
func substituteOperands(operands []ast.Operand, consts map[string]int64) []ast.Operand {
	if operands == nil {
		return nil
	}
	out := make([]ast.Operand, len(operands))
	for i, o := range operands {
		if o.Kind == ast.OperandIdent {
			if v, ok := consts[o.Ident]; ok {
				out[i] = ast.Operand{Kind: ast.OperandImmediate, Imm: v, Span: o.Span}
				continue
			}
		}
		out[i] = o
	}
	return out
}

func fitsBytes(v int64, n int) bool {
	return isa.FitsSigned(v, n*8)
}

func validateDirective(s ast.Statement, operands []ast.Operand, sink *diag.Sink) {
	switch s.Name {
	case ".b1", ".b2", ".b4", ".b8":
		n := map[string]int{".b1": 1, ".b2": 2, ".b4": 4, ".b8": 8}[s.Name]
		if len(operands) != 1 || operands[0].Kind != ast.OperandImmediate {
			sink.Report(diag.ValBadDirectiveArity, toSpan(s.Span), "%s takes exactly one immediate operand", s.Name)
			return
		}
		if !fitsBytes(operands[0].Imm, n) {
			sink.Report(diag.ValValueTooWide, toSpan(s.Span), "%d does not fit in %d byte(s)", operands[0].Imm, n)
		}

	case ".zero", ".uninit":
		if len(operands) != 1 || operands[0].Kind != ast.OperandImmediate {
			sink.Report(diag.ValBadDirectiveArity, toSpan(s.Span), "%s takes exactly one immediate operand", s.Name)
			return
		}
		if operands[0].Imm < 0 {
			sink.Report(diag.ValNegativeSize, toSpan(s.Span), "%s size must not be negative", s.Name)
		}

	case ".bytes":
		if len(operands) != 1 || operands[0].Kind != ast.OperandString {
			sink.Report(diag.ValBadDirectiveArity, toSpan(s.Span), ".bytes takes exactly one string operand")
		}

	default:
		sink.Report(diag.ValUnknownDirective, toSpan(s.Span), "unknown directive %s", s.Name)
	}
}

// slotKind tags what an instruction operand position accepts.
type slotKind int

const (
	slotReg slotKind = iota // register only (Destination)
	slotVal                 // register, immediate, or label (Source)
	slotLoc                 // register, immediate, label, or register+offset (Location)
)

var familyShape = map[isa.Family][]slotKind{
	isa.FamNone:          {},
	isa.FamDestSource:    {slotReg, slotVal},
	isa.FamDestHiDestSrc: {slotReg, slotReg, slotVal},
	isa.FamSourceSource:  {slotVal, slotVal},
	isa.FamDestLoc:       {slotReg, slotLoc},
	isa.FamLocSource:     {slotLoc, slotVal},
	isa.FamLoc:           {slotLoc},
	isa.FamSource:        {slotVal},
	isa.FamDestOnly:      {slotReg},
}

func slotAccepts(slot slotKind, k ast.OperandKind) bool {
	switch slot {
	case slotReg:
		return k == ast.OperandRegister
	case slotVal:
		return k == ast.OperandRegister || k == ast.OperandImmediate || k == ast.OperandIdent
	case slotLoc:
		return k == ast.OperandRegister || k == ast.OperandImmediate || k == ast.OperandIdent || k == ast.OperandRegOffset
	}
	return false
}

func validateInstruction(s ast.Statement, operands []ast.Operand, sink *diag.Sink) {
	variants := isa.Variants(s.Name)
	if len(variants) == 0 {
		sink.Report(diag.ValUnknownOpcode, toSpan(s.Span), "unknown opcode %s", s.Name)
		return
	}
	shape := familyShape[variants[0].Family]
	if len(operands) != len(shape) {
		sink.Report(diag.ValBadOperandArity, toSpan(s.Span), "%s takes %d operand(s), got %d", s.Name, len(shape), len(operands))
		return
	}
	for i, slot := range shape {
		o := operands[i]
		if !slotAccepts(slot, o.Kind) {
			sink.Report(diag.ValBadOperandKind, toSpan(o.Span), "operand %d of %s has the wrong kind", i+1, s.Name)
			continue
		}
		if (o.Kind == ast.OperandRegister || o.Kind == ast.OperandRegOffset) && (o.Reg < 0 || o.Reg > 63) {
			sink.Report(diag.ValBadOperandKind, toSpan(o.Span), "operand %d of %s: register index %d out of range 0-63", i+1, s.Name, o.Reg)
		}
	}
}
