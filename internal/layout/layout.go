// Package layout assigns byte offsets to every static item and
// instruction, populates the label table, and rewrites label operands to
// resolved absolute addresses. Declaration order in source is `.code`
// before `.static`, but the image itself always lays static bytes before
// code bytes; this pass reconciles the two by sizing both sections before
// assigning any address, the way a two-pass assembler computes a symbol
// table before emitting code rather than a single forward-only cursor.
package layout

import (
	"github.com/sunjay/wolf-asm/internal/ast"
	"github.com/sunjay/wolf-asm/internal/diag"
	"github.com/sunjay/wolf-asm/internal/token"
)

func toSpan(s token.Span) diag.Span {
	return diag.Span{File: s.File, Line: s.Line, Col: s.Col}
}

// Result is the statement list with every operand resolved to a concrete
// register/immediate/register+offset (no more label identifiers), plus the
// label table and the final static/code sizes.
type Result struct {
	Statements []ast.Statement
	Labels     map[string]uint64
	StaticSize uint64
	CodeSize   uint64
}

// Run sizes every statement, assigns the label table, and resolves every
// remaining identifier operand to an absolute address.
func Run(stmts []ast.Statement, sink *diag.Sink) Result {
	staticSize, codeSize := sizeSections(stmts)

	labels := map[string]uint64{}
	staticCursor := uint64(0)
	codeCursor := staticSize

	section := ast.SectionCode
	for _, s := range stmts {
		switch s.Kind {
		case ast.StmtSection:
			section = s.Section
		case ast.StmtLabel:
			labels[s.Label] = cursorFor(section, staticCursor, codeCursor)
		case ast.StmtDirective, ast.StmtInstruction:
			n := uint64(stmtSize(s))
			if section == ast.SectionStatic {
				staticCursor += n
			} else {
				codeCursor += n
			}
		}
	}

	out := resolveLabels(stmts, labels, sink)
	return Result{Statements: out, Labels: labels, StaticSize: staticSize, CodeSize: codeSize}
}

func cursorFor(section ast.Section, staticCursor, codeCursor uint64) uint64 {
	if section == ast.SectionStatic {
		return staticCursor
	}
	return codeCursor
}

// sizeSections walks the statement list once just to total up the static
// and code section byte counts, since code's base address (after static)
// can't be known until static's total size is known, and declaration order
// does not guarantee static comes first in the source.
func sizeSections(stmts []ast.Statement) (staticSize, codeSize uint64) {
	section := ast.SectionCode
	for _, s := range stmts {
		switch s.Kind {
		case ast.StmtSection:
			section = s.Section
		case ast.StmtDirective, ast.StmtInstruction:
			n := uint64(stmtSize(s))
			if section == ast.SectionStatic {
				staticSize += n
			} else {
				codeSize += n
			}
		}
	}
	return staticSize, codeSize
}

// stmtSize returns how many bytes a directive or instruction advances the
// layout cursor by.
func stmtSize(s ast.Statement) int {
	if s.Kind == ast.StmtInstruction {
		return 8
	}
	switch s.Name {
	case ".b1":
		return 1
	case ".b2":
		return 2
	case ".b4":
		return 4
	case ".b8":
		return 8
	case ".zero", ".uninit":
		if len(s.Operands) == 1 && s.Operands[0].Kind == ast.OperandImmediate {
			return int(s.Operands[0].Imm)
		}
		return 0
	case ".bytes":
		if len(s.Operands) == 1 && s.Operands[0].Kind == ast.OperandString {
			return len(s.Operands[0].Str)
		}
		return 0
	default:
		return 0
	}
}

// resolveLabels rewrites every remaining Ident operand (which sweep two of
// the const pass left alone because it wasn't a known constant) to the
// label's resolved address, reporting ResolveError::UnknownLabel for names
// that never got a definition.
func resolveLabels(stmts []ast.Statement, labels map[string]uint64, sink *diag.Sink) []ast.Statement {
	out := make([]ast.Statement, len(stmts))
	for i, s := range stmts {
		if len(s.Operands) == 0 {
			out[i] = s
			continue
		}
		operands := make([]ast.Operand, len(s.Operands))
		for j, o := range s.Operands {
			if o.Kind != ast.OperandIdent {
				operands[j] = o
				continue
			}
			addr, ok := labels[o.Ident]
			if !ok {
				sink.Report(diag.ResolveUnknownLabel, toSpan(o.Span), "undefined label %q", o.Ident)
				operands[j] = o
				continue
			}
			operands[j] = ast.Operand{Kind: ast.OperandImmediate, Imm: int64(addr), Span: o.Span}
		}
		s.Operands = operands
		out[i] = s
	}
	return out
}
