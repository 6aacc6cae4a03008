package layout_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunjay/wolf-asm/internal/ast"
	"github.com/sunjay/wolf-asm/internal/diag"
	"github.com/sunjay/wolf-asm/internal/layout"
)

func sec(s ast.Section) ast.Statement { return ast.Statement{Kind: ast.StmtSection, Section: s} }
func label(name string) ast.Statement { return ast.Statement{Kind: ast.StmtLabel, Label: name} }
func instr(name string, operands ...ast.Operand) ast.Statement {
	return ast.Statement{Kind: ast.StmtInstruction, Name: name, Operands: operands}
}
func directive(name string, operands ...ast.Operand) ast.Statement {
	return ast.Statement{Kind: ast.StmtDirective, Name: name, Operands: operands}
}
func imm(v int64) ast.Operand        { return ast.Operand{Kind: ast.OperandImmediate, Imm: v} }
func identOp(name string) ast.Operand { return ast.Operand{Kind: ast.OperandIdent, Ident: name} }
func strOp(s string) ast.Operand     { return ast.Operand{Kind: ast.OperandString, Str: []byte(s)} }

func TestCodeBeforeStaticInSourceYieldsStaticFirstInImage(t *testing.T) {
	stmts := []ast.Statement{
		sec(ast.SectionCode),
		label("start"),
		instr("nop"),
		sec(ast.SectionStatic),
		directive(".b4", imm(1)),
	}
	sink := &diag.Sink{}
	res := layout.Run(stmts, sink)
	require.False(t, sink.Failed())

	assert.Equal(t, uint64(4), res.StaticSize)
	assert.Equal(t, uint64(8), res.CodeSize)
	// code's base address is after all of static, regardless of source order
	assert.Equal(t, uint64(4), res.Labels["start"])
}

func TestInstructionsAreEightBytes(t *testing.T) {
	stmts := []ast.Statement{
		sec(ast.SectionCode),
		instr("nop"),
		instr("nop"),
		label("after"),
	}
	sink := &diag.Sink{}
	res := layout.Run(stmts, sink)
	require.False(t, sink.Failed())
	assert.Equal(t, uint64(16), res.Labels["after"])
	assert.Equal(t, uint64(16), res.CodeSize)
}

func TestDirectiveSizes(t *testing.T) {
	stmts := []ast.Statement{
		sec(ast.SectionCode),
		instr("nop"),
		sec(ast.SectionStatic),
		directive(".b1", imm(1)),
		directive(".b2", imm(1)),
		directive(".b4", imm(1)),
		directive(".b8", imm(1)),
		directive(".zero", imm(10)),
		directive(".uninit", imm(3)),
		directive(".bytes", strOp("hello")),
		label("end"),
	}
	sink := &diag.Sink{}
	res := layout.Run(stmts, sink)
	require.False(t, sink.Failed())
	// 1+2+4+8+10+3+5 = 33
	assert.Equal(t, uint64(33), res.StaticSize)
	assert.Equal(t, uint64(33), res.Labels["end"])
}

func TestLabelResolvedToAbsoluteAddress(t *testing.T) {
	stmts := []ast.Statement{
		sec(ast.SectionCode),
		label("loop"),
		instr("jmp", identOp("loop")),
	}
	sink := &diag.Sink{}
	res := layout.Run(stmts, sink)
	require.False(t, sink.Failed())

	jmp := res.Statements[len(res.Statements)-1]
	require.Len(t, jmp.Operands, 1)
	assert.Equal(t, ast.OperandImmediate, jmp.Operands[0].Kind)
	assert.Equal(t, int64(0), jmp.Operands[0].Imm)
}

func TestUnresolvedLabelReportsError(t *testing.T) {
	stmts := []ast.Statement{
		sec(ast.SectionCode),
		instr("jmp", identOp("nowhere")),
	}
	sink := &diag.Sink{}
	layout.Run(stmts, sink)
	require.True(t, sink.Failed())
	assert.Equal(t, diag.ResolveUnknownLabel, sink.Diagnostics()[0].Kind)
}

func TestLabelAtStartOfStaticSectionIsZero(t *testing.T) {
	stmts := []ast.Statement{
		sec(ast.SectionStatic),
		label("msg"),
		directive(".bytes", strOp("hi")),
		sec(ast.SectionCode),
		instr("nop"),
	}
	sink := &diag.Sink{}
	res := layout.Run(stmts, sink)
	require.False(t, sink.Failed())
	assert.Equal(t, uint64(0), res.Labels["msg"])
}
