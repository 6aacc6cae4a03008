package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunjay/wolf-asm/internal/ast"
	"github.com/sunjay/wolf-asm/internal/diag"
	"github.com/sunjay/wolf-asm/internal/lexer"
	"github.com/sunjay/wolf-asm/internal/parser"
)

func parse(t *testing.T, src string) ([]ast.Statement, *diag.Sink) {
	t.Helper()
	lx, err := lexer.MakeStringLexer(t.Name(), src)
	require.NoError(t, err)
	sink := &diag.Sink{}
	stmts := parser.New(lx, sink).Parse()
	return stmts, sink
}

func TestParseSection(t *testing.T) {
	stmts, sink := parse(t, "section .code\n")
	require.False(t, sink.Failed())
	require.Len(t, stmts, 1)
	assert.Equal(t, ast.StmtSection, stmts[0].Kind)
	assert.Equal(t, ast.SectionCode, stmts[0].Section)
}

func TestParseLabel(t *testing.T) {
	stmts, sink := parse(t, "loop:\n")
	require.False(t, sink.Failed())
	require.Len(t, stmts, 1)
	assert.Equal(t, ast.StmtLabel, stmts[0].Kind)
	assert.Equal(t, "loop", stmts[0].Label)
}

func TestParseInstructionWithOperands(t *testing.T) {
	stmts, sink := parse(t, "add $1, $2\n")
	require.False(t, sink.Failed())
	require.Len(t, stmts, 1)
	s := stmts[0]
	assert.Equal(t, ast.StmtInstruction, s.Kind)
	assert.Equal(t, "add", s.Name)
	require.Len(t, s.Operands, 2)
	assert.Equal(t, ast.OperandRegister, s.Operands[0].Kind)
	assert.Equal(t, 1, s.Operands[0].Reg)
	assert.Equal(t, ast.OperandRegister, s.Operands[1].Kind)
	assert.Equal(t, 2, s.Operands[1].Reg)
}

func TestParseRegOffsetOperand(t *testing.T) {
	stmts, sink := parse(t, "load8 $1, -8($fp)\n")
	require.False(t, sink.Failed())
	require.Len(t, stmts, 1)
	op := stmts[0].Operands[1]
	assert.Equal(t, ast.OperandRegOffset, op.Kind)
	assert.Equal(t, int64(-8), op.Imm)
	assert.Equal(t, 62, op.Reg)
}

func TestParseDirectiveOperands(t *testing.T) {
	stmts, sink := parse(t, ".b4 42\n")
	require.False(t, sink.Failed())
	require.Len(t, stmts, 1)
	assert.Equal(t, ast.StmtDirective, stmts[0].Kind)
	assert.Equal(t, ".b4", stmts[0].Name)
	require.Len(t, stmts[0].Operands, 1)
	assert.Equal(t, int64(42), stmts[0].Operands[0].Imm)
}

func TestParseStringOperand(t *testing.T) {
	stmts, sink := parse(t, `.bytes "hi"`+"\n")
	require.False(t, sink.Failed())
	require.Len(t, stmts, 1)
	op := stmts[0].Operands[0]
	assert.Equal(t, ast.OperandString, op.Kind)
	assert.Equal(t, []byte("hi"), op.Str)
}

func TestParseIdentOperand(t *testing.T) {
	stmts, sink := parse(t, "jmp target\n")
	require.False(t, sink.Failed())
	op := stmts[0].Operands[0]
	assert.Equal(t, ast.OperandIdent, op.Kind)
	assert.Equal(t, "target", op.Ident)
}

func TestParseMultipleStatementsPerLine(t *testing.T) {
	stmts, sink := parse(t, "loop: add $1, $2\n")
	require.False(t, sink.Failed())
	require.Len(t, stmts, 2)
	assert.Equal(t, ast.StmtLabel, stmts[0].Kind)
	assert.Equal(t, ast.StmtInstruction, stmts[1].Kind)
}

func TestParseStrayComma(t *testing.T) {
	_, sink := parse(t, "add , $1\n")
	require.True(t, sink.Failed())
	assert.Equal(t, diag.ParseStrayComma, sink.Diagnostics()[0].Kind)
}

func TestParseMissingComma(t *testing.T) {
	_, sink := parse(t, "mov $1 target\n")
	require.True(t, sink.Failed())
	assert.Equal(t, diag.ParseMissingComma, sink.Diagnostics()[0].Kind)
}

func TestParseAdjacentOperandsIsBadRegOffset(t *testing.T) {
	// Two operands back to back with no comma and no intervening identifier
	// looks like an attempted (and malformed) register+offset, so it's
	// reported as BadRegOffset rather than MissingComma.
	_, sink := parse(t, "add $1 $2\n")
	require.True(t, sink.Failed())
	assert.Equal(t, diag.ParseBadRegOffset, sink.Diagnostics()[0].Kind)
}

// The six malformed register+offset shapes: whatever part of
// "imm(register)" is missing or reordered must be reported uniformly as
// ParseError::BadRegOffset.
func TestParseMalformedRegOffset(t *testing.T) {
	cases := []string{
		"store8 -12 $2), $1\n",
		"store8 -16($2, $1\n",
		"store8 -24(($2)), $1\n",
		"store8 $2(-8), $1\n",
		"store8 ($2-8), $1\n",
		"store8 $2-8, $1\n",
	}
	for _, src := range cases {
		_, sink := parse(t, src)
		require.True(t, sink.Failed(), "expected failure for %q", src)
		assert.Equal(t, diag.ParseBadRegOffset, sink.Diagnostics()[0].Kind, "for %q", src)
	}
}

func TestParseUnexpectedToken(t *testing.T) {
	_, sink := parse(t, ",\n")
	require.True(t, sink.Failed())
	assert.Equal(t, diag.ParseUnexpectedToken, sink.Diagnostics()[0].Kind)
}

func TestParseContinuesAfterError(t *testing.T) {
	stmts, sink := parse(t, "add $1 $2\nnop\n")
	require.True(t, sink.Failed())
	require.Len(t, stmts, 1)
	assert.Equal(t, "nop", stmts[0].Name)
}
