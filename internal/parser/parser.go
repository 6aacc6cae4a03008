// Package parser groups the lexer's token stream into section headers,
// label definitions, directive invocations and instructions, with a
// single-pass, lookahead-driven state machine that supports
// comma-separated variable-arity operand lists and register+offset syntax.
package parser

import (
	"strconv"
	"strings"

	"github.com/sunjay/wolf-asm/internal/ast"
	"github.com/sunjay/wolf-asm/internal/diag"
	"github.com/sunjay/wolf-asm/internal/lexer"
	"github.com/sunjay/wolf-asm/internal/token"
)

// Parser turns one file's token stream into a flat statement list. It never
// looks at another file; include expansion (component I) splices multiple
// Parser outputs together.
type Parser struct {
	lx   *lexer.Lexer
	sink *diag.Sink
	buf  []token.Token
}

// New returns a Parser pulling tokens from lx and reporting diagnostics to
// sink.
func New(lx *lexer.Lexer, sink *diag.Sink) *Parser {
	return &Parser{lx: lx, sink: sink}
}

func (p *Parser) peek(n int) token.Token {
	for len(p.buf) <= n {
		p.buf = append(p.buf, p.lx.GetToken())
	}
	return p.buf[n]
}

func (p *Parser) cur() token.Token { return p.peek(0) }

func (p *Parser) bump() token.Token {
	t := p.peek(0)
	if len(p.buf) > 0 {
		p.buf = p.buf[1:]
	} else {
		p.buf = nil
	}
	return t
}

func toSpan(s token.Span) diag.Span {
	return diag.Span{File: s.File, Line: s.Line, Col: s.Col}
}

// classifyLexError maps a lexer TkError token's free-text message back to a
// diag.Kind, since the lexer itself only carries a human message (it has no
// dependency on the diag taxonomy, to keep L independent of R).
func classifyLexError(msg string) diag.Kind {
	switch {
	case strings.Contains(msg, "unterminated string"):
		return diag.LexUnterminatedString
	case strings.Contains(msg, "bad escape"):
		return diag.LexBadEscape
	case strings.Contains(msg, "overflow"):
		return diag.LexImmOverflow
	default:
		return diag.LexUnknownChar
	}
}

// Parse consumes the entire token stream and returns every statement found,
// in document order. Parsing continues past recoverable errors so a single
// pass can batch every diagnostic, stopping only at EOF.
func (p *Parser) Parse() []ast.Statement {
	var stmts []ast.Statement
	for {
		p.skipNewlines()
		if p.cur().Kind() == token.EOF {
			return stmts
		}
		if s, ok := p.parseOneStatement(); ok {
			stmts = append(stmts, s)
		}
	}
}

func (p *Parser) skipNewlines() {
	for p.cur().Kind() == token.Newline {
		p.bump()
	}
}

func (p *Parser) parseOneStatement() (ast.Statement, bool) {
	t := p.cur()
	switch t.Kind() {
	case token.Error:
		p.sink.Report(classifyLexError(t.Text()), toSpan(t.Span()), "%s", t.Text())
		p.bump()
		p.recoverToNewline()
		return ast.Statement{}, false
	case token.SectionHeader:
		return p.parseSection()
	case token.Directive:
		return p.parseDirective()
	case token.Ident:
		// Either a label definition ("name:") or an instruction mnemonic.
		if p.peek(1).Kind() == token.Colon {
			return p.parseLabel()
		}
		return p.parseInstruction()
	default:
		p.sink.Report(diag.ParseUnexpectedToken, toSpan(t.Span()), "unexpected token %s", t.Text())
		p.bump()
		p.recoverToNewline()
		return ast.Statement{}, false
	}
}

func (p *Parser) recoverToNewline() {
	for p.cur().Kind() != token.Newline && p.cur().Kind() != token.EOF {
		p.bump()
	}
}

func (p *Parser) endStatement() {
	k := p.cur().Kind()
	if k == token.Newline {
		p.bump()
		return
	}
	if k == token.EOF {
		return
	}
	// A trailing stray token with none of the recognized terminators; the
	// caller already reported a specific diagnostic for it.
	p.recoverToNewline()
	if p.cur().Kind() == token.Newline {
		p.bump()
	}
}

func (p *Parser) parseSection() (ast.Statement, bool) {
	hdr := p.bump() // "section"
	d := p.cur()
	if d.Kind() != token.Directive {
		p.sink.Report(diag.ParseUnexpectedToken, toSpan(d.Span()), "expected .code or .static after section")
		p.recoverToNewline()
		p.endStatement()
		return ast.Statement{}, false
	}
	p.bump()
	var sec ast.Section
	switch strings.ToLower(d.Text()) {
	case ".code":
		sec = ast.SectionCode
	case ".static":
		sec = ast.SectionStatic
	default:
		p.sink.Report(diag.ParseUnexpectedToken, toSpan(d.Span()), "unknown section %q", d.Text())
		p.recoverToNewline()
		p.endStatement()
		return ast.Statement{}, false
	}
	stmt := ast.Statement{Kind: ast.StmtSection, Span: hdr.Span(), Section: sec}
	p.endStatement()
	return stmt, true
}

func (p *Parser) parseLabel() (ast.Statement, bool) {
	name := p.bump() // identifier
	p.bump()         // colon
	return ast.Statement{Kind: ast.StmtLabel, Span: name.Span(), Label: name.Text()}, true
}

func (p *Parser) parseDirective() (ast.Statement, bool) {
	d := p.bump()
	name := strings.ToLower(d.Text())
	operands, ok := []ast.Operand(nil), true
	if name == ".const" && p.cur().Kind() == token.Ident && p.peek(1).Kind() == token.Immediate {
		// .const separates its name and value with whitespace: `.const NAME value`.
		n, v := p.bump(), p.bump()
		operands = []ast.Operand{
			{Kind: ast.OperandIdent, Ident: n.Text(), Span: n.Span()},
			{Kind: ast.OperandImmediate, Imm: v.Value(), Span: v.Span()},
		}
		if !stops(p.cur().Kind()) {
			p.sink.Report(diag.ParseUnexpectedToken, toSpan(p.cur().Span()), "unexpected %s after .const value", p.cur().Text())
			ok = false
		}
	} else {
		operands, ok = p.parseOperandList()
	}
	stmt := ast.Statement{Kind: ast.StmtDirective, Span: d.Span(), Name: name, Operands: operands}
	p.endStatement()
	return stmt, ok
}

func (p *Parser) parseInstruction() (ast.Statement, bool) {
	op := p.bump()
	name := strings.ToLower(op.Text())
	operands, ok := p.parseOperandList()
	stmt := ast.Statement{Kind: ast.StmtInstruction, Span: op.Span(), Name: name, Operands: operands}
	p.endStatement()
	return stmt, ok
}

// parseOperandList reads a comma-separated operand list up to the next
// Newline/EOF. Returns ok=false if a diagnostic was reported (the caller
// still gets whatever operands were parsed before the error, for best-effort
// downstream passes, but the sink already records failure).
func (p *Parser) parseOperandList() ([]ast.Operand, bool) {
	if stops(p.cur().Kind()) {
		return nil, true
	}
	var operands []ast.Operand
	for {
		if p.cur().Kind() == token.Comma {
			// Leading/stray comma with nothing before it, or a double comma.
			p.sink.Report(diag.ParseStrayComma, toSpan(p.cur().Span()), "unexpected comma")
			p.bump()
			continue
		}
		op, ok := p.parseOperand()
		if !ok {
			return operands, false
		}
		operands = append(operands, op)

		switch p.cur().Kind() {
		case token.Comma:
			p.bump()
			if stops(p.cur().Kind()) {
				p.sink.Report(diag.ParseStrayComma, toSpan(p.cur().Span()), "trailing comma")
				return operands, false
			}
		case token.Newline, token.EOF:
			return operands, true
		case token.Register, token.Immediate, token.LParen, token.RParen:
			p.sink.Report(diag.ParseBadRegOffset, toSpan(p.cur().Span()), "malformed register+offset operand")
			p.recoverToNewline()
			return operands, false
		default:
			p.sink.Report(diag.ParseMissingComma, toSpan(p.cur().Span()), "expected comma between operands")
			p.recoverToNewline()
			return operands, false
		}
	}
}

func stops(k token.Kind) bool {
	return k == token.Newline || k == token.EOF
}

// parseOperand reads one operand: a register, an immediate, an identifier,
// a string, or a register+offset ("int(register)"). Malformed
// register+offset syntax is always reported as ParseError::BadRegOffset,
// regardless of which part of the production is missing or out of order.
func (p *Parser) parseOperand() (ast.Operand, bool) {
	t := p.cur()
	switch t.Kind() {
	case token.Register:
		p.bump()
		reg, _ := regIndex(t.Text())
		if p.cur().Kind() == token.LParen {
			p.sink.Report(diag.ParseBadRegOffset, toSpan(t.Span()), "register+offset must be written int(register)")
			p.recoverToNewline()
			return ast.Operand{}, false
		}
		return ast.Operand{Kind: ast.OperandRegister, Reg: reg, Span: t.Span()}, true

	case token.Immediate:
		p.bump()
		if p.cur().Kind() == token.LParen {
			return p.parseRegOffset(t)
		}
		return ast.Operand{Kind: ast.OperandImmediate, Imm: t.Value(), Span: t.Span()}, true

	case token.Ident:
		p.bump()
		return ast.Operand{Kind: ast.OperandIdent, Ident: t.Text(), Span: t.Span()}, true

	case token.String:
		p.bump()
		data, err := lexer.DecodeString(t.Text())
		if err != nil {
			p.sink.Report(diag.LexBadEscape, toSpan(t.Span()), "%s", err)
			return ast.Operand{}, false
		}
		return ast.Operand{Kind: ast.OperandString, Str: data, Span: t.Span()}, true

	case token.LParen:
		p.sink.Report(diag.ParseBadRegOffset, toSpan(t.Span()), "register+offset must be written int(register)")
		p.recoverToNewline()
		return ast.Operand{}, false

	default:
		p.sink.Report(diag.ParseExpectedOperand, toSpan(t.Span()), "expected an operand, found %s", t.Text())
		p.recoverToNewline()
		return ast.Operand{}, false
	}
}

// parseRegOffset finishes "imm(" after the immediate and opening paren have
// already been recognized: it must be followed by exactly one register and
// a closing paren.
func (p *Parser) parseRegOffset(immTok token.Token) (ast.Operand, bool) {
	p.bump() // '('
	r := p.cur()
	if r.Kind() != token.Register {
		p.sink.Report(diag.ParseBadRegOffset, toSpan(immTok.Span()), "expected a register inside parentheses")
		p.recoverToNewline()
		return ast.Operand{}, false
	}
	p.bump()
	if p.cur().Kind() != token.RParen {
		p.sink.Report(diag.ParseBadRegOffset, toSpan(immTok.Span()), "missing closing parenthesis")
		p.recoverToNewline()
		return ast.Operand{}, false
	}
	p.bump() // ')'
	reg, _ := regIndex(r.Text())
	return ast.Operand{Kind: ast.OperandRegOffset, Imm: immTok.Value(), Reg: reg, Span: immTok.Span()}, true
}

// regIndex parses a register token's text ("$12", "$sp", "$fp") into its
// register number. Range validation (0-63) happens in the const/validation
// pass, which already owns every other operand-shape check.
func regIndex(text string) (int, bool) {
	body := strings.TrimPrefix(text, "$")
	switch body {
	case "sp":
		return 63, true
	case "fp":
		return 62, true
	}
	n, err := strconv.Atoi(body)
	if err != nil {
		return 0, false
	}
	return n, true
}
