// Package token defines the lexical atoms produced by the lexer: a kind, a
// source span, and the original source text. The operand grammar it covers
// includes register references, register+offset addressing, wide
// immediates, and section headers.
package token

import "fmt"

// Kind tags the lexical class of a Token.
type Kind int

const (
	EOF Kind = iota
	Error
	Newline
	Ident    // bare identifier: opcode, label reference, constant name, directive name without the leading dot is not used — directives keep their dot, see Directive
	Directive
	Immediate
	Register
	String
	Comma
	Colon
	LParen
	RParen
	SectionHeader // the literal "section" keyword
)

var kindNames = map[Kind]string{
	EOF:           "TkEOF",
	Error:         "TkError",
	Newline:       "TkNewline",
	Ident:         "TkSymbol",
	Directive:     "TkDirective",
	Immediate:     "TkNumber",
	Register:      "TkRegister",
	String:        "TkString",
	Comma:         "TkComma",
	Colon:         "TkColon",
	LParen:        "TkLParen",
	RParen:        "TkRParen",
	SectionHeader: "TkSection",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Span is a source position: file, 1-based line, 1-based column.
type Span struct {
	File string
	Line int
	Col  int
}

func (s Span) String() string {
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Col)
}

// Token is one lexical atom: a Kind, the literal source text it came from,
// and for Immediate tokens the already-parsed numeric value (computed in
// the lexer so overflow is caught at the point of the scan).
type Token struct {
	kind  Kind
	text  string
	value int64 // valid only when kind == Immediate
	span  Span
}

func New(kind Kind, text string, span Span) Token {
	return Token{kind: kind, text: text, span: span}
}

func NewImmediate(text string, value int64, span Span) Token {
	return Token{kind: Immediate, text: text, value: value, span: span}
}

func (t Token) Kind() Kind   { return t.kind }
func (t Token) Text() string { return t.text }
func (t Token) Value() int64 { return t.value }
func (t Token) Span() Span   { return t.span }

func (t Token) String() string {
	return fmt.Sprintf("{%s %s}", t.kind, t.text)
}
