// Package diag carries source positions and a closed error taxonomy
// through every assembler pass. The lexer, parser, include expander,
// const/validation pass, layout pass and encoder all append to one sink,
// and the caller decides whether to halt after the first error or batch
// every diagnostic from a pass.
package diag

import "fmt"

// Span is a source position: the file it came from (by path, not index,
// since include expansion can pull from many files) and a 1-based line and
// column.
type Span struct {
	File string
	Line int
	Col  int
}

func (s Span) String() string {
	if s.File == "" {
		return fmt.Sprintf("%d:%d", s.Line, s.Col)
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Col)
}

// Kind is the closed diagnostic taxonomy. One enum spans every
// sub-taxonomy (Lex/Parse/Include/Val/Resolve/Encode/Runtime) rather than a
// Go error type per pass, so a single Sink can batch across passes.
type Kind int

const (
	KindNone Kind = iota

	// LexError
	LexBadEscape
	LexImmOverflow
	LexUnterminatedString
	LexUnknownChar

	// ParseError
	ParseBadRegOffset
	ParseMissingComma
	ParseStrayComma
	ParseExpectedOperand
	ParseUnexpectedToken

	// IncludeError
	IncludeNotFound
	IncludeCycle
	IncludeTooDeep
	IncludeIO

	// ValError
	ValNoSection
	ValDuplicateSection
	ValWrongSectionOrder
	ValUnknownDirective
	ValBadDirectiveArity
	ValNegativeSize
	ValValueTooWide
	ValUnknownOpcode
	ValBadOperandKind
	ValBadOperandArity
	ValNameCollision

	// ResolveError
	ResolveUnknownLabel

	// EncodeError
	EncodeImmTooWide
	EncodeNoValidLayout

	// RuntimeError
	RuntimeDivByZero
	RuntimeBadAddress
	RuntimeStackUnderflow
	RuntimeUnknownOpcode
	RuntimeHalted

	// Warning (non-fatal)
	WarnConstRedefined
)

var kindNames = map[Kind]string{
	KindNone:              "none",
	LexBadEscape:          "LexError::BadEscape",
	LexImmOverflow:        "LexError::ImmOverflow",
	LexUnterminatedString: "LexError::UnterminatedString",
	LexUnknownChar:        "LexError::UnknownChar",

	ParseBadRegOffset:    "ParseError::BadRegOffset",
	ParseMissingComma:    "ParseError::MissingComma",
	ParseStrayComma:      "ParseError::StrayComma",
	ParseExpectedOperand: "ParseError::ExpectedOperand",
	ParseUnexpectedToken: "ParseError::UnexpectedToken",

	IncludeNotFound: "IncludeError::NotFound",
	IncludeCycle:    "IncludeError::Cycle",
	IncludeTooDeep:  "IncludeError::TooDeep",
	IncludeIO:       "IncludeError::Io",

	ValNoSection:         "ValError::NoSection",
	ValDuplicateSection:  "ValError::DuplicateSection",
	ValWrongSectionOrder: "ValError::WrongSectionOrder",
	ValUnknownDirective:  "ValError::UnknownDirective",
	ValBadDirectiveArity: "ValError::BadDirectiveArity",
	ValNegativeSize:      "ValError::NegativeSize",
	ValValueTooWide:      "ValError::ValueTooWide",
	ValUnknownOpcode:     "ValError::UnknownOpcode",
	ValBadOperandKind:    "ValError::BadOperandKind",
	ValBadOperandArity:   "ValError::BadOperandArity",
	ValNameCollision:     "ValError::NameCollision",

	ResolveUnknownLabel: "ResolveError::UnknownLabel",

	EncodeImmTooWide:    "EncodeError::ImmTooWide",
	EncodeNoValidLayout: "EncodeError::NoValidLayout",

	RuntimeDivByZero:      "RuntimeError::DivByZero",
	RuntimeBadAddress:     "RuntimeError::BadAddress",
	RuntimeStackUnderflow: "RuntimeError::StackUnderflow",
	RuntimeUnknownOpcode:  "RuntimeError::UnknownOpcode",
	RuntimeHalted:         "RuntimeError::Halted",

	WarnConstRedefined: "Warning::ConstRedefined",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsWarning reports whether a Kind is non-fatal: it is reported but does
// not abort the pipeline and does not count toward Sink.Failed().
func (k Kind) IsWarning() bool {
	return k == WarnConstRedefined
}

// Diagnostic is one reported problem: a Kind, the span it occurred at, and
// a human-readable message.
type Diagnostic struct {
	Kind    Kind
	Span    Span
	Message string
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s: %s", d.Span, d.Kind, d.Message)
}

// Sink accumulates diagnostics from one or more passes. The assembler
// batches every diagnostic from a pass together rather than halting on the
// first; the VM, by contrast, halts on the first fatal runtime error.
type Sink struct {
	diags []Diagnostic
}

// Report appends a diagnostic. Warnings never affect Failed().
func (s *Sink) Report(kind Kind, span Span, format string, args ...any) {
	s.diags = append(s.diags, Diagnostic{Kind: kind, Span: span, Message: fmt.Sprintf(format, args...)})
}

// Diagnostics returns every diagnostic reported so far, in report order.
func (s *Sink) Diagnostics() []Diagnostic {
	return s.diags
}

// Failed reports whether any non-warning diagnostic was reported.
func (s *Sink) Failed() bool {
	for _, d := range s.diags {
		if !d.Kind.IsWarning() {
			return true
		}
	}
	return false
}

// ErrorCount returns the number of non-warning diagnostics.
func (s *Sink) ErrorCount() int {
	n := 0
	for _, d := range s.diags {
		if !d.Kind.IsWarning() {
			n++
		}
	}
	return n
}

// Err collapses the sink into a single error summarizing the error count.
// Returns nil if there were no non-warning diagnostics.
func (s *Sink) Err() error {
	n := s.ErrorCount()
	if n == 0 {
		return nil
	}
	plural := "s"
	if n == 1 {
		plural = ""
	}
	return fmt.Errorf("%d error%s", n, plural)
}
