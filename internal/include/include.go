// Package include splices `.include`d files into the statement stream
// produced by the parser, in place, with cycle detection and a recursion
// depth limit. Filesystem access is abstracted behind a Reader callback so
// the parser never touches os.ReadFile directly.
package include

import (
	"path/filepath"

	"github.com/sunjay/wolf-asm/internal/ast"
	"github.com/sunjay/wolf-asm/internal/diag"
	"github.com/sunjay/wolf-asm/internal/lexer"
	"github.com/sunjay/wolf-asm/internal/parser"
	"github.com/sunjay/wolf-asm/internal/token"
)

func toSpan(s token.Span) diag.Span {
	return diag.Span{File: s.File, Line: s.Line, Col: s.Col}
}

// MaxDepth is the include recursion ceiling.
const MaxDepth = 1000

// Reader reads the full contents of a source file by path, abstracting the
// filesystem so tests can supply an in-memory set of files.
type Reader func(path string) (string, error)

// Expander resolves `.include` directives against a Reader, tracking the
// active file stack for cycle detection.
type Expander struct {
	read   Reader
	sink   *diag.Sink
	active []string // stack of currently-open file paths, for cycle detection
}

// New returns an Expander that reads files via read and reports problems to
// sink.
func New(read Reader, sink *diag.Sink) *Expander {
	return &Expander{read: read, sink: sink}
}

// Expand parses rootPath and recursively splices in every `.include`,
// returning the fully flattened statement list.
func (e *Expander) Expand(rootPath string) []ast.Statement {
	return e.expandFile(rootPath, diag.Span{})
}

func (e *Expander) expandFile(path string, includeSpan diag.Span) []ast.Statement {
	for _, a := range e.active {
		if a == path {
			e.sink.Report(diag.IncludeCycle, includeSpan, "include cycle: %q is already being expanded", path)
			return nil
		}
	}
	if len(e.active) >= MaxDepth {
		e.sink.Report(diag.IncludeTooDeep, includeSpan, "include depth exceeds %d", MaxDepth)
		return nil
	}

	data, err := e.read(path)
	if err != nil {
		e.sink.Report(diag.IncludeNotFound, includeSpan, "cannot read %q: %s", path, err)
		return nil
	}

	lx, err := lexer.MakeStringLexer(path, data)
	if err != nil {
		e.sink.Report(diag.IncludeIO, includeSpan, "cannot lex %q: %s", path, err)
		return nil
	}
	defer lx.Close()

	p := parser.New(lx, e.sink)
	stmts := p.Parse()

	e.active = append(e.active, path)
	defer func() { e.active = e.active[:len(e.active)-1] }()

	out := make([]ast.Statement, 0, len(stmts))
	for _, s := range stmts {
		if s.Kind != ast.StmtDirective || s.Name != ".include" {
			out = append(out, s)
			continue
		}
		out = append(out, e.expandInclude(path, s)...)
	}
	return out
}

func (e *Expander) expandInclude(fromFile string, stmt ast.Statement) []ast.Statement {
	if len(stmt.Operands) != 1 || stmt.Operands[0].Kind != ast.OperandString {
		e.sink.Report(diag.ValBadDirectiveArity, toSpan(stmt.Span), ".include takes exactly one string path")
		return nil
	}
	target := string(stmt.Operands[0].Str)
	resolved := target
	if !filepath.IsAbs(target) {
		resolved = filepath.Join(filepath.Dir(fromFile), target)
	}
	return e.expandFile(resolved, toSpan(stmt.Span))
}
