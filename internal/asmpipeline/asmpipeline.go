// Package asmpipeline wires the lexer, parser, include expander, const
// pass, layout pass and encoder into the single "assemble a .wa file"
// operation: source text -> lex -> parse -> expand includes -> resolve
// constants and validate -> assign layout and labels -> encode -> image.
// Kept as one function so cmd/wasm doesn't need to know the passes exist.
package asmpipeline

import (
	"os"

	"github.com/sunjay/wolf-asm/internal/constpass"
	"github.com/sunjay/wolf-asm/internal/diag"
	"github.com/sunjay/wolf-asm/internal/encoder"
	"github.com/sunjay/wolf-asm/internal/image"
	"github.com/sunjay/wolf-asm/internal/include"
	"github.com/sunjay/wolf-asm/internal/layout"
)

// Result is everything assembling one file produces: the image (valid only
// if Sink.Failed() is false) and every diagnostic collected along the way.
type Result struct {
	Image image.Image
	Sink  *diag.Sink
}

// Assemble runs the full pipeline over rootPath, reading included files
// through read.
func Assemble(rootPath string, read include.Reader) Result {
	sink := &diag.Sink{}

	expander := include.New(read, sink)
	stmts := expander.Expand(rootPath)

	cres := constpass.Run(stmts, sink)
	lres := layout.Run(cres.Statements, sink)
	img := encoder.Run(lres.Statements, sink)

	return Result{Image: img, Sink: sink}
}

// ReadFile is the default include.Reader, backed directly by the
// filesystem.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// AssembleFile assembles rootPath, reading every file (including `.include`
// targets) from the local filesystem.
func AssembleFile(rootPath string) Result {
	return Assemble(rootPath, ReadFile)
}
