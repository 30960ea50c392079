// Package compiler ties the pipeline together: split, lex, parse, build
// the AST, analyze it, and hand a clean program to one of the two code
// generators. Its public surface follows the same New/SetDebug/Compile
// shape as a single-pass compiler, generalized to a source buffer that
// may hold several `$`-terminated programs and to a choice of target.
package compiler

import (
	"github.com/juju/errors"

	"github.com/skx/nexus-compiler/ast"
	"github.com/skx/nexus-compiler/codegen6502"
	"github.com/skx/nexus-compiler/codegenriscv"
	"github.com/skx/nexus-compiler/diagnostics"
	"github.com/skx/nexus-compiler/lexer"
	"github.com/skx/nexus-compiler/parser"
	"github.com/skx/nexus-compiler/semantic"
	"github.com/skx/nexus-compiler/splitter"
)

// Target selects which backend Compile uses.
type Target int

const (
	Target6502 Target = iota
	TargetRISCV
)

// ProgramResult is one program's outcome. When Ok is true, exactly one of
// Image6502 or ListingRISCV is populated, matching Compiler.target; Ok is
// false if the program never reached code generation (a lex, parse, or
// semantic error occurred) or if the 6502 emitter hit a stack/heap
// collision.
type ProgramResult struct {
	Number       int
	Ok           bool
	Image6502    codegen6502.Image
	ListingRISCV string
}

// Compiler holds the source buffer and target for one Compile call.
type Compiler struct {
	source string
	target Target
	debug  bool
	sink   *diagnostics.Sink
}

// New creates a Compiler over source, reporting to sink, targeting
// target.
func New(source string, target Target, sink *diagnostics.Sink) *Compiler {
	return &Compiler{source: source, target: target, sink: sink}
}

// SetDebug toggles whether Info/Debug-level diagnostics are expected to
// be surfaced by the caller; the sink always records them regardless,
// this flag exists purely for a host to decide what to print.
func (c *Compiler) SetDebug(val bool) {
	c.debug = val
}

// Debug reports the current debug flag.
func (c *Compiler) Debug() bool {
	return c.debug
}

// Compile splits the source into programs and drives each one through
// the full pipeline independently; a failure in one program does not
// prevent the next program in the buffer from being compiled.
func (c *Compiler) Compile() ([]ProgramResult, error) {
	programs, splitErr := splitter.Split(c.source, c.sink)
	if splitErr != nil && errors.Cause(splitErr) != splitter.ErrMissingTerminator {
		return nil, errors.Trace(splitErr)
	}

	var results []ProgramResult
	for _, p := range programs {
		results = append(results, c.compileOne(p.Number, p.Source))
	}
	return results, nil
}

func (c *Compiler) compileOne(number int, source string) ProgramResult {
	errsBefore := c.sink.Count(diagnostics.Error)
	toks := lexer.New(source, c.sink).Lex()
	if c.sink.Count(diagnostics.Error) > errsBefore {
		return ProgramResult{Number: number, Ok: false}
	}

	cstTree, err := parser.New(toks, c.sink).Parse()
	if err != nil {
		return ProgramResult{Number: number, Ok: false}
	}

	astTree := ast.Build(cstTree)

	result, ok := semantic.New(c.sink).Analyze(astTree)
	if !ok {
		return ProgramResult{Number: number, Ok: false}
	}

	return c.generate(number, astTree, result)
}

func (c *Compiler) generate(number int, tree *ast.Tree, result *semantic.Result) ProgramResult {
	switch c.target {
	case TargetRISCV:
		listing := codegenriscv.New(result).Emit(tree)
		return ProgramResult{Number: number, Ok: true, ListingRISCV: listing}
	default:
		img, err := codegen6502.New(c.sink, result).Emit(tree)
		if err != nil {
			return ProgramResult{Number: number, Ok: false}
		}
		return ProgramResult{Number: number, Ok: true, Image6502: img}
	}
}
