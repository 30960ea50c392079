// Package codegenriscv implements the RISC-V text emitter (component
// C8): readable assembly built from four text buffers — code, static
// variable declarations, a heap of interned string literals plus
// scratch space, and fixed runtime print routines — concatenated into
// one listing. Unlike codegen6502 there is no fixed address space and
// no collision check: every location is a textual label resolved by the
// assembler.
package codegenriscv

import (
	"strconv"
	"strings"

	"github.com/skx/nexus-compiler/ast"
	"github.com/skx/nexus-compiler/semantic"
	"github.com/skx/nexus-compiler/symboltable"
	"github.com/skx/nexus-compiler/token"
)

// Emitter accumulates the four text sections for one program.
type Emitter struct {
	result *semantic.Result

	code   strings.Builder
	static strings.Builder
	heap   strings.Builder

	staticDecl map[string]bool
	stringLbl  map[string]string
	nextString int

	labelCounter int
}

// New creates an Emitter. "false" and "true" are pre-interned as
// string_0 and string_1, matching the listing format's contract.
func New(result *semantic.Result) *Emitter {
	e := &Emitter{result: result, staticDecl: make(map[string]bool), stringLbl: make(map[string]string)}
	e.heap.WriteString("newline: .byte 10\n")
	e.heap.WriteString("scratch_byte: .byte 0\n")
	e.internString("false")
	e.internString("true")
	return e
}

// Emit lowers the root Block of tree and returns the fully assembled
// listing.
func (e *Emitter) Emit(tree *ast.Tree) string {
	e.genBlock(tree, tree.Root)

	var out strings.Builder
	out.WriteString(".section .text\n")
	out.WriteString(".global _start\n")
	out.WriteString("_start:\n")
	out.WriteString("\tnop\n")
	out.WriteString(e.code.String())
	out.WriteString("\tli a7, 93\n")
	out.WriteString("\tli a0, 0\n")
	out.WriteString("\tecall\n")
	out.WriteString(runtimeRoutines)
	out.WriteString(".section .data\n")
	out.WriteString(e.static.String())
	out.WriteString(e.heap.String())
	return out.String()
}

func (e *Emitter) genBlock(tree *ast.Tree, idx ast.NodeIndex) {
	block := tree.At(idx)
	for _, stmt := range block.Children {
		e.genStatement(tree, stmt)
	}
}

func (e *Emitter) genStatement(tree *ast.Tree, idx ast.NodeIndex) {
	n := tree.At(idx)
	switch n.Kind {
	case ast.KindVarDecl:
		e.genVarDecl(tree, n)
	case ast.KindAssign:
		e.genAssign(tree, n)
	case ast.KindPrint:
		e.genPrint(tree, n)
	case ast.KindWhile:
		e.genWhile(tree, n)
	case ast.KindIf:
		e.genIf(tree, n)
	case ast.KindBlock:
		e.genBlock(tree, idx)
	default:
		panic("codegenriscv: unexpected statement kind " + n.Kind.String())
	}
}

func (e *Emitter) genVarDecl(tree *ast.Tree, n ast.Node) {
	typeTok := tree.At(n.Children[0]).Token
	idTok := tree.At(n.Children[1]).Token
	label := idTok.Text + "_scope"
	if e.staticDecl[label] {
		return
	}
	e.staticDecl[label] = true
	if typeTok.Keyword == token.StringType {
		e.static.WriteString(label + ": .word 0\n")
	} else {
		e.static.WriteString(label + ": .byte 0\n")
	}
}

func (e *Emitter) genAssign(tree *ast.Tree, n ast.Node) {
	valueIdx := n.Children[0]
	idTok := tree.At(n.Children[1]).Token
	label := idTok.Text + "_scope"

	ty := e.result.Types[valueIdx]
	e.genExprToT0(tree, valueIdx)
	e.code.WriteString("\tla t1, " + label + "\n")
	if ty == symboltable.String {
		e.code.WriteString("\tsw t0, 0(t1)\n")
	} else {
		e.code.WriteString("\tsb t0, 0(t1)\n")
	}
}

func (e *Emitter) genPrint(tree *ast.Tree, n ast.Node) {
	exprIdx := n.Children[0]
	ty := e.result.Types[exprIdx]

	e.genExprToT0(tree, exprIdx)
	switch ty {
	case symboltable.Int:
		e.code.WriteString("\tmv a0, t0\n")
		e.code.WriteString("\tcall print_int\n")
	case symboltable.Boolean:
		e.code.WriteString("\tmv a0, t0\n")
		e.code.WriteString("\tcall print_boolean\n")
	case symboltable.String:
		e.code.WriteString("\tmv a0, t0\n")
		e.code.WriteString("\tcall print_string\n")
	}
}

func (e *Emitter) genWhile(tree *ast.Tree, n ast.Node) {
	start := e.newLabel("while_start")
	end := e.newLabel("while_end")

	e.code.WriteString(start + ":\n")
	e.genExprToT0(tree, n.Children[1])
	e.code.WriteString("\tbeqz t0, " + end + "\n")
	e.genBlock(tree, n.Children[0])
	e.code.WriteString("\tj " + start + "\n")
	e.code.WriteString(end + ":\n")
}

func (e *Emitter) genIf(tree *ast.Tree, n ast.Node) {
	end := e.newLabel("if_end")

	e.genExprToT0(tree, n.Children[1])
	e.code.WriteString("\tbeqz t0, " + end + "\n")
	e.genBlock(tree, n.Children[0])
	e.code.WriteString(end + ":\n")
}

// genExprToT0 evaluates idx and leaves its value in t0.
func (e *Emitter) genExprToT0(tree *ast.Tree, idx ast.NodeIndex) {
	n := tree.At(idx)
	switch n.Kind {
	case ast.KindLeaf:
		e.genLeafToT0(tree, n)
	case ast.KindAdd:
		e.genAdd(tree, n)
	case ast.KindIsEq:
		e.genCompare(tree, n, "seqz")
	case ast.KindNotEq:
		e.genCompare(tree, n, "snez")
	default:
		panic("codegenriscv: unexpected expression kind " + n.Kind.String())
	}
}

func (e *Emitter) genLeafToT0(tree *ast.Tree, n ast.Node) {
	tok := n.Token
	switch tok.Kind {
	case token.KindDigit:
		e.code.WriteString("\tli t0, " + strconv.Itoa(int(tok.Digit)) + "\n")
	case token.KindKeyword:
		if tok.Text == "true" {
			e.code.WriteString("\tli t0, 1\n")
		} else {
			e.code.WriteString("\tli t0, 0\n")
		}
	case token.KindIdentifier:
		label := tok.Text + "_scope"
		ty := e.result.Symbols.Resolve(tok.Text)
		e.code.WriteString("\tla t1, " + label + "\n")
		if ty != nil && ty.Type == symboltable.String {
			e.code.WriteString("\tlwu t0, 0(t1)\n")
		} else {
			e.code.WriteString("\tlbu t0, 0(t1)\n")
		}
	case token.KindChar:
		label := e.internString(tok.Text)
		e.code.WriteString("\tla t0, " + label + "\n")
	default:
		panic("codegenriscv: unexpected leaf token kind in expression")
	}
}

func (e *Emitter) genAdd(tree *ast.Tree, n ast.Node) {
	e.genExprToT0(tree, n.Children[0])
	e.code.WriteString("\tmv t2, t0\n")
	digitTok := tree.At(n.Children[1]).Token
	e.code.WriteString("\tli t0, " + strconv.Itoa(int(digitTok.Digit)) + "\n")
	e.code.WriteString("\tadd t0, t0, t2\n")
}

func (e *Emitter) genCompare(tree *ast.Tree, n ast.Node, setInstr string) {
	e.genExprToT0(tree, n.Children[1])
	e.code.WriteString("\tmv t2, t0\n")
	e.genExprToT0(tree, n.Children[0])
	e.code.WriteString("\txor t0, t0, t2\n")
	e.code.WriteString("\t" + setInstr + " t0, t0\n")
}

func (e *Emitter) internString(s string) string {
	if label, ok := e.stringLbl[s]; ok {
		return label
	}
	label := "string_" + strconv.Itoa(e.nextString)
	e.nextString++
	e.stringLbl[s] = label
	e.heap.WriteString(label + ": .half " + strconv.Itoa(len(s)) + "\n\t.ascii \"" + s + "\"\n")
	return label
}

func (e *Emitter) newLabel(prefix string) string {
	e.labelCounter++
	return prefix + "_" + strconv.Itoa(e.labelCounter)
}

const runtimeRoutines = `
print_int:
	li t3, 100
	div t4, a0, t3
	rem t5, a0, t3
	addi a1, t4, '0'
	jal t6, putc
	li t3, 10
	div t4, t5, t3
	rem t5, t5, t3
	addi a1, t4, '0'
	jal t6, putc
	addi a1, t5, '0'
	jal t6, putc
	ret

print_string:
	lhu a2, 0(a0)
	addi a1, a0, 2
	li a0, 1
	li a7, 64
	ecall
	ret

print_boolean:
	beqz a0, print_boolean_false
	la a0, string_1
	j print_string
print_boolean_false:
	la a0, string_0
	j print_string

putc:
	la t0, scratch_byte
	sb a1, 0(t0)
	li a0, 1
	mv a1, t0
	li a2, 1
	li a7, 64
	ecall
	jr t6
`
