// Package codegen6502 implements the 6502-style byte emitter (component
// C7): a single 256-byte image built by laying code upward from address
// 0x00 and the heap downward from 0xFF, with a static variable table
// appended directly after the code and temp slots carved out of the
// heap's low end during expression evaluation. Every address that isn't
// known until the whole program has been emitted is written as a
// placeholder cell and backpatched once Finalize is called.
package codegen6502

import (
	"github.com/juju/errors"

	"github.com/skx/nexus-compiler/ast"
	"github.com/skx/nexus-compiler/diagnostics"
	"github.com/skx/nexus-compiler/semantic"
	"github.com/skx/nexus-compiler/symboltable"
	"github.com/skx/nexus-compiler/token"
)

const imageSize = 256

// reservedZero is the address the instruction contract guarantees always
// holds 0x00, for "compare to zero" and "guaranteed branch taken" tricks.
const reservedZero = 0xFF

// ErrCollision is returned when the static/code region would overlap the
// temp/heap region.
var ErrCollision = errors.New("stack/heap collision")

type cellKind int

const (
	cellEmpty cellKind = iota
	cellCode
	cellVar
	cellTemp
	cellJump
	cellHighOrderByte
)

type cell struct {
	kind cellKind
	val  byte
	ref  int
}

// Image is the finalized, fully-resolved 256-byte output.
type Image [imageSize]byte

// Emitter builds one Image for one program's AST.
type Emitter struct {
	sink    *diagnostics.Sink
	result  *semantic.Result
	cells   [imageSize]cell
	codeLen int

	statics   []string
	staticIdx map[string]int

	heapPtr    int
	stringAddr map[string]int

	curTemp int

	failed bool
}

// New creates an Emitter reporting to sink, using result for variable
// declaration order and each expression node's resolved type. The
// boolean literals "true" and "false" are pre-interned immediately.
func New(sink *diagnostics.Sink, result *semantic.Result) *Emitter {
	e := &Emitter{
		sink:       sink,
		result:     result,
		staticIdx:  make(map[string]int),
		heapPtr:    reservedZero - 1,
		stringAddr: make(map[string]int),
	}
	e.internString("false")
	e.internString("true")
	return e
}

// Emit lowers the root Block of tree into the image, appends a trailing
// halt, and finalizes. It returns an error (already logged to the sink)
// if a collision occurred anywhere during emission.
func (e *Emitter) Emit(tree *ast.Tree) (Image, error) {
	e.genBlock(tree, tree.Root)
	e.emitCodeByte(0x00) // halt
	if e.failed {
		return Image{}, errors.Trace(ErrCollision)
	}
	return e.finalize(), nil
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
		panic("codegen6502: unexpected statement kind " + n.Kind.String())
	}
}

func (e *Emitter) genVarDecl(tree *ast.Tree, n ast.Node) {
	typeTok := tree.At(n.Children[0]).Token
	idTok := tree.At(n.Children[1]).Token
	slot := e.allocStatic(idTok.Text)

	if typeTok.Keyword == token.StringType {
		return
	}
	e.emitCodeByte(0xA9)
	e.emitCodeByte(0x00)
	e.emitCodeByte(0x8D)
	e.emitVarPlaceholder(slot)
	e.emitHighOrderByte()
}

func (e *Emitter) genAssign(tree *ast.Tree, n ast.Node) {
	valueIdx := n.Children[0]
	idTok := tree.At(n.Children[1]).Token
	slot := e.staticIdx[idTok.Text]

	e.genExprToA(tree, valueIdx)
	e.emitCodeByte(0x8D)
	e.emitVarPlaceholder(slot)
	e.emitHighOrderByte()
}

func (e *Emitter) genPrint(tree *ast.Tree, n ast.Node) {
	exprIdx := n.Children[0]
	ty := e.result.Types[exprIdx]

	switch ty {
	case symboltable.Int:
		e.genExprToA(tree, exprIdx)
		e.emitCodeByte(0xA0)
		e.emitCodeByte(0x01) // Y=1: integer in A
		e.emitCodeByte(0xFF)
	case symboltable.Boolean:
		e.genExprToA(tree, exprIdx) // A = 0 or 1
		e.boolToStringAddrInX()
		e.emitCodeByte(0xA0)
		e.emitCodeByte(0x02) // Y=2: zero-terminated string at X
		e.emitCodeByte(0xFF)
	case symboltable.String:
		e.genStringAddrToX(tree, exprIdx)
		e.emitCodeByte(0xA0)
		e.emitCodeByte(0x02)
		e.emitCodeByte(0xFF)
	}
}

// boolToStringAddrInX converts the 0/1 already sitting in A into the
// address of the matching interned "false"/"true" literal, leaving it in
// X ready for the Y=2 print convention. Booleans are pre-interned at
// construction, so the addresses are already known.
func (e *Emitter) boolToStringAddrInX() {
	falseAddr := e.stringAddr["false"]
	trueAddr := e.stringAddr["true"]

	// X = address of "false"; if A (Z-testable by comparing its stashed
	// copy against X=1) is nonzero, overwrite X with the address of "true".
	t := e.allocTemp()
	e.emitCodeByte(0x8D) // stash A so the compare can read it from memory
	e.emitTempPlaceholder(t)
	e.emitHighOrderByte()
	e.emitCodeByte(0xA2)
	e.emitCodeByte(0x01)
	e.emitCodeByte(0xEC)
	e.emitTempPlaceholder(t)
	e.emitHighOrderByte()
	e.emitCodeByte(0xA2)
	e.emitCodeByte(byte(falseAddr))
	jmp := e.emitJumpPlaceholder() // D0 nn: branch if Z=0 (A was 0, i.e. false)
	e.patchJumpHere(jmp, 2)
	e.emitCodeByte(0xA2)
	e.emitCodeByte(byte(trueAddr))
	e.freeTemp()
}

func (e *Emitter) genStringAddrToX(tree *ast.Tree, idx ast.NodeIndex) {
	leaf := tree.At(idx)
	if leaf.Kind == ast.KindLeaf && leaf.Token.Kind == token.KindChar {
		addr := e.internString(leaf.Token.Text)
		e.emitCodeByte(0xA2)
		e.emitCodeByte(byte(addr))
		return
	}
	// identifier holding a previously-assigned string address
	idTok := leaf.Token
	slot := e.staticIdx[idTok.Text]
	e.emitCodeByte(0xAE)
	e.emitVarPlaceholder(slot)
	e.emitHighOrderByte()
}

func (e *Emitter) genWhile(tree *ast.Tree, n ast.Node) {
	loopStart := e.codeLen
	boolIdx := n.Children[1]
	e.genCondition(tree, boolIdx)
	exitJump := e.emitJumpPlaceholder()

	e.genBlock(tree, n.Children[0])

	e.emitCodeByte(0xA2)
	e.emitCodeByte(0x01)
	e.emitCodeByte(0xEC)
	e.emitCodeByte(reservedZero)
	e.emitCodeByte(0x00)
	backJump := e.emitJumpPlaceholder()
	e.patchJumpTo(backJump, loopStart)

	e.patchJumpHere(exitJump, 0)
}

func (e *Emitter) genIf(tree *ast.Tree, n ast.Node) {
	boolIdx := n.Children[1]
	if isLiteralFalse(tree, boolIdx) {
		return
	}

	e.genCondition(tree, boolIdx)
	exitJump := e.emitJumpPlaceholder()

	e.genBlock(tree, n.Children[0])

	e.patchJumpHere(exitJump, 0)
}

// isLiteralFalse reports whether idx is the bare keyword literal "false",
// letting genIf skip the body entirely at compile time instead of
// emitting a condition that can never be taken.
func isLiteralFalse(tree *ast.Tree, idx ast.NodeIndex) bool {
	n := tree.At(idx)
	return n.Kind == ast.KindLeaf && n.Token.Kind == token.KindKeyword && n.Token.Text == "false"
}

// genCondition evaluates idx so the D0 that follows branches correctly:
// Z=1 when the condition is true, Z=0 when it is false. It stops right
// after the compare's own EC, unlike genExprToA, which goes on to
// materialize the result into A for callers that need a value rather
// than a flag.
func (e *Emitter) genCondition(tree *ast.Tree, idx ast.NodeIndex) {
	n := tree.At(idx)
	switch n.Kind {
	case ast.KindLeaf: // bare true/false
		x := byte(0)
		if n.Token.Text == "false" {
			x = 1
		}
		e.emitCodeByte(0xA2)
		e.emitCodeByte(x)
		e.emitCodeByte(0xEC)
		e.emitCodeByte(reservedZero)
		e.emitCodeByte(0x00)
	case ast.KindIsEq:
		e.genCompareFlagOnly(tree, n, false)
	case ast.KindNotEq:
		e.genCompareFlagOnly(tree, n, true)
	default:
		panic("codegen6502: unexpected condition kind " + n.Kind.String())
	}
}

// genExprToA evaluates idx into the accumulator, for any type.
func (e *Emitter) genExprToA(tree *ast.Tree, idx ast.NodeIndex) {
	n := tree.At(idx)
	switch n.Kind {
	case ast.KindLeaf:
		e.genLeafToA(tree, n)
	case ast.KindAdd:
		e.genAdd(tree, n)
	case ast.KindIsEq:
		e.genCompare(tree, n, false)
	case ast.KindNotEq:
		e.genCompare(tree, n, true)
	default:
		panic("codegen6502: unexpected expression kind " + n.Kind.String())
	}
}

func (e *Emitter) genLeafToA(tree *ast.Tree, n ast.Node) {
	tok := n.Token
	switch tok.Kind {
	case token.KindDigit:
		e.emitCodeByte(0xA9)
		e.emitCodeByte(tok.Digit)
	case token.KindKeyword: // true / false literal
		e.emitCodeByte(0xA9)
		if tok.Text == "true" {
			e.emitCodeByte(0x01)
		} else {
			e.emitCodeByte(0x00)
		}
	case token.KindIdentifier:
		slot := e.staticIdx[tok.Text]
		e.emitCodeByte(0xAD)
		e.emitVarPlaceholder(slot)
		e.emitHighOrderByte()
	case token.KindChar: // string literal: its interned heap address
		addr := e.internString(tok.Text)
		e.emitCodeByte(0xA9)
		e.emitCodeByte(byte(addr))
	default:
		panic("codegen6502: unexpected leaf token kind in expression")
	}
}

func (e *Emitter) genAdd(tree *ast.Tree, n ast.Node) {
	// right subtree first, into A
	e.genExprToA(tree, n.Children[0])
	t := e.allocTemp()
	e.emitCodeByte(0x8D)
	e.emitTempPlaceholder(t)
	e.emitHighOrderByte()

	// left operand is always a bare Digit (enforced by the parser)
	digitTok := tree.At(n.Children[1]).Token
	e.emitCodeByte(0xA9)
	e.emitCodeByte(digitTok.Digit)

	e.emitCodeByte(0x6D)
	e.emitTempPlaceholder(t)
	e.emitHighOrderByte()
	e.freeTemp()
}

func (e *Emitter) genCompare(tree *ast.Tree, n ast.Node, notEqual bool) {
	e.genCompareFlagOnly(tree, n, notEqual)
	e.zIntoA()
}

// genCompareFlagOnly emits a comparison's left/right evaluation, the EC
// that sets Z, and (for !=) the invert sequence, stopping short of
// zIntoA so a branch-only caller doesn't pay for a conversion it
// doesn't need.
func (e *Emitter) genCompareFlagOnly(tree *ast.Tree, n ast.Node, notEqual bool) {
	// left -> A -> Temp(L)
	e.genExprToA(tree, n.Children[1])
	left := e.allocTemp()
	e.emitCodeByte(0x8D)
	e.emitTempPlaceholder(left)
	e.emitHighOrderByte()

	// right -> X
	e.genOperandToX(tree, n.Children[0])

	e.emitCodeByte(0xEC)
	e.emitTempPlaceholder(left)
	e.emitHighOrderByte()
	e.freeTemp()

	if notEqual {
		e.invertZToNotEqual()
	}
}

// genOperandToX loads idx's value into X: a digit or boolean literal
// loads as a constant, an identifier loads from memory, and any other
// expression is evaluated into A first and relayed through a temp.
func (e *Emitter) genOperandToX(tree *ast.Tree, idx ast.NodeIndex) {
	n := tree.At(idx)
	if n.Kind == ast.KindLeaf {
		switch n.Token.Kind {
		case token.KindDigit:
			e.emitCodeByte(0xA2)
			e.emitCodeByte(n.Token.Digit)
			return
		case token.KindKeyword:
			e.emitCodeByte(0xA2)
			if n.Token.Text == "true" {
				e.emitCodeByte(0x01)
			} else {
				e.emitCodeByte(0x00)
			}
			return
		case token.KindIdentifier:
			slot := e.staticIdx[n.Token.Text]
			e.emitCodeByte(0xAE)
			e.emitVarPlaceholder(slot)
			e.emitHighOrderByte()
			return
		}
	}
	e.genExprToA(tree, idx)
	t := e.allocTemp()
	e.emitCodeByte(0x8D)
	e.emitTempPlaceholder(t)
	e.emitHighOrderByte()
	e.emitCodeByte(0xAE)
	e.emitTempPlaceholder(t)
	e.emitHighOrderByte()
	e.freeTemp()
}

// invertZToNotEqual flips the equality flag left by the preceding EC:
// X is set to 0 when the original compare was "not equal" and to 1 when
// it was "equal", then compared against the reserved always-zero byte so
// the resulting Z is 1 exactly when the original values were unequal.
func (e *Emitter) invertZToNotEqual() {
	e.emitCodeByte(0xA2)
	e.emitCodeByte(0x00)
	jmp := e.emitJumpPlaceholder() // D0 nn: taken when Z=0 (not equal)
	e.emitCodeByte(0xA2)
	e.emitCodeByte(0x01)
	e.patchJumpHere(jmp, 0)
	e.emitCodeByte(0xEC)
	e.emitCodeByte(reservedZero)
	e.emitCodeByte(0x00)
}

// zIntoA materializes the current Z flag as 0 or 1 in A.
func (e *Emitter) zIntoA() {
	e.emitCodeByte(0xA9)
	e.emitCodeByte(0x00)
	e.emitCodeByte(0xD0)
	e.emitCodeByte(0x02)
	e.emitCodeByte(0xA9)
	e.emitCodeByte(0x01)
}

func (e *Emitter) allocStatic(name string) int {
	slot := len(e.statics)
	e.statics = append(e.statics, name)
	e.staticIdx[name] = slot
	return slot
}

func (e *Emitter) internString(s string) int {
	if addr, ok := e.stringAddr[s]; ok {
		return addr
	}
	e.heapPtr -= len(s) + 1
	addr := e.heapPtr + 1
	e.stringAddr[s] = addr
	e.checkCollision()
	return addr
}

func (e *Emitter) allocTemp() int {
	e.curTemp++
	e.checkCollision()
	return e.curTemp
}

func (e *Emitter) freeTemp() {
	e.curTemp--
}

func (e *Emitter) checkCollision() {
	if e.failed {
		return
	}
	if e.codeLen+len(e.statics) > e.heapPtr-e.curTemp {
		e.failed = true
		e.sink.Log(diagnostics.Error, diagnostics.CodeGenerator, "stack/heap collision: code+static would overlap temp+heap")
	}
}

func (e *Emitter) emitCodeByte(b byte) {
	e.checkCollision()
	if e.failed || e.codeLen >= imageSize {
		e.failed = true
		return
	}
	e.cells[e.codeLen] = cell{kind: cellCode, val: b}
	e.codeLen++
}

func (e *Emitter) emitVarPlaceholder(slot int) {
	e.checkCollision()
	if e.failed {
		return
	}
	e.cells[e.codeLen] = cell{kind: cellVar, ref: slot}
	e.codeLen++
}

func (e *Emitter) emitTempPlaceholder(slot int) {
	e.checkCollision()
	if e.failed {
		return
	}
	e.cells[e.codeLen] = cell{kind: cellTemp, ref: slot}
	e.codeLen++
}

func (e *Emitter) emitHighOrderByte() {
	e.checkCollision()
	if e.failed {
		return
	}
	e.cells[e.codeLen] = cell{kind: cellHighOrderByte}
	e.codeLen++
}

// emitJumpPlaceholder reserves one byte for a D0 branch distance and
// returns its cell index for a later patch call.
func (e *Emitter) emitJumpPlaceholder() int {
	e.checkCollision()
	e.emitCodeByte(0xD0)
	idx := e.codeLen
	if e.failed {
		return idx
	}
	e.cells[e.codeLen] = cell{kind: cellJump}
	e.codeLen++
	return idx
}

// patchJumpHere resolves a forward jump to land `extra` bytes past the
// current code position (used when a few more fixed bytes still follow
// before the real target).
func (e *Emitter) patchJumpHere(idx int, extra int) {
	dist := e.codeLen - (idx + 1) + extra
	e.cells[idx] = cell{kind: cellCode, val: byte(dist)}
}

// patchJumpTo resolves a backward jump to land at targetCodeLen.
func (e *Emitter) patchJumpTo(idx int, targetCodeLen int) {
	dist := targetCodeLen - (idx + 1)
	e.cells[idx] = cell{kind: cellCode, val: byte(int8(dist))}
}

// finalize resolves every Var/Temp/HighOrderByte placeholder against the
// final code length and heap pointer, writes each interned string with
// its trailing 0x00 at its heap address, and zero-fills the unused
// middle of the image.
func (e *Emitter) finalize() Image {
	var img Image
	staticBase := e.codeLen

	for s, addr := range e.stringAddr {
		copy(img[addr:], s)
	}

	for i := 0; i < e.codeLen; i++ {
		c := e.cells[i]
		switch c.kind {
		case cellCode:
			img[i] = c.val
		case cellVar:
			img[i] = byte(staticBase + c.ref)
		case cellTemp:
			img[i] = byte(e.heapPtr - c.ref)
		case cellHighOrderByte:
			img[i] = 0x00
		}
	}
	img[reservedZero] = 0x00
	return img
}
