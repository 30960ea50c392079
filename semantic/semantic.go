// Package semantic implements the semantic analyzer (component C6): a
// single depth-first walk over an ast.Tree that opens and closes scopes
// around every Block, declares variables, resolves identifier
// references, checks type compatibility, and marks the Initialized/Used
// flags the symbol table's post-pass warnings depend on.
package semantic

import (
	"strconv"

	"github.com/skx/nexus-compiler/ast"
	"github.com/skx/nexus-compiler/diagnostics"
	"github.com/skx/nexus-compiler/symboltable"
	"github.com/skx/nexus-compiler/token"
)

// Result is everything code generation needs from a successful analysis:
// the scope tree (for declaration order and entries) and the type each
// expression node was resolved to.
type Result struct {
	Symbols *symboltable.Table
	Types   map[ast.NodeIndex]symboltable.Type
}

// Analyzer runs one DFS pass per Analyze call.
type Analyzer struct {
	sink *diagnostics.Sink
}

// New creates an Analyzer that reports to sink.
func New(sink *diagnostics.Sink) *Analyzer {
	return &Analyzer{sink: sink}
}

// Analyze walks tree, returning the resolved Result and whether analysis
// succeeded (no errors were logged). On failure the Result is partial;
// callers must skip code generation rather than trust it.
func (a *Analyzer) Analyze(tree *ast.Tree) (*Result, bool) {
	w := &walker{tree: tree, sink: a.sink, symbols: symboltable.New(), types: make(map[ast.NodeIndex]symboltable.Type)}
	w.walkStatements(tree.Root)

	for _, warn := range w.symbols.Warnings() {
		a.sink.Log(diagnostics.Warning, diagnostics.SemanticAnalyzer, posMsg(warn.Position, warn.Message))
	}

	return &Result{Symbols: w.symbols, Types: w.types}, !w.hadError
}

type walker struct {
	tree    *ast.Tree
	sink    *diagnostics.Sink
	symbols *symboltable.Table
	types   map[ast.NodeIndex]symboltable.Type
	hadError bool
}

func (w *walker) walkStatements(blockIdx ast.NodeIndex) {
	block := w.tree.At(blockIdx)
	for _, stmt := range block.Children {
		w.walkStatement(stmt)
	}
}

func (w *walker) walkStatement(idx ast.NodeIndex) {
	n := w.tree.At(idx)
	switch n.Kind {
	case ast.KindVarDecl:
		w.walkVarDecl(n)
	case ast.KindAssign:
		w.walkAssign(n)
	case ast.KindPrint:
		w.walkExpr(n.Children[0])
	case ast.KindWhile:
		w.walkWhileOrIf(n)
	case ast.KindIf:
		w.walkWhileOrIf(n)
	case ast.KindBlock:
		w.symbols.OpenScope()
		w.walkStatements(idx)
		w.symbols.CloseScope()
	default:
		panic("semantic: unexpected statement kind " + n.Kind.String())
	}
}

func (w *walker) walkVarDecl(n ast.Node) {
	typeTok := w.tree.At(n.Children[0]).Token
	idTok := w.tree.At(n.Children[1]).Token

	ty, ok := declaredType(typeTok.Keyword)
	if !ok {
		panic("semantic: VarDecl type token is not a type keyword")
	}
	if !w.symbols.Declare(idTok.Text, ty, idTok.Position) {
		w.errorfAt(idTok.Position, idTok.Text+" is already declared in this scope")
	}
}

func declaredType(kw token.Keyword) (symboltable.Type, bool) {
	switch kw {
	case token.IntType:
		return symboltable.Int, true
	case token.StringType:
		return symboltable.String, true
	case token.BooleanType:
		return symboltable.Boolean, true
	default:
		return 0, false
	}
}

func (w *walker) walkAssign(n ast.Node) {
	valueIdx := n.Children[0]
	idTok := w.tree.At(n.Children[1]).Token

	valTy, ok := w.walkExpr(valueIdx)

	entry := w.symbols.Resolve(idTok.Text)
	if entry == nil {
		w.errorfAt(idTok.Position, idTok.Text+" is not declared")
		return
	}
	if !ok {
		return
	}
	if valTy != entry.Type {
		w.errorfAt(idTok.Position, "cannot assign "+valTy.String()+" to "+idTok.Text+" declared as "+entry.Type.String())
		return
	}
	w.symbols.Mark(idTok.Text, symboltable.Initialized)
}

func (w *walker) walkWhileOrIf(n ast.Node) {
	blockIdx := n.Children[0]
	boolExprIdx := n.Children[1]

	ty, ok := w.walkExpr(boolExprIdx)
	if ok && ty != symboltable.Boolean {
		w.errorfAt(w.positionOf(boolExprIdx), "condition must be boolean, found "+ty.String())
	}

	w.symbols.OpenScope()
	w.walkStatements(blockIdx)
	w.symbols.CloseScope()
}

// walkExpr resolves idx's type, recording it in w.types on success, and
// reports a diagnostic the first time a problem is found beneath idx.
func (w *walker) walkExpr(idx ast.NodeIndex) (symboltable.Type, bool) {
	n := w.tree.At(idx)
	switch n.Kind {
	case ast.KindLeaf:
		return w.walkLeaf(idx, n)
	case ast.KindAdd:
		return w.walkAdd(idx, n)
	case ast.KindIsEq:
		return w.walkCompare(idx, n)
	case ast.KindNotEq:
		return w.walkCompare(idx, n)
	default:
		panic("semantic: unexpected expression kind " + n.Kind.String())
	}
}

func (w *walker) walkLeaf(idx ast.NodeIndex, n ast.Node) (symboltable.Type, bool) {
	tok := n.Token
	switch tok.Kind {
	case token.KindDigit:
		return w.remember(idx, symboltable.Int), true
	case token.KindChar:
		return w.remember(idx, symboltable.String), true
	case token.KindKeyword: // true or false
		return w.remember(idx, symboltable.Boolean), true
	case token.KindIdentifier:
		entry := w.symbols.Resolve(tok.Text)
		if entry == nil {
			w.errorfAt(tok.Position, tok.Text+" is not declared")
			return 0, false
		}
		w.symbols.Mark(tok.Text, symboltable.Used)
		return w.remember(idx, entry.Type), true
	default:
		panic("semantic: unexpected leaf token kind " + tok.Kind.String())
	}
}

func (w *walker) walkAdd(idx ast.NodeIndex, n ast.Node) (symboltable.Type, bool) {
	rightTy, rok := w.walkExpr(n.Children[0])
	leftTy, lok := w.walkExpr(n.Children[1])
	if !rok || !lok {
		return 0, false
	}
	if rightTy != symboltable.Int || leftTy != symboltable.Int {
		w.errorfAt(w.positionOf(idx), "operands of + must both be int")
		return 0, false
	}
	return w.remember(idx, symboltable.Int), true
}

func (w *walker) walkCompare(idx ast.NodeIndex, n ast.Node) (symboltable.Type, bool) {
	rightTy, rok := w.walkExpr(n.Children[0])
	leftTy, lok := w.walkExpr(n.Children[1])
	if !rok || !lok {
		return 0, false
	}
	if rightTy != leftTy {
		w.errorfAt(w.positionOf(idx), "operands of == or != must have matching types, found "+leftTy.String()+" and "+rightTy.String())
		return 0, false
	}
	return w.remember(idx, symboltable.Boolean), true
}

func (w *walker) remember(idx ast.NodeIndex, ty symboltable.Type) symboltable.Type {
	w.types[idx] = ty
	return ty
}

// positionOf finds a representative source position for idx, by
// descending to its first leaf. Used only for diagnostics anchored on
// interior nodes (Add, IsEq/NotEq, a boolean condition) that have no
// token of their own.
func (w *walker) positionOf(idx ast.NodeIndex) token.Position {
	n := w.tree.At(idx)
	for n.Kind != ast.KindLeaf {
		n = w.tree.At(n.Children[0])
	}
	return n.Token.Position
}

func (w *walker) errorfAt(pos token.Position, msg string) {
	w.hadError = true
	w.sink.Log(diagnostics.Error, diagnostics.SemanticAnalyzer, posMsg(pos, msg))
}

func posMsg(pos token.Position, msg string) string {
	return msg + " at " + strconv.Itoa(pos.Line) + ":" + strconv.Itoa(pos.Column)
}
