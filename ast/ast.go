// Package ast implements the AST Builder (component C4): it turns a
// cst.Tree into a normalized Abstract Syntax Tree whose interior-node
// kinds are a strict subset of the concrete grammar's nonterminals, and
// whose string literals are a single coalesced Char leaf rather than a
// chain of one-character CharList cells.
package ast

import (
	"github.com/skx/nexus-compiler/cst"
	"github.com/skx/nexus-compiler/token"
)

// NodeIndex addresses a Node within a Tree's arena.
type NodeIndex int

// Kind is one of the nine permitted interior shapes, plus Leaf for a
// wrapped terminal (an identifier reference, a lone digit, a coalesced
// string body, or a boolean literal keyword).
type Kind int

const (
	KindBlock Kind = iota
	KindVarDecl
	KindAssign
	KindPrint
	KindWhile
	KindIf
	KindAdd
	KindIsEq
	KindNotEq
	KindLeaf
)

func (k Kind) String() string {
	switch k {
	case KindBlock:
		return "Block"
	case KindVarDecl:
		return "VarDecl"
	case KindAssign:
		return "Assign"
	case KindPrint:
		return "Print"
	case KindWhile:
		return "While"
	case KindIf:
		return "If"
	case KindAdd:
		return "Add"
	case KindIsEq:
		return "IsEq"
	case KindNotEq:
		return "NotEq"
	case KindLeaf:
		return "Leaf"
	default:
		return "?"
	}
}

// Node is one AST node. Children order is significant and kind-specific
// (see the package-level Build doc): for KindLeaf, Token is the wrapped
// terminal and Children is always empty.
type Node struct {
	Kind     Kind
	Children []NodeIndex
	Token    token.Token
}

// Tree is the arena owning every Node produced while lowering one
// program's CST.
type Tree struct {
	Nodes []Node
	Root  NodeIndex
}

func (t *Tree) addLeaf(tok token.Token) NodeIndex {
	t.Nodes = append(t.Nodes, Node{Kind: KindLeaf, Token: tok})
	return NodeIndex(len(t.Nodes) - 1)
}

func (t *Tree) addNode(kind Kind, children ...NodeIndex) NodeIndex {
	t.Nodes = append(t.Nodes, Node{Kind: kind, Children: children})
	return NodeIndex(len(t.Nodes) - 1)
}

// At returns the Node addressed by idx.
func (t *Tree) At(idx NodeIndex) Node {
	return t.Nodes[idx]
}

// Build lowers a parsed cst.Tree into an ast.Tree. The CST's Program and
// its trailing $ leaf are dropped; the AST root is the top Block.
//
// Child ordering, following spec:
//   - VarDecl:      [Type-Token, Id-Token]
//   - Assign:       [Value-Node, Id-Token]
//   - Add:          [Right-Node, Left-Digit-Token]   (right-recursive)
//   - IsEq/NotEq:   [Right-Expr, Left-Expr]
//   - Print:        [Expr]
//   - While/If:     [Block, BoolExpr]
func Build(c *cst.Tree) *Tree {
	b := &builder{cst: c, ast: &Tree{}}
	program := c.At(c.Root)
	blockIdx := program.Children[0]
	b.ast.Root = b.buildBlock(blockIdx)
	return b.ast
}

type builder struct {
	cst *cst.Tree
	ast *Tree
}

func (b *builder) buildBlock(idx cst.NodeIndex) NodeIndex {
	block := b.cst.At(idx)
	stmtsIdx := block.Children[1]
	var children []NodeIndex
	for {
		list := b.cst.At(stmtsIdx)
		if len(list.Children) == 0 {
			break
		}
		stmt := b.cst.At(list.Children[0])
		children = append(children, b.buildStatement(stmt))
		stmtsIdx = list.Children[1]
	}
	return b.ast.addNode(KindBlock, children...)
}

func (b *builder) buildStatement(stmt cst.Node) NodeIndex {
	inner := b.cst.At(stmt.Children[0])
	switch inner.Kind {
	case cst.KindPrint:
		return b.buildPrint(inner)
	case cst.KindAssign:
		return b.buildAssign(inner)
	case cst.KindVarDecl:
		return b.buildVarDecl(inner)
	case cst.KindWhile:
		return b.buildWhileOrIf(inner, true)
	case cst.KindIf:
		return b.buildWhileOrIf(inner, false)
	case cst.KindBlock:
		return b.buildBlock(stmt.Children[0])
	default:
		panic("ast: unexpected statement child kind " + inner.Kind.String())
	}
}

func (b *builder) buildVarDecl(n cst.Node) NodeIndex {
	typeTok := b.cst.At(n.Children[0]).Token
	idTok := b.cst.At(n.Children[1]).Token
	return b.ast.addNode(KindVarDecl, b.ast.addLeaf(typeTok), b.ast.addLeaf(idTok))
}

func (b *builder) buildAssign(n cst.Node) NodeIndex {
	idTok := b.cst.At(n.Children[0]).Token
	value := b.buildExpr(n.Children[2])
	return b.ast.addNode(KindAssign, value, b.ast.addLeaf(idTok))
}

func (b *builder) buildPrint(n cst.Node) NodeIndex {
	value := b.buildExpr(n.Children[2])
	return b.ast.addNode(KindPrint, value)
}

func (b *builder) buildWhileOrIf(n cst.Node, isWhile bool) NodeIndex {
	boolExpr := b.buildBoolExpr(n.Children[1])
	block := b.buildBlock(n.Children[2])
	if isWhile {
		return b.ast.addNode(KindWhile, block, boolExpr)
	}
	return b.ast.addNode(KindIf, block, boolExpr)
}

// buildExpr lowers a cst.KindExpr node (or, for BoolExpr operands which
// are themselves CST Expr nodes, the same shape) into its single AST
// node.
func (b *builder) buildExpr(idx cst.NodeIndex) NodeIndex {
	expr := b.cst.At(idx)
	inner := b.cst.At(expr.Children[0])

	switch inner.Kind {
	case cst.KindLeaf:
		return b.ast.addLeaf(inner.Token)
	case cst.KindIntExpr:
		return b.buildIntExpr(expr.Children[0])
	case cst.KindStringExpr:
		return b.buildStringExpr(expr.Children[0])
	case cst.KindBoolExpr:
		return b.buildBoolExpr(expr.Children[0])
	default:
		panic("ast: unexpected Expr child kind " + inner.Kind.String())
	}
}

func (b *builder) buildIntExpr(idx cst.NodeIndex) NodeIndex {
	n := b.cst.At(idx)
	digitTok := b.cst.At(n.Children[0]).Token
	if len(n.Children) == 1 {
		return b.ast.addLeaf(digitTok)
	}
	// [Digit-leaf, Plus-leaf, Expr-node]
	right := b.buildExpr(n.Children[2])
	return b.ast.addNode(KindAdd, right, b.ast.addLeaf(digitTok))
}

func (b *builder) buildStringExpr(idx cst.NodeIndex) NodeIndex {
	n := b.cst.At(idx)
	openQuote := b.cst.At(n.Children[0]).Token
	text := b.coalesceCharList(n.Children[1])
	return b.ast.addLeaf(token.NewChar(text, openQuote.Position))
}

func (b *builder) coalesceCharList(idx cst.NodeIndex) string {
	n := b.cst.At(idx)
	if len(n.Children) == 0 {
		return ""
	}
	charTok := b.cst.At(n.Children[0]).Token
	return charTok.Text + b.coalesceCharList(n.Children[1])
}

func (b *builder) buildBoolExpr(idx cst.NodeIndex) NodeIndex {
	n := b.cst.At(idx)
	if len(n.Children) == 1 {
		return b.ast.addLeaf(b.cst.At(n.Children[0]).Token)
	}
	// [LParen-leaf, left-Expr, BoolOp-leaf, right-Expr, RParen-leaf]
	left := b.buildExpr(n.Children[1])
	opTok := b.cst.At(n.Children[2]).Token
	right := b.buildExpr(n.Children[3])

	if opTok.Symbol == token.Eq {
		return b.ast.addNode(KindIsEq, right, left)
	}
	return b.ast.addNode(KindNotEq, right, left)
}
