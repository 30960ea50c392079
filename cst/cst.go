// Package cst implements the Concrete Syntax Tree the parser builds: an
// ordered tree whose interior nodes mirror the grammar's nonterminals
// exactly and whose leaves are tokens. The tree is arena-indexed (a
// slice of Node plus integer NodeIndex children) rather than
// pointer-linked, since it is built once, walked a handful of times, and
// discarded as a whole at the end of compiling one program - the
// "visited twice, never freed piecewise" lifecycle fits an arena better
// than owning pointers or a graph library.
package cst

import "github.com/skx/nexus-compiler/token"

// NodeIndex addresses a Node within a Tree's arena: the first node added
// gets index 0. Tree.Root is the entry point.
type NodeIndex int

// Kind identifies a CST node's grammar production. Leaf carries no
// children; a Leaf node's Token field holds the matched token.
type Kind int

const (
	KindProgram Kind = iota
	KindBlock
	KindStatementList
	KindStatement
	KindPrint
	KindAssign
	KindVarDecl
	KindWhile
	KindIf
	KindExpr
	KindIntExpr
	KindStringExpr
	KindBoolExpr
	KindCharList
	KindLeaf
)

func (k Kind) String() string {
	switch k {
	case KindProgram:
		return "Program"
	case KindBlock:
		return "Block"
	case KindStatementList:
		return "StatementList"
	case KindStatement:
		return "Statement"
	case KindPrint:
		return "Print"
	case KindAssign:
		return "Assign"
	case KindVarDecl:
		return "VarDecl"
	case KindWhile:
		return "While"
	case KindIf:
		return "If"
	case KindExpr:
		return "Expr"
	case KindIntExpr:
		return "IntExpr"
	case KindStringExpr:
		return "StringExpr"
	case KindBoolExpr:
		return "BoolExpr"
	case KindCharList:
		return "CharList"
	case KindLeaf:
		return "Leaf"
	default:
		return "?"
	}
}

// Node is one CST node: either an interior node with ordered children in
// production order, or a Leaf wrapping a single Token.
type Node struct {
	Kind     Kind
	Children []NodeIndex
	Token    token.Token // valid only when Kind == KindLeaf
}

// Tree is the arena owning every Node produced while parsing one
// program. The zero Tree is ready to use.
type Tree struct {
	Nodes []Node
	Root  NodeIndex
}

// AddLeaf appends a leaf wrapping tok and returns its index.
func (t *Tree) AddLeaf(tok token.Token) NodeIndex {
	t.Nodes = append(t.Nodes, Node{Kind: KindLeaf, Token: tok})
	return NodeIndex(len(t.Nodes) - 1)
}

// AddNode appends an interior node of the given kind with the given
// children, in order, and returns its index.
func (t *Tree) AddNode(kind Kind, children ...NodeIndex) NodeIndex {
	t.Nodes = append(t.Nodes, Node{Kind: kind, Children: children})
	return NodeIndex(len(t.Nodes) - 1)
}

// At returns the Node addressed by idx.
func (t *Tree) At(idx NodeIndex) Node {
	return t.Nodes[idx]
}
