package cst_test

import (
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/skx/nexus-compiler/cst"
	"github.com/skx/nexus-compiler/token"
)

// describe renders a subtree as a parenthesized shape string, e.g.
// "Statement(VarDecl(Leaf(int) Leaf(a)))", so tests can diff shapes
// without depending on the arena's internals.
func describe(t *cst.Tree, idx cst.NodeIndex) string {
	n := t.At(idx)
	if n.Kind == cst.KindLeaf {
		return "Leaf(" + n.Token.Text + ")"
	}
	parts := make([]string, len(n.Children))
	for i, c := range n.Children {
		parts[i] = describe(t, c)
	}
	return n.Kind.String() + "(" + strings.Join(parts, " ") + ")"
}

func TestArenaLeafAndNode(t *testing.T) {
	tree := &cst.Tree{}
	idTok := token.NewIdentifier("a", token.Position{Line: 1, Column: 1})
	leaf := tree.AddLeaf(idTok)
	node := tree.AddNode(cst.KindStatement, leaf)

	if tree.At(leaf).Token.Text != "a" {
		t.Fatalf("leaf token not round-tripped")
	}
	if diff := cmp.Diff("Statement(Leaf(a))", describe(tree, node)); diff != "" {
		t.Errorf("shape mismatch (-want +got):\n%s", diff)
	}
}

func TestArenaIndicesAreStable(t *testing.T) {
	tree := &cst.Tree{}
	var leaves []cst.NodeIndex
	for i := 0; i < 5; i++ {
		leaves = append(leaves, tree.AddLeaf(token.NewDigit(byte(i), strconv.Itoa(i), token.Position{Line: 1, Column: i + 1})))
	}
	for i, idx := range leaves {
		if got := tree.At(idx).Token.Digit; got != byte(i) {
			t.Errorf("leaf %d: got digit %d, want %d", i, got, i)
		}
	}
}

func TestVarDeclShape(t *testing.T) {
	tree := &cst.Tree{}
	typeTok := token.NewKeyword(token.IntType, "int", token.Position{Line: 1, Column: 2})
	idTok := token.NewIdentifier("a", token.Position{Line: 1, Column: 6})
	varDecl := tree.AddNode(cst.KindVarDecl, tree.AddLeaf(typeTok), tree.AddLeaf(idTok))
	stmt := tree.AddNode(cst.KindStatement, varDecl)

	want := "Statement(VarDecl(Leaf(int) Leaf(a)))"
	if diff := cmp.Diff(want, describe(tree, stmt)); diff != "" {
		t.Errorf("shape mismatch (-want +got):\n%s", diff)
	}
}
