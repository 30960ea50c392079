package codegenriscv_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skx/nexus-compiler/ast"
	"github.com/skx/nexus-compiler/codegenriscv"
	"github.com/skx/nexus-compiler/diagnostics"
	"github.com/skx/nexus-compiler/lexer"
	"github.com/skx/nexus-compiler/parser"
	"github.com/skx/nexus-compiler/semantic"
)

func compile(t *testing.T, src string) string {
	t.Helper()
	sink := diagnostics.New()
	toks := lexer.New(src, sink).Lex()
	cstTree, err := parser.New(toks, sink).Parse()
	require.NoError(t, err)
	astTree := ast.Build(cstTree)
	res, ok := semantic.New(sink).Analyze(astTree)
	require.True(t, ok)
	return codegenriscv.New(res).Emit(astTree)
}

func TestListingHasRequiredHeader(t *testing.T) {
	listing := compile(t, "{}$")
	require.True(t, strings.HasPrefix(listing, ".section .text\n.global _start\n_start:\n\tnop\n"))
}

func TestListingIncludesRuntimeRoutines(t *testing.T) {
	listing := compile(t, "{int a a=1 print(a)}$")
	require.Contains(t, listing, "print_int:")
	require.Contains(t, listing, "print_string:")
	require.Contains(t, listing, "print_boolean:")
}

func TestBooleanLiteralsPreinternedAsString0And1(t *testing.T) {
	listing := compile(t, "{}$")
	require.Contains(t, listing, "string_0: .half 5")
	require.Contains(t, listing, `.ascii "false"`)
	require.Contains(t, listing, "string_1: .half 4")
	require.Contains(t, listing, `.ascii "true"`)
}

func TestStringVariableDeclaresAWordSlot(t *testing.T) {
	listing := compile(t, `{string s s="hi" print(s)}$`)
	require.Contains(t, listing, "s_scope: .word 0")
}

func TestIntVariableDeclaresAByteSlot(t *testing.T) {
	listing := compile(t, "{int a a=1}$")
	require.Contains(t, listing, "a_scope: .byte 0")
}

func TestWhileEmitsLoopLabelsAndBranch(t *testing.T) {
	listing := compile(t, "{int a a=0 while(a!=5){a=1+a}}$")
	require.Contains(t, listing, "while_start_")
	require.Contains(t, listing, "while_end_")
	require.Contains(t, listing, "beqz t0,")
}

func TestIfEmitsEndLabelAndBranch(t *testing.T) {
	listing := compile(t, "{if(1==1){}}$")
	require.Contains(t, listing, "if_end_")
}

func TestListingEndsWithExitSyscall(t *testing.T) {
	listing := compile(t, "{}$")
	require.Contains(t, listing, "li a7, 93\n\tli a0, 0\n\tecall\n")
}
