package codegen6502_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skx/nexus-compiler/ast"
	"github.com/skx/nexus-compiler/codegen6502"
	"github.com/skx/nexus-compiler/diagnostics"
	"github.com/skx/nexus-compiler/lexer"
	"github.com/skx/nexus-compiler/parser"
	"github.com/skx/nexus-compiler/semantic"
)

func compile(t *testing.T, src string) (codegen6502.Image, error, *diagnostics.Sink) {
	t.Helper()
	sink := diagnostics.New()
	toks := lexer.New(src, sink).Lex()
	cstTree, err := parser.New(toks, sink).Parse()
	require.NoError(t, err)
	astTree := ast.Build(cstTree)
	res, ok := semantic.New(sink).Analyze(astTree)
	require.True(t, ok)
	img, genErr := codegen6502.New(sink, res).Emit(astTree)
	return img, genErr, sink
}

func TestEmitProducesA256ByteImage(t *testing.T) {
	img, err, _ := compile(t, "{int a a=1 print(a)}$")
	require.NoError(t, err)
	require.Len(t, img, 256)
}

func TestReservedByteIsAlwaysZero(t *testing.T) {
	img, err, _ := compile(t, `{string s s="hi" print(s)}$`)
	require.NoError(t, err)
	require.Equal(t, byte(0x00), img[0xFF])
}

func TestImageEndsWithHalt(t *testing.T) {
	img, err, _ := compile(t, "{int a a=1}$")
	require.NoError(t, err)

	// "int a" emits A9 00 8D ll hh and "a=1" emits A9 01 8D ll hh, so the
	// trailing halt is the eleventh code byte, at offset 10.
	require.Equal(t, byte(0x00), img[10])
}

func TestBooleanPrintUsesInternedLiterals(t *testing.T) {
	_, err, sink := compile(t, "{boolean b b=true print(b)}$")
	require.NoError(t, err)
	require.False(t, sink.HasErrors())
}

func TestAddAndCompareProgramCompiles(t *testing.T) {
	src := "{int a a=0 while(a!=5){a=1+a} if(a==5){print(a)}}$"
	img, err, sink := compile(t, src)
	require.NoError(t, err)
	require.False(t, sink.HasErrors())
	require.Len(t, img, 256)
}

type printEvent struct {
	kind string
	text string
}

// run is a tiny interpreter for the instruction contract the image
// obeys: only EC ever sets the Z flag, D0 branches forward when Z=0,
// and FF prints via the Y=1 (int in A) / Y=2 (string at X) convention.
// It exists so branch-heavy codegen bugs (If/While taking the wrong
// path) show up as a wrong sequence of prints, not just "it compiled".
func run(t *testing.T, img codegen6502.Image) []printEvent {
	t.Helper()
	var a, x, y byte
	var z bool
	pc := 0
	var events []printEvent

	for steps := 0; ; steps++ {
		require.Less(t, steps, 100000, "program did not halt")
		switch op := img[pc]; op {
		case 0x00:
			return events
		case 0xA9:
			a = img[pc+1]
			pc += 2
		case 0xAD:
			a = img[img[pc+1]]
			pc += 3
		case 0x8D:
			img[img[pc+1]] = a
			pc += 3
		case 0xA2:
			x = img[pc+1]
			pc += 2
		case 0xAE:
			x = img[img[pc+1]]
			pc += 3
		case 0xA0:
			y = img[pc+1]
			pc += 2
		case 0xAC:
			y = img[img[pc+1]]
			pc += 3
		case 0x6D:
			a += img[img[pc+1]]
			pc += 3
		case 0xEC:
			z = img[img[pc+1]] == x
			pc += 3
		case 0xD0:
			dist := int(int8(img[pc+1]))
			pc += 2
			if !z {
				pc += dist
			}
		case 0xFF:
			if y == 1 {
				events = append(events, printEvent{kind: "int", text: fmt.Sprintf("%d", a)})
			} else {
				var sb strings.Builder
				for addr := int(x); img[addr] != 0; addr++ {
					sb.WriteByte(img[addr])
				}
				events = append(events, printEvent{kind: "string", text: sb.String()})
			}
			pc++
		default:
			t.Fatalf("unknown opcode 0x%02X at pc=%d", op, pc)
		}
	}
}

func TestIfBranchesOnTheActualComparisonNotTheOperand(t *testing.T) {
	img, err, sink := compile(t, "{int a a=5 if(a==5){print(a)}}$")
	require.NoError(t, err)
	require.False(t, sink.HasErrors())
	require.Equal(t, []printEvent{{kind: "int", text: "5"}}, run(t, img))

	img, err, sink = compile(t, "{int a a=6 if(a==5){print(a)}}$")
	require.NoError(t, err)
	require.False(t, sink.HasErrors())
	require.Empty(t, run(t, img))
}

func TestIfNotEqualBranchesCorrectly(t *testing.T) {
	img, err, _ := compile(t, "{boolean b b=true if(b!=false){print(1)}}$")
	require.NoError(t, err)
	require.Equal(t, []printEvent{{kind: "int", text: "1"}}, run(t, img))

	img, err, _ = compile(t, "{boolean b b=false if(b!=false){print(1)}}$")
	require.NoError(t, err)
	require.Empty(t, run(t, img))
}

func TestWhileLoopsUntilConditionIsFalse(t *testing.T) {
	img, err, _ := compile(t, "{int a a=0 while(a!=5){a=1+a} print(a)}$")
	require.NoError(t, err)
	require.Equal(t, []printEvent{{kind: "int", text: "5"}}, run(t, img))
}

func TestIfLiteralTrueAlwaysRunsTheBody(t *testing.T) {
	img, err, _ := compile(t, "{if true {print(1)}}$")
	require.NoError(t, err)
	require.Equal(t, []printEvent{{kind: "int", text: "1"}}, run(t, img))
}

func TestIfLiteralFalseEliminatesTheBody(t *testing.T) {
	img, err, _ := compile(t, "{if false {print(1)}}$")
	require.NoError(t, err)
	require.Empty(t, run(t, img))
}

func TestManyDeclarationsEventuallyCollide(t *testing.T) {
	// Identifiers are a single lowercase letter, so packing many static
	// slots into one program means redeclaring the same name inside a
	// fresh nested scope over and over; each repetition still costs a
	// static slot and several code bytes, which eventually can't fit
	// alongside the pre-interned heap entries in 256 bytes.
	src := "{"
	for i := 0; i < 60; i++ {
		src += "if(true!=false){int a}"
	}
	src += "}$"
	_, err, sink := compile(t, src)
	require.Error(t, err)
	require.True(t, sink.HasErrors())
}
