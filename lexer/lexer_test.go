package lexer

import (
	"testing"

	"github.com/skx/nexus-compiler/diagnostics"
	"github.com/skx/nexus-compiler/token"
)

func lexAll(t *testing.T, src string) ([]token.Token, *diagnostics.Sink) {
	t.Helper()
	sink := diagnostics.New()
	toks := New(src, sink).Lex()
	return toks, sink
}

func TestLexSimpleProgram(t *testing.T) {
	toks, sink := lexAll(t, `{int a a=1 print(a)}$`)

	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %+v", sink.Records())
	}

	want := []struct {
		kind token.Kind
		text string
	}{
		{token.KindSymbol, "{"},
		{token.KindKeyword, "int"},
		{token.KindIdentifier, "a"},
		{token.KindIdentifier, "a"},
		{token.KindSymbol, "="},
		{token.KindDigit, "1"},
		{token.KindKeyword, "print"},
		{token.KindSymbol, "("},
		{token.KindIdentifier, "a"},
		{token.KindSymbol, ")"},
		{token.KindSymbol, "}"},
		{token.KindSymbol, "$"},
	}

	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %+v", len(toks), len(want), toks)
	}
	for i, w := range want {
		if toks[i].Kind != w.kind || toks[i].Text != w.text {
			t.Errorf("token %d = %s, want kind=%s text=%q", i, toks[i], w.kind, w.text)
		}
	}
}

func TestLexDenseNoWhitespace(t *testing.T) {
	toks, sink := lexAll(t, `if(a==5){print("success")}$`)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %+v", sink.Records())
	}

	wantKinds := []token.Kind{
		token.KindKeyword,     // if
		token.KindSymbol,      // (
		token.KindIdentifier,  // a
		token.KindSymbol,      // ==
		token.KindDigit,       // 5
		token.KindSymbol,      // )
		token.KindSymbol,      // {
		token.KindKeyword,     // print
		token.KindSymbol,      // (
		token.KindSymbol,      // "
		token.KindChar,        // s
		token.KindChar,        // u
		token.KindChar,        // c
		token.KindChar,        // c
		token.KindChar,        // e
		token.KindChar,        // s
		token.KindChar,        // s
		token.KindSymbol,      // "
		token.KindSymbol,      // )
		token.KindSymbol,      // }
		token.KindSymbol,      // $
	}
	if len(toks) != len(wantKinds) {
		t.Fatalf("got %d tokens, want %d: %+v", len(toks), len(wantKinds), toks)
	}
	for i, k := range wantKinds {
		if toks[i].Kind != k {
			t.Errorf("token %d = %s, want kind %s", i, toks[i], k)
		}
	}
	if toks[0].Keyword != token.If {
		t.Errorf("first token keyword = %s, want if", toks[0].Keyword)
	}
	if toks[3].Symbol != token.Eq {
		t.Errorf("fourth token symbol = %s, want ==", toks[3].Symbol)
	}
}

func TestLexKeywordPrefixNotGreedy(t *testing.T) {
	// "intx" must not merge into one token: "int" is a complete keyword
	// and "intx" is not a prefix of any keyword, so scanning backtracks
	// to "int" and starts a fresh token at "x".
	toks, sink := lexAll(t, `intx$`)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %+v", sink.Records())
	}
	if len(toks) != 3 {
		t.Fatalf("got %d tokens, want 3: %+v", len(toks), toks)
	}
	if toks[0].Kind != token.KindKeyword || toks[0].Keyword != token.IntType {
		t.Errorf("first token = %s, want keyword int", toks[0])
	}
	if toks[1].Kind != token.KindIdentifier || toks[1].Text != "x" {
		t.Errorf("second token = %s, want identifier x", toks[1])
	}
}

func TestLexAdjacentSingleLetterIdentifiers(t *testing.T) {
	// "ab" is not a legal identifier (identifiers are one letter) and is
	// not a keyword prefix, so it lexes as two single-letter identifiers.
	toks, _ := lexAll(t, `ab$`)
	if len(toks) != 3 {
		t.Fatalf("got %d tokens, want 3: %+v", len(toks), toks)
	}
	if toks[0].Text != "a" || toks[1].Text != "b" {
		t.Errorf("got %q, %q; want \"a\", \"b\"", toks[0].Text, toks[1].Text)
	}
}

func TestLexComment(t *testing.T) {
	toks, sink := lexAll(t, "{ /* ignored $ { */ }$")
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %+v", sink.Records())
	}
	if len(toks) != 3 {
		t.Fatalf("got %d tokens, want 3: %+v", len(toks), toks)
	}
	if toks[0].Symbol != token.LBrace || toks[1].Symbol != token.RBrace || toks[2].Symbol != token.EOP {
		t.Errorf("unexpected tokens: %+v", toks)
	}
}

func TestLexUnclosedComment(t *testing.T) {
	_, sink := lexAll(t, "{ /* never closed $")
	found := false
	for _, r := range sink.Records() {
		if r.Level == diagnostics.Warning {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an unclosed-comment warning, got %+v", sink.Records())
	}
}

func TestLexUnclosedString(t *testing.T) {
	toks, sink := lexAll(t, "print(\"oops\nprint(\"ok\")$")
	if sink.Count(diagnostics.Error) == 0 {
		t.Fatalf("expected an unclosed-string error, got %+v", sink.Records())
	}
	// Lexing must still continue past the error and recover line-by-line.
	last := toks[len(toks)-1]
	if last.Symbol != token.EOP {
		t.Errorf("lexing did not recover past the unclosed string: last token %s", last)
	}
}

func TestLexTabInsideStringIsUnrecognized(t *testing.T) {
	toks, sink := lexAll(t, "print(\"a\tb\")$")
	if sink.Count(diagnostics.Error) == 0 {
		t.Fatalf("expected an error for the tab inside the string")
	}
	foundUnrecognized := false
	for _, tok := range toks {
		if tok.Kind == token.KindUnrecognized && tok.Text == "\t" {
			foundUnrecognized = true
		}
	}
	if !foundUnrecognized {
		t.Errorf("expected an Unrecognized token for the tab, got %+v", toks)
	}
}

func TestLexUnrecognizedSymbol(t *testing.T) {
	toks, sink := lexAll(t, "a#b$")
	if sink.Count(diagnostics.Error) == 0 {
		t.Fatalf("expected an error for the unrecognized symbol")
	}
	if toks[1].Kind != token.KindUnrecognized || toks[1].Text != "#" {
		t.Errorf("expected Unrecognized(#) in the middle, got %+v", toks)
	}
}

func TestLexPositions(t *testing.T) {
	toks, _ := lexAll(t, "{\n  int a\n}$")
	// '{' is at line 1 col 1; 'int' starts line 2 col 3 after two spaces.
	if toks[0].Position != (token.Position{Line: 1, Column: 1}) {
		t.Errorf("'{' position = %+v", toks[0].Position)
	}
	var intTok token.Token
	for _, tok := range toks {
		if tok.Kind == token.KindKeyword && tok.Keyword == token.IntType {
			intTok = tok
		}
	}
	if intTok.Position != (token.Position{Line: 2, Column: 3}) {
		t.Errorf("'int' position = %+v, want line 2 col 3", intTok.Position)
	}
}
