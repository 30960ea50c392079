// Package lexer implements the tokenizer: a longest-match scanner over
// one program's source text, context-switched between "outside a
// string" and "inside a string" by a single boolean, with
// nestable-by-depth-only block comments and unclosed-string/comment
// diagnostics.
//
// Words (keywords and identifiers) are scanned by maximal munch with
// backtracking to the longest exact match: a run of lowercase letters
// keeps growing only while it remains a viable prefix of some keyword,
// and backtracks to the longest exact match found along the way (a
// keyword, or failing that a bare single-letter identifier) the instant
// growing further cannot possibly match anything. This handles
// whitespace-free input such as `if(a==5){print("success")}` correctly:
// every token boundary falls out of the grammar's own shape rather than
// needing a separator character.
package lexer

import (
	"strings"

	"github.com/skx/nexus-compiler/diagnostics"
	"github.com/skx/nexus-compiler/token"
)

// Lexer holds all mutable state needed to scan one program's source text.
type Lexer struct {
	source []rune
	sink   *diagnostics.Sink

	pos  int
	line int
	col  int

	inString       bool
	lastOpenQuote  token.Position
	haveOpenQuote  bool
	inComment      bool
	commentOpenPos token.Position

	tokens []token.Token
}

// New creates a Lexer over source. Diagnostics are pushed to sink as
// scanning proceeds; Lex itself never aborts early, even on an
// unrecognized character or an unclosed string or comment.
func New(source string, sink *diagnostics.Sink) *Lexer {
	return &Lexer{
		source: []rune(source),
		sink:   sink,
		line:   1,
		col:    1,
	}
}

// Lex scans the entire source and returns the token stream.
func (l *Lexer) Lex() []token.Token {
	for l.pos < len(l.source) {
		ch := l.source[l.pos]

		if !l.inString && ch == '/' && l.peek(1) == '*' {
			l.consumeComment()
			continue
		}

		if l.inString {
			l.lexStringChar()
			continue
		}

		if isWhitespace(ch) {
			l.advance()
			continue
		}

		startPos := token.Position{Line: l.line, Column: l.col}

		switch {
		case ch == '(':
			l.emitSymbol(token.LParen, 1, startPos)
		case ch == ')':
			l.emitSymbol(token.RParen, 1, startPos)
		case ch == '{':
			l.emitSymbol(token.LBrace, 1, startPos)
		case ch == '}':
			l.emitSymbol(token.RBrace, 1, startPos)
		case ch == '+':
			l.emitSymbol(token.Plus, 1, startPos)
		case ch == '$':
			l.emitSymbol(token.EOP, 1, startPos)
		case ch == '"':
			l.openString(startPos)
		case ch == '=':
			if l.peek(1) == '=' {
				l.emitSymbol(token.Eq, 2, startPos)
			} else {
				l.emitSymbol(token.Assign, 1, startPos)
			}
		case ch == '!':
			if l.peek(1) == '=' {
				l.emitSymbol(token.NotEq, 2, startPos)
			} else {
				l.emitUnrecognized(1, startPos)
			}
		case isDigit(ch):
			l.emitDigit(startPos)
		case isLower(ch):
			l.lexWord(startPos)
		default:
			l.emitUnrecognized(1, startPos)
		}
	}

	if l.inComment {
		l.sink.Log(diagnostics.Warning, diagnostics.Lexer,
			posMsg("Unclosed comment starting at", l.commentOpenPos))
	}

	return l.tokens
}

// advance consumes and returns the current rune, updating line/column.
func (l *Lexer) advance() rune {
	ch := l.source[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return ch
}

// peek returns the rune offset characters ahead of the current position,
// or 0 if that is beyond the end of the source.
func (l *Lexer) peek(offset int) rune {
	i := l.pos + offset
	if i < 0 || i >= len(l.source) {
		return 0
	}
	return l.source[i]
}

func (l *Lexer) consumeComment() {
	pos := token.Position{Line: l.line, Column: l.col}
	if !l.inComment {
		l.commentOpenPos = pos
	}
	l.inComment = true
	l.advance()
	l.advance()

	for l.pos < len(l.source) {
		if l.source[l.pos] == '*' && l.peek(1) == '/' {
			l.advance()
			l.advance()
			l.inComment = false
			return
		}
		l.advance()
	}
	// Ran off the end of the program with the comment still open; the
	// warning is logged once, by Lex, after the scan loop exits.
}

func (l *Lexer) openString(pos token.Position) {
	l.advance()
	l.inString = true
	l.lastOpenQuote = pos
	l.haveOpenQuote = true
	l.emit(token.NewSymbol(token.Quote, "\"", pos))
}

func (l *Lexer) lexStringChar() {
	pos := token.Position{Line: l.line, Column: l.col}
	ch := l.source[l.pos]

	switch {
	case ch == '"':
		l.advance()
		l.inString = false
		l.haveOpenQuote = false
		l.emit(token.NewSymbol(token.Quote, "\"", pos))
	case ch == '\n':
		if l.haveOpenQuote {
			l.sink.Log(diagnostics.Error, diagnostics.Lexer,
				posMsg("Unclosed string starting at", l.lastOpenQuote))
		} else {
			l.sink.Log(diagnostics.Error, diagnostics.Lexer, "Unclosed string")
		}
		l.inString = false
		l.advance()
	case ch == '\t':
		l.advance()
		l.emit(token.NewUnrecognized("\t", pos))
		l.sink.Log(diagnostics.Error, diagnostics.Lexer, "Tab is not a valid character inside a string literal")
	case isLower(ch) || ch == ' ':
		l.advance()
		l.emit(token.NewChar(string(ch), pos))
	default:
		l.advance()
		l.emit(token.NewUnrecognized(string(ch), pos))
	}
}

// lexWord scans a maximal run of lowercase letters using maximal-munch
// with backtrack to the longest exact match: every length-1 prefix is a
// valid identifier, and longer prefixes are tried only while they remain
// a prefix of some keyword (see the package doc comment).
func (l *Lexer) lexWord(pos token.Position) {
	start := l.pos
	maxRun := 0
	for start+maxRun < len(l.source) && isLower(l.source[start+maxRun]) {
		maxRun++
	}

	acceptLen := 1
	var acceptKeyword *token.Keyword

	k := 1
	for k < maxRun {
		candidate := string(l.source[start : start+k+1])
		if !isKeywordPrefix(candidate) {
			break
		}
		k++
		if kw, ok := exactKeyword(candidate); ok {
			acceptLen = k
			acceptKeyword = &kw
		}
	}

	text := string(l.source[start : start+acceptLen])
	for i := 0; i < acceptLen; i++ {
		l.advance()
	}

	if acceptKeyword != nil {
		l.emit(token.NewKeyword(*acceptKeyword, text, pos))
	} else {
		l.emit(token.NewIdentifier(text, pos))
	}
}

func (l *Lexer) emitSymbol(sym token.Symbol, width int, pos token.Position) {
	text := string(l.source[l.pos : l.pos+width])
	for i := 0; i < width; i++ {
		l.advance()
	}
	l.emit(token.NewSymbol(sym, text, pos))
}

func (l *Lexer) emitDigit(pos token.Position) {
	ch := l.advance()
	l.emit(token.NewDigit(byte(ch-'0'), string(ch), pos))
}

func (l *Lexer) emitUnrecognized(width int, pos token.Position) {
	text := string(l.source[l.pos : l.pos+width])
	for i := 0; i < width; i++ {
		l.advance()
	}
	l.emit(token.NewUnrecognized(text, pos))
	l.sink.Log(diagnostics.Error, diagnostics.Lexer, "Unrecognized symbol '"+text+"' at "+posText(pos))
}

func (l *Lexer) emit(tok token.Token) {
	l.tokens = append(l.tokens, tok)

	switch tok.Kind {
	case token.KindKeyword:
		l.sink.Log(diagnostics.Info, diagnostics.Lexer, "Keyword - "+tok.Keyword.String()+" [ "+tok.Text+" ] found at "+posText(tok.Position))
	case token.KindIdentifier:
		l.sink.Log(diagnostics.Info, diagnostics.Lexer, "Identifier [ "+tok.Text+" ] found at "+posText(tok.Position))
	case token.KindSymbol:
		l.sink.Log(diagnostics.Info, diagnostics.Lexer, "Symbol - "+tok.Symbol.String()+" [ "+tok.Text+" ] found at "+posText(tok.Position))
	case token.KindDigit:
		l.sink.Log(diagnostics.Info, diagnostics.Lexer, "Digit [ "+tok.Text+" ] found at "+posText(tok.Position))
	case token.KindChar:
		l.sink.Log(diagnostics.Info, diagnostics.Lexer, "Char [ "+tok.Text+" ] found at "+posText(tok.Position))
	case token.KindUnrecognized:
		// The Unrecognized-specific error is logged by the caller, which
		// knows more about why (bad symbol vs. tab-in-string).
	}
}

func isWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isLower(r rune) bool {
	return r >= 'a' && r <= 'z'
}

func isKeywordPrefix(s string) bool {
	for _, kw := range token.Keywords {
		if strings.HasPrefix(kw.Text, s) {
			return true
		}
	}
	return false
}

func exactKeyword(s string) (token.Keyword, bool) {
	for _, kw := range token.Keywords {
		if kw.Text == s {
			return kw.Kind, true
		}
	}
	return 0, false
}

func posText(p token.Position) string {
	return posMsg("", p)
}

func posMsg(prefix string, p token.Position) string {
	if prefix == "" {
		return itoa(p.Line) + ":" + itoa(p.Column)
	}
	return prefix + " " + itoa(p.Line) + ":" + itoa(p.Column)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
