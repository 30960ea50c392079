// Package parser implements the recursive-descent parser (component C3):
// it recognizes the grammar described by the language's statements and
// expressions, builds a cst.Tree in lockstep with recognition, and halts
// the current program on its first error.
package parser

import (
	"github.com/juju/errors"

	"github.com/skx/nexus-compiler/cst"
	"github.com/skx/nexus-compiler/diagnostics"
	"github.com/skx/nexus-compiler/token"
)

// ErrParseFailed is returned by Parse when the program could not be
// fully recognized. The diagnostic sink carries the specific reason;
// this sentinel only tells the caller to skip the later phases.
var ErrParseFailed = errors.New("parse failed")

// Parser recognizes one program's token stream.
type Parser struct {
	tokens []token.Token
	pos    int
	sink   *diagnostics.Sink
	tree   *cst.Tree

	halted  bool
	lastPos token.Position
}

// New creates a Parser over tokens, the output of one Lexer.Lex call.
func New(tokens []token.Token, sink *diagnostics.Sink) *Parser {
	return &Parser{tokens: tokens, sink: sink, tree: &cst.Tree{}}
}

// Parse recognizes Program -> Block $ and returns the resulting tree.
// On failure the tree is partial and err wraps ErrParseFailed; the
// sink holds the specific diagnostic.
func (p *Parser) Parse() (*cst.Tree, error) {
	root, ok := p.parseProgram()
	if !ok {
		return p.tree, errors.Trace(ErrParseFailed)
	}
	p.tree.Root = root
	return p.tree, nil
}

func (p *Parser) parseProgram() (cst.NodeIndex, bool) {
	block, ok := p.parseBlock()
	if !ok {
		return 0, false
	}
	eop, ok := p.matchSymbol(token.EOP)
	if !ok {
		return 0, false
	}
	return p.tree.AddNode(cst.KindProgram, block, p.tree.AddLeaf(eop)), true
}

func (p *Parser) parseBlock() (cst.NodeIndex, bool) {
	lbrace, ok := p.matchSymbol(token.LBrace)
	if !ok {
		return 0, false
	}
	stmts, ok := p.parseStatementList()
	if !ok {
		return 0, false
	}
	rbrace, ok := p.matchSymbol(token.RBrace)
	if !ok {
		return 0, false
	}
	if len(p.tree.At(stmts).Children) == 0 {
		p.sink.Log(diagnostics.Warning, diagnostics.Parser, "empty block")
	}
	return p.tree.AddNode(cst.KindBlock, p.tree.AddLeaf(lbrace), stmts, p.tree.AddLeaf(rbrace)), true
}

func (p *Parser) parseStatementList() (cst.NodeIndex, bool) {
	if !p.startsStatement() {
		return p.tree.AddNode(cst.KindStatementList), true
	}
	stmt, ok := p.parseStatement()
	if !ok {
		return 0, false
	}
	rest, ok := p.parseStatementList()
	if !ok {
		return 0, false
	}
	return p.tree.AddNode(cst.KindStatementList, stmt, rest), true
}

func (p *Parser) startsStatement() bool {
	tok, ok := p.curOrEOF()
	if !ok {
		return false
	}
	switch tok.Kind {
	case token.KindIdentifier:
		return true
	case token.KindSymbol:
		return tok.Symbol == token.LBrace
	case token.KindKeyword:
		switch tok.Keyword {
		case token.Print, token.While, token.If, token.StringType, token.IntType, token.BooleanType:
			return true
		}
	}
	return false
}

func (p *Parser) parseStatement() (cst.NodeIndex, bool) {
	tok, ok := p.curOrEOF()
	if !ok {
		p.errorf("expected a statement, found end of input")
		return 0, false
	}

	var child cst.NodeIndex
	switch {
	case tok.Kind == token.KindKeyword && tok.Keyword == token.Print:
		child, ok = p.parsePrint()
	case tok.Kind == token.KindIdentifier:
		child, ok = p.parseAssign()
	case tok.Kind == token.KindKeyword && isTypeKeyword(tok.Keyword):
		child, ok = p.parseVarDecl()
	case tok.Kind == token.KindKeyword && tok.Keyword == token.While:
		child, ok = p.parseWhile()
	case tok.Kind == token.KindKeyword && tok.Keyword == token.If:
		child, ok = p.parseIf()
	case tok.Kind == token.KindSymbol && tok.Symbol == token.LBrace:
		child, ok = p.parseBlock()
	default:
		p.errorfAt(tok, "expected a statement, found "+tok.String())
		return 0, false
	}
	if !ok {
		return 0, false
	}
	return p.tree.AddNode(cst.KindStatement, child), true
}

func isTypeKeyword(kw token.Keyword) bool {
	return kw == token.StringType || kw == token.IntType || kw == token.BooleanType
}

func (p *Parser) parsePrint() (cst.NodeIndex, bool) {
	kw, ok := p.matchKeyword(token.Print)
	if !ok {
		return 0, false
	}
	lp, ok := p.matchSymbol(token.LParen)
	if !ok {
		return 0, false
	}
	expr, ok := p.parseExpr()
	if !ok {
		return 0, false
	}
	rp, ok := p.matchSymbol(token.RParen)
	if !ok {
		return 0, false
	}
	return p.tree.AddNode(cst.KindPrint, p.tree.AddLeaf(kw), p.tree.AddLeaf(lp), expr, p.tree.AddLeaf(rp)), true
}

func (p *Parser) parseAssign() (cst.NodeIndex, bool) {
	id, ok := p.match(token.KindIdentifier)
	if !ok {
		return 0, false
	}
	assignSym, ok := p.matchSymbol(token.Assign)
	if !ok {
		return 0, false
	}
	expr, ok := p.parseExpr()
	if !ok {
		return 0, false
	}
	return p.tree.AddNode(cst.KindAssign, p.tree.AddLeaf(id), p.tree.AddLeaf(assignSym), expr), true
}

func (p *Parser) parseVarDecl() (cst.NodeIndex, bool) {
	typeTok, ok := p.matchType()
	if !ok {
		return 0, false
	}
	id, ok := p.match(token.KindIdentifier)
	if !ok {
		return 0, false
	}
	return p.tree.AddNode(cst.KindVarDecl, p.tree.AddLeaf(typeTok), p.tree.AddLeaf(id)), true
}

func (p *Parser) parseWhile() (cst.NodeIndex, bool) {
	kw, ok := p.matchKeyword(token.While)
	if !ok {
		return 0, false
	}
	boolExpr, ok := p.parseBoolExpr()
	if !ok {
		return 0, false
	}
	block, ok := p.parseBlock()
	if !ok {
		return 0, false
	}
	return p.tree.AddNode(cst.KindWhile, p.tree.AddLeaf(kw), boolExpr, block), true
}

func (p *Parser) parseIf() (cst.NodeIndex, bool) {
	kw, ok := p.matchKeyword(token.If)
	if !ok {
		return 0, false
	}
	boolExpr, ok := p.parseBoolExpr()
	if !ok {
		return 0, false
	}
	block, ok := p.parseBlock()
	if !ok {
		return 0, false
	}
	return p.tree.AddNode(cst.KindIf, p.tree.AddLeaf(kw), boolExpr, block), true
}

// parseExpr implements Expr -> IntExpr | StringExpr | BoolExpr | Id.
func (p *Parser) parseExpr() (cst.NodeIndex, bool) {
	tok, ok := p.curOrEOF()
	if !ok {
		p.errorf("expected an expression, found end of input")
		return 0, false
	}

	var inner cst.NodeIndex
	switch {
	case tok.Kind == token.KindDigit:
		inner, ok = p.parseIntExpr()
	case tok.Kind == token.KindSymbol && tok.Symbol == token.Quote:
		inner, ok = p.parseStringExpr()
	case tok.Kind == token.KindSymbol && tok.Symbol == token.LParen:
		inner, ok = p.parseBoolExpr()
	case tok.Kind == token.KindKeyword && (tok.Keyword == token.True || tok.Keyword == token.False):
		inner, ok = p.parseBoolExpr()
	case tok.Kind == token.KindIdentifier:
		idTok, matched := p.match(token.KindIdentifier)
		inner, ok = p.tree.AddLeaf(idTok), matched
	default:
		p.errorfAt(tok, "expected an expression, found "+tok.String())
		return 0, false
	}
	if !ok {
		return 0, false
	}
	return p.tree.AddNode(cst.KindExpr, inner), true
}

// parseIntExpr implements IntExpr -> Digit + Expr | Digit.
func (p *Parser) parseIntExpr() (cst.NodeIndex, bool) {
	digitTok, ok := p.match(token.KindDigit)
	if !ok {
		return 0, false
	}

	next, hasNext := p.curOrEOF()
	if hasNext && next.Kind == token.KindSymbol && next.Symbol == token.Plus {
		plusTok, _ := p.matchSymbol(token.Plus)
		right, ok := p.parseExpr()
		if !ok {
			return 0, false
		}
		return p.tree.AddNode(cst.KindIntExpr, p.tree.AddLeaf(digitTok), p.tree.AddLeaf(plusTok), right), true
	}

	if hasNext && next.Kind == token.KindDigit {
		p.errorfAt(next, "multi-digit integer literal is not permitted; use digit + digit")
		return 0, false
	}

	return p.tree.AddNode(cst.KindIntExpr, p.tree.AddLeaf(digitTok)), true
}

// parseStringExpr implements StringExpr -> " CharList ".
func (p *Parser) parseStringExpr() (cst.NodeIndex, bool) {
	openQuote, ok := p.matchSymbol(token.Quote)
	if !ok {
		return 0, false
	}
	charList, ok := p.parseCharList()
	if !ok {
		return 0, false
	}
	closeQuote, ok := p.matchSymbol(token.Quote)
	if !ok {
		return 0, false
	}
	if len(p.tree.At(charList).Children) == 0 {
		p.sink.Log(diagnostics.Warning, diagnostics.Parser, "empty string literal")
	}
	return p.tree.AddNode(cst.KindStringExpr, p.tree.AddLeaf(openQuote), charList, p.tree.AddLeaf(closeQuote)), true
}

// parseCharList implements CharList -> Char CharList | epsilon.
func (p *Parser) parseCharList() (cst.NodeIndex, bool) {
	tok, ok := p.curOrEOF()
	if !ok || tok.Kind != token.KindChar {
		return p.tree.AddNode(cst.KindCharList), true
	}
	charTok, _ := p.match(token.KindChar)
	rest, ok := p.parseCharList()
	if !ok {
		return 0, false
	}
	return p.tree.AddNode(cst.KindCharList, p.tree.AddLeaf(charTok), rest), true
}

// parseBoolExpr implements BoolExpr -> ( Expr BoolOp Expr ) | true | false.
//
// The parenthesized form uses the long-boolean lookahead: before
// recursing into either operand, it scans forward from the opening
// paren counting paren depth to find the top-level == or != token. This
// is resolved up front, rather than discovered by trial and error,
// because each operand is itself an arbitrary Expr with no fixed length.
func (p *Parser) parseBoolExpr() (cst.NodeIndex, bool) {
	tok, ok := p.curOrEOF()
	if !ok {
		p.errorf("expected a boolean expression, found end of input")
		return 0, false
	}

	if tok.Kind == token.KindKeyword && (tok.Keyword == token.True || tok.Keyword == token.False) {
		p.pos++
		p.lastPos = tok.Position
		return p.tree.AddNode(cst.KindBoolExpr, p.tree.AddLeaf(tok)), true
	}

	if !(tok.Kind == token.KindSymbol && tok.Symbol == token.LParen) {
		p.errorfAt(tok, "expected a boolean expression, found "+tok.String())
		return 0, false
	}

	if !p.hasTopLevelBoolOp() {
		p.errorfAt(tok, "boolean expression has no top-level == or != operator")
		return 0, false
	}

	lparen, _ := p.matchSymbol(token.LParen)
	left, ok := p.parseExpr()
	if !ok {
		return 0, false
	}
	boolOp, ok := p.matchBoolOp()
	if !ok {
		return 0, false
	}
	right, ok := p.parseExpr()
	if !ok {
		return 0, false
	}
	rparen, ok := p.matchSymbol(token.RParen)
	if !ok {
		return 0, false
	}
	return p.tree.AddNode(cst.KindBoolExpr, p.tree.AddLeaf(lparen), left, p.tree.AddLeaf(boolOp), right, p.tree.AddLeaf(rparen)), true
}

// hasTopLevelBoolOp scans from the current '(' token forward, counting
// paren depth, looking for an == or != at depth zero before the
// matching close paren.
func (p *Parser) hasTopLevelBoolOp() bool {
	depth := 0
	for i := p.pos + 1; i < len(p.tokens); i++ {
		tok := p.tokens[i]
		if tok.Kind != token.KindSymbol {
			continue
		}
		switch tok.Symbol {
		case token.LParen:
			depth++
		case token.RParen:
			if depth == 0 {
				return false
			}
			depth--
		case token.Eq, token.NotEq:
			if depth == 0 {
				return true
			}
		}
	}
	return false
}

func (p *Parser) matchBoolOp() (token.Token, bool) {
	if p.halted {
		return token.Token{}, false
	}
	tok, ok := p.curOrEOF()
	if !ok || tok.Kind != token.KindSymbol || (tok.Symbol != token.Eq && tok.Symbol != token.NotEq) {
		if ok {
			p.errorfAt(tok, "expected == or !=, found "+tok.String())
		} else {
			p.errorf("expected == or !=, found end of input")
		}
		return token.Token{}, false
	}
	p.pos++
	p.lastPos = tok.Position
	return tok, true
}

func (p *Parser) matchType() (token.Token, bool) {
	if p.halted {
		return token.Token{}, false
	}
	tok, ok := p.curOrEOF()
	if !ok || tok.Kind != token.KindKeyword || !isTypeKeyword(tok.Keyword) {
		if ok {
			p.errorfAt(tok, "expected a type, found "+tok.String())
		} else {
			p.errorf("expected a type, found end of input")
		}
		return token.Token{}, false
	}
	p.pos++
	p.lastPos = tok.Position
	return tok, true
}

func (p *Parser) match(kind token.Kind) (token.Token, bool) {
	if p.halted {
		return token.Token{}, false
	}
	tok, ok := p.curOrEOF()
	if !ok {
		p.errorf("expected " + kind.String() + ", found end of input")
		return token.Token{}, false
	}
	if tok.Kind != kind {
		p.errorfAt(tok, "expected "+kind.String()+", found "+tok.String())
		return token.Token{}, false
	}
	p.pos++
	p.lastPos = tok.Position
	return tok, true
}

func (p *Parser) matchSymbol(sym token.Symbol) (token.Token, bool) {
	if p.halted {
		return token.Token{}, false
	}
	tok, ok := p.curOrEOF()
	if !ok {
		p.errorf("expected '" + sym.String() + "', found end of input")
		return token.Token{}, false
	}
	if tok.Kind != token.KindSymbol || tok.Symbol != sym {
		p.errorfAt(tok, "expected '"+sym.String()+"', found "+tok.String())
		return token.Token{}, false
	}
	p.pos++
	p.lastPos = tok.Position
	return tok, true
}

func (p *Parser) matchKeyword(kw token.Keyword) (token.Token, bool) {
	if p.halted {
		return token.Token{}, false
	}
	tok, ok := p.curOrEOF()
	if !ok {
		p.errorf("expected '" + kw.String() + "', found end of input")
		return token.Token{}, false
	}
	if tok.Kind != token.KindKeyword || tok.Keyword != kw {
		p.errorfAt(tok, "expected '"+kw.String()+"', found "+tok.String())
		return token.Token{}, false
	}
	p.pos++
	p.lastPos = tok.Position
	return tok, true
}

func (p *Parser) curOrEOF() (token.Token, bool) {
	if p.pos >= len(p.tokens) {
		return token.Token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *Parser) errorfAt(tok token.Token, msg string) {
	if p.halted {
		return
	}
	p.halted = true
	p.sink.Log(diagnostics.Error, diagnostics.Parser, posMsg(tok.Position, msg))
}

func (p *Parser) errorf(msg string) {
	if p.halted {
		return
	}
	p.halted = true
	p.sink.Log(diagnostics.Error, diagnostics.Parser, posMsg(p.lastPos, msg))
}

func posMsg(pos token.Position, msg string) string {
	return msg + " at " + itoa(pos.Line) + ":" + itoa(pos.Column)
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
