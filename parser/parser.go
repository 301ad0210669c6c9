// Package parser implements the Kos recursive-descent, Pratt-style
// expression parser of spec.md §4.2, turning a [lexer.Lexer]'s token
// stream into the uniform [ast.Node] tree defined by package ast.
//
// Grounded on the teacher's (dr8co/kong) parser.go structure — a single
// Parser struct holding curToken/peekToken plus prefix/infix function
// tables keyed by token kind — generalized from kong's Monkey-language
// grammar to Kos's statement set, context-sensitive keyword rules, and
// desugarings (spec.md §4.2's async/with/class-statement lowering).
package parser

import (
	"github.com/kos-lang/kos/ast"
	"github.com/kos-lang/kos/diag"
	"github.com/kos-lang/kos/lexer"
	"github.com/kos-lang/kos/token"
)

// MaxExprDepth bounds recursive-descent nesting, per spec.md §4.2's
// stack-overflow guard: exceeding it raises a ParseFailed diagnostic
// instead of corrupting the process stack.
const MaxExprDepth = 400

// Parser turns one file's token stream into an AST. It is single-use:
// construct with New, call Parse once.
type Parser struct {
	lex *lexer.Lexer

	cur token.Token

	// peek is fetched lazily, only when something actually queries it via
	// peekTok/peekIs/peekIsKeyword, and never as a side effect of advance.
	// This matters for string interpolation (see advanceContinueString):
	// the token immediately following an interpolation's closing ')' must
	// be lexed in ModeContinueString, not ModeAny, and an eager one-token
	// lookahead would have already (wrongly) consumed it in ModeAny by
	// the time the parser notices it's looking at ')'.
	peek    token.Token
	peekSet bool

	// hadEOL is true when at least one newline (or comment spanning one)
	// was skipped between the previous token and cur — the implicit-
	// semicolon signal of spec.md §4.1/§4.2.
	hadEOL     bool
	peekHadEOL bool

	depth int

	// groupDepth counts enclosing '(' / '[' contexts. A newline before a
	// '(', '[', or binary operator terminates the current expression only
	// when this is zero (spec.md §4.2's ambiguity rule): `foo\n(bar)` is
	// two statements, `(foo\n+ bar)` stays one expression.
	groupDepth int

	errs []*diag.Error

	// Context-sensitive keyword validity, threaded through recursive
	// descent rather than kept globally (spec.md §4.2).
	funcDepth   int
	loopDepth   int
	switchDepth int
	classDepth  int
	inCtorDepth int
	inDerived   bool

	seenNonImport bool
}

// New creates a parser reading from lex and primes cur with the first
// token. peek is left unfetched; it is filled in lazily on first query.
func New(lex *lexer.Lexer) *Parser {
	p := &Parser{lex: lex}
	p.cur = p.lexOne(lexer.ModeAny)
	return p
}

// Errors returns every diagnostic accumulated during Parse.
func (p *Parser) Errors() []*diag.Error { return p.errs }

func (p *Parser) errorf(pos diag.Position, format string, args ...any) {
	p.errs = append(p.errs, diag.New(diag.ParseFailed, pos, format, args...))
}

// compileErrorf raises a CompileFailed (not ParseFailed) diagnostic for
// the few value-range errors the parser itself detects, e.g. an integer
// literal outside int64 range: the text is syntactically well-formed, the
// value is what's illegal.
func (p *Parser) compileErrorf(pos diag.Position, format string, args ...any) {
	p.errs = append(p.errs, diag.New(diag.CompileFailed, pos, format, args...))
}

// lexOne fetches one token in mode, reporting lexer errors as diagnostics.
func (p *Parser) lexOne(mode lexer.Mode) token.Token {
	tok, err := p.lex.NextToken(mode)
	if err != nil {
		if derr, ok := err.(*diag.Error); ok {
			p.errs = append(p.errs, derr)
		} else {
			p.errorf(p.cur.Pos, "%s", err.Error())
		}
		tok = token.Token{Kind: token.Invalid, Pos: p.cur.Pos}
	}
	return tok
}

// advance moves to the next token: if peek has already been fetched (the
// common case, since most parsing decisions query it), it is shifted into
// cur; otherwise cur is fetched directly. No new peek is fetched as a
// side effect — see the peekSet field comment.
func (p *Parser) advance() {
	if p.peekSet {
		p.cur = p.peek
		p.hadEOL = p.peekHadEOL
		p.peekSet = false
		return
	}
	prevLine := p.cur.Pos.Line
	tok := p.lexOne(lexer.ModeAny)
	p.hadEOL = prevLine != 0 && tok.Pos.Line != prevLine
	p.cur = tok
}

// ensurePeek lazily fetches peek in ModeAny if it has not been fetched
// for the current cur yet.
func (p *Parser) ensurePeek() {
	if p.peekSet {
		return
	}
	prevLine := p.cur.Pos.Line
	tok := p.lexOne(lexer.ModeAny)
	p.peekHadEOL = prevLine != 0 && tok.Pos.Line != prevLine
	p.peek = tok
	p.peekSet = true
}

func (p *Parser) peekTok() token.Token {
	p.ensurePeek()
	return p.peek
}

// advanceContinueString resumes a string literal after the parser has
// consumed an interpolated expression's closing ')', per the StringOpen
// protocol of spec.md §4.1. It must be called with peek unfetched — true
// immediately after parsing an interpolation's embedded expression, since
// nothing queries peek while cur is that closing ')' (see
// parseInterpolatedString) — so the byte position is exactly where the
// string body resumes.
func (p *Parser) advanceContinueString() {
	p.cur = p.lexOne(lexer.ModeContinueString)
	p.hadEOL = false
	p.peekSet = false
}

func (p *Parser) curIs(k token.Kind) bool  { return p.cur.Kind == k }
func (p *Parser) peekIs(k token.Kind) bool { return p.peekTok().Kind == k }

func (p *Parser) curIsKeyword(kw token.KeywordID) bool {
	return p.cur.Kind == token.Keyword && p.cur.Keyword == kw
}

func (p *Parser) curIsSep(s token.SeparatorCode) bool {
	return p.cur.Kind == token.Separator && p.cur.Sep == s
}

func (p *Parser) curIsOp(code token.OperatorCode) bool {
	return p.cur.Kind == token.Operator && p.cur.Operator == code
}

func (p *Parser) expectSep(s token.SeparatorCode, what string) bool {
	if !p.curIsSep(s) {
		p.errorf(p.cur.Pos, "expected %s, got %q", what, p.cur.Literal)
		return false
	}
	p.advance()
	return true
}

func (p *Parser) expectOp(code token.OperatorCode, what string) bool {
	if !p.curIsOp(code) {
		p.errorf(p.cur.Pos, "expected %s, got %q", what, p.cur.Literal)
		return false
	}
	p.advance()
	return true
}

func (p *Parser) expectKeyword(kw token.KeywordID, what string) bool {
	if !p.curIsKeyword(kw) {
		p.errorf(p.cur.Pos, "expected %s, got %q", what, p.cur.Literal)
		return false
	}
	p.advance()
	return true
}

func (p *Parser) expectIdentifier() (*ast.Node, bool) {
	if !p.curIs(token.Identifier) {
		p.errorf(p.cur.Pos, "expected identifier, got %q", p.cur.Literal)
		return nil, false
	}
	n := ast.New(ast.Name, p.cur)
	n.Str = p.cur.Literal
	p.advance()
	return n, true
}

// acceptTerminator consumes the statement terminator at the current
// position: an explicit ';', or an implicit one licensed by a preceding
// EOL, a following '}', or EOF (spec.md §4.2).
func (p *Parser) acceptTerminator() {
	if p.curIsSep(token.SepSemicolon) {
		p.advance()
		return
	}
	if p.hadEOL || p.curIsSep(token.SepRBrace) || p.curIs(token.EOF) {
		return
	}
	p.errorf(p.cur.Pos, "expected statement terminator, got %q", p.cur.Literal)
}

func (p *Parser) enterExpr() bool {
	p.depth++
	if p.depth > MaxExprDepth {
		p.errorf(p.cur.Pos, "expression nesting too deep")
		return false
	}
	return true
}

func (p *Parser) leaveExpr() { p.depth-- }

func (p *Parser) enterGroup() { p.groupDepth++ }
func (p *Parser) leaveGroup() { p.groupDepth-- }

// Parse consumes the entire token stream and returns the module's
// top-level Program node. Statements keep their source order; an `import`
// after any other statement is a ParseFailed diagnostic, which keeps the
// imports at the front of Program's child list, where the resolver (see
// sema.hoistImports) expects them.
func (p *Parser) Parse() *ast.Node {
	program := ast.New(ast.Program, p.cur)

	for !p.curIs(token.EOF) {
		if p.curIsSep(token.SepSemicolon) {
			p.advance()
			continue
		}
		stmt := p.parseStatement()
		if stmt != nil {
			program.AddChild(stmt)
		} else {
			// Avoid an infinite loop on an unrecoverable token.
			if !p.curIs(token.EOF) {
				p.advance()
			}
		}
	}

	return program
}
