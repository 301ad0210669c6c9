package parser

import (
	"errors"
	"strconv"
	"strings"

	"github.com/kos-lang/kos/ast"
	"github.com/kos-lang/kos/token"
)

// Precedence levels, lowest to highest, per spec.md §4.2.
//
// Logical, bitwise, shift, and comparison operators share a single
// "mixed" tier rather than each getting its own level: Kos defines no
// relative precedence between these classes, so combining two different
// classes at this tier without parentheses is a parse error (the
// mixed-operator diagnostic below) rather than silently picking a
// grouping. A run of same-class operators at this tier (`a && b && c`,
// `a | b | c`) is unambiguous and left-associates normally.
const (
	precLowest int = iota
	precTernary
	precMixed
	precAdditive
	precMultiplicative
	precUnary
	precPostfix
	precCall
)

func binaryPrecedence(tok token.Token) (int, bool) {
	if tok.Kind != token.Operator {
		return 0, false
	}
	switch tok.Operator {
	case token.OpLogOr, token.OpLogAnd,
		token.OpBitOr, token.OpBitXor, token.OpBitAnd,
		token.OpEq, token.OpNotEq,
		token.OpLt, token.OpLte, token.OpGt, token.OpGte,
		token.OpShl, token.OpShr, token.OpShru:
		return precMixed, true
	case token.OpAdd, token.OpSub:
		return precAdditive, true
	case token.OpMul, token.OpDiv, token.OpMod:
		return precMultiplicative, true
	default:
		return 0, false
	}
}

// parseExpression runs the Pratt-style precedence-climbing loop of
// spec.md §4.2: a prefix parse followed by repeated infix folding while
// the next operator binds at least as tightly as minPrec. Mixed-operator
// runs at the same precedence level from incompatible classes (e.g. `a ==
// b & c` without parentheses) raise a diagnostic rather than silently
// picking a grouping. Operators on different levels (e.g. `a + b & c`)
// group by precedence with no diagnostic.
func (p *Parser) parseExpression(minPrec int) *ast.Node {
	if !p.enterExpr() {
		return ast.New(ast.Invalid, p.cur)
	}
	defer p.leaveExpr()

	left := p.parseUnary()
	if left == nil {
		return nil
	}

	var lastClass token.OperatorClass = token.ClassNone
	lastPrec := -1
	for {
		// A newline before a binary operator ends the expression at
		// statement level; inside parentheses/brackets it is ignored.
		if p.hadEOL && p.groupDepth == 0 {
			break
		}
		prec, ok := binaryPrecedence(p.cur)
		if !ok || prec < minPrec {
			break
		}
		opTok := p.cur
		cls := opTok.Operator.Class()
		if prec == lastPrec && lastClass != token.ClassNone && cls != token.ClassNone && cls != lastClass {
			p.errorf(opTok.Pos, "mixing %v and %v operators requires parentheses", lastClass, cls)
		}
		lastClass, lastPrec = cls, prec
		p.advance()

		if opTok.Kind == token.Operator && opTok.Operator == token.OpQuestion {
			break
		}

		right := p.parseExpression(prec + 1)
		kind := ast.Binary
		if opTok.Operator == token.OpLogAnd || opTok.Operator == token.OpLogOr {
			kind = ast.Logical
		}
		n := ast.New(kind, opTok)
		n.Operand = int64(opTok.Operator)
		n.AddChild(left)
		n.AddChild(right)
		left = n
	}

	if p.curIsOp(token.OpQuestion) && minPrec <= precTernary {
		left = p.parseTernaryTail(left)
	}

	return left
}

func (p *Parser) parseTernaryTail(cond *ast.Node) *ast.Node {
	tok := p.cur
	p.advance() // '?'
	thenExpr := p.parseExpression(precLowest)
	p.expectSep(token.SepColon, "':'")
	elseExpr := p.parseExpression(precTernary)
	n := ast.New(ast.Ternary, tok)
	n.AddChild(cond)
	n.AddChild(thenExpr)
	n.AddChild(elseExpr)
	return n
}

func (p *Parser) parseUnary() *ast.Node {
	switch {
	case p.cur.Kind == token.Operator && (p.cur.Operator == token.OpSub ||
		p.cur.Operator == token.OpNot || p.cur.Operator == token.OpBitNot ||
		p.cur.Operator == token.OpAdd):
		tok := p.cur
		p.advance()
		operand := p.parseUnary()
		n := ast.New(ast.Unary, tok)
		n.Operand = int64(tok.Operator)
		n.AddChild(operand)
		return n
	case p.cur.Kind == token.Operator && (p.cur.Operator == token.OpIncr || p.cur.Operator == token.OpDecr):
		tok := p.cur
		p.advance()
		operand := p.parseUnary()
		n := ast.New(ast.Unary, tok)
		n.Operand = int64(tok.Operator)
		n.AddChild(operand)
		return n
	case p.curIsKeyword(token.KwTypeof):
		tok := p.cur
		p.advance()
		n := ast.New(ast.Typeof, tok)
		n.AddChild(p.parseUnary())
		return n
	default:
		return p.parsePostfix(p.parsePrimary())
	}
}

func (p *Parser) parsePostfix(expr *ast.Node) *ast.Node {
	if expr == nil {
		return nil
	}
	for {
		switch {
		case p.curIsOp(token.OpDot):
			tok := p.cur
			p.advance()
			prop, ok := p.expectIdentifier()
			if !ok {
				return expr
			}
			n := ast.New(ast.Member, tok)
			n.AddChild(expr)
			n.AddChild(prop)
			expr = n
		case p.curIsSep(token.SepLBracket) && (!p.hadEOL || p.groupDepth > 0):
			tok := p.cur
			p.advance()
			p.enterGroup()
			idx := p.parseExpression(precLowest)
			p.leaveGroup()
			p.expectSep(token.SepRBracket, "']'")
			n := ast.New(ast.Index, tok)
			n.AddChild(expr)
			n.AddChild(idx)
			expr = n
		case p.curIsSep(token.SepLParen) && (!p.hadEOL || p.groupDepth > 0):
			expr = p.parseCall(expr)
		case p.curIs(token.Identifier) && p.cur.Literal == "instanceof":
			tok := p.cur
			p.advance()
			rhs := p.parseUnary()
			n := ast.New(ast.InstanceOf, tok)
			n.AddChild(expr)
			n.AddChild(rhs)
			expr = n
		case !p.hadEOL && p.cur.Kind == token.Operator &&
			(p.cur.Operator == token.OpIncr || p.cur.Operator == token.OpDecr):
			tok := p.cur
			p.advance()
			n := ast.New(ast.PostfixIncDec, tok)
			n.Operand = int64(tok.Operator)
			n.AddChild(expr)
			expr = n
		default:
			return expr
		}
	}
}

func (p *Parser) parseCall(callee *ast.Node) *ast.Node {
	tok := p.cur
	n := ast.New(ast.Call, tok)
	n.AddChild(callee)
	p.advance() // '('
	p.enterGroup()
	for !p.curIsSep(token.SepRParen) && !p.curIs(token.EOF) {
		n.AddChild(p.parseArgument())
		if p.curIsSep(token.SepComma) {
			p.advance()
			continue
		}
		break
	}
	p.leaveGroup()
	p.expectSep(token.SepRParen, "')'")
	return n
}

func (p *Parser) parseArgument() *ast.Node {
	if p.curIsOp(token.OpDotDotDot) {
		tok := p.cur
		p.advance()
		n := ast.New(ast.Spread, tok)
		n.AddChild(p.parseExpression(precLowest))
		return n
	}
	if p.curIs(token.Identifier) && p.peekIs(token.Separator) && p.peekTok().Sep == token.SepColon {
		tok := p.cur
		name := p.cur.Literal
		p.advance()
		p.advance() // ':'
		n := ast.New(ast.NamedArgument, tok)
		n.Str = name
		n.AddChild(p.parseExpression(precLowest))
		return n
	}
	return p.parseExpression(precLowest)
}

func (p *Parser) parsePrimary() *ast.Node {
	tok := p.cur
	switch {
	case tok.Kind == token.Identifier:
		if lam := p.tryParseLambda(); lam != nil {
			return lam
		}
		p.advance()
		n := ast.New(ast.Identifier, tok)
		n.Str = tok.Literal
		return n
	case tok.Kind == token.Numeric:
		return p.parseNumber()
	case tok.Kind == token.String:
		p.advance()
		n := ast.New(ast.StringLiteral, tok)
		n.Str = tok.Literal
		return n
	case tok.Kind == token.StringOpen:
		return p.parseInterpolatedString()
	case tok.Kind == token.Keyword:
		return p.parseKeywordPrimary()
	case p.curIsSep(token.SepLParen):
		if lam := p.tryParseLambda(); lam != nil {
			return lam
		}
		p.advance()
		p.enterGroup()
		expr := p.parseExpression(precLowest)
		p.leaveGroup()
		p.expectSep(token.SepRParen, "')'")
		return expr
	case p.curIsSep(token.SepLBracket):
		return p.parseArrayLiteral()
	case p.curIsSep(token.SepLBrace):
		return p.parseObjectLiteral()
	case p.curIsOp(token.OpDotDotDot):
		p.advance()
		n := ast.New(ast.Spread, tok)
		n.AddChild(p.parseExpression(precUnary))
		return n
	default:
		p.errorf(tok.Pos, "unexpected token %q", tok.Literal)
		p.advance()
		return ast.New(ast.Invalid, tok)
	}
}

func (p *Parser) parseKeywordPrimary() *ast.Node {
	tok := p.cur
	switch tok.Keyword {
	case token.KwTrue, token.KwFalse:
		p.advance()
		n := ast.New(ast.BooleanLiteral, tok)
		n.Operand = 0
		if tok.Keyword == token.KwTrue {
			n.Operand = 1
		}
		return n
	case token.KwVoid:
		p.advance()
		return ast.New(ast.VoidLiteral, tok)
	case token.KwThis:
		if p.classDepth == 0 {
			p.errorf(tok.Pos, "'this' used outside of a class method")
		}
		p.advance()
		return ast.New(ast.This, tok)
	case token.KwSuper:
		if p.classDepth == 0 {
			p.errorf(tok.Pos, "'super' used outside of a class method")
		}
		p.advance()
		return ast.New(ast.Super, tok)
	case token.KwFun:
		p.advance()
		return p.parseFunctionLiteralBody(tok, false)
	case token.KwClass:
		p.advance()
		return p.parseClassLiteralBody(tok)
	case token.KwAsync:
		return p.parseAsync()
	case token.KwYield:
		return p.parseYield()
	case token.KwTypeof:
		p.advance()
		n := ast.New(ast.Typeof, tok)
		n.AddChild(p.parseUnary())
		return n
	default:
		p.errorf(tok.Pos, "unexpected keyword %q in expression", tok.Literal)
		p.advance()
		return ast.New(ast.Invalid, tok)
	}
}

// parseAsync desugars both `async EXPR` (spawn a call) and `async do {
// ... }` (spawn a block) into an Async node wrapping either the call
// expression or a zero-argument immediately-referenced function literal,
// per spec.md §4.2's AST-only desugaring (no runtime semantics implied
// here; the VM interprets Async, which is out of this module's scope).
func (p *Parser) parseAsync() *ast.Node {
	tok := p.cur
	p.advance()
	n := ast.New(ast.Async, tok)
	if p.curIsKeyword(token.KwDo) {
		p.advance()
		fnTok := p.cur
		p.funcDepth++
		body := p.parseBlock()
		p.funcDepth--
		fn := ast.New(ast.FunctionLiteral, fnTok)
		fn.AddChild(ast.New(ast.Parameters, fnTok))
		fn.AddChild(body)
		call := ast.New(ast.Call, fnTok)
		call.AddChild(fn)
		n.AddChild(call)
		return n
	}
	n.AddChild(p.parseUnary())
	return n
}

func (p *Parser) parseYield() *ast.Node {
	tok := p.cur
	if p.funcDepth == 0 {
		p.errorf(tok.Pos, "'yield' used outside of a function")
	}
	p.advance()
	n := ast.New(ast.Yield, tok)
	if !p.curIsSep(token.SepSemicolon) && !p.curIsSep(token.SepRParen) &&
		!p.curIsSep(token.SepRBrace) && !p.curIs(token.EOF) && !p.hadEOL {
		n.AddChild(p.parseExpression(precLowest))
	}
	return n
}

func (p *Parser) parseNumber() *ast.Node {
	tok := p.cur
	p.advance()
	lit := strings.ReplaceAll(tok.Literal, "_", "")
	if isFloatLiteral(lit) {
		// 'p'/'P' are accepted as exponent markers equivalently to 'e'/'E'
		// (preserved from the original grammar); strconv only understands
		// 'e'/'E' for decimal mantissas, so normalize before parsing.
		normalized := strings.NewReplacer("p", "e", "P", "E").Replace(lit)
		v, err := strconv.ParseFloat(normalized, 64)
		if err != nil {
			p.errorf(tok.Pos, "invalid float literal %q", tok.Literal)
		}
		n := ast.New(ast.FloatLiteral, tok)
		n.Str = tok.Literal
		n.Flt = v
		return n
	}
	base := 10
	switch tok.NumberBase {
	case token.Hexadecimal:
		base = 16
		lit = lit[2:]
	case token.Binary:
		base = 2
		lit = lit[2:]
	}
	v, err := strconv.ParseInt(lit, base, 64)
	if err != nil {
		// A literal whose value exceeds ±2⁶³−1 is a semantic error on a
		// well-formed token, never silently wrapped.
		if errors.Is(err, strconv.ErrRange) {
			p.compileErrorf(tok.Pos, "integer literal %q out of range", tok.Literal)
		} else {
			p.errorf(tok.Pos, "invalid integer literal %q", tok.Literal)
		}
	}
	n := ast.New(ast.IntegerLiteral, tok)
	n.Str = tok.Literal
	n.Operand = v
	return n
}

func isFloatLiteral(lit string) bool {
	return strings.ContainsAny(lit, ".eEpP") && !strings.HasPrefix(lit, "0x") && !strings.HasPrefix(lit, "0X")
}

// parseInterpolatedString consumes a StringOpen token and alternating
// embedded-expression / string-continuation segments until the final
// closed String token, per the lexer's StringOpen/ModeContinueString
// protocol (spec.md §4.1).
func (p *Parser) parseInterpolatedString() *ast.Node {
	tok := p.cur
	n := ast.New(ast.InterpolatedString, tok)

	first := ast.New(ast.StringLiteral, tok)
	first.Str = tok.Literal
	n.AddChild(first)

	for {
		p.advance() // consumes StringOpen/String, lexes the embedded expr's first token
		p.enterGroup()
		expr := p.parseExpression(precLowest)
		p.leaveGroup()
		n.AddChild(expr)

		if !p.curIsSep(token.SepRParen) {
			p.errorf(p.cur.Pos, "expected ')' to close string interpolation")
		}
		p.advanceContinueString()

		seg := ast.New(ast.StringLiteral, p.cur)
		seg.Str = p.cur.Literal
		n.AddChild(seg)

		if p.cur.Kind != token.StringOpen {
			p.advance()
			break
		}
	}

	return n
}

func (p *Parser) parseArrayLiteral() *ast.Node {
	tok := p.cur
	n := ast.New(ast.ArrayLiteral, tok)
	p.advance() // '['
	p.enterGroup()
	defer p.leaveGroup()
	for !p.curIsSep(token.SepRBracket) && !p.curIs(token.EOF) {
		if p.curIsOp(token.OpDotDotDot) {
			spreadTok := p.cur
			p.advance()
			sp := ast.New(ast.Spread, spreadTok)
			sp.AddChild(p.parseExpression(precLowest))
			n.AddChild(sp)
		} else {
			n.AddChild(p.parseExpression(precLowest))
		}
		if p.curIsSep(token.SepComma) {
			p.advance()
			continue
		}
		break
	}
	p.expectSep(token.SepRBracket, "']'")
	return n
}

func (p *Parser) parseObjectLiteral() *ast.Node {
	tok := p.cur
	n := ast.New(ast.ObjectLiteral, tok)
	p.advance() // '{'
	p.enterGroup()
	defer p.leaveGroup()
	for !p.curIsSep(token.SepRBrace) && !p.curIs(token.EOF) {
		n.AddChild(p.parsePropertyDef())
		if p.curIsSep(token.SepComma) {
			p.advance()
			continue
		}
		break
	}
	p.expectSep(token.SepRBrace, "'}'")
	return n
}

func (p *Parser) parsePropertyDef() *ast.Node {
	tok := p.cur
	if p.curIsOp(token.OpDotDotDot) {
		p.advance()
		sp := ast.New(ast.Spread, tok)
		sp.AddChild(p.parseExpression(precLowest))
		return sp
	}

	var keyStr string
	switch {
	case p.curIs(token.Identifier) || p.cur.Kind == token.Keyword:
		keyStr = p.cur.Literal
		p.advance()
	case p.curIs(token.String):
		keyStr = p.cur.Literal
		p.advance()
	case p.curIsSep(token.SepLBracket):
		p.advance()
		keyExpr := p.parseExpression(precLowest)
		p.expectSep(token.SepRBracket, "']'")
		p.expectSep(token.SepColon, "':'")
		n := ast.New(ast.PropertyDef, tok)
		n.AddChild(keyExpr)
		n.AddChild(p.parseExpression(precLowest))
		return n
	default:
		p.errorf(tok.Pos, "expected property name")
		p.advance()
		return ast.New(ast.Invalid, tok)
	}

	n := ast.New(ast.PropertyDef, tok)
	n.Str = keyStr

	if p.curIsSep(token.SepLParen) {
		// Shorthand method syntax: `name(params) { body }`.
		fn := p.parseFunctionLiteralBody(tok, false)
		n.AddChild(fn)
		return n
	}

	p.expectSep(token.SepColon, "':'")
	n.AddChild(p.parseExpression(precLowest))
	return n
}

// tryParseLambda speculatively scans ahead to see whether the current
// position begins a parenthesized (or bare-identifier) arrow-function
// parameter list, per spec.md §4.2's lookahead-then-rewind lambda
// detection. It returns nil (having consumed nothing visible to the
// caller beyond what a normal primary parse would) if the lookahead does
// not find `=>` after a balanced parameter list.
func (p *Parser) tryParseLambda() *ast.Node {
	if p.cur.Kind == token.Identifier && p.peekIs(token.Operator) && p.peekTok().Operator == token.OpArrow {
		tok := p.cur
		name := ast.New(ast.Name, tok)
		name.Str = tok.Literal
		params := ast.New(ast.Parameters, tok)
		params.AddChild(name)
		p.advance() // identifier
		p.advance() // '=>'
		return p.parseLambdaBody(tok, params)
	}

	if !p.curIsSep(token.SepLParen) {
		return nil
	}
	if !p.lookaheadIsLambdaParams() {
		return nil
	}
	tok := p.cur
	params := p.parseParameterList()
	p.expectOp(token.OpArrow, "'=>'")
	return p.parseLambdaBody(tok, params)
}

// lookaheadIsLambdaParams speculatively consumes tokens from the current
// '(' through its balanced ')' and reports whether the token after it is
// '=>', rewinding the lexer and every piece of parser token state before
// returning — spec.md §4.2's consume-then-rewind lambda detection. Any
// diagnostics raised while scanning ahead are discarded with the rest of
// the speculation.
func (p *Parser) lookaheadIsLambdaParams() bool {
	mark := p.lex.Mark()
	savedCur, savedPeek, savedPeekSet := p.cur, p.peek, p.peekSet
	savedHadEOL, savedPeekHadEOL := p.hadEOL, p.peekHadEOL
	savedErrs := len(p.errs)

	depth := 0
	isLambda := false
	for !p.curIs(token.EOF) && !p.curIs(token.Invalid) {
		if p.curIsSep(token.SepLParen) {
			depth++
		} else if p.curIsSep(token.SepRParen) {
			depth--
			if depth == 0 {
				p.advance()
				isLambda = p.curIsOp(token.OpArrow)
				break
			}
		}
		p.advance()
	}

	p.lex.Reset(mark)
	p.cur, p.peek, p.peekSet = savedCur, savedPeek, savedPeekSet
	p.hadEOL, p.peekHadEOL = savedHadEOL, savedPeekHadEOL
	p.errs = p.errs[:savedErrs]
	return isLambda
}

func (p *Parser) parseLambdaBody(tok token.Token, params *ast.Node) *ast.Node {
	fn := ast.New(ast.FunctionLiteral, tok)
	fn.AddChild(params)
	p.funcDepth++
	if p.curIsSep(token.SepLBrace) {
		fn.AddChild(p.parseBlock())
	} else {
		exprTok := p.cur
		expr := p.parseExpression(precLowest)
		body := ast.New(ast.Block, exprTok)
		ret := ast.New(ast.Return, exprTok)
		ret.AddChild(expr)
		body.AddChild(ret)
		fn.AddChild(body)
	}
	p.funcDepth--
	return fn
}

func (p *Parser) parseFunctionLiteralBody(tok token.Token, isMethod bool) *ast.Node {
	fn := ast.New(ast.FunctionLiteral, tok)
	params := p.parseParameterList()
	fn.AddChild(params)
	p.funcDepth++
	fn.AddChild(p.parseBlock())
	p.funcDepth--
	_ = isMethod
	return fn
}

func (p *Parser) parseParameterList() *ast.Node {
	tok := p.cur
	n := ast.New(ast.Parameters, tok)
	if !p.expectSep(token.SepLParen, "'('") {
		return n
	}
	p.enterGroup()
	defer p.leaveGroup()
	for !p.curIsSep(token.SepRParen) && !p.curIs(token.EOF) {
		if p.curIsOp(token.OpDotDotDot) {
			restTok := p.cur
			p.advance()
			name, ok := p.expectIdentifier()
			if ok {
				rest := ast.New(ast.RestParameter, restTok)
				rest.AddChild(name)
				n.AddChild(rest)
			}
		} else {
			name, ok := p.expectIdentifier()
			if !ok {
				break
			}
			if p.curIsOp(token.OpAssign) {
				p.advance()
				name.AddChild(p.parseExpression(precLowest))
			}
			n.AddChild(name)
		}
		if p.curIsSep(token.SepComma) {
			p.advance()
			continue
		}
		break
	}
	p.expectSep(token.SepRParen, "')'")
	return n
}

// parseClassLiteralBody parses `[extends EXPR] { member* }` following a
// `class` keyword already consumed by the caller. An absent explicit
// constructor gets an implicit empty one synthesized so codegen never
// needs to special-case "no constructor" (spec.md §4.2's empty-
// constructor synthesis).
func (p *Parser) parseClassLiteralBody(tok token.Token) *ast.Node {
	n := ast.New(ast.ClassLiteral, tok)
	derived := false
	if p.curIsKeyword(token.KwExtends) {
		p.advance()
		n.AddChild(p.parseUnary())
		derived = true
	}

	prevDerived := p.inDerived
	p.inDerived = derived
	p.classDepth++

	p.expectSep(token.SepLBrace, "'{'")
	sawCtor := false
	for !p.curIsSep(token.SepRBrace) && !p.curIs(token.EOF) {
		m := p.parseClassMember()
		if m != nil {
			if m.Str == "constructor" {
				sawCtor = true
			}
			n.AddChild(m)
		} else {
			break
		}
	}
	p.expectSep(token.SepRBrace, "'}'")

	if !sawCtor {
		n.AddChild(p.synthesizeEmptyConstructor(tok))
	}

	p.classDepth--
	p.inDerived = prevDerived
	return n
}

func (p *Parser) synthesizeEmptyConstructor(tok token.Token) *ast.Node {
	prop := ast.New(ast.PropertyDef, tok)
	prop.Str = "constructor"
	fn := ast.New(ast.FunctionLiteral, tok)
	fn.AddChild(ast.New(ast.Parameters, tok))
	fn.AddChild(ast.New(ast.Block, tok))
	prop.AddChild(fn)
	return prop
}

// parseClassMember handles one method, getter, setter, or field inside a
// class body, tolerating (and discarding, as spec.md's access-modifier
// keywords carry no runtime semantics the compiler front end enforces
// beyond parsing) leading `static`/`public`/`private`/`protected`
// modifiers.
func (p *Parser) parseClassMember() *ast.Node {
	for p.curIsKeyword(token.KwStatic) || p.curIsKeyword(token.KwPublic) ||
		p.curIsKeyword(token.KwPrivate) || p.curIsKeyword(token.KwProtected) {
		p.advance()
	}

	isGetter := p.curIsKeyword(token.KwGetter)
	isSetter := p.curIsKeyword(token.KwSetter)
	if isGetter || isSetter {
		p.advance()
	}

	if !p.curIs(token.Identifier) && p.cur.Kind != token.Keyword {
		p.errorf(p.cur.Pos, "expected member name")
		return nil
	}
	tok := p.cur
	name := p.cur.Literal
	p.advance()

	wasCtor := p.inCtorDepth
	if name == "constructor" {
		p.inCtorDepth++
	}

	prop := ast.New(ast.PropertyDef, tok)
	prop.Str = name
	if isGetter {
		prop.Str = "get " + name
	} else if isSetter {
		prop.Str = "set " + name
	}

	if p.curIsSep(token.SepLParen) {
		fn := p.parseFunctionLiteralBody(tok, true)
		prop.AddChild(fn)
	} else {
		p.expectSep(token.SepColon, "':'")
		prop.AddChild(p.parseExpression(precLowest))
		p.acceptTerminator()
	}

	p.inCtorDepth = wasCtor
	return prop
}
