package parser

import (
	"github.com/kos-lang/kos/ast"
	"github.com/kos-lang/kos/token"
)

func (p *Parser) parseStatement() *ast.Node {
	if p.cur.Kind != token.Keyword || p.cur.Keyword != token.KwImport {
		p.seenNonImport = true
	}
	if p.cur.Kind == token.Keyword {
		switch p.cur.Keyword {
		case token.KwVar, token.KwConst:
			return p.parseVarDecl(false)
		case token.KwPublic:
			return p.parsePublicDecl()
		case token.KwIf:
			return p.parseIf()
		case token.KwWhile:
			return p.parseWhile()
		case token.KwRepeat:
			return p.parseRepeat()
		case token.KwFor:
			return p.parseFor()
		case token.KwTry:
			return p.parseTry()
		case token.KwDefer:
			return p.parseDefer()
		case token.KwThrow:
			return p.parseThrow()
		case token.KwBreak:
			return p.parseSimpleKeywordStmt(ast.Break, "break")
		case token.KwContinue:
			return p.parseSimpleKeywordStmt(ast.Continue, "continue")
		case token.KwFallthrough:
			return p.parseSimpleKeywordStmt(ast.Fallthrough, "fallthrough")
		case token.KwReturn:
			return p.parseReturn()
		case token.KwSwitch:
			return p.parseSwitch()
		case token.KwImport:
			return p.parseImport()
		case token.KwClass:
			return p.parseClassDecl(false)
		case token.KwAssert:
			return p.parseAssert()
		case token.KwFun:
			return p.parseFunctionStatement(false)
		case token.KwWith:
			return p.parseWith()
		}
	}
	if p.curIsSep(token.SepLBrace) {
		return p.parseBlock()
	}
	return p.parseExprStatement()
}

func (p *Parser) parseVarDecl(public bool) *ast.Node {
	isConst := p.curIsKeyword(token.KwConst)
	tok := p.cur
	p.advance()

	kind := ast.VarDecl
	switch {
	case isConst && public:
		kind = ast.PublicConstDecl
	case isConst:
		kind = ast.ConstDecl
	case public:
		kind = ast.PublicVarDecl
	}

	n := ast.New(kind, tok)
	name, ok := p.expectIdentifier()
	if !ok {
		return nil
	}
	n.AddChild(name)

	if p.curIsOp(token.OpAssign) {
		p.advance()
		if !p.enterExpr() {
			return n
		}
		name.AddChild(p.parseExpression(precLowest))
		p.leaveExpr()
	} else if isConst {
		p.errorf(tok.Pos, "const declaration requires an initializer")
	}

	p.acceptTerminator()
	return n
}

func (p *Parser) parsePublicDecl() *ast.Node {
	p.advance() // 'public'
	if p.curIsKeyword(token.KwVar) || p.curIsKeyword(token.KwConst) {
		return p.parseVarDecl(true)
	}
	if p.curIsKeyword(token.KwFun) {
		return p.parseFunctionStatement(true)
	}
	if p.curIsKeyword(token.KwClass) {
		return p.parseClassDecl(true)
	}
	p.errorf(p.cur.Pos, "expected var, const, fun, or class after 'public'")
	return nil
}

// parseFunctionStatement desugars `fun name(...) { ... }` into
// `const name = fun(...) { ... };`, marking the binding IsConstFun-
// eligible (spec.md §4.2's function-statement lowering; the self
// reference inside the body resolves through the same const binding).
func (p *Parser) parseFunctionStatement(public bool) *ast.Node {
	tok := p.cur
	p.advance()
	name, ok := p.expectIdentifier()
	if !ok {
		return nil
	}
	fn := p.parseFunctionLiteralBody(tok, false)
	name.AddChild(fn)

	kind := ast.ConstDecl
	if public {
		kind = ast.PublicConstDecl
	}
	n := ast.New(kind, tok)
	n.AddChild(name)
	p.acceptTerminator()
	return n
}

func (p *Parser) parseClassDecl(public bool) *ast.Node {
	tok := p.cur
	p.advance()
	name, ok := p.expectIdentifier()
	if !ok {
		return nil
	}
	lit := p.parseClassLiteralBody(tok)

	kind := ast.ClassDecl
	_ = public // public classes still desugar through ClassDecl; the
	// resolver places the binding in the module scope regardless, since
	// class statements are only legal at top level.
	n := ast.New(kind, tok)
	n.AddChild(name)
	n.AddChild(lit)
	p.acceptTerminator()
	return n
}

func (p *Parser) parseBlock() *ast.Node {
	tok := p.cur
	n := ast.New(ast.Block, tok)
	p.advance() // '{'
	for !p.curIsSep(token.SepRBrace) && !p.curIs(token.EOF) {
		if p.curIsSep(token.SepSemicolon) {
			p.advance()
			continue
		}
		stmt := p.parseStatement()
		if stmt != nil {
			n.AddChild(stmt)
		} else if !p.curIsSep(token.SepRBrace) && !p.curIs(token.EOF) {
			p.advance()
		}
	}
	p.expectSep(token.SepRBrace, "'}'")
	return n
}

func (p *Parser) parseIf() *ast.Node {
	tok := p.cur
	n := ast.New(ast.If, tok)
	p.advance()
	p.expectSep(token.SepLParen, "'('")
	p.enterGroup()
	if !p.enterExpr() {
		p.leaveGroup()
		return n
	}
	n.AddChild(p.parseExpression(precLowest))
	p.leaveExpr()
	p.leaveGroup()
	p.expectSep(token.SepRParen, "')'")
	n.AddChild(p.parseStatement())
	if p.curIsKeyword(token.KwElse) {
		p.advance()
		n.AddChild(p.parseStatement())
	}
	return n
}

func (p *Parser) parseWhile() *ast.Node {
	tok := p.cur
	n := ast.New(ast.While, tok)
	p.advance()
	p.expectSep(token.SepLParen, "'('")
	p.enterGroup()
	n.AddChild(p.parseExpression(precLowest))
	p.leaveGroup()
	p.expectSep(token.SepRParen, "')'")
	p.loopDepth++
	n.AddChild(p.parseStatement())
	p.loopDepth--
	return n
}

func (p *Parser) parseRepeat() *ast.Node {
	tok := p.cur
	n := ast.New(ast.Repeat, tok)
	p.advance()
	p.loopDepth++
	n.AddChild(p.parseStatement())
	p.loopDepth--
	p.expectKeyword(token.KwWhile, "'while'")
	p.expectSep(token.SepLParen, "'('")
	p.enterGroup()
	n.AddChild(p.parseExpression(precLowest))
	p.leaveGroup()
	p.expectSep(token.SepRParen, "')'")
	p.acceptTerminator()
	return n
}

// parseFor handles both the classic three-clause `for (init; cond; post)`
// form and `for (name in expr)` iteration, disambiguating by scanning for
// the `in` keyword before the first ';' (spec.md §4.2).
func (p *Parser) parseFor() *ast.Node {
	tok := p.cur
	p.advance()
	p.expectSep(token.SepLParen, "'('")
	p.enterGroup()

	if p.curIs(token.Identifier) && p.peekIsKeyword(token.KwIn) {
		name, _ := p.expectIdentifier()
		p.advance() // 'in'
		n := ast.New(ast.ForIn, tok)
		n.AddChild(name)
		n.AddChild(p.parseExpression(precLowest))
		p.leaveGroup()
		p.expectSep(token.SepRParen, "')'")
		p.loopDepth++
		n.AddChild(p.parseStatement())
		p.loopDepth--
		return n
	}

	n := ast.New(ast.For, tok)
	initStmt := ast.New(ast.Landmark, p.cur)
	if !p.curIsSep(token.SepSemicolon) {
		initStmt = p.parseForInit()
	}
	n.AddChild(initStmt)
	p.expectSep(token.SepSemicolon, "';'")

	cond := ast.New(ast.Landmark, p.cur)
	if !p.curIsSep(token.SepSemicolon) {
		cond = p.parseExpression(precLowest)
	}
	n.AddChild(cond)
	p.expectSep(token.SepSemicolon, "';'")

	post := ast.New(ast.Landmark, p.cur)
	if !p.curIsSep(token.SepRParen) {
		post = p.parseAssignOrExpr()
	}
	n.AddChild(post)
	p.leaveGroup()
	p.expectSep(token.SepRParen, "')'")

	p.loopDepth++
	n.AddChild(p.parseStatement())
	p.loopDepth--
	return n
}

func (p *Parser) peekIsKeyword(kw token.KeywordID) bool {
	t := p.peekTok()
	return t.Kind == token.Keyword && t.Keyword == kw
}

func (p *Parser) parseForInit() *ast.Node {
	if p.curIsKeyword(token.KwVar) || p.curIsKeyword(token.KwConst) {
		isConst := p.curIsKeyword(token.KwConst)
		tok := p.cur
		p.advance()
		kind := ast.VarDecl
		if isConst {
			kind = ast.ConstDecl
		}
		n := ast.New(kind, tok)
		name, ok := p.expectIdentifier()
		if !ok {
			return nil
		}
		n.AddChild(name)
		if p.curIsOp(token.OpAssign) {
			p.advance()
			name.AddChild(p.parseExpression(precLowest))
		}
		return n
	}
	return p.parseAssignOrExpr()
}

func (p *Parser) parseTry() *ast.Node {
	tok := p.cur
	n := ast.New(ast.Try, tok)
	p.advance()
	n.AddChild(p.parseBlock())
	for p.curIsKeyword(token.KwCatch) {
		n.AddChild(p.parseCatch())
	}
	return n
}

func (p *Parser) parseCatch() *ast.Node {
	tok := p.cur
	n := ast.New(ast.Catch, tok)
	p.advance()
	if p.curIsSep(token.SepLParen) {
		p.advance()
		name, ok := p.expectIdentifier()
		if ok {
			n.AddChild(name)
		}
		p.expectSep(token.SepRParen, "')'")
	}
	n.AddChild(p.parseBlock())
	return n
}

// parseDefer handles both `defer EXPR;` and the `with EXPR { ... }`
// desugaring target: `with` lowers to a block containing a defer of the
// resource's cleanup followed by the body (spec.md §4.2).
func (p *Parser) parseDefer() *ast.Node {
	tok := p.cur
	n := ast.New(ast.Defer, tok)
	p.advance()
	n.AddChild(p.parseExpression(precLowest))
	p.acceptTerminator()
	return n
}

// parseWith desugars `with EXPR { BODY }` into
// `{ const __with_resource = EXPR; defer __with_resource.close(); try { BODY } }`-
// shaped AST nodes (the try has no catch clause) (spec.md §4.2 Non-goals keep resource semantics out,
// but the lowering itself is retained so the parser's output shape
// matches the original's desugaring pass).
func (p *Parser) parseWith() *ast.Node {
	tok := p.cur
	p.advance()
	resource := p.parseExpression(precLowest)
	body := p.parseBlock()

	block := ast.New(ast.Block, tok)

	decl := ast.New(ast.ConstDecl, tok)
	name := ast.New(ast.Name, tok)
	name.Str = "__with_resource"
	name.AddChild(resource)
	decl.AddChild(name)
	block.AddChild(decl)

	tryNode := ast.New(ast.Try, tok)
	tryNode.AddChild(body)
	deferNode := ast.New(ast.Defer, tok)
	deferNode.AddChild(p.closeCallOn(tok, "__with_resource"))
	block.AddChild(deferNode)
	block.AddChild(tryNode)
	return block
}

func (p *Parser) closeCallOn(tok token.Token, varName string) *ast.Node {
	ident := ast.New(ast.Identifier, tok)
	ident.Str = varName
	member := ast.New(ast.Member, tok)
	member.AddChild(ident)
	prop := ast.New(ast.Name, tok)
	prop.Str = "close"
	member.AddChild(prop)
	call := ast.New(ast.Call, tok)
	call.AddChild(member)
	return call
}

func (p *Parser) parseThrow() *ast.Node {
	tok := p.cur
	n := ast.New(ast.Throw, tok)
	p.advance()
	n.AddChild(p.parseExpression(precLowest))
	p.acceptTerminator()
	return n
}

func (p *Parser) parseSimpleKeywordStmt(kind ast.Kind, what string) *ast.Node {
	tok := p.cur
	switch kind {
	case ast.Break, ast.Continue:
		if p.loopDepth == 0 {
			p.errorf(tok.Pos, "%s outside of loop", what)
		}
	case ast.Fallthrough:
		if p.switchDepth == 0 {
			p.errorf(tok.Pos, "fallthrough outside of switch")
		}
	}
	p.advance()
	n := ast.New(kind, tok)
	p.acceptTerminator()
	return n
}

func (p *Parser) parseReturn() *ast.Node {
	tok := p.cur
	if p.funcDepth == 0 {
		p.errorf(tok.Pos, "return outside of function")
	}
	n := ast.New(ast.Return, tok)
	p.advance()
	if !p.curIsSep(token.SepSemicolon) && !p.curIsSep(token.SepRBrace) && !p.curIs(token.EOF) && !p.hadEOL {
		n.AddChild(p.parseExpression(precLowest))
	}
	p.acceptTerminator()
	return n
}

func (p *Parser) parseSwitch() *ast.Node {
	tok := p.cur
	n := ast.New(ast.Switch, tok)
	p.advance()
	p.expectSep(token.SepLParen, "'('")
	p.enterGroup()
	n.AddChild(p.parseExpression(precLowest))
	p.leaveGroup()
	p.expectSep(token.SepRParen, "')'")
	p.expectSep(token.SepLBrace, "'{'")

	p.switchDepth++
	for p.curIsKeyword(token.KwCase) || p.curIsKeyword(token.KwDefault) {
		n.AddChild(p.parseCaseOrDefault())
	}
	p.switchDepth--
	p.expectSep(token.SepRBrace, "'}'")
	return n
}

func (p *Parser) parseCaseOrDefault() *ast.Node {
	isDefault := p.curIsKeyword(token.KwDefault)
	tok := p.cur
	kind := ast.Case
	if isDefault {
		kind = ast.Default
	}
	n := ast.New(kind, tok)
	p.advance()
	if !isDefault {
		n.AddChild(p.parseExpression(precLowest))
	}
	p.expectSep(token.SepColon, "':'")
	for !p.curIsKeyword(token.KwCase) && !p.curIsKeyword(token.KwDefault) &&
		!p.curIsSep(token.SepRBrace) && !p.curIs(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			n.AddChild(stmt)
		} else {
			break
		}
	}
	return n
}

func (p *Parser) parseAssert() *ast.Node {
	tok := p.cur
	n := ast.New(ast.Assert, tok)
	p.advance()
	n.AddChild(p.parseExpression(precLowest))
	p.acceptTerminator()
	return n
}

// parseImport handles the four import forms of spec.md §4.2:
// `import name;`, `import name.sym;`, `import name: sym1, sym2;`, and
// `import name.*;`.
func (p *Parser) parseImport() *ast.Node {
	tok := p.cur
	if p.seenNonImport {
		p.errorf(tok.Pos, "import statements must precede other statements")
	}
	n := ast.New(ast.Import, tok)
	p.advance()
	name, ok := p.expectIdentifier()
	if !ok {
		return nil
	}
	n.Str = name.Str

	switch {
	case p.curIsOp(token.OpDot):
		p.advance()
		if p.curIsOp(token.OpMul) {
			p.advance()
			n.AddChild(ast.New(ast.ImportStar, tok))
		} else if sym, ok := p.expectIdentifier(); ok {
			symNode := ast.New(ast.ImportSymbol, sym.Token)
			symNode.Str = sym.Str
			n.AddChild(symNode)
		}
	case p.curIsSep(token.SepColon):
		p.advance()
		for {
			sym, ok := p.expectIdentifier()
			if !ok {
				break
			}
			symNode := ast.New(ast.ImportSymbol, sym.Token)
			symNode.Str = sym.Str
			n.AddChild(symNode)
			if p.curIsSep(token.SepComma) {
				p.advance()
				continue
			}
			break
		}
	}

	p.acceptTerminator()
	return n
}

func (p *Parser) parseExprStatement() *ast.Node {
	p.seenNonImport = true
	n := p.parseAssignOrExpr()
	if n == nil {
		return nil
	}
	p.acceptTerminator()
	return n
}

// parseAssignOrExpr parses an expression optionally followed by an
// assignment tail — plain, compound, or multi-assignment — without
// consuming a statement terminator, so it can serve both expression
// statements and `for` init/post clauses.
func (p *Parser) parseAssignOrExpr() *ast.Node {
	tok := p.cur
	expr := p.parseExpression(precLowest)
	if expr == nil {
		return nil
	}

	if isAssignTarget(expr) && p.curIsSep(token.SepComma) {
		// `a, b, c = expr;` — multi-assignment is its own node kind, not
		// lowered here (spec.md §4.2); children are the targets followed by
		// the single value expression.
		n := ast.New(ast.MultiAssign, tok)
		n.AddChild(expr)
		for p.curIsSep(token.SepComma) {
			p.advance()
			target := p.parseExpression(precLowest)
			if target != nil && !isAssignTarget(target) {
				p.errorf(target.Token.Pos, "expected assignable expression in multi-assignment")
			}
			n.AddChild(target)
		}
		p.expectOp(token.OpAssign, "'='")
		n.AddChild(p.parseExpression(precLowest))
		return n
	}

	if isAssignTarget(expr) && p.curIsOp(token.OpAssign) {
		p.advance()
		n := ast.New(ast.Assign, tok)
		n.AddChild(expr)
		n.AddChild(p.parseExpression(precLowest))
		return n
	}
	if op, ok := compoundAssignOp(p.cur); ok && isAssignTarget(expr) {
		p.advance()
		n := ast.New(ast.Assign, tok)
		n.AddChild(expr)
		rhs := ast.New(ast.Binary, p.cur)
		rhs.Operand = int64(op)
		rhs.AddChild(cloneRef(expr))
		rhs.AddChild(p.parseExpression(precLowest))
		n.AddChild(rhs)
		return n
	}

	n := ast.New(ast.ExprStmt, tok)
	n.AddChild(expr)
	return n
}

func isAssignTarget(n *ast.Node) bool {
	switch n.Kind {
	case ast.Identifier, ast.Member, ast.Index:
		return true
	default:
		return false
	}
}

// cloneRef makes a shallow reference copy of a simple lvalue expression
// for use as both the read and write side of a compound assignment
// (`x += y` desugars to `x = x + y`); safe because Identifier/Member/
// Index subtrees parsed once are not mutated by later passes in place —
// later passes replace annotations, not Children.
func cloneRef(n *ast.Node) *ast.Node {
	c := ast.New(n.Kind, n.Token)
	c.Str = n.Str
	for child := n.Children; child != nil; child = child.Next {
		c.AddChild(cloneRef(child))
	}
	return c
}

func compoundAssignOp(tok token.Token) (token.OperatorCode, bool) {
	if tok.Kind != token.Operator {
		return 0, false
	}
	switch tok.Operator {
	case token.OpAddAssign:
		return token.OpAdd, true
	case token.OpSubAssign:
		return token.OpSub, true
	case token.OpMulAssign:
		return token.OpMul, true
	case token.OpDivAssign:
		return token.OpDiv, true
	case token.OpModAssign:
		return token.OpMod, true
	case token.OpBitAndAssign:
		return token.OpBitAnd, true
	case token.OpBitOrAssign:
		return token.OpBitOr, true
	case token.OpBitXorAssign:
		return token.OpBitXor, true
	case token.OpShlAssign:
		return token.OpShl, true
	case token.OpShrAssign:
		return token.OpShr, true
	default:
		return 0, false
	}
}
