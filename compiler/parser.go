package compiler

import "fmt"

// Parser is a recursive-descent parser over a Scanner's token stream. It
// keeps a small pending-token buffer so that statement and expression rules
// can peek ahead (the assign rule needs to see IDENT "=" before committing
// to an assignment) without needing to capture and restore scanner state.
type Parser struct {
	sc      *Scanner
	pending []Token
}

// NewParser returns a Parser reading from src.
func NewParser(src []byte) *Parser {
	return &Parser{sc: NewScanner(src)}
}

// Parse runs the full program grammar and returns the top-level tree.
func Parse(src []byte) (*Node, error) {
	return NewParser(src).ParseProgram()
}

func (p *Parser) fill(n int) error {
	for len(p.pending) <= n {
		tok, err := p.sc.Next()
		if err != nil {
			return err
		}
		p.pending = append(p.pending, tok)
	}
	return nil
}

// peek returns the token n positions ahead of the current one (peek(0) is
// the current token).
func (p *Parser) peek(n int) (Token, error) {
	if err := p.fill(n); err != nil {
		return Token{}, err
	}
	return p.pending[n], nil
}

func (p *Parser) cur() (Token, error) { return p.peek(0) }

// advance consumes and returns the current token.
func (p *Parser) advance() (Token, error) {
	t, err := p.peek(0)
	if err != nil {
		return Token{}, err
	}
	p.pending = p.pending[1:]
	return t, nil
}

func (p *Parser) syntaxErrorf(offset int, format string, args ...interface{}) error {
	return &SyntaxError{Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

// expect consumes the current token, failing if its kind does not match.
func (p *Parser) expect(kind Kind) (Token, error) {
	t, err := p.cur()
	if err != nil {
		return Token{}, err
	}
	if t.Kind != kind {
		return Token{}, p.syntaxErrorf(t.Offset, "expected %v, got %v", kind, t.Kind)
	}
	return p.advance()
}

func (p *Parser) at(kind Kind) (bool, error) {
	t, err := p.cur()
	if err != nil {
		return false, err
	}
	return t.Kind == kind, nil
}

// accept consumes the current token if it matches kind, reporting whether it did.
func (p *Parser) accept(kind Kind) (bool, error) {
	ok, err := p.at(kind)
	if err != nil || !ok {
		return false, err
	}
	_, err = p.advance()
	return true, err
}

// ParseProgram parses top-level := ( "int" function )*
func (p *Parser) ParseProgram() (*Node, error) {
	top := newNode(NodeTopLevel, 0)
	for {
		t, err := p.cur()
		if err != nil {
			return nil, err
		}
		if t.Kind == KindEOF {
			break
		}
		if _, err := p.expect(KindInt); err != nil {
			return nil, err
		}
		fn, err := p.parseFunction()
		if err != nil {
			return nil, err
		}
		top.Children = append(top.Children, fn)
	}
	return top, nil
}

// parseFunction := IDENT "(" params-def ")" block
func (p *Parser) parseFunction() (*Node, error) {
	name, err := p.expect(KindIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(KindLParen); err != nil {
		return nil, err
	}
	params, err := p.parseParamsDef()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(KindRParen); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	fn := newNode(NodeFunction, name.Offset)
	fn.Name = name.Name
	ident := newNode(NodeIdentifier, name.Offset)
	ident.Name = name.Name
	fn.Children = []*Node{ident, params, body}
	return fn, nil
}

// parseParamsDef := ( "int" IDENT ( "," "int" IDENT )* )?
func (p *Parser) parseParamsDef() (*Node, error) {
	t, err := p.cur()
	if err != nil {
		return nil, err
	}
	params := newNode(NodeParams, t.Offset)
	if t.Kind != KindInt {
		return params, nil
	}
	for {
		if _, err := p.expect(KindInt); err != nil {
			return nil, err
		}
		name, err := p.expect(KindIdent)
		if err != nil {
			return nil, err
		}
		ident := newNode(NodeIdentifier, name.Offset)
		ident.Name = name.Name
		params.Children = append(params.Children, ident)

		ok, err := p.accept(KindComma)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
	}
	return params, nil
}

// parseBlock := "{" block-item* "}"
func (p *Parser) parseBlock() (*Node, error) {
	open, err := p.expect(KindLBrace)
	if err != nil {
		return nil, err
	}
	block := newNode(NodeBlock, open.Offset)
	for {
		t, err := p.cur()
		if err != nil {
			return nil, err
		}
		if t.Kind == KindRBrace {
			break
		}
		if t.Kind == KindEOF {
			return nil, p.syntaxErrorf(t.Offset, "unexpected end of input in block")
		}
		item, err := p.parseBlockItem()
		if err != nil {
			return nil, err
		}
		block.Children = append(block.Children, item)
	}
	if _, err := p.expect(KindRBrace); err != nil {
		return nil, err
	}
	return block, nil
}

// parseBlockItem := block | statement
func (p *Parser) parseBlockItem() (*Node, error) {
	ok, err := p.at(KindLBrace)
	if err != nil {
		return nil, err
	}
	if ok {
		return p.parseBlock()
	}
	return p.parseStatement()
}

// parseBlockOrStmt accepts either a braced block or a single statement, used
// by if/while bodies.
func (p *Parser) parseBlockOrStmt() (*Node, error) {
	return p.parseBlockItem()
}

func (p *Parser) parseStatement() (*Node, error) {
	t, err := p.cur()
	if err != nil {
		return nil, err
	}

	switch t.Kind {
	case KindReturn:
		return p.parseReturn()
	case KindBreak:
		if _, err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(KindSemi); err != nil {
			return nil, err
		}
		return newNode(NodeBreak, t.Offset), nil
	case KindContinue:
		if _, err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(KindSemi); err != nil {
			return nil, err
		}
		return newNode(NodeContinue, t.Offset), nil
	case KindInt:
		return p.parseDeclaration()
	case KindIf:
		return p.parseIf()
	case KindWhile:
		return p.parseWhile()
	default:
		return p.parseExprStatement()
	}
}

// parseReturn := "return" top-expr? ";"
func (p *Parser) parseReturn() (*Node, error) {
	kw, err := p.advance()
	if err != nil {
		return nil, err
	}
	ret := newNode(NodeReturn, kw.Offset)
	isSemi, err := p.at(KindSemi)
	if err != nil {
		return nil, err
	}
	if !isSemi {
		expr, err := p.parseTopExpr()
		if err != nil {
			return nil, err
		}
		ret.Children = append(ret.Children, expr)
	}
	if _, err := p.expect(KindSemi); err != nil {
		return nil, err
	}
	return ret, nil
}

// parseDeclaration := "int" declarator ( "=" assign )? ( "," declarator ( "=" assign )? )* ";"
func (p *Parser) parseDeclaration() (*Node, error) {
	kw, err := p.advance()
	if err != nil {
		return nil, err
	}
	decl := newNode(NodeDeclaration, kw.Offset)
	for {
		name, err := p.parseDeclarator()
		if err != nil {
			return nil, err
		}
		ident := newNode(NodeIdentifier, name.Offset)
		ident.Name = name.Name

		hasInit, err := p.accept(KindAssign)
		if err != nil {
			return nil, err
		}
		if hasInit {
			init, err := p.parseAssign()
			if err != nil {
				return nil, err
			}
			decl.Children = append(decl.Children, newNode(NodeInitDeclare, name.Offset, ident, init))
		} else {
			decl.Children = append(decl.Children, newNode(NodeNoInitDeclare, name.Offset, ident))
		}

		ok, err := p.accept(KindComma)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
	}
	if _, err := p.expect(KindSemi); err != nil {
		return nil, err
	}
	return decl, nil
}

// parseDeclarator := "("* IDENT ")"*  with balanced parens.
func (p *Parser) parseDeclarator() (Token, error) {
	depth := 0
	for {
		ok, err := p.accept(KindLParen)
		if err != nil {
			return Token{}, err
		}
		if !ok {
			break
		}
		depth++
	}
	name, err := p.expect(KindIdent)
	if err != nil {
		return Token{}, err
	}
	for i := 0; i < depth; i++ {
		if _, err := p.expect(KindRParen); err != nil {
			return Token{}, err
		}
	}
	return name, nil
}

// parseIf := "if" "(" assign ")" block-or-stmt ( "else" block-or-stmt )?
func (p *Parser) parseIf() (*Node, error) {
	kw, err := p.advance()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(KindLParen); err != nil {
		return nil, err
	}
	cond, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(KindRParen); err != nil {
		return nil, err
	}
	then, err := p.parseBlockOrStmt()
	if err != nil {
		return nil, err
	}
	ifNode := newNode(NodeIf, kw.Offset, cond, then)
	hasElse, err := p.accept(KindElse)
	if err != nil {
		return nil, err
	}
	if hasElse {
		els, err := p.parseBlockOrStmt()
		if err != nil {
			return nil, err
		}
		ifNode.Children = append(ifNode.Children, els)
	}
	return ifNode, nil
}

// parseWhile := "while" "(" assign ")" block-or-stmt
func (p *Parser) parseWhile() (*Node, error) {
	kw, err := p.advance()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(KindLParen); err != nil {
		return nil, err
	}
	cond, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(KindRParen); err != nil {
		return nil, err
	}
	body, err := p.parseBlockOrStmt()
	if err != nil {
		return nil, err
	}
	return newNode(NodeWhile, kw.Offset, cond, body), nil
}

// parseExprStatement := top-expr? ";"
func (p *Parser) parseExprStatement() (*Node, error) {
	t, err := p.cur()
	if err != nil {
		return nil, err
	}
	if t.Kind == KindSemi {
		if _, err := p.advance(); err != nil {
			return nil, err
		}
		return newNode(NodeExprStatement, t.Offset), nil
	}
	expr, err := p.parseTopExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(KindSemi); err != nil {
		return nil, err
	}
	return newNode(NodeExprStatement, expr.Offset, expr), nil
}

// parseTopExpr := assign ( "," assign )*
func (p *Parser) parseTopExpr() (*Node, error) {
	first, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	top := newNode(NodeTopExpr, first.Offset, first)
	for {
		ok, err := p.accept(KindComma)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		next, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		top.Children = append(top.Children, next)
	}
	return top, nil
}

// parseAssign := IDENT "=" assign | inc-or
func (p *Parser) parseAssign() (*Node, error) {
	t, err := p.cur()
	if err != nil {
		return nil, err
	}
	if t.Kind == KindIdent {
		next, err := p.peek(1)
		if err != nil {
			return nil, err
		}
		if next.Kind == KindAssign {
			if _, err := p.advance(); err != nil { // ident
				return nil, err
			}
			if _, err := p.advance(); err != nil { // '='
				return nil, err
			}
			rhs, err := p.parseAssign()
			if err != nil {
				return nil, err
			}
			ident := newNode(NodeIdentifier, t.Offset)
			ident.Name = t.Name
			return newNode(NodeAssign, t.Offset, ident, rhs), nil
		}
	}
	return p.parseIncOr()
}

func (p *Parser) parseBinaryLevel(next func() (*Node, error), ops map[Kind]NodeKind) (*Node, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		t, err := p.cur()
		if err != nil {
			return nil, err
		}
		kind, ok := ops[t.Kind]
		if !ok {
			return left, nil
		}
		if _, err := p.advance(); err != nil {
			return nil, err
		}
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = newNode(kind, left.Offset, left, right)
	}
}

func (p *Parser) parseIncOr() (*Node, error) {
	return p.parseBinaryLevel(p.parseExcOr, map[Kind]NodeKind{KindPipe: NodeBitOr})
}

func (p *Parser) parseExcOr() (*Node, error) {
	return p.parseBinaryLevel(p.parseAnd, map[Kind]NodeKind{KindCaret: NodeBitXor})
}

func (p *Parser) parseAnd() (*Node, error) {
	return p.parseBinaryLevel(p.parseEquality, map[Kind]NodeKind{KindAmp: NodeBitAnd})
}

func (p *Parser) parseEquality() (*Node, error) {
	return p.parseBinaryLevel(p.parseAdditive, map[Kind]NodeKind{KindEq: NodeEq, KindNe: NodeNe})
}

func (p *Parser) parseAdditive() (*Node, error) {
	return p.parseBinaryLevel(p.parseMultiplicative, map[Kind]NodeKind{KindPlus: NodeAdd, KindMinus: NodeSub})
}

func (p *Parser) parseMultiplicative() (*Node, error) {
	return p.parseBinaryLevel(p.parseUnary, map[Kind]NodeKind{KindStar: NodeMul, KindSlash: NodeDiv, KindPercent: NodeMod})
}

var unaryOps = map[Kind]NodeKind{
	KindBang:  NodeLogicalNot,
	KindTilde: NodeBitNot,
	KindMinus: NodeNegate,
}

// parseUnary := ( "!" | "~" | "-" )* primary
func (p *Parser) parseUnary() (*Node, error) {
	t, err := p.cur()
	if err != nil {
		return nil, err
	}
	if kind, ok := unaryOps[t.Kind]; ok {
		if _, err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return newNode(kind, t.Offset, operand), nil
	}
	return p.parsePrimary()
}

// parsePrimary := "(" assign ")" | NUMBER | IDENT ( "(" call-args ")" )?
func (p *Parser) parsePrimary() (*Node, error) {
	t, err := p.cur()
	if err != nil {
		return nil, err
	}
	switch t.Kind {
	case KindLParen:
		if _, err := p.advance(); err != nil {
			return nil, err
		}
		expr, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(KindRParen); err != nil {
			return nil, err
		}
		return expr, nil
	case KindNumber:
		if _, err := p.advance(); err != nil {
			return nil, err
		}
		n := newNode(NodeNumber, t.Offset)
		n.Value = t.Value
		return n, nil
	case KindIdent:
		if _, err := p.advance(); err != nil {
			return nil, err
		}
		isCall, err := p.accept(KindLParen)
		if err != nil {
			return nil, err
		}
		if !isCall {
			ident := newNode(NodeIdentifier, t.Offset)
			ident.Name = t.Name
			return ident, nil
		}
		args, err := p.parseCallArgs()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(KindRParen); err != nil {
			return nil, err
		}
		callee := newNode(NodeIdentifier, t.Offset)
		callee.Name = t.Name
		return newNode(NodeCall, t.Offset, callee, args), nil
	default:
		return nil, p.syntaxErrorf(t.Offset, "unexpected token %v in expression", t.Kind)
	}
}

// parseCallArgs := ( assign ( "," assign )* )?
func (p *Parser) parseCallArgs() (*Node, error) {
	t, err := p.cur()
	if err != nil {
		return nil, err
	}
	args := newNode(NodeParams, t.Offset)
	if t.Kind == KindRParen {
		return args, nil
	}
	for {
		arg, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		args.Children = append(args.Children, arg)
		ok, err := p.accept(KindComma)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
	}
	return args, nil
}
