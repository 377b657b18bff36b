// Package parser implements the compiler's recursive-descent parser: one
// method per grammar non-terminal, consuming a pkg/lexer.Stream's
// lookahead-3 Current/Second/Next contract (spec.md §4.1/§6.1) and producing
// a list of pkg/ast.FuncDecl nodes. It is purely syntactic: it never
// consults the symbol table and never forward-references.
package parser

import (
	"io"

	"hmny.dev/uoocc/pkg/ast"
	"hmny.dev/uoocc/pkg/ctype"
	"hmny.dev/uoocc/pkg/diagnostics"
	"hmny.dev/uoocc/pkg/lexer"
	"hmny.dev/uoocc/pkg/token"
)

// Parser wraps a token Stream and drives it through the grammar as one
// io.Reader-wrapping struct exposing NewParser(io.Reader)/Parse(), built
// over the token-stream contract spec.md §6.1 requires.
type Parser struct {
	stream *lexer.Stream
}

// NewParser tokenizes r and returns a Parser positioned at its first token.
func NewParser(r io.Reader) (*Parser, error) {
	tokens, err := lexer.Scan(r)
	if err != nil {
		return nil, err
	}
	return &Parser{stream: lexer.NewStream(tokens)}, nil
}

// Parse consumes the entire token stream and returns the program: a
// sequence of top-level function declarations (spec.md §4.1's `program`).
func (p *Parser) Parse() ([]*ast.FuncDecl, error) {
	var decls []*ast.FuncDecl
	for p.current().Kind != token.EOF {
		decl, err := p.parseFuncDecl()
		if err != nil {
			return nil, err
		}
		decls = append(decls, decl)
	}
	return decls, nil
}

func (p *Parser) current() token.Token { return p.stream.Current() }
func (p *Parser) second() token.Token  { return p.stream.Second() }
func (p *Parser) next() token.Token    { return p.stream.Next() }

// expect checks the current token is kind k, reporting
// "<expected-token-name> was expected" (spec.md §7) if not, then advances.
func (p *Parser) expect(k token.Kind) (token.Token, error) {
	tok := p.current()
	if tok.Kind != k {
		return token.Token{}, diagnostics.Expectedf(tok, k)
	}
	p.next()
	return tok, nil
}

// decl_function ::= 'int' ident '(' [ param { ',' param } ] ')' compound
func (p *Parser) parseFuncDecl() (*ast.FuncDecl, error) {
	if _, err := p.expect(token.INT); err != nil {
		return nil, err
	}
	identTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAR); err != nil {
		return nil, err
	}

	var params []ast.Param
	if p.current().Kind != token.RPAR {
		param, err := p.parseParam()
		if err != nil {
			return nil, err
		}
		params = append(params, param)
		for p.current().Kind == token.COMMA {
			p.next()
			param, err := p.parseParam()
			if err != nil {
				return nil, err
			}
			params = append(params, param)
		}
	}
	if _, err := p.expect(token.RPAR); err != nil {
		return nil, err
	}

	body, err := p.parseCompound()
	if err != nil {
		return nil, err
	}
	return ast.NewFuncDecl(identTok, identTok.Text, params, body), nil
}

// param ::= 'int' {'*'} ident
func (p *Parser) parseParam() (ast.Param, error) {
	if _, err := p.expect(token.INT); err != nil {
		return ast.Param{}, err
	}
	typ := ctype.NewInt()
	for p.current().Kind == token.STAR {
		p.next()
		typ = ctype.NewPointer(typ)
	}
	identTok, err := p.expect(token.IDENT)
	if err != nil {
		return ast.Param{}, err
	}
	return ast.Param{Ident: identTok.Text, Type: typ, Token: identTok}, nil
}

// compound ::= '{' { declaration | statement } '}'
func (p *Parser) parseCompound() (*ast.CompoundStmt, error) {
	lcurTok, err := p.expect(token.LCUR)
	if err != nil {
		return nil, err
	}

	var statements []ast.Stmt
	for p.current().Kind != token.RCUR {
		var stmt ast.Stmt
		if p.current().Kind == token.INT {
			stmt, err = p.parseDeclaration()
		} else {
			stmt, err = p.parseStatement()
		}
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}
	if _, err := p.expect(token.RCUR); err != nil {
		return nil, err
	}
	return ast.NewCompoundStmt(lcurTok, statements), nil
}

// declaration ::= 'int' {'*'} ident { '[' number ']' } ';'
func (p *Parser) parseDeclaration() (ast.Stmt, error) {
	declTok := p.current()
	if _, err := p.expect(token.INT); err != nil {
		return nil, err
	}
	typ := ctype.NewInt()
	for p.current().Kind == token.STAR {
		p.next()
		typ = ctype.NewPointer(typ)
	}
	identTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}

	var dims []int
	for p.current().Kind == token.LBRA {
		p.next()
		numTok, err := p.expect(token.NUM)
		if err != nil {
			return nil, err
		}
		dims = append(dims, numTok.Value)
		if _, err := p.expect(token.RBRA); err != nil {
			return nil, err
		}
	}
	// dims holds outer-to-inner lengths as written; build the type
	// inner-to-outer so the first bracket becomes the outermost array.
	for i := len(dims) - 1; i >= 0; i-- {
		typ = ctype.NewArray(typ, dims[i])
	}

	if _, err := p.expect(token.SEMI); err != nil {
		return nil, err
	}
	return ast.NewDeclaration(declTok, identTok.Text, typ), nil
}

// statement ::= if | while | for | compound | expr_statement
func (p *Parser) parseStatement() (ast.Stmt, error) {
	switch p.current().Kind {
	case token.IF:
		return p.parseIf()
	case token.WHILE:
		return p.parseWhile()
	case token.FOR:
		return p.parseFor()
	case token.LCUR:
		return p.parseCompound()
	default:
		return p.parseExprStatement()
	}
}

// if ::= 'if' '(' expr ')' statement [ 'else' statement ]
func (p *Parser) parseIf() (ast.Stmt, error) {
	ifTok, err := p.expect(token.IF)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAR); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAR); err != nil {
		return nil, err
	}
	then, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	var els ast.Stmt
	if p.current().Kind == token.ELSE {
		p.next()
		els, err = p.parseStatement()
		if err != nil {
			return nil, err
		}
	}
	return ast.NewIfStmt(ifTok, cond, then, els), nil
}

// while ::= 'while' '(' expr ')' statement
func (p *Parser) parseWhile() (ast.Stmt, error) {
	whileTok, err := p.expect(token.WHILE)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAR); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAR); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return ast.NewWhileStmt(whileTok, cond, body), nil
}

// for ::= 'for' '(' expr ';' expr ';' expr ')' statement
func (p *Parser) parseFor() (ast.Stmt, error) {
	forTok, err := p.expect(token.FOR)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAR); err != nil {
		return nil, err
	}
	init, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.SEMI); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.SEMI); err != nil {
		return nil, err
	}
	step, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAR); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return ast.NewForStmt(forTok, init, cond, step, body), nil
}

// expr_statement ::= expr ';'
func (p *Parser) parseExprStatement() (ast.Stmt, error) {
	tok := p.current()
	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.SEMI); err != nil {
		return nil, err
	}
	return ast.NewExprStmt(tok, x), nil
}

// expr ::= unary '=' expr | equality
//
// Assignment is right-associative and cannot be distinguished from equality
// by its first token, so this speculatively parses an equality expression
// and rewrites it into an assignment if '=' follows — mirroring the
// grammar's own ambiguity resolution (unary on the left of '=' is always
// also a valid equality production).
func (p *Parser) parseExpr() (ast.Expr, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	if p.current().Kind == token.ASSIGN {
		tok := p.current()
		p.next()
		right, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return ast.NewAssignExpr(tok, left, right), nil
	}
	return left, nil
}

// equality ::= relational { ('==' | '!=') relational }
func (p *Parser) parseEquality() (ast.Expr, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for p.current().Kind == token.EQUAL || p.current().Kind == token.NEQUAL {
		tok := p.current()
		op := ast.Eq
		if tok.Kind == token.NEQUAL {
			op = ast.Ne
		}
		p.next()
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinaryExpr(tok, op, left, right)
	}
	return left, nil
}

// relational ::= additive { ('<' | '<=' | '>' | '>=') additive }
//
// '>' and '>=' are desugared by swapping operands and emitting Lt/Le
// (spec.md §4.1): "a > b" parses identically to "b < a".
func (p *Parser) parseRelational() (ast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		switch p.current().Kind {
		case token.LT:
			tok := p.current()
			p.next()
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = ast.NewBinaryExpr(tok, ast.Lt, left, right)
		case token.LE:
			tok := p.current()
			p.next()
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = ast.NewBinaryExpr(tok, ast.Le, left, right)
		case token.GT:
			tok := p.current()
			p.next()
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = ast.NewBinaryExpr(tok, ast.Lt, right, left)
		case token.GE:
			tok := p.current()
			p.next()
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = ast.NewBinaryExpr(tok, ast.Le, right, left)
		default:
			return left, nil
		}
	}
}

// additive ::= multiplicative { ('+' | '-') multiplicative }
func (p *Parser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.current().Kind == token.PLUS || p.current().Kind == token.MINUS {
		tok := p.current()
		op := ast.Add
		if tok.Kind == token.MINUS {
			op = ast.Sub
		}
		p.next()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinaryExpr(tok, op, left, right)
	}
	return left, nil
}

// multiplicative ::= unary { ('*' | '/') unary }
func (p *Parser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.current().Kind == token.STAR || p.current().Kind == token.DIV {
		tok := p.current()
		op := ast.Mul
		if tok.Kind == token.DIV {
			op = ast.Div
		}
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinaryExpr(tok, op, left, right)
	}
	return left, nil
}

// unary ::= ('++' | '--' | '&' | '*') unary | postfix
func (p *Parser) parseUnary() (ast.Expr, error) {
	switch p.current().Kind {
	case token.INC, token.DEC, token.AMP, token.STAR:
		tok := p.current()
		var op ast.UnaryOp
		switch tok.Kind {
		case token.INC:
			op = ast.PreInc
		case token.DEC:
			op = ast.PreDec
		case token.AMP:
			op = ast.Ref
		case token.STAR:
			op = ast.Deref
		}
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.NewUnaryExpr(tok, op, operand), nil
	default:
		return p.parsePostfix()
	}
}

// postfix ::= primary { '++' | '--' | '[' expr ']' }
//
// 'a[b]' is desugared to '*(a+b)' (spec.md §4.1): the index operator builds
// a Deref over a synthesized Add, never its own AST kind.
func (p *Parser) parsePostfix() (ast.Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.current().Kind {
		case token.INC:
			tok := p.current()
			p.next()
			expr = ast.NewUnaryExpr(tok, ast.PostInc, expr)
		case token.DEC:
			tok := p.current()
			p.next()
			expr = ast.NewUnaryExpr(tok, ast.PostDec, expr)
		case token.LBRA:
			tok := p.current()
			p.next()
			index, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RBRA); err != nil {
				return nil, err
			}
			sum := ast.NewBinaryExpr(tok, ast.Add, expr, index)
			expr = ast.NewUnaryExpr(tok, ast.Deref, sum)
		default:
			return expr, nil
		}
	}
}

// primary ::= number | '(' expr ')' | ident '(' args? ')' | ident
func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.current()
	switch tok.Kind {
	case token.NUM:
		p.next()
		return ast.NewIntLit(tok, tok.Value), nil
	case token.LPAR:
		p.next()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAR); err != nil {
			return nil, err
		}
		return expr, nil
	case token.IDENT:
		p.next()
		if p.current().Kind == token.LPAR {
			p.next()
			var args []ast.Expr
			if p.current().Kind != token.RPAR {
				var err error
				args, err = p.parseArgs()
				if err != nil {
					return nil, err
				}
			}
			if _, err := p.expect(token.RPAR); err != nil {
				return nil, err
			}
			return ast.NewCallExpr(tok, tok.Text, args), nil
		}
		return ast.NewVarExpr(tok, tok.Text), nil
	default:
		return nil, diagnostics.At(tok, "expression expected")
	}
}

// args ::= expr { ',' expr }
func (p *Parser) parseArgs() ([]ast.Expr, error) {
	var args []ast.Expr
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	args = append(args, expr)
	for p.current().Kind == token.COMMA {
		p.next()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, expr)
	}
	return args, nil
}
