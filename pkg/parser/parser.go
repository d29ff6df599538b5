package parser

import (
	"fmt"
	"strconv"

	"github.com/lumiis2/building-a-compiler/pkg/errors"
	"github.com/lumiis2/building-a-compiler/pkg/lexer"
)

// Parser builds an AST from a token stream. The grammar is layered by
// precedence, loosest binding first:
//
//	fn_exp  ::= fn <var> => fn_exp | if_exp
//	if_exp  ::= if if_exp then fn_exp else fn_exp | or_exp
//	or_exp  ::= and_exp (or and_exp)*
//	and_exp ::= eq_exp (and eq_exp)*
//	eq_exp  ::= cmp_exp (= cmp_exp)*
//	cmp_exp ::= add_exp ((<=|<) add_exp)*
//	add_exp ::= mul_exp ((+|-) mul_exp)*
//	mul_exp ::= uny_exp ((*|div|mod) uny_exp)*
//	uny_exp ::= (not|~) uny_exp | app_exp
//	app_exp ::= primary primary*
//	primary ::= <num> | true | false | <var> | ( fn_exp ) | let_exp
//	let_exp ::= let val <var> = fn_exp in fn_exp end
//	          | let fun <var> <var> = fn_exp in fn_exp end
//	          | let <var> <- fn_exp in fn_exp end
//
// All parse methods expect curToken to be the first token of their
// production and leave curToken on the first token after it.
type Parser struct {
	l         *lexer.Lexer
	curToken  lexer.Token
	peekToken lexer.Token
	errs      []errors.SmlError
}

// NewParser creates a new Parser from a lexer.
func NewParser(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	// Prime curToken and peekToken.
	p.nextToken()
	p.nextToken()
	return p
}

// Errors returns the list of errors encountered during parsing.
func (p *Parser) Errors() []errors.SmlError {
	return p.errs
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) addError(tok lexer.Token, format string, args ...interface{}) {
	p.errs = append(p.errs, &errors.SyntaxError{
		Position: errors.Position{
			Line:     tok.Line,
			Column:   tok.Column,
			StartPos: tok.StartPos,
			EndPos:   tok.EndPos,
		},
		Msg: fmt.Sprintf(format, args...),
	})
}

// expect consumes the current token if it has the given type, or records a
// syntax error and returns false.
func (p *Parser) expect(t lexer.TokenType) bool {
	if p.curToken.Type != t {
		p.addError(p.curToken, "expected %q, found %q", string(t), p.curToken.Literal)
		return false
	}
	p.nextToken()
	return true
}

// Parse parses a whole program: a single expression followed by EOF.
func (p *Parser) Parse() (Expression, []errors.SmlError) {
	exp := p.parseExpression()
	if exp != nil && p.curToken.Type != lexer.EOF {
		p.addError(p.curToken, "unexpected %q after expression", p.curToken.Literal)
	}
	if len(p.errs) > 0 {
		return nil, p.errs
	}
	return exp, nil
}

// parseExpression parses the loosest-binding production (fn_exp).
func (p *Parser) parseExpression() Expression {
	return p.parseFnExp()
}

func (p *Parser) parseFnExp() Expression {
	if p.curToken.Type != lexer.FN {
		return p.parseIfExp()
	}
	tok := p.curToken
	p.nextToken()
	param := p.parseIdentifier()
	if param == nil {
		return nil
	}
	if !p.expect(lexer.ARROW) {
		return nil
	}
	body := p.parseFnExp()
	if body == nil {
		return nil
	}
	return &FnLiteral{Token: tok, Param: param, Body: body}
}

func (p *Parser) parseIfExp() Expression {
	if p.curToken.Type != lexer.IF {
		return p.parseOrExp()
	}
	tok := p.curToken
	p.nextToken()
	cond := p.parseIfExp()
	if cond == nil {
		return nil
	}
	if !p.expect(lexer.THEN) {
		return nil
	}
	cons := p.parseFnExp()
	if cons == nil {
		return nil
	}
	if !p.expect(lexer.ELSE) {
		return nil
	}
	alt := p.parseFnExp()
	if alt == nil {
		return nil
	}
	return &IfExpression{Token: tok, Condition: cond, Consequence: cons, Alternative: alt}
}

// parseInfixChain parses a left-associative chain of binary operators drawn
// from the given set, with operands parsed by next.
func (p *Parser) parseInfixChain(next func() Expression, ops ...lexer.TokenType) Expression {
	left := next()
	if left == nil {
		return nil
	}
	for {
		matched := false
		for _, op := range ops {
			if p.curToken.Type == op {
				matched = true
				break
			}
		}
		if !matched {
			return left
		}
		opTok := p.curToken
		p.nextToken()
		right := next()
		if right == nil {
			return nil
		}
		left = &InfixExpression{Token: opTok, Left: left, Operator: infixName(opTok), Right: right}
	}
}

// infixName maps an operator token to the operator name used in the AST.
func infixName(tok lexer.Token) string {
	return tok.Literal
}

func (p *Parser) parseOrExp() Expression {
	return p.parseInfixChain(p.parseAndExp, lexer.OR)
}

func (p *Parser) parseAndExp() Expression {
	return p.parseInfixChain(p.parseEqExp, lexer.AND)
}

func (p *Parser) parseEqExp() Expression {
	return p.parseInfixChain(p.parseCmpExp, lexer.EQ)
}

func (p *Parser) parseCmpExp() Expression {
	return p.parseInfixChain(p.parseAddExp, lexer.LE, lexer.LT)
}

func (p *Parser) parseAddExp() Expression {
	return p.parseInfixChain(p.parseMulExp, lexer.PLUS, lexer.MINUS)
}

func (p *Parser) parseMulExp() Expression {
	return p.parseInfixChain(p.parseUnaryExp, lexer.ASTERISK, lexer.DIV, lexer.MOD)
}

func (p *Parser) parseUnaryExp() Expression {
	if p.curToken.Type == lexer.TILDE || p.curToken.Type == lexer.NOT {
		tok := p.curToken
		p.nextToken()
		operand := p.parseUnaryExp()
		if operand == nil {
			return nil
		}
		op := "~"
		if tok.Type == lexer.NOT {
			op = "not"
		}
		return &PrefixExpression{Token: tok, Operator: op, Operand: operand}
	}
	return p.parseAppExp()
}

// canStartPrimary reports whether a token can begin a primary expression.
// Application is juxtaposition, so this decides where an application chain
// ends.
func canStartPrimary(t lexer.TokenType) bool {
	switch t {
	case lexer.NUMBER, lexer.TRUE, lexer.FALSE, lexer.IDENT, lexer.LPAREN, lexer.LET:
		return true
	}
	return false
}

func (p *Parser) parseAppExp() Expression {
	left := p.parsePrimary()
	if left == nil {
		return nil
	}
	for canStartPrimary(p.curToken.Type) {
		argTok := p.curToken
		arg := p.parsePrimary()
		if arg == nil {
			return nil
		}
		left = &AppExpression{Token: argTok, Function: left, Argument: arg}
	}
	return left
}

func (p *Parser) parsePrimary() Expression {
	switch p.curToken.Type {
	case lexer.NUMBER:
		tok := p.curToken
		val, err := strconv.Atoi(tok.Literal)
		if err != nil {
			p.addError(tok, "could not parse %q as an integer", tok.Literal)
			return nil
		}
		p.nextToken()
		return &NumberLiteral{Token: tok, Value: val}
	case lexer.TRUE, lexer.FALSE:
		tok := p.curToken
		p.nextToken()
		return &BooleanLiteral{Token: tok, Value: tok.Type == lexer.TRUE}
	case lexer.IDENT:
		return p.parseIdentifier()
	case lexer.LPAREN:
		p.nextToken()
		exp := p.parseExpression()
		if exp == nil {
			return nil
		}
		if !p.expect(lexer.RPAREN) {
			return nil
		}
		return exp
	case lexer.LET:
		return p.parseLetExp()
	}
	p.addError(p.curToken, "unexpected %q", p.curToken.Literal)
	return nil
}

func (p *Parser) parseIdentifier() *Identifier {
	if p.curToken.Type != lexer.IDENT {
		p.addError(p.curToken, "expected an identifier, found %q", p.curToken.Literal)
		return nil
	}
	ident := &Identifier{Token: p.curToken, Value: p.curToken.Literal}
	p.nextToken()
	return ident
}

// parseLetExp parses the three declaration forms. A `fun` declaration
// desugars into a plain let binding a recursive function literal:
// `let fun f v = body in e end` becomes Let(f, Fun(f, v, body), e).
func (p *Parser) parseLetExp() Expression {
	letTok := p.curToken
	p.nextToken() // consume 'let'

	var name *Identifier
	var def Expression

	switch p.curToken.Type {
	case lexer.VAL:
		p.nextToken()
		name = p.parseIdentifier()
		if name == nil {
			return nil
		}
		if !p.expect(lexer.EQ) {
			return nil
		}
		def = p.parseExpression()
	case lexer.FUN:
		funTok := p.curToken
		p.nextToken()
		name = p.parseIdentifier()
		if name == nil {
			return nil
		}
		param := p.parseIdentifier()
		if param == nil {
			return nil
		}
		if !p.expect(lexer.EQ) {
			return nil
		}
		body := p.parseExpression()
		if body == nil {
			return nil
		}
		def = &FunLiteral{Token: funTok, Name: name, Param: param, Body: body}
	case lexer.IDENT:
		// Legacy binder form: let v <- e in b end
		name = p.parseIdentifier()
		if name == nil {
			return nil
		}
		if !p.expect(lexer.BIND) {
			return nil
		}
		def = p.parseExpression()
	default:
		p.addError(p.curToken, "expected 'val', 'fun' or an identifier after 'let', found %q", p.curToken.Literal)
		return nil
	}
	if def == nil {
		return nil
	}

	if !p.expect(lexer.IN) {
		return nil
	}
	body := p.parseExpression()
	if body == nil {
		return nil
	}
	if !p.expect(lexer.END) {
		return nil
	}
	return &LetExpression{Token: letTok, Name: name, Def: def, Body: body}
}
