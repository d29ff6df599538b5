package parser

import (
	"fmt"
	"strings"

	"github.com/lumiis2/building-a-compiler/pkg/lexer"
)

// --- AST Interfaces ---

// Node is the base interface for all AST nodes.
type Node interface {
	TokenLiteral() string // Returns the literal of the token associated with the node
	String() string       // Returns a string representation for debugging
}

// Expression is implemented by all expression nodes. The whole language is
// expression-oriented: a program is a single expression.
type Expression interface {
	Node
	expressionNode() // Marker method
}

// --- Leaf Nodes ---

// Identifier represents a variable reference.
type Identifier struct {
	Token lexer.Token // The lexer.IDENT token
	Value string
}

func (i *Identifier) expressionNode()      {}
func (i *Identifier) TokenLiteral() string { return i.Token.Literal }
func (i *Identifier) String() string       { return i.Value }

// NumberLiteral represents an integer literal.
type NumberLiteral struct {
	Token lexer.Token // The lexer.NUMBER token
	Value int
}

func (n *NumberLiteral) expressionNode()      {}
func (n *NumberLiteral) TokenLiteral() string { return n.Token.Literal }
func (n *NumberLiteral) String() string       { return fmt.Sprintf("%d", n.Value) }

// BooleanLiteral represents `true` or `false`.
type BooleanLiteral struct {
	Token lexer.Token // The lexer.TRUE or lexer.FALSE token
	Value bool
}

func (b *BooleanLiteral) expressionNode()      {}
func (b *BooleanLiteral) TokenLiteral() string { return b.Token.Literal }
func (b *BooleanLiteral) String() string {
	if b.Value {
		return "true"
	}
	return "false"
}

// --- Operator Nodes ---

// PrefixExpression represents the unary operators `~` (arithmetic negation)
// and `not` (logical negation).
type PrefixExpression struct {
	Token    lexer.Token // The operator token
	Operator string      // "~" or "not"
	Operand  Expression
}

func (pe *PrefixExpression) expressionNode()      {}
func (pe *PrefixExpression) TokenLiteral() string { return pe.Token.Literal }
func (pe *PrefixExpression) String() string {
	if pe.Operator == "not" {
		return fmt.Sprintf("(not %s)", pe.Operand.String())
	}
	return fmt.Sprintf("(%s%s)", pe.Operator, pe.Operand.String())
}

// InfixExpression represents all binary operators:
// "+", "-", "*", "div", "mod", "=", "<=", "<", "and", "or".
type InfixExpression struct {
	Token    lexer.Token // The operator token
	Left     Expression
	Operator string
	Right    Expression
}

func (ie *InfixExpression) expressionNode()      {}
func (ie *InfixExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *InfixExpression) String() string {
	return fmt.Sprintf("(%s %s %s)", ie.Left.String(), ie.Operator, ie.Right.String())
}

// --- Binding and Control Nodes ---

// LetExpression represents `let val x = def in body end` (and the legacy
// `let x <- def in body end` form, which parses to the same node).
type LetExpression struct {
	Token lexer.Token // The lexer.LET token
	Name  *Identifier
	Def   Expression
	Body  Expression
}

func (le *LetExpression) expressionNode()      {}
func (le *LetExpression) TokenLiteral() string { return le.Token.Literal }
func (le *LetExpression) String() string {
	var sb strings.Builder
	sb.WriteString("let val ")
	sb.WriteString(le.Name.String())
	sb.WriteString(" = ")
	sb.WriteString(le.Def.String())
	sb.WriteString(" in ")
	sb.WriteString(le.Body.String())
	sb.WriteString(" end")
	return sb.String()
}

// IfExpression represents `if cond then cons else alt`. Both branches are
// mandatory; the whole form is an expression.
type IfExpression struct {
	Token       lexer.Token // The lexer.IF token
	Condition   Expression
	Consequence Expression
	Alternative Expression
}

func (ie *IfExpression) expressionNode()      {}
func (ie *IfExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *IfExpression) String() string {
	return fmt.Sprintf("if %s then %s else %s",
		ie.Condition.String(), ie.Consequence.String(), ie.Alternative.String())
}

// FnLiteral represents an anonymous function `fn v => body`.
type FnLiteral struct {
	Token lexer.Token // The lexer.FN token
	Param *Identifier
	Body  Expression
}

func (fl *FnLiteral) expressionNode()      {}
func (fl *FnLiteral) TokenLiteral() string { return fl.Token.Literal }
func (fl *FnLiteral) String() string {
	return fmt.Sprintf("fn %s => %s", fl.Param.String(), fl.Body.String())
}

// FunLiteral represents a named, possibly recursive function. It only occurs
// as the definition of a `let fun f v = body in ... end` declaration; the
// parser desugars that declaration into Let(f, Fun(f, v, body), ...).
type FunLiteral struct {
	Token lexer.Token // The lexer.FUN token
	Name  *Identifier
	Param *Identifier
	Body  Expression
}

func (fl *FunLiteral) expressionNode()      {}
func (fl *FunLiteral) TokenLiteral() string { return fl.Token.Literal }
func (fl *FunLiteral) String() string {
	return fmt.Sprintf("fun %s %s = %s", fl.Name.String(), fl.Param.String(), fl.Body.String())
}

// AppExpression represents function application by juxtaposition: `f x`.
// Application is left-associative: `f x y` is `(f x) y`.
type AppExpression struct {
	Token    lexer.Token // The first token of the argument
	Function Expression
	Argument Expression
}

func (ae *AppExpression) expressionNode()      {}
func (ae *AppExpression) TokenLiteral() string { return ae.Token.Literal }
func (ae *AppExpression) String() string {
	return fmt.Sprintf("(%s %s)", ae.Function.String(), ae.Argument.String())
}
