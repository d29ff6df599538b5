package lexer

import "fmt"

// TokenType represents the type of a token.
type TokenType string

// Token represents a lexical token.
type Token struct {
	Type     TokenType
	Literal  string // The actual text of the token (lexeme)
	Line     int    // 1-based line number where the token starts
	Column   int    // 1-based column number (rune index) where the token starts
	StartPos int    // 0-based byte offset where the token starts
	EndPos   int    // 0-based byte offset after the token ends
}

// --- Token Types ---
const (
	// Special
	ILLEGAL TokenType = "ILLEGAL" // Unknown token/character
	EOF     TokenType = "EOF"     // End Of File

	// Identifiers + Literals
	IDENT  TokenType = "IDENT"  // variableName
	NUMBER TokenType = "NUMBER" // 123

	// Operators
	PLUS     TokenType = "+"
	MINUS    TokenType = "-"
	ASTERISK TokenType = "*"
	TILDE    TokenType = "~" // arithmetic negation
	EQ       TokenType = "=" // equality test; also the binder in val/fun decls
	LE       TokenType = "<="
	LT       TokenType = "<"
	ARROW    TokenType = "=>" // fn v => body
	BIND     TokenType = "<-" // legacy binder: let v <- e in b end

	// Delimiters
	LPAREN TokenType = "("
	RPAREN TokenType = ")"

	// Keywords
	LET   TokenType = "LET"
	VAL   TokenType = "VAL"
	FUN   TokenType = "FUN"
	IN    TokenType = "IN"
	END   TokenType = "END"
	IF    TokenType = "IF"
	THEN  TokenType = "THEN"
	ELSE  TokenType = "ELSE"
	FN    TokenType = "FN"
	AND   TokenType = "AND"
	OR    TokenType = "OR"
	NOT   TokenType = "NOT"
	DIV   TokenType = "DIV"
	MOD   TokenType = "MOD"
	TRUE  TokenType = "TRUE"
	FALSE TokenType = "FALSE"
)

var keywords = map[string]TokenType{
	"let":   LET,
	"val":   VAL,
	"fun":   FUN,
	"in":    IN,
	"end":   END,
	"if":    IF,
	"then":  THEN,
	"else":  ELSE,
	"fn":    FN,
	"and":   AND,
	"or":    OR,
	"not":   NOT,
	"div":   DIV,
	"mod":   MOD,
	"true":  TRUE,
	"false": FALSE,
}

// LookupIdent checks the keywords table for an identifier.
func LookupIdent(ident string) TokenType {
	if tokType, ok := keywords[ident]; ok {
		return tokType
	}
	return IDENT
}

// Lexer holds the state of the scanner.
type Lexer struct {
	input        string
	position     int  // current position in input (points to current char's byte offset)
	readPosition int  // current reading position in input (byte offset after current char)
	ch           byte // current char under examination
	line         int  // current 1-based line number
	column       int  // current 1-based column number
}

// NewLexer creates a new Lexer.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, line: 1}
	l.readChar() // establishes line 1, column 1
	return l
}

// readChar gives us the next character and advances our position in the
// input string.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPosition >= len(l.input) {
		l.ch = 0 // NUL signifies EOF
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++
}

// peekChar looks at the next character without consuming the current one.
func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// skipWhitespaceAndComments consumes whitespace, "--" line comments and
// "(* ... *)" block comments. Block comments do not nest.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r':
			l.readChar()
		case l.ch == '-' && l.peekChar() == '-':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		case l.ch == '(' && l.peekChar() == '*':
			l.readChar() // consume '('
			l.readChar() // consume '*'
			for l.ch != 0 {
				if l.ch == '*' && l.peekChar() == ')' {
					l.readChar()
					l.readChar()
					break
				}
				l.readChar()
			}
		default:
			return
		}
	}
}

// newToken creates a single-character token at the current position.
func (l *Lexer) newToken(tokenType TokenType, ch byte) Token {
	return Token{
		Type:     tokenType,
		Literal:  string(ch),
		Line:     l.line,
		Column:   l.column,
		StartPos: l.position,
		EndPos:   l.position + 1,
	}
}

// twoCharToken creates a two-character token and consumes the first char.
func (l *Lexer) twoCharToken(tokenType TokenType) Token {
	startLine, startCol, startPos := l.line, l.column, l.position
	ch := l.ch
	l.readChar()
	return Token{
		Type:     tokenType,
		Literal:  string(ch) + string(l.ch),
		Line:     startLine,
		Column:   startCol,
		StartPos: startPos,
		EndPos:   l.position + 1,
	}
}

// NextToken scans the input and returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	var tok Token
	switch l.ch {
	case '+':
		tok = l.newToken(PLUS, l.ch)
	case '-':
		tok = l.newToken(MINUS, l.ch)
	case '*':
		tok = l.newToken(ASTERISK, l.ch)
	case '~':
		tok = l.newToken(TILDE, l.ch)
	case '(':
		tok = l.newToken(LPAREN, l.ch)
	case ')':
		tok = l.newToken(RPAREN, l.ch)
	case '=':
		if l.peekChar() == '>' {
			tok = l.twoCharToken(ARROW)
		} else {
			tok = l.newToken(EQ, l.ch)
		}
	case '<':
		switch l.peekChar() {
		case '=':
			tok = l.twoCharToken(LE)
		case '-':
			tok = l.twoCharToken(BIND)
		default:
			tok = l.newToken(LT, l.ch)
		}
	case 0:
		tok = Token{Type: EOF, Literal: "", Line: l.line, Column: l.column, StartPos: l.position, EndPos: l.position}
	default:
		if isLetter(l.ch) {
			return l.readIdentifier()
		}
		if isDigit(l.ch) {
			return l.readNumber()
		}
		tok = l.newToken(ILLEGAL, l.ch)
	}

	l.readChar()
	return tok
}

// readIdentifier reads in an identifier or keyword.
func (l *Lexer) readIdentifier() Token {
	startLine, startCol, startPos := l.line, l.column, l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	literal := l.input[startPos:l.position]
	return Token{
		Type:     LookupIdent(literal),
		Literal:  literal,
		Line:     startLine,
		Column:   startCol,
		StartPos: startPos,
		EndPos:   l.position,
	}
}

// readNumber reads in an integer literal.
func (l *Lexer) readNumber() Token {
	startLine, startCol, startPos := l.line, l.column, l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	literal := l.input[startPos:l.position]
	return Token{
		Type:     NUMBER,
		Literal:  literal,
		Line:     startLine,
		Column:   startCol,
		StartPos: startPos,
		EndPos:   l.position,
	}
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

// String implements fmt.Stringer for debugging token streams.
func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d:%d", t.Type, t.Literal, t.Line, t.Column)
}
