package parser

import (
	"testing"

	"github.com/lumiis2/building-a-compiler/pkg/lexer"
)

// parseOrFail parses the input and fails the test on any syntax error.
func parseOrFail(t *testing.T, input string) Expression {
	t.Helper()
	p := NewParser(lexer.NewLexer(input))
	exp, errs := p.Parse()
	if len(errs) > 0 {
		t.Fatalf("Parse(%q) failed: %v", input, errs[0])
	}
	return exp
}

func TestParsePrecedence(t *testing.T) {
	cases := []struct {
		input  string
		expect string // canonical String() rendering
	}{
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"1 * 2 + 3", "((1 * 2) + 3)"},
		{"2 - 3 - 4", "((2 - 3) - 4)"},
		{"10 div 2 div 5", "((10 div 2) div 5)"},
		{"7 mod 3 + 1", "((7 mod 3) + 1)"},
		{"1 < 2 = true", "((1 < 2) = true)"},
		{"1 <= 2 and 2 <= 3", "((1 <= 2) and (2 <= 3))"},
		{"a and b or c", "((a and b) or c)"},
		{"not a and b", "((not a) and b)"},
		{"~2 + 3", "((~2) + 3)"},
		{"~ ~ 2", "(~(~2))"},
		{"(1 + 2) * 3", "((1 + 2) * 3)"},
	}
	for _, tc := range cases {
		exp := parseOrFail(t, tc.input)
		if got := exp.String(); got != tc.expect {
			t.Errorf("Parse(%q) = %s, want %s", tc.input, got, tc.expect)
		}
	}
}

func TestParseApplication(t *testing.T) {
	cases := []struct {
		input  string
		expect string
	}{
		{"f x", "(f x)"},
		{"f x y", "((f x) y)"}, // left-associative
		{"f (g x)", "(f (g x))"},
		{"f 1 + 2", "((f 1) + 2)"}, // application binds tighter than +
		{"f x * g y", "((f x) * (g y))"},
		{"~f x", "(~(f x))"},
	}
	for _, tc := range cases {
		exp := parseOrFail(t, tc.input)
		if got := exp.String(); got != tc.expect {
			t.Errorf("Parse(%q) = %s, want %s", tc.input, got, tc.expect)
		}
	}
}

func TestParseFnAndIf(t *testing.T) {
	cases := []struct {
		input  string
		expect string
	}{
		{"fn v => v + 1", "fn v => (v + 1)"},
		{"fn f => fn x => f x", "fn f => fn x => (f x)"},
		{"if 2 < 3 then 1 else 2", "if (2 < 3) then 1 else 2"},
		{"if a then fn x => x else fn y => y", "if a then fn x => x else fn y => y"},
		{"(fn v => v * v) (3 + 4)", "(fn v => (v * v) (3 + 4))"},
	}
	for _, tc := range cases {
		exp := parseOrFail(t, tc.input)
		if got := exp.String(); got != tc.expect {
			t.Errorf("Parse(%q) = %s, want %s", tc.input, got, tc.expect)
		}
	}
}

func TestParseLetForms(t *testing.T) {
	// All three declaration forms produce a LetExpression.
	exp := parseOrFail(t, "let val x = 1 in x + x end")
	let, ok := exp.(*LetExpression)
	if !ok {
		t.Fatalf("expected a LetExpression, got %T", exp)
	}
	if let.Name.Value != "x" {
		t.Errorf("let binds %q, want %q", let.Name.Value, "x")
	}

	exp = parseOrFail(t, "let v <- 21 in v + v end")
	let, ok = exp.(*LetExpression)
	if !ok {
		t.Fatalf("expected a LetExpression, got %T", exp)
	}
	if let.Name.Value != "v" {
		t.Errorf("let binds %q, want %q", let.Name.Value, "v")
	}
}

func TestParseFunDesugarsToRecursiveLet(t *testing.T) {
	exp := parseOrFail(t, "let fun f v = f v in f 1 end")
	let, ok := exp.(*LetExpression)
	if !ok {
		t.Fatalf("expected a LetExpression, got %T", exp)
	}
	fun, ok := let.Def.(*FunLiteral)
	if !ok {
		t.Fatalf("expected the definition to be a FunLiteral, got %T", let.Def)
	}
	if fun.Name.Value != let.Name.Value {
		t.Errorf("function name %q must match the let binding %q", fun.Name.Value, let.Name.Value)
	}
	if fun.Param.Value != "v" {
		t.Errorf("formal = %q, want %q", fun.Param.Value, "v")
	}
}

func TestParseNestedLet(t *testing.T) {
	exp := parseOrFail(t, "let val x = 2 in let val y = x + 3 in y * 10 end end")
	expect := "let val x = 2 in let val y = (x + 3) in (y * 10) end end"
	if got := exp.String(); got != expect {
		t.Errorf("got %s, want %s", got, expect)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"MissingEnd", "let val x = 1 in x"},
		{"MissingIn", "let val x = 1 x end"},
		{"MissingElse", "if true then 1"},
		{"MissingArrow", "fn v v"},
		{"UnbalancedParen", "(1 + 2"},
		{"TrailingTokens", "1 + 2 end"},
		{"LoneOperator", "*"},
		{"BadLetKeyword", "let const x = 1 in x end"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewParser(lexer.NewLexer(tc.input))
			_, errs := p.Parse()
			if len(errs) == 0 {
				t.Errorf("Parse(%q) should fail", tc.input)
			}
		})
	}
}

func TestSyntaxErrorPosition(t *testing.T) {
	p := NewParser(lexer.NewLexer("let val x = 1\nin x +\nend"))
	_, errs := p.Parse()
	if len(errs) == 0 {
		t.Fatalf("expected a syntax error")
	}
	pos := errs[0].Pos()
	if pos.Line != 3 {
		t.Errorf("error line = %d, want 3", pos.Line)
	}
}
