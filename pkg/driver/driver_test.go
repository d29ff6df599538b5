package driver

import (
	"strings"
	"testing"
)

type endToEndCase struct {
	name   string
	input  string
	expect int
}

func runCases(t *testing.T, sess *Session, cases []endToEndCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, errs := sess.RunString(tc.input)
			if len(errs) > 0 {
				t.Fatalf("RunString(%q) failed: %v", tc.input, errs[0])
			}
			if got != tc.expect {
				t.Errorf("RunString(%q) = %d, want %d", tc.input, got, tc.expect)
			}
		})
	}
}

var pipelineCases = []endToEndCase{
	// Literals and arithmetic
	{"Literal", "42", 42},
	{"Arithmetic", "2 + 3 * 4", 14},
	{"FloorDiv", "30 div 4", 7},
	{"FloorDivTruncates", "22 div 4", 5},
	{"FloorDivNegative", "~7 div 2", -4},
	{"Mod", "10 mod 3", 1},
	{"Negation", "~(2 + 3)", -5},

	// Comparisons across the sign boundary
	{"LessThanNegative", "if ~1 < 0 then 1 else 0", 1},
	{"EqualNegative", "if ~2 = ~2 then 1 else 0", 1},
	{"LeqBoundary", "if 0 <= 0 then 1 else 0", 1},

	// Booleans and short-circuiting
	{"AndShortCircuit", "if false and 3 div 0 = 0 then 1 else 0", 0},
	{"OrShortCircuit", "if true or 3 div 0 = 0 then 1 else 0", 1},
	{"NotNonZero", "if not 5 then 1 else 0", 0},

	// Binding forms
	{"LetVal", "let val v = 21 in v + v end", 42},
	{"LetLegacyBind", "let v <- 21 in v + v end", 42},
	{"LetShadowing", "let val x = 1 in let val x = x + 1 in x * 10 end end", 20},

	// Control flow
	{"IfTrue", "if 2 < 3 then 1 else 2", 1},
	{"IfFalse", "if 3 < 2 then 1 else 2", 2},

	// Functions
	{"AnonymousFn", "(fn v => v * v) (3 + 4)", 49},
	{"FnAsValue", "let val inc = fn v => v + 1 in inc (inc 40) end", 42},
	{"HigherOrder", "(fn f => f 3) (fn x => x + x)", 6},
	{"RecursiveFn", "let fun f v = v * v in f (3 + 4) end", 49},
	{"RecursiveCountdown", "let fun count v = if v = 0 then 0 else count (v - 1) in count 25 end", 0},
	{"RecursiveParity", "let fun even n = if n = 0 then 1 else if n = 1 then 0 else even (n - 2) in even 10 end", 1},

	// Comments
	{"Comments", "-- doubles the value\nlet val v = 21 in (* twice *) v + v end", 42},
}

func TestPipelineEndToEnd(t *testing.T) {
	runCases(t, New(), pipelineCases)
}

// The same programs must produce the same values when the register
// allocator is switched off and the symbolic code runs directly.
func TestPipelineWithoutAllocation(t *testing.T) {
	sess := NewWithOptions(Options{MemorySize: 1000, Allocate: false})
	runCases(t, sess, pipelineCases)
}

func TestSyntaxErrorReported(t *testing.T) {
	_, errs := New().RunString("let val x = in x end")
	if len(errs) == 0 {
		t.Fatalf("expected a syntax error")
	}
	if errs[0].Kind() != "Syntax" {
		t.Errorf("error kind = %q, want %q", errs[0].Kind(), "Syntax")
	}
}

func TestUnboundVariableReported(t *testing.T) {
	_, errs := New().RunString("let val x = 1 in x + y end")
	if len(errs) == 0 {
		t.Fatalf("expected a definition error")
	}
	if errs[0].Kind() != "Definition" {
		t.Errorf("error kind = %q, want %q", errs[0].Kind(), "Definition")
	}
}

func TestDivisionByZeroReported(t *testing.T) {
	_, errs := New().RunString("1 div 0")
	if len(errs) == 0 {
		t.Fatalf("expected a runtime error")
	}
	if errs[0].Kind() != "Runtime" {
		t.Errorf("error kind = %q, want %q", errs[0].Kind(), "Runtime")
	}
	if !strings.Contains(errs[0].Message(), "arithmetic fault") {
		t.Errorf("message %q should mention the arithmetic fault", errs[0].Message())
	}
}

func TestModByZeroReported(t *testing.T) {
	_, errs := New().RunString("1 mod 0")
	if len(errs) == 0 {
		t.Fatalf("expected a runtime error")
	}
	if errs[0].Kind() != "Runtime" {
		t.Errorf("error kind = %q, want %q", errs[0].Kind(), "Runtime")
	}
}

func TestDumpWritesBothStages(t *testing.T) {
	var sb strings.Builder
	sess := NewWithOptions(Options{MemorySize: 1000, Allocate: true, Dump: &sb})
	if _, errs := sess.RunString("1 + 2"); len(errs) > 0 {
		t.Fatalf("RunString failed: %v", errs[0])
	}
	out := sb.String()
	if !strings.Contains(out, "-- generated") || !strings.Contains(out, "-- allocated") {
		t.Errorf("dump missing stages:\n%s", out)
	}
}

func TestCompileStringExposesResultVariable(t *testing.T) {
	prog, result, errs := New().CompileString("2 + 2")
	if len(errs) > 0 {
		t.Fatalf("CompileString failed: %v", errs[0])
	}
	if result == "" {
		t.Fatalf("empty result variable")
	}
	if err := prog.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	val, err := prog.GetValue(result)
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if val != 4 {
		t.Errorf("value = %d, want 4", val)
	}
}

func TestDefaultMemorySizeApplied(t *testing.T) {
	sess := NewWithOptions(Options{Allocate: true})
	prog, _, errs := sess.CompileString("1")
	if len(errs) > 0 {
		t.Fatalf("CompileString failed: %v", errs[0])
	}
	if prog.MemSize() != DefaultOptions().MemorySize {
		t.Errorf("memory size = %d, want %d", prog.MemSize(), DefaultOptions().MemorySize)
	}
}
