package vm

import (
	"errors"
	"testing"
)

// runProgram executes a fresh program over the given instructions, with the
// env map seeded into the value table.
func runProgram(t *testing.T, insts []Inst, env map[string]int) *Program {
	t.Helper()
	p := NewProgram(1000)
	for name, v := range env {
		p.SetValue(name, v)
	}
	for _, in := range insts {
		p.Emit(in)
	}
	if err := p.Run(); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	return p
}

func checkValue(t *testing.T, p *Program, name string, expect int) {
	t.Helper()
	got, err := p.GetValue(name)
	if err != nil {
		t.Fatalf("GetValue(%q) failed: %v", name, err)
	}
	if got != expect {
		t.Errorf("GetValue(%q) = %d, want %d", name, got, expect)
	}
}

func TestImmediateArithmetic(t *testing.T) {
	p := runProgram(t, []Inst{
		&Addi{Rd: "a", Rs1: RegZero, Imm: 3},
		&Addi{Rd: "b", Rs1: "a", Imm: -5},
		&Xori{Rd: "c", Rs1: "a", Imm: 1},
		&Slti{Rd: "d", Rs1: "b", Imm: 0},
		&Slti{Rd: "e", Rs1: "a", Imm: 2},
	}, nil)
	checkValue(t, p, "a", 3)
	checkValue(t, p, "b", -2)
	checkValue(t, p, "c", 2)
	checkValue(t, p, "d", 1)
	checkValue(t, p, "e", 0)
}

func TestRegisterArithmetic(t *testing.T) {
	env := map[string]int{"x": 13, "y": 4}
	cases := []struct {
		name   string
		inst   Inst
		expect int
	}{
		{"add", &Add{Rd: "r", Rs1: "x", Rs2: "y"}, 17},
		{"sub", &Sub{Rd: "r", Rs1: "x", Rs2: "y"}, 9},
		{"mul", &Mul{Rd: "r", Rs1: "x", Rs2: "y"}, 52},
		{"div", &Div{Rd: "r", Rs1: "x", Rs2: "y"}, 3},
		{"xor", &Xor{Rd: "r", Rs1: "x", Rs2: "y"}, 9},
		{"slt_false", &Slt{Rd: "r", Rs1: "x", Rs2: "y"}, 0},
		{"slt_true", &Slt{Rd: "r", Rs1: "y", Rs2: "x"}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := runProgram(t, []Inst{tc.inst}, env)
			checkValue(t, p, "r", tc.expect)
		})
	}
}

func TestFloorDivision(t *testing.T) {
	cases := []struct {
		a, b, expect int
	}{
		{13, 2, 6},
		{30, 4, 7},
		{22, 4, 5},
		{-7, 2, -4},
		{7, -2, -4},
		{-7, -2, 3},
		{6, 3, 2},
		{0, 5, 0},
	}
	for _, tc := range cases {
		p := runProgram(t, []Inst{
			&Div{Rd: "q", Rs1: "a", Rs2: "b"},
		}, map[string]int{"a": tc.a, "b": tc.b})
		got, _ := p.GetValue("q")
		if got != tc.expect {
			t.Errorf("%d div %d = %d, want %d", tc.a, tc.b, got, tc.expect)
		}
	}
}

func TestDivisionByZeroFaults(t *testing.T) {
	p := NewProgram(1000)
	p.SetValue("a", 3)
	p.SetValue("b", 0)
	p.Emit(&Div{Rd: "q", Rs1: "a", Rs2: "b"})
	err := p.Run()
	var fault *ArithmeticFault
	if !errors.As(err, &fault) {
		t.Fatalf("expected an ArithmeticFault, got %v", err)
	}
}

func TestZeroRegisterIsImmutable(t *testing.T) {
	p := runProgram(t, []Inst{
		&Addi{Rd: RegZero, Rs1: RegZero, Imm: 42},
		&Add{Rd: "r", Rs1: RegZero, Rs2: RegZero},
	}, nil)
	checkValue(t, p, "r", 0)
}

func TestStackPointerStartsAtMemorySize(t *testing.T) {
	p := NewProgram(64)
	got, err := p.GetValue(RegSP)
	if err != nil {
		t.Fatalf("GetValue(sp) failed: %v", err)
	}
	if got != 64 {
		t.Errorf("sp = %d, want 64", got)
	}
}

func TestLoadStore(t *testing.T) {
	p := runProgram(t, []Inst{
		&Addi{Rd: RegSP, Rs1: RegSP, Imm: -1},
		&Addi{Rd: "a", Rs1: RegZero, Imm: 7},
		&Sw{Base: RegSP, Offset: 0, Rs: "a"},
		&Lw{Base: RegSP, Offset: 0, Rd: "b"},
		&Addi{Rd: "c", Rs1: "b", Imm: 6},
	}, nil)
	checkValue(t, p, "b", 7)
	checkValue(t, p, "c", 13)
	word, err := p.Mem(999)
	if err != nil {
		t.Fatalf("Mem(999) failed: %v", err)
	}
	if word != 7 {
		t.Errorf("mem[999] = %d, want 7", word)
	}
}

func TestMemoryFault(t *testing.T) {
	p := NewProgram(8)
	p.Emit(&Sw{Base: RegZero, Offset: 100, Rs: RegZero})
	err := p.Run()
	var fault *MemoryFault
	if !errors.As(err, &fault) {
		t.Fatalf("expected a MemoryFault, got %v", err)
	}
	if fault.Addr != 100 {
		t.Errorf("fault address = %d, want 100", fault.Addr)
	}
}

func TestBranchTakenAndNotTaken(t *testing.T) {
	// r := 1; if r == x0 skip the overwrite; r := 2
	p := runProgram(t, []Inst{
		&Addi{Rd: "r", Rs1: RegZero, Imm: 1},
		&Beq{Rs1: "r", Rs2: RegZero, Target: 4},
		&Addi{Rd: "r", Rs1: RegZero, Imm: 2},
	}, nil)
	checkValue(t, p, "r", 2)

	// Taken branch: r stays 0.
	p = runProgram(t, []Inst{
		&Addi{Rd: "r", Rs1: RegZero, Imm: 0},
		&Beq{Rs1: "r", Rs2: RegZero, Target: 4},
		&Addi{Rd: "r", Rs1: RegZero, Imm: 2},
	}, nil)
	checkValue(t, p, "r", 0)
}

func TestJalLinksReturnAddress(t *testing.T) {
	// jal at index 0 jumps past the "skipped" addi; rd gets index 1.
	p := runProgram(t, []Inst{
		&Jal{Rd: "link", Target: 2},
		&Addi{Rd: "skipped", Rs1: RegZero, Imm: 99},
		&Addi{Rd: "r", Rs1: RegZero, Imm: 5},
	}, nil)
	checkValue(t, p, "link", 1)
	checkValue(t, p, "r", 5)
	if _, err := p.GetValue("skipped"); err == nil {
		t.Errorf("the jumped-over instruction must not execute")
	}
}

func TestJalrCallAndReturn(t *testing.T) {
	// A miniature call: jump over the body, then call it through its
	// address and observe the return.
	insts := []Inst{
		&Jal{Rd: "fn", Target: 3},                // 0: fn := 1, skip body
		&Addi{Rd: "r", Rs1: "a0", Imm: 1},        // 1: body: r := a0 + 1
		&Jalr{Rd: RegZero, Rs: RegRA, Offset: 0}, // 2: return
		&Addi{Rd: "a0", Rs1: RegZero, Imm: 41},   // 3: a0 := 41
		&Jalr{Rd: RegRA, Rs: "fn", Offset: 0},    // 4: call fn
	}
	p := runProgram(t, insts, nil)
	checkValue(t, p, "r", 42)
}

func TestUnpatchedBranchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic from an unpatched branch")
		}
	}()
	p := NewProgram(8)
	p.SetValue("c", 0)
	p.Emit(NewBeq("c", RegZero))
	_ = p.Run()
}

func TestUndefinedNameError(t *testing.T) {
	p := NewProgram(8)
	p.Emit(&Add{Rd: "r", Rs1: "nothere", Rs2: RegZero})
	err := p.Run()
	var undef *UndefinedNameError
	if !errors.As(err, &undef) {
		t.Fatalf("expected an UndefinedNameError, got %v", err)
	}
	if undef.Name != "nothere" {
		t.Errorf("fault name = %q, want %q", undef.Name, "nothere")
	}
}

func TestResetClearsValuesKeepsSlots(t *testing.T) {
	p := NewProgram(16)
	p.SetValue("a", 3)
	p.InstallSlots(map[string]int{"a": 1})
	p.Reset()
	if _, err := p.getReg("a"); err == nil {
		t.Errorf("Reset must clear the value table")
	}
	sp, _ := p.GetValue(RegSP)
	if sp != 16 {
		t.Errorf("sp after Reset = %d, want 16", sp)
	}
	if p.Slots() == nil {
		t.Errorf("Reset must keep the slot table")
	}
}
