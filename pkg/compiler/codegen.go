package compiler

import (
	"fmt"

	"github.com/lumiis2/building-a-compiler/pkg/parser"
	"github.com/lumiis2/building-a-compiler/pkg/vm"
)

// Generator lowers a renamed expression tree into the three-address
// instruction set. Every subexpression leaves its value in a fresh
// compiler-generated variable; Gen returns the variable holding the value of
// the whole expression. The emitted code still refers to variables by name;
// the register allocator later rewrites it to use only physical registers.
//
// The generator assumes its input went through Rename: it never checks for
// shadowing, and an unknown node kind is a construction bug.
type Generator struct {
	varCounter int
	fnCounter  int
}

// NewGenerator creates a Generator whose fresh names start at v1.
func NewGenerator() *Generator {
	return &Generator{}
}

// freshVar mints a new temporary variable name.
func (g *Generator) freshVar() string {
	g.varCounter++
	return fmt.Sprintf("v%d", g.varCounter)
}

// freshFnAddr mints the variable that will hold a function's entry address.
func (g *Generator) freshFnAddr(formal string) string {
	g.fnCounter++
	return fmt.Sprintf("fun_%s_%d", formal, g.fnCounter)
}

// Gen emits code for exp into prog and returns the name of the variable
// holding the result.
func (g *Generator) Gen(exp parser.Expression, prog *vm.Program) string {
	switch e := exp.(type) {
	case *parser.NumberLiteral:
		v := g.freshVar()
		prog.Emit(&vm.Addi{Rd: v, Rs1: vm.RegZero, Imm: e.Value})
		return v

	case *parser.BooleanLiteral:
		v := g.freshVar()
		val := 0
		if e.Value {
			val = 1
		}
		prog.Emit(&vm.Addi{Rd: v, Rs1: vm.RegZero, Imm: val})
		return v

	case *parser.Identifier:
		// A variable already names its own location; no code needed.
		return e.Value

	case *parser.PrefixExpression:
		return g.genPrefix(e, prog)

	case *parser.InfixExpression:
		return g.genInfix(e, prog)

	case *parser.IfExpression:
		return g.genIf(e, prog)

	case *parser.LetExpression:
		return g.genLet(e, prog)

	case *parser.FnLiteral:
		return g.genFunction(g.freshFnAddr(e.Param.Value), e.Param.Value, e.Body, prog)

	case *parser.FunLiteral:
		// A recursive function's entry address is bound to its own name, so
		// that occurrences of the name inside the body call back into it.
		return g.genFunction(e.Name.Value, e.Param.Value, e.Body, prog)

	case *parser.AppExpression:
		return g.genApp(e, prog)
	}

	panic(fmt.Sprintf("Compiler Error: cannot generate code for %T", exp))
}

func (g *Generator) genPrefix(e *parser.PrefixExpression, prog *vm.Program) string {
	val := g.Gen(e.Operand, prog)
	switch e.Operator {
	case "~":
		v := g.freshVar()
		prog.Emit(&vm.Sub{Rd: v, Rs1: vm.RegZero, Rs2: val})
		return v
	case "not":
		// Any nonzero value counts as true: fold the operand to 0/1 first,
		// then flip the low bit.
		t1 := g.freshVar()
		prog.Emit(&vm.Slt{Rd: t1, Rs1: vm.RegZero, Rs2: val})
		t2 := g.freshVar()
		prog.Emit(&vm.Slt{Rd: t2, Rs1: val, Rs2: vm.RegZero})
		norm := g.freshVar()
		prog.Emit(&vm.Add{Rd: norm, Rs1: t1, Rs2: t2})
		v := g.freshVar()
		prog.Emit(&vm.Xori{Rd: v, Rs1: norm, Imm: 1})
		return v
	}
	panic(fmt.Sprintf("Compiler Error: unknown prefix operator %q", e.Operator))
}

func (g *Generator) genInfix(e *parser.InfixExpression, prog *vm.Program) string {
	// and/or must not evaluate their right operand eagerly.
	switch e.Operator {
	case "and":
		return g.genAnd(e, prog)
	case "or":
		return g.genOr(e, prog)
	}

	left := g.Gen(e.Left, prog)
	right := g.Gen(e.Right, prog)

	switch e.Operator {
	case "+":
		v := g.freshVar()
		prog.Emit(&vm.Add{Rd: v, Rs1: left, Rs2: right})
		return v
	case "-":
		v := g.freshVar()
		prog.Emit(&vm.Sub{Rd: v, Rs1: left, Rs2: right})
		return v
	case "*":
		v := g.freshVar()
		prog.Emit(&vm.Mul{Rd: v, Rs1: left, Rs2: right})
		return v
	case "div":
		v := g.freshVar()
		prog.Emit(&vm.Div{Rd: v, Rs1: left, Rs2: right})
		return v
	case "mod":
		// The machine has no remainder instruction:
		// a mod b = a - (a div b) * b, which is the floored modulo since
		// div rounds toward negative infinity.
		q := g.freshVar()
		prog.Emit(&vm.Div{Rd: q, Rs1: left, Rs2: right})
		m := g.freshVar()
		prog.Emit(&vm.Mul{Rd: m, Rs1: q, Rs2: right})
		v := g.freshVar()
		prog.Emit(&vm.Sub{Rd: v, Rs1: left, Rs2: m})
		return v
	case "=":
		// left = right iff left-right is neither < 0 nor >= 1. The two
		// slti results differ exactly when the difference is zero.
		diff := g.freshVar()
		prog.Emit(&vm.Sub{Rd: diff, Rs1: left, Rs2: right})
		t1 := g.freshVar()
		prog.Emit(&vm.Slti{Rd: t1, Rs1: diff, Imm: 1})
		t2 := g.freshVar()
		prog.Emit(&vm.Slti{Rd: t2, Rs1: diff, Imm: 0})
		v := g.freshVar()
		prog.Emit(&vm.Sub{Rd: v, Rs1: t1, Rs2: t2})
		return v
	case "<=":
		// left <= right iff not (right < left).
		t := g.freshVar()
		prog.Emit(&vm.Slt{Rd: t, Rs1: right, Rs2: left})
		v := g.freshVar()
		prog.Emit(&vm.Xori{Rd: v, Rs1: t, Imm: 1})
		return v
	case "<":
		v := g.freshVar()
		prog.Emit(&vm.Slt{Rd: v, Rs1: left, Rs2: right})
		return v
	}
	panic(fmt.Sprintf("Compiler Error: unknown infix operator %q", e.Operator))
}

// genAnd emits short-circuit conjunction: the right operand only runs when
// the left one is true. When the left operand is false the result is 0
// without touching the right operand.
func (g *Generator) genAnd(e *parser.InfixExpression, prog *vm.Program) string {
	left := g.Gen(e.Left, prog)
	result := g.freshVar()

	beq := vm.NewBeq(left, vm.RegZero)
	prog.Emit(beq)

	right := g.Gen(e.Right, prog)
	prog.Emit(&vm.Add{Rd: result, Rs1: right, Rs2: vm.RegZero})
	jal := vm.NewJal(vm.RegZero)
	prog.Emit(jal)

	beq.SetTarget(prog.Len())
	prog.Emit(&vm.Addi{Rd: result, Rs1: vm.RegZero, Imm: 0})

	jal.SetTarget(prog.Len())
	return result
}

// genOr emits short-circuit disjunction: the right operand only runs when
// the left one is false.
func (g *Generator) genOr(e *parser.InfixExpression, prog *vm.Program) string {
	left := g.Gen(e.Left, prog)
	result := g.freshVar()

	beq := vm.NewBeq(left, vm.RegZero)
	prog.Emit(beq)

	prog.Emit(&vm.Addi{Rd: result, Rs1: vm.RegZero, Imm: 1})
	jal := vm.NewJal(vm.RegZero)
	prog.Emit(jal)

	beq.SetTarget(prog.Len())
	right := g.Gen(e.Right, prog)
	prog.Emit(&vm.Add{Rd: result, Rs1: right, Rs2: vm.RegZero})

	jal.SetTarget(prog.Len())
	return result
}

// genIf emits both branches with a single result variable written at the
// end of each, so downstream code has one name to read regardless of which
// branch ran.
func (g *Generator) genIf(e *parser.IfExpression, prog *vm.Program) string {
	cond := g.Gen(e.Condition, prog)
	result := g.freshVar()

	beq := vm.NewBeq(cond, vm.RegZero)
	prog.Emit(beq)

	thenVar := g.Gen(e.Consequence, prog)
	prog.Emit(&vm.Add{Rd: result, Rs1: thenVar, Rs2: vm.RegZero})
	jal := vm.NewJal(vm.RegZero)
	prog.Emit(jal)

	beq.SetTarget(prog.Len())
	elseVar := g.Gen(e.Alternative, prog)
	prog.Emit(&vm.Add{Rd: result, Rs1: elseVar, Rs2: vm.RegZero})

	jal.SetTarget(prog.Len())
	return result
}

// genLet aliases the bound name to the definition's variable and then runs
// the body. Renaming guarantees the name is globally unique, so the plain
// copy cannot clash with another binding.
func (g *Generator) genLet(e *parser.LetExpression, prog *vm.Program) string {
	defVar := g.Gen(e.Def, prog)
	prog.Emit(&vm.Add{Rd: e.Name.Value, Rs1: vm.RegZero, Rs2: defVar})
	result := g.freshVar()
	bodyVar := g.Gen(e.Body, prog)
	prog.Emit(&vm.Add{Rd: result, Rs1: vm.RegZero, Rs2: bodyVar})
	return result
}

// genFunction emits a function body inline, guarded by a jump over it, and
// leaves the body's entry address in addrVar. The calling convention is
// a0 for both the argument and the return value, with ra saved on the
// machine stack around the body so nested calls can clobber it.
func (g *Generator) genFunction(addrVar, formal string, body parser.Expression, prog *vm.Program) string {
	jal := vm.NewJal(addrVar)
	prog.Emit(jal)

	prog.Emit(&vm.Addi{Rd: vm.RegSP, Rs1: vm.RegSP, Imm: -1})
	prog.Emit(&vm.Sw{Base: vm.RegSP, Offset: 0, Rs: vm.RegRA})
	prog.Emit(&vm.Add{Rd: formal, Rs1: vm.RegA0, Rs2: vm.RegZero})

	bodyVar := g.Gen(body, prog)

	prog.Emit(&vm.Add{Rd: vm.RegA0, Rs1: bodyVar, Rs2: vm.RegZero})
	prog.Emit(&vm.Lw{Base: vm.RegSP, Offset: 0, Rd: vm.RegRA})
	prog.Emit(&vm.Addi{Rd: vm.RegSP, Rs1: vm.RegSP, Imm: 1})
	prog.Emit(&vm.Jalr{Rd: vm.RegZero, Rs: vm.RegRA, Offset: 0})

	jal.SetTarget(prog.Len())
	return addrVar
}

// genApp emits a call: argument into a0, jalr through the function-address
// variable, result copied out of a0.
func (g *Generator) genApp(e *parser.AppExpression, prog *vm.Program) string {
	fnAddr := g.Gen(e.Function, prog)
	arg := g.Gen(e.Argument, prog)

	prog.Emit(&vm.Add{Rd: vm.RegA0, Rs1: arg, Rs2: vm.RegZero})
	prog.Emit(&vm.Jalr{Rd: vm.RegRA, Rs: fnAddr, Offset: 0})

	result := g.freshVar()
	prog.Emit(&vm.Add{Rd: result, Rs1: vm.RegA0, Rs2: vm.RegZero})
	return result
}
