package vm

import "fmt"

// Inst is the interface implemented by every machine instruction. The
// instruction set is a small RISC-V-flavoured three-address language:
// arithmetic and comparison on named registers, loads and stores against a
// flat word-addressed memory, and pc-relative control flow via beq/jal/jalr.
//
// Register operands are plain strings. Before register allocation they are
// compiler-generated variable names; after allocation only the physical
// names (x0, sp, ra, a0..a3) remain.
type Inst interface {
	// Opcode returns the lower-case mnemonic, e.g. "addi".
	Opcode() string
	// Exec runs the instruction against the program state. The pc has
	// already been advanced past this instruction; control-flow
	// instructions overwrite it.
	Exec(p *Program) error
	// String renders the instruction in assembly-like syntax.
	String() string
}

// unpatchedTarget marks a branch or jump whose destination has not been
// filled in yet. Generators emit control flow in two passes: first the
// instruction with an unknown target, then SetTarget once the destination
// index is known.
const unpatchedTarget = -1

// --- Immediate arithmetic ---

// Addi implements rd := rs1 + imm.
type Addi struct {
	Rd  string
	Rs1 string
	Imm int
}

func (i *Addi) Opcode() string { return "addi" }
func (i *Addi) String() string { return fmt.Sprintf("addi %s, %s, %d", i.Rd, i.Rs1, i.Imm) }
func (i *Addi) Exec(p *Program) error {
	v, err := p.getReg(i.Rs1)
	if err != nil {
		return err
	}
	p.setReg(i.Rd, v+i.Imm)
	return nil
}

// Xori implements rd := rs1 ^ imm.
type Xori struct {
	Rd  string
	Rs1 string
	Imm int
}

func (i *Xori) Opcode() string { return "xori" }
func (i *Xori) String() string { return fmt.Sprintf("xori %s, %s, %d", i.Rd, i.Rs1, i.Imm) }
func (i *Xori) Exec(p *Program) error {
	v, err := p.getReg(i.Rs1)
	if err != nil {
		return err
	}
	p.setReg(i.Rd, v^i.Imm)
	return nil
}

// Slti implements rd := 1 if rs1 < imm else 0.
type Slti struct {
	Rd  string
	Rs1 string
	Imm int
}

func (i *Slti) Opcode() string { return "slti" }
func (i *Slti) String() string { return fmt.Sprintf("slti %s, %s, %d", i.Rd, i.Rs1, i.Imm) }
func (i *Slti) Exec(p *Program) error {
	v, err := p.getReg(i.Rs1)
	if err != nil {
		return err
	}
	p.setReg(i.Rd, boolToInt(v < i.Imm))
	return nil
}

// --- Register arithmetic ---

// binaryExec factors the common shape of the two-source instructions.
func binaryExec(p *Program, rd, rs1, rs2 string, op func(a, b int) (int, error)) error {
	a, err := p.getReg(rs1)
	if err != nil {
		return err
	}
	b, err := p.getReg(rs2)
	if err != nil {
		return err
	}
	v, err := op(a, b)
	if err != nil {
		return err
	}
	p.setReg(rd, v)
	return nil
}

// Add implements rd := rs1 + rs2.
type Add struct {
	Rd  string
	Rs1 string
	Rs2 string
}

func (i *Add) Opcode() string { return "add" }
func (i *Add) String() string { return fmt.Sprintf("add %s, %s, %s", i.Rd, i.Rs1, i.Rs2) }
func (i *Add) Exec(p *Program) error {
	return binaryExec(p, i.Rd, i.Rs1, i.Rs2, func(a, b int) (int, error) { return a + b, nil })
}

// Sub implements rd := rs1 - rs2.
type Sub struct {
	Rd  string
	Rs1 string
	Rs2 string
}

func (i *Sub) Opcode() string { return "sub" }
func (i *Sub) String() string { return fmt.Sprintf("sub %s, %s, %s", i.Rd, i.Rs1, i.Rs2) }
func (i *Sub) Exec(p *Program) error {
	return binaryExec(p, i.Rd, i.Rs1, i.Rs2, func(a, b int) (int, error) { return a - b, nil })
}

// Mul implements rd := rs1 * rs2.
type Mul struct {
	Rd  string
	Rs1 string
	Rs2 string
}

func (i *Mul) Opcode() string { return "mul" }
func (i *Mul) String() string { return fmt.Sprintf("mul %s, %s, %s", i.Rd, i.Rs1, i.Rs2) }
func (i *Mul) Exec(p *Program) error {
	return binaryExec(p, i.Rd, i.Rs1, i.Rs2, func(a, b int) (int, error) { return a * b, nil })
}

// Div implements rd := rs1 div rs2, rounding toward negative infinity.
// Division by zero is an arithmetic fault.
type Div struct {
	Rd  string
	Rs1 string
	Rs2 string
}

func (i *Div) Opcode() string { return "div" }
func (i *Div) String() string { return fmt.Sprintf("div %s, %s, %s", i.Rd, i.Rs1, i.Rs2) }
func (i *Div) Exec(p *Program) error {
	return binaryExec(p, i.Rd, i.Rs1, i.Rs2, floorDiv)
}

// floorDiv rounds the quotient toward negative infinity, so that
// 30 div 4 = 7 and -7 div 2 = -4.
func floorDiv(a, b int) (int, error) {
	if b == 0 {
		return 0, &ArithmeticFault{Op: "div"}
	}
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q, nil
}

// Xor implements rd := rs1 ^ rs2.
type Xor struct {
	Rd  string
	Rs1 string
	Rs2 string
}

func (i *Xor) Opcode() string { return "xor" }
func (i *Xor) String() string { return fmt.Sprintf("xor %s, %s, %s", i.Rd, i.Rs1, i.Rs2) }
func (i *Xor) Exec(p *Program) error {
	return binaryExec(p, i.Rd, i.Rs1, i.Rs2, func(a, b int) (int, error) { return a ^ b, nil })
}

// Slt implements rd := 1 if rs1 < rs2 else 0.
type Slt struct {
	Rd  string
	Rs1 string
	Rs2 string
}

func (i *Slt) Opcode() string { return "slt" }
func (i *Slt) String() string { return fmt.Sprintf("slt %s, %s, %s", i.Rd, i.Rs1, i.Rs2) }
func (i *Slt) Exec(p *Program) error {
	return binaryExec(p, i.Rd, i.Rs1, i.Rs2, func(a, b int) (int, error) { return boolToInt(a < b), nil })
}

// --- Memory ---

// Lw implements rd := mem[base + offset].
type Lw struct {
	Base   string
	Offset int
	Rd     string
}

func (i *Lw) Opcode() string { return "lw" }
func (i *Lw) String() string { return fmt.Sprintf("lw %s, %d(%s)", i.Rd, i.Offset, i.Base) }
func (i *Lw) Exec(p *Program) error {
	base, err := p.getReg(i.Base)
	if err != nil {
		return err
	}
	v, err := p.loadWord(base + i.Offset)
	if err != nil {
		return err
	}
	p.setReg(i.Rd, v)
	return nil
}

// Sw implements mem[base + offset] := rs.
type Sw struct {
	Base   string
	Offset int
	Rs     string
}

func (i *Sw) Opcode() string { return "sw" }
func (i *Sw) String() string { return fmt.Sprintf("sw %s, %d(%s)", i.Rs, i.Offset, i.Base) }
func (i *Sw) Exec(p *Program) error {
	base, err := p.getReg(i.Base)
	if err != nil {
		return err
	}
	v, err := p.getReg(i.Rs)
	if err != nil {
		return err
	}
	return p.storeWord(base+i.Offset, v)
}

// --- Control flow ---

// Beq jumps to Target when rs1 == rs2. A freshly emitted Beq may carry an
// unpatched target; SetTarget fills it in.
type Beq struct {
	Rs1    string
	Rs2    string
	Target int
}

// NewBeq creates a branch whose target will be patched later.
func NewBeq(rs1, rs2 string) *Beq {
	return &Beq{Rs1: rs1, Rs2: rs2, Target: unpatchedTarget}
}

// SetTarget patches the branch destination.
func (i *Beq) SetTarget(t int) { i.Target = t }

func (i *Beq) Opcode() string { return "beq" }
func (i *Beq) String() string { return fmt.Sprintf("beq %s, %s, %d", i.Rs1, i.Rs2, i.Target) }
func (i *Beq) Exec(p *Program) error {
	if i.Target == unpatchedTarget {
		panic("Machine Error: executing beq with an unpatched target")
	}
	a, err := p.getReg(i.Rs1)
	if err != nil {
		return err
	}
	b, err := p.getReg(i.Rs2)
	if err != nil {
		return err
	}
	if a == b {
		p.pc = i.Target
	}
	return nil
}

// Jal stores the address of the next instruction into rd, then jumps to
// Target. With rd = x0 it is a plain unconditional jump.
type Jal struct {
	Rd     string
	Target int
}

// NewJal creates a jump whose target will be patched later.
func NewJal(rd string) *Jal {
	return &Jal{Rd: rd, Target: unpatchedTarget}
}

// SetTarget patches the jump destination.
func (i *Jal) SetTarget(t int) { i.Target = t }

func (i *Jal) Opcode() string { return "jal" }
func (i *Jal) String() string { return fmt.Sprintf("jal %s, %d", i.Rd, i.Target) }
func (i *Jal) Exec(p *Program) error {
	if i.Target == unpatchedTarget {
		panic("Machine Error: executing jal with an unpatched target")
	}
	// pc has already been advanced; it is the return address.
	p.setReg(i.Rd, p.pc)
	p.pc = i.Target
	return nil
}

// Jalr stores the address of the next instruction into rd, then jumps to
// the address held in rs plus the offset. It implements both calls
// (jalr ra, fnAddr, 0) and returns (jalr x0, ra, 0).
type Jalr struct {
	Rd     string
	Rs     string
	Offset int
}

func (i *Jalr) Opcode() string { return "jalr" }
func (i *Jalr) String() string { return fmt.Sprintf("jalr %s, %d(%s)", i.Rd, i.Offset, i.Rs) }
func (i *Jalr) Exec(p *Program) error {
	dest, err := p.getReg(i.Rs)
	if err != nil {
		return err
	}
	p.setReg(i.Rd, p.pc)
	p.pc = dest + i.Offset
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
