package vm

import (
	"fmt"
	"io"
	"strings"
)

// Physical register names. x0 is hard-wired to zero: reads always yield 0
// and writes are discarded. sp starts at the memory size, so the stack grows
// downward from the top of memory while the allocator hands out spill slots
// from the bottom.
const (
	RegZero = "x0"
	RegSP   = "sp"
	RegRA   = "ra"
	RegA0   = "a0"
	RegA1   = "a1"
	RegA2   = "a2"
	RegA3   = "a3"
)

// IsPhysical reports whether a register name denotes one of the machine's
// physical registers rather than a compiler-generated variable.
func IsPhysical(name string) bool {
	switch name {
	case RegZero, RegSP, RegRA, RegA0, RegA1, RegA2, RegA3:
		return true
	}
	return false
}

// Program is the state of one machine execution: an instruction stream, a
// flat word-addressed memory, and a register/variable table. Before register
// allocation the table holds every compiler-generated variable; afterwards
// only physical registers are written and spilled variables live in memory,
// reachable through the slot table the allocator installs.
type Program struct {
	insts []Inst
	mem   []int
	vals  map[string]int
	slots map[string]int // variable -> memory slot, set by the allocator
	pc    int
}

// NewProgram creates a program with the given memory size (in words).
func NewProgram(memSize int) *Program {
	p := &Program{
		mem:  make([]int, memSize),
		vals: make(map[string]int),
	}
	p.vals[RegSP] = memSize
	return p
}

// Emit appends an instruction and returns its index.
func (p *Program) Emit(i Inst) int {
	p.insts = append(p.insts, i)
	return len(p.insts) - 1
}

// Len returns the number of instructions. During generation this is the
// index the next emitted instruction will get, which is what branch patching
// needs.
func (p *Program) Len() int {
	return len(p.insts)
}

// Insts returns the instruction stream.
func (p *Program) Insts() []Inst {
	return p.insts
}

// SetInsts replaces the instruction stream. Used by rewriting passes.
func (p *Program) SetInsts(insts []Inst) {
	p.insts = insts
}

// MemSize returns the memory size in words.
func (p *Program) MemSize() int {
	return len(p.mem)
}

// PC returns the current program counter.
func (p *Program) PC() int {
	return p.pc
}

// getReg reads a register or variable.
func (p *Program) getReg(name string) (int, error) {
	if name == RegZero {
		return 0, nil
	}
	v, ok := p.vals[name]
	if !ok {
		return 0, &UndefinedNameError{Name: name}
	}
	return v, nil
}

// setReg writes a register or variable. Writes to x0 are discarded.
func (p *Program) setReg(name string, v int) {
	if name == RegZero {
		return
	}
	p.vals[name] = v
}

// SetValue seeds a variable before execution. Mostly useful in tests, to
// run instruction sequences over a prepared environment.
func (p *Program) SetValue(name string, v int) {
	p.setReg(name, v)
}

// GetValue reads the final value of a name. Once the allocator has installed
// its slot table, spilled variables resolve through memory; physical
// registers and unallocated programs resolve through the value table.
func (p *Program) GetValue(name string) (int, error) {
	if p.slots != nil && !IsPhysical(name) {
		slot, ok := p.slots[name]
		if !ok {
			return 0, &UndefinedNameError{Name: name}
		}
		return p.loadWord(slot)
	}
	return p.getReg(name)
}

// InstallSlots records the allocator's variable-to-memory mapping, switching
// GetValue over to memory-resident lookups.
func (p *Program) InstallSlots(slots map[string]int) {
	p.slots = slots
}

// Slots returns the installed slot table, or nil before allocation.
func (p *Program) Slots() map[string]int {
	return p.slots
}

func (p *Program) loadWord(addr int) (int, error) {
	if addr < 0 || addr >= len(p.mem) {
		return 0, &MemoryFault{Addr: addr, Size: len(p.mem)}
	}
	return p.mem[addr], nil
}

func (p *Program) storeWord(addr, v int) error {
	if addr < 0 || addr >= len(p.mem) {
		return &MemoryFault{Addr: addr, Size: len(p.mem)}
	}
	p.mem[addr] = v
	return nil
}

// Mem reads a memory word directly. Mostly useful in tests.
func (p *Program) Mem(addr int) (int, error) {
	return p.loadWord(addr)
}

// Reset clears the value table and rewinds the pc, keeping instructions,
// memory and the slot table. The allocator calls it so that the rewritten
// program starts from a clean register file (sp re-seeded to the memory
// size).
func (p *Program) Reset() {
	p.vals = map[string]int{RegSP: len(p.mem)}
	p.pc = 0
}

// Step executes the instruction at pc. The pc is advanced before Exec runs,
// so control-flow instructions see the address of their successor.
func (p *Program) Step() error {
	inst := p.insts[p.pc]
	p.pc++
	return inst.Exec(p)
}

// Run executes the program until the pc leaves the instruction stream.
// A program that never leaves the stream runs forever.
func (p *Program) Run() error {
	for p.pc >= 0 && p.pc < len(p.insts) {
		if err := p.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Dump writes the instruction stream, one numbered instruction per line.
// The format is a debugging aid, not a stable interface.
func (p *Program) Dump(w io.Writer) {
	for i, inst := range p.insts {
		fmt.Fprintf(w, "%3d: %s\n", i, inst.String())
	}
}

// String renders the whole instruction stream.
func (p *Program) String() string {
	var sb strings.Builder
	p.Dump(&sb)
	return sb.String()
}

// --- Machine faults ---

// ArithmeticFault reports division (or the derived modulo) by zero.
type ArithmeticFault struct {
	Op string
}

func (e *ArithmeticFault) Error() string {
	return fmt.Sprintf("arithmetic fault: %s by zero", e.Op)
}

// UndefinedNameError reports a read of a register or variable that was
// never written.
type UndefinedNameError struct {
	Name string
}

func (e *UndefinedNameError) Error() string {
	return fmt.Sprintf("undefined name: %s", e.Name)
}

// MemoryFault reports an out-of-bounds memory access.
type MemoryFault struct {
	Addr int
	Size int
}

func (e *MemoryFault) Error() string {
	return fmt.Sprintf("memory fault: address %d outside [0, %d)", e.Addr, e.Size)
}
