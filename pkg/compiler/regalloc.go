package compiler

import (
	"fmt"

	"github.com/lumiis2/building-a-compiler/pkg/vm"
)

const debugRegAlloc = false

func debugPrintf(format string, args ...interface{}) {
	if debugRegAlloc {
		fmt.Printf(format, args...)
	}
}

// Allocator rewrites a generated program so that it only touches physical
// registers. The strategy is spill-everything: every compiler-generated
// variable gets its own memory slot (handed out from the bottom of memory,
// never reused), every use loads it into a scratch register (a0 or a1), and
// every definition stores the result back. Physical registers pass through
// untouched.
//
// The rewritten stream is longer than the original, so branch and jump
// targets are remapped: the allocator records where each original
// instruction starts in the new stream and fixes every target up in a
// second pass. A jal or jalr that links into a variable stores the remapped
// address, so function values stay valid after allocation.
type Allocator struct {
	prog     *vm.Program
	slots    map[string]int
	nextSlot int
}

// NewAllocator creates an allocator for the given program.
func NewAllocator(prog *vm.Program) *Allocator {
	return &Allocator{
		prog:  prog,
		slots: make(map[string]int),
	}
}

// Slot returns the memory slot assigned to a variable.
func (a *Allocator) Slot(name string) (int, bool) {
	slot, ok := a.slots[name]
	return slot, ok
}

// ensureSlot assigns a memory slot to a variable on its first definition.
// Slots start at address 1 and grow upward; sp starts at the top of memory,
// so the stack and the spill area only collide when memory is exhausted.
func (a *Allocator) ensureSlot(name string) {
	if vm.IsPhysical(name) {
		return
	}
	if _, ok := a.slots[name]; !ok {
		a.nextSlot++
		a.slots[name] = a.nextSlot
		debugPrintf("regalloc: %s -> slot %d\n", name, a.nextSlot)
	}
}

// slotOf returns the slot of a variable that must already be defined.
func (a *Allocator) slotOf(name string) int {
	slot, ok := a.slots[name]
	if !ok {
		panic(fmt.Sprintf("Allocation Error: variable %q is used before being defined", name))
	}
	return slot
}

// load makes the value of name available in a register, emitting a load
// into the scratch register when name is a spilled variable.
func (a *Allocator) load(name, scratch string, out *[]vm.Inst) string {
	if vm.IsPhysical(name) {
		return name
	}
	*out = append(*out, &vm.Lw{Base: vm.RegZero, Offset: a.slotOf(name), Rd: scratch})
	return scratch
}

// store spills the register holding name's value back to its slot.
func (a *Allocator) store(name, reg string, out *[]vm.Inst) {
	if vm.IsPhysical(name) {
		return
	}
	*out = append(*out, &vm.Sw{Base: vm.RegZero, Offset: a.slotOf(name), Rs: reg})
}

// dest picks the register an instruction computes into: the variable's
// scratch register when it is spilled, the register itself otherwise.
func (a *Allocator) dest(rd string) string {
	a.ensureSlot(rd)
	if vm.IsPhysical(rd) {
		return rd
	}
	return vm.RegA0
}

// Allocate rewrites the program in place: instructions are replaced, the
// slot table is installed so Program.GetValue resolves spilled variables
// through memory, and the machine state is reset for a fresh run.
func (a *Allocator) Allocate() {
	old := a.prog.Insts()
	out := make([]vm.Inst, 0, len(old))

	// groupStart[i] is where the rewrite of old instruction i begins in the
	// new stream; the extra final entry maps "past the end" targets.
	groupStart := make([]int, len(old)+1)

	for idx, inst := range old {
		groupStart[idx] = len(out)
		switch in := inst.(type) {
		case *vm.Addi:
			a.rewriteBinImm(in.Rd, in.Rs1, &out, func(rd, rs1 string) vm.Inst {
				return &vm.Addi{Rd: rd, Rs1: rs1, Imm: in.Imm}
			})
		case *vm.Xori:
			a.rewriteBinImm(in.Rd, in.Rs1, &out, func(rd, rs1 string) vm.Inst {
				return &vm.Xori{Rd: rd, Rs1: rs1, Imm: in.Imm}
			})
		case *vm.Slti:
			a.rewriteBinImm(in.Rd, in.Rs1, &out, func(rd, rs1 string) vm.Inst {
				return &vm.Slti{Rd: rd, Rs1: rs1, Imm: in.Imm}
			})
		case *vm.Add:
			a.rewriteBinReg(in.Rd, in.Rs1, in.Rs2, &out, func(rd, rs1, rs2 string) vm.Inst {
				return &vm.Add{Rd: rd, Rs1: rs1, Rs2: rs2}
			})
		case *vm.Sub:
			a.rewriteBinReg(in.Rd, in.Rs1, in.Rs2, &out, func(rd, rs1, rs2 string) vm.Inst {
				return &vm.Sub{Rd: rd, Rs1: rs1, Rs2: rs2}
			})
		case *vm.Mul:
			a.rewriteBinReg(in.Rd, in.Rs1, in.Rs2, &out, func(rd, rs1, rs2 string) vm.Inst {
				return &vm.Mul{Rd: rd, Rs1: rs1, Rs2: rs2}
			})
		case *vm.Div:
			a.rewriteBinReg(in.Rd, in.Rs1, in.Rs2, &out, func(rd, rs1, rs2 string) vm.Inst {
				return &vm.Div{Rd: rd, Rs1: rs1, Rs2: rs2}
			})
		case *vm.Xor:
			a.rewriteBinReg(in.Rd, in.Rs1, in.Rs2, &out, func(rd, rs1, rs2 string) vm.Inst {
				return &vm.Xor{Rd: rd, Rs1: rs1, Rs2: rs2}
			})
		case *vm.Slt:
			a.rewriteBinReg(in.Rd, in.Rs1, in.Rs2, &out, func(rd, rs1, rs2 string) vm.Inst {
				return &vm.Slt{Rd: rd, Rs1: rs1, Rs2: rs2}
			})
		case *vm.Lw:
			a.rewriteLoad(in, &out)
		case *vm.Sw:
			a.rewriteStore(in, &out)
		case *vm.Beq:
			rs1 := a.load(in.Rs1, vm.RegA0, &out)
			rs2 := a.load(in.Rs2, vm.RegA1, &out)
			out = append(out, &vm.Beq{Rs1: rs1, Rs2: rs2, Target: in.Target})
		case *vm.Jal:
			a.rewriteJal(in, &out)
		case *vm.Jalr:
			a.rewriteJalr(in, &out)
		default:
			panic(fmt.Sprintf("Allocation Error: unknown instruction %T", inst))
		}
	}
	groupStart[len(old)] = len(out)

	// Second pass: move branch and jump targets into the new stream.
	remap := func(t int) int {
		if t >= 0 && t <= len(old) {
			return groupStart[t]
		}
		return t
	}
	for _, inst := range out {
		switch j := inst.(type) {
		case *vm.Beq:
			j.SetTarget(remap(j.Target))
		case *vm.Jal:
			j.SetTarget(remap(j.Target))
		}
	}

	a.prog.SetInsts(out)
	a.prog.InstallSlots(a.slots)
	a.prog.Reset()
}

func (a *Allocator) rewriteBinImm(rd, rs1 string, out *[]vm.Inst, mk func(rd, rs1 string) vm.Inst) {
	dest := a.dest(rd)
	src := a.load(rs1, vm.RegA0, out)
	*out = append(*out, mk(dest, src))
	a.store(rd, dest, out)
}

func (a *Allocator) rewriteBinReg(rd, rs1, rs2 string, out *[]vm.Inst, mk func(rd, rs1, rs2 string) vm.Inst) {
	dest := a.dest(rd)
	src1 := a.load(rs1, vm.RegA0, out)
	src2 := a.load(rs2, vm.RegA1, out)
	*out = append(*out, mk(dest, src1, src2))
	a.store(rd, dest, out)
}

func (a *Allocator) rewriteLoad(in *vm.Lw, out *[]vm.Inst) {
	dest := a.dest(in.Rd)
	base := a.load(in.Base, vm.RegA1, out)
	*out = append(*out, &vm.Lw{Base: base, Offset: in.Offset, Rd: dest})
	a.store(in.Rd, dest, out)
}

func (a *Allocator) rewriteStore(in *vm.Sw, out *[]vm.Inst) {
	val := a.load(in.Rs, vm.RegA0, out)
	base := a.load(in.Base, vm.RegA1, out)
	*out = append(*out, &vm.Sw{Base: base, Offset: in.Offset, Rs: val})
}

// rewriteJal handles the two faces of jal. With a physical rd it is plain
// control flow and passes through. With a variable rd it materializes a
// function value: the entry address (the new-stream index right after this
// group) is stored into the variable's slot, and the jump itself links
// nothing.
func (a *Allocator) rewriteJal(in *vm.Jal, out *[]vm.Inst) {
	if vm.IsPhysical(in.Rd) {
		*out = append(*out, &vm.Jal{Rd: in.Rd, Target: in.Target})
		return
	}
	a.ensureSlot(in.Rd)
	entry := &vm.Addi{Rd: vm.RegA0, Rs1: vm.RegZero}
	*out = append(*out, entry)
	a.store(in.Rd, vm.RegA0, out)
	*out = append(*out, &vm.Jal{Rd: vm.RegZero, Target: in.Target})
	// The entry address is the instruction following this group, already in
	// new-stream coordinates, so the target fix-up pass must not touch it.
	entry.Imm = len(*out)
}

func (a *Allocator) rewriteJalr(in *vm.Jalr, out *[]vm.Inst) {
	if vm.IsPhysical(in.Rd) {
		src := a.load(in.Rs, vm.RegA1, out)
		*out = append(*out, &vm.Jalr{Rd: in.Rd, Rs: src, Offset: in.Offset})
		return
	}
	a.ensureSlot(in.Rd)
	entry := &vm.Addi{Rd: vm.RegA0, Rs1: vm.RegZero}
	*out = append(*out, entry)
	a.store(in.Rd, vm.RegA0, out)
	src := a.load(in.Rs, vm.RegA1, out)
	*out = append(*out, &vm.Jalr{Rd: vm.RegZero, Rs: src, Offset: in.Offset})
	entry.Imm = len(*out)
}
