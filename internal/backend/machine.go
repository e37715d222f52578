package backend

import "github.com/xenia-project/xenia-sub034/internal/hir"

// Machine is a target-specific code generator driven by Compiler. A
// Machine never walks HIR on its own; Compiler hands it one function
// at a time, one block at a time, instructions in reverse order so a
// Machine can fuse a multi-instruction pattern (e.g. compare-and-
// branch) by consuming more than one HIR instruction per LowerInstr
// call and marking the rest via CompilationContext.MarkLowered.
type Machine interface {
	// SetCompilationContext is called once, before the first Compile.
	SetCompilationContext(CompilationContext)

	// StartFunction begins lowering f; f.Param(0) is always the
	// *ppc.Context handle, assigned a fixed physical register by the
	// Machine's calling convention.
	StartFunction(f *hir.Function)

	// StartBlock begins lowering blk, the next block in f's reverse
	// postorder.
	StartBlock(blk *hir.BasicBlock)

	// LowerBranches lowers blk's terminator, given the block's final
	// branch (br0) and, for a conditional-then-unconditional pair, the
	// conditional branch immediately before it (br1, or nil).
	LowerBranches(br0, br1 *hir.Instruction)

	// LowerInstr lowers one non-branching instruction.
	LowerInstr(inst *hir.Instruction)

	// EndBlock finishes the current block.
	EndBlock()

	// EndFunction finishes the current function, running register
	// allocation and instruction encoding over everything buffered
	// since StartFunction.
	EndFunction()

	// Code returns the machine code produced by the most recent
	// EndFunction.
	Code() []byte

	// Reset clears all per-function state for reuse.
	Reset()
}

// CompilationContext is the callback surface Compiler exposes to a
// Machine during lowering.
type CompilationContext interface {
	// MarkLowered records that inst was already consumed by a fused
	// lowering, so Compiler's traversal skips it.
	MarkLowered(inst *hir.Instruction)

	// ValueDefinition returns where v was produced.
	ValueDefinition(v *hir.Value) *SSAValueDefinition

	// VRegOf returns the VReg assigned to v.
	VRegOf(v *hir.Value) VReg

	// ParamVReg returns the VReg holding the function's context-pointer
	// argument (f.Param(0)).
	ParamVReg() VReg

	// AllocateVReg hands out a fresh VReg for a lowering-internal
	// temporary (e.g. a materialized immediate) that has no
	// corresponding HIR value.
	AllocateVReg(RegType) VReg

	// RegTypeOfVReg returns the register class v was allocated with,
	// so the Machine's register allocator can place it in the matching
	// physical file.
	RegTypeOfVReg(VReg) RegType
}
