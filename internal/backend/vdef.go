package backend

import "github.com/xenia-project/xenia-sub034/internal/hir"

// SSAValueDefinition records where one HIR value came from: either a
// block parameter (Instr nil) or the Nth result of an instruction.
// Machines consult RefCount to decide whether a producer can be
// folded into its single consumer instead of materialized into a
// register (e.g. a compare used only by a branch fused into a single
// CMP+Jcc).
type SSAValueDefinition struct {
	BlkParamVReg VReg

	Instr    *hir.Instruction
	N        int
	RefCount int
}

func (d *SSAValueDefinition) IsFromInstr() bool      { return d.Instr != nil }
func (d *SSAValueDefinition) IsFromBlockParam() bool { return d.Instr == nil }
