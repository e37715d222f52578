package backend

import "github.com/xenia-project/xenia-sub034/internal/hir"

// NewCompiler returns a Compiler driving mach. One Compiler is reused
// across every function the runtime compiles; call Reset between
// functions.
func NewCompiler(mach Machine) *Compiler {
	c := &Compiler{mach: mach, alreadyLowered: make(map[*hir.Instruction]struct{})}
	mach.SetCompilationContext(c)
	return c
}

// Compiler assigns a VReg to every HIR value in a function and drives
// a Machine over the function's blocks in reverse postorder,
// instructions in reverse order within each block, matching the
// bottom-up instruction-selection style internal/backend/x64's
// Machine implements.
type Compiler struct {
	mach Machine

	nextVRegID VRegID

	valueVRegs    []VReg
	valueDefs     []SSAValueDefinition
	vRegToRegType []RegType

	paramVReg VReg

	alreadyLowered map[*hir.Instruction]struct{}
}

// Compile lowers f, returning the Machine-encoded machine code.
func (c *Compiler) Compile(f *hir.Function) ([]byte, error) {
	c.assignVirtualRegisters(f)
	c.mach.StartFunction(f)
	c.lowerBlocks(f)
	c.mach.EndFunction()
	return c.mach.Code(), nil
}

func (c *Compiler) lowerBlocks(f *hir.Function) {
	order := f.ReversePostorder()
	if order == nil {
		order = f.Blocks()
	}
	for _, blk := range order {
		c.lowerBlock(blk)
	}
}

func (c *Compiler) lowerBlock(blk *hir.BasicBlock) {
	mach := c.mach
	mach.StartBlock(blk)

	cur := blk.Tail()

	var br0, br1 *hir.Instruction
	if cur != nil && cur.Opcode().IsBranching() {
		br0 = cur
		cur = cur.Prev()
		if cur != nil && cur.Opcode().IsBranching() {
			br1 = cur
			cur = cur.Prev()
		}
	}
	if br0 != nil {
		mach.LowerBranches(br0, br1)
	}

	for ; cur != nil; cur = cur.Prev() {
		if _, ok := c.alreadyLowered[cur]; ok {
			continue
		}
		mach.LowerInstr(cur)
	}

	mach.EndBlock()
}

// assignVirtualRegisters walks every value the function defines —
// f.Param(0) (the context handle) and every instruction result — and
// gives each one a fresh VReg, sized by the value's Ordinal so lookups
// during lowering are a slice index rather than a map probe.
func (c *Compiler) assignVirtualRegisters(f *hir.Function) {
	n := f.NumValues()
	if n > len(c.valueVRegs) {
		grow := n - len(c.valueVRegs)
		c.valueVRegs = append(c.valueVRegs, make([]VReg, grow)...)
		c.valueDefs = append(c.valueDefs, make([]SSAValueDefinition, grow)...)
	}
	for i := 0; i < n; i++ {
		c.valueVRegs[i] = VRegInvalid
	}

	c.paramVReg = c.AllocateVReg(RegTypeInt)
	if len(f.ParamTypes) > 0 {
		c.valueVRegs[f.Param(0).Ordinal()] = c.paramVReg
	}

	for _, blk := range f.Blocks() {
		for inst := blk.Head(); inst != nil; inst = inst.Next() {
			res := inst.Result()
			if res == nil {
				continue
			}
			id := res.Ordinal()
			vreg := c.AllocateVReg(RegTypeOf(res.Type()))
			c.valueVRegs[id] = vreg
			c.valueDefs[id] = SSAValueDefinition{Instr: inst, N: 0, RefCount: res.NumUses()}
		}
	}
}

// AllocateVReg allocates a fresh virtual register of the given class.
func (c *Compiler) AllocateVReg(regType RegType) VReg {
	r := VReg(c.nextVRegID)
	if ir := int(r.ID()); ir >= len(c.vRegToRegType) {
		c.vRegToRegType = append(c.vRegToRegType, make([]RegType, ir+1-len(c.vRegToRegType))...)
	}
	c.vRegToRegType[r.ID()] = regType
	c.nextVRegID++
	return r
}

// ParamVReg returns the VReg holding the function's context-pointer
// argument.
func (c *Compiler) ParamVReg() VReg { return c.paramVReg }

// RegTypeOfVReg returns the register class v was allocated with.
func (c *Compiler) RegTypeOfVReg(v VReg) RegType { return c.vRegToRegType[v.ID()] }

// Reset clears all per-function state, ready for the next Compile.
func (c *Compiler) Reset() {
	for i := VRegID(0); i < c.nextVRegID; i++ {
		c.vRegToRegType[i] = RegTypeInvalid
	}
	c.nextVRegID = 0
	for k := range c.alreadyLowered {
		delete(c.alreadyLowered, k)
	}
	c.mach.Reset()
}

// MarkLowered implements CompilationContext.
func (c *Compiler) MarkLowered(inst *hir.Instruction) { c.alreadyLowered[inst] = struct{}{} }

// ValueDefinition implements CompilationContext.
func (c *Compiler) ValueDefinition(v *hir.Value) *SSAValueDefinition {
	return &c.valueDefs[v.Ordinal()]
}

// VRegOf implements CompilationContext.
func (c *Compiler) VRegOf(v *hir.Value) VReg { return c.valueVRegs[v.Ordinal()] }
