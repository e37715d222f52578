package hir

// instFlag is a bitset of front-end-owned per-Instruction properties.
type instFlag uint16

const (
	// instFlagVolatile marks an instruction DCE must never remove even
	// with an unused result; seeded from the opcode's Signature but
	// also settable explicitly (e.g. a LOAD the front end knows targets
	// MMIO, which must not be hoisted or eliminated even though plain
	// LOAD is normally pure).
	instFlagVolatile instFlag = 1 << iota
)

// Operand is one of an Instruction's up to three operand slots. Exactly
// one field is meaningful, selected by Kind.
type Operand struct {
	Kind OperandKind

	Value *Value // OperandValue
	Imm   int64  // OperandImmediate
	Label *Label // OperandLabel
	Sym   string // OperandSymbol
}

// Label identifies a branch target. BasicBlock.Label sets Block to the
// owning block when it hands the Label out, so a branch built from it
// already names its concrete target block.
type Label struct {
	Block *BasicBlock
}

// Instruction is one HIR operation: an opcode, up to three operands,
// and an optional result Value. Instructions are arena allocated and
// live in a doubly-linked list within their owning BasicBlock.
type Instruction struct {
	ordinal int
	opcode  Opcode
	flags   instFlag

	// BackendFlags is scratch space the backend's lowering pass uses to
	// record per-instruction state (e.g. "already selected", "folded
	// into a memory operand") without a side table.
	BackendFlags uint16

	block    *BasicBlock
	result   *Value
	operands [3]Operand

	// sourceOffset is the guest code offset this instruction originated
	// from, for the disassembly-interleaved dump and for mapping a JIT
	// fault back to a guest PC.
	sourceOffset uint32

	prev, next *Instruction
}

// Ordinal returns i's position in allocation order.
func (i *Instruction) Ordinal() int { return i.ordinal }

// Opcode returns i's opcode.
func (i *Instruction) Opcode() Opcode { return i.opcode }

// Result returns i's result Value, or nil if the opcode produces none.
func (i *Instruction) Result() *Value { return i.result }

// Operand returns i's n-th operand slot.
func (i *Instruction) Operand(n int) Operand { return i.operands[n] }

// Block returns the BasicBlock i belongs to.
func (i *Instruction) Block() *BasicBlock { return i.block }

// SourceOffset returns the guest code offset i was translated from.
func (i *Instruction) SourceOffset() uint32 { return i.sourceOffset }

// SetSourceOffset records the guest code offset i was translated from.
func (i *Instruction) SetSourceOffset(off uint32) { i.sourceOffset = off }

// Prev returns the previous Instruction in block order, or nil.
func (i *Instruction) Prev() *Instruction { return i.prev }

// Next returns the next Instruction in block order, or nil.
func (i *Instruction) Next() *Instruction { return i.next }

// IsVolatile reports whether i must survive dead-code elimination
// regardless of its result's use count.
func (i *Instruction) IsVolatile() bool {
	return i.flags&instFlagVolatile != 0 || i.opcode.Signature().Volatile
}

// SetVolatile marks i as volatile even though its opcode is normally
// pure; used by the PPC front end for loads/stores it knows hit MMIO.
func (i *Instruction) SetVolatile() { i.flags |= instFlagVolatile }

// valueOperandIndices returns the operand slots of i that hold
// OperandValue, in order.
func (i *Instruction) valueOperandIndices() []int {
	var out []int
	for n, o := range i.operands {
		if o.Kind == OperandValue {
			out = append(out, n)
		}
	}
	return out
}

// ReplaceOperand rewrites operand n to be a value operand referencing
// newVal, unlinking the old Use (if the slot held a value) and linking
// a fresh one. Used by simplify/constprop to rewire consumers onto a
// folded or forwarded value without rebuilding the instruction.
func (i *Instruction) ReplaceOperand(n int, newVal *Value) {
	old := i.operands[n]
	if old.Kind == OperandValue && old.Value != nil {
		for u := old.Value.uses; u != nil; u = u.next {
			if u.User == i && u.OperandIndex == n {
				old.Value.removeUse(u)
				break
			}
		}
	}
	i.operands[n] = Operand{Kind: OperandValue, Value: newVal}
	use := &Use{Value: newVal, User: i, OperandIndex: n}
	newVal.addUse(use)
}

// Unlink removes i from its block's instruction list and drops its
// uses of any value operands. Callers (DCE, simplify) must only call
// this once i's result (if any) has zero remaining uses.
func (i *Instruction) Unlink() {
	for n, o := range i.operands {
		if o.Kind == OperandValue && o.Value != nil {
			for u := o.Value.uses; u != nil; u = u.next {
				if u.User == i && u.OperandIndex == n {
					o.Value.removeUse(u)
					break
				}
			}
		}
	}
	if i.block != nil {
		i.block.remove(i)
		i.block = nil
	}
}

// Arg returns the Value at operand n, or nil if that slot isn't a value
// operand. Convenience for passes that only deal with value operands.
func (i *Instruction) Arg(n int) *Value {
	if i.operands[n].Kind == OperandValue {
		return i.operands[n].Value
	}
	return nil
}
