package hir

// Function is one compiled unit: guest entry address, parameter types,
// and the arena-allocated Values/Instructions/BasicBlocks that make up
// its body. A Function is built once by a FunctionBuilder, optimized in
// place by internal/hir/pass, then handed to the backend.
type Function struct {
	Name       string
	ParamTypes []Type

	values  pool[Value]
	insts   pool[Instruction]
	blocks  pool[BasicBlock]

	params []*Value

	entry *BasicBlock
	order []*BasicBlock // reverse-postorder, populated by finalize
}

// NewFunction allocates an empty Function with one parameter Value per
// entry in paramTypes (conventionally [0] is the *ppc.Context pointer
// parameter every translated function takes).
func NewFunction(name string, paramTypes []Type) *Function {
	f := &Function{
		Name:       name,
		ParamTypes: paramTypes,
		values:     newPool[Value](),
		insts:      newPool[Instruction](),
		blocks:     newPool[BasicBlock](),
	}
	for _, t := range paramTypes {
		v := f.values.Allocate()
		v.ordinal = f.values.Len() - 1
		v.typ = t
		f.params = append(f.params, v)
	}
	return f
}

// Param returns the i-th parameter Value.
func (f *Function) Param(i int) *Value { return f.params[i] }

// NewConstInt allocates a scalar constant Value directly on f, for
// passes (simplify, constprop) that need to materialize a folded
// constant without a FunctionBuilder in scope.
func (f *Function) NewConstInt(typ Type, bits uint64) *Value {
	v := f.values.Allocate()
	v.ordinal = f.values.Len() - 1
	v.typ = typ
	v.flags |= valueFlagConstant
	v.constant = bits
	return v
}

// NewConstVec128 allocates a vector constant Value directly on f.
func (f *Function) NewConstVec128(lo, hi uint64) *Value {
	v := f.values.Allocate()
	v.ordinal = f.values.Len() - 1
	v.typ = TypeVec128
	v.flags |= valueFlagConstant
	v.constVec = Vec128{Lo: lo, Hi: hi}
	return v
}

// Blocks returns every BasicBlock allocated for f, in allocation order.
// Use ReversePostorder after finalize for a CFG-ordered walk.
func (f *Function) Blocks() []*BasicBlock {
	out := make([]*BasicBlock, f.blocks.Len())
	for i := range out {
		out[i] = f.blocks.View(i)
	}
	return out
}

// Entry returns f's entry block.
func (f *Function) Entry() *BasicBlock { return f.entry }

// ReversePostorder returns the block order computed by the most recent
// finalize pass run, or nil if finalize has not run yet.
func (f *Function) ReversePostorder() []*BasicBlock { return f.order }

// SetReversePostorder is called by internal/hir/pass's finalize step.
func (f *Function) SetReversePostorder(order []*BasicBlock) { f.order = order }

// NumValues returns the number of Values allocated in f so far,
// including parameters and constants.
func (f *Function) NumValues() int { return f.values.Len() }

// ValueAt returns the i-th allocated Value.
func (f *Function) ValueAt(i int) *Value { return f.values.View(i) }

// FunctionBuilder appends Instructions to a Function's current block.
// Exactly one method exists per opcode family below; methods for
// opcodes with a result return the new Instruction's result Value,
// and methods for opcodes with no result return nothing.
type FunctionBuilder struct {
	f   *Function
	cur *BasicBlock
}

// NewBuilder returns a FunctionBuilder with no current block; callers
// must CreateBlock and SetCurrentBlock (or use CreateEntryBlock) before
// emitting instructions.
func NewBuilder(f *Function) *FunctionBuilder {
	return &FunctionBuilder{f: f}
}

// CreateBlock allocates a new, empty BasicBlock not yet reachable from
// any other block.
func (b *FunctionBuilder) CreateBlock() *BasicBlock {
	blk := b.f.blocks.Allocate()
	blk.id = b.f.blocks.Len() - 1
	return blk
}

// CreateEntryBlock allocates a block and records it as f's entry,
// required exactly once per Function before any branch targets it.
func (b *FunctionBuilder) CreateEntryBlock() *BasicBlock {
	blk := b.CreateBlock()
	b.f.entry = blk
	return blk
}

// SetCurrentBlock directs subsequent Insert/emit calls at blk.
func (b *FunctionBuilder) SetCurrentBlock(blk *BasicBlock) { b.cur = blk }

// CurrentBlock returns the block new instructions are appended to.
func (b *FunctionBuilder) CurrentBlock() *BasicBlock { return b.cur }

// ConstInt returns (allocating if necessary a fresh one — constants are
// not interned) a constant Value of the given integer type and bits.
func (b *FunctionBuilder) ConstInt(typ Type, bits uint64) *Value {
	return b.f.NewConstInt(typ, bits)
}

// ConstVec128 returns a constant Value carrying a 128-bit payload.
func (b *FunctionBuilder) ConstVec128(lo, hi uint64) *Value {
	return b.f.NewConstVec128(lo, hi)
}

// emit is the core instruction constructor every opcode-specific method
// below funnels through: it allocates the Instruction, wires value
// operands into their source Values' Use lists, allocates a result
// Value if the opcode's Signature calls for one, and appends the
// Instruction to the current block.
func (b *FunctionBuilder) emit(op Opcode, resultType Type, operands [3]Operand) *Instruction {
	if b.cur == nil {
		panic("hir: emit with no current block set")
	}
	if b.cur.IsTerminated() {
		panic("hir: emit into an already-terminated block")
	}
	inst := b.f.insts.Allocate()
	inst.ordinal = b.f.insts.Len() - 1
	inst.opcode = op
	inst.operands = operands

	for n, o := range operands {
		if o.Kind == OperandValue && o.Value != nil {
			use := &Use{Value: o.Value, User: inst, OperandIndex: n}
			o.Value.addUse(use)
		}
	}

	if op.Signature().Result {
		res := b.f.values.Allocate()
		res.ordinal = b.f.values.Len() - 1
		res.typ = resultType
		res.def = inst
		inst.result = res
	}

	b.cur.append(inst)
	return inst
}

func val1(v *Value) [3]Operand       { return [3]Operand{{Kind: OperandValue, Value: v}} }
func val2(a, c *Value) [3]Operand    { return [3]Operand{{Kind: OperandValue, Value: a}, {Kind: OperandValue, Value: c}} }
func val3(a, c, d *Value) [3]Operand { return [3]Operand{{Kind: OperandValue, Value: a}, {Kind: OperandValue, Value: c}, {Kind: OperandValue, Value: d}} }
func imm1(i int64) [3]Operand        { return [3]Operand{{Kind: OperandImmediate, Imm: i}} }

// --- structural ---

// Comment attaches a text-only annotation with no runtime effect,
// surfacing in Dump output only.
func (b *FunctionBuilder) Comment(text string) {
	b.emit(OpComment, TypeInvalid, [3]Operand{{Kind: OperandSymbol, Sym: text}})
}

// Nop emits a no-op instruction. Simplify does not emit one; it leaves
// a folded instruction in place for DCE to remove.
func (b *FunctionBuilder) Nop() { b.emit(OpNop, TypeInvalid, [3]Operand{}) }

// SourceOffset records the guest code offset subsequent instructions
// translate from, consumed by Dump and by fault-to-guest-PC mapping.
func (b *FunctionBuilder) SourceOffset(off uint32) {
	b.emit(OpSourceOffset, TypeInvalid, imm1(int64(off)))
}

// --- context access ---

// LoadContext reads typ-sized state out of the PPC context at byte
// offset off (one of the ppc/context Offsets constants).
func (b *FunctionBuilder) LoadContext(off int32, typ Type) *Value {
	return b.emit(OpLoadContext, typ, imm1(int64(off))).result
}

// StoreContext writes val into the PPC context at byte offset off.
func (b *FunctionBuilder) StoreContext(off int32, val *Value) {
	b.emit(OpStoreContext, TypeInvalid, [3]Operand{
		{Kind: OperandImmediate, Imm: int64(off)},
		{Kind: OperandValue, Value: val},
	})
}

// --- memory access ---

// Load reads typ-sized guest memory at addr+offset, byte-swapped from
// big-endian guest order to host order by the backend.
func (b *FunctionBuilder) Load(addr *Value, offset int64, typ Type) *Value {
	return b.emit(OpLoad, typ, [3]Operand{
		{Kind: OperandValue, Value: addr},
		{Kind: OperandImmediate, Imm: offset},
	}).result
}

// Store writes val to guest memory at addr+offset.
func (b *FunctionBuilder) Store(addr *Value, offset int64, val *Value) {
	b.emit(OpStore, TypeInvalid, [3]Operand{
		{Kind: OperandValue, Value: addr},
		{Kind: OperandImmediate, Imm: offset},
		{Kind: OperandValue, Value: val},
	})
}

// LoadAcquire is Load with acquire ordering, for lwarx/ldarx.
func (b *FunctionBuilder) LoadAcquire(addr *Value, offset int64, typ Type) *Value {
	return b.emit(OpLoadAcquire, typ, [3]Operand{
		{Kind: OperandValue, Value: addr},
		{Kind: OperandImmediate, Imm: offset},
	}).result
}

// StoreRelease is Store with release ordering, for stwcx./stdcx.
func (b *FunctionBuilder) StoreRelease(addr *Value, offset int64, val *Value) {
	b.emit(OpStoreRelease, TypeInvalid, [3]Operand{
		{Kind: OperandValue, Value: addr},
		{Kind: OperandImmediate, Imm: offset},
		{Kind: OperandValue, Value: val},
	})
}

// --- data movement ---

func (b *FunctionBuilder) unary(op Opcode, typ Type, v *Value) *Value {
	return b.emit(op, typ, val1(v)).result
}

func (b *FunctionBuilder) Assign(v *Value) *Value             { return b.unary(OpAssign, v.typ, v) }
func (b *FunctionBuilder) Cast(typ Type, v *Value) *Value     { return b.unary(OpCast, typ, v) }
func (b *FunctionBuilder) ZeroExtend(typ Type, v *Value) *Value { return b.unary(OpZeroExtend, typ, v) }
func (b *FunctionBuilder) SignExtend(typ Type, v *Value) *Value { return b.unary(OpSignExtend, typ, v) }
func (b *FunctionBuilder) Truncate(typ Type, v *Value) *Value { return b.unary(OpTruncate, typ, v) }
func (b *FunctionBuilder) Convert(typ Type, v *Value) *Value  { return b.unary(OpConvert, typ, v) }
func (b *FunctionBuilder) Round(typ Type, v *Value) *Value    { return b.unary(OpRound, typ, v) }

// --- comparisons ---

func (b *FunctionBuilder) compare(op Opcode, x, y *Value) *Value {
	return b.emit(op, TypeI8, val2(x, y)).result
}

func (b *FunctionBuilder) CompareEq(x, y *Value) *Value  { return b.compare(OpCompareEq, x, y) }
func (b *FunctionBuilder) CompareNe(x, y *Value) *Value  { return b.compare(OpCompareNe, x, y) }
func (b *FunctionBuilder) CompareSLt(x, y *Value) *Value { return b.compare(OpCompareSLt, x, y) }
func (b *FunctionBuilder) CompareSLe(x, y *Value) *Value { return b.compare(OpCompareSLe, x, y) }
func (b *FunctionBuilder) CompareSGt(x, y *Value) *Value { return b.compare(OpCompareSGt, x, y) }
func (b *FunctionBuilder) CompareSGe(x, y *Value) *Value { return b.compare(OpCompareSGe, x, y) }
func (b *FunctionBuilder) CompareULt(x, y *Value) *Value { return b.compare(OpCompareULt, x, y) }
func (b *FunctionBuilder) CompareULe(x, y *Value) *Value { return b.compare(OpCompareULe, x, y) }
func (b *FunctionBuilder) CompareUGt(x, y *Value) *Value { return b.compare(OpCompareUGt, x, y) }
func (b *FunctionBuilder) CompareUGe(x, y *Value) *Value { return b.compare(OpCompareUGe, x, y) }

// FCompare emits an IEEE-754 unordered-aware float compare; pred
// selects which of eq/lt/gt/unordered the result Value reflects, per
// the backend's FCompare lowering table.
func (b *FunctionBuilder) FCompare(x, y *Value, pred int64) *Value {
	return b.emit(OpFCompare, TypeI8, [3]Operand{
		{Kind: OperandValue, Value: x},
		{Kind: OperandValue, Value: y},
		{Kind: OperandImmediate, Imm: pred},
	}).result
}

// --- integer arithmetic ---

func (b *FunctionBuilder) binop(op Opcode, x, y *Value) *Value {
	return b.emit(op, x.typ, val2(x, y)).result
}

func (b *FunctionBuilder) Add(x, y *Value) *Value    { return b.binop(OpAdd, x, y) }
func (b *FunctionBuilder) Sub(x, y *Value) *Value    { return b.binop(OpSub, x, y) }
func (b *FunctionBuilder) Neg(x *Value) *Value       { return b.unary(OpNeg, x.typ, x) }
func (b *FunctionBuilder) Mul(x, y *Value) *Value    { return b.binop(OpMul, x, y) }
func (b *FunctionBuilder) MulHiS(x, y *Value) *Value { return b.binop(OpMulHiS, x, y) }
func (b *FunctionBuilder) MulHiU(x, y *Value) *Value { return b.binop(OpMulHiU, x, y) }
func (b *FunctionBuilder) DivS(x, y *Value) *Value   { return b.binop(OpDivS, x, y) }
func (b *FunctionBuilder) DivU(x, y *Value) *Value   { return b.binop(OpDivU, x, y) }
func (b *FunctionBuilder) RemS(x, y *Value) *Value   { return b.binop(OpRemS, x, y) }
func (b *FunctionBuilder) RemU(x, y *Value) *Value   { return b.binop(OpRemU, x, y) }

// --- float arithmetic ---

func (b *FunctionBuilder) FAdd(x, y *Value) *Value { return b.binop(OpFAdd, x, y) }
func (b *FunctionBuilder) FSub(x, y *Value) *Value { return b.binop(OpFSub, x, y) }
func (b *FunctionBuilder) FMul(x, y *Value) *Value { return b.binop(OpFMul, x, y) }
func (b *FunctionBuilder) FDiv(x, y *Value) *Value { return b.binop(OpFDiv, x, y) }
func (b *FunctionBuilder) FNeg(x *Value) *Value    { return b.unary(OpFNeg, x.typ, x) }
func (b *FunctionBuilder) FAbs(x *Value) *Value    { return b.unary(OpFAbs, x.typ, x) }
func (b *FunctionBuilder) FSqrt(x *Value) *Value   { return b.unary(OpFSqrt, x.typ, x) }

// FMulAdd computes x*y+z in one rounding step (PPC fmadd family).
func (b *FunctionBuilder) FMulAdd(x, y, z *Value) *Value {
	return b.emit(OpFMulAdd, x.typ, val3(x, y, z)).result
}

// --- bitwise / shift ---

func (b *FunctionBuilder) And(x, y *Value) *Value  { return b.binop(OpAnd, x, y) }
func (b *FunctionBuilder) Or(x, y *Value) *Value   { return b.binop(OpOr, x, y) }
func (b *FunctionBuilder) Xor(x, y *Value) *Value  { return b.binop(OpXor, x, y) }
func (b *FunctionBuilder) Not(x *Value) *Value     { return b.unary(OpNot, x.typ, x) }
func (b *FunctionBuilder) Shl(x, y *Value) *Value  { return b.binop(OpShl, x, y) }
func (b *FunctionBuilder) ShrU(x, y *Value) *Value { return b.binop(OpShrU, x, y) }
func (b *FunctionBuilder) ShrS(x, y *Value) *Value { return b.binop(OpShrS, x, y) }
func (b *FunctionBuilder) Rotl(x, y *Value) *Value { return b.binop(OpRotl, x, y) }
func (b *FunctionBuilder) ByteSwap(x *Value) *Value { return b.unary(OpByteSwap, x.typ, x) }

// --- vector / packing ---

// Insert returns a copy of vec with lane (an immediate index) replaced
// by scalar.
func (b *FunctionBuilder) Insert(vec, scalar *Value, lane int64) *Value {
	return b.emit(OpInsert, TypeVec128, [3]Operand{
		{Kind: OperandValue, Value: vec},
		{Kind: OperandValue, Value: scalar},
		{Kind: OperandImmediate, Imm: lane},
	}).result
}

// Extract returns lane of vec as a scalar of typ.
func (b *FunctionBuilder) Extract(typ Type, vec *Value, lane int64) *Value {
	return b.emit(OpExtract, typ, [3]Operand{
		{Kind: OperandValue, Value: vec},
		{Kind: OperandImmediate, Imm: lane},
	}).result
}

// Splat broadcasts scalar into every lane of a new vector.
func (b *FunctionBuilder) Splat(scalar *Value) *Value {
	return b.unary(OpSplat, TypeVec128, scalar)
}

// Permute selects bytes of (x, y) according to the per-byte indices in
// mask (vperm's 5-bit selector semantics, masked to 0..31 by the
// backend).
func (b *FunctionBuilder) Permute(x, y, mask *Value) *Value {
	return b.emit(OpPermute, TypeVec128, val3(x, y, mask)).result
}

// Swizzle selects bytes of vec according to the compile-time-constant
// indices packed into imm (used for the fixed lane-reversal patterns
// the front end can resolve at translate time).
func (b *FunctionBuilder) Swizzle(vec *Value, imm int64) *Value {
	return b.emit(OpSwizzle, TypeVec128, [3]Operand{
		{Kind: OperandValue, Value: vec},
		{Kind: OperandImmediate, Imm: imm},
	}).result
}

func (b *FunctionBuilder) DotProduct3(x, y *Value) *Value {
	return b.emit(OpDotProduct3, TypeF32, val2(x, y)).result
}

func (b *FunctionBuilder) DotProduct4(x, y *Value) *Value {
	return b.emit(OpDotProduct4, TypeF32, val2(x, y)).result
}

// Pack narrows two vectors of wider lanes into one vector of narrower
// lanes (vpkuhum/vpkuwum family); Unpack is its inverse (vupkhsb etc).
func (b *FunctionBuilder) Pack(x, y *Value) *Value { return b.binop(OpPack, x, y) }

func (b *FunctionBuilder) Unpack(vec *Value, half int64) *Value {
	return b.emit(OpUnpack, TypeVec128, [3]Operand{
		{Kind: OperandValue, Value: vec},
		{Kind: OperandImmediate, Imm: half},
	}).result
}

// --- atomics ---

// CompareExchange implements lwarx/stwcx. pairs lowered to a single
// atomic op once the reservation is known non-racing; returns the
// memory's prior value.
func (b *FunctionBuilder) CompareExchange(addr, expected, newVal *Value) *Value {
	return b.emit(OpCompareExchange, expected.typ, val3(addr, expected, newVal)).result
}

func (b *FunctionBuilder) AtomicAdd(addr, delta *Value) *Value {
	return b.emit(OpAtomicAdd, delta.typ, val2(addr, delta)).result
}

func (b *FunctionBuilder) AtomicSub(addr, delta *Value) *Value {
	return b.emit(OpAtomicSub, delta.typ, val2(addr, delta)).result
}

// --- control ---

// Call invokes the function named by symbol (a runtime.Module symbol
// name resolved at link time / by the runtime's entry table) and
// returns its result Value, or nil if resultType is TypeInvalid.
func (b *FunctionBuilder) Call(symbol string, resultType Type) *Value {
	return b.emit(OpCall, resultType, [3]Operand{{Kind: OperandSymbol, Sym: symbol}}).result
}

// CallIndirect invokes the function whose host entry point is target
// (ctr-register indirect calls, bctrl).
func (b *FunctionBuilder) CallIndirect(target *Value, resultType Type) *Value {
	return b.emit(OpCallIndirect, resultType, val1(target)).result
}

// Return terminates the current block with a function return.
func (b *FunctionBuilder) Return() { b.emit(OpReturn, TypeInvalid, [3]Operand{}) }

// Branch terminates the current block with an unconditional jump to
// target.
func (b *FunctionBuilder) Branch(target *Label) {
	b.emit(OpBranch, TypeInvalid, [3]Operand{{Kind: OperandLabel, Label: target}})
	if target.Block != nil {
		addEdge(b.cur, target.Block)
	}
}

// BranchIf terminates the current block with a two-way conditional
// jump on cond.
func (b *FunctionBuilder) BranchIf(cond *Value, ifTrue, ifFalse *Label) {
	b.emit(OpBranchIf, TypeInvalid, [3]Operand{
		{Kind: OperandValue, Value: cond},
		{Kind: OperandLabel, Label: ifTrue},
		{Kind: OperandLabel, Label: ifFalse},
	})
	if ifTrue.Block != nil {
		addEdge(b.cur, ifTrue.Block)
	}
	if ifFalse.Block != nil {
		addEdge(b.cur, ifFalse.Block)
	}
}

// Trap terminates the current block with a fatal trap carrying code.
func (b *FunctionBuilder) Trap(code int64) {
	b.emit(OpTrap, TypeInvalid, imm1(code))
}

// DebugBreak emits a non-terminating breakpoint trap, continuing into
// the next instruction once a debugger resumes the thread.
func (b *FunctionBuilder) DebugBreak() {
	b.emit(OpDebugBreak, TypeInvalid, [3]Operand{})
}

// Prefetch emits a non-binding prefetch hint for addr.
func (b *FunctionBuilder) Prefetch(addr *Value) {
	b.emit(OpPrefetch, TypeInvalid, val1(addr))
}

// Function returns the Function this builder appends to.
func (b *FunctionBuilder) Function() *Function { return b.f }
