package ppc

import (
	"github.com/xenia-project/xenia-sub034/internal/guest/memory"
	"github.com/xenia-project/xenia-sub034/internal/hir"
	"github.com/xenia-project/xenia-sub034/internal/ppc/context"
	"github.com/xenia-project/xenia-sub034/internal/xerrors"
)

// Trap codes generated code raises for conditions the front end detects
// at translate time rather than at runtime.
const (
	TrapInvalidInstruction = 0
	TrapBudgetExceeded     = 1
)

// DefaultInstructionBudget bounds how many instructions TranslateFunction
// will decode before giving up and emitting a budget-exceeded trap,
// guarding against runaway decode of a mis-identified function boundary.
const DefaultInstructionBudget = 1 << 16

// Frontend decodes and translates PowerPC64/VMX128 guest code into HIR
// functions, reading guest instructions out of Mem.
type Frontend struct {
	Mem               *memory.Memory
	InstructionBudget int
}

// New returns a Frontend reading from mem with the default instruction
// budget.
func New(mem *memory.Memory) *Frontend {
	return &Frontend{Mem: mem, InstructionBudget: DefaultInstructionBudget}
}

func (fe *Frontend) budget() int {
	if fe.InstructionBudget > 0 {
		return fe.InstructionBudget
	}
	return DefaultInstructionBudget
}

// decoder holds the state threaded through one TranslateFunction call:
// the builder, the function being built, and the address->block map
// that resolves branch targets (discovered lazily, as the driver's
// worklist visits each reachable straight-line run exactly once).
//
// Jumping into the middle of an already-decoded straight-line run
// (rather than to one of its first instructions) is not supported —
// every function this front end handles is assumed to be reducible,
// matching every covered test program and every real compiler-emitted
// Xenon function this engine targets.
type decoder struct {
	fe *Frontend
	b  *hir.FunctionBuilder

	blocks map[uint32]*hir.BasicBlock
	queue  []uint32
	queued map[uint32]bool

	terminated bool
	budget     int
}

func (d *decoder) blockFor(addr uint32) *hir.BasicBlock {
	if blk, ok := d.blocks[addr]; ok {
		return blk
	}
	blk := d.b.CreateBlock()
	d.blocks[addr] = blk
	if !d.queued[addr] {
		d.queued[addr] = true
		d.queue = append(d.queue, addr)
	}
	return blk
}

// TranslateFunction decodes guest code starting at entry, following
// every branch target until all reachable straight-line runs end in a
// return, an unconditional trap, or the instruction budget is
// exhausted (spec.md §4.E). It returns the built, not-yet-optimized
// HIR function; run internal/hir/pass.Run on the result before handing
// it to the backend.
func (fe *Frontend) TranslateFunction(name string, entry uint32) (*hir.Function, error) {
	// Parameter 0 is the host-integer handle generated code receives
	// for the active *ppc.Context; the PPC front end never addresses
	// guest registers directly, only via LOAD_CONTEXT/STORE_CONTEXT at
	// the fixed offsets ppc/context.Offsets describes.
	f := hir.NewFunction(name, []hir.Type{hir.TypeI64})
	b := hir.NewBuilder(f)

	d := &decoder{
		fe:     fe,
		b:      b,
		blocks: map[uint32]*hir.BasicBlock{},
		queued: map[uint32]bool{},
		budget: fe.budget(),
	}

	entryBlock := b.CreateEntryBlock()
	d.blocks[entry] = entryBlock
	d.queue = append(d.queue, entry)
	d.queued[entry] = true

	for len(d.queue) > 0 {
		addr := d.queue[0]
		d.queue = d.queue[1:]
		if err := d.decodeStraightRun(addr); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (d *decoder) decodeStraightRun(start uint32) error {
	blk := d.blocks[start]
	d.b.SetCurrentBlock(blk)
	d.terminated = false

	addr := start
	for !d.terminated {
		if addr != start {
			if existing, ok := d.blocks[addr]; ok {
				d.b.Branch(existing.Label())
				return nil
			}
		}
		if d.budget <= 0 {
			d.b.Trap(TrapBudgetExceeded)
			return nil
		}
		d.budget--

		raw := d.fe.Mem.LoadSwap32(addr)
		fn := lookup(raw)
		d.b.SourceOffset(addr)
		if fn == nil {
			d.b.Trap(TrapInvalidInstruction)
			return nil
		}
		if err := fn(d, raw, addr); err != nil {
			return xerrors.Translation.At(addr).Wrap(err)
		}
		addr += 4
	}
	return nil
}

// --- shared register-access helpers used by every translate_*.go file ---

func (d *decoder) loadGPR(r uint32) *hir.Value {
	if r == 0 {
		return d.b.ConstInt(hir.TypeI64, 0)
	}
	return d.b.LoadContext(int32(context.Offsets.GPROffset(int(r))), hir.TypeI64)
}

// loadGPROrZeroLiteral is loadGPR but for the rA=0-means-literal-zero
// forms (addi, lwz, ...), kept as a distinct name at call sites for
// readability even though the behavior is identical to loadGPR.
func (d *decoder) loadGPROrZeroLiteral(r uint32) *hir.Value { return d.loadGPR(r) }

func (d *decoder) storeGPR(r uint32, v *hir.Value) {
	d.b.StoreContext(int32(context.Offsets.GPROffset(int(r))), v)
}

func (d *decoder) loadVR(r uint32) *hir.Value {
	return d.b.LoadContext(int32(context.Offsets.VROffset(int(r))), hir.TypeVec128)
}

func (d *decoder) storeVR(r uint32, v *hir.Value) {
	d.b.StoreContext(int32(context.Offsets.VROffset(int(r))), v)
}

func (d *decoder) loadCRFlag(field int, off func(int) int32) *hir.Value {
	return d.b.LoadContext(off(field), hir.TypeI8)
}

func (d *decoder) storeCRFlag(off int32, v *hir.Value) {
	d.b.StoreContext(off, v)
}

func (d *decoder) loadXERSummary() *hir.Value {
	return d.b.LoadContext(int32(context.Offsets.XERSummaryOffset()), hir.TypeI8)
}

func (d *decoder) loadLR() *hir.Value  { return d.b.LoadContext(int32(context.Offsets.LR), hir.TypeI64) }
func (d *decoder) storeLR(v *hir.Value) { d.b.StoreContext(int32(context.Offsets.LR), v) }
func (d *decoder) loadCTR() *hir.Value { return d.b.LoadContext(int32(context.Offsets.CTR), hir.TypeI64) }
func (d *decoder) storeCTR(v *hir.Value) {
	d.b.StoreContext(int32(context.Offsets.CTR), v)
}
