package pass

import "github.com/xenia-project/xenia-sub034/internal/hir"

// ContextPromotion converts LOAD_CONTEXT/STORE_CONTEXT pairs within a
// single BasicBlock into direct SSA value references, eliminating the
// redundant round trip through the PPC context struct. This is sound
// per basic block because the PPC register file is unaliasable from
// guest memory: no guest LOAD/STORE can ever observe or mutate a
// context field, so within one block a LOAD_CONTEXT always yields
// whatever the most recent STORE_CONTEXT to that offset wrote (or the
// block's original context value, on the first read of an offset).
//
// The promotion is deliberately block-local, not whole-function: a
// later block may be reached by more than one predecessor with
// different context contents, and resolving that would need block
// parameters/phis this pipeline does not build. The last STORE_CONTEXT
// to each offset in a block is always kept (other blocks, and the
// function's eventual return to the context struct in guest memory,
// still need it); only loads and superseded intermediate stores are
// removed.
func ContextPromotion(f *hir.Function) {
	ContextPromotionWithOptions(f, Options{})
}

// Options configures passes whose behavior an external caller (the
// config package's store_all_context_values option) needs to control.
type Options struct {
	// StoreAllContextValues disables ContextPromotion's removal of a
	// STORE_CONTEXT a later store to the same offset in the same block
	// would otherwise shadow, so every intermediate context write
	// remains observable — e.g. to a debugger dumping context at an
	// installed breakpoint mid-block.
	StoreAllContextValues bool
}

// ContextPromotionWithOptions is ContextPromotion with opts honored.
func ContextPromotionWithOptions(f *hir.Function, opts Options) {
	for _, blk := range f.Blocks() {
		promoteBlock(blk, opts)
	}
}

func promoteBlock(blk *hir.BasicBlock, opts Options) {
	current := map[int64]*hir.Value{}
	lastStore := map[int64]*hir.Instruction{}

	inst := blk.Head()
	for inst != nil {
		next := inst.Next()
		switch inst.Opcode() {
		case hir.OpLoadContext:
			off := inst.Operand(0).Imm
			if v, ok := current[off]; ok {
				res := inst.Result()
				res.ReplaceAllUses(v)
				inst.Unlink()
			} else {
				current[off] = inst.Result()
			}

		case hir.OpStoreContext:
			off := inst.Operand(0).Imm
			val := inst.Arg(1)
			if !opts.StoreAllContextValues {
				if prev, ok := lastStore[off]; ok {
					prev.Unlink()
				}
			}
			lastStore[off] = inst
			current[off] = val

		case hir.OpCall, hir.OpCallIndirect, hir.OpTrap:
			// A call into runtime-provided code, or a fatal trap that
			// may be observed by a debugger inspecting context, can
			// read or write arbitrary context fields out of band:
			// forget everything learned so far in this block.
			current = map[int64]*hir.Value{}
			lastStore = map[int64]*hir.Instruction{}
		}
		inst = next
	}
}
