// Package pass implements the HIR's fixed-order optimization pipeline:
// context promotion, simplify, constant propagation, simplify again,
// dead-code elimination, and finalize (block ordering).
package pass

import "github.com/xenia-project/xenia-sub034/internal/hir"

// Run executes the full pipeline on f in the fixed order spec.md
// requires: context promotion runs once, first, because it is the only
// pass that reasons about LOAD_CONTEXT/STORE_CONTEXT pairs; simplify
// then constprop then simplify again lets each cycle's folding unlock
// the other (a simplified comparison can become a foldable constant,
// and a folded constant can satisfy an algebraic identity simplify
// looks for); DCE runs last-but-one to sweep every value the earlier
// passes orphaned; finalize always runs last since every other pass
// may have changed the CFG.
func Run(f *hir.Function) {
	RunWithOptions(f, Options{})
}

// RunWithOptions is Run with opts threaded into the passes that take
// them (currently just ContextPromotion's store_all_context_values).
func RunWithOptions(f *hir.Function, opts Options) {
	ContextPromotionWithOptions(f, opts)
	Simplify(f)
	ConstProp(f)
	Simplify(f)
	DCE(f)
	Finalize(f)
}
