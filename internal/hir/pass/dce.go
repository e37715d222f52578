package pass

import "github.com/xenia-project/xenia-sub034/internal/hir"

// DCE removes every instruction whose result (if it has one) has zero
// remaining uses, unless the instruction is volatile (calls, stores,
// branches, traps, and anything the front end explicitly marked). It
// iterates each block back-to-front and repeats until a full pass finds
// nothing left to remove, since unlinking one dead instruction can
// drop its own operands' use counts to zero and make them dead in turn.
func DCE(f *hir.Function) {
	for _, blk := range f.Blocks() {
		for {
			if !dceBlockPass(blk) {
				break
			}
		}
	}
}

func dceBlockPass(blk *hir.BasicBlock) bool {
	removed := false
	inst := blk.Tail()
	for inst != nil {
		prev := inst.Prev()
		if !inst.IsVolatile() {
			res := inst.Result()
			if res == nil || res.NumUses() == 0 {
				inst.Unlink()
				removed = true
			}
		}
		inst = prev
	}
	return removed
}
