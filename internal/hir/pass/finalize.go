package pass

import "github.com/xenia-project/xenia-sub034/internal/hir"

// Finalize computes f's reverse-postorder block order from its entry
// block, the order the backend walks blocks in so that a block is
// always lowered after at least one of its predecessors. It runs last
// in the pipeline. No earlier pass adds or removes CFG edges (simplify
// folding a BranchIf's condition to a constant leaves both edges in
// place, and DCE never removes a branch), so the order follows the
// edges the front end built.
func Finalize(f *hir.Function) {
	entry := f.Entry()
	if entry == nil {
		f.SetReversePostorder(nil)
		return
	}

	visited := map[*hir.BasicBlock]bool{}
	var post []*hir.BasicBlock

	var visit func(b *hir.BasicBlock)
	visit = func(b *hir.BasicBlock) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, s := range b.Succs() {
			visit(s)
		}
		post = append(post, b)
	}
	visit(entry)

	order := make([]*hir.BasicBlock, len(post))
	for i, b := range post {
		order[len(post)-1-i] = b
	}
	f.SetReversePostorder(order)
}
