package pass

import (
	"strings"
	"testing"

	"github.com/xenia-project/xenia-sub034/internal/hir"
)

func TestContextPromotionRemovesRedundantLoad(t *testing.T) {
	f := hir.NewFunction("promo", []hir.Type{hir.TypeI64})
	b := hir.NewBuilder(f)
	entry := b.CreateEntryBlock()
	b.SetCurrentBlock(entry)

	v := b.LoadContext(0, hir.TypeI64)
	b.StoreContext(8, v)
	v2 := b.LoadContext(0, hir.TypeI64) // should be promoted to v
	b.StoreContext(16, v2)
	b.Return()

	ContextPromotion(f)

	count := 0
	for inst := entry.Head(); inst != nil; inst = inst.Next() {
		if inst.Opcode() == hir.OpLoadContext {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one surviving load_context, got %d", count)
	}
}

func TestConstPropFoldsArithmetic(t *testing.T) {
	f := hir.NewFunction("fold", nil)
	b := hir.NewBuilder(f)
	entry := b.CreateEntryBlock()
	b.SetCurrentBlock(entry)

	x := b.ConstInt(hir.TypeI32, 2)
	y := b.ConstInt(hir.TypeI32, 3)
	sum := b.Add(x, y)
	b.StoreContext(0, sum)
	b.Return()

	ConstProp(f)

	store := entry.Head()
	for store != nil && store.Opcode() != hir.OpStoreContext {
		store = store.Next()
	}
	if store == nil {
		t.Fatalf("missing store_context")
	}
	arg := store.Arg(1)
	if !arg.IsConstant() || arg.ConstantBits() != 5 {
		t.Fatalf("expected folded constant 5, got constant=%v bits=%d", arg.IsConstant(), arg.ConstantBits())
	}
}

func TestDivMinByNegOneQuirk(t *testing.T) {
	f := hir.NewFunction("divquirk", nil)
	b := hir.NewBuilder(f)
	entry := b.CreateEntryBlock()
	b.SetCurrentBlock(entry)

	minVal := b.ConstInt(hir.TypeI32, uint64(uint32(1<<31)))
	negOne := b.ConstInt(hir.TypeI32, uint64(uint32(0xffffffff)))
	q := b.DivS(minVal, negOne)
	b.StoreContext(0, q)
	b.Return()

	ConstProp(f)

	store := entry.Head()
	for store != nil && store.Opcode() != hir.OpStoreContext {
		store = store.Next()
	}
	arg := store.Arg(1)
	if !arg.IsConstant() || uint32(arg.ConstantBits()) != uint32(1<<31) {
		t.Fatalf("INT_MIN/-1 should yield the dividend unchanged, got %#x", arg.ConstantBits())
	}
}

func TestDCERemovesDeadArithmetic(t *testing.T) {
	f := hir.NewFunction("dce", nil)
	b := hir.NewBuilder(f)
	entry := b.CreateEntryBlock()
	b.SetCurrentBlock(entry)

	x := b.ConstInt(hir.TypeI32, 1)
	y := b.ConstInt(hir.TypeI32, 2)
	b.Add(x, y) // unused result
	b.Return()

	DCE(f)

	for inst := entry.Head(); inst != nil; inst = inst.Next() {
		if inst.Opcode() == hir.OpAdd {
			t.Fatalf("dead add should have been removed")
		}
	}
}

func TestFinalizeOrdersReachableBlocksOnly(t *testing.T) {
	f := hir.NewFunction("rpo", nil)
	b := hir.NewBuilder(f)
	entry := b.CreateEntryBlock()
	mid := b.CreateBlock()
	unreachable := b.CreateBlock()
	_ = unreachable

	b.SetCurrentBlock(entry)
	b.Branch(mid.Label())
	b.SetCurrentBlock(mid)
	b.Return()

	Finalize(f)

	order := f.ReversePostorder()
	if len(order) != 2 {
		t.Fatalf("expected 2 reachable blocks in order, got %d", len(order))
	}
	if order[0] != entry || order[1] != mid {
		t.Fatalf("expected [entry, mid] order")
	}
}

func TestRunFullPipeline(t *testing.T) {
	f := hir.NewFunction("full", []hir.Type{hir.TypeI64})
	b := hir.NewBuilder(f)
	entry := b.CreateEntryBlock()
	b.SetCurrentBlock(entry)

	lhs := b.LoadContext(0, hir.TypeI64)
	zero := b.ConstInt(hir.TypeI64, 0)
	sum := b.Add(lhs, zero) // simplify should fold this to lhs
	b.StoreContext(8, sum)
	b.Return()

	Run(f)

	out := hir.Dump(f)
	if strings.Contains(out, "= add ") {
		t.Fatalf("add x+0 should have been simplified and then DCE'd: %s", out)
	}
}
