package hir

import (
	"strings"
	"testing"
)

func TestBuildSimpleFunction(t *testing.T) {
	f := NewFunction("test_add", []Type{TypeI64})
	b := NewBuilder(f)
	entry := b.CreateEntryBlock()
	b.SetCurrentBlock(entry)

	ctx := f.Param(0)
	lhs := b.LoadContext(0, TypeI64)
	rhs := b.ConstInt(TypeI64, 5)
	sum := b.Add(lhs, rhs)
	b.StoreContext(8, sum)
	b.Return()

	_ = ctx
	if !entry.IsTerminated() {
		t.Fatalf("entry block should be terminated by Return")
	}
	if sum.NumUses() != 1 {
		t.Fatalf("sum should have exactly one use (the store), got %d", sum.NumUses())
	}
	if lhs.NumUses() != 1 {
		t.Fatalf("lhs should have exactly one use (the add), got %d", lhs.NumUses())
	}

	out := Dump(f)
	if !strings.Contains(out, "load_context +0") {
		t.Fatalf("dump missing load_context: %s", out)
	}
	if !strings.Contains(out, "store_context +8") {
		t.Fatalf("dump missing store_context: %s", out)
	}
	if !strings.Contains(out, "add v") {
		t.Fatalf("dump missing add: %s", out)
	}
}

func TestBuilderRejectsEmitAfterTerminator(t *testing.T) {
	f := NewFunction("test_term", nil)
	b := NewBuilder(f)
	entry := b.CreateEntryBlock()
	b.SetCurrentBlock(entry)
	b.Return()

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic emitting into a terminated block")
		}
	}()
	b.Nop()
}

func TestBranchWiresCFGEdges(t *testing.T) {
	f := NewFunction("test_branch", nil)
	b := NewBuilder(f)
	entry := b.CreateEntryBlock()
	target := b.CreateBlock()

	b.SetCurrentBlock(entry)
	b.Branch(target.Label())

	b.SetCurrentBlock(target)
	b.Return()

	if len(entry.Succs()) != 1 || entry.Succs()[0] != target {
		t.Fatalf("entry should have target as its sole successor")
	}
	if len(target.Preds()) != 1 || target.Preds()[0] != entry {
		t.Fatalf("target should have entry as its sole predecessor")
	}
}

func TestReplaceOperandRewiresUses(t *testing.T) {
	f := NewFunction("test_replace", nil)
	b := NewBuilder(f)
	entry := b.CreateEntryBlock()
	b.SetCurrentBlock(entry)

	x := b.ConstInt(TypeI32, 1)
	y := b.ConstInt(TypeI32, 2)
	sum := b.Add(x, y)
	z := b.ConstInt(TypeI32, 3)

	sum.Def().ReplaceOperand(0, z)
	b.Return()

	if x.NumUses() != 0 {
		t.Fatalf("x should have zero uses after ReplaceOperand, got %d", x.NumUses())
	}
	if z.NumUses() != 1 {
		t.Fatalf("z should have one use after ReplaceOperand, got %d", z.NumUses())
	}
	if sum.Def().Arg(0) != z {
		t.Fatalf("operand 0 should now be z")
	}
}
