package pass

import "github.com/xenia-project/xenia-sub034/internal/hir"

// Simplify applies local algebraic identities that don't require full
// constant folding: x+0, x-0, x*1, x*0, x&0, x|0, x^x, shifts by zero,
// and self-compare identities. Each hit replaces the instruction's
// result with an existing Value or a fresh constant and leaves the instruction itself for
// DCE to remove once its result has no uses left.
func Simplify(f *hir.Function) {
	for _, blk := range f.Blocks() {
		for inst := blk.Head(); inst != nil; inst = inst.Next() {
			simplifyOne(f, inst)
		}
	}
}

func simplifyOne(f *hir.Function, inst *hir.Instruction) {
	res := inst.Result()
	if res == nil {
		return
	}

	switch inst.Opcode() {
	case hir.OpAdd:
		x, y := inst.Arg(0), inst.Arg(1)
		if isZero(y) {
			res.ReplaceAllUses(x)
		} else if isZero(x) {
			res.ReplaceAllUses(y)
		}

	case hir.OpSub:
		x, y := inst.Arg(0), inst.Arg(1)
		if isZero(y) {
			res.ReplaceAllUses(x)
		} else if x == y {
			res.ReplaceAllUses(f.NewConstInt(res.Type(), 0))
		}

	case hir.OpMul:
		x, y := inst.Arg(0), inst.Arg(1)
		if isOne(y) {
			res.ReplaceAllUses(x)
		} else if isOne(x) {
			res.ReplaceAllUses(y)
		} else if isZero(x) || isZero(y) {
			res.ReplaceAllUses(f.NewConstInt(res.Type(), 0))
		}

	case hir.OpAnd:
		x, y := inst.Arg(0), inst.Arg(1)
		if isZero(y) || isZero(x) {
			res.ReplaceAllUses(f.NewConstInt(res.Type(), 0))
		} else if x == y {
			res.ReplaceAllUses(x)
		}

	case hir.OpOr:
		x, y := inst.Arg(0), inst.Arg(1)
		if isZero(y) {
			res.ReplaceAllUses(x)
		} else if isZero(x) {
			res.ReplaceAllUses(y)
		} else if x == y {
			res.ReplaceAllUses(x)
		}

	case hir.OpXor:
		x, y := inst.Arg(0), inst.Arg(1)
		if x == y {
			res.ReplaceAllUses(f.NewConstInt(res.Type(), 0))
		} else if isZero(y) {
			res.ReplaceAllUses(x)
		} else if isZero(x) {
			res.ReplaceAllUses(y)
		}

	case hir.OpShl, hir.OpShrU, hir.OpShrS, hir.OpRotl:
		y := inst.Arg(1)
		if isZero(y) {
			res.ReplaceAllUses(inst.Arg(0))
		}

	case hir.OpCompareEq:
		x, y := inst.Arg(0), inst.Arg(1)
		if x == y {
			res.ReplaceAllUses(f.NewConstInt(res.Type(), 1))
		}

	case hir.OpCompareNe:
		x, y := inst.Arg(0), inst.Arg(1)
		if x == y {
			res.ReplaceAllUses(f.NewConstInt(res.Type(), 0))
		}

	case hir.OpAssign:
		res.ReplaceAllUses(inst.Arg(0))
	}
}

func isZero(v *hir.Value) bool {
	return v.IsConstant() && v.Type() != hir.TypeVec128 && v.ConstantBits() == 0
}

func isOne(v *hir.Value) bool {
	return v.IsConstant() && v.Type() != hir.TypeVec128 && v.ConstantBits() == 1
}
