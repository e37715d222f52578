package pass

import "github.com/xenia-project/xenia-sub034/internal/hir"

// ConstProp folds instructions whose value operands are all constants
// into a single constant result, replacing every use of the original
// result and leaving the now-unused instruction for DCE to remove.
func ConstProp(f *hir.Function) {
	for _, blk := range f.Blocks() {
		for inst := blk.Head(); inst != nil; inst = inst.Next() {
			constPropOne(f, inst)
		}
	}
}

func constPropOne(f *hir.Function, inst *hir.Instruction) {
	res := inst.Result()
	if res == nil || res.Type() == hir.TypeVec128 {
		return
	}

	switch inst.Opcode() {
	case hir.OpAdd, hir.OpSub, hir.OpMul, hir.OpAnd, hir.OpOr, hir.OpXor,
		hir.OpShl, hir.OpShrU, hir.OpShrS, hir.OpRotl,
		hir.OpDivS, hir.OpDivU, hir.OpRemS, hir.OpRemU:
		x, y := inst.Arg(0), inst.Arg(1)
		if x == nil || y == nil || !x.IsConstant() || !y.IsConstant() {
			return
		}
		v, ok := foldBinary(inst.Opcode(), res.Type(), x.ConstantBits(), y.ConstantBits())
		if ok {
			res.ReplaceAllUses(f.NewConstInt(res.Type(), v))
		}

	case hir.OpNeg, hir.OpNot, hir.OpByteSwap, hir.OpZeroExtend, hir.OpSignExtend, hir.OpTruncate, hir.OpCast:
		x := inst.Arg(0)
		if x == nil || !x.IsConstant() {
			return
		}
		v, ok := foldUnary(inst.Opcode(), inst.Arg(0), res.Type())
		if ok {
			res.ReplaceAllUses(f.NewConstInt(res.Type(), v))
		}

	case hir.OpCompareEq, hir.OpCompareNe, hir.OpCompareSLt, hir.OpCompareSLe,
		hir.OpCompareSGt, hir.OpCompareSGe, hir.OpCompareULt, hir.OpCompareULe,
		hir.OpCompareUGt, hir.OpCompareUGe:
		x, y := inst.Arg(0), inst.Arg(1)
		if x == nil || y == nil || !x.IsConstant() || !y.IsConstant() {
			return
		}
		if foldCompare(inst.Opcode(), x.Type(), x.ConstantBits(), y.ConstantBits()) {
			res.ReplaceAllUses(f.NewConstInt(res.Type(), 1))
		} else {
			res.ReplaceAllUses(f.NewConstInt(res.Type(), 0))
		}
	}
}

func mask(typ hir.Type, v uint64) uint64 {
	switch typ.Bits() {
	case 8:
		return v & 0xff
	case 16:
		return v & 0xffff
	case 32:
		return v & 0xffffffff
	default:
		return v
	}
}

func signExtendTo64(typ hir.Type, v uint64) int64 {
	switch typ.Bits() {
	case 8:
		return int64(int8(v))
	case 16:
		return int64(int16(v))
	case 32:
		return int64(int32(v))
	default:
		return int64(v)
	}
}

func minIntForBits(bits int) int64 {
	switch bits {
	case 8:
		return -1 << 7
	case 16:
		return -1 << 15
	case 32:
		return -1 << 31
	default:
		return -1 << 63
	}
}

// foldBinary folds one of the integer binary opcodes. The second return
// reports whether folding succeeded (division/remainder by zero is left
// unfolded so it reaches the backend's trap path instead of panicking
// here).
func foldBinary(op hir.Opcode, typ hir.Type, a, b uint64) (uint64, bool) {
	bits := typ.Bits()
	switch op {
	case hir.OpAdd:
		return mask(typ, a+b), true
	case hir.OpSub:
		return mask(typ, a-b), true
	case hir.OpMul:
		return mask(typ, a*b), true
	case hir.OpAnd:
		return mask(typ, a&b), true
	case hir.OpOr:
		return mask(typ, a|b), true
	case hir.OpXor:
		return mask(typ, a^b), true
	case hir.OpShl:
		return mask(typ, a<<(b&uint64(bits-1))), true
	case hir.OpShrU:
		return mask(typ, mask(typ, a)>>(b&uint64(bits-1))), true
	case hir.OpShrS:
		sh := uint(b & uint64(bits-1))
		return mask(typ, uint64(signExtendTo64(typ, a)>>sh)), true
	case hir.OpRotl:
		sh := uint(b & uint64(bits-1))
		av := mask(typ, a)
		if sh == 0 {
			return av, true
		}
		return mask(typ, (av<<sh)|(av>>(uint(bits)-sh))), true
	case hir.OpDivS:
		sa, sb := signExtendTo64(typ, a), signExtendTo64(typ, b)
		if sb == 0 {
			return 0, false
		}
		if sa == minIntForBits(bits) && sb == -1 {
			// INT_MIN / -1: hardware quirk, quotient is the dividend
			// unchanged, no trap.
			return mask(typ, a), true
		}
		return mask(typ, uint64(sa/sb)), true
	case hir.OpDivU:
		ua, ub := mask(typ, a), mask(typ, b)
		if ub == 0 {
			return 0, false
		}
		return mask(typ, ua/ub), true
	case hir.OpRemS:
		sa, sb := signExtendTo64(typ, a), signExtendTo64(typ, b)
		if sb == 0 {
			return 0, false
		}
		if sa == minIntForBits(bits) && sb == -1 {
			return 0, true
		}
		return mask(typ, uint64(sa%sb)), true
	case hir.OpRemU:
		ua, ub := mask(typ, a), mask(typ, b)
		if ub == 0 {
			return 0, false
		}
		return mask(typ, ua%ub), true
	default:
		return 0, false
	}
}

func foldUnary(op hir.Opcode, x *hir.Value, resType hir.Type) (uint64, bool) {
	switch op {
	case hir.OpNeg:
		return mask(resType, uint64(-signExtendTo64(x.Type(), x.ConstantBits()))), true
	case hir.OpNot:
		return mask(resType, ^x.ConstantBits()), true
	case hir.OpByteSwap:
		return mask(resType, byteSwap(x.ConstantBits(), resType.Bits())), true
	case hir.OpZeroExtend:
		return mask(resType, mask(x.Type(), x.ConstantBits())), true
	case hir.OpSignExtend:
		return mask(resType, uint64(signExtendTo64(x.Type(), x.ConstantBits()))), true
	case hir.OpTruncate, hir.OpCast:
		return mask(resType, x.ConstantBits()), true
	default:
		return 0, false
	}
}

func byteSwap(v uint64, bits int) uint64 {
	switch bits {
	case 16:
		return uint64(uint16(v>>8) | uint16(v)<<8)
	case 32:
		v32 := uint32(v)
		return uint64(v32>>24 | (v32>>8)&0xff00 | (v32<<8)&0xff0000 | v32<<24)
	case 64:
		var out uint64
		for i := 0; i < 8; i++ {
			out = out<<8 | (v & 0xff)
			v >>= 8
		}
		return out
	default:
		return v
	}
}

func foldCompare(op hir.Opcode, operandType hir.Type, a, b uint64) bool {
	switch op {
	case hir.OpCompareEq:
		return mask(operandType, a) == mask(operandType, b)
	case hir.OpCompareNe:
		return mask(operandType, a) != mask(operandType, b)
	case hir.OpCompareSLt:
		return signExtendTo64(operandType, a) < signExtendTo64(operandType, b)
	case hir.OpCompareSLe:
		return signExtendTo64(operandType, a) <= signExtendTo64(operandType, b)
	case hir.OpCompareSGt:
		return signExtendTo64(operandType, a) > signExtendTo64(operandType, b)
	case hir.OpCompareSGe:
		return signExtendTo64(operandType, a) >= signExtendTo64(operandType, b)
	case hir.OpCompareULt:
		return mask(operandType, a) < mask(operandType, b)
	case hir.OpCompareULe:
		return mask(operandType, a) <= mask(operandType, b)
	case hir.OpCompareUGt:
		return mask(operandType, a) > mask(operandType, b)
	case hir.OpCompareUGe:
		return mask(operandType, a) >= mask(operandType, b)
	default:
		return false
	}
}
