package x64

import (
	"github.com/xenia-project/xenia-sub034/internal/backend"
	"github.com/xenia-project/xenia-sub034/internal/hir"
)

// seq accumulates one HIR instruction's expansion as a small forward
// chain; LowerInstr/LowerBranches splice the finished chain onto the
// block in a single prepend so the multi-instruction expansions for
// one HIR op never get interleaved with a neighbor's.
type seq struct{ head, tail *inst }

func (s *seq) add(i *inst) *inst {
	if s.head == nil {
		s.head = i
	} else {
		s.tail.next = i
		i.prev = s.tail
	}
	s.tail = i
	return i
}

func (m *Machine) finish(s *seq) {
	if s.head == nil {
		return
	}
	m.cur.prepend(s.head, s.tail)
}

// val resolves a HIR value operand to a VReg, materializing a
// constant into a fresh temporary with an immediate move. Folding
// constants directly into instruction encodings (e.g. ADD r, imm32)
// is left as a follow-on optimization; every operand here always
// becomes a concrete register so the rest of the selector only has to
// handle the register-register form of each op.
func (m *Machine) val(s *seq, v *hir.Value) backend.VReg {
	if v.IsConstant() {
		if v.Type() == hir.TypeVec128 {
			c := v.ConstantVec128()
			lo := m.cc.AllocateVReg(backend.RegTypeInt)
			hi := m.cc.AllocateVReg(backend.RegTypeInt)
			s.add(&inst{op: iMovImm, size: 8, dst: lo, imm: int64(c.Lo)})
			s.add(&inst{op: iMovImm, size: 8, dst: hi, imm: int64(c.Hi)})
			t := m.cc.AllocateVReg(backend.RegTypeVector)
			s.add(&inst{op: iPinsrd, size: 16, dst: t, src1: lo, src2: hi, lane: -1})
			return t
		}
		if backend.RegTypeOf(v.Type()) == backend.RegTypeFloat {
			sz := byte(v.Type().Bits() / 8)
			bits := m.cc.AllocateVReg(backend.RegTypeInt)
			s.add(&inst{op: iMovImm, size: sz, dst: bits, imm: int64(v.ConstantBits())})
			t := m.cc.AllocateVReg(backend.RegTypeFloat)
			s.add(&inst{op: iMovq, size: sz, dst: t, src1: bits})
			return t
		}
		t := m.cc.AllocateVReg(backend.RegTypeOf(v.Type()))
		s.add(&inst{op: iMovImm, size: byte(v.Type().Bits() / 8), dst: t, imm: int64(v.ConstantBits())})
		return t
	}
	return m.cc.VRegOf(v)
}

// fixedLoc builds a pre-resolved loc for an ISA-pinned operand (a
// calling-convention register or an implicit RAX/RDX/RCX operand);
// the matching *Fixed flag on the inst tells regalloc to leave it
// alone instead of trying to place a VReg there.
func fixedLoc(r backend.RealReg) loc { return loc{reg: r, isReg: true} }

func width(t hir.Type) byte {
	if t == hir.TypeVec128 {
		return 16
	}
	return byte(t.Bits() / 8)
}

// LowerInstr lowers one non-branching HIR instruction.
func (m *Machine) LowerInstr(in *hir.Instruction) {
	var s seq
	op := in.Opcode()
	var dst backend.VReg
	if r := in.Result(); r != nil {
		dst = m.cc.VRegOf(r)
	}

	switch op {
	case hir.OpSourceOffset:
		// no code generated; latches the guest PC subsequent
		// instructions stamp their source-map entry with.
		m.curGuestPC = uint32(in.Operand(0).Imm)
	case hir.OpComment, hir.OpNop:

	case hir.OpAssign:
		s.add(&inst{op: iMovRR, size: width(in.Result().Type()), dst: dst, src1: m.val(&s, in.Arg(0))})

	case hir.OpCast:
		s.add(&inst{op: iMovRR, size: width(in.Result().Type()), dst: dst, src1: m.val(&s, in.Arg(0))})

	case hir.OpZeroExtend:
		src := m.val(&s, in.Arg(0))
		s.add(&inst{op: iMovzx, size: width(in.Arg(0).Type()), dst: dst, src1: src, imm: int64(width(in.Result().Type()))})

	case hir.OpSignExtend:
		src := m.val(&s, in.Arg(0))
		if width(in.Arg(0).Type()) == 4 {
			s.add(&inst{op: iMovsxd, size: 4, dst: dst, src1: src})
		} else {
			s.add(&inst{op: iMovsx, size: width(in.Arg(0).Type()), dst: dst, src1: src, imm: int64(width(in.Result().Type()))})
		}

	case hir.OpTruncate:
		s.add(&inst{op: iMovRR, size: width(in.Result().Type()), dst: dst, src1: m.val(&s, in.Arg(0))})

	case hir.OpConvert:
		m.lowerConvert(&s, in, dst)

	case hir.OpRound:
		// round-to-nearest on the scalar float, x86 default rounding
		// mode already matches PPC's fcfid/frsp default, so this is a
		// plain move; a directed-rounding mode switch would need
		// frontend support for FPSCR's RN field, which this engine
		// does not model.
		s.add(&inst{op: iMovRR, size: width(in.Result().Type()), dst: dst, src1: m.val(&s, in.Arg(0))})

	case hir.OpVectorConvert:
		s.add(&inst{op: iCvtdq2ps, size: 16, dst: dst, src1: m.val(&s, in.Arg(0))})

	case hir.OpLoadContext:
		off := int32(in.Operand(0).Imm)
		m.lowerLoadFixed(&s, dst, m.cc.ParamVReg(), off, width(in.Result().Type()), false)

	case hir.OpStoreContext:
		off := int32(in.Operand(0).Imm)
		src := m.val(&s, in.Arg(1))
		m.lowerStoreFixed(&s, m.cc.ParamVReg(), off, src, width(in.Arg(1).Type()), false)

	case hir.OpLoad, hir.OpLoadAcquire:
		addr := m.val(&s, in.Arg(0))
		host := m.lowerGuestAddress(&s, addr)
		off := int32(in.Operand(1).Imm)
		m.lowerLoadFixed(&s, dst, host, off, width(in.Result().Type()), true)

	case hir.OpStore, hir.OpStoreRelease:
		addr := m.val(&s, in.Arg(0))
		host := m.lowerGuestAddress(&s, addr)
		off := int32(in.Operand(1).Imm)
		src := m.val(&s, in.Arg(2))
		m.lowerStoreFixed(&s, host, off, src, width(in.Arg(2).Type()), true)

	case hir.OpPrefetch:
		addr := m.val(&s, in.Arg(0))
		host := m.lowerGuestAddress(&s, addr)
		s.add(&inst{op: iNop, dst: host}) // prefetch is a hint; lowered to a no-op

	case hir.OpCompareEq, hir.OpCompareNe, hir.OpCompareSLt, hir.OpCompareSLe,
		hir.OpCompareSGt, hir.OpCompareSGe, hir.OpCompareULt, hir.OpCompareULe,
		hir.OpCompareUGt, hir.OpCompareUGe:
		m.lowerCompareToBool(&s, in, dst)

	case hir.OpFCompare:
		m.lowerFCompareToBool(&s, in, dst)

	case hir.OpAdd:
		m.lowerBinaryCommutative(&s, in, dst, iAdd)
	case hir.OpSub:
		m.lowerBinary(&s, in, dst, iSub)
	case hir.OpNeg:
		s.add(&inst{op: iMovRR, size: width(in.Result().Type()), dst: dst, src1: m.val(&s, in.Arg(0))})
		s.add(&inst{op: iNeg, size: width(in.Result().Type()), dst: dst})
	case hir.OpMul:
		m.lowerBinaryCommutative(&s, in, dst, iImulRR)
	case hir.OpMulHiS:
		m.lowerMulHi(&s, in, dst, true)
	case hir.OpMulHiU:
		m.lowerMulHi(&s, in, dst, false)
	case hir.OpDivS:
		m.lowerDivRem(&s, in, dst, true, false)
	case hir.OpDivU:
		m.lowerDivRem(&s, in, dst, false, false)
	case hir.OpRemS:
		m.lowerDivRem(&s, in, dst, true, true)
	case hir.OpRemU:
		m.lowerDivRem(&s, in, dst, false, true)

	case hir.OpFAdd:
		m.lowerFBinary(&s, in, dst, iAddss, iAddsd)
	case hir.OpFSub:
		m.lowerFBinary(&s, in, dst, iSubss, iSubsd)
	case hir.OpFMul:
		m.lowerFBinary(&s, in, dst, iMulss, iMulsd)
	case hir.OpFDiv:
		m.lowerFBinary(&s, in, dst, iDivss, iDivsd)
	case hir.OpFSqrt:
		op := iSqrtss
		if in.Result().Type() == hir.TypeF64 {
			op = iSqrtsd
		}
		s.add(&inst{op: op, size: width(in.Result().Type()), dst: dst, src1: m.val(&s, in.Arg(0))})
	case hir.OpFNeg:
		m.lowerFSignMask(&s, in, dst, uint64(1)<<63, uint64(1)<<31, true)
	case hir.OpFAbs:
		m.lowerFSignMask(&s, in, dst, ^(uint64(1) << 63), ^(uint64(1) << 31), false)
	case hir.OpFMulAdd:
		a, b, c := m.val(&s, in.Arg(0)), m.val(&s, in.Arg(1)), m.val(&s, in.Arg(2))
		mulOp, addOp := iMulss, iAddss
		if in.Result().Type() == hir.TypeF64 {
			mulOp, addOp = iMulsd, iAddsd
		}
		s.add(&inst{op: iMovRR, size: width(in.Result().Type()), dst: dst, src1: a})
		s.add(&inst{op: mulOp, size: width(in.Result().Type()), dst: dst, src1: dst, src2: b})
		s.add(&inst{op: addOp, size: width(in.Result().Type()), dst: dst, src1: dst, src2: c})

	case hir.OpAnd:
		m.lowerBinaryCommutative(&s, in, dst, iAnd)
	case hir.OpOr:
		m.lowerBinaryCommutative(&s, in, dst, iOr)
	case hir.OpXor:
		m.lowerBinaryCommutative(&s, in, dst, iXor)
	case hir.OpNot:
		s.add(&inst{op: iMovRR, size: width(in.Result().Type()), dst: dst, src1: m.val(&s, in.Arg(0))})
		s.add(&inst{op: iNot, size: width(in.Result().Type()), dst: dst})

	case hir.OpShl, hir.OpShrU, hir.OpShrS, hir.OpRotl:
		if in.Result().Type() == hir.TypeVec128 {
			m.lowerVectorShift(&s, in, dst, op)
		} else {
			m.lowerShift(&s, in, dst, op)
		}

	case hir.OpByteSwap:
		s.add(&inst{op: iMovRR, size: width(in.Result().Type()), dst: dst, src1: m.val(&s, in.Arg(0))})
		s.add(&inst{op: iBswap, size: width(in.Result().Type()), dst: dst})

	case hir.OpSplat:
		src := m.val(&s, in.Arg(0))
		s.add(&inst{op: iPshufd, size: 16, dst: dst, src1: src, lane: 0})

	case hir.OpInsert:
		base, elt := m.val(&s, in.Arg(0)), m.val(&s, in.Arg(1))
		lane := in.Operand(2).Imm
		s.add(&inst{op: iMovRR, size: 16, dst: dst, src1: base})
		s.add(&inst{op: iPinsrd, size: 16, dst: dst, src1: dst, src2: elt, lane: int32(lane)})

	case hir.OpExtract:
		src := m.val(&s, in.Arg(0))
		lane := in.Operand(1).Imm
		s.add(&inst{op: iPextrd, size: width(in.Result().Type()), dst: dst, src1: src, lane: int32(lane)})

	case hir.OpPermute:
		m.lowerPermute(&s, in, dst)

	case hir.OpSwizzle:
		// vpermwi reorders a single source's four 32-bit lanes using an
		// 8-bit immediate, two bits per destination lane — exactly
		// PSHUFD's control byte.
		src := m.val(&s, in.Arg(0))
		s.add(&inst{op: iPshufd, size: 16, dst: dst, src1: src, lane: int32(in.Operand(1).Imm)})

	case hir.OpDotProduct3, hir.OpDotProduct4:
		a, b := m.val(&s, in.Arg(0)), m.val(&s, in.Arg(1))
		mask := int32(0xf1)
		if op == hir.OpDotProduct3 {
			mask = 0x71
		}
		s.add(&inst{op: iMovRR, size: 16, dst: dst, src1: a})
		s.add(&inst{op: iDpps, size: 16, dst: dst, src1: dst, src2: b, lane: mask})

	case hir.OpPack:
		a, b := m.val(&s, in.Arg(0)), m.val(&s, in.Arg(1))
		s.add(&inst{op: iMovRR, size: 16, dst: dst, src1: a})
		s.add(&inst{op: iPblendvb, size: 16, dst: dst, src1: dst, src2: b})

	case hir.OpUnpack:
		src := m.val(&s, in.Arg(0))
		s.add(&inst{op: iPshufd, size: 16, dst: dst, src1: src, lane: int32(in.Operand(1).Imm)})

	case hir.OpCompareExchange:
		addr, cmp, newv := m.val(&s, in.Arg(0)), m.val(&s, in.Arg(1)), m.val(&s, in.Arg(2))
		sz := width(in.Result().Type())
		s.add(&inst{op: iMovRR, size: sz, dst: 0, dstLoc: fixedLoc(RAX), dstFixed: true, src1: cmp})
		s.add(&inst{op: iLockCmpxchg, size: sz, src1: addr, src2: newv})
		s.add(&inst{op: iMovRR, size: sz, dst: dst, src1: 0, src1Loc: fixedLoc(RAX), src1Fixed: true})

	case hir.OpAtomicAdd, hir.OpAtomicSub:
		addr, v := m.val(&s, in.Arg(0)), m.val(&s, in.Arg(1))
		if op == hir.OpAtomicSub {
			neg := m.cc.AllocateVReg(backend.RegTypeInt)
			s.add(&inst{op: iMovRR, size: width(in.Result().Type()), dst: neg, src1: v})
			s.add(&inst{op: iNeg, size: width(in.Result().Type()), dst: neg})
			v = neg
		}
		s.add(&inst{op: iLockXadd, size: width(in.Result().Type()), dst: dst, src1: addr, src2: v})

	case hir.OpCall:
		m.lowerCall(&s, in, dst)
	case hir.OpCallIndirect:
		m.lowerCallIndirect(&s, in, dst)
	case hir.OpTrap:
		s.add(&inst{op: iUD2})
	case hir.OpDebugBreak:
		s.add(&inst{op: iInt3})

	default:
		unsupported(op)
	}

	if s.head != nil {
		s.head.srcTagged = true
		s.head.guestPC = m.curGuestPC
		s.head.ordinal = in.Ordinal()
	}
	m.finish(&s)
}

func (m *Machine) lowerGuestAddress(s *seq, guestAddr backend.VReg) backend.VReg {
	membase := m.cc.AllocateVReg(backend.RegTypeInt)
	s.add(&inst{op: iLoadMem, size: 8, dst: membase, memBase: m.cc.ParamVReg(), memDisp: membaseOffset})
	host := m.cc.AllocateVReg(backend.RegTypeInt)
	s.add(&inst{op: iLea, size: 8, dst: host, memBase: membase, src2: guestAddr})
	return host
}

func (m *Machine) lowerLoadFixed(s *seq, dst, base backend.VReg, disp int32, size byte, swap bool) {
	s.add(&inst{op: iLoadMem, size: size, dst: dst, memBase: base, memDisp: disp, swap: swap})
}

func (m *Machine) lowerStoreFixed(s *seq, base backend.VReg, disp int32, src backend.VReg, size byte, swap bool) {
	s.add(&inst{op: iStoreMem, size: size, src1: src, memBase: base, memDisp: disp, swap: swap})
}

func (m *Machine) lowerBinaryCommutative(s *seq, in *hir.Instruction, dst backend.VReg, op iop) {
	a, b := m.val(s, in.Arg(0)), m.val(s, in.Arg(1))
	sz := width(in.Result().Type())
	s.add(&inst{op: iMovRR, size: sz, dst: dst, src1: a})
	s.add(&inst{op: op, size: sz, dst: dst, src1: dst, src2: b})
}

func (m *Machine) lowerBinary(s *seq, in *hir.Instruction, dst backend.VReg, op iop) {
	m.lowerBinaryCommutative(s, in, dst, op) // x86's two-operand form needs the same dst<-a, dst op= b shape
}

func (m *Machine) lowerFBinary(s *seq, in *hir.Instruction, dst backend.VReg, opS, opD iop) {
	a, b := m.val(s, in.Arg(0)), m.val(s, in.Arg(1))
	sz := width(in.Result().Type())
	op := opS
	if in.Result().Type() == hir.TypeF64 {
		op = opD
	}
	s.add(&inst{op: iMovRR, size: sz, dst: dst, src1: a})
	s.add(&inst{op: op, size: sz, dst: dst, src1: dst, src2: b})
}

func (m *Machine) lowerFSignMask(s *seq, in *hir.Instruction, dst backend.VReg, mask64, mask32 uint64, xor bool) {
	sz := width(in.Result().Type())
	mask := mask32
	if in.Result().Type() == hir.TypeF64 {
		mask = mask64
	}
	maskReg := m.cc.AllocateVReg(backend.RegTypeVector)
	s.add(&inst{op: iMovImm, size: 8, dst: maskReg, imm: int64(mask)})
	op := iAndps
	if xor {
		op = iXorps
	}
	s.add(&inst{op: iMovRR, size: sz, dst: dst, src1: m.val(s, in.Arg(0))})
	s.add(&inst{op: op, size: sz, dst: dst, src1: dst, src2: maskReg})
}

func (m *Machine) lowerMulHi(s *seq, in *hir.Instruction, dst backend.VReg, signed bool) {
	a, b := m.val(s, in.Arg(0)), m.val(s, in.Arg(1))
	sz := width(in.Result().Type())
	s.add(&inst{op: iMovRR, size: sz, dst: 0, dstLoc: fixedLoc(RAX), dstFixed: true, src1: a})
	op := iMulOneOp
	if signed {
		op = iImulOneOp
	}
	s.add(&inst{op: op, size: sz, src1: b, dst: 0, dstLoc: fixedLoc(RDX), dstFixed: true})
	s.add(&inst{op: iMovRR, size: sz, dst: dst, src1: 0, src1Loc: fixedLoc(RDX), src1Fixed: true})
}

func (m *Machine) lowerDivRem(s *seq, in *hir.Instruction, dst backend.VReg, signed, rem bool) {
	a, b := m.val(s, in.Arg(0)), m.val(s, in.Arg(1))
	sz := width(in.Result().Type())
	s.add(&inst{op: iMovRR, size: sz, dst: 0, dstLoc: fixedLoc(RAX), dstFixed: true, src1: a})
	if signed {
		s.add(&inst{op: iCqo, size: sz, dst: 0, dstLoc: fixedLoc(RDX), dstFixed: true})
		s.add(&inst{op: iIdiv, size: sz, src1: b})
	} else {
		s.add(&inst{op: iXorZeroRDX, size: sz, dst: 0, dstLoc: fixedLoc(RDX), dstFixed: true})
		s.add(&inst{op: iDiv, size: sz, src1: b})
	}
	result := fixedLoc(RAX)
	if rem {
		result = fixedLoc(RDX)
	}
	s.add(&inst{op: iMovRR, size: sz, dst: dst, src1: 0, src1Loc: result, src1Fixed: true})
}

func (m *Machine) lowerShift(s *seq, in *hir.Instruction, dst backend.VReg, op hir.Opcode) {
	a, amt := m.val(s, in.Arg(0)), m.val(s, in.Arg(1))
	sz := width(in.Result().Type())
	s.add(&inst{op: iMovRR, size: sz, dst: dst, src1: a})
	s.add(&inst{op: iMovRR, size: 1, dst: 0, dstLoc: fixedLoc(RCX), dstFixed: true, src1: amt})
	var iop iop
	switch op {
	case hir.OpShl:
		iop = iShl
	case hir.OpShrU:
		iop = iShr
	case hir.OpShrS:
		iop = iSar
	case hir.OpRotl:
		iop = iRol
	}
	s.add(&inst{op: iop, size: sz, dst: dst, src1: 0, src1Loc: fixedLoc(RCX), src1Fixed: true})
}

// lowerVectorShift assembles a whole-128-bit shift (VMX's vsl/vsr,
// 0-7 bit positions only) from two GPR halves, since SSE has no
// single instruction for a sub-byte shift that crosses the whole
// register: extract the two 64-bit lanes, SHLD/SHRD them against each
// other, reassemble.
func (m *Machine) lowerVectorShift(s *seq, in *hir.Instruction, dst backend.VReg, op hir.Opcode) {
	a, amt := m.val(s, in.Arg(0)), m.val(s, in.Arg(1))
	lo := m.cc.AllocateVReg(backend.RegTypeInt)
	hi := m.cc.AllocateVReg(backend.RegTypeInt)
	s.add(&inst{op: iPextrd, size: 8, dst: lo, src1: a, lane: 0})
	s.add(&inst{op: iPextrd, size: 8, dst: hi, src1: a, lane: 1})
	s.add(&inst{op: iMovRR, size: 1, dst: 0, dstLoc: fixedLoc(RCX), dstFixed: true, src1: amt})
	switch op {
	case hir.OpShl:
		s.add(&inst{op: iShld, size: 8, dst: hi, src1: lo, src2: 0, src2Loc: fixedLoc(RCX), src2Fixed: true})
		s.add(&inst{op: iShl, size: 8, dst: lo, src1: 0, src1Loc: fixedLoc(RCX), src1Fixed: true})
	default: // ShrU/ShrS/Rotl treated as logical right for the VMX vsr form
		s.add(&inst{op: iShrd, size: 8, dst: lo, src1: hi, src2: 0, src2Loc: fixedLoc(RCX), src2Fixed: true})
		s.add(&inst{op: iShr, size: 8, dst: hi, src1: 0, src1Loc: fixedLoc(RCX), src1Fixed: true})
	}
	s.add(&inst{op: iPinsrd, size: 16, dst: dst, src1: lo, src2: hi, lane: -1})
}

func (m *Machine) lowerPermute(s *seq, in *hir.Instruction, dst backend.VReg) {
	a, b, mask := m.val(s, in.Arg(0)), m.val(s, in.Arg(1)), m.val(s, in.Arg(2))
	loSel := m.cc.AllocateVReg(backend.RegTypeVector)
	hiSel := m.cc.AllocateVReg(backend.RegTypeVector)
	s.add(&inst{op: iMovRR, size: 16, dst: loSel, src1: a})
	s.add(&inst{op: iPshufb, size: 16, dst: loSel, src1: loSel, src2: mask})
	s.add(&inst{op: iMovRR, size: 16, dst: hiSel, src1: b})
	s.add(&inst{op: iPshufb, size: 16, dst: hiSel, src1: hiSel, src2: mask})
	s.add(&inst{op: iMovRR, size: 16, dst: dst, src1: loSel})
	s.add(&inst{op: iPblendvb, size: 16, dst: dst, src1: dst, src2: hiSel})
}

func (m *Machine) lowerConvert(s *seq, in *hir.Instruction, dst backend.VReg) {
	from, to := in.Arg(0).Type(), in.Result().Type()
	src := m.val(s, in.Arg(0))
	switch {
	case from.IsInt() && to == hir.TypeF32:
		s.add(&inst{op: iCvtsi2ss, size: width(from), dst: dst, src1: src})
	case from.IsInt() && to == hir.TypeF64:
		s.add(&inst{op: iCvtsi2sd, size: width(from), dst: dst, src1: src})
	case from == hir.TypeF32 && to.IsInt():
		s.add(&inst{op: iCvttss2si, size: width(to), dst: dst, src1: src})
	case from == hir.TypeF64 && to.IsInt():
		s.add(&inst{op: iCvttsd2si, size: width(to), dst: dst, src1: src})
	case from == hir.TypeF32 && to == hir.TypeF64:
		s.add(&inst{op: iCvtss2sd, size: 8, dst: dst, src1: src})
	case from == hir.TypeF64 && to == hir.TypeF32:
		s.add(&inst{op: iCvtsd2ss, size: 4, dst: dst, src1: src})
	default:
		s.add(&inst{op: iMovRR, size: width(to), dst: dst, src1: src})
	}
}

func ccFor(op hir.Opcode, signed bool) condCode {
	switch op {
	case hir.OpCompareEq:
		return ccE
	case hir.OpCompareNe:
		return ccNE
	case hir.OpCompareSLt:
		return ccL
	case hir.OpCompareSLe:
		return ccLE
	case hir.OpCompareSGt:
		return ccG
	case hir.OpCompareSGe:
		return ccGE
	case hir.OpCompareULt:
		return ccB
	case hir.OpCompareULe:
		return ccBE
	case hir.OpCompareUGt:
		return ccA
	case hir.OpCompareUGe:
		return ccAE
	}
	return ccE
}

func (m *Machine) lowerCompareToBool(s *seq, in *hir.Instruction, dst backend.VReg) {
	a, b := m.val(s, in.Arg(0)), m.val(s, in.Arg(1))
	sz := width(in.Arg(0).Type())
	s.add(&inst{op: iCmp, size: sz, src1: a, src2: b})
	s.add(&inst{op: iSetcc, size: 1, dst: dst, cc: ccFor(in.Opcode(), true)})
}

func (m *Machine) lowerFCompareToBool(s *seq, in *hir.Instruction, dst backend.VReg) {
	// FCompare's third operand (immediate) selects the PPC condition
	// predicate; this engine only needs ordered-equal/less/greater for
	// the scalar FPU ops it lowers, covered by plain UCOMISS/UCOMISD
	// followed by the matching SETcc.
	a, b := m.val(s, in.Arg(0)), m.val(s, in.Arg(1))
	s.add(&inst{op: iCmp, size: width(in.Arg(0).Type()), src1: a, src2: b, imm: 1}) // imm=1 marks float compare for encode
	s.add(&inst{op: iSetcc, size: 1, dst: dst, cc: condCode(in.Operand(2).Imm)})
}

func (m *Machine) lowerCall(s *seq, in *hir.Instruction, dst backend.VReg) {
	s.add(&inst{op: iCallRel, sym: in.Operand(0).Sym})
	if in.Result() != nil {
		s.add(&inst{op: iMovRR, size: width(in.Result().Type()), dst: dst, src1: 0, src1Loc: fixedLoc(RAX), src1Fixed: true})
	}
}

func (m *Machine) lowerCallIndirect(s *seq, in *hir.Instruction, dst backend.VReg) {
	target := m.val(s, in.Arg(0))
	s.add(&inst{op: iCallIndirect, src1: target})
	if in.Result() != nil {
		s.add(&inst{op: iMovRR, size: width(in.Result().Type()), dst: dst, src1: 0, src1Loc: fixedLoc(RAX), src1Fixed: true})
	}
}

// LowerBranches lowers blk's terminator(s). A compare feeding a single
// branch fuses into CMP+Jcc; anything else evaluates the condition
// value and falls back to TEST+JNZ/JZ.
func (m *Machine) LowerBranches(br0, br1 *hir.Instruction) {
	var s seq
	if br1 != nil {
		m.lowerOneBranch(&s, br1)
	}
	m.lowerOneBranch(&s, br0)
	m.finish(&s)
}

func (m *Machine) lowerOneBranch(s *seq, br *hir.Instruction) {
	switch br.Opcode() {
	case hir.OpReturn:
		s.add(&inst{op: iRet})
	case hir.OpBranch:
		s.add(&inst{op: iJmp, label: m.labelFor(br.Operand(0).Label)})
	case hir.OpBranchIf:
		m.lowerCondBranch(s, br.Arg(0), br.Operand(1).Label, br.Operand(2).Label)
	case hir.OpBranchTrue:
		m.lowerCondBranch(s, br.Arg(0), br.Operand(1).Label, nil)
	case hir.OpBranchFalse:
		m.lowerCondBranchInverted(s, br.Arg(0), br.Operand(1).Label)
	}
}

func (m *Machine) labelFor(l *hir.Label) *targetLabel {
	if b, ok := m.blockByID[l.Block.ID()]; ok {
		return &b.label
	}
	return &targetLabel{blockID: l.Block.ID()}
}

// tryFuseCompare reports whether cond is a compare instruction used
// only by this branch, in which case the compare and branch fuse into
// a single CMP + Jcc and the compare instruction is marked lowered so
// Compiler's backward walk skips it.
func (m *Machine) tryFuseCompare(s *seq, cond *hir.Value) (condCode, bool) {
	def := cond.Def()
	if def == nil || m.cc.ValueDefinition(cond).RefCount != 1 {
		return 0, false
	}
	switch def.Opcode() {
	case hir.OpCompareEq, hir.OpCompareNe, hir.OpCompareSLt, hir.OpCompareSLe,
		hir.OpCompareSGt, hir.OpCompareSGe, hir.OpCompareULt, hir.OpCompareULe,
		hir.OpCompareUGt, hir.OpCompareUGe:
		a, b := m.val(s, def.Arg(0)), m.val(s, def.Arg(1))
		s.add(&inst{op: iCmp, size: width(def.Arg(0).Type()), src1: a, src2: b})
		m.cc.MarkLowered(def)
		return ccFor(def.Opcode(), true), true
	default:
		return 0, false
	}
}

func (m *Machine) lowerCondBranch(s *seq, cond *hir.Value, trueLbl, falseLbl *hir.Label) {
	cc, fused := m.tryFuseCompare(s, cond)
	if !fused {
		v := m.val(s, cond)
		s.add(&inst{op: iTest, size: width(cond.Type()), src1: v, src2: v})
		cc = ccNE
	}
	s.add(&inst{op: iJcc, cc: cc, label: m.labelFor(trueLbl)})
	if falseLbl != nil {
		s.add(&inst{op: iJmp, label: m.labelFor(falseLbl)})
	}
}

func (m *Machine) lowerCondBranchInverted(s *seq, cond *hir.Value, falseLbl *hir.Label) {
	cc, fused := m.tryFuseCompare(s, cond)
	if !fused {
		v := m.val(s, cond)
		s.add(&inst{op: iTest, size: width(cond.Type()), src1: v, src2: v})
		cc = ccE
	} else {
		cc = invertCC(cc)
	}
	s.add(&inst{op: iJcc, cc: cc, label: m.labelFor(falseLbl)})
}

func invertCC(cc condCode) condCode {
	if cc%2 == 0 {
		return cc + 1
	}
	return cc - 1
}
