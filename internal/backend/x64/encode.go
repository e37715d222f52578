package x64

import "github.com/xenia-project/xenia-sub034/internal/backend"

// asm is a small byte-emitting buffer, grounded on the same
// "emit straight into a []byte, patch displacements after the fact"
// shape the teacher's arm64 backend uses for its own encode pass,
// adapted here to x86's REX/ModRM/SIB encoding instead of arm64's
// fixed-width words.
type asm struct {
	buf []byte
}

func (a *asm) b(v byte)        { a.buf = append(a.buf, v) }
func (a *asm) bytes(v ...byte) { a.buf = append(a.buf, v...) }
func (a *asm) u32(v uint32) {
	a.buf = append(a.buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}
func (a *asm) u64(v uint64) {
	a.u32(uint32(v))
	a.u32(uint32(v >> 32))
}
func (a *asm) pos() int32 { return int32(len(a.buf)) }

// rex emits a REX prefix if any of w/r/x/b require one, or if force is
// set (needed to select the low byte registers SPL/BPL/SIL/DIL over
// AH/CH/DH/BH when size==1).
func (a *asm) rex(w bool, r, x, b byte, force bool) {
	var v byte = 0x40
	if w {
		v |= 0x08
	}
	v |= (r & 8) >> 1
	v |= (x & 8) >> 2
	v |= (b & 8) >> 3
	if v != 0x40 || force {
		a.b(v)
	}
}

// modrmReg emits ModRM for a register-register form: reg field from
// regField, r/m field from rm.
func (a *asm) modrmReg(regField, rm byte) {
	a.b(0xc0 | (regField&7)<<3 | (rm & 7))
}

// modrmMem emits ModRM+SIB+disp for [base + index*1 + disp32], index
// omitted when hasIndex is false. Every memory access this backend
// emits uses a 32-bit displacement unconditionally, so fixups never
// have to recompute ModRM's mod field.
func (a *asm) modrmMem(regField, base byte, hasIndex bool, index byte, disp int32) {
	rm := base & 7
	needSIB := hasIndex || rm == 4 // RSP/R12 as base always needs a SIB byte
	if needSIB {
		a.b(0x80 | (regField&7)<<3 | 4)
		idx := byte(4) // no-index encoding
		if hasIndex {
			idx = index & 7
		}
		a.b((idx&7)<<3 | rm)
	} else {
		a.b(0x80 | (regField&7)<<3 | rm)
	}
	a.u32(uint32(disp))
}

// loadSpill/storeSpill materialize a spilled loc into/from a scratch
// register around an operation that needs a concrete register.
func (a *asm) loadSpill(scratch backend.RealReg, l loc, size byte) {
	a.movRegMemRBP(scratch, l.spillOff, size, false)
}
func (a *asm) storeSpill(l loc, scratch backend.RealReg, size byte) {
	a.movRegMemRBP(scratch, l.spillOff, size, true)
}

// movRegMemRBP emits MOV reg, [rbp+off] (store=false) or
// MOV [rbp+off], reg (store=true). A scalar float spilled to the stack
// moves via MOVQ rather than the GPR MOV form.
func (a *asm) movRegMemRBP(reg backend.RealReg, off int32, size byte, store bool) {
	rlo, rext := lowBits(reg), needsREXExt(reg)
	if isXMM(reg) {
		if store {
			a.b(0x66)
			a.rex(false, boolByte(rext), 0, 0, false)
			a.bytes(0x0f, 0xd6) // MOVQ m64, xmm
		} else {
			a.b(0xf3)
			a.rex(false, boolByte(rext), 0, 0, false)
			a.bytes(0x0f, 0x7e) // MOVQ xmm, m64
		}
		a.modrmMem(rlo, byte(RBP), false, 0, off)
		return
	}
	a.rexForSize(size, size == 8, rext, false, false)
	op := byte(0x8b)
	if store {
		op = 0x89
	}
	if size == 1 {
		op--
	}
	a.b(op)
	a.modrmMem(rlo, byte(RBP), false, 0, off)
}

func (a *asm) rexForSize(size byte, w bool, rExt, xExt, bExt bool) {
	a.rex(w, boolByte(rExt), boolByte(xExt), boolByte(bExt), size == 1)
}

func boolByte(b bool) byte {
	if b {
		return 8
	}
	return 0
}

// encodeAll walks m.blocks in program order, emitting machine code for
// the register-allocation-resolved instruction chain each blockBuf
// still roots (flatten only spliced the blocks together; it didn't
// move any node). A block's label is resolved the moment its first
// byte is emitted, so a backward branch's displacement is computed
// immediately; a forward branch is queued as a fixup and patched once
// every block has been placed.
func (m *Machine) encodeAll(insts *inst) ([]byte, []SourceMapEntry) {
	var a asm
	var fixups []fixup
	var srcMap []SourceMapEntry
	var relocs []CallReloc

	for _, b := range m.blocks {
		if b.head == nil {
			continue
		}
		b.label.offset = a.pos()
		b.label.resolved = true
		for i := b.head; ; i = i.next {
			if i.srcTagged {
				srcMap = append(srcMap, SourceMapEntry{HostOffset: a.pos(), GuestPC: i.guestPC, HIROrdinal: i.ordinal})
			}
			if i.op == iCallRel {
				relocs = append(relocs, CallReloc{PatchOffset: a.pos() + 1, Symbol: i.sym})
			}
			a.encodeOne(i, &fixups)
			if i == b.tail {
				break
			}
		}
	}
	for _, f := range fixups {
		target := f.label
		if !target.resolved {
			// labelFor hands out a detached label for a block not yet
			// started at lowering time; look up the placed block by ID.
			if b, ok := m.blockByID[target.blockID]; ok {
				target = &b.label
			}
		}
		rel := target.offset - (f.patchPos + 4)
		putU32At(a.buf, f.patchPos, uint32(rel))
	}
	m.CallRelocs = relocs
	return a.buf, srcMap
}

type fixup struct {
	patchPos int32
	label    *targetLabel
}

func putU32At(buf []byte, pos int32, v uint32) {
	buf[pos] = byte(v)
	buf[pos+1] = byte(v >> 8)
	buf[pos+2] = byte(v >> 16)
	buf[pos+3] = byte(v >> 24)
}

// encodeOne emits i's bytes. Spilled GPR operands are staged through
// scratchGPR0/scratchGPR1 (never allocator-owned) so every opcode
// handler below can assume it is working with concrete registers.
func (a *asm) encodeOne(i *inst, fixups *[]fixup) {
	switch i.op {
	case iComment, iNop:
		return
	case iMovImm:
		a.emitMovImm(i)
	case iMovRR:
		a.emitMovRR(i)
	case iLoadMem:
		a.emitLoadMem(i)
	case iStoreMem:
		a.emitStoreMem(i)
	case iLea:
		a.emitLea(i)
	case iAdd, iSub, iAnd, iOr, iXor, iCmp, iTest:
		a.emitALU(i)
	case iNeg, iNot:
		a.emitUnaryRM(i)
	case iImulRR:
		a.emitImulRR(i)
	case iImulOneOp, iMulOneOp, iIdiv, iDiv:
		a.emitOneOpMulDiv(i)
	case iCqo:
		a.emitCqo(i)
	case iXorZeroRDX:
		a.emitXorZeroRDX(i)
	case iShl, iShr, iSar, iRol:
		a.emitShift(i)
	case iBswap:
		a.emitBswap(i)
	case iSetcc:
		a.emitSetcc(i)
	case iMovzx, iMovsx, iMovsxd:
		a.emitMovExtend(i)
	case iJmp:
		a.emitJmp(i, fixups)
	case iJcc:
		a.emitJcc(i, fixups)
	case iCallRel:
		a.emitCallRel(i)
	case iCallIndirect:
		a.emitCallIndirect(i)
	case iRet:
		a.b(0xc3)
	case iUD2:
		a.bytes(0x0f, 0x0b)
	case iInt3:
		a.b(0xcc)
	case iMovss, iMovsd, iAddss, iAddsd, iSubss, iSubsd, iMulss, iMulsd,
		iDivss, iDivsd, iSqrtss, iSqrtsd, iCvtss2sd, iCvtsd2ss:
		a.emitSSEScalar(i)
	case iXorps, iAndps:
		a.emitSSELogical(i)
	case iCvtsi2ss, iCvtsi2sd, iCvttss2si, iCvttsd2si:
		a.emitSSEConvert(i)
	case iMovdqu, iPshufd, iPshufb, iPinsrd, iPextrd, iPcmpgtb, iPblendvb,
		iPaddd, iDpps, iPand, iPor, iPxor, iCvtdq2ps, iCvttps2dq:
		a.emitVector(i)
	case iShld, iShrd:
		a.emitShiftDouble(i)
	case iMovq:
		a.emitMovq(i)
	case iLockXadd:
		a.emitLockXadd(i)
	case iLockCmpxchg:
		a.emitLockCmpxchg(i)
	default:
		panic("x64: unencoded inst kind")
	}
}

func (a *asm) emitMovImm(i *inst) {
	if i.dstLoc.isReg {
		r := i.dstLoc.reg
		if i.size == 8 {
			a.rex(true, 0, 0, boolByte(needsREXExt(r)), false)
			a.b(0xb8 + lowBits(r))
			a.u64(uint64(i.imm))
		} else {
			a.rexForSize(i.size, false, false, false, needsREXExt(r))
			a.b(0xb8 + lowBits(r))
			a.u32(uint32(i.imm))
		}
		return
	}
	// spilled: MOV [rbp+off], imm32
	a.rex(i.size == 8, 0, 0, 0, false)
	a.b(0xc7)
	a.modrmMem(0, byte(RBP), false, 0, i.dstLoc.spillOff)
	a.u32(uint32(i.imm))
}

func (a *asm) emitMovRR(i *inst) {
	if i.dstLoc.isReg && i.src1Loc.isReg {
		dst, src := i.dstLoc.reg, i.src1Loc.reg
		if isXMM(dst) || isXMM(src) {
			a.bytes(0xf3, 0x0f)
			a.rex(false, boolByte(needsREXExt(dst)), 0, boolByte(needsREXExt(src)), false)
			a.b(0x7e)
			a.modrmReg(lowBits(dst), lowBits(src))
			return
		}
		a.rexForSize(i.size, i.size == 8, needsREXExt(dst), false, needsREXExt(src))
		op := byte(0x8b)
		if i.size == 1 {
			op = 0x8a
		}
		a.b(op)
		a.modrmReg(lowBits(dst), lowBits(src))
		return
	}
	if i.dstLoc.isReg {
		a.movRegMemRBP(i.dstLoc.reg, i.src1Loc.spillOff, i.size, false)
		return
	}
	if i.src1Loc.isReg {
		a.movRegMemRBP(i.src1Loc.reg, i.dstLoc.spillOff, i.size, true)
		return
	}
	a.loadSpill(scratchGPR0, i.src1Loc, i.size)
	a.movRegMemRBP(scratchGPR0, i.dstLoc.spillOff, i.size, true)
}

// effectiveBase resolves i.memBaseLoc to a concrete register, loading
// a spilled base pointer into scratchGPR1 first.
func (a *asm) effectiveBase(i *inst) backend.RealReg {
	if i.memBaseLoc.isReg {
		return i.memBaseLoc.reg
	}
	a.loadSpill(scratchGPR1, i.memBaseLoc, 8)
	return scratchGPR1
}

func (a *asm) emitLoadMem(i *inst) {
	base := a.effectiveBase(i)
	dstReg := i.dstLoc.reg
	if !i.dstLoc.isReg {
		dstReg = scratchGPR0
	}
	if i.swap && i.size > 1 {
		// MOVBE reg, [mem] : 0F 38 F0 /r
		a.rex(i.size == 8, boolByte(needsREXExt(dstReg)), 0, boolByte(needsREXExt(base)), false)
		a.bytes(0x0f, 0x38, 0xf0)
		a.modrmMem(lowBits(dstReg), lowBits(base), false, 0, i.memDisp)
	} else {
		op := byte(0x8b)
		if i.size == 1 {
			op = 0x8a
		}
		a.rexForSize(i.size, i.size == 8, needsREXExt(dstReg), false, needsREXExt(base))
		a.b(op)
		a.modrmMem(lowBits(dstReg), lowBits(base), false, 0, i.memDisp)
	}
	if !i.dstLoc.isReg {
		a.storeSpill(i.dstLoc, scratchGPR0, i.size)
	}
}

func (a *asm) emitStoreMem(i *inst) {
	base := a.effectiveBase(i)
	srcReg := resolveGPR2(a, i.src1Loc, i.size, scratchGPR0)
	if i.swap && i.size > 1 {
		a.rex(i.size == 8, boolByte(needsREXExt(srcReg)), 0, boolByte(needsREXExt(base)), false)
		a.bytes(0x0f, 0x38, 0xf1)
		a.modrmMem(lowBits(srcReg), lowBits(base), false, 0, i.memDisp)
	} else {
		op := byte(0x89)
		if i.size == 1 {
			op = 0x88
		}
		a.rexForSize(i.size, i.size == 8, needsREXExt(srcReg), false, needsREXExt(base))
		a.b(op)
		a.modrmMem(lowBits(srcReg), lowBits(base), false, 0, i.memDisp)
	}
}

// resolveGPR2 returns a concrete RealReg for l, loading it into
// scratch first if it is a spill slot.
func resolveGPR2(a *asm, l loc, size byte, scratch backend.RealReg) backend.RealReg {
	if l.isReg {
		return l.reg
	}
	a.loadSpill(scratch, l, size)
	return scratch
}

func (a *asm) emitLea(i *inst) {
	base := a.effectiveBase(i)
	index := resolveGPR2(a, i.src2Loc, 8, scratchGPR1)
	dst := i.dstLoc.reg
	if !i.dstLoc.isReg {
		dst = scratchGPR0
	}
	a.rex(true, boolByte(needsREXExt(dst)), boolByte(needsREXExt(index)), boolByte(needsREXExt(base)), false)
	a.b(0x8d)
	a.modrmMem(lowBits(dst), lowBits(base), true, lowBits(index), i.memDisp)
	if !i.dstLoc.isReg {
		a.storeSpill(i.dstLoc, scratchGPR0, 8)
	}
}

var aluOpcode = map[iop][2]byte{ // {reg<-rm opcode, /digit for imm form}
	iAdd: {0x03, 0},
	iSub: {0x2b, 5},
	iAnd: {0x23, 4},
	iOr:  {0x0b, 1},
	iXor: {0x33, 6},
	iCmp: {0x3b, 7},
}

func (a *asm) emitALU(i *inst) {
	if i.op == iTest {
		a.emitTest(i)
		return
	}
	if i.op == iCmp && i.imm == 1 {
		// float compare: UCOMISS (size 4) / UCOMISD (66-prefixed, size 8)
		lhs, rhs := i.src1Loc.reg, i.src2Loc.reg
		if i.size == 8 {
			a.b(0x66)
		}
		a.rex(false, boolByte(needsREXExt(lhs)), 0, boolByte(needsREXExt(rhs)), false)
		a.bytes(0x0f, 0x2e)
		a.modrmReg(lowBits(lhs), lowBits(rhs))
		return
	}
	dst := resolveGPR2(a, i.dstLoc, i.size, scratchGPR0)
	src := resolveGPR2(a, i.src2Loc, i.size, scratchGPR1)
	op := aluOpcode[i.op][0]
	if i.size == 1 {
		op--
	}
	a.rexForSize(i.size, i.size == 8, needsREXExt(dst), false, needsREXExt(src))
	a.b(op)
	a.modrmReg(lowBits(dst), lowBits(src))
	if !i.dstLoc.isReg && i.op != iCmp {
		a.storeSpill(i.dstLoc, dst, i.size)
	}
}

func (a *asm) emitTest(i *inst) {
	lhs := resolveGPR2(a, i.src1Loc, i.size, scratchGPR0)
	rhs := resolveGPR2(a, i.src2Loc, i.size, scratchGPR1)
	op := byte(0x85)
	if i.size == 1 {
		op = 0x84
	}
	a.rexForSize(i.size, i.size == 8, needsREXExt(lhs), false, needsREXExt(rhs))
	a.b(op)
	a.modrmReg(lowBits(rhs), lowBits(lhs))
}

func (a *asm) emitUnaryRM(i *inst) {
	dst := resolveGPR2(a, i.dstLoc, i.size, scratchGPR0)
	digit := byte(3) // NEG
	if i.op == iNot {
		digit = 2
	}
	op := byte(0xf7)
	if i.size == 1 {
		op = 0xf6
	}
	a.rexForSize(i.size, i.size == 8, false, false, needsREXExt(dst))
	a.b(op)
	a.modrmReg(digit, lowBits(dst))
	if !i.dstLoc.isReg {
		a.storeSpill(i.dstLoc, dst, i.size)
	}
}

func (a *asm) emitImulRR(i *inst) {
	dst := resolveGPR2(a, i.dstLoc, i.size, scratchGPR0)
	src := resolveGPR2(a, i.src2Loc, i.size, scratchGPR1)
	a.rexForSize(i.size, i.size == 8, needsREXExt(dst), false, needsREXExt(src))
	a.bytes(0x0f, 0xaf)
	a.modrmReg(lowBits(dst), lowBits(src))
	if !i.dstLoc.isReg {
		a.storeSpill(i.dstLoc, dst, i.size)
	}
}

func (a *asm) emitOneOpMulDiv(i *inst) {
	src := resolveGPR2(a, i.src1Loc, i.size, scratchGPR1)
	var digit byte
	switch i.op {
	case iMulOneOp:
		digit = 4
	case iImulOneOp:
		digit = 5
	case iDiv:
		digit = 6
	case iIdiv:
		digit = 7
	}
	op := byte(0xf7)
	if i.size == 1 {
		op = 0xf6
	}
	a.rexForSize(i.size, i.size == 8, false, false, needsREXExt(src))
	a.b(op)
	a.modrmReg(digit, lowBits(src))
}

func (a *asm) emitCqo(i *inst) {
	if i.size == 8 {
		a.bytes(0x48, 0x99) // CQO
	} else {
		a.b(0x99) // CDQ
	}
}

func (a *asm) emitXorZeroRDX(i *inst) {
	a.rexForSize(i.size, i.size == 8, false, false, false)
	a.b(0x31)
	a.modrmReg(byte(RDX)&7, byte(RDX)&7)
}

func (a *asm) emitShift(i *inst) {
	dst := resolveGPR2(a, i.dstLoc, i.size, scratchGPR0)
	var digit byte
	switch i.op {
	case iShl:
		digit = 4
	case iShr:
		digit = 5
	case iSar:
		digit = 7
	case iRol:
		digit = 0
	}
	op := byte(0xd3) // shift by CL
	if i.size == 1 {
		op = 0xd2
	}
	a.rexForSize(i.size, i.size == 8, false, false, needsREXExt(dst))
	a.b(op)
	a.modrmReg(digit, lowBits(dst))
	if !i.dstLoc.isReg {
		a.storeSpill(i.dstLoc, dst, i.size)
	}
}

func (a *asm) emitBswap(i *inst) {
	dst := resolveGPR2(a, i.dstLoc, i.size, scratchGPR0)
	a.rexForSize(i.size, i.size == 8, false, false, needsREXExt(dst))
	a.b(0x0f)
	a.b(0xc8 + lowBits(dst))
	if !i.dstLoc.isReg {
		a.storeSpill(i.dstLoc, dst, i.size)
	}
}

func (a *asm) emitSetcc(i *inst) {
	dst := resolveGPR2(a, i.dstLoc, 1, scratchGPR0)
	a.rex(false, 0, 0, boolByte(needsREXExt(dst)), true)
	a.bytes(0x0f, 0x90+byte(i.cc))
	a.modrmReg(0, lowBits(dst))
	if !i.dstLoc.isReg {
		a.storeSpill(i.dstLoc, dst, 1)
	}
}

func (a *asm) emitMovExtend(i *inst) {
	dst := resolveGPR2(a, i.dstLoc, byte(i.imm), scratchGPR0)
	src := resolveGPR2(a, i.src1Loc, i.size, scratchGPR1)
	wide := i.imm == 8
	if i.op == iMovsxd {
		a.rex(true, boolByte(needsREXExt(dst)), 0, boolByte(needsREXExt(src)), false)
		a.b(0x63)
		a.modrmReg(lowBits(dst), lowBits(src))
	} else {
		op2 := byte(0xb6)
		if i.op == iMovsx {
			op2 = 0xbe
		}
		if i.size == 2 {
			op2++
		}
		a.rex(wide, boolByte(needsREXExt(dst)), 0, boolByte(needsREXExt(src)), i.size == 1)
		a.bytes(0x0f, op2)
		a.modrmReg(lowBits(dst), lowBits(src))
	}
	if !i.dstLoc.isReg {
		a.storeSpill(i.dstLoc, dst, byte(i.imm))
	}
}

func (a *asm) emitJmp(i *inst, fixups *[]fixup) {
	a.b(0xe9)
	a.emitRel32(i.label, fixups)
}

func (a *asm) emitJcc(i *inst, fixups *[]fixup) {
	a.bytes(0x0f, 0x80+byte(i.cc))
	a.emitRel32(i.label, fixups)
}

func (a *asm) emitRel32(label *targetLabel, fixups *[]fixup) {
	patchPos := a.pos()
	a.u32(0)
	if label.resolved {
		rel := label.offset - (patchPos + 4)
		putU32At(a.buf, patchPos, uint32(rel))
	} else {
		*fixups = append(*fixups, fixup{patchPos: patchPos, label: label})
	}
}

func (a *asm) emitCallRel(i *inst) {
	// The rel32 operand is a placeholder: encodeAll records this site
	// in m.CallRelocs, and the runtime's symbol resolver patches in the
	// real displacement (thunk.go's ApplyRelocations) once the callee's
	// address is known, so a not-yet-compiled callee never stalls this
	// function's own compilation.
	a.b(0xe8)
	a.u32(0)
}

func (a *asm) emitCallIndirect(i *inst) {
	target := resolveGPR2(a, i.src1Loc, 8, scratchGPR0)
	a.rex(false, 0, 0, boolByte(needsREXExt(target)), false)
	a.b(0xff)
	a.modrmReg(2, lowBits(target))
}

func (a *asm) emitSSEScalar(i *inst) {
	var prefix byte
	var op byte
	switch i.op {
	case iMovss:
		prefix, op = 0xf3, 0x10
	case iMovsd:
		prefix, op = 0xf2, 0x10
	case iAddss:
		prefix, op = 0xf3, 0x58
	case iAddsd:
		prefix, op = 0xf2, 0x58
	case iSubss:
		prefix, op = 0xf3, 0x5c
	case iSubsd:
		prefix, op = 0xf2, 0x5c
	case iMulss:
		prefix, op = 0xf3, 0x59
	case iMulsd:
		prefix, op = 0xf2, 0x59
	case iDivss:
		prefix, op = 0xf3, 0x5e
	case iDivsd:
		prefix, op = 0xf2, 0x5e
	case iSqrtss:
		prefix, op = 0xf3, 0x51
	case iSqrtsd:
		prefix, op = 0xf2, 0x51
	case iCvtss2sd:
		prefix, op = 0xf3, 0x5a
	case iCvtsd2ss:
		prefix, op = 0xf2, 0x5a
	}
	dst := i.dstLoc.reg
	src := i.src2Loc.reg
	if i.src2Loc == (loc{}) {
		src = i.src1Loc.reg
	}
	a.b(prefix)
	a.rex(false, boolByte(needsREXExt(dst)), 0, boolByte(needsREXExt(src)), false)
	a.bytes(0x0f, op)
	a.modrmReg(lowBits(dst), lowBits(src))
}

func (a *asm) emitSSELogical(i *inst) {
	op := byte(0x57) // XORPS
	if i.op == iAndps {
		op = 0x54
	}
	dst := i.dstLoc.reg
	src := i.src2Loc.reg
	a.rex(false, boolByte(needsREXExt(dst)), 0, boolByte(needsREXExt(src)), false)
	a.bytes(0x0f, op)
	a.modrmReg(lowBits(dst), lowBits(src))
}

func (a *asm) emitSSEConvert(i *inst) {
	dst := i.dstLoc
	src := i.src1Loc
	switch i.op {
	case iCvtsi2ss, iCvtsi2sd:
		prefix := byte(0xf3)
		if i.op == iCvtsi2sd {
			prefix = 0xf2
		}
		gsrc := resolveGPR2(a, src, i.size, scratchGPR0)
		a.b(prefix)
		a.rex(i.size == 8, boolByte(needsREXExt(dst.reg)), 0, boolByte(needsREXExt(gsrc)), false)
		a.bytes(0x0f, 0x2a)
		a.modrmReg(lowBits(dst.reg), lowBits(gsrc))
	case iCvttss2si, iCvttsd2si:
		prefix := byte(0xf3)
		if i.op == iCvttsd2si {
			prefix = 0xf2
		}
		a.b(prefix)
		a.rex(i.size == 8, boolByte(needsREXExt(dst.reg)), 0, boolByte(needsREXExt(src.reg)), false)
		a.bytes(0x0f, 0x2c)
		a.modrmReg(lowBits(dst.reg), lowBits(src.reg))
	}
}

// emitVector covers the 128-bit integer/packed-float SSE forms this
// backend's vector lowering uses. Every vector value lives in a
// register for this engine's lifetime (no vector spill slots are
// handed out: VMX128 state that needs to survive a call round-trips
// through store_context instead), so operands here are always
// registers.
func (a *asm) emitVector(i *inst) {
	switch i.op {
	case iMovdqu:
		a.b(0xf3)
		a.rex(false, boolByte(needsREXExt(i.dstLoc.reg)), 0, boolByte(needsREXExt(i.src1Loc.reg)), false)
		a.bytes(0x0f, 0x6f)
		a.modrmReg(lowBits(i.dstLoc.reg), lowBits(i.src1Loc.reg))
	case iPshufd:
		a.b(0x66)
		a.rex(false, boolByte(needsREXExt(i.dstLoc.reg)), 0, boolByte(needsREXExt(i.src1Loc.reg)), false)
		a.bytes(0x0f, 0x70)
		a.modrmReg(lowBits(i.dstLoc.reg), lowBits(i.src1Loc.reg))
		a.b(byte(i.lane))
	case iPshufb:
		src := i.src2Loc.reg
		if i.src2Loc == (loc{}) {
			src = i.src1Loc.reg
		}
		a.b(0x66)
		a.rex(false, boolByte(needsREXExt(i.dstLoc.reg)), 0, boolByte(needsREXExt(src)), false)
		a.bytes(0x0f, 0x38, 0x00)
		a.modrmReg(lowBits(i.dstLoc.reg), lowBits(src))
	case iPinsrd:
		if i.lane < 0 {
			// assembled-from-two-GPR-halves form (vector shift result):
			// PINSRQ dst[0], lo then PINSRQ dst[1], hi.
			a.emitPinsrq(i.dstLoc.reg, i.src1Loc.reg, 0)
			a.emitPinsrq(i.dstLoc.reg, i.src2Loc.reg, 1)
			return
		}
		a.b(0x66)
		a.rex(false, boolByte(needsREXExt(i.dstLoc.reg)), 0, boolByte(needsREXExt(i.src2Loc.reg)), false)
		a.bytes(0x0f, 0x3a, 0x22)
		a.modrmReg(lowBits(i.dstLoc.reg), lowBits(i.src2Loc.reg))
		a.b(byte(i.lane))
	case iPextrd:
		a.b(0x66)
		a.rex(i.size == 8, boolByte(needsREXExt(i.src1Loc.reg)), 0, boolByte(needsREXExt(i.dstLoc.reg)), false)
		a.bytes(0x0f, 0x3a, 0x16)
		a.modrmReg(lowBits(i.src1Loc.reg), lowBits(i.dstLoc.reg))
		a.b(byte(i.lane))
	case iPblendvb:
		a.b(0x66)
		a.rex(false, boolByte(needsREXExt(i.dstLoc.reg)), 0, boolByte(needsREXExt(i.src2Loc.reg)), false)
		a.bytes(0x0f, 0x38, 0x10)
		a.modrmReg(lowBits(i.dstLoc.reg), lowBits(i.src2Loc.reg))
	case iPaddd, iPand, iPor, iPxor:
		op2 := map[iop]byte{iPaddd: 0xfe, iPand: 0xdb, iPor: 0xeb, iPxor: 0xef}[i.op]
		a.b(0x66)
		a.rex(false, boolByte(needsREXExt(i.dstLoc.reg)), 0, boolByte(needsREXExt(i.src2Loc.reg)), false)
		a.bytes(0x0f, op2)
		a.modrmReg(lowBits(i.dstLoc.reg), lowBits(i.src2Loc.reg))
	case iDpps:
		a.rex(false, boolByte(needsREXExt(i.dstLoc.reg)), 0, boolByte(needsREXExt(i.src2Loc.reg)), false)
		a.bytes(0x0f, 0x3a, 0x40)
		a.modrmReg(lowBits(i.dstLoc.reg), lowBits(i.src2Loc.reg))
		a.b(byte(i.lane))
	case iCvtdq2ps:
		a.rex(false, boolByte(needsREXExt(i.dstLoc.reg)), 0, boolByte(needsREXExt(i.src1Loc.reg)), false)
		a.bytes(0x0f, 0x5b)
		a.modrmReg(lowBits(i.dstLoc.reg), lowBits(i.src1Loc.reg))
	case iCvttps2dq:
		a.b(0xf3)
		a.rex(false, boolByte(needsREXExt(i.dstLoc.reg)), 0, boolByte(needsREXExt(i.src1Loc.reg)), false)
		a.bytes(0x0f, 0x5b)
		a.modrmReg(lowBits(i.dstLoc.reg), lowBits(i.src1Loc.reg))
	case iPcmpgtb:
		a.b(0x66)
		a.rex(false, boolByte(needsREXExt(i.dstLoc.reg)), 0, boolByte(needsREXExt(i.src2Loc.reg)), false)
		a.bytes(0x0f, 0x64)
		a.modrmReg(lowBits(i.dstLoc.reg), lowBits(i.src2Loc.reg))
	}
}

// emitPinsrq inserts GPR src into the lane-th 64-bit lane of an xmm
// register (SSE4.1, REX.W form): 66 REX.W 0F 3A 22 /r ib.
func (a *asm) emitPinsrq(dst backend.RealReg, src backend.RealReg, lane byte) {
	a.b(0x66)
	a.rex(true, boolByte(needsREXExt(dst)), 0, boolByte(needsREXExt(src)), false)
	a.bytes(0x0f, 0x3a, 0x22)
	a.modrmReg(lowBits(dst), lowBits(src))
	a.b(lane)
}

// emitShiftDouble emits SHLD/SHRD reg, reg, CL — the double-precision
// shift used to assemble a whole-128-bit VMX vsl/vsr from two 64-bit
// GPR halves (see lower.go's lowerVectorShift).
func (a *asm) emitShiftDouble(i *inst) {
	dst := resolveGPR2(a, i.dstLoc, i.size, scratchGPR0)
	src := resolveGPR2(a, i.src1Loc, i.size, scratchGPR1)
	op2 := byte(0xa5) // SHLD r/m, r, CL
	if i.op == iShrd {
		op2 = 0xad
	}
	a.rexForSize(i.size, i.size == 8, needsREXExt(src), false, needsREXExt(dst))
	a.bytes(0x0f, op2)
	a.modrmReg(lowBits(src), lowBits(dst))
	if !i.dstLoc.isReg {
		a.storeSpill(i.dstLoc, dst, i.size)
	}
}

// emitMovq moves a 32- or 64-bit lane between a GPR and an xmm
// register: MOVD/MOVQ gpr -> xmm when dst is the xmm operand, or the
// reverse when src1 is. size selects MOVD (4) vs MOVQ (8, REX.W).
func (a *asm) emitMovq(i *inst) {
	wide := i.size == 8
	if isXMM(i.dstLoc.reg) {
		a.b(0x66)
		a.rex(wide, boolByte(needsREXExt(i.dstLoc.reg)), 0, boolByte(needsREXExt(i.src1Loc.reg)), false)
		a.bytes(0x0f, 0x6e)
		a.modrmReg(lowBits(i.dstLoc.reg), lowBits(i.src1Loc.reg))
		return
	}
	a.b(0x66)
	a.rex(wide, boolByte(needsREXExt(i.src1Loc.reg)), 0, boolByte(needsREXExt(i.dstLoc.reg)), false)
	a.bytes(0x0f, 0x7e)
	a.modrmReg(lowBits(i.src1Loc.reg), lowBits(i.dstLoc.reg))
}

func (a *asm) emitLockXadd(i *inst) {
	addr := resolveGPR2(a, i.src1Loc, 8, scratchGPR1)
	val := resolveGPR2(a, i.src2Loc, i.size, scratchGPR0)
	a.b(0xf0) // LOCK prefix
	op := byte(0xc1)
	if i.size == 1 {
		op = 0xc0
	}
	a.rexForSize(i.size, i.size == 8, needsREXExt(val), false, needsREXExt(addr))
	a.bytes(0x0f, op)
	a.modrmMem(lowBits(val), lowBits(addr), false, 0, 0)
	if i.dstLoc.isReg {
		a.emitMovRR(&inst{op: iMovRR, size: i.size, dstLoc: i.dstLoc, src1Loc: loc{reg: val, isReg: true}})
	}
}

func (a *asm) emitLockCmpxchg(i *inst) {
	addr := resolveGPR2(a, i.src1Loc, 8, scratchGPR1)
	newv := resolveGPR2(a, i.src2Loc, i.size, scratchGPR0)
	// expected value is loaded into RAX by lowering just before this
	// instruction; CMPXCHG always compares against RAX and writes the
	// memory operand's old value back into RAX, which lowering then
	// copies into the result.
	a.b(0xf0)
	op := byte(0xb1)
	if i.size == 1 {
		op = 0xb0
	}
	a.rexForSize(i.size, i.size == 8, needsREXExt(newv), false, needsREXExt(addr))
	a.bytes(0x0f, op)
	a.modrmMem(lowBits(newv), lowBits(addr), false, 0, 0)
}
