package x64

import "github.com/xenia-project/xenia-sub034/internal/backend"

// iop is the pseudo-instruction's operation. Most map to a single x86
// opcode family; a few (iPinsrd's two-half form, spilled operands)
// expand to a short fixed sequence during encode.
type iop byte

const (
	iInvalid iop = iota

	iMovRR   // dst <- src1, register to register (or register<->spill via the resolved loc)
	iMovImm  // dst <- imm
	iLoadMem // dst <- [memBase + memDisp], width = size, swap = byte-swap guest load
	iStoreMem // [memBase + memDisp] <- src1, width = size, swap = byte-swap guest store
	iLea     // dst <- memBase + src2 + memDisp

	iAdd
	iSub
	iAnd
	iOr
	iXor
	iCmp
	iTest
	iNeg
	iNot
	iImulRR
	iImulOneOp // F7 /5, RDX:RAX <- RAX * src1
	iMulOneOp  // F7 /4, RDX:RAX <- RAX * src1 (unsigned)
	iIdiv      // F7 /7, RAX,RDX <- RDX:RAX / src1 (signed)
	iDiv       // F7 /6 (unsigned)
	iCqo       // sign-extend RAX into RDX:RAX (width-dependent cqo/cdq)
	iXorZeroRDX // zero RDX ahead of an unsigned divide

	iShl
	iShr
	iSar
	iRol
	iBswap

	iSetcc
	iMovzx
	iMovsx
	iMovsxd

	iJmp
	iJcc
	iCallRel
	iCallIndirect
	iRet
	iUD2
	iInt3

	// SSE scalar float
	iMovss
	iMovsd
	iAddss
	iAddsd
	iSubss
	iSubsd
	iMulss
	iMulsd
	iDivss
	iDivsd
	iSqrtss
	iSqrtsd
	iXorps // used for FNEG/FABS via sign/abs mask, and zeroing a vector reg
	iAndps
	iCvtsi2ss
	iCvtsi2sd
	iCvttss2si
	iCvttsd2si
	iCvtss2sd
	iCvtsd2ss

	// vector (128-bit)
	iMovdqu
	iPshufd
	iPshufb
	iPinsrd
	iPextrd
	iPcmpgtb
	iPblendvb
	iPaddd
	iDpps
	iPand
	iPor
	iPxor
	iShld // double-precision shift left, for whole-128-bit shifts assembled from two 64-bit halves
	iShrd
	iMovq    // gpr<->xmm 32- or 64-bit lane move (MOVD/MOVQ by size)
	iCvtdq2ps
	iCvttps2dq

	iLockXadd
	iLockCmpxchg

	iNop
	iComment
)

// condCode is an x86 SETcc/Jcc condition, numbered to match the low 4
// bits of the 0F 8x/0F 9x opcode.
type condCode byte

const (
	ccO condCode = iota
	ccNO
	ccB
	ccAE
	ccE
	ccNE
	ccBE
	ccA
	ccS
	ccNS
	ccP
	ccNP
	ccL
	ccGE
	ccLE
	ccG
)

// inst is one pseudo-instruction: operands are VRegs until regalloc
// resolves them into locs. A handful of fixed-register operations
// (shift count, mul/div) reference RCX/RAX/RDX directly via
// dstFixed/src1Fixed/src2Fixed rather than going through the allocator, since the
// ISA pins those operands regardless of what the allocator would
// otherwise choose; lowering inserts the mov in/out of the fixed
// register explicitly.
type inst struct {
	op   iop
	size byte // operand width in bytes: 1,2,4,8, or 16 for vector ops
	cc   condCode

	dst, src1, src2 backend.VReg

	imm int64

	memBase    backend.VReg
	memBaseLoc loc
	memDisp    int32
	swap       bool // byte-swap guest memory access (big-endian guest, little-endian host)

	sym   string        // iCallRel target symbol
	label *targetLabel  // iJmp/iJcc target

	lane int32 // iPshufd/iPinsrd/iPextrd/iDpps immediate lane/mask operand

	dstLoc, src1Loc, src2Loc loc

	// srcTagged/guestPC/ordinal are set only on a seq's head
	// instruction, recording the HIR instruction it was lowered from
	// for encode.go to stamp into the function's SourceMap.
	srcTagged bool
	guestPC   uint32
	ordinal   int

	// dstFixed/src1Fixed/src2Fixed mark an operand whose loc was set
	// directly by lowering (a calling-convention or ISA-pinned
	// register, e.g. RDI at the prologue, RCX for a variable shift
	// count) rather than left for the allocator to assign.
	dstFixed, src1Fixed, src2Fixed bool

	prev, next *inst
}

// targetLabel resolves to a byte offset once every block has been
// placed in the function's code buffer.
type targetLabel struct {
	blockID int
	offset  int32
	resolved bool
}

// loc is where regalloc placed a VReg: either a RealReg or a
// RBP-relative spill slot.
type loc struct {
	reg     backend.RealReg
	isReg   bool
	spillOff int32 // negative offset from RBP
}
