// Package x64 is the x86-64 Machine implementation: instruction
// selection from HIR into an x86 pseudo-instruction list, a
// whole-function linear-scan register allocator, a byte-emitting
// encoder, and the code cache / call-thunk / fault-handling machinery
// around it.
package x64

import "github.com/xenia-project/xenia-sub034/internal/backend"

// RealReg values for the 16 general-purpose registers, numbered to
// match their 4-bit encoding in ModRM/SIB/REX (so RealReg&7 is always
// the low 3 register bits and RealReg&8 is the REX.B/R/X extension
// bit) and, separately, the 16 XMM registers offset by gprCount so a
// single RealReg space covers both files.
const (
	RAX backend.RealReg = iota
	RCX
	RDX
	RBX
	RSP
	RBP
	RSI
	RDI
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15

	gprCount

	XMM0 = gprCount
)

var xmm = [16]backend.RealReg{}

func init() {
	for i := range xmm {
		xmm[i] = gprCount + backend.RealReg(i)
	}
}

// XMM returns the RealReg for xmm register n.
func XMM(n int) backend.RealReg { return xmm[n] }

func isXMM(r backend.RealReg) bool { return r >= gprCount }

// lowBits is the register's 3-bit ModRM/SIB field; the 4th bit is the
// REX extension bit carried separately by needsREXR/B/X.
func lowBits(r backend.RealReg) byte {
	if isXMM(r) {
		return byte(r-gprCount) & 7
	}
	return byte(r) & 7
}

func needsREXExt(r backend.RealReg) bool {
	if isXMM(r) {
		return (r-gprCount)&8 != 0
	}
	return r&8 != 0
}

// allocatableGPR is the pool the linear-scan allocator draws from for
// integer/guest-GPR-backed values, in preference order: the
// callee-saved registers first (RBX, R12-R15, matching spec's
// reservation so a value can survive a guest call without a reload),
// then the caller-saved scratch registers. RSP/RBP are never
// allocatable (stack pointer and frame base); RDI is excluded because
// the SysV ABI delivers the context-pointer argument there and the
// prologue immediately spills it before any allocation begins, so
// reusing it is safe but deliberately left out to keep the param slot
// unambiguous across the whole function body.
var allocatableGPR = []backend.RealReg{RBX, R12, R13, R14, R15, RDX, RSI, R8, R9, R10, R11}

// allocatableXMM is the vector allocation pool; XMM0-XMM5 stay free
// for scratch use during vector lowering (intermediate shuffles,
// conversions) so the allocator never has to fight the lowering code
// for a temporary.
var allocatableXMM = []backend.RealReg{XMM(6), XMM(7), XMM(8), XMM(9), XMM(10), XMM(11), XMM(12), XMM(13), XMM(14), XMM(15)}

// scratchGPR0/1 are always-available temporaries for instruction
// selection's own intermediate work (address computation, immediate
// materialization), never handed out by the allocator.
const (
	scratchGPR0 = RAX
	scratchGPR1 = RCX
)

const scratchXMM0 = XMM0
