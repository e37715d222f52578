// Package context defines the PowerPC64 (Xenon) guest architectural
// state: the fixed-layout Context struct generated code addresses by
// literal byte offset, and the Offsets descriptor that both the front
// end and the x86-64 back end import so those literals can never
// drift apart, per the "single ContextInfo descriptor" requirement.
package context

import (
	"unsafe"
)

// CRField holds one of PPC's eight 4-bit condition-register fields,
// split into four independently addressable byte flags (LT, GT, EQ,
// SO) so that a compare instruction which sets many of them but whose
// caller only reads one bit lets dead-code elimination drop the rest.
type CRField struct {
	LT, GT, EQ, SO uint8
}

// XER holds the fixed-point exception register, split so the carry
// bit — read far more often than overflow/summary — can be isolated
// by the optimizer.
type XER struct {
	Carry   uint8
	Overflow uint8
	Summary  uint8
	_        uint8 // padding to keep XER's size a multiple of 4
}

// Context is the per-thread PowerPC architectural state. Field order
// and types here are the single source of truth for generated code's
// load_context/store_context offsets: see Offsets below, computed via
// unsafe.Offsetof against these exact fields, so the two can never
// disagree.
type Context struct {
	GPR [32]uint64
	FPR [32]float64
	VR  [128 * VRWidth]byte // 128 VMX128 vector registers, 16 bytes each; see VRAt/SetVRAt

	PC  uint32
	NPC uint32
	LR  uint64
	CTR uint64

	XER XER
	CR  [8]CRField

	FPSCR uint64

	// Membase is the host pointer generated code uses to compute
	// host = Membase + guest32; reserved in a fixed host GPR by the
	// backend's register assignment.
	Membase uintptr

	// Runtime and ThreadState are non-owning back pointers: Context is
	// owned by its ThreadState, which is in turn tracked by the
	// Runtime, so these never participate in a Context's own lifetime.
	Runtime    unsafe.Pointer // *runtime.Runtime, opaque to avoid an import cycle
	ThreadState unsafe.Pointer // *xthread.ThreadState, opaque for the same reason
}

// VRWidth is the byte width of one vector register.
const VRWidth = 16

// VRAt returns the 16 bytes of vector register i (0..127).
func (c *Context) VRAt(i int) [VRWidth]byte {
	var b [VRWidth]byte
	copy(b[:], c.VR[i*VRWidth:(i+1)*VRWidth])
	return b
}

// SetVRAt stores 16 bytes into vector register i.
func (c *Context) SetVRAt(i int, b [VRWidth]byte) {
	copy(c.VR[i*VRWidth:(i+1)*VRWidth], b[:])
}
