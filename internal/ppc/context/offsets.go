package context

import "unsafe"

// Offset is a byte offset into Context, as embedded literally by
// generated LOAD_CONTEXT/STORE_CONTEXT instructions.
type Offset int32

// U32 encodes an Offset as uint32, the form the HIR builder and x86-64
// lowering table pass around.
func (o Offset) U32() uint32 { return uint32(o) }

// Info is the single descriptor both the PPC front end and the x86-64
// back end import so that field-offset literals embedded in generated
// code can never drift from the actual Context layout: every offset
// below is computed with unsafe.Offsetof against the real struct, not
// hand-copied.
type Info struct {
	GPR     Offset // GPR[0]; GPR[r] is GPR + 8*r
	FPR     Offset // FPR[0]; FPR[r] is FPR + 8*r
	VR      Offset // VR[0]; VR[r] is VR + 16*r
	PC      Offset
	NPC     Offset
	LR      Offset
	CTR     Offset
	XER     Offset
	CR      Offset // CR[0]; CR[f] is CR + 4*f
	FPSCR   Offset
	Membase Offset
}

// Offsets is the process-wide Context layout descriptor.
var Offsets = Info{
	GPR:     Offset(unsafe.Offsetof(Context{}.GPR)),
	FPR:     Offset(unsafe.Offsetof(Context{}.FPR)),
	VR:      Offset(unsafe.Offsetof(Context{}.VR)),
	PC:      Offset(unsafe.Offsetof(Context{}.PC)),
	NPC:     Offset(unsafe.Offsetof(Context{}.NPC)),
	LR:      Offset(unsafe.Offsetof(Context{}.LR)),
	CTR:     Offset(unsafe.Offsetof(Context{}.CTR)),
	XER:     Offset(unsafe.Offsetof(Context{}.XER)),
	CR:      Offset(unsafe.Offsetof(Context{}.CR)),
	FPSCR:   Offset(unsafe.Offsetof(Context{}.FPSCR)),
	Membase: Offset(unsafe.Offsetof(Context{}.Membase)),
}

// GPROffset returns the byte offset of general-purpose register r.
func (i Info) GPROffset(r int) Offset { return i.GPR + Offset(r*8) }

// FPROffset returns the byte offset of floating-point register r.
func (i Info) FPROffset(r int) Offset { return i.FPR + Offset(r*8) }

// VROffset returns the byte offset of vector register r.
func (i Info) VROffset(r int) Offset { return i.VR + Offset(r*VRWidth) }

// CROffset returns the byte offset of condition-register field f (0..7).
func (i Info) CROffset(f int) Offset { return i.CR + Offset(f*4) }

// CRLTOffset/CRGTOffset/CREQOffset/CRSOOffset return the byte offset
// of the individual flag byte within condition-register field f,
// matching CRField's {LT, GT, EQ, SO} layout.
func (i Info) CRLTOffset(f int) Offset { return i.CROffset(f) + 0 }
func (i Info) CRGTOffset(f int) Offset { return i.CROffset(f) + 1 }
func (i Info) CREQOffset(f int) Offset { return i.CROffset(f) + 2 }
func (i Info) CRSOOffset(f int) Offset { return i.CROffset(f) + 3 }

// XERCarryOffset/XEROverflowOffset/XERSummaryOffset return the byte
// offset of the individual XER flag bytes.
func (i Info) XERCarryOffset() Offset    { return i.XER + 0 }
func (i Info) XEROverflowOffset() Offset { return i.XER + 1 }
func (i Info) XERSummaryOffset() Offset  { return i.XER + 2 }
