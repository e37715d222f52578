// Package ppc translates PowerPC64/VMX128 (Xenon) guest code into the
// machine-independent HIR.
package ppc

// Field extraction follows the standard PowerPC instruction encoding:
// a 6-bit primary opcode in the top bits, then one or more operand
// fields, down to a 1-bit Rc/LK flag in the low bit. Helper names below
// match the field names the PowerPC ISA manual uses.

func primaryOpcode(raw uint32) uint32 { return raw >> 26 }

// rd/rs/vrt all occupy the same 5-bit field.
func fieldRD(raw uint32) uint32 { return (raw >> 21) & 0x1f }
func fieldRA(raw uint32) uint32 { return (raw >> 16) & 0x1f }
func fieldRB(raw uint32) uint32 { return (raw >> 11) & 0x1f }

// fieldVRC is the VA-form's third vector source register.
func fieldVRC(raw uint32) uint32 { return (raw >> 6) & 0x1f }

// fieldXO10 is the 10-bit extended opcode of X-form instructions
// (bits 10 down to 1; bit 0 is Rc).
func fieldXO10(raw uint32) uint32 { return (raw >> 1) & 0x3ff }

// fieldXO9 is the 9-bit extended opcode of XO-form instructions (add,
// subf, mulld, ...), which reserve bit 10 for OE.
func fieldXO9(raw uint32) uint32 { return (raw >> 1) & 0x1ff }

// fieldXO6 is the VA-form's 6-bit trailing extended opcode (vperm,
// vsel, vmaddfp, ...).
func fieldXO6(raw uint32) uint32 { return raw & 0x3f }

func fieldOE(raw uint32) bool { return (raw>>10)&1 != 0 }
func fieldRc(raw uint32) bool { return raw&1 != 0 }

func fieldSIMM(raw uint32) int32  { return int32(int16(raw & 0xffff)) }
func fieldUIMM(raw uint32) uint32 { return raw & 0xffff }

// fieldSH5 is the 5-bit shift amount shared by the 32-bit shift-by-
// immediate forms (srawi, slwi via rlwinm, ...); it sits in the same
// bit position as rB.
func fieldSH5(raw uint32) uint32 { return fieldRB(raw) }

func fieldBF(raw uint32) uint32 { return (raw >> 23) & 0x7 }
func fieldL(raw uint32) bool    { return (raw>>21)&1 != 0 }

func fieldBO(raw uint32) uint32 { return fieldRD(raw) }
func fieldBI(raw uint32) uint32 { return fieldRA(raw) }

// fieldBD is the 14-bit word-aligned branch displacement of B-form
// instructions, sign-extended.
func fieldBD(raw uint32) int32 { return int32(int16(raw & 0xfffc)) }

// fieldLI is the 24-bit word-aligned branch displacement of I-form
// instructions (unconditional b/ba/bl/bla), sign-extended.
func fieldLI(raw uint32) int32 {
	v := raw & 0x03fffffc
	if v&0x02000000 != 0 {
		v |= 0xfc000000
	}
	return int32(v)
}

func fieldAA(raw uint32) bool { return (raw>>1)&1 != 0 }
func fieldLK(raw uint32) bool { return raw&1 != 0 }

// BO condition bits spec.md's branch family relies on.
const (
	boAlways        = 0x14 // 10100: branch always
	boCtrNonzero    = 0x10 // decrement CTR, branch if CTR != 0
	boCtrZero       = 0x12 // decrement CTR, branch if CTR == 0
	boConditionTrue = 0x0c // branch if CR bit set
)

func boIsAlways(bo uint32) bool         { return bo&0x14 == 0x14 }
func boIsCtrDecrement(bo uint32) bool   { return bo&0x04 == 0 }
func boCtrBranchesOnZero(bo uint32) bool { return bo&0x02 != 0 }
func boTestsCondition(bo uint32) bool   { return bo&0x10 == 0 }
func boExpectedBit(bo uint32) bool      { return bo&0x08 != 0 }
