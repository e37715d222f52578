// Package backend is the machine-independent half of the JIT: virtual
// register bookkeeping, SSA-value-to-vreg assignment, and the
// reverse-postorder block lowering driver. An ISA-specific Machine
// (internal/backend/x64 is the only one this engine ships) performs
// the actual instruction selection and register allocation on top of
// it; this package has no notion of any particular target.
package backend

import "math"

// VReg identifies a virtual register assigned to one HIR value. The
// low 32 bits are a dense, compiler-assigned identifier; the high 32
// bits hold a RealReg once the Machine's register allocator has
// assigned one, so a VReg is its own union of "unassigned identifier"
// and "assigned physical register" states.
type VReg uint64

// VRegID is the identifier half of a VReg, with any RealReg stripped.
type VRegID uint32

// RealReg is a physical register index, interpreted by the Machine
// that assigned it.
type RealReg uint16

const (
	vRegIDInvalid VRegID = math.MaxUint32
	// VRegInvalid is the all-ones ID of VReg's identifier space; no
	// valid VReg is ever allocated with this ID.
	VRegInvalid VReg = VReg(vRegIDInvalid)
)

// RealReg returns v's assigned physical register, if any.
func (v VReg) RealReg() RealReg { return RealReg(v >> 32) }

// SetRealReg returns v with its RealReg field set to r.
func (v VReg) SetRealReg(r RealReg) VReg { return VReg(r)<<32 | v&0xffffffff }

// ID returns v's identifier, independent of any assigned RealReg.
func (v VReg) ID() VRegID { return VRegID(v & 0xffffffff) }

// Valid reports whether v is a real, allocated virtual register.
func (v VReg) Valid() bool { return v.ID() != vRegIDInvalid }
