package backend

import "github.com/xenia-project/xenia-sub034/internal/hir"

// RegType classifies a VReg by the physical register file it must be
// assigned from, since a Machine's int/float/vector register files
// are disjoint and allocated independently.
type RegType byte

const (
	RegTypeInvalid RegType = iota
	RegTypeInt
	RegTypeFloat
	RegTypeVector
)

// RegTypeOf derives the register class an HIR value of typ needs.
func RegTypeOf(typ hir.Type) RegType {
	switch {
	case typ == hir.TypeVec128:
		return RegTypeVector
	case typ.IsFloat():
		return RegTypeFloat
	default:
		return RegTypeInt
	}
}
