package ppc

// Exported field accessors so internal/frontend/ppc/disasm can decode
// the same bit layout the translator tables use, instead of keeping a
// second copy of the field math.

func PrimaryOpcode(raw uint32) uint32 { return primaryOpcode(raw) }
func FieldRD(raw uint32) uint32       { return fieldRD(raw) }
func FieldRA(raw uint32) uint32       { return fieldRA(raw) }
func FieldRB(raw uint32) uint32       { return fieldRB(raw) }
func FieldVRC(raw uint32) uint32      { return fieldVRC(raw) }
func FieldXO10(raw uint32) uint32     { return fieldXO10(raw) }
func FieldXO9(raw uint32) uint32      { return fieldXO9(raw) }
func FieldXO6(raw uint32) uint32      { return fieldXO6(raw) }
func FieldOE(raw uint32) bool         { return fieldOE(raw) }
func FieldRc(raw uint32) bool         { return fieldRc(raw) }
func FieldSIMM(raw uint32) int32      { return fieldSIMM(raw) }
func FieldUIMM(raw uint32) uint32     { return fieldUIMM(raw) }
func FieldSH5(raw uint32) uint32      { return fieldSH5(raw) }
func FieldBF(raw uint32) uint32       { return fieldBF(raw) }
func FieldL(raw uint32) bool          { return fieldL(raw) }
func FieldBO(raw uint32) uint32       { return fieldBO(raw) }
func FieldBI(raw uint32) uint32       { return fieldBI(raw) }
func FieldBD(raw uint32) int32        { return fieldBD(raw) }
func FieldLI(raw uint32) int32        { return fieldLI(raw) }
func FieldAA(raw uint32) bool         { return fieldAA(raw) }
func FieldLK(raw uint32) bool         { return fieldLK(raw) }
