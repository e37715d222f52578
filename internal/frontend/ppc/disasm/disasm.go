// Package disasm renders raw PowerPC64/VMX128 instruction words as
// text, for the debugger and the `xenia-go disasm` CLI subcommand. It
// is a sibling to internal/frontend/ppc's translator tables rather
// than part of them: same dispatch shape, same field helpers (via
// ppc's exported accessors), no HIR involved.
package disasm

import (
	"fmt"

	"github.com/xenia-project/xenia-sub034/internal/frontend/ppc"
)

type disasmFn func(raw uint32) string

var (
	primaryTable [64]disasmFn
	ext31Table   [1024]disasmFn
	ext19Table   [1024]disasmFn
	ext4VXTable  [2048]disasmFn
	ext4VATable  [64]disasmFn
)

func registerXOForm(table *[1024]disasmFn, xo9 uint32, fn disasmFn) {
	table[xo9] = fn
	table[xo9|0x200] = fn
}

func lookup(raw uint32) disasmFn {
	op := ppc.PrimaryOpcode(raw)
	switch op {
	case 31:
		return ext31Table[ppc.FieldXO10(raw)]
	case 19:
		return ext19Table[ppc.FieldXO10(raw)]
	case 4:
		if fn := ext4VATable[ppc.FieldXO6(raw)]; fn != nil {
			return fn
		}
		return ext4VXTable[raw&0x7ff]
	default:
		return primaryTable[op]
	}
}

// Instruction renders raw as one line of PowerPC assembly text, or
// ".long 0x%08x" for any encoding this package does not recognize —
// the same "unknown bytes, not a decode failure" convention objdump-
// style disassemblers use.
func Instruction(raw uint32) string {
	if fn := lookup(raw); fn != nil {
		return fn(raw)
	}
	return fmt.Sprintf(".long 0x%08x", raw)
}

func r(n uint32) string { return fmt.Sprintf("r%d", n) }
func v(n uint32) string { return fmt.Sprintf("v%d", n) }

func oeRc(raw uint32) string {
	s := ""
	if ppc.FieldOE(raw) {
		s += "o"
	}
	if ppc.FieldRc(raw) {
		s += "."
	}
	return s
}

func init() {
	registerIntegerMnemonics()
	registerMemoryMnemonics()
	registerBranchMnemonics()
	registerVMXMnemonics()
}

func registerIntegerMnemonics() {
	primaryTable[14] = func(raw uint32) string {
		if ppc.FieldRA(raw) == 0 {
			return fmt.Sprintf("li %s, %d", r(ppc.FieldRD(raw)), ppc.FieldSIMM(raw))
		}
		return fmt.Sprintf("addi %s, %s, %d", r(ppc.FieldRD(raw)), r(ppc.FieldRA(raw)), ppc.FieldSIMM(raw))
	}
	primaryTable[15] = func(raw uint32) string {
		if ppc.FieldRA(raw) == 0 {
			return fmt.Sprintf("lis %s, %d", r(ppc.FieldRD(raw)), ppc.FieldSIMM(raw))
		}
		return fmt.Sprintf("addis %s, %s, %d", r(ppc.FieldRD(raw)), r(ppc.FieldRA(raw)), ppc.FieldSIMM(raw))
	}

	xoform := func(mnem string) disasmFn {
		return func(raw uint32) string {
			return fmt.Sprintf("%s%s %s, %s, %s", mnem, oeRc(raw), r(ppc.FieldRD(raw)), r(ppc.FieldRA(raw)), r(ppc.FieldRB(raw)))
		}
	}
	registerXOForm(&ext31Table, 266, xoform("add"))
	registerXOForm(&ext31Table, 40, xoform("subf"))
	registerXOForm(&ext31Table, 491, xoform("divw"))
	registerXOForm(&ext31Table, 459, xoform("divwu"))
	registerXOForm(&ext31Table, 489, xoform("divd"))
	registerXOForm(&ext31Table, 457, xoform("divdu"))
	registerXOForm(&ext31Table, 233, xoform("mulld"))
	registerXOForm(&ext31Table, 235, xoform("mullw"))

	xform := func(mnem string) disasmFn {
		return func(raw uint32) string {
			s := mnem
			if ppc.FieldRc(raw) {
				s += "."
			}
			return fmt.Sprintf("%s %s, %s, %s", s, r(ppc.FieldRA(raw)), r(ppc.FieldRD(raw)), r(ppc.FieldRB(raw)))
		}
	}
	ext31Table[28] = xform("and")
	ext31Table[444] = xform("or")
	ext31Table[316] = xform("xor")
	ext31Table[476] = xform("nand")
	ext31Table[124] = xform("nor")
	ext31Table[284] = xform("eqv")

	shiftReg := func(mnem string) disasmFn {
		return func(raw uint32) string {
			s := mnem
			if ppc.FieldRc(raw) {
				s += "."
			}
			return fmt.Sprintf("%s %s, %s, %s", s, r(ppc.FieldRA(raw)), r(ppc.FieldRD(raw)), r(ppc.FieldRB(raw)))
		}
	}
	shiftImm := func(mnem string) disasmFn {
		return func(raw uint32) string {
			s := mnem
			if ppc.FieldRc(raw) {
				s += "."
			}
			return fmt.Sprintf("%s %s, %s, %d", s, r(ppc.FieldRA(raw)), r(ppc.FieldRD(raw)), ppc.FieldSH5(raw))
		}
	}
	ext31Table[24] = shiftReg("slw")
	ext31Table[536] = shiftReg("srw")
	ext31Table[792] = shiftReg("sraw")
	ext31Table[824] = shiftImm("srawi")
	ext31Table[27] = shiftReg("sld")
	ext31Table[539] = shiftReg("srd")
	ext31Table[794] = shiftReg("srad")
	ext31Table[826] = shiftImm("sradi")

	crf := func(raw uint32) string {
		if f := ppc.FieldBF(raw); f != 0 {
			return fmt.Sprintf("cr%d, ", f)
		}
		return ""
	}
	widthSuffix := func(raw uint32) string {
		if ppc.FieldL(raw) {
			return "d"
		}
		return "w"
	}
	ext31Table[0] = func(raw uint32) string {
		return fmt.Sprintf("cmp%s %s%s, %s", widthSuffix(raw), crf(raw), r(ppc.FieldRA(raw)), r(ppc.FieldRB(raw)))
	}
	ext31Table[32] = func(raw uint32) string {
		return fmt.Sprintf("cmpl%s %s%s, %s", widthSuffix(raw), crf(raw), r(ppc.FieldRA(raw)), r(ppc.FieldRB(raw)))
	}
	primaryTable[11] = func(raw uint32) string {
		return fmt.Sprintf("cmpi%s %s%s, %d", widthSuffix(raw), crf(raw), r(ppc.FieldRA(raw)), ppc.FieldSIMM(raw))
	}
	primaryTable[10] = func(raw uint32) string {
		return fmt.Sprintf("cmpli%s %s%s, %d", widthSuffix(raw), crf(raw), r(ppc.FieldRA(raw)), ppc.FieldUIMM(raw))
	}
}

func registerMemoryMnemonics() {
	dform := func(mnem string) disasmFn {
		return func(raw uint32) string {
			return fmt.Sprintf("%s %s, %d(%s)", mnem, r(ppc.FieldRD(raw)), ppc.FieldSIMM(raw), r(ppc.FieldRA(raw)))
		}
	}
	dsform := func(mnem string) disasmFn {
		return func(raw uint32) string {
			disp := int32(int16(raw & 0xfffc))
			return fmt.Sprintf("%s %s, %d(%s)", mnem, r(ppc.FieldRD(raw)), disp, r(ppc.FieldRA(raw)))
		}
	}
	primaryTable[32] = dform("lwz")
	primaryTable[34] = dform("lbz")
	primaryTable[40] = dform("lhz")
	primaryTable[58] = dsform("ld")
	primaryTable[36] = dform("stw")
	primaryTable[38] = dform("stb")
	primaryTable[44] = dform("sth")
	primaryTable[62] = dsform("std")
}

func registerBranchMnemonics() {
	primaryTable[18] = func(raw uint32) string {
		mnem := "b"
		if ppc.FieldAA(raw) {
			mnem += "a"
		}
		if ppc.FieldLK(raw) {
			mnem += "l"
		}
		return fmt.Sprintf("%s 0x%x", mnem, uint32(ppc.FieldLI(raw)))
	}
	primaryTable[16] = func(raw uint32) string {
		mnem := "bc"
		if ppc.FieldAA(raw) {
			mnem += "a"
		}
		if ppc.FieldLK(raw) {
			mnem += "l"
		}
		return fmt.Sprintf("%s %d, %d, 0x%x", mnem, ppc.FieldBO(raw), ppc.FieldBI(raw), uint32(ppc.FieldBD(raw)))
	}
	ext19Table[16] = func(raw uint32) string {
		mnem := "bclr"
		if ppc.FieldLK(raw) {
			mnem += "l"
		}
		return fmt.Sprintf("%s %d, %d", mnem, ppc.FieldBO(raw), ppc.FieldBI(raw))
	}
	ext19Table[528] = func(raw uint32) string {
		mnem := "bcctr"
		if ppc.FieldLK(raw) {
			mnem += "l"
		}
		return fmt.Sprintf("%s %d, %d", mnem, ppc.FieldBO(raw), ppc.FieldBI(raw))
	}
}

func registerVMXMnemonics() {
	ext4VATable[43] = func(raw uint32) string {
		return fmt.Sprintf("vperm %s, %s, %s, %s", v(ppc.FieldRD(raw)), v(ppc.FieldRA(raw)), v(ppc.FieldRB(raw)), v(ppc.FieldVRC(raw)))
	}
	ext4VXTable[452] = func(raw uint32) string {
		return fmt.Sprintf("vsl %s, %s, %s", v(ppc.FieldRD(raw)), v(ppc.FieldRA(raw)), v(ppc.FieldRB(raw)))
	}
	ext4VXTable[708] = func(raw uint32) string {
		return fmt.Sprintf("vsr %s, %s, %s", v(ppc.FieldRD(raw)), v(ppc.FieldRA(raw)), v(ppc.FieldRB(raw)))
	}
	ext4VXTable[1552] = func(raw uint32) string {
		return fmt.Sprintf("vupkd3d %s, %s", v(ppc.FieldRD(raw)), v(ppc.FieldRB(raw)))
	}
}
