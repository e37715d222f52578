package ppc

// translateFn decodes and translates one instruction. Branch-family
// translators call into the decoder's blockFor to resolve targets and
// set d.terminated once they've emitted the block's terminator.
type translateFn func(d *decoder, raw uint32, addr uint32) error

var (
	primaryTable [64]translateFn
	ext31Table   [1024]translateFn // primary opcode 31, X/XO-form
	ext19Table   [1024]translateFn // primary opcode 19, XL-form
	ext4VXTable  [2048]translateFn // primary opcode 4, VX-form (11-bit XO)
	ext4VATable  [64]translateFn   // primary opcode 4, VA-form (6-bit XO)
)

// registerXOForm registers fn at both OE=0 and OE=1 variants of a
// 9-bit extended opcode, since the front end's translators read the OE
// bit themselves rather than needing two dispatch slots.
func registerXOForm(table *[1024]translateFn, xo9 uint32, fn translateFn) {
	table[xo9] = fn
	table[xo9|0x200] = fn
}

func lookup(raw uint32) translateFn {
	op := primaryOpcode(raw)
	switch op {
	case 31:
		return ext31Table[fieldXO10(raw)]
	case 19:
		return ext19Table[fieldXO10(raw)]
	case 4:
		if fn := ext4VATable[fieldXO6(raw)]; fn != nil {
			return fn
		}
		return ext4VXTable[raw&0x7ff]
	default:
		return primaryTable[op]
	}
}

func init() {
	registerIntegerOpcodes()
	registerMemoryOpcodes()
	registerBranchOpcodes()
	registerVMXOpcodes()
}
