package disasm

import "testing"

func TestInstructionKnownEncodings(t *testing.T) {
	cases := []struct {
		raw  uint32
		want string
	}{
		{encD(14, 3, 0, 42), "li r3, 42"},
		{encD(14, 3, 1, 42), "addi r3, r1, 42"},
		{encXO(31, 5, 3, 4, 266, false, false), "add r5, r3, r4"},
		{encX(31, 4, 3, 5, 28, false), "and r3, r4, r5"},
		{encI(18, 0x100, false, false), "b 0x100"},
	}
	for _, c := range cases {
		if got := Instruction(c.raw); got != c.want {
			t.Errorf("Instruction(0x%08x) = %q, want %q", c.raw, got, c.want)
		}
	}
}

func TestInstructionUnknownEncoding(t *testing.T) {
	raw := uint32(0x3f << 26) // primary opcode 63, unregistered
	got := Instruction(raw)
	want := ".long 0xfc000000" // unrecognized encodings fall back to .long
	if got != want {
		t.Fatalf("Instruction(0x%08x) = %q, want %q", raw, got, want)
	}
}

func encD(op, rd, ra uint32, simm int32) uint32 {
	return (op << 26) | (rd << 21) | (ra << 16) | (uint32(uint16(simm)))
}

func encXO(op, rd, ra, rb, xo9 uint32, oe, rc bool) uint32 {
	v := (op << 26) | (rd << 21) | (ra << 16) | (rb << 11) | (xo9 << 1)
	if oe {
		v |= 1 << 10
	}
	if rc {
		v |= 1
	}
	return v
}

func encX(op, rd, ra, rb, xo10 uint32, rc bool) uint32 {
	v := (op << 26) | (rd << 21) | (ra << 16) | (rb << 11) | (xo10 << 1)
	if rc {
		v |= 1
	}
	return v
}

func encI(op uint32, li int32, aa, lk bool) uint32 {
	v := (op << 26) | (uint32(li) & 0x03fffffc)
	if aa {
		v |= 2
	}
	if lk {
		v |= 1
	}
	return v
}
