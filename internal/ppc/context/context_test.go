package context

import "testing"

func TestOffsetsAreDistinctAndInBounds(t *testing.T) {
	size := Size()
	offs := []Offset{
		Offsets.GPR, Offsets.FPR, Offsets.VR, Offsets.PC, Offsets.NPC,
		Offsets.LR, Offsets.CTR, Offsets.XER, Offsets.CR, Offsets.FPSCR,
		Offsets.Membase,
	}
	for _, o := range offs {
		if o < 0 || uintptr(o) >= size {
			t.Fatalf("offset %d out of bounds [0,%d)", o, size)
		}
	}
	if Offsets.GPROffset(5) != Offsets.GPR+40 {
		t.Fatalf("GPROffset(5) = %d, want %d", Offsets.GPROffset(5), Offsets.GPR+40)
	}
	if Offsets.VROffset(3) != Offsets.VR+48 {
		t.Fatalf("VROffset(3) = %d, want %d", Offsets.VROffset(3), Offsets.VR+48)
	}
	if Offsets.CRLTOffset(2) == Offsets.CRGTOffset(2) {
		t.Fatalf("CR flag byte offsets for the same field must be distinct")
	}
}

func TestVRRoundTrip(t *testing.T) {
	c := Allocate()
	var b [VRWidth]byte
	for i := range b {
		b[i] = byte(i)
	}
	c.SetVRAt(10, b)
	got := c.VRAt(10)
	if got != b {
		t.Fatalf("VRAt round trip mismatch: got %v want %v", got, b)
	}
	// Unrelated registers must remain zero.
	var zero [VRWidth]byte
	if c.VRAt(9) != zero || c.VRAt(11) != zero {
		t.Fatalf("adjacent vector registers must not be touched")
	}
}

func TestResetZeroes(t *testing.T) {
	c := Allocate()
	c.GPR[3] = 42
	c.PC = 0x1000
	c.Reset()
	if c.GPR[3] != 0 || c.PC != 0 {
		t.Fatalf("Reset did not zero Context")
	}
}
