package ppc

import (
	"testing"

	"github.com/xenia-project/xenia-sub034/internal/guest/memory"
	"github.com/xenia-project/xenia-sub034/internal/hir"
	"github.com/xenia-project/xenia-sub034/internal/hir/pass"
	"github.com/xenia-project/xenia-sub034/internal/ppc/context"
)

func newTestMemory(t *testing.T) *memory.Memory {
	t.Helper()
	m, err := memory.New(1 << 20)
	if err != nil {
		t.Fatalf("memory.New: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func write(t *testing.T, m *memory.Memory, addr uint32, words ...uint32) {
	t.Helper()
	for i, w := range words {
		m.StoreSwap32(addr+uint32(i*4), w)
	}
}

func encD(op, rd, ra uint32, simm int32) uint32 {
	return (op << 26) | (rd << 21) | (ra << 16) | (uint32(uint16(simm)))
}

func encX(op, rd, ra, rb, xo10 uint32, rc bool) uint32 {
	v := (op << 26) | (rd << 21) | (ra << 16) | (rb << 11) | (xo10 << 1)
	if rc {
		v |= 1
	}
	return v
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

func encXL(op, bo, bi, xo10 uint32, lk bool) uint32 {
	v := (op << 26) | (bo << 21) | (bi << 16) | (xo10 << 1)
	if lk {
		v |= 1
	}
	return v
}

func encB(op uint32, bd int32, bo, bi uint32, aa, lk bool) uint32 {
	v := (op << 26) | (bo << 21) | (bi << 16) | (uint32(bd) & 0xfffc)
	if aa {
		v |= 2
	}
	if lk {
		v |= 1
	}
	return v
}

// findStoreConstant looks for a StoreContext instruction that writes
// exactly the given constant to off, after optimization has collapsed
// the redundant load/store chain down to one fold.
func findStoreConstant(t *testing.T, f *hir.Function, off int32, want uint64) {
	t.Helper()
	for _, blk := range f.Blocks() {
		for i := blk.Head(); i != nil; i = i.Next() {
			if i.Opcode() != hir.OpStoreContext {
				continue
			}
			if i.Operand(0).Imm != int64(off) {
				continue
			}
			v := i.Operand(1).Value
			if v != nil && v.IsConstant() && v.ConstantBits() == want {
				return
			}
		}
	}
	t.Fatalf("no store_context +%d of constant 0x%x found in:\n%s", off, want, hir.Dump(f))
}

func TestTranslateAddiAndReturn(t *testing.T) {
	m := newTestMemory(t)
	write(t, m, 0x1000,
		encD(14, 3, 0, 42),            // addi r3, r0, 42
		encXL(19, 0x14, 0, 16, false), // blr
	)

	fe := New(m)
	f, err := fe.TranslateFunction("test", 0x1000)
	if err != nil {
		t.Fatalf("TranslateFunction: %v", err)
	}
	pass.Run(f)

	findStoreConstant(t, f, int32(context.Offsets.GPROffset(3)), 42)
}

// TestDivMinByNegOneQuirk exercises property S1: INT_MIN / -1 must not
// trap and must leave the dividend's bit pattern unchanged.
func TestDivMinByNegOneQuirk(t *testing.T) {
	m := newTestMemory(t)
	write(t, m, 0x2000,
		encD(15, 3, 0, -32768),                // addis r3, r0, -32768 -> r3 low 32 bits = 0x80000000
		encD(14, 4, 0, -1),                    // addi r4, r0, -1      -> r4 = 0xffffffffffffffff
		encXO(31, 5, 3, 4, 491, false, false), // divw r5, r3, r4
		encXL(19, 0x14, 0, 16, false),          // blr
	)

	fe := New(m)
	f, err := fe.TranslateFunction("test", 0x2000)
	if err != nil {
		t.Fatalf("TranslateFunction: %v", err)
	}
	pass.Run(f)

	findStoreConstant(t, f, int32(context.Offsets.GPROffset(5)), 0xffffffff80000000)
}

// TestTranslateSrawShift exercises property S2: an arithmetic right
// shift of a negative 32-bit value must sign-extend, not zero-fill,
// the vacated high bits.
func TestTranslateSrawShift(t *testing.T) {
	m := newTestMemory(t)
	write(t, m, 0x3000,
		encD(15, 3, 0, -1),            // addis r3, r0, -1 -> r3 low32 = 0xffff0000 (negative)
		encD(14, 4, 0, 4),             // addi r4, r0, 4   -> shift amount
		encX(31, 3, 3, 4, 792, false), // sraw r3, r3, r4 (RS=r3 src at RD field, RA=r3 dest, RB=r4 shift count)
		encXL(19, 0x14, 0, 16, false), // blr
	)

	fe := New(m)
	f, err := fe.TranslateFunction("test", 0x3000)
	if err != nil {
		t.Fatalf("TranslateFunction: %v", err)
	}
	pass.Run(f)

	// 0xffff0000 as int32 is negative; >>4 arithmetic = 0xfffff000,
	// sign-extended into the 64-bit GPR.
	findStoreConstant(t, f, int32(context.Offsets.GPROffset(3)), 0xfffffffffffff000)
}

// TestBranchDiscoversBothBlocks exercises the worklist-driven function
// boundary discovery itself: a conditional branch forks into a taken
// and a fallthrough block, both of which must terminate in a return.
func TestBranchDiscoversBothBlocks(t *testing.T) {
	m := newTestMemory(t)
	write(t, m, 0x5000,
		encB(16, 12, 0x04, 0, false, false), // bc 4,0,+12 (branch if CR0[LT]==0; target skips the fallthrough block)
		encD(14, 3, 0, 1),                  // addi r3, r0, 1 (fallthrough path)
		encXL(19, 0x14, 0, 16, false),       // blr (fallthrough's return)
		encD(14, 3, 0, 2),                   // addi r3, r0, 2 (taken path, at +12)
		encXL(19, 0x14, 0, 16, false),       // blr (taken path's return)
	)

	fe := New(m)
	f, err := fe.TranslateFunction("test", 0x5000)
	if err != nil {
		t.Fatalf("TranslateFunction: %v", err)
	}

	blocks := f.Blocks()
	if len(blocks) < 3 {
		t.Fatalf("expected at least 3 blocks (entry + taken + fallthrough), got %d:\n%s", len(blocks), hir.Dump(f))
	}
	returns := 0
	for _, blk := range blocks {
		if blk.Terminator() != nil && blk.Terminator().Opcode() == hir.OpReturn {
			returns++
		}
	}
	if returns != 2 {
		t.Fatalf("expected 2 return terminators (one per forked path), got %d:\n%s", returns, hir.Dump(f))
	}
}
