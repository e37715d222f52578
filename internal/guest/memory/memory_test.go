package memory

import "testing"

const testSize = 16 * 1024 * 1024

func newTestMemory(t *testing.T) *Memory {
	t.Helper()
	m, err := New(testSize)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	if err := m.Commit(0, testSize); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return m
}

func TestRoundTripScalars(t *testing.T) {
	m := newTestMemory(t)

	m.StoreSwap8(0x100, 0x7f)
	if got := m.LoadSwap8(0x100); got != 0x7f {
		t.Fatalf("u8 round trip: got %#x", got)
	}

	m.StoreSwap16(0x200, 0xbeef)
	if got := m.LoadSwap16(0x200); got != 0xbeef {
		t.Fatalf("u16 round trip: got %#x", got)
	}

	m.StoreSwap32(0x300, 0xdeadbeef)
	if got := m.LoadSwap32(0x300); got != 0xdeadbeef {
		t.Fatalf("u32 round trip: got %#x", got)
	}

	m.StoreSwap64(0x400, 0x0123456789abcdef)
	if got := m.LoadSwap64(0x400); got != 0x0123456789abcdef {
		t.Fatalf("u64 round trip: got %#x", got)
	}
}

func TestBigEndianOnWire(t *testing.T) {
	m := newTestMemory(t)
	m.StoreSwap32(0x10, 0x01020304)
	// Big-endian on the wire: byte 0 is the MSB.
	if m.Load8(0x10) != 0x01 || m.Load8(0x13) != 0x04 {
		t.Fatalf("expected big-endian byte order in guest memory")
	}
}

func TestVec128RoundTrip(t *testing.T) {
	m := newTestMemory(t)
	v := Vec128{Hi: 0x0001020304050607, Lo: 0x08090a0b0c0d0e0f}
	m.StoreSwapVec128(0x1000, v)
	got := m.LoadSwapVec128(0x1000)
	if got != v {
		t.Fatalf("vec128 round trip mismatch: got %+v want %+v", got, v)
	}
	for i := 0; i < 16; i++ {
		if got := m.Load8(0x1000 + uint32(i)); got != uint8(i) {
			t.Fatalf("byte lane %d: got %#x want %#x", i, got, i)
		}
	}
}

func TestOutOfRange(t *testing.T) {
	m := newTestMemory(t)
	if err := m.Commit(testSize-4096, 4096*2); err == nil {
		t.Fatalf("expected out-of-range error")
	}
}

func TestCommitTracking(t *testing.T) {
	m, err := New(testSize)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })

	if m.IsCommitted(0x1000) {
		t.Fatalf("fresh memory should start uncommitted")
	}
	if err := m.Commit(0x1000, pageSize); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if !m.IsCommitted(0x1000) {
		t.Fatalf("expected page to be committed")
	}
	if err := m.Decommit(0x1000, pageSize); err != nil {
		t.Fatalf("Decommit: %v", err)
	}
	if m.IsCommitted(0x1000) {
		t.Fatalf("expected page to be decommitted")
	}
}

func TestHeapAlloc(t *testing.T) {
	m, err := New(testSize)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })

	a, err := m.HeapAlloc(0, 100)
	if err != nil {
		t.Fatalf("HeapAlloc: %v", err)
	}
	b, err := m.HeapAlloc(0, 100)
	if err != nil {
		t.Fatalf("HeapAlloc: %v", err)
	}
	if a == b {
		t.Fatalf("expected distinct allocations, got %#x twice", a)
	}
	if !m.IsCommitted(a) || !m.IsCommitted(b) {
		t.Fatalf("expected allocated pages to be committed")
	}
}
