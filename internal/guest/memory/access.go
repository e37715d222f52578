package memory

import (
	"encoding/binary"
	"math"
)

// Vec128 is a 128-bit vector register value, stored as two big-endian
// halves so vperm/vsr/vsl-style byte addressing is straightforward.
type Vec128 struct {
	Lo, Hi uint64
}

// --- host-endian (non-swapping) access, used for scratch/host-only data ---

func (m *Memory) Load8(addr uint32) uint8   { return m.host[addr] }
func (m *Memory) Store8(addr uint32, v uint8) { m.host[addr] = v }

func (m *Memory) Load16(addr uint32) uint16 {
	return binary.LittleEndian.Uint16(m.host[addr:])
}
func (m *Memory) Store16(addr uint32, v uint16) {
	binary.LittleEndian.PutUint16(m.host[addr:], v)
}

func (m *Memory) Load32(addr uint32) uint32 {
	return binary.LittleEndian.Uint32(m.host[addr:])
}
func (m *Memory) Store32(addr uint32, v uint32) {
	binary.LittleEndian.PutUint32(m.host[addr:], v)
}

func (m *Memory) Load64(addr uint32) uint64 {
	return binary.LittleEndian.Uint64(m.host[addr:])
}
func (m *Memory) Store64(addr uint32, v uint64) {
	binary.LittleEndian.PutUint64(m.host[addr:], v)
}

// --- guest-endian (byte-swapping) access: every guest-visible access
// goes through these, matching spec: guest memory is big-endian. ---

func (m *Memory) LoadSwap8(addr uint32) uint8 { return m.host[addr] }
func (m *Memory) StoreSwap8(addr uint32, v uint8) { m.host[addr] = v }

func (m *Memory) LoadSwap16(addr uint32) uint16 {
	return binary.BigEndian.Uint16(m.host[addr:])
}
func (m *Memory) StoreSwap16(addr uint32, v uint16) {
	binary.BigEndian.PutUint16(m.host[addr:], v)
}

func (m *Memory) LoadSwap32(addr uint32) uint32 {
	return binary.BigEndian.Uint32(m.host[addr:])
}
func (m *Memory) StoreSwap32(addr uint32, v uint32) {
	binary.BigEndian.PutUint32(m.host[addr:], v)
}

func (m *Memory) LoadSwap64(addr uint32) uint64 {
	return binary.BigEndian.Uint64(m.host[addr:])
}
func (m *Memory) StoreSwap64(addr uint32, v uint64) {
	binary.BigEndian.PutUint64(m.host[addr:], v)
}

func (m *Memory) LoadSwapF32(addr uint32) float32 {
	return math.Float32frombits(m.LoadSwap32(addr))
}
func (m *Memory) StoreSwapF32(addr uint32, v float32) {
	m.StoreSwap32(addr, math.Float32bits(v))
}

func (m *Memory) LoadSwapF64(addr uint32) float64 {
	return math.Float64frombits(m.LoadSwap64(addr))
}
func (m *Memory) StoreSwapF64(addr uint32, v float64) {
	m.StoreSwap64(addr, math.Float64bits(v))
}

// LoadSwapVec128 loads a 128-bit vector register value from guest
// memory; PPC AltiVec stores the 4 32-bit lanes in big-endian,
// left-to-right order, so Hi holds the lower guest address (lanes 0,1)
// and Lo holds the higher guest address (lanes 2,3) — this mirrors how
// the front end's vperm/vsr translators index into the 16 logical byte
// lanes irrespective of host byte order.
func (m *Memory) LoadSwapVec128(addr uint32) Vec128 {
	return Vec128{
		Hi: m.LoadSwap64(addr),
		Lo: m.LoadSwap64(addr + 8),
	}
}

func (m *Memory) StoreSwapVec128(addr uint32, v Vec128) {
	m.StoreSwap64(addr, v.Hi)
	m.StoreSwap64(addr+8, v.Lo)
}

// Bytes returns the 16 big-endian-ordered bytes of a Vec128, index 0
// being the guest's lowest address within the vector.
func (v Vec128) Bytes() [16]byte {
	var b [16]byte
	binary.BigEndian.PutUint64(b[0:8], v.Hi)
	binary.BigEndian.PutUint64(b[8:16], v.Lo)
	return b
}

// VecFromBytes is the inverse of Bytes.
func VecFromBytes(b [16]byte) Vec128 {
	return Vec128{
		Hi: binary.BigEndian.Uint64(b[0:8]),
		Lo: binary.BigEndian.Uint64(b[8:16]),
	}
}

// Lane32 returns the i-th (0..3) big-endian 32-bit lane.
func (v Vec128) Lane32(i int) uint32 {
	b := v.Bytes()
	return binary.BigEndian.Uint32(b[i*4 : i*4+4])
}

// WithLane32 returns a copy of v with lane i replaced.
func (v Vec128) WithLane32(i int, val uint32) Vec128 {
	b := v.Bytes()
	binary.BigEndian.PutUint32(b[i*4:i*4+4], val)
	return VecFromBytes(b)
}

// Lane16 returns the i-th (0..7) big-endian 16-bit lane.
func (v Vec128) Lane16(i int) uint16 {
	b := v.Bytes()
	return binary.BigEndian.Uint16(b[i*2 : i*2+2])
}

// WithLane16 returns a copy of v with lane i replaced.
func (v Vec128) WithLane16(i int, val uint16) Vec128 {
	b := v.Bytes()
	binary.BigEndian.PutUint16(b[i*2:i*2+2], val)
	return VecFromBytes(b)
}
