package ppc

import (
	"math"

	"github.com/xenia-project/xenia-sub034/internal/hir"
)

// VMX128/AltiVec opcode slots this front end covers: vperm (VA-form
// permute, scenario S3), vsl/vsr (VX-form whole-register shift by a
// register-held bit count, scenario S4), and the Xenon-specific
// D3DCOLOR unpack sequence (scenario S5).
func registerVMXOpcodes() {
	ext4VATable[43] = translateVperm
	ext4VXTable[452] = translateVsl
	ext4VXTable[708] = translateVsr
	ext4VXTable[1552] = translateVupkd3d
}

func translateVperm(d *decoder, raw uint32, addr uint32) error {
	a := d.loadVR(fieldRA(raw))
	b := d.loadVR(fieldRB(raw))
	mask := d.loadVR(fieldVRC(raw))
	d.storeVR(fieldRD(raw), d.b.Permute(a, b, mask))
	return nil
}

// shiftAmountFromLane15 extracts vsl/vsr's bit-shift count: the low 3
// bits of byte 15 of the shift vector, which real hardware requires
// every byte of the shift operand to agree on.
func (d *decoder) shiftAmountFromLane15(shiftVec *hir.Value) *hir.Value {
	lane := d.b.Extract(hir.TypeI8, shiftVec, 15)
	return d.b.And(lane, d.b.ConstInt(hir.TypeI8, 7))
}

func translateVsl(d *decoder, raw uint32, addr uint32) error {
	a := d.loadVR(fieldRA(raw))
	shiftVec := d.loadVR(fieldRB(raw))
	amount := d.shiftAmountFromLane15(shiftVec)
	d.storeVR(fieldRD(raw), d.b.Shl(a, amount))
	return nil
}

func translateVsr(d *decoder, raw uint32, addr uint32) error {
	a := d.loadVR(fieldRA(raw))
	shiftVec := d.loadVR(fieldRB(raw))
	amount := d.shiftAmountFromLane15(shiftVec)
	d.storeVR(fieldRD(raw), d.b.ShrU(a, amount))
	return nil
}

// translateVupkd3d implements the D3DCOLOR unpack: the packed BGRA8
// value in the source vector's last lane expands into four f32 lanes
// scaled to [0,1], the layout every Direct3D vertex-color shader input
// expects. Real vupkd3d also covers other Xenon vertex formats
// (D3DCOLOR, FLOAT16_2, FLOAT16_4, ...) selected by a 2-bit type field
// reusing VA's encoding slot; only the D3DCOLOR form is implemented.
func translateVupkd3d(d *decoder, raw uint32, addr uint32) error {
	oneOver255 := d.b.ConstInt(hir.TypeF32, uint64(math.Float32bits(1.0/255.0)))

	src := d.loadVR(fieldRB(raw))
	packed := d.b.Extract(hir.TypeI32, src, 3)

	var lanes [4]*hir.Value
	for i := 0; i < 4; i++ {
		shifted := d.b.ShrU(packed, d.b.ConstInt(hir.TypeI32, uint64(i*8)))
		channel := d.b.And(shifted, d.b.ConstInt(hir.TypeI32, 0xff))
		asFloat := d.b.Convert(hir.TypeF32, channel)
		lanes[i] = d.b.FMul(asFloat, oneOver255)
	}

	result := d.b.Splat(lanes[0])
	for i := 1; i < 4; i++ {
		result = d.b.Insert(result, lanes[i], int64(i))
	}
	d.storeVR(fieldRD(raw), result)
	return nil
}
