package ppc

import "github.com/xenia-project/xenia-sub034/internal/hir"

func registerMemoryOpcodes() {
	primaryTable[32] = translateLwz
	primaryTable[34] = translateLbz
	primaryTable[40] = translateLhz
	primaryTable[58] = translateLd

	primaryTable[36] = translateStw
	primaryTable[38] = translateStb
	primaryTable[44] = translateSth
	primaryTable[62] = translateStd
}

func (d *decoder) effectiveAddress(raw uint32) *hir.Value {
	base := d.materializeRA(raw)
	imm := int64(fieldSIMM(raw))
	return d.b.Add(base, d.b.ConstInt(hir.TypeI64, uint64(imm)))
}

func translateLwz(d *decoder, raw uint32, addr uint32) error {
	v := d.b.Load(d.effectiveAddress(raw), 0, hir.TypeI32)
	d.storeGPR(fieldRD(raw), d.b.ZeroExtend(hir.TypeI64, v))
	return nil
}

func translateLbz(d *decoder, raw uint32, addr uint32) error {
	v := d.b.Load(d.effectiveAddress(raw), 0, hir.TypeI8)
	d.storeGPR(fieldRD(raw), d.b.ZeroExtend(hir.TypeI64, v))
	return nil
}

func translateLhz(d *decoder, raw uint32, addr uint32) error {
	v := d.b.Load(d.effectiveAddress(raw), 0, hir.TypeI16)
	d.storeGPR(fieldRD(raw), d.b.ZeroExtend(hir.TypeI64, v))
	return nil
}

// translateLd handles the common ld encoding where the low two bits of
// the displacement field (the DS-form's form selector) are zero; it
// does not special-case the nonzero-low-bits update forms.
func translateLd(d *decoder, raw uint32, addr uint32) error {
	base := d.materializeRA(raw)
	imm := int64(int16(raw&0xfffc)) // DS-form displacement, low 2 bits cleared
	ea := d.b.Add(base, d.b.ConstInt(hir.TypeI64, uint64(imm)))
	v := d.b.Load(ea, 0, hir.TypeI64)
	d.storeGPR(fieldRD(raw), v)
	return nil
}

func translateStw(d *decoder, raw uint32, addr uint32) error {
	v := d.b.Truncate(hir.TypeI32, d.loadGPR(fieldRD(raw)))
	d.b.Store(d.effectiveAddress(raw), 0, v)
	return nil
}

func translateStb(d *decoder, raw uint32, addr uint32) error {
	v := d.b.Truncate(hir.TypeI8, d.loadGPR(fieldRD(raw)))
	d.b.Store(d.effectiveAddress(raw), 0, v)
	return nil
}

func translateSth(d *decoder, raw uint32, addr uint32) error {
	v := d.b.Truncate(hir.TypeI16, d.loadGPR(fieldRD(raw)))
	d.b.Store(d.effectiveAddress(raw), 0, v)
	return nil
}

func translateStd(d *decoder, raw uint32, addr uint32) error {
	base := d.materializeRA(raw)
	imm := int64(int16(raw & 0xfffc))
	ea := d.b.Add(base, d.b.ConstInt(hir.TypeI64, uint64(imm)))
	d.b.Store(ea, 0, d.loadGPR(fieldRD(raw)))
	return nil
}
