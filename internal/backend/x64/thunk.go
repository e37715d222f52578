package x64

import "fmt"

// CallReloc is one CALL rel32 site a compiled function left unpatched,
// recorded by encodeAll and resolved once the callee's address is
// known — either another guest function the runtime has already
// compiled, or a host-side import thunk.
type CallReloc struct {
	PatchOffset int32 // byte offset of the rel32 operand within the function's code
	Symbol      string
}

// SymbolResolver maps a CallReloc's Symbol to the absolute address its
// CALL should reach. The runtime supplies one resolver that checks its
// host import table first and otherwise resolves the guest function.
type SymbolResolver func(symbol string) (addr uintptr, ok bool)

// ApplyRelocations patches every call site in code (still mapped
// writable, i.e. before codecache.Cache.SealAll) with the rel32
// displacement from the call instruction's end to resolve's answer
// for its symbol. funcAddr is the address code will execute from once
// sealed, needed because rel32 is relative to the patched-in CALL's
// own address, not code's current (possibly different) scratch
// address if the caller is patching a staging buffer in place.
func ApplyRelocations(code []byte, funcAddr uintptr, relocs []CallReloc, resolve SymbolResolver) error {
	for _, r := range relocs {
		target, ok := resolve(r.Symbol)
		if !ok {
			return fmt.Errorf("x64: unresolved call target %q", r.Symbol)
		}
		callSiteEnd := funcAddr + uintptr(r.PatchOffset) + 4
		rel := int64(target) - int64(callSiteEnd)
		if rel > 0x7fffffff || rel < -0x80000000 {
			return fmt.Errorf("x64: call target %q out of rel32 range from %x", r.Symbol, funcAddr)
		}
		putU32At(code, r.PatchOffset, uint32(int32(rel)))
	}
	return nil
}
