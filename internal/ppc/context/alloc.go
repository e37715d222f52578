package context

import "unsafe"

// Allocate returns a new, zeroed Context. Go gives no portable way to
// request struct alignment stricter than what the allocator already
// guarantees for a type this large (§ Open Question 1 in DESIGN.md);
// a plain &Context{} already lands on a 16-byte-or-better boundary on
// every supported host, which is sufficient for the SSE/AVX loads the
// x86-64 back end emits against VR fields, so no custom allocator is
// needed beyond documenting the invariant here.
func Allocate() *Context {
	return &Context{}
}

// Reset zeroes a Context in place for reuse across thread restarts.
func (c *Context) Reset() {
	*c = Context{}
}

// Size reports sizeof(Context) for diagnostics and layout tests.
func Size() uintptr { return unsafe.Sizeof(Context{}) }
