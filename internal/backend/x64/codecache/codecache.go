// Package codecache owns the executable memory JIT-compiled guest
// functions are written into: a growable mmap'd arena, writable while
// a function is being copied in and mprotected back to read+execute
// before any guest thread can reach it. Grounded on the teacher's
// wazevo engine allocating one mmap segment per compile batch and
// mprotecting it RX once filled (wazevo.go's Compile), reimplemented
// directly against golang.org/x/sys/unix since the teacher's own
// internal/platform wrapper isn't part of this module.
package codecache

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

const pageSize = 4096

// Cache holds one or more mmap'd regions and hands out executable
// slices carved out of them. Functions are never individually freed;
// a Cache is torn down as a whole when its owning runtime shuts down.
type Cache struct {
	mu      sync.Mutex
	regions []region
}

type region struct {
	mem    []byte
	used   int
	sealed bool
}

// New returns an empty Cache.
func New() *Cache { return &Cache{} }

// Put copies code into the cache and returns the address it now lives
// at.
func (c *Cache) Put(code []byte) (uintptr, error) {
	addr, dst, err := c.Reserve(len(code))
	if err != nil {
		return 0, err
	}
	copy(dst, code)
	return addr, nil
}

// Reserve carves n bytes out of a writable region without copying
// anything in, returning both the address the bytes will execute from
// once sealed and a slice aliasing the cache's own backing memory.
// Callers that need to patch call-site relocations with an address
// that depends on where the function landed (x64/thunk.go's
// ApplyRelocations) write their function body and patch it directly
// into dst, rather than building the final bytes in a scratch buffer
// and copying twice.
func (c *Cache) Reserve(n int) (addr uintptr, dst []byte, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := c.writableRegion(n)
	if r == nil {
		r, err = c.grow(n)
		if err != nil {
			return 0, nil, err
		}
	}

	off := r.used
	r.used += n
	// 16-byte alignment keeps every function entry point usable as a
	// call target regardless of the instruction selector's own
	// alignment assumptions.
	r.used = (r.used + 15) &^ 15

	return uintptr(unsafe.Pointer(&r.mem[0])) + uintptr(off), r.mem[off : off+n], nil
}

// writableRegion returns a not-yet-sealed region with enough room for
// n more bytes, or nil.
func (c *Cache) writableRegion(n int) *region {
	for i := range c.regions {
		r := &c.regions[i]
		if !r.sealed && len(r.mem)-r.used >= n {
			return r
		}
	}
	return nil
}

// grow mmaps a fresh RW region sized to the next page boundary at or
// above n, large enough to amortize across several subsequent Puts.
func (c *Cache) grow(n int) (*region, error) {
	size := (n + pageSize - 1) &^ (pageSize - 1)
	if size < 64*pageSize {
		size = 64 * pageSize
	}
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("codecache: mmap %d bytes: %w", size, err)
	}
	c.regions = append(c.regions, region{mem: mem})
	return &c.regions[len(c.regions)-1], nil
}

// SealAll mprotects every not-yet-sealed region RX, publishing
// everything written into the cache so far to any guest thread that
// may call into it. Called once per batch of functions compiled
// together, mirroring the teacher's one-mprotect-per-Compile-call
// shape rather than mprotecting on every single Put.
func (c *Cache) SealAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.regions {
		r := &c.regions[i]
		if r.sealed {
			continue
		}
		if err := unix.Mprotect(r.mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
			return fmt.Errorf("codecache: mprotect region %d: %w", i, err)
		}
		r.sealed = true
	}
	return nil
}

// Close unmaps every region. The Cache must not be used afterward.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for i := range c.regions {
		if err := unix.Munmap(c.regions[i].mem); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.regions = nil
	return firstErr
}
