// Package memory implements the guest's flat 32-bit address space: a
// single mmapped host region, a committed-page bitmap, page
// protection, and byte-swapping typed load/store helpers. Guest data
// is big-endian; every guest-visible access goes through the "Swap"
// flavor of the load/store helpers so generated code never has to
// reason about host endianness itself.
package memory

import (
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/xenia-project/xenia-sub034/internal/xerrors"
)

const pageSize = 4096

// Protection mirrors the read/write/execute combinations callers can
// request for a range of guest pages.
type Protection int

const (
	ProtNone Protection = 0
	ProtRead Protection = 1 << iota
	ProtWrite
	ProtExec
)

func (p Protection) toUnix() int {
	var u int
	if p&ProtRead != 0 {
		u |= unix.PROT_READ
	}
	if p&ProtWrite != 0 {
		u |= unix.PROT_WRITE
	}
	if p&ProtExec != 0 {
		u |= unix.PROT_EXEC
	}
	return u
}

// Memory owns the guest's 32-bit address space.
type Memory struct {
	mu        sync.RWMutex
	host      []byte // backing mmap, len == size
	size      uint32
	committed []uint64 // one bit per page
}

// New reserves a guest address space of the given size (must be a
// multiple of the host page size). size is a uint32, so the largest
// space New can reserve is the last page multiple below 1<<32; tests
// pass a smaller bound.
func New(size uint32) (*Memory, error) {
	if size == 0 || size%pageSize != 0 {
		return nil, xerrors.Newf(xerrors.KindAlloc, "guest memory size %d must be a non-zero multiple of %d", size, pageSize)
	}
	host, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, xerrors.Newf(xerrors.KindAlloc, "mmap guest region: %v", err).Wrap(err)
	}
	npages := size / pageSize
	return &Memory{
		host:      host,
		size:      size,
		committed: make([]uint64, (npages+63)/64),
	}, nil
}

// Close releases the backing mmap.
func (m *Memory) Close() error {
	return unix.Munmap(m.host)
}

// Size returns the guest address space size in bytes.
func (m *Memory) Size() uint32 { return m.size }

// Membase returns the host base pointer generated code uses to
// compute host = membase + guest32.
func (m *Memory) Membase() uintptr {
	if len(m.host) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&m.host[0]))
}

func (m *Memory) pageOf(addr uint32) uint32 { return addr / pageSize }

func (m *Memory) checkRange(addr uint32, n uint32) error {
	if uint64(addr)+uint64(n) > uint64(m.size) {
		return xerrors.Newf(xerrors.KindAddress, "access [0x%08x, 0x%08x) out of guest range", addr, uint64(addr)+uint64(n)).At(addr)
	}
	return nil
}

// Commit marks the page range covering [addr, addr+n) as backed,
// taking the write lock. Committing an already-committed page is a
// no-op.
func (m *Memory) Commit(addr, n uint32) error {
	if err := m.checkRange(addr, n); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	first, last := m.pageOf(addr), m.pageOf(addr+n-1)
	for p := first; p <= last; p++ {
		m.committed[p/64] |= 1 << (p % 64)
	}
	return nil
}

// Decommit clears the committed bit for the page range.
func (m *Memory) Decommit(addr, n uint32) error {
	if err := m.checkRange(addr, n); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	first, last := m.pageOf(addr), m.pageOf(addr+n-1)
	for p := first; p <= last; p++ {
		m.committed[p/64] &^= 1 << (p % 64)
	}
	return nil
}

// IsCommitted reports whether the page containing addr is committed.
func (m *Memory) IsCommitted(addr uint32) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p := m.pageOf(addr)
	if int(p/64) >= len(m.committed) {
		return false
	}
	return m.committed[p/64]&(1<<(p%64)) != 0
}

// Protect changes host page protection for [addr, addr+n).
func (m *Memory) Protect(addr, n uint32, prot Protection) error {
	if err := m.checkRange(addr, n); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	lo := (addr / pageSize) * pageSize
	hi := ((addr + n + pageSize - 1) / pageSize) * pageSize
	return unix.Mprotect(m.host[lo:hi], prot.toUnix())
}

// HeapAlloc finds and commits the first free run of n bytes starting
// at or after hint (0 meaning "anywhere"), a simplified bump-style
// heap sufficient for guest kernel-shim allocators built on top.
func (m *Memory) HeapAlloc(hint, n uint32) (uint32, error) {
	if n == 0 {
		return 0, xerrors.New(xerrors.KindAlloc, "zero-size allocation")
	}
	aligned := (n + pageSize - 1) &^ (pageSize - 1)
	addr := (hint + pageSize - 1) &^ (pageSize - 1)
	for {
		if uint64(addr)+uint64(aligned) > uint64(m.size) {
			return 0, xerrors.New(xerrors.KindAlloc, "guest heap exhausted")
		}
		free := true
		for p := m.pageOf(addr); p <= m.pageOf(addr+aligned-1); p++ {
			if m.IsCommitted(p * pageSize) {
				free = false
				break
			}
		}
		if free {
			if err := m.Commit(addr, aligned); err != nil {
				return 0, err
			}
			return addr, nil
		}
		addr += pageSize
	}
}

// Translate returns the host pointer for a guest address, without
// bounds checking (callers that need checking should call
// checkRange-guarded accessors instead; Translate exists for exactly
// the use generated code makes of membase + guest32 arithmetic).
func (m *Memory) Translate(addr uint32) uintptr {
	return m.Membase() + uintptr(addr)
}
