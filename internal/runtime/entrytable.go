package runtime

import "sync"

// entryStatus is the coarse New/Resolving/Ready/Failed state
// EntryTable tracks for hot dispatch, independent of the richer
// Declaring/Declared/Defining states the owning Module's SymbolInfo
// walks through while an entry sits in Resolving.
type entryStatus int32

const (
	entryNew entryStatus = iota
	entryResolving
	entryReady
	entryFailed
)

// Entry is one guest address's hot-dispatch record: Ready is the fast
// path a reader takes without ever touching sym/condition-variable
// state again once published.
type Entry struct {
	mu     sync.Mutex
	cond   *sync.Cond
	status entryStatus

	hostPtr uintptr
	sym     *SymbolInfo
	err     error
}

func newEntry() *Entry {
	e := &Entry{}
	e.cond = sync.NewCond(&e.mu)
	return e
}

// EntryTable is the runtime's concurrent guest-address -> compiled-
// function map (spec's "Entry table"). A lookup that finds nothing
// creates a StatusNew entry; resolving it to Ready or Failed is
// Runtime.ResolveFunction's job, not this table's.
type EntryTable struct {
	mu      sync.Mutex
	entries map[uint32]*Entry
}

// NewEntryTable returns an empty EntryTable.
func NewEntryTable() *EntryTable {
	return &EntryTable{entries: map[uint32]*Entry{}}
}

func (t *EntryTable) getOrCreate(addr uint32) *Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[addr]
	if !ok {
		e = newEntry()
		t.entries[addr] = e
	}
	return e
}

// Ready reports addr's published host pointer without waiting on the
// per-entry condition variable; this is the fast path every dispatch
// through the entry table after the first resolve takes. It is not
// lock-free: it briefly takes the table mutex and then the entry's
// mutex.
func (t *EntryTable) Ready(addr uint32) (uintptr, bool) {
	t.mu.Lock()
	e, ok := t.entries[addr]
	t.mu.Unlock()
	if !ok {
		return 0, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status == entryReady {
		return e.hostPtr, true
	}
	return 0, false
}
