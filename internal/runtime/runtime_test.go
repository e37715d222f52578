package runtime

import (
	"sync"
	"testing"

	"github.com/xenia-project/xenia-sub034/internal/guest/memory"
	"github.com/xenia-project/xenia-sub034/internal/hir"
	"github.com/xenia-project/xenia-sub034/internal/runtime/xthread"
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

func encD(op, rd, ra uint32, simm int32) uint32 {
	return (op << 26) | (rd << 21) | (ra << 16) | (uint32(uint16(simm)))
}

func encXL(op, bo, bi, xo10 uint32, lk bool) uint32 {
	v := (op << 26) | (bo << 21) | (bi << 16) | (xo10 << 1)
	if lk {
		v |= 1
	}
	return v
}

// countingListener records how many times each debugger event fires,
// for asserting property 7's "exactly one compile, one
// on_function_defined" guarantee under a resolve_function race.
type countingListener struct {
	mu      sync.Mutex
	defined int
	lastSym *SymbolInfo
}

func (l *countingListener) OnThreadCreated(*xthread.ThreadState)   {}
func (l *countingListener) OnThreadDestroyed(*xthread.ThreadState) {}
func (l *countingListener) OnBreakpointHit(*xthread.ThreadState, *Breakpoint) {}
func (l *countingListener) OnFunctionDefined(sym *SymbolInfo, fn *hir.Function) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.defined++
	l.lastSym = sym
}

// TestResolveFunctionConcurrentSingleWinner exercises scenario S6 and
// testable property 7: N goroutines racing resolve_function on the
// same never-before-seen guest address must all observe the same
// result, and exactly one of them must actually declare, translate,
// compile, and publish the function.
func TestResolveFunctionConcurrentSingleWinner(t *testing.T) {
	const entry = 0x4000
	m := newTestMemory(t)
	m.StoreSwap32(entry, encD(14, 3, 0, 7))               // addi r3, r0, 7
	m.StoreSwap32(entry+4, encXL(19, 0x14, 0, 16, false)) // blr

	rt, err := New(m, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rt.RegisterModule(NewModule("test", 0, m.Size()))

	listener := &countingListener{}
	rt.Debugger().AddListener(listener)

	const racers = 8
	results := make([]uintptr, racers)
	errs := make([]error, racers)

	var start sync.WaitGroup
	start.Add(1)
	var done sync.WaitGroup
	done.Add(racers)
	for i := 0; i < racers; i++ {
		go func(i int) {
			defer done.Done()
			start.Wait()
			results[i], errs[i] = rt.ResolveFunction(entry)
		}(i)
	}
	start.Done()
	done.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("racer %d: ResolveFunction: %v", i, err)
		}
	}
	for i := 1; i < racers; i++ {
		if results[i] != results[0] {
			t.Fatalf("racer %d got host addr %#x, racer 0 got %#x", i, results[i], results[0])
		}
	}
	if results[0] == 0 {
		t.Fatal("ResolveFunction returned a nil host address")
	}

	listener.mu.Lock()
	defined := listener.defined
	listener.mu.Unlock()
	if defined != 1 {
		t.Fatalf("on_function_defined fired %d times, want exactly 1", defined)
	}

	mod := rt.Modules()[0]
	sym := mod.Lookup(entry)
	if sym == nil {
		t.Fatal("module has no symbol recorded at entry after resolution")
	}
	if sym.Status() != StatusDefined {
		t.Fatalf("symbol status = %s, want defined", sym.Status())
	}

	// A second, non-racing call must hit the entry table's Ready fast
	// path and return the identical address without redefining.
	again, err := rt.ResolveFunction(entry)
	if err != nil {
		t.Fatalf("second ResolveFunction: %v", err)
	}
	if again != results[0] {
		t.Fatalf("second ResolveFunction returned %#x, want %#x", again, results[0])
	}
	listener.mu.Lock()
	defer listener.mu.Unlock()
	if listener.defined != 1 {
		t.Fatalf("on_function_defined fired %d times after a cache hit, want still 1", listener.defined)
	}
}

// TestResolveFunctionUnknownAddressFails exercises the Failed branch of
// the entry state machine: an address outside every registered
// module's range can never be declared, and every racer blocked on the
// same failing resolution must observe the same error rather than
// hanging.
func TestResolveFunctionUnknownAddressFails(t *testing.T) {
	m := newTestMemory(t)
	rt, err := New(m, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	const racers = 4
	errs := make([]error, racers)
	var done sync.WaitGroup
	done.Add(racers)
	for i := 0; i < racers; i++ {
		go func(i int) {
			defer done.Done()
			_, errs[i] = rt.ResolveFunction(0x9000)
		}(i)
	}
	done.Wait()

	for i, err := range errs {
		if err == nil {
			t.Fatalf("racer %d: ResolveFunction succeeded for an address no module owns", i)
		}
		if err != errs[0] {
			t.Fatalf("racer %d: got error %v, racer 0 got %v", i, err, errs[0])
		}
	}
}
