package runtime

import (
	"sync"

	"github.com/xenia-project/xenia-sub034/internal/hir"
	"github.com/xenia-project/xenia-sub034/internal/runtime/xthread"
)

// Breakpoint is one installed guest-address breakpoint.
type Breakpoint struct {
	Addr    uint32
	Enabled bool
}

// Listener receives debugger events, each called on the thread whose
// action caused it (spec §6's Debugger event API).
type Listener interface {
	OnThreadCreated(ts *xthread.ThreadState)
	OnThreadDestroyed(ts *xthread.ThreadState)
	OnFunctionDefined(sym *SymbolInfo, fn *hir.Function)
	OnBreakpointHit(ts *xthread.ThreadState, bp *Breakpoint)
}

// Debugger tracks live threads, installed breakpoints, and listeners,
// installing a pending breakpoint into a SymbolInfo's Breakpoints list
// the moment that function is defined (spec §4.G: "on the Defined
// transition, runtime notifies debugger... installs all breakpoints
// falling within the newly-defined function's range").
type Debugger struct {
	rt *Runtime

	mu          sync.Mutex
	breakpoints map[uint32]*Breakpoint
	threads     map[*xthread.ThreadState]struct{}
	listeners   []Listener
}

// NewDebugger returns a Debugger attached to rt.
func NewDebugger(rt *Runtime) *Debugger {
	return &Debugger{
		rt:          rt,
		breakpoints: map[uint32]*Breakpoint{},
		threads:     map[*xthread.ThreadState]struct{}{},
	}
}

// AddListener registers l to receive future events.
func (d *Debugger) AddListener(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, l)
}

// SetBreakpoint installs a breakpoint at addr, enabled immediately. If
// addr falls within an already-defined function, that function's
// Breakpoints list is updated in place.
func (d *Debugger) SetBreakpoint(addr uint32) *Breakpoint {
	d.mu.Lock()
	bp, ok := d.breakpoints[addr]
	if !ok {
		bp = &Breakpoint{Addr: addr}
		d.breakpoints[addr] = bp
	}
	bp.Enabled = true
	d.mu.Unlock()

	if sym := d.definedSymbolContaining(addr); sym != nil {
		d.installInto(sym)
	}
	return bp
}

// ClearBreakpoint removes any breakpoint at addr.
func (d *Debugger) ClearBreakpoint(addr uint32) {
	d.mu.Lock()
	delete(d.breakpoints, addr)
	d.mu.Unlock()

	if sym := d.definedSymbolContaining(addr); sym != nil {
		kept := sym.Breakpoints[:0]
		for _, a := range sym.Breakpoints {
			if a != addr {
				kept = append(kept, a)
			}
		}
		sym.Breakpoints = kept
	}
}

func (d *Debugger) definedSymbolContaining(addr uint32) *SymbolInfo {
	for _, mod := range d.rt.Modules() {
		if sym := mod.FunctionContaining(addr); sym != nil {
			return sym
		}
	}
	return nil
}

// installInto records every pending enabled breakpoint that falls
// within sym's address range into sym.Breakpoints.
func (d *Debugger) installInto(sym *SymbolInfo) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var installed []uint32
	for addr, bp := range d.breakpoints {
		if !bp.Enabled {
			continue
		}
		if addr >= sym.Address && addr < sym.EndAddress {
			installed = append(installed, addr)
		}
	}
	sym.Breakpoints = installed
}

// CheckBreakpoint fires OnBreakpointHit and suspends every registered
// thread if an enabled breakpoint is installed at pc. It acts only when
// a caller invokes it: neither ResolveFunction nor generated code calls
// it, so an installed breakpoint is recorded but not trapped by the
// engine itself.
func (d *Debugger) CheckBreakpoint(ts *xthread.ThreadState, pc uint32) {
	d.mu.Lock()
	bp, ok := d.breakpoints[pc]
	d.mu.Unlock()
	if !ok || !bp.Enabled {
		return
	}
	d.SuspendAll()
	d.mu.Lock()
	listeners := append([]Listener(nil), d.listeners...)
	d.mu.Unlock()
	for _, l := range listeners {
		l.OnBreakpointHit(ts, bp)
	}
}

// OnThreadCreated registers ts and notifies listeners.
func (d *Debugger) OnThreadCreated(ts *xthread.ThreadState) {
	d.mu.Lock()
	d.threads[ts] = struct{}{}
	listeners := append([]Listener(nil), d.listeners...)
	d.mu.Unlock()
	for _, l := range listeners {
		l.OnThreadCreated(ts)
	}
}

// OnThreadDestroyed deregisters ts and notifies listeners.
func (d *Debugger) OnThreadDestroyed(ts *xthread.ThreadState) {
	d.mu.Lock()
	delete(d.threads, ts)
	listeners := append([]Listener(nil), d.listeners...)
	d.mu.Unlock()
	for _, l := range listeners {
		l.OnThreadDestroyed(ts)
	}
}

// onFunctionDefined is Runtime.define's hook into the debugger: install
// any pending breakpoints now that sym has a known address range, then
// notify listeners.
func (d *Debugger) onFunctionDefined(sym *SymbolInfo, fn *hir.Function) {
	d.installInto(sym)

	d.mu.Lock()
	listeners := append([]Listener(nil), d.listeners...)
	d.mu.Unlock()
	for _, l := range listeners {
		l.OnFunctionDefined(sym, fn)
	}
}

// SuspendAll requests every registered thread suspend at its next
// dispatch boundary.
func (d *Debugger) SuspendAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for ts := range d.threads {
		ts.Suspend()
	}
}

// ResumeAll releases every registered thread's suspend request.
func (d *Debugger) ResumeAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for ts := range d.threads {
		ts.Resume()
	}
}
