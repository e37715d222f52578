// Package runtime is the guest-code execution engine's central
// orchestrator: it owns the loaded modules' symbol databases, the
// entry table hot-dispatch map, the debugger, and the frontend/
// backend/code-cache pipeline that turns a cold guest address into
// executable host code, wiring those three layers into the
// resolve_function algorithm every guest call site and host driver
// goes through to reach compiled code.
package runtime

import (
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/xenia-project/xenia-sub034/internal/backend"
	"github.com/xenia-project/xenia-sub034/internal/backend/x64"
	"github.com/xenia-project/xenia-sub034/internal/backend/x64/codecache"
	"github.com/xenia-project/xenia-sub034/internal/frontend/ppc"
	"github.com/xenia-project/xenia-sub034/internal/guest/memory"
	"github.com/xenia-project/xenia-sub034/internal/hir"
	"github.com/xenia-project/xenia-sub034/internal/hir/pass"
	pctx "github.com/xenia-project/xenia-sub034/internal/ppc/context"
	"github.com/xenia-project/xenia-sub034/internal/runtime/xthread"
	"github.com/xenia-project/xenia-sub034/internal/xerrors"
)

// Options configures a Runtime, mirroring spec's §6 external
// interface: runtime_backend, store_all_context_values,
// dump_module_map. Threading a zero Options gives the x64 backend with
// every passthrough default.
type Options struct {
	// RuntimeBackend selects the code generator: "x64" (the only one
	// this engine implements) or "any" (also resolves to x64). "ivm"
	// is accepted as a recognized value but rejected by New,
	// since no interpreter-mode backend exists in this tree.
	RuntimeBackend string
	// StoreAllContextValues disables ContextPromotion's dead-store
	// elimination for every function this Runtime compiles.
	StoreAllContextValues bool
	// DumpModuleMap names a path for a human-readable symbol dump of
	// every loaded module; Runtime itself does not read it or write
	// the dump.
	DumpModuleMap string

	Logger *slog.Logger
}

// Runtime ties the frontend, HIR pass pipeline, x86-64 backend, code
// cache, module symbol databases, entry table, and debugger into one
// resolve_function pipeline (spec §2/§4.G).
type Runtime struct {
	mem      *memory.Memory
	frontend *ppc.Frontend
	mach     *x64.Machine
	compiler *backend.Compiler
	cache    *codecache.Cache

	entries  *EntryTable
	debugger *Debugger
	opts     Options

	modulesMu sync.Mutex
	modules   []*Module

	importsMu sync.Mutex
	imports   map[string]uintptr
}

// New returns a Runtime reading guest code out of mem. opts.RuntimeBackend
// must be "" , "any", or "x64"; any other value is rejected.
func New(mem *memory.Memory, opts Options) (*Runtime, error) {
	switch opts.RuntimeBackend {
	case "", "any", "x64":
	default:
		return nil, xerrors.Newf(xerrors.KindState, "runtime_backend %q not implemented (only x64 is built)", opts.RuntimeBackend)
	}

	mach := x64.NewMachine()
	rt := &Runtime{
		mem:      mem,
		frontend: ppc.New(mem),
		mach:     mach,
		compiler: backend.NewCompiler(mach),
		cache:    codecache.New(),
		entries:  NewEntryTable(),
		opts:     opts,
		imports:  map[string]uintptr{},
	}
	rt.debugger = NewDebugger(rt)
	return rt, nil
}

// RegisterModule adds mod to the set of loaded modules ResolveFunction
// searches to find the owner of a guest address.
func (rt *Runtime) RegisterModule(mod *Module) {
	rt.modulesMu.Lock()
	defer rt.modulesMu.Unlock()
	rt.modules = append(rt.modules, mod)
}

func (rt *Runtime) findModule(addr uint32) *Module {
	rt.modulesMu.Lock()
	defer rt.modulesMu.Unlock()
	for _, m := range rt.modules {
		if m.Contains(addr) {
			return m
		}
	}
	return nil
}

// Modules returns every module currently registered, for dump/disasm
// tooling.
func (rt *Runtime) Modules() []*Module {
	rt.modulesMu.Lock()
	defer rt.modulesMu.Unlock()
	return append([]*Module(nil), rt.modules...)
}

// Debugger returns the runtime's debugger.
func (rt *Runtime) Debugger() *Debugger { return rt.debugger }

var nextThreadID uint32

// CreateThread allocates a guest stack of stackSize bytes, a fresh PPC
// context, and the ThreadState (Component H) wrapping them, registers
// the thread with the debugger, and returns it. tlsSlot is the guest
// address of the thread's TLS block, or 0 for none.
func (rt *Runtime) CreateThread(stackSize, tlsSlot uint32) (*xthread.ThreadState, error) {
	stackBase, err := rt.mem.HeapAlloc(0, stackSize)
	if err != nil {
		return nil, xerrors.Newf(xerrors.KindAlloc, "allocating guest stack: %v", err)
	}

	ctx := pctx.Allocate()
	ctx.Membase = rt.mem.Membase()
	ctx.Runtime = unsafe.Pointer(rt)

	id := atomic.AddUint32(&nextThreadID, 1)
	ts := xthread.New(id, ctx, stackBase, stackSize, tlsSlot)
	rt.debugger.OnThreadCreated(ts)
	return ts, nil
}

// DestroyThread deregisters ts from the debugger and releases its
// guest stack.
func (rt *Runtime) DestroyThread(ts *xthread.ThreadState) error {
	rt.debugger.OnThreadDestroyed(ts)
	return rt.mem.Decommit(ts.StackBase, ts.StackSize)
}

// RegisterHostFunction maps a guest address to a native host function
// pointer, the kernel-shim callback convention of spec §6: a call to
// addr compiles to a thunk rather than being inlined, since the callee
// has no guest code of its own to translate.
func (rt *Runtime) RegisterHostFunction(addr uint32, hostFn uintptr) {
	rt.importsMu.Lock()
	defer rt.importsMu.Unlock()
	rt.imports[defaultName(addr)] = hostFn
}

func (rt *Runtime) hostImport(symbol string) (uintptr, bool) {
	rt.importsMu.Lock()
	defer rt.importsMu.Unlock()
	p, ok := rt.imports[symbol]
	return p, ok
}

// symbolAddr reverses internal/frontend/ppc's symbolFor convention
// ("sub_XXXXXXXX"), the only shape a direct Call operand's symbol ever
// takes.
func symbolAddr(symbol string) (uint32, bool) {
	const prefix = "sub_"
	if !strings.HasPrefix(symbol, prefix) {
		return 0, false
	}
	v, err := strconv.ParseUint(symbol[len(prefix):], 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

// ResolveFunction implements spec.md §4.G/§2's resolve_function: look
// up addr in the entry table; if absent, race every other caller to
// become the single thread that declares, translates, optimizes,
// compiles, and publishes it, while everyone else blocks on the
// winner's result (property 7, scenario S6).
func (rt *Runtime) ResolveFunction(addr uint32) (uintptr, error) {
	return rt.resolve(addr, nil)
}

// resolve is ResolveFunction plus chain, the set of guest addresses
// whose definition is in progress earlier in this exact synchronous
// call stack (a direct or mutually recursive call discovered while
// this goroutine is patching its own relocations). An address already
// in chain is this goroutine's own in-flight function: returning its
// reserved host address directly, instead of re-entering the entry's
// Resolving wait this same goroutine is the winner of, is what lets a
// recursive guest function's call to itself patch correctly without
// deadlocking on its own condition variable.
func (rt *Runtime) resolve(addr uint32, chain map[uint32]uintptr) (uintptr, error) {
	if hp, ok := chain[addr]; ok {
		return hp, nil
	}
	if hp, ok := rt.hostImport(defaultName(addr)); ok {
		return hp, nil
	}

	e := rt.entries.getOrCreate(addr)
	e.mu.Lock()
	for {
		switch e.status {
		case entryReady:
			hp := e.hostPtr
			e.mu.Unlock()
			return hp, nil
		case entryFailed:
			err := e.err
			e.mu.Unlock()
			return 0, err
		case entryNew:
			e.status = entryResolving
			e.mu.Unlock()
			return rt.define(addr, e, chain)
		default: // entryResolving: another goroutine is the winner.
			e.cond.Wait()
		}
	}
}

func (rt *Runtime) fail(e *Entry, sym *SymbolInfo, err error) (uintptr, error) {
	if sym != nil {
		sym.setStatus(StatusFailed)
	}
	e.mu.Lock()
	e.status = entryFailed
	e.err = err
	e.cond.Broadcast()
	e.mu.Unlock()
	if rt.opts.Logger != nil {
		rt.opts.Logger.Error("resolve_function failed", "err", err)
	}
	return 0, err
}

// define performs the winner's work: declare the symbol, translate it,
// run the optimization pipeline, compile it, publish the host address,
// and notify the debugger, in that order, matching the
// New->Declaring->Declared->Defining->Defined symbol lifecycle.
func (rt *Runtime) define(addr uint32, e *Entry, chain map[uint32]uintptr) (uintptr, error) {
	mod := rt.findModule(addr)
	if mod == nil {
		return rt.fail(e, nil, xerrors.Newf(xerrors.KindAddress, "no module owns guest address").At(addr))
	}

	sym := mod.declareFunction(addr)
	sym.setStatus(StatusDeclaring)
	e.mu.Lock()
	e.sym = sym
	e.mu.Unlock()

	name := sym.Name
	if name == "" {
		name = defaultName(addr)
	}

	fn, err := rt.frontend.TranslateFunction(name, addr)
	if err != nil {
		return rt.fail(e, sym, err)
	}
	sym.setStatus(StatusDeclared)
	sym.EndAddress = endAddressOf(fn)
	sym.Function = fn

	sym.setStatus(StatusDefining)
	pass.RunWithOptions(fn, pass.Options{StoreAllContextValues: rt.opts.StoreAllContextValues})

	rt.compiler.Reset()
	code, err := rt.compiler.Compile(fn)
	if err != nil {
		return rt.fail(e, sym, xerrors.Newf(xerrors.KindEmit, "compiling %s: %v", name, err).At(addr))
	}
	relocs := rt.mach.CallRelocs

	hostAddr, dst, err := rt.cache.Reserve(len(code))
	if err != nil {
		return rt.fail(e, sym, xerrors.Newf(xerrors.KindAlloc, "code cache: %v", err).At(addr))
	}
	copy(dst, code)

	childChain := make(map[uint32]uintptr, len(chain)+1)
	for k, v := range chain {
		childChain[k] = v
	}
	childChain[addr] = hostAddr

	resolver := func(symbol string) (uintptr, bool) {
		if hp, ok := rt.hostImport(symbol); ok {
			return hp, true
		}
		callAddr, ok := symbolAddr(symbol)
		if !ok {
			return 0, false
		}
		hp, err := rt.resolve(callAddr, childChain)
		if err != nil {
			return 0, false
		}
		return hp, true
	}
	if err := x64.ApplyRelocations(dst, hostAddr, relocs, resolver); err != nil {
		return rt.fail(e, sym, xerrors.Newf(xerrors.KindEmit, "relocating %s: %v", name, err).At(addr))
	}
	if err := rt.cache.SealAll(); err != nil {
		return rt.fail(e, sym, xerrors.Newf(xerrors.KindAlloc, "sealing code cache: %v", err).At(addr))
	}

	sym.Code = code
	sym.HostAddr = hostAddr
	sym.setStatus(StatusDefined)

	rt.debugger.onFunctionDefined(sym, fn)

	e.mu.Lock()
	e.status = entryReady
	e.hostPtr = hostAddr
	e.cond.Broadcast()
	e.mu.Unlock()

	return hostAddr, nil
}

// endAddressOf recovers a translated function's guest address range by
// scanning for the highest OpSourceOffset any instruction recorded;
// TranslateFunction fuses front end declaration and translation into a
// single pass (spec's Declaring/Declared split collapses to one step
// here), so this is taken after the fact rather than returned directly
// by a separate declare-only call.
func endAddressOf(f *hir.Function) uint32 {
	var max uint32
	for _, blk := range f.Blocks() {
		for inst := blk.Head(); inst != nil; inst = inst.Next() {
			if inst.Opcode() == hir.OpSourceOffset {
				if a := uint32(inst.Operand(0).Imm); a > max {
					max = a
				}
			}
		}
	}
	return max + 4
}
