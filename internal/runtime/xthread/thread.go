// Package xthread implements Component H, the per-guest-thread state
// spec §4.H describes: a PPC architectural context, a guest-memory-
// backed stack, an optional TLS slot, and the host-OS primitives used
// to recover, suspend, and resume the thread running JIT-compiled
// code. Go exposes no user-addressable thread-local register, so the
// active ThreadState for a piece of generated code is recovered via
// the OS thread id rather than a true TLS read (DESIGN.md's Open
// Question 2).
package xthread

import (
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	pctx "github.com/xenia-project/xenia-sub034/internal/ppc/context"
)

// ThreadState is one guest thread's host-side bookkeeping.
type ThreadState struct {
	ID uint32 // engine-assigned id, distinct from any OS thread id

	Context *pctx.Context

	StackBase uint32 // guest address of the low end of this thread's stack
	StackSize uint32
	TLSSlot   uint32 // guest address of this thread's TLS block, 0 if none

	suspendMu   sync.Mutex
	suspendCond *sync.Cond
	suspendReq  bool
	suspended   bool

	osTID int
}

// active maps the binding OS thread's id to the ThreadState currently
// running generated code on it.
var active sync.Map // int -> *ThreadState

// New returns a ThreadState wrapping ctx, whose guest stack occupies
// [stackBase, stackBase+stackSize) and whose TLS block (if any) lives
// at tlsSlot. ctx.ThreadState is set to point back at the returned
// ThreadState, per internal/ppc/context.Context's back-pointer field.
func New(id uint32, ctx *pctx.Context, stackBase, stackSize, tlsSlot uint32) *ThreadState {
	ts := &ThreadState{
		ID:        id,
		Context:   ctx,
		StackBase: stackBase,
		StackSize: stackSize,
		TLSSlot:   tlsSlot,
	}
	ts.suspendCond = sync.NewCond(&ts.suspendMu)
	ctx.ThreadState = unsafe.Pointer(ts)
	return ts
}

// Bind pins the calling OS thread to ts for the duration of a call
// into generated code: runtime.LockOSThread keeps the OS thread
// identity stable, and active records it so a host-side callback
// reached from inside that generated code (a trap handler, a kernel
// shim) can recover ts via Active without a parameter thread all the
// way through.
func (ts *ThreadState) Bind() {
	runtime.LockOSThread()
	ts.osTID = unix.Gettid()
	active.Store(ts.osTID, ts)
}

// Unbind reverses Bind.
func (ts *ThreadState) Unbind() {
	active.Delete(ts.osTID)
	runtime.UnlockOSThread()
}

// Active returns the ThreadState bound to the calling OS thread, or
// nil if this thread has never called Bind.
func Active() *ThreadState {
	v, ok := active.Load(unix.Gettid())
	if !ok {
		return nil
	}
	return v.(*ThreadState)
}

// Suspend requests ts stop at its next CheckSuspend call. The thread
// keeps running until it reaches such a call; it is never stopped
// mid-instruction.
func (ts *ThreadState) Suspend() {
	ts.suspendMu.Lock()
	ts.suspendReq = true
	ts.suspendMu.Unlock()
}

// Resume releases an outstanding Suspend.
func (ts *ThreadState) Resume() {
	ts.suspendMu.Lock()
	ts.suspendReq = false
	ts.suspended = false
	ts.suspendCond.Broadcast()
	ts.suspendMu.Unlock()
}

// CheckSuspend blocks the calling goroutine while a Suspend is
// outstanding. It blocks only where a caller invokes it; neither the
// runtime's resolve path nor generated code calls it.
func (ts *ThreadState) CheckSuspend() {
	ts.suspendMu.Lock()
	for ts.suspendReq {
		ts.suspended = true
		ts.suspendCond.Wait()
	}
	ts.suspendMu.Unlock()
}

// Suspended reports whether ts is currently parked in CheckSuspend.
func (ts *ThreadState) Suspended() bool {
	ts.suspendMu.Lock()
	defer ts.suspendMu.Unlock()
	return ts.suspended
}
