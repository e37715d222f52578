package x64

import (
	"fmt"

	"github.com/xenia-project/xenia-sub034/internal/backend"
	"github.com/xenia-project/xenia-sub034/internal/hir"
	pctx "github.com/xenia-project/xenia-sub034/internal/ppc/context"
)

// blockBuf accumulates one basic block's pseudo-instructions. Compiler
// hands instructions to LowerInstr/LowerBranches in reverse program
// order (bottom-up selection), so each new group is linked in at the
// head; by EndBlock the list reads in forward program order.
type blockBuf struct {
	id         int
	head, tail *inst
	label      targetLabel
}

func (b *blockBuf) prepend(first, last *inst) {
	if b.head != nil {
		b.head.prev = last
		last.next = b.head
	} else {
		b.tail = last
	}
	b.head = first
}

// pushHead links a single already-built inst at the block's head.
func (b *blockBuf) pushHead(i *inst) { b.prepend(i, i) }

// Machine implements backend.Machine for the x86-64 SysV target.
type Machine struct {
	cc backend.CompilationContext

	f   *hir.Function
	cur *blockBuf

	blocks    []*blockBuf
	blockByID map[int]*blockBuf

	// curGuestPC is the guest PC most recently latched by an
	// OpSourceOffset marker; LowerInstr stamps it onto the seq head of
	// every instruction lowered until the next marker.
	curGuestPC uint32

	code []byte

	// sourceMap collects (guestPC, hirOrdinal, hostOffset) triples as
	// instructions are encoded, sorted by hostOffset for EndFunction's
	// caller.
	SourceMap []SourceMapEntry

	// CallRelocs records, for the most recent EndFunction, every
	// iCallRel site's code offset and target symbol, so the runtime's
	// symbol resolver can patch in the real rel32 once the callee's
	// address is known (see thunk.go).
	CallRelocs []CallReloc

	spillSlots int32 // count of 8-byte slots handed out below RBP
	paramVReg  backend.VReg
}

// SourceMapEntry maps one instruction's host code offset back to the
// guest PC and HIR instruction ordinal it was translated from, so a
// JIT fault or the debugger can resolve a host PC to guest state.
type SourceMapEntry struct {
	HostOffset int32
	GuestPC    uint32
	HIROrdinal int
}

// NewMachine returns a fresh x64 Machine.
func NewMachine() *Machine {
	return &Machine{blockByID: make(map[int]*blockBuf)}
}

func (m *Machine) SetCompilationContext(cc backend.CompilationContext) { m.cc = cc }

func (m *Machine) StartFunction(f *hir.Function) {
	m.f = f
	m.blocks = m.blocks[:0]
	for k := range m.blockByID {
		delete(m.blockByID, k)
	}
	m.code = nil
	m.SourceMap = nil
	m.CallRelocs = nil
	m.spillSlots = 0
	m.curGuestPC = 0
	m.paramVReg = m.cc.ParamVReg()
}

func (m *Machine) StartBlock(blk *hir.BasicBlock) {
	b := &blockBuf{id: blk.ID()}
	m.cur = b
	m.blocks = append(m.blocks, b)
	m.blockByID[blk.ID()] = b
}

func (m *Machine) EndBlock() { m.cur = nil }

func (m *Machine) EndFunction() {
	m.assignPrologueMove()
	insts := m.flatten()
	insts = m.allocateRegisters(insts)
	m.code, m.SourceMap = m.encodeAll(insts)
}

func (m *Machine) Reset() {
	m.f = nil
	m.cur = nil
	m.blocks = nil
	for k := range m.blockByID {
		delete(m.blockByID, k)
	}
	m.code = nil
	m.SourceMap = nil
	m.CallRelocs = nil
	m.spillSlots = 0
}

// Code returns the machine code produced by the most recent
// EndFunction.
func (m *Machine) Code() []byte { return m.code }

// flatten concatenates every block's instruction list, in StartBlock
// order (the function's reverse postorder, i.e. forward program
// order), into one doubly-linked chain and records each block's entry
// instruction so branch lowering can resolve targets.
func (m *Machine) flatten() *inst {
	var head, tail *inst
	for _, b := range m.blocks {
		if b.head == nil {
			continue
		}
		if head == nil {
			head = b.head
		} else {
			tail.next = b.head
			b.head.prev = tail
		}
		tail = b.tail
	}
	return head
}

// assignPrologueMove inserts "paramVReg <- RDI" at the very front of
// the entry block: the SysV ABI delivers the *ppc.Context pointer in
// RDI, and from here on the value is just an ordinary VReg the
// allocator is free to place anywhere (including spilling it, for a
// function with enough live context-offset reads that RDI's register
// pressure isn't worth pinning).
func (m *Machine) assignPrologueMove() {
	if len(m.blocks) == 0 {
		return
	}
	entry := m.blocks[0]
	mv := &inst{op: iMovRR, size: 8, dst: m.paramVReg}
	mv.src1Loc = loc{reg: RDI, isReg: true}
	mv.src1Fixed = true
	entry.prepend(mv, mv)
}

// membaseOffset is the byte offset of Context.Membase, computed once
// via the shared Offsets descriptor so it can never drift from the
// struct this engine's context package defines.
var membaseOffset = int32(pctx.Offsets.Membase)

func unsupported(op hir.Opcode) {
	panic(fmt.Sprintf("x64: opcode %s has no lowering", op))
}
