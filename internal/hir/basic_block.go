package hir

// BasicBlock is a maximal straight-line run of Instructions ending in a
// single terminator (branch, conditional branch, return, or trap).
// Blocks are arena allocated and form the Function's control-flow graph
// via preds/succs, discovered as the front end builds branches.
type BasicBlock struct {
	id int

	label Label

	head, tail *Instruction

	preds, succs []*BasicBlock

	// params holds this block's incoming values for blocks reached by
	// more than one predecessor with divergent context-register state;
	// no pass in this package's pipeline populates it.
	params []*Value

	sealed bool
}

// ID returns b's identifier, stable within its owning Function.
func (b *BasicBlock) ID() int { return b.id }

// Label returns a Label targeting b, suitable for use as a branch
// operand.
func (b *BasicBlock) Label() *Label {
	b.label.Block = b
	return &b.label
}

// Head returns the first Instruction in b, or nil if b is empty.
func (b *BasicBlock) Head() *Instruction { return b.head }

// Tail returns the last Instruction in b (its terminator, once built),
// or nil if b is empty.
func (b *BasicBlock) Tail() *Instruction { return b.tail }

// Preds returns b's predecessor blocks.
func (b *BasicBlock) Preds() []*BasicBlock { return b.preds }

// Succs returns b's successor blocks.
func (b *BasicBlock) Succs() []*BasicBlock { return b.succs }

// Terminator returns b's terminating Instruction, or nil if b has not
// been terminated yet.
func (b *BasicBlock) Terminator() *Instruction {
	if b.tail != nil && b.tail.opcode.IsTerminator() {
		return b.tail
	}
	return nil
}

// IsTerminated reports whether b already ends in a terminator; the
// builder rejects appending further instructions once true.
func (b *BasicBlock) IsTerminated() bool { return b.Terminator() != nil }

// append links inst as b's new tail.
func (b *BasicBlock) append(inst *Instruction) {
	inst.block = b
	inst.prev = b.tail
	inst.next = nil
	if b.tail != nil {
		b.tail.next = inst
	} else {
		b.head = inst
	}
	b.tail = inst
}

// remove unlinks inst from b's instruction list. Used by DCE.
func (b *BasicBlock) remove(inst *Instruction) {
	if inst.prev != nil {
		inst.prev.next = inst.next
	} else {
		b.head = inst.next
	}
	if inst.next != nil {
		inst.next.prev = inst.prev
	} else {
		b.tail = inst.prev
	}
	inst.prev, inst.next = nil, nil
}

// addEdge records edge b -> s in both directions, skipping duplicates
// (a block that branches to the same target on both arms of a
// conditional still has one CFG edge).
func addEdge(b, s *BasicBlock) {
	for _, e := range b.succs {
		if e == s {
			return
		}
	}
	b.succs = append(b.succs, s)
	s.preds = append(s.preds, b)
}
