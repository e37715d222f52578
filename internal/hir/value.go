package hir

// valueFlag is a bitset of per-Value properties.
type valueFlag uint8

const (
	valueFlagConstant valueFlag = 1 << iota
)

// Value is an SSA value: the result of exactly one defining Instruction,
// or a function parameter, or an inline constant. Values are arena
// allocated and never freed individually; their lifetime is the owning
// Function's.
type Value struct {
	ordinal int
	typ     Type
	flags   valueFlag

	// constant holds the bit pattern of a constant Value's payload when
	// valueFlagConstant is set: the raw bits for scalar types (reinterpreted
	// via math.Float32/64frombits for float types), and unused for
	// TypeVec128 constants, which carry their 128 bits out of line in
	// constVec.
	constant uint64
	constVec Vec128

	// def is the Instruction that produced this Value, or nil for a
	// function parameter or a constant.
	def *Instruction

	// uses is the head of this Value's doubly-linked Use list.
	uses *Use
}

// Vec128 is a 128-bit constant payload, mirrored from guest/memory's
// layout so HIR constant folding never needs to import that package.
type Vec128 struct {
	Lo, Hi uint64
}

// Ordinal returns v's position in allocation order, stable for the
// lifetime of the owning Function and used as the dump syntax's "v81"
// numbering.
func (v *Value) Ordinal() int { return v.ordinal }

// Type returns v's HIR type.
func (v *Value) Type() Type { return v.typ }

// IsConstant reports whether v carries an inline constant payload
// rather than being produced by an Instruction.
func (v *Value) IsConstant() bool { return v.flags&valueFlagConstant != 0 }

// ConstantBits returns the raw bit pattern of a scalar constant Value.
// Callers reinterpret via math.Float32frombits/Float64frombits for
// float types. Panics if v is not a scalar constant.
func (v *Value) ConstantBits() uint64 {
	if !v.IsConstant() || v.typ == TypeVec128 {
		panic("hir: ConstantBits on non-scalar-constant Value")
	}
	return v.constant
}

// ConstantVec128 returns the 128-bit payload of a vector constant Value.
func (v *Value) ConstantVec128() Vec128 {
	if !v.IsConstant() || v.typ != TypeVec128 {
		panic("hir: ConstantVec128 on non-vector-constant Value")
	}
	return v.constVec
}

// Def returns the Instruction that defines v, or nil if v is a
// parameter or constant.
func (v *Value) Def() *Instruction { return v.def }

// Uses returns the head of v's Use list; walk via Use.Next.
func (v *Value) Uses() *Use { return v.uses }

// NumUses counts v's uses by walking the Use list; DCE calls this once
// per candidate instruction rather than maintaining a running counter.
func (v *Value) NumUses() int {
	n := 0
	for u := v.uses; u != nil; u = u.next {
		n++
	}
	return n
}

// addUse links a new Use for (user, operandIndex) at the head of v's
// Use list.
func (v *Value) addUse(u *Use) {
	u.next = v.uses
	if v.uses != nil {
		v.uses.prev = u
	}
	v.uses = u
}

// removeUse unlinks u from its Value's Use list. Called when an operand
// is rewritten or its owning Instruction is deleted.
func (v *Value) removeUse(u *Use) {
	if u.prev != nil {
		u.prev.next = u.next
	} else {
		v.uses = u.next
	}
	if u.next != nil {
		u.next.prev = u.prev
	}
	u.next, u.prev = nil, nil
}

// ReplaceAllUses rewrites every consumer of v to reference newVal
// instead, emptying v's use list; used by simplify/constprop/context
// promotion once a Value has been proven equal to another. The
// replaced instructions' operand slots are updated directly rather
// than through Instruction.ReplaceOperand to avoid re-walking v's
// (already-being-drained) use list per call.
func (v *Value) ReplaceAllUses(newVal *Value) {
	if v == newVal {
		return
	}
	u := v.uses
	for u != nil {
		next := u.next
		inst := u.User
		inst.operands[u.OperandIndex].Value = newVal
		u.next, u.prev = nil, nil
		newVal.addUse(u)
		u.Value = newVal
		u = next
	}
	v.uses = nil
}

// Use records that Instruction User consumes Value Value at operand
// index OperandIndex; Use records form a doubly-linked list per Value
// so a pass can walk every consumer of a Value without scanning the
// whole function.
type Use struct {
	Value        *Value
	User         *Instruction
	OperandIndex int

	next, prev *Use
}

// Next returns the next Use in the defining Value's use list.
func (u *Use) Next() *Use { return u.next }
