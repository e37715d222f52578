package hir

import (
	"fmt"
	"strings"
)

// Dump renders f as text in the style "v81.i64 = load_context +88":
// one line per instruction, grouped under "blockN:" headers, in block
// allocation order (or ReversePostorder if finalize has already run).
func Dump(f *Function) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "function %s(", f.Name)
	for i, t := range f.ParamTypes {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "v%d.%s", f.params[i].ordinal, t)
	}
	sb.WriteString(")\n")

	blocks := f.order
	if blocks == nil {
		blocks = f.Blocks()
	}
	for _, blk := range blocks {
		fmt.Fprintf(&sb, "block%d:", blk.id)
		if len(blk.preds) > 0 {
			sb.WriteString(" ; preds:")
			for _, p := range blk.preds {
				fmt.Fprintf(&sb, " block%d", p.id)
			}
		}
		sb.WriteString("\n")
		for inst := blk.head; inst != nil; inst = inst.next {
			sb.WriteString("\t")
			dumpInstruction(&sb, inst)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func dumpInstruction(sb *strings.Builder, inst *Instruction) {
	sig := inst.opcode.Signature()
	if inst.result != nil {
		fmt.Fprintf(sb, "v%d.%s = ", inst.result.ordinal, inst.result.typ)
	}
	sb.WriteString(sig.Name)
	for n, kind := range sig.Operands {
		if kind == OperandNone {
			break
		}
		sb.WriteString(" ")
		dumpOperand(sb, inst.operands[n])
	}
}

func dumpOperand(sb *strings.Builder, o Operand) {
	switch o.Kind {
	case OperandValue:
		if o.Value == nil {
			sb.WriteString("<nil>")
			return
		}
		dumpValue(sb, o.Value)
	case OperandImmediate:
		if o.Imm >= 0 {
			fmt.Fprintf(sb, "+%d", o.Imm)
		} else {
			fmt.Fprintf(sb, "%d", o.Imm)
		}
	case OperandLabel:
		if o.Label == nil || o.Label.Block == nil {
			sb.WriteString("<unresolved>")
			return
		}
		fmt.Fprintf(sb, "block%d", o.Label.Block.id)
	case OperandSymbol:
		fmt.Fprintf(sb, "%q", o.Sym)
	}
}

func dumpValue(sb *strings.Builder, v *Value) {
	if v.IsConstant() {
		if v.typ == TypeVec128 {
			fmt.Fprintf(sb, "#%016x%016x", v.constVec.Hi, v.constVec.Lo)
			return
		}
		fmt.Fprintf(sb, "#%d", v.constant)
		return
	}
	fmt.Fprintf(sb, "v%d", v.ordinal)
}

// String implements fmt.Stringer for one-off debugging of a single
// Instruction outside a full Dump.
func (i *Instruction) String() string {
	var sb strings.Builder
	dumpInstruction(&sb, i)
	return sb.String()
}

// String implements fmt.Stringer for one-off debugging of a single
// Value outside a full Dump.
func (v *Value) String() string {
	var sb strings.Builder
	dumpValue(&sb, v)
	return sb.String()
}
