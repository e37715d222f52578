package x64

import (
	"sort"

	"github.com/xenia-project/xenia-sub034/internal/backend"
)

// interval is a VReg's live range, expressed as positions in the
// flattened instruction order. Since this engine's HIR never carries
// a value across a block boundary (ContextPromotion round-trips
// everything through load_context/store_context instead), every
// VReg's live range is confined to the block it's defined in, which
// is what lets a single whole-function linear scan double as a
// correct per-block allocator: no interval can span the header of a
// block it wasn't defined in.
type interval struct {
	vreg       backend.VReg
	start, end int
	regType    backend.RegType
}

// allocateRegisters assigns every VReg referenced in insts (a
// flattened, forward-ordered instruction chain) to a RealReg or a
// spill slot, via linear scan over the position-ordered intervals,
// and resolves every non-fixed operand's loc in place. Returns insts
// unchanged (locs are filled in by reference).
func (m *Machine) allocateRegisters(insts *inst) *inst {
	order := toSlice(insts)
	intervals := computeIntervals(m.cc, order)

	sort.Slice(intervals, func(i, j int) bool { return intervals[i].start < intervals[j].start })

	assign := make(map[backend.VReg]loc, len(intervals))

	var activeGPR, activeXMM []activeInterval
	freeGPR := append([]backend.RealReg(nil), allocatableGPR...)
	freeXMM := append([]backend.RealReg(nil), allocatableXMM...)

	for _, iv := range intervals {
		if iv.regType == backend.RegTypeInt {
			freeGPR = expireOld(&activeGPR, iv.start, freeGPR)
		} else {
			freeXMM = expireOld(&activeXMM, iv.start, freeXMM)
		}

		var l loc
		if iv.regType == backend.RegTypeInt {
			if len(freeGPR) > 0 {
				r := freeGPR[0]
				freeGPR = freeGPR[1:]
				l = loc{reg: r, isReg: true}
				activeGPR = append(activeGPR, activeInterval{iv, r})
			} else {
				l = m.newSpillSlot()
			}
		} else {
			if len(freeXMM) > 0 {
				r := freeXMM[len(freeXMM)-1]
				freeXMM = freeXMM[:len(freeXMM)-1]
				l = loc{reg: r, isReg: true}
				activeXMM = append(activeXMM, activeInterval{iv, r})
			} else {
				l = m.newSpillSlot()
			}
		}
		assign[iv.vreg] = l
	}

	resolve(order, assign)
	return insts
}

type activeInterval struct {
	iv  interval
	reg backend.RealReg
}

// expireOld removes from active every interval whose end is before
// pos, returning its register to the free pool.
func expireOld(active *[]activeInterval, pos int, free []backend.RealReg) []backend.RealReg {
	kept := (*active)[:0]
	for _, a := range *active {
		if a.iv.end < pos {
			free = append(free, a.reg)
		} else {
			kept = append(kept, a)
		}
	}
	*active = kept
	return free
}

func (m *Machine) newSpillSlot() loc {
	m.spillSlots++
	return loc{isReg: false, spillOff: -8 * m.spillSlots}
}

func toSlice(head *inst) []*inst {
	var out []*inst
	for i := head; i != nil; i = i.next {
		out = append(out, i)
	}
	return out
}

// computeIntervals derives one interval per referenced VReg by
// scanning the instruction order once, recording each VReg's first
// def/use and updating its last use as it goes, skipping operands marked
// Fixed (those already carry a concrete loc from lowering).
func computeIntervals(cc backend.CompilationContext, order []*inst) []interval {
	first := make(map[backend.VReg]int)
	last := make(map[backend.VReg]int)
	seen := make(map[backend.VReg]bool)

	touch := func(v backend.VReg, pos int) {
		if !v.Valid() {
			return
		}
		if !seen[v] {
			seen[v] = true
			first[v] = pos
		}
		last[v] = pos
	}

	for pos, in := range order {
		if !in.dstFixed && in.dst.Valid() {
			touch(in.dst, pos)
		}
		if !in.src1Fixed {
			touch(in.src1, pos)
		}
		if !in.src2Fixed {
			touch(in.src2, pos)
		}
		if !in.dstFixed && in.memBase.Valid() {
			touch(in.memBase, pos)
		}
	}

	out := make([]interval, 0, len(seen))
	for v := range seen {
		out = append(out, interval{vreg: v, start: first[v], end: last[v], regType: cc.RegTypeOfVReg(v)})
	}
	return out
}

// resolve writes each instruction's final dstLoc/src1Loc/src2Loc from
// the assignment map, leaving Fixed operands (already pre-resolved by
// lowering) untouched.
func resolve(order []*inst, assign map[backend.VReg]loc) {
	for _, in := range order {
		if !in.dstFixed && in.dst.Valid() {
			in.dstLoc = assign[in.dst]
		}
		if !in.src1Fixed && in.src1.Valid() {
			in.src1Loc = assign[in.src1]
		}
		if !in.src2Fixed && in.src2.Valid() {
			in.src2Loc = assign[in.src2]
		}
		if !in.dstFixed && in.memBase.Valid() {
			in.memBaseLoc = assign[in.memBase]
		}
	}
}
