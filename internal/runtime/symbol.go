package runtime

import (
	"fmt"
	"sync/atomic"

	"github.com/xenia-project/xenia-sub034/internal/hir"
)

// SymbolKind distinguishes a function symbol (translated and compiled
// into host code) from a variable symbol (a named address only, for
// disassembly/dump purposes).
type SymbolKind int

const (
	SymbolFunction SymbolKind = iota
	SymbolVariable
)

func (k SymbolKind) String() string {
	if k == SymbolFunction {
		return "f"
	}
	return "v"
}

// SymbolStatus is one state in a symbol's New -> Declaring -> Declared
// -> Defining -> Defined|Failed lifecycle. EntryTable's coarser
// New/Resolving/Ready/Failed is a projection of this: Resolving spans
// Declaring, Declared, and Defining.
type SymbolStatus int32

const (
	StatusNew SymbolStatus = iota
	StatusDeclaring
	StatusDeclared
	StatusDefining
	StatusDefined
	StatusFailed
)

func (s SymbolStatus) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusDeclaring:
		return "declaring"
	case StatusDeclared:
		return "declared"
	case StatusDefining:
		return "defining"
	case StatusDefined:
		return "defined"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SymbolInfo is one entry in a Module's symbol database: a guest
// address, what the runtime currently knows about it, and, once a
// function symbol reaches StatusDefined, the materialized HIR and
// compiled code behind it.
type SymbolInfo struct {
	Kind       SymbolKind
	Module     *Module
	Address    uint32
	EndAddress uint32 // functions only, set on reaching StatusDeclared
	Name       string // "sub_XXXXXXXX" default, or a module-map name

	status int32 // atomic SymbolStatus

	Function *hir.Function
	Code     []byte
	HostAddr uintptr

	// Breakpoints holds the guest addresses of breakpoints installed
	// within [Address, EndAddress) at the time this symbol was defined.
	Breakpoints []uint32
}

// Status returns the symbol's current lifecycle state.
func (s *SymbolInfo) Status() SymbolStatus {
	return SymbolStatus(atomic.LoadInt32(&s.status))
}

func (s *SymbolInfo) setStatus(v SymbolStatus) {
	atomic.StoreInt32(&s.status, int32(v))
}

func (s *SymbolInfo) String() string {
	return fmt.Sprintf("%s %08x %s %s", s.Kind, s.Address, s.Status(), s.Name)
}

// defaultName is the "sub_XXXXXXXX" convention internal/frontend/ppc's
// translate_branch.go's symbolFor uses for an unnamed function's Call
// operand; reconstructed here (rather than imported) since that helper
// is package-private to ppc and the two must still agree byte-for-byte
// for symbolAddr's reverse parse in runtime.go to round-trip.
func defaultName(addr uint32) string { return fmt.Sprintf("sub_%08X", addr) }
