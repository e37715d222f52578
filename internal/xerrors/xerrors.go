// Package xerrors defines the typed error kinds used across the
// guest-code execution engine, per the error taxonomy of the engine's
// design: decode/translation/IR/emit/alloc/address/state errors and
// traps each take a distinct path so callers can branch on kind
// without string matching.
package xerrors

import (
	"errors"
	"fmt"
)

// Kind identifies which stage of the pipeline raised an error.
type Kind int

const (
	// KindDecode marks an unknown or reserved guest instruction encoding.
	KindDecode Kind = iota
	// KindTranslation marks a front end rejecting an instruction sequence.
	KindTranslation
	// KindIR marks an HIR invariant violation, caught in debug builds.
	KindIR
	// KindEmit marks a back end failing to lay out a function.
	KindEmit
	// KindAlloc marks code-cache or guest-memory exhaustion.
	KindAlloc
	// KindAddress marks a guest address outside any module's range.
	KindAddress
	// KindState marks an impossible symbol-table state transition; fatal.
	KindState
	// KindTrap marks a runtime trap raised by TRAP/DEBUG_BREAK or a fault handler.
	KindTrap
)

func (k Kind) String() string {
	switch k {
	case KindDecode:
		return "decode"
	case KindTranslation:
		return "translation"
	case KindIR:
		return "ir"
	case KindEmit:
		return "emit"
	case KindAlloc:
		return "alloc"
	case KindAddress:
		return "address"
	case KindState:
		return "state"
	case KindTrap:
		return "trap"
	default:
		return "unknown"
	}
}

// Error is the concrete error type carrying a Kind plus context.
type Error struct {
	Kind    Kind
	Message string
	Addr    uint32
	Cause   error
}

func (e *Error) Error() string {
	if e.Addr != 0 {
		return fmt.Sprintf("%s: %s (addr=0x%08x)", e.Kind, e.Message, e.Addr)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is allows errors.Is(err, target) matching against any *Error target,
// such as this package's sentinel errors, by comparing the Kind field
// directly.
func (e *Error) Is(target error) bool {
	var o *Error
	if errors.As(target, &o) {
		return e.Kind == o.Kind
	}
	return false
}

// New builds an *Error of the given kind.
func New(k Kind, msg string) *Error {
	return &Error{Kind: k, Message: msg}
}

// Newf builds an *Error of the given kind with a formatted message.
func Newf(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Message: fmt.Sprintf(format, args...)}
}

// At attaches a guest address to an existing error, returning a new one.
func (e *Error) At(addr uint32) *Error {
	n := *e
	n.Addr = addr
	return &n
}

// Wrap attaches a causing error, returning a new one.
func (e *Error) Wrap(cause error) *Error {
	n := *e
	n.Cause = cause
	return &n
}

// IsFatal reports whether errors of this kind are specified as fatal
// to the whole runtime rather than scoped to a single compilation.
func (k Kind) IsFatal() bool {
	return k == KindState || k == KindTrap
}

// Decode/Translation/IR/Emit/Alloc/Address/State/Trap are convenience
// sentinels for errors.Is comparisons against a Kind alone.
var (
	Decode      = &Error{Kind: KindDecode}
	Translation = &Error{Kind: KindTranslation}
	IR          = &Error{Kind: KindIR}
	Emit        = &Error{Kind: KindEmit}
	Alloc       = &Error{Kind: KindAlloc}
	Address     = &Error{Kind: KindAddress}
	State       = &Error{Kind: KindState}
	Trap        = &Error{Kind: KindTrap}
)
