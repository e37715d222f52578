package runtime

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// Module is a loaded guest executable's symbol database: every
// function and variable address the runtime has seen within this
// module's range, keyed for O(1) lookup and ordered for deterministic
// dump output.
type Module struct {
	Name string
	Base uint32
	Size uint32

	mu      sync.Mutex
	symbols map[uint32]*SymbolInfo
	order   []*SymbolInfo
}

// NewModule returns an empty Module covering the guest address range
// [base, base+size).
func NewModule(name string, base, size uint32) *Module {
	return &Module{Name: name, Base: base, Size: size, symbols: map[uint32]*SymbolInfo{}}
}

// Contains reports whether addr falls within this module's range.
func (m *Module) Contains(addr uint32) bool {
	return addr >= m.Base && uint64(addr) < uint64(m.Base)+uint64(m.Size)
}

// Lookup returns the symbol already recorded at addr, or nil.
func (m *Module) Lookup(addr uint32) *SymbolInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.symbols[addr]
}

// declareFunction returns the function symbol at addr, first
// inserting a StatusNew one if this is the first time the module has
// seen this address. Safe for concurrent callers; the caller that
// receives a freshly-inserted (StatusNew) symbol back is the one
// responsible for driving it through the rest of the state machine,
// in practice always EntryTable's single resolve winner for addr,
// since Module never hands out the same fresh symbol twice.
func (m *Module) declareFunction(addr uint32) *SymbolInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.symbols[addr]; ok {
		return s
	}
	s := &SymbolInfo{Kind: SymbolFunction, Module: m, Address: addr, Name: defaultName(addr)}
	m.symbols[addr] = s
	m.order = append(m.order, s)
	return s
}

// FunctionContaining returns the defined function symbol whose
// [Address, EndAddress) range contains addr, or nil. Used by the
// debugger to find which (if any) already-compiled function a
// breakpoint address falls inside.
func (m *Module) FunctionContaining(addr uint32) *SymbolInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.order {
		if s.Kind == SymbolFunction && s.Status() == StatusDefined && addr >= s.Address && addr < s.EndAddress {
			return s
		}
	}
	return nil
}

// ReadMap parses a linker-produced module map and assigns names to
// this module's symbol table, per spec's "  <ignored> <name>
// <hex-address> <type>" line format (type 'f' for a function, anything
// else for a variable). Lines with fewer than four whitespace-
// separated fields, or an unparseable address, are skipped rather than
// treated as fatal: real map files carry section-header and blank
// lines this format doesn't describe.
func (m *Module) ReadMap(r io.Reader) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 {
			continue
		}
		name := fields[1]
		addr64, err := strconv.ParseUint(strings.TrimPrefix(fields[2], "0x"), 16, 32)
		if err != nil {
			continue
		}
		addr := uint32(addr64)
		kind := SymbolVariable
		if fields[3] == "f" {
			kind = SymbolFunction
		}

		m.mu.Lock()
		s, ok := m.symbols[addr]
		if !ok {
			s = &SymbolInfo{Kind: kind, Module: m, Address: addr}
			m.symbols[addr] = s
			m.order = append(m.order, s)
		}
		s.Name = name
		m.mu.Unlock()
	}
	return sc.Err()
}

// Dump writes one line per known symbol, in discovery order, for the
// dump_module_map external interface and the `xenia-go dump` CLI
// subcommand.
func (m *Module) Dump(w io.Writer) error {
	m.mu.Lock()
	symbols := append([]*SymbolInfo(nil), m.order...)
	m.mu.Unlock()

	if _, err := fmt.Fprintf(w, "# module %s base=%08x size=%08x\n", m.Name, m.Base, m.Size); err != nil {
		return err
	}
	for _, s := range symbols {
		if _, err := fmt.Fprintf(w, "%08x %s %s %s\n", s.Address, s.Kind, s.Status(), s.Name); err != nil {
			return err
		}
	}
	return nil
}
