package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/xenia-project/xenia-sub034/internal/config"
	"github.com/xenia-project/xenia-sub034/internal/frontend/ppc/disasm"
)

// runDisasm prints count PowerPC instructions decoded from the image
// starting at -addr, one per line as "<addr>: <mnemonic>".
func runDisasm(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("disasm", flag.ContinueOnError)
	var img imageFlags
	img.register(fs)
	count := fs.Int("count", 16, "number of instructions to disassemble")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if img.addr == "" {
		return fmt.Errorf("-addr is required")
	}
	addr, err := parseHex32(img.addr)
	if err != nil {
		return err
	}
	if *count <= 0 {
		return fmt.Errorf("-count must be positive, got %d", *count)
	}

	mem, _, err := img.load()
	if err != nil {
		return err
	}
	defer mem.Close()

	for i := 0; i < *count; i++ {
		raw := mem.LoadSwap32(addr)
		fmt.Fprintf(os.Stdout, "%08X: %s\n", addr, disasm.Instruction(raw))
		addr += 4
	}
	return nil
}
