// Command xenia-go is the guest-code execution engine's offline
// tooling entry point: it either disassembles or HIR-dumps a guest
// function out of a flat memory image, following rcornwell-S370's
// command-tree shape (a table of named subcommands, each with its own
// flag set) reduced to this engine's two tools.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/xenia-project/xenia-sub034/internal/config"
)

type subcommand struct {
	name  string
	usage string
	run   func(cfg config.Config, args []string) error
}

var subcommands = []subcommand{
	{name: "dump", usage: "translate a guest function and print its HIR", run: runDump},
	{name: "disasm", usage: "disassemble guest code as PowerPC assembly", run: runDisasm},
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "xenia-go:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	top := flag.NewFlagSet("xenia-go", flag.ContinueOnError)
	configPath := top.String("config", "", "path to a config file (runtime_backend, store_all_context_values, dump_module_map)")
	top.Usage = printUsage

	if len(args) == 0 {
		top.Usage()
		return fmt.Errorf("missing subcommand")
	}

	// Global flags (e.g. "-config") must precede the subcommand name:
	// flag.FlagSet.Parse stops at the first non-flag argument, which is
	// the subcommand name, leaving the rest for that subcommand's own
	// flag set.
	if err := top.Parse(args); err != nil {
		return err
	}
	rest := top.Args()
	if len(rest) == 0 {
		top.Usage()
		return fmt.Errorf("missing subcommand")
	}
	name := rest[0]
	rest = rest[1:]

	cfg := config.Default()
	if *configPath != "" {
		f, err := os.Open(*configPath)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := cfg.ReadFile(f); err != nil {
			return err
		}
	}

	for _, sc := range subcommands {
		if sc.name == name {
			return sc.run(cfg, rest)
		}
	}
	top.Usage()
	return fmt.Errorf("unknown subcommand %q", name)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: xenia-go [-config file] <subcommand> [flags]")
	fmt.Fprintln(os.Stderr, "subcommands:")
	for _, sc := range subcommands {
		fmt.Fprintf(os.Stderr, "  %-8s %s\n", sc.name, sc.usage)
	}
}
