package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/xenia-project/xenia-sub034/internal/config"
	"github.com/xenia-project/xenia-sub034/internal/frontend/ppc"
	"github.com/xenia-project/xenia-sub034/internal/hir"
	"github.com/xenia-project/xenia-sub034/internal/hir/pass"
)

// runDump translates a single guest function and prints its HIR, after
// the same ContextPromotion/Simplify/ConstProp/DCE pipeline
// ResolveFunction runs on it.
func runDump(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	var img imageFlags
	img.register(fs)
	raw := fs.Bool("raw", false, "skip the optimization pipeline, dump the frontend's output as-is")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if img.addr == "" {
		return fmt.Errorf("-addr is required")
	}
	entry, err := parseHex32(img.addr)
	if err != nil {
		return err
	}

	mem, mod, err := img.load()
	if err != nil {
		return err
	}
	defer mem.Close()

	name := fmt.Sprintf("sub_%08X", entry)
	if sym := mod.Lookup(entry); sym != nil {
		name = sym.Name
	}

	fe := ppc.New(mem)
	fn, err := fe.TranslateFunction(name, entry)
	if err != nil {
		return fmt.Errorf("translating %s: %w", name, err)
	}

	if !*raw {
		pass.RunWithOptions(fn, pass.Options{StoreAllContextValues: cfg.StoreAllContextValues})
	}

	fmt.Fprint(os.Stdout, hir.Dump(fn))
	return nil
}
