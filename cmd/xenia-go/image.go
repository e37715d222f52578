package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/xenia-project/xenia-sub034/internal/guest/memory"
	"github.com/xenia-project/xenia-sub034/internal/runtime"
)

// imageFlags holds the flags every subcommand that reads a flat guest
// memory image shares.
type imageFlags struct {
	image   string
	base    string
	addr    string
	mapPath string
}

func (f *imageFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.image, "image", "", "path to a flat big-endian guest memory image")
	fs.StringVar(&f.base, "base", "0x82000000", "guest address the image is loaded at")
	fs.StringVar(&f.addr, "addr", "", "guest address of the function to process")
	fs.StringVar(&f.mapPath, "map", "", "optional linker module map file (spec §6 format)")
}

func parseHex32(s string) (uint32, error) {
	v, err := strconv.ParseUint(trimHexPrefix(s), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("parsing %q as a hex address: %w", s, err)
	}
	return uint32(v), nil
}

func trimHexPrefix(s string) string {
	if len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

const pageSize = 4096

// load reads the image file into a freshly allocated guest address
// space at base, builds one Module covering it (named by the image
// path as given, with its map file read in if given), and returns
// both; the Module is not registered with any Runtime here.
func (f *imageFlags) load() (*memory.Memory, *runtime.Module, error) {
	if f.image == "" {
		return nil, nil, fmt.Errorf("-image is required")
	}
	base, err := parseHex32(f.base)
	if err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(f.image)
	if err != nil {
		return nil, nil, err
	}

	size := (uint64(base) + uint64(len(data)) + pageSize - 1) &^ (pageSize - 1)
	if size == 0 {
		size = pageSize
	}
	mem, err := memory.New(uint32(size))
	if err != nil {
		return nil, nil, err
	}
	if err := mem.Commit(base, uint32(len(data))); err != nil {
		return nil, nil, err
	}
	for i, b := range data {
		mem.Store8(base+uint32(i), b)
	}

	mod := runtime.NewModule(f.image, base, uint32(len(data)))
	if f.mapPath != "" {
		mapFile, err := os.Open(f.mapPath)
		if err != nil {
			return nil, nil, err
		}
		defer mapFile.Close()
		if err := mod.ReadMap(mapFile); err != nil {
			return nil, nil, err
		}
	}
	return mem, mod, nil
}
