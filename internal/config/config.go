// Package config parses the guest-code execution engine's external
// options (spec §6): runtime_backend, store_all_context_values, and
// dump_module_map. Flags take precedence over a config file, which
// takes precedence over the hardcoded defaults, and the parser is a
// hand-rolled line-oriented reader in the shape of
// rcornwell-S370/config/configparser's "# comment, key value" grammar,
// simplified to this engine's three flat options rather than that
// parser's per-device model/option grammar.
package config

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xenia-project/xenia-sub034/internal/xerrors"
)

// Config holds the resolved value of every external option.
type Config struct {
	// RuntimeBackend selects the code generator: "any", "ivm", or
	// "x64". Default "any".
	RuntimeBackend string
	// StoreAllContextValues disables ContextPromotion's dead-store
	// elimination. Default false.
	StoreAllContextValues bool
	// DumpModuleMap is a path to write a human-readable module symbol
	// dump to, or "" to skip it. Default "".
	DumpModuleMap string
}

// Default returns a Config with every option at its documented default.
func Default() Config {
	return Config{RuntimeBackend: "any"}
}

var validBackends = map[string]bool{"any": true, "ivm": true, "x64": true}

// Validate reports an error if c holds a value no known component
// understands.
func (c Config) Validate() error {
	if !validBackends[c.RuntimeBackend] {
		return xerrors.Newf(xerrors.KindState, "runtime_backend: unknown value %q", c.RuntimeBackend)
	}
	return nil
}

// ReadFile parses a line-oriented config file into cfg, overriding only
// the options it finds set. Lines are "key value" or "key = value";
// leading/trailing whitespace is trimmed, blank lines and lines whose
// first non-whitespace character is '#' are skipped. An unrecognized
// key is an error: this format has exactly three keys, not the open
// device/model vocabulary rcornwell-S370's parser supports.
func (cfg *Config) ReadFile(r io.Reader) error {
	sc := bufio.NewScanner(r)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, err := splitOption(line)
		if err != nil {
			return fmt.Errorf("config: line %d: %w", lineNum, err)
		}
		if err := cfg.set(key, value); err != nil {
			return fmt.Errorf("config: line %d: %w", lineNum, err)
		}
	}
	return sc.Err()
}

func splitOption(line string) (key, value string, err error) {
	if i := strings.IndexByte(line, '='); i >= 0 {
		return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:]), nil
	}
	fields := strings.SplitN(line, " ", 2)
	if len(fields) != 2 {
		return "", "", fmt.Errorf("expected \"key value\" or \"key = value\", got %q", line)
	}
	return strings.TrimSpace(fields[0]), strings.TrimSpace(fields[1]), nil
}

func (cfg *Config) set(key, value string) error {
	switch key {
	case "runtime_backend":
		cfg.RuntimeBackend = value
	case "store_all_context_values":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("store_all_context_values: %w", err)
		}
		cfg.StoreAllContextValues = b
	case "dump_module_map":
		cfg.DumpModuleMap = value
	default:
		return fmt.Errorf("unknown option %q", key)
	}
	return nil
}

// RegisterFlags binds cfg's fields to fs as the -runtime-backend,
// -store-all-context-values and -dump-module-map flags.
// Flags parsed against fs override whatever ReadFile already set.
func (cfg *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&cfg.RuntimeBackend, "runtime-backend", cfg.RuntimeBackend, "code generator: any, ivm, or x64")
	fs.BoolVar(&cfg.StoreAllContextValues, "store-all-context-values", cfg.StoreAllContextValues, "disable context-promotion dead-store elimination")
	fs.StringVar(&cfg.DumpModuleMap, "dump-module-map", cfg.DumpModuleMap, "path to write a human-readable module symbol dump to")
}
