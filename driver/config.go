package driver

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Config carries everything the driver reads once at startup: the module
// search path and the environment hooks of the wider runtime
// (KOSDISASM, KOSINTERACTIVE, KOSNODEFAULTPATH).
type Config struct {
	// Paths is the ordered module search path. A module named "m" is
	// looked up as "<path>/m.kos" in each entry in turn.
	Paths []string

	// Disasm requests a disassembly dump after each successful
	// compilation (KOSDISASM=1).
	Disasm bool

	// Interactive forces interactive (1) or non-interactive (0) mode for
	// the embedding CLI; -1 leaves the decision to the CLI
	// (KOSINTERACTIVE unset).
	Interactive int

	// NoDefaultPath disables the built-in search paths
	// (KOSNODEFAULTPATH=1), leaving only Paths entries added explicitly.
	NoDefaultPath bool

	// Log receives compile-progress messages (pass counts, module cache
	// activity). Defaults to the logrus standard logger.
	Log *logrus.Logger
}

// ConfigFromEnv builds a Config from the process environment, applying
// the hooks of the module-loader boundary. The KOS_PATH variable, when
// set, seeds the search path with its OS-specific-separator-delimited
// entries.
func ConfigFromEnv() Config {
	cfg := Config{Interactive: -1}

	if os.Getenv("KOSDISASM") == "1" {
		cfg.Disasm = true
	}
	switch os.Getenv("KOSINTERACTIVE") {
	case "0":
		cfg.Interactive = 0
	case "1":
		cfg.Interactive = 1
	}
	if os.Getenv("KOSNODEFAULTPATH") == "1" {
		cfg.NoDefaultPath = true
	}

	if p := os.Getenv("KOS_PATH"); p != "" {
		for _, entry := range strings.Split(p, string(os.PathListSeparator)) {
			if entry != "" {
				cfg.Paths = append(cfg.Paths, entry)
			}
		}
	}
	if !cfg.NoDefaultPath {
		cfg.Paths = append(cfg.Paths, ".")
	}
	return cfg
}

func (c *Config) logger() *logrus.Logger {
	if c.Log != nil {
		return c.Log
	}
	return logrus.StandardLogger()
}

// findModuleFile resolves a module name against the search path,
// returning the first "<path>/<name>.kos" that exists.
func (c *Config) findModuleFile(name string) (string, bool) {
	for _, dir := range c.Paths {
		candidate := filepath.Join(dir, name+".kos")
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			return candidate, true
		}
	}
	return "", false
}
