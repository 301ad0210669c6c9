package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kos-lang/kos/driver"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var compileCmd = &cobra.Command{
	Use:   "compile [flags] source_file",
	Short: "compile a Kos source file into a module object.",
	Long: `Compile a single .kos source file (plus anything it imports, resolved
against the module search path) and print a summary of the compiled
module. Diagnostics are printed as "file:line:column: error: message"
with the offending source line and a caret.`,
	Args: cobra.ExactArgs(1),
	Run:  runCompile,
}

func init() {
	compileCmd.Flags().StringP("command", "c", "", "compile the given command string instead of a file")
}

func runCompile(cmd *cobra.Command, args []string) {
	cfg, drv := newDriver(cmd)
	res, name := compileTarget(cmd, drv, args)

	for _, w := range drv.Warnings() {
		fmt.Fprintln(os.Stderr, w.Error())
	}

	mod := res.Module
	fmt.Printf("compiled %s: %d constants, %d bytes of code, %d globals, %d optimizer passes\n",
		name, len(mod.Constants), len(mod.Code), len(mod.Globals), res.Passes)

	if cfg.Disasm {
		fmt.Print(disassemble(mod))
	}
}

// newDriver builds the shared driver/config pair every subcommand uses,
// wiring -v/-vv into the log level.
func newDriver(cmd *cobra.Command) (driver.Config, *driver.Driver) {
	verbosity, _ := cmd.Flags().GetCount("verbose")
	switch {
	case verbosity >= 2:
		log.SetLevel(log.TraceLevel)
	case verbosity == 1:
		log.SetLevel(log.DebugLevel)
	}

	cfg := driver.ConfigFromEnv()
	cfg.Log = log.StandardLogger()
	return cfg, driver.New(cfg)
}

// compileTarget compiles either the -c command string or the named file,
// exiting with status 1 on the first fatal diagnostic.
func compileTarget(cmd *cobra.Command, drv *driver.Driver, args []string) (driver.Result, string) {
	if cmdStr, _ := cmd.Flags().GetString("command"); cmdStr != "" {
		res, err := drv.CompileSource("<command>", "<command>", cmdStr)
		if err != nil {
			fail(err)
		}
		return res, "<command>"
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		fail(err)
	}
	name := strings.TrimSuffix(filepath.Base(path), ".kos")
	res, cerr := drv.CompileSource(name, path, string(data))
	if cerr != nil {
		fail(cerr)
	}
	return res, name
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}
