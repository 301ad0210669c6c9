// Command kos is the front-end compiler driver: it compiles Kos source
// files to loadable module objects and can disassemble the result. It
// never executes bytecode — the VM, REPL, and module-loader runtime are
// separate collaborators.
package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version is filled when building with make, but *not* when installing
// via "go install".
var Version string

var rootCmd = &cobra.Command{
	Use:   "kos",
	Short: "A compiler for the Kos language.",
	Long: `A compiler for the Kos language: compiles .kos source files into
loadable module objects (bytecode, constant pool, globals, line map).`,
	Run: func(cmd *cobra.Command, args []string) {
		if flag, _ := cmd.Flags().GetBool("version"); flag {
			printVersion()
			return
		}
		// `kos file.kos` is shorthand for `kos compile file.kos`.
		if len(args) == 1 {
			runCompile(cmd, args)
			return
		}
		_ = cmd.Help()
	},
	Args: cobra.MaximumNArgs(1),
}

func printVersion() {
	fmt.Print("kos ")
	if Version != "" {
		fmt.Printf("%s", Version)
	} else if info, ok := debug.ReadBuildInfo(); ok {
		fmt.Printf("%s", info.Main.Version)
	} else {
		fmt.Printf("(unknown version)")
	}
	fmt.Println()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print the compiler version.",
	Run: func(cmd *cobra.Command, args []string) {
		printVersion()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "increase logging verbosity (-v debug, -vv trace)")
	rootCmd.Flags().Bool("version", false, "print the compiler version")
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(disasmCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
