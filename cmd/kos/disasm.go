package main

import (
	"fmt"
	"strings"

	"github.com/kos-lang/kos/bytecode"
	"github.com/kos-lang/kos/constant"
	"github.com/kos-lang/kos/module"

	"github.com/spf13/cobra"
)

var disasmCmd = &cobra.Command{
	Use:   "disasm [flags] source_file",
	Short: "compile a Kos source file and print its bytecode.",
	Long: `Compile a single .kos source file and print every function's bytecode,
one instruction per line, annotated with source line numbers from the
module's address-to-line map.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_, drv := newDriver(cmd)
		res, _ := compileTarget(cmd, drv, args)
		fmt.Print(disassemble(res.Module))
	},
}

// disassemble renders every Function constant of mod, instruction by
// instruction, with a source-line column resolved through the line map.
func disassemble(mod *module.CompiledModule) string {
	var b strings.Builder
	for idx, e := range mod.Constants {
		if e.Kind != constant.Function {
			continue
		}
		fn := e.Fn
		fmt.Fprintf(&b, "fun %s (constant %d, %d registers, %d instructions):\n",
			functionName(mod, idx), idx, fn.NumRegs, fn.NumInstructions)
		disassembleBody(&b, mod, fn)
	}
	return b.String()
}

func functionName(mod *module.CompiledModule, idx int) string {
	if idx == mod.TopLevelFunc {
		return "<module>"
	}
	fn := mod.Constants[idx].Fn
	if fn.NameIndex >= 0 && fn.NameIndex < len(mod.Constants) {
		if s := mod.Constants[fn.NameIndex]; s.Kind == constant.String {
			return s.Str
		}
	}
	return "<anonymous>"
}

func disassembleBody(b *strings.Builder, mod *module.CompiledModule, fn *constant.CompiledFunction) {
	body := mod.Code[fn.CodeOffset : fn.CodeOffset+fn.CodeSize]
	i := 0
	for i < len(body) {
		d, err := bytecode.Lookup(body[i])
		if err != nil {
			fmt.Fprintf(b, "  %04d ERROR: %s\n", i, err)
			i++
			continue
		}
		operands, read := bytecode.ReadOperands(d, bytecode.Instructions(body[i+1:]))
		line := mod.LineMap.LineFor(fn.CodeOffset + i)
		fmt.Fprintf(b, "  %4d: %04d %s", line, i, d.Name)
		for _, o := range operands {
			fmt.Fprintf(b, " %d", o)
		}
		b.WriteByte('\n')
		i += 1 + read
	}
}
