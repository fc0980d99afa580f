// Command asmjsgen drives the asm.js backend core over one or more
// serialized IR module fixtures. It mirrors cmd/surge's command-tree shape
// (persistent --color/--quiet flags, a version subcommand) since the
// front-end that would normally produce the IR is out of scope for this
// module (spec §1) — asmjsgen exists so the backend can be exercised and
// tested end to end without one.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Maher4Ever/emscripten-fastcomp/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "asmjsgen",
	Short: "Lower a legalized IR module to asm.js-style JavaScript",
	Long:  `asmjsgen translates a low-level, typed, SSA-form IR module into a statically-typeable subset of JavaScript.`,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(emitCmd)
	rootCmd.AddCommand(asmjsVersionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
