// Command govern is the thin CLI entrypoint wiring the evaluation
// pipeline together: decode a fact document, validate it, build the
// indexed store, parse rule files, run the parallel rule engine, evaluate
// quality gates, and render a report. CLI ergonomics beyond this wiring
// (shell completion, config file search paths, interactive prompts) are
// out of scope; this is a thin dispatcher, not a product.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "govern",
	Short: "Multi-domain code governance and evaluation engine",
	Long: `govern evaluates a fact document (produced by an upstream extractor)
against a set of forbid/permit rules and quality gates, and reports the
result as SARIF, JSON, or a text table.`,
}

func main() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(versionCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the govern version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}
