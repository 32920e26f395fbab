// Command nodeflow loads graph definitions and runs them in-process.
//
// Usage:
//
//	nodeflow [--config URL] [--base-url URL] [--json] <command> [flags]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/viant/nodeflow"
	"github.com/viant/nodeflow/internal/cli"
)

func main() {
	settings := &cli.Settings{}
	rootCmd := &cobra.Command{
		Use:           "nodeflow",
		Short:         "nodeflow dataflow engine",
		Version:       nodeflow.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&settings.ConfigURL, "config", "", "Engine config URL")
	rootCmd.PersistentFlags().StringVar(&settings.BaseURL, "base-url", "", "Base URL for relative graph locations")
	rootCmd.PersistentFlags().BoolVar(&settings.JSON, "json", false, "Output in JSON format")

	outputFn := func() *cli.Output { return cli.NewOutput(settings.JSON) }
	rootCmd.AddCommand(
		cli.NewRunCmd(settings, outputFn),
		cli.NewValidateCmd(settings, outputFn),
	)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
