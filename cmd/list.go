package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rpanzer-aviatrix/speedtest/internal/config"
	"github.com/rpanzer-aviatrix/speedtest/internal/output"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the configured test files",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load(configPath)
			if err != nil {
				output.PrintError("Failed to load configuration")
				os.Exit(1)
			}
			output.PrintHeader("Configured test files")
			for _, spec := range cfg.Files() {
				output.PrintDetail(fmt.Sprintf("%s %-7s %-7s %s", output.StyleSymbols["bullet"], spec.Key, spec.DisplaySize, spec.URL))
			}
		},
	}
	return cmd
}
