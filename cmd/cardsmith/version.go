package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/japaniel/cardsmith/pkg/anki"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "0.1.0"

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cardsmith %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "  Go:          %s\n", runtime.Version())
			fmt.Fprintf(cmd.OutOrStdout(), "  AnkiConnect: v%d\n", anki.APIVersion)
		},
	}
}
