package cmd

import (
	"fmt"

	"github.com/VoxDroid/shguard/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "shguard %s\n", version.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
