package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/VoxDroid/shguard/internal/config"
	"github.com/VoxDroid/shguard/internal/logging"
)

// logger is configured from the persistent flags before any subcommand runs.
var logger = logging.Discard()

var rootCmd = &cobra.Command{
	Use:           "shguard",
	Short:         "shguard screens shell commands before they run",
	Long:          "shguard classifies shell command lines against a denylist of destructive operations and only executes the ones it allows",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		level, _ := cmd.Flags().GetString("log-level")
		format, _ := cmd.Flags().GetString("log-format")
		if level == "" {
			level = config.LogLevel()
		}
		if format == "" {
			format = config.LogFormat()
		}
		logger = logging.New(level, format, cmd.ErrOrStderr())
	},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Println("shguard: run 'shguard --help' to see available commands")
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (default from "+config.EnvLogLevel+" or info)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json (default from "+config.EnvLogFormat+" or text)")
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func decisionAttrs(command string, allowed bool, rule string) []any {
	return []any{slog.String("command", command), slog.Bool("allowed", allowed), slog.String("rule", rule)}
}
