package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/VoxDroid/shguard/internal/audit"
	"github.com/VoxDroid/shguard/internal/executor"
	"github.com/VoxDroid/shguard/internal/security"
	"github.com/VoxDroid/shguard/internal/utils"
)

// newRunner builds the runner used by the run command. Tests replace it.
var newRunner = func(e *executor.Executor) executor.Runner { return e }

// confirm asks before running; tests replace it.
var confirm = utils.Confirm

var runCmd = &cobra.Command{
	Use:   "run [flags] -- <command...>",
	Short: "Check a command and run it if it is allowed",
	Long: `Check a shell command line against the safety guard and run it with the
platform shell when it is allowed. Blocked commands are never started.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dry, _ := cmd.Flags().GetBool("dry-run")
		confirmFlag, _ := cmd.Flags().GetBool("confirm")
		verbose, _ := cmd.Flags().GetBool("verbose")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		maxOutput, _ := cmd.Flags().GetInt("max-output")
		cwd, _ := cmd.Flags().GetString("cwd")
		allow, _ := cmd.Flags().GetStringArray("allow-pattern")
		restrict, _ := cmd.Flags().GetBool("restrict-workspace")
		noLog, _ := cmd.Flags().GetBool("no-log")

		command := executor.Sanitize(strings.Join(args, " "))
		if err := executor.ValidateCommand(command); err != nil {
			return err
		}

		policy, err := security.NewPolicy(nil, allow, restrict)
		if err != nil {
			return err
		}
		if cwd == "" && restrict {
			if wd, err := os.Getwd(); err == nil {
				cwd = wd
			}
		}

		d := policy.Evaluate(command, cwd)
		if d.Allowed {
			logger.Debug("run decision", decisionAttrs(command, d.Allowed, d.Rule)...)
		} else {
			logger.Warn("command blocked", append(decisionAttrs(command, d.Allowed, d.Rule), "reason", d.Reason)...)
		}

		var repo *audit.Repository
		var entryID int64
		if !noLog {
			r, closeLog, err := openLog()
			if err != nil {
				return err
			}
			defer closeLog()
			repo = r
			if entryID, err = repo.Record(audit.NewEntry(command, audit.SourceRun, cwd, d)); err != nil {
				return err
			}
		}

		if !d.Allowed {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), renderDecision(d))
			return d.Err()
		}

		if confirmFlag && !dry {
			if !confirm(fmt.Sprintf("Run '%s' now?", command)) {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "aborted")
				return nil
			}
		}

		e := &executor.Executor{
			DryRun:    dry,
			Verbose:   verbose,
			Timeout:   timeout,
			MaxOutput: maxOutput,
			Policy:    policy,
			Logger:    logger,
		}
		runErr := newRunner(e).Execute(context.Background(), command, cwd, os.Stdin, cmd.OutOrStdout(), cmd.ErrOrStderr())
		if repo != nil && !dry {
			if err := repo.SetExitCode(entryID, executor.ExitCode(runErr)); err != nil {
				logger.Warn("record exit code", "error", err)
			}
		}
		return runErr
	},
}

func init() {
	runCmd.Flags().SetInterspersed(false)
	runCmd.Flags().Bool("dry-run", false, "Do not actually execute the command")
	runCmd.Flags().Bool("confirm", false, "Ask for confirmation before running")
	runCmd.Flags().Bool("verbose", false, "Verbose output (prints dry-run messages)")
	runCmd.Flags().Duration("timeout", 60*time.Second, "Abort the command after this long (0 disables)")
	runCmd.Flags().Int("max-output", 0, "Cap captured output per stream in bytes (0 is unlimited)")
	runCmd.Flags().String("cwd", "", "Working directory for the command")
	runCmd.Flags().StringArray("allow-pattern", nil, "Only run commands matching this regular expression (repeatable)")
	runCmd.Flags().Bool("restrict-workspace", false, "Refuse paths outside the working directory")
	runCmd.Flags().Bool("no-log", false, "Do not record the decision in the decision log")
	rootCmd.AddCommand(runCmd)
}
