package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/VoxDroid/shguard/internal/audit"
	"github.com/VoxDroid/shguard/internal/batch"
	"github.com/VoxDroid/shguard/internal/security"
)

var checkCmd = &cobra.Command{
	Use:   "check [command...]",
	Short: "Classify a command without running it",
	Long: `Classify a shell command line as allowed or denied without running it.

The command is taken from the arguments (joined with spaces) or, with --file,
one command per line from a file ("-" reads stdin). The exit status is
non-zero when any command is blocked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		noLog, _ := cmd.Flags().GetBool("no-log")

		lines, err := checkInput(cmd, args, file)
		if err != nil {
			return err
		}

		var repo *audit.Repository
		if !noLog {
			r, closeLog, err := openLog()
			if err != nil {
				return err
			}
			defer closeLog()
			repo = r
		}

		out := cmd.OutOrStdout()
		var last security.Decision
		blocked := 0
		for _, l := range lines {
			d := security.Classify(l.Command)
			logger.Debug("classified command", decisionAttrs(l.Command, d.Allowed, d.Rule)...)
			if repo != nil {
				if _, err := repo.Record(audit.NewEntry(l.Command, audit.SourceCheck, "", d)); err != nil {
					return err
				}
			}
			if !d.Allowed {
				blocked++
			}
			last = d
			if len(lines) == 1 {
				_, _ = fmt.Fprintln(out, renderDecision(d))
				continue
			}
			_, _ = fmt.Fprintf(out, "%s %s\t%s\n", dimStyle.Render(fmt.Sprintf("%d:", l.Number)), renderDecision(d), l.Command)
		}

		switch {
		case blocked == 0:
			return nil
		case len(lines) == 1:
			return last.Err()
		default:
			return fmt.Errorf("%d of %d commands %s", blocked, len(lines), security.BlockedMessage)
		}
	},
}

func checkInput(cmd *cobra.Command, args []string, file string) ([]batch.Line, error) {
	if file == "" {
		if len(args) == 0 {
			return nil, fmt.Errorf("a command or --file is required")
		}
		return []batch.Line{{Number: 1, Command: strings.Join(args, " ")}}, nil
	}
	if len(args) > 0 {
		return nil, fmt.Errorf("cannot use --file together with a command argument")
	}
	var r io.Reader
	if file == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	lines, err := batch.ReadCommands(r)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("no commands found in %s", file)
	}
	return lines, nil
}

func init() {
	checkCmd.Flags().SetInterspersed(false)
	checkCmd.Flags().StringP("file", "f", "", "Read commands from a file, one per line (\"-\" for stdin)")
	checkCmd.Flags().Bool("no-log", false, "Do not record decisions in the decision log")
	rootCmd.AddCommand(checkCmd)
}
