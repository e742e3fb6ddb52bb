package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/VoxDroid/shguard/internal/audit"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent decisions from the decision log",
	Long:  "Show recent decisions from the decision log, newest first (id, time, source, verdict, command)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		blocked, _ := cmd.Flags().GetBool("blocked")
		rule, _ := cmd.Flags().GetString("rule")
		limit, _ := cmd.Flags().GetInt("limit")

		repo, closeLog, err := openLog()
		if err != nil {
			return err
		}
		defer closeLog()

		entries, err := repo.List(audit.Filter{BlockedOnly: blocked, Rule: rule, Limit: limit})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			_, _ = fmt.Fprintln(out, "no decisions recorded")
			return nil
		}
		for _, e := range entries {
			verdict := allowStyle.Render("ALLOW")
			if !e.Allowed {
				verdict = denyStyle.Render("DENY") + " " + nullString(e.Rule)
			}
			line := fmt.Sprintf("%d\t%s\t%s\t%s\t%s", e.ID, e.CreatedAt, e.Source, verdict, e.Command)
			if e.ExitCode.Valid {
				line += dimStyle.Render(fmt.Sprintf("\texit=%d", e.ExitCode.Int64))
			}
			_, _ = fmt.Fprintln(out, line)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().Bool("blocked", false, "Only show blocked commands")
	historyCmd.Flags().String("rule", "", "Only show decisions made by this rule")
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of entries (0 for all)")
	rootCmd.AddCommand(historyCmd)
}
