package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/VoxDroid/shguard/internal/security"
)

var rulesCmd = &cobra.Command{
	Use:   "rules [query]",
	Short: "List the guard's rules",
	Long:  "List the rules of the safety guard in evaluation order, optionally filtered by a fuzzy query over names, descriptions and tokens",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rules := security.DefaultRules()
		if len(args) == 1 {
			rules = security.FilterRules(rules, args[0])
		}
		if len(rules) == 0 {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no matching rules")
			return nil
		}
		t := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(dimStyle).
			StyleFunc(func(row, _ int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle.Padding(0, 1)
				}
				return lipgloss.NewStyle().Padding(0, 1)
			}).
			Headers("RULE", "SHAPE", "TOKENS", "DESCRIPTION")
		for _, r := range rules {
			tokens := strings.Join(r.Tokens, ", ")
			if r.Args != "" {
				tokens += " " + r.Args
			}
			t.Row(r.Name, r.Shape.String(), tokens, r.Description)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}
