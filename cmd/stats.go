package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise the decision log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		repo, closeLog, err := openLog()
		if err != nil {
			return err
		}
		defer closeLog()

		st, err := repo.Stats()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "total: %d\n", st.Total)
		_, _ = fmt.Fprintf(out, "%s: %d\n", allowStyle.Render("allowed"), st.Allowed)
		_, _ = fmt.Fprintf(out, "%s: %d\n", denyStyle.Render("blocked"), st.Blocked)
		rules := make([]string, 0, len(st.ByRule))
		for r := range st.ByRule {
			rules = append(rules, r)
		}
		// most frequent first, then by name
		sort.Slice(rules, func(i, j int) bool {
			a, b := st.ByRule[rules[i]], st.ByRule[rules[j]]
			if a != b {
				return a > b
			}
			return rules[i] < rules[j]
		})
		for _, r := range rules {
			_, _ = fmt.Fprintf(out, "  %-24s %d\n", r, st.ByRule[r])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
