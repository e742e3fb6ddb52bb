package cmd

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/VoxDroid/shguard/internal/security"
)

var (
	allowStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#22c55e"))
	denyStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ef4444"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0ea5a4"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

// renderDecision formats a decision as a single status line.
func renderDecision(d security.Decision) string {
	if d.Allowed {
		return allowStyle.Render("ALLOW")
	}
	return denyStyle.Render("DENY") + "  " + d.Reason
}
