package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/VoxDroid/shguard/internal/security"
)

// DefaultReportLimit is the report size Run uses when MaxOutput is unset.
const DefaultReportLimit = 10000

// Run executes command and renders the outcome as a single text report, the
// form handed back to an agent that requested the command. It never returns
// an error: refusals and failures are described in the report.
func (e *Executor) Run(ctx context.Context, command, cwd string) string {
	var out, errb bytes.Buffer
	err := e.Execute(ctx, command, cwd, nil, &out, &errb)

	var blocked *security.BlockedError
	if errors.As(err, &blocked) {
		return fmt.Sprintf("Error: Command %s (%s)", security.BlockedMessage, blocked.Reason)
	}

	var parts []string
	if out.Len() > 0 {
		parts = append(parts, out.String())
	}
	if s := errb.String(); strings.TrimSpace(s) != "" {
		parts = append(parts, "STDERR:\n"+s)
	}
	if err != nil {
		if code := ExitCode(err); code > 0 {
			parts = append(parts, fmt.Sprintf("\nExit code: %d", code))
		} else {
			parts = append(parts, "Error: "+err.Error())
		}
	}

	report := strings.Join(parts, "\n")
	if report == "" {
		report = "(no output)"
	}
	limit := e.MaxOutput
	if limit <= 0 {
		limit = DefaultReportLimit
	}
	return truncateReport(report, limit)
}
