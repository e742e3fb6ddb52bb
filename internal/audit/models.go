// Package audit stores guard decisions in the SQLite decision log.
package audit

import "database/sql"

// Source values recorded with each entry.
const (
	SourceCheck = "check"
	SourceRun   = "run"
)

// Entry is one logged decision.
type Entry struct {
	ID        int64
	Command   string
	Allowed   bool
	Rule      sql.NullString
	Token     sql.NullString
	Reason    sql.NullString
	Source    string
	Cwd       sql.NullString
	ExitCode  sql.NullInt64
	CreatedAt string
}

// Filter narrows List results.
type Filter struct {
	BlockedOnly bool
	Rule        string
	// Limit caps the number of entries; zero means no limit.
	Limit int
}

// Stats summarises the log.
type Stats struct {
	Total   int
	Allowed int
	Blocked int
	// ByRule counts blocked entries per rule name.
	ByRule map[string]int
}
