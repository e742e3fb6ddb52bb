package audit

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/VoxDroid/shguard/internal/security"
)

// Repository records and queries decisions.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository using db.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// NewEntry builds an entry for command from a guard decision.
func NewEntry(command, source, cwd string, d security.Decision) Entry {
	e := Entry{Command: command, Allowed: d.Allowed, Source: source}
	if !d.Allowed {
		e.Rule = sql.NullString{String: d.Rule, Valid: true}
		e.Token = sql.NullString{String: d.Token, Valid: d.Token != ""}
		e.Reason = sql.NullString{String: d.Reason, Valid: true}
	}
	if cwd != "" {
		e.Cwd = sql.NullString{String: cwd, Valid: true}
	}
	return e
}

// Record inserts e and returns its ID.
func (r *Repository) Record(e Entry) (int64, error) {
	if strings.TrimSpace(e.Source) == "" {
		e.Source = SourceCheck
	}
	res, err := r.db.Exec(`INSERT INTO decisions (command, allowed, rule, token, reason, source, cwd, exit_code, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))`,
		e.Command, boolToInt(e.Allowed), e.Rule, e.Token, e.Reason, e.Source, e.Cwd, e.ExitCode)
	if err != nil {
		return 0, fmt.Errorf("insert decision: %w", err)
	}
	return res.LastInsertId()
}

// SetExitCode stores the exit status of an executed command.
func (r *Repository) SetExitCode(id int64, code int) error {
	res, err := r.db.Exec("UPDATE decisions SET exit_code = ? WHERE id = ?", code, id)
	if err != nil {
		return fmt.Errorf("update exit code: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("decision %d not found", id)
	}
	return nil
}

// List returns entries newest first.
func (r *Repository) List(f Filter) ([]Entry, error) {
	q := "SELECT id, command, allowed, rule, token, reason, source, cwd, exit_code, created_at FROM decisions"
	var where []string
	var args []interface{}
	if f.BlockedOnly {
		where = append(where, "allowed = 0")
	}
	if f.Rule != "" {
		where = append(where, "rule = ?")
		args = append(args, f.Rule)
	}
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id DESC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []Entry
	for rows.Next() {
		var e Entry
		var allowed int
		if err := rows.Scan(&e.ID, &e.Command, &allowed, &e.Rule, &e.Token, &e.Reason, &e.Source, &e.Cwd, &e.ExitCode, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Allowed = allowed == 1
		out = append(out, e)
	}
	return out, rows.Err()
}

// Stats counts entries by outcome and blocked entries by rule.
func (r *Repository) Stats() (Stats, error) {
	st := Stats{ByRule: map[string]int{}}
	row := r.db.QueryRow("SELECT count(*), COALESCE(SUM(allowed), 0) FROM decisions")
	if err := row.Scan(&st.Total, &st.Allowed); err != nil {
		return st, fmt.Errorf("count decisions: %w", err)
	}
	st.Blocked = st.Total - st.Allowed

	rows, err := r.db.Query("SELECT rule, count(*) FROM decisions WHERE allowed = 0 GROUP BY rule ORDER BY rule")
	if err != nil {
		return st, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var rule string
		var n int
		if err := rows.Scan(&rule, &n); err != nil {
			return st, err
		}
		st.ByRule[rule] = n
	}
	return st, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
