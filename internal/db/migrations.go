package db

import (
	"database/sql"
	_ "embed"
	"fmt"

	// _ import for sqlite driver registration
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// ApplyMigrations applies the embedded schema SQL to the database and
// performs lightweight post-creation migrations (adding new columns when needed).
func ApplyMigrations(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	if err := ensureDecisionColumns(db); err != nil {
		return err
	}
	return nil
}

// ensureDecisionColumns adds columns introduced after the first schema.
func ensureDecisionColumns(db *sql.DB) error {
	rows, err := db.Query("PRAGMA table_info(decisions)")
	if err != nil {
		return err
	}
	cols := map[string]bool{}
	for rows.Next() {
		var cid int
		var name string
		var ctype string
		var notnull int
		var dflt interface{}
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			_ = rows.Close()
			return err
		}
		cols[name] = true
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()
	if !cols["cwd"] {
		if _, err := db.Exec("ALTER TABLE decisions ADD COLUMN cwd TEXT"); err != nil {
			return err
		}
	}
	if !cols["exit_code"] {
		if _, err := db.Exec("ALTER TABLE decisions ADD COLUMN exit_code INTEGER"); err != nil {
			return err
		}
	}
	return nil
}
