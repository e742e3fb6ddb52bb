package cmd

import (
	"database/sql"

	"github.com/VoxDroid/shguard/internal/audit"
	"github.com/VoxDroid/shguard/internal/db"
)

// openLog opens the decision log; the returned func closes it.
func openLog() (*audit.Repository, func(), error) {
	dbConn, err := db.InitDB()
	if err != nil {
		return nil, nil, err
	}
	return audit.NewRepository(dbConn), func() { _ = dbConn.Close() }, nil
}

func nullString(s sql.NullString) string {
	if s.Valid {
		return s.String
	}
	return ""
}
