package history

import "database/sql"

// InitSchema ensures the DB has the tables needed for the run history.
func InitSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sync_log (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            run_id TEXT NOT NULL,
            direction TEXT NOT NULL,
            url TEXT NOT NULL,
            title TEXT,
            outcome TEXT NOT NULL,
            status_code INTEGER DEFAULT 0,
            error TEXT,
            created_at TEXT NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_sync_log_created_at ON sync_log(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_log_run_id ON sync_log(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_log_outcome ON sync_log(outcome, created_at)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}
