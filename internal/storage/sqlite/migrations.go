package sqlite

const schema = `
-- Scan runs
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP,
    status TEXT NOT NULL DEFAULT 'running',
    result_file TEXT,
    total_candidates INTEGER NOT NULL DEFAULT 0,
    scanned INTEGER NOT NULL DEFAULT 0,
    succeeded INTEGER NOT NULL DEFAULT 0
);

-- Aggregated per-address records
CREATE TABLE IF NOT EXISTS records (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL,
    ip TEXT NOT NULL,
    block TEXT NOT NULL,
    avg_download_speed REAL NOT NULL,
    avg_upload_speed REAL NOT NULL,
    avg_download_latency REAL NOT NULL,
    avg_upload_latency REAL NOT NULL,
    download_jitter REAL NOT NULL,
    upload_jitter REAL NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

-- Indexes for performance
CREATE INDEX IF NOT EXISTS idx_records_run_id ON records(run_id);
CREATE INDEX IF NOT EXISTS idx_records_ip ON records(ip);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// runMigrations executes the database schema
func runMigrations(db *DB) error {
	_, err := db.db.Exec(schema)
	return err
}
