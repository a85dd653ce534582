package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"edgescan/internal/storage/models"
)

// DB implements the Storage interface using SQLite
type DB struct {
	db *sql.DB
}

// New creates a new SQLite storage instance
func New(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	storage := &DB{db: db}

	if err := runMigrations(storage); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return storage, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// CreateRun inserts a new run row and sets run.ID.
func (d *DB) CreateRun(ctx context.Context, run *models.Run) error {
	query := `
		INSERT INTO runs (started_at, status, result_file, total_candidates)
		VALUES (?, ?, ?, ?)
	`
	result, err := d.db.ExecContext(ctx, query,
		run.StartedAt, run.Status, run.ResultFile, run.TotalCandidates,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	run.ID = id
	return nil
}

// FinishRun records the run's terminal status and final counters.
func (d *DB) FinishRun(ctx context.Context, run *models.Run) error {
	now := time.Now()
	query := `
		UPDATE runs SET finished_at = ?, status = ?, scanned = ?, succeeded = ?
		WHERE id = ?
	`
	_, err := d.db.ExecContext(ctx, query, now, run.Status, run.Scanned, run.Succeeded, run.ID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	run.FinishedAt = &now
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (d *DB) ListRuns(ctx context.Context, limit int) ([]*models.Run, error) {
	query := `
		SELECT id, started_at, finished_at, status, result_file,
		       total_candidates, scanned, succeeded
		FROM runs ORDER BY started_at DESC LIMIT ?
	`
	rows, err := d.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		var run models.Run
		var finished sql.NullTime
		var resultFile sql.NullString
		if err := rows.Scan(&run.ID, &run.StartedAt, &finished, &run.Status,
			&resultFile, &run.TotalCandidates, &run.Scanned, &run.Succeeded); err != nil {
			return nil, err
		}
		if finished.Valid {
			run.FinishedAt = &finished.Time
		}
		run.ResultFile = resultFile.String
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

// InsertRecord appends one aggregated record to a run's history.
func (d *DB) InsertRecord(ctx context.Context, record *models.Record) error {
	query := `
		INSERT INTO records (run_id, ip, block,
			avg_download_speed, avg_upload_speed,
			avg_download_latency, avg_upload_latency,
			download_jitter, upload_jitter)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := d.db.ExecContext(ctx, query,
		record.RunID, record.IP, record.Block,
		record.AvgDownloadSpeed, record.AvgUploadSpeed,
		record.AvgDownloadLatency, record.AvgUploadLatency,
		record.DownloadJitter, record.UploadJitter,
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	record.ID = id
	return nil
}

// GetRunRecords returns every record of a run in insertion order.
func (d *DB) GetRunRecords(ctx context.Context, runID int64) ([]*models.Record, error) {
	query := `
		SELECT id, run_id, ip, block,
		       avg_download_speed, avg_upload_speed,
		       avg_download_latency, avg_upload_latency,
		       download_jitter, upload_jitter, created_at
		FROM records WHERE run_id = ? ORDER BY id
	`
	rows, err := d.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run records: %w", err)
	}
	defer rows.Close()

	var records []*models.Record
	for rows.Next() {
		var rec models.Record
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.IP, &rec.Block,
			&rec.AvgDownloadSpeed, &rec.AvgUploadSpeed,
			&rec.AvgDownloadLatency, &rec.AvgUploadLatency,
			&rec.DownloadJitter, &rec.UploadJitter, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
