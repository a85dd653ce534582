package storage

import (
	"context"

	"edgescan/internal/storage/models"
)

// Storage defines the interface for scan-history persistence. It is strictly
// supplemental to the per-run CSV: inserts during a scan are best-effort and
// never fail the scan.
type Storage interface {
	// Run operations
	CreateRun(ctx context.Context, run *models.Run) error
	FinishRun(ctx context.Context, run *models.Run) error
	ListRuns(ctx context.Context, limit int) ([]*models.Run, error)

	// Record operations
	InsertRecord(ctx context.Context, record *models.Record) error
	GetRunRecords(ctx context.Context, runID int64) ([]*models.Record, error)

	// Close closes the storage connection
	Close() error
}
