// Package models defines the scan-history records persisted between runs.
package models

import "time"

// Run statuses.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunAborted   = "aborted"
	RunCancelled = "cancelled"
)

// Run is one scan invocation.
type Run struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     string
	ResultFile string

	TotalCandidates int
	Scanned         int
	Succeeded       int
}

// Record is one successful, aggregated probe outcome from a run.
type Record struct {
	ID    int64
	RunID int64
	IP    string
	Block string

	AvgDownloadSpeed   float64
	AvgUploadSpeed     float64
	AvgDownloadLatency float64
	AvgUploadLatency   float64
	DownloadJitter     float64
	UploadJitter       float64

	CreatedAt time.Time
}
