package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"edgescan/internal/storage/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newRun(t *testing.T, db *DB, startedAt time.Time) *models.Run {
	t.Helper()
	run := &models.Run{
		StartedAt:       startedAt,
		Status:          models.RunRunning,
		ResultFile:      "result.csv",
		TotalCandidates: 10,
	}
	if err := db.CreateRun(context.Background(), run); err != nil {
		t.Fatal(err)
	}
	return run
}

func TestCreateAndFinishRun(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	run := newRun(t, db, time.Now())
	if run.ID == 0 {
		t.Fatal("expected CreateRun to assign an id")
	}

	run.Status = models.RunCompleted
	run.Scanned = 10
	run.Succeeded = 7
	if err := db.FinishRun(ctx, run); err != nil {
		t.Fatal(err)
	}
	if run.FinishedAt == nil {
		t.Error("expected FinishRun to set the finish time")
	}

	runs, err := db.ListRuns(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	got := runs[0]
	if got.Status != models.RunCompleted {
		t.Errorf("expected status completed, got %s", got.Status)
	}
	if got.Scanned != 10 || got.Succeeded != 7 {
		t.Errorf("unexpected counters: scanned %d, succeeded %d", got.Scanned, got.Succeeded)
	}
	if got.FinishedAt == nil {
		t.Error("expected a persisted finish time")
	}
	if got.ResultFile != "result.csv" {
		t.Errorf("unexpected result file %s", got.ResultFile)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	older := newRun(t, db, base)
	newer := newRun(t, db, base.Add(30*time.Minute))

	runs, err := db.ListRuns(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != newer.ID || runs[1].ID != older.ID {
		t.Errorf("expected newest first, got ids %d, %d", runs[0].ID, runs[1].ID)
	}
	if runs[0].FinishedAt != nil {
		t.Error("unfinished run should have no finish time")
	}

	limited, err := db.ListRuns(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 || limited[0].ID != newer.ID {
		t.Errorf("expected limit to keep only the newest run, got %v", limited)
	}
}

func TestRecords(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	run := newRun(t, db, time.Now())
	other := newRun(t, db, time.Now())

	for _, ip := range []string{"1.1.1.1", "1.1.1.2"} {
		rec := &models.Record{
			RunID:              run.ID,
			IP:                 ip,
			Block:              "1.1.1.0/24",
			AvgDownloadSpeed:   150,
			AvgUploadSpeed:     -1,
			AvgDownloadLatency: 15,
			AvgUploadLatency:   -1,
			DownloadJitter:     10,
			UploadJitter:       -1,
		}
		if err := db.InsertRecord(ctx, rec); err != nil {
			t.Fatal(err)
		}
		if rec.ID == 0 {
			t.Fatal("expected InsertRecord to assign an id")
		}
	}

	records, err := db.GetRunRecords(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].IP != "1.1.1.1" || records[1].IP != "1.1.1.2" {
		t.Errorf("expected insertion order, got %s, %s", records[0].IP, records[1].IP)
	}
	if records[0].AvgDownloadSpeed != 150 || records[0].AvgUploadSpeed != -1 {
		t.Errorf("unexpected aggregates: %+v", records[0])
	}
	if records[0].Block != "1.1.1.0/24" {
		t.Errorf("unexpected block %s", records[0].Block)
	}

	// Records are scoped to their run.
	empty, err := db.GetRunRecords(ctx, other.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no records for the other run, got %d", len(empty))
	}
}

func TestInsertRecordRejectsUnknownRun(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)

	rec := &models.Record{RunID: 9999, IP: "1.1.1.1", Block: "1.1.1.0/24"}
	if err := db.InsertRecord(context.Background(), rec); err == nil {
		t.Error("expected foreign key violation for unknown run id")
	}
}
