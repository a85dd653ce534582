// Package scanner drives the end-to-end scan: it expands the configured
// blocks into one ordered candidate list, runs a bounded pool of probe
// workers over it, and consumes results in submission order, feeding
// aggregation, progress and persistence.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sync/semaphore"

	"edgescan/internal/progress"
	"edgescan/internal/results"
	"edgescan/internal/speedtest"
	"edgescan/internal/storage"
	"edgescan/internal/storage/models"
	"edgescan/internal/subnets"
)

// Prober tests a single candidate. A non-nil error means the probing
// mechanism itself is broken and aborts the whole scan; a per-candidate
// failure is a Result with OK=false.
type Prober interface {
	Probe(cand subnets.Candidate) (speedtest.Result, error)
}

// Status is the scheduler's terminal state.
type Status string

const (
	StatusCompleted Status = models.RunCompleted
	StatusAborted   Status = models.RunAborted
	StatusCancelled Status = models.RunCancelled
)

// Summary reports what a finished scan did.
type Summary struct {
	Status    Status
	Total     int
	Scanned   int
	Succeeded int
}

// Config holds the scheduler's knobs.
type Config struct {
	Workers    int
	SampleSize int // max candidates per block, 0 = whole block
}

// Scheduler owns the worker pool, the result file, the progress display and
// cancellation. No other component touches those directly.
type Scheduler struct {
	cfg      Config
	prober   Prober
	writer   *results.Writer
	renderer progress.Renderer
	log      *slog.Logger

	// Optional scan-history storage; inserts are best-effort.
	store storage.Storage
	run   *models.Run
}

// New creates a Scheduler. store and run may be nil to skip history
// recording.
func New(cfg Config, prober Prober, writer *results.Writer, renderer progress.Renderer, log *slog.Logger, store storage.Storage, run *models.Run) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &Scheduler{
		cfg:      cfg,
		prober:   prober,
		writer:   writer,
		renderer: renderer,
		log:      log,
		store:    store,
		run:      run,
	}
}

// outcome carries one worker's result to the consumption loop.
type outcome struct {
	res speedtest.Result
	err error
}

// Run scans every block and returns a summary. The returned error is
// non-nil only for a fatal probe-service failure; cancellation is an
// expected termination path, reported through Summary.Status.
//
// Results are consumed strictly in submission order: result i is processed
// only once the worker pool has produced it, even when later candidates
// finish first. Workers never observe cancellation; it is handled solely at
// the consumption point, after the pool is already running.
func (s *Scheduler) Run(ctx context.Context, blocks []subnets.Block) (Summary, error) {
	candidates := subnets.Expand(blocks, s.cfg.SampleSize)

	totals := make(map[string]int, len(blocks))
	for _, block := range blocks {
		totals[block.String()] = subnets.NumAddrs(block, s.cfg.SampleSize)
	}

	tracker := progress.NewTracker(s.renderer, totals, len(candidates))
	summary := Summary{Total: len(candidates)}

	// One buffered slot per candidate keeps completion order decoupled from
	// consumption order and lets workers finish without a reader.
	slots := make([]chan outcome, len(candidates))
	for i := range slots {
		slots[i] = make(chan outcome, 1)
	}

	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()

	sem := semaphore.NewWeighted(int64(s.cfg.Workers))
	var wg sync.WaitGroup

	go func() {
		for i, cand := range candidates {
			if err := sem.Acquire(dispatchCtx, 1); err != nil {
				return
			}
			wg.Add(1)
			go func(slot chan<- outcome, cand subnets.Candidate) {
				defer wg.Done()
				defer sem.Release(1)
				res, err := s.prober.Probe(cand)
				slot <- outcome{res: res, err: err}
			}(slots[i], cand)
		}
	}()

	// Interrupts are handled here and only here, installed after the pool
	// is up so no request can slip between pool construction and handler.
	scanCtx, stopSignals := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	for i := range slots {
		select {
		case out := <-slots[i]:
			if out.err != nil {
				tracker.Stop()
				stopDispatch()
				wg.Wait()
				s.log.Error("probe service failed, aborting scan", "error", out.err)
				summary.Status = StatusAborted
				s.finishRun(summary)
				return summary, fmt.Errorf("scan aborted: %w", out.err)
			}
			s.consume(out.res, tracker, &summary)

		case <-scanCtx.Done():
			tracker.Stop()
			stopDispatch()
			wg.Wait()
			s.log.Info("scan cancelled", "scanned", summary.Scanned, "total", summary.Total)
			summary.Status = StatusCancelled
			s.finishRun(summary)
			return summary, nil
		}
	}

	tracker.Stop()
	wg.Wait()
	summary.Status = StatusCompleted
	s.finishRun(summary)
	return summary, nil
}

// consume processes one result: progress first, then aggregation and
// persistence for successes. Persistence errors are logged and reported but
// never stop the loop; one candidate must not kill the scan.
func (s *Scheduler) consume(res speedtest.Result, tracker *progress.Tracker, summary *Summary) {
	tracker.Observe(res.Candidate.Block.String())
	summary.Scanned++

	if !res.OK {
		tracker.Report(res.Message)
		s.log.Debug("probe failed", "ip", res.Candidate.IP.String(), "block", res.Candidate.Block.String(), "message", res.Message)
		return
	}

	rec := results.Aggregate(res)
	if err := s.writer.Append(rec); err != nil {
		tracker.Report(fmt.Sprintf("%s: failed to write result: %v", rec.IP, err))
		s.log.Error("failed to write result", "ip", rec.IP, "error", err)
		return
	}
	summary.Succeeded++
	s.recordHistory(rec, res.Candidate.Block.String())
	tracker.Report(res.Message)
}

// recordHistory mirrors a record into the scan-history database
// (best-effort).
func (s *Scheduler) recordHistory(rec results.Record, block string) {
	if s.store == nil || s.run == nil {
		return
	}
	record := &models.Record{
		RunID:              s.run.ID,
		IP:                 rec.IP,
		Block:              block,
		AvgDownloadSpeed:   rec.AvgDownloadSpeed,
		AvgUploadSpeed:     rec.AvgUploadSpeed,
		AvgDownloadLatency: rec.AvgDownloadLatency,
		AvgUploadLatency:   rec.AvgUploadLatency,
		DownloadJitter:     rec.DownloadJitter,
		UploadJitter:       rec.UploadJitter,
	}
	if err := s.store.InsertRecord(context.Background(), record); err != nil {
		s.log.Warn("failed to record history", "ip", rec.IP, "error", err)
	}
}

func (s *Scheduler) finishRun(summary Summary) {
	if s.store == nil || s.run == nil {
		return
	}
	s.run.Status = string(summary.Status)
	s.run.Scanned = summary.Scanned
	s.run.Succeeded = summary.Succeeded
	if err := s.store.FinishRun(context.Background(), s.run); err != nil {
		s.log.Warn("failed to finish run record", "error", err)
	}
}
