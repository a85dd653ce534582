// Package results aggregates successful probe outcomes and appends them to
// the durable per-run CSV table.
package results

import (
	"edgescan/internal/speedtest"
	"edgescan/internal/stats"
)

// Record is one aggregated probe outcome: per-direction means and jitter
// plus the raw per-trial samples for audit. Written once, never mutated.
type Record struct {
	IP string

	AvgDownloadSpeed   float64
	AvgUploadSpeed     float64
	AvgDownloadLatency float64
	AvgUploadLatency   float64
	DownloadJitter     float64
	UploadJitter       float64

	Trials speedtest.TrialSet
}

// Aggregate derives a Record from a successful probe result. When upload
// testing is disabled every upload figure is stats.NotApplicable, never
// zero, so an unmeasured direction cannot be mistaken for a perfect one.
func Aggregate(res speedtest.Result) Record {
	rec := Record{
		IP:                 res.Candidate.IP.String(),
		AvgDownloadSpeed:   stats.Mean(res.Trials.Download.Speed),
		AvgDownloadLatency: stats.Mean(res.Trials.Download.Latency),
		DownloadJitter:     stats.Jitter(res.Trials.Download.Latency),
		AvgUploadSpeed:     stats.NotApplicable,
		AvgUploadLatency:   stats.NotApplicable,
		UploadJitter:       stats.NotApplicable,
		Trials:             res.Trials,
	}

	if len(res.Trials.Upload.Speed) > 0 {
		rec.AvgUploadSpeed = stats.Mean(res.Trials.Upload.Speed)
		rec.AvgUploadLatency = stats.Mean(res.Trials.Upload.Latency)
		rec.UploadJitter = stats.Jitter(res.Trials.Upload.Latency)
	}

	return rec
}
