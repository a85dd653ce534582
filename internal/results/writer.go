package results

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"edgescan/internal/stats"
)

// Writer appends records to the per-run CSV file. The column set is fixed at
// construction from the trial count; upload columns are always present and
// hold the sentinel when upload testing is disabled. Every row is flushed
// as it is written, so an interrupted run leaves a valid prefix of complete
// rows.
type Writer struct {
	file   *os.File
	csv    *csv.Writer
	nTries int
}

// NewWriter creates path and writes the header row. The header is emitted
// exactly once, before any record.
func NewWriter(path string, nTries int) (*Writer, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create result file: %w", err)
	}

	w := &Writer{file: file, csv: csv.NewWriter(file), nTries: nTries}
	if err := w.writeRow(header(nTries)); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write result header: %w", err)
	}
	return w, nil
}

func header(nTries int) []string {
	row := []string{
		"ip",
		"avg_download_speed", "avg_upload_speed",
		"avg_download_latency", "avg_upload_latency",
		"avg_download_jitter", "avg_upload_jitter",
	}
	for _, column := range []string{"download_speed", "upload_speed", "download_latency", "upload_latency"} {
		for i := 1; i <= nTries; i++ {
			row = append(row, fmt.Sprintf("%s_%d", column, i))
		}
	}
	return row
}

// Append writes one record as a single row.
func (w *Writer) Append(rec Record) error {
	row := []string{
		rec.IP,
		formatFloat(rec.AvgDownloadSpeed), formatFloat(rec.AvgUploadSpeed),
		formatFloat(rec.AvgDownloadLatency), formatFloat(rec.AvgUploadLatency),
		formatFloat(rec.DownloadJitter), formatFloat(rec.UploadJitter),
	}
	row = append(row, rawColumns(rec.Trials.Download.Speed, w.nTries)...)
	row = append(row, rawColumns(rec.Trials.Upload.Speed, w.nTries)...)
	row = append(row, rawColumns(rec.Trials.Download.Latency, w.nTries)...)
	row = append(row, rawColumns(rec.Trials.Upload.Latency, w.nTries)...)
	return w.writeRow(row)
}

// writeRow writes and flushes one row so a crash loses at most the
// in-flight line.
func (w *Writer) writeRow(row []string) error {
	if err := w.csv.Write(row); err != nil {
		return err
	}
	w.csv.Flush()
	return w.csv.Error()
}

// rawColumns formats samples into exactly n columns, padding an absent or
// short direction with the sentinel so the layout never shifts.
func rawColumns(samples []float64, n int) []string {
	out := make([]string, n)
	for i := range out {
		if i < len(samples) {
			out[i] = formatFloat(samples[i])
		} else {
			out[i] = formatFloat(stats.NotApplicable)
		}
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
