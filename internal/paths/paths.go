package paths

import (
	"os"
	"path/filepath"
	"time"
)

// timestampLayout stamps per-run file names, e.g. 20240131_154502.
const timestampLayout = "20060102_150405"

// ConfigDir returns ~/.config/edgescan, creating it if needed.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".config", "edgescan")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// DataDir returns ~/.local/share/edgescan, creating it if needed.
// The scan-history database lives here.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".local", "share", "edgescan")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// Run holds the process-wide per-run paths. The timestamp is taken once at
// startup so every artifact of one run (results CSV, log file, rendered
// proxy configs) shares the same stamp.
type Run struct {
	StartedAt  time.Time
	ResultFile string // <base>/result/<stamp>_result.csv
	LogFile    string // <base>/log/<stamp>.log
	ProxyDir   string // <base>/configs — rendered per-probe xray configs
}

// NewRun creates the result, log and proxy-config directories under base and
// derives the timestamped file paths. Any directory that cannot be created
// is a setup failure and aborts the run before scanning begins.
func NewRun(base string) (*Run, error) {
	now := time.Now()
	stamp := now.Format(timestampLayout)

	resultDir := filepath.Join(base, "result")
	logDir := filepath.Join(base, "log")
	proxyDir := filepath.Join(base, "configs")

	for _, dir := range []string{resultDir, logDir, proxyDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	return &Run{
		StartedAt:  now,
		ResultFile: filepath.Join(resultDir, stamp+"_result.csv"),
		LogFile:    filepath.Join(logDir, stamp+".log"),
		ProxyDir:   proxyDir,
	}, nil
}
