package paths

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewRun(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	run, err := NewRun(base)
	if err != nil {
		t.Fatal(err)
	}

	for _, dir := range []string{"result", "log", "configs"} {
		info, err := os.Stat(filepath.Join(base, dir))
		if err != nil {
			t.Fatalf("expected %s directory: %v", dir, err)
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", dir)
		}
	}

	stamp := run.StartedAt.Format(timestampLayout)
	if want := filepath.Join(base, "result", stamp+"_result.csv"); run.ResultFile != want {
		t.Errorf("result file: got %s, want %s", run.ResultFile, want)
	}
	if want := filepath.Join(base, "log", stamp+".log"); run.LogFile != want {
		t.Errorf("log file: got %s, want %s", run.LogFile, want)
	}
	if run.ProxyDir != filepath.Join(base, "configs") {
		t.Errorf("unexpected proxy dir %s", run.ProxyDir)
	}

	// All artifacts of one run share the same stamp.
	resultStamp := strings.TrimSuffix(filepath.Base(run.ResultFile), "_result.csv")
	logStamp := strings.TrimSuffix(filepath.Base(run.LogFile), ".log")
	if resultStamp != logStamp {
		t.Errorf("stamps differ: %s vs %s", resultStamp, logStamp)
	}
}

func TestNewRunUnwritableBase(t *testing.T) {
	t.Parallel()

	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	base := filepath.Join(t.TempDir(), "ro")
	if err := os.Mkdir(base, 0555); err != nil {
		t.Fatal(err)
	}
	if _, err := NewRun(base); err == nil {
		t.Error("expected error for unwritable base directory")
	}
}
