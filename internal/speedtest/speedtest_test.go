package speedtest

import (
	"bytes"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"edgescan/internal/subnets"
	"edgescan/pkg/errors"
)

func testCandidate(t *testing.T, ip string) subnets.Candidate {
	t.Helper()
	block, err := subnets.ParseBlock(ip + "/24")
	if err != nil {
		t.Fatal(err)
	}
	return subnets.Candidate{IP: netip.MustParseAddr(ip), Block: block}
}

func TestRenderTemplate(t *testing.T) {
	t.Parallel()

	template := []byte(`{"address": "IP.IP.IP.IP", "port": PORTPORT, "tag": "IP.IP.IP.IP"}`)
	got := string(renderTemplate(template, netip.MustParseAddr("104.16.0.1"), 10808))

	want := `{"address": "104.16.0.1", "port": 10808, "tag": "104.16.0.1"}`
	if got != want {
		t.Errorf("rendered config mismatch:\n got %s\nwant %s", got, want)
	}
}

func TestMeasureDownload(t *testing.T) {
	t.Parallel()

	t.Run("honors the bytes parameter", func(t *testing.T) {
		t.Parallel()
		var requested string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requested = r.URL.Query().Get("bytes")
			n, _ := strconv.Atoi(requested)
			w.Write(bytes.Repeat([]byte{0}, n))
		}))
		defer srv.Close()

		speed, latency, err := measureDownload(srv.Client(), srv.URL, 4096, 5*time.Second)
		if err != nil {
			t.Fatal(err)
		}
		if requested != "4096" {
			t.Errorf("expected bytes=4096, got %s", requested)
		}
		if speed <= 0 {
			t.Errorf("expected positive speed, got %v", speed)
		}
		if latency < 0 {
			t.Errorf("expected non-negative latency, got %v", latency)
		}
	})

	t.Run("non-200 is an error", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		if _, _, err := measureDownload(srv.Client(), srv.URL, 1024, 5*time.Second); err == nil {
			t.Error("expected error for status 502")
		}
	})

	t.Run("times out on a stalled server", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(2 * time.Second)
		}))
		defer srv.Close()

		start := time.Now()
		_, _, err := measureDownload(srv.Client(), srv.URL, 1024, 200*time.Millisecond)
		if err == nil {
			t.Fatal("expected timeout error")
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("timeout took too long: %v", elapsed)
		}
	})
}

func TestMeasureUpload(t *testing.T) {
	t.Parallel()

	t.Run("uploads the full payload", func(t *testing.T) {
		t.Parallel()
		var received int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			received, _ = io.Copy(io.Discard, r.Body)
		}))
		defer srv.Close()

		speed, latency, err := measureUpload(srv.Client(), srv.URL, 2048, 5*time.Second)
		if err != nil {
			t.Fatal(err)
		}
		if received != 2048 {
			t.Errorf("expected 2048 bytes uploaded, got %d", received)
		}
		if speed <= 0 {
			t.Errorf("expected positive speed, got %v", speed)
		}
		if latency <= 0 {
			t.Errorf("expected positive latency, got %v", latency)
		}
	})

	t.Run("non-200 is an error", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.Copy(io.Discard, r.Body)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		if _, _, err := measureUpload(srv.Client(), srv.URL, 1024, 5*time.Second); err == nil {
			t.Error("expected error for status 500")
		}
	})

	t.Run("truncated response body is an error", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.Copy(io.Discard, r.Body)
			// Promise more bytes than are written; the client sees a
			// truncated body when the handler returns.
			w.Header().Set("Content-Length", "4096")
			w.Write([]byte("partial"))
		}))
		defer srv.Close()

		if _, _, err := measureUpload(srv.Client(), srv.URL, 1024, 5*time.Second); err == nil {
			t.Error("expected error for truncated response body")
		}
	})
}

// Probe with an httptest-backed client: trial counts follow NTries, upload
// trials appear only when enabled, and a failing transfer yields OK=false
// with a nil error.
func TestProbe(t *testing.T) {
	t.Parallel()

	cand := func(t *testing.T) (c struct {
		down, up *httptest.Server
	}) {
		t.Helper()
		c.down = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n, _ := strconv.Atoi(r.URL.Query().Get("bytes"))
			w.Write(bytes.Repeat([]byte{0}, n))
		}))
		t.Cleanup(c.down.Close)
		c.up = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.Copy(io.Discard, r.Body)
		}))
		t.Cleanup(c.up.Close)
		return c
	}

	newProber := func(cfg *Config) *Prober {
		return &Prober{cfg: cfg.withDefaults()}
	}

	candidate := testCandidate(t, "10.0.0.1")

	t.Run("download only", func(t *testing.T) {
		t.Parallel()
		servers := cand(t)
		p := newProber(&Config{
			NTries:        3,
			DownloadURL:   servers.down.URL,
			DownloadBytes: 1024,
			Timeout:       5 * time.Second,
		})
		res := p.runTrials(candidate, http.DefaultClient)
		if !res.OK {
			t.Fatalf("expected OK, got message %q", res.Message)
		}
		if len(res.Trials.Download.Speed) != 3 || len(res.Trials.Download.Latency) != 3 {
			t.Errorf("expected 3 download trials, got %d speeds, %d latencies",
				len(res.Trials.Download.Speed), len(res.Trials.Download.Latency))
		}
		if len(res.Trials.Upload.Speed) != 0 {
			t.Errorf("expected no upload trials, got %d", len(res.Trials.Upload.Speed))
		}
	})

	t.Run("with upload", func(t *testing.T) {
		t.Parallel()
		servers := cand(t)
		p := newProber(&Config{
			NTries:        2,
			DoUpload:      true,
			DownloadURL:   servers.down.URL,
			UploadURL:     servers.up.URL,
			DownloadBytes: 1024,
			UploadBytes:   1024,
			Timeout:       5 * time.Second,
		})
		res := p.runTrials(candidate, http.DefaultClient)
		if !res.OK {
			t.Fatalf("expected OK, got message %q", res.Message)
		}
		if len(res.Trials.Upload.Speed) != 2 || len(res.Trials.Upload.Latency) != 2 {
			t.Errorf("expected 2 upload trials, got %d speeds, %d latencies",
				len(res.Trials.Upload.Speed), len(res.Trials.Upload.Latency))
		}
	})

	t.Run("transfer failure is not an error", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		t.Cleanup(srv.Close)

		p := newProber(&Config{
			NTries:      2,
			DownloadURL: srv.URL,
			Timeout:     5 * time.Second,
		})
		res := p.runTrials(candidate, http.DefaultClient)
		if res.OK {
			t.Error("expected OK=false")
		}
		if res.Message == "" {
			t.Error("expected a failure message")
		}
	})
}

func TestLoadTemplate(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "xray.json")
	if err := os.WriteFile(path, []byte(`{"address": "IP.IP.IP.IP"}`), 0644); err != nil {
		t.Fatal(err)
	}

	data, err := LoadTemplate(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"address": "IP.IP.IP.IP"}` {
		t.Errorf("unexpected template contents: %s", data)
	}

	if _, err := LoadTemplate(filepath.Join(t.TempDir(), "missing.json")); !stderrors.Is(err, errors.ErrTemplateRead) {
		t.Errorf("expected ErrTemplateRead, got %v", err)
	}
}

func TestConfigWithDefaults(t *testing.T) {
	t.Parallel()

	cfg := (&Config{}).withDefaults()
	if cfg.NTries != 1 {
		t.Errorf("expected default 1 try, got %d", cfg.NTries)
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("expected default 10s timeout, got %v", cfg.Timeout)
	}
	if cfg.DownloadURL != DefaultDownloadURL || cfg.UploadURL != DefaultUploadURL {
		t.Errorf("expected default endpoints, got %s, %s", cfg.DownloadURL, cfg.UploadURL)
	}
	if cfg.DownloadBytes != 100_000 || cfg.UploadBytes != 100_000 {
		t.Errorf("expected default transfer sizes, got %d, %d", cfg.DownloadBytes, cfg.UploadBytes)
	}
	if cfg.StartupWait != 3*time.Second {
		t.Errorf("expected default 3s startup wait, got %v", cfg.StartupWait)
	}

	// Explicit values survive.
	cfg = (&Config{NTries: 5, Timeout: time.Second}).withDefaults()
	if cfg.NTries != 5 || cfg.Timeout != time.Second {
		t.Errorf("explicit values overridden: %d tries, %v timeout", cfg.NTries, cfg.Timeout)
	}
}
