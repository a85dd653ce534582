package speedtest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"edgescan/internal/subnets"
)

// Trials holds the per-trial samples for one transfer direction, one entry
// per trial in trial order.
type Trials struct {
	Speed   []float64 // KB/s
	Latency []float64 // ms
}

// TrialSet holds the samples for both directions. Upload is left empty when
// upload testing is disabled.
type TrialSet struct {
	Download Trials
	Upload   Trials
}

// Result is the outcome of probing one candidate. A failed transfer yields
// OK=false with a message; it is not an error. Errors are reserved for the
// proxy service itself being unusable.
type Result struct {
	Candidate subnets.Candidate
	OK        bool
	Message   string
	Trials    TrialSet
}

// Prober runs probes against single candidates. Safe for concurrent use:
// each probe gets its own xray process and HTTP client.
type Prober struct {
	cfg     *Config
	binPath string
}

// NewProber resolves the xray binary and prepares a Prober. A missing
// binary is a setup failure, detected before any worker starts.
func NewProber(cfg *Config) (*Prober, error) {
	binPath, err := findBinary(cfg.BinPath)
	if err != nil {
		return nil, err
	}
	return &Prober{
		cfg:     cfg.withDefaults(),
		binPath: binPath,
	}, nil
}

// Probe tests one candidate: start a disposable xray for it, then run
// NTries download (and optionally upload) trials through the proxy.
// A non-nil error is fatal for the whole scan (see ErrServiceStart);
// per-candidate transfer failures come back as Result{OK: false}.
func (p *Prober) Probe(cand subnets.Candidate) (Result, error) {
	svc, err := p.startService(cand.IP)
	if err != nil {
		return Result{Candidate: cand}, err
	}
	defer svc.stop()

	return p.runTrials(cand, socksClient(svc.socksPort)), nil
}

// runTrials executes the configured number of transfer trials over client.
// Any failed transfer stops the sequence with OK=false.
func (p *Prober) runTrials(cand subnets.Candidate, client *http.Client) Result {
	res := Result{Candidate: cand}

	for i := 0; i < p.cfg.NTries; i++ {
		speed, latency, err := measureDownload(client, p.cfg.DownloadURL, p.cfg.DownloadBytes, p.cfg.Timeout)
		if err != nil {
			res.Message = fmt.Sprintf("%s download failed: %v", cand.IP, err)
			return res
		}
		res.Trials.Download.Speed = append(res.Trials.Download.Speed, speed)
		res.Trials.Download.Latency = append(res.Trials.Download.Latency, latency)

		if !p.cfg.DoUpload {
			continue
		}
		speed, latency, err = measureUpload(client, p.cfg.UploadURL, p.cfg.UploadBytes, p.cfg.Timeout)
		if err != nil {
			res.Message = fmt.Sprintf("%s upload failed: %v", cand.IP, err)
			return res
		}
		res.Trials.Upload.Speed = append(res.Trials.Upload.Speed, speed)
		res.Trials.Upload.Latency = append(res.Trials.Upload.Latency, latency)
	}

	res.OK = true
	res.Message = fmt.Sprintf("%s OK (%d download trials)", cand.IP, p.cfg.NTries)
	return res
}

// socksClient builds an HTTP client routed through the local SOCKS5 proxy.
func socksClient(socksPort int) *http.Client {
	proxyURL, _ := url.Parse(fmt.Sprintf("socks5://127.0.0.1:%d", socksPort))
	return &http.Client{
		Transport: &http.Transport{
			Proxy:             http.ProxyURL(proxyURL),
			DisableKeepAlives: true,
		},
	}
}

// measureDownload fetches nbytes from endpoint and returns the transfer
// speed in KB/s and the time-to-first-byte latency in ms.
func measureDownload(client *http.Client, endpoint string, nbytes int, timeout time.Duration) (speed, latency float64, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s?bytes=%d", endpoint, nbytes), nil)
	if err != nil {
		return 0, 0, err
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	firstByte := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	n, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		return 0, 0, err
	}
	transfer := time.Since(start) - firstByte
	if transfer <= 0 {
		transfer = time.Since(start)
	}

	return float64(n) / 1024 / transfer.Seconds(), float64(firstByte.Milliseconds()), nil
}

// measureUpload posts nbytes to endpoint and returns the transfer speed in
// KB/s and the time-to-response latency in ms.
func measureUpload(client *http.Client, endpoint string, nbytes int, timeout time.Duration) (speed, latency float64, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	payload := bytes.Repeat([]byte{0}, nbytes)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return 0, 0, err
	}
	elapsed := time.Since(start)

	return float64(nbytes) / 1024 / elapsed.Seconds(), float64(elapsed.Milliseconds()), nil
}
