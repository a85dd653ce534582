// Package speedtest executes probes: it tunnels through a disposable xray
// process and measures download/upload speed and latency for one address.
package speedtest

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"edgescan/pkg/errors"
)

// Default measurement endpoints. The bytes parameter is appended by the
// measurement functions.
const (
	DefaultDownloadURL = "https://speed.cloudflare.com/__down"
	DefaultUploadURL   = "https://speed.cloudflare.com/__up"
)

// Config holds everything a Prober needs. Loaded once at startup and
// read-only thereafter.
type Config struct {
	BinPath  string // xray binary path or name; resolved by NewProber
	Template []byte // raw xray config template JSON
	ProxyDir string // directory for rendered per-probe configs

	NTries   int
	DoUpload bool
	Timeout  time.Duration // per-trial transfer timeout

	DownloadURL   string
	UploadURL     string
	DownloadBytes int
	UploadBytes   int

	StartupWait time.Duration // how long to wait for the SOCKS listener
}

func (c *Config) withDefaults() *Config {
	out := *c
	if out.NTries <= 0 {
		out.NTries = 1
	}
	if out.Timeout <= 0 {
		out.Timeout = 10 * time.Second
	}
	if out.DownloadURL == "" {
		out.DownloadURL = DefaultDownloadURL
	}
	if out.UploadURL == "" {
		out.UploadURL = DefaultUploadURL
	}
	if out.DownloadBytes <= 0 {
		out.DownloadBytes = 100_000
	}
	if out.UploadBytes <= 0 {
		out.UploadBytes = 100_000
	}
	if out.StartupWait <= 0 {
		out.StartupWait = 3 * time.Second
	}
	return &out
}

// LoadTemplate reads the xray config template from path.
func LoadTemplate(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrTemplateRead, err)
	}
	return data, nil
}

// findBinary resolves the xray binary, checking the configured path first
// and then common install locations.
func findBinary(binPath string) (string, error) {
	locations := []string{
		binPath,
		"xray",
		"/usr/local/bin/xray",
		"/usr/bin/xray",
		"/opt/xray/xray",
	}
	if binPath == "" {
		locations = locations[1:]
	}

	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(home, ".local", "bin", "xray"))
	}

	for _, loc := range locations {
		path, err := exec.LookPath(loc)
		if err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("%w: looked in %v", errors.ErrBinaryNotFound, locations)
}
