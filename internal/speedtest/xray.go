package speedtest

import (
	"fmt"
	"net"
	"net/netip"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"edgescan/pkg/errors"
)

// Placeholders substituted into the xray config template, one rendered
// config per probe.
const (
	addressPlaceholder = "IP.IP.IP.IP"
	portPlaceholder    = "PORTPORT"
)

// service is one disposable xray process serving a single probe.
type service struct {
	cmd        *exec.Cmd
	configPath string
	socksPort  int
}

// renderTemplate substitutes the candidate address and local SOCKS port into
// the config template.
func renderTemplate(template []byte, ip netip.Addr, socksPort int) []byte {
	out := strings.ReplaceAll(string(template), addressPlaceholder, ip.String())
	out = strings.ReplaceAll(out, portPlaceholder, strconv.Itoa(socksPort))
	return []byte(out)
}

// startService renders a config for ip, launches xray on a free localhost
// port, and waits for the SOCKS listener. Every failure here means the
// probing mechanism itself is unusable, so all errors wrap ErrServiceStart.
func (p *Prober) startService(ip netip.Addr) (*service, error) {
	socksPort, err := freePort()
	if err != nil {
		return nil, &errors.ServiceError{Binary: p.binPath, Err: fmt.Errorf("%w: no free SOCKS port: %v", errors.ErrServiceStart, err)}
	}

	configPath := filepath.Join(p.cfg.ProxyDir, fmt.Sprintf("config_%s_%d.json", ip, socksPort))
	rendered := renderTemplate(p.cfg.Template, ip, socksPort)
	if err := os.WriteFile(configPath, rendered, 0600); err != nil {
		return nil, &errors.ServiceError{Binary: p.binPath, Err: fmt.Errorf("%w: write config: %v", errors.ErrServiceStart, err)}
	}

	cmd := exec.Command(p.binPath, "run", "-c", configPath)
	cmd.Env = append(os.Environ(), "XRAY_LOCATION_ASSET="+filepath.Dir(p.binPath))
	// Own process group so stop() can kill xray and any children it spawns.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		os.Remove(configPath)
		return nil, &errors.ServiceError{Binary: p.binPath, Err: fmt.Errorf("%w: %v", errors.ErrServiceStart, err)}
	}

	svc := &service{cmd: cmd, configPath: configPath, socksPort: socksPort}

	addr := fmt.Sprintf("127.0.0.1:%d", socksPort)
	if !waitForPort(addr, p.cfg.StartupWait) {
		svc.stop()
		return nil, &errors.ServiceError{Binary: p.binPath, Err: fmt.Errorf("%w: not listening on %s", errors.ErrServiceStart, addr)}
	}

	return svc, nil
}

// stop kills the whole xray process group and removes the rendered config.
func (s *service) stop() {
	if s.cmd.Process != nil {
		unix.Kill(-s.cmd.Process.Pid, unix.SIGKILL)
		s.cmd.Wait()
	}
	os.Remove(s.configPath)
}

// freePort asks the OS for an available TCP port.
func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return port, nil
}

// waitForPort polls a TCP address until it's accepting connections or timeout.
func waitForPort(addr string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 200*time.Millisecond)
		if err == nil {
			conn.Close()
			return true
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false
}
