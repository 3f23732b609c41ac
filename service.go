package wdsession

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"time"
)

// ServiceOption configures a DriverService.
type ServiceOption func(*DriverService)

// ServiceOutput sends the driver binary's stdout and stderr to w.
func ServiceOutput(w io.Writer) ServiceOption {
	return func(s *DriverService) { s.output = w }
}

// StartupTimeout bounds how long the service waits for the driver binary
// to answer on its status endpoint before giving up. The default is 30
// seconds.
func StartupTimeout(d time.Duration) ServiceOption {
	return func(s *DriverService) { s.startupTimeout = d }
}

// DriverService controls a locally-running WebDriver binary, such as
// chromedriver or geckodriver, serving as the backend for Remote
// sessions.
type DriverService struct {
	port int
	addr string
	cmd  *exec.Cmd

	output         io.Writer
	startupTimeout time.Duration
}

// NewChromeDriverService starts a chromedriver instance in the
// background and waits until it reports ready.
func NewChromeDriverService(path string, port int, opts ...ServiceOption) (*DriverService, error) {
	cmd := exec.Command(path, "--port="+strconv.Itoa(port))
	return newDriverService(cmd, port, opts...)
}

// NewGeckoDriverService starts a geckodriver instance in the background
// and waits until it reports ready.
func NewGeckoDriverService(path string, port int, opts ...ServiceOption) (*DriverService, error) {
	cmd := exec.Command(path, "--port", strconv.Itoa(port))
	return newDriverService(cmd, port, opts...)
}

func newDriverService(cmd *exec.Cmd, port int, opts ...ServiceOption) (*DriverService, error) {
	s := &DriverService{
		port:           port,
		addr:           fmt.Sprintf("http://localhost:%d", port),
		startupTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	cmd.Stdout = s.output
	cmd.Stderr = s.output
	cmd.Env = os.Environ()
	s.cmd = cmd
	if err := s.start(); err != nil {
		return nil, err
	}
	return s, nil
}

// Addr returns the base URL of the running driver, suitable for Remote.
func (s *DriverService) Addr() string {
	return s.addr
}

func (s *DriverService) start() error {
	if err := s.cmd.Start(); err != nil {
		return err
	}
	deadline := time.Now().Add(s.startupTimeout)
	for time.Now().Before(deadline) {
		time.Sleep(500 * time.Millisecond)
		resp, err := http.Get(s.addr + "/status")
		if err != nil {
			continue
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			return nil
		}
	}
	s.cmd.Process.Kill()
	s.cmd.Wait()
	return fmt.Errorf("driver did not respond on port %d", s.port)
}

// Stop shuts the driver binary down. A binary that already exited on its
// own is tolerated.
func (s *DriverService) Stop() error {
	if err := s.cmd.Process.Kill(); err != nil {
		return err
	}
	if err := s.cmd.Wait(); err != nil && err.Error() != "signal: killed" {
		return err
	}
	return nil
}
