package wdsession

import (
	"io/ioutil"
	"runtime"
	"testing"
	"time"
)

func TestDriverServiceMissingBinary(t *testing.T) {
	start := time.Now()
	if _, err := NewChromeDriverService("/no/such/chromedriver", 4444); err == nil {
		t.Fatal("NewChromeDriverService with a missing binary succeeded, want error")
	}
	// A missing binary must fail at exec time, not after the startup
	// timeout.
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("missing-binary failure took %v, want an immediate error", elapsed)
	}
}

func TestDriverServiceStartupTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test relies on /bin/sleep")
	}
	// /bin/sleep will never answer the status endpoint, so startup must
	// give up at the configured deadline.
	start := time.Now()
	_, err := NewGeckoDriverService("/bin/sleep", 4445,
		StartupTimeout(2*time.Second), ServiceOutput(ioutil.Discard))
	if err == nil {
		t.Fatal("NewGeckoDriverService against a silent binary succeeded, want error")
	}
	elapsed := time.Since(start)
	if elapsed < 2*time.Second {
		t.Errorf("startup gave up after %v, want it to wait out the %v timeout", elapsed, 2*time.Second)
	}
	if elapsed > 10*time.Second {
		t.Errorf("startup took %v, want it bounded by the timeout", elapsed)
	}
}
