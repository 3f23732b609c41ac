package wdsession

import (
	"time"

	"github.com/tebeka/selenium"
)

// Scripts used to clear page storage. WebDriver has no dedicated storage
// endpoints, so storage is cleared in page context.
const (
	clearLocalStorageScript   = "window.localStorage.clear()"
	clearSessionStorageScript = "window.sessionStorage.clear()"
)

type remoteConfig struct {
	pageLoadTimeout time.Duration
}

// RemoteOption configures the Remote dialer.
type RemoteOption func(*remoteConfig)

// WithPageLoadTimeout asks the backend to fail navigations that exceed d.
func WithPageLoadTimeout(d time.Duration) RemoteOption {
	return func(c *remoteConfig) { c.pageLoadTimeout = d }
}

// Remote returns a ConnectFunc that starts a WebDriver session against
// the endpoint at addr, for example a chromedriver or geckodriver
// started by DriverService. The wire protocol is the selenium client's
// business; this adapter only narrows it to Conn.
func Remote(addr string, caps selenium.Capabilities, opts ...RemoteOption) ConnectFunc {
	var cfg remoteConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return func() (Conn, error) {
		debugLog("dialing webdriver backend at %s", addr)
		wd, err := selenium.NewRemote(caps, addr)
		if err != nil {
			return nil, err
		}
		if cfg.pageLoadTimeout > 0 {
			if err := wd.SetPageLoadTimeout(cfg.pageLoadTimeout); err != nil {
				wd.Quit()
				return nil, err
			}
		}
		return &remoteConn{wd: wd}, nil
	}
}

type remoteConn struct {
	wd selenium.WebDriver
}

// Driver exposes the underlying selenium client, for callers that need
// the full WebDriver surface. The integration harness uses it to inspect
// cookies and page state.
func (c *remoteConn) Driver() selenium.WebDriver {
	return c.wd
}

func (c *remoteConn) Terminate() error {
	return translateError(c.wd.Quit())
}

func (c *remoteConn) Navigate(url string) error {
	return c.wd.Get(url)
}

func (c *remoteConn) ClearLocalStorage() error {
	_, err := c.wd.ExecuteScript(clearLocalStorageScript, nil)
	return err
}

func (c *remoteConn) ClearSessionStorage() error {
	_, err := c.wd.ExecuteScript(clearSessionStorageScript, nil)
	return err
}

// DeleteCookies removes the cookies visible to the current page. Cookies
// belonging to other domains are out of reach of the WebDriver cookie
// endpoint.
func (c *remoteConn) DeleteCookies() error {
	return c.wd.DeleteAllCookies()
}

// translateError maps the selenium client's error type onto *Error so
// the termination classifier can see the backend's kind and message.
// Other errors pass through unchanged and classify as Report.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if se, ok := err.(*selenium.Error); ok {
		return &Error{Kind: se.Err, Message: se.Message}
	}
	return err
}
