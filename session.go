package wdsession

import "time"

// NeutralURL is where Reset parks the browsing context, so the next
// navigation starts from a clean, known page.
const NeutralURL = "about:blank"

// Session drives one browser through its lifecycle: fresh, active,
// reset back to active any number of times, and finally terminated. It
// composes a Handle with a ResetPolicy. Not safe for concurrent use.
type Session struct {
	handle     *Handle
	handleOpts []HandleOption
	policy     ResetPolicy
	neutralURL string
	drain      time.Duration
}

// SessionOption configures a Session at creation time.
type SessionOption func(*Session)

// WithResetPolicy sets the stores Reset clears. The default is ClearAll.
func WithResetPolicy(p ResetPolicy) SessionOption {
	return func(s *Session) { s.policy = p }
}

// WithNeutralURL changes the location Reset navigates to.
func WithNeutralURL(u string) SessionOption {
	return func(s *Session) { s.neutralURL = u }
}

// WithResetDrain makes Reset pause for d before touching the backend,
// giving in-flight page-level requests a deterministic window to land so
// that the subsequent clear and navigation supersede their effects.
// Intended for tests that reproduce the reset race; leave unset in
// production.
func WithResetDrain(d time.Duration) SessionOption {
	return func(s *Session) { s.drain = d }
}

// WithHandleOptions forwards options to the session's Handle.
func WithHandleOptions(opts ...HandleOption) SessionOption {
	return func(s *Session) { s.handleOpts = append(s.handleOpts, opts...) }
}

// NewSession returns a fresh Session that will dial the backend with
// connect on first use.
func NewSession(connect ConnectFunc, opts ...SessionOption) *Session {
	s := &Session{
		policy:     ClearAll,
		neutralURL: NeutralURL,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.handle = NewHandle(connect, s.handleOpts...)
	return s
}

// Conn returns the session's backend connection, starting the browser on
// first use.
func (s *Session) Conn() (Conn, error) {
	return s.handle.Conn()
}

// Visit navigates the session's browsing context to url.
func (s *Session) Visit(url string) error {
	conn, err := s.handle.Conn()
	if err != nil {
		return err
	}
	return conn.Navigate(url)
}

// Reset restores the session to a clean state without discarding the
// browser: it clears the in-policy stores on the live connection, then
// parks the browsing context on the neutral URL.
//
// Once Reset returns, any in-policy write committed before it began is
// gone. A write still in flight when Reset starts (an asynchronous
// request whose response has not yet arrived) is not guaranteed to be
// prevented; the navigation makes its eventual result moot for the next
// page, and WithResetDrain lets tests close the window deterministically.
//
// Resetting a fresh session starts the browser first. Reset after Quit
// returns ErrTerminated.
func (s *Session) Reset() error {
	conn, err := s.handle.Conn()
	if err != nil {
		return err
	}
	if s.drain > 0 {
		time.Sleep(s.drain)
	}
	if err := s.policy.apply(conn); err != nil {
		return err
	}
	return conn.Navigate(s.neutralURL)
}

// Quit terminates the browser. It never fails and is idempotent; see
// Handle.Quit.
func (s *Session) Quit() {
	s.handle.Quit()
}

// Live reports whether the browser is currently running.
func (s *Session) Live() bool {
	return s.handle.Live()
}
