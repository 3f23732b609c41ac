package wdsession

import (
	"errors"

	"github.com/golang/glog"
)

// ErrTerminated is returned by Handle.Conn after Quit. A quit handle
// never reconnects; create a new one.
var ErrTerminated = errors.New("wdsession: handle is terminated")

type handleState int

const (
	stateUnstarted handleState = iota
	stateLive
	stateTerminated
)

// Handle is the exclusive owner of one backend connection. The connection
// is created lazily on first use and dropped unconditionally on Quit.
//
// A Handle is not safe for concurrent use; one session drives one browser
// and serializes its own calls.
type Handle struct {
	connect  ConnectFunc
	classify Classifier
	warnf    func(format string, args ...interface{})

	state handleState
	conn  Conn
}

// HandleOption configures a Handle.
type HandleOption func(*Handle)

// WithClassifier replaces the termination error classifier.
func WithClassifier(c Classifier) HandleOption {
	return func(h *Handle) { h.classify = c }
}

// WithWarningFunc redirects warning output. The default logs through
// glog.
func WithWarningFunc(f func(format string, args ...interface{})) HandleOption {
	return func(h *Handle) { h.warnf = f }
}

// NewHandle returns an unstarted Handle that will dial the backend with
// connect on first use.
func NewHandle(connect ConnectFunc, opts ...HandleOption) *Handle {
	h := &Handle{
		connect:  connect,
		classify: ClassifyTermination,
		warnf:    glog.Warningf,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Conn returns the live connection, dialing the backend on the first
// call. After Quit it returns ErrTerminated. A failed dial leaves the
// handle unstarted, so the next call tries again.
func (h *Handle) Conn() (Conn, error) {
	switch h.state {
	case stateTerminated:
		return nil, ErrTerminated
	case stateLive:
		return h.conn, nil
	}
	debugLog("dialing browser backend")
	conn, err := h.connect()
	if err != nil {
		return nil, err
	}
	h.conn = conn
	h.state = stateLive
	return conn, nil
}

// Live reports whether the backend connection currently exists.
func (h *Handle) Live() bool { return h.state == stateLive }

// Quit terminates the backend connection, if any, and invalidates the
// handle. Quitting an unstarted or already-terminated handle is a no-op;
// in particular Quit never dials the backend just to hang up on it.
//
// Quit never fails. A termination error classified as Report is logged
// as a warning with the backend's message intact; a benign one (the
// browser was already gone) is dropped. Either way the handle ends up
// terminated and the connection is released.
func (h *Handle) Quit() {
	if h.state != stateLive {
		h.state = stateTerminated
		return
	}
	if err := h.conn.Terminate(); err != nil && h.classify(err) == Report {
		h.warnf("error terminating browser backend: %v", err)
	}
	h.conn = nil
	h.state = stateTerminated
}
