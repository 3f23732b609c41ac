package wdsession

import (
	"fmt"
	"log"
)

// Conn is the live channel to an external browser-automation backend.
// Implementations adapt a concrete protocol client (WebDriver, DevTools)
// to the small surface the session controller needs.
//
// All methods may block on the backend and propagate its failures
// unchanged, except Terminate, whose errors are subject to classification
// by the owning Handle.
type Conn interface {
	// Terminate ends the backend session and releases the browser.
	Terminate() error
	// Navigate points the browsing context at url.
	Navigate(url string) error
	// ClearLocalStorage empties window.localStorage on the current page.
	ClearLocalStorage() error
	// ClearSessionStorage empties window.sessionStorage on the current
	// page.
	ClearSessionStorage() error
	// DeleteCookies deletes the cookies reachable from the current page.
	// Backends generally cannot delete cookies set on other domains the
	// session visited earlier; callers must not rely on that.
	DeleteCookies() error
}

// ConnectFunc creates the backend connection. A Handle calls it at most
// once, on first use.
type ConnectFunc func() (Conn, error)

// Error is a backend failure carrying the backend's error kind and
// message. Adapters translate their client's native error type into this
// so the termination classifier can inspect it.
type Error struct {
	// Kind is the backend's error category, e.g. "unknown error".
	Kind string
	// Message is the backend's human-readable detail.
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

var debugFlag = false

// SetDebug enables verbose logging of backend calls.
func SetDebug(debug bool) {
	debugFlag = debug
}

func debugLog(format string, args ...interface{}) {
	if !debugFlag {
		return
	}
	log.Printf(format+"\n", args...)
}
