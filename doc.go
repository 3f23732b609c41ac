/*
Package wdsession manages the lifecycle of a browser-automation session:
lazy startup of the backend connection, policy-driven reset of
session-local state (local storage, session storage, cookies), and
termination that tolerates a browser which has already gone away.

The package does not implement a browser protocol. Backends plug in
through the Conn interface; Remote adapts a WebDriver endpoint via the
tebeka/selenium client, and the cdp subpackage talks to a Chrome DevTools
endpoint directly.

Example usage:

	// Errors are ignored for brevity.

	func main() {
		svc, _ := wdsession.NewChromeDriverService("/usr/bin/chromedriver", 9515)
		defer svc.Stop()

		caps := wdsession.Capabilities("chrome", "", "", true)
		s := wdsession.NewSession(wdsession.Remote(svc.Addr(), caps))
		defer s.Quit()

		s.Visit("http://localhost:8080/login")
		// ... drive the page ...

		// Back to a clean slate for the next scenario: storage and
		// cookies cleared, browsing context parked on about:blank.
		s.Reset()
	}

Quit never fails: a termination error that merely means the browser
already exited is suppressed, anything else is logged as a warning. All
other backend failures propagate to the caller unchanged.
*/
package wdsession
