package wdsession

import (
	"path/filepath"

	"github.com/blang/semver"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	"github.com/tebeka/selenium/firefox"
)

// Quirks captures browser-specific behavior differences a harness works
// around when configuring a session. The gates below encode driver
// capability cutoffs, not historical bug lists.
type Quirks struct {
	// W3C reports whether the driver speaks the W3C WebDriver dialect
	// rather than the legacy JSON wire protocol.
	W3C bool
	// HeadlessArg is the command-line switch that runs the browser
	// without a display, or empty if the browser has none.
	HeadlessArg string
	// LegacyDriver reports that the browser predates its modern driver
	// (Firefox before Marionette) and needs the legacy automation
	// bridge.
	LegacyDriver bool
}

var (
	// Firefox gained Marionette (and with it geckodriver) in 48.
	marionetteMin = semver.MustParse("48.0.0")
	// Chrome replaced the old headless mode with --headless=new in 109.
	newHeadlessMin = semver.MustParse("109.0.0")
)

// DetectQuirks derives Quirks from a browser name and version string. An
// empty or unparsable version gets the modern defaults for that browser.
func DetectQuirks(browser, version string) Quirks {
	v, verr := semver.ParseTolerant(version)
	switch browser {
	case "firefox":
		q := Quirks{W3C: true, HeadlessArg: "-headless"}
		if verr == nil && v.LT(marionetteMin) {
			q.LegacyDriver = true
			q.W3C = false
		}
		return q
	case "chrome":
		q := Quirks{W3C: true, HeadlessArg: "--headless"}
		if verr == nil && v.GTE(newHeadlessMin) {
			q.HeadlessArg = "--headless=new"
		}
		return q
	default:
		return Quirks{}
	}
}

// Capabilities builds the desired capabilities for browser, pointing the
// driver at binaryPath when non-empty. Headless sessions get the
// browser's headless switch from DetectQuirks; version may be empty when
// the installed browser is current.
func Capabilities(browser, version, binaryPath string, headless bool) selenium.Capabilities {
	caps := selenium.Capabilities{"browserName": browser}
	q := DetectQuirks(browser, version)
	switch browser {
	case "chrome":
		c := chrome.Capabilities{
			Path: binaryPath,
			// The sandbox requires a setuid helper, which test
			// environments rarely have.
			Args: []string{"--no-sandbox"},
		}
		if headless && q.HeadlessArg != "" {
			c.Args = append(c.Args, q.HeadlessArg)
		}
		caps.AddChrome(c)
	case "firefox":
		f := firefox.Capabilities{}
		if binaryPath != "" {
			if p, err := filepath.Abs(binaryPath); err == nil {
				f.Binary = p
			}
		}
		if headless && q.HeadlessArg != "" {
			f.Args = append(f.Args, q.HeadlessArg)
		}
		caps.AddFirefox(f)
	}
	return caps
}
