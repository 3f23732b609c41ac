// Package harness provides a shared integration suite that exercises
// wdsession against a live browser backend, plus the test application
// the suite drives. It lives in a separate package so driver-specific
// test mains can reuse it.
package harness

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/tebeka/selenium"

	"github.com/sidonath/wdsession"
)

// SlowCookieDelay is how long the test application waits before
// answering /slow-cookie. Race tests size their reset drain off it.
const SlowCookieDelay = 500 * time.Millisecond

// Config describes the backend and test application a suite run drives.
type Config struct {
	// Addr is the WebDriver endpoint, typically DriverService.Addr().
	Addr string
	// Browser is "chrome" or "firefox"; BrowserVersion may be empty.
	Browser, BrowserVersion string
	// BinaryPath optionally points at a non-default browser binary.
	BinaryPath string
	Headless   bool
	// AppURL is the base URL at which Handler is being served.
	AppURL string
}

func runTest(f func(*testing.T, Config), c Config) func(*testing.T) {
	return func(t *testing.T) {
		f(t, c)
	}
}

func connect(c Config) wdsession.ConnectFunc {
	caps := wdsession.Capabilities(c.Browser, c.BrowserVersion, c.BinaryPath, c.Headless)
	return wdsession.Remote(c.Addr, caps)
}

func newSession(c Config, opts ...wdsession.SessionOption) *wdsession.Session {
	return wdsession.NewSession(connect(c), opts...)
}

// driver digs the selenium client out of a session, for assertions that
// need more of the WebDriver surface than Conn exposes.
func driver(t *testing.T, s *wdsession.Session) selenium.WebDriver {
	t.Helper()
	conn, err := s.Conn()
	if err != nil {
		t.Fatalf("s.Conn() returned error: %v", err)
	}
	d, ok := conn.(interface{ Driver() selenium.WebDriver })
	if !ok {
		t.Fatalf("backend connection %T does not expose the selenium driver", conn)
	}
	return d.Driver()
}

func visit(t *testing.T, s *wdsession.Session, url string) {
	t.Helper()
	if err := s.Visit(url); err != nil {
		t.Fatalf("s.Visit(%q) returned error: %v", url, err)
	}
}

// RunLifecycleTests exercises handle startup and termination against the
// live backend.
func RunLifecycleTests(t *testing.T, c Config) {
	t.Run("Quit", runTest(testQuit, c))
	t.Run("QuitTwice", runTest(testQuitTwice, c))
	t.Run("QuitUnstarted", runTest(testQuitUnstarted, c))
}

// RunResetTests exercises the reset semantics against the live backend.
func RunResetTests(t *testing.T, c Config) {
	t.Run("ClearsCookies", runTest(testResetClearsCookies, c))
	t.Run("ClearsStorage", runTest(testResetClearsStorage, c))
	t.Run("KeepAllPolicy", runTest(testResetKeepAll, c))
	t.Run("NavigatesToNeutral", runTest(testResetNavigates, c))
	t.Run("SlowCookieRace", runTest(testResetSlowCookieRace, c))
}

func testQuit(t *testing.T, c Config) {
	s := newSession(c)
	visit(t, s, c.AppURL+"/")
	s.Quit()
	if s.Live() {
		t.Error("s.Live() = true after Quit, want false")
	}
	if _, err := s.Conn(); err != wdsession.ErrTerminated {
		t.Errorf("s.Conn() after Quit returned %v, want ErrTerminated", err)
	}
}

func testQuitTwice(t *testing.T, c Config) {
	var warnings []string
	s := newSession(c, wdsession.WithHandleOptions(
		wdsession.WithWarningFunc(func(format string, args ...interface{}) {
			warnings = append(warnings, fmt.Sprintf(format, args...))
		}),
	))
	visit(t, s, c.AppURL+"/")
	s.Quit()
	s.Quit()
	if len(warnings) != 0 {
		t.Errorf("Quit produced warnings %q, want none", warnings)
	}
	if s.Live() {
		t.Error("s.Live() = true after double Quit, want false")
	}
}

func testQuitUnstarted(t *testing.T, c Config) {
	s := newSession(c)
	s.Quit()
	if s.Live() {
		t.Error("s.Live() = true after quitting an unstarted session")
	}
	if _, err := s.Conn(); err != wdsession.ErrTerminated {
		t.Errorf("s.Conn() after Quit returned %v, want ErrTerminated", err)
	}
}

// cookieCount reads the cookie count the /cookies page reports for the
// application domain.
func cookieCount(t *testing.T, s *wdsession.Session, c Config) int {
	t.Helper()
	visit(t, s, c.AppURL+"/cookies")
	source, err := driver(t, s).PageSource()
	if err != nil {
		t.Fatalf("wd.PageSource() returned error: %v", err)
	}
	var n int
	if _, err := fmt.Sscanf(findLine(source, "cookie count:"), "cookie count: %d", &n); err != nil {
		t.Fatalf("could not parse cookie count from page:\n%s", source)
	}
	return n
}

func findLine(source, prefix string) string {
	for _, line := range strings.Split(source, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, prefix) {
			return line
		}
	}
	return ""
}

// storageLengths reads localStorage and sessionStorage sizes for the
// application origin.
func storageLengths(t *testing.T, s *wdsession.Session, c Config) (local, session int) {
	t.Helper()
	visit(t, s, c.AppURL+"/plain")
	wd := driver(t, s)
	for _, q := range []struct {
		script string
		out    *int
	}{
		{"return window.localStorage.length", &local},
		{"return window.sessionStorage.length", &session},
	} {
		v, err := wd.ExecuteScript(q.script, nil)
		if err != nil {
			t.Fatalf("wd.ExecuteScript(%q) returned error: %v", q.script, err)
		}
		f, ok := v.(float64)
		if !ok {
			t.Fatalf("wd.ExecuteScript(%q) = %T, want float64", q.script, v)
		}
		*q.out = int(f)
	}
	return local, session
}

func testResetClearsCookies(t *testing.T, c Config) {
	s := newSession(c)
	defer s.Quit()

	visit(t, s, c.AppURL+"/")
	if n := cookieCount(t, s, c); n == 0 {
		t.Fatal("test application set no cookies; cannot verify reset")
	}
	if err := s.Reset(); err != nil {
		t.Fatalf("s.Reset() returned error: %v", err)
	}
	if n := cookieCount(t, s, c); n != 0 {
		t.Errorf("cookie count after Reset = %d, want 0", n)
	}
}

func testResetClearsStorage(t *testing.T, c Config) {
	s := newSession(c)
	defer s.Quit()

	visit(t, s, c.AppURL+"/storage")
	if local, session := storageLengths(t, s, c); local == 0 || session == 0 {
		t.Fatalf("storage not seeded (local=%d, session=%d); cannot verify reset", local, session)
	}
	if err := s.Reset(); err != nil {
		t.Fatalf("s.Reset() returned error: %v", err)
	}
	if local, session := storageLengths(t, s, c); local != 0 || session != 0 {
		t.Errorf("storage after Reset: local=%d, session=%d, want 0, 0", local, session)
	}
}

func testResetKeepAll(t *testing.T, c Config) {
	s := newSession(c, wdsession.WithResetPolicy(wdsession.KeepAll))
	defer s.Quit()

	visit(t, s, c.AppURL+"/storage")
	if err := s.Reset(); err != nil {
		t.Fatalf("s.Reset() returned error: %v", err)
	}
	if local, _ := storageLengths(t, s, c); local == 0 {
		t.Error("localStorage empty after Reset with KeepAll policy, want it preserved")
	}
	if n := cookieCount(t, s, c); n == 0 {
		t.Error("cookies gone after Reset with KeepAll policy, want them preserved")
	}
}

func testResetNavigates(t *testing.T, c Config) {
	s := newSession(c)
	defer s.Quit()

	visit(t, s, c.AppURL+"/")
	if err := s.Reset(); err != nil {
		t.Fatalf("s.Reset() returned error: %v", err)
	}
	u, err := driver(t, s).CurrentURL()
	if err != nil {
		t.Fatalf("wd.CurrentURL() returned error: %v", err)
	}
	if u != wdsession.NeutralURL {
		t.Errorf("URL after Reset = %q, want %q", u, wdsession.NeutralURL)
	}
}

// testResetSlowCookieRace reproduces the race between reset and an
// asynchronous request that sets a cookie after it completes. The drain
// holds the reset open until the slow response has landed, so the clear
// and navigation supersede the stale write.
func testResetSlowCookieRace(t *testing.T, c Config) {
	s := newSession(c, wdsession.WithResetDrain(SlowCookieDelay+SlowCookieDelay/2))
	defer s.Quit()

	// The /racy page fires a fetch of /slow-cookie on load. Reset while
	// that request is still in flight.
	visit(t, s, c.AppURL+"/racy")
	if err := s.Reset(); err != nil {
		t.Fatalf("s.Reset() returned error: %v", err)
	}
	visit(t, s, c.AppURL+"/cookies")
	source, err := driver(t, s).PageSource()
	if err != nil {
		t.Fatalf("wd.PageSource() returned error: %v", err)
	}
	if strings.Contains(source, "stale-cookie") {
		t.Errorf("stale cookie from the in-flight request survived Reset:\n%s", source)
	}
}

var homePage = `
<html>
<head>
	<title>wdsession test app</title>
</head>
<body>
	The home page.
	Link to the <a href="/plain">plain page</a>.
</body>
</html>
`

var plainPage = `
<html>
<head>
	<title>wdsession test app - plain page</title>
</head>
<body>
	A page that sets nothing.
</body>
</html>
`

var storagePage = `
<html>
<head>
	<title>wdsession test app - storage page</title>
	<script>
		window.localStorage.setItem("seed", "local");
		window.sessionStorage.setItem("seed", "session");
	</script>
</head>
<body>
	This page seeds localStorage and sessionStorage.
</body>
</html>
`

var racyPage = `
<html>
<head>
	<title>wdsession test app - racy page</title>
	<script>
		fetch("/slow-cookie");
	</script>
</head>
<body>
	This page kicks off a slow request that will set a cookie when it
	completes.
</body>
</html>
`

var cookiesPage = `
<html>
<head>
	<title>wdsession test app - cookie report</title>
</head>
<body>
	cookie count: %d
	cookie names: %s
</body>
</html>
`

// Handler serves the test application. The home page sets a few cookies,
// /storage seeds web storage, /racy starts the slow asynchronous cookie
// write, and /cookies reports what the browser sent back.
var Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/":
		for i := 0; i < 3; i++ {
			http.SetCookie(w, &http.Cookie{
				Name:  fmt.Sprintf("cookie-%d", i),
				Value: fmt.Sprintf("value-%d", i),
			})
		}
		fmt.Fprint(w, homePage)
	case "/plain":
		fmt.Fprint(w, plainPage)
	case "/storage":
		http.SetCookie(w, &http.Cookie{Name: "storage-cookie", Value: "1"})
		fmt.Fprint(w, storagePage)
	case "/racy":
		fmt.Fprint(w, racyPage)
	case "/slow-cookie":
		time.Sleep(SlowCookieDelay)
		http.SetCookie(w, &http.Cookie{Name: "stale-cookie", Value: "1"})
		fmt.Fprint(w, "ok")
	case "/cookies":
		names := make([]string, 0, len(r.Cookies()))
		for _, ck := range r.Cookies() {
			names = append(names, ck.Name)
		}
		fmt.Fprintf(w, cookiesPage, len(names), strings.Join(names, " "))
	default:
		http.NotFound(w, r)
	}
})
