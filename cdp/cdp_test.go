package cdp

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"

	"github.com/sidonath/wdsession"
)

// fakeChrome serves the two endpoints the dialer touches: the version
// page and the debugger websocket. It records every protocol method it
// receives and answers with canned results.
type fakeChrome struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu      sync.Mutex
	methods []string
	conns   []*websocket.Conn
	// failMethod, when set, makes that method answer with a protocol
	// error instead of a result.
	failMethod string
}

func newFakeChrome(t *testing.T) *fakeChrome {
	t.Helper()
	f := &fakeChrome{}
	mux := http.NewServeMux()
	mux.HandleFunc("/json/version", func(w http.ResponseWriter, r *http.Request) {
		wsURL := "ws://" + f.srv.Listener.Addr().String() + "/devtools"
		json.NewEncoder(w).Encode(map[string]string{"webSocketDebuggerUrl": wsURL})
	})
	mux.HandleFunc("/devtools", func(w http.ResponseWriter, r *http.Request) {
		ws, err := f.upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("websocket upgrade failed: %v", err)
			return
		}
		f.mu.Lock()
		f.conns = append(f.conns, ws)
		f.mu.Unlock()
		defer ws.Close()
		f.serve(ws)
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeChrome) hostPort(t *testing.T) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(f.srv.Listener.Addr().String())
	if err != nil {
		t.Fatalf("splitting server address: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parsing server port: %v", err)
	}
	return host, port
}

func (f *fakeChrome) serve(ws *websocket.Conn) {
	for {
		var req struct {
			ID     int64  `json:"id"`
			Method string `json:"method"`
		}
		if err := ws.ReadJSON(&req); err != nil {
			return
		}
		f.mu.Lock()
		f.methods = append(f.methods, req.Method)
		failing := req.Method == f.failMethod
		f.mu.Unlock()

		if failing {
			ws.WriteJSON(map[string]interface{}{
				"id": req.ID,
				"error": map[string]interface{}{
					"code":    -32000,
					"message": fmt.Sprintf("%s is not allowed", req.Method),
				},
			})
			continue
		}

		var result interface{}
		switch req.Method {
		case "Target.createTarget":
			result = map[string]string{"targetId": "target-1"}
		case "Target.attachToTarget":
			// An attach also produces an event before the reply; the
			// client must skip it.
			ws.WriteJSON(map[string]interface{}{
				"method": "Target.attachedToTarget",
				"params": map[string]string{"sessionId": "session-1"},
			})
			result = map[string]string{"sessionId": "session-1"}
		case "Page.navigate":
			result = map[string]string{"frameId": "frame-1"}
		default:
			result = map[string]string{}
		}
		ws.WriteJSON(map[string]interface{}{"id": req.ID, "result": result})
	}
}

// closeBrowserConns severs the debugger websockets, simulating the
// browser process going away. httptest's CloseClientConnections cannot
// reach hijacked connections, so the fake closes them itself.
func (f *fakeChrome) closeBrowserConns() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ws := range f.conns {
		ws.Close()
	}
}

func (f *fakeChrome) failOn(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failMethod = method
}

func (f *fakeChrome) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.methods...)
}

func dial(t *testing.T, f *fakeChrome) wdsession.Conn {
	t.Helper()
	host, port := f.hostPort(t)
	conn, err := Dial(host, port)()
	if err != nil {
		t.Fatalf("Dial() returned error: %v", err)
	}
	return conn
}

func TestDialAttachesPage(t *testing.T) {
	f := newFakeChrome(t)
	bc := dial(t, f)
	defer bc.Terminate()

	want := []string{"Target.createTarget", "Target.attachToTarget"}
	if diff := cmp.Diff(want, f.recorded()); diff != "" {
		t.Errorf("protocol methods mismatch (-want +got):\n%s", diff)
	}
	if c := bc.(*conn); c.sessionID != "session-1" {
		t.Errorf("attached session = %q, want %q", c.sessionID, "session-1")
	}
}

func TestConnMethods(t *testing.T) {
	f := newFakeChrome(t)
	bc := dial(t, f)
	defer bc.Terminate()

	if err := bc.Navigate("http://example.com/"); err != nil {
		t.Fatalf("bc.Navigate() returned error: %v", err)
	}
	if err := bc.ClearLocalStorage(); err != nil {
		t.Fatalf("bc.ClearLocalStorage() returned error: %v", err)
	}
	if err := bc.ClearSessionStorage(); err != nil {
		t.Fatalf("bc.ClearSessionStorage() returned error: %v", err)
	}
	if err := bc.DeleteCookies(); err != nil {
		t.Fatalf("bc.DeleteCookies() returned error: %v", err)
	}

	want := []string{
		"Target.createTarget", "Target.attachToTarget",
		"Page.navigate",
		"Runtime.evaluate", "Runtime.evaluate",
		"Network.clearBrowserCookies",
	}
	if diff := cmp.Diff(want, f.recorded()); diff != "" {
		t.Errorf("protocol methods mismatch (-want +got):\n%s", diff)
	}
}

func TestProtocolError(t *testing.T) {
	f := newFakeChrome(t)
	f.failOn("Page.navigate")
	bc := dial(t, f)
	defer bc.Terminate()

	err := bc.Navigate("http://example.com/")
	if err == nil {
		t.Fatal("bc.Navigate() succeeded, want protocol error")
	}
	be, ok := err.(*wdsession.Error)
	if !ok {
		t.Fatalf("bc.Navigate() returned %T, want *wdsession.Error", err)
	}
	if be.Kind != wdsession.KindUnknown {
		t.Errorf("error kind = %q, want %q", be.Kind, wdsession.KindUnknown)
	}
	if !strings.Contains(be.Message, "Page.navigate is not allowed") {
		t.Errorf("error message = %q, want the backend's message", be.Message)
	}
	// A protocol rejection is a real failure, not a dead browser.
	if v := wdsession.ClassifyTermination(err); v != wdsession.Report {
		t.Errorf("ClassifyTermination(%v) = %v, want Report", err, v)
	}
}

func TestTerminateAfterBrowserGone(t *testing.T) {
	f := newFakeChrome(t)
	bc := dial(t, f)

	// The browser going away mid-session turns the next call into a
	// communication error the termination classifier suppresses.
	f.closeBrowserConns()

	err := bc.Terminate()
	if err == nil {
		t.Fatal("bc.Terminate() on a dead browser succeeded, want error")
	}
	if v := wdsession.ClassifyTermination(err); v != wdsession.Suppress {
		t.Errorf("ClassifyTermination(%v) = %v, want Suppress", err, v)
	}
}

func TestTerminateHandleIntegration(t *testing.T) {
	f := newFakeChrome(t)
	host, port := f.hostPort(t)

	var warnings []string
	h := wdsession.NewHandle(Dial(host, port),
		wdsession.WithWarningFunc(func(format string, args ...interface{}) {
			warnings = append(warnings, fmt.Sprintf(format, args...))
		}))
	if _, err := h.Conn(); err != nil {
		t.Fatalf("h.Conn() returned error: %v", err)
	}

	f.closeBrowserConns()
	h.Quit()
	if len(warnings) != 0 {
		t.Errorf("Quit after the browser died warned %q, want silence", warnings)
	}
	if h.Live() {
		t.Error("h.Live() = true after Quit, want false")
	}
}
