// Package cdp adapts a Chrome DevTools Protocol endpoint to the
// wdsession backend connection interface, for driving a Chrome instance
// directly instead of through a WebDriver binary.
package cdp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sidonath/wdsession"
)

// Option configures the dialer.
type Option func(*conn)

// CallTimeout bounds each protocol round trip. The default is no limit.
func CallTimeout(d time.Duration) Option {
	return func(c *conn) { c.timeout = d }
}

// Dial returns a ConnectFunc that connects to the Chrome debugging
// endpoint at host:port, opens a fresh page target, and exposes it as a
// wdsession.Conn.
func Dial(host string, port int, opts ...Option) wdsession.ConnectFunc {
	return func() (wdsession.Conn, error) {
		return connect(host, port, opts...)
	}
}

// conn is a single-caller DevTools connection. The session controller
// serializes its calls, so requests and responses are matched in line
// with no reader goroutine; interleaved protocol events are skipped.
type conn struct {
	ws        *websocket.Conn
	sessionID string
	nextID    int64
	timeout   time.Duration
}

func connect(host string, port int, opts ...Option) (*conn, error) {
	versionURL := fmt.Sprintf("http://%s:%d/json/version", host, port)
	resp, err := http.Get(versionURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to chrome: %v", err)
	}
	defer resp.Body.Close()

	var version struct {
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&version); err != nil {
		return nil, fmt.Errorf("decoding version response: %v", err)
	}
	if version.WebSocketDebuggerURL == "" {
		return nil, fmt.Errorf("chrome at %s:%d offers no websocket debugger URL", host, port)
	}

	ws, _, err := websocket.DefaultDialer.Dial(version.WebSocketDebuggerURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing debugger websocket: %v", err)
	}
	c := &conn{ws: ws}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.attachPage(); err != nil {
		ws.Close()
		return nil, err
	}
	return c, nil
}

// attachPage creates a page target and attaches a flattened session to
// it.
func (c *conn) attachPage() error {
	created, err := c.call("", "Target.createTarget", map[string]interface{}{
		"url": "about:blank",
	})
	if err != nil {
		return fmt.Errorf("creating page target: %v", err)
	}
	var target struct {
		TargetID string `json:"targetId"`
	}
	if err := json.Unmarshal(created, &target); err != nil {
		return fmt.Errorf("parsing create response: %v", err)
	}

	attached, err := c.call("", "Target.attachToTarget", map[string]interface{}{
		"targetId": target.TargetID,
		"flatten":  true,
	})
	if err != nil {
		return fmt.Errorf("attaching to page target: %v", err)
	}
	var attach struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(attached, &attach); err != nil {
		return fmt.Errorf("parsing attach response: %v", err)
	}
	c.sessionID = attach.SessionID
	return nil
}

// call issues one protocol command and blocks for its response. Failures
// surface as *wdsession.Error of the unknown kind; a dead websocket gets
// the communication wording the default termination classifier treats as
// benign.
func (c *conn) call(sessionID, method string, params interface{}) (json.RawMessage, error) {
	c.nextID++
	req := map[string]interface{}{
		"id":     c.nextID,
		"method": method,
	}
	if params != nil {
		req["params"] = params
	}
	if sessionID != "" {
		req["sessionId"] = sessionID
	}
	if c.timeout > 0 {
		c.ws.SetWriteDeadline(time.Now().Add(c.timeout))
		c.ws.SetReadDeadline(time.Now().Add(c.timeout))
	}
	if err := c.ws.WriteJSON(req); err != nil {
		return nil, communicationError(method, err)
	}
	for {
		var msg struct {
			ID     int64           `json:"id"`
			Result json.RawMessage `json:"result"`
			Error  *struct {
				Code    int    `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := c.ws.ReadJSON(&msg); err != nil {
			return nil, communicationError(method, err)
		}
		if msg.ID != c.nextID {
			// Protocol event or stale reply.
			continue
		}
		if msg.Error != nil {
			return nil, &wdsession.Error{Kind: wdsession.KindUnknown, Message: msg.Error.Message}
		}
		return msg.Result, nil
	}
}

func communicationError(method string, err error) error {
	return &wdsession.Error{
		Kind:    wdsession.KindUnknown,
		Message: fmt.Sprintf("error communicating with the remote browser on %s: %v", method, err),
	}
}

func (c *conn) eval(expression string) error {
	_, err := c.call(c.sessionID, "Runtime.evaluate", map[string]interface{}{
		"expression":    expression,
		"returnByValue": true,
	})
	return err
}

func (c *conn) Navigate(url string) error {
	_, err := c.call(c.sessionID, "Page.navigate", map[string]string{"url": url})
	return err
}

func (c *conn) ClearLocalStorage() error {
	return c.eval("window.localStorage.clear()")
}

func (c *conn) ClearSessionStorage() error {
	return c.eval("window.sessionStorage.clear()")
}

// DeleteCookies clears the browser cookie store. Unlike the WebDriver
// cookie endpoint this is not scoped to the current domain; DevTools
// exposes the whole jar.
func (c *conn) DeleteCookies() error {
	_, err := c.call(c.sessionID, "Network.clearBrowserCookies", nil)
	return err
}

// Terminate closes the browser and the websocket. A browser that exited
// before the close lands surfaces as a communication error, which the
// default classifier suppresses.
func (c *conn) Terminate() error {
	_, err := c.call("", "Browser.close", nil)
	c.ws.Close()
	return err
}
