package verify

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tversen/pinpane/internal/logging"
)

// DefaultTimeout bounds the dial handshake and each verify exchange.
const DefaultTimeout = 10 * time.Second

// Client talks to a pinpane-verifyd instance over WebSocket. A client keeps
// one connection open across Verify calls so a multi-attempt login flow is
// subject to the daemon's per-connection attempt limit.
//
// Client is not safe for concurrent use.
type Client struct {
	host    string
	port    int
	timeout time.Duration
	conn    *websocket.Conn
}

// NewClient creates a client for the daemon at host:port. A non-positive
// port selects DefaultPort.
func NewClient(host string, port int) *Client {
	if port <= 0 {
		port = DefaultPort
	}
	return &Client{
		host:    host,
		port:    port,
		timeout: DefaultTimeout,
	}
}

// SetTimeout overrides the exchange timeout.
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.timeout = d
	}
}

// URL returns the WebSocket URL the client dials.
func (c *Client) URL() string {
	u := url.URL{
		Scheme: "ws",
		Host:   net.JoinHostPort(c.host, strconv.Itoa(c.port)),
		Path:   RequestPath,
	}
	return u.String()
}

// Connect dials the daemon if no connection is open yet.
func (c *Client) Connect(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: c.timeout,
	}
	conn, resp, err := dialer.DialContext(ctx, c.URL(), nil)
	if err != nil {
		if resp != nil {
			return NewHandshakeError(fmt.Sprintf("upgrade rejected with status %d", resp.StatusCode), err)
		}
		return ClassifyNetError(err, c.URL())
	}
	conn.SetReadLimit(MaxMessageSize)
	c.conn = conn

	logging.Debug("Connected to verification daemon",
		zap.String("endpoint", c.URL()),
	)
	return nil
}

// Verify submits one code for the given user and waits for the daemon's
// verdict. It connects on first use. A denied verdict is not an error;
// errors mean the exchange itself failed.
func (c *Client) Verify(ctx context.Context, user, code string) (*Response, error) {
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}

	id := GenerateMessageID()
	data, err := BuildRequest(id, user, code)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return nil, ClassifyNetError(err, c.URL())
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return nil, ClassifyNetError(err, c.URL())
	}
	logging.LogWSMessage(c.URL(), "sent", "text", len(data))

	for {
		if err := c.conn.SetReadDeadline(deadline); err != nil {
			return nil, ClassifyNetError(err, c.URL())
		}
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return nil, ClassifyNetError(err, c.URL())
		}
		logging.LogWSMessage(c.URL(), "received", "text", len(payload))

		resp, err := ParseResponse(payload)
		if err != nil {
			return nil, err
		}
		if resp.ID != id {
			// Stale answer to an earlier request on this connection.
			logging.Debug("Discarding response with stale ID",
				zap.Uint32("got", resp.ID),
				zap.Uint32("want", id),
			)
			continue
		}
		return resp, nil
	}
}

// Close sends a polite close frame and tears the connection down. Closing
// an unconnected client is a no-op.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	deadline := time.Now().Add(time.Second)
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	err := c.conn.Close()
	c.conn = nil
	return err
}

// VerifyOnce dials the daemon, performs a single verification and closes
// the connection. It is the one-shot convenience used by the CLI.
func VerifyOnce(ctx context.Context, host string, port int, user, code string) (*Response, error) {
	client := NewClient(host, port)
	defer func() { _ = client.Close() }()
	return client.Verify(ctx, user, code)
}
