// Package link keeps a newline-delimited JSON connection to the socket proxy
// and mirrors device events onto it.
package link

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"avl-svr/internal/dispatcher"
	"avl-svr/internal/pipeline"
)

const (
	dialTimeout    = 5 * time.Second
	retryDelay     = 5 * time.Second
	reconnectDelay = 2 * time.Second
	writeTimeout   = 5 * time.Second
)

// ErrNotConnected is returned while the proxy connection is down.
var ErrNotConnected = errors.New("link: not connected")

type Client struct {
	addr   string
	logger *slog.Logger

	retryDelay     time.Duration
	reconnectDelay time.Duration

	mu   sync.Mutex
	conn net.Conn
}

// New returns nil when addr is empty, leaving the link disabled.
func New(addr string, logger *slog.Logger) *Client {
	if addr == "" {
		logger.Info("link: disabled (no proxy address configured)")
		return nil
	}
	return &Client{
		addr:           addr,
		logger:         logger.With("component", "link"),
		retryDelay:     retryDelay,
		reconnectDelay: reconnectDelay,
	}
}

// Run dials the proxy and keeps reconnecting until ctx is done.
func (c *Client) Run(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var d net.Dialer
	for ctx.Err() == nil {
		dctx, cancel := context.WithTimeout(ctx, dialTimeout)
		conn, err := d.DialContext(dctx, "tcp", c.addr)
		cancel()
		if err != nil {
			c.logger.Error("link: dial failed", "addr", c.addr, "err", err)
			sleep(ctx, c.retryDelay)
			continue
		}

		c.setConn(conn)
		c.logger.Info("link: connected", "remote", conn.RemoteAddr().String())

		stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
		c.readLoop(conn)
		stop()

		c.clearConn(conn)
		if ctx.Err() != nil {
			break
		}
		c.logger.Warn("link: connection closed, reconnecting...")
		sleep(ctx, c.reconnectDelay)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (c *Client) setConn(conn net.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn = conn
}

func (c *Client) clearConn(conn net.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == conn {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// Connected reports whether a proxy connection is up.
func (c *Client) Connected() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// readLoop only logs what the proxy sends; commands towards devices are not
// supported.
func (c *Client) readLoop(conn net.Conn) {
	r := bufio.NewScanner(conn)
	for r.Scan() {
		c.logger.Info("link: incoming line", "line", r.Text())
	}
	if err := r.Err(); err != nil {
		c.logger.Warn("link: read error", "err", err)
	}
}

// send writes one NDJSON line; the mutex keeps lines from interleaving.
func (c *Client) send(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err = c.conn.Write(append(b, '\n'))
	return err
}

type deviceConnectPayload struct {
	DeviceConnect bool   `json:"device_connect"`
	IMEI          string `json:"imei"`
	RemoteIP      string `json:"remote_ip,omitempty"`
	RemotePort    int    `json:"remote_port,omitempty"`
}

type deviceDisconnectPayload struct {
	DeviceDisconnect bool   `json:"device_disconnect"`
	IMEI             string `json:"imei"`
}

func (c *Client) Name() string { return "link" }

func (c *Client) Forward(_ context.Context, ev dispatcher.Event) error {
	switch ev.Type {
	case dispatcher.EventConnect:
		pl := deviceConnectPayload{DeviceConnect: true, IMEI: ev.IMEI}
		if host, port, err := net.SplitHostPort(ev.Remote); err == nil {
			pl.RemoteIP = host
			pl.RemotePort, _ = strconv.Atoi(port)
		}
		return c.send(pl)
	case dispatcher.EventDisconnect:
		return c.send(deviceDisconnectPayload{DeviceDisconnect: true, IMEI: ev.IMEI})
	case dispatcher.EventBatch:
		for _, tr := range ev.Trackings {
			if err := c.SendTracking(tr); err != nil {
				return err
			}
		}
	}
	return nil
}

// SendTracking writes the tracking in its TrackingObject JSON form.
func (c *Client) SendTracking(tr *pipeline.TrackingObject) error {
	if tr == nil {
		return nil
	}
	return c.send(tr)
}
