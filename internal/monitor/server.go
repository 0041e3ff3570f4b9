// Package monitor serves the HTTP side of the ingestion server: health,
// Prometheus metrics, the live tracking websocket and read-only session
// and device views.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"avl-svr/internal/server"
)

const pingTimeout = 3 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type SessionLister interface {
	Sessions() []server.SessionInfo
}

type DeviceLookup interface {
	LastState(ctx context.Context, imei string) (map[string]string, error)
}

// Options wires the optional collaborators. Nil fields disable their routes.
type Options struct {
	DB       Pinger
	Sessions SessionLister
	Devices  DeviceLookup
	Live     http.Handler
}

type Monitor struct {
	opts   Options
	logger *slog.Logger
	router *gin.Engine
}

func New(opts Options, logger *slog.Logger) *Monitor {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(logger))

	m := &Monitor{opts: opts, logger: logger.With("component", "monitor"), router: r}
	m.routes()
	return m
}

func (m *Monitor) Handler() http.Handler { return m.router }

func (m *Monitor) routes() {
	m.router.GET("/health", m.health)
	m.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if m.opts.Live != nil {
		m.router.GET("/ws", gin.WrapH(m.opts.Live))
	}
	if m.opts.Sessions != nil {
		m.router.GET("/sessions", func(c *gin.Context) {
			list := m.opts.Sessions.Sessions()
			c.JSON(http.StatusOK, gin.H{"count": len(list), "sessions": list})
		})
	}
	if m.opts.Devices != nil {
		m.router.GET("/devices/:imei", m.device)
	}
}

func (m *Monitor) health(c *gin.Context) {
	if m.opts.DB != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
		defer cancel()
		if err := m.opts.DB.Ping(ctx); err != nil {
			m.logger.Warn("health check failed", "err", err)
			c.String(http.StatusServiceUnavailable, "DB connection failed")
			return
		}
	}
	c.String(http.StatusOK, "OK")
}

func (m *Monitor) device(c *gin.Context) {
	imei := c.Param("imei")
	state, err := m.opts.Devices.LastState(c.Request.Context(), imei)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if len(state) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "device not found", "imei": imei})
		return
	}
	c.JSON(http.StatusOK, gin.H{"imei": imei, "state": state})
}

// Run serves on addr until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return m.Serve(ctx, ln)
}

func (m *Monitor) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           m.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	m.logger.Info("monitor listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		level := slog.LevelDebug
		if status >= 500 {
			level = slog.LevelError
		} else if status >= 400 {
			level = slog.LevelWarn
		}
		logger.Log(c.Request.Context(), level, "http_request",
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}
