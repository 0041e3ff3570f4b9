package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"sync"
	"time"

	"avl-svr/internal/admission"
	"avl-svr/internal/codec"
	"avl-svr/internal/dispatcher"
	"avl-svr/internal/observability"
	"avl-svr/internal/rawlog"
)

const (
	DefaultInactivityTimeout = 60 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
	DefaultPersistTimeout    = 10 * time.Second
	DefaultReadBufferSize    = 8192

	keepAlivePeriod = 60 * time.Second
	acceptBackoff   = 100 * time.Millisecond
)

// Sink stores decoded batches. Implementations must be safe for concurrent
// use by all sessions.
type Sink interface {
	Save(ctx context.Context, imei string, records []codec.AVLRecord, rawHex, status string) error
}

// EventSink receives session events. Dispatch must not block.
type EventSink interface {
	Dispatch(ev dispatcher.Event)
}

type Options struct {
	InactivityTimeout time.Duration
	WriteTimeout      time.Duration
	PersistTimeout    time.Duration
	ReadBufferSize    int
	Debug             bool

	Gate   *admission.Controller
	Sink   Sink
	Events EventSink
	RawLog *rawlog.Writer
}

func (o *Options) setDefaults() {
	if o.InactivityTimeout <= 0 {
		o.InactivityTimeout = DefaultInactivityTimeout
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = DefaultWriteTimeout
	}
	if o.PersistTimeout <= 0 {
		o.PersistTimeout = DefaultPersistTimeout
	}
	if o.ReadBufferSize <= 0 {
		o.ReadBufferSize = DefaultReadBufferSize
	}
}

// SessionInfo is a point-in-time view of one connection.
type SessionInfo struct {
	IMEI         string    `json:"imei,omitempty"`
	Remote       string    `json:"remote"`
	State        string    `json:"state"`
	ConnectedAt  time.Time `json:"connected_at"`
	LastActivity time.Time `json:"last_activity"`
}

type Server struct {
	opts   Options
	logger *slog.Logger

	wg       sync.WaitGroup
	mu       sync.Mutex
	sessions map[*session]struct{}
}

func New(opts Options, logger *slog.Logger) *Server {
	opts.setDefaults()
	return &Server{
		opts:     opts,
		logger:   logger.With("component", "tcp"),
		sessions: make(map[*session]struct{}),
	}
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("error starting TCP server: %w", err)
	}
	s.logger.Info("TCP server listening", "addr", ln.Addr().String())
	return s.Serve(ctx, ln)
}

// Serve runs the accept loop until ctx is done. When a gate is configured a
// permit is taken before every Accept, so an exhausted pool leaves new
// connections waiting in the backlog. Established sessions are not
// interrupted on return; use Wait to drain them.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		_ = ln.Close()
	}()

	for {
		var permit *admission.Permit
		if s.opts.Gate != nil {
			p, err := s.opts.Gate.Acquire(ctx)
			if err != nil {
				return nil
			}
			permit = p
		}

		conn, err := ln.Accept()
		if err != nil {
			permit.Release()
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("accept: %w", err)
			}
			s.logger.Error("accept error", "err", err)
			time.Sleep(acceptBackoff)
			continue
		}

		observability.TCPConnections.Inc()
		if s.opts.Gate != nil {
			observability.ActiveSessions.Set(float64(s.opts.Gate.Active()))
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer permit.Release()
			s.ServeConn(conn, permit)
		}()
	}
}

// ServeConn runs one session on conn and returns when it closes. permit may
// be nil; otherwise it is released when the session ends.
func (s *Server) ServeConn(conn net.Conn, permit *admission.Permit) {
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetKeepAlive(true)
		_ = tcpConn.SetKeepAlivePeriod(keepAlivePeriod)
	}
	sess := newSession(s, conn, permit)
	s.track(sess)
	sess.logger.Debug("client connected")
	sess.serve()
}

// Wait blocks until every session has closed or ctx is done.
func (s *Server) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sessions returns the open sessions ordered by connect time.
func (s *Server) Sessions() []SessionInfo {
	s.mu.Lock()
	out := make([]SessionInfo, 0, len(s.sessions))
	for sess := range s.sessions {
		out = append(out, SessionInfo{
			IMEI:         sess.imei,
			Remote:       sess.remote,
			State:        sess.State().String(),
			ConnectedAt:  sess.connectedAt,
			LastActivity: time.Unix(0, sess.lastActivity.Load()),
		})
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ConnectedAt.Before(out[j].ConnectedAt) })
	return out
}

func (s *Server) track(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess] = struct{}{}
}

func (s *Server) identify(sess *session, imei string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.imei = imei
}

func (s *Server) untrack(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sess)
}

func (s *Server) dispatch(ev dispatcher.Event) {
	if s.opts.Events != nil {
		s.opts.Events.Dispatch(ev)
	}
}
