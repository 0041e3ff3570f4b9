package server

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"avl-svr/internal/admission"
	"avl-svr/internal/codec"
	"avl-svr/internal/dispatcher"
	"avl-svr/internal/observability"
)

// State is the lifecycle of one device connection.
type State uint32

const (
	StateAwaitingIdentification State = iota
	StateAuthenticated
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAwaitingIdentification:
		return "awaiting_identification"
	case StateAuthenticated:
		return "authenticated"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// CloseReason labels why a session ended.
type CloseReason string

const (
	ReasonEOF              CloseReason = "eof"
	ReasonTimeout          CloseReason = "inactivity_timeout"
	ReasonReadError        CloseReason = "read_error"
	ReasonWriteError       CloseReason = "write_error"
	ReasonUnauthenticated  CloseReason = "unauthenticated"
	ReasonInvalidFrame     CloseReason = "invalid_frame"
	ReasonEmptyBatch       CloseReason = "empty_batch"
	ReasonIdentityMismatch CloseReason = "identity_mismatch"
)

// StatusNew is the status every freshly received batch is stored with.
const StatusNew = "new"

var handshakeAck = []byte{0x01}

type session struct {
	srv    *Server
	conn   net.Conn
	permit *admission.Permit
	logger *slog.Logger

	remote      string
	connectedAt time.Time

	// imei is written once, under srv.mu, by identify.
	imei         string
	state        atomic.Uint32
	lastActivity atomic.Int64

	buf []byte
}

func newSession(srv *Server, conn net.Conn, permit *admission.Permit) *session {
	now := time.Now()
	s := &session{
		srv:         srv,
		conn:        conn,
		permit:      permit,
		remote:      conn.RemoteAddr().String(),
		connectedAt: now,
		buf:         make([]byte, srv.opts.ReadBufferSize),
	}
	s.logger = srv.logger.With("remote", s.remote)
	s.lastActivity.Store(now.UnixNano())
	return s
}

func (s *session) State() State {
	return State(s.state.Load())
}

func (s *session) serve() {
	reason := s.loop()
	s.close(reason)
}

func (s *session) loop() CloseReason {
	for {
		if err := s.conn.SetReadDeadline(time.Now().Add(s.srv.opts.InactivityTimeout)); err != nil {
			return ReasonReadError
		}
		n, err := s.conn.Read(s.buf)
		if err != nil {
			var ne net.Error
			switch {
			case errors.As(err, &ne) && ne.Timeout():
				return ReasonTimeout
			case errors.Is(err, io.EOF):
				return ReasonEOF
			default:
				s.logger.Debug("read error", "err", err)
				return ReasonReadError
			}
		}
		if n == 0 {
			return ReasonEOF
		}

		data := make([]byte, n)
		copy(data, s.buf[:n])
		if reason, done := s.handle(data); done {
			return reason
		}
	}
}

// handle runs one read event through the state machine. done reports that
// the session must close.
func (s *session) handle(data []byte) (CloseReason, bool) {
	now := time.Now()
	s.lastActivity.Store(now.UnixNano())

	if err := s.srv.opts.RawLog.Write(s.imei, data); err != nil {
		s.logger.Warn("raw log write failed", "err", err)
	}
	if s.srv.opts.Debug {
		s.logger.Debug("frame received", "imei", s.imei, "len", len(data), "hex", hex.EncodeToString(data))
	}

	start := time.Now()
	f := codec.Classify(data)
	observability.ObserveDecodeLatency(start)

	if f.Kind == codec.FrameInvalid {
		observability.DecodeErrors.WithLabelValues(codec.ErrorKind(f.Err)).Inc()
	}

	switch s.State() {
	case StateAwaitingIdentification:
		if f.Kind != codec.FrameIdentity {
			s.logger.Warn("frame before identification", "kind", f.Kind.String(), "len", len(data), "err", f.Err)
			return ReasonUnauthenticated, true
		}
		if err := s.write(handshakeAck); err != nil {
			return ReasonWriteError, true
		}
		s.srv.identify(s, f.IMEI)
		s.state.Store(uint32(StateAuthenticated))
		s.logger = s.logger.With("imei", s.imei)
		observability.HandshakeOK.Inc()
		s.logger.Info("device identified")
		s.srv.dispatch(dispatcher.NewConnectEvent(s.imei, s.remote, now))
		return "", false

	case StateAuthenticated:
		switch f.Kind {
		case codec.FrameIdentity:
			if f.IMEI != s.imei {
				s.logger.Warn("identity changed mid-session", "new_imei", f.IMEI)
				return ReasonIdentityMismatch, true
			}
			if err := s.write(handshakeAck); err != nil {
				return ReasonWriteError, true
			}
			return "", false
		case codec.FrameInvalid:
			s.logger.Warn("invalid telemetry frame", "err", f.Err, "len", len(data))
			return ReasonInvalidFrame, true
		}
		return s.handleTelemetry(f.Packet, data, now)
	}
	return ReasonReadError, true
}

func (s *session) handleTelemetry(pkt codec.AvlPacket, data []byte, now time.Time) (CloseReason, bool) {
	if len(pkt.Records) == 0 {
		s.logger.Warn("telemetry frame without records")
		return ReasonEmptyBatch, true
	}
	observability.PacketsRecv.Inc()
	if s.srv.opts.Debug {
		for _, rec := range pkt.Records {
			s.logger.Debug("record", "text", codec.FormatRecord(rec))
		}
	}

	s.persist(pkt.Records, data)
	s.srv.dispatch(dispatcher.NewBatchEvent(s.imei, s.remote, pkt.Records, now))

	ack := make([]byte, 4)
	binary.BigEndian.PutUint32(ack, uint32(pkt.Count))
	if err := s.write(ack); err != nil {
		return ReasonWriteError, true
	}
	observability.RecordsAck.Add(float64(pkt.Count))
	s.logger.Info("records acknowledged", "count", pkt.Count)
	return "", false
}

// persist waits for the sink so acks stay ordered with stored batches. Its
// failure is reported but never withholds the ack.
func (s *session) persist(records []codec.AVLRecord, data []byte) {
	sink := s.srv.opts.Sink
	if sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.srv.opts.PersistTimeout)
	defer cancel()
	if err := sink.Save(ctx, s.imei, records, hex.EncodeToString(data), StatusNew); err != nil {
		observability.PersistErrors.Inc()
		s.logger.Error("persist failed", "records", len(records), "err", err)
	}
}

func (s *session) write(b []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.srv.opts.WriteTimeout)); err != nil {
		return err
	}
	if _, err := s.conn.Write(b); err != nil {
		s.logger.Warn("write failed", "err", err)
		return err
	}
	return nil
}

func (s *session) close(reason CloseReason) {
	prev := State(s.state.Swap(uint32(StateClosed)))
	if prev == StateClosed {
		return
	}
	_ = s.conn.Close()
	s.permit.Release()

	observability.SessionCloses.WithLabelValues(string(reason)).Inc()
	if s.srv.opts.Gate != nil {
		observability.ActiveSessions.Set(float64(s.srv.opts.Gate.Active()))
	}
	s.srv.untrack(s)
	if prev == StateAuthenticated {
		s.srv.dispatch(dispatcher.NewDisconnectEvent(s.imei, s.remote, time.Now()))
	}
	s.logger.Info("session closed", "reason", string(reason), "state", prev.String())
}
