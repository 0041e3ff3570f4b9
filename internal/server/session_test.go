package server

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avl-svr/internal/admission"
	"avl-svr/internal/codec"
	"avl-svr/internal/dispatcher"
)

const testIMEI = "352093081452251"

const fixtureFrameHex = "00000000000000978e01" +
	"0000019c6d352b580000000000000000000000000000000000000018" +
	"000c00010000150500450000711e00b30000c80300ed0200ef0000f000017f0033d20333d30a" +
	"0008001100100012ffe00013ffe900430e03004600c700b5000000b6000001820000" +
	"000300090000003b01c100015040032000000000" +
	"0000" +
	"0001028100143839383833303330303030303836363939383339" +
	"0100001e6c"

type memorySink struct {
	err error

	mu    sync.Mutex
	saves []savedBatch
}

type savedBatch struct {
	imei    string
	records []codec.AVLRecord
	raw     string
	status  string
}

func (m *memorySink) Save(_ context.Context, imei string, records []codec.AVLRecord, rawHex, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves = append(m.saves, savedBatch{imei, records, rawHex, status})
	return m.err
}

func (m *memorySink) all() []savedBatch {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]savedBatch(nil), m.saves...)
}

type eventLog struct {
	mu     sync.Mutex
	events []dispatcher.Event
}

func (e *eventLog) Dispatch(ev dispatcher.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
}

func (e *eventLog) types() []dispatcher.EventType {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]dispatcher.EventType, 0, len(e.events))
	for _, ev := range e.events {
		out = append(out, ev.Type)
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func identityFrame(imei string) []byte {
	b := make([]byte, 2+len(imei))
	binary.BigEndian.PutUint16(b, uint16(len(imei)))
	copy(b[2:], imei)
	return b
}

func fixtureFrame(t *testing.T) []byte {
	t.Helper()
	b, err := hex.DecodeString(fixtureFrameHex)
	require.NoError(t, err)
	return b
}

// pipeSession starts a session on one end of a net.Pipe and returns the
// device end plus a channel closed when the session ends.
func pipeSession(t *testing.T, opts Options) (net.Conn, <-chan struct{}) {
	t.Helper()
	srv := New(opts, discardLogger())
	device, conn := net.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.ServeConn(conn, nil)
	}()
	t.Cleanup(func() { _ = device.Close() })
	return device, done
}

func readN(t *testing.T, c net.Conn, n int) []byte {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	b := make([]byte, n)
	_, err := io.ReadFull(c, b)
	require.NoError(t, err)
	return b
}

func write(t *testing.T, c net.Conn, b []byte) {
	t.Helper()
	require.NoError(t, c.SetWriteDeadline(time.Now().Add(2*time.Second)))
	_, err := c.Write(b)
	require.NoError(t, err)
}

func waitClosed(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not close")
	}
}

func TestHandshakeAndTelemetryAck(t *testing.T) {
	sink := &memorySink{}
	events := &eventLog{}
	device, done := pipeSession(t, Options{Sink: sink, Events: events})

	write(t, device, identityFrame(testIMEI))
	assert.Equal(t, []byte{0x01}, readN(t, device, 1))

	frame := fixtureFrame(t)
	write(t, device, frame)
	assert.Equal(t, []byte{0, 0, 0, 1}, readN(t, device, 4))

	require.NoError(t, device.Close())
	waitClosed(t, done)

	saves := sink.all()
	require.Len(t, saves, 1)
	assert.Equal(t, testIMEI, saves[0].imei)
	assert.Equal(t, StatusNew, saves[0].status)
	assert.Equal(t, hex.EncodeToString(frame), saves[0].raw)
	require.Len(t, saves[0].records, 1)
	assert.Equal(t, uint16(24), saves[0].records[0].PropertiesCount)

	assert.Equal(t, []dispatcher.EventType{
		dispatcher.EventConnect, dispatcher.EventBatch, dispatcher.EventDisconnect,
	}, events.types())
}

func TestTelemetryBeforeIdentityCloses(t *testing.T) {
	sink := &memorySink{}
	device, done := pipeSession(t, Options{Sink: sink})

	write(t, device, fixtureFrame(t))
	waitClosed(t, done)

	_, err := device.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
	assert.Empty(t, sink.all())
}

func TestInvalidFrameClosesWithoutAck(t *testing.T) {
	sink := &memorySink{}
	device, done := pipeSession(t, Options{Sink: sink})

	write(t, device, identityFrame(testIMEI))
	readN(t, device, 1)

	frame := fixtureFrame(t)
	frame[8] = 0x08 // codec id
	write(t, device, frame)
	waitClosed(t, done)

	_, err := device.Read(make([]byte, 4))
	assert.ErrorIs(t, err, io.EOF)
	assert.Empty(t, sink.all())
}

func TestTruncatedBatchClosesWithoutPersisting(t *testing.T) {
	sink := &memorySink{}
	device, done := pipeSession(t, Options{Sink: sink})

	write(t, device, identityFrame(testIMEI))
	readN(t, device, 1)

	frame := fixtureFrame(t)
	write(t, device, frame[:60])
	waitClosed(t, done)
	assert.Empty(t, sink.all())
}

func TestPersistFailureStillAcks(t *testing.T) {
	sink := &memorySink{err: errors.New("connection refused")}
	device, done := pipeSession(t, Options{Sink: sink})

	write(t, device, identityFrame(testIMEI))
	readN(t, device, 1)
	write(t, device, fixtureFrame(t))
	assert.Equal(t, []byte{0, 0, 0, 1}, readN(t, device, 4))

	_ = device.Close()
	waitClosed(t, done)
	assert.Len(t, sink.all(), 1)
}

func TestInactivityTimeoutCloses(t *testing.T) {
	device, done := pipeSession(t, Options{InactivityTimeout: 50 * time.Millisecond})

	write(t, device, identityFrame(testIMEI))
	readN(t, device, 1)

	// the device stays silent but keeps its end open
	waitClosed(t, done)
	assert.ErrorIs(t, device.SetReadDeadline(time.Now().Add(time.Second)), io.ErrClosedPipe)
	_, err := device.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
}

func TestRepeatedIdentity(t *testing.T) {
	device, done := pipeSession(t, Options{})

	write(t, device, identityFrame(testIMEI))
	readN(t, device, 1)
	write(t, device, identityFrame(testIMEI))
	assert.Equal(t, []byte{0x01}, readN(t, device, 1))

	write(t, device, identityFrame("356307042441013"))
	waitClosed(t, done)
}

func TestEmptyBatchCloses(t *testing.T) {
	device, done := pipeSession(t, Options{})
	write(t, device, identityFrame(testIMEI))
	readN(t, device, 1)

	write(t, device, []byte{0, 0, 0, 0, 0, 0, 0, 4, 0x8e, 0, 0, 0, 0, 0, 0, 0})
	waitClosed(t, done)
}

func TestPermitReleasedOnClose(t *testing.T) {
	gate := admission.New(1)
	permit, err := gate.Acquire(context.Background())
	require.NoError(t, err)

	srv := New(Options{Gate: gate}, discardLogger())
	device, conn := net.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.ServeConn(conn, permit)
	}()

	write(t, device, []byte{0xff, 0xff, 0xff})
	waitClosed(t, done)
	assert.Equal(t, int64(0), gate.Active())
	permit.Release()
	assert.Equal(t, int64(0), gate.Active())
}
