package link

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avl-svr/internal/codec"
	"avl-svr/internal/dispatcher"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDisabledWithoutAddress(t *testing.T) {
	c := New("", discard())
	assert.Nil(t, c)
	assert.NoError(t, c.Run(context.Background()))
	assert.False(t, c.Connected())
}

func TestForwardWritesNDJSON(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	c := New(ln.Addr().String(), discard())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = c.Run(ctx)
		close(done)
	}()

	proxy, err := ln.Accept()
	require.NoError(t, err)
	defer proxy.Close()
	require.Eventually(t, c.Connected, 2*time.Second, 10*time.Millisecond)

	now := time.Now()
	require.NoError(t, c.Forward(ctx, dispatcher.NewConnectEvent("352093081452251", "10.1.2.3:40000", now)))
	recs := []codec.AVLRecord{{Timestamp: now}}
	require.NoError(t, c.Forward(ctx, dispatcher.NewBatchEvent("352093081452251", "", recs, now)))
	require.NoError(t, c.Forward(ctx, dispatcher.NewDisconnectEvent("352093081452251", "", now)))

	require.NoError(t, proxy.SetReadDeadline(time.Now().Add(2*time.Second)))
	sc := bufio.NewScanner(proxy)
	var lines []map[string]any
	for len(lines) < 3 && sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		lines = append(lines, m)
	}
	require.Len(t, lines, 3)

	assert.Equal(t, true, lines[0]["device_connect"])
	assert.Equal(t, "10.1.2.3", lines[0]["remote_ip"])
	assert.Equal(t, 40000.0, lines[0]["remote_port"])
	assert.Equal(t, "352093081452251", lines[1]["imei"])
	assert.Contains(t, lines[1], "perm_io")
	assert.Equal(t, true, lines[2]["device_disconnect"])

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
	assert.False(t, c.Connected())
}

func TestSendWhileDisconnected(t *testing.T) {
	c := New("127.0.0.1:1", discard())
	err := c.Forward(context.Background(), dispatcher.NewDisconnectEvent("1", "", time.Now()))
	assert.ErrorIs(t, err, ErrNotConnected)
}
