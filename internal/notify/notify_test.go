package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avl-svr/internal/dispatcher"
)

type capture struct {
	mu     sync.Mutex
	paths  []string
	bodies [][]byte
	status int
}

func (c *capture) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	c.mu.Lock()
	c.paths = append(c.paths, r.URL.Path)
	c.bodies = append(c.bodies, b)
	status := c.status
	c.mu.Unlock()
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
}

func (c *capture) setStatus(code int) {
	c.mu.Lock()
	c.status = code
	c.mu.Unlock()
}

func (c *capture) snapshot() ([]string, [][]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.paths...), append([][]byte(nil), c.bodies...)
}

func (c *capture) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.bodies)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTeamsMessageCard(t *testing.T) {
	rec := &capture{}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	teams := NewTeams(srv.URL, "production", discard())
	teams.Notify("avl-svr v1.0.0 started", "")
	teams.SQLError("INSERT INTO teltonika_data", errors.New("deadlock detected"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, teams.Flush(ctx))
	require.Equal(t, 2, rec.len())

	_, bodies := rec.snapshot()
	var cards []messageCard
	for _, b := range bodies {
		var card messageCard
		require.NoError(t, json.Unmarshal(b, &card))
		cards = append(cards, card)
	}
	titles := []string{cards[0].Title, cards[1].Title}
	assert.ElementsMatch(t, []string{"(production) avl-svr v1.0.0 started", "(production) SQL ERROR"}, titles)
	for _, card := range cards {
		assert.Equal(t, "MessageCard", card.Type)
		assert.Equal(t, card.Title, card.Summary)
		require.Len(t, card.Sections, 1)
		if card.Title == "(production) SQL ERROR" {
			assert.Contains(t, card.Sections[0].Text, "deadlock detected")
			assert.Contains(t, card.Sections[0].Text, "<b>Sql:</b><br/>INSERT INTO teltonika_data")
		}
	}
}

func TestSQLErrorInDevelopmentIsLocal(t *testing.T) {
	rec := &capture{}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	teams := NewTeams(srv.URL, "development", discard())
	teams.SQLError("SELECT 1", errors.New("boom"))
	require.NoError(t, teams.Flush(context.Background()))
	assert.Equal(t, 0, rec.len())
}

func TestNilTeams(t *testing.T) {
	var teams *Teams
	assert.NotPanics(t, func() {
		teams.Notify("x", "y")
		teams.SQLError("x", errors.New("y"))
	})
	assert.NoError(t, teams.Flush(context.Background()))
}

type alerts struct {
	mu     sync.Mutex
	titles []string
}

func (a *alerts) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.titles)
}

func (a *alerts) Notify(title, _ string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.titles = append(a.titles, title)
}

func TestWebhookPostsPerBatch(t *testing.T) {
	rec := &capture{}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	al := &alerts{}
	wh := NewWebhook(srv.URL+"/", al)
	ctx := context.Background()

	require.NoError(t, wh.Forward(ctx, dispatcher.Event{Type: dispatcher.EventBatch}))
	require.NoError(t, wh.Forward(ctx, dispatcher.Event{Type: dispatcher.EventConnect}))
	paths, bodies := rec.snapshot()
	require.Len(t, bodies, 1)
	assert.Equal(t, "/modmessage-ttk/message-webhook", paths[0])
	assert.Equal(t, "{}", string(bodies[0]))
	assert.Zero(t, al.count())

	rec.setStatus(http.StatusBadGateway)
	assert.Error(t, wh.Forward(ctx, dispatcher.Event{Type: dispatcher.EventBatch}))
	assert.Equal(t, 1, al.count())
}

func TestWebhookDisabled(t *testing.T) {
	assert.Nil(t, NewWebhook("", nil))
}
