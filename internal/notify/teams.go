// Package notify posts operational alerts to a Teams channel and the
// per-batch business webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const postTimeout = 10 * time.Second

// Notifier sends fire-and-forget alerts.
type Notifier interface {
	Notify(title, message string)
}

type messageCard struct {
	Type     string        `json:"@type"`
	Context  string        `json:"@context"`
	Summary  string        `json:"summary"`
	Title    string        `json:"title"`
	Sections []cardSection `json:"sections"`
}

type cardSection struct {
	Text string `json:"text"`
}

// Teams posts MessageCards to an incoming webhook. Titles are prefixed with
// the environment name. With no URL, alerts are only logged.
type Teams struct {
	url    string
	env    string
	client *http.Client
	logger *slog.Logger

	wg sync.WaitGroup
}

func NewTeams(url, appEnv string, logger *slog.Logger) *Teams {
	return &Teams{
		url:    url,
		env:    appEnv,
		client: &http.Client{Timeout: postTimeout},
		logger: logger.With("component", "teams"),
	}
}

// Notify posts in the background; failures are logged and dropped.
func (t *Teams) Notify(title, message string) {
	if t == nil {
		return
	}
	title = fmt.Sprintf("(%s) %s", t.env, title)
	if t.url == "" {
		t.logger.Info("notification", "title", title, "message", message)
		return
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), postTimeout)
		defer cancel()
		if err := t.post(ctx, title, message); err != nil {
			t.logger.Warn("teams notification failed", "title", title, "err", err)
		}
	}()
}

// SQLError reports a failed statement. Development environments only log it.
func (t *Teams) SQLError(sql string, err error) {
	if t == nil {
		return
	}
	if strings.Contains(t.env, "dev") {
		t.logger.Error("SQL Error", "sql", sql, "err", err)
		return
	}
	message := fmt.Sprintf("<b>Error message</b>:<br/>%s<br/><br/><b>Sql:</b><br/>%s<br/>", err, sql)
	t.Notify("SQL ERROR", message)
}

// Flush waits for in-flight posts or until ctx is done.
func (t *Teams) Flush(ctx context.Context) error {
	if t == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Teams) post(ctx context.Context, title, message string) error {
	body, err := json.Marshal(messageCard{
		Type:     "MessageCard",
		Context:  "https://schema.org/extensions",
		Summary:  title,
		Title:    title,
		Sections: []cardSection{{Text: message}},
	})
	if err != nil {
		return err
	}
	return postJSON(ctx, t.client, t.url, body)
}

func postJSON(ctx context.Context, client *http.Client, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("POST %s: unexpected status %s", url, resp.Status)
	}
	return nil
}
