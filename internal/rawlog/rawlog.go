// Package rawlog archives every received frame as hex in per-day files.
package rawlog

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const DefaultPrefix = "ALLTRACKINGS"

// Writer appends "HH:MM:SS - <imei> <hex>" lines to
// <dir>/<prefix>_YYYYMMDD.log. A nil Writer discards everything.
type Writer struct {
	dir    string
	prefix string
	now    func() time.Time

	mu sync.Mutex
}

// New returns nil when dir is empty so callers can skip the nil check on
// the hot path.
func New(dir, prefix string) (*Writer, error) {
	if dir == "" {
		return nil, nil
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("rawlog: create %s: %w", dir, err)
	}
	return &Writer{dir: dir, prefix: prefix, now: time.Now}, nil
}

// Path is the file frames received at t are written to.
func (w *Writer) Path(t time.Time) string {
	return filepath.Join(w.dir, w.prefix+"_"+t.Format("20060102")+".log")
}

func (w *Writer) Write(imei string, frame []byte) error {
	if w == nil {
		return nil
	}
	if imei == "" {
		imei = "-"
	}
	now := w.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.Path(now), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("rawlog: open: %w", err)
	}
	defer f.Close()

	line := now.Format("15:04:05") + " - " + imei + " " + hex.EncodeToString(frame) + "\n"
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("rawlog: write: %w", err)
	}
	return nil
}
