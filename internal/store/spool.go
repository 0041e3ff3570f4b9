package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	bolt "go.etcd.io/bbolt"

	"avl-svr/internal/codec"
	"avl-svr/internal/observability"
)

var pendingBucket = []byte("pending")

// ErrSpoolDisabled is returned by a nil Spool.
var ErrSpoolDisabled = errors.New("store: spool disabled")

// Saver is anything batches can be written to.
type Saver interface {
	Save(ctx context.Context, imei string, records []codec.AVLRecord, rawHex, status string) error
}

type spooledSave struct {
	IMEI    string          `json:"imei"`
	Records json.RawMessage `json:"records"`
	Raw     string          `json:"raw"`
	Status  string          `json:"status"`
	At      time.Time       `json:"at"`
}

// Spool keeps saves the database rejected in a local bbolt file, in arrival
// order, until Replay gets them through.
type Spool struct {
	db *bolt.DB
}

func OpenSpool(path string) (*Spool, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open spool %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(pendingBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init spool: %w", err)
	}
	return &Spool{db: db}, nil
}

func (s *Spool) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Spool) Put(imei string, records []codec.AVLRecord, rawHex, status string, at time.Time) error {
	if s == nil {
		return ErrSpoolDisabled
	}
	data, err := codec.MarshalRecords(records)
	if err != nil {
		return err
	}
	entry, err := json.Marshal(spooledSave{IMEI: imei, Records: data, Raw: rawHex, Status: status, At: at})
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(pendingBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return b.Put(key, entry)
	})
}

// Len returns the number of pending saves.
func (s *Spool) Len() (int, error) {
	if s == nil {
		return 0, nil
	}
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(pendingBucket).Stats().KeyN
		return nil
	})
	return n, err
}

// Replay writes pending saves to dst oldest first and deletes each one that
// succeeds. It stops at the first failure so ordering is kept.
func (s *Spool) Replay(ctx context.Context, dst Saver) (int, error) {
	if s == nil {
		return 0, ErrSpoolDisabled
	}
	replayed := 0
	for ctx.Err() == nil {
		key, raw, err := s.first()
		if err != nil {
			return replayed, err
		}
		if key == nil {
			return replayed, nil
		}

		var (
			entry   spooledSave
			records []codec.AVLRecord
		)
		if err := decodeEntry(raw, &entry, &records); err != nil {
			// unreadable entries would block the queue forever
			if derr := s.delete(key); derr != nil {
				return replayed, derr
			}
			continue
		}
		if err := dst.Save(ctx, entry.IMEI, records, entry.Raw, entry.Status); err != nil {
			return replayed, err
		}
		if err := s.delete(key); err != nil {
			return replayed, err
		}
		replayed++
		observability.ReplayedSaves.Inc()
	}
	return replayed, ctx.Err()
}

// Run replays the spool every interval until ctx is done.
func (s *Spool) Run(ctx context.Context, dst Saver, interval time.Duration, logger *slog.Logger) error {
	if s == nil {
		return nil
	}
	logger = logger.With("component", "spool")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := s.Replay(ctx, dst)
			if n > 0 {
				logger.Info("spooled saves replayed", "count", n)
			}
			if err != nil && ctx.Err() == nil {
				pending, _ := s.Len()
				logger.Warn("spool replay stopped", "pending", pending, "err", err)
			}
		}
	}
}

func decodeEntry(raw []byte, entry *spooledSave, records *[]codec.AVLRecord) error {
	if err := json.Unmarshal(raw, entry); err != nil {
		return err
	}
	return json.Unmarshal(entry.Records, records)
}

// first returns copies of the oldest key and value, or a nil key when the
// spool is empty.
func (s *Spool) first() ([]byte, []byte, error) {
	var key, value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		k, v := tx.Bucket(pendingBucket).Cursor().First()
		if k == nil {
			return nil
		}
		key = append([]byte(nil), k...)
		value = append([]byte(nil), v...)
		return nil
	})
	return key, value, err
}

func (s *Spool) delete(key []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(pendingBucket).Delete(key)
	})
}

// SpoolingSink writes through to Primary and queues failed saves in Spool.
// The primary error is still returned so callers can log it.
type SpoolingSink struct {
	Primary Saver
	Spool   *Spool
	now     func() time.Time
}

func NewSpoolingSink(primary Saver, spool *Spool) *SpoolingSink {
	return &SpoolingSink{Primary: primary, Spool: spool, now: time.Now}
}

func (s *SpoolingSink) Save(ctx context.Context, imei string, records []codec.AVLRecord, rawHex, status string) error {
	err := s.Primary.Save(ctx, imei, records, rawHex, status)
	if err == nil || s.Spool == nil {
		return err
	}
	if perr := s.Spool.Put(imei, records, rawHex, status, s.now()); perr != nil {
		return errors.Join(err, fmt.Errorf("spool: %w", perr))
	}
	observability.SpooledSaves.Inc()
	return fmt.Errorf("%w (spooled for replay)", err)
}
