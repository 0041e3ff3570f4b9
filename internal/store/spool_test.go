package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"avl-svr/internal/codec"
)

type memSaver struct {
	failAfter int
	imeis     []string
	records   [][]codec.AVLRecord
}

func (m *memSaver) Save(_ context.Context, imei string, records []codec.AVLRecord, _, _ string) error {
	if m.failAfter >= 0 && len(m.imeis) >= m.failAfter {
		return errors.New("db down")
	}
	m.imeis = append(m.imeis, imei)
	m.records = append(m.records, records)
	return nil
}

func openSpool(t *testing.T) *Spool {
	t.Helper()
	s, err := OpenSpool(filepath.Join(t.TempDir(), "spool.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSpoolReplayInOrder(t *testing.T) {
	s := openSpool(t)
	now := time.Now()
	for _, imei := range []string{"a", "b", "c"} {
		require.NoError(t, s.Put(imei, sampleRecords(), "00", "new", now))
	}
	n, err := s.Len()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// stops at the first failure and keeps the rest
	dst := &memSaver{failAfter: 2}
	replayed, err := s.Replay(context.Background(), dst)
	assert.Error(t, err)
	assert.Equal(t, 2, replayed)
	assert.Equal(t, []string{"a", "b"}, dst.imeis)
	n, _ = s.Len()
	assert.Equal(t, 1, n)

	dst.failAfter = -1
	replayed, err = s.Replay(context.Background(), dst)
	require.NoError(t, err)
	assert.Equal(t, 1, replayed)
	assert.Equal(t, []string{"a", "b", "c"}, dst.imeis)
	assert.Equal(t, sampleRecords()[0].Timestamp, dst.records[2][0].Timestamp)
	n, _ = s.Len()
	assert.Equal(t, 0, n)
}

func TestSpoolSkipsCorruptEntries(t *testing.T) {
	s := openSpool(t)
	require.NoError(t, s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(pendingBucket).Put([]byte{0, 0, 0, 0, 0, 0, 0, 0}, []byte("{not json"))
	}))
	require.NoError(t, s.Put("a", sampleRecords(), "", "new", time.Now()))

	dst := &memSaver{failAfter: -1}
	replayed, err := s.Replay(context.Background(), dst)
	require.NoError(t, err)
	assert.Equal(t, 1, replayed)
	assert.Equal(t, []string{"a"}, dst.imeis)
}

func TestSpoolingSink(t *testing.T) {
	s := openSpool(t)
	primary := &memSaver{failAfter: 0}
	sink := NewSpoolingSink(primary, s)

	err := sink.Save(context.Background(), "a", sampleRecords(), "00", "new")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spooled for replay")
	n, _ := s.Len()
	assert.Equal(t, 1, n)

	primary.failAfter = -1
	require.NoError(t, sink.Save(context.Background(), "b", sampleRecords(), "00", "new"))
	n, _ = s.Len()
	assert.Equal(t, 1, n)
}

func TestNilSpool(t *testing.T) {
	var s *Spool
	assert.ErrorIs(t, s.Put("a", nil, "", "", time.Now()), ErrSpoolDisabled)
	n, err := s.Len()
	assert.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, s.Close())

	sink := NewSpoolingSink(&memSaver{failAfter: 0}, nil)
	err = sink.Save(context.Background(), "a", nil, "", "new")
	assert.EqualError(t, err, "db down")
}
