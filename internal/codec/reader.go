package codec

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Reader is a forward-only big-endian cursor over one frame. Every read
// checks the remaining length first and fails with ErrTruncated instead of
// panicking.
type Reader struct {
	data []byte
	off  int
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

// Peek returns the next n bytes without consuming them.
func (r *Reader) Peek(n int) ([]byte, bool) {
	if n > r.Remaining() {
		return nil, false
	}
	return r.data[r.off : r.off+n], true
}

// Skip consumes n bytes.
func (r *Reader) Skip(n int, field string) error {
	_, err := r.safeRead(n, field)
	return err
}

// safeRead returns the next length bytes, or ErrTruncated naming the field.
func (r *Reader) safeRead(length int, field string) ([]byte, error) {
	if length < 0 || length > r.Remaining() {
		return nil, fmt.Errorf("%w: %s needs %d bytes at offset %d (len=%d)",
			ErrTruncated, field, length, r.off, len(r.data))
	}
	b := r.data[r.off : r.off+length]
	r.off += length
	return b, nil
}

func (r *Reader) Uint8(field string) (uint8, error) {
	b, err := r.safeRead(1, field)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) Uint16(field string) (uint16, error) {
	b, err := r.safeRead(2, field)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *Reader) Int16(field string) (int16, error) {
	v, err := r.Uint16(field)
	return int16(v), err
}

func (r *Reader) Uint32(field string) (uint32, error) {
	b, err := r.safeRead(4, field)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *Reader) Int32(field string) (int32, error) {
	v, err := r.Uint32(field)
	return int32(v), err
}

func (r *Reader) Int64(field string) (int64, error) {
	b, err := r.safeRead(8, field)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

func (r *Reader) Float64(field string) (float64, error) {
	b, err := r.safeRead(8, field)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

// Bytes returns a copy of the next n bytes.
func (r *Reader) Bytes(n int, field string) ([]byte, error) {
	b, err := r.safeRead(n, field)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}
