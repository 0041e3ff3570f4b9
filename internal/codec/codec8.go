package codec

import (
	"encoding/hex"
	"fmt"
	"time"
	"unicode/utf8"

	"avl-svr/internal/codec/fmxxx"
)

var (
	minTimestamp = time.Date(0, time.January, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	maxTimestamp = time.Date(9999, time.December, 31, 23, 59, 59, 999e6, time.UTC).UnixMilli()
)

// DecodeRecords reads count Codec8 Extended records. It returns either all
// count records or an error; never a partial list.
func DecodeRecords(r *Reader, count int) ([]AVLRecord, error) {
	records := make([]AVLRecord, 0, count)
	for i := 0; i < count; i++ {
		rec, err := decodeRecord(r)
		if err != nil {
			return nil, fmt.Errorf("record %d/%d: %w", i+1, count, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func decodeRecord(r *Reader) (AVLRecord, error) {
	var rec AVLRecord

	ms, err := r.Int64("timestamp")
	if err != nil {
		return rec, err
	}
	if ms < minTimestamp || ms > maxTimestamp {
		return rec, fmt.Errorf("%w: timestamp %d ms out of range", ErrTruncated, ms)
	}
	rec.Timestamp = time.UnixMilli(ms).UTC()

	if rec.Priority, err = r.Uint8("priority"); err != nil {
		return rec, err
	}
	if rec.GPS, err = decodeGPS(r); err != nil {
		return rec, err
	}
	if rec.EventID, err = r.Uint16("event id"); err != nil {
		return rec, err
	}
	// informational only, not checked against the group counts
	if rec.PropertiesCount, err = r.Uint16("properties count"); err != nil {
		return rec, err
	}
	if rec.IO, err = decodeIO(r); err != nil {
		return rec, err
	}
	return rec, nil
}

func decodeGPS(r *Reader) (GPSData, error) {
	var g GPSData
	lon, err := r.Int32("longitude")
	if err != nil {
		return g, err
	}
	lat, err := r.Int32("latitude")
	if err != nil {
		return g, err
	}
	if g.Altitude, err = r.Int16("altitude"); err != nil {
		return g, err
	}
	if g.Angle, err = r.Int16("angle"); err != nil {
		return g, err
	}
	if g.Satellites, err = r.Uint8("satellites"); err != nil {
		return g, err
	}
	if g.Speed, err = r.Int16("speed"); err != nil {
		return g, err
	}
	g.Longitude = Degrees(int64(lon))
	g.Latitude = Degrees(int64(lat))
	return g, nil
}

// Degrees converts a fixed-point coordinate to decimal degrees.
func Degrees(raw int64) float64 {
	return float64(raw) / GPSPrecision
}

// decodeIO reads the five IO groups in wire order: 1, 2, 4, 8 bytes, then
// variable length. Each group starts with its own 2-byte element count.
func decodeIO(r *Reader) (IOGroups, error) {
	var g IOGroups

	// readGroup reads one fixed-width group; value widens the raw bytes.
	readGroup := func(name string, value func(*Reader) (IOValue, error)) ([]IOElement, error) {
		count, err := r.Uint16(name + " count")
		if err != nil {
			return nil, err
		}
		out := make([]IOElement, 0, count)
		for i := 0; i < int(count); i++ {
			id, err := r.Uint16(name + " id")
			if err != nil {
				return nil, err
			}
			v, err := value(r)
			if err != nil {
				return nil, err
			}
			out = append(out, NewIOElement(id, v))
		}
		return out, nil
	}

	var err error
	if g.N1, err = readGroup("n1", func(r *Reader) (IOValue, error) {
		v, err := r.Uint8("n1 value")
		return IntValue(int64(v)), err
	}); err != nil {
		return g, err
	}
	if g.N2, err = readGroup("n2", func(r *Reader) (IOValue, error) {
		v, err := r.Int16("n2 value")
		return IntValue(int64(v)), err
	}); err != nil {
		return g, err
	}
	if g.N4, err = readGroup("n4", func(r *Reader) (IOValue, error) {
		v, err := r.Int32("n4 value")
		return IntValue(int64(v)), err
	}); err != nil {
		return g, err
	}
	if g.N8, err = readGroup("n8", func(r *Reader) (IOValue, error) {
		v, err := r.Float64("n8 value")
		return FloatValue(v), err
	}); err != nil {
		return g, err
	}
	if g.NX, err = readGroup("nx", func(r *Reader) (IOValue, error) {
		n, err := r.Uint16("nx length")
		if err != nil {
			return IOValue{}, err
		}
		b, err := r.Bytes(int(n), "nx value")
		if err != nil {
			return IOValue{}, err
		}
		return TextValue(textOrHex(b)), nil
	}); err != nil {
		return g, err
	}
	return g, nil
}

// textOrHex keeps valid UTF-8 (ICCID, VIN) as text and falls back to
// lowercase hex for binary payloads.
func textOrHex(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return hex.EncodeToString(b)
}

// NewIOElement enriches a raw value from the dictionary. Text values resolve
// their enumerated name as value 0.
func NewIOElement(id uint16, v IOValue) IOElement {
	meta := fmxxx.Resolve(id, v.LookupKey())
	return IOElement{
		ID:         id,
		Label:      meta.Label,
		Value:      v,
		Dimension:  meta.Dimension,
		ValueHuman: meta.Human.Ptr(),
	}
}
