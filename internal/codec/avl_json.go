package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// TimestampLayout is the interchange form of record timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

var jsonNull = []byte("null")

func (v IOValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueInt:
		return strconv.AppendInt(nil, v.i, 10), nil
	case ValueFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return jsonNull, nil
		}
		return json.Marshal(v.f)
	default:
		return json.Marshal(v.s)
	}
}

// UnmarshalJSON reads integers as ValueInt, anything with a fraction or
// exponent as ValueFloat and strings as ValueText. IOGroups fixes up the 8-byte
// group, whose whole floats serialize without a fraction.
func (v *IOValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, jsonNull):
		*v = FloatValue(math.NaN())
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = TextValue(s)
		return nil
	}
	if !bytes.ContainsAny(b, ".eE") {
		if i, err := strconv.ParseInt(string(b), 10, 64); err == nil {
			*v = IntValue(i)
			return nil
		}
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("codec: invalid io value %s: %w", b, err)
	}
	*v = FloatValue(f)
	return nil
}

func (g *IOGroups) UnmarshalJSON(b []byte) error {
	type plain IOGroups
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	for i := range p.N8 {
		if p.N8[i].Value.kind == ValueInt {
			p.N8[i].Value = FloatValue(float64(p.N8[i].Value.i))
		}
	}
	*g = IOGroups(p)
	g.ensure()
	return nil
}

// ensure replaces nil groups with empty ones so they serialize as [].
func (g *IOGroups) ensure() {
	for _, group := range []*[]IOElement{&g.N1, &g.N2, &g.N4, &g.N8, &g.NX} {
		if *group == nil {
			*group = []IOElement{}
		}
	}
}

type recordJSON struct {
	Timestamp       string   `json:"timestamp"`
	Priority        uint8    `json:"priority"`
	GPS             GPSData  `json:"gps"`
	EventID         uint16   `json:"event_id"`
	PropertiesCount uint16   `json:"properties_count"`
	IO              IOGroups `json:"ioGroups"`
}

func (r AVLRecord) MarshalJSON() ([]byte, error) {
	io := r.IO
	io.ensure()
	return json.Marshal(recordJSON{
		Timestamp:       r.Timestamp.UTC().Format(TimestampLayout),
		Priority:        r.Priority,
		GPS:             r.GPS,
		EventID:         r.EventID,
		PropertiesCount: r.PropertiesCount,
		IO:              io,
	})
}

func (r *AVLRecord) UnmarshalJSON(b []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	ts, err := time.Parse(TimestampLayout, raw.Timestamp)
	if err != nil {
		return fmt.Errorf("codec: invalid record timestamp: %w", err)
	}
	raw.IO.ensure()
	*r = AVLRecord{
		Timestamp:       ts.UTC(),
		Priority:        raw.Priority,
		GPS:             raw.GPS,
		EventID:         raw.EventID,
		PropertiesCount: raw.PropertiesCount,
		IO:              raw.IO,
	}
	return nil
}

// MarshalRecords is the persisted JSON form of a record list.
func MarshalRecords(records []AVLRecord) ([]byte, error) {
	if records == nil {
		records = []AVLRecord{}
	}
	return json.Marshal(records)
}
