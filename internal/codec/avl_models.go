package codec

import (
	"math"
	"strconv"
	"time"
)

const (
	// CodecID8Ext is the Codec8 Extended identifier (0x8E).
	CodecID8Ext = 142
	// GPSPrecision converts the raw fixed-point coordinates to degrees.
	GPSPrecision = 10000000.0
)

// ValueKind is the representation of an IO value, fixed by its wire group.
type ValueKind uint8

const (
	ValueInt ValueKind = iota
	ValueFloat
	ValueText
)

// IOValue holds an integer (1/2/4-byte groups), a float (8-byte group) or
// text (variable-length group).
type IOValue struct {
	kind ValueKind
	i    int64
	f    float64
	s    string
}

func IntValue(v int64) IOValue     { return IOValue{kind: ValueInt, i: v} }
func FloatValue(v float64) IOValue { return IOValue{kind: ValueFloat, f: v} }
func TextValue(v string) IOValue   { return IOValue{kind: ValueText, s: v} }

func (v IOValue) Kind() ValueKind { return v.kind }
func (v IOValue) Int() int64      { return v.i }
func (v IOValue) Float() float64  { return v.f }
func (v IOValue) Text() string    { return v.s }

// LookupKey is the integer used to resolve enumerated names: floats are
// truncated toward zero, text resolves as 0.
func (v IOValue) LookupKey() int64 {
	switch v.kind {
	case ValueInt:
		return v.i
	case ValueFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return 0
		}
		return int64(v.f)
	default:
		return 0
	}
}

func (v IOValue) String() string {
	switch v.kind {
	case ValueInt:
		return strconv.FormatInt(v.i, 10)
	case ValueFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	default:
		return v.s
	}
}

// Equal compares kind and value; NaN floats compare equal to each other.
func (v IOValue) Equal(o IOValue) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case ValueInt:
		return v.i == o.i
	case ValueFloat:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	default:
		return v.s == o.s
	}
}

type GPSData struct {
	Longitude  float64 `json:"longitude"`
	Latitude   float64 `json:"latitude"`
	Altitude   int16   `json:"altitude"`
	Angle      int16   `json:"angle"`
	Satellites uint8   `json:"satellites"`
	Speed      int16   `json:"speed"`
}

// IOElement is one enriched IO value. ValueHuman is nil when the dictionary
// has a value table that does not list the value; otherwise it is set,
// possibly to "".
type IOElement struct {
	ID         uint16  `json:"id"`
	Label      string  `json:"label"`
	Value      IOValue `json:"value"`
	Dimension  string  `json:"dimension,omitempty"`
	ValueHuman *string `json:"valueHuman,omitempty"`
}

// IOGroups keeps elements in wire order, split by width class.
type IOGroups struct {
	N1 []IOElement `json:"n1"`
	N2 []IOElement `json:"n2"`
	N4 []IOElement `json:"n4"`
	N8 []IOElement `json:"n8"`
	NX []IOElement `json:"nx"`
}

// Len returns the total number of elements across the groups.
func (g IOGroups) Len() int {
	return len(g.N1) + len(g.N2) + len(g.N4) + len(g.N8) + len(g.NX)
}

// Find returns the first element with id, searching groups in wire order.
func (g IOGroups) Find(id uint16) (IOElement, bool) {
	for _, group := range [][]IOElement{g.N1, g.N2, g.N4, g.N8, g.NX} {
		for _, e := range group {
			if e.ID == id {
				return e, true
			}
		}
	}
	return IOElement{}, false
}

type AVLRecord struct {
	Timestamp       time.Time
	Priority        uint8
	GPS             GPSData
	EventID         uint16
	PropertiesCount uint16
	IO              IOGroups
}

// AvlPacket is one decoded telemetry frame: len(Records) == int(Count).
type AvlPacket struct {
	Preamble   bool        `json:"preamble"`
	DataLength uint32      `json:"data_len"`
	CodecID    uint8       `json:"codec_id"`
	Count      uint8       `json:"number_of_data"`
	Records    []AVLRecord `json:"records"`
}
