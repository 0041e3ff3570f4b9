package codec

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"testing"
)

// fixtureFrameHex is a real FMC003 transmission: one record, GPS all zero,
// 24 IO elements, trailing record count and CRC.
const fixtureFrameHex = "00000000000000978e01" +
	"0000019c6d352b5800" +
	"000000000000000000000000000000" +
	"00000018" +
	"000c00010000150500450000711e00b30000c80300ed0200ef0000f000017f0033d20333d30a" +
	"0008001100100012ffe00013ffe900430e03004600c700b5000000b6000001820000" +
	"000300090000003b01c100015040032000000000" +
	"0000" +
	"0001028100143839383833303330303030303836363939383339" +
	"0100001e6c"

func fixtureFrame(t *testing.T) []byte {
	t.Helper()
	b, err := hex.DecodeString(fixtureFrameHex)
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return b
}

type ioEntry struct {
	id    uint16
	value any
}

type recordSpec struct {
	ts       int64
	priority uint8
	lon, lat int32
	event    uint16
	n1       []ioEntry
	n2       []ioEntry
	n4       []ioEntry
	n8       []ioEntry
	nx       []ioEntry
}

func put(buf *bytes.Buffer, v any) {
	_ = binary.Write(buf, binary.BigEndian, v)
}

func (s recordSpec) bytes() []byte {
	var buf bytes.Buffer
	put(&buf, s.ts)
	put(&buf, s.priority)
	put(&buf, s.lon)
	put(&buf, s.lat)
	put(&buf, int16(0)) // altitude
	put(&buf, int16(0)) // angle
	put(&buf, uint8(0)) // satellites
	put(&buf, int16(0)) // speed
	put(&buf, s.event)
	total := len(s.n1) + len(s.n2) + len(s.n4) + len(s.n8) + len(s.nx)
	put(&buf, uint16(total))
	for _, group := range [][]ioEntry{s.n1, s.n2, s.n4, s.n8} {
		put(&buf, uint16(len(group)))
		for _, e := range group {
			put(&buf, e.id)
			put(&buf, e.value)
		}
	}
	put(&buf, uint16(len(s.nx)))
	for _, e := range s.nx {
		raw := e.value.([]byte)
		put(&buf, e.id)
		put(&buf, uint16(len(raw)))
		buf.Write(raw)
	}
	return buf.Bytes()
}

// telemetryFrame assembles [preamble][len][codec][count][records][count][crc].
func telemetryFrame(codecID, count uint8, records ...[]byte) []byte {
	var body bytes.Buffer
	body.WriteByte(codecID)
	body.WriteByte(count)
	for _, r := range records {
		body.Write(r)
	}
	body.WriteByte(count)

	var buf bytes.Buffer
	put(&buf, uint32(0))
	put(&buf, uint32(body.Len()))
	buf.Write(body.Bytes())
	put(&buf, uint32(0)) // crc, not checked
	return buf.Bytes()
}
