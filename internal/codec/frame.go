package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

const (
	minHeaderLen = 8
	preambleLen  = 4
)

// FrameKind is the classification of one read buffer.
type FrameKind uint8

const (
	FrameInvalid FrameKind = iota
	FrameIdentity
	FrameTelemetry
)

func (k FrameKind) String() string {
	switch k {
	case FrameIdentity:
		return "identity"
	case FrameTelemetry:
		return "telemetry"
	default:
		return "invalid"
	}
}

// Frame is the result of Classify. IMEI is set for identity frames, Packet
// for telemetry frames and Err for invalid ones.
type Frame struct {
	Kind   FrameKind
	IMEI   string
	Packet AvlPacket
	Err    error
}

// Classify decides whether buf is an identity handshake, a fully decoded
// telemetry frame or neither. buf must hold exactly one frame.
func Classify(buf []byte) Frame {
	if imei, ok := ParseIdentity(buf); ok {
		return Frame{Kind: FrameIdentity, IMEI: imei}
	}
	pkt, err := DecodePacket(buf)
	if err != nil {
		return Frame{Kind: FrameInvalid, Err: err}
	}
	return Frame{Kind: FrameTelemetry, Packet: pkt}
}

// ParseIdentity accepts [2-byte BE length N][N bytes of text] when the buffer
// is exactly N+2 bytes long, N > 0 and the text is valid UTF-8.
func ParseIdentity(buf []byte) (string, bool) {
	if len(buf) < 2 {
		return "", false
	}
	n := int(binary.BigEndian.Uint16(buf[:2]))
	if n == 0 || len(buf) != n+2 {
		return "", false
	}
	id := buf[2:]
	if !utf8.Valid(id) {
		return "", false
	}
	return string(id), true
}

// ParseHeader reads the telemetry header. A leading run of four zero bytes
// is taken as the TCP preamble and skipped; the data length that follows is
// advisory and not checked against the buffer.
func ParseHeader(r *Reader) (AvlPacket, error) {
	var pkt AvlPacket
	if r.Remaining() < minHeaderLen {
		return pkt, fmt.Errorf("%w: header needs %d bytes, got %d", ErrFraming, minHeaderLen, r.Remaining())
	}
	if p, _ := r.Peek(preambleLen); bytes.Equal(p, []byte{0, 0, 0, 0}) {
		pkt.Preamble = true
		if err := r.Skip(preambleLen, "preamble"); err != nil {
			return pkt, err
		}
		if r.Remaining() < minHeaderLen-2 {
			return pkt, fmt.Errorf("%w: header after preamble needs %d bytes, got %d",
				ErrFraming, minHeaderLen-2, r.Remaining())
		}
	}
	var err error
	if pkt.DataLength, err = r.Uint32("data length"); err != nil {
		return pkt, err
	}
	if pkt.CodecID, err = r.Uint8("codec id"); err != nil {
		return pkt, err
	}
	if pkt.Count, err = r.Uint8("number of data"); err != nil {
		return pkt, err
	}
	if pkt.CodecID != CodecID8Ext {
		return pkt, fmt.Errorf("%w 0x%02x", ErrUnsupportedCodec, pkt.CodecID)
	}
	return pkt, nil
}

// DecodePacket parses the header and every declared record of a telemetry
// frame. Trailing bytes (record count repeat, CRC) are not inspected.
func DecodePacket(buf []byte) (AvlPacket, error) {
	r := NewReader(buf)
	pkt, err := ParseHeader(r)
	if err != nil {
		return pkt, err
	}
	records, err := DecodeRecords(r, int(pkt.Count))
	if err != nil {
		return pkt, err
	}
	pkt.Records = records
	return pkt, nil
}
