package codec

import (
	"errors"
	"fmt"
)

var (
	// ErrFraming marks a frame whose header cannot be accepted: too short or
	// carrying a codec other than Codec8 Extended.
	ErrFraming = errors.New("codec: framing error")
	// ErrTruncated marks a field that needed more bytes than the frame had left,
	// including a timestamp that does not map to a representable instant.
	ErrTruncated = errors.New("codec: truncated data")
	// ErrUnsupportedCodec is the framing error for a codec id other than 0x8E.
	ErrUnsupportedCodec = fmt.Errorf("%w: unsupported codec", ErrFraming)
)

// ErrorKind classifies a decode error for metrics and logs.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrFraming):
		return "framing"
	case errors.Is(err, ErrTruncated):
		return "truncated"
	default:
		return "other"
	}
}
