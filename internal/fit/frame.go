// Package fit defines the frame model produced by FIT decoders and the
// Decoder boundary the rest of the module consumes.
//
// A FIT file decodes into an ordered stream of frames: one header, any number
// of definition and data frames, and a trailing checksum. Only data frames
// carry message content; definition frames describe the wire layout and are
// of no interest past the decoder.
package fit

import "time"

// FrameKind tags a decoded frame.
type FrameKind int

const (
	FrameHeader FrameKind = iota
	FrameDefinition
	FrameData
	FrameCRC
)

func (k FrameKind) String() string {
	switch k {
	case FrameHeader:
		return "header"
	case FrameDefinition:
		return "definition"
	case FrameData:
		return "data"
	case FrameCRC:
		return "crc"
	default:
		return "invalid"
	}
}

// Header is the decoded FIT file header, passed through untouched.
type Header struct {
	Size            uint8
	ProtocolVersion uint8
	ProfileVersion  uint16
	DataSize        uint32
	DataType        string
	CRC             uint16
}

// CRC is the trailing checksum frame.
type CRC struct {
	Value uint16
}

// Field is one decoded field of a data frame.
//
// Value holds the decoded scalar: nil (invalid or missing), int64, float64,
// string, bool, time.Time, or a slice for array fields. RawValue is the
// integral form of the undecoded value and is zero when the raw value is not
// integral.
type Field struct {
	Name     string
	Value    any
	RawValue int64
	Units    string
}

// Frame is one unit of the decoded stream. Name and Fields are only set for
// FrameData; Header and CRC only for their respective kinds.
type Frame struct {
	Kind   FrameKind
	Name   string
	Fields []Field
	Header *Header
	CRC    *CRC
}

// fitEpoch is 1989-12-31T00:00:00Z, the zero point of FIT date_time values.
var fitEpoch = time.Date(1989, time.December, 31, 0, 0, 0, 0, time.UTC)

// minAbsoluteTime separates absolute timestamps from device-relative ones;
// values below it are seconds since device power-on.
const minAbsoluteTime = 0x10000000

// ToTime converts a FIT date_time value. ok is false for device-relative
// values, which callers should keep as plain numbers.
func ToTime(v uint32) (t time.Time, ok bool) {
	if v < minAbsoluteTime {
		return time.Time{}, false
	}
	return fitEpoch.Add(time.Duration(v) * time.Second), true
}
