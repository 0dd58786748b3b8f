package extract

import (
	"errors"
	"fmt"
)

// ErrUnknownMessageType matches UnknownMessageTypeError via errors.Is.
var ErrUnknownMessageType = errors.New("extract: unknown message type")

// DecodeError wraps any failure to open or decode a source. The file is
// excluded from the run; other files are unaffected.
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("extract: decode %s: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// UnknownMessageTypeError is returned when projecting a message type the file
// never contained, or before Process has run.
type UnknownMessageTypeError struct {
	Source      string
	MessageType string
}

func (e *UnknownMessageTypeError) Error() string {
	return fmt.Sprintf("extract: %s: unknown message type %q", e.Source, e.MessageType)
}

func (e *UnknownMessageTypeError) Is(target error) bool { return target == ErrUnknownMessageType }
