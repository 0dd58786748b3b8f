package fit

import (
	"context"
	"errors"
	"io"
)

// Decoder turns a FIT byte stream into frames. Decode calls fn once per frame
// in stream order and stops at the first error returned by fn.
type Decoder interface {
	Decode(ctx context.Context, r io.Reader, fn func(Frame) error) error
}

// DecoderFunc adapts a plain function to the Decoder interface.
type DecoderFunc func(ctx context.Context, r io.Reader, fn func(Frame) error) error

func (f DecoderFunc) Decode(ctx context.Context, r io.Reader, fn func(Frame) error) error {
	return f(ctx, r, fn)
}

// ErrNoData is returned when a stream holds no FIT sequence at all.
var ErrNoData = errors.New("fit: no FIT data in stream")

// Replay is a Decoder that ignores its input and replays a fixed frame list.
// It stands in for real FIT files in tests and fixtures.
type Replay struct {
	Frames []Frame
	// Err, when set, is returned after the frames have been replayed.
	Err error
}

func (r Replay) Decode(ctx context.Context, _ io.Reader, fn func(Frame) error) error {
	for _, f := range r.Frames {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(f); err != nil {
			return err
		}
	}
	return r.Err
}

// Data is a convenience constructor for a data frame.
func Data(name string, fields ...Field) Frame {
	return Frame{Kind: FrameData, Name: name, Fields: fields}
}

// F is a convenience constructor for a field without units.
func F(name string, value any) Field {
	f := Field{Name: name, Value: value}
	switch v := value.(type) {
	case int64:
		f.RawValue = v
	case int:
		f.Value = int64(v)
		f.RawValue = int64(v)
	}
	return f
}
