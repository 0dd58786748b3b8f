package extract

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/muktihari/fit/encoder"
	"github.com/muktihari/fit/profile/mesgdef"
	"github.com/muktihari/fit/profile/typedef"
	"github.com/muktihari/fit/proto"

	"github.com/jonasinn/fitextractor/internal/datasource/file"
	"github.com/jonasinn/fitextractor/internal/fit"
	"github.com/jonasinn/fitextractor/internal/schema"
)

var t0 = time.Date(2021, 9, 8, 1, 46, 40, 0, time.UTC)

// countingSource counts Open calls.
type countingSource struct {
	name  string
	data  string
	opens atomic.Int32
	err   error
}

func (s *countingSource) Name() string { return s.name }

func (s *countingSource) Open(ctx context.Context) (io.ReadCloser, error) {
	s.opens.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return io.NopCloser(strings.NewReader(s.data)), nil
}

// countingDecoder wraps a Replay and counts Decode calls.
type countingDecoder struct {
	fit.Replay
	calls atomic.Int32
}

func (d *countingDecoder) Decode(ctx context.Context, r io.Reader, fn func(fit.Frame) error) error {
	d.calls.Add(1)
	return d.Replay.Decode(ctx, r, fn)
}

func withUnknowns() []fit.Frame {
	return []fit.Frame{
		{Kind: fit.FrameHeader, Header: &fit.Header{Size: 14, ProtocolVersion: 32, DataType: ".FIT"}},
		{Kind: fit.FrameDefinition},
		fit.Data("file_id", fit.F("manufacturer", "garmin"), fit.F("unknown_7", 3)),
		fit.Data("record", fit.F("timestamp", t0), fit.F("heart_rate", 120), fit.F("unknown_88", 1)),
		fit.Data("unknown_233", fit.F("x", 1)),
		fit.Data("record", fit.F("timestamp", t0.Add(time.Second)), fit.F("heart_rate", 121)),
		fit.Data("hrv", fit.F("unknown_0", 1)),
		fit.Data(""),
		{Kind: fit.FrameCRC, CRC: &fit.CRC{Value: 0xbeef}},
	}
}

func withoutUnknowns() []fit.Frame {
	return []fit.Frame{
		{Kind: fit.FrameHeader, Header: &fit.Header{Size: 14, ProtocolVersion: 32, DataType: ".FIT"}},
		fit.Data("file_id", fit.F("manufacturer", "garmin")),
		fit.Data("record", fit.F("timestamp", t0), fit.F("heart_rate", 120)),
		fit.Data("record", fit.F("timestamp", t0.Add(time.Second)), fit.F("heart_rate", 121)),
		{Kind: fit.FrameCRC, CRC: &fit.CRC{Value: 0xbeef}},
	}
}

func process(t *testing.T, frames []fit.Frame, opts ...Option) *Extractor {
	t.Helper()
	e := New(file.NewBytes("a.fit", []byte("payload")), fit.Replay{Frames: frames}, opts...)
	if err := e.Process(context.Background()); err != nil {
		t.Fatalf("Process: %v", err)
	}
	return e
}

func allTables(t *testing.T, e *Extractor) map[string]Table {
	t.Helper()
	out := map[string]Table{}
	for _, name := range e.MessageTypes() {
		tbl, err := e.ProjectMessages(name)
		if err != nil {
			t.Fatalf("ProjectMessages(%q): %v", name, err)
		}
		out[name] = tbl
	}
	return out
}

func TestProcess_UnknownFilteringEquivalence(t *testing.T) {
	t.Parallel()

	filtered := process(t, withUnknowns())
	clean := process(t, withoutUnknowns())

	if diff := cmp.Diff(clean.MessageTypes(), filtered.MessageTypes()); diff != "" {
		t.Fatalf("message types (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(allTables(t, clean), allTables(t, filtered)); diff != "" {
		t.Fatalf("tables (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(clean.Header(), filtered.Header()); diff != "" {
		t.Fatalf("header (-want +got):\n%s", diff)
	}
	if filtered.CRC() == nil || filtered.CRC().Value != 0xbeef {
		t.Fatalf("CRC = %+v", filtered.CRC())
	}
}

func TestProcess_IncludeUnknown(t *testing.T) {
	t.Parallel()

	e := process(t, withUnknowns(), WithIncludeUnknown(true))

	want := []string{"file_id", "record", "unknown_233", "hrv"}
	if diff := cmp.Diff(want, e.MessageTypes()); diff != "" {
		t.Fatalf("message types (-want +got):\n%s", diff)
	}
	rec, err := e.ProjectMessages("record")
	if err != nil {
		t.Fatalf("ProjectMessages: %v", err)
	}
	if diff := cmp.Diff([]string{"timestamp", "heart_rate", "unknown_88"}, rec.Columns); diff != "" {
		t.Fatalf("columns (-want +got):\n%s", diff)
	}
}

func TestProcess_Idempotent(t *testing.T) {
	t.Parallel()

	dec := &countingDecoder{Replay: fit.Replay{Frames: withoutUnknowns()}}
	e := New(file.NewBytes("a.fit", nil), dec)
	for i := 0; i < 3; i++ {
		if err := e.Process(context.Background()); err != nil {
			t.Fatalf("Process #%d: %v", i, err)
		}
	}
	if n := dec.calls.Load(); n != 1 {
		t.Fatalf("decoder called %d times, want 1", n)
	}
	if got := len(e.Occurrences("record")); got != 2 {
		t.Fatalf("record occurrences = %d, want 2", got)
	}
}

func TestProcess_DecodeError(t *testing.T) {
	t.Parallel()

	boom := errors.New("truncated record")
	dec := &countingDecoder{Replay: fit.Replay{Frames: withoutUnknowns(), Err: boom}}
	e := New(file.NewBytes("bad.fit", nil), dec)

	err := e.Process(context.Background())
	var de *DecodeError
	if !errors.As(err, &de) || de.Source != "bad.fit" {
		t.Fatalf("Process err = %v, want DecodeError for bad.fit", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("errors.Is(err, boom) = false")
	}
	if err2 := e.Process(context.Background()); err2 != err {
		t.Fatalf("second Process = %v, want first error", err2)
	}
	if dec.calls.Load() != 1 {
		t.Fatalf("decoder re-run after failure")
	}
	if len(e.MessageTypes()) != 0 {
		t.Fatalf("partial content kept after failure: %v", e.MessageTypes())
	}
	if _, err := e.Summary(); err == nil {
		t.Fatalf("Summary after failed Process: want error")
	}
}

func TestProcess_OpenError(t *testing.T) {
	t.Parallel()

	src := &countingSource{name: "gone.fit", err: errors.New("no such file")}
	err := New(src, fit.Replay{}).Process(context.Background())
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("Process err = %v, want DecodeError", err)
	}
}

func TestContentHash(t *testing.T) {
	t.Parallel()

	src := &countingSource{name: "a.fit", data: "abc"}
	e := New(src, fit.Replay{})

	got, err := e.ContentHash(context.Background())
	if err != nil {
		t.Fatalf("ContentHash: %v", err)
	}
	if got != "900150983cd24fb0d6963f7d28e17f72" {
		t.Fatalf("ContentHash = %s", got)
	}
	again, _ := e.ContentHash(context.Background())
	if again != got || src.opens.Load() != 1 {
		t.Fatalf("hash not memoised: %s, opens=%d", again, src.opens.Load())
	}

	other := New(&countingSource{name: "b.fit", data: "abd"}, fit.Replay{})
	h2, _ := other.ContentHash(context.Background())
	if h2 == got {
		t.Fatalf("single byte change produced equal hash")
	}
}

func TestContentHash_LargerThanChunk(t *testing.T) {
	t.Parallel()

	payload := strings.Repeat("x", 3*hashChunk+17)
	a, _ := New(&countingSource{name: "a", data: payload}, fit.Replay{}).ContentHash(context.Background())
	b, _ := New(file.NewBytes("b", []byte(payload)), fit.Replay{}).ContentHash(context.Background())
	if a == "" || a != b {
		t.Fatalf("hash depends on source kind: %s vs %s", a, b)
	}
}

func TestProjectMessages(t *testing.T) {
	t.Parallel()

	e := process(t, []fit.Frame{
		fit.Data("record", fit.F("timestamp", t0), fit.F("heart_rate", 120), fit.F("power", nil)),
		fit.Data("record", fit.F("timestamp", t0.Add(time.Second)), fit.F("cadence", 80), fit.F("power", nil)),
		fit.Data("record", fit.F("heart_rate", nil), fit.F("timestamp", t0.Add(2*time.Second))),
	})

	got, err := e.ProjectMessages("record")
	if err != nil {
		t.Fatalf("ProjectMessages: %v", err)
	}
	want := Table{
		Name:    "record",
		Columns: []string{"timestamp", "heart_rate", "cadence"},
		Rows: [][]any{
			{t0, int64(120), nil},
			{t0.Add(time.Second), nil, int64(80)},
			{t0.Add(2 * time.Second), nil, nil},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ProjectMessages (-want +got):\n%s", diff)
	}
}

func TestProjectMessages_EncodedActivity(t *testing.T) {
	t.Parallel()

	activity := proto.FIT{Messages: []proto.Message{
		mesgdef.NewFileId(nil).SetType(typedef.FileActivity).SetManufacturer(typedef.ManufacturerGarmin).ToMesg(nil),
		mesgdef.NewRecord(nil).SetTimestamp(t0).SetHeartRate(120).SetSpeed(2500).ToMesg(nil),
		mesgdef.NewRecord(nil).SetTimestamp(t0.Add(time.Second)).SetHeartRate(121).ToMesg(nil),
	}}
	var buf bytes.Buffer
	if err := encoder.New(&buf).Encode(&activity); err != nil {
		t.Fatalf("encode: %v", err)
	}

	e := New(file.NewBytes("activity.fit", buf.Bytes()), fit.SDKDecoder{})
	if err := e.Process(context.Background()); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if diff := cmp.Diff([]string{"file_id", "record"}, e.MessageTypes()); diff != "" {
		t.Fatalf("MessageTypes (-want +got):\n%s", diff)
	}

	got, err := e.ProjectMessages("record")
	if err != nil {
		t.Fatalf("ProjectMessages: %v", err)
	}
	col := map[string][]any{}
	for i, name := range got.Columns {
		col[name] = got.Column(i)
	}
	if diff := cmp.Diff([]any{2.5, nil}, col["speed"]); diff != "" {
		t.Fatalf("speed column (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{int64(120), int64(121)}, col["heart_rate"]); diff != "" {
		t.Fatalf("heart_rate column (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{t0, t0.Add(time.Second)}, col["timestamp"]); diff != "" {
		t.Fatalf("timestamp column (-want +got):\n%s", diff)
	}
	if types := got.ColumnTypes(); types["speed"] != schema.Numeric || types["timestamp"] != schema.Timestamp {
		t.Fatalf("ColumnTypes = %v", types)
	}

	ids, err := e.ProjectMessages("file_id")
	if err != nil {
		t.Fatalf("ProjectMessages(file_id): %v", err)
	}
	for i, name := range ids.Columns {
		if name == "manufacturer" {
			if v := ids.Rows[0][i]; v != "garmin" {
				t.Fatalf("file_id.manufacturer = %#v, want \"garmin\"", v)
			}
		}
	}
}

func TestProjectMessages_Raw(t *testing.T) {
	t.Parallel()

	e := process(t, []fit.Frame{
		fit.Data("record",
			fit.Field{Name: "speed", Value: 4.5, RawValue: 4500},
			fit.Field{Name: "timestamp", Value: t0, RawValue: 1_000_000_000},
			fit.F("sport", "cycling"),
		),
	})
	got, err := e.ProjectMessages("record", ProjectRaw())
	if err != nil {
		t.Fatalf("ProjectMessages: %v", err)
	}
	if diff := cmp.Diff([][]any{{int64(4500), int64(1_000_000_000), "cycling"}}, got.Rows); diff != "" {
		t.Fatalf("raw rows (-want +got):\n%s", diff)
	}
}

func TestProjectMessages_Unknown(t *testing.T) {
	t.Parallel()

	unprocessed := New(file.NewBytes("a.fit", nil), fit.Replay{Frames: withoutUnknowns()})
	if _, err := unprocessed.ProjectMessages("record"); !errors.Is(err, ErrUnknownMessageType) {
		t.Fatalf("before Process: err = %v", err)
	}

	e := process(t, withoutUnknowns())
	_, err := e.ProjectMessages("lap")
	var ue *UnknownMessageTypeError
	if !errors.As(err, &ue) || ue.MessageType != "lap" {
		t.Fatalf("err = %v, want UnknownMessageTypeError for lap", err)
	}
}

func TestSummary(t *testing.T) {
	t.Parallel()

	e := process(t, []fit.Frame{
		fit.Data("session", fit.F("sport", "running"), fit.F("total_distance", 10.5)),
		fit.Data("record", fit.F("timestamp", t0), fit.F("position", []int64{1, 2}), fit.F("hr", 90)),
		fit.Data("record", fit.F("timestamp", t0), fit.F("hr", "n/a")),
	})

	if _, err := New(file.NewBytes("x", nil), fit.Replay{}).Summary(); err == nil {
		t.Fatalf("Summary before Process: want error")
	}

	s, err := e.Summary()
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if diff := cmp.Diff([]string{"session", "record"}, s.Names()); diff != "" {
		t.Fatalf("Names (-want +got):\n%s", diff)
	}
	want := map[string]schema.MessageInfo{
		"session": {Name: "session", Rows: 1, Columns: map[string]schema.ColumnType{
			"sport": schema.Text, "total_distance": schema.Numeric,
		}},
		"record": {Name: "record", Rows: 2, Columns: map[string]schema.ColumnType{
			"timestamp": schema.Timestamp, "position": schema.Opaque, "hr": schema.Opaque,
		}},
	}
	if diff := cmp.Diff(want, s.MessageInfos()); diff != "" {
		t.Fatalf("MessageInfos (-want +got):\n%s", diff)
	}
	if s.Rows() != 3 {
		t.Fatalf("Rows = %d, want 3", s.Rows())
	}
}

func TestRawBytes(t *testing.T) {
	t.Parallel()

	e := New(file.NewBytes("a.fit", []byte{1, 2, 3}), fit.Replay{})
	b, err := e.RawBytes(context.Background())
	if err != nil {
		t.Fatalf("RawBytes: %v", err)
	}
	if diff := cmp.Diff([]byte{1, 2, 3}, b); diff != "" {
		t.Fatalf("RawBytes (-want +got):\n%s", diff)
	}
}
