package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRun_Decode(t *testing.T) {
	t.Parallel()

	const js = `{
	  "job": "nightly",
	  "source": { "kind": "dir", "dir": { "path": "data/fit", "patterns": ["*.fit"], "recursive": true, "limit": 10 } },
	  "decode": { "include_unknown": true },
	  "storage": { "kind": "postgres", "db": { "host": "db", "port": 5433, "name": "fit", "user": "u", "password": "p", "max_conns": 8 } },
	  "ingest": { "reset": true, "duplicates": "skip" },
	  "runtime": { "sequential": true },
	  "metrics": { "backend": "datadog", "options": { "addr": "127.0.0.1:8125", "tags": ["env:test"] } }
	}`

	var r Run
	if err := json.Unmarshal([]byte(js), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	want := Run{
		Job: "nightly",
		Source: Source{
			Kind: "dir",
			Dir:  SourceDir{Path: "data/fit", Patterns: []string{"*.fit"}, Recursive: true, Limit: 10},
		},
		Decode:  Decode{IncludeUnknown: true},
		Storage: Storage{Kind: "postgres", DB: DBConfig{Host: "db", Port: 5433, Name: "fit", User: "u", Password: "p", MaxConns: 8}},
		Ingest:  Ingest{Reset: true, Duplicates: "skip"},
		Runtime: RuntimeConfig{Sequential: true},
		Metrics: Metrics{Backend: "datadog", Options: Options{"addr": "127.0.0.1:8125", "tags": []any{"env:test"}}},
	}
	if diff := cmp.Diff(want, r); diff != "" {
		t.Fatalf("decoded Run mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := filepath.Join(dir, "run.json")
	if err := os.WriteFile(good, []byte(`{"job":"x","storage":{"kind":"sqlite","db":{"dsn":"file:x.db"}}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := Load(good)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r.Job != "x" || r.Storage.DB.DSN != "file:x.db" {
		t.Fatalf("Load = %+v", r)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"job":`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestApplyEnv(t *testing.T) {
	orig := getenv
	defer func() { getenv = orig }()

	tests := []struct {
		name       string
		env        map[string]string
		sequential bool
		wantDSN    string
		wantSeq    bool
	}{
		{name: "no env", wantDSN: "cfg", sequential: true, wantSeq: true},
		{name: "dsn override", env: map[string]string{"FITLOAD_DSN": "env"}, wantDSN: "env"},
		{name: "parallel false", env: map[string]string{"FITLOAD_PARALLEL": "0"}, wantDSN: "cfg", wantSeq: true},
		{name: "parallel true", env: map[string]string{"FITLOAD_PARALLEL": "true"}, sequential: true, wantDSN: "cfg"},
		{name: "parallel garbage ignored", env: map[string]string{"FITLOAD_PARALLEL": "maybe"}, sequential: true, wantDSN: "cfg", wantSeq: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			getenv = func(k string) string { return tt.env[k] }
			r := Run{Storage: Storage{DB: DBConfig{DSN: "cfg"}}, Runtime: RuntimeConfig{Sequential: tt.sequential}}
			ApplyEnv(&r)
			if r.Storage.DB.DSN != tt.wantDSN || r.Runtime.Sequential != tt.wantSeq {
				t.Fatalf("got dsn=%q sequential=%v; want %q %v", r.Storage.DB.DSN, r.Runtime.Sequential, tt.wantDSN, tt.wantSeq)
			}
		})
	}
}

func TestDBConfig_ResolveDSN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		kind string
		db   DBConfig
		want string
	}{
		{name: "explicit dsn wins", kind: "postgres", db: DBConfig{DSN: "postgres://x", Host: "h"}, want: "postgres://x"},
		{name: "full postgres", kind: "postgres", db: DBConfig{User: "fit", Password: "p@ss", Host: "db", Port: 5432, Name: "fit", SSLMode: "disable"},
			want: "postgres://fit:p%40ss@db:5432/fit?sslmode=disable"},
		{name: "user only default port", kind: "postgres", db: DBConfig{User: "fit", Host: "db", Name: "fit"}, want: "postgres://fit@db/fit"},
		{name: "no host", kind: "postgres", db: DBConfig{Name: "fit"}, want: ""},
		{name: "sqlite needs dsn", kind: "sqlite", db: DBConfig{Host: "db"}, want: ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.db.ResolveDSN(tt.kind); got != tt.want {
				t.Fatalf("ResolveDSN = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOptions_TypedAccessors(t *testing.T) {
	t.Parallel()

	o := Options{
		"s": "hello",
		"b": true,
		"i": float64(42), // encoding/json decodes numbers as float64
		"m": map[string]any{"A": "a", "X": 1},
		"l": []any{"alpha", 3, "beta"},
	}

	if got := o.String("s", "def"); got != "hello" {
		t.Fatalf("String(s) = %q", got)
	}
	if got := o.String("missing", "def"); got != "def" {
		t.Fatalf("String(missing) = %q", got)
	}
	if !o.Bool("b", false) || !o.Bool("missing", true) {
		t.Fatalf("Bool accessors wrong")
	}
	if o.Int("i", 0) != 42 || o.Int("missing", 7) != 7 {
		t.Fatalf("Int accessors wrong")
	}
	if got := o.StringMap("m"); !reflect.DeepEqual(got, map[string]string{"A": "a"}) {
		t.Fatalf("StringMap(m) = %#v", got)
	}
	if got := o.StringMap("missing"); got == nil || len(got) != 0 {
		t.Fatalf("StringMap(missing) = %#v, want empty map", got)
	}
	if got := o.StringSlice("l"); !reflect.DeepEqual(got, []string{"alpha", "beta"}) {
		t.Fatalf("StringSlice(l) = %#v", got)
	}
	if got := o.StringSlice("missing"); got != nil {
		t.Fatalf("StringSlice(missing) = %#v, want nil", got)
	}
}

func TestOptions_UnmarshalJSON_NullYieldsEmptyMap(t *testing.T) {
	t.Parallel()

	var w struct {
		Opts Options `json:"options"`
	}
	if err := json.Unmarshal([]byte(`{"options": null}`), &w); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if w.Opts == nil || len(w.Opts) != 0 {
		t.Fatalf("Opts after null unmarshal = %#v, want non-nil empty map", w.Opts)
	}
}
