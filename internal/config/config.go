// Package config defines the JSON-serializable run configuration for the FIT
// loader. A run file is decoded with encoding/json into Run and passed through
// the program without additional glue code.
//
// Example (trimmed):
//
//	{
//	  "job":     "garmin-nightly",
//	  "source":  { "kind": "dir", "dir": { "path": "data/fit", "recursive": true } },
//	  "decode":  { "include_unknown": false },
//	  "storage": { "kind": "postgres", "db": { "host": "localhost", "name": "fit", "user": "fit" } },
//	  "ingest":  { "reset": false, "duplicates": "insert" },
//	  "runtime": { "workers": 0 },
//	  "metrics": { "backend": "pushgateway", "options": { "url": "http://localhost:9091" } }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Run is the top-level object decoded from a run file.
type Run struct {
	// Job names the run; it labels metrics and log lines.
	Job string `json:"job"`

	Source  Source        `json:"source"`
	Decode  Decode        `json:"decode"`
	Storage Storage       `json:"storage"`
	Ingest  Ingest        `json:"ingest"`
	Runtime RuntimeConfig `json:"runtime"`
	Metrics Metrics       `json:"metrics"`
}

// Source selects the input files. Kind is one of "files", "dir", "list" or
// "http".
type Source struct {
	Kind string `json:"kind"`

	// Files lists explicit paths for the "files" kind.
	Files []string `json:"files"`

	// Dir carries options for the "dir" kind.
	Dir SourceDir `json:"dir"`

	// List is the path of a newline-separated file list for the "list" kind.
	List string `json:"list"`

	// HTTP carries options for the "http" kind.
	HTTP SourceHTTP `json:"http"`
}

// SourceDir enumerates a directory.
type SourceDir struct {
	Path      string   `json:"path"`
	Patterns  []string `json:"patterns"`
	Recursive bool     `json:"recursive"`
	Limit     int      `json:"limit"`
}

// SourceHTTP downloads files over HTTP(S).
type SourceHTTP struct {
	URLs           []string `json:"urls"`
	TimeoutSeconds int      `json:"timeout_seconds"`
	MaxRetries     int      `json:"max_retries"`

	// Options holds extra request settings: "headers" (object of strings) and
	// "insecure_skip_verify" (bool).
	Options Options `json:"options"`
}

// Decode configures FIT decoding.
type Decode struct {
	// IncludeUnknown keeps message types and fields the SDK could not name.
	IncludeUnknown bool `json:"include_unknown"`
}

// Storage selects the database backend.
type Storage struct {
	// Kind selects the backend: "postgres", "sqlite", "mysql" or "mssql".
	Kind string   `json:"kind"`
	DB   DBConfig `json:"db"`
}

// DBConfig configures the connection. Either DSN or the discrete fields may be
// set; discrete fields are only assembled into a URL for postgres.
type DBConfig struct {
	DSN      string `json:"dsn"`
	User     string `json:"user"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Name     string `json:"name"`
	SSLMode  string `json:"sslmode"`

	// MaxConns bounds the connection pool (0 = driver default).
	MaxConns int `json:"max_conns"`
}

// Ingest controls table creation and duplicate handling.
type Ingest struct {
	// Reset drops every table this tool created before recreating the schema.
	Reset bool `json:"reset"`

	// Duplicates is "insert" (default) or "skip".
	Duplicates string `json:"duplicates"`
}

// RuntimeConfig controls concurrency.
type RuntimeConfig struct {
	// Sequential disables the worker pool.
	Sequential bool `json:"sequential"`

	// Workers bounds the pool (0 = number of CPUs).
	Workers int `json:"workers"`
}

// Metrics selects a metrics backend: "pushgateway", "datadog" or "none".
type Metrics struct {
	Backend string `json:"backend"`

	// Options by backend:
	//   pushgateway: url (string)
	//   datadog:     addr (string), namespace (string), tags ([]string)
	Options Options `json:"options"`
}

// Load decodes a run file from path.
func Load(path string) (Run, error) {
	var r Run
	b, err := os.ReadFile(path)
	if err != nil {
		return r, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(b, &r); err != nil {
		return r, fmt.Errorf("parse config %s: %w", path, err)
	}
	return r, nil
}

// getenv is a test hook.
var getenv = os.Getenv

// ApplyEnv overrides r from the environment:
//
//	FITLOAD_DSN       replaces storage.db.dsn
//	FITLOAD_PARALLEL  "0"/"false" selects sequential mode, "1"/"true" the pool
func ApplyEnv(r *Run) {
	if dsn := strings.TrimSpace(getenv("FITLOAD_DSN")); dsn != "" {
		r.Storage.DB.DSN = dsn
	}
	if s := strings.TrimSpace(getenv("FITLOAD_PARALLEL")); s != "" {
		if p, err := strconv.ParseBool(s); err == nil {
			r.Runtime.Sequential = !p
		}
	}
}

// ResolveDSN returns the DSN for kind. An explicit DSN wins; otherwise a
// postgres URL is assembled from the discrete fields. Other kinds have no
// discrete form and yield "".
func (d DBConfig) ResolveDSN(kind string) string {
	if strings.TrimSpace(d.DSN) != "" {
		return d.DSN
	}
	if kind != "postgres" || strings.TrimSpace(d.Host) == "" {
		return ""
	}

	u := url.URL{Scheme: "postgres", Path: "/" + d.Name}
	switch {
	case d.User != "" && d.Password != "":
		u.User = url.UserPassword(d.User, d.Password)
	case d.User != "":
		u.User = url.User(d.User)
	}
	u.Host = d.Host
	if d.Port > 0 {
		u.Host = net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
	}
	if d.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {d.SSLMode}}.Encode()
	}
	return u.String()
}

// Options is a small helper to fetch typed values from arbitrary JSON maps. It
// performs only minimal type coercion and returns provided defaults when a key
// is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers are decoded as
// float64 by encoding/json, so float64 is accepted and truncated.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// StringMap returns a map[string]string for key when the value is an object
// whose values are strings. Non-string values are ignored. Returns an empty map
// when the key is missing or the value is not an object.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if v, ok := o[key]; ok {
		switch m := v.(type) {
		case map[string]any:
			for k, vv := range m {
				if s, ok := vv.(string); ok {
					res[k] = s
				}
			}
		case map[string]string:
			for k, s := range m {
				res[k] = s
			}
		}
	}
	return res
}

// StringSlice returns a []string for key when the value is an array of strings
// (or an array of interface values containing strings). Returns nil when the
// key is missing or the value is not an array.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		}
	}
	return nil
}

// UnmarshalJSON decodes a null "options" object to a non-nil, empty map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
