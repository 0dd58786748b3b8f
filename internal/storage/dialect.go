package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jonasinn/fitextractor/internal/ddl"
)

// Profile selects how identifiers and lists are represented.
type Profile int

const (
	// ProfileFallback stores identifiers as 36-character text and lists as
	// JSON text.
	ProfileFallback Profile = iota
	// ProfileNative uses the engine's UUID and array types.
	ProfileNative
)

func (p Profile) String() string {
	if p == ProfileNative {
		return "native"
	}
	return "fallback"
}

// Dialect is the per-backend SQL spelling the pipeline needs.
type Dialect struct {
	Name    string
	Profile Profile
	// MaxIdent is the identifier length limit (0 = none).
	MaxIdent int
	// Quote quotes one identifier part.
	Quote func(string) string
	// Types maps logical kinds to SQL types.
	Types func(ddl.Kind) string
	// Param returns the placeholder for the i-th (1-based) argument.
	Param func(i int) string
}

// QuoteIdent quotes a possibly dotted name.
func (d Dialect) QuoteIdent(name string) string { return d.renderer().QuoteFQN(name) }

// MapType maps a logical kind to this dialect's SQL type.
func (d Dialect) MapType(k ddl.Kind) string { return d.Types(k) }

// Placeholder returns the i-th (1-based) bind placeholder.
func (d Dialect) Placeholder(i int) string {
	if d.Param == nil {
		return "?"
	}
	return d.Param(i)
}

func (d Dialect) renderer() ddl.Renderer {
	return ddl.Renderer{Quote: d.Quote, MapType: d.Types}
}

// CreateTableSQL renders CREATE TABLE for def.
func (d Dialect) CreateTableSQL(def ddl.TableDef) (string, error) {
	return ddl.BuildCreateTableSQL(def, d.renderer())
}

// DropTableSQL renders DROP TABLE for name.
func (d Dialect) DropTableSQL(name string) string {
	return ddl.BuildDropTableSQL(name, d.renderer())
}

// IDValue converts a generated identifier to the value bound for a uuid
// column.
func (d Dialect) IDValue(id uuid.UUID) any {
	if d.Profile == ProfileNative {
		return [16]byte(id)
	}
	return id.String()
}

// ListValue converts a string list to the value bound for a text_list
// column.
func (d Dialect) ListValue(items []string) (any, error) {
	if items == nil {
		items = []string{}
	}
	if d.Profile == ProfileNative {
		return items, nil
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("storage: encode list: %w", err)
	}
	return string(b), nil
}

// SelectWhere renders "SELECT 1 FROM <table> WHERE <col> = <param>".
func (d Dialect) SelectWhere(table, column string) string {
	return fmt.Sprintf("SELECT 1 FROM %s WHERE %s = %s", d.QuoteIdent(table), d.QuoteIdent(column), d.Placeholder(1))
}

// InsertSQL renders a multi-row INSERT with rowCount value tuples.
func (d Dialect) InsertSQL(table string, columns []string, rowCount int) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(d.QuoteIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(d.Quote(c))
	}
	b.WriteString(") VALUES ")
	n := 1
	for r := 0; r < rowCount; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for i := range columns {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(d.Placeholder(n))
			n++
		}
		b.WriteByte(')')
	}
	return b.String()
}

var (
	dialectMu sync.RWMutex
	dialects  = map[string]Dialect{}
)

// RegisterDialect registers (or replaces) the dialect for kind. Backends call
// it from init next to Register.
func RegisterDialect(kind string, d Dialect) {
	dialectMu.Lock()
	defer dialectMu.Unlock()
	dialects[kind] = d
}

// LookupDialect returns the dialect registered for kind.
func LookupDialect(kind string) (Dialect, error) {
	dialectMu.RLock()
	d, ok := dialects[kind]
	dialectMu.RUnlock()
	if !ok {
		return Dialect{}, fmt.Errorf("%w %q: no dialect registered", ErrUnsupportedKind, kind)
	}
	return d, nil
}
