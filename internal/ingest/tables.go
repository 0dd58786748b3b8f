package ingest

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"time"

	"github.com/jonasinn/fitextractor/internal/ddl"
	"github.com/jonasinn/fitextractor/internal/ident"
	"github.com/jonasinn/fitextractor/internal/metrics"
	"github.com/jonasinn/fitextractor/internal/schema"
	"github.com/jonasinn/fitextractor/internal/storage"
)

const (
	// RegistryTable holds one row per ingested file.
	RegistryTable = "fitfiles"
	// BookkeepingTable lists the tables this tool created.
	BookkeepingTable = "fitextractor_tables"

	roleRegistry = "registry"
	roleMessage  = "message"
)

// Registry columns.
const (
	colID           = "id"
	colFilename     = "filename"
	colContentHash  = "content_hash"
	colMessageTypes = "message_types"
	colRawBytes     = "raw_bytes"
)

var registryColumns = []string{colID, colFilename, colContentHash, colMessageTypes, colRawBytes}

// MessageTable is the storage plan for one message type.
type MessageTable struct {
	MessageType string
	Def         ddl.TableDef
	// Fields lists the canonical fields in column order.
	Fields []string
	// Columns maps field names to column names.
	Columns map[string]string
	// Types maps field names to canonical types.
	Types map[string]schema.ColumnType
}

// Tables is the storage plan for a schema.
type Tables struct {
	Registry ddl.TableDef
	Messages map[string]MessageTable
}

// Names returns the registry table followed by the message tables in
// message-type order.
func (t Tables) Names() []string {
	out := []string{t.Registry.FQN}
	keys := make([]string, 0, len(t.Messages))
	for k := range t.Messages {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, t.Messages[k].Def.FQN)
	}
	return out
}

func registryDef() ddl.TableDef {
	return ddl.TableDef{
		FQN: RegistryTable,
		Columns: []ddl.ColumnDef{
			{Name: colID, Kind: ddl.KindUUID, PrimaryKey: true},
			{Name: colFilename, Kind: ddl.KindName},
			{Name: colContentHash, Kind: ddl.KindHash},
			{Name: colMessageTypes, Kind: ddl.KindTextList},
			{Name: colRawBytes, Kind: ddl.KindBytes},
		},
	}
}

func bookkeepingDef() ddl.TableDef {
	return ddl.TableDef{
		FQN: BookkeepingTable,
		Columns: []ddl.ColumnDef{
			{Name: "table_name", Kind: ddl.KindName, PrimaryKey: true},
			{Name: "role", Kind: ddl.KindName},
			{Name: "created_at", Kind: ddl.KindTimestamp},
		},
	}
}

// kindOf maps a canonical type to a logical column kind.
func kindOf(t schema.ColumnType) ddl.Kind {
	switch t {
	case schema.Numeric:
		return ddl.KindDouble
	case schema.Timestamp:
		return ddl.KindTimestamp
	case schema.Text:
		return ddl.KindText
	default:
		return ddl.KindOpaque
	}
}

// PlanTables derives table definitions for s under dialect d. It is pure.
func PlanTables(s schema.Schema, d storage.Dialect) Tables {
	t := Tables{Registry: registryDef(), Messages: make(map[string]MessageTable, len(s))}

	used := map[string]bool{RegistryTable: true, BookkeepingTable: true}
	for _, mt := range s.MessageTypes() {
		base := ident.Table(mt, d.MaxIdent)
		name := base
		for n := 2; used[name]; n++ {
			name = ident.Fit(base+"_"+strconv.Itoa(n), d.MaxIdent)
		}
		used[name] = true

		fields := s.Fields(mt)
		cols := ident.Columns(fields, d.MaxIdent)
		def := ddl.TableDef{
			FQN: name,
			Columns: []ddl.ColumnDef{
				{Name: ident.ParentColumn, Kind: ddl.KindUUID, PrimaryKey: true},
				{Name: ident.IndexColumn, Kind: ddl.KindBigint, PrimaryKey: true},
			},
			ForeignKeys: []ddl.ForeignKey{{
				Columns:    []string{ident.ParentColumn},
				RefTable:   RegistryTable,
				RefColumns: []string{colID},
			}},
		}
		types := make(map[string]schema.ColumnType, len(fields))
		for _, f := range fields {
			types[f] = s[mt][f]
			def.Columns = append(def.Columns, ddl.ColumnDef{Name: cols[f], Kind: kindOf(s[mt][f]), Nullable: true})
		}
		t.Messages[mt] = MessageTable{MessageType: mt, Def: def, Fields: fields, Columns: cols, Types: types}
	}
	return t
}

// CreateTables creates the registry table and one table per message type,
// recording each in the bookkeeping table. Existing target tables are a
// *SchemaConflictError unless reset is set, in which case every table the
// bookkeeping table lists is dropped first (message tables, then the
// registry). Tables this tool did not create are never dropped: under reset
// a target name held by such a table is still a conflict, and the check runs
// before anything is dropped or created.
func (c *Coordinator) CreateTables(ctx context.Context, s schema.Schema, reset bool) (Tables, error) {
	start := time.Now()
	tables, err := c.createTables(ctx, s, reset)
	metrics.RecordStep(c.job, "create", err, time.Since(start))
	if err != nil {
		c.setState(Failed)
		return Tables{}, err
	}
	c.setState(SchemaCreated)
	return tables, nil
}

func (c *Coordinator) createTables(ctx context.Context, s schema.Schema, reset bool) (Tables, error) {
	tables := PlanTables(s, c.dialect)

	haveBook, err := c.repo.TableExists(ctx, BookkeepingTable)
	if err != nil {
		return Tables{}, fmt.Errorf("ingest: check %s: %w", BookkeepingTable, err)
	}
	var owned map[string][]string
	if haveBook {
		if owned, err = c.ownedTables(ctx); err != nil {
			return Tables{}, err
		}
	}

	// Nothing is created or dropped until every target name is clear.
	var conflicts []string
	for _, name := range tables.Names() {
		exists, err := c.repo.TableExists(ctx, name)
		if err != nil {
			return Tables{}, fmt.Errorf("ingest: check %s: %w", name, err)
		}
		if exists && (!reset || !isOwned(owned, name)) {
			conflicts = append(conflicts, name)
		}
	}
	if len(conflicts) > 0 {
		return Tables{}, &SchemaConflictError{Tables: conflicts, Reset: reset}
	}

	if !haveBook {
		if err := c.create(ctx, bookkeepingDef()); err != nil {
			return Tables{}, err
		}
	}
	if reset {
		if err := c.dropOwned(ctx, owned); err != nil {
			return Tables{}, err
		}
	}

	if err := c.createOwned(ctx, tables.Registry, roleRegistry); err != nil {
		return Tables{}, err
	}
	for _, name := range s.MessageTypes() {
		if err := c.createOwned(ctx, tables.Messages[name].Def, roleMessage); err != nil {
			return Tables{}, err
		}
	}
	log.Printf("ingest: created tables=%d reset=%v", len(tables.Messages)+1, reset)
	return tables, nil
}

func (c *Coordinator) create(ctx context.Context, def ddl.TableDef) error {
	stmt, err := c.dialect.CreateTableSQL(def)
	if err != nil {
		return fmt.Errorf("ingest: render %s: %w", def.FQN, err)
	}
	if err := c.repo.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("ingest: create %s: %w", def.FQN, err)
	}
	return nil
}

func (c *Coordinator) createOwned(ctx context.Context, def ddl.TableDef, role string) error {
	if err := c.create(ctx, def); err != nil {
		return err
	}
	ins := c.dialect.InsertSQL(BookkeepingTable, []string{"table_name", "role", "created_at"}, 1)
	if err := c.repo.Exec(ctx, ins, def.FQN, role, time.Now().UTC()); err != nil {
		return fmt.Errorf("ingest: record %s: %w", def.FQN, err)
	}
	return nil
}

// ownedTables reads the bookkeeping table, keyed by role. Names are sorted.
func (c *Coordinator) ownedTables(ctx context.Context) (map[string][]string, error) {
	d := c.dialect
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		d.QuoteIdent("table_name"), d.QuoteIdent(BookkeepingTable), d.QuoteIdent("role"), d.Placeholder(1))

	owned := make(map[string][]string, 2)
	for _, role := range []string{roleMessage, roleRegistry} {
		names, err := c.repo.Strings(ctx, query, role)
		if err != nil {
			return nil, fmt.Errorf("ingest: list %s tables: %w", role, err)
		}
		sort.Strings(names)
		owned[role] = names
	}
	return owned, nil
}

func isOwned(owned map[string][]string, name string) bool {
	for _, names := range owned {
		for _, n := range names {
			if n == name {
				return true
			}
		}
	}
	return false
}

// dropOwned drops the tables listed in owned, children first, and removes
// their bookkeeping entries.
func (c *Coordinator) dropOwned(ctx context.Context, owned map[string][]string) error {
	d := c.dialect
	del := fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
		d.QuoteIdent(BookkeepingTable), d.QuoteIdent("table_name"), d.Placeholder(1))

	dropped := 0
	for _, role := range []string{roleMessage, roleRegistry} {
		for _, name := range owned[role] {
			exists, err := c.repo.TableExists(ctx, name)
			if err != nil {
				return fmt.Errorf("ingest: check %s: %w", name, err)
			}
			if exists {
				if err := c.repo.Exec(ctx, d.DropTableSQL(name)); err != nil {
					return fmt.Errorf("ingest: drop %s: %w", name, err)
				}
				dropped++
			}
			if err := c.repo.Exec(ctx, del, name); err != nil {
				return fmt.Errorf("ingest: forget %s: %w", name, err)
			}
		}
	}
	log.Printf("ingest: reset dropped=%d", dropped)
	return nil
}
