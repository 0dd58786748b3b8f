package ingest

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotIdle is returned by Run on a coordinator that has already run.
var ErrNotIdle = errors.New("ingest: coordinator already used")

// ErrIncompatibleValue marks a value that cannot be stored in its column's
// canonical type.
var ErrIncompatibleValue = errors.New("ingest: value incompatible with column type")

// SchemaConflictError reports target tables that already exist. Without reset
// any existing target conflicts; under reset only targets the bookkeeping
// table does not list do. Nothing has been written when it is returned.
type SchemaConflictError struct {
	Tables []string
	Reset  bool
}

func (e *SchemaConflictError) Error() string {
	names := strings.Join(e.Tables, ", ")
	if e.Reset {
		return fmt.Sprintf("ingest: tables not created by fitextractor already exist: %s", names)
	}
	return fmt.Sprintf("ingest: tables already exist: %s (reset to recreate)", names)
}

// InsertFailureError reports rows of one message type (or the registry row
// when MessageType is empty) that could not be inserted for one file.
type InsertFailureError struct {
	File        string
	MessageType string
	Table       string
	Rows        int
	Err         error
}

func (e *InsertFailureError) Error() string {
	what := e.MessageType
	if what == "" {
		what = "registry"
	}
	return fmt.Sprintf("ingest: insert %s (%d rows) for %s into %s: %v", what, e.Rows, e.File, e.Table, e.Err)
}

func (e *InsertFailureError) Unwrap() error { return e.Err }

// ConnectionError reports that the store could not be opened or reached.
type ConnectionError struct {
	Kind string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("ingest: connect %s: %v", e.Kind, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
