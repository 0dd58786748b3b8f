// Package all wires all built-in storage backends into the storage factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) runs the init functions of each concrete backend, which register
// their factories and dialects with the storage package:
//
//   - "postgres" (native profile: UUID and TEXT[] columns, COPY)
//   - "sqlite"   (fallback profile, single-connection pool)
//   - "mysql"    (fallback profile)
//   - "mssql"    (fallback profile, bulk copy)
//
// A binary that needs only a subset of backends can import those packages
// directly instead.
package all

import (
	_ "github.com/jonasinn/fitextractor/internal/storage/mssql"
	_ "github.com/jonasinn/fitextractor/internal/storage/mysql"
	_ "github.com/jonasinn/fitextractor/internal/storage/postgres"
	_ "github.com/jonasinn/fitextractor/internal/storage/sqlite"
)
