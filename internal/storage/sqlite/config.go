package sqlite

import "strings"

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "file:fit.db"
	//   "fit.db" (interpreted by the driver)
	//   ":memory:"
	DSN string
}

// defaultPragmas are applied to every connection the driver opens.
var defaultPragmas = []string{"foreign_keys(1)", "busy_timeout(5000)"}

// withPragmas appends the default pragmas to dsn unless the DSN already sets
// them.
func withPragmas(dsn string) string {
	var add []string
	for _, p := range defaultPragmas {
		name := p[:strings.IndexByte(p, '(')]
		if !strings.Contains(dsn, name) {
			add = append(add, "_pragma="+p)
		}
	}
	if len(add) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(add, "&")
}
