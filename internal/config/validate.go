package config

import (
	"fmt"
	"net/url"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding that is surfaced but does not block
	// execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding for a Run.
//
// Path is a dotted path into the config (e.g. "storage.kind",
// "source.http.urls[1]"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether issues contains at least one SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidateRun performs static validation of a Run. It does not mutate r;
// callers decide whether warnings are fatal.
func ValidateRun(r Run) []Issue {
	var issues []Issue

	if strings.TrimSpace(r.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "job",
			Message:  "job is empty; metrics will be labeled with the default job name",
		})
	}
	issues = append(issues, validateSource(r.Source)...)
	issues = append(issues, validateStorage(r.Storage)...)
	issues = append(issues, validateIngest(r.Ingest)...)
	issues = append(issues, validateRuntime(r.Runtime)...)
	issues = append(issues, validateMetrics(r.Metrics)...)

	return issues
}

// validateSource validates Source configuration. An empty kind is allowed
// because files may be supplied on the command line.
func validateSource(s Source) []Issue {
	var issues []Issue

	switch s.Kind {
	case "":
	case "files":
		if len(s.Files) == 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.files",
				Message:  "files source requires at least one path",
			})
		}
	case "dir":
		if strings.TrimSpace(s.Dir.Path) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.dir.path",
				Message:  "dir source requires a non-empty path",
			})
		}
		if s.Dir.Limit < 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.dir.limit",
				Message:  "limit must not be negative",
			})
		}
	case "list":
		if strings.TrimSpace(s.List) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.list",
				Message:  "list source requires the path of a list file",
			})
		}
	case "http":
		if len(s.HTTP.URLs) == 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.http.urls",
				Message:  "http source requires at least one URL",
			})
		}
		for i, raw := range s.HTTP.URLs {
			u, err := url.Parse(raw)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     fmt.Sprintf("source.http.urls[%d]", i),
					Message:  fmt.Sprintf("%q is not an absolute http(s) URL", raw),
				})
			}
		}
		if s.HTTP.TimeoutSeconds < 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.http.timeout_seconds",
				Message:  "timeout_seconds must not be negative",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  fmt.Sprintf("unknown source kind %q (want files, dir, list or http)", s.Kind),
		})
	}

	return issues
}

// validateStorage validates storage configuration and DB settings.
func validateStorage(s Storage) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  "storage.kind must not be empty",
		})
		return issues
	}

	known := map[string]struct{}{
		"postgres": {},
		"mysql":    {},
		"mssql":    {},
		"sqlite":   {},
	}
	if _, ok := known[s.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", s.Kind),
		})
	}

	if s.DB.ResolveDSN(s.Kind) == "" {
		msg := "storage.db.dsn must not be empty"
		if s.Kind == "postgres" {
			msg = "storage.db needs either dsn or host"
		}
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.dsn",
			Message:  msg,
		})
	}
	if s.DB.DSN != "" && s.DB.Host != "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.db",
			Message:  "both dsn and host are set; dsn takes precedence",
		})
	}
	if s.DB.Port < 0 || s.DB.Port > 65535 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.port",
			Message:  fmt.Sprintf("port %d out of range", s.DB.Port),
		})
	}
	if s.DB.MaxConns < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.max_conns",
			Message:  "max_conns must not be negative",
		})
	}

	return issues
}

func validateIngest(in Ingest) []Issue {
	switch in.Duplicates {
	case "", "insert", "skip":
		return nil
	}
	return []Issue{{
		Severity: SeverityError,
		Path:     "ingest.duplicates",
		Message:  fmt.Sprintf("unknown duplicate policy %q (want insert or skip)", in.Duplicates),
	}}
}

// validateRuntime rejects negative worker counts.
func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue

	if r.Workers < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.workers",
			Message:  "workers must not be negative",
		})
	}
	if r.Sequential && r.Workers > 1 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "runtime.workers",
			Message:  "workers is ignored in sequential mode",
		})
	}

	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue

	switch m.Backend {
	case "", "none":
	case "pushgateway":
		if m.Options.String("url", "") == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "metrics.options.url",
				Message:  "pushgateway url not set; the PUSHGATEWAY_URL environment variable or the default is used",
			})
		}
	case "datadog":
		if m.Options.String("addr", "") == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "metrics.options.addr",
				Message:  "datadog addr not set; 127.0.0.1:8125 is used",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q; metrics disabled", m.Backend),
		})
	}

	return issues
}
