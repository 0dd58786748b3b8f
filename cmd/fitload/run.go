package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/jonasinn/fitextractor/internal/config"
	"github.com/jonasinn/fitextractor/internal/datasource"
	"github.com/jonasinn/fitextractor/internal/datasource/file"
	"github.com/jonasinn/fitextractor/internal/datasource/httpds"
	"github.com/jonasinn/fitextractor/internal/ingest"
	"github.com/jonasinn/fitextractor/internal/metrics"
	"github.com/jonasinn/fitextractor/internal/metrics/datadog"
	"github.com/jonasinn/fitextractor/internal/metrics/prompush"
	"github.com/jonasinn/fitextractor/internal/storage"
)

const (
	defaultJob         = "fitload"
	defaultStorageKind = "sqlite"
	defaultSQLitePath  = "fitload.db"
	defaultGatewayURL  = "http://localhost:9091"
	defaultDatadogAddr = "127.0.0.1:8125"
)

// getenv is a test hook.
var getenv = os.Getenv

// connect is a test hook that points to ingest.Connect by default.
var connect = ingest.Connect

// flagOverrides carries the command-line values that take precedence over
// the run file.
type flagOverrides struct {
	files          []string
	reset          bool
	sequential     bool
	includeUnknown bool
	metricsBackend string
	pushGatewayURL string
	datadogAddr    string
}

// loadRun reads the run file, or returns an empty Run when no path is given.
func loadRun(path string) (config.Run, error) {
	if path == "" {
		return config.Run{}, nil
	}
	return config.Load(path)
}

// applyFlags merges command-line values into r. Positional files replace
// any configured source. Boolean flags only ever switch a setting on.
func applyFlags(r *config.Run, f flagOverrides) {
	if len(f.files) > 0 {
		r.Source = config.Source{Kind: "files", Files: f.files}
	}
	if f.reset {
		r.Ingest.Reset = true
	}
	if f.sequential {
		r.Runtime.Sequential = true
	}
	if f.includeUnknown {
		r.Decode.IncludeUnknown = true
	}
	if f.metricsBackend != "" {
		r.Metrics.Backend = f.metricsBackend
	}
	if f.pushGatewayURL != "" || f.datadogAddr != "" {
		if r.Metrics.Options == nil {
			r.Metrics.Options = config.Options{}
		}
		if f.pushGatewayURL != "" {
			r.Metrics.Options["url"] = f.pushGatewayURL
		}
		if f.datadogAddr != "" {
			r.Metrics.Options["addr"] = f.datadogAddr
		}
	}

	if r.Job == "" {
		r.Job = defaultJob
	}
	if r.Storage.Kind == "" {
		r.Storage.Kind = defaultStorageKind
		if r.Storage.DB.DSN == "" {
			r.Storage.DB.DSN = defaultSQLitePath
		}
	}
}

// buildSources turns the source block into datasource.Sources, in the order
// the files will be reported.
func buildSources(s config.Source) ([]datasource.Source, error) {
	var paths []string
	switch s.Kind {
	case "files":
		paths = s.Files
	case "dir":
		var err error
		paths, err = file.List(s.Dir.Path, file.ListOptions{
			Patterns:  s.Dir.Patterns,
			Recursive: s.Dir.Recursive,
			Limit:     s.Dir.Limit,
		})
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", s.Dir.Path, err)
		}
	case "list":
		var err error
		paths, err = file.ReadList(s.List)
		if err != nil {
			return nil, fmt.Errorf("read list %s: %w", s.List, err)
		}
	case "http":
		return httpSources(s.HTTP), nil
	default:
		return nil, fmt.Errorf("unsupported source kind %q", s.Kind)
	}

	out := make([]datasource.Source, len(paths))
	for i, p := range paths {
		out[i] = file.NewLocal(p)
	}
	return out, nil
}

func httpSources(h config.SourceHTTP) []datasource.Source {
	headers := http.Header{}
	for k, v := range h.Options.StringMap("headers") {
		headers.Set(k, v)
	}
	c := httpds.NewClient(httpds.Config{
		Timeout:            time.Duration(h.TimeoutSeconds) * time.Second,
		MaxRetries:         h.MaxRetries,
		InsecureSkipVerify: h.Options.Bool("insecure_skip_verify", false),
		BaseHeaders:        headers,
	})
	out := make([]datasource.Source, len(h.URLs))
	for i, u := range h.URLs {
		out[i] = httpds.NewSource(c, u)
	}
	return out
}

// coordinatorOptions maps the run file onto ingest options.
func coordinatorOptions(r config.Run, verbose bool) ([]ingest.Option, error) {
	dup, err := ingest.ParseDuplicatePolicy(r.Ingest.Duplicates)
	if err != nil {
		return nil, err
	}
	return []ingest.Option{
		ingest.WithJob(r.Job),
		ingest.WithParallel(!r.Runtime.Sequential),
		ingest.WithWorkers(r.Runtime.Workers),
		ingest.WithIncludeUnknown(r.Decode.IncludeUnknown),
		ingest.WithDuplicatePolicy(dup),
		ingest.WithVerbose(verbose),
	}, nil
}

// setupMetrics installs the selected backend and returns a flush function
// that is safe to call more than once. Backend errors are logged and leave
// metrics disabled.
func setupMetrics(r config.Run, verbose bool) func() {
	backendName := r.Metrics.Backend
	if backendName == "" {
		backendName = getenv("METRICS_BACKEND")
	}

	switch backendName {
	case "pushgateway":
		// Decide Pushgateway URL: flag/config → env → default.
		gwURL := r.Metrics.Options.String("url", "")
		if gwURL == "" {
			gwURL = getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = defaultGatewayURL
		}
		b, err := prompush.NewBackend(r.Job, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			return func() {}
		}
		log.Printf("metrics: url=%v, backend=%v, job_name=%v", gwURL, backendName, r.Job)
		metrics.SetBackend(b)

	case "datadog":
		addr := r.Metrics.Options.String("addr", "")
		if addr == "" {
			addr = getenv("DD_AGENT_ADDR")
		}
		if addr == "" {
			addr = defaultDatadogAddr
		}
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       addr,
			Namespace:  r.Metrics.Options.String("namespace", ""),
			GlobalTags: append(r.Metrics.Options.StringSlice("tags"), "job:"+r.Job),
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return func() {}
		}
		log.Printf("metrics: addr=%v, backend=%v, job_name=%v", addr, backendName, r.Job)
		metrics.SetBackend(b)

	case "", "none":
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}
		return func() {}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
		return func() {}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := metrics.Flush(); err != nil {
				log.Printf("metrics: flush error: %v", err)
			}
		})
	}
}

// run connects to the configured store and executes one ingestion run.
func run(ctx context.Context, r config.Run, verbose bool) (ingest.Report, error) {
	sources, err := buildSources(r.Source)
	if err != nil {
		return ingest.Report{}, err
	}
	if len(sources) == 0 {
		return ingest.Report{}, fmt.Errorf("no input files found for source kind %q", r.Source.Kind)
	}
	opts, err := coordinatorOptions(r, verbose)
	if err != nil {
		return ingest.Report{}, err
	}

	repo, dialect, err := connect(ctx, storage.Config{
		Kind:     r.Storage.Kind,
		DSN:      r.Storage.DB.ResolveDSN(r.Storage.Kind),
		MaxConns: r.Storage.DB.MaxConns,
	})
	if err != nil {
		return ingest.Report{}, err
	}
	defer repo.Close()

	c := ingest.New(repo, dialect, opts...)
	return c.Run(ctx, sources, r.Ingest.Reset)
}
