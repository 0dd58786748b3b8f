// Command fitload decodes FIT activity files, reconciles a relational schema
// across all of them and loads every message type into its own table.
//
// Usage:
//
//	fitload [-config run.json] [-reset] [-sequential] [file.fit ...]
//
// Exit status is 0 when every file was ingested or skipped, 2 when at least
// one file failed to decode or insert, and 1 on configuration, connection or
// schema errors.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonasinn/fitextractor/internal/config"
	"github.com/jonasinn/fitextractor/internal/storage"

	// register all backends with the storage factory.
	_ "github.com/jonasinn/fitextractor/internal/storage/all"
)

func main() {
	var (
		cfgPath           string
		metricsBackendFlg string
		pushGatewayURLFlg string
		datadogAddrFlg    string
		reset             bool
		sequential        bool
		includeUnknown    bool
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "", "run config JSON path (optional when files are given)")
	flag.BoolVar(&reset, "reset", false, "drop the tables created by earlier runs before loading")
	flag.BoolVar(&sequential, "sequential", false, "decode and insert one file at a time")
	flag.BoolVar(&includeUnknown, "include-unknown", false, "keep message types and fields without a profile name")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend: pushgateway, datadog or none (overrides config)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides config and env PUSHGATEWAY_URL)")
	flag.StringVar(&datadogAddrFlg, "datadog-addr", "", "DogStatsD address (overrides config and env DD_AGENT_ADDR)")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	r, err := loadRun(cfgPath)
	if err != nil {
		fatalf("%v", err)
	}
	config.ApplyEnv(&r)
	applyFlags(&r, flagOverrides{
		files:          flag.Args(),
		reset:          reset,
		sequential:     sequential,
		includeUnknown: includeUnknown,
		metricsBackend: metricsBackendFlg,
		pushGatewayURL: pushGatewayURLFlg,
		datadogAddr:    datadogAddrFlg,
	})

	issues := config.ValidateRun(r)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Printf("Configuration is invalid: %v", describe(cfgPath))
		os.Exit(1)
	}
	if r.Source.Kind == "" {
		fatalf("no input: pass FIT files as arguments or set source in -config")
	}
	if validate {
		log.Printf("Configuration is valid: %v", describe(cfgPath))
		os.Exit(0)
	}

	storage.SetProgressLogging(*verbose)

	flush := setupMetrics(r, *verbose)
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	start := time.Now()

	if *verbose {
		log.Printf("run: job=%s source=%s storage=%s reset=%v sequential=%v",
			r.Job, r.Source.Kind, r.Storage.Kind, r.Ingest.Reset, r.Runtime.Sequential)
	}

	rep, err := run(ctx, r, *verbose)
	if err != nil {
		flush()
		log.Fatalf("%v", err)
	}

	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
	if failed := rep.Failed(); len(failed) > 0 {
		for _, o := range failed {
			log.Printf("failed: file=%s status=%s err=%v", o.File, o.Status, o.Err)
		}
		flush()
		os.Exit(2)
	}
}

func describe(cfgPath string) string {
	if cfgPath == "" {
		return "(command line)"
	}
	return cfgPath
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
