package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/jonasinn/fitextractor/internal/datasource"
	"github.com/jonasinn/fitextractor/internal/datasource/file"
	"github.com/jonasinn/fitextractor/internal/probe"

	_ "github.com/jonasinn/fitextractor/internal/storage/all"
)

// main is the entrypoint for the probing CLI. It decodes the given FIT files,
// reconciles the schema a load would create and prints it as JSON, without
// connecting to a database.
func main() {
	var (
		flagBackend = flag.String(
			"backend",
			"postgres",
			"Storage backend whose naming and DDL to render: postgres|mysql|mssql|sqlite",
		)
		flagDir = flag.String(
			"dir",
			"",
			"Probe every .fit/.fit.gz file under this directory instead of positional files",
		)
		flagDDL = flag.Bool(
			"ddl",
			false,
			"Include CREATE TABLE statements",
		)
		flagPretty = flag.Bool(
			"pretty",
			true,
			"Pretty-print JSON output",
		)
		flagUnknown = flag.Bool(
			"include-unknown",
			false,
			"Keep message types and fields without a profile name",
		)
		flagTimeout = flag.Duration(
			"timeout",
			5*time.Minute,
			"Overall time limit",
		)
	)
	flag.Parse()

	paths := flag.Args()
	if *flagDir != "" {
		var err error
		paths, err = file.List(*flagDir, file.ListOptions{Recursive: true})
		if err != nil {
			log.Fatalf("probe: %v", err)
		}
	}
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "no input: pass FIT files or -dir")
		flag.Usage()
		os.Exit(2)
	}

	sources := make([]datasource.Source, len(paths))
	for i, p := range paths {
		sources[i] = file.NewLocal(p)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *flagTimeout)
	defer cancel()

	res, err := probe.Probe(ctx, sources, probe.Options{
		Backend:        strings.ToLower(*flagBackend),
		DDL:            *flagDDL,
		IncludeUnknown: *flagUnknown,
	})
	if err != nil {
		log.Fatalf("probe: %v", err)
	}

	out, err := res.JSON(*flagPretty)
	if err != nil {
		log.Fatalf("probe: encode: %v", err)
	}
	os.Stdout.Write(out)
	os.Stdout.Write([]byte("\n"))

	if failed := res.Failed(); len(failed) > 0 {
		log.Printf("probe: %d file(s) failed to decode: %s", len(failed), strings.Join(failed, ", "))
		os.Exit(1)
	}
}
