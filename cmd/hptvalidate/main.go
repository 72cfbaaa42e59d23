// Command hptvalidate validates hospital price transparency machine-readable
// files (CSV or JSON) against a schema version.
//
// Usage:
//
//	hptvalidate -version 2.2 mrf.csv https://example.org/standardcharges.json
//	hptvalidate -config run.yaml -json
//	hptvalidate -version 3.0 -watch ./incoming
//	hptvalidate -config nightly.yaml -schedule "0 3 * * *"
//
// Exit status is 0 when every file is valid, 1 when any file is invalid or
// could not be validated and 2 for usage or configuration errors.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CMSgov/hpt-validator-sub001/internal/config"
	"github.com/CMSgov/hpt-validator-sub001/internal/datasource"
	"github.com/CMSgov/hpt-validator-sub001/internal/datasource/file"
	"github.com/CMSgov/hpt-validator-sub001/internal/metrics"
	"github.com/CMSgov/hpt-validator-sub001/internal/metrics/setup"
	"github.com/CMSgov/hpt-validator-sub001/internal/runner"
	"github.com/CMSgov/hpt-validator-sub001/internal/schedule"
	"github.com/CMSgov/hpt-validator-sub001/internal/storage"
	"github.com/CMSgov/hpt-validator-sub001/internal/watch"

	// every run history backend; the config picks one.
	_ "github.com/CMSgov/hpt-validator-sub001/internal/storage/all"
)

const (
	exitValid   = 0
	exitInvalid = 1
	exitUsage   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	cfgPath    string
	version    string
	maxErrors  int
	format     string
	refDate    string
	list       string
	watchDir   string
	schedule   string
	workers    int
	jsonOut    bool
	checkOnly  bool
	verbose    bool
	positional []string
	set        map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("hptvalidate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.cfgPath, "config", "", "run config (.json, .yaml or .yml)")
	fs.StringVar(&o.version, "version", "", "schema version, e.g. 2.0, 2.2 or 3.0")
	fs.IntVar(&o.maxErrors, "max-errors", 1000, "stop collecting after this many errors (0 = unlimited)")
	fs.StringVar(&o.format, "format", "", "force csv or json (default: detect)")
	fs.StringVar(&o.refDate, "ref-date", "", "reference date YYYY-MM-DD for time-gated rules (default: today)")
	fs.StringVar(&o.list, "list", "", "file with one path or URL per line")
	fs.StringVar(&o.watchDir, "watch", "", "validate CSV/JSON files dropped into this directory")
	fs.StringVar(&o.schedule, "schedule", "", "cron expression for periodic re-validation")
	fs.IntVar(&o.workers, "workers", 1, "files validated concurrently")
	fs.BoolVar(&o.jsonOut, "json", false, "print reports as JSON")
	fs.BoolVar(&o.checkOnly, "check-config", false, "validate the configuration and exit")
	fs.BoolVar(&o.verbose, "v", false, "enable verbose logs")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	o.positional = fs.Args()
	o.set = map[string]bool{}
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	return o, nil
}

// buildConfig layers flags over the config file.
func buildConfig(o options) (config.Run, error) {
	var cfg config.Run
	if o.cfgPath != "" {
		c, err := config.Load(o.cfgPath)
		if err != nil {
			return cfg, err
		}
		cfg = c
	} else {
		cfg.Validator.MaxErrors = o.maxErrors
	}
	if o.set["version"] {
		cfg.Version = o.version
	}
	if o.set["max-errors"] {
		cfg.Validator.MaxErrors = o.maxErrors
	}
	if o.set["format"] {
		cfg.Format = o.format
	}
	if o.set["ref-date"] {
		cfg.Validator.ReferenceDate = o.refDate
	}
	if o.set["workers"] {
		cfg.Runtime.Workers = o.workers
	}
	if o.set["watch"] {
		cfg.Runtime.WatchDir = o.watchDir
	}
	if o.set["schedule"] {
		cfg.Runtime.Schedule = o.schedule
	}

	var args []string
	if o.list != "" {
		lines, err := file.ReadList(o.list)
		if err != nil {
			return cfg, err
		}
		args = append(args, lines...)
	}
	args = append(args, o.positional...)
	for _, a := range args {
		cfg.Sources = append(cfg.Sources, datasource.Resolve(a))
	}

	config.ApplyDefaults(&cfg)
	config.ApplyEnv(&cfg)
	return cfg, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitValid
		}
		return exitUsage
	}
	if o.verbose {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	}

	cfg, err := buildConfig(o)
	if err != nil {
		fmt.Fprintf(stderr, "hptvalidate: %v\n", err)
		return exitUsage
	}

	issues := config.ValidateRun(cfg)
	for _, iss := range issues {
		fmt.Fprintf(stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return exitUsage
	}
	if o.checkOnly {
		fmt.Fprintln(stdout, "configuration is valid")
		return exitValid
	}

	sources := make([]datasource.Source, 0, len(cfg.AllSources()))
	for _, sc := range cfg.AllSources() {
		src, err := datasource.FromConfig(sc)
		if err != nil {
			fmt.Fprintf(stderr, "hptvalidate: %v\n", err)
			return exitUsage
		}
		sources = append(sources, src)
	}
	if len(sources) == 0 && cfg.Runtime.WatchDir == "" {
		fmt.Fprintln(stderr, "hptvalidate: no input; pass files or URLs, -list, -watch or a config with sources")
		return exitUsage
	}

	setup.Install(cfg.Metrics, cfg.Job)
	defer func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}()

	var repo storage.Repository
	if cfg.Storage.Kind != "" {
		repo, err = storage.New(ctx, storage.Config{
			Kind:       cfg.Storage.Kind,
			DSN:        cfg.Storage.DB.DSN,
			AutoCreate: cfg.Storage.DB.AutoCreate,
		})
		if err != nil {
			fmt.Fprintf(stderr, "hptvalidate: %v\n", err)
			return exitUsage
		}
		defer repo.Close()
	}

	r, err := runner.FromConfig(cfg, repo)
	if err != nil {
		fmt.Fprintf(stderr, "hptvalidate: %v\n", err)
		return exitUsage
	}
	r.Verbose = o.verbose
	out := &printer{w: stdout, json: o.jsonOut}

	switch {
	case cfg.Runtime.WatchDir != "":
		return runWatch(ctx, r, cfg.Runtime.WatchDir, out, stderr)
	case cfg.Runtime.Schedule != "":
		return runSchedule(ctx, r, cfg, sources, out, stderr)
	}

	start := time.Now()
	reports, err := r.ValidateAll(ctx, sources, cfg.Runtime.Workers, nil)
	out.print(reports...)
	if o.verbose {
		log.Printf("hptvalidate: files=%d took=%s", len(reports), time.Since(start).Truncate(time.Millisecond))
	}
	if err != nil || !runner.AllValid(reports) {
		return exitInvalid
	}
	return exitValid
}

func runWatch(ctx context.Context, r *runner.Runner, dir string, out *printer, stderr io.Writer) int {
	w, err := watch.New(watch.Config{Dir: dir, Existing: true, Verbose: r.Verbose})
	if err != nil {
		fmt.Fprintf(stderr, "hptvalidate: %v\n", err)
		return exitUsage
	}
	err = w.Run(ctx, func(ctx context.Context, path string) {
		rep, err := r.Validate(ctx, file.NewLocal(path))
		if err != nil {
			rep.Error = err.Error()
		}
		out.print(rep)
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	})
	if err != nil {
		fmt.Fprintf(stderr, "hptvalidate: %v\n", err)
		return exitInvalid
	}
	return exitValid
}

func runSchedule(ctx context.Context, r *runner.Runner, cfg config.Run, sources []datasource.Source, out *printer, stderr io.Writer) int {
	s, err := schedule.New(cfg.Runtime.Schedule, func(ctx context.Context) {
		reports, _ := r.ValidateAll(ctx, sources, cfg.Runtime.Workers, nil)
		out.print(reports...)
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}, schedule.WithRunAtStart())
	if err != nil {
		fmt.Fprintf(stderr, "hptvalidate: %v\n", err)
		return exitUsage
	}
	if err := s.Run(ctx); err != nil {
		fmt.Fprintf(stderr, "hptvalidate: %v\n", err)
		return exitInvalid
	}
	return exitValid
}
