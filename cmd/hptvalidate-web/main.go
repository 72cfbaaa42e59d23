// Command hptvalidate-web serves the upload form and JSON API.
//
// Usage:
//
//	hptvalidate-web -addr :8080 -version 3.0
//	hptvalidate-web -config web.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/CMSgov/hpt-validator-sub001/internal/config"
	"github.com/CMSgov/hpt-validator-sub001/internal/metrics/setup"
	"github.com/CMSgov/hpt-validator-sub001/internal/storage"
	"github.com/CMSgov/hpt-validator-sub001/internal/webui"

	_ "github.com/CMSgov/hpt-validator-sub001/internal/storage/all"
)

// server is the part of webui.Server that main needs; tests swap it out.
type server interface {
	ListenAndServe() error
}

var newServer = func(cfg webui.Config) server { return webui.NewServer(cfg) }

func main() {
	if err := run(os.Args[1:], log.Default()); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, logger *log.Logger) error {
	fs := flag.NewFlagSet("hptvalidate-web", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	addr := fs.String("addr", ":8080", "listen address")
	cfgPath := fs.String("config", "", "run config supplying job, version, max_errors, storage and metrics")
	version := fs.String("version", "", "default schema version (default: newest supported)")
	maxErrors := fs.Int("max-errors", 1000, "default error budget per request (0 = unlimited)")
	verbose := fs.Bool("v", false, "enable verbose logs")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("hptvalidate-web: %w", err)
	}

	var cfg config.Run
	if *cfgPath != "" {
		c, err := config.Load(*cfgPath)
		if err != nil {
			return err
		}
		cfg = c
	} else {
		cfg.Job = "hptvalidate-web"
		cfg.Validator.MaxErrors = *maxErrors
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "version":
			cfg.Version = *version
		case "max-errors":
			cfg.Validator.MaxErrors = *maxErrors
		}
	})
	config.ApplyEnv(&cfg)

	setup.Install(cfg.Metrics, cfg.Job)

	var repo storage.Repository
	if cfg.Storage.Kind != "" {
		r, err := storage.New(context.Background(), storage.Config{
			Kind:       cfg.Storage.Kind,
			DSN:        cfg.Storage.DB.DSN,
			AutoCreate: cfg.Storage.DB.AutoCreate,
		})
		if err != nil {
			return err
		}
		defer r.Close()
		repo = r
	}

	srv := newServer(webui.Config{
		Addr:      *addr,
		Job:       cfg.Job,
		Version:   cfg.Version,
		MaxErrors: cfg.Validator.MaxErrors,
		Repo:      repo,
		Verbose:   *verbose,
	})
	logger.Printf("listening on %s", *addr)
	return srv.ListenAndServe()
}
