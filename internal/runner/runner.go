// Package runner ties the pieces of a validation together: it opens a
// source, fingerprints the bytes as they stream past, validates them,
// records metrics and stores the run history.
package runner

import (
	"bufio"
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"

	"github.com/CMSgov/hpt-validator-sub001/internal/config"
	"github.com/CMSgov/hpt-validator-sub001/internal/datasource"
	"github.com/CMSgov/hpt-validator-sub001/internal/metrics"
	"github.com/CMSgov/hpt-validator-sub001/internal/storage"
	"github.com/CMSgov/hpt-validator-sub001/internal/validator"
)

// Runner validates sources against one schema version.
type Runner struct {
	// Repo stores run history. Nil disables persistence.
	Repo storage.Repository

	Job     string
	Version string

	// Format forces the file format. Empty detects it per source, first from
	// the name and then from the leading bytes.
	Format validator.Format

	Options validator.Options
	Verbose bool

	now   func() time.Time
	newID func() string
}

// Report is the outcome of one source.
type Report struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Version     string           `json:"version"`
	Format      validator.Format `json:"format"`
	Rows        int              `json:"rows"`
	Bytes       int64            `json:"bytes"`
	Fingerprint string           `json:"fingerprint,omitempty"`
	StartedAt   time.Time        `json:"started_at"`
	Duration    time.Duration    `json:"duration_ns"`
	Result      validator.Result `json:"result"`

	// Error is set by ValidateAll for sources that could not be validated.
	Error string `json:"error,omitempty"`
}

// FromConfig builds a Runner from a run configuration.
func FromConfig(cfg config.Run, repo storage.Repository) (*Runner, error) {
	ref, err := cfg.Validator.ReferenceTime()
	if err != nil {
		return nil, fmt.Errorf("runner: %w", err)
	}
	r := &Runner{
		Repo:    repo,
		Job:     cfg.Job,
		Version: cfg.Version,
		Options: validator.Options{
			MaxErrors:     cfg.Validator.MaxErrors,
			ReferenceDate: ref,
			LazyQuotes:    cfg.Validator.LazyQuotes,
		},
	}
	if cfg.Format != "" {
		f, err := validator.ParseFormat(cfg.Format)
		if err != nil {
			return nil, fmt.Errorf("runner: %w", err)
		}
		r.Format = f
	}
	return r, nil
}

func (r *Runner) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

func (r *Runner) id() string {
	if r.newID != nil {
		return r.newID()
	}
	return uuid.NewString()
}

// Validate opens src, validates it and records the outcome. Validation
// findings are part of the Report; only failures to read, validate or store
// are returned as errors.
func (r *Runner) Validate(ctx context.Context, src datasource.Source) (Report, error) {
	start := r.clock()
	rep := Report{
		ID:        r.id(),
		Name:      src.Name(),
		Version:   r.Version,
		StartedAt: start,
	}

	rc, err := src.Open(ctx)
	if err != nil {
		rep.Duration = r.clock().Sub(start)
		metrics.RecordValidation(r.Job, "", r.Version, false, err, rep.Duration)
		return rep, fmt.Errorf("runner: open %s: %w", rep.Name, err)
	}
	defer rc.Close()

	hasher := xxh3.New()
	counter := &countingReader{r: rc}
	br := bufio.NewReaderSize(io.TeeReader(counter, hasher), 64<<10)

	rep.Format = r.Format
	if rep.Format == "" {
		rep.Format = detect(rep.Name, br)
	}

	opts := r.Options
	onRow := opts.OnRow
	opts.OnRow = func(ev validator.RowEvent) {
		rep.Rows++
		if onRow != nil {
			onRow(ev)
		}
	}

	res, err := validator.Validate(ctx, br, rep.Format, r.Version, opts)
	if err == nil {
		// The stream may stop early (error budget, header failures); the
		// fingerprint always covers the whole file.
		if _, derr := io.Copy(io.Discard, br); derr != nil {
			err = fmt.Errorf("drain: %w", derr)
		}
	}
	rep.Bytes = counter.n
	sum := hasher.Sum128().Bytes()
	rep.Fingerprint = hex.EncodeToString(sum[:])
	rep.Duration = r.clock().Sub(start)

	metrics.RecordValidation(r.Job, string(rep.Format), r.Version, res.Valid, err, rep.Duration)
	if err != nil {
		return rep, fmt.Errorf("runner: validate %s: %w", rep.Name, err)
	}
	rep.Result = res
	metrics.RecordViolations(r.Job, res.ErrorCount(), res.WarningCount(), len(res.Alerts))
	metrics.RecordRows(r.Job, int64(rep.Rows))

	if r.Verbose {
		log.Printf("runner: name=%s format=%s version=%s valid=%t errors=%d warnings=%d alerts=%d rows=%d bytes=%d took=%s",
			rep.Name, rep.Format, rep.Version, res.Valid, res.ErrorCount(), res.WarningCount(), len(res.Alerts),
			rep.Rows, rep.Bytes, rep.Duration.Round(time.Millisecond))
	}

	if r.Repo != nil {
		if err := r.Repo.SaveRun(ctx, rep.StorageRun(r.Job)); err != nil {
			return rep, fmt.Errorf("runner: save %s: %w", rep.Name, err)
		}
	}
	return rep, nil
}

// StorageRun converts the report into a run history record.
func (rep Report) StorageRun(job string) storage.Run {
	res := rep.Result
	run := storage.Run{
		ID:          rep.ID,
		Job:         job,
		Name:        rep.Name,
		Version:     rep.Version,
		Format:      string(rep.Format),
		Valid:       res.Valid,
		Errors:      res.ErrorCount(),
		Warnings:    res.WarningCount(),
		Alerts:      len(res.Alerts),
		Rows:        rep.Rows,
		Bytes:       rep.Bytes,
		Fingerprint: rep.Fingerprint,
		StartedAt:   rep.StartedAt,
		Duration:    rep.Duration,
		Violations:  make([]storage.Violation, 0, len(res.Errors)+len(res.Alerts)),
	}
	add := func(kind string, v validator.Violation) {
		run.Violations = append(run.Violations, storage.Violation{
			Seq:     len(run.Violations),
			Kind:    kind,
			Path:    v.Path,
			Field:   v.Field,
			Message: v.Message,
		})
	}
	for _, v := range res.Errors {
		if v.Warning {
			add(storage.KindWarning, v)
		} else {
			add(storage.KindError, v)
		}
	}
	for _, v := range res.Alerts {
		add(storage.KindAlert, v)
	}
	return run
}

// detect picks the format from the name, falling back to the first
// significant byte: '{' or '[' is JSON, anything else CSV.
func detect(name string, br *bufio.Reader) validator.Format {
	if f, err := validator.DetectFormat(name); err == nil {
		return f
	}
	head, _ := br.Peek(512)
	head = bytes.TrimLeft(bytes.TrimPrefix(head, utf8BOM), " \t\r\n")
	if len(head) > 0 && (head[0] == '{' || head[0] == '[') {
		return validator.FormatJSON
	}
	return validator.FormatCSV
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
