package runner

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/CMSgov/hpt-validator-sub001/internal/config"
	"github.com/CMSgov/hpt-validator-sub001/internal/datasource"
	"github.com/CMSgov/hpt-validator-sub001/internal/metrics"
	"github.com/CMSgov/hpt-validator-sub001/internal/storage"
	"github.com/CMSgov/hpt-validator-sub001/internal/validator"
)

var refDate = time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

type memSource struct {
	name    string
	data    []byte
	openErr error
}

func (m memSource) Name() string { return m.name }

func (m memSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if m.openErr != nil {
		return nil, m.openErr
	}
	return io.NopCloser(bytes.NewReader(m.data)), nil
}

type fakeRepo struct {
	mu   sync.Mutex
	runs []storage.Run
	err  error
}

func (f *fakeRepo) SaveRun(ctx context.Context, run storage.Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.runs = append(f.runs, run)
	return nil
}

func (f *fakeRepo) Close() {}

type fakeMetrics struct {
	mu       sync.Mutex
	counters map[string]float64
	hists    []string
}

func (f *fakeMetrics) IncCounter(name string, delta float64, labels metrics.Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := name
	if o := labels["outcome"]; o != "" {
		key += "/" + o
	}
	if k := labels["kind"]; k != "" {
		key += "/" + k
	}
	f.counters[key] += delta
}

func (f *fakeMetrics) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hists = append(f.hists, name+"/"+labels["outcome"])
}

func (f *fakeMetrics) Flush() error { return nil }

func installMetrics(t *testing.T) *fakeMetrics {
	t.Helper()
	f := &fakeMetrics{counters: map[string]float64{}}
	metrics.SetBackend(f)
	t.Cleanup(func() { metrics.SetBackend(nopBackend{}) })
	return f
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, metrics.Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, metrics.Labels) {}
func (nopBackend) Flush() error                                     { return nil }

// tallCSV renders a v2.2 tall file with one data row per description.
func tallCSV(t *testing.T, descriptions ...string) []byte {
	t.Helper()
	var b bytes.Buffer
	w := csv.NewWriter(&b)
	_ = w.Write([]string{
		validator.ColHospitalName, validator.ColLastUpdatedOn, validator.ColVersion,
		validator.ColHospitalLocation, validator.ColHospitalAddress, "license_number | MD",
		validator.ColAffirmation,
	})
	_ = w.Write([]string{"Test Hospital", "2024-07-01", "2.2.0", "Test Campus", "1 Main St, Baltimore, MD", "1234", "true"})

	defs := validator.DataColumns(validator.V220, validator.LayoutTall, 1, nil)
	cols := make([]string, len(defs))
	for i, d := range defs {
		cols[i] = d.Label
	}
	_ = w.Write(cols)
	for _, desc := range descriptions {
		row := map[string]string{
			validator.ColDescription:    desc,
			validator.ColSetting:        "inpatient",
			validator.CodeColumn(1):     "12345",
			validator.CodeTypeColumn(1): "CPT",
			validator.ColGross:          "100",
		}
		rec := make([]string, len(cols))
		for i, c := range cols {
			rec[i] = row[c]
		}
		_ = w.Write(rec)
	}
	w.Flush()
	return b.Bytes()
}

func newRunner(repo storage.Repository) *Runner {
	tick := time.Date(2025, time.July, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	return &Runner{
		Repo:    repo,
		Job:     "test",
		Version: "2.2",
		Options: validator.Options{ReferenceDate: refDate},
		now: func() time.Time {
			tick = tick.Add(250 * time.Millisecond)
			return tick
		},
		newID: func() string {
			n++
			return "run-" + string(rune('0'+n))
		},
	}
}

func TestValidate_CleanCSV(t *testing.T) {
	m := installMetrics(t)
	repo := &fakeRepo{}
	r := newRunner(repo)

	data := tallCSV(t, "a", "b", "c")
	rep, err := r.Validate(context.Background(), memSource{name: "mrf.csv", data: data})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !rep.Result.Valid {
		t.Fatalf("errors = %+v", rep.Result.Errors)
	}
	if rep.Format != validator.FormatCSV || rep.Rows != 3 || rep.Bytes != int64(len(data)) {
		t.Fatalf("report = %+v", rep)
	}
	if rep.ID != "run-1" || rep.Duration != 250*time.Millisecond {
		t.Fatalf("id/duration = %q %v", rep.ID, rep.Duration)
	}
	sum := xxh3.Hash128(data).Bytes()
	if rep.Fingerprint == "" || len(rep.Fingerprint) != 2*len(sum) {
		t.Fatalf("fingerprint = %q", rep.Fingerprint)
	}

	if len(repo.runs) != 1 {
		t.Fatalf("saved %d runs, want 1", len(repo.runs))
	}
	run := repo.runs[0]
	if run.Job != "test" || run.Name != "mrf.csv" || run.Format != "csv" || !run.Valid || run.Rows != 3 {
		t.Fatalf("stored run = %+v", run)
	}

	if got := m.counters[metrics.ValidationTotal+"/valid"]; got != 1 {
		t.Fatalf("validations/valid = %v", got)
	}
	if got := m.counters[metrics.RowsTotal]; got != 3 {
		t.Fatalf("rows = %v", got)
	}
}

func TestValidate_FingerprintCoversWholeFile(t *testing.T) {
	installMetrics(t)
	r := newRunner(nil)
	r.Options.MaxErrors = 1

	// A broken header stops validation after row 1; the hash still sees every byte.
	data := append([]byte("nope,nothing\nx,y\n"), bytes.Repeat([]byte("a,b\n"), 5000)...)
	rep, err := r.Validate(context.Background(), memSource{name: "bad.csv", data: data})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if rep.Result.Valid {
		t.Fatalf("expected invalid result")
	}
	if rep.Bytes != int64(len(data)) {
		t.Fatalf("bytes = %d, want %d", rep.Bytes, len(data))
	}
	r2 := newRunner(nil)
	rep2, _ := r2.Validate(context.Background(), memSource{name: "copy.csv", data: data})
	if rep.Fingerprint != rep2.Fingerprint {
		t.Fatalf("fingerprints differ for identical content")
	}
}

func TestValidate_StoresViolationKinds(t *testing.T) {
	rep := Report{
		ID: "x", Name: "f.csv", Format: validator.FormatCSV,
		Result: validator.Result{
			Errors: []validator.Violation{
				{Path: "A4", Field: "description", Message: "required"},
				{Path: "B4", Message: "demoted", Warning: true},
			},
			Alerts: []validator.Violation{{Path: "C5", Message: "nine nines"}},
		},
	}
	run := rep.StorageRun("job")
	if run.Errors != 1 || run.Warnings != 1 || run.Alerts != 1 {
		t.Fatalf("counts = %d/%d/%d", run.Errors, run.Warnings, run.Alerts)
	}
	want := []storage.Violation{
		{Seq: 0, Kind: storage.KindError, Path: "A4", Field: "description", Message: "required"},
		{Seq: 1, Kind: storage.KindWarning, Path: "B4", Message: "demoted"},
		{Seq: 2, Kind: storage.KindAlert, Path: "C5", Message: "nine nines"},
	}
	for i, v := range want {
		if run.Violations[i] != v {
			t.Fatalf("violation[%d] = %+v, want %+v", i, run.Violations[i], v)
		}
	}
}

func TestValidate_SniffsFormatWhenNameHasNoExtension(t *testing.T) {
	installMetrics(t)
	r := newRunner(nil)

	rep, err := r.Validate(context.Background(), memSource{name: "download", data: []byte("\xEF\xBB\xBF  \n{\"hospital_name\": 1}")})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if rep.Format != validator.FormatJSON {
		t.Fatalf("format = %q, want json", rep.Format)
	}

	rep, err = r.Validate(context.Background(), memSource{name: "download", data: tallCSV(t, "a")})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if rep.Format != validator.FormatCSV || !rep.Result.Valid {
		t.Fatalf("csv sniff: %+v", rep)
	}
}

func TestValidate_OpenError(t *testing.T) {
	m := installMetrics(t)
	repo := &fakeRepo{}
	r := newRunner(repo)

	boom := errors.New("connection refused")
	_, err := r.Validate(context.Background(), memSource{name: "x.csv", openErr: boom})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped open error", err)
	}
	if len(repo.runs) != 0 {
		t.Fatalf("failed open must not be stored")
	}
	if got := m.counters[metrics.ValidationTotal+"/error"]; got != 1 {
		t.Fatalf("validations/error = %v", got)
	}
}

func TestValidate_SaveError(t *testing.T) {
	installMetrics(t)
	r := newRunner(&fakeRepo{err: errors.New("disk full")})

	rep, err := r.Validate(context.Background(), memSource{name: "mrf.csv", data: tallCSV(t, "a")})
	if err == nil || !strings.Contains(err.Error(), "runner: save mrf.csv") {
		t.Fatalf("err = %v", err)
	}
	if !rep.Result.Valid {
		t.Fatalf("report should still carry the result")
	}
}

func TestValidate_ChainsOnRow(t *testing.T) {
	installMetrics(t)
	r := newRunner(nil)
	var seen []int
	r.Options.OnRow = func(ev validator.RowEvent) { seen = append(seen, ev.Row) }

	rep, err := r.Validate(context.Background(), memSource{name: "mrf.csv", data: tallCSV(t, "a", "b")})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(seen) != 2 || rep.Rows != 2 {
		t.Fatalf("OnRow saw %v, rows = %d", seen, rep.Rows)
	}
}

func TestValidateAll(t *testing.T) {
	installMetrics(t)
	repo := &fakeRepo{}
	r := newRunner(repo)
	r.newID = nil
	r.now = nil

	sources := []datasource.Source{
		memSource{name: "a.csv", data: tallCSV(t, "a")},
		memSource{name: "b.csv", openErr: errors.New("gone")},
		memSource{name: "c.csv", data: []byte("garbage\n")},
	}
	var mu sync.Mutex
	var failed []string
	reports, err := r.ValidateAll(context.Background(), sources, 2, func(src datasource.Source, err error) {
		mu.Lock()
		defer mu.Unlock()
		failed = append(failed, src.Name())
	})
	if err != nil {
		t.Fatalf("ValidateAll: %v", err)
	}
	if len(reports) != 3 {
		t.Fatalf("got %d reports", len(reports))
	}
	for i, want := range []string{"a.csv", "b.csv", "c.csv"} {
		if reports[i].Name != want {
			t.Fatalf("reports[%d].Name = %q, want %q", i, reports[i].Name, want)
		}
	}
	if !reports[0].Result.Valid || reports[1].Error == "" || reports[2].Result.Valid {
		t.Fatalf("unexpected outcomes: %+v", reports)
	}
	if len(failed) != 1 || failed[0] != "b.csv" {
		t.Fatalf("onError saw %v", failed)
	}
	if len(repo.runs) != 2 {
		t.Fatalf("stored %d runs, want 2", len(repo.runs))
	}
	if AllValid(reports) {
		t.Fatalf("AllValid = true")
	}
	if !AllValid(reports[:1]) {
		t.Fatalf("AllValid(first) = false")
	}
}

func TestValidateAll_Canceled(t *testing.T) {
	installMetrics(t)
	r := newRunner(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.ValidateAll(ctx, []datasource.Source{memSource{name: "a.csv"}}, 1, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestFromConfig(t *testing.T) {
	cfg := config.Run{
		Job:       "nightly",
		Version:   "3.0",
		Format:    "JSON",
		Validator: config.ValidatorConfig{MaxErrors: 50, ReferenceDate: "2025-01-02", LazyQuotes: true},
	}
	r, err := FromConfig(cfg, nil)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if r.Job != "nightly" || r.Version != "3.0" || r.Format != validator.FormatJSON {
		t.Fatalf("runner = %+v", r)
	}
	if r.Options.MaxErrors != 50 || !r.Options.LazyQuotes || r.Options.ReferenceDate.Format(time.DateOnly) != "2025-01-02" {
		t.Fatalf("options = %+v", r.Options)
	}

	if _, err := FromConfig(config.Run{Format: "xml"}, nil); err == nil {
		t.Fatalf("expected format error")
	}
	if _, err := FromConfig(config.Run{Validator: config.ValidatorConfig{ReferenceDate: "01/02/2025"}}, nil); err == nil {
		t.Fatalf("expected reference date error")
	}
}

func TestReportJSON(t *testing.T) {
	rep := Report{ID: "1", Name: "f.json", Format: validator.FormatJSON, Result: validator.Result{Valid: true, Errors: []validator.Violation{}, Alerts: []validator.Violation{}}}
	b, err := json.Marshal(rep)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"name":"f.json"`, `"format":"json"`, `"result":{"valid":true`} {
		if !strings.Contains(string(b), want) {
			t.Fatalf("json %s missing %s", b, want)
		}
	}
	if strings.Contains(string(b), `"error"`) {
		t.Fatalf("empty error should be omitted: %s", b)
	}
}
