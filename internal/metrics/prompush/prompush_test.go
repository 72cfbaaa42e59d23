package prompush

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/CMSgov/hpt-validator-sub001/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewBackend(t *testing.T) {
	t.Parallel()

	if _, err := NewBackend("nightly", ""); err == nil {
		t.Fatalf("expected error without a gateway URL")
	}
	b, err := NewBackend("", "http://pushgateway:9091")
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	if b.jobName != "hptvalidate" {
		t.Fatalf("jobName = %q, want default", b.jobName)
	}
}

// A run through the package-level helpers lands in the right collectors.
func TestRecordHelpersThroughBackend(t *testing.T) {
	b, err := NewBackend("nightly", "http://example.invalid")
	if err != nil {
		t.Fatal(err)
	}
	metrics.SetBackend(b)
	t.Cleanup(func() { metrics.SetBackend(nopForTest{}) })

	metrics.RecordValidation("nightly", "csv", "v2.2.0", false, nil, 0)
	metrics.RecordValidation("nightly", "csv", "v2.2.0", false, nil, 0)
	metrics.RecordViolations("nightly", 12, 1, 0)
	metrics.RecordRows("nightly", 5000)
	b.IncCounter("not_a_metric", 3, nil)

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"invalid csv runs", testutil.ToFloat64(b.validations.WithLabelValues("csv", "v2.2.0", "invalid")), 2},
		{"errors", testutil.ToFloat64(b.violations.WithLabelValues("error")), 12},
		{"warnings", testutil.ToFloat64(b.violations.WithLabelValues("warning")), 1},
		{"alerts", testutil.ToFloat64(b.violations.WithLabelValues("alert")), 0},
		{"rows", testutil.ToFloat64(b.rows), 5000},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Fatalf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestObserveHistogram_Exposition(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("nightly", "http://example.invalid")
	if err != nil {
		t.Fatal(err)
	}
	b.ObserveHistogram(metrics.ValidationDuration, 2, metrics.Labels{"format": "json", "outcome": "valid"})
	b.ObserveHistogram("ignored_seconds", 9, nil)

	want := `
# HELP hpt_validation_duration_seconds Wall time spent validating one file, in seconds.
# TYPE hpt_validation_duration_seconds summary
hpt_validation_duration_seconds{format="json",outcome="valid",quantile="0.5"} 2
hpt_validation_duration_seconds{format="json",outcome="valid",quantile="0.9"} 2
hpt_validation_duration_seconds{format="json",outcome="valid",quantile="0.99"} 2
hpt_validation_duration_seconds_sum{format="json",outcome="valid"} 2
hpt_validation_duration_seconds_count{format="json",outcome="valid"} 1
`
	if err := testutil.GatherAndCompare(b.reg, strings.NewReader(want), metrics.ValidationDuration); err != nil {
		t.Fatal(err)
	}
}

func TestZeroBackendIgnoresUpdates(t *testing.T) {
	t.Parallel()

	b := &Backend{}
	b.IncCounter(metrics.ValidationTotal, 1, nil)
	b.IncCounter(metrics.ViolationsTotal, 1, metrics.Labels{"kind": "alert"})
	b.IncCounter(metrics.RowsTotal, 1, nil)
	b.ObserveHistogram(metrics.ValidationDuration, 1, nil)
}

func TestFlush_PushesJobGroup(t *testing.T) {
	t.Parallel()

	var method, path, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		method, path, body = r.Method, r.URL.Path, string(b)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	b, err := NewBackend("weekly", srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	b.IncCounter(metrics.RowsTotal, 10, nil)
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if method != http.MethodPut || !strings.HasSuffix(path, "/job/weekly") {
		t.Fatalf("push = %s %s", method, path)
	}
	if body == "" {
		t.Fatalf("empty push body")
	}

	srv.Close()
	if err := b.Flush(); err == nil {
		t.Fatalf("expected error once the gateway is gone")
	}
}

type nopForTest struct{}

func (nopForTest) IncCounter(string, float64, metrics.Labels)       {}
func (nopForTest) ObserveHistogram(string, float64, metrics.Labels) {}
func (nopForTest) Flush() error                                     { return nil }
