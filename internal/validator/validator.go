// Package validator checks hospital price transparency machine-readable files
// (CSV and JSON) against a versioned regulatory schema.
//
// The CSV path is a pull-based state machine over rows:
//
//	row 0   header column labels
//	row 1   header values
//	row 2   data column labels
//	row 3+  data rows
//
// Header and data columns are reconciled order-independently against the
// columns expected for the version, layout (tall or wide), code-pair count and
// discovered payer/plan groups. Once row 2 reconciles cleanly the session is
// frozen and every data row is evaluated against a version-filtered tree of
// conditional rules. Violations are returned as data; only I/O and
// tokenization failures are returned as errors.
//
// The package never modifies its input and holds at most one row in memory
// at a time.
package validator

import (
	"time"
)

// Violation is a single finding. Errors and alerts share this shape.
type Violation struct {
	// Path is a cell label ("C4") or a row label ("row 4") for CSV, or a
	// JSON pointer for JSON files.
	Path    string `json:"path"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	// Warning marks a finding that never affects Result.Valid.
	Warning bool `json:"warning,omitempty"`

	Row    int `json:"-"`
	Column int `json:"-"`
}

// Result is the outcome of validating one file.
type Result struct {
	Valid  bool        `json:"valid"`
	Errors []Violation `json:"errors"`
	Alerts []Violation `json:"alerts"`
}

// ErrorCount returns the number of non-warning errors.
func (r Result) ErrorCount() int {
	n := 0
	for _, e := range r.Errors {
		if !e.Warning {
			n++
		}
	}
	return n
}

// WarningCount returns the number of errors demoted to warnings.
func (r Result) WarningCount() int { return len(r.Errors) - r.ErrorCount() }

// RowEvent is passed to Options.OnRow after each evaluated data row (CSV)
// or standard charge item (JSON).
type RowEvent struct {
	Row    int
	Record Record // CSV only
	Value  any    // JSON only
	Errors []Violation
	Alerts []Violation
}

// Options configures a validation run.
type Options struct {
	// MaxErrors caps the error list and aborts the stream when reached.
	// Zero means unlimited. The alert list is capped independently at the
	// same value.
	MaxErrors int

	// OnRow observes each evaluated row. It has no effect on the outcome.
	OnRow func(RowEvent)

	// ReferenceDate decides the severity of time-gated rules. The zero value
	// means the current date.
	ReferenceDate time.Time

	// LazyQuotes relaxes quote handling in the CSV tokenizer.
	LazyQuotes bool
}

func (o Options) referenceDate() time.Time {
	if o.ReferenceDate.IsZero() {
		return time.Now()
	}
	return o.ReferenceDate
}

// budget tracks the error and alert lists against MaxErrors.
type budget struct {
	max        int
	result     Result
	alertsOpen bool
	exhausted  bool
}

func newBudget(max int) *budget {
	return &budget{max: max, alertsOpen: true}
}

// addErrors appends violations until the budget is reached. It reports
// whether the budget is now exhausted.
func (b *budget) addErrors(vs ...Violation) bool {
	for _, v := range vs {
		if b.max > 0 && len(b.result.Errors) >= b.max {
			b.exhausted = true
			break
		}
		b.result.Errors = append(b.result.Errors, v)
	}
	if b.max > 0 && len(b.result.Errors) >= b.max {
		b.exhausted = true
	}
	return b.exhausted
}

// addAlerts appends alerts while alert collection is open.
func (b *budget) addAlerts(vs ...Violation) {
	for _, v := range vs {
		if !b.alertsOpen {
			return
		}
		b.result.Alerts = append(b.result.Alerts, v)
		if b.max > 0 && len(b.result.Alerts) >= b.max {
			b.alertsOpen = false
		}
	}
}

func (b *budget) final() Result {
	r := b.result
	if r.Errors == nil {
		r.Errors = []Violation{}
	}
	if r.Alerts == nil {
		r.Alerts = []Violation{}
	}
	r.Valid = r.ErrorCount() == 0
	return r
}

// invalidVersion is the single fatal result for a version outside the
// catalog. path points at where the file carries its version.
func invalidVersion(v, path string) Result {
	return Result{
		Valid:  false,
		Errors: []Violation{{Path: path, Field: "version", Message: msgInvalidVersion(v), Column: -1}},
		Alerts: []Violation{},
	}
}
