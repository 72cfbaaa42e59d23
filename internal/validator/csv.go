package validator

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/CMSgov/hpt-validator-sub001/internal/config"
	csvparser "github.com/CMSgov/hpt-validator-sub001/internal/parser/csv"
)

// Row indexes of the fixed CSV preamble.
const (
	rowHeaderColumns = 0
	rowHeaderValues  = 1
	rowDataColumns   = 2
	firstDataRow     = 3
)

// ValidateCSV validates a CSV file read from r against version.
//
// Rows are pulled one at a time; validation stops reading as soon as a
// fatal condition is reached (blank required header row, header or column
// errors after row 2, or an exhausted error budget). The returned error is
// non-nil only for I/O or tokenization failures and context cancellation.
func ValidateCSV(ctx context.Context, r io.Reader, version string, opts Options) (Result, error) {
	v, ok := LookupVersion(version)
	if !ok {
		return invalidVersion(version, RowLocation(rowHeaderValues)), nil
	}

	rows := csvparser.NewRowReader(r, config.Options{"lazy_quotes": opts.LazyQuotes})
	m := newCSVMachine(v, opts)
	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		cells, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("validator: %w", err)
		}
		stop, err := m.feed(cells)
		if err != nil {
			// Session errors already carry the package prefix.
			return Result{}, err
		}
		if stop {
			return m.budget.final(), nil
		}
	}
	return m.finish(), nil
}

// csvMachine is the row-index driven state machine behind ValidateCSV.
type csvMachine struct {
	version string
	opts    Options
	budget  *budget

	row           int
	headerLabels  []string
	headerMapping Mapping

	session     *Session
	dataMapping Mapping
	fieldIndex  map[string]int
}

func newCSVMachine(version string, opts Options) *csvMachine {
	return &csvMachine{
		version: version,
		opts:    opts,
		budget:  newBudget(opts.MaxErrors),
	}
}

// feed consumes one row and reports whether the stream must stop.
func (m *csvMachine) feed(cells []string) (stop bool, err error) {
	row := m.row
	m.row++

	switch {
	case row == rowHeaderColumns:
		if csvparser.IsBlank(cells) {
			return m.fatal(row), nil
		}
		m.headerLabels = append([]string(nil), cells...)
		return false, nil

	case row == rowHeaderValues:
		mapping, errs := ReconcileHeader(m.headerLabels, HeaderColumns(m.version))
		m.headerMapping = mapping
		if m.budget.addErrors(errs...) {
			return true, nil
		}
		return m.budget.addErrors(validateHeaderValues(mapping, cells, row)...), nil

	case row == rowDataColumns:
		if csvparser.IsBlank(cells) {
			return m.fatal(row), nil
		}
		if err := m.reconcileColumns(cells); err != nil {
			return true, err
		}
		if m.budget.exhausted {
			return true, nil
		}
		if len(m.budget.result.Errors) > 0 {
			m.budget.addErrors(Violation{Path: RowLocation(row), Message: msgHeaderErrors, Row: row, Column: -1})
			return true, nil
		}
		return false, nil

	default:
		if csvparser.IsBlank(cells) {
			return false, nil
		}
		return m.evaluate(row, cells), nil
	}
}

// fatal records a blank required header row and stops the stream.
func (m *csvMachine) fatal(row int) bool {
	m.budget.addErrors(Violation{
		Path:    RowLocation(row),
		Message: fmt.Sprintf(msgBlankHeaderRow, row+1),
		Row:     row,
		Column:  -1,
	})
	return true
}

// reconcileColumns detects the layout, freezes the session and binds the
// data column labels on row 2. Rule problems surface as violations; the
// returned error means no session could be built for the version.
func (m *csvMachine) reconcileColumns(cells []string) error {
	layout, groups, ok := DetectLayout(cells)
	if !ok {
		m.budget.addErrors(Violation{Path: RowLocation(rowDataColumns), Message: msgAmbiguous, Row: rowDataColumns, Column: -1})
		return nil
	}
	s, err := NewSession(SessionParams{
		Version:       m.version,
		Layout:        layout,
		CodeCount:     CodePairCount(cells),
		Groups:        groups,
		ReferenceDate: m.opts.referenceDate(),
	})
	if err != nil {
		return err
	}
	mapping, errs := ReconcileData(cells, s.Columns())
	if m.budget.addErrors(errs...) || len(errs) > 0 {
		return nil
	}
	m.session = s
	m.dataMapping = mapping
	m.fieldIndex = make(map[string]int, len(mapping))
	for i, key := range mapping {
		if key != "" {
			m.fieldIndex[key] = i
		}
	}
	return nil
}

// evaluate runs the frozen rule set against one data row.
func (m *csvMachine) evaluate(row int, cells []string) bool {
	rec := m.session.Record(m.dataMapping, cells)
	rules := m.session.Rules()

	errs := m.locate(row, Evaluate(rec, rules.Errors))
	var alerts []Violation
	if m.budget.alertsOpen {
		alerts = m.locate(row, Evaluate(rec, rules.Alerts))
		for i := range alerts {
			alerts[i].Warning = true
		}
	}

	stop := m.budget.addErrors(errs...)
	m.budget.addAlerts(alerts...)
	if m.opts.OnRow != nil {
		m.opts.OnRow(RowEvent{Row: row, Record: rec, Errors: errs, Alerts: alerts})
	}
	return stop
}

func (m *csvMachine) locate(row int, vs []Violation) []Violation {
	for i := range vs {
		col := -1
		if ix, ok := m.fieldIndex[vs[i].Field]; ok && vs[i].Field != "" {
			col = ix
		}
		vs[i].Row = row
		vs[i].Column = col
		vs[i].Path = location(row, col)
	}
	return vs
}

// finish handles end of input without an abort.
func (m *csvMachine) finish() Result {
	if m.row <= firstDataRow {
		return Result{
			Valid:  false,
			Errors: []Violation{{Path: RowLocation(m.row), Message: msgMinRows, Row: m.row, Column: -1}},
			Alerts: []Violation{},
		}
	}
	return m.budget.final()
}
