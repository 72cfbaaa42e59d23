package validator

import (
	"bytes"
	"encoding/csv"
	"time"
)

var (
	beforeEnforcement = time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	afterEnforcement  = time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
)

/*
mrf assembles an in-memory CSV machine-readable file: the header labels and
values, the data column labels and data rows keyed by data column label.
Rows are rendered in column order through encoding/csv so quoting matches
what real producers emit.
*/
type mrf struct {
	headerCols []string
	headerVals []string
	dataCols   []string
	rows       []map[string]string
}

func (f mrf) bytes() []byte {
	var b bytes.Buffer
	w := csv.NewWriter(&b)
	_ = w.Write(f.headerCols)
	_ = w.Write(f.headerVals)
	_ = w.Write(f.dataCols)
	for _, r := range f.rows {
		rec := make([]string, len(f.dataCols))
		for i, c := range f.dataCols {
			rec[i] = r[c]
		}
		_ = w.Write(rec)
	}
	w.Flush()
	return b.Bytes()
}

func headerFor(version string) ([]string, []string) {
	cols := []string{
		ColHospitalName, ColLastUpdatedOn, ColVersion, ColHospitalLocation,
		ColHospitalAddress, "license_number | MD",
	}
	vals := []string{"Test Hospital", "2024-07-01", version, "Test Campus", "1 Main St, Baltimore, MD", "1234"}
	if Since(V300).Contains(version) {
		cols = append(cols, ColAttestation, ColAttesterName, ColType2NPI)
		vals = append(vals, "true", "Jo Example", "1234567890")
	} else {
		cols = append(cols, ColAffirmation)
		vals = append(vals, "true")
	}
	return cols, vals
}

func labels(defs []ColumnDefinition) []string {
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.Label
	}
	return out
}

func tallFile(version string, rows ...map[string]string) mrf {
	hc, hv := headerFor(version)
	return mrf{
		headerCols: hc,
		headerVals: hv,
		dataCols:   labels(DataColumns(version, LayoutTall, 1, nil)),
		rows:       rows,
	}
}

func wideFile(version string, groups []PayerPlan, rows ...map[string]string) mrf {
	hc, hv := headerFor(version)
	return mrf{
		headerCols: hc,
		headerVals: hv,
		dataCols:   labels(DataColumns(version, LayoutWide, 1, groups)),
		rows:       rows,
	}
}

// basicRow is a tall or wide data row with no violations.
func basicRow() map[string]string {
	return map[string]string{
		ColDescription:    "basic description",
		ColSetting:        "inpatient",
		CodeColumn(1):     "12345",
		CodeTypeColumn(1): "CPT",
		ColGross:          "100",
	}
}

func with(row map[string]string, kv ...string) map[string]string {
	out := make(map[string]string, len(row)+len(kv)/2)
	for k, v := range row {
		out[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i]] = kv[i+1]
	}
	return out
}

func messages(vs []Violation) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Message
	}
	return out
}
