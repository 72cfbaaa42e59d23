package validator

import (
	"strconv"
)

// Header column labels.
const (
	ColHospitalName     = "hospital_name"
	ColLastUpdatedOn    = "last_updated_on"
	ColVersion          = "version"
	ColHospitalLocation = "hospital_location"
	ColHospitalAddress  = "hospital_address"
	ColLicense          = "license_number | [state]"
	ColAttesterName     = "attester_name"
	ColType2NPI         = "type_2_npi"

	ColAffirmation = "To the best of its knowledge and belief, the hospital has included all applicable standard charge information in accordance with the requirements of 45 CFR 180.50, and the information encoded is true, accurate, and complete as of the date indicated."
	ColAttestation = "To the best of its knowledge and belief, this hospital has included all applicable standard charge information in accordance with the requirements of 45 CFR 180.50, and the information encoded is true, accurate, and complete as of the date in the file."
)

// Data column labels, in canonical " | " form.
const (
	ColDescription          = "description"
	ColSetting              = "setting"
	ColDrugUnit             = "drug_unit_of_measurement"
	ColDrugType             = "drug_type_of_measurement"
	ColModifiers            = "modifiers"
	ColGross                = "standard_charge | gross"
	ColDiscountedCash       = "standard_charge | discounted_cash"
	ColMin                  = "standard_charge | min"
	ColMax                  = "standard_charge | max"
	ColGenericNotes         = "additional_generic_notes"
	ColPayerName            = "payer_name"
	ColPlanName             = "plan_name"
	ColNegotiatedDollar     = "standard_charge | negotiated_dollar"
	ColNegotiatedPercentage = "standard_charge | negotiated_percentage"
	ColNegotiatedAlgorithm  = "standard_charge | negotiated_algorithm"
	ColMethodology          = "standard_charge | methodology"
	ColEstimatedAmount      = "estimated_amount"
	ColMedianAmount         = "median_amount"
	Col10thPercentile       = "10th_percentile"
	Col90thPercentile       = "90th_percentile"
	ColCount                = "count"
	ColPayerNotes           = "additional_payer_notes"
)

// Catalog versions referenced by column and rule ranges.
const (
	V200 = "v2.0.0"
	V210 = "v2.1.0"
	V220 = "v2.2.0"
	V300 = "v3.0.0"
)

// ColumnDefinition is one expected column. Definitions are built per run
// and never mutated afterwards.
type ColumnDefinition struct {
	Label    string       `json:"label"`
	Required bool         `json:"required"`
	Versions VersionRange `json:"versions,omitempty"`
}

func (d ColumnDefinition) isLicense() bool { return d.Label == ColLicense }

// headerValueKind selects the check applied to a header value on row 1.
type headerValueKind int

const (
	headerText headerValueKind = iota
	headerDate
	headerBool
	headerOptional
)

var headerCatalog = []ColumnDefinition{
	{Label: ColHospitalName, Required: true},
	{Label: ColLastUpdatedOn, Required: true},
	{Label: ColVersion, Required: true},
	{Label: ColHospitalLocation, Required: true},
	{Label: ColHospitalAddress, Required: true},
	{Label: ColLicense, Required: true},
	{Label: ColAffirmation, Required: true, Versions: Between(V200, V300)},
	{Label: ColAttestation, Required: true, Versions: Since(V300)},
	{Label: ColAttesterName, Required: true, Versions: Since(V300)},
	{Label: ColType2NPI, Required: true, Versions: Since(V300)},
}

var headerValueKinds = map[string]headerValueKind{
	ColLastUpdatedOn: headerDate,
	ColLicense:       headerOptional,
	ColAffirmation:   headerBool,
	ColAttestation:   headerBool,
}

// HeaderColumns returns the header columns expected on row 0 for version.
func HeaderColumns(version string) []ColumnDefinition {
	return filterColumns(headerCatalog, version)
}

var baseDataColumns = []ColumnDefinition{
	{Label: ColDescription, Required: true},
	{Label: ColSetting, Required: true},
	{Label: ColDrugUnit, Required: true},
	{Label: ColDrugType, Required: true},
	{Label: ColModifiers, Required: true},
	{Label: ColGross, Required: true},
	{Label: ColDiscountedCash, Required: true},
	{Label: ColMin, Required: true},
	{Label: ColMax, Required: true},
	{Label: ColGenericNotes, Required: true},
}

// DataColumns returns the data columns expected on row 2 for the given
// version, layout, code-pair count and payer/plan groups. At least one code
// pair is always expected.
func DataColumns(version string, layout Layout, codeCount int, groups []PayerPlan) []ColumnDefinition {
	cols := append([]ColumnDefinition(nil), baseDataColumns...)
	for i := 1; i <= max(codeCount, 1); i++ {
		cols = append(cols,
			ColumnDefinition{Label: CodeColumn(i), Required: true},
			ColumnDefinition{Label: CodeTypeColumn(i), Required: true},
		)
	}
	switch layout {
	case LayoutTall:
		cols = append(cols,
			ColumnDefinition{Label: ColPayerName, Required: true},
			ColumnDefinition{Label: ColPlanName, Required: true},
		)
		cols = append(cols, chargeColumns(tallKeys())...)
	case LayoutWide:
		for _, g := range groups {
			cols = append(cols, chargeColumns(wideKeys(g))...)
		}
	}
	return filterColumns(cols, version)
}

func chargeColumns(k chargeKeys) []ColumnDefinition {
	cols := []ColumnDefinition{
		{Label: k.Dollar, Required: true},
		{Label: k.Percentage, Required: true},
		{Label: k.Algorithm, Required: true},
		{Label: k.Methodology, Required: true},
	}
	if k.Notes != ColGenericNotes {
		cols = append(cols, ColumnDefinition{Label: k.Notes, Required: true})
	}
	return append(cols,
		ColumnDefinition{Label: k.Estimated, Required: true, Versions: Between(V220, V300)},
		ColumnDefinition{Label: k.Median, Required: true, Versions: Since(V300)},
		ColumnDefinition{Label: k.P10, Required: true, Versions: Since(V300)},
		ColumnDefinition{Label: k.P90, Required: true, Versions: Since(V300)},
		ColumnDefinition{Label: k.Count, Required: true, Versions: Since(V300)},
	)
}

func filterColumns(cols []ColumnDefinition, version string) []ColumnDefinition {
	out := make([]ColumnDefinition, 0, len(cols))
	for _, c := range cols {
		if c.Versions.Contains(version) {
			out = append(out, c)
		}
	}
	return out
}

// CodeColumn is the label of the i-th code column ("code | 1").
func CodeColumn(i int) string { return joinSegments("code", strconv.Itoa(i)) }

// CodeTypeColumn is the label of the i-th code type column ("code | 1 | type").
func CodeTypeColumn(i int) string { return joinSegments("code", strconv.Itoa(i), "type") }

// chargeKeys are the column keys of one payer-specific charge group. Tall
// layout has a single fixed group; wide layout has one per payer/plan.
type chargeKeys struct {
	PayerName, PlanName string // tall only

	Dollar, Percentage, Algorithm, Methodology string
	Notes                                      string
	Estimated                                  string
	Median, P10, P90, Count                    string
}

func tallKeys() chargeKeys {
	return chargeKeys{
		PayerName:   ColPayerName,
		PlanName:    ColPlanName,
		Dollar:      ColNegotiatedDollar,
		Percentage:  ColNegotiatedPercentage,
		Algorithm:   ColNegotiatedAlgorithm,
		Methodology: ColMethodology,
		Notes:       ColGenericNotes,
		Estimated:   ColEstimatedAmount,
		Median:      ColMedianAmount,
		P10:         Col10thPercentile,
		P90:         Col90thPercentile,
		Count:       ColCount,
	}
}

func wideKeys(g PayerPlan) chargeKeys {
	charge := func(suffix string) string {
		return joinSegments("standard_charge", g.Payer, g.Plan, suffix)
	}
	scoped := func(prefix string) string {
		return joinSegments(prefix, g.Payer, g.Plan)
	}
	return chargeKeys{
		Dollar:      charge("negotiated_dollar"),
		Percentage:  charge("negotiated_percentage"),
		Algorithm:   charge("negotiated_algorithm"),
		Methodology: charge("methodology"),
		Notes:       scoped(ColPayerNotes),
		Estimated:   scoped(ColEstimatedAmount),
		Median:      scoped(ColMedianAmount),
		P10:         scoped(Col10thPercentile),
		P90:         scoped(Col90thPercentile),
		Count:       scoped(ColCount),
	}
}

// Mapping is index-aligned with the raw column list: each slot holds the
// matched semantic label or "" for an unmatched, duplicate or extra column.
type Mapping []string

// ReconcileHeader matches the row-0 header labels against defs.
func ReconcileHeader(raw []string, defs []ColumnDefinition) (Mapping, []Violation) {
	return reconcile(raw, defs, 0, msgHeaderColumnMissing)
}

// ReconcileData matches the row-2 data column labels against defs.
func ReconcileData(raw []string, defs []ColumnDefinition) (Mapping, []Violation) {
	return reconcile(raw, defs, 2, msgColumnMissing)
}

// reconcile binds each raw column, in input order, to the first remaining
// definition that is segment-equal to it. A bound definition leaves the
// pool, so a semantic slot binds at most one raw column.
func reconcile(raw []string, defs []ColumnDefinition, row int, missing func(string) string) (Mapping, []Violation) {
	type pooled struct {
		def  ColumnDefinition
		segs []string
	}
	pool := make([]pooled, len(defs))
	for i, d := range defs {
		pool[i] = pooled{def: d, segs: splitFolded(d.Label)}
	}

	mapping := make(Mapping, len(raw))
	var consumed [][]string
	var errs []Violation

	for i, label := range raw {
		segs := splitFolded(label)
		matched := -1
		for j, p := range pool {
			if p.def.isLicense() {
				if segs[0] == p.segs[0] {
					matched = j
					break
				}
				continue
			}
			if segmentsEqual(segs, p.segs) {
				matched = j
				break
			}
		}

		if matched < 0 {
			for _, c := range consumed {
				if segmentsEqual(c, segs) {
					errs = append(errs, Violation{
						Path:    Locate(row, i),
						Field:   label,
						Message: msgDuplicateColumn(label, row),
						Row:     row,
						Column:  i,
					})
					break
				}
			}
			continue
		}

		def := pool[matched].def
		if def.isLicense() {
			state := ""
			if rs := splitRaw(label); len(rs) > 1 {
				state = rs[1]
			}
			if !oneOfFold(state, stateCodes) {
				errs = append(errs, Violation{
					Path:    Locate(row, i),
					Field:   def.Label,
					Message: msgInvalidStateCode(label, state),
					Row:     row,
					Column:  i,
				})
			}
		}
		mapping[i] = def.Label
		consumed = append(consumed, segs)
		pool = append(pool[:matched], pool[matched+1:]...)
	}

	for _, p := range pool {
		if !p.def.Required {
			continue
		}
		errs = append(errs, Violation{
			Path:    RowLocation(row),
			Field:   p.def.Label,
			Message: missing(p.def.Label),
			Row:     row,
			Column:  -1,
		})
	}
	return mapping, errs
}
