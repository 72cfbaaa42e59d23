package validator

import (
	"strconv"
)

// Layout is the CSV arrangement of payer-specific charges.
type Layout int

const (
	LayoutUnknown Layout = iota
	// LayoutTall has one row per payer/plan with payer_name and plan_name columns.
	LayoutTall
	// LayoutWide has one row per item with a column group per payer/plan.
	LayoutWide
)

func (l Layout) String() string {
	switch l {
	case LayoutTall:
		return "tall"
	case LayoutWide:
		return "wide"
	default:
		return "unknown"
	}
}

// PayerPlan is one discovered payer/plan combination.
type PayerPlan struct {
	Payer string `json:"payer"`
	Plan  string `json:"plan"`
}

// Key renders the group as "<payer> | <plan>".
func (p PayerPlan) Key() string { return joinSegments(p.Payer, p.Plan) }

var (
	wideChargeSuffixes = map[string]bool{
		"negotiated_dollar":     true,
		"negotiated_percentage": true,
		"negotiated_algorithm":  true,
		"methodology":           true,
	}
	widePrefixes = map[string]bool{
		ColEstimatedAmount: true,
		ColPayerNotes:      true,
		ColMedianAmount:    true,
		Col10thPercentile:  true,
		Col90thPercentile:  true,
		ColCount:           true,
	}
)

// CodePairCount returns the largest N for which a "code | N" or
// "code | N | type" column exists, or 0 when there is none.
func CodePairCount(columns []string) int {
	n := 0
	for _, c := range columns {
		segs := splitFolded(c)
		if segs[0] != "code" {
			continue
		}
		if len(segs) != 2 && !(len(segs) == 3 && segs[2] == "type") {
			continue
		}
		i, err := strconv.Atoi(segs[1])
		if err != nil || i < 1 {
			continue
		}
		n = max(n, i)
	}
	return n
}

// PayerPlanGroups returns the distinct payer/plan groups encoded in wide
// layout column labels, in first-seen order. Groups are compared
// case-insensitively and keep their first spelling.
func PayerPlanGroups(columns []string) []PayerPlan {
	var out []PayerPlan
	seen := make(map[string]bool)
	for _, c := range columns {
		raw := splitRaw(c)
		folded := splitFolded(c)
		var g PayerPlan
		switch {
		case len(folded) == 4 && folded[0] == "standard_charge" && wideChargeSuffixes[folded[3]]:
			g = PayerPlan{Payer: raw[1], Plan: raw[2]}
		case len(folded) == 3 && widePrefixes[folded[0]]:
			g = PayerPlan{Payer: raw[1], Plan: raw[2]}
		default:
			continue
		}
		k := foldKey(g.Key())
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, g)
	}
	return out
}

// IsTallLayout reports whether both payer_name and plan_name columns exist.
func IsTallLayout(columns []string) bool {
	var payer, plan bool
	for _, c := range columns {
		switch foldKey(c) {
		case ColPayerName:
			payer = true
		case ColPlanName:
			plan = true
		}
	}
	return payer && plan
}

// DetectLayout decides the layout from the data column labels. Exactly one
// of "tall markers present" and "payer/plan groups discovered" must hold;
// otherwise ok is false and the format is ambiguous.
func DetectLayout(columns []string) (layout Layout, groups []PayerPlan, ok bool) {
	tall := IsTallLayout(columns)
	groups = PayerPlanGroups(columns)
	switch {
	case tall && len(groups) == 0:
		return LayoutTall, nil, true
	case !tall && len(groups) > 0:
		return LayoutWide, groups, true
	default:
		return LayoutUnknown, nil, false
	}
}
