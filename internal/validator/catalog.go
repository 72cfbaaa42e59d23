package validator

import (
	"fmt"
	"time"
)

// EnforcementDate is when time-gated requirements became hard errors.
// Before it their failures are reported as warnings.
var EnforcementDate = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

// BuildRules assembles the rule catalog for a session: it instantiates the
// payer-specific templates once per charge group, filters the forest to the
// session version and resolves time-gated severities against the
// reference date.
func BuildRules(p SessionParams) RuleSet {
	groups := chargeGroups(p.Layout, p.Groups)
	errs := errorCatalog(max(p.CodeCount, 1), groups)
	alerts := alertCatalog(groups)
	return RuleSet{
		Errors: resolveSeverity(FilterVersion(errs, p.Version), p.ReferenceDate),
		Alerts: resolveSeverity(FilterVersion(alerts, p.Version), p.ReferenceDate),
	}
}

type chargeGroup struct {
	name string
	keys chargeKeys
	tall bool
}

func chargeGroups(layout Layout, groups []PayerPlan) []chargeGroup {
	if layout == LayoutTall {
		return []chargeGroup{{name: "tall", keys: tallKeys(), tall: true}}
	}
	out := make([]chargeGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, chargeGroup{name: g.Key(), keys: wideKeys(g)})
	}
	return out
}

func errorCatalog(codeCount int, groups []chargeGroup) []Node {
	codes := make([]string, codeCount)
	types := make([]string, codeCount)
	for i := range codeCount {
		codes[i] = CodeColumn(i + 1)
		types[i] = CodeTypeColumn(i + 1)
	}

	chargeFields := []string{ColGross, ColDiscountedCash}
	modifierFields := []string{ColGenericNotes}
	for _, g := range groups {
		if !g.tall {
			modifierFields = append(modifierFields, g.keys.Notes)
		}
	}
	for _, g := range groups {
		negotiated := []string{g.keys.Dollar, g.keys.Percentage, g.keys.Algorithm}
		chargeFields = append(chargeFields, negotiated...)
		modifierFields = append(modifierFields, negotiated...)
	}

	forest := []Node{
		{Name: "description", Then: []Check{required(ColDescription, "")}},
		{Name: "setting", Then: []Check{required(ColSetting, ""), enum(ColSetting, settings)}},
		{Name: "drug unit of measurement", Then: []Check{positive(ColDrugUnit)}},
		{Name: "drug type of measurement", Then: []Check{enum(ColDrugType, drugTypes)}},
		{
			Name: "drug unit requires drug type",
			When: present(ColDrugUnit),
			Then: []Check{required(ColDrugType, fmt.Sprintf(" when %q is present", ColDrugUnit))},
		},
		{
			Name: "drug type requires drug unit",
			When: present(ColDrugType),
			Then: []Check{required(ColDrugUnit, fmt.Sprintf(" when %q is present", ColDrugType))},
		},
		{Name: "gross charge", Then: []Check{positive(ColGross)}},
		{Name: "discounted cash", Then: []Check{positive(ColDiscountedCash)}},
		{Name: "minimum", Then: []Check{positive(ColMin)}},
		{Name: "maximum", Then: []Check{positive(ColMax)}},
	}

	for i := range codeCount {
		code, typ := codes[i], types[i]
		forest = append(forest, Node{
			Name: "code pair " + code,
			Then: []Check{enum(typ, codeTypes)},
			Children: []Node{
				{
					Name: code + " requires type",
					When: present(code),
					Then: []Check{required(typ, fmt.Sprintf(" when %q is present", code))},
				},
				{
					Name: typ + " requires code",
					When: present(typ),
					Then: []Check{required(code, fmt.Sprintf(" when %q is present", typ))},
				},
			},
		})
	}

	forest = append(forest,
		Node{
			Name: "NDC requires drug information",
			When: &Predicate{Op: WhenAnyEquals, Fields: types, Value: "NDC"},
			Then: []Check{
				required(ColDrugUnit, " when an NDC code is present"),
				required(ColDrugType, " when an NDC code is present"),
			},
		},
		Node{
			Name: "item or service",
			When: anyOfPresent(codes...),
			Then: []Check{anyOf(chargeFields, " when an item or service is encoded")},
			ElseChildren: []Node{{
				Name: "modifier without item or service",
				When: present(ColModifiers),
				Then: []Check{anyOf(modifierFields, " when a modifier is encoded without an item or service")},
				Else: []Check{anyOf(codes, " when no modifier is encoded")},
			}},
		},
	)

	for _, g := range groups {
		forest = append(forest, chargeGroupRules(g)...)
	}
	return forest
}

// chargeGroupRules is the payer-specific template, instantiated once per
// charge group.
func chargeGroupRules(g chargeGroup) []Node {
	k := g.keys
	negotiated := []string{k.Dollar, k.Percentage, k.Algorithm}

	var needs []Check
	if g.tall {
		needs = append(needs,
			required(k.PayerName, " when a payer-specific negotiated charge is encoded"),
			required(k.PlanName, " when a payer-specific negotiated charge is encoded"),
		)
	}
	needs = append(needs, required(k.Methodology, " when a payer-specific negotiated charge is encoded"))

	const onlyPercentOrAlgorithm = " when a negotiated charge is only expressed as a percentage or algorithm"
	estimated := required(k.Estimated, onlyPercentOrAlgorithm)
	estimated.Enforced = EnforcementDate
	count := required(k.Count, onlyPercentOrAlgorithm)
	count.Enforced = EnforcementDate

	return []Node{{
		Name: "payer-specific charges " + g.name,
		Then: []Check{
			positive(k.Dollar),
			positive(k.Percentage),
			enum(k.Methodology, methodologies),
		},
		Children: []Node{
			{
				Name: "negotiated charge context " + g.name,
				When: anyOfPresent(negotiated...),
				Then: needs,
			},
			{
				Name: "negotiated dollar requires min and max " + g.name,
				When: present(k.Dollar),
				Then: []Check{
					required(ColMin, fmt.Sprintf(" when %q is present", k.Dollar)),
					required(ColMax, fmt.Sprintf(" when %q is present", k.Dollar)),
				},
			},
			{
				Name: "other methodology requires notes " + g.name,
				When: &Predicate{Op: WhenEquals, Fields: []string{k.Methodology}, Value: methodologyOther},
				Then: []Check{required(k.Notes, fmt.Sprintf(" when %q is %q", k.Methodology, methodologyOther))},
			},
			{
				Name:     "estimated amount value " + g.name,
				Versions: Between(V220, V300),
				Then:     []Check{positive(k.Estimated)},
			},
			{
				Name:     "estimated amount " + g.name,
				Versions: Between(V220, V300),
				When:     anyOfPresent(k.Percentage, k.Algorithm),
				Children: []Node{{
					Name: "estimated amount without dollar " + g.name,
					When: absent(k.Dollar),
					Then: []Check{estimated},
				}},
			},
			{
				Name:     "allowed amount values " + g.name,
				Versions: Since(V300),
				Then: []Check{
					countCheck(k.Count),
					positive(k.Median),
					positive(k.P10),
					positive(k.P90),
				},
			},
			{
				Name:     "allowed amount count " + g.name,
				Versions: Since(V300),
				When:     anyOfPresent(k.Percentage, k.Algorithm),
				Children: []Node{{
					Name: "allowed amount count without dollar " + g.name,
					When: absent(k.Dollar),
					Then: []Check{count},
				}},
			},
			{
				Name:     "allowed amount percentiles " + g.name,
				Versions: Since(V300),
				When:     &Predicate{Op: WhenNonZeroCount, Fields: []string{k.Count}},
				Then: []Check{
					required(k.Median, fmt.Sprintf(" when %q is greater than 0", k.Count)),
					required(k.P10, fmt.Sprintf(" when %q is greater than 0", k.Count)),
					required(k.P90, fmt.Sprintf(" when %q is greater than 0", k.Count)),
				},
			},
			{
				Name:     "zero allowed amounts " + g.name,
				Versions: Since(V300),
				When:     &Predicate{Op: WhenZeroCount, Fields: []string{k.Count}},
				Then:     []Check{required(k.Notes, fmt.Sprintf(" when %q is 0", k.Count))},
			},
		},
	}}
}

func alertCatalog(groups []chargeGroup) []Node {
	var forest []Node
	for _, g := range groups {
		forest = append(forest,
			Node{
				Name:     "estimated amount placeholder " + g.name,
				Versions: Between(V220, V300),
				Then:     []Check{sentinel(g.keys.Estimated)},
			},
			Node{
				Name:     "median amount placeholder " + g.name,
				Versions: Since(V300),
				Then:     []Check{sentinel(g.keys.Median)},
			},
		)
	}
	return forest
}

func required(field, suffix string) Check {
	return Check{Kind: CheckRequired, Field: field, Suffix: suffix}
}

func enum(field string, values []string) Check {
	return Check{Kind: CheckEnum, Field: field, Values: values}
}

func positive(field string) Check { return Check{Kind: CheckPositive, Field: field} }

func countCheck(field string) Check { return Check{Kind: CheckCount, Field: field} }

func anyOf(fields []string, suffix string) Check {
	return Check{Kind: CheckAnyOf, Fields: append([]string(nil), fields...), Suffix: suffix}
}

func sentinel(field string) Check {
	return Check{Kind: CheckSentinel, Field: field, Values: []string{sentinelAmount}}
}

func present(field string) *Predicate {
	return &Predicate{Op: WhenPresent, Fields: []string{field}}
}

func absent(field string) *Predicate {
	return &Predicate{Op: WhenAbsent, Fields: []string{field}}
}

func anyOfPresent(fields ...string) *Predicate {
	return &Predicate{Op: WhenAnyPresent, Fields: fields}
}
