package validator

import (
	"time"
)

// CheckKind tags the variant of a Check.
type CheckKind int

const (
	// CheckRequired fails when Field is empty.
	CheckRequired CheckKind = iota + 1
	// CheckEnum fails when Field is non-empty and not one of Values
	// (case-insensitive).
	CheckEnum
	// CheckPositive fails when Field is non-empty and not a decimal > 0.
	CheckPositive
	// CheckCount fails when Field is non-empty and not 0, a whole number of
	// 11 or more, or the "1 through 10" range token.
	CheckCount
	// CheckAnyOf fails when every one of Fields is empty.
	CheckAnyOf
	// CheckSentinel fails when Field equals Values[0]. Used for alerts.
	CheckSentinel
)

var checkKindNames = map[CheckKind]string{
	CheckRequired: "required",
	CheckEnum:     "enum",
	CheckPositive: "positive",
	CheckCount:    "count",
	CheckAnyOf:    "any_of",
	CheckSentinel: "sentinel",
}

func (k CheckKind) String() string {
	if s, ok := checkKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// MarshalText renders the kind by name so rule trees serialize readably.
func (k CheckKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Check is a single field-level assertion.
type Check struct {
	Kind   CheckKind `json:"kind"`
	Field  string    `json:"field,omitempty"`
	Fields []string  `json:"fields,omitempty"`
	Values []string  `json:"values,omitempty"`
	// Suffix is appended to the generated message to explain a conditional
	// requirement.
	Suffix string `json:"suffix,omitempty"`
	// Enforced is the date from which a failure is an error. Before it the
	// failure is reported as a warning. Zero means always enforced.
	Enforced time.Time `json:"enforced,omitempty"`
	// Warning is resolved from Enforced when the rule set is built.
	Warning bool `json:"warning,omitempty"`
}

// PredicateOp tags the variant of a Predicate.
type PredicateOp int

const (
	// WhenPresent holds when Fields[0] is non-empty.
	WhenPresent PredicateOp = iota + 1
	// WhenAbsent holds when Fields[0] is empty.
	WhenAbsent
	// WhenAnyPresent holds when at least one of Fields is non-empty.
	WhenAnyPresent
	// WhenNonePresent holds when every one of Fields is empty.
	WhenNonePresent
	// WhenEquals holds when Fields[0] equals Value (case-insensitive).
	WhenEquals
	// WhenAnyEquals holds when any of Fields equals Value (case-insensitive).
	WhenAnyEquals
	// WhenNonZeroCount holds when Fields[0] is a count other than zero.
	WhenNonZeroCount
	// WhenZeroCount holds when Fields[0] is the count zero.
	WhenZeroCount
)

var predicateOpNames = map[PredicateOp]string{
	WhenPresent:      "present",
	WhenAbsent:       "absent",
	WhenAnyPresent:   "any_present",
	WhenNonePresent:  "none_present",
	WhenEquals:       "equals",
	WhenAnyEquals:    "any_equals",
	WhenNonZeroCount: "non_zero_count",
	WhenZeroCount:    "zero_count",
}

func (op PredicateOp) String() string {
	if s, ok := predicateOpNames[op]; ok {
		return s
	}
	return "unknown"
}

// MarshalText renders the operator by name.
func (op PredicateOp) MarshalText() ([]byte, error) { return []byte(op.String()), nil }

// Predicate inspects sibling fields of a row.
type Predicate struct {
	Op     PredicateOp `json:"op"`
	Fields []string    `json:"fields"`
	Value  string      `json:"value,omitempty"`
}

// Node is one conditional rule. A node without When always takes the Then
// branch. Taking a branch runs its checks and then its child nodes.
type Node struct {
	Name         string       `json:"name"`
	Versions     VersionRange `json:"versions,omitempty"`
	When         *Predicate   `json:"when,omitempty"`
	Then         []Check      `json:"then,omitempty"`
	Else         []Check      `json:"else,omitempty"`
	Children     []Node       `json:"children,omitempty"`
	ElseChildren []Node       `json:"else_children,omitempty"`
}

// RuleSet is the frozen output of the builder: blocking rules and advisory
// alert rules.
type RuleSet struct {
	Errors []Node `json:"errors"`
	Alerts []Node `json:"alerts"`
}

// FilterVersion returns a copy of forest keeping only nodes whose range
// contains version. Children of kept nodes are filtered the same way, so
// the tree shape is preserved; filtering twice equals filtering once.
func FilterVersion(forest []Node, version string) []Node {
	if len(forest) == 0 {
		return nil
	}
	out := make([]Node, 0, len(forest))
	for _, n := range forest {
		if !n.Versions.Contains(version) {
			continue
		}
		n.Children = FilterVersion(n.Children, version)
		n.ElseChildren = FilterVersion(n.ElseChildren, version)
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// resolveSeverity returns a copy of forest with every time-gated check
// demoted to a warning when ref is before its enforcement date.
func resolveSeverity(forest []Node, ref time.Time) []Node {
	if len(forest) == 0 {
		return nil
	}
	out := make([]Node, len(forest))
	for i, n := range forest {
		n.Then = resolveChecks(n.Then, ref)
		n.Else = resolveChecks(n.Else, ref)
		n.Children = resolveSeverity(n.Children, ref)
		n.ElseChildren = resolveSeverity(n.ElseChildren, ref)
		out[i] = n
	}
	return out
}

func resolveChecks(cs []Check, ref time.Time) []Check {
	if len(cs) == 0 {
		return nil
	}
	out := make([]Check, len(cs))
	for i, c := range cs {
		c.Warning = !c.Enforced.IsZero() && ref.Before(c.Enforced)
		if len(c.Fields) > 0 {
			c.Fields = append([]string(nil), c.Fields...)
		}
		if len(c.Values) > 0 {
			c.Values = append([]string(nil), c.Values...)
		}
		out[i] = c
	}
	return out
}
