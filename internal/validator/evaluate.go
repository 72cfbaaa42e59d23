package validator

import (
	"regexp"
	"strconv"
	"strings"
)

// Record maps semantic column keys to a row's raw cell values.
type Record map[string]string

// Value returns the trimmed value of key, or "" when absent.
func (r Record) Value(key string) string { return strings.TrimSpace(r[key]) }

// Present reports whether key holds a non-blank value.
func (r Record) Present(key string) bool { return r.Value(key) != "" }

// Evaluate runs forest against rec and returns the violations in catalog
// declaration order: a node's children run immediately after the node and
// before any later sibling. Violations carry Field, Message and Warning;
// the caller fills in locations.
func Evaluate(rec Record, forest []Node) []Violation {
	var out []Violation
	work := make([]*Node, 0, len(forest))
	for i := range forest {
		work = append(work, &forest[i])
	}
	for len(work) > 0 {
		n := work[0]
		work = work[1:]

		checks, next := n.Then, n.Children
		if n.When != nil && !n.When.holds(rec) {
			checks, next = n.Else, n.ElseChildren
		}
		for i := range checks {
			if v, failed := checks[i].apply(rec); failed {
				out = append(out, v)
			}
		}
		if len(next) > 0 {
			front := make([]*Node, 0, len(next)+len(work))
			for i := range next {
				front = append(front, &next[i])
			}
			work = append(front, work...)
		}
	}
	return out
}

func (p *Predicate) holds(rec Record) bool {
	switch p.Op {
	case WhenPresent:
		return rec.Present(p.Fields[0])
	case WhenAbsent:
		return !rec.Present(p.Fields[0])
	case WhenAnyPresent:
		return anyPresent(rec, p.Fields)
	case WhenNonePresent:
		return !anyPresent(rec, p.Fields)
	case WhenEquals:
		return strings.EqualFold(rec.Value(p.Fields[0]), p.Value)
	case WhenAnyEquals:
		for _, f := range p.Fields {
			if strings.EqualFold(rec.Value(f), p.Value) {
				return true
			}
		}
		return false
	case WhenNonZeroCount:
		v := rec.Value(p.Fields[0])
		return v != "" && !isZeroCount(v)
	case WhenZeroCount:
		return isZeroCount(rec.Value(p.Fields[0]))
	}
	return false
}

func anyPresent(rec Record, fields []string) bool {
	for _, f := range fields {
		if rec.Present(f) {
			return true
		}
	}
	return false
}

// apply runs c against rec. failed is false when the check passes.
func (c *Check) apply(rec Record) (v Violation, failed bool) {
	val := rec.Value(c.Field)
	switch c.Kind {
	case CheckRequired:
		if val != "" {
			return v, false
		}
		v.Message = msgRequired(c.Field, c.Suffix)
	case CheckEnum:
		if val == "" || oneOfFold(val, c.Values) {
			return v, false
		}
		v.Message = msgAllowedValues(c.Field, val, c.Values)
	case CheckPositive:
		if val == "" || isPositiveNumber(val) {
			return v, false
		}
		v.Message = msgPositiveNumber(c.Field, val)
	case CheckCount:
		if val == "" || isValidCount(val) {
			return v, false
		}
		v.Message = msgInvalidCount(c.Field, val)
	case CheckAnyOf:
		if anyPresent(rec, c.Fields) {
			return v, false
		}
		v.Message = msgAnyOf(c.Fields, c.Suffix)
	case CheckSentinel:
		if len(c.Values) == 0 || val != c.Values[0] {
			return v, false
		}
		v.Message = msgSentinel(c.Field, val)
	default:
		return v, false
	}
	v.Field = c.Field
	v.Warning = c.Warning
	v.Column = -1
	return v, true
}

var decimalRe = regexp.MustCompile(`^(?:\d+(?:\.\d*)?|\.\d+)$`)

func isPositiveNumber(s string) bool {
	if !decimalRe.MatchString(s) {
		return false
	}
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && f > 0
}

func isZeroCount(s string) bool {
	if s == "" || strings.Trim(s, "0") != "" {
		return false
	}
	return true
}

func isValidCount(s string) bool {
	if strings.EqualFold(s, countRangeToken) || isZeroCount(s) {
		return true
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	n, err := strconv.Atoi(s)
	return err == nil && n >= 11
}
