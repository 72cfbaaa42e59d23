package validator

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// validateHeaderValues checks the row-1 values of every mapped header column.
func validateHeaderValues(m Mapping, values []string, row int) []Violation {
	var errs []Violation
	for col, label := range m {
		if label == "" {
			continue
		}
		value := ""
		if col < len(values) {
			value = strings.TrimSpace(values[col])
		}
		if v, failed := checkHeaderValue(label, value); failed {
			v.Path = Locate(row, col)
			v.Row = row
			v.Column = col
			errs = append(errs, v)
		}
	}
	return errs
}

func checkHeaderValue(label, value string) (Violation, bool) {
	kind := headerValueKinds[label]
	if kind == headerOptional {
		return Violation{}, false
	}
	if value == "" {
		return Violation{Field: label, Message: msgRequired(label, "")}, true
	}
	switch kind {
	case headerDate:
		if !IsValidDate(value) {
			return Violation{Field: label, Message: msgInvalidDate(label, value)}, true
		}
	case headerBool:
		if !oneOfFold(value, booleans) {
			return Violation{Field: label, Message: msgAllowedValues(label, value, booleans)}, true
		}
	}
	return Violation{}, false
}

var (
	isoDateRe = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	usDateRe  = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
)

// IsValidDate accepts YYYY-MM-DD and M/D/YYYY (or MM/DD/YYYY) when the
// digits name a real calendar date. February 31 is rejected by rebuilding
// the date and comparing its components.
func IsValidDate(s string) bool {
	var y, m, d string
	if g := isoDateRe.FindStringSubmatch(s); g != nil {
		y, m, d = g[1], g[2], g[3]
	} else if g := usDateRe.FindStringSubmatch(s); g != nil {
		m, d, y = g[1], g[2], g[3]
	} else {
		return false
	}
	year, _ := strconv.Atoi(y)
	month, _ := strconv.Atoi(m)
	day, _ := strconv.Atoi(d)
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && int(t.Month()) == month && t.Day() == day
}
