package validator

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownVersion is returned when a version is outside the catalog.
var ErrUnknownVersion = errors.New("unknown schema version")

// SessionParams fixes everything the expected columns and rules depend on.
type SessionParams struct {
	Version   string
	Layout    Layout
	CodeCount int
	Groups    []PayerPlan
	// ReferenceDate decides time-gated severities. Callers at the outer
	// boundary default it to the current date.
	ReferenceDate time.Time
}

// Session is the frozen schema for one input stream: expected data
// columns, the rule set and the finite key set rows are looked up with.
// A Session is never mutated; build a new one for different parameters.
type Session struct {
	params  SessionParams
	columns []ColumnDefinition
	rules   RuleSet
	keys    map[string]struct{}
}

// NewSession builds the columns and rules for p.
func NewSession(p SessionParams) (*Session, error) {
	v, ok := LookupVersion(p.Version)
	if !ok {
		return nil, fmt.Errorf("validator: %w: %q", ErrUnknownVersion, p.Version)
	}
	p.Version = v
	p.Groups = append([]PayerPlan(nil), p.Groups...)

	cols := DataColumns(p.Version, p.Layout, p.CodeCount, p.Groups)
	keys := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		keys[c.Label] = struct{}{}
	}
	return &Session{
		params:  p,
		columns: cols,
		rules:   BuildRules(p),
		keys:    keys,
	}, nil
}

// Params returns a copy of the parameters the session was built from.
func (s *Session) Params() SessionParams {
	p := s.params
	p.Groups = append([]PayerPlan(nil), p.Groups...)
	return p
}

// Columns returns a copy of the expected data columns.
func (s *Session) Columns() []ColumnDefinition {
	return append([]ColumnDefinition(nil), s.columns...)
}

// Rules returns the session rule set. Callers must treat it as read-only.
func (s *Session) Rules() RuleSet { return s.rules }

// HasKey reports whether key is one of the session's expected column keys.
func (s *Session) HasKey(key string) bool {
	_, ok := s.keys[key]
	return ok
}

// Record builds a row record from cells using the frozen column mapping.
// Only keys from the session's expected key set are populated.
func (s *Session) Record(m Mapping, cells []string) Record {
	rec := make(Record, len(s.keys))
	for i, key := range m {
		if key == "" || i >= len(cells) || !s.HasKey(key) {
			continue
		}
		rec[key] = cells[i]
	}
	return rec
}
