// Package csv provides a pull-based CSV row source for the validator.
//
// RowReader hands out one record per Next call and never buffers the whole
// input. Unlike a bare encoding/csv.Reader it preserves blank lines: each
// skipped empty line is reported as an empty record so that row indexes
// keep matching the physical rows of the file.
//
// Options (all optional, via config.Options):
//   - comma (string; first rune used; default ',')
//   - lazy_quotes (bool; default false) → csv.Reader.LazyQuotes
//   - strip_bom (bool; default true) → drop a leading UTF-8 byte order mark
package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/CMSgov/hpt-validator-sub001/internal/config"
)

// RowReader pulls CSV records one at a time.
type RowReader struct {
	cr *csv.Reader

	// lastEnd is the 1-based line on which the previous record ended.
	lastEnd int
	// blanks counts empty lines still owed before held is returned.
	blanks int
	held   []string
	rows   int
}

// NewRowReader wraps r. The reader is not safe for concurrent use.
func NewRowReader(r io.Reader, opt config.Options) *RowReader {
	if opt.Bool("strip_bom", true) {
		r = StripBOM(r)
	}
	cr := csv.NewReader(r)
	cr.Comma = opt.Rune("comma", ',')
	cr.LazyQuotes = opt.Bool("lazy_quotes", false)
	cr.FieldsPerRecord = -1 // rows may be ragged; the validator decides
	cr.ReuseRecord = true
	return &RowReader{cr: cr}
}

// Next returns the next row. A blank line yields an empty, non-nil slice.
// At the end of input it returns io.EOF. A tokenization failure is
// returned as an error wrapping *csv.ParseError.
func (rr *RowReader) Next() ([]string, error) {
	if rr.blanks > 0 {
		rr.blanks--
		rr.rows++
		return []string{}, nil
	}
	if rr.held != nil {
		rec := rr.held
		rr.held = nil
		rr.rows++
		return rec, nil
	}

	rec, err := rr.cr.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("csv: row %d: %w", rr.rows, err)
	}

	start, _ := rr.cr.FieldPos(0)
	skipped := start - rr.lastEnd - 1
	last := len(rec) - 1
	endLine, _ := rr.cr.FieldPos(last)
	rr.lastEnd = endLine + strings.Count(rec[last], "\n")

	// ReuseRecord: the backing array is overwritten by the next Read.
	out := make([]string, len(rec))
	copy(out, rec)

	if skipped > 0 {
		rr.blanks = skipped - 1
		rr.held = out
		rr.rows++
		return []string{}, nil
	}
	rr.rows++
	return out, nil
}

// Rows returns the number of rows handed out so far, blank rows included.
func (rr *RowReader) Rows() int { return rr.rows }

// IsBlank reports whether every cell of row is empty after trimming.
func IsBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
