package csv

import (
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/CMSgov/hpt-validator-sub001/internal/config"
)

func readAll(t *testing.T, rr *RowReader) [][]string {
	t.Helper()
	var out [][]string
	for {
		rec, err := rr.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		out = append(out, rec)
	}
}

/*
TestRowReader_PreservesBlankLines verifies that empty physical lines, which
encoding/csv skips, are reported as empty rows at their original index.
*/
func TestRowReader_PreservesBlankLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  [][]string
	}{
		{
			name:  "no blanks",
			input: "a,b\nc,d\n",
			want:  [][]string{{"a", "b"}, {"c", "d"}},
		},
		{
			name:  "leading blank",
			input: "\na,b\n",
			want:  [][]string{{}, {"a", "b"}},
		},
		{
			name:  "two blanks in the middle",
			input: "a\n\n\nb\n",
			want:  [][]string{{"a"}, {}, {}, {"b"}},
		},
		{
			name:  "quoted newline does not count as blank",
			input: "\"x\ny\",z\n\nq\n",
			want:  [][]string{{"x\ny", "z"}, {}, {"q"}},
		},
		{
			name:  "crlf",
			input: "a,b\r\n\r\nc,d\r\n",
			want:  [][]string{{"a", "b"}, {}, {"c", "d"}},
		},
		{
			name:  "whitespace-only row is a record",
			input: "a\n , \nb\n",
			want:  [][]string{{"a"}, {" ", " "}, {"b"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := NewRowReader(strings.NewReader(tt.input), nil)
			got := readAll(t, rr)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("rows = %q, want %q", got, tt.want)
			}
			if rr.Rows() != len(tt.want) {
				t.Fatalf("Rows() = %d, want %d", rr.Rows(), len(tt.want))
			}
		})
	}
}

func TestRowReader_StripsBOM(t *testing.T) {
	rr := NewRowReader(strings.NewReader("\ufeffhospital_name,version\n"), nil)
	got := readAll(t, rr)
	if got[0][0] != "hospital_name" {
		t.Fatalf("first cell = %q, want BOM stripped", got[0][0])
	}

	rr = NewRowReader(strings.NewReader("\ufeffa\n"), config.Options{"strip_bom": false})
	got = readAll(t, rr)
	if got[0][0] != "\ufeffa" {
		t.Fatalf("first cell = %q, want BOM kept", got[0][0])
	}
}

func TestRowReader_Options(t *testing.T) {
	rr := NewRowReader(strings.NewReader("a;b\n"), config.Options{"comma": ";"})
	if got := readAll(t, rr); !reflect.DeepEqual(got, [][]string{{"a", "b"}}) {
		t.Fatalf("rows = %q", got)
	}

	rr = NewRowReader(strings.NewReader("a\"b,c\n"), nil)
	if _, err := rr.Next(); err == nil {
		t.Fatalf("want parse error for bare quote")
	}
	rr = NewRowReader(strings.NewReader("a\"b,c\n"), config.Options{"lazy_quotes": true})
	if got := readAll(t, rr); !reflect.DeepEqual(got, [][]string{{"a\"b", "c"}}) {
		t.Fatalf("rows = %q", got)
	}
}

func TestRowReader_RecordsAreNotReused(t *testing.T) {
	rr := NewRowReader(strings.NewReader("a,b\nc,d\n"), nil)
	first, _ := rr.Next()
	_, _ = rr.Next()
	if !reflect.DeepEqual(first, []string{"a", "b"}) {
		t.Fatalf("first record overwritten: %q", first)
	}
}

func TestIsBlank(t *testing.T) {
	for _, tt := range []struct {
		row  []string
		want bool
	}{
		{nil, true},
		{[]string{}, true},
		{[]string{"", "  ", "\t"}, true},
		{[]string{"", "x"}, false},
	} {
		if got := IsBlank(tt.row); got != tt.want {
			t.Errorf("IsBlank(%q) = %v, want %v", tt.row, got, tt.want)
		}
	}
}
