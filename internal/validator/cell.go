package validator

import "strconv"

// Locate converts a zero-based (row, col) pair into a spreadsheet-style cell
// label: Locate(0, 0) = "A1", Locate(0, 26) = "AA1", Locate(3, 2) = "C4".
//
// Columns use bijective base-26 (there is no zero digit), so 25 is "Z" and
// 26 is "AA".
func Locate(row, col int) string {
	return columnLetters(col) + strconv.Itoa(row+1)
}

// RowLocation labels a whole row for violations that are not tied to a
// single column, e.g. a missing column or a row-level rule.
func RowLocation(row int) string {
	return "row " + strconv.Itoa(row+1)
}

func columnLetters(col int) string {
	if col < 0 {
		return ""
	}
	var buf [16]byte
	i := len(buf)
	for n := col + 1; n > 0; n = (n - 1) / 26 {
		i--
		buf[i] = byte('A' + (n-1)%26)
	}
	return string(buf[i:])
}

// location picks a cell label when the column is known and a row label
// otherwise.
func location(row, col int) string {
	if col < 0 {
		return RowLocation(row)
	}
	return Locate(row, col)
}
