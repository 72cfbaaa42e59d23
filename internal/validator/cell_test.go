package validator

import "testing"

func TestLocate(t *testing.T) {
	tests := []struct {
		row, col int
		want     string
	}{
		{0, 0, "A1"},
		{0, 25, "Z1"},
		{0, 26, "AA1"},
		{3, 2, "C4"},
		{9, 51, "AZ10"},
		{0, 52, "BA1"},
		{1, 701, "ZZ2"},
		{1, 702, "AAA2"},
	}
	for _, tt := range tests {
		if got := Locate(tt.row, tt.col); got != tt.want {
			t.Errorf("Locate(%d, %d) = %q, want %q", tt.row, tt.col, got, tt.want)
		}
	}
}

func TestLocation_NoColumnFallsBackToRow(t *testing.T) {
	if got := location(4, -1); got != "row 5" {
		t.Fatalf("location(4, -1) = %q, want %q", got, "row 5")
	}
	if got := location(4, 1); got != "B5" {
		t.Fatalf("location(4, 1) = %q, want %q", got, "B5")
	}
}
