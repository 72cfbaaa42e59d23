package validator

import (
	"math/rand"
	"reflect"
	"sort"
	"strings"
	"testing"
)

func TestSegmentsEqual(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"standard_charge | gross", "standard_charge|gross", true},
		{"Standard_Charge |  GROSS ", "standard_charge | gross", true},
		{"code | 1", "code | 1 | type", false},
		{"code | 1 | type", "code | 1", false},
		{"payer_name", "plan_name", false},
	}
	for _, tt := range tests {
		if got := segmentsEqual(splitFolded(tt.a), splitFolded(tt.b)); got != tt.want {
			t.Errorf("segmentsEqual(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestReconcileData_Clean(t *testing.T) {
	defs := DataColumns(V220, LayoutTall, 1, nil)
	raw := labels(defs)
	m, errs := ReconcileData(raw, defs)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", messages(errs))
	}
	if !reflect.DeepEqual([]string(m), raw) {
		t.Fatalf("mapping = %v, want %v", m, raw)
	}
}

/*
TestReconcile_OrderIndependent shuffles the raw column list several times
and checks that each raw label always binds the same semantic key and that
the error messages are the same set.
*/
func TestReconcile_OrderIndependent(t *testing.T) {
	defs := DataColumns(V300, LayoutWide, 2, []PayerPlan{{"Aetna", "PPO"}, {"Cigna", "HMO"}})
	raw := labels(defs)
	// Drop two required columns, add a duplicate and an unknown one.
	raw = append(raw[2:], ColGross, "favorite_color")

	baseMap, baseErrs := ReconcileData(raw, defs)
	want := bindings(raw, baseMap)
	wantMsgs := sortedMessages(baseErrs)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		perm := append([]string(nil), raw...)
		rng.Shuffle(len(perm), func(a, b int) { perm[a], perm[b] = perm[b], perm[a] })
		m, errs := ReconcileData(perm, defs)
		if got := boundKeys(m); !reflect.DeepEqual(got, boundKeys(baseMap)) {
			t.Fatalf("perm %d: bound keys differ\n got %v\nwant %v", i, got, boundKeys(baseMap))
		}
		for j, label := range perm {
			if m[j] != "" && want[strings.ToLower(label)] != m[j] {
				t.Fatalf("perm %d: %q bound %q, want %q", i, label, m[j], want[strings.ToLower(label)])
			}
		}
		if got := sortedMessages(errs); !reflect.DeepEqual(got, wantMsgs) {
			t.Fatalf("perm %d: errors differ\n got %v\nwant %v", i, got, wantMsgs)
		}
	}
}

func bindings(raw []string, m Mapping) map[string]string {
	out := map[string]string{}
	for i, label := range raw {
		if m[i] != "" {
			out[strings.ToLower(label)] = m[i]
		}
	}
	return out
}

func boundKeys(m Mapping) []string {
	var out []string
	for _, k := range m {
		if k != "" {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func sortedMessages(vs []Violation) []string {
	out := messages(vs)
	sort.Strings(out)
	return out
}

func TestReconcileData_MissingAndDuplicate(t *testing.T) {
	defs := DataColumns(V200, LayoutTall, 1, nil)
	raw := labels(defs)
	raw = append(raw[1:], "setting")

	m, errs := ReconcileData(raw, defs)
	want := []string{
		msgDuplicateColumn("setting", 2),
		msgColumnMissing(ColDescription),
	}
	if got := messages(errs); !reflect.DeepEqual(got, want) {
		t.Fatalf("errors = %q, want %q", got, want)
	}
	if errs[0].Path != Locate(2, len(raw)-1) {
		t.Fatalf("duplicate path = %q, want %q", errs[0].Path, Locate(2, len(raw)-1))
	}
	if errs[1].Path != "row 3" {
		t.Fatalf("missing path = %q, want %q", errs[1].Path, "row 3")
	}
	if m[len(raw)-1] != "" {
		t.Fatalf("duplicate column should not bind, got %q", m[len(raw)-1])
	}
}

func TestReconcileHeader_License(t *testing.T) {
	tests := []struct {
		name    string
		label   string
		wantErr bool
	}{
		{"valid state", "license_number | MD", false},
		{"lowercase state", "License_Number | md", false},
		{"invalid state", "license_number | ZZ", true},
		{"no state", "license_number", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols, _ := headerFor(V200)
			cols[5] = tt.label
			m, errs := ReconcileHeader(cols, HeaderColumns(V200))
			if m[5] != ColLicense {
				t.Fatalf("license column bound %q, want %q", m[5], ColLicense)
			}
			if got := len(errs) > 0; got != tt.wantErr {
				t.Fatalf("errors = %v, wantErr %v", messages(errs), tt.wantErr)
			}
		})
	}
}

func TestHeaderColumns_ByVersion(t *testing.T) {
	has := func(defs []ColumnDefinition, label string) bool {
		for _, d := range defs {
			if d.Label == label {
				return true
			}
		}
		return false
	}
	if !has(HeaderColumns(V210), ColAffirmation) || has(HeaderColumns(V210), ColAttestation) {
		t.Fatalf("v2.1.0 should expect the affirmation column only")
	}
	v3 := HeaderColumns(V300)
	if has(v3, ColAffirmation) || !has(v3, ColAttestation) || !has(v3, ColType2NPI) {
		t.Fatalf("v3.0.0 header columns wrong: %v", labels(v3))
	}
}

func TestDataColumns_ChargeFieldsByVersion(t *testing.T) {
	tests := []struct {
		version string
		has     []string
		lacks   []string
	}{
		{V200, nil, []string{ColEstimatedAmount, ColCount}},
		{V220, []string{ColEstimatedAmount}, []string{ColMedianAmount, ColCount}},
		{V300, []string{ColMedianAmount, Col10thPercentile, Col90thPercentile, ColCount}, []string{ColEstimatedAmount}},
	}
	for _, tt := range tests {
		got := map[string]bool{}
		for _, l := range labels(DataColumns(tt.version, LayoutTall, 1, nil)) {
			got[l] = true
		}
		for _, l := range tt.has {
			if !got[l] {
				t.Errorf("%s: missing %q", tt.version, l)
			}
		}
		for _, l := range tt.lacks {
			if got[l] {
				t.Errorf("%s: unexpected %q", tt.version, l)
			}
		}
	}
}

func TestHeaderValues(t *testing.T) {
	cols, vals := headerFor(V200)
	m, _ := ReconcileHeader(cols, HeaderColumns(V200))

	vals[1] = "2024-02-31"
	vals[5] = ""
	vals[6] = "yes"
	errs := validateHeaderValues(m, vals, 1)
	want := []string{
		msgInvalidDate(ColLastUpdatedOn, "2024-02-31"),
		msgAllowedValues(ColAffirmation, "yes", booleans),
	}
	if got := messages(errs); !reflect.DeepEqual(got, want) {
		t.Fatalf("errors = %q, want %q", got, want)
	}
	if errs[0].Path != "B2" {
		t.Fatalf("path = %q, want B2", errs[0].Path)
	}
}

func TestIsValidDate(t *testing.T) {
	for s, want := range map[string]bool{
		"2024-07-01": true,
		"7/1/2024":   true,
		"07/01/2024": true,
		"2024-02-29": true,
		"2023-02-29": false,
		"2/31/2024":  false,
		"2024/07/01": false,
		"":           false,
	} {
		if got := IsValidDate(s); got != want {
			t.Errorf("IsValidDate(%q) = %v, want %v", s, got, want)
		}
	}
}
