package validator

import (
	"strings"

	"golang.org/x/mod/semver"
)

// catalogVersion is one supported schema version and the JSON Schema
// document that describes its JSON file format.
type catalogVersion struct {
	Version    string
	JSONSchema string
}

// catalog is the closed set of schema versions this validator understands,
// in ascending order.
var catalog = []catalogVersion{
	{Version: "v2.0.0", JSONSchema: "v2.0.0.json"},
	{Version: "v2.1.0", JSONSchema: "v2.0.0.json"},
	{Version: "v2.2.0", JSONSchema: "v2.2.0.json"},
	{Version: "v3.0.0", JSONSchema: "v3.0.0.json"},
}

// SupportedVersions lists the catalog versions in ascending order.
func SupportedVersions() []string {
	out := make([]string, len(catalog))
	for i, c := range catalog {
		out[i] = c.Version
	}
	return out
}

// LookupVersion resolves a user supplied version string ("2.0", "v2.2.0",
// "3.0.1") to its canonical catalog entry. Versions are matched on
// major.minor; the patch component is ignored.
func LookupVersion(s string) (string, bool) {
	c, ok := lookupCatalog(s)
	return c.Version, ok
}

func lookupCatalog(s string) (catalogVersion, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return catalogVersion{}, false
	}
	if !strings.HasPrefix(s, "v") {
		s = "v" + s
	}
	canon := semver.Canonical(s)
	if canon == "" {
		return catalogVersion{}, false
	}
	mm := semver.MajorMinor(canon)
	for _, c := range catalog {
		if semver.MajorMinor(c.Version) == mm {
			return c, true
		}
	}
	return catalogVersion{}, false
}

// VersionRange bounds the catalog versions a column or rule applies to.
// Min is inclusive and Max is exclusive; an empty bound is open.
type VersionRange struct {
	Min string `json:"min,omitempty"`
	Max string `json:"max,omitempty"`
}

// Since returns a range starting at v with no upper bound.
func Since(v string) VersionRange { return VersionRange{Min: v} }

// Between returns the half-open range [min, max).
func Between(min, max string) VersionRange { return VersionRange{Min: min, Max: max} }

// Contains reports whether the canonical version v falls inside r.
func (r VersionRange) Contains(v string) bool {
	if r.Min != "" && semver.Compare(v, r.Min) < 0 {
		return false
	}
	if r.Max != "" && semver.Compare(v, r.Max) >= 0 {
		return false
	}
	return true
}
