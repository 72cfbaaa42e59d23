package httpds

import (
	"net/url"
	"path"
	"regexp"

	"github.com/zeebo/xxh3"
)

// nameCleaner replaces runs of characters that are unsafe in file names.
var nameCleaner = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// NameFromURL derives a display and format-detection name from a URL: the
// last path segment when there is one ("mrf.csv"), otherwise a stable hash
// of the whole URL.
func NameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err == nil {
		base := path.Base(u.Path)
		if base != "." && base != "/" && base != "" {
			if clean := nameCleaner.ReplaceAllString(base, "_"); clean != "" && clean != "_" {
				return clean
			}
		}
	}
	return HashString(rawURL)
}

// HashString returns a stable hex digest of s.
func HashString(s string) string {
	h := xxh3.HashString128(s).Bytes()
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 0, len(h)*2)
	for _, b := range h {
		out = append(out, hexdigits[b>>4], hexdigits[b&0x0f])
	}
	return string(out)
}
