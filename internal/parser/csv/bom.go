package csv

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// StripBOM returns a reader that drops a leading UTF-8 byte order mark from
// the first chunk of r. The rest of the stream passes through unchanged.
func StripBOM(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.UTF8BOM.NewDecoder())
}
