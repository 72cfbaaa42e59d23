package file

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ReadList reads a batch manifest with one file path or URL per line, in
// order. Blank lines and '#' comments are skipped. A comment may also follow
// an entry after whitespace ("mrf.csv  # main campus"); '#' inside a URL
// fragment is kept. Repeated entries are listed once.
func ReadList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("file: read list: %w", err)
	}
	defer f.Close()

	var out []string
	seen := map[string]bool{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		entry := manifestEntry(sc.Text())
		if entry == "" || seen[entry] {
			continue
		}
		seen[entry] = true
		out = append(out, entry)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("file: read list %s: %w", path, err)
	}
	return out, nil
}

func manifestEntry(line string) string {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "#") {
		return ""
	}
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		if rest := strings.TrimSpace(line[i:]); strings.HasPrefix(rest, "#") {
			line = strings.TrimSpace(line[:i])
		}
	}
	return line
}
