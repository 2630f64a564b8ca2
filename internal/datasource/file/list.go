package file

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadList reads a list file of source paths or URLs, one per line.
func ReadList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("file: list: %w", err)
	}
	defer f.Close()
	return ParseList(f)
}

// ParseList returns the entries of r in order. A leading BOM, blank lines
// and '#' comments, whole-line or after whitespace, are dropped.
func ParseList(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for n := 0; sc.Scan(); n++ {
		line := sc.Text()
		if n == 0 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		line = stripComment(line)
		line = strings.TrimSpace(line)
		if line == "" || line[0] == '#' {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("file: list: %w", err)
	}
	return out, nil
}

// stripComment cuts a '#' that follows a space or tab. URL fragments such
// as "a.csv#sheet" survive.
func stripComment(line string) string {
	for i := 1; i < len(line); i++ {
		if line[i] == '#' && (line[i-1] == ' ' || line[i-1] == '\t') {
			return line[:i]
		}
	}
	return line
}
