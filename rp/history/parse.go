package history

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// ParseLog reads name-only log output: a line of digits is a commit time that
// applies to the path lines after it. Paths git prints C-quoted are unquoted
// before the lookup. For every path in wanted the largest time seen is kept
// in latest.
func ParseLog(out string, wanted map[string]struct{}, latest map[string]int64) error {
	var (
		current int64
		haveTS  bool
	)

	scanner := bufio.NewScanner(strings.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}

		if isDigits(line) {
			ts, err := strconv.ParseInt(line, 10, 64)
			if err != nil {
				haveTS = false
				continue
			}
			current, haveTS = ts, true
			continue
		}

		if !haveTS {
			continue
		}
		line = unquotePath(line)
		if _, ok := wanted[line]; !ok {
			continue
		}
		if prev, seen := latest[line]; !seen || current > prev {
			latest[line] = current
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read history output: %w", err)
	}
	return nil
}

// unquotePath reverses git's C-style quoting of names holding a double
// quote, a backslash or control characters.
func unquotePath(line string) string {
	if len(line) < 2 || line[0] != '"' || line[len(line)-1] != '"' {
		return line
	}
	if unquoted, err := strconv.Unquote(line); err == nil {
		return unquoted
	}
	return line
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
