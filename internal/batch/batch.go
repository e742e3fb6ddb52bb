// Package batch reads command lists for bulk classification.
package batch

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Line is one command read from a list, with its 1-based line number.
type Line struct {
	Number  int
	Command string
}

// ReadCommands reads r until EOF and returns its non-empty, non-comment
// lines. Lines starting with '#' are comments.
func ReadCommands(r io.Reader) ([]Line, error) {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var out []Line
	n := 0
	for s.Scan() {
		n++
		line := strings.TrimSpace(strings.TrimSuffix(s.Text(), "\r"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, Line{Number: n, Command: line})
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("read commands: %w", err)
	}
	return out, nil
}
