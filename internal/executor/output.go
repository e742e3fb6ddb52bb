package executor

import (
	"bytes"
	"fmt"
	"io"
)

// truncatedMarker is appended to a stream whose output exceeded MaxOutput.
const truncatedMarker = "\n... (output truncated)\n"

// limitedBuffer keeps the first limit bytes written to it and silently
// drops the rest so a chatty child never blocks on a full pipe.
type limitedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (l *limitedBuffer) Write(p []byte) (int, error) {
	if l.limit <= 0 {
		return l.buf.Write(p)
	}
	remaining := l.limit - l.buf.Len()
	if remaining <= 0 {
		l.truncated = true
		return len(p), nil
	}
	if len(p) > remaining {
		l.truncated = true
		_, _ = l.buf.Write(p[:remaining])
		return len(p), nil
	}
	return l.buf.Write(p)
}

// result returns the captured bytes, marked when output was dropped.
func (l *limitedBuffer) result() *bytes.Buffer {
	if l.truncated {
		l.buf.WriteString(truncatedMarker)
	}
	return &l.buf
}

var _ io.Writer = (*limitedBuffer)(nil)

// truncateReport shortens s to max characters, noting how many were cut.
func truncateReport(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + fmt.Sprintf("\n... (truncated, %d more chars)", len(r)-max)
}
