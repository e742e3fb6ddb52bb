//go:build !(linux || android || darwin || freebsd || netbsd || openbsd || dragonfly)

package executor

import (
	"bytes"
	"errors"
	"io"
	"os/exec"
)

// Without PTY support every reader is treated as non-interactive.
var isTerminal = func(_ uintptr) bool {
	return false
}

var ptyStarter = func(_ *exec.Cmd, _ io.Reader, _, _ io.Writer, _ int) (*bytes.Buffer, *bytes.Buffer, error) {
	return &bytes.Buffer{}, &bytes.Buffer{}, errors.New("PTY not supported on this platform")
}

// killGroupOnCancel keeps the default cancellation, which kills only the
// shell; WaitDelay still bounds the wait for its pipes.
func killGroupOnCancel(_ *exec.Cmd, _ bool) {}
