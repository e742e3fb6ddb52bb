// Package utils provides small interactive helpers for the CLI.
package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Confirm prompts the user with msg on stdout and expects y/n on stdin.
func Confirm(msg string) bool {
	return ConfirmFrom(os.Stdin, os.Stdout, msg)
}

// ConfirmFrom prompts on out and reads the answer from in. Anything other
// than "y" or "yes" (including EOF) is a no.
func ConfirmFrom(in io.Reader, out io.Writer, msg string) bool {
	_, _ = fmt.Fprintf(out, "%s [y/N]: ", msg)
	line, _ := bufio.NewReader(in).ReadString('\n')
	resp := strings.TrimSpace(strings.ToLower(line))
	return resp == "y" || resp == "yes"
}
