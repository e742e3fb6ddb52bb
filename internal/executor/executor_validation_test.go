package executor

import (
	"context"
	"io"
	"testing"
)

func TestExecuteRemovesNullByte(t *testing.T) {
	e := &Executor{DryRun: true}
	err := e.Execute(context.Background(), "echo hi\x00bad", "", nil, io.Discard, io.Discard)
	if err != nil {
		t.Fatalf("expected NUL to be removed and command to run in dry-run, got: %v", err)
	}
}

func TestExecuteRejectsNewline(t *testing.T) {
	e := &Executor{}
	err := e.Execute(context.Background(), "echo hi\nnext", "", nil, io.Discard, io.Discard)
	if err == nil || err.Error() == "" {
		t.Fatalf("expected error for newline, got nil")
	}
}

func TestExecuteSanitizesSmartQuotes(t *testing.T) {
	if got := Sanitize("echo “Hello” ‘x’"); got != "echo \"Hello\" 'x'" {
		t.Fatalf("unexpected sanitized command %q", got)
	}
	e := &Executor{DryRun: true}
	if err := e.Execute(context.Background(), "echo “Hello”", "", nil, io.Discard, io.Discard); err != nil {
		t.Fatalf("expected sanitized command to run in dry-run, got error: %v", err)
	}
}

func TestValidateCommandRejectsControlCharacters(t *testing.T) {
	if err := ValidateCommand("echo \x07bell"); err == nil {
		t.Fatalf("expected control character to be rejected")
	}
	if err := ValidateCommand("echo\tok"); err != nil {
		t.Fatalf("tab should be accepted: %v", err)
	}
}
