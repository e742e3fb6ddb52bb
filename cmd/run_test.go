package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/VoxDroid/shguard/internal/executor"
	"github.com/VoxDroid/shguard/internal/security"
)

// fakeRunner implements the executor.Runner interface for tests.
type fakeRunner struct {
	lastCmd string
	lastCwd string
	err     error
}

func (f *fakeRunner) Execute(_ context.Context, command, cwd string, _ io.Reader, stdout io.Writer, _ io.Writer) error {
	f.lastCmd = command
	f.lastCwd = cwd
	if stdout != nil {
		_, _ = fmt.Fprintln(stdout, "cmd output")
	}
	return f.err
}

func setupTempHome(t *testing.T) string {
	t.Helper()
	d := t.TempDir()
	t.Setenv("SHGUARD_HOME", d)
	t.Setenv("SHGUARD_DB", "")
	return d
}

// resetFlags restores every flag to its default so state does not leak
// between Execute calls on the shared rootCmd.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out, errb bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errb)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), errb.String(), err
}

func withFakeRunner(t *testing.T) *fakeRunner {
	t.Helper()
	fake := &fakeRunner{}
	orig := newRunner
	newRunner = func(_ *executor.Executor) executor.Runner { return fake }
	t.Cleanup(func() { newRunner = orig })
	return fake
}

func TestRunAllowedInvokesRunner(t *testing.T) {
	setupTempHome(t)
	fake := withFakeRunner(t)

	out, _, err := execute(t, "", "run", "--no-log", "--", "curl", "-s", "https://wttr.in?format=3")
	if err != nil {
		t.Fatalf("run command failed: %v", err)
	}
	if fake.lastCmd != "curl -s https://wttr.in?format=3" {
		t.Fatalf("expected runner to receive the command, got %q", fake.lastCmd)
	}
	if !strings.Contains(out, "cmd output") {
		t.Fatalf("expected command output in stdout, got: %q", out)
	}
}

func TestRunBlockedNeverInvokesRunner(t *testing.T) {
	setupTempHome(t)
	fake := withFakeRunner(t)

	_, errOut, err := execute(t, "", "run", "rm", "-rf", "/")
	if err == nil {
		t.Fatalf("expected error for blocked command")
	}
	if !strings.Contains(err.Error(), security.BlockedMessage) {
		t.Fatalf("unexpected error message: %v", err)
	}
	if !strings.Contains(errOut, "DENY") {
		t.Fatalf("expected DENY on stderr, got %q", errOut)
	}
	if fake.lastCmd != "" {
		t.Fatalf("runner must not be invoked for a blocked command, got %q", fake.lastCmd)
	}

	out, _, err := execute(t, "", "history", "--blocked")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "rm -rf /") || !strings.Contains(out, "recursive-delete") {
		t.Fatalf("expected blocked run in history, got %q", out)
	}
}

func TestRunSanitizesBeforeChecking(t *testing.T) {
	setupTempHome(t)
	fake := withFakeRunner(t)

	if _, _, err := execute(t, "", "run", "--no-log", "--", "for\u200bmat", "c:"); err == nil {
		t.Fatalf("expected sanitized command to be blocked")
	}
	if fake.lastCmd != "" {
		t.Fatalf("runner must not be invoked, got %q", fake.lastCmd)
	}
}

func TestRunAllowPattern(t *testing.T) {
	setupTempHome(t)
	fake := withFakeRunner(t)

	_, _, err := execute(t, "", "run", "--no-log", "--allow-pattern", `^git\b`, "--", "curl", "https://example.com")
	if err == nil || !strings.Contains(err.Error(), "not in allowlist") {
		t.Fatalf("expected allowlist refusal, got %v", err)
	}
	if fake.lastCmd != "" {
		t.Fatalf("runner must not be invoked, got %q", fake.lastCmd)
	}

	if _, _, err := execute(t, "", "run", "--no-log", "--allow-pattern", `^git\b`, "--", "git", "status"); err != nil {
		t.Fatalf("expected git status to run: %v", err)
	}
	if fake.lastCmd != "git status" {
		t.Fatalf("expected git status, got %q", fake.lastCmd)
	}
}

func TestRunRejectsInvalidAllowPattern(t *testing.T) {
	setupTempHome(t)
	withFakeRunner(t)
	if _, _, err := execute(t, "", "run", "--no-log", "--allow-pattern", "(", "--", "ls"); err == nil {
		t.Fatalf("expected error for invalid allow pattern")
	}
}

func TestRunConfirmBehavior(t *testing.T) {
	setupTempHome(t)
	fake := withFakeRunner(t)

	orig := confirm
	defer func() { confirm = orig }()

	confirm = func(string) bool { return false }
	out, _, err := execute(t, "", "run", "--no-log", "--confirm", "--", "echo", "confirm")
	if err != nil {
		t.Fatalf("run command failed: %v", err)
	}
	if !strings.Contains(out, "aborted") {
		t.Fatalf("expected 'aborted' when user declines, got: %q", out)
	}
	if fake.lastCmd != "" {
		t.Fatalf("expected fake runner not to run when aborted, got lastCmd=%q", fake.lastCmd)
	}

	confirm = func(string) bool { return true }
	if _, _, err := execute(t, "", "run", "--no-log", "--confirm", "--", "echo", "confirm"); err != nil {
		t.Fatalf("run command failed: %v", err)
	}
	if fake.lastCmd != "echo confirm" {
		t.Fatalf("expected fake runner to be invoked with command, got: %q", fake.lastCmd)
	}
}

func TestRunDryRunAndVerbose(t *testing.T) {
	setupTempHome(t)

	out, errOut, err := execute(t, "", "run", "--no-log", "--dry-run", "--verbose", "--", "echo", "dry")
	if err != nil {
		t.Fatalf("run command failed: %v", err)
	}
	if !strings.Contains(out, "dry-run: echo dry") {
		t.Fatalf("expected dry-run message in stdout, got: %q", out)
	}
	if errOut != "" {
		t.Fatalf("expected no stderr for dry-run, got: %q", errOut)
	}
}

func TestRunWiresExecutorFlags(t *testing.T) {
	setupTempHome(t)

	orig := newRunner
	defer func() { newRunner = orig }()
	var captured *executor.Executor
	newRunner = func(e *executor.Executor) executor.Runner {
		captured = e
		return &fakeRunner{}
	}

	_, _, err := execute(t, "", "run", "--no-log", "--timeout", "5s", "--max-output", "128", "--verbose", "--", "echo", "x")
	if err != nil {
		t.Fatalf("run command failed: %v", err)
	}
	if captured == nil {
		t.Fatalf("expected executor to be constructed")
	}
	if captured.Timeout.String() != "5s" || captured.MaxOutput != 128 || !captured.Verbose {
		t.Fatalf("flags not wired: %+v", captured)
	}
	if captured.Policy == nil {
		t.Fatalf("expected the policy to be passed to the executor")
	}
}

func TestRunRecordsExitCode(t *testing.T) {
	setupTempHome(t)
	withFakeRunner(t)

	if _, _, err := execute(t, "", "run", "--", "echo", "logged"); err != nil {
		t.Fatalf("run command failed: %v", err)
	}
	out, _, err := execute(t, "", "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "echo logged") || !strings.Contains(out, "exit=0") {
		t.Fatalf("expected run with exit code in history, got %q", out)
	}
}

func TestRunRecordsFailingExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses POSIX shell syntax")
	}
	setupTempHome(t)

	out, _, err := execute(t, "", "run", "--", "echo hi; exit 1")
	if err == nil || executor.ExitCode(err) != 1 {
		t.Fatalf("expected exit status 1, got %v", err)
	}
	if !strings.Contains(out, "hi") {
		t.Fatalf("expected command output, got %q", out)
	}
	out, _, err = execute(t, "", "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "exit=1") {
		t.Fatalf("expected exit=1 in history, got %q", out)
	}
}
