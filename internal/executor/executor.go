// Package executor runs shell commands after they pass the safety guard.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/VoxDroid/shguard/internal/logging"
	"github.com/VoxDroid/shguard/internal/security"
)

// Checker decides whether a command may run from a working directory.
// *security.Guard and *security.Policy both implement it.
type Checker interface {
	Evaluate(command, cwd string) security.Decision
}

// Executor runs shell commands in an OS-aware way.
type Executor struct {
	DryRun  bool
	Verbose bool
	Shell   string // optional override (e.g., "pwsh")
	// Timeout bounds a single command; zero means no limit beyond ctx.
	Timeout time.Duration
	// MaxOutput caps the bytes captured per stream; zero means unlimited.
	MaxOutput int
	// Policy is consulted before anything is spawned. Nil uses the
	// default guard.
	Policy Checker
	Logger *slog.Logger
}

// waitDelay bounds how long Wait keeps reading a killed command's pipes
// after cancellation.
const waitDelay = 500 * time.Millisecond

// unescapeWriter wraps an io.Writer and normalizes output produced by some
// shells on Windows which can emit backslash-escaped quotes like \"HELLO\".
// It will:
//   - unescape `\"` -> `"`
//   - if the entire line is wrapped in quotes ("..."), strip the outer quotes
//     so `"HELLO"\n` becomes `HELLO\n` for a cleaner UX.
//
// Output carrying ANSI escape sequences is passed through untouched.
type unescapeWriter struct {
	w io.Writer
}

func (u *unescapeWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	s := string(p)
	if !strings.Contains(s, "\x1b[") {
		s = strings.ReplaceAll(s, "\\\"", "\"")
		trimmed := strings.TrimRight(s, "\r\n")
		if len(trimmed) >= 2 && strings.HasPrefix(trimmed, "\"") && strings.HasSuffix(trimmed, "\"") {
			suffix := s[len(trimmed):]
			s = trimmed[1:len(trimmed)-1] + suffix
		}
	}
	if _, err := u.w.Write([]byte(s)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Runner is an interface for executing commands. It allows tests to inject
// fake implementations without running real shell commands.
type Runner interface {
	Execute(ctx context.Context, command string, cwd string, stdin io.Reader, stdout io.Writer, stderr io.Writer) error
}

// New returns a Runner backed by the real Executor implementation.
func New(dry, verbose bool) Runner {
	return &Executor{DryRun: dry, Verbose: verbose}
}

// sanitizeCommand normalizes common unicode characters that often get
// inserted by editors (e.g., smart quotes, NBSP, zero-width spaces) and
// converts them to their ASCII equivalents where sensible.
func sanitizeCommand(s string) string {
	r := strings.NewReplacer(
		"\u2018", "'", // left single quote
		"\u2019", "'", // right single quote
		"\u201C", "\"", // left double quote
		"\u201D", "\"", // right double quote
		"\u00A0", " ", // NO-BREAK SPACE
		"\u200B", "", // zero width space
		"\u200E", "", // left-to-right mark
		"\u200F", "", // right-to-left mark
	)
	return strings.Map(func(r rune) rune {
		if r == 0 {
			return -1
		}
		return r
	}, r.Replace(s))
}

// Execute sanitizes and validates command, asks the policy whether it may
// run, and then executes it with an OS-appropriate shell (`bash -c` on Unix,
// `cmd /C` on Windows). A refused command returns a *security.BlockedError
// and nothing is started. When stdin is a terminal the child gets a PTY so
// interactive prompts work.
func (e *Executor) Execute(ctx context.Context, command string, cwd string, stdin io.Reader, stdout io.Writer, stderr io.Writer) error {
	var err error
	command, err = validateAndSanitize(command)
	if err != nil {
		return err
	}
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	if err := e.Check(command, cwd); err != nil {
		return err
	}

	if handled := e.handleDryRunIfNeeded(command, stdout); handled {
		return nil
	}

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	// On Windows try a specialized handler for `| findstr ...` pipelines
	// to avoid cmd.exe's quoting pitfalls. If it succeeds, we're done.
	if runtime.GOOS == "windows" {
		if tryHandleWindowsFindstr(ctx, command, cwd, stdout, stderr) {
			return nil
		}
	}

	shell, args := shellInvocation(command, e.Shell)
	if err := validateShellAndArgs(shell, args); err != nil {
		return err
	}

	var bout, berr *bytes.Buffer
	if interactive(stdin) {
		cmd := exec.CommandContext(ctx, shell, args...)
		if cwd != "" {
			cmd.Dir = cwd
		}
		// the PTY path starts its own session, which is also the group
		killGroupOnCancel(cmd, false)
		cmd.WaitDelay = waitDelay
		bout, berr, err = ptyStarter(cmd, stdin, stdout, stderr, e.MaxOutput)
	} else {
		bout, berr, err = e.runShellCommand(ctx, shell, args, cwd, stdin)
		writeOutputs(bout, berr, stdout, stderr)
	}

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("command timed out after %s: %w", e.Timeout, ctx.Err())
		}
		return checkExecutionError(err, bout, berr, shell, args)
	}
	return nil
}

// Check evaluates command against the executor's policy and returns a
// *security.BlockedError when it is refused.
func (e *Executor) Check(command, cwd string) error {
	var policy Checker = security.Default()
	if e.Policy != nil {
		policy = e.Policy
	}
	d := policy.Evaluate(command, cwd)
	if d.Allowed {
		e.logger().Debug("command allowed", "command", command)
		return nil
	}
	e.logger().Warn("command blocked", "command", command, "rule", d.Rule, "token", d.Token, "reason", d.Reason)
	return d.Err()
}

func (e *Executor) logger() *slog.Logger {
	if e.Logger == nil {
		return logging.Discard()
	}
	return e.Logger
}

func interactive(stdin io.Reader) bool {
	f, ok := stdin.(interface{ Fd() uintptr })
	return ok && isTerminal(f.Fd())
}

// splitArgs splits a command string into tokens respecting single and double
// quotes. It removes the surrounding quotes from quoted tokens (so
// `/C:\"OS Name\"` becomes `/C:OS Name` as a single token).
func splitArgs(s string) []string {
	if toks, err := shellquote.Split(s); err == nil {
		return toks
	}
	// Fall back to simple whitespace splitting if the splitter fails.
	return strings.Fields(s)
}

// handleWindowsFindstrPipeline detects simple pipelines of the form
// `<left> | findstr <args...>` and executes them without invoking the
// shell, piping stdout from the left command into the findstr process.
// This avoids cmd.exe's tricky quoting behavior for /C:"..." patterns.
func handleWindowsFindstrPipeline(ctx context.Context, command string, cwd string, stdout io.Writer, stderr io.Writer) error {
	leftTokens, findstrExe, findstrArgs, err := parseFindstrPipeline(command)
	if err != nil {
		return err
	}
	return runFindstrPipeline(ctx, leftTokens, findstrExe, findstrArgs, cwd, stdout, stderr)
}

func parseFindstrPipeline(command string) ([]string, string, []string, error) {
	parts := strings.SplitN(command, "|", 2)
	if len(parts) != 2 {
		return nil, "", nil, fmt.Errorf("not a pipeline")
	}
	left := strings.TrimSpace(parts[0])
	right := strings.TrimSpace(parts[1])
	if len(right) < 7 || strings.ToLower(right[:7]) != "findstr" {
		return nil, "", nil, fmt.Errorf("not a findstr pipeline")
	}
	leftTokens := splitArgs(left)
	rightTokens := splitArgs(right)
	if len(leftTokens) == 0 || len(rightTokens) == 0 {
		return nil, "", nil, fmt.Errorf("invalid pipeline tokens")
	}
	findstrArgs := normalizeFindstrArgs(rightTokens[1:])
	return leftTokens, rightTokens[0], findstrArgs, nil
}

func normalizeFindstrArgs(tokens []string) []string {
	var out []string
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		if strings.HasPrefix(strings.ToUpper(t), "/C:") {
			arg := t
			if arg == "/C:" && i+1 < len(tokens) {
				i++
				arg = arg + tokens[i]
			} else if !strings.Contains(arg, " ") && i+1 < len(tokens) && !strings.HasPrefix(strings.ToUpper(tokens[i+1]), "/C:") {
				i++
				arg = arg + " " + tokens[i]
			}
			out = append(out, arg)
			continue
		}
		out = append(out, t)
	}
	return out
}

func runFindstrPipeline(ctx context.Context, leftTokens []string, findstrExe string, findstrArgs []string, cwd string, stdout io.Writer, stderr io.Writer) error {
	leftCmd := exec.CommandContext(ctx, leftTokens[0], leftTokens[1:]...)
	if cwd != "" {
		leftCmd.Dir = cwd
	}
	leftStdout, err := leftCmd.StdoutPipe()
	if err != nil {
		return err
	}
	findCmd := exec.CommandContext(ctx, findstrExe, findstrArgs...)
	if cwd != "" {
		findCmd.Dir = cwd
	}
	findCmd.Stdin = leftStdout
	var bout, berr bytes.Buffer
	findCmd.Stdout = &bout
	findCmd.Stderr = &berr

	if err := leftCmd.Start(); err != nil {
		return err
	}
	if err := findCmd.Start(); err != nil {
		_ = leftCmd.Process.Kill()
		return err
	}

	_ = leftCmd.Wait()
	_ = leftStdout.Close()
	findErr := findCmd.Wait()

	_, _ = stdout.Write(bout.Bytes())
	_, _ = stderr.Write(berr.Bytes())

	return reportPipelineResult(&bout, &berr, findErr, strings.Join(append(leftTokens, findstrExe), " | "))
}

func reportPipelineResult(bout *bytes.Buffer, berr *bytes.Buffer, findErr error, pipelineDesc string) error {
	if findErr == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(findErr, &exitErr) && exitErr.ExitCode() == 1 && bout.Len() > 0 {
		return nil
	}
	outStr := strings.TrimSpace(bout.String())
	errStr := strings.TrimSpace(berr.String())
	if outStr != "" || errStr != "" {
		return fmt.Errorf("command failed: %w (pipeline=%q stdout=%q stderr=%q)", findErr, pipelineDesc, outStr, errStr)
	}
	return fmt.Errorf("command failed: %w (pipeline=%q)", findErr, pipelineDesc)
}

// runShellCommand executes a command by running the given executable and
// arguments, returning captured stdout/stderr buffers along with any error.
// Each buffer keeps at most MaxOutput bytes.
func (e *Executor) runShellCommand(ctx context.Context, shell string, args []string, cwd string, stdin io.Reader) (*bytes.Buffer, *bytes.Buffer, error) {
	cmd := exec.CommandContext(ctx, shell, args...)
	if cwd != "" {
		cmd.Dir = cwd
	}
	killGroupOnCancel(cmd, true)
	cmd.WaitDelay = waitDelay
	if stdin != nil {
		cmd.Stdin = stdin
	}
	bout := &limitedBuffer{limit: e.MaxOutput}
	berr := &limitedBuffer{limit: e.MaxOutput}
	cmd.Stdout = bout
	cmd.Stderr = berr
	err := cmd.Run()
	return bout.result(), berr.result(), err
}

// tryHandleWindowsFindstr inspects the command to see if it looks like a
// `A | findstr ...` pipeline and, if so, tries to handle it. Returns true
// if the pipeline was handled successfully.
func tryHandleWindowsFindstr(ctx context.Context, command string, cwd string, stdout io.Writer, stderr io.Writer) bool {
	if !strings.Contains(command, "|") {
		return false
	}
	rhs := strings.TrimSpace(strings.SplitN(command, "|", 2)[1])
	if !strings.HasPrefix(strings.ToLower(rhs), "findstr") {
		return false
	}
	return handleWindowsFindstrPipeline(ctx, command, cwd, stdout, stderr) == nil
}

func (e *Executor) handleDryRunIfNeeded(command string, stdout io.Writer) bool {
	if e.DryRun {
		if e.Verbose {
			_, _ = fmt.Fprintf(stdout, "dry-run: %s\n", command)
		}
		return true
	}
	return false
}

func writeOutputs(bout, berr *bytes.Buffer, stdout io.Writer, stderr io.Writer) {
	if runtime.GOOS == "windows" {
		_, _ = (&unescapeWriter{w: stdout}).Write(bout.Bytes())
		_, _ = (&unescapeWriter{w: stderr}).Write(berr.Bytes())
	} else {
		_, _ = stdout.Write(bout.Bytes())
		_, _ = stderr.Write(berr.Bytes())
	}
}

func checkExecutionError(err error, bout, berr *bytes.Buffer, shell string, args []string) error {
	outStr := strings.TrimSpace(bout.String())
	errStr := strings.TrimSpace(berr.String())
	if outStr != "" || errStr != "" {
		return fmt.Errorf("command failed: %w (shell=%s args=%q stdout=%q stderr=%q)", err, shell, args, outStr, errStr)
	}
	return fmt.Errorf("command failed: %w (shell=%s args=%q)", err, shell, args)
}

// ExitCode extracts the process exit status from an Execute error: 0 for
// nil, the child's status for a non-zero exit and -1 otherwise (blocked,
// invalid, timed out or not started).
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func shellInvocation(command string, overrideShell string) (string, []string) {
	if overrideShell != "" {
		// Handle PowerShell variants explicitly so users can request the
		// Windows-provided `powershell` (legacy Windows PowerShell) or the
		// cross-platform `pwsh` (PowerShell Core).
		switch overrideShell {
		case "pwsh":
			return "pwsh", []string{"-Command", command}
		case "powershell":
			if runtime.GOOS == "windows" {
				if p, err := exec.LookPath("powershell"); err == nil {
					return p, []string{"-Command", command}
				}
				if p, err := exec.LookPath("pwsh"); err == nil {
					return p, []string{"-Command", command}
				}
				return "powershell", []string{"-Command", command}
			}
			return "pwsh", []string{"-Command", command}
		default:
			return overrideShell, []string{"-c", command}
		}
	}

	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C", command}
	}
	return "bash", []string{"-c", command}
}

func validateShellAndArgs(shell string, args []string) error {
	// Ensure shell is available on PATH; we only need to check that it exists.
	if _, err := exec.LookPath(shell); err != nil {
		return fmt.Errorf("shell not found in PATH: %s", shell)
	}
	for i, a := range args {
		if strings.IndexFunc(a, isControl) != -1 {
			return fmt.Errorf("invalid shell arg[%d]: contains control characters", i)
		}
	}
	return nil
}

func isControl(r rune) bool {
	return r == 0 || (r < 32 && r != '\t') || r == 0x7f
}

// Sanitize normalizes common unicode characters and removes embedded
// null and other invisible runes.
func Sanitize(s string) string {
	return sanitizeCommand(s)
}

func validateAndSanitize(command string) (string, error) {
	command = sanitizeCommand(command)
	if err := ValidateCommand(command); err != nil {
		return "", err
	}
	return command, nil
}

// ValidateCommand checks for remaining problematic characters that will
// cause command execution to fail (e.g., newlines and control characters)
// and returns an error describing the problem if one is found.
func ValidateCommand(s string) error {
	if strings.Contains(s, "\n") {
		return fmt.Errorf("invalid command: contains newline characters; each command must be a single line")
	}
	if strings.IndexFunc(s, isControl) != -1 {
		return fmt.Errorf("invalid command: contains control characters; remove non-printable characters")
	}
	return nil
}
