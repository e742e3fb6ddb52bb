//go:build linux || android || darwin || freebsd || netbsd || openbsd || dragonfly

package executor

import (
	"bytes"
	"errors"
	"io"
	"os"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// isTerminal is a variable so tests can pretend a reader is a TTY.
var isTerminal = func(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

// hideInput turns off local echo on the caller's terminal while a child
// owns the PTY, so typed passwords are not shown twice. Output processing
// flags are left alone.
var hideInput = func(fd int) (*term.State, error) {
	saved, err := term.GetState(fd)
	if err != nil {
		return nil, err
	}
	if err := setEcho(fd, false); err != nil {
		return nil, err
	}
	return saved, nil
}

var restoreTerminal = func(fd int, state *term.State) error { return term.Restore(fd, state) }

func setEcho(fd int, enabled bool) error {
	t, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		return err
	}
	if enabled {
		t.Lflag |= unix.ECHO
	} else {
		t.Lflag &^= unix.ECHO
	}
	return unix.IoctlSetTermios(fd, ioctlSetTermios, t)
}

// ptyStarter runs cmd with a PTY as its stdin and controlling terminal, so
// tools that open /dev/tty (sudo prompts, read -s) keep working. Stdout and
// stderr stay pipes, teed into the caller's writers and the returned
// buffers, which keep at most limit bytes each.
var ptyStarter = func(cmd *exec.Cmd, stdin io.Reader, stdout, stderr io.Writer, limit int) (*bytes.Buffer, *bytes.Buffer, error) {
	ptmx, pts, err := pty.Open()
	if err != nil {
		return &bytes.Buffer{}, &bytes.Buffer{}, err
	}
	defer func() { _ = ptmx.Close() }()

	bout := &limitedBuffer{limit: limit}
	berr := &limitedBuffer{limit: limit}
	cmd.Stdin = pts
	cmd.Stdout = io.MultiWriter(bout, stdout)
	if stderr == stdout {
		cmd.Stderr = cmd.Stdout
	} else {
		cmd.Stderr = io.MultiWriter(berr, stderr)
	}
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setsid = true
	cmd.SysProcAttr.Setctty = true

	if err := cmd.Start(); err != nil {
		_ = pts.Close()
		return &bytes.Buffer{}, &bytes.Buffer{}, err
	}
	_ = pts.Close()

	if f, ok := stdin.(interface{ Fd() uintptr }); ok && isTerminal(f.Fd()) {
		if saved, err := hideInput(int(f.Fd())); err == nil {
			defer func() { _ = restoreTerminal(int(f.Fd()), saved) }()
		}
	}

	// keystrokes go to the child; whatever it writes to /dev/tty comes back
	go func() { _, _ = io.Copy(ptmx, stdin) }()
	go func() { _, _ = io.Copy(stdout, ptmx) }()

	err = cmd.Wait()
	return bout.result(), berr.result(), err
}

// killGroupOnCancel makes context cancellation kill the command's whole
// process group, so children of the shell that hold its pipes die too.
// With newGroup the command is started as the leader of a new group.
func killGroupOnCancel(cmd *exec.Cmd, newGroup bool) {
	if newGroup {
		if cmd.SysProcAttr == nil {
			cmd.SysProcAttr = &syscall.SysProcAttr{}
		}
		cmd.SysProcAttr.Setpgid = true
	}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err == nil {
			return nil
		}
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return err
		}
		return nil
	}
}
