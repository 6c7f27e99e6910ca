//go:build !windows
// +build !windows

package executor

import (
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// configureProcessGroup makes cancellation signal the whole process group.
// setpgid is skipped for PTY runs, which already get their own session.
func configureProcessGroup(c *exec.Cmd, setpgid bool) {
	if setpgid {
		c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	}
	c.Cancel = func() error {
		if c.Process == nil {
			return nil
		}
		return killProcessGroup(c.Process.Pid)
	}
}

// killProcessGroup sends SIGTERM then SIGKILL to the process group of pid.
func killProcessGroup(pid int) error {
	if pid <= 0 {
		return nil
	}
	_ = unix.Kill(-pid, unix.SIGTERM)
	time.Sleep(250 * time.Millisecond)
	_ = unix.Kill(-pid, unix.SIGKILL)
	return nil
}

// signalExitCode follows the shell convention of 128 + signal number.
func signalExitCode(state *os.ProcessState) int {
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return 1
}
