//go:build windows
// +build windows

package executor

import (
	"os"
	"os/exec"
)

func configureProcessGroup(c *exec.Cmd, setpgid bool) {}

func signalExitCode(state *os.ProcessState) int { return 1 }
