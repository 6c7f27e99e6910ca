//go:build !windows
// +build !windows

package pty

import (
	"os"
	"os/exec"
	"sync"

	creackpty "github.com/creack/pty"
)

// unixPTY wraps *os.File returned by creack/pty
type unixPTY struct {
	f         *os.File
	cmd       *exec.Cmd
	closeOnce sync.Once
	closeErr  error
}

// Start runs cmd on a new pseudo-terminal sized rows x cols. Zero sizes
// keep the creack/pty default.
func Start(cmd *exec.Cmd, rows, cols int) (PTY, error) {
	var ws *creackpty.Winsize
	if rows > 0 && cols > 0 {
		ws = &creackpty.Winsize{Rows: uint16(rows), Cols: uint16(cols)}
	}
	f, err := creackpty.StartWithSize(cmd, ws)
	if err != nil {
		return nil, err
	}
	return &unixPTY{f: f, cmd: cmd}, nil
}

func (p *unixPTY) Wait() error {
	if p.cmd != nil && p.cmd.Process != nil {
		return p.cmd.Wait()
	}
	return nil
}

func (p *unixPTY) Read(b []byte) (int, error) { return p.f.Read(b) }

// Close closes the master side. The child is not killed; callers own it.
func (p *unixPTY) Close() error {
	p.closeOnce.Do(func() { p.closeErr = p.f.Close() })
	return p.closeErr
}
