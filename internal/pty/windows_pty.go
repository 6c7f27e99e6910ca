//go:build windows
// +build windows

package pty

import (
	"errors"
	"fmt"
	"os/exec"
	"sync"

	widepty "github.com/aymanbagabas/go-pty"
)

// conPTY runs the child on a Windows pseudo console. The *exec.Cmd passed
// to Start only describes the command; go-pty starts its own process.
type conPTY struct {
	c         widepty.Pty
	child     *widepty.Cmd
	closeOnce sync.Once
	closeErr  error
}

func Start(cmd *exec.Cmd, rows, cols int) (PTY, error) {
	p, err := widepty.New()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	if rows > 0 && cols > 0 {
		_ = p.Resize(cols, rows)
	}

	name := cmd.Path
	var args []string
	if len(cmd.Args) > 1 {
		args = cmd.Args[1:]
	}
	c := p.Command(name, args...)
	c.Env = cmd.Env
	c.Dir = cmd.Dir
	if err := c.Start(); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("pty: failed to start command: %w", err)
	}
	return &conPTY{c: p, child: c}, nil
}

// Wait reports a non-zero exit as *exec.ExitError so callers read exit codes
// the same way on every platform.
func (w *conPTY) Wait() error {
	err := w.child.Wait()
	if ps := w.child.ProcessState; ps != nil && !ps.Success() {
		return &exec.ExitError{ProcessState: ps}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	return err
}

func (w *conPTY) Read(b []byte) (int, error) { return w.c.Read(b) }

func (w *conPTY) Close() error {
	w.closeOnce.Do(func() { w.closeErr = w.c.Close() })
	return w.closeErr
}
