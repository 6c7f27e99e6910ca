package executor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"sync"
	"time"

	"eeapi/internal/logging"
	"eeapi/internal/pty"
	"eeapi/internal/types"
)

const (
	localShell = "/bin/sh"
	ptyRows    = 40
	ptyCols    = 80

	// drainDelay bounds output collection after the shell has exited.
	drainDelay = time.Second
)

// LocalExecutor runs commands through /bin/sh on this host.
type LocalExecutor struct {
	target types.ExecutionTarget
}

// combinedBuffer collects stdout and stderr written from two goroutines.
type combinedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *combinedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *combinedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte{}, b.buf.Bytes()...)
}

func (e *LocalExecutor) Execute(ctx context.Context, command string, useJSON bool) (types.CommandResult, error) {
	ctx, cancel := withTimeout(ctx, e.target)
	defer cancel()

	composed := Compose(e.target, command, useJSON)
	log := logging.WithFields(map[string]interface{}{"mode": "local"})
	log.Debug("executing", map[string]interface{}{"cmd": composed, "pty": e.target.UsePTY})

	cmd := exec.CommandContext(ctx, localShell, "-c", composed)
	configureProcessGroup(cmd, !e.target.UsePTY)
	cmd.WaitDelay = drainDelay

	start := time.Now()
	run := runPipes
	if e.target.UsePTY {
		run = runPTY
	}
	res, err := run(cmd)
	out := res.output
	if err != nil {
		log.Error("failed to start local command", map[string]interface{}{"cmd": composed, "err": err})
		return types.CommandResult{ExitCode: -1}, &types.TransportError{Host: "localhost", Op: "spawn", Err: err}
	}

	if interrupted(ctx, res.waitErr) {
		log.Warn("local command interrupted", map[string]interface{}{"cmd": composed, "err": ctx.Err()})
		return types.CommandResult{ExitCode: -1, Output: out}, &types.TransportError{Host: "localhost", Op: "exec", Err: ctx.Err()}
	}

	code, err := exitCode(res.waitErr)
	if err != nil {
		return types.CommandResult{ExitCode: -1, Output: out}, &types.TransportError{Host: "localhost", Op: "exec", Err: err}
	}
	log.Debug("executed", map[string]interface{}{"exit_code": code, "duration_ms": time.Since(start).Milliseconds()})
	return types.CommandResult{ExitCode: code, Output: out}, nil
}

// interrupted reports whether the shell was stopped by ctx rather than
// exiting on its own. A command that finished just before the deadline keeps
// its exit status.
func interrupted(ctx context.Context, waitErr error) bool {
	if ctx.Err() == nil || waitErr == nil {
		return false
	}
	if errors.Is(waitErr, ctx.Err()) {
		return true
	}
	var exitErr *exec.ExitError
	return errors.As(waitErr, &exitErr) && exitErr.ExitCode() == -1
}

// finished carries what a started command produced and how it ended.
type finished struct {
	output  []byte
	waitErr error
}

// runPipes lets exec copy both streams into one buffer. Completion is the
// shell's exit; a background child still holding the pipes gets drainDelay
// before they are closed under it.
func runPipes(cmd *exec.Cmd) (finished, error) {
	var out combinedBuffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Start(); err != nil {
		return finished{}, err
	}
	waitErr := cmd.Wait()
	return finished{output: out.Bytes(), waitErr: waitErr}, nil
}

// runPTY runs cmd on a pseudo-terminal; the terminal stream is the output.
// The master is read until EIO, or closed drainDelay after the shell exits
// when a background child keeps the terminal open.
func runPTY(cmd *exec.Cmd) (finished, error) {
	p, err := pty.Start(cmd, ptyRows, ptyCols)
	if err != nil {
		return finished{}, err
	}
	defer p.Close()

	var out combinedBuffer
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		io.Copy(&out, p)
	}()

	waitErr := p.Wait()
	select {
	case <-drained:
	case <-time.After(drainDelay):
		p.Close()
		<-drained
	}
	return finished{output: out.Bytes(), waitErr: waitErr}, nil
}

func exitCode(waitErr error) (int, error) {
	if waitErr == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code, nil
		}
		return signalExitCode(exitErr.ProcessState), nil
	}
	if errors.Is(waitErr, exec.ErrWaitDelay) {
		return 0, nil
	}
	return -1, waitErr
}
