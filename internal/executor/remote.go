package executor

import (
	"context"
	"time"

	"eeapi/internal/logging"
	"eeapi/internal/types"
)

// RemoteExecutor sends commands over the shared SSH connection.
type RemoteExecutor struct {
	target types.ExecutionTarget
	runner RemoteRunner
}

func (e *RemoteExecutor) Execute(ctx context.Context, command string, useJSON bool) (types.CommandResult, error) {
	ctx, cancel := withTimeout(ctx, e.target)
	defer cancel()

	composed := Compose(e.target, command, useJSON)
	log := logging.WithFields(map[string]interface{}{"mode": "remote", "host": e.target.RemoteHost})
	log.Debug("executing", map[string]interface{}{"cmd": composed, "pty": e.target.UsePTY})

	start := time.Now()
	code, out, err := e.runner.RunCombined(ctx, composed, e.target.UsePTY)
	if err != nil {
		log.Error("remote execution failed", map[string]interface{}{"cmd": composed, "err": err})
		return types.CommandResult{ExitCode: code, Output: out}, err
	}
	log.Debug("executed", map[string]interface{}{"exit_code": code, "duration_ms": time.Since(start).Milliseconds()})
	return types.CommandResult{ExitCode: code, Output: out}, nil
}
