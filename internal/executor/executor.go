package executor

import (
	"context"
	"errors"
	"strings"

	"eeapi/internal/types"
)

// Executor runs one shell command on the execution target. A non-zero exit
// status is returned in the CommandResult; the error is reserved for a
// *types.TransportError.
type Executor interface {
	Execute(ctx context.Context, command string, useJSON bool) (types.CommandResult, error)
}

// RemoteRunner runs a command over an established transport and reports
// exit status plus combined output. *sshclient.SSHClient implements it.
type RemoteRunner interface {
	RunCombined(ctx context.Context, cmd string, usePty bool) (int, []byte, error)
}

// New picks the executor for target once. runner is only used, and then
// required, for remote targets.
func New(target types.ExecutionTarget, runner RemoteRunner) (Executor, error) {
	if !target.IsRemote() {
		return &LocalExecutor{target: target}, nil
	}
	if runner == nil {
		return nil, errors.New("remote execution target requires an ssh client")
	}
	return &RemoteExecutor{target: target, runner: runner}, nil
}

// Compose applies the elevation prefix and the --json flag to command.
func Compose(target types.ExecutionTarget, command string, useJSON bool) string {
	composed := command
	if target.UseElevation {
		prefix := strings.TrimSpace(target.ElevationCommand)
		if prefix == "" {
			prefix = "sudo -n"
		}
		composed = prefix + " " + composed
	}
	if useJSON {
		composed += " --json"
	}
	return composed
}

func withTimeout(ctx context.Context, target types.ExecutionTarget) (context.Context, context.CancelFunc) {
	if target.CommandTimeout > 0 {
		return context.WithTimeout(ctx, target.CommandTimeout)
	}
	return context.WithCancel(ctx)
}
