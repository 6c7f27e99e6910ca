package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"eeapi/internal/executor"
	"eeapi/internal/logging"
	"eeapi/internal/transfer"
	"eeapi/internal/types"
	"eeapi/internal/util"

	"github.com/google/uuid"
)

// State is a step of a staged workflow.
type State string

const (
	StateStaging      State = "staging"
	StateTransferring State = "transferring"
	StateExecuting    State = "executing"
	StateCleaning     State = "cleaning"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

const cleanupTimeout = 30 * time.Second

// Outcome is what a staged workflow reports. Result is exactly the result
// of the main command, or a mirror of the refused transfer when the command
// never ran. Cleanup problems only show up in Warnings.
type Outcome struct {
	Result     types.CommandResult
	Transfer   *types.TransferResult
	StagedPath string
	Trace      []State
	Warnings   []string
}

func (o *Outcome) enter(s State) { o.Trace = append(o.Trace, s) }

// Final returns the last recorded state.
func (o *Outcome) Final() State {
	if len(o.Trace) == 0 {
		return ""
	}
	return o.Trace[len(o.Trace)-1]
}

// Options carries tool locations and scratch-file prefixes.
type Options struct {
	EEADMPath         string
	MMApplyPolicyPath string
	RecallPrefix      string
	MigratePrefix     string
	PolicyPrefix      string
	// StagingDir holds payloads before they are pushed to a remote target.
	StagingDir string
}

type Orchestrator struct {
	exec   executor.Executor
	agent  transfer.Agent
	opts   Options
	remote bool
	newID  func() string
}

// New wires an orchestrator. Placement is fixed here: local targets stage
// payloads directly at the prefix path; remote targets stage under
// StagingDir and transfer to the prefix path on the remote host.
func New(target types.ExecutionTarget, exec executor.Executor, agent transfer.Agent, opts Options) (*Orchestrator, error) {
	if exec == nil {
		return nil, errors.New("orchestrator requires an executor")
	}
	if target.IsRemote() && agent == nil {
		return nil, errors.New("remote orchestrator requires a transfer agent")
	}
	if opts.EEADMPath == "" {
		return nil, errors.New("eeadm path is required")
	}
	if opts.StagingDir == "" {
		opts.StagingDir = os.TempDir()
	}
	return &Orchestrator{
		exec:   exec,
		agent:  agent,
		opts:   opts,
		remote: target.IsRemote(),
		newID:  uuid.NewString,
	}, nil
}

// workflow describes one staged run.
type workflow struct {
	name    string
	prefix  string
	payload []byte
	command func(stagedPath string) string
	useJSON bool
}

func (o *Orchestrator) run(ctx context.Context, wf workflow) (*Outcome, error) {
	id := o.newID()
	target := wf.prefix + "." + id
	log := logging.WithFields(map[string]interface{}{"workflow": wf.name, "id": id})
	out := &Outcome{StagedPath: target}

	out.enter(StateStaging)
	scratch := target
	if o.remote {
		scratch = filepath.Join(o.opts.StagingDir, path.Base(wf.prefix)+"."+id)
	}
	if err := writeScratch(scratch, wf.payload); err != nil {
		out.enter(StateFailed)
		log.Error("staging failed", map[string]interface{}{"path": scratch, "err": err})
		return out, &types.StagingError{Path: scratch, Err: err}
	}

	if o.remote {
		out.enter(StateTransferring)
		res, err := o.agent.Transfer(ctx, types.TransferRequest{SourcePath: scratch, DestinationPath: target})
		if rmErr := os.Remove(scratch); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			out.warn(log, fmt.Sprintf("failed to remove local scratch file %s: %v", scratch, rmErr))
		}
		if err != nil {
			out.enter(StateFailed)
			log.Error("transfer failed", map[string]interface{}{"dst": target, "err": err})
			return out, err
		}
		if !res.Success() {
			out.Transfer = &res
			out.Result = types.CommandResult{ExitCode: res.Code, Output: []byte(res.Msg)}
			out.enter(StateFailed)
			log.Warn("transfer refused", map[string]interface{}{"dst": target, "code": res.Code, "msg": res.Msg})
			return out, nil
		}
		out.Transfer = &res
	}

	out.enter(StateExecuting)
	cmd := wf.command(target)
	res, execErr := o.exec.Execute(ctx, cmd, wf.useJSON)
	out.Result = res
	if execErr != nil {
		// The session that would run the cleanup is the one that just broke.
		out.enter(StateFailed)
		log.Error("command failed to run", map[string]interface{}{"cmd": cmd, "err": execErr, "staged": target})
		return out, execErr
	}

	out.enter(StateCleaning)
	o.cleanup(ctx, log, out, target)

	if res.Success() {
		out.enter(StateDone)
		log.Info("workflow finished", map[string]interface{}{"cmd": cmd})
	} else {
		out.enter(StateFailed)
		log.Warn("workflow command returned non-zero", map[string]interface{}{"cmd": cmd, "exit_code": res.ExitCode})
	}
	return out, nil
}

// cleanup removes the staged file through the executor. It runs on a
// context detached from cancellation so an interrupt arriving after the
// command finished still leaves no scratch file behind.
func (o *Orchestrator) cleanup(ctx context.Context, log *logging.Logger, out *Outcome, stagedPath string) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	res, err := o.exec.Execute(cctx, "rm -f "+util.ShellEscape(stagedPath), false)
	switch {
	case err != nil:
		out.warn(log, fmt.Sprintf("cleanup of %s failed: %v", stagedPath, err))
	case !res.Success():
		out.warn(log, fmt.Sprintf("cleanup of %s returned %d: %s", stagedPath, res.ExitCode, string(res.Output)))
	}
}

func (o *Outcome) warn(log *logging.Logger, msg string) {
	o.Warnings = append(o.Warnings, msg)
	log.Warn(msg, nil)
}

// writeScratch creates path exclusively so concurrent workflows can never
// share a scratch file.
func writeScratch(path string, payload []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(payload); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}
