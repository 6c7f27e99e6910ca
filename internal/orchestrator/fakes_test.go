package orchestrator

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"eeapi/internal/transfer"
	"eeapi/internal/types"
)

type call struct {
	cmd     string
	useJSON bool
}

// fakeExecutor records commands and answers through respond, or with
// {0, ""} when respond is nil.
type fakeExecutor struct {
	mu      sync.Mutex
	calls   []call
	respond func(cmd string) (types.CommandResult, error)
}

func (f *fakeExecutor) Execute(ctx context.Context, cmd string, useJSON bool) (types.CommandResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{cmd: cmd, useJSON: useJSON})
	respond := f.respond
	f.mu.Unlock()
	if respond == nil {
		return types.CommandResult{}, nil
	}
	return respond(cmd)
}

func (f *fakeExecutor) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		out = append(out, c.cmd)
	}
	return out
}

// fakeAgent copies the staged file's content aside so tests can check it
// after the orchestrator removes the source.
type fakeAgent struct {
	reqs     []types.TransferRequest
	payloads []string
	res      types.TransferResult
	err      error
}

func (f *fakeAgent) Transfer(ctx context.Context, req types.TransferRequest) (types.TransferResult, error) {
	f.reqs = append(f.reqs, req)
	b, err := os.ReadFile(req.SourcePath)
	if err != nil {
		return types.TransferResult{}, fmt.Errorf("fake agent: %w", err)
	}
	f.payloads = append(f.payloads, string(b))
	return f.res, f.err
}

func testOptions(t *testing.T) Options {
	dir := t.TempDir()
	return Options{
		EEADMPath:         "/opt/ibm/ltfsee/bin/eeadm",
		MMApplyPolicyPath: "/usr/lpp/mmfs/bin/mmapplypolicy",
		RecallPrefix:      dir + "/recall-list",
		MigratePrefix:     dir + "/migrate-list",
		PolicyPrefix:      dir + "/policy-file",
		StagingDir:        t.TempDir(),
	}
}

func newTestOrchestrator(t *testing.T, remote bool, exec *fakeExecutor, agent *fakeAgent) *Orchestrator {
	t.Helper()
	target := types.ExecutionTarget{Mode: types.ModeLocal}
	if remote {
		target.Mode = types.ModeRemote
	}
	var a transfer.Agent
	if agent != nil {
		a = agent
	}
	o, err := New(target, exec, a, testOptions(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	o.newID = func() string { return "fixed-id" }
	return o
}

func traceString(trace []State) string {
	parts := make([]string, len(trace))
	for i, s := range trace {
		parts[i] = string(s)
	}
	return strings.Join(parts, ">")
}
