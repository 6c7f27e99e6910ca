package executor

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"eeapi/internal/types"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func localTarget() types.ExecutionTarget {
	return types.ExecutionTarget{Mode: types.ModeLocal}
}

func mustNew(t *testing.T, target types.ExecutionTarget, runner RemoteRunner) Executor {
	t.Helper()
	e, err := New(target, runner)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestLocalExitCodes(t *testing.T) {
	e := mustNew(t, localTarget(), nil)
	tests := []struct {
		cmd  string
		code int
		out  string
	}{
		{"exit 0", 0, ""},
		{"exit 7", 7, ""},
		{"printf 'Name: a.txt\\n'", 0, "Name: a.txt\n"},
		{"eeadm-does-not-exist 2>/dev/null", 127, ""},
	}
	for _, test := range tests {
		res, err := e.Execute(context.Background(), test.cmd, false)
		if err != nil {
			t.Fatalf("Execute(%q): %v", test.cmd, err)
		}
		if res.ExitCode != test.code || string(res.Output) != test.out {
			t.Errorf("Execute(%q) = {%d %q}, want {%d %q}", test.cmd, res.ExitCode, res.Output, test.code, test.out)
		}
	}
}

func TestLocalCombinesStdoutAndStderr(t *testing.T) {
	e := mustNew(t, localTarget(), nil)
	res, err := e.Execute(context.Background(), "echo out; echo err >&2; exit 2", false)
	if err != nil {
		t.Fatal(err)
	}
	if res.ExitCode != 2 {
		t.Fatalf("exit code = %d", res.ExitCode)
	}
	out := string(res.Output)
	if !strings.Contains(out, "out\n") || !strings.Contains(out, "err\n") {
		t.Fatalf("output %q missing streams", out)
	}
}

func TestLocalLargeOutputDoesNotBlock(t *testing.T) {
	e := mustNew(t, localTarget(), nil)
	res, err := e.Execute(context.Background(), "i=0; while [ $i -lt 5000 ]; do echo line $i; echo err $i >&2; i=$((i+1)); done", false)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(res.Output), "\n"); n != 10000 {
		t.Fatalf("expected 10000 lines, got %d", n)
	}
}

func TestLocalElevationAndJSON(t *testing.T) {
	target := localTarget()
	target.UseElevation = true
	target.ElevationCommand = "env EEAPI_ELEVATED=yes"
	e := mustNew(t, target, nil)

	// The trailing --json lands in $1 of the inner script.
	res, err := e.Execute(context.Background(), `sh -c 'echo "$EEAPI_ELEVATED $1"' x`, true)
	if err != nil {
		t.Fatal(err)
	}
	if string(res.Output) != "yes --json\n" {
		t.Fatalf("unexpected output %q", res.Output)
	}
}

func TestCompose(t *testing.T) {
	tests := []struct {
		target types.ExecutionTarget
		json   bool
		want   string
	}{
		{types.ExecutionTarget{}, false, "eeadm node list"},
		{types.ExecutionTarget{}, true, "eeadm node list --json"},
		{types.ExecutionTarget{UseElevation: true}, false, "sudo -n eeadm node list"},
		{types.ExecutionTarget{UseElevation: true, ElevationCommand: "sudo"}, true, "sudo eeadm node list --json"},
	}
	for _, test := range tests {
		if got := Compose(test.target, "eeadm node list", test.json); got != test.want {
			t.Errorf("Compose = %q, want %q", got, test.want)
		}
	}
}

func TestLocalTimeoutKillsProcessGroup(t *testing.T) {
	target := localTarget()
	target.CommandTimeout = 300 * time.Millisecond
	e := mustNew(t, target, nil)

	start := time.Now()
	res, err := e.Execute(context.Background(), "echo started; sleep 30 & wait", false)
	var te *types.TransportError
	if !errors.As(err, &te) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected timeout TransportError, got %v", err)
	}
	if res.ExitCode != -1 {
		t.Fatalf("exit code = %d, want -1", res.ExitCode)
	}
	if !strings.Contains(string(res.Output), "started") {
		t.Fatalf("partial output lost: %q", res.Output)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("timeout took %v", elapsed)
	}
}

func TestLocalContextCancel(t *testing.T) {
	e := mustNew(t, localTarget(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	if _, err := e.Execute(ctx, "sleep 30", false); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
}

func TestLocalPTY(t *testing.T) {
	target := localTarget()
	target.UsePTY = true
	e := mustNew(t, target, nil)

	res, err := e.Execute(context.Background(), "echo hi; echo oops >&2; exit 3", false)
	var te *types.TransportError
	if errors.As(err, &te) && te.Op == "spawn" {
		t.Skipf("pty unavailable: %v", err)
	}
	if err != nil {
		t.Fatal(err)
	}
	if res.ExitCode != 3 {
		t.Fatalf("exit code = %d", res.ExitCode)
	}
	if out := string(res.Output); !strings.Contains(out, "hi") || !strings.Contains(out, "oops") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestLocalReturnsWhenShellExits(t *testing.T) {
	for _, usePTY := range []bool{false, true} {
		target := localTarget()
		target.UsePTY = usePTY
		e := mustNew(t, target, nil)

		start := time.Now()
		res, err := e.Execute(context.Background(), "sleep 5 & echo started; exit 4", false)
		var te *types.TransportError
		if usePTY && errors.As(err, &te) && te.Op == "spawn" {
			t.Skipf("pty unavailable: %v", err)
		}
		if err != nil {
			t.Fatalf("pty=%v: %v", usePTY, err)
		}
		if elapsed := time.Since(start); elapsed > 4*time.Second {
			t.Fatalf("pty=%v: waited %v for a background child", usePTY, elapsed)
		}
		if res.ExitCode != 4 || !strings.Contains(string(res.Output), "started") {
			t.Fatalf("pty=%v: result = {%d %q}", usePTY, res.ExitCode, res.Output)
		}
	}
}

func TestLocalBackgroundChildKeepsZeroExit(t *testing.T) {
	e := mustNew(t, localTarget(), nil)
	res, err := e.Execute(context.Background(), "sleep 5 & exit 0", false)
	if err != nil || res.ExitCode != 0 {
		t.Fatalf("result = %+v, err = %v", res, err)
	}
}

func TestInterruptedOnlyWhenKilled(t *testing.T) {
	done, cancel := context.WithCancel(context.Background())
	cancel()

	exited := exec.Command("/bin/sh", "-c", "exit 3").Run()
	var exitErr *exec.ExitError
	if !errors.As(exited, &exitErr) {
		t.Fatalf("expected ExitError, got %v", exited)
	}
	killed := exec.Command("/bin/sh", "-c", "kill -9 $$").Run()

	tests := []struct {
		name    string
		ctx     context.Context
		waitErr error
		want    bool
	}{
		{"finished cleanly after deadline", done, nil, false},
		{"finished non-zero after deadline", done, exited, false},
		{"killed after deadline", done, killed, true},
		{"context error reported by wait", done, context.Canceled, true},
		{"killed without deadline", context.Background(), killed, false},
	}
	for _, test := range tests {
		if got := interrupted(test.ctx, test.waitErr); got != test.want {
			t.Errorf("%s: interrupted = %v, want %v", test.name, got, test.want)
		}
	}
}

type fakeRunner struct {
	cmds   []string
	ptys   []bool
	code   int
	output string
	err    error
}

func (f *fakeRunner) RunCombined(ctx context.Context, cmd string, usePty bool) (int, []byte, error) {
	f.cmds = append(f.cmds, cmd)
	f.ptys = append(f.ptys, usePty)
	return f.code, []byte(f.output), f.err
}

func TestRemoteExecutor(t *testing.T) {
	runner := &fakeRunner{code: 5, output: "GLESL012E: file not found\r\n"}
	target := types.ExecutionTarget{Mode: types.ModeRemote, RemoteHost: "ee1", UseElevation: true, UsePTY: true}
	e := mustNew(t, target, runner)

	res, err := e.Execute(context.Background(), "/opt/ibm/ltfsee/bin/eeadm task list", true)
	if err != nil {
		t.Fatal(err)
	}
	if res.ExitCode != 5 || string(res.Output) != runner.output {
		t.Fatalf("unexpected result %+v", res)
	}
	if runner.cmds[0] != "sudo -n /opt/ibm/ltfsee/bin/eeadm task list --json" || !runner.ptys[0] {
		t.Fatalf("unexpected call %q pty=%v", runner.cmds[0], runner.ptys[0])
	}
}

func TestRemoteTransportErrorPassesThrough(t *testing.T) {
	runner := &fakeRunner{code: -1, err: &types.TransportError{Host: "ee1:22", Op: "dial", Err: errors.New("connection refused")}}
	e := mustNew(t, types.ExecutionTarget{Mode: types.ModeRemote}, runner)

	_, err := e.Execute(context.Background(), "eeadm node list", false)
	var te *types.TransportError
	if !errors.As(err, &te) || te.Op != "dial" {
		t.Fatalf("expected dial TransportError, got %v", err)
	}
}

func TestNewRemoteRequiresRunner(t *testing.T) {
	if _, err := New(types.ExecutionTarget{Mode: types.ModeRemote}, nil); err == nil {
		t.Fatalf("expected error without runner")
	}
}
