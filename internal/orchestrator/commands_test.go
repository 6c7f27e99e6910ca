package orchestrator

import (
	"context"
	"errors"
	"testing"

	"eeapi/internal/types"
)

func TestSingleCommands(t *testing.T) {
	exec := &fakeExecutor{}
	o := newTestOrchestrator(t, false, exec, nil)
	ctx := context.Background()

	if _, err := o.Status(ctx, true); err != nil {
		t.Fatal(err)
	}
	if _, err := o.Info(ctx, "pool", false); err != nil {
		t.Fatal(err)
	}
	if _, err := o.Tasks(ctx, "active", "", true); err != nil {
		t.Fatal(err)
	}
	if _, err := o.Tasks(ctx, "all", "", false); err != nil {
		t.Fatal(err)
	}
	if _, err := o.TaskShow(ctx, "1021", false); err != nil {
		t.Fatal(err)
	}

	want := []call{
		{"/opt/ibm/ltfsee/bin/eeadm node list", true},
		{"/opt/ibm/ltfsee/bin/eeadm pool list", false},
		{"/opt/ibm/ltfsee/bin/eeadm task list", true},
		{"/opt/ibm/ltfsee/bin/eeadm task list -c", false},
		{"/opt/ibm/ltfsee/bin/eeadm task show 1021", false},
	}
	if len(exec.calls) != len(want) {
		t.Fatalf("calls = %+v", exec.calls)
	}
	for i := range want {
		if exec.calls[i] != want[i] {
			t.Errorf("call %d = %+v, want %+v", i, exec.calls[i], want[i])
		}
	}
}

func TestCommandValidation(t *testing.T) {
	exec := &fakeExecutor{}
	o := newTestOrchestrator(t, false, exec, nil)
	ctx := context.Background()

	checks := []func() error{
		func() error { _, err := o.Info(ctx, "cartridge", false); return err },
		func() error { _, err := o.Tasks(ctx, "complete", "", false); return err },
		func() error { _, err := o.Tasks(ctx, "all", "Running", true); return err },
		func() error { _, err := o.Tasks(ctx, "all", "(", false); return err },
		func() error { _, err := o.TaskShow(ctx, "12a", false); return err },
		func() error { _, err := o.TaskShow(ctx, "1; reboot", false); return err },
	}
	for i, check := range checks {
		var ve *types.ValidationError
		if err := check(); !errors.As(err, &ve) {
			t.Errorf("check %d: expected ValidationError, got %v", i, err)
		}
	}
	if len(exec.calls) != 0 {
		t.Fatalf("validation failures must not execute: %v", exec.commands())
	}
}

func TestTasksFilter(t *testing.T) {
	listing := "TaskID  Type     Status\r\n1001    recall   running\r\n1002    migrate  waiting\r\n1003    recall   waiting\r\n"
	exec := &fakeExecutor{respond: func(string) (types.CommandResult, error) {
		return types.CommandResult{Output: []byte(listing)}, nil
	}}
	o := newTestOrchestrator(t, false, exec, nil)

	res, err := o.Tasks(context.Background(), "active", "recall", false)
	if err != nil {
		t.Fatal(err)
	}
	if string(res.Output) != "1001    recall   running\r\n1003    recall   waiting\r\n" || res.ExitCode != 0 {
		t.Fatalf("filtered = %q (%d)", res.Output, res.ExitCode)
	}

	res, err = o.Tasks(context.Background(), "active", "^nomatch$", false)
	if err != nil || res.ExitCode != 1 || len(res.Output) != 0 {
		t.Fatalf("no-match = %+v %v", res, err)
	}
}
