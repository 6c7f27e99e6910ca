package orchestrator

import (
	"bytes"
	"context"
	"regexp"

	"eeapi/internal/types"
)

// InfoComponents lists what `eeadm <component> list` accepts.
var InfoComponents = []string{"tape", "drive", "node", "pool", "library"}

// Status runs `eeadm node list`.
func (o *Orchestrator) Status(ctx context.Context, useJSON bool) (types.CommandResult, error) {
	return o.exec.Execute(ctx, o.opts.EEADMPath+" node list", useJSON)
}

// Info runs `eeadm <component> list`.
func (o *Orchestrator) Info(ctx context.Context, component string, useJSON bool) (types.CommandResult, error) {
	valid := false
	for _, c := range InfoComponents {
		if c == component {
			valid = true
			break
		}
	}
	if !valid {
		return types.CommandResult{}, &types.ValidationError{Field: "component", Reason: "must be one of tape, drive, node, pool or library"}
	}
	return o.exec.Execute(ctx, o.opts.EEADMPath+" "+component+" list", useJSON)
}

// Tasks runs `eeadm task list` for active tasks or, with scope "all", with
// -c for completed ones too. A non-empty filter keeps matching lines only,
// like a grep on the output, and exits 1 when nothing matches.
func (o *Orchestrator) Tasks(ctx context.Context, scope, filter string, useJSON bool) (types.CommandResult, error) {
	cmd := o.opts.EEADMPath + " task list"
	switch scope {
	case "active":
	case "all":
		cmd += " -c"
	default:
		return types.CommandResult{}, &types.ValidationError{Field: "task scope", Reason: "must be active or all"}
	}

	var re *regexp.Regexp
	if filter != "" {
		if useJSON {
			return types.CommandResult{}, &types.ValidationError{Field: "filter", Reason: "a filter cannot be combined with JSON output"}
		}
		var err error
		if re, err = regexp.Compile(filter); err != nil {
			return types.CommandResult{}, &types.ValidationError{Field: "filter", Reason: err.Error()}
		}
	}

	res, err := o.exec.Execute(ctx, cmd, useJSON)
	if err != nil || re == nil || !res.Success() {
		return res, err
	}
	return filterLines(res, re), nil
}

func filterLines(res types.CommandResult, re *regexp.Regexp) types.CommandResult {
	var out bytes.Buffer
	for _, line := range bytes.SplitAfter(res.Output, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		if re.Match(bytes.TrimRight(line, "\r\n")) {
			out.Write(line)
		}
	}
	if out.Len() == 0 {
		return types.CommandResult{ExitCode: 1}
	}
	return types.CommandResult{ExitCode: 0, Output: out.Bytes()}
}

// TaskShow runs `eeadm task show <id>`.
func (o *Orchestrator) TaskShow(ctx context.Context, id string, useJSON bool) (types.CommandResult, error) {
	if !taskIDPattern.MatchString(id) {
		return types.CommandResult{}, &types.ValidationError{Reason: "Invalid task-ID, must be a integer number"}
	}
	return o.exec.Execute(ctx, o.opts.EEADMPath+" task show "+id, useJSON)
}
