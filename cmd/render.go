package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"eeapi/internal/orchestrator"
	"eeapi/internal/types"
)

// renderer writes results the way the EE REST API answered: tool output
// passed through unmodified, short status lines for staged workflows.
type renderer struct {
	out    io.Writer
	errOut io.Writer
	format string
}

func newRenderer() renderer {
	return renderer{out: stdout, errOut: stderr, format: outputFormat}
}

func (r renderer) json() bool { return r.format == formatJSON }

// command renders a single eeadm invocation.
func (r renderer) command(label string, res types.CommandResult) error {
	r.out.Write(res.Output)
	if res.Success() {
		return nil
	}
	fmt.Fprintf(r.errOut, "Error: command (%s) failed with return code %d\n", label, res.ExitCode)
	return &exitCodeError{code: res.ExitCode}
}

type workflowResponse struct {
	Response struct {
		Returncode int      `json:"Returncode"`
		Message    string   `json:"Message"`
		Warnings   []string `json:"Warnings,omitempty"`
	} `json:"Response"`
}

// staged renders a recall, migrate or policy outcome. label is the workflow
// name used in messages ("Recall", "Migrate", "Policy").
func (r renderer) staged(label string, out *orchestrator.Outcome) error {
	for _, w := range out.Warnings {
		fmt.Fprintf(r.errOut, "Warning: %s\n", w)
	}

	if out.Transfer != nil && !out.Transfer.Success() {
		fmt.Fprintf(r.errOut, "Error: create file list failed with return code %d\n", out.Transfer.Code)
		if out.Transfer.Msg != "" {
			fmt.Fprintf(r.errOut, "%s\n", out.Transfer.Msg)
		}
		return &exitCodeError{code: out.Transfer.Code}
	}

	res := out.Result
	if !res.Success() {
		r.out.Write(res.Output)
		fmt.Fprintf(r.errOut, "Error: %s failed with return code %d\n", strings.ToLower(label), res.ExitCode)
		return &exitCodeError{code: res.ExitCode}
	}

	if r.json() {
		var resp workflowResponse
		resp.Response.Returncode = 0
		resp.Response.Message = label + " finished"
		resp.Response.Warnings = out.Warnings
		return r.encode(resp)
	}
	r.out.Write(res.Output)
	fmt.Fprintf(r.out, "%s finished!\n", label)
	return nil
}

type fileStateResponse struct {
	Response struct {
		Error  int                     `json:"Error"`
		Status string                  `json:"Status"`
		Files  []types.FileStateRecord `json:"files"`
		Failed []fileStateFailure      `json:"failed,omitempty"`
	} `json:"Response"`
}

type fileStateFailure struct {
	Path  string `json:"path"`
	State string `json:"state"`
	Code  int    `json:"code"`
}

// fileStates renders a batch. JSON output groups the parsed records of all
// files under Response.files.
func (r renderer) fileStates(batch orchestrator.BatchResult) error {
	if r.json() {
		var resp fileStateResponse
		resp.Response.Error = batch.Code
		resp.Response.Status = string(batch.Status)
		resp.Response.Files = batch.Records()
		if resp.Response.Files == nil {
			resp.Response.Files = []types.FileStateRecord{}
		}
		for _, item := range batch.Items {
			if item.State != orchestrator.ItemOK {
				resp.Response.Failed = append(resp.Response.Failed, fileStateFailure{Path: item.Path, State: item.State, Code: item.Code})
			}
		}
		if err := r.encode(resp); err != nil {
			return err
		}
	} else {
		for _, item := range batch.Items {
			switch item.State {
			case orchestrator.ItemOK:
				io.WriteString(r.out, item.Output)
			case orchestrator.ItemInvalidFileName:
				fmt.Fprintf(r.errOut, "Error: invalid file name %q\n", item.Path)
			default:
				io.WriteString(r.out, item.Output)
				fmt.Fprintf(r.errOut, "Error: command (eeadm file state) for %s with return code %d\n", item.Path, item.Code)
			}
		}
	}
	if batch.Code != 0 {
		return &exitCodeError{code: batch.Code}
	}
	return nil
}

func (r renderer) transfer(res types.TransferResult) error {
	if !res.Success() {
		fmt.Fprintf(r.errOut, "Error: transfer failed with return code %d: %s\n", res.Code, res.Msg)
		return &exitCodeError{code: res.Code}
	}
	if r.json() {
		return r.encode(res)
	}
	fmt.Fprintf(r.out, "Transfer finished: %s\n", res.Msg)
	return nil
}

func (r renderer) encode(v interface{}) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
