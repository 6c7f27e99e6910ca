package orchestrator

import (
	"context"

	"eeapi/internal/logging"
	"eeapi/internal/parser"
	"eeapi/internal/types"
	"eeapi/internal/util"
)

// Per-file states of a file-state batch.
const (
	ItemOK              = "ok"
	ItemFailed          = "failed"
	ItemInvalidFileName = "invalid_file_name"
)

// BatchStatus summarizes a batch.
type BatchStatus string

const (
	BatchSuccess BatchStatus = "success"
	BatchPartial BatchStatus = "partial"
	BatchFailed  BatchStatus = "failed"
)

// FileStateItem is the result for one requested path.
type FileStateItem struct {
	Path    string                  `json:"path"`
	State   string                  `json:"state"`
	Code    int                     `json:"code"`
	Output  string                  `json:"output,omitempty"`
	Records []types.FileStateRecord `json:"records,omitempty"`
}

// BatchResult keeps items in request order. Code is 0 on success, otherwise
// the first non-zero item code.
type BatchResult struct {
	Status BatchStatus     `json:"status"`
	Code   int             `json:"code"`
	Items  []FileStateItem `json:"items"`
}

// Records flattens the parsed records of every successful item.
func (b BatchResult) Records() []types.FileStateRecord {
	var out []types.FileStateRecord
	for _, item := range b.Items {
		out = append(out, item.Records...)
	}
	return out
}

// FileStates runs `eeadm file state` once per path, strictly one after the
// other. Failures are recorded per item and never stop the batch; only
// context cancellation ends it early, with the error returned alongside the
// items collected so far.
func (o *Orchestrator) FileStates(ctx context.Context, paths []string) (BatchResult, error) {
	if len(paths) == 0 {
		return BatchResult{}, &types.ValidationError{Reason: "no file names given"}
	}
	log := logging.WithFields(map[string]interface{}{"workflow": "filestate"})

	result := BatchResult{Items: make([]FileStateItem, 0, len(paths))}
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			result.summarize()
			return result, err
		}
		result.Items = append(result.Items, o.fileState(ctx, log, p))
	}
	result.summarize()
	log.Info("file state batch finished", map[string]interface{}{"files": len(paths), "status": string(result.Status)})
	return result, nil
}

func (o *Orchestrator) fileState(ctx context.Context, log *logging.Logger, p string) FileStateItem {
	item := FileStateItem{Path: p}
	if !validFileName(p) {
		item.State = ItemInvalidFileName
		item.Code = 1
		log.Warn("invalid file name rejected", map[string]interface{}{"path": p})
		return item
	}

	res, err := o.exec.Execute(ctx, o.opts.EEADMPath+" file state "+util.ShellEscape(p), false)
	item.Output = string(res.Output)
	switch {
	case err != nil:
		item.State = ItemFailed
		item.Code = res.ExitCode
		if item.Code == 0 {
			item.Code = -1
		}
		item.Output = err.Error()
		log.Error("file state failed to run", map[string]interface{}{"path": p, "err": err})
	case !res.Success():
		item.State = ItemFailed
		item.Code = res.ExitCode
	default:
		item.State = ItemOK
		item.Records = parser.ParseFileState(string(util.StripANSI(res.Output)))
	}
	return item
}

func (b *BatchResult) summarize() {
	ok := 0
	b.Code = 0
	for _, item := range b.Items {
		if item.State == ItemOK {
			ok++
			continue
		}
		if b.Code == 0 {
			b.Code = item.Code
		}
	}
	switch {
	case len(b.Items) > 0 && ok == len(b.Items):
		b.Status = BatchSuccess
	case ok > 0:
		b.Status = BatchPartial
	default:
		b.Status = BatchFailed
	}
}
