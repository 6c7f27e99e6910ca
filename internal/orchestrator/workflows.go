package orchestrator

import (
	"context"
	"strings"

	"eeapi/internal/util"
)

// Recall stages the newline separated file list and runs `eeadm recall`.
func (o *Orchestrator) Recall(ctx context.Context, fileList string, useJSON bool) (*Outcome, error) {
	payload, err := normalizeFileList("recall", fileList)
	if err != nil {
		return nil, err
	}
	return o.run(ctx, workflow{
		name:    "recall",
		prefix:  o.opts.RecallPrefix,
		payload: payload,
		useJSON: useJSON,
		command: func(staged string) string {
			return o.opts.EEADMPath + " recall " + util.ShellQuote(staged)
		},
	})
}

// Migrate stages the file list and runs `eeadm migrate -p` to one to four
// destination pools.
func (o *Orchestrator) Migrate(ctx context.Context, fileList string, pools []string, useJSON bool) (*Outcome, error) {
	pools, err := normalizePools(pools)
	if err != nil {
		return nil, err
	}
	payload, err := normalizeFileList("migrate", fileList)
	if err != nil {
		return nil, err
	}
	return o.run(ctx, workflow{
		name:    "migrate",
		prefix:  o.opts.MigratePrefix,
		payload: payload,
		useJSON: useJSON,
		command: func(staged string) string {
			return o.opts.EEADMPath + " migrate " + util.ShellQuote(staged) + " -p " + strings.Join(pools, ",")
		},
	})
}

// RunPolicy stages the policy text of body and runs mmapplypolicy against
// the scan path. mmapplypolicy has no JSON output.
func (o *Orchestrator) RunPolicy(ctx context.Context, body string) (*Outcome, error) {
	req, err := ParsePolicyRequest(body)
	if err != nil {
		return nil, err
	}
	return o.run(ctx, workflow{
		name:    "policy",
		prefix:  o.opts.PolicyPrefix,
		payload: []byte(req.Policy),
		command: func(staged string) string {
			cmd := o.opts.MMApplyPolicyPath + " " + util.ShellEscape(req.Path) + " -P " + util.ShellQuote(staged)
			if req.Options != "" {
				cmd += " " + req.Options
			}
			return cmd
		},
	})
}
