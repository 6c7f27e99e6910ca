package orchestrator

import (
	"strings"

	"eeapi/internal/types"
)

// PolicyRequest is a policy run decoded from a marker body:
//
//	Path: /gpfs/fs1/archive
//	Options: -I defer -N all
//	Policy:
//	RULE 'mig' MIGRATE FROM POOL 'system' TO POOL 'ltfs' ...
//
// Path and Options take the rest of their line. Policy takes the rest of its
// line and every line after it.
type PolicyRequest struct {
	Path    string
	Options string
	Policy  string
}

const (
	markerPath    = "Path:"
	markerOptions = "Options:"
	markerPolicy  = "Policy:"
)

// ParsePolicyRequest decodes and validates body.
func ParsePolicyRequest(body string) (PolicyRequest, error) {
	var req PolicyRequest
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, markerPath):
			req.Path = strings.TrimSpace(strings.TrimPrefix(trimmed, markerPath))
		case strings.HasPrefix(trimmed, markerOptions):
			req.Options = strings.TrimSpace(strings.TrimPrefix(trimmed, markerOptions))
		case strings.HasPrefix(trimmed, markerPolicy):
			rest := strings.TrimSpace(strings.TrimPrefix(trimmed, markerPolicy))
			policy := append([]string{rest}, lines[i+1:]...)
			req.Policy = strings.TrimSpace(strings.Join(policy, "\n"))
			if req.Policy != "" {
				req.Policy += "\n"
			}
			return req, req.validate()
		}
	}
	return req, req.validate()
}

func (r PolicyRequest) validate() error {
	if r.Path == "" {
		return &types.ValidationError{Field: "policy request", Reason: "missing Path: marker"}
	}
	if strings.ContainsAny(r.Path, "\n\r") {
		return &types.ValidationError{Field: "path", Reason: "path must be a single line"}
	}
	if strings.ContainsAny(r.Options, unsafeOptionChars) {
		return &types.ValidationError{Field: "options", Reason: "options contain shell control characters"}
	}
	if r.Policy == "" {
		return &types.ValidationError{Field: "policy request", Reason: "missing or empty Policy: section"}
	}
	return nil
}
