package orchestrator

import (
	"regexp"
	"strings"

	"eeapi/internal/types"
)

const maxPools = 4

var (
	poolPattern       = regexp.MustCompile(`^[A-Za-z0-9_.@:-]+$`)
	taskIDPattern     = regexp.MustCompile(`^[0-9]+$`)
	unsafeOptionChars = ";|&`$<>\n\r"
)

// normalizeFileList trims every line, drops blank ones and terminates the
// list with a newline. An empty result is a validation error.
func normalizeFileList(workflow, list string) ([]byte, error) {
	var b strings.Builder
	for _, line := range strings.Split(list, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if b.Len() == 0 {
		return nil, &types.ValidationError{Reason: workflow + " file list is empty"}
	}
	return []byte(b.String()), nil
}

// normalizePools drops empty names and checks count and characters.
func normalizePools(pools []string) ([]string, error) {
	var out []string
	for _, p := range pools {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !poolPattern.MatchString(p) {
			return nil, &types.ValidationError{Field: "pool", Reason: "pool name " + p + " contains invalid characters"}
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, &types.ValidationError{Reason: "no migration destination pool specified"}
	}
	if len(out) > maxPools {
		return nil, &types.ValidationError{Field: "pool", Reason: "at most 4 destination pools are allowed"}
	}
	return out, nil
}

// validFileName rejects paths that would split the shell statement.
func validFileName(p string) bool {
	return strings.TrimSpace(p) != "" && !strings.ContainsAny(p, ";\n\r")
}
