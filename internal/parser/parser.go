package parser

import (
	"strings"

	"eeapi/internal/types"
)

// nameField marks the start of a new record in `eeadm file state` output.
const nameField = "Name"

// ParseFileState converts a "Field: value" text block into records, one per
// `Name:` line, in the order the markers appear.
//
// Blank lines are skipped and a trailing carriage return is dropped, since
// output captured through a PTY uses CRLF line endings. The field name is the
// text before the first colon, lower-cased; the value is the text between the
// first and second colon with its leading space intact. A line without a
// colon becomes a field with an empty value. The last record is always
// emitted, so input without any Name line yields exactly one record.
func ParseFileState(text string) []types.FileStateRecord {
	var records []types.FileStateRecord
	current := types.NewFileStateRecord()
	seenName := false

	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}

		parts := strings.Split(line, ":")
		key := parts[0]
		value := ""
		if len(parts) > 1 {
			value = parts[1]
		}

		if key == nameField {
			if seenName {
				records = append(records, current)
				current = types.NewFileStateRecord()
			}
			seenName = true
		}

		current.Set(strings.ToLower(key), value)
	}

	return append(records, current)
}
