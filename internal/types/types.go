package types

import (
	"bytes"
	"encoding/json"
	"time"
)

// Mode selects where commands run.
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
)

// Transfer protocols understood by the remote transfer agent.
const (
	ProtocolSCP  = "scp"
	ProtocolSFTP = "sftp"
)

// ExecutionTarget describes whether and how the eeadm host is reached.
// It is built once from configuration and never mutated afterwards.
type ExecutionTarget struct {
	Mode             Mode
	RemoteHost       string
	RemoteUser       string
	RemotePort       int
	PrivateKeyPath   string
	KeyPassphrase    string
	KnownHostsPath   string // empty disables host key verification
	UseAgent         bool
	UseElevation     bool
	ElevationCommand string
	UsePTY           bool
	TransferProtocol string
	DialTimeout      time.Duration
	CommandTimeout   time.Duration // 0 = wait forever
}

// IsRemote reports whether the target is reached over SSH.
func (t ExecutionTarget) IsRemote() bool { return t.Mode == ModeRemote }

// CommandResult is the outcome of one command execution. A non-zero exit
// code is a valid result, not an error.
type CommandResult struct {
	ExitCode int
	Output   []byte // stdout and stderr combined
}

func (r CommandResult) Success() bool { return r.ExitCode == 0 }

// TransferResult mirrors CommandResult for file transfers so callers can use
// one success test.
type TransferResult struct {
	Code int
	Msg  string
}

func (r TransferResult) Success() bool { return r.Code == 0 }

// TransferRequest names one file to move.
type TransferRequest struct {
	SourcePath      string
	DestinationPath string
}

// FileStateRecord is an ordered mapping of lowercase field names to values,
// one per file reported by `eeadm file state`.
type FileStateRecord struct {
	keys   []string
	values map[string]string
}

// NewFileStateRecord returns an empty record.
func NewFileStateRecord() FileStateRecord {
	return FileStateRecord{values: map[string]string{}}
}

// Set stores value under key. A repeated key overwrites the earlier value but
// keeps its original position.
func (r *FileStateRecord) Set(key, value string) {
	if r.values == nil {
		r.values = map[string]string{}
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value for key.
func (r FileStateRecord) Get(key string) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the field names in insertion order.
func (r FileStateRecord) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

func (r FileStateRecord) Len() int { return len(r.keys) }

// MarshalJSON encodes the record as a JSON object preserving field order.
func (r FileStateRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
