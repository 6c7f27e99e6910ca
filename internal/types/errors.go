package types

import "fmt"

// TransportError is a failure to reach or use the execution target:
// dial, handshake, authentication, session setup, process spawn or a
// connection lost before an exit status arrived. It is never used for a
// non-zero exit code.
type TransportError struct {
	Host string
	Op   string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error on %s during %s: %v", e.Host, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StagingError is a local I/O failure while writing a scratch payload file.
type StagingError struct {
	Path string
	Err  error
}

func (e *StagingError) Error() string {
	return fmt.Sprintf("failed to stage %s: %v", e.Path, e.Err)
}

func (e *StagingError) Unwrap() error { return e.Err }

// ValidationError rejects input before anything is executed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
