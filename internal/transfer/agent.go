package transfer

import (
	"context"
	"errors"
	"fmt"

	"eeapi/internal/types"
)

// Agent moves one local file to a destination path on the execution
// target. Destination failures come back as a non-zero TransferResult; the
// error is reserved for a *types.TransportError.
type Agent interface {
	Transfer(ctx context.Context, req types.TransferRequest) (types.TransferResult, error)
}

// Uploader pushes a file over SSH. *sshclient.SSHClient implements it.
type Uploader interface {
	UploadSCP(ctx context.Context, localPath, remotePath string) (types.TransferResult, error)
	UploadSFTP(ctx context.Context, localPath, remotePath string) (types.TransferResult, error)
}

// New picks the agent for target once. uploader is required for remote
// targets and ignored otherwise.
func New(target types.ExecutionTarget, uploader Uploader) (Agent, error) {
	if !target.IsRemote() {
		return &LocalAgent{}, nil
	}
	if uploader == nil {
		return nil, errors.New("remote transfer requires an ssh client")
	}
	switch target.TransferProtocol {
	case "", types.ProtocolSCP:
		return &RemoteAgent{protocol: types.ProtocolSCP, uploader: uploader}, nil
	case types.ProtocolSFTP:
		return &RemoteAgent{protocol: types.ProtocolSFTP, uploader: uploader}, nil
	default:
		return nil, fmt.Errorf("unknown transfer protocol %q", target.TransferProtocol)
	}
}

func validate(req types.TransferRequest) *types.TransferResult {
	if req.SourcePath == "" || req.DestinationPath == "" {
		return &types.TransferResult{Code: 1, Msg: "source and destination paths are required"}
	}
	return nil
}
