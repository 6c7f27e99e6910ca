package transfer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"eeapi/internal/logging"
	"eeapi/internal/types"
)

// LocalAgent copies files on this host.
type LocalAgent struct{}

func (a *LocalAgent) Transfer(ctx context.Context, req types.TransferRequest) (types.TransferResult, error) {
	if res := validate(req); res != nil {
		return *res, nil
	}
	if err := ctx.Err(); err != nil {
		return types.TransferResult{}, &types.TransportError{Host: "localhost", Op: "copy", Err: err}
	}

	if filepath.Clean(req.SourcePath) == filepath.Clean(req.DestinationPath) {
		return types.TransferResult{Code: 0, Msg: "source and destination are the same file"}, nil
	}
	if err := copyFile(req.SourcePath, req.DestinationPath); err != nil {
		logging.Warn("local copy failed", map[string]interface{}{"src": req.SourcePath, "dst": req.DestinationPath, "err": err})
		return types.TransferResult{Code: 1, Msg: err.Error()}, nil
	}
	logging.Debug("file copied", map[string]interface{}{"src": req.SourcePath, "dst": req.DestinationPath})
	return types.TransferResult{Code: 0, Msg: "copied " + req.DestinationPath}, nil
}

// copyFile copies a single file
func copyFile(source, destination string) error {
	destDir := filepath.Dir(destination)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("failed to create destination directory %s: %w", destDir, err)
	}

	srcFile, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", source, err)
	}
	defer srcFile.Close()

	info, err := srcFile.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat source file %s: %w", source, err)
	}

	destFile, err := os.OpenFile(destination, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", destination, err)
	}

	if _, err := io.Copy(destFile, srcFile); err != nil {
		destFile.Close()
		return fmt.Errorf("failed to copy file %s to %s: %w", source, destination, err)
	}
	if err := destFile.Close(); err != nil {
		return fmt.Errorf("failed to close destination file %s: %w", destination, err)
	}
	return nil
}
