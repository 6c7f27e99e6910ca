package sshclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"eeapi/internal/types"

	"github.com/pkg/sftp"
)

// Codes used for sftp failures that carry no server status code.
const (
	sftpCodeFailure    = 1
	sftpCodeNoSuchFile = 2
	sftpCodePermission = 3
)

func (c *SSHClient) ensureSftp() error {
	if c.sftp != nil {
		return nil
	}
	client, err := sftp.NewClient(c.client)
	if err != nil {
		return &types.TransportError{Host: c.Host(), Op: "sftp", Err: err}
	}
	c.sftp = client
	return nil
}

// UploadSFTP pushes localPath to remotePath through the sftp subsystem,
// creating parent directories. File system refusals on the remote side are
// returned as a non-zero TransferResult.
func (c *SSHClient) UploadSFTP(ctx context.Context, localPath, remotePath string) (types.TransferResult, error) {
	localFile, err := os.Open(localPath)
	if err != nil {
		return types.TransferResult{Code: sftpCodeFailure, Msg: fmt.Sprintf("failed to open local file: %v", err)}, nil
	}
	defer localFile.Close()
	stat, err := localFile.Stat()
	if err != nil {
		return types.TransferResult{Code: sftpCodeFailure, Msg: fmt.Sprintf("failed to stat local file: %v", err)}, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureConnected(ctx); err != nil {
		return types.TransferResult{}, err
	}
	if err := c.ensureSftp(); err != nil {
		return types.TransferResult{}, err
	}

	if dir := path.Dir(remotePath); dir != "." && dir != "/" {
		if err := c.sftp.MkdirAll(dir); err != nil {
			return c.sftpResult(fmt.Errorf("failed to create parent directory %s: %w", dir, err))
		}
	}

	file, err := c.sftp.Create(remotePath)
	if err != nil {
		return c.sftpResult(fmt.Errorf("failed to create remote file %s: %w", remotePath, err))
	}

	done := make(chan error, 1)
	go func() {
		_, err := io.Copy(file, localFile)
		if cerr := file.Close(); err == nil {
			err = cerr
		}
		done <- err
	}()
	select {
	case <-ctx.Done():
		c.dropLocked()
		return types.TransferResult{}, &types.TransportError{Host: c.Host(), Op: "sftp", Err: ctx.Err()}
	case err := <-done:
		if err != nil {
			return c.sftpResult(fmt.Errorf("failed to write remote file %s: %w", remotePath, err))
		}
	}

	if err := c.sftp.Chmod(remotePath, stat.Mode().Perm()); err != nil {
		return c.sftpResult(fmt.Errorf("failed to chmod remote file %s: %w", remotePath, err))
	}
	return types.TransferResult{Code: 0, Msg: "transferred " + remotePath}, nil
}

// sftpResult sorts an sftp error into a remote file system refusal or a
// broken connection.
func (c *SSHClient) sftpResult(err error) (types.TransferResult, error) {
	switch {
	case errors.Is(err, os.ErrPermission):
		return types.TransferResult{Code: sftpCodePermission, Msg: err.Error()}, nil
	case errors.Is(err, os.ErrNotExist):
		return types.TransferResult{Code: sftpCodeNoSuchFile, Msg: err.Error()}, nil
	}
	var status *sftp.StatusError
	if errors.As(err, &status) {
		code := int(status.Code)
		if code == 0 {
			code = sftpCodeFailure
		}
		return types.TransferResult{Code: code, Msg: err.Error()}, nil
	}
	c.dropLocked()
	return types.TransferResult{}, &types.TransportError{Host: c.Host(), Op: "sftp", Err: err}
}
