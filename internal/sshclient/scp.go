package sshclient

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"eeapi/internal/logging"
	"eeapi/internal/types"
	"eeapi/internal/util"
)

const scpAckTimeout = 10 * time.Second

// scpRemoteError is a protocol-level refusal from the remote scp, which is
// reported as a non-zero TransferResult rather than a transport failure.
type scpRemoteError struct {
	code int
	msg  string
}

func (e *scpRemoteError) Error() string { return "scp remote error: " + e.msg }

// UploadSCP pushes localPath to remotePath by driving `scp -t` over a
// session. Remote refusals (permission denied, missing directory) come back
// as a TransferResult with a non-zero Code.
func (c *SSHClient) UploadSCP(ctx context.Context, localPath, remotePath string) (types.TransferResult, error) {
	remotePath = path.Clean(strings.ReplaceAll(remotePath, "\\", "/"))

	localFile, err := os.Open(localPath)
	if err != nil {
		return types.TransferResult{Code: 1, Msg: fmt.Sprintf("failed to open local file: %v", err)}, nil
	}
	defer localFile.Close()

	stat, err := localFile.Stat()
	if err != nil {
		return types.TransferResult{Code: 1, Msg: fmt.Sprintf("failed to stat local file: %v", err)}, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureConnected(ctx); err != nil {
		return types.TransferResult{}, err
	}

	remoteDir := path.Dir(remotePath)
	code, out, err := c.run(ctx, "mkdir -p "+util.ShellEscape(remoteDir), false)
	if err != nil {
		return types.TransferResult{}, err
	}
	if code != 0 {
		return types.TransferResult{Code: code, Msg: strings.TrimSpace(string(out))}, nil
	}

	session, err := c.client.NewSession()
	if err != nil {
		c.dropLocked()
		return types.TransferResult{}, &types.TransportError{Host: c.Host(), Op: "session", Err: err}
	}
	defer session.Close()

	stdin, err := session.StdinPipe()
	if err != nil {
		return types.TransferResult{}, &types.TransportError{Host: c.Host(), Op: "scp", Err: fmt.Errorf("failed to get stdin pipe: %w", err)}
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		return types.TransferResult{}, &types.TransportError{Host: c.Host(), Op: "scp", Err: fmt.Errorf("failed to get stdout pipe: %w", err)}
	}
	var stderr lockedBuffer
	session.Stderr = &stderr

	cmd := "scp -t " + util.ShellEscape(remoteDir)
	logging.Debug("starting remote scp", map[string]interface{}{"cmd": cmd, "host": c.Host()})
	if err := session.Start(cmd); err != nil {
		return types.TransferResult{}, &types.TransportError{Host: c.Host(), Op: "scp", Err: fmt.Errorf("failed to start scp on remote: %w", err)}
	}

	reader := bufio.NewReader(stdout)
	fail := func(err error) (types.TransferResult, error) {
		stdin.Close()
		if re, ok := err.(*scpRemoteError); ok {
			session.Wait()
			return types.TransferResult{Code: re.code, Msg: re.msg}, nil
		}
		session.Close()
		session.Wait()
		return types.TransferResult{}, &types.TransportError{Host: c.Host(), Op: "scp", Err: err}
	}

	if err := readAck(ctx, reader); err != nil {
		return fail(err)
	}

	fmt.Fprintf(stdin, "C%04o %d %s\n", stat.Mode().Perm(), stat.Size(), path.Base(remotePath))
	if err := readAck(ctx, reader); err != nil {
		return fail(err)
	}

	if _, err := io.Copy(stdin, localFile); err != nil {
		return fail(fmt.Errorf("failed to send file data: %w", err))
	}
	if _, err := stdin.Write([]byte{0}); err != nil {
		return fail(fmt.Errorf("failed to send scp terminator: %w", err))
	}
	if err := readAck(ctx, reader); err != nil {
		return fail(err)
	}

	stdin.Close()
	code, _, err = c.exitStatus(session.Wait(), nil)
	if err != nil {
		return types.TransferResult{}, err
	}
	if code != 0 {
		msg := strings.TrimSpace(string(stderr.Bytes()))
		if msg == "" {
			msg = fmt.Sprintf("remote scp exited with status %d", code)
		}
		return types.TransferResult{Code: code, Msg: msg}, nil
	}
	return types.TransferResult{Code: 0, Msg: "transferred " + remotePath}, nil
}

// readAck reads one scp acknowledgement. 0 is success; 1 and 2 carry a
// message line on the same stream.
func readAck(ctx context.Context, r *bufio.Reader) error {
	ch := make(chan error, 1)
	go func() {
		b, err := r.ReadByte()
		if err != nil {
			ch <- fmt.Errorf("failed to read scp ack: %w", err)
			return
		}
		switch b {
		case 0:
			ch <- nil
		case 1, 2:
			line, _ := r.ReadString('\n')
			ch <- &scpRemoteError{code: int(b), msg: strings.TrimSpace(line)}
		default:
			ch <- fmt.Errorf("unknown scp ack: %v", b)
		}
	}()

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(scpAckTimeout):
		return fmt.Errorf("timeout waiting for scp ack")
	}
}
