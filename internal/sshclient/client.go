package sshclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"eeapi/internal/logging"
	"eeapi/internal/types"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

const defaultDialTimeout = 30 * time.Second

// SSHClient is one shared connection to the eeadm host. It connects on first
// use, serializes every command and transfer, and reconnects when a
// keepalive probe shows the connection is gone.
type SSHClient struct {
	mu        sync.Mutex
	config    *ssh.ClientConfig
	host      string
	port      string
	timeout   time.Duration
	client    *ssh.Client
	sftp      *sftp.Client
	agentConn net.Conn
}

// NewSSHClient prepares a client for target. Authentication material is
// loaded here; no network traffic happens until the first command.
func NewSSHClient(target types.ExecutionTarget) (*SSHClient, error) {
	c := &SSHClient{
		host:    target.RemoteHost,
		port:    strconv.Itoa(target.RemotePort),
		timeout: target.DialTimeout,
	}
	if c.timeout <= 0 {
		c.timeout = defaultDialTimeout
	}

	var authMethods []ssh.AuthMethod
	if target.PrivateKeyPath != "" {
		signer, err := loadSigner(target.PrivateKeyPath, target.KeyPassphrase)
		if err != nil {
			// Agent auth can still succeed without the key file.
			if !target.UseAgent {
				return nil, &types.TransportError{Host: c.host, Op: "auth", Err: err}
			}
			logging.Warn("private key unusable, relying on ssh-agent", map[string]interface{}{"path": target.PrivateKeyPath, "err": err})
		} else {
			authMethods = append(authMethods, ssh.PublicKeys(signer))
		}
	}
	if target.UseAgent {
		if m, conn := agentAuth(); m != nil {
			authMethods = append(authMethods, m)
			c.agentConn = conn
		}
	}
	if len(authMethods) == 0 {
		return nil, &types.TransportError{Host: c.host, Op: "auth", Err: errors.New("no authentication method configured (provide a private key or enable ssh-agent)")}
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if target.KnownHostsPath != "" {
		cb, err := knownhosts.New(target.KnownHostsPath)
		if err != nil {
			return nil, &types.TransportError{Host: c.host, Op: "known_hosts", Err: err}
		}
		hostKeyCallback = cb
	} else {
		logging.Debug("host key verification disabled", map[string]interface{}{"host": c.host})
	}

	c.config = &ssh.ClientConfig{
		User:            target.RemoteUser,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         c.timeout,
	}
	return c, nil
}

// loadSigner loads a private key with optional passphrase
func loadSigner(path, passphrase string) (ssh.Signer, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read private key: %w", err)
	}
	if passphrase != "" {
		return ssh.ParsePrivateKeyWithPassphrase(b, []byte(passphrase))
	}
	s, err := ssh.ParsePrivateKey(b)
	if err == nil {
		return s, nil
	}
	var passphraseMissingError *ssh.PassphraseMissingError
	if errors.As(err, &passphraseMissingError) {
		return nil, fmt.Errorf("private key %s is encrypted; set ssh.passphrase", path)
	}
	return nil, fmt.Errorf("unable to parse private key: %w", err)
}

func agentAuth() (ssh.AuthMethod, net.Conn) {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		logging.Warn("ssh-agent requested but SSH_AUTH_SOCK is not set", nil)
		return nil, nil
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		logging.Warn("failed to reach ssh-agent", map[string]interface{}{"err": err})
		return nil, nil
	}
	return ssh.PublicKeysCallback(agent.NewClient(conn).Signers), conn
}

// Host returns host:port.
func (c *SSHClient) Host() string {
	return net.JoinHostPort(c.host, c.port)
}

func (c *SSHClient) connect(ctx context.Context) error {
	addr := c.Host()
	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return &types.TransportError{Host: addr, Op: "dial", Err: err}
	}
	_ = conn.SetDeadline(time.Now().Add(c.timeout))
	ncc, chans, reqs, err := ssh.NewClientConn(conn, addr, c.config)
	if err != nil {
		conn.Close()
		return &types.TransportError{Host: addr, Op: "handshake", Err: err}
	}
	_ = conn.SetDeadline(time.Time{})
	c.client = ssh.NewClient(ncc, chans, reqs)
	logging.Debug("ssh connected", map[string]interface{}{"host": addr, "user": c.config.User})
	return nil
}

// ensureConnected must be called with mu held.
func (c *SSHClient) ensureConnected(ctx context.Context) error {
	if c.client != nil {
		if _, _, err := c.client.SendRequest("keepalive@openssh.com", true, nil); err == nil {
			return nil
		}
		logging.Warn("ssh connection lost, reconnecting", map[string]interface{}{"host": c.Host()})
		c.dropLocked()
	}
	return c.connect(ctx)
}

func (c *SSHClient) dropLocked() {
	if c.sftp != nil {
		c.sftp.Close()
		c.sftp = nil
	}
	if c.client != nil {
		c.client.Close()
		c.client = nil
	}
}

// Close closes the SSH connection
func (c *SSHClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var err error
	if c.sftp != nil {
		err = c.sftp.Close()
		c.sftp = nil
	}
	if c.client != nil {
		if cerr := c.client.Close(); cerr != nil && err == nil {
			err = cerr
		}
		c.client = nil
	}
	if c.agentConn != nil {
		c.agentConn.Close()
		c.agentConn = nil
	}
	return err
}

// lockedBuffer lets a session write stdout and stderr into one buffer from
// its two copy goroutines.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

// RunCombined runs cmd in a new session and returns its exit status and
// combined stdout and stderr. A non-zero exit status is not an error; the
// error is always a *types.TransportError.
func (c *SSHClient) RunCombined(ctx context.Context, cmd string, usePty bool) (int, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureConnected(ctx); err != nil {
		return -1, nil, err
	}
	return c.run(ctx, cmd, usePty)
}

// run must be called with mu held and a live connection.
func (c *SSHClient) run(ctx context.Context, cmd string, usePty bool) (int, []byte, error) {
	session, err := c.client.NewSession()
	if err != nil {
		c.dropLocked()
		return -1, nil, &types.TransportError{Host: c.Host(), Op: "session", Err: err}
	}
	defer session.Close()

	if usePty {
		modes := ssh.TerminalModes{
			ssh.ECHO:          0,
			ssh.TTY_OP_ISPEED: 14400,
			ssh.TTY_OP_OSPEED: 14400,
		}
		if err := session.RequestPty("xterm", 40, 80, modes); err != nil {
			return -1, nil, &types.TransportError{Host: c.Host(), Op: "pty", Err: err}
		}
	}

	var out lockedBuffer
	session.Stdout = &out
	session.Stderr = &out

	if err := session.Start(cmd); err != nil {
		return -1, nil, &types.TransportError{Host: c.Host(), Op: "exec", Err: fmt.Errorf("failed to start command: %w", err)}
	}

	doneCh := make(chan error, 1)
	go func() {
		doneCh <- session.Wait()
	}()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		session.Close()
		select {
		case <-doneCh:
		case <-time.After(time.Second):
		}
		return -1, out.Bytes(), &types.TransportError{Host: c.Host(), Op: "exec", Err: ctx.Err()}
	case err := <-doneCh:
		return c.exitStatus(err, out.Bytes())
	}
}

func (c *SSHClient) exitStatus(err error, output []byte) (int, []byte, error) {
	if err == nil {
		return 0, output, nil
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitStatus(), output, nil
	}
	var missing *ssh.ExitMissingError
	if errors.As(err, &missing) {
		return -1, output, &types.TransportError{Host: c.Host(), Op: "exec", Err: err}
	}
	c.dropLocked()
	return -1, output, &types.TransportError{Host: c.Host(), Op: "exec", Err: err}
}
