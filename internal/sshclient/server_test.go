package sshclient

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"eeapi/internal/types"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// noStatusCommand makes the test server close the channel without sending
// an exit status.
const noStatusCommand = "__no_exit_status__"

// testServer is an in-process SSH server that runs exec requests through the
// local /bin/sh and serves the sftp subsystem from the local file system.
type testServer struct {
	addr         string
	ln           net.Listener
	config       *ssh.ServerConfig
	ptyRequested atomic.Bool
	wg           sync.WaitGroup
}

type testKey struct {
	path   string
	signer ssh.Signer
}

func newTestKey(t *testing.T, passphrase string) testKey {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	var block *pem.Block
	if passphrase != "" {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(priv, "", []byte(passphrase))
	} else {
		block, err = ssh.MarshalPrivateKey(priv, "")
	}
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "id_ed25519")
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0600); err != nil {
		t.Fatal(err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatal(err)
	}
	return testKey{path: path, signer: signer}
}

func startTestServer(t *testing.T, authorized ssh.PublicKey) *testServer {
	t.Helper()
	_, hostPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	hostSigner, err := ssh.NewSignerFromKey(hostPriv)
	if err != nil {
		t.Fatal(err)
	}
	cfg := &ssh.ServerConfig{
		PublicKeyCallback: func(_ ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if bytes.Equal(key.Marshal(), authorized.Marshal()) {
				return nil, nil
			}
			return nil, errors.New("unauthorized key")
		},
	}
	cfg.AddHostKey(hostSigner)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s := &testServer{addr: ln.Addr().String(), ln: ln, config: cfg}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go s.handleConn(conn)
		}
	}()
	t.Cleanup(func() {
		ln.Close()
		s.wg.Wait()
	})
	return s
}

func (s *testServer) target(key testKey) types.ExecutionTarget {
	host, port, _ := net.SplitHostPort(s.addr)
	p, _ := strconv.Atoi(port)
	return types.ExecutionTarget{
		Mode:           types.ModeRemote,
		RemoteHost:     host,
		RemotePort:     p,
		RemoteUser:     "eeadmin",
		PrivateKeyPath: key.path,
		DialTimeout:    5 * time.Second,
	}
}

func (s *testServer) handleConn(raw net.Conn) {
	sc, chans, reqs, err := ssh.NewServerConn(raw, s.config)
	if err != nil {
		raw.Close()
		return
	}
	defer sc.Close()
	go ssh.DiscardRequests(reqs)
	for ch := range chans {
		if ch.ChannelType() != "session" {
			ch.Reject(ssh.UnknownChannelType, "")
			continue
		}
		c, reqs, err := ch.Accept()
		if err != nil {
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleSession(c, reqs)
		}()
	}
}

func (s *testServer) handleSession(ch ssh.Channel, in <-chan *ssh.Request) {
	var (
		mu  sync.Mutex
		cmd *exec.Cmd
	)
	for req := range in {
		switch req.Type {
		case "pty-req":
			s.ptyRequested.Store(true)
			req.Reply(true, nil)
		case "exec":
			var payload struct{ Command string }
			if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
				req.Reply(false, nil)
				continue
			}
			req.Reply(true, nil)
			if payload.Command == noStatusCommand {
				ch.Close()
				continue
			}
			c := exec.Command("/bin/sh", "-c", payload.Command)
			c.Stdin = ch
			c.Stdout = ch
			c.Stderr = ch.Stderr()
			c.WaitDelay = time.Second
			mu.Lock()
			cmd = c
			mu.Unlock()
			go func() {
				status := 0
				if err := c.Run(); err != nil {
					var exitErr *exec.ExitError
					if errors.As(err, &exitErr) {
						status = exitErr.ExitCode()
					} else {
						status = 127
					}
				}
				ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{uint32(status)}))
				ch.Close()
			}()
		case "signal":
			mu.Lock()
			if cmd != nil && cmd.Process != nil {
				cmd.Process.Kill()
			}
			mu.Unlock()
		case "subsystem":
			var payload struct{ Name string }
			ssh.Unmarshal(req.Payload, &payload)
			if payload.Name != "sftp" {
				req.Reply(false, nil)
				continue
			}
			req.Reply(true, nil)
			go func() {
				server, err := sftp.NewServer(ch)
				if err != nil {
					ch.Close()
					return
				}
				server.Serve()
				server.Close()
			}()
		default:
			if req.WantReply {
				req.Reply(false, nil)
			}
		}
	}
}
