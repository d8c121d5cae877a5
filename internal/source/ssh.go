package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SSHConfig holds SSH connection settings for a cluster node.
type SSHConfig struct {
	Addr           string // host:port
	User           string
	KeyPath        string
	KnownHostsPath string // empty disables host key checking
}

// SSHRunner runs commands on a cluster node over SSH, one connection per
// command.
type SSHRunner struct {
	addr   string
	config *ssh.ClientConfig
}

// NewSSHRunner creates a runner for the given node. The key and known_hosts
// file are read once here rather than on every command.
func NewSSHRunner(cfg SSHConfig) (*SSHRunner, error) {
	keyBytes, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading SSH key %s: %w", cfg.KeyPath, err)
	}
	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing SSH key %s: %w", cfg.KeyPath, err)
	}

	hostKey := ssh.InsecureIgnoreHostKey() //nolint:gosec // opt-in via known_hosts_path
	if cfg.KnownHostsPath != "" {
		hostKey, err = knownhosts.New(cfg.KnownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("loading known hosts %s: %w", cfg.KnownHostsPath, err)
		}
	}

	return &SSHRunner{
		addr: cfg.Addr,
		config: &ssh.ClientConfig{
			User:            cfg.User,
			Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
			HostKeyCallback: hostKey,
			Timeout:         10 * time.Second,
		},
	}, nil
}

// Addr returns the host:port the runner dials.
func (r *SSHRunner) Addr() string { return r.addr }

func (r *SSHRunner) Run(ctx context.Context, cmd string) (Result, error) {
	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", r.addr)
	if err != nil {
		return Result{}, fmt.Errorf("connecting to %s: %w", r.addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, r.addr, r.config)
	if err != nil {
		conn.Close()
		return Result{}, fmt.Errorf("SSH handshake with %s: %w", r.addr, err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)
	defer client.Close()

	// The session does not watch ctx; closing the client unblocks Run.
	stop := context.AfterFunc(ctx, func() { client.Close() })
	defer stop()

	session, err := client.NewSession()
	if err != nil {
		return Result{}, fmt.Errorf("creating SSH session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	err = session.Run(cmd)
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if ctx.Err() != nil {
		return res, fmt.Errorf("running %q on %s: %w", cmd, r.addr, ctx.Err())
	}
	var exitErr *ssh.ExitError
	switch {
	case err == nil:
		return res, nil
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitStatus()
		return res, nil
	default:
		return res, fmt.Errorf("running %q on %s: %w", cmd, r.addr, err)
	}
}
