package sshexec

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/creamcroissant/monitord/internal/config"
	"golang.org/x/crypto/ssh"
)

// Executor dials monitored hosts over SSH and runs bounded-timeout commands
// against them, the same shape as the original collector/heartbeat-checker's
// paramiko usage: one signer loaded once at startup, AutoAddPolicy-equivalent
// host key handling, per-call timeouts.
type Executor struct {
	signer         ssh.Signer
	connectTimeout time.Duration
	commandTimeout time.Duration
}

// New loads the configured private key and returns an Executor. A missing
// key file is not an error here: password-auth bootstrap still works via
// BootstrapWithPassword, matching the original's "key optional, fall back
// to agent/known host auth" posture.
func New(cfg config.SSHConfig) (*Executor, error) {
	e := &Executor{
		connectTimeout: cfg.ConnectTimeout,
		commandTimeout: cfg.CommandTimeout,
	}
	if e.connectTimeout == 0 {
		e.connectTimeout = 10 * time.Second
	}
	if e.commandTimeout == 0 {
		e.commandTimeout = 90 * time.Second
	}
	if cfg.PrivateKeyPath == "" {
		return e, nil
	}
	keyBytes, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		if os.IsNotExist(err) {
			return e, nil
		}
		return nil, fmt.Errorf("read ssh private key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("parse ssh private key: %w", err)
	}
	e.signer = signer
	return e, nil
}

// Target identifies the remote endpoint and credentials for one host.
type Target struct {
	Address  string
	Port     int
	Username string
	Password string // only used by BootstrapWithPassword
}

func (e *Executor) dial(ctx context.Context, target Target, auth []ssh.AuthMethod) (*ssh.Client, error) {
	clientConfig := &ssh.ClientConfig{
		User:            target.Username,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         e.connectTimeout,
	}

	addr := net.JoinHostPort(target.Address, portString(target.Port))
	dialer := net.Dialer{Timeout: e.connectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, newError(KindUnreachable, target.Address, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, clientConfig)
	if err != nil {
		conn.Close()
		if strings.Contains(err.Error(), "unable to authenticate") {
			return nil, newError(KindAuthFailed, target.Address, err)
		}
		return nil, newError(KindUnreachable, target.Address, err)
	}
	return ssh.NewClient(sshConn, chans, reqs), nil
}

// Dial opens a key-authenticated session against target, the steady-state
// path used by every scheduled probe once a host's key has been deployed.
func (e *Executor) Dial(ctx context.Context, target Target) (*ssh.Client, error) {
	if e.signer == nil {
		return nil, newError(KindAuthFailed, target.Address, fmt.Errorf("no ssh key configured"))
	}
	return e.dial(ctx, target, []ssh.AuthMethod{ssh.PublicKeys(e.signer)})
}

// BootstrapWithPassword opens a password-authenticated session, used once
// per host to install the operator's public key, then never again.
func (e *Executor) BootstrapWithPassword(ctx context.Context, target Target) (*ssh.Client, error) {
	return e.dial(ctx, target, []ssh.AuthMethod{ssh.Password(target.Password)})
}

// Exec runs command on client and returns combined stdout/stderr, bounded
// by the executor's command timeout.
func (e *Executor) Exec(ctx context.Context, client *ssh.Client, target Target, command string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.commandTimeout)
	defer cancel()

	session, err := client.NewSession()
	if err != nil {
		return "", newError(KindRemoteExecFailed, target.Address, err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case <-ctx.Done():
		session.Signal(ssh.SIGKILL)
		return "", newError(KindTimeout, target.Address, ctx.Err())
	case err := <-done:
		if err != nil {
			return stdout.String(), newError(KindRemoteExecFailed, target.Address, fmt.Errorf("%w: %s", err, stderr.String()))
		}
		return stdout.String(), nil
	}
}

// ExecWithStdin runs command on client, feeding stdin to the remote
// process, the path used to ship the probe script without a separate
// SFTP round trip (`python3 - <<script>>`).
func (e *Executor) ExecWithStdin(ctx context.Context, client *ssh.Client, target Target, command, stdin string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.commandTimeout)
	defer cancel()

	session, err := client.NewSession()
	if err != nil {
		return "", newError(KindRemoteExecFailed, target.Address, err)
	}
	defer session.Close()

	session.Stdin = strings.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case <-ctx.Done():
		session.Signal(ssh.SIGKILL)
		return "", newError(KindTimeout, target.Address, ctx.Err())
	case err := <-done:
		if err != nil {
			return stdout.String(), newError(KindRemoteExecFailed, target.Address, fmt.Errorf("%w: %s", err, stderr.String()))
		}
		return stdout.String(), nil
	}
}

// EnsureProbeDependencies tries an ordered list of install commands until
// one succeeds, mirroring collect_metrics.py's reliance on a pre-installed
// psutil and check_heartbeats_ssh.py's tolerance of a missing one.
func (e *Executor) EnsureProbeDependencies(ctx context.Context, client *ssh.Client, target Target) error {
	candidates := []string{
		"python3 -c 'import psutil' 2>/dev/null",
		"pip3 install --user psutil",
		"python3 -m pip install --user psutil",
		"sudo apt-get install -y python3-psutil",
	}
	for _, cmd := range candidates {
		if _, err := e.Exec(ctx, client, target, cmd); err == nil {
			return nil
		}
	}
	return newError(KindDependencyMissing, target.Address, fmt.Errorf("unable to ensure psutil is installed"))
}

func portString(port int) string {
	if port == 0 {
		port = 22
	}
	return fmt.Sprintf("%d", port)
}
