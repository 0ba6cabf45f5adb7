package sshexec

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"
)

// PublicKeyLine returns the authorized_keys line for the executor's own
// signer, so a caller can append it to a freshly-bootstrapped host.
func (e *Executor) PublicKeyLine() (string, error) {
	if e.signer == nil {
		return "", fmt.Errorf("sshexec: no key configured")
	}
	marshaled := ssh.MarshalAuthorizedKey(e.signer.PublicKey())
	return strings.TrimSpace(string(marshaled)), nil
}

// Bootstrap connects with password auth, appends the executor's public key
// to ~/.ssh/authorized_keys, and returns once key-based auth is confirmed
// working. This runs exactly once per host, at registration time.
func (e *Executor) Bootstrap(ctx context.Context, target Target) error {
	pubKeyLine, err := e.PublicKeyLine()
	if err != nil {
		return err
	}

	client, err := e.BootstrapWithPassword(ctx, target)
	if err != nil {
		return err
	}
	defer client.Close()

	installCmd := fmt.Sprintf(
		`mkdir -p ~/.ssh && chmod 700 ~/.ssh && grep -qxF '%s' ~/.ssh/authorized_keys 2>/dev/null || echo '%s' >> ~/.ssh/authorized_keys && chmod 600 ~/.ssh/authorized_keys`,
		pubKeyLine, pubKeyLine,
	)
	if _, err := e.Exec(ctx, client, target, installCmd); err != nil {
		return fmt.Errorf("install public key: %w", err)
	}

	verifyClient, err := e.Dial(ctx, target)
	if err != nil {
		return fmt.Errorf("verify key-based auth: %w", err)
	}
	verifyClient.Close()
	return nil
}
