// Package transport provides a concrete session.Transport: agent wire
// envelopes are delivered to a remote host's agent daemon over an SSH
// exec session, one session per dispatched message, grounded on
// mensylisir-kubexm's pkg/connector.SSHConnector (golang.org/x/crypto/ssh
// dial-and-exec pattern). Replies and session-lifecycle messages the
// remote agent writes back to stdout are decoded and routed into a
// Receiver, which pkg/session.Fabric satisfies without adaptation.
//
// The agent daemon itself is out of scope (spec.md names it an external
// collaborator); this package only owns getting bytes to and from it.
package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/lustrefs/manager/pkg/agentwire"
	"github.com/lustrefs/manager/pkg/logger"
	"github.com/lustrefs/manager/pkg/session"
)

// Receiver accepts inbound agent messages. *session.Fabric implements
// this exactly.
type Receiver interface {
	SessionCreate(ctx context.Context, host, plugin string, newSession session.ID)
	SessionTerminate(host, plugin string, sessionID session.ID)
	Data(host, plugin string, sessionID session.ID, body json.RawMessage) error
}

// HostConfig is one host's SSH dial parameters.
type HostConfig struct {
	Address        string `yaml:"address"`
	User           string `yaml:"user"`
	PrivateKeyPath string `yaml:"privateKeyPath"`
	AgentCommand   string `yaml:"agentCommand"`
}

// Config maps FQDNs, as they appear in document host fields, to SSH
// dial parameters.
type Config struct {
	Hosts          map[string]HostConfig
	ConnectTimeout time.Duration
}

func (c Config) agentCommand(h HostConfig, plugin string) string {
	cmd := h.AgentCommand
	if cmd == "" {
		cmd = "lctl-agentd"
	}
	return fmt.Sprintf("%s --plugin %s", cmd, plugin)
}

// SSHTransport dials one ssh.Client per host, lazily, and reuses it
// across Send calls until opening a session on it fails.
type SSHTransport struct {
	cfg      Config
	receiver Receiver
	log      *logger.Logger

	mu      sync.Mutex
	clients map[string]*ssh.Client
}

func NewSSHTransport(cfg Config, receiver Receiver, log *logger.Logger) *SSHTransport {
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 15 * time.Second
	}
	return &SSHTransport{cfg: cfg, receiver: receiver, log: log, clients: make(map[string]*ssh.Client)}
}

var _ session.Transport = (*SSHTransport)(nil)

// Send encodes msg and runs the host's agent command over a fresh SSH
// exec session, writing the envelope to its stdin. The session's stdout
// is drained on a background goroutine and any agent wire messages it
// writes back are forwarded to the Receiver.
func (t *SSHTransport) Send(ctx context.Context, host, plugin string, msg agentwire.Message) error {
	raw, err := agentwire.Encode(msg)
	if err != nil {
		return fmt.Errorf("encode %s message for %s: %w", msg.Kind(), host, err)
	}

	hc, ok := t.cfg.Hosts[host]
	if !ok {
		return fmt.Errorf("no ssh configuration for host %q", host)
	}

	client, err := t.clientFor(ctx, host, hc)
	if err != nil {
		return fmt.Errorf("dial %s: %w", host, err)
	}

	sess, err := client.NewSession()
	if err != nil {
		t.dropClient(host)
		return fmt.Errorf("open ssh session to %s: %w", host, err)
	}

	stdin, err := sess.StdinPipe()
	if err != nil {
		sess.Close()
		return fmt.Errorf("stdin pipe to %s: %w", host, err)
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		sess.Close()
		return fmt.Errorf("stdout pipe from %s: %w", host, err)
	}

	if err := sess.Start(t.cfg.agentCommand(hc, plugin)); err != nil {
		sess.Close()
		return fmt.Errorf("start agent command on %s: %w", host, err)
	}

	if _, err := stdin.Write(append(raw, '\n')); err != nil {
		sess.Close()
		return fmt.Errorf("write envelope to %s: %w", host, err)
	}
	if err := stdin.Close(); err != nil {
		sess.Close()
		return fmt.Errorf("close stdin to %s: %w", host, err)
	}

	go t.drain(host, plugin, sess, stdout)
	return nil
}

func (t *SSHTransport) drain(host, plugin string, sess *ssh.Session, stdout io.Reader) {
	defer sess.Close()

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		msg, err := agentwire.Decode(line)
		if err != nil {
			t.log.Warnw("agent wrote an undecodable line", "host", host, "plugin", plugin, "err", err)
			continue
		}
		t.route(host, plugin, msg)
	}
	if err := sess.Wait(); err != nil {
		t.log.Debugw("agent command exited", "host", host, "plugin", plugin, "err", err)
	}
}

func (t *SSHTransport) route(host, plugin string, msg agentwire.Message) {
	switch m := msg.(type) {
	case agentwire.SessionCreate:
		t.receiver.SessionCreate(context.Background(), host, plugin, session.ID(m.SessionID))
	case agentwire.SessionTerminate:
		t.receiver.SessionTerminate(host, plugin, session.ID(m.SessionID))
	case agentwire.Data:
		if err := t.receiver.Data(host, plugin, session.ID(m.SessionID), m.Body); err != nil {
			t.log.Warnw("failed to route agent data", "host", host, "plugin", plugin, "err", err)
		}
	default:
		t.log.Warnw("agent wrote an unroutable message kind", "host", host, "plugin", plugin, "kind", msg.Kind())
	}
}

func (t *SSHTransport) clientFor(ctx context.Context, host string, hc HostConfig) (*ssh.Client, error) {
	t.mu.Lock()
	if c, ok := t.clients[host]; ok {
		t.mu.Unlock()
		return c, nil
	}
	t.mu.Unlock()

	signer, err := loadSigner(hc.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("load private key for %s: %w", host, err)
	}

	cfg := &ssh.ClientConfig{
		User:            hc.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         t.cfg.ConnectTimeout,
	}

	dialCtx, cancel := context.WithTimeout(ctx, t.cfg.ConnectTimeout)
	defer cancel()

	var client *ssh.Client
	dialDone := make(chan error, 1)
	go func() {
		c, err := ssh.Dial("tcp", hc.Address, cfg)
		client = c
		dialDone <- err
	}()

	select {
	case err := <-dialDone:
		if err != nil {
			return nil, err
		}
	case <-dialCtx.Done():
		return nil, dialCtx.Err()
	}

	t.mu.Lock()
	t.clients[host] = client
	t.mu.Unlock()
	return client, nil
}

func (t *SSHTransport) dropClient(host string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.clients[host]; ok {
		c.Close()
		delete(t.clients, host)
	}
}

func loadSigner(path string) (ssh.Signer, error) {
	key, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ssh.ParsePrivateKey(key)
}
