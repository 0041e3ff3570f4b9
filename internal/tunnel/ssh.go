// Package tunnel reaches the telemetry database through an SSH jump host.
// Connections are opened as direct-tcpip channels on one shared client,
// which is re-dialed when it drops.
package tunnel

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

type SSH struct {
	Host                        string
	Port                        string
	User                        string
	KeyPath                     string
	KnownHostsPath              string
	InsecureSkipHostKeyChecking bool
	Timeout                     time.Duration
	Logger                      *slog.Logger

	mu     sync.Mutex
	client *ssh.Client
}

// DialContext opens addr as seen from the SSH host. Its signature matches
// pgconn.DialFunc.
func (t *SSH) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	client, err := t.connect()
	if err != nil {
		return nil, err
	}
	conn, err := client.DialContext(ctx, network, addr)
	if err == nil {
		return conn, nil
	}

	// the shared client may have died since the last dial; retry once fresh
	t.reset(client)
	client, cerr := t.connect()
	if cerr != nil {
		return nil, fmt.Errorf("ssh dial %s: %w", addr, err)
	}
	conn, err = client.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("ssh dial %s: %w", addr, err)
	}
	return conn, nil
}

func (t *SSH) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}

func (t *SSH) connect() (*ssh.Client, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client != nil {
		return t.client, nil
	}
	client, err := t.dial()
	if err != nil {
		return nil, err
	}
	t.client = client
	if t.Logger != nil {
		t.Logger.Info("ssh tunnel connected", "host", client.RemoteAddr().String(), "user", t.User)
	}
	go func() {
		err := client.Wait()
		t.reset(client)
		if t.Logger != nil {
			t.Logger.Warn("ssh tunnel closed", "err", err)
		}
	}()
	return client, nil
}

func (t *SSH) reset(c *ssh.Client) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == c {
		_ = c.Close()
		t.client = nil
	}
}

func (t *SSH) dial() (*ssh.Client, error) {
	address, err := t.address()
	if err != nil {
		return nil, err
	}
	config, err := t.clientConfig()
	if err != nil {
		return nil, err
	}

	timeout := t.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return nil, fmt.Errorf("ssh connect %s: %w", address, err)
	}
	clientConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake %s: %w", address, err)
	}
	return ssh.NewClient(clientConn, chans, reqs), nil
}

func (t *SSH) address() (string, error) {
	host := strings.TrimSpace(t.Host)
	if host == "" {
		return "", fmt.Errorf("ssh host is required")
	}
	if t.Port != "" {
		return net.JoinHostPort(host, t.Port), nil
	}
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host, nil
	}
	return net.JoinHostPort(host, "22"), nil
}

func (t *SSH) clientConfig() (*ssh.ClientConfig, error) {
	if t.User == "" {
		return nil, fmt.Errorf("ssh user is required")
	}
	signer, err := t.signer()
	if err != nil {
		return nil, err
	}

	var hostKeyCallback ssh.HostKeyCallback
	if t.InsecureSkipHostKeyChecking {
		hostKeyCallback = ssh.InsecureIgnoreHostKey()
	} else {
		callback, err := t.knownHostsCallback()
		if err != nil {
			return nil, err
		}
		hostKeyCallback = callback
	}

	return &ssh.ClientConfig{
		User:            t.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         t.Timeout,
	}, nil
}

func (t *SSH) signer() (ssh.Signer, error) {
	if t.KeyPath == "" {
		return nil, fmt.Errorf("ssh key path is required")
	}
	privateKey, err := os.ReadFile(t.KeyPath)
	if err != nil {
		return nil, err
	}
	return ssh.ParsePrivateKey(privateKey)
}

func (t *SSH) knownHostsCallback() (ssh.HostKeyCallback, error) {
	path := strings.TrimSpace(t.KnownHostsPath)
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("known hosts path not set and home dir unavailable")
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}
	return knownhosts.New(path)
}
