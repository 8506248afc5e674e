package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/nao1215/tornago"
)

// DefaultTorStartupTimeout bounds how long StartTor waits for bootstrap.
const DefaultTorStartupTimeout = 3 * time.Minute

// Tor is an embedded Tor daemon whose SOCKS port can carry crawl traffic.
type Tor struct {
	process   *tornago.TorProcess
	socksAddr string
}

// StartTor launches a Tor daemon on OS-assigned ports and blocks until it
// has bootstrapped or startupTimeout elapses. Bootstrap usually takes a
// minute or more.
func StartTor(ctx context.Context, startupTimeout time.Duration) (*Tor, error) {
	if startupTimeout <= 0 {
		startupTimeout = DefaultTorStartupTimeout
	}

	launchCfg, err := tornago.NewTorLaunchConfig(
		tornago.WithTorSocksAddr(":0"),
		tornago.WithTorControlAddr(":0"),
		tornago.WithTorStartupTimeout(startupTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Tor launch config: %w", err)
	}

	process, err := tornago.StartTorDaemon(launchCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to start embedded Tor daemon: %w", err)
	}

	if err := ctx.Err(); err != nil {
		_ = process.Stop() //nolint:errcheck // best effort cleanup
		return nil, err
	}

	return &Tor{process: process, socksAddr: process.SocksAddr()}, nil
}

// SocksAddr returns the daemon's SOCKS5 address, or "" once stopped.
func (t *Tor) SocksAddr() string {
	if t == nil || t.process == nil {
		return ""
	}
	return t.socksAddr
}

// IsRunning reports whether the daemon is still running.
func (t *Tor) IsRunning() bool {
	return t != nil && t.process != nil
}

// NewClient returns a Client that routes requests through the daemon.
func (t *Tor) NewClient(opts ...Option) (*Client, error) {
	if !t.IsRunning() {
		return nil, ErrTorNotRunning
	}
	return NewClient(append(opts, WithProxy(t.socksAddr))...)
}

// Stop shuts the daemon down. It is safe to call more than once.
func (t *Tor) Stop() error {
	if t == nil || t.process == nil {
		return nil
	}
	err := t.process.Stop()
	t.process = nil
	t.socksAddr = ""
	return err
}
