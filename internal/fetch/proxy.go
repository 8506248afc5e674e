package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"
)

const (
	socks5Version  = 0x05
	socks5AuthNone = 0x00

	checkProxyTimeout = 2 * time.Second
)

// CheckProxy verifies that a SOCKS5 proxy listens at addr and accepts
// clients without authentication. Only the method negotiation is performed;
// no connection is proxied.
func CheckProxy(ctx context.Context, addr string) error {
	if !isValidProxyAddress(addr) {
		return ErrInvalidProxyAddress
	}

	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProxyCannotConnect, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return fmt.Errorf("%w: %w", ErrProxyCannotConnect, err)
		}
	}

	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return fmt.Errorf("%w: %w", ErrProxyCannotConnect, err)
	}

	reply := make([]byte, 2)
	if _, err := io.ReadFull(conn, reply); err != nil {
		return fmt.Errorf("%w: %w", ErrProxyNotSOCKS5, err)
	}
	if reply[0] != socks5Version || reply[1] != socks5AuthNone {
		return ErrProxyNotSOCKS5
	}
	return nil
}
