package fetch

import (
	"errors"
	"fmt"
)

var (
	// ErrFetch is the root of every error returned by Client.Get.
	ErrFetch = errors.New("fetch failed")

	// ErrStatus is returned for a response outside the 2xx range.
	ErrStatus = errors.New("unexpected status code")

	// ErrContentType is returned when the response is not an HTML document.
	ErrContentType = errors.New("response is not HTML")

	// ErrInvalidProxyAddress is returned when a proxy address is not host:port.
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrProxyNotSOCKS5 is returned when the proxy answers but does not speak
	// SOCKS5 without authentication.
	ErrProxyNotSOCKS5 = errors.New("proxy is not a SOCKS5 proxy")

	// ErrProxyCannotConnect is returned when the proxy port cannot be reached.
	ErrProxyCannotConnect = errors.New("cannot connect to proxy")

	// ErrTorNotRunning is returned when a client is requested from a Tor
	// daemon that has not been started or was stopped.
	ErrTorNotRunning = errors.New("embedded Tor daemon is not running")
)

// Error describes a failed page fetch.
type Error struct {
	// URL is the requested address.
	URL string

	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int

	// ContentType is the response Content-Type, if any.
	ContentType string

	// Err is the cause: ErrStatus, ErrContentType, or a transport error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap lets errors.Is match both ErrFetch and the underlying cause.
func (e *Error) Unwrap() []error {
	return []error{ErrFetch, e.Err}
}
