package download

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"os"
	"syscall"
)

// Sentinel categories surfaced to subscribers in place of raw transport
// errors. Their messages are the user-facing text.
var (
	ErrTimeout         = errors.New("the transfer timed out")
	ErrConnectionReset = errors.New("the connection was reset by the server")
	ErrHostUnreachable = errors.New("the test server could not be reached")
	ErrTLSFailure      = errors.New("the TLS handshake with the test server failed")
	ErrBadStatus       = errors.New("the test server returned an unexpected status")
	ErrStreamFault     = errors.New("the download stream failed unexpectedly")
)

// Classify maps a raw transport error onto one of the sentinel categories.
// Context cancellation passes through unchanged so callers can tell a
// subscriber disconnect apart from a transfer failure.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return ErrTimeout
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrHostUnreachable
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return ErrConnectionReset
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return ErrHostUnreachable
	}
	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return ErrTLSFailure
	}
	var alertErr tls.AlertError
	if errors.As(err, &alertErr) {
		return ErrTLSFailure
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	return ErrStreamFault
}
