package store

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/menuforge/menuforge/pkg/menu"
)

// isConnectivity classifies an error as a transport/timeout failure
// worth retrying. Anything else (wrong type, scripting errors, menu
// domain errors) propagates without retry.
func isConnectivity(err error) bool {
	if err == nil {
		return false
	}

	if menu.IsConnectivity(err) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// go-redis wraps pool failures in plain errors.
	msg := err.Error()
	return strings.Contains(msg, "connection pool timeout") ||
		strings.Contains(msg, "connection refused")
}
