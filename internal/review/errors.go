package review

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"
)

// networkHints are message fragments transports use for lost connectivity.
var networkHints = []string{
	"failed to fetch",
	"disconnected",
	"network",
	"connection refused",
	"connection reset",
	"no such host",
}

// IsNetworkError reports whether err looks like a connectivity failure, which the
// study flow tolerates by keeping its local state.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, hint := range networkHints {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}
