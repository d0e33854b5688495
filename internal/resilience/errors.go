// Package resilience guards calls to flaky upstreams. A Breaker stops
// hammering a provider after repeated failures and lets it back in after
// a cooldown; Retry re-runs transient failures with exponential backoff.
package resilience

import (
	"errors"
	"net"
	"regexp"
	"strings"
	"syscall"
)

// transientStatus matches the status code our HTTP clients embed in their
// error text ("unexpected status 503: ..."). Only server-side and
// throttling statuses count as transient.
var transientStatus = regexp.MustCompile(`\bstatus (408|425|429|5\d\d)\b`)

// IsTransient reports whether err looks like a failure that a later
// attempt could succeed on: throttling, server errors, timeouts, and
// connection-level faults. Anything else (bad request, auth, parse
// failures) is permanent and not worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	if transientStatus.MatchString(msg) {
		return true
	}
	for _, p := range []string{
		"connection reset by peer",
		"connection refused",
		"broken pipe",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}
