package resilience

import (
	"context"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "deadline exceeded" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"throttled", eris.New("gemini: unexpected status 429: slow down"), true},
		{"server error", eris.New("pricing: unexpected status 503: maintenance"), true},
		{"bad request", eris.New("openai: unexpected status 400: bad prompt"), false},
		{"not found", eris.New("pricing: unexpected status 404: no such key"), false},
		{"auth", eris.New("vision: unexpected status 401: bad key"), false},
		{"wrapped server error", eris.Wrap(eris.New("costapi: unexpected status 502: bad gateway"), "estimate"), true},
		{"net timeout", timeoutErr{}, true},
		{"conn refused", syscall.ECONNREFUSED, true},
		{"conn reset text", eris.New("read tcp: connection reset by peer"), true},
		{"dns", eris.New("dial tcp: lookup api.example.com: no such host"), true},
		{"canceled", context.Canceled, false},
		{"plain", eris.New("boom"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsTransient(tc.err))
		})
	}
}
