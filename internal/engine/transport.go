// Package engine supplies the chunked download engine's external
// collaborator: an HTTP(S)-backed chunked.RequestAdapter, plus the
// process-wide transport tuning the engine's concurrent fetchers rely on.
package engine

import (
	"net"
	"net/http"
	"sync"

	"github.com/siphon-dl/siphon/internal/engine/types"
)

var (
	transportOnce   sync.Once
	sharedTransport *http.Transport
)

// NewHTTPAdapter builds a *http.Transport tuned for many concurrent ranged
// GETs against one host: HTTP/2 is disabled so chunks ride genuinely
// separate TCP connections instead of being multiplexed over one, and
// per-host connection limits are raised well past the stdlib default.
func NewHTTPAdapter() *http.Transport {
	return &http.Transport{
		MaxIdleConns:          types.DefaultMaxIdleConns,
		MaxIdleConnsPerHost:   types.PerHostMax,
		MaxConnsPerHost:       types.PerHostMax,
		IdleConnTimeout:       types.DefaultIdleConnTimeout,
		TLSHandshakeTimeout:   types.DefaultTLSHandshakeTimeout,
		ExpectContinueTimeout: types.DefaultExpectContinueTimeout,
		ResponseHeaderTimeout: types.DefaultResponseHeaderTimeout,
		ForceAttemptHTTP2:     false,
		DialContext: (&net.Dialer{
			Timeout:   types.DialTimeout,
			KeepAlive: types.KeepAliveDuration,
		}).DialContext,
	}
}

// InitTransport idempotently builds and caches the shared tuned transport.
// Hosts embedding the engine that need a different transport policy can
// skip this and build their own RequestAdapter with a custom *http.Client
// instead — the constructor does not force this transport into package
// state on import.
func InitTransport() *http.Transport {
	transportOnce.Do(func() {
		sharedTransport = NewHTTPAdapter()
	})
	return sharedTransport
}
