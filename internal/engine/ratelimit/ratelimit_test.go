package ratelimit

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHandle429_RetryAfterSeconds(t *testing.T) {
	h := &HostLimiter{}
	resp := &http.Response{Header: http.Header{"Retry-After": []string{"2"}}}

	wait := h.Handle429(resp)
	assert.Equal(t, 2*time.Second, wait)
	assert.True(t, h.IsBlocked())
}

func TestHandle429_ExponentialFallback(t *testing.T) {
	h := &HostLimiter{}
	resp := &http.Response{Header: http.Header{}}

	first := h.Handle429(resp)
	second := h.Handle429(resp)

	assert.Greater(t, first, time.Duration(0))
	assert.GreaterOrEqual(t, second, first)
	assert.LessOrEqual(t, second, maxBackoff)
}

func TestReportSuccess_ClearsBlock(t *testing.T) {
	h := &HostLimiter{}
	h.Handle429(&http.Response{Header: http.Header{"Retry-After": []string{"5"}}})
	assert.True(t, h.IsBlocked())

	h.ReportSuccess()
	assert.False(t, h.IsBlocked())
}

func TestForHost_Singleton(t *testing.T) {
	a := ForHost("example.com")
	b := ForHost("example.com")
	assert.Same(t, a, b)

	c := ForHost("other.com")
	assert.NotSame(t, a, c)
}
