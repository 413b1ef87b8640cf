package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/vfaronov/httpheader"

	"github.com/siphon-dl/siphon/internal/engine/chunked"
	"github.com/siphon-dl/siphon/internal/engine/ratelimit"
	"github.com/siphon-dl/siphon/internal/engine/types"
	"github.com/siphon-dl/siphon/internal/utils"
)

// probeHeaderBytes is how much of the response body the probe request reads
// for magic-byte filename sniffing (utils.DetermineFilename).
const probeHeaderBytes = 512

// HTTPRequestAdapter implements chunked.RequestAdapter against a real
// HTTP(S) resource. FileSize, ContentDispositionFilename, and FileName all
// share one lazily-performed probe request; FileName's magic-byte sniffing
// only has data to work with once FileSize or ContentDispositionFilename
// has triggered that probe.
type HTTPRequestAdapter struct {
	url       string
	userAgent string
	client    *http.Client

	probeOnce   sync.Once
	probeErr    error
	size        int64
	dispoName   string
	hasDispo    bool
	headerBytes []byte
}

// NewHTTPRequestAdapter builds an adapter for rawurl, using the process-wide
// tuned transport from InitTransport.
func NewHTTPRequestAdapter(rawurl string, opts *types.DownloadOptions) *HTTPRequestAdapter {
	return &HTTPRequestAdapter{
		url:       rawurl,
		userAgent: opts.GetUserAgent(),
		client:    &http.Client{Transport: InitTransport(), Timeout: 0},
	}
}

func (a *HTTPRequestAdapter) Address() string { return a.url }

func (a *HTTPRequestAdapter) FileSize(ctx context.Context) (int64, error) {
	a.probe(ctx)
	return a.size, a.probeErr
}

func (a *HTTPRequestAdapter) ContentDispositionFilename(ctx context.Context) (string, bool) {
	a.probe(ctx)
	return a.dispoName, a.hasDispo
}

// FileName resolves a filename from whatever the probe request turned up:
// the Content-Disposition name, a filename/file query parameter, the URL
// path, or (when none of those carry a real extension) a magic-byte sniff
// of the probed header bytes. Callers that want a name only when the
// server doesn't volunteer one via Content-Disposition should check
// ContentDispositionFilename first, as DownloadURL and cmd's get command
// do; FileName folds that same signal in as its own first preference.
func (a *HTTPRequestAdapter) FileName() string {
	return utils.DetermineFilename(a.url, a.dispoName, a.headerBytes)
}

// probe issues a ranged request for the resource's first probeHeaderBytes
// once, via a retrying client, to learn its size, any Content-Disposition
// filename, and enough leading bytes for magic-byte sniffing.
func (a *HTTPRequestAdapter) probe(ctx context.Context) {
	a.probeOnce.Do(func() {
		retryClient := retryablehttp.NewClient()
		retryClient.HTTPClient = a.client
		retryClient.RetryMax = 3
		retryClient.Logger = nil

		req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, a.url, nil)
		if err != nil {
			a.probeErr = fmt.Errorf("building probe request: %w", err)
			return
		}
		req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", probeHeaderBytes-1))
		req.Header.Set("User-Agent", a.userAgent)

		utils.Debug("probing %s", a.url)

		resp, err := retryClient.Do(req)
		if err != nil {
			a.probeErr = fmt.Errorf("probe request failed: %w", err)
			return
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusPartialContent:
			_, total, ok := httpheader.ContentRange(resp.Header)
			if ok && total > 0 {
				a.size = total
			}
		case http.StatusOK:
			if resp.ContentLength > 0 {
				a.size = resp.ContentLength
			}
		default:
			a.probeErr = fmt.Errorf("unexpected probe status %d", resp.StatusCode)
			return
		}

		if _, name, err := httpheader.ContentDisposition(resp.Header); err == nil && name != "" {
			a.dispoName = name
			a.hasDispo = true
		}

		header := make([]byte, probeHeaderBytes)
		n, _ := io.ReadFull(resp.Body, header)
		a.headerBytes = header[:n]

		utils.Debug("probe of %s: size=%d dispo=%q", a.url, a.size, a.dispoName)
	})
}

// OpenRange issues a ranged GET for [start, end] and returns the response
// body. A server that doesn't honour Range (no 206) is a fatal error to the
// caller, per the adapter contract.
func (a *HTTPRequestAdapter) OpenRange(ctx context.Context, start, end int64) (io.ReadCloser, error) {
	host := hostOf(a.url)
	limiter := ratelimit.ForHost(host)
	limiter.WaitIfBlocked(ctx.Done())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.url, nil)
	if err != nil {
		return nil, fmt.Errorf("building ranged request: %w", err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))
	req.Header.Set("User-Agent", a.userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		wait := limiter.Handle429(resp)
		resp.Body.Close()
		return nil, fmt.Errorf("rate limited by %s, retry after %s: %w", host, wait, chunked.ErrHostRateLimited)
	}
	limiter.ReportSuccess()

	if resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		return nil, fmt.Errorf("server did not honour range request (status %d): %w", resp.StatusCode, chunked.ErrRangeNotHonoured)
	}

	return resp.Body, nil
}

func hostOf(rawurl string) string {
	parsed, err := url.Parse(rawurl)
	if err != nil {
		return rawurl
	}
	return strings.ToLower(parsed.Host)
}
