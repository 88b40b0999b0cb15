package probe

import (
	"context"
	"io"
	"net/http"
	"time"

	"domainstack/pkg/serrors"
)

// maxBodySize caps how much of a response body is read. Verification files
// and homepages are small; anything larger is truncated.
const maxBodySize = 1 << 20 // 1 MiB

// maxRedirects bounds redirect following.
const maxRedirects = 5

// HTTPFetcher implements Fetcher using net/http with redirect following and
// a hard body size cap.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher returns a fetcher with the given total-request timeout. A
// non-positive timeout defaults to 10 seconds.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTPFetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return http.ErrUseLastResponse
				}

				return nil
			},
		},
	}
}

// Body fetches url and returns up to maxBodySize bytes of the response body.
// Non-2xx statuses are fetch errors: a 404 on a verification path means no
// proof, and the caller treats it like any other failed check.
func (f *HTTPFetcher) Body(ctx context.Context, url string) ([]byte, error) {
	resp, err := f.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, serrors.With(serrors.ErrFetch, "unexpected status %d for %s", resp.StatusCode, url)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrFetch, err, "could not read response body")
	}

	return b, nil
}

// Headers fetches url and returns its response headers, discarding the body.
// Non-2xx statuses are fetch errors just like in Body: error pages and
// interstitials carry their server's headers, not the origin's.
func (f *HTTPFetcher) Headers(ctx context.Context, url string) (map[string]string, error) {
	resp, err := f.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, serrors.With(serrors.ErrFetch, "unexpected status %d for %s", resp.StatusCode, url)
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}

	return headers, nil
}

func (f *HTTPFetcher) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrFetch, err, "could not create request")
	}
	req.Header.Set("User-Agent", "domainstack-monitor/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrConnection, err, "could not fetch %s", url)
	}

	return resp, nil
}
