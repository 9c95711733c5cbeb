package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"landwatch/internal/land"
	"landwatch/internal/proxy"
)

// HTTPFetcher implements RawStateFetcher by delegating to an external
// browser-automation endpoint (PW_WS_ENDPOINT) over plain HTTP. The
// endpoint itself is an opaque collaborator; this adapter only classifies
// its responses into the FetchDispatcher error taxonomy.
type HTTPFetcher struct {
	endpoint string
	client   *http.Client
}

// NewHTTPFetcher builds an HTTPFetcher targeting endpoint.
func NewHTTPFetcher(endpoint string, client *http.Client) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{endpoint: endpoint, client: client}
}

func (f *HTTPFetcher) FetchOnce(ctx context.Context, l land.Id, p *proxy.Settings) (land.RawState, error) {
	reqURL, err := url.Parse(f.endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch: invalid endpoint: %w", err)
	}
	q := reqURL.Query()
	q.Set("land", fmt.Sprintf("%d", l))
	if p != nil {
		q.Set("proxy", p.Server)
	}
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ErrFetchTimeout
		}
		return nil, ErrBrowserUnreachable
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrBrowserBusy
	case resp.StatusCode == http.StatusNoContent:
		return nil, nil // not ready yet; Dispatcher retries
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &NavigationError{HTTPCode: resp.StatusCode}
	}

	var raw land.RawState
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, ErrMalformedState
	}
	return raw, nil
}
