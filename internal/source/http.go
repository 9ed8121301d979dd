package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Get issues a GET request for url and returns the body of a 200 response.
// Failures come back as FetchErrors attributed to adapter.
func Get(ctx context.Context, client HTTPClient, adapter, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, Transport(adapter, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	res, err := client.Do(req)
	if err != nil {
		return nil, Transport(adapter, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return nil, Status(adapter, res.StatusCode)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, Transport(adapter, fmt.Errorf("read body: %w", err))
	}
	return body, nil
}
