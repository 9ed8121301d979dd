package source

import "net/http"

// HTTPClient is the part of *http.Client adapters depend on.
//
//go:generate mockgen -package=mocks -destination=mocks/mock_http_client.go -source=httpclient.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
