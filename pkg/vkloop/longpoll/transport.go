package longpoll

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mkorobkov/vkloop/pkg/vkloop/api"
)

// Transport issues a single long-poll request and returns the raw body.
//
// The server URL and the query parameters are passed separately so that
// implementations can report the URL in errors without leaking the
// session key that travels in the query string.
type Transport interface {
	GetJSON(ctx context.Context, rawurl string, params url.Values) ([]byte, error)
}

// HTTPTransport is the default Transport backed by net/http.
type HTTPTransport struct {
	client *http.Client
}

// Compile-time interface check.
var _ Transport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a transport with the given client timeout.
// The timeout must exceed the long-poll wait window, otherwise every
// idle cycle is cut short by the client instead of the server.
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{client: &http.Client{Timeout: timeout}}
}

// NewHTTPTransportWithClient wraps an existing http.Client, e.g. one
// with a custom proxy or TLS configuration.
func NewHTTPTransportWithClient(client *http.Client) *HTTPTransport {
	return &HTTPTransport{client: client}
}

// GetJSON performs the GET request. Failures of any kind, including
// non-200 status codes, are returned as *api.TransportError carrying
// rawurl without the query string.
func (t *HTTPTransport) GetJSON(ctx context.Context, rawurl string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &api.TransportError{URL: rawurl, Err: err}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &api.TransportError{URL: rawurl, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &api.TransportError{URL: rawurl, Err: fmt.Errorf("http %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &api.TransportError{URL: rawurl, Err: err}
	}
	return body, nil
}
