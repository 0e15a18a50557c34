// Package api calls VK API methods over HTTPS and routes API-level
// failures through registered resolvers.
//
// The Caller interface is what the rest of the module depends on; the
// Client is its production implementation. Handlers receive the Caller
// through the dispatcher's data bag and should not construct clients
// of their own.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mkorobkov/vkloop/pkg/vkloop/observability"
	"github.com/mkorobkov/vkloop/pkg/vkloop/retry"
)

const (
	// DefaultBaseURL is the API endpoint prefix.
	DefaultBaseURL = "https://api.vk.com/method/"

	// DefaultVersion is the API version sent with every call.
	DefaultVersion = "5.103"
)

// Params holds the parameters of one API call.
type Params map[string]string

// Caller issues one API method call and returns the raw response
// member of the envelope.
type Caller interface {
	Call(ctx context.Context, method string, params Params) (json.RawMessage, error)
}

// CallerFunc adapts a function to the Caller interface.
type CallerFunc func(ctx context.Context, method string, params Params) (json.RawMessage, error)

// Call invokes the function.
func (f CallerFunc) Call(ctx context.Context, method string, params Params) (json.RawMessage, error) {
	return f(ctx, method, params)
}

// Client is the production Caller: form-encoded POSTs against the API,
// envelope parsing, error routing, optional transport retries.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	version        string
	token          string
	logger         *slog.Logger
	metrics        observability.MetricsRecorder
	router         *ErrorRouter
	transportRetry retry.Config
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API endpoint prefix.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/") + "/"
	}
}

// WithVersion overrides the API version.
func WithVersion(v string) ClientOption {
	return func(c *Client) {
		c.version = v
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger for call failures.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics recorder for api calls.
func WithMetrics(m observability.MetricsRecorder) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithErrorRouter replaces the default error router.
func WithErrorRouter(r *ErrorRouter) ClientOption {
	return func(c *Client) {
		c.router = r
	}
}

// WithTransportRetry enables retries of the HTTP exchange. Only the
// transport layer is retried; API errors go to the error router.
func WithTransportRetry(cfg retry.Config) ClientOption {
	return func(c *Client) {
		c.transportRetry = cfg
	}
}

// NewClient creates a Client for the given access token.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		baseURL:        DefaultBaseURL,
		version:        DefaultVersion,
		token:          token,
		metrics:        observability.NoopMetrics{},
		transportRetry: retry.None,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.router == nil {
		c.router = NewErrorRouter(WithRouterLogger(c.logger))
	}
	return c
}

// CallOption configures a single call.
type CallOption func(*callOptions)

type callOptions struct {
	ignoreErrors bool
}

// IgnoreErrors makes unresolved API errors come back as the raw error
// envelope instead of an error. Registered resolvers still run.
func IgnoreErrors() CallOption {
	return func(o *callOptions) {
		o.ignoreErrors = true
	}
}

// Call issues one API method call.
func (c *Client) Call(ctx context.Context, method string, params Params) (json.RawMessage, error) {
	return c.CallWith(ctx, method, params)
}

// CallWith issues one API method call with per-call options.
func (c *Client) CallWith(ctx context.Context, method string, params Params, opts ...CallOption) (json.RawMessage, error) {
	var co callOptions
	for _, opt := range opts {
		opt(&co)
	}

	start := time.Now()
	resp, rawErr, apiErr, err := c.exchange(ctx, method, params)
	if err != nil {
		c.metrics.RecordAPICall(ctx, method, time.Since(start), err)
		observability.LogAPIError(c.logger, method, err)
		return nil, err
	}
	if apiErr == nil {
		c.metrics.RecordAPICall(ctx, method, time.Since(start), nil)
		return resp, nil
	}

	// The resolver re-issues through the unrouted caller, so a second
	// failure of the same code is terminal rather than recursive.
	out, routeErr := c.router.Route(ctx, rawCaller{c}, apiErr, rawErr, Request{Method: method, Params: params}, co.ignoreErrors)
	c.metrics.RecordAPICall(ctx, method, time.Since(start), routeErr)
	if routeErr != nil {
		observability.LogAPIError(c.logger, method, routeErr)
	}
	return out, routeErr
}

// envelope is the {response}|{error} wrapper of every API reply.
type envelope struct {
	Response json.RawMessage `json:"response"`
	Error    json.RawMessage `json:"error"`
}

// exchange performs the HTTP exchange, retrying the transport layer
// when configured, and splits the envelope.
func (c *Client) exchange(ctx context.Context, method string, params Params) (json.RawMessage, json.RawMessage, *Error, error) {
	var env envelope
	var err error
	if c.transportRetry.MaxAttempts > 1 {
		res := retry.Do(ctx, c.transportRetry, func(ctx context.Context) (envelope, error) {
			return c.doRequest(ctx, method, params)
		})
		env, err = res.Value, res.Err
	} else {
		env, err = c.doRequest(ctx, method, params)
	}
	if err != nil {
		return nil, nil, nil, err
	}

	if len(env.Error) > 0 {
		apiErr := &Error{}
		if uerr := json.Unmarshal(env.Error, apiErr); uerr != nil {
			return nil, nil, nil, &TransportError{URL: c.baseURL + method, Err: fmt.Errorf("malformed error envelope: %w", uerr)}
		}
		return nil, env.Error, apiErr, nil
	}
	return env.Response, nil, nil, nil
}

// doRequest performs one form-encoded POST and decodes the envelope.
func (c *Client) doRequest(ctx context.Context, method string, params Params) (envelope, error) {
	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	form.Set("access_token", c.token)
	form.Set("v", c.version)

	endpoint := c.baseURL + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return envelope{}, &TransportError{URL: endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return envelope{}, &TransportError{URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return envelope{}, &TransportError{URL: endpoint, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return envelope{}, &TransportError{URL: endpoint, Err: fmt.Errorf("http %d", resp.StatusCode)}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return envelope{}, &TransportError{URL: endpoint, Err: fmt.Errorf("decode response: %w", err)}
	}
	return env, nil
}

// rawCaller issues calls without error routing. API errors come back
// as *Error directly.
type rawCaller struct {
	c *Client
}

// Call implements Caller.
func (r rawCaller) Call(ctx context.Context, method string, params Params) (json.RawMessage, error) {
	resp, _, apiErr, err := r.c.exchange(ctx, method, params)
	if err != nil {
		return nil, err
	}
	if apiErr != nil {
		return nil, apiErr
	}
	return resp, nil
}
