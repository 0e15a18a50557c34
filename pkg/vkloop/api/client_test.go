package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkorobkov/vkloop/pkg/vkloop/retry"
)

func TestClientCall(t *testing.T) {
	var gotPath, gotToken, gotVersion, gotPeer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotPath = r.URL.Path
		gotToken = r.FormValue("access_token")
		gotVersion = r.FormValue("v")
		gotPeer = r.FormValue("peer_id")
		w.Write([]byte(`{"response":{"message_id":77}}`))
	}))
	defer srv.Close()

	c := NewClient("secret-token",
		WithBaseURL(srv.URL),
		WithLogger(discardLogger()),
	)

	resp, err := c.Call(context.Background(), "messages.send", Params{"peer_id": "42"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"message_id":77}`, string(resp))

	assert.Equal(t, "/messages.send", gotPath)
	assert.Equal(t, "secret-token", gotToken)
	assert.Equal(t, DefaultVersion, gotVersion)
	assert.Equal(t, "42", gotPeer)
}

func TestClientAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"error":{"error_code":15,"error_msg":"Access denied","request_params":[{"key":"v","value":"5.103"}]}}`))
	}))
	defer srv.Close()

	c := NewClient("t", WithBaseURL(srv.URL), WithLogger(discardLogger()))

	resp, err := c.Call(context.Background(), "messages.send", nil)
	assert.Nil(t, resp)
	require.Error(t, err)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, CodeAccessDenied, apiErr.Code)
	assert.Equal(t, "[15] Access denied", apiErr.Error())
	require.Len(t, apiErr.RequestParams, 1)
	assert.Equal(t, "v", apiErr.RequestParams[0].Key)
}

func TestClientIgnoreErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"error":{"error_code":15,"error_msg":"Access denied"}}`))
	}))
	defer srv.Close()

	c := NewClient("t", WithBaseURL(srv.URL), WithLogger(discardLogger()))

	resp, err := c.CallWith(context.Background(), "messages.send", nil, IgnoreErrors())
	require.NoError(t, err)

	var env map[string]any
	require.NoError(t, json.Unmarshal(resp, &env))
	assert.Equal(t, float64(15), env["error_code"])
}

func TestClientRateLimitResolved(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.Write([]byte(`{"error":{"error_code":6,"error_msg":"Too many requests per second"}}`))
			return
		}
		w.Write([]byte(`{"response":1}`))
	}))
	defer srv.Close()

	router := NewErrorRouter(WithRouterLogger(discardLogger()))
	router.Register(CodeTooManyRequests, RateLimitResolver(time.Millisecond))

	c := NewClient("t",
		WithBaseURL(srv.URL),
		WithErrorRouter(router),
		WithLogger(discardLogger()),
	)

	resp, err := c.Call(context.Background(), "messages.send", Params{"peer_id": "1"})
	require.NoError(t, err)
	assert.Equal(t, "1", string(resp))
	assert.Equal(t, int32(2), calls.Load())
}

func TestClientTransportError(t *testing.T) {
	t.Run("http status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		c := NewClient("t", WithBaseURL(srv.URL), WithLogger(discardLogger()))
		_, err := c.Call(context.Background(), "users.get", nil)

		var terr *TransportError
		require.True(t, errors.As(err, &terr))
		assert.True(t, terr.Transient())
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`<html>not json</html>`))
		}))
		defer srv.Close()

		c := NewClient("t", WithBaseURL(srv.URL), WithLogger(discardLogger()))
		_, err := c.Call(context.Background(), "users.get", nil)

		var terr *TransportError
		require.True(t, errors.As(err, &terr))
	})

	t.Run("connection refused", func(t *testing.T) {
		srv := httptest.NewServer(nil)
		srv.Close()

		c := NewClient("t", WithBaseURL(srv.URL), WithLogger(discardLogger()))
		_, err := c.Call(context.Background(), "users.get", nil)

		var terr *TransportError
		require.True(t, errors.As(err, &terr))
	})
}

func TestClientTransportRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"response":"ok"}`))
	}))
	defer srv.Close()

	c := NewClient("t",
		WithBaseURL(srv.URL),
		WithLogger(discardLogger()),
		WithTransportRetry(retry.NewConfig(
			retry.WithMaxAttempts(3),
			retry.WithInitialBackoff(time.Millisecond),
		)),
	)

	resp, err := c.Call(context.Background(), "users.get", nil)
	require.NoError(t, err)
	assert.Equal(t, `"ok"`, string(resp))
	assert.Equal(t, int32(3), calls.Load())
}

func TestCallerFunc(t *testing.T) {
	f := CallerFunc(func(_ context.Context, method string, _ Params) (json.RawMessage, error) {
		return json.RawMessage(`"` + method + `"`), nil
	})
	resp, err := f.Call(context.Background(), "ping", nil)
	require.NoError(t, err)
	assert.Equal(t, `"ping"`, string(resp))
}
