package esihttp_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fastedge/esi/esihttp"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func newResponse(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Header: http.Header{}, Body: io.NopCloser(strings.NewReader(body))}
}

func pollUntilDone(t *testing.T, h esihttp.Handle) (*http.Response, error) {
	t.Helper()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		resp, done, err := h.Poll()
		if done {
			return resp, err
		}
		time.Sleep(time.Millisecond)
	}

	t.Fatal("handle never resolved")
	return nil, nil
}

func TestClientDispatchSuccess(t *testing.T) {
	client := &esihttp.Client{
		HTTPClient: &http.Client{
			Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
				require.NotEmpty(t, r.Header.Get(esihttp.RequestIDHeader))
				return newResponse(http.StatusOK, "ok"), nil
			}),
		},
	}

	req := httptest.NewRequest(http.MethodGet, "https://example.com/fragment", nil)

	handle, err := client.Dispatch(t.Context(), req)
	require.NoError(t, err)

	resp, err := pollUntilDone(t, handle)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "ok", string(body))
}

func TestClientDispatchTransportError(t *testing.T) {
	wantErr := io.ErrUnexpectedEOF

	client := &esihttp.Client{
		HTTPClient: &http.Client{
			Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
				return nil, wantErr
			}),
		},
	}

	req := httptest.NewRequest(http.MethodGet, "https://example.com/fragment", nil)

	handle, err := client.Dispatch(t.Context(), req)
	require.NoError(t, err)

	_, err = pollUntilDone(t, handle)
	require.ErrorIs(t, err, wantErr)
}

func TestClientBeforeRequestError(t *testing.T) {
	wantErr := http.ErrSchemeMismatch

	client := &esihttp.Client{
		HTTPClient: &http.Client{
			Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
				t.Fatal("transport should not be called")
				return nil, nil
			}),
		},
		BeforeRequest: func(*http.Request) error {
			return wantErr
		},
	}

	req := httptest.NewRequest(http.MethodGet, "https://example.com/fragment", nil)

	_, err := client.Dispatch(t.Context(), req)
	require.ErrorIs(t, err, wantErr)
}

func TestClientBeforeRequestMutation(t *testing.T) {
	client := &esihttp.Client{
		HTTPClient: &http.Client{
			Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
				return newResponse(http.StatusOK, r.Header.Get("Extra-Header")), nil
			}),
		},
		BeforeRequest: func(req *http.Request) error {
			req.Header.Set("Extra-Header", "extra data")
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "https://example.com/fragment", nil)

	handle, err := client.Dispatch(t.Context(), req)
	require.NoError(t, err)

	resp, err := pollUntilDone(t, handle)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "extra data", string(body))
}

func TestClientPollBeforeCompletionIsNonBlocking(t *testing.T) {
	release := make(chan struct{})

	client := &esihttp.Client{
		HTTPClient: &http.Client{
			Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
				<-release
				return newResponse(http.StatusOK, "ok"), nil
			}),
		},
	}

	req := httptest.NewRequest(http.MethodGet, "https://example.com/fragment", nil)

	handle, err := client.Dispatch(t.Context(), req)
	require.NoError(t, err)

	_, done, err := handle.Poll()
	require.False(t, done)
	require.NoError(t, err)

	close(release)

	resp, err := pollUntilDone(t, handle)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
