// Package esihttp implements an [esiproc.Dispatcher] over net/http, standing in for the edge
// runtime's built-in async HTTP facility.
package esihttp

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastedge/esi/esiproc"
)

// RequestIDHeader is the header set on every dispatched fragment request to correlate it across
// logs.
const RequestIDHeader = "X-Esi-Request-Id"

// Handle is an opaque, in-flight fragment request, re-exported from esiproc for callers that only
// import esihttp.
type Handle = esiproc.Handle

// Client implements [esiproc.Dispatcher] by issuing each fragment request on its own goroutine
// against HTTPClient and exposing a [future]-backed, non-blocking [esiproc.Handle].
type Client struct {
	// HTTPClient is used to make HTTP requests. If nil, http.DefaultClient is used.
	HTTPClient *http.Client

	// BeforeRequest is called with the cloned, correlation-id-tagged request before it is sent,
	// and can be used to customize it further.
	BeforeRequest func(req *http.Request) error

	// Logger receives Debug-level dispatch/completion tracing. Nil discards it.
	Logger *zap.SugaredLogger
}

var _ esiproc.Dispatcher = (*Client)(nil)

// Dispatch issues req on a new goroutine and returns immediately with a [esiproc.Handle] whose
// Poll reports completion without blocking.
func (c *Client) Dispatch(ctx context.Context, req *http.Request) (esiproc.Handle, error) {
	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	req = req.Clone(ctx)
	req.Header.Set(RequestIDHeader, uuid.NewString())

	if c.BeforeRequest != nil {
		if err := c.BeforeRequest(req); err != nil {
			return nil, err
		}
	}

	logger := c.logger()
	logger.Debugw("esihttp: dispatching request", "url", req.URL.String(), "request_id", req.Header.Get(RequestIDHeader))

	f := newFuture[*http.Response]()

	go func() {
		resp, err := client.Do(req)
		logger.Debugw("esihttp: request completed", "url", req.URL.String(), "request_id", req.Header.Get(RequestIDHeader), "error", err)
		f.resolve(resp, err)
	}()

	return &handle{future: f}, nil
}

func (c *Client) logger() *zap.SugaredLogger {
	if c.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return c.Logger
}

// handle adapts a future[*http.Response] to [esiproc.Handle].
type handle struct {
	future *future[*http.Response]
}

func (h *handle) Poll() (resp *http.Response, done bool, err error) {
	return h.future.poll()
}
