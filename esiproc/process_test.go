package esiproc_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fastedge/esi/esiproc"
)

// fakeHandle resolves immediately to a fixed response/error; every test in this file dispatches
// fragments that are already "complete" by the time Poll is first called, since the scheduler's
// suspension points (reading the next event, polling a handle) are the only two this package
// cooperates on and we are not exercising real concurrency here.
type fakeHandle struct {
	resp *http.Response
	err  error
}

func (h *fakeHandle) Poll() (*http.Response, bool, error) {
	return h.resp, true, h.err
}

func respBody(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body)), Header: http.Header{}}
}

type fakeDispatcher struct {
	byURL map[string]*http.Response
}

func (d *fakeDispatcher) Dispatch(_ context.Context, req *http.Request) (esiproc.Handle, error) {
	u := req.URL.String()
	resp, ok := d.byURL[u]
	if !ok {
		return &fakeHandle{resp: respBody(http.StatusNotFound, "not found")}, nil
	}
	return &fakeHandle{resp: resp}, nil
}

func newTemplate() *http.Request {
	return httptest.NewRequest(http.MethodGet, "https://example.com/page", nil)
}

func TestProcessPassthrough(t *testing.T) {
	var out bytes.Buffer
	err := esiproc.Process(t.Context(), strings.NewReader("<html>hi</html>"), &out, newTemplate(), &fakeDispatcher{}, esiproc.Options{})
	require.NoError(t, err)
	require.Equal(t, "<html>hi</html>", out.String())
}

func TestProcessIncludeSuccess(t *testing.T) {
	dispatcher := &fakeDispatcher{byURL: map[string]*http.Response{
		"https://example.com/frag": respBody(http.StatusOK, "FRAGMENT"),
	}}

	var out bytes.Buffer
	doc := `<a><esi:include src="https://example.com/frag"/></a>`
	err := esiproc.Process(t.Context(), strings.NewReader(doc), &out, newTemplate(), dispatcher, esiproc.Options{})
	require.NoError(t, err)
	require.Equal(t, "<a>FRAGMENT</a>", out.String())
}

func TestProcessIncludeFailureContinueOnError(t *testing.T) {
	dispatcher := &fakeDispatcher{}

	var out bytes.Buffer
	doc := `<a><esi:include src="https://example.com/missing" onerror="continue"/>tail</a>`
	err := esiproc.Process(t.Context(), strings.NewReader(doc), &out, newTemplate(), dispatcher, esiproc.Options{})
	require.NoError(t, err)
	require.Equal(t, "<a>tail</a>", out.String())
}

func TestProcessIncludeFailureNoSuppressionFails(t *testing.T) {
	dispatcher := &fakeDispatcher{}

	var out bytes.Buffer
	doc := `<a><esi:include src="https://example.com/missing"/></a>`
	err := esiproc.Process(t.Context(), strings.NewReader(doc), &out, newTemplate(), dispatcher, esiproc.Options{})
	require.Error(t, err)

	var statusErr *esiproc.UnexpectedStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestProcessIncludeAltRetry(t *testing.T) {
	dispatcher := &fakeDispatcher{byURL: map[string]*http.Response{
		"https://example.com/fallback": respBody(http.StatusOK, "FALLBACK"),
	}}

	var out bytes.Buffer
	doc := `<a><esi:include src="https://example.com/missing" alt="https://example.com/fallback"/></a>`
	err := esiproc.Process(t.Context(), strings.NewReader(doc), &out, newTemplate(), dispatcher, esiproc.Options{})
	require.NoError(t, err)
	require.Equal(t, "<a>FALLBACK</a>", out.String())
}

func TestProcessTryAttemptSucceeds(t *testing.T) {
	dispatcher := &fakeDispatcher{byURL: map[string]*http.Response{
		"https://example.com/frag": respBody(http.StatusOK, "OK"),
	}}

	var out bytes.Buffer
	doc := `<a><esi:try><esi:attempt><esi:include src="https://example.com/frag"/></esi:attempt>` +
		`<esi:except>except ran</esi:except></esi:try></a>`
	err := esiproc.Process(t.Context(), strings.NewReader(doc), &out, newTemplate(), dispatcher, esiproc.Options{})
	require.NoError(t, err)
	require.Equal(t, "<a>OK</a>", out.String())
}

func TestProcessTryAttemptFailsExceptRuns(t *testing.T) {
	dispatcher := &fakeDispatcher{}

	var out bytes.Buffer
	doc := `<a><esi:try><esi:attempt><esi:include src="https://example.com/missing"/></esi:attempt>` +
		`<esi:except>fallback text</esi:except></esi:try></a>`
	err := esiproc.Process(t.Context(), strings.NewReader(doc), &out, newTemplate(), dispatcher, esiproc.Options{})
	require.NoError(t, err)
	require.Equal(t, "<a>fallback text</a>", out.String())
}

func TestProcessTryBothFail(t *testing.T) {
	dispatcher := &fakeDispatcher{}

	var out bytes.Buffer
	doc := `<a><esi:try><esi:attempt><esi:include src="https://example.com/missing"/></esi:attempt>` +
		`<esi:except><esi:include src="https://example.com/also-missing"/></esi:except></esi:try></a>`
	err := esiproc.Process(t.Context(), strings.NewReader(doc), &out, newTemplate(), dispatcher, esiproc.Options{})
	require.Error(t, err)
}

func TestProcessMissingSrcIsDocumentFatal(t *testing.T) {
	dispatcher := &fakeDispatcher{}

	var out bytes.Buffer
	doc := `<a><esi:include/></a>`
	err := esiproc.Process(t.Context(), strings.NewReader(doc), &out, newTemplate(), dispatcher, esiproc.Options{})
	require.Error(t, err)

	var missing *esiproc.MissingRequiredParameterError
	require.ErrorAs(t, err, &missing)
}
