package esi_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fastedge/esi/esi"
)

type fakeHandle struct {
	resp *http.Response
	err  error
}

func (h *fakeHandle) Poll() (*http.Response, bool, error) {
	return h.resp, true, h.err
}

type fakeDispatcher struct {
	byURL map[string]*http.Response
}

func (d *fakeDispatcher) Dispatch(_ context.Context, req *http.Request) (esi.Handle, error) {
	resp, ok := d.byURL[req.URL.String()]
	if !ok {
		return &fakeHandle{resp: respBody(http.StatusNotFound, "not found")}, nil
	}
	return &fakeHandle{resp: resp}, nil
}

func respBody(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body)), Header: http.Header{}}
}

func TestProcessorProcessDocument(t *testing.T) {
	template := httptest.NewRequest(http.MethodGet, "https://example.com/page?q=1", nil)
	dispatcher := &fakeDispatcher{byURL: map[string]*http.Response{
		"https://example.com/header": respBody(http.StatusOK, "<header>nav</header>"),
	}}

	p := esi.New(template, esi.Default())

	var out bytes.Buffer
	doc := `<body><esi:include src="https://example.com/header"/><p>content</p></body>`
	err := p.ProcessDocument(strings.NewReader(doc), &out, dispatcher, nil)
	require.NoError(t, err)
	require.Equal(t, "<body><header>nav</header><p>content</p></body>", out.String())
}

func TestProcessorProcessDocumentWithExpressionVariables(t *testing.T) {
	template := httptest.NewRequest(http.MethodGet, "https://example.com/page", nil)
	dispatcher := &fakeDispatcher{byURL: map[string]*http.Response{
		"https://example.com/frag?host=example.com": respBody(http.StatusOK, "ok"),
	}}

	config := esi.Default().WithEnv(esi.NewRequestEnv(template))
	p := esi.New(template, config)

	var out bytes.Buffer
	doc := `<a><esi:include src="https://example.com/frag?host=$(HTTP_HOST)"/></a>`
	err := p.ProcessDocument(strings.NewReader(doc), &out, dispatcher, nil)
	require.NoError(t, err)
	require.Equal(t, "<a>ok</a>", out.String())
}

func TestProcessorProcessFragmentHookRewritesResponse(t *testing.T) {
	template := httptest.NewRequest(http.MethodGet, "https://example.com/page", nil)
	dispatcher := &fakeDispatcher{byURL: map[string]*http.Response{
		"https://example.com/frag": respBody(http.StatusTeapot, "ignored"),
	}}

	p := esi.New(template, esi.Default())

	processFragment := func(_ *http.Request, resp *http.Response) (*http.Response, error) {
		resp.StatusCode = http.StatusOK
		resp.Body = io.NopCloser(strings.NewReader("rewritten"))
		return resp, nil
	}

	var out bytes.Buffer
	doc := `<a><esi:include src="https://example.com/frag"/></a>`
	err := p.ProcessDocument(strings.NewReader(doc), &out, dispatcher, processFragment)
	require.NoError(t, err)
	require.Equal(t, "<a>rewritten</a>", out.String())
}

func TestProcessorProcessResponse(t *testing.T) {
	template := httptest.NewRequest(http.MethodGet, "https://example.com/page", nil)
	dispatcher := &fakeDispatcher{}

	p := esi.New(template, esi.Default())

	resp := &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader("<p>no includes here</p>")),
	}

	var out bytes.Buffer
	err := p.ProcessResponse(resp, &out, dispatcher, nil)
	require.NoError(t, err)
	require.Equal(t, "<p>no includes here</p>", out.String())
}

func TestProcessorConfigurationDefaults(t *testing.T) {
	config := esi.Default()
	template := httptest.NewRequest(http.MethodGet, "https://example.com/page", nil)
	p := esi.New(template, config)
	require.Equal(t, config, p.Configuration())
}
