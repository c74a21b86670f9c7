package esi

import (
	"context"
	"io"
	"net/http"

	"github.com/fastedge/esi/esiproc"
)

// Dispatcher enqueues an asynchronous fragment request and returns a non-blocking handle to its
// eventual response.
type Dispatcher = esiproc.Dispatcher

// Handle is an opaque, in-flight fragment request.
type Handle = esiproc.Handle

// Processor resolves ESI directives in a document against a single request template.
//
// A Processor is built once per incoming request (it captures the scheme/authority/headers that
// fragment requests are cloned from) and is not safe for concurrent use by multiple goroutines
// processing different documents — build one per request, matching the teacher's own
// one-processor-per-document lifecycle.
type Processor struct {
	template *http.Request
	config   Configuration
}

// New returns a Processor that resolves fragment requests against requestTemplate (its scheme,
// host, and headers are cloned onto every fragment request) using config.
func New(requestTemplate *http.Request, config Configuration) *Processor {
	return &Processor{template: requestTemplate, config: config}
}

// Configuration returns the configuration the Processor was built with.
func (p *Processor) Configuration() Configuration {
	return p.config
}

// ProcessDocument reads an ESI document from r, resolves every directive against dispatcher
// (dispatching fragment requests and polling their handles to completion), and writes the
// assembled output to w.
//
// processFragment, if non-nil, is called with every fragment response before its body is read,
// letting the caller rewrite headers or override the status code returned by dispatcher.
func (p *Processor) ProcessDocument(
	r io.Reader,
	w io.Writer,
	dispatcher Dispatcher,
	processFragment func(*http.Request, *http.Response) (*http.Response, error),
) error {
	return p.ProcessDocumentContext(context.Background(), r, w, dispatcher, processFragment)
}

// ProcessDocumentContext is [Processor.ProcessDocument] with an explicit context, used to bound or
// cancel in-flight fragment dispatch.
func (p *Processor) ProcessDocumentContext(
	ctx context.Context,
	r io.Reader,
	w io.Writer,
	dispatcher Dispatcher,
	processFragment func(*http.Request, *http.Response) (*http.Response, error),
) error {
	opts := esiproc.Options{
		Namespace:         p.config.namespaceOrDefault(),
		Escaped:           p.config.isEscapedContent,
		Env:               p.config.env,
		ProcessFragment:   esiproc.ProcessFragmentFunc(processFragment),
		Recursive:         p.config.recursive,
		MaxRecursionDepth: p.config.maxRecursionDepthOrDefault(),
		Metrics:           p.config.metrics,
		Logger:            p.config.logger,
	}

	return esiproc.Process(ctx, r, w, p.template, dispatcher, opts)
}

// ProcessResponse is a convenience wrapper around ProcessDocument for the common case of rewriting
// an upstream *http.Response in place: it reads resp.Body as the source document, writes the
// assembled output to w, and closes resp.Body.
func (p *Processor) ProcessResponse(resp *http.Response, w io.Writer, dispatcher Dispatcher, processFragment func(*http.Request, *http.Response) (*http.Response, error)) error {
	defer resp.Body.Close()
	return p.ProcessDocument(resp.Body, w, dispatcher, processFragment)
}
