package esiproc

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/fastedge/esi/esiexpr"
	"github.com/fastedge/esi/esixml"
)

// Options configures a single call to [Process].
type Options struct {
	// Namespace is the tag prefix (e.g. "esi" for <esi:include>) that marks an element as an ESI
	// directive. It is matched literally; xmlns declarations are not consulted. Defaults to "esi"
	// when empty.
	Namespace string

	// Escaped reports whether "src"/"alt" attribute values are XML-escaped and must be
	// unescaped before being resolved to a URL. The zero value (false) uses them verbatim; the esi
	// package's Default configuration sets it to true.
	Escaped bool

	// Env resolves ESI expression variables found in "src"/"alt" attribute values. A nil Env
	// disables expression evaluation: attribute values are used verbatim.
	Env esiexpr.Env

	// ProcessFragment, if non-nil, is called with every fragment response before its body is
	// read, letting the caller rewrite headers or the status code.
	ProcessFragment ProcessFragmentFunc

	// Recursive enables re-parsing of fetched fragment bodies as further ESI documents, up to
	// MaxRecursionDepth levels deep.
	Recursive bool

	// MaxRecursionDepth bounds recursive fragment processing. Defaults to 8. Ignored unless
	// Recursive is set.
	MaxRecursionDepth int

	// Metrics receives dispatch/failure/latency observations. Nil uses [NopMetrics].
	Metrics Metrics

	// Logger receives Debug-level per-event tracing and Warn-level suppressed-error logging. Nil
	// uses a no-op logger.
	Logger *zap.SugaredLogger
}

func (o Options) namespace() string {
	if o.Namespace == "" {
		return "esi"
	}
	return o.Namespace
}

func (o Options) maxRecursionDepth() int {
	if o.MaxRecursionDepth <= 0 {
		return 8
	}
	return o.MaxRecursionDepth
}

// RecursionLimitExceededError is returned when a fragment's recursive ESI processing would exceed
// Options.MaxRecursionDepth. It is fragment-fatal.
type RecursionLimitExceededError struct {
	MaxDepth int
}

func (e *RecursionLimitExceededError) Error() string {
	return "esi: recursion limit exceeded"
}

// Process reads an ESI document from r, resolves every directive against dispatcher and template,
// and writes the assembled output to w.
//
// After each source event read from r the scheduler drains its queue in document order, polling
// fragment handles up to the first one that has not resolved yet; once r is exhausted it keeps
// draining (yielding to the Go scheduler between rounds with runtime.Gosched) until every
// outstanding fragment has resolved.
func Process(ctx context.Context, r io.Reader, w io.Writer, template *http.Request, dispatcher Dispatcher, opts Options) error {
	return processAt(ctx, r, w, template, dispatcher, opts, 0)
}

func processAt(ctx context.Context, r io.Reader, w io.Writer, template *http.Request, dispatcher Dispatcher, opts Options, depth int) error {
	if opts.Recursive && depth > opts.maxRecursionDepth() {
		return &RecursionLimitExceededError{MaxDepth: opts.maxRecursionDepth()}
	}

	xr := esixml.NewReaderNamespace(r, opts.namespace())
	er := NewEventReader(xr)

	sc := &schedCtx{
		ctx:        ctx,
		dispatcher: dispatcher,
		process:    opts.ProcessFragment,
		metrics:    metricsOrNop(opts.Metrics),
		logger:     loggerOrNop(opts.Logger),
	}

	root := &task{}
	b := &builder{sc: sc, template: template, opts: opts, depth: depth}

	for {
		ev, err := er.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		el, err := b.build(ev)
		if err != nil {
			return err
		}

		root.queue = append(root.queue, el)

		if err := root.drain(sc, true, w); err != nil {
			return err
		}
	}

	for root.status == taskPending {
		if err := root.drain(sc, true, w); err != nil {
			return err
		}
		if root.status == taskPending {
			runtime.Gosched()
		}
	}

	if root.status == taskFailed {
		return &UnexpectedStatusError{Request: root.failedReq, StatusCode: root.failedStatus}
	}

	return nil
}

// builder turns parsed [Event] values into scheduler [element] values, dispatching fragment
// requests immediately so that sibling includes run concurrently.
type builder struct {
	sc       *schedCtx
	template *http.Request
	opts     Options
	depth    int
}

func (b *builder) build(ev Event) (*element, error) {
	switch e := ev.(type) {
	case PassthroughEvent:
		return &element{kind: elementRaw, raw: e.Data}, nil
	case IncludeEvent:
		return b.buildInclude(e)
	case TryEvent:
		return b.buildTry(e)
	default:
		panic("esiproc: unreachable event type")
	}
}

func (b *builder) buildTry(e TryEvent) (*element, error) {
	attempt := &task{}
	for _, child := range e.Attempt {
		el, err := b.build(child)
		if err != nil {
			return nil, err
		}
		attempt.queue = append(attempt.queue, el)
	}

	except := &task{}
	for _, child := range e.Except {
		el, err := b.build(child)
		if err != nil {
			return nil, err
		}
		except.queue = append(except.queue, el)
	}

	return &element{kind: elementTryBlock, tryBlock: &tryBlock{attempt: attempt, except: except}}, nil
}

func (b *builder) buildInclude(e IncludeEvent) (*element, error) {
	src := b.resolve(e.Src)

	var altReq *http.Request
	if e.Alt != "" {
		alt := b.resolve(e.Alt)
		if ar, err := BuildFragmentRequest(b.template, alt, b.opts.Escaped); err == nil {
			altReq = ar
		}
	}

	req, err := BuildFragmentRequest(b.template, src, b.opts.Escaped)
	if err != nil {
		return b.buildFailedInclude(err, altReq, e.ContinueOnError)
	}

	handle, err := b.sc.dispatcher.Dispatch(b.sc.ctx, req)
	if err != nil {
		return nil, &RequestError{Request: req, Underlying: err}
	}

	b.sc.metrics.FragmentDispatched()
	b.sc.logger.Debugw("esi: dispatching fragment", "url", req.URL.String())

	return &element{
		kind: elementPending,
		fragment: &fragment{
			req:             req,
			altReq:          altReq,
			handle:          handle,
			continueOnError: e.ContinueOnError,
			dispatchedAt:    time.Now(),
			recurse:         b.recurseFunc(),
		},
	}, nil
}

// recurseFunc returns a closure that re-processes a fetched fragment body as a further ESI
// document, or nil when Options.Recursive is unset.
func (b *builder) recurseFunc() func([]byte) ([]byte, error) {
	if !b.opts.Recursive {
		return nil
	}
	return func(body []byte) ([]byte, error) {
		var out bytes.Buffer
		if err := processAt(b.sc.ctx, bytes.NewReader(body), &out, b.template, b.sc.dispatcher, b.opts, b.depth+1); err != nil {
			return nil, err
		}
		return out.Bytes(), nil
	}
}

// buildFailedInclude handles a "src" that failed to resolve to a valid request URL, before any
// request was dispatched: fall back to alt if one built successfully, otherwise drop silently on
// onerror="continue", otherwise escalate the build error as document-fatal.
func (b *builder) buildFailedInclude(buildErr error, altReq *http.Request, continueOnError bool) (*element, error) {
	if altReq != nil {
		handle, err := b.sc.dispatcher.Dispatch(b.sc.ctx, altReq)
		if err != nil {
			return nil, &RequestError{Request: altReq, Underlying: err}
		}

		b.sc.metrics.FragmentDispatched()

		return &element{
			kind: elementPending,
			fragment: &fragment{
				req:             altReq,
				handle:          handle,
				continueOnError: continueOnError,
				altDispatched:   true,
				dispatchedAt:    time.Now(),
				recurse:         b.recurseFunc(),
			},
		}, nil
	}

	if continueOnError {
		return &element{kind: elementRaw}, nil
	}

	return nil, buildErr
}

func (b *builder) resolve(raw string) string {
	if b.opts.Env == nil || raw == "" {
		return raw
	}
	if v, err := esiexpr.Interpolate(b.opts.Env, raw); err == nil {
		return v
	}
	return raw
}
