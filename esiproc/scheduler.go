package esiproc

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ProcessFragmentFunc is an optional hook invoked after a fragment response is received and before
// its body is read, letting a caller rewrite headers or override the status code.
type ProcessFragmentFunc func(req *http.Request, resp *http.Response) (*http.Response, error)

// schedCtx bundles the collaborators threaded through every drain call: the dispatch context, the
// fragment dispatcher, the optional response hook, and the ambient metrics/logging sinks.
type schedCtx struct {
	ctx        context.Context
	dispatcher Dispatcher
	process    ProcessFragmentFunc
	metrics    Metrics
	logger     *zap.SugaredLogger
}

type elementKind uint8

const (
	elementRaw elementKind = iota
	elementPending
	elementTryBlock
)

// element is a queued unit of work inside the scheduler.
type element struct {
	kind     elementKind
	raw      []byte
	fragment *fragment
	tryBlock *tryBlock
}

// fragment backs a Pending element: a fragment request with a live (or about to be dispatched)
// handle, and an already-built alt ready to be dispatched on failure.
type fragment struct {
	req    *http.Request
	altReq *http.Request
	handle Handle

	continueOnError bool
	altDispatched   bool
	dispatchedAt    time.Time

	// recurse, when non-nil, re-processes a fetched fragment body as a further ESI document
	// (Options.Recursive).
	recurse func([]byte) ([]byte, error)
}

type taskStatus uint8

const (
	taskPending taskStatus = iota
	taskSucceeded
	taskFailed
)

// task is a mini-scheduler: an ordered queue of elements draining into buffer (or, for the root
// task, straight to the output writer per the streaming rule), plus the terminal status of the
// Failed(request, status) state machine.
type task struct {
	queue  []*element
	buffer bytes.Buffer
	status taskStatus

	failedReq    *http.Request
	failedStatus int
}

// tryBlock is the nested scheduler state for a parsed <ns:try>.
type tryBlock struct {
	attempt *task
	except  *task
}

func isSuccessStatus(code int) bool {
	return code >= 200 && code < 400
}

// drain advances t as far as possible without blocking, writing resolved bytes to out (for the
// root task) or into t.buffer (for a try arm). It returns only once the queue is exhausted or the
// head element is not yet resolved; t.status is left at taskPending in the latter case so the
// caller can retry after the next Poll opportunity.
//
// drain returns [WriterError] when writing to out fails and [RequestError] when dispatching an alt
// fails: every other failure mode is absorbed into t.status so that try/except and onerror/alt
// logic can decide what to do with it.
func (t *task) drain(sc *schedCtx, isRoot bool, out io.Writer) error {
	// Elements appended after an earlier drain emptied the queue make the task pending again.
	if t.status == taskSucceeded && len(t.queue) > 0 {
		t.status = taskPending
	}

	for len(t.queue) > 0 {
		head := t.queue[0]

		switch head.kind {
		case elementRaw:
			if err := t.emit(isRoot, out, head.raw); err != nil {
				return err
			}
			t.queue = t.queue[1:]

		case elementPending:
			done, err := t.drainFragment(sc, isRoot, out, head)
			if err != nil {
				return err
			}
			if !done {
				return nil
			}

		case elementTryBlock:
			done, err := t.drainTryBlock(sc, isRoot, out, head)
			if err != nil {
				return err
			}
			if !done {
				return nil
			}
		}

		if t.status == taskFailed {
			return nil
		}
	}

	if isRoot && t.buffer.Len() > 0 {
		if _, err := out.Write(t.buffer.Bytes()); err != nil {
			return &WriterError{Underlying: err}
		}
		t.buffer.Reset()
	}

	if t.status != taskFailed {
		t.status = taskSucceeded
	}

	return nil
}

// emit writes data per the streaming rule: direct to out when this is the root task and nothing
// earlier is still buffered, otherwise appended to t.buffer for later flushing.
func (t *task) emit(isRoot bool, out io.Writer, data []byte) error {
	if isRoot && t.buffer.Len() == 0 {
		if _, err := out.Write(data); err != nil {
			return &WriterError{Underlying: err}
		}
		return nil
	}

	t.buffer.Write(data)
	return nil
}

// drainFragment resolves the Pending element at the head of t.queue. It returns done=false if the
// handle has not resolved yet.
func (t *task) drainFragment(sc *schedCtx, isRoot bool, out io.Writer, head *element) (bool, error) {
	f := head.fragment

	resp, done, err := f.handle.Poll()
	if !done {
		return false, nil
	}

	if err != nil {
		return true, t.handleFragmentFailure(sc, head, f.req, 0, &RequestError{Request: f.req, Underlying: err})
	}

	if sc.process != nil {
		resp2, perr := sc.process(f.req, resp)
		if perr != nil {
			_ = resp.Body.Close()
			return true, t.handleFragmentFailure(sc, head, f.req, 0, &RequestError{Request: f.req, Underlying: perr})
		}
		resp = resp2
	}

	if !isSuccessStatus(resp.StatusCode) {
		_ = resp.Body.Close()
		sc.logger.Warnw("esi: fragment returned non-success status", "url", f.req.URL.String(), "status", resp.StatusCode)
		return true, t.handleFragmentFailure(sc, head, f.req, resp.StatusCode, nil)
	}

	body, rerr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	if rerr != nil {
		return true, t.handleFragmentFailure(sc, head, f.req, 0, &RequestError{Request: f.req, Underlying: rerr})
	}

	if f.recurse != nil {
		processed, rerr := f.recurse(body)
		if rerr != nil {
			return true, t.handleFragmentFailure(sc, head, f.req, 0, &RequestError{Request: f.req, Underlying: rerr})
		}
		body = processed
	}

	if !f.dispatchedAt.IsZero() {
		sc.metrics.FragmentLatency(time.Since(f.dispatchedAt))
	}
	sc.logger.Debugw("esi: fragment resolved", "url", f.req.URL.String())

	if err := t.emit(isRoot, out, body); err != nil {
		return true, err
	}

	t.queue = t.queue[1:]

	return true, nil
}

// handleFragmentFailure applies the "Include element resolution" rules from a non-success poll
// result: retry via alt (front-of-queue, dispatched at most once), drop silently on
// onerror="continue", or fail the task.
func (t *task) handleFragmentFailure(
	sc *schedCtx,
	head *element,
	req *http.Request,
	statusCode int,
	transportErr error,
) error {
	f := head.fragment

	if f.altReq != nil && !f.altDispatched {
		handle, err := sc.dispatcher.Dispatch(sc.ctx, f.altReq)
		if err != nil {
			return &RequestError{Request: f.altReq, Underlying: err}
		}

		sc.metrics.FragmentDispatched()
		sc.logger.Debugw("esi: dispatching alt fragment", "url", f.altReq.URL.String())

		t.queue[0] = &element{
			kind: elementPending,
			fragment: &fragment{
				req:             f.altReq,
				continueOnError: f.continueOnError,
				handle:          handle,
				altDispatched:   true,
				dispatchedAt:    time.Now(),
				recurse:         f.recurse,
			},
		}

		return nil
	}

	if f.continueOnError {
		sc.logger.Debugw("esi: suppressing fragment error via onerror=continue", "url", req.URL.String())
		t.queue = t.queue[1:]
		return nil
	}

	sc.metrics.FragmentFailed()

	t.status = taskFailed
	t.failedReq = req
	t.failedStatus = statusCode
	t.queue = nil

	_ = transportErr

	return nil
}

// drainTryBlock resolves the TryBlock element at the head of t.queue per the "TryBlock
// resolution" rules: attempt drains first into its own buffer; except only runs if attempt fails;
// whichever succeeds contributes its buffer to t, the loser's buffer is dropped.
func (t *task) drainTryBlock(sc *schedCtx, isRoot bool, out io.Writer, head *element) (bool, error) {
	tb := head.tryBlock

	if tb.attempt.status != taskSucceeded && tb.attempt.status != taskFailed {
		if err := tb.attempt.drain(sc, false, nil); err != nil {
			return true, err
		}
	}

	if tb.attempt.status == taskPending {
		return false, nil
	}

	if tb.attempt.status == taskSucceeded {
		if err := t.emit(isRoot, out, tb.attempt.buffer.Bytes()); err != nil {
			return true, err
		}
		t.queue = t.queue[1:]
		return true, nil
	}

	if tb.except.status != taskSucceeded && tb.except.status != taskFailed {
		if err := tb.except.drain(sc, false, nil); err != nil {
			return true, err
		}
	}

	if tb.except.status == taskPending {
		return false, nil
	}

	if tb.except.status == taskSucceeded {
		if err := t.emit(isRoot, out, tb.except.buffer.Bytes()); err != nil {
			return true, err
		}
		t.queue = t.queue[1:]
		return true, nil
	}

	// Both branches failed: propagate the attempt's failure tuple outward.
	t.status = taskFailed
	t.failedReq = tb.attempt.failedReq
	t.failedStatus = tb.attempt.failedStatus
	t.queue = nil

	return true, nil
}
