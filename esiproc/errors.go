package esiproc

import (
	"errors"
	"fmt"
	"net/http"
)

// XMLParseError wraps a lower-level syntax error produced by the underlying XML reader.
//
// It is document-fatal: processing stops and the error is returned to the caller.
type XMLParseError struct {
	Underlying error
}

func (e *XMLParseError) Error() string {
	return fmt.Sprintf("esi: xml parse error: %s", e.Underlying)
}

func (e *XMLParseError) Is(err error) bool {
	var o *XMLParseError
	return errors.As(err, &o)
}

func (e *XMLParseError) Unwrap() error {
	return e.Underlying
}

// MissingRequiredParameterError is returned when a required attribute is absent from an element,
// e.g. "src" on <ns:include>. It is document-fatal.
type MissingRequiredParameterError struct {
	Tag       string
	Parameter string
	Offset    int
}

func (e *MissingRequiredParameterError) Error() string {
	return fmt.Sprintf("esi: %s: missing required parameter %q at offset %d", e.Tag, e.Parameter, e.Offset)
}

func (e *MissingRequiredParameterError) Is(err error) bool {
	var o *MissingRequiredParameterError
	return errors.As(err, &o) && *o == *e
}

// UnexpectedClosingTagError is returned when encountering a closing tag that does not correspond
// to any expected open element (e.g. </ns:try> at depth 0, </ns:remove> without an open). It is
// document-fatal.
type UnexpectedClosingTagError struct {
	Name   string
	Offset int
}

func (e *UnexpectedClosingTagError) Error() string {
	return fmt.Sprintf("esi: unexpected closing tag %q at offset %d", e.Name, e.Offset)
}

func (e *UnexpectedClosingTagError) Is(err error) bool {
	var o *UnexpectedClosingTagError
	return errors.As(err, &o) && *o == *e
}

// UnexpectedOpeningTagError is returned when encountering an opening tag in a context where it is
// not permitted, e.g. <ns:attempt> or <ns:except> outside of <ns:try>. It is document-fatal.
type UnexpectedOpeningTagError struct {
	Name   string
	Offset int
}

func (e *UnexpectedOpeningTagError) Error() string {
	return fmt.Sprintf("esi: unexpected opening tag %q at offset %d", e.Name, e.Offset)
}

func (e *UnexpectedOpeningTagError) Is(err error) bool {
	var o *UnexpectedOpeningTagError
	return errors.As(err, &o) && *o == *e
}

// InvalidRequestURLError is returned by [BuildFragmentRequest] when the "src" or "alt" value
// cannot be resolved to a request URL. It is fragment-fatal.
type InvalidRequestURLError struct {
	Value      string
	Underlying error
}

func (e *InvalidRequestURLError) Error() string {
	return fmt.Sprintf("esi: invalid request url %q: %s", e.Value, e.Underlying)
}

func (e *InvalidRequestURLError) Is(err error) bool {
	var o *InvalidRequestURLError
	return errors.As(err, &o) && o.Value == e.Value
}

func (e *InvalidRequestURLError) Unwrap() error {
	return e.Underlying
}

// RequestError wraps a transport-level error returned by a [Dispatcher] or [Handle]. It is
// fragment-fatal.
type RequestError struct {
	Request    *http.Request
	Underlying error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("esi: request error for %s: %s", e.Request.URL, e.Underlying)
}

func (e *RequestError) Unwrap() error {
	return e.Underlying
}

// UnexpectedStatusError is returned when a fragment response has a non-2xx/3xx status code and no
// alt/onerror/except branch suppresses it. It is fragment-fatal, escalating to document-fatal if
// unsuppressed.
type UnexpectedStatusError struct {
	Request    *http.Request
	StatusCode int
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("esi: unexpected status %d for %s", e.StatusCode, e.Request.URL)
}

func (e *UnexpectedStatusError) Is(err error) bool {
	var o *UnexpectedStatusError
	return errors.As(err, &o) && o.StatusCode == e.StatusCode && o.Request.URL.String() == e.Request.URL.String()
}

// WriterError wraps an error returned by the output writer. Unlike other errors it is never
// suppressed by onerror/alt/except handling and is always propagated immediately.
type WriterError struct {
	Underlying error
}

func (e *WriterError) Error() string {
	return fmt.Sprintf("esi: writer error: %s", e.Underlying)
}

func (e *WriterError) Unwrap() error {
	return e.Underlying
}
