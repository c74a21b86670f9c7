package esiproc

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// Dispatcher enqueues an asynchronous HTTP request and returns a non-blocking handle to its
// eventual response, matching the edge runtime's poll-based dispatch model.
//
// Dispatch must return quickly; the actual request/response exchange happens in the background
// and is observed later through repeated calls to [Handle.Poll].
type Dispatcher interface {
	Dispatch(ctx context.Context, req *http.Request) (Handle, error)
}

// Handle is an opaque, in-flight fragment request. Poll is the only suspension point exposed to
// the scheduler: it is called repeatedly (cooperatively, never blocking) until done is true.
type Handle interface {
	// Poll reports whether the request has completed. If done is false, resp and err are both
	// nil and the caller should poll again later. Once done is true, Poll must keep returning the
	// same result on subsequent calls.
	Poll() (resp *http.Response, done bool, err error)
}

// BuildFragmentRequest resolves rawURL against template into a fragment request descriptor,
// implementing the resolution rules from the fragment dispatcher component:
//
//  1. rawURL is XML-unescaped unless escaped is false.
//  2. A value starting with "/" rewrites the path and query of a clone of template, preserving
//     its scheme and authority.
//  3. Otherwise rawURL is parsed as an absolute URL and replaces the template's URL entirely.
//  4. The Host header is set to the resulting URL's host.
//
// Parse failures are reported as [InvalidRequestURLError].
func BuildFragmentRequest(template *http.Request, rawURL string, escaped bool) (*http.Request, error) {
	value := rawURL
	if escaped {
		value = unescapeXML(rawURL)
	}

	req := template.Clone(template.Context())
	req.Body = nil
	req.GetBody = nil
	req.ContentLength = 0

	if strings.HasPrefix(value, "/") {
		// Preserve scheme+authority by parsing the path+query on its own and copying just the
		// path/query/fragment components onto the template's URL.
		u, err := url.Parse(value)
		if err != nil {
			return nil, &InvalidRequestURLError{Value: rawURL, Underlying: err}
		}

		newURL := *req.URL
		newURL.Path = u.Path
		newURL.RawPath = u.RawPath
		newURL.RawQuery = u.RawQuery
		newURL.Fragment = u.Fragment
		req.URL = &newURL
	} else {
		u, err := url.Parse(value)
		if err != nil {
			return nil, &InvalidRequestURLError{Value: rawURL, Underlying: err}
		}
		if !u.IsAbs() {
			return nil, &InvalidRequestURLError{Value: rawURL, Underlying: errAbsoluteURLRequired}
		}
		req.URL = u
	}

	req.Host = req.URL.Host

	return req, nil
}

var errAbsoluteURLRequired = &absoluteURLRequiredError{}

type absoluteURLRequiredError struct{}

func (*absoluteURLRequiredError) Error() string {
	return "value is neither a path nor an absolute URL"
}

func unescapeXML(s string) string {
	replacer := strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&apos;", "'",
		"&amp;", "&",
	)
	return replacer.Replace(s)
}
