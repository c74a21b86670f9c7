package esi

import "github.com/fastedge/esi/esiproc"

// Error types returned by [Processor.ProcessDocument], re-exported from esiproc so that callers
// never need to import it directly.
type (
	XMLParseError                = esiproc.XMLParseError
	MissingRequiredParameterError = esiproc.MissingRequiredParameterError
	UnexpectedClosingTagError    = esiproc.UnexpectedClosingTagError
	UnexpectedOpeningTagError    = esiproc.UnexpectedOpeningTagError
	InvalidRequestURLError       = esiproc.InvalidRequestURLError
	RequestError                 = esiproc.RequestError
	UnexpectedStatusError        = esiproc.UnexpectedStatusError
	WriterError                  = esiproc.WriterError
	RecursionLimitExceededError  = esiproc.RecursionLimitExceededError
)
