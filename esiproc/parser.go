package esiproc

import (
	"errors"
	"io"

	"github.com/fastedge/esi/esixml"
)

// EventReader turns a stream of XML tokens into a stream of top-level [Event] values, recursively
// parsing <ns:try> subtrees into self-contained event vectors per the "Cyclic parse/scheduler
// references" design note: a TryEvent owns its child events by value, with no back-reference to
// the reader or scheduler.
type EventReader struct {
	r *esixml.Reader
}

// NewEventReader returns an EventReader reading tokens from r.
func NewEventReader(r *esixml.Reader) *EventReader {
	return &EventReader{r: r}
}

// Next returns the next top-level event, or io.EOF once the document is exhausted.
func (er *EventReader) Next() (Event, error) {
	for {
		tok, err := er.r.Next()
		if err != nil {
			return nil, wrapXMLErr(err)
		}

		switch tok.Type {
		case esixml.TokenTypeData:
			return PassthroughEvent{Data: tok.Data}, nil
		case esixml.TokenTypeEndElement:
			return nil, &UnexpectedClosingTagError{Name: tok.Name.Local, Offset: tok.Position.Start}
		case esixml.TokenTypeStartElement:
			switch tok.Name.Local {
			case "include":
				return er.parseInclude(tok)
			case "try":
				return er.parseTry(tok)
			case "comment":
				if err := er.skipBody(tok, "comment"); err != nil {
					return nil, err
				}
			case "remove":
				if err := er.skipBody(tok, "remove"); err != nil {
					return nil, err
				}
			case "attempt", "except":
				return nil, &UnexpectedOpeningTagError{Name: tok.Name.Local, Offset: tok.Position.Start}
			default:
				if err := er.skipBody(tok, tok.Name.Local); err != nil {
					return nil, err
				}
			}
		}
	}
}

func wrapXMLErr(err error) error {
	if errors.Is(err, io.EOF) {
		return io.EOF
	}
	return &XMLParseError{Underlying: err}
}

func attrValue(tok esixml.Token, name string) (string, bool) {
	for _, a := range tok.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func (er *EventReader) parseInclude(tok esixml.Token) (Event, error) {
	src, ok := attrValue(tok, "src")
	if !ok {
		return nil, &MissingRequiredParameterError{Tag: "include", Parameter: "src", Offset: tok.Position.Start}
	}

	alt, _ := attrValue(tok, "alt")

	continueOnError := false
	if v, ok := attrValue(tok, "onerror"); ok && v == "continue" {
		continueOnError = true
	}

	if !tok.Closed {
		if err := er.skipBody(tok, "include"); err != nil {
			return nil, err
		}
	}

	return IncludeEvent{
		Src:             src,
		Alt:             alt,
		ContinueOnError: continueOnError,
		Offset:          tok.Position.Start,
	}, nil
}

// skipBody discards everything up to and including the matching close tag of an already-consumed
// open tag named name (nothing, if that tag was self-closing), correctly handling same-named tags
// nested inside (e.g. a malformed document with a nested <ns:remove> inside another <ns:remove>).
func (er *EventReader) skipBody(tok esixml.Token, name string) error {
	if tok.Closed {
		return nil
	}

	depth := 1

	for {
		tok, err := er.r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return &XMLParseError{Underlying: io.ErrUnexpectedEOF}
			}
			return &XMLParseError{Underlying: err}
		}

		switch tok.Type {
		case esixml.TokenTypeStartElement:
			if tok.Name.Local == name && !tok.Closed {
				depth++
			}
		case esixml.TokenTypeEndElement:
			if tok.Name.Local == name {
				depth--
				if depth == 0 {
					return nil
				}
			}
		}
	}
}

func (er *EventReader) parseTry(tok esixml.Token) (Event, error) {
	if tok.Closed {
		return TryEvent{}, nil
	}

	var attempt, except []Event

	for {
		t, err := er.r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, &XMLParseError{Underlying: io.ErrUnexpectedEOF}
			}
			return nil, &XMLParseError{Underlying: err}
		}

		switch t.Type {
		case esixml.TokenTypeEndElement:
			if t.Name.Local == "try" {
				return TryEvent{Attempt: attempt, Except: except}, nil
			}
			return nil, &UnexpectedClosingTagError{Name: t.Name.Local, Offset: t.Position.Start}
		case esixml.TokenTypeStartElement:
			switch t.Name.Local {
			case "attempt":
				events, err := er.parseArm(t, "attempt")
				if err != nil {
					return nil, err
				}
				attempt = events
			case "except":
				events, err := er.parseArm(t, "except")
				if err != nil {
					return nil, err
				}
				except = events
			default:
				return nil, &UnexpectedOpeningTagError{Name: t.Name.Local, Offset: t.Position.Start}
			}
		}
	}
}

// parseArm parses the content of an <ns:attempt> or <ns:except> element into a self-contained
// event vector, recursing into nested <ns:try> elements as needed.
func (er *EventReader) parseArm(startTok esixml.Token, armName string) ([]Event, error) {
	if startTok.Closed {
		return nil, nil
	}

	var events []Event

	for {
		tok, err := er.r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, &XMLParseError{Underlying: io.ErrUnexpectedEOF}
			}
			return nil, &XMLParseError{Underlying: err}
		}

		switch tok.Type {
		case esixml.TokenTypeData:
			events = append(events, PassthroughEvent{Data: tok.Data})
		case esixml.TokenTypeEndElement:
			if tok.Name.Local == armName {
				return events, nil
			}
			return nil, &UnexpectedClosingTagError{Name: tok.Name.Local, Offset: tok.Position.Start}
		case esixml.TokenTypeStartElement:
			switch tok.Name.Local {
			case "include":
				ev, err := er.parseInclude(tok)
				if err != nil {
					return nil, err
				}
				events = append(events, ev)
			case "try":
				ev, err := er.parseTry(tok)
				if err != nil {
					return nil, err
				}
				events = append(events, ev)
			case "comment":
				if err := er.skipBody(tok, "comment"); err != nil {
					return nil, err
				}
			case "remove":
				if err := er.skipBody(tok, "remove"); err != nil {
					return nil, err
				}
			case "attempt", "except":
				return nil, &UnexpectedOpeningTagError{Name: tok.Name.Local, Offset: tok.Position.Start}
			default:
				if err := er.skipBody(tok, tok.Name.Local); err != nil {
					return nil, err
				}
			}
		}
	}
}
