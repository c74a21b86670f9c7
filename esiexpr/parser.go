package esiexpr

import (
	"io"
	"sync"

	"github.com/fastedge/esi/esiexpr/ast"
	"github.com/fastedge/esi/esiexpr/internal/text"
)

var parserPool = sync.Pool{
	New: func() any {
		return &parser{}
	},
}

func getParser(data string) *parser {
	p, _ := parserPool.Get().(*parser)
	p.reset(data)
	return p
}

func putParser(p *parser) {
	p.reset("")
	parserPool.Put(p)
}

// Parse parses data as a sequence of ESI expression symbols: literal text interspersed with
// variable references ($(NAME...)) and function calls ($name(...)).
//
// Per the "Failure modes" evaluation rule, callers that want the emit-unchanged fallback on parse
// failure must implement it themselves; Parse itself always returns an error on invalid syntax.
func Parse(data string) ([]ast.Node, error) {
	p := getParser(data)
	defer putParser(p)

	return p.parseSequence()
}

// ParseVariable parses a single leading variable reference from data, used by [Interpolate]
// which has already located the "$(" that starts it.
func ParseVariable(data string) (*ast.VariableNode, error) {
	p := getParser(data)
	defer putParser(p)

	return p.parseVariable()
}

type parser struct {
	text.Scanner[string]
}

func (p *parser) reset(data string) {
	p.Scanner.Reset(data)
}

func (p *parser) consume(c byte) error {
	if err := p.ConsumeOrError(c); err != nil {
		msg := "unexpected character, '" + string(rune(c)) + "' expected"
		if _, eof := err.(*text.UnexpectedEndOfInput); eof {
			msg = "end of input, '" + string(rune(c)) + "' expected"
		}

		return &SyntaxError{
			Offset:     p.Offset(),
			Message:    msg,
			Underlying: err,
		}
	}

	return nil
}

func (p *parser) tryConsume(c byte) bool {
	return p.Consume(c)
}

func (p *parser) peek() (byte, bool) {
	return p.Peek()
}

func (p *parser) discardSpaces() {
	p.SkipSpaces()
}

func (p *parser) readQuotedString() (string, error) {
	if err := p.consume('\''); err != nil {
		return "", err
	}

	start := p.Offset()

	for {
		c, ok := p.peek()
		if !ok {
			return "", &SyntaxError{Offset: p.Offset(), Message: "missing closing quote", Underlying: io.ErrUnexpectedEOF}
		}

		p.Consume(c)

		if c == '\'' {
			break
		}
	}

	return p.data()[start : p.Offset()-1], nil
}

func (p *parser) data() string {
	return p.Data()
}

// isVarNameByte reports whether c is a valid byte of an uppercase VAR_NAME.
func isVarNameByte(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}

// isFnNameByte reports whether c is a valid byte of a lowercase FN_NAME.
func isFnNameByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_'
}

// isDelimiter reports whether c terminates a run of unquoted text, in either context.
func isDelimiter(c byte) bool {
	switch c {
	case '$', '\'', '(', ')', '{', '}', ',':
		return true
	default:
		return false
	}
}

// readName reads a maximal run of bytes matching class, used for VAR_NAME and FN_NAME.
func (p *parser) readName(class func(byte) bool, what string) (string, error) {
	start := p.Offset()

	for {
		c, ok := p.peek()
		if !ok || !class(c) {
			break
		}
		p.Consume(c)
	}

	if p.Offset() == start {
		return "", &SyntaxError{Offset: start, Message: "empty " + what}
	}

	return p.data()[start:p.Offset()], nil
}

// readText reads a run of unquoted text. Inside a function argument list whitespace is not part
// of text and instead terminates the run (it is consumed as inter-argument spacing by the caller).
func (p *parser) readText(insideArgs bool) string {
	start := p.Offset()

	for {
		c, ok := p.peek()
		if !ok || isDelimiter(c) {
			break
		}

		if insideArgs {
			switch c {
			case ' ', '\r', '\n', '\t':
				return p.data()[start:p.Offset()]
			}
		}

		p.Consume(c)
	}

	return p.data()[start:p.Offset()]
}

// readKey reads an ESI key: ("{key}"), either quoted or a bareword, per grammar rule
// key := quoted | chars not in { $ { } , " }.
func (p *parser) readKey() (string, error) {
	if c, _ := p.peek(); c == '\'' {
		return p.readQuotedString()
	}

	if c, _ := p.peek(); c == '"' {
		return "", &SyntaxError{Offset: p.Offset(), Message: "double-quoted key is not valid, use single quotes"}
	}

	start := p.Offset()

	for {
		c, ok := p.peek()
		if !ok {
			break
		}

		switch c {
		case '$', '{', '}', ',', '"':
			return p.data()[start:p.Offset()], nil
		}

		p.Consume(c)
	}

	return p.data()[start:p.Offset()], nil
}

// parseSequence parses expr := (variable | function | text)+.
func (p *parser) parseSequence() ([]ast.Node, error) {
	var nodes []ast.Node

	for {
		if _, ok := p.peek(); !ok {
			break
		}

		node, err := p.parseSingle(false)
		if err != nil {
			return nil, err
		}

		nodes = append(nodes, node)
	}

	return nodes, nil
}

// parseSingle parses one variable, function call, or run of text.
func (p *parser) parseSingle(insideArgs bool) (ast.Node, error) {
	start := p.Offset()

	if c, _ := p.peek(); c == '$' {
		if p.peekIsVariableStart() {
			return p.parseVariable()
		}
		return p.parseFunction()
	}

	if c, _ := p.peek(); c == '\'' {
		s, err := p.readQuotedString()
		if err != nil {
			return nil, err
		}
		return &ast.TextNode{Position: ast.Position{Start: start, End: p.Offset()}, Value: s}, nil
	}

	text := p.readText(insideArgs)
	if text == "" {
		c, ok := p.peek()
		if !ok {
			return nil, &SyntaxError{Offset: p.Offset(), Message: "unexpected end of input", Underlying: io.ErrUnexpectedEOF}
		}
		return nil, &SyntaxError{Offset: p.Offset(), Message: "unexpected character '" + string(rune(c)) + "'"}
	}

	return &ast.TextNode{Position: ast.Position{Start: start, End: p.Offset()}, Value: text}, nil
}

func (p *parser) peekIsVariableStart() bool {
	data := p.data()
	offset := p.Offset()
	return offset+1 < len(data) && data[offset] == '$' && data[offset+1] == '('
}

// parseVariable parses variable := '$(' VAR_NAME ( '{' key '}' )? ( '|' default )? ')', where
// default is a single variable, function call, quoted string or run of text. A default made of
// several of these in sequence (e.g. "a$(B)") is a syntax error.
func (p *parser) parseVariable() (*ast.VariableNode, error) {
	start := p.Offset()

	if err := p.consume('$'); err != nil {
		return nil, err
	}

	if err := p.consume('('); err != nil {
		return nil, err
	}

	name, err := p.readName(isVarNameByte, "variable name")
	if err != nil {
		return nil, err
	}

	var key *string

	if p.tryConsume('{') {
		k, err := p.readKey()
		if err != nil {
			return nil, err
		}

		if err := p.consume('}'); err != nil {
			return nil, err
		}

		key = &k
	}

	var def ast.Node

	if p.tryConsume('|') {
		def, err = p.parseSingle(false)
		if err != nil {
			return nil, err
		}
	}

	if err := p.consume(')'); err != nil {
		return nil, err
	}

	return &ast.VariableNode{
		Position: ast.Position{Start: start, End: p.Offset()},
		Name:     name,
		Key:      key,
		Default:  def,
	}, nil
}

// parseFunction parses function := '$' FN_NAME '(' (arg (',' arg)*)? ')'.
func (p *parser) parseFunction() (*ast.CallNode, error) {
	start := p.Offset()

	if err := p.consume('$'); err != nil {
		return nil, err
	}

	name, err := p.readName(isFnNameByte, "function name")
	if err != nil {
		return nil, err
	}

	if err := p.consume('('); err != nil {
		return nil, err
	}

	var args []ast.Node

	p.discardSpaces()

	if c, ok := p.peek(); ok && c != ')' {
		for {
			arg, err := p.parseSingle(true)
			if err != nil {
				return nil, err
			}

			args = append(args, arg)

			p.discardSpaces()

			if !p.tryConsume(',') {
				break
			}

			p.discardSpaces()
		}
	}

	p.discardSpaces()

	if err := p.consume(')'); err != nil {
		return nil, err
	}

	return &ast.CallNode{
		Position: ast.Position{Start: start, End: p.Offset()},
		Name:     name,
		Args:     args,
	}, nil
}
