package esiexpr

import (
	"strings"

	"github.com/fastedge/esi/esiexpr/ast"
)

// Env supplies the request context that variables resolve against.
//
// A nil *string key means the variable was referenced without a {key} clause.
type Env interface {
	// LookupVariable resolves one of the recognised ESI variables (see RESOLVE_VAR in spec.md
	// §4.1) against the current request. It returns ok=false for a variable name that is not
	// recognised at all, which the evaluator renders back as the literal "$(NAME)"/"$(NAME{key})"
	// source form. A recognised variable that simply has no data for key must return ok=true and
	// an empty Value, not ok=false, so that default-chaining (not literal fallback) applies.
	LookupVariable(name string, key *string) (value Value, ok bool)
}

// Eval parses and evaluates data, returning the resulting string with all variables and function
// calls substituted.
//
// Per the "Failure modes" rule, a parse error is non-fatal to the caller: Eval returns the error,
// and callers that want the "emit unchanged" fallback should substitute data verbatim on error.
func Eval(env Env, data string) (string, error) {
	nodes, err := Parse(data)
	if err != nil {
		return "", err
	}

	var b strings.Builder

	for _, node := range nodes {
		v, err := evalNode(env, node)
		if err != nil {
			return "", err
		}

		b.WriteString(v.String())
	}

	return b.String(), nil
}

// Interpolate is a cheaper variant of Eval used when the caller only expects bare variable
// references (e.g. inside a "src" attribute), not function calls. It returns s unchanged if it
// contains no "$(" at all, avoiding a full parse of plain strings.
func Interpolate(env Env, s string) (string, error) {
	if !strings.Contains(s, "$(") {
		return s, nil
	}

	var b strings.Builder

	for {
		index := strings.Index(s, "$(")
		if index == -1 {
			b.WriteString(s)
			break
		}

		b.WriteString(s[:index])

		v, err := ParseVariable(s[index:])
		if err != nil {
			return "", err
		}

		val, err := evalVariable(env, v)
		if err != nil {
			return "", err
		}

		b.WriteString(val.String())

		s = s[index+v.Position.End:]
	}

	return b.String(), nil
}

// evalNode evaluates node to a [Value]. Function arguments are evaluated through this path too,
// so that a call like $join($string_split(...), ',') sees a real list-kind Value rather than a
// pre-flattened string.
func evalNode(env Env, node ast.Node) (Value, error) {
	switch n := node.(type) {
	case *ast.TextNode:
		return Str(n.Value), nil
	case *ast.VariableNode:
		return evalVariable(env, n)
	case *ast.CallNode:
		return evalCall(env, n)
	default:
		panic("esiexpr: unreachable node type")
	}
}

func evalVariable(env Env, node *ast.VariableNode) (Value, error) {
	v, ok := env.LookupVariable(node.Name, node.Key)

	if !ok {
		// Unknown variable: round-trip the literal source form.
		if node.Key != nil {
			return Str("$(" + node.Name + "{" + *node.Key + "})"), nil
		}
		return Str("$(" + node.Name + ")"), nil
	}

	if v.IsEmpty() && node.Default != nil {
		return evalNode(env, node.Default)
	}

	return v, nil
}

func evalCall(env Env, node *ast.CallNode) (Value, error) {
	args := make([]Value, len(node.Args))

	for i, arg := range node.Args {
		v, err := evalNode(env, arg)
		if err != nil {
			return Value{}, err
		}
		args[i] = v
	}

	return callFunction(node.Name, args), nil
}
