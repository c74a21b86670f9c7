package esiexpr

import (
	"math/rand/v2"
	"strconv"
	"strings"
)

const defaultRandBound = 99_999_999

// callFunction evaluates one of the recognised ESI functions against already-evaluated arguments.
//
// An unrecognised name resolves to the literal string "unknown_function" rather than an error,
// matching the "Failure modes" evaluation rule for function calls.
func callFunction(name string, args []Value) Value {
	switch name {
	case "dollar":
		return Str("$")
	case "dquote":
		return Str(`"`)
	case "squote":
		return Str("'")
	case "string_split":
		return callStringSplit(args)
	case "join":
		return callJoin(args)
	case "rand":
		return callRand(args)
	default:
		return Str("unknown_function")
	}
}

// callStringSplit implements string_split(s[, sep[, max]]), splitting s on sep (default a single
// space) and returning at most max pieces, with the remainder of s left untouched in the final
// piece when max is reached.
func callStringSplit(args []Value) Value {
	if len(args) == 0 {
		return List(nil)
	}

	s := args[0].String()

	sep := " "
	if len(args) > 1 {
		sep = args[1].String()
	}

	max := -1
	if len(args) > 2 {
		if n, err := strconv.Atoi(args[2].String()); err == nil {
			max = n
		}
	}

	var parts []string
	if sep == "" {
		parts = strings.Split(s, "")
	} else if max > 0 {
		parts = strings.SplitN(s, sep, max)
	} else {
		parts = strings.Split(s, sep)
	}

	return List(parts)
}

// callJoin implements join(list[, sep]), joining the elements of a list-kind value with sep
// (default a single space). A non-list argument is treated as a single-element list.
func callJoin(args []Value) Value {
	if len(args) == 0 {
		return Str("")
	}

	sep := " "
	if len(args) > 1 {
		sep = args[1].String()
	}

	v := args[0]

	var items []string
	if v.Kind == KindList {
		items = v.List
	} else {
		items = []string{v.String()}
	}

	return Str(strings.Join(items, sep))
}

// callRand implements rand(n), returning a decimal string in [0, n). A missing or unparsable n
// falls back to defaultRandBound.
func callRand(args []Value) Value {
	bound := defaultRandBound

	if len(args) > 0 {
		if n, err := strconv.Atoi(strings.TrimSpace(args[0].String())); err == nil && n > 0 {
			bound = n
		}
	}

	return Str(strconv.Itoa(rand.IntN(bound)))
}
