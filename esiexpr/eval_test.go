package esiexpr_test

import (
	"testing"

	"github.com/fastedge/esi/esiexpr"
)

type testEnv map[string]esiexpr.Value

func (e testEnv) LookupVariable(name string, key *string) (esiexpr.Value, bool) {
	if key != nil {
		v, ok := e[name+"{"+*key+"}"]
		return v, ok
	}
	v, ok := e[name]
	return v, ok
}

func TestInterpolateVariable(t *testing.T) {
	env := testEnv{"HTTP_HOST": esiexpr.Str("example.com")}

	got, err := esiexpr.Interpolate(env, "host is $(HTTP_HOST)")
	if err != nil {
		t.Fatalf("Interpolate: %v", err)
	}
	if want := "host is example.com"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestInterpolateUnresolvedVariableRoundTrips(t *testing.T) {
	env := testEnv{}

	got, err := esiexpr.Interpolate(env, "$(MISSING)")
	if err != nil {
		t.Fatalf("Interpolate: %v", err)
	}
	if want := "$(MISSING)"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestInterpolateUnresolvedVariableWithKeyRoundTrips(t *testing.T) {
	env := testEnv{}

	got, err := esiexpr.Interpolate(env, "$(MISSING{key})")
	if err != nil {
		t.Fatalf("Interpolate: %v", err)
	}
	if want := "$(MISSING{key})"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestInterpolateDefaultUsedWhenEmpty(t *testing.T) {
	env := testEnv{"QUERY_STRING": esiexpr.Str("")}

	got, err := esiexpr.Interpolate(env, "$(QUERY_STRING|'none')")
	if err != nil {
		t.Fatalf("Interpolate: %v", err)
	}
	if want := "none"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestInterpolateDefaultNotUsedWhenPresent(t *testing.T) {
	env := testEnv{"QUERY_STRING": esiexpr.Str("a=1")}

	got, err := esiexpr.Interpolate(env, "$(QUERY_STRING|'none')")
	if err != nil {
		t.Fatalf("Interpolate: %v", err)
	}
	if want := "a=1"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

// Bareword and single-quoted keys are equivalent ways of writing the same lookup key.
func TestBarewordAndQuotedKeyAreEquivalent(t *testing.T) {
	env := testEnv{"QUERY_STRING{first}": esiexpr.Str("1")}

	got1, err := esiexpr.Interpolate(env, "$(QUERY_STRING{first})")
	if err != nil {
		t.Fatalf("Interpolate bareword: %v", err)
	}

	got2, err := esiexpr.Interpolate(env, "$(QUERY_STRING{'first'})")
	if err != nil {
		t.Fatalf("Interpolate quoted: %v", err)
	}

	if got1 != got2 {
		t.Errorf("bareword key %q != quoted key %q", got1, got2)
	}
}

func TestDoubleQuotedKeyIsSyntaxError(t *testing.T) {
	_, err := esiexpr.Eval(testEnv{}, `$(QUERY_STRING{"first"})`)
	if err == nil {
		t.Fatal("expected a syntax error, got nil")
	}
}

func TestLowercaseVariableNameIsNotAVariable(t *testing.T) {
	// A lowercase name after "$(" does not match the uppercase variable-name grammar, so the
	// parser rejects it as a variable and it is not treated as one.
	_, err := esiexpr.Eval(testEnv{}, "$(lower)")
	if err == nil {
		t.Fatal("expected an error parsing a lowercase variable name")
	}
}

func TestJoinConsumesStringSplitList(t *testing.T) {
	got, err := esiexpr.Eval(testEnv{}, "$join($string_split('a,b,c', ','), '-')")
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if want := "a-b-c"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestNestedFunctionCalls(t *testing.T) {
	got, err := esiexpr.Eval(testEnv{}, "$join($string_split(a:b, ':'), $dollar())")
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if want := "a$b"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestUnknownFunctionRendersLiterally(t *testing.T) {
	got, err := esiexpr.Eval(testEnv{}, "$nope(a)")
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if want := "unknown_function"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRandDefaultBound(t *testing.T) {
	got, err := esiexpr.Eval(testEnv{}, "$rand()")
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got == "" {
		t.Error("expected a non-empty numeric string")
	}
}
