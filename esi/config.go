package esi

import (
	"go.uber.org/zap"

	"github.com/fastedge/esi/esiexpr"
	"github.com/fastedge/esi/esiproc"
)

// Configuration controls how a [Processor] parses and resolves a document. The zero value is not
// ready to use; start from [Default] and apply the With* builder methods, mirroring
// `with_namespace`/`with_escaped` from the Rust implementation this package is ported from.
type Configuration struct {
	namespace         string
	isEscapedContent  bool
	recursive         bool
	maxRecursionDepth int
	env               esiexpr.Env
	metrics           esiproc.Metrics
	logger            *zap.SugaredLogger
}

// Default returns the Configuration used by [New] when none of the With* methods have been
// applied: namespace "esi", escaped content, no recursion.
func Default() Configuration {
	return Configuration{
		namespace:         "esi",
		isEscapedContent:  true,
		maxRecursionDepth: 8,
	}
}

// WithNamespace returns a copy of c with the XML namespace that marks an element as an ESI
// directive overridden.
func (c Configuration) WithNamespace(namespace string) Configuration {
	c.namespace = namespace
	return c
}

// WithEscapedContent returns a copy of c with whether "src"/"alt" attribute values are treated as
// XML-escaped overridden.
func (c Configuration) WithEscapedContent(escaped bool) Configuration {
	c.isEscapedContent = escaped
	return c
}

// WithRecursion returns a copy of c with recursive fragment re-processing enabled, bounded to
// maxDepth levels. A maxDepth of 0 uses the default of 8.
func (c Configuration) WithRecursion(maxDepth int) Configuration {
	c.recursive = true
	c.maxRecursionDepth = maxDepth
	return c
}

// WithEnv returns a copy of c that resolves ESI expression variables in "src"/"alt" attribute
// values against env. A nil env (the default) disables expression evaluation.
func (c Configuration) WithEnv(env esiexpr.Env) Configuration {
	c.env = env
	return c
}

// WithMetrics returns a copy of c that reports fragment dispatch/failure/latency observations to
// m. A nil m (the default) discards them.
func (c Configuration) WithMetrics(m esiproc.Metrics) Configuration {
	c.metrics = m
	return c
}

// WithLogger returns a copy of c that logs per-event tracing (Debug) and suppressed fragment
// errors (Warn) to l. A nil l (the default) discards them.
func (c Configuration) WithLogger(l *zap.SugaredLogger) Configuration {
	c.logger = l
	return c
}

func (c Configuration) namespaceOrDefault() string {
	if c.namespace == "" {
		return "esi"
	}
	return c.namespace
}

func (c Configuration) maxRecursionDepthOrDefault() int {
	if c.maxRecursionDepth <= 0 {
		return 8
	}
	return c.maxRecursionDepth
}
