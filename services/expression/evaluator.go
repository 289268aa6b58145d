// Package expression evaluates {{ ... }} template expressions against a
// caller-supplied context.
//
// Expressions are compiled with expr-lang/expr, a restricted expression
// grammar with no loops, no assignment, and no reachable symbols beyond the
// environment handed to it. The evaluator's environment is the caller's
// context plus a fixed set of pure utility namespaces, so evaluated text has
// no access to process state, the filesystem, or the network by construction.
package expression

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// DefaultMaxSourceLen caps the size of a single expression. The grammar
// itself admits no unbounded iteration, so bounding the source bounds the
// work a hostile expression can demand.
const DefaultMaxSourceLen = 8192

var templatePattern = regexp.MustCompile(`(?s)\{\{(.*?)\}\}`)

// EvaluationError wraps a syntax or runtime fault from the underlying engine.
type EvaluationError struct {
	Expr string
	Err  error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluate %q: %s", truncateExpr(e.Expr), e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithMaxSourceLen overrides the per-expression source budget.
func WithMaxSourceLen(n int) Option {
	return func(e *Evaluator) { e.maxSourceLen = n }
}

// Evaluator evaluates expressions against a context. It owns its allow-list
// environment and caches compiled programs, and is safe for concurrent use.
type Evaluator struct {
	env          map[string]any
	maxSourceLen int

	mu    sync.RWMutex
	cache map[string]*vm.Program
}

// New creates an Evaluator with the built-in utility environment.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		env:          utilityEnv(),
		maxSourceLen: DefaultMaxSourceLen,
		cache:        make(map[string]*vm.Program),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate resolves a single expression against ctx and returns its value.
// One surrounding {{ }} pair is stripped first, so callers can pass template
// fragments directly.
func (e *Evaluator) Evaluate(src string, ctx map[string]any) (any, error) {
	src = stripDelimiters(src)
	program, err := e.compile(src)
	if err != nil {
		return nil, &EvaluationError{Expr: src, Err: err}
	}
	result, err := expr.Run(program, e.runtimeEnv(ctx))
	if err != nil {
		return nil, &EvaluationError{Expr: src, Err: err}
	}
	return result, nil
}

// EvaluateTemplate resolves every {{ ... }} occurrence in template. A
// template with no expressions is returned unchanged. A template that is
// exactly one expression returns the raw evaluated value with its type
// intact, so "{{ 2*3 }}" stays a number. Mixed templates evaluate each
// expression in order, coerce the results to text, and return the
// substituted string.
func (e *Evaluator) EvaluateTemplate(template string, ctx map[string]any) (any, error) {
	matches := templatePattern.FindAllStringSubmatchIndex(template, -1)
	if len(matches) == 0 {
		return template, nil
	}

	trimmed := strings.TrimSpace(template)
	if loc := templatePattern.FindStringIndex(trimmed); loc != nil && loc[0] == 0 && loc[1] == len(trimmed) {
		return e.Evaluate(trimmed, ctx)
	}

	var out strings.Builder
	last := 0
	for _, m := range matches {
		out.WriteString(template[last:m[0]])
		value, err := e.Evaluate(template[m[2]:m[3]], ctx)
		if err != nil {
			return nil, err
		}
		out.WriteString(stringify(value))
		last = m[1]
	}
	out.WriteString(template[last:])
	return out.String(), nil
}

// Validate checks syntactic well-formedness without evaluating against any
// data.
func (e *Evaluator) Validate(src string) error {
	src = stripDelimiters(src)
	if _, err := e.compile(src); err != nil {
		return &EvaluationError{Expr: src, Err: err}
	}
	return nil
}

// EvaluateCondition evaluates an expression and coerces the result to a
// boolean via truthiness rules: nil, false, zero numbers and empty strings
// are false, everything else is true.
func (e *Evaluator) EvaluateCondition(src string, ctx map[string]any) (bool, error) {
	result, err := e.Evaluate(src, ctx)
	if err != nil {
		return false, err
	}
	return truthy(result), nil
}

// compile compiles an expression, caching the program for repeated
// evaluations. Context variables are bound at run time, so unknown
// identifiers are allowed at compile time.
func (e *Evaluator) compile(src string) (*vm.Program, error) {
	if len(src) > e.maxSourceLen {
		return nil, fmt.Errorf("expression exceeds %d byte limit", e.maxSourceLen)
	}

	e.mu.RLock()
	program, ok := e.cache[src]
	e.mu.RUnlock()
	if ok {
		return program, nil
	}

	program, err := expr.Compile(src,
		expr.Env(e.env),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[src] = program
	e.mu.Unlock()
	return program, nil
}

func (e *Evaluator) runtimeEnv(ctx map[string]any) map[string]any {
	env := make(map[string]any, len(e.env)+len(ctx))
	for k, v := range e.env {
		env[k] = v
	}
	for k, v := range ctx {
		env[k] = v
	}
	return env
}

func stripDelimiters(src string) string {
	src = strings.TrimSpace(src)
	if strings.HasPrefix(src, "{{") && strings.HasSuffix(src, "}}") && len(src) >= 4 {
		src = strings.TrimSpace(src[2 : len(src)-2])
	}
	return src
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int32:
		return t != 0
	case int64:
		return t != 0
	case uint:
		return t != 0
	case uint64:
		return t != 0
	case float32:
		return t != 0
	case float64:
		return t != 0
	default:
		return true
	}
}

func truncateExpr(s string) string {
	if len(s) > 60 {
		return s[:57] + "..."
	}
	return s
}
