package expression

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_Arithmetic(t *testing.T) {
	eval := New()

	result, err := eval.Evaluate("1+2", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, result)
}

func TestEvaluate_StripsDelimiters(t *testing.T) {
	eval := New()

	result, err := eval.Evaluate("{{ 1+2 }}", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, result)
}

func TestEvaluate_ContextVariables(t *testing.T) {
	eval := New()
	ctx := map[string]any{
		"temperature": 30.5,
		"user":        map[string]any{"name": "Ada"},
	}

	result, err := eval.Evaluate("temperature > 25", ctx)
	require.NoError(t, err)
	assert.Equal(t, true, result)

	result, err = eval.Evaluate("user.name", ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ada", result)
}

func TestEvaluate_RuntimeError(t *testing.T) {
	eval := New()

	_, err := eval.Evaluate(`missing.field.deep`, nil)
	require.Error(t, err)

	var evalErr *EvaluationError
	assert.True(t, errors.As(err, &evalErr))
}

func TestEvaluate_SourceBudget(t *testing.T) {
	eval := New(WithMaxSourceLen(10))

	_, err := eval.Evaluate("1 + 2 + 3 + 4 + 5", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "byte limit")
}

func TestEvaluateTemplate_NoExpressions(t *testing.T) {
	eval := New()

	result, err := eval.EvaluateTemplate("plain text", nil)
	require.NoError(t, err)
	assert.Equal(t, "plain text", result)
}

func TestEvaluateTemplate_Substitution(t *testing.T) {
	eval := New()

	result, err := eval.EvaluateTemplate("Hello {{name}}", map[string]any{"name": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "Hello Ada", result)
}

func TestEvaluateTemplate_MultipleExpressions(t *testing.T) {
	eval := New()
	ctx := map[string]any{"a": 1, "b": 2}

	result, err := eval.EvaluateTemplate("{{a}} and {{b}} make {{a + b}}", ctx)
	require.NoError(t, err)
	assert.Equal(t, "1 and 2 make 3", result)
}

func TestEvaluateTemplate_SingleExpressionKeepsType(t *testing.T) {
	eval := New()

	result, err := eval.EvaluateTemplate("{{ 2*3 }}", nil)
	require.NoError(t, err)
	assert.Equal(t, 6, result)

	result, err = eval.EvaluateTemplate("{{ 1 < 2 }}", nil)
	require.NoError(t, err)
	assert.Equal(t, true, result)

	result, err = eval.EvaluateTemplate("  {{ items }}  ", map[string]any{"items": []any{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2}, result)
}

func TestEvaluateTemplate_PropagatesErrors(t *testing.T) {
	eval := New()

	_, err := eval.EvaluateTemplate("value: {{ 1 + }}", nil)
	require.Error(t, err)

	var evalErr *EvaluationError
	assert.True(t, errors.As(err, &evalErr))
}

func TestValidate(t *testing.T) {
	eval := New()

	assert.NoError(t, eval.Validate("1 + 2"))
	assert.NoError(t, eval.Validate("{{ user.name }}"))
	assert.NoError(t, eval.Validate("undefined_var > 3"))

	err := eval.Validate("1+")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1+")
}

func TestEvaluateCondition(t *testing.T) {
	eval := New()

	cases := []struct {
		expr string
		ctx  map[string]any
		want bool
	}{
		{"1 > 0", nil, true},
		{"1 < 0", nil, false},
		{"0", nil, false},
		{"42", nil, true},
		{`""`, nil, false},
		{`"text"`, nil, true},
		{"missing", nil, false},
		{"temperature > 25", map[string]any{"temperature": 30.0}, true},
	}
	for _, tc := range cases {
		got, err := eval.EvaluateCondition(tc.expr, tc.ctx)
		require.NoError(t, err, "expr %q", tc.expr)
		assert.Equal(t, tc.want, got, "expr %q", tc.expr)
	}
}

func TestEvaluator_CachesPrograms(t *testing.T) {
	eval := New()

	for i := 0; i < 3; i++ {
		result, err := eval.Evaluate("1+2", nil)
		require.NoError(t, err)
		assert.Equal(t, 3, result)
	}
	assert.Len(t, eval.cache, 1)
}

func TestEvaluator_NoAmbientAccess(t *testing.T) {
	eval := New()

	// Nothing outside the context and the utility env is reachable.
	for _, expr := range []string{
		`os.Getenv("HOME")`,
		`syscall.Exit(1)`,
	} {
		_, err := eval.Evaluate(expr, nil)
		assert.Error(t, err, "expr %q", expr)
	}
}
