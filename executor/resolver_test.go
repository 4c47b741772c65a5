package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveExpressionStepReference(t *testing.T) {
	stepResults := map[string]map[string]interface{}{
		"step_0_get_temperature": {"value": 68, "unit": "f"},
	}
	got := resolveExpression("{step_0_get_temperature.value}", stepResults, nil)
	assert.Equal(t, 68, got)
}

func TestResolveExpressionArgumentReference(t *testing.T) {
	args := map[string]interface{}{"room": "kitchen"}
	got := resolveExpression("{room}", nil, args)
	assert.Equal(t, "kitchen", got)
}

func TestResolveExpressionUnknownReferenceIsNil(t *testing.T) {
	got := resolveExpression("{step_9_missing.value}", nil, nil)
	assert.Nil(t, got)

	got = resolveExpression("{unknown_arg}", nil, map[string]interface{}{})
	assert.Nil(t, got)
}

func TestResolveExpressionLiteralPassesThrough(t *testing.T) {
	got := resolveExpression("just a literal string", nil, nil)
	assert.Equal(t, "just a literal string", got)
}

func TestMergeParametersLayersOverride(t *testing.T) {
	literal := map[string]interface{}{"a": 1, "b": 2}
	resolved := map[string]interface{}{"b": 3, "c": 4}
	extras := map[string]interface{}{"c": 5}

	out := mergeParameters(literal, resolved, extras)
	assert.Equal(t, map[string]interface{}{"a": 1, "b": 3, "c": 5}, out)
}

func TestStepResultKeyFormat(t *testing.T) {
	assert.Equal(t, "step_0_set_color_name", stepResultKey(0, "set_color_name"))
	assert.Equal(t, "step_12_get_weather", stepResultKey(12, "get_weather"))
}
