package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscalationPolicy_Default(t *testing.T) {
	policy, err := NewEscalationPolicy("")
	require.NoError(t, err)

	assert.True(t, policy.Evaluate(0.0, 0, false))
	assert.True(t, policy.Evaluate(0.39, 3, false))
	assert.False(t, policy.Evaluate(0.4, 3, false))
	assert.False(t, policy.Evaluate(0.95, 3, true))
}

func TestEscalationPolicy_CustomExpression(t *testing.T) {
	policy, err := NewEscalationPolicy("degraded || confidence < 0.2")
	require.NoError(t, err)

	assert.True(t, policy.Evaluate(0.9, 3, true))
	assert.True(t, policy.Evaluate(0.1, 3, false))
	assert.False(t, policy.Evaluate(0.9, 3, false))
}

func TestEscalationPolicy_ResultCountVariable(t *testing.T) {
	policy, err := NewEscalationPolicy("results == 0")
	require.NoError(t, err)

	assert.True(t, policy.Evaluate(0.0, 0, false))
	assert.False(t, policy.Evaluate(0.0, 1, false))
}

func TestNewEscalationPolicy_RejectsInvalidExpression(t *testing.T) {
	_, err := NewEscalationPolicy("confidence <")
	require.Error(t, err)

	_, err = NewEscalationPolicy("unknown_variable > 1.0")
	require.Error(t, err)
}

func TestNewEscalationPolicy_RejectsNonBoolean(t *testing.T) {
	_, err := NewEscalationPolicy("confidence + 1.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must evaluate to a boolean")
}
