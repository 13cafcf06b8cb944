package rag

import (
	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"
)

// DefaultEscalationExpression flags low-confidence answers for a human
// specialist. The exact threshold is product policy, not a contract, so it
// lives in configuration rather than code.
const DefaultEscalationExpression = "confidence < 0.4"

// EscalationPolicy is a compiled CEL expression deciding whether an answer
// should be routed to a human specialist.
//
// Available variables:
//
//	confidence (double) - similarity score of the rank-1 result, 0.0 with no results
//	results    (int)    - number of retrieved documents
//	degraded   (bool)   - whether any provider call fell back
type EscalationPolicy struct {
	program cel.Program
}

// NewEscalationPolicy compiles the expression. An empty expression uses the
// default policy.
func NewEscalationPolicy(expression string) (*EscalationPolicy, error) {
	if expression == "" {
		expression = DefaultEscalationExpression
	}

	env, err := cel.NewEnv(
		cel.Variable("confidence", cel.DoubleType),
		cel.Variable("results", cel.IntType),
		cel.Variable("degraded", cel.BoolType),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create CEL environment")
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, errors.Wrapf(issues.Err(), "invalid escalation policy %q", expression)
	}
	if ast.OutputType() != cel.BoolType {
		return nil, errors.Errorf("escalation policy %q must evaluate to a boolean, got %s", expression, ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compile escalation policy")
	}
	return &EscalationPolicy{program: program}, nil
}

// Evaluate runs the policy. Evaluation errors escalate: when the policy
// cannot decide, a human should.
func (p *EscalationPolicy) Evaluate(confidence float64, resultCount int, degraded bool) bool {
	out, _, err := p.program.Eval(map[string]any{
		"confidence": confidence,
		"results":    resultCount,
		"degraded":   degraded,
	})
	if err != nil {
		return true
	}
	escalate, ok := out.Value().(bool)
	if !ok {
		return true
	}
	return escalate
}
