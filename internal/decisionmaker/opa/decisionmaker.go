package opa

import (
	"context"
	"errors"
	"fmt"

	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/CameronXie/order-management/internal/decisionmaker"
	"github.com/CameronXie/order-management/internal/policyretriever"
)

const (
	moduleName = "decisionmaker"
)

type decisionMaker struct {
	query rego.PreparedEvalQuery
}

// MakeDecision evaluates the prepared policy against the given decision request and returns whether the action is allowed or not.
func (d *decisionMaker) MakeDecision(ctx context.Context, req *decisionmaker.DecisionRequest) (bool, error) {
	result, err := d.query.Eval(ctx, rego.EvalInput(map[string]any{
		"subject": req.Subject,
		"role":    string(req.Role),
		"owner":   req.Owner,
		"action":  string(req.Action),
	}))
	if err != nil {
		return false, fmt.Errorf("failed to evaluate query: %w", err)
	}

	if len(result) == 0 || len(result[0].Expressions) == 0 {
		return false, errors.New("failed to evaluate query: no result")
	}

	allowed, ok := result[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("failed to evaluate query: unexpected result %v", result[0].Expressions[0].Value)
	}

	return allowed, nil
}

// NewDecisionMaker compiles the policy supplied by policyRetriever once and prepares the given Rego query.
func NewDecisionMaker(
	ctx context.Context,
	policyRetriever policyretriever.PolicyRetriever,
	query string,
) (decisionmaker.DecisionMaker, error) {
	policy, err := policyRetriever.GetPolicy()
	if err != nil {
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}

	prepared, err := rego.New(rego.Module(moduleName, policy), rego.Query(query)).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare query: %w", err)
	}

	return &decisionMaker{query: prepared}, nil
}
