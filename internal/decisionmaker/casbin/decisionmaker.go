package casbin

import (
	"context"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/persist"

	"github.com/CameronXie/order-management/internal/decisionmaker"
)

// Model grants every action to admins and order actions to the owner of the order.
const Model = `
[request_definition]
r = sub, role, owner, act

[policy_definition]
p = role, act, scope

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.role == p.role && keyMatch(r.act, p.act) && (p.scope == "any" || (r.sub != "" && r.sub == r.owner))
`

// DefaultPolicies are seeded into the policy store when missing.
var DefaultPolicies = [][]string{
	{"admin", "*", "any"},
	{"user", "order:*", "own"},
}

type decisionMaker struct {
	enforcer casbin.IEnforcer
}

// MakeDecision evaluates a decision request using the enforcer.
// It first loads the latest policy so changes made in the policy store apply without a restart.
func (d *decisionMaker) MakeDecision(_ context.Context, req *decisionmaker.DecisionRequest) (bool, error) {
	err := d.enforcer.LoadPolicy()
	if err != nil {
		return false, err
	}

	return d.enforcer.Enforce(req.Subject, string(req.Role), req.Owner, string(req.Action))
}

// NewDecisionMaker creates a DecisionMaker from the given Casbin model and policy adapter.
// Each of the given policies is added unless already present.
// The enforcer is synchronised, so decisions may be made from concurrent requests.
func NewDecisionMaker(config string, policyRepo persist.Adapter, policies ...[]string) (decisionmaker.DecisionMaker, error) {
	m, err := model.NewModelFromString(config)
	if err != nil {
		return nil, err
	}

	enforcer, err := casbin.NewSyncedEnforcer(m, policyRepo)
	if err != nil {
		return nil, err
	}

	for _, p := range policies {
		if _, err := enforcer.AddPolicy(p); err != nil {
			return nil, fmt.Errorf("seed policy %v: %w", p, err)
		}
	}

	return &decisionMaker{enforcer: enforcer}, nil
}
