package decisionmaker

import (
	"context"
	"strings"

	"github.com/CameronXie/order-management/internal/domain"
)

// Action names an operation guarded by the access policy.
type Action string

const (
	ActionOrderCreate       Action = "order:create"
	ActionOrderRead         Action = "order:read"
	ActionOrderUpdateStatus Action = "order:update_status"
	ActionOrderCancel       Action = "order:cancel"
	ActionUserList          Action = "user:list"
)

// Actions lists every guarded action.
var Actions = []Action{
	ActionOrderCreate,
	ActionOrderRead,
	ActionOrderUpdateStatus,
	ActionOrderCancel,
	ActionUserList,
}

// DecisionRequest is the input of an access decision.
// Owner is the identity owning the resource and is empty for actions without one.
type DecisionRequest struct {
	Subject string
	Role    domain.Role
	Owner   string
	Action  Action
}

type DecisionMaker interface {
	MakeDecision(ctx context.Context, req *DecisionRequest) (bool, error)
}

// Allow is the access rule every decision maker implements:
// admins may do anything, other identities may act on orders they own.
func Allow(req *DecisionRequest) bool {
	if req.Role == domain.RoleAdmin {
		return true
	}

	return strings.HasPrefix(string(req.Action), "order:") &&
		req.Subject != "" &&
		req.Subject == req.Owner
}

type staticDecisionMaker struct{}

func (staticDecisionMaker) MakeDecision(_ context.Context, req *DecisionRequest) (bool, error) {
	return Allow(req), nil
}

// NewStaticDecisionMaker returns a DecisionMaker evaluating Allow in process.
func NewStaticDecisionMaker() DecisionMaker {
	return staticDecisionMaker{}
}
