package enforcer

import (
	"context"
	"log/slog"

	"github.com/CameronXie/order-management/internal/apperror"
	"github.com/CameronXie/order-management/internal/decisionmaker"
	"github.com/CameronXie/order-management/internal/token"
)

const forbiddenMessage = "you do not have permission to perform this action"

// Enforcer returns nil when the access policy allows the request and a FORBIDDEN error otherwise.
type Enforcer interface {
	Enforce(ctx context.Context, req *AccessRequest) error
}

// AccessRequest asks whether the caller identified by Claims may perform Action on a resource owned by Owner.
type AccessRequest struct {
	Claims *token.Claims
	Owner  string
	Action decisionmaker.Action
}

type enforcer struct {
	decisionMaker decisionmaker.DecisionMaker
	logger        *slog.Logger
}

// Enforce denies access when the decision maker fails.
func (e *enforcer) Enforce(ctx context.Context, req *AccessRequest) error {
	if req.Claims == nil {
		return apperror.AuthRequired("authentication required")
	}

	allowed, err := e.decisionMaker.MakeDecision(
		ctx,
		&decisionmaker.DecisionRequest{
			Subject: req.Claims.Subject,
			Role:    req.Claims.Role,
			Owner:   req.Owner,
			Action:  req.Action,
		},
	)

	if err != nil {
		e.logger.ErrorContext(ctx, "failed to enforce access policy", "error", err, "action", req.Action)
		return apperror.Wrap(apperror.CodeForbidden, forbiddenMessage, err)
	}

	if !allowed {
		return apperror.Forbidden(forbiddenMessage)
	}

	return nil
}

func NewEnforcer(decisionMaker decisionmaker.DecisionMaker, logger *slog.Logger) Enforcer {
	return &enforcer{decisionMaker: decisionMaker, logger: logger}
}
