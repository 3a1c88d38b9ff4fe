// Package engine builds the configured access decision maker.
package engine

import (
	"context"
	"fmt"

	gormadapter "github.com/casbin/gorm-adapter/v3"

	"github.com/CameronXie/order-management/internal/decisionmaker"
	"github.com/CameronXie/order-management/internal/decisionmaker/casbin"
	"github.com/CameronXie/order-management/internal/decisionmaker/opa"
	"github.com/CameronXie/order-management/internal/policyretriever"
	prp "github.com/CameronXie/order-management/internal/policyretriever/opa"
)

const (
	Static = "static"
	OPA    = "opa"
	Casbin = "casbin"
)

// Config selects and configures a decision engine.
type Config struct {
	Engine string

	// RegoFile overrides the embedded Rego policy when set.
	RegoFile string

	// CasbinDriver and CasbinDSN locate the Casbin policy store.
	CasbinDriver string
	CasbinDSN    string
}

// New returns the decision maker named by cfg.Engine. An empty name selects the static engine.
func New(ctx context.Context, cfg Config) (decisionmaker.DecisionMaker, error) {
	switch cfg.Engine {
	case "", Static:
		return decisionmaker.NewStaticDecisionMaker(), nil
	case OPA:
		return newOPA(ctx, cfg)
	case Casbin:
		return newCasbin(cfg)
	default:
		return nil, fmt.Errorf("unknown policy engine %q", cfg.Engine)
	}
}

func newOPA(ctx context.Context, cfg Config) (decisionmaker.DecisionMaker, error) {
	var retriever policyretriever.PolicyRetriever = prp.NewDefaultPolicyRetriever()
	if cfg.RegoFile != "" {
		retriever = prp.NewFilePolicyRetriever(cfg.RegoFile)
	}

	return opa.NewDecisionMaker(ctx, retriever, prp.Query)
}

// newCasbin connects to the Casbin policy store and seeds the default policies.
func newCasbin(cfg Config) (decisionmaker.DecisionMaker, error) {
	if cfg.CasbinDriver == "" || cfg.CasbinDSN == "" {
		return nil, fmt.Errorf("casbin engine requires a policy store driver and dsn")
	}

	adapter, err := gormadapter.NewAdapter(cfg.CasbinDriver, cfg.CasbinDSN, true)
	if err != nil {
		return nil, fmt.Errorf("open casbin policy store: %w", err)
	}

	return casbin.NewDecisionMaker(casbin.Model, adapter, casbin.DefaultPolicies...)
}
