package opa

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/CameronXie/order-management/internal/policyretriever"
)

// Query evaluates the decision of the default policy.
const Query = "data.orders.authz.allow"

//go:embed policy.rego
var defaultPolicy string

type staticPolicyRetriever struct {
	policy string
}

// GetPolicy returns the policy the retriever was built with.
func (p *staticPolicyRetriever) GetPolicy() (string, error) {
	return p.policy, nil
}

// NewDefaultPolicyRetriever serves the Rego policy compiled into the binary.
func NewDefaultPolicyRetriever() policyretriever.PolicyRetriever {
	return &staticPolicyRetriever{policy: defaultPolicy}
}

type filePolicyRetriever struct {
	path string
}

// GetPolicy reads the policy file on every call.
func (p *filePolicyRetriever) GetPolicy() (string, error) {
	fileInfo, err := os.Stat(p.path)
	if err != nil {
		return "", fmt.Errorf("policy not found: %w", err)
	}

	if fileInfo.IsDir() {
		return "", fmt.Errorf("policy path is a directory, not a file")
	}

	content, err := os.ReadFile(p.path)
	if err != nil {
		return "", fmt.Errorf("failed to read policy: %w", err)
	}

	return string(content), nil
}

// NewFilePolicyRetriever serves the Rego policy stored at path.
func NewFilePolicyRetriever(path string) policyretriever.PolicyRetriever {
	return &filePolicyRetriever{path: path}
}
