package opa

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultPolicyRetriever(t *testing.T) {
	policy, err := NewDefaultPolicyRetriever().GetPolicy()

	assert.NoError(t, err)
	assert.Contains(t, policy, "package orders.authz")
}

func TestFilePolicyRetriever_GetPolicy(t *testing.T) {
	dir := t.TempDir()
	policyPath := filepath.Join(dir, "custom.rego")
	require.NoError(t, os.WriteFile(policyPath, []byte("package custom"), 0o600))

	cases := map[string]struct {
		path           string
		expectedPolicy string
		expectedError  string
	}{
		"existing file": {
			path:           policyPath,
			expectedPolicy: "package custom",
		},
		"missing file": {
			path:          filepath.Join(dir, "missing.rego"),
			expectedError: "policy not found",
		},
		"directory": {
			path:          dir,
			expectedError: "policy path is a directory, not a file",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			policy, err := NewFilePolicyRetriever(tc.path).GetPolicy()

			if tc.expectedError != "" {
				assert.ErrorContains(t, err, tc.expectedError)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tc.expectedPolicy, policy)
		})
	}
}
