package policyretriever

// PolicyRetriever supplies the source of an access policy.
type PolicyRetriever interface {
	GetPolicy() (string, error)
}
