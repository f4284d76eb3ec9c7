package acl

import "errors"

// Common errors.
var (
	ErrPolicyNotFound = errors.New("policy not found")
	ErrAccessDenied   = errors.New("access denied")
)

// Store defines the interface for persisting document policies.
type Store interface {
	// SetPolicy creates or replaces a document's policy.
	SetPolicy(policy Policy) error

	// GetPolicy returns a document's policy.
	// Returns ErrPolicyNotFound if none was ever set.
	GetPolicy(docID string) (Policy, error)

	// DeletePolicy removes a document's policy.
	// Returns ErrPolicyNotFound if none exists.
	DeletePolicy(docID string) error
}
