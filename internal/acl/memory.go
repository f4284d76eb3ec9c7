package acl

import "sync"

// MemoryStore is an in-memory implementation of the Store interface.
type MemoryStore struct {
	mu       sync.RWMutex
	policies map[string]Policy
}

// NewMemoryStore creates a new in-memory policy store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		policies: make(map[string]Policy),
	}
}

// SetPolicy creates or replaces a document's policy.
func (m *MemoryStore) SetPolicy(policy Policy) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.policies[policy.DocID] = policy

	return nil
}

// GetPolicy returns a document's policy.
func (m *MemoryStore) GetPolicy(docID string) (Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	policy, exists := m.policies[docID]
	if !exists {
		return Policy{}, ErrPolicyNotFound
	}

	return policy, nil
}

// DeletePolicy removes a document's policy.
func (m *MemoryStore) DeletePolicy(docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.policies[docID]; !exists {
		return ErrPolicyNotFound
	}

	delete(m.policies, docID)

	return nil
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
