// Package acl decides who may view, edit, share and delete a document,
// based on an owner plus a sharing mode.
package acl

import "errors"

// Action represents an operation a user wants to perform.
type Action int

const (
	ActionRead Action = iota
	ActionWrite
	ActionShare
	ActionDelete
)

// String returns the string representation of the action.
func (a Action) String() string {
	switch a {
	case ActionRead:
		return "read"
	case ActionWrite:
		return "write"
	case ActionShare:
		return "share"
	case ActionDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Checker validates user permissions for document operations.
type Checker struct {
	store Store
}

// NewChecker creates a new permission checker.
func NewChecker(store Store) *Checker {
	return &Checker{store: store}
}

// EffectivePolicy returns the policy applied to a document, filling in the
// defaults: a document nobody owns is freely editable, an owned document
// without an explicit mode is editable by signed-in users.
func (c *Checker) EffectivePolicy(docID string) (Policy, error) {
	policy, err := c.store.GetPolicy(docID)
	if err != nil {
		if errors.Is(err, ErrPolicyNotFound) {
			return Policy{DocID: docID, Mode: ModeFreely}, nil
		}

		return Policy{}, err
	}

	if policy.Mode == "" {
		if policy.Owner == "" {
			policy.Mode = ModeFreely
		} else {
			policy.Mode = ModeEditable
		}
	}

	return policy, nil
}

// Mode returns the effective sharing mode of a document.
func (c *Checker) Mode(docID string) (Mode, error) {
	policy, err := c.EffectivePolicy(docID)
	if err != nil {
		return "", err
	}

	return policy.Mode, nil
}

// CanPerform checks if a user can perform an action on a document.
// An empty userID means the user is anonymous.
func (c *Checker) CanPerform(docID, userID string, action Action) (bool, error) {
	policy, err := c.EffectivePolicy(docID)
	if err != nil {
		return false, err
	}

	loggedIn := userID != ""
	isOwner := policy.Owner != "" && userID == policy.Owner

	switch action {
	case ActionRead:
		return policy.Mode.CanRead(loggedIn, isOwner), nil
	case ActionWrite:
		return policy.Mode.CanWrite(loggedIn, isOwner), nil
	case ActionShare, ActionDelete:
		// Owner only, so an unowned document can neither be re-shared
		// nor deleted through the API.
		return isOwner, nil
	default:
		return false, nil
	}
}

// RequirePermission checks permission and returns an error if denied.
func (c *Checker) RequirePermission(docID, userID string, action Action) error {
	allowed, err := c.CanPerform(docID, userID, action)
	if err != nil {
		return err
	}

	if !allowed {
		return ErrAccessDenied
	}

	return nil
}
