package acl

import "fmt"

// Mode is a document's sharing mode. It decides what anonymous users,
// signed-in users and the owner may do.
type Mode string

const (
	// ModeFreely lets anyone view and edit, including anonymous users.
	ModeFreely Mode = "freely"
	// ModeEditable lets anyone view; only signed-in users may edit.
	ModeEditable Mode = "editable"
	// ModeLimited restricts both viewing and editing to signed-in users.
	ModeLimited Mode = "limited"
	// ModeLocked lets anyone view; only the owner may edit.
	ModeLocked Mode = "locked"
	// ModeProtected restricts viewing to signed-in users; only the owner
	// may edit.
	ModeProtected Mode = "protected"
	// ModePrivate restricts everything to the owner.
	ModePrivate Mode = "private"
)

// ParseMode validates a wire-format mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFreely, ModeEditable, ModeLimited, ModeLocked, ModeProtected, ModePrivate:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown permission mode %q", s)
	}
}

// CanRead reports whether a user with the given standing may view the
// document.
func (m Mode) CanRead(loggedIn, isOwner bool) bool {
	if isOwner {
		return true
	}

	switch m {
	case ModeFreely, ModeEditable, ModeLocked:
		return true
	case ModeLimited, ModeProtected:
		return loggedIn
	case ModePrivate:
		return false
	default:
		return false
	}
}

// CanWrite reports whether a user with the given standing may edit the
// document.
func (m Mode) CanWrite(loggedIn, isOwner bool) bool {
	if isOwner {
		return true
	}

	switch m {
	case ModeFreely:
		return true
	case ModeEditable, ModeLimited:
		return loggedIn
	case ModeLocked, ModeProtected, ModePrivate:
		return false
	default:
		return false
	}
}

// Policy is a document's ownership and sharing mode. A zero Owner means
// the document is unowned.
type Policy struct {
	DocID string
	Owner string
	Mode  Mode
}
