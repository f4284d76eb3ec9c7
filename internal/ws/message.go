package ws

import (
	"github.com/serroba/collab-pad/internal/authorship"
	"github.com/serroba/collab-pad/internal/ot"
	"github.com/serroba/collab-pad/internal/presence"
)

// ProtocolVersion is bumped on incompatible wire changes; a client seeing a
// different version reloads instead of limping along desynced.
const ProtocolVersion = 2

// MessageType identifies the kind of WebSocket message.
type MessageType string

const (
	// Client to server messages.
	MessageTypeOperation MessageType = "operation" // submit an edit; also the server's broadcast
	MessageTypeSync      MessageType = "sync"      // request a fresh snapshot
	MessageTypeCursor    MessageType = "cursor"    // cursor move, focus or blur
	MessageTypeStatus    MessageType = "status"    // idle flag and device class

	// Server to client messages.
	MessageTypeAck        MessageType = "ack"          // operation accepted, revision assigned
	MessageTypeDoc        MessageType = "doc"          // full document snapshot
	MessageTypeAuthorship MessageType = "authorship"   // atom log and author palette
	MessageTypeUsers      MessageType = "online-users" // full presence roster
	MessageTypeUserStatus MessageType = "user-status"  // single-user presence diff
	MessageTypePermission MessageType = "permission"   // document permission mode changed
	MessageTypeVersion    MessageType = "version"      // protocol version check
	MessageTypeError      MessageType = "error"        // server reports an error
)

// Message is the envelope for all WebSocket communication.
type Message struct {
	Type    MessageType `json:"type"`
	Payload any         `json:"payload,omitempty"`
}

// OperationPayload is sent when a client submits an edit. The base revision
// is the revision the client believed was current; the server transforms the
// operation forward from there.
type OperationPayload struct {
	DocID        string        `json:"docId"`
	BaseRevision int           `json:"baseRevision"`
	Operation    *ot.Operation `json:"operation"`
	Cursor       *int          `json:"cursor,omitempty"`
}

// AckPayload confirms the sender's operation was accepted.
type AckPayload struct {
	Revision int `json:"revision"`
}

// BroadcastPayload pushes an accepted operation to the other clients,
// already transformed against everything they have been sent.
type BroadcastPayload struct {
	DocID     string        `json:"docId"`
	Revision  int           `json:"revision"`
	Operation *ot.Operation `json:"operation"`
	UserID    string        `json:"userId,omitempty"`
	ConnID    string        `json:"clientId"`
}

// DocPayload carries a full document snapshot. Force tells the client to
// overwrite its buffer even when it believes it is in sync.
type DocPayload struct {
	DocID    string `json:"docId"`
	Content  string `json:"content"`
	Revision int    `json:"revision"`
	Force    bool   `json:"force,omitempty"`
}

// AuthorshipPayload carries the attribution inputs for gutter rendering.
type AuthorshipPayload struct {
	DocID   string                  `json:"docId"`
	Atoms   []authorship.Atom       `json:"atoms"`
	Authors []authorship.AuthorInfo `json:"authors"`
}

// CursorPayload reports a cursor move. A nil cursor means the editor
// blurred. The server fills ConnID before rebroadcasting.
type CursorPayload struct {
	DocID  string `json:"docId,omitempty"`
	ConnID string `json:"id,omitempty"`
	Cursor *int   `json:"cursor"`
}

// StatusPayload reports the sender's idle state and device class.
type StatusPayload struct {
	DocID  string               `json:"docId,omitempty"`
	Idle   bool                 `json:"idle"`
	Device presence.DeviceClass `json:"type,omitempty"`
}

// UsersPayload carries the full deduplicated roster of a document.
type UsersPayload struct {
	DocID string            `json:"docId"`
	Users []presence.Record `json:"users"`
}

// UserStatusPayload pushes one user's updated presence record.
type UserStatusPayload struct {
	DocID string          `json:"docId"`
	User  presence.Record `json:"user"`
}

// PermissionPayload announces the document's new permission mode.
type PermissionPayload struct {
	DocID string `json:"docId"`
	Mode  string `json:"mode"`
}

// VersionPayload announces the server's protocol version.
type VersionPayload struct {
	Version int `json:"version"`
}

// SyncPayload asks the server for a fresh snapshot of a document.
type SyncPayload struct {
	DocID string `json:"docId"`
}

// ErrorPayload reports an error to the client.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes.
const (
	ErrorCodeAccessDenied   = "access_denied"
	ErrorCodeInvalidMessage = "invalid_message"
	ErrorCodeInternalError  = "internal_error"
	ErrorCodeOutOfSync      = "out_of_sync"
)
