// Package client implements the editor-side synchronization protocol: a
// three-state machine in the Jupiter lineage plus the session bookkeeping
// around it (revisions, cursor mapping, reconnect resync).
package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/serroba/collab-pad/internal/ot"
	"github.com/serroba/collab-pad/internal/presence"
	"github.com/serroba/collab-pad/internal/ws"
)

var (
	// ErrReadOnly is returned when a local edit is vetoed by the
	// permission hook.
	ErrReadOnly = errors.New("client: document is read-only")

	// ErrProtocolMismatch is returned when the server speaks a different
	// protocol version. The caller should reload rather than continue.
	ErrProtocolMismatch = errors.New("client: protocol version mismatch")
)

// Buffer is the editable text buffer the session keeps in sync. Local
// edits originate in the buffer; server operations are applied to it.
type Buffer interface {
	Content() string
	SetContent(content string)
	Apply(op *ot.Operation) error

	// ClearHistory drops the undo/redo history. Called when the buffer is
	// overwritten by a snapshot, since old undo entries no longer apply.
	ClearHistory()
}

// Transport sends client messages to the server.
type Transport interface {
	SendOperation(docID string, baseRevision int, op *ot.Operation, cursor *int) error
	SendCursor(docID string, cursor *int) error
	RequestSync(docID string) error
}

// Config wires a SyncSession.
type Config struct {
	DocID     string
	Transport Transport
	Buffer    Buffer

	// CanEdit vetoes local edits when it returns false. Nil means always
	// editable.
	CanEdit func() bool

	// CursorInterval bounds how often cursor moves are sent. Zero
	// disables throttling.
	CursorInterval time.Duration
}

// SyncSession drives the synchronization state machine for one document.
// All methods are safe for concurrent use; the mutex serializes state
// transitions so the machine only ever sees one event at a time.
type SyncSession struct {
	docID     string
	transport Transport
	buffer    Buffer
	canEdit   func() bool
	throttle  *presence.Throttle

	mu          sync.Mutex
	state       State
	revision    int
	cursor      *int
	connected   bool
	initialized bool
	mode        string
}

// NewSyncSession creates a session in the synchronized state at revision
// zero. It is not connected until HandleConnect is called.
func NewSyncSession(cfg Config) *SyncSession {
	s := &SyncSession{
		docID:     cfg.DocID,
		transport: cfg.Transport,
		buffer:    cfg.Buffer,
		canEdit:   cfg.CanEdit,
		state:     Synchronized(),
	}

	interval := cfg.CursorInterval
	if interval <= 0 {
		interval = time.Nanosecond
	}

	s.throttle = presence.NewThrottle(interval, func(rec presence.Record) {
		_ = s.transport.SendCursor(s.docID, rec.Cursor)
	})

	return s
}

// HandleLocalEdit feeds an edit made in the buffer into the state machine.
// The buffer already reflects the edit; the session decides whether to send
// it now or hold it behind the outstanding operation.
func (s *SyncSession) HandleLocalEdit(op *ot.Operation) error {
	if s.canEdit != nil && !s.canEdit() {
		return ErrReadOnly
	}

	if op == nil || op.IsNoop() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.state.ApplyClient(s, op)
	if err != nil {
		return err
	}

	s.state = next

	return nil
}

// MoveCursor records the local cursor position and schedules a throttled
// cursor message.
func (s *SyncSession) MoveCursor(pos int) {
	s.mu.Lock()
	p := pos
	s.cursor = &p
	s.mu.Unlock()

	s.throttle.Offer(presence.Record{Cursor: &p})
}

// Blur clears the local cursor, telling other editors to hide its marker.
func (s *SyncSession) Blur() {
	s.mu.Lock()
	s.cursor = nil
	s.mu.Unlock()

	s.throttle.Offer(presence.Record{Cursor: nil})
}

// HandleConnect marks the transport usable again. The server sends a fresh
// snapshot on every connect; resync happens when it arrives.
func (s *SyncSession) HandleConnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connected = true
}

// HandleDisconnect suspends sends. The state machine is preserved so an
// unacknowledged operation can be resent after resync.
func (s *SyncSession) HandleDisconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connected = false
}

// Close stops the cursor throttle.
func (s *SyncSession) Close() {
	s.throttle.Stop()
}

// HandleMessage dispatches a server message to the matching handler.
func (s *SyncSession) HandleMessage(msg ws.Message) error {
	switch msg.Type {
	case ws.MessageTypeDoc:
		var payload ws.DocPayload
		if err := decodePayload(msg.Payload, &payload); err != nil {
			return err
		}

		return s.handleSnapshot(payload)
	case ws.MessageTypeAck:
		var payload ws.AckPayload
		if err := decodePayload(msg.Payload, &payload); err != nil {
			return err
		}

		return s.handleAck(payload)
	case ws.MessageTypeOperation:
		var payload ws.BroadcastPayload
		if err := decodePayload(msg.Payload, &payload); err != nil {
			return err
		}

		return s.handleRemoteOperation(payload)
	case ws.MessageTypePermission:
		var payload ws.PermissionPayload
		if err := decodePayload(msg.Payload, &payload); err != nil {
			return err
		}

		s.mu.Lock()
		s.mode = payload.Mode
		s.mu.Unlock()

		return nil
	case ws.MessageTypeVersion:
		var payload ws.VersionPayload
		if err := decodePayload(msg.Payload, &payload); err != nil {
			return err
		}

		if payload.Version != ws.ProtocolVersion {
			return ErrProtocolMismatch
		}

		return nil
	case ws.MessageTypeError:
		var payload ws.ErrorPayload
		if err := decodePayload(msg.Payload, &payload); err != nil {
			return err
		}

		// An out-of-sync error is followed by a forced snapshot; nothing
		// to do here beyond surfacing it.
		return fmt.Errorf("client: server error %s: %s", payload.Code, payload.Message)
	default:
		// Presence traffic and other kinds carry no sync state.
		return nil
	}
}

// handleSnapshot applies the reconnect/resync policy. The snapshot
// overwrites the buffer when the session was never initialized, when the
// revisions diverged with nothing in flight, or when the server forces it.
// A matching buffer with an operation still in flight means the connection
// dropped mid-send; the outstanding operation is resent once.
func (s *SyncSession) handleSnapshot(p ws.DocPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := s.state.Pending() != nil
	bodyMismatch := s.buffer.Content() != p.Content
	setDoc := !s.initialized || (s.revision != p.Revision && !pending) || p.Force

	switch {
	case setDoc:
		if bodyMismatch {
			s.buffer.SetContent(p.Content)
			s.buffer.ClearHistory()
		}

		// Any in-flight operation is abandoned; the snapshot supersedes
		// it and resending would double-apply.
		s.state = Synchronized()
		s.revision = p.Revision
		s.cursor = nil
	case pending:
		// Same document, our operation got lost in flight. Send it again.
		s.resendOutstanding()
	}

	s.initialized = true

	return nil
}

func (s *SyncSession) handleAck(p ws.AckPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The buffered operation, if any, bases on the acked revision, so the
	// revision moves before the transition sends it.
	s.revision = p.Revision

	next, err := s.state.Ack(s)
	if err != nil {
		return err
	}

	s.state = next

	return nil
}

func (s *SyncSession) handleRemoteOperation(p ws.BroadcastPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.state.ApplyServer(s, p.Operation)
	if err != nil {
		// The machine diverged from the server; ask for a fresh snapshot
		// instead of guessing.
		_ = s.transport.RequestSync(s.docID)

		return err
	}

	s.state = next
	s.revision = p.Revision

	return nil
}

// resendOutstanding retransmits the unacknowledged operation. Caller holds
// the mutex.
func (s *SyncSession) resendOutstanding() {
	op := s.state.Pending()
	if op == nil || !s.connected {
		return
	}

	_ = s.transport.SendOperation(s.docID, s.revision, op, s.cursor)
}

// SendOperation implements Editor. Caller holds the mutex (transitions are
// driven from locked handlers).
func (s *SyncSession) SendOperation(op *ot.Operation) {
	if !s.connected {
		return
	}

	_ = s.transport.SendOperation(s.docID, s.revision, op, s.cursor)
}

// ApplyOperation implements Editor: applies a server operation to the
// buffer and maps the local cursor through it.
func (s *SyncSession) ApplyOperation(op *ot.Operation) error {
	if err := s.buffer.Apply(op); err != nil {
		return err
	}

	if s.cursor != nil {
		mapped := op.TransformIndex(*s.cursor)
		s.cursor = &mapped
	}

	return nil
}

// Revision returns the revision the session believes is current.
func (s *SyncSession) Revision() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.revision
}

// StateName reports the current state, for logging and tests.
func (s *SyncSession) StateName() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.String()
}

// Cursor returns the local cursor position, nil while blurred.
func (s *SyncSession) Cursor() *int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cursor == nil {
		return nil
	}

	c := *s.cursor

	return &c
}

// Mode returns the last permission mode announced by the server.
func (s *SyncSession) Mode() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mode
}

// decodePayload converts a message payload into the wanted type. Payloads
// arrive as raw JSON from the wire but as concrete structs in tests.
func decodePayload(payload, v any) error {
	if raw, ok := payload.(json.RawMessage); ok {
		return json.Unmarshal(raw, v)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, v)
}
