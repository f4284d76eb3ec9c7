// Package collab coordinates collaborative editing on the server: one
// Session per open document owns the replica, the revision log and the
// authorship state, and a Manager hands sessions out.
package collab

import (
	"errors"
	"sync"
	"time"

	"github.com/serroba/collab-pad/internal/acl"
	"github.com/serroba/collab-pad/internal/authorship"
	"github.com/serroba/collab-pad/internal/ot"
	"github.com/serroba/collab-pad/internal/storage"
	"github.com/serroba/collab-pad/internal/ws"
)

// Common errors.
var (
	ErrSessionClosed = errors.New("session is closed")
)

// Session coordinates collaborative editing for a single document.
// It wires together OT, authorship, storage, ACL, and WebSocket
// broadcasting. The mutex serializes operation acceptance, which makes the
// queue's arrival order the total order for the document.
type Session struct {
	docID string

	mu       sync.RWMutex
	document *ot.Document
	queue    *ot.Queue
	atoms    []authorship.Atom
	authors  *authorship.Registry
	closed   bool

	// Dependencies
	store          storage.Store
	permChecker    *acl.Checker
	hub            *ws.Hub
	snapshotPolicy *storage.SnapshotPolicy
	now            func() int64
}

// SessionConfig holds configuration for creating a session.
type SessionConfig struct {
	DocID          string
	Store          storage.Store
	PermChecker    *acl.Checker
	Hub            *ws.Hub
	SnapshotPolicy *storage.SnapshotPolicy
	HistorySize    int

	// Now returns the current time in unix milliseconds. Defaults to the
	// wall clock; injectable for tests.
	Now func() int64
}

// NewSession creates a new collaborative editing session.
func NewSession(cfg SessionConfig) *Session {
	historySize := cfg.HistorySize
	if historySize == 0 {
		historySize = 100
	}

	now := cfg.Now
	if now == nil {
		now = func() int64 { return time.Now().UnixMilli() }
	}

	return &Session{
		docID:          cfg.DocID,
		document:       ot.NewDocument(""),
		queue:          ot.NewQueue(historySize),
		authors:        authorship.NewRegistry(),
		store:          cfg.Store,
		permChecker:    cfg.PermChecker,
		hub:            cfg.Hub,
		snapshotPolicy: cfg.SnapshotPolicy,
		now:            now,
	}
}

// Load initializes the session by loading document state from storage.
func (s *Session) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	loader := storage.NewDocumentLoader(s.store)

	result, err := loader.Load(s.docID)
	if err != nil {
		return err
	}

	s.document = ot.NewDocument(result.Content)
	s.atoms = result.Authorship.Atoms
	s.authors.Restore(result.Authorship.Authors)

	// Re-tag replayed operations so authorship follows them. Replayed ops
	// were persisted after the last authorship save, if any.
	ops, err := s.store.LoadOperations(s.docID, 0)
	if err != nil {
		return err
	}

	// The same operations reseed the transform history, so clients editing
	// against a pre-reload revision are transformed instead of rejected.
	s.queue = ot.NewQueue(s.queue.HistorySize())
	s.queue.Restore(result.Revision, ops)

	for _, seqOp := range ops {
		idx := authorship.Untracked
		if seqOp.Author != "" {
			idx = s.authors.Index(authorship.AuthorInfo{UserID: seqOp.Author})
		}

		s.atoms = authorship.Advance(s.atoms, seqOp.Op, idx, seqOp.Timestamp)
	}

	return nil
}

// ApplyOperation processes an operation from a client.
// It checks permissions, transforms, applies, persists, and broadcasts.
// The returned revision goes back to the submitter as the ack.
func (s *Session) ApplyOperation(clientID string, author authorship.AuthorInfo, op *ot.Operation, baseRevision int) (int, error) {
	if err := s.checkWritePermission(author.UserID); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrSessionClosed
	}

	seqOp, err := s.applyAndPersist(op, baseRevision, author)
	if err != nil {
		return 0, err
	}

	s.maybeSnapshot()
	s.broadcast(clientID, author.UserID, seqOp)

	return seqOp.Revision, nil
}

// checkWritePermission verifies the user has write access.
func (s *Session) checkWritePermission(userID string) error {
	if s.permChecker == nil {
		return nil
	}

	return s.permChecker.RequirePermission(s.docID, userID, acl.ActionWrite)
}

// applyAndPersist transforms the operation forward, applies it to the
// replica, advances the atom log and persists the accepted operation.
func (s *Session) applyAndPersist(op *ot.Operation, baseRevision int, author authorship.AuthorInfo) (ot.SequencedOperation, error) {
	seqOp, err := s.queue.Apply(op, baseRevision, author.UserID, s.now())
	if err != nil {
		return ot.SequencedOperation{}, err
	}

	if err := s.document.Apply(seqOp.Op); err != nil {
		return ot.SequencedOperation{}, err
	}

	idx := authorship.Untracked
	if author.UserID != "" {
		idx = s.authors.Index(author)
	}

	s.atoms = authorship.Advance(s.atoms, seqOp.Op, idx, seqOp.Timestamp)

	if err := s.store.AppendOperation(s.docID, seqOp); err != nil {
		return ot.SequencedOperation{}, err
	}

	return seqOp, nil
}

// maybeSnapshot checks if a snapshot should be created and does so.
func (s *Session) maybeSnapshot() {
	if s.snapshotPolicy == nil {
		return
	}

	if s.snapshotPolicy.RecordOperation(s.docID) {
		_ = s.saveSnapshot() // Log but don't fail
		s.snapshotPolicy.Reset(s.docID)
	}
}

// broadcast sends the accepted operation to other connected clients.
func (s *Session) broadcast(clientID, userID string, seqOp ot.SequencedOperation) {
	if s.hub == nil {
		return
	}

	s.hub.BroadcastOperation(s.docID, ws.BroadcastPayload{
		DocID:     s.docID,
		Revision:  seqOp.Revision,
		Operation: seqOp.Op,
		UserID:    userID,
		ConnID:    clientID,
	}, clientID)
}

// saveSnapshot persists the current content together with the authorship
// state, so attribution survives a restart.
func (s *Session) saveSnapshot() error {
	if err := s.store.SaveSnapshot(s.docID, s.queue.Revision(), s.document.Content()); err != nil {
		return err
	}

	return s.store.SaveAuthorship(s.docID, storage.AuthorshipRecord{
		Atoms:   s.atoms,
		Authors: s.authors.Authors(),
	})
}

// GetState returns the current document state.
// It checks read permission before returning.
func (s *Session) GetState(userID string) (string, int, error) {
	if err := s.checkReadPermission(userID); err != nil {
		return "", 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", 0, ErrSessionClosed
	}

	return s.document.Content(), s.queue.Revision(), nil
}

// Authorship returns the current atom log and author palette.
func (s *Session) Authorship(userID string) ([]authorship.Atom, []authorship.AuthorInfo, error) {
	if err := s.checkReadPermission(userID); err != nil {
		return nil, nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, nil, ErrSessionClosed
	}

	atoms := append([]authorship.Atom(nil), s.atoms...)

	return atoms, s.authors.Authors(), nil
}

// Attribution computes per-line gutter marks and inline spans for the
// current content.
func (s *Session) Attribution(userID string) (authorship.Assignment, error) {
	if err := s.checkReadPermission(userID); err != nil {
		return authorship.Assignment{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return authorship.Assignment{}, ErrSessionClosed
	}

	return authorship.Attribute(s.document.Content(), s.atoms), nil
}

func (s *Session) checkReadPermission(userID string) error {
	if s.permChecker == nil {
		return nil
	}

	return s.permChecker.RequirePermission(s.docID, userID, acl.ActionRead)
}

// DocID returns the document ID for this session.
func (s *Session) DocID() string {
	return s.docID
}

// Revision returns the current revision number.
func (s *Session) Revision() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queue.Revision()
}

// Close closes the session and saves a final snapshot.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true

	// Save final snapshot
	return s.saveSnapshot()
}
