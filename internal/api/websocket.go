package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/serroba/collab-pad/internal/acl"
	"github.com/serroba/collab-pad/internal/authorship"
	"github.com/serroba/collab-pad/internal/ot"
	"github.com/serroba/collab-pad/internal/presence"
	"github.com/serroba/collab-pad/internal/storage"
	"github.com/serroba/collab-pad/internal/ws"
)

// sessionInterface allows mocking the collab session for testing.
type sessionInterface interface {
	ApplyOperation(clientID string, author authorship.AuthorInfo, op *ot.Operation, baseRevision int) (int, error)
	GetState(userID string) (string, int, error)
	Authorship(userID string) ([]authorship.Atom, []authorship.AuthorInfo, error)
}

// wsConn bundles everything one websocket connection carries: the hub
// client, its presence record and the cursor rebroadcast throttle.
type wsConn struct {
	client   *ws.Client
	docID    string
	identity Identity
	author   authorship.AuthorInfo
	throttle *presence.Throttle
}

// handleWebSocket handles GET /ws?docId={id}.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)

		return
	}

	docID := r.URL.Query().Get("docId")
	if docID == "" {
		http.Error(w, "docId query parameter is required", http.StatusBadRequest)

		return
	}

	identity := IdentityFromContext(r.Context())

	wc, cleanup, err := s.setupConnection(w, r, docID, identity)
	if err != nil {
		return
	}

	defer cleanup()

	session, err := s.initializeConnection(wc)
	if err != nil {
		return
	}

	s.handleMessages(wc, session)
}

// setupConnection upgrades the request, registers the client with the hub
// and wires the per-connection cursor throttle.
func (s *Server) setupConnection(
	w http.ResponseWriter, r *http.Request, docID string, identity Identity,
) (*wsConn, func(), error) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)

		return nil, nil, err
	}

	clientID := uuid.New().String()
	client := ws.NewClient(clientID, identity.UserID, conn)
	s.hub.Register(client)
	s.hub.Subscribe(client, docID)

	wc := &wsConn{
		client:   client,
		docID:    docID,
		identity: identity,
		author: authorship.AuthorInfo{
			UserID: identity.UserID,
			Name:   identity.Name,
			Color:  presence.ColorFor(clientID),
		},
	}

	wc.throttle = presence.NewThrottle(s.cursorInterval, func(rec presence.Record) {
		s.hub.BroadcastCursor(docID, ws.CursorPayload{
			DocID:  docID,
			ConnID: rec.ConnID,
			Cursor: rec.Cursor,
		}, rec.ConnID)
	})

	cleanup := func() {
		wc.throttle.Stop()
		s.hub.Unregister(client)
		_ = client.Close()
		s.tracker.Leave(docID, clientID)
		s.broadcastRoster(docID)
	}

	return wc, cleanup, nil
}

// initializeConnection loads the document session, sends the initial state
// and joins the presence roster.
func (s *Server) initializeConnection(wc *wsConn) (sessionInterface, error) {
	session, err := s.manager.GetOrCreateSession(wc.docID)
	if err != nil {
		if errors.Is(err, storage.ErrDocumentNotFound) {
			_ = wc.client.SendError(ws.ErrorCodeInvalidMessage, "document not found")
		} else {
			_ = wc.client.SendError(ws.ErrorCodeInternalError, "failed to load document")
		}

		return nil, err
	}

	content, revision, err := session.GetState(wc.identity.UserID)
	if err != nil {
		if errors.Is(err, acl.ErrAccessDenied) {
			_ = wc.client.SendError(ws.ErrorCodeAccessDenied, "access denied")
		} else {
			_ = wc.client.SendError(ws.ErrorCodeInternalError, "failed to get document state")
		}

		return nil, err
	}

	if err := wc.client.Send(ws.Message{
		Type:    ws.MessageTypeVersion,
		Payload: ws.VersionPayload{Version: ws.ProtocolVersion},
	}); err != nil {
		return nil, err
	}

	if err := wc.client.Send(ws.Message{
		Type: ws.MessageTypeDoc,
		Payload: ws.DocPayload{
			DocID:    wc.docID,
			Content:  content,
			Revision: revision,
		},
	}); err != nil {
		return nil, err
	}

	s.sendAuthorship(wc, session)

	s.tracker.Join(wc.docID, presence.Record{
		ConnID:   wc.client.ID,
		UserID:   wc.identity.UserID,
		Name:     wc.identity.Name,
		Color:    wc.author.Color,
		LoggedIn: wc.identity.UserID != "",
	})
	s.broadcastRoster(wc.docID)

	return session, nil
}

// handleMessages processes incoming messages until the connection drops.
func (s *Server) handleMessages(wc *wsConn, session sessionInterface) {
	for {
		msg, err := wc.client.Receive()
		if err != nil {
			return
		}

		switch msg.Type {
		case ws.MessageTypeOperation:
			s.handleOperation(wc, session, msg)
		case ws.MessageTypeCursor:
			s.handleCursor(wc, msg)
		case ws.MessageTypeStatus:
			s.handleStatus(wc, msg)
		case ws.MessageTypeSync:
			s.handleSync(wc, session)
		case ws.MessageTypeAck, ws.MessageTypeDoc, ws.MessageTypeAuthorship,
			ws.MessageTypeUsers, ws.MessageTypeUserStatus, ws.MessageTypePermission,
			ws.MessageTypeVersion, ws.MessageTypeError:
			// Server-to-client messages - ignore if received from client
			_ = wc.client.SendError(ws.ErrorCodeInvalidMessage, "unexpected message type")
		}
	}
}

// handleOperation applies a submitted edit. A rejected base revision means
// the client drifted past the retained history, so it gets a forced
// snapshot to rebuild from.
func (s *Server) handleOperation(wc *wsConn, session sessionInterface, msg ws.Message) {
	payload, ok := msg.Payload.(ws.OperationPayload)
	if !ok || payload.Operation == nil {
		_ = wc.client.SendError(ws.ErrorCodeInvalidMessage, "invalid operation payload")

		return
	}

	revision, err := session.ApplyOperation(wc.client.ID, wc.author, payload.Operation, payload.BaseRevision)
	if err != nil {
		s.rejectOperation(wc, session, err)

		return
	}

	_ = wc.client.Send(ws.Message{
		Type:    ws.MessageTypeAck,
		Payload: ws.AckPayload{Revision: revision},
	})

	if payload.Cursor != nil {
		s.tracker.UpdateCursor(wc.docID, wc.client.ID, payload.Cursor)
	}

	// Attribution changed for everyone, submitter included.
	s.broadcastAuthorship(wc.docID, session)
}

func (s *Server) rejectOperation(wc *wsConn, session sessionInterface, err error) {
	switch {
	case errors.Is(err, acl.ErrAccessDenied):
		_ = wc.client.SendError(ws.ErrorCodeAccessDenied, "write access denied")
	case errors.Is(err, ot.ErrRevisionTooOld),
		errors.Is(err, ot.ErrFutureRevision),
		errors.Is(err, ot.ErrLengthMismatch):
		_ = wc.client.SendError(ws.ErrorCodeOutOfSync, err.Error())
		s.sendSnapshot(wc, session, true)
	default:
		_ = wc.client.SendError(ws.ErrorCodeInternalError, err.Error())
	}
}

// handleCursor records a cursor move and rebroadcasts it through the
// per-connection throttle.
func (s *Server) handleCursor(wc *wsConn, msg ws.Message) {
	payload, ok := msg.Payload.(ws.CursorPayload)
	if !ok {
		_ = wc.client.SendError(ws.ErrorCodeInvalidMessage, "invalid cursor payload")

		return
	}

	s.tracker.UpdateCursor(wc.docID, wc.client.ID, payload.Cursor)
	wc.throttle.Offer(presence.Record{ConnID: wc.client.ID, Cursor: payload.Cursor})
}

// handleStatus records an idle or device change and pushes the updated
// record to the other clients.
func (s *Server) handleStatus(wc *wsConn, msg ws.Message) {
	payload, ok := msg.Payload.(ws.StatusPayload)
	if !ok {
		_ = wc.client.SendError(ws.ErrorCodeInvalidMessage, "invalid status payload")

		return
	}

	s.tracker.UpdateStatus(wc.docID, wc.client.ID, payload.Idle, payload.Device)

	if rec, ok := s.tracker.Get(wc.docID, wc.client.ID); ok {
		s.hub.BroadcastUserStatus(wc.docID, rec, wc.client.ID)
	}
}

// handleSync resends the current snapshot and authorship to the requester.
func (s *Server) handleSync(wc *wsConn, session sessionInterface) {
	s.sendSnapshot(wc, session, false)
	s.sendAuthorship(wc, session)
}

func (s *Server) sendSnapshot(wc *wsConn, session sessionInterface, force bool) {
	content, revision, err := session.GetState(wc.identity.UserID)
	if err != nil {
		if errors.Is(err, acl.ErrAccessDenied) {
			_ = wc.client.SendError(ws.ErrorCodeAccessDenied, "access denied")
		} else {
			_ = wc.client.SendError(ws.ErrorCodeInternalError, "failed to get document state")
		}

		return
	}

	_ = wc.client.Send(ws.Message{
		Type: ws.MessageTypeDoc,
		Payload: ws.DocPayload{
			DocID:    wc.docID,
			Content:  content,
			Revision: revision,
			Force:    force,
		},
	})
}

func (s *Server) sendAuthorship(wc *wsConn, session sessionInterface) {
	atoms, authors, err := session.Authorship(wc.identity.UserID)
	if err != nil {
		return
	}

	_ = wc.client.Send(ws.Message{
		Type: ws.MessageTypeAuthorship,
		Payload: ws.AuthorshipPayload{
			DocID:   wc.docID,
			Atoms:   atoms,
			Authors: authors,
		},
	})
}

// broadcastAuthorship pushes the atom log to every client on the document.
func (s *Server) broadcastAuthorship(docID string, session sessionInterface) {
	atoms, authors, err := session.Authorship("")
	if err != nil {
		// Private documents gate reads per user; fall back to the
		// owner-visible state fetched per connection on next sync.
		return
	}

	s.hub.Broadcast(docID, ws.Message{
		Type: ws.MessageTypeAuthorship,
		Payload: ws.AuthorshipPayload{
			DocID:   docID,
			Atoms:   atoms,
			Authors: authors,
		},
	}, "")
}

// broadcastRoster pushes each client its own view of the roster.
func (s *Server) broadcastRoster(docID string) {
	s.hub.BroadcastUsers(docID, func(selfConnID string) []presence.Record {
		return s.tracker.Roster(docID, selfConnID)
	})
}
