// Package api exposes the HTTP surface: document CRUD, permission
// management and the websocket endpoint the editors talk to.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/serroba/collab-pad/internal/acl"
	"github.com/serroba/collab-pad/internal/collab"
	"github.com/serroba/collab-pad/internal/presence"
	"github.com/serroba/collab-pad/internal/storage"
	"github.com/serroba/collab-pad/internal/ws"
)

// Server handles HTTP requests for the collaboration API.
type Server struct {
	manager        *collab.Manager
	store          storage.Store
	permStore      acl.Store
	checker        *acl.Checker
	hub            *ws.Hub
	tracker        *presence.Tracker
	upgrader       websocket.Upgrader
	cursorInterval time.Duration
}

// ServerConfig holds configuration for creating a server.
type ServerConfig struct {
	Manager   *collab.Manager
	Store     storage.Store
	PermStore acl.Store
	Hub       *ws.Hub
	Tracker   *presence.Tracker

	// CursorInterval bounds how often one connection's cursor moves are
	// rebroadcast. Zero picks a sensible default.
	CursorInterval time.Duration
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig) *Server {
	interval := cfg.CursorInterval
	if interval == 0 {
		interval = 50 * time.Millisecond
	}

	tracker := cfg.Tracker
	if tracker == nil {
		tracker = presence.NewTracker()
	}

	var checker *acl.Checker
	if cfg.PermStore != nil {
		checker = acl.NewChecker(cfg.PermStore)
	}

	return &Server{
		manager:        cfg.Manager,
		store:          cfg.Store,
		permStore:      cfg.PermStore,
		checker:        checker,
		hub:            cfg.Hub,
		tracker:        tracker,
		cursorInterval: interval,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool {
				return true // Allow all origins for demo
			},
		},
	}
}

// Handler returns an http.Handler with all routes configured.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/documents", s.authMiddleware(http.HandlerFunc(s.handleCreateDocument)))
	mux.Handle("/documents/", s.authMiddleware(http.HandlerFunc(s.handleDocumentByID)))

	mux.Handle("/ws", s.authMiddleware(http.HandlerFunc(s.handleWebSocket)))

	return mux
}

// handleDocumentByID routes requests for /documents/{id} and
// /documents/{id}/permissions.
func (s *Server) handleDocumentByID(w http.ResponseWriter, r *http.Request) {
	if strings.HasSuffix(r.URL.Path, "/permissions") {
		if r.Method != http.MethodPut {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)

			return
		}

		s.handleSetPermissions(w, r)

		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetDocument(w, r)
	case http.MethodDelete:
		s.handleDeleteDocument(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
