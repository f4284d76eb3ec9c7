package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/serroba/collab-pad/internal/acl"
	"github.com/serroba/collab-pad/internal/api"
	"github.com/serroba/collab-pad/internal/collab"
	"github.com/serroba/collab-pad/internal/presence"
	"github.com/serroba/collab-pad/internal/storage"
	"github.com/serroba/collab-pad/internal/ws"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize stores
	store := storage.NewMemoryStore()
	permStore := acl.NewMemoryStore()

	// Initialize WebSocket hub and presence tracker
	hub := ws.NewHub()
	tracker := presence.NewTracker()

	// Initialize session manager
	manager := collab.NewManager(collab.ManagerConfig{
		Store:          store,
		PermStore:      permStore,
		Hub:            hub,
		SnapshotPolicy: storage.NewSnapshotPolicy(100),
	})

	// Initialize API server
	server := api.NewServer(api.ServerConfig{
		Manager:   manager,
		Store:     store,
		PermStore: permStore,
		Hub:       hub,
		Tracker:   tracker,
	})

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8080"
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("Starting server on %s", addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}

		// Flush final snapshots before exiting.
		return manager.CloseAll()
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Print("Server stopped")
}
