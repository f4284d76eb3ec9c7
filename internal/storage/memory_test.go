package storage_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/serroba/collab-pad/internal/authorship"
	"github.com/serroba/collab-pad/internal/ot"
	"github.com/serroba/collab-pad/internal/storage"
)

func insertOp(text string, at, baseLen int) *ot.Operation {
	return ot.New().Retain(at).Insert(text).Retain(baseLen - at)
}

func TestMemoryStore_CreateDocument(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()

	err := store.CreateDocument("doc1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	exists, err := store.DocumentExists("doc1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !exists {
		t.Error("expected document to exist after creation")
	}
}

func TestMemoryStore_CreateDocument_AlreadyExists(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()

	require.NoError(t, store.CreateDocument("doc1"))

	err := store.CreateDocument("doc1")
	if !errors.Is(err, storage.ErrDocumentExists) {
		t.Errorf("expected ErrDocumentExists, got %v", err)
	}
}

func TestMemoryStore_DeleteDocument(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateDocument("doc1"))
	require.NoError(t, store.DeleteDocument("doc1"))

	exists, err := store.DocumentExists("doc1")
	require.NoError(t, err)
	require.False(t, exists)

	err = store.DeleteDocument("doc1")
	if !errors.Is(err, storage.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestMemoryStore_SaveAndLoadSnapshot(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateDocument("doc1"))

	err := store.SaveSnapshot("doc1", 10, "hello world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snapshot, err := store.LoadSnapshot("doc1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snapshot.DocID != "doc1" {
		t.Errorf("expected docID doc1, got %s", snapshot.DocID)
	}

	if snapshot.Revision != 10 {
		t.Errorf("expected revision 10, got %d", snapshot.Revision)
	}

	if snapshot.Content != "hello world" {
		t.Errorf("expected content 'hello world', got %s", snapshot.Content)
	}

	if snapshot.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestMemoryStore_SaveSnapshot_DocumentNotFound(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()

	err := store.SaveSnapshot("nonexistent", 10, "content")
	if !errors.Is(err, storage.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestMemoryStore_LoadSnapshot_NoSnapshot(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateDocument("doc1"))

	_, err := store.LoadSnapshot("doc1")
	if !errors.Is(err, storage.ErrSnapshotNotFound) {
		t.Errorf("expected ErrSnapshotNotFound, got %v", err)
	}
}

func TestMemoryStore_AppendAndLoadOperations(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateDocument("doc1"))

	ops := []ot.SequencedOperation{
		{Op: insertOp("a", 0, 0), Revision: 1, Author: "user"},
		{Op: insertOp("b", 1, 1), Revision: 2, Author: "user"},
		{Op: insertOp("c", 2, 2), Revision: 3, Author: "user"},
	}

	for _, op := range ops {
		err := store.AppendOperation("doc1", op)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	loaded, err := store.LoadOperations("doc1", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(loaded) != 3 {
		t.Errorf("expected 3 operations, got %d", len(loaded))
	}
}

func TestMemoryStore_AppendOperation_DocumentNotFound(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()

	err := store.AppendOperation("nonexistent", ot.SequencedOperation{
		Op:       insertOp("a", 0, 0),
		Revision: 1,
	})
	if !errors.Is(err, storage.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestMemoryStore_LoadOperations_SinceRevision(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateDocument("doc1"))

	for i := 1; i <= 5; i++ {
		require.NoError(t, store.AppendOperation("doc1", ot.SequencedOperation{
			Op:       insertOp("x", i-1, i-1),
			Revision: i,
		}))
	}

	loaded, err := store.LoadOperations("doc1", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(loaded) != 2 {
		t.Errorf("expected 2 operations (revisions 4, 5), got %d", len(loaded))
	}

	if loaded[0].Revision != 4 {
		t.Errorf("expected first op revision 4, got %d", loaded[0].Revision)
	}

	if loaded[1].Revision != 5 {
		t.Errorf("expected second op revision 5, got %d", loaded[1].Revision)
	}
}

func TestMemoryStore_LatestRevision(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateDocument("doc1"))

	// Initially 0 (document exists but no ops)
	rev, err := store.LatestRevision("doc1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rev != 0 {
		t.Errorf("expected revision 0, got %d", rev)
	}

	// After operations
	for i := 1; i <= 3; i++ {
		require.NoError(t, store.AppendOperation("doc1", ot.SequencedOperation{
			Op:       insertOp("x", 0, i-1),
			Revision: i,
		}))
	}

	rev, err = store.LatestRevision("doc1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rev != 3 {
		t.Errorf("expected revision 3, got %d", rev)
	}
}

func TestMemoryStore_LatestRevision_FromSnapshot(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateDocument("doc1"))
	require.NoError(t, store.SaveSnapshot("doc1", 10, "content"))

	rev, err := store.LatestRevision("doc1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rev != 10 {
		t.Errorf("expected revision 10, got %d", rev)
	}
}

func TestMemoryStore_SnapshotPrunesOperations(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateDocument("doc1"))

	for i := 1; i <= 5; i++ {
		require.NoError(t, store.AppendOperation("doc1", ot.SequencedOperation{
			Op:       insertOp("x", 0, i-1),
			Revision: i,
		}))
	}

	require.NoError(t, store.SaveSnapshot("doc1", 3, "xxx"))

	ops, _ := store.LoadOperations("doc1", 0)

	if len(ops) != 2 {
		t.Errorf("expected 2 operations after prune, got %d", len(ops))
	}

	if ops[0].Revision != 4 {
		t.Errorf("expected first remaining op revision 4, got %d", ops[0].Revision)
	}
}

func TestMemoryStore_SaveAndLoadAuthorship(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateDocument("doc1"))

	record := storage.AuthorshipRecord{
		Atoms: []authorship.Atom{
			{Author: 0, Start: 0, End: 5, Timestamp: 100},
			{Author: 1, Start: 5, End: 8, Timestamp: 200},
		},
		Authors: []authorship.AuthorInfo{
			{UserID: "u1", Name: "Amy", Color: "#ff0000"},
			{UserID: "u2", Name: "Bob", Color: "#00ff00"},
		},
	}

	require.NoError(t, store.SaveAuthorship("doc1", record))

	loaded, err := store.LoadAuthorship("doc1")
	require.NoError(t, err)
	require.Equal(t, record.Atoms, loaded.Atoms)
	require.Equal(t, record.Authors, loaded.Authors)

	// Mutating the loaded copy must not touch the stored record.
	loaded.Atoms[0].Author = 9

	again, err := store.LoadAuthorship("doc1")
	require.NoError(t, err)
	require.Equal(t, 0, again.Atoms[0].Author)
}

func TestMemoryStore_LoadAuthorship_NeverWritten(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateDocument("doc1"))

	record, err := store.LoadAuthorship("doc1")
	require.NoError(t, err)
	require.Empty(t, record.Atoms)
	require.Empty(t, record.Authors)
}

func TestMemoryStore_DocumentNotFoundEverywhere(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()

	_, err := store.LoadSnapshot("nope")
	require.ErrorIs(t, err, storage.ErrDocumentNotFound)

	_, err = store.LoadOperations("nope", 0)
	require.ErrorIs(t, err, storage.ErrDocumentNotFound)

	_, err = store.LatestRevision("nope")
	require.ErrorIs(t, err, storage.ErrDocumentNotFound)

	err = store.SaveAuthorship("nope", storage.AuthorshipRecord{})
	require.ErrorIs(t, err, storage.ErrDocumentNotFound)

	_, err = store.LoadAuthorship("nope")
	require.ErrorIs(t, err, storage.ErrDocumentNotFound)
}

func TestMemoryStore_MultipleDocuments(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateDocument("doc1"))
	require.NoError(t, store.CreateDocument("doc2"))

	require.NoError(t, store.AppendOperation("doc1", ot.SequencedOperation{
		Op:       insertOp("a", 0, 0),
		Revision: 1,
	}))

	require.NoError(t, store.AppendOperation("doc2", ot.SequencedOperation{
		Op:       insertOp("b", 0, 0),
		Revision: 1,
	}))

	ops1, _ := store.LoadOperations("doc1", 0)
	ops2, _ := store.LoadOperations("doc2", 0)

	if len(ops1) != 1 || len(ops2) != 1 {
		t.Fatalf("expected 1 op each, got %d and %d", len(ops1), len(ops2))
	}

	got1, err := ops1[0].Op.Apply("")
	require.NoError(t, err)
	require.Equal(t, "a", got1)

	got2, err := ops2[0].Op.Apply("")
	require.NoError(t, err)
	require.Equal(t, "b", got2)
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateDocument("doc1"))

	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)

		go func(revision int) {
			defer wg.Done()

			// Note: Using _ here since require is not goroutine-safe
			_ = store.AppendOperation("doc1", ot.SequencedOperation{
				Op:       insertOp("x", 0, 0),
				Revision: revision,
			})
		}(i + 1)
	}

	wg.Wait()

	ops, _ := store.LoadOperations("doc1", 0)

	if len(ops) != 10 {
		t.Errorf("expected 10 operations, got %d", len(ops))
	}
}

func TestMemoryStore_SnapshotOverwrite(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	require.NoError(t, store.CreateDocument("doc1"))

	require.NoError(t, store.SaveSnapshot("doc1", 5, "first"))
	require.NoError(t, store.SaveSnapshot("doc1", 10, "second"))

	snapshot, _ := store.LoadSnapshot("doc1")

	if snapshot.Revision != 10 {
		t.Errorf("expected revision 10, got %d", snapshot.Revision)
	}

	if snapshot.Content != "second" {
		t.Errorf("expected content 'second', got %s", snapshot.Content)
	}
}
