package ot

import (
	"errors"
	"sync"
)

// Queue errors.
var (
	// ErrRevisionTooOld is returned when the client's base revision is older
	// than any retained history. Recovery is a full snapshot resync.
	ErrRevisionTooOld = errors.New("base revision too old, history unavailable")

	// ErrFutureRevision is returned when a client claims a base revision the
	// server has not assigned yet.
	ErrFutureRevision = errors.New("base revision is in the future")
)

// SequencedOperation is an accepted operation tagged with its server-assigned
// revision, the author that produced it and the acceptance time.
type SequencedOperation struct {
	Op        *Operation
	Revision  int
	Author    string
	Timestamp int64 // unix milliseconds
}

// Queue is the revision log core: it assigns monotonic revision numbers and
// transforms incoming operations that were created against an older revision
// forward over the concurrent history. Operations are totally ordered by
// arrival here; that order is the insert tie-break authority.
type Queue struct {
	mu          sync.RWMutex
	revision    int
	history     []SequencedOperation
	historySize int
}

// NewQueue creates a new operation queue.
// historySize determines how many past operations to retain for transformation.
func NewQueue(historySize int) *Queue {
	return &Queue{
		history:     make([]SequencedOperation, 0, historySize),
		historySize: historySize,
	}
}

// Revision returns the current document revision.
func (q *Queue) Revision() int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	return q.revision
}

// SetRevision resets the revision counter, used when loading a document
// from storage.
func (q *Queue) SetRevision(revision int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.revision = revision
}

// HistorySize returns the configured history bound.
func (q *Queue) HistorySize() int {
	return q.historySize
}

// Restore resets the queue to a revision and reseeds the transform history
// from persisted operations, keeping the newest when the bound is exceeded.
// Used when loading a document from storage so clients that were editing
// before the reload can still have their stale operations transformed.
func (q *Queue) Restore(revision int, history []SequencedOperation) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.revision = revision

	start := 0
	if len(history) > q.historySize {
		start = len(history) - q.historySize
	}

	q.history = append(q.history[:0], history[start:]...)
}

// Apply takes an operation created against baseRevision, transforms it over
// every operation accepted after that revision and assigns it the next
// revision number. The history operations are the server-ordered earlier
// side of each transform.
func (q *Queue) Apply(op *Operation, baseRevision int, author string, now int64) (SequencedOperation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if baseRevision > q.revision {
		return SequencedOperation{}, ErrFutureRevision
	}

	// All operations after baseRevision must still be in history for the
	// transform chain to be complete. An empty history covers nothing, so a
	// stale base is unprocessable then too.
	if baseRevision < q.revision {
		if len(q.history) == 0 || q.history[0].Revision > baseRevision+1 {
			return SequencedOperation{}, ErrRevisionTooOld
		}
	}

	transformed := op

	for _, hist := range q.history {
		if hist.Revision <= baseRevision {
			continue
		}

		var err error

		_, transformed, err = Transform(hist.Op, transformed)
		if err != nil {
			return SequencedOperation{}, err
		}
	}

	q.revision++

	result := SequencedOperation{
		Op:        transformed,
		Revision:  q.revision,
		Author:    author,
		Timestamp: now,
	}

	q.addToHistory(result)

	return result, nil
}

// addToHistory appends an operation, pruning the oldest entry when the
// bound is exceeded.
func (q *Queue) addToHistory(op SequencedOperation) {
	q.history = append(q.history, op)

	if len(q.history) > q.historySize {
		q.history = q.history[1:]
	}
}

// History returns the accepted operations after sinceRevision, oldest first.
// Useful for clients that need to catch up without a full snapshot.
func (q *Queue) History(sinceRevision int) []SequencedOperation {
	q.mu.RLock()
	defer q.mu.RUnlock()

	var result []SequencedOperation

	for _, op := range q.history {
		if op.Revision > sinceRevision {
			result = append(result, op)
		}
	}

	return result
}
