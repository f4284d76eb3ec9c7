package presence

import (
	"sort"
	"strings"
	"sync"
)

// Tracker maintains the roster of connected editors per document.
// It is safe for concurrent use.
type Tracker struct {
	mu   sync.RWMutex
	docs map[string]map[string]*Record
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{docs: make(map[string]map[string]*Record)}
}

// Join adds a connection's record to a document's roster.
func (t *Tracker) Join(docID string, rec Record) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.docs[docID] == nil {
		t.docs[docID] = make(map[string]*Record)
	}

	r := rec
	t.docs[docID][rec.ConnID] = &r
}

// Leave removes a connection from a document's roster.
func (t *Tracker) Leave(docID, connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if conns, ok := t.docs[docID]; ok {
		delete(conns, connID)

		if len(conns) == 0 {
			delete(t.docs, docID)
		}
	}
}

// UpdateCursor records a cursor move; a nil cursor means the editor blurred.
func (t *Tracker) UpdateCursor(docID, connID string, cursor *int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if rec, ok := t.lookup(docID, connID); ok {
		rec.Cursor = cursor
	}
}

// UpdateStatus records an idle transition or device class change.
func (t *Tracker) UpdateStatus(docID, connID string, idle bool, device DeviceClass) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if rec, ok := t.lookup(docID, connID); ok {
		rec.Idle = idle

		if device != "" {
			rec.Device = device
		}
	}
}

// Get returns a copy of the record for a connection.
func (t *Tracker) Get(docID, connID string) (Record, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rec, ok := t.lookup(docID, connID)
	if !ok {
		return Record{}, false
	}

	return *rec, true
}

// Count returns the number of connections on a document.
func (t *Tracker) Count(docID string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.docs[docID])
}

// Roster returns the deduplicated, display-ordered roster of a document.
// Connections of the same logged-in user collapse into one entry: the entry
// stays active if any of the user's connections is active, and keeps the
// caller's own color when one of them is the caller. Ordering is stable for
// identical inputs: self first, then logged-in before anonymous, active
// before idle, case-folded name, color, connection id.
func (t *Tracker) Roster(docID, selfConnID string) []Record {
	t.mu.RLock()

	conns := t.docs[docID]
	all := make([]Record, 0, len(conns))

	for _, rec := range conns {
		all = append(all, *rec)
	}

	t.mu.RUnlock()

	// Deterministic dedup input order.
	sort.Slice(all, func(i, j int) bool { return all[i].ConnID < all[j].ConnID })

	deduped := dedupe(all, selfConnID)
	sortRoster(deduped, selfConnID)

	return deduped
}

// lookup must be called with the mutex held.
func (t *Tracker) lookup(docID, connID string) (*Record, bool) {
	conns, ok := t.docs[docID]
	if !ok {
		return nil, false
	}

	rec, ok := conns[connID]

	return rec, ok
}

// dedupe collapses records sharing a user id. Anonymous connections are
// kept as-is.
func dedupe(all []Record, selfConnID string) []Record {
	out := make([]Record, 0, len(all))
	byUser := make(map[string]int)

	for _, rec := range all {
		if rec.UserID == "" {
			out = append(out, rec)

			continue
		}

		idx, seen := byUser[rec.UserID]
		if !seen {
			byUser[rec.UserID] = len(out)
			out = append(out, rec)

			continue
		}

		// Keep the caller's own color, and the awake state of any
		// non-idle connection.
		if rec.ConnID == selfConnID {
			out[idx].Color = rec.Color
			out[idx].ConnID = rec.ConnID
		}

		if !rec.Idle {
			out[idx].Idle = false
			out[idx].Color = rec.Color
		}
	}

	return out
}

func sortRoster(roster []Record, selfConnID string) {
	isSelf := func(r Record) bool {
		return r.ConnID == selfConnID
	}

	sort.Slice(roster, func(i, j int) bool {
		a, b := roster[i], roster[j]

		if sa, sb := isSelf(a), isSelf(b); sa != sb {
			return sa
		}

		if a.LoggedIn != b.LoggedIn {
			return a.LoggedIn
		}

		if a.Idle != b.Idle {
			return !a.Idle
		}

		if an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name); an != bn {
			return an < bn
		}

		if ac, bc := strings.ToLower(a.Color), strings.ToLower(b.Color); ac != bc {
			return ac < bc
		}

		return a.ConnID < b.ConnID
	})
}
