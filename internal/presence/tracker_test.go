package presence_test

import (
	"testing"

	"github.com/serroba/collab-pad/internal/presence"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int {
	return &n
}

func TestTracker_JoinLeave(t *testing.T) {
	t.Parallel()

	tracker := presence.NewTracker()

	tracker.Join("doc1", presence.Record{ConnID: "c1", Name: "Alice"})
	tracker.Join("doc1", presence.Record{ConnID: "c2", Name: "Bob"})
	require.Equal(t, 2, tracker.Count("doc1"))

	tracker.Leave("doc1", "c1")
	require.Equal(t, 1, tracker.Count("doc1"))

	_, ok := tracker.Get("doc1", "c1")
	require.False(t, ok)
}

func TestTracker_UpdateCursorAndStatus(t *testing.T) {
	t.Parallel()

	tracker := presence.NewTracker()
	tracker.Join("doc1", presence.Record{ConnID: "c1", Name: "Alice"})

	tracker.UpdateCursor("doc1", "c1", intPtr(7))
	tracker.UpdateStatus("doc1", "c1", true, presence.DeviceMD)

	rec, ok := tracker.Get("doc1", "c1")
	require.True(t, ok)
	require.NotNil(t, rec.Cursor)
	require.Equal(t, 7, *rec.Cursor)
	require.True(t, rec.Idle)
	require.Equal(t, presence.DeviceMD, rec.Device)

	// Blur clears the cursor.
	tracker.UpdateCursor("doc1", "c1", nil)
	rec, _ = tracker.Get("doc1", "c1")
	require.Nil(t, rec.Cursor)
}

func TestRoster_DeduplicatesByUserID(t *testing.T) {
	t.Parallel()

	tracker := presence.NewTracker()

	// One user with two tabs, one idle. The roster entry stays awake.
	tracker.Join("doc1", presence.Record{ConnID: "c1", UserID: "u1", Name: "Alice", LoggedIn: true, Idle: true, Color: "#111111"})
	tracker.Join("doc1", presence.Record{ConnID: "c2", UserID: "u1", Name: "Alice", LoggedIn: true, Idle: false, Color: "#222222"})
	tracker.Join("doc1", presence.Record{ConnID: "c3", Name: "anon", Color: "#333333"})

	roster := tracker.Roster("doc1", "c3")
	require.Len(t, roster, 2)

	var alice presence.Record

	for _, rec := range roster {
		if rec.UserID == "u1" {
			alice = rec
		}
	}

	require.False(t, alice.Idle)
	require.Equal(t, "#222222", alice.Color)
}

func TestRoster_SortOrder(t *testing.T) {
	t.Parallel()

	tracker := presence.NewTracker()

	tracker.Join("doc1", presence.Record{ConnID: "c1", Name: "zoe", Color: "#aaaaaa"})
	tracker.Join("doc1", presence.Record{ConnID: "c2", UserID: "u2", Name: "Bob", LoggedIn: true, Idle: true, Color: "#bbbbbb"})
	tracker.Join("doc1", presence.Record{ConnID: "c3", UserID: "u3", Name: "Carol", LoggedIn: true, Color: "#cccccc"})
	tracker.Join("doc1", presence.Record{ConnID: "c4", Name: "amy", Color: "#dddddd"})

	roster := tracker.Roster("doc1", "c1")

	got := make([]string, len(roster))
	for i, rec := range roster {
		got[i] = rec.Name
	}

	// Self first, then logged-in active, logged-in idle, anonymous by name.
	require.Equal(t, []string{"zoe", "Carol", "Bob", "amy"}, got)
}

func TestRoster_DeterministicForIdenticalInputs(t *testing.T) {
	t.Parallel()

	build := func() *presence.Tracker {
		tracker := presence.NewTracker()
		tracker.Join("doc1", presence.Record{ConnID: "c2", Name: "same", Color: "#111111"})
		tracker.Join("doc1", presence.Record{ConnID: "c1", Name: "same", Color: "#111111"})

		return tracker
	}

	first := build().Roster("doc1", "none")
	second := build().Roster("doc1", "none")

	require.Equal(t, first, second)
	require.Equal(t, "c1", first[0].ConnID)
}

func TestColorFor_Stable(t *testing.T) {
	t.Parallel()

	require.Equal(t, presence.ColorFor("conn-1"), presence.ColorFor("conn-1"))
	require.NotEmpty(t, presence.ColorFor("conn-2"))
}
