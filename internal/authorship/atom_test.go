package authorship_test

import (
	"testing"

	"github.com/serroba/collab-pad/internal/authorship"
	"github.com/serroba/collab-pad/internal/ot"
	"github.com/stretchr/testify/require"
)

func TestAdvance_InsertCreatesAtom(t *testing.T) {
	t.Parallel()

	atoms := authorship.Advance(nil, ot.New().Insert("hello"), 0, 10)

	require.Equal(t, []authorship.Atom{{Author: 0, Start: 0, End: 5, Timestamp: 10}}, atoms)
}

func TestAdvance_RetainShiftsExistingAtoms(t *testing.T) {
	t.Parallel()

	atoms := []authorship.Atom{{Author: 0, Start: 0, End: 5, Timestamp: 10}}

	// A second author prepends two runes.
	op := ot.New().Insert("ab").Retain(5)
	next := authorship.Advance(atoms, op, 1, 20)

	require.Equal(t, []authorship.Atom{
		{Author: 1, Start: 0, End: 2, Timestamp: 20},
		{Author: 0, Start: 2, End: 7, Timestamp: 10},
	}, next)

	// The input log is untouched.
	require.Equal(t, []authorship.Atom{{Author: 0, Start: 0, End: 5, Timestamp: 10}}, atoms)
}

func TestAdvance_DeleteDropsAndSplitsAtoms(t *testing.T) {
	t.Parallel()

	atoms := []authorship.Atom{
		{Author: 0, Start: 0, End: 3, Timestamp: 10},
		{Author: 1, Start: 3, End: 6, Timestamp: 20},
	}

	// Delete runes [2, 4), eating the end of the first atom and the start
	// of the second.
	op := ot.New().Retain(2).Delete(2).Retain(2)
	next := authorship.Advance(atoms, op, 2, 30)

	require.Equal(t, []authorship.Atom{
		{Author: 0, Start: 0, End: 2, Timestamp: 10},
		{Author: 1, Start: 2, End: 4, Timestamp: 20},
	}, next)
}

func TestAdvance_InsertInsideOwnAtomMerges(t *testing.T) {
	t.Parallel()

	atoms := []authorship.Atom{{Author: 0, Start: 0, End: 4, Timestamp: 10}}

	// The same author inserts in the middle of their own range; the log
	// stays a single atom and keeps the older timestamp.
	op := ot.New().Retain(2).Insert("xy").Retain(2)
	next := authorship.Advance(atoms, op, 0, 50)

	require.Equal(t, []authorship.Atom{{Author: 0, Start: 0, End: 6, Timestamp: 10}}, next)
}

func TestAdvance_InsertSplitsForeignAtom(t *testing.T) {
	t.Parallel()

	atoms := []authorship.Atom{{Author: 0, Start: 0, End: 4, Timestamp: 10}}

	op := ot.New().Retain(2).Insert("xy").Retain(2)
	next := authorship.Advance(atoms, op, 1, 50)

	require.Equal(t, []authorship.Atom{
		{Author: 0, Start: 0, End: 2, Timestamp: 10},
		{Author: 1, Start: 2, End: 4, Timestamp: 50},
		{Author: 0, Start: 4, End: 6, Timestamp: 10},
	}, next)
}

func TestAdvance_UntrackedInsertLeavesGap(t *testing.T) {
	t.Parallel()

	atoms := []authorship.Atom{{Author: 0, Start: 0, End: 4, Timestamp: 10}}

	// An anonymous insert owns no atom but still shifts what follows.
	op := ot.New().Retain(2).Insert("xy").Retain(2)
	next := authorship.Advance(atoms, op, authorship.Untracked, 50)

	require.Equal(t, []authorship.Atom{
		{Author: 0, Start: 0, End: 2, Timestamp: 10},
		{Author: 0, Start: 4, End: 6, Timestamp: 10},
	}, next)
}

func TestRegistry_AssignsStableIndices(t *testing.T) {
	t.Parallel()

	reg := authorship.NewRegistry()

	alice := reg.Index(authorship.AuthorInfo{UserID: "alice", Name: "Alice", Color: "#ff0000"})
	bob := reg.Index(authorship.AuthorInfo{UserID: "bob", Name: "Bob", Color: "#00ff00"})

	require.Equal(t, 0, alice)
	require.Equal(t, 1, bob)

	// Re-registering refreshes the profile but keeps the index.
	again := reg.Index(authorship.AuthorInfo{UserID: "alice", Name: "Alice L.", Color: ""})
	require.Equal(t, 0, again)

	authors := reg.Authors()
	require.Len(t, authors, 2)
	require.Equal(t, "Alice L.", authors[0].Name)
	require.Equal(t, "#ff0000", authors[0].Color)
}

func TestRegistry_Restore(t *testing.T) {
	t.Parallel()

	reg := authorship.NewRegistry()
	reg.Restore([]authorship.AuthorInfo{
		{UserID: "carol", Name: "Carol", Color: "#0000ff"},
	})

	require.Equal(t, 0, reg.Index(authorship.AuthorInfo{UserID: "carol"}))
	require.Equal(t, 1, reg.Index(authorship.AuthorInfo{UserID: "dave"}))
}
