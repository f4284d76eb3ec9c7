// Package authorship tracks which author last wrote each part of a document
// and derives per-line gutter and sub-line inline attribution from it.
package authorship

import (
	"unicode/utf8"

	"github.com/serroba/collab-pad/internal/ot"
)

// Atom binds a range of the current document to the author that last wrote
// it. Start and End are rune offsets, End exclusive. The atom log is kept
// position-sorted and non-overlapping; ranges never written by a tracked
// author (for example imported content) appear as gaps.
type Atom struct {
	Author    int   `json:"author"`
	Start     int   `json:"start"`
	End       int   `json:"end"`
	Timestamp int64 `json:"timestamp"`
}

// Untracked marks an operation whose author should leave no atoms, such as
// an anonymous edit.
const Untracked = -1

// Advance remaps an atom log through an accepted operation and returns the
// new log. Retained text carries its atoms along (shifted to the new
// offsets), inserted text becomes a new atom owned by author, and deleted
// text drops its atoms. An Untracked author inserts gaps instead of atoms.
// The input slice is never modified.
func Advance(atoms []Atom, op *ot.Operation, author int, now int64) []Atom {
	out := make([]Atom, 0, len(atoms)+1)
	oldPos, newPos := 0, 0

	for _, c := range op.Components {
		switch {
		case c.IsRetain():
			out = appendOverlap(out, atoms, oldPos, oldPos+c.N, newPos-oldPos)
			oldPos += c.N
			newPos += c.N
		case c.IsInsert():
			n := utf8.RuneCountInString(c.S)
			if author != Untracked {
				out = appendAtom(out, Atom{Author: author, Start: newPos, End: newPos + n, Timestamp: now})
			}

			newPos += n
		default:
			oldPos -= c.N
		}
	}

	return out
}

// appendOverlap carries the parts of atoms overlapping [from, to) in the
// base document into out, shifted by delta.
func appendOverlap(out, atoms []Atom, from, to, delta int) []Atom {
	for _, a := range atoms {
		if a.End <= from || a.Start >= to {
			continue
		}

		start, end := a.Start, a.End
		if start < from {
			start = from
		}

		if end > to {
			end = to
		}

		out = appendAtom(out, Atom{
			Author:    a.Author,
			Start:     start + delta,
			End:       end + delta,
			Timestamp: a.Timestamp,
		})
	}

	return out
}

// appendAtom appends a to out, merging contiguous same-author atoms. The
// earlier timestamp survives a merge so gutter attribution stays stable
// while an author keeps editing nearby text.
func appendAtom(out []Atom, a Atom) []Atom {
	if a.Start >= a.End {
		return out
	}

	if n := len(out); n > 0 {
		last := &out[n-1]
		if last.Author == a.Author && last.End == a.Start {
			last.End = a.End

			if a.Timestamp < last.Timestamp {
				last.Timestamp = a.Timestamp
			}

			return out
		}
	}

	return append(out, a)
}
