package ot

import (
	"fmt"
	"unicode/utf8"
)

// Transform rewrites two operations that were created against the same base
// document so that each can run after the other. The convergence property
// holds for the returned pair:
//
//	apply(apply(doc, a), bPrime) == apply(apply(doc, b), aPrime)
//
// When both operations insert at the same offset, a's text is placed first.
// Callers pass the operation that reached the server authority earlier as a,
// which makes the tie-break follow server arrival order everywhere.
func Transform(a, b *Operation) (*Operation, *Operation, error) {
	if a.BaseLen != b.BaseLen {
		return nil, nil, fmt.Errorf("%w: %d vs %d", ErrBaseMismatch, a.BaseLen, b.BaseLen)
	}

	aPrime, bPrime := New(), New()
	as := append([]Component(nil), a.Components...)
	bs := append([]Component(nil), b.Components...)

	for len(as) > 0 || len(bs) > 0 {
		// Inserts consume no base text, so they are emitted before anything
		// else; a's side wins the ordering tie.
		if len(as) > 0 && as[0].IsInsert() {
			aPrime.Insert(as[0].S)
			bPrime.Retain(utf8.RuneCountInString(as[0].S))
			as = as[1:]

			continue
		}

		if len(bs) > 0 && bs[0].IsInsert() {
			aPrime.Retain(utf8.RuneCountInString(bs[0].S))
			bPrime.Insert(bs[0].S)
			bs = bs[1:]

			continue
		}

		if len(as) == 0 || len(bs) == 0 {
			return nil, nil, fmt.Errorf("%w: operations do not line up", ErrBaseMismatch)
		}

		ca, cb := as[0], bs[0]

		var n int

		switch {
		case ca.IsRetain() && cb.IsRetain():
			n = minComponent(ca.N, cb.N)
			aPrime.Retain(n)
			bPrime.Retain(n)
		case ca.IsDelete() && cb.IsDelete():
			// Both sides removed the same text; nothing remains to transform.
			n = minComponent(-ca.N, -cb.N)
		case ca.IsDelete() && cb.IsRetain():
			n = minComponent(-ca.N, cb.N)
			aPrime.Delete(n)
		default: // a retains, b deletes
			n = minComponent(ca.N, -cb.N)
			bPrime.Delete(n)
		}

		as = consume(as, n)
		bs = consume(bs, n)
	}

	return aPrime, bPrime, nil
}

// consume removes n runes worth of the leading retain or delete component.
func consume(cs []Component, n int) []Component {
	c := cs[0]

	switch {
	case c.IsRetain():
		if c.N == n {
			return cs[1:]
		}

		cs[0].N -= n
	case c.IsDelete():
		if -c.N == n {
			return cs[1:]
		}

		cs[0].N += n
	}

	return cs
}

func minComponent(a, b int) int {
	if a < b {
		return a
	}

	return b
}
