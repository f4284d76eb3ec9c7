package ot

import (
	"fmt"
	"unicode/utf8"
)

// Compose returns a single operation equivalent to applying op and then
// next in sequence. The target length of op must equal the base length of
// next.
func (op *Operation) Compose(next *Operation) (*Operation, error) {
	if op.TargetLen != next.BaseLen {
		return nil, fmt.Errorf("%w: target %d, base %d", ErrComposeMismatch, op.TargetLen, next.BaseLen)
	}

	result := New()
	as := append([]Component(nil), op.Components...)
	bs := append([]Component(nil), next.Components...)

	for len(as) > 0 || len(bs) > 0 {
		// Deletes from the first operation and inserts from the second do
		// not interact with the other side; emit them directly.
		if len(as) > 0 && as[0].IsDelete() {
			result.Delete(-as[0].N)
			as = as[1:]

			continue
		}

		if len(bs) > 0 && bs[0].IsInsert() {
			result.Insert(bs[0].S)
			bs = bs[1:]

			continue
		}

		if len(as) == 0 || len(bs) == 0 {
			return nil, fmt.Errorf("%w: operations do not line up", ErrComposeMismatch)
		}

		a, b := as[0], bs[0]

		switch {
		case a.IsRetain() && b.IsRetain():
			switch {
			case a.N > b.N:
				result.Retain(b.N)
				as[0].N -= b.N
				bs = bs[1:]
			case a.N == b.N:
				result.Retain(b.N)
				as, bs = as[1:], bs[1:]
			default:
				result.Retain(a.N)
				bs[0].N -= a.N
				as = as[1:]
			}
		case a.IsInsert() && b.IsDelete():
			il, dl := utf8.RuneCountInString(a.S), -b.N

			switch {
			case il > dl:
				as[0].S = string([]rune(a.S)[dl:])
				bs = bs[1:]
			case il == dl:
				as, bs = as[1:], bs[1:]
			default:
				bs[0].N += il
				as = as[1:]
			}
		case a.IsInsert() && b.IsRetain():
			il := utf8.RuneCountInString(a.S)

			switch {
			case il > b.N:
				result.Insert(string([]rune(a.S)[:b.N]))
				as[0].S = string([]rune(a.S)[b.N:])
				bs = bs[1:]
			case il == b.N:
				result.Insert(a.S)
				as, bs = as[1:], bs[1:]
			default:
				result.Insert(a.S)
				bs[0].N -= il
				as = as[1:]
			}
		default: // a retains, b deletes
			dl := -b.N

			switch {
			case a.N > dl:
				result.Delete(dl)
				as[0].N -= dl
				bs = bs[1:]
			case a.N == dl:
				result.Delete(dl)
				as, bs = as[1:], bs[1:]
			default:
				result.Delete(a.N)
				bs[0].N += a.N
				as = as[1:]
			}
		}
	}

	return result, nil
}
