package ot

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

// Common errors.
var (
	ErrLengthMismatch  = errors.New("operation base length does not match document length")
	ErrComposeMismatch = errors.New("compose: target length of first operation does not match base length of second")
	ErrBaseMismatch    = errors.New("transform: operations do not share a base length")
	ErrMalformed       = errors.New("malformed operation")
)

// Component is a single step of an Operation. Exactly one interpretation
// holds: N > 0 retains N runes, N < 0 deletes -N runes, a non-empty S
// inserts S (with N == 0).
type Component struct {
	N int
	S string
}

// IsRetain returns true if the component retains runes.
func (c Component) IsRetain() bool {
	return c.N > 0
}

// IsDelete returns true if the component deletes runes.
func (c Component) IsDelete() bool {
	return c.N < 0
}

// IsInsert returns true if the component inserts text.
func (c Component) IsInsert() bool {
	return c.S != ""
}

// Operation is an ordered sequence of components describing an edit against
// a document of exactly BaseLen runes, producing a document of TargetLen
// runes. Once built, operations are treated as immutable values: Compose,
// Transform and Invert return new operations and never modify their inputs.
type Operation struct {
	Components []Component
	BaseLen    int
	TargetLen  int
}

// New creates an empty operation.
func New() *Operation {
	return &Operation{}
}

// Retain appends a "skip n runes" component, merging with a preceding
// retain. Returns the operation for chaining.
func (op *Operation) Retain(n int) *Operation {
	if n <= 0 {
		return op
	}

	op.BaseLen += n
	op.TargetLen += n

	if last := len(op.Components) - 1; last >= 0 && op.Components[last].IsRetain() {
		op.Components[last].N += n
	} else {
		op.Components = append(op.Components, Component{N: n})
	}

	return op
}

// Insert appends an "insert s" component. Adjacent inserts merge, and an
// insert directly after a delete is placed before it so that equivalent
// operations share a single canonical form.
func (op *Operation) Insert(s string) *Operation {
	if s == "" {
		return op
	}

	op.TargetLen += utf8.RuneCountInString(s)

	cs := op.Components
	n := len(cs)

	switch {
	case n > 0 && cs[n-1].IsInsert():
		cs[n-1].S += s
	case n > 0 && cs[n-1].IsDelete():
		if n > 1 && cs[n-2].IsInsert() {
			cs[n-2].S += s
		} else {
			cs = append(cs, cs[n-1])
			cs[n-1] = Component{S: s}
		}
	default:
		cs = append(cs, Component{S: s})
	}

	op.Components = cs

	return op
}

// Delete appends a "delete n runes" component, merging with a preceding
// delete.
func (op *Operation) Delete(n int) *Operation {
	if n <= 0 {
		return op
	}

	op.BaseLen += n

	if last := len(op.Components) - 1; last >= 0 && op.Components[last].IsDelete() {
		op.Components[last].N -= n
	} else {
		op.Components = append(op.Components, Component{N: -n})
	}

	return op
}

// IsNoop returns true if applying the operation leaves any document
// unchanged.
func (op *Operation) IsNoop() bool {
	for _, c := range op.Components {
		if !c.IsRetain() {
			return false
		}
	}

	return true
}

// Apply executes the operation against doc and returns the new document.
// Returns ErrLengthMismatch if doc does not have exactly BaseLen runes.
func (op *Operation) Apply(doc string) (string, error) {
	runes := []rune(doc)
	if len(runes) != op.BaseLen {
		return "", fmt.Errorf("%w: operation base %d, document %d", ErrLengthMismatch, op.BaseLen, len(runes))
	}

	out := make([]rune, 0, op.TargetLen)
	pos := 0

	for _, c := range op.Components {
		switch {
		case c.IsRetain():
			out = append(out, runes[pos:pos+c.N]...)
			pos += c.N
		case c.IsInsert():
			out = append(out, []rune(c.S)...)
		default:
			pos -= c.N
		}
	}

	return string(out), nil
}

// Invert computes the inverse operation against the document the operation
// was created for. Applying the operation and then its inverse restores doc;
// used for local undo history.
func (op *Operation) Invert(doc string) *Operation {
	runes := []rune(doc)
	inverse := New()
	pos := 0

	for _, c := range op.Components {
		switch {
		case c.IsRetain():
			inverse.Retain(c.N)
			pos += c.N
		case c.IsInsert():
			inverse.Delete(utf8.RuneCountInString(c.S))
		default:
			inverse.Insert(string(runes[pos : pos-c.N]))
			pos -= c.N
		}
	}

	return inverse
}

// TransformIndex maps a document offset through the operation, e.g. to keep
// a cursor in place while a remote edit is applied. Inserts at or before the
// offset push it right; deletes before it pull it left.
func (op *Operation) TransformIndex(index int) int {
	newIndex := index
	base := 0

	for _, c := range op.Components {
		if base > index {
			break
		}

		switch {
		case c.IsRetain():
			base += c.N
		case c.IsInsert():
			newIndex += utf8.RuneCountInString(c.S)
		default:
			removed := -c.N
			if index-base < removed {
				removed = index - base
			}

			newIndex -= removed
			base -= c.N
		}
	}

	return newIndex
}

// MarshalJSON encodes the operation in the compact wire form: a positive
// integer retains, a negative integer deletes, a string inserts.
func (op Operation) MarshalJSON() ([]byte, error) {
	out := make([]any, len(op.Components))

	for i, c := range op.Components {
		if c.IsInsert() {
			out[i] = c.S
		} else {
			out[i] = c.N
		}
	}

	return json.Marshal(out)
}

// UnmarshalJSON decodes the compact wire form and rebuilds base and target
// lengths.
func (op *Operation) UnmarshalJSON(data []byte) error {
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	rebuilt := New()

	for _, e := range raw {
		switch v := e.(type) {
		case string:
			rebuilt.Insert(v)
		case float64:
			n := int(v)

			switch {
			case n > 0:
				rebuilt.Retain(n)
			case n < 0:
				rebuilt.Delete(-n)
			default:
				return fmt.Errorf("%w: zero-length component", ErrMalformed)
			}
		default:
			return fmt.Errorf("%w: unexpected component %T", ErrMalformed, e)
		}
	}

	*op = *rebuilt

	return nil
}
