package ot

import (
	"sync"
	"unicode/utf8"
)

// Document holds the current state of a collaborative document.
// It is safe for concurrent use.
type Document struct {
	mu      sync.RWMutex
	content string
}

// NewDocument creates a new document with the given initial content.
func NewDocument(initial string) *Document {
	return &Document{content: initial}
}

// Apply executes an operation on the document.
func (d *Document) Apply(op *Operation) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	next, err := op.Apply(d.content)
	if err != nil {
		return err
	}

	d.content = next

	return nil
}

// Content returns the current document content.
func (d *Document) Content() string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.content
}

// Len returns the number of runes in the document.
func (d *Document) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return utf8.RuneCountInString(d.content)
}
