package authorship

import (
	"sort"
	"strings"
)

// GutterMark is the line-level attribution for one line.
type GutterMark struct {
	Author    int
	Timestamp int64
}

// InlineSpan marks a sub-line range whose author differs from the line's
// gutter author. FromCh and ToCh are rune offsets within the line.
type InlineSpan struct {
	Line   int
	FromCh int
	ToCh   int
	Author int
}

// Assignment is the complete attribution of a document: a gutter author per
// line plus inline spans where another author touched part of a line.
type Assignment struct {
	Gutter map[int]GutterMark
	Inline []InlineSpan
}

// Attribute computes the attribution of doc from the atom log. It is a pure
// recomputation: calling it twice on the same inputs yields an identical
// Assignment, so callers can rebuild their marks wholesale after every
// accepted operation without accumulating stale state.
//
// Per line, the gutter goes to the atom with the earliest timestamp covering
// it (oldest touch wins, which keeps the gutter from flickering while an
// author re-edits nearby text). Atoms covering only part of a line also
// produce an inline span when their author ends up differing from that
// line's gutter author. Empty lines carry no gutter.
func Attribute(doc string, atoms []Atom) Assignment {
	lines := newLineIndex(doc)
	gutter := make(map[int]GutterMark)

	setGutter := func(line int, a Atom) {
		if cur, ok := gutter[line]; ok && cur.Timestamp <= a.Timestamp {
			return
		}

		gutter[line] = GutterMark{Author: a.Author, Timestamp: a.Timestamp}
	}

	var markers []InlineSpan

	for _, atom := range atoms {
		atom = lines.clip(atom)
		if atom.Start >= atom.End {
			continue
		}

		preLine, preCh := lines.locate(atom.Start)
		postLine, postCh := lines.locate(atom.End)
		preLen := lines.lineLen(preLine)
		postLen := lines.lineLen(postLine)

		switch {
		case preCh == 0 && postCh == postLen:
			// Whole lines: gutter only.
			for l := preLine; l <= postLine; l++ {
				if lines.lineLen(l) > 0 {
					setGutter(l, atom)
				}
			}
		case postLine > preLine:
			start, end := preLine, postLine

			switch {
			case preCh == preLen:
				// Starts at a line end, right before the newline.
				start++
			case preCh != 0:
				setGutter(preLine, atom)
				markers = append(markers, InlineSpan{Line: preLine, FromCh: preCh, ToCh: preLen, Author: atom.Author})
				start++
			}

			switch {
			case postCh == 0:
				end--
			case postCh != postLen:
				setGutter(postLine, atom)
				markers = append(markers, InlineSpan{Line: postLine, FromCh: 0, ToCh: postCh, Author: atom.Author})
				end--
			}

			for l := start; l <= end; l++ {
				if lines.lineLen(l) > 0 {
					setGutter(l, atom)
				}
			}
		default:
			// Partial single line.
			setGutter(preLine, atom)

			if preCh != postCh {
				markers = append(markers, InlineSpan{Line: preLine, FromCh: preCh, ToCh: postCh, Author: atom.Author})
			}
		}
	}

	// Inline spans matching their line's final gutter author are redundant.
	inline := make([]InlineSpan, 0, len(markers))

	for _, m := range markers {
		if g, ok := gutter[m.Line]; !ok || g.Author != m.Author {
			inline = append(inline, m)
		}
	}

	sort.Slice(inline, func(i, j int) bool {
		a, b := inline[i], inline[j]

		if a.Line != b.Line {
			return a.Line < b.Line
		}

		if a.FromCh != b.FromCh {
			return a.FromCh < b.FromCh
		}

		if a.ToCh != b.ToCh {
			return a.ToCh < b.ToCh
		}

		return a.Author < b.Author
	})

	return Assignment{Gutter: gutter, Inline: inline}
}

// lineIndex resolves rune offsets to (line, column) positions.
type lineIndex struct {
	starts  []int // rune offset of each line start
	lengths []int // rune length of each line, newline excluded
	total   int   // rune length of the document
}

func newLineIndex(doc string) *lineIndex {
	parts := strings.Split(doc, "\n")
	idx := &lineIndex{
		starts:  make([]int, len(parts)),
		lengths: make([]int, len(parts)),
	}

	offset := 0

	for i, p := range parts {
		n := len([]rune(p))
		idx.starts[i] = offset
		idx.lengths[i] = n
		offset += n + 1
	}

	idx.total = offset - 1

	return idx
}

func (l *lineIndex) lineLen(line int) int {
	if line < 0 || line >= len(l.lengths) {
		return 0
	}

	return l.lengths[line]
}

// locate maps a rune offset to its line and column. An offset pointing at a
// newline resolves to the end of the line before it.
func (l *lineIndex) locate(pos int) (line, ch int) {
	line = sort.Search(len(l.starts), func(i int) bool {
		return l.starts[i]+l.lengths[i] >= pos
	})

	if line >= len(l.starts) {
		line = len(l.starts) - 1
	}

	return line, pos - l.starts[line]
}

func (l *lineIndex) clip(a Atom) Atom {
	if a.Start < 0 {
		a.Start = 0
	}

	if a.End > l.total {
		a.End = l.total
	}

	return a
}
