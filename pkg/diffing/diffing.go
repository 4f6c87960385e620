// Package diffing computes line-oriented differences between two
// reconstructed type definitions.
package diffing

import "strings"

// ChangeKind classifies one entry of a diff.
type ChangeKind uint8

const (
	// Unchanged lines appear in both texts.
	Unchanged ChangeKind = iota
	// Inserted lines exist only in the new text.
	Inserted
	// Removed lines exist only in the old text.
	Removed
	// Modified pairs a removed line with the inserted line that
	// replaced it.
	Modified
)

func (k ChangeKind) String() string {
	switch k {
	case Unchanged:
		return "unchanged"
	case Inserted:
		return "inserted"
	case Removed:
		return "removed"
	case Modified:
		return "modified"
	default:
		return "unknown"
	}
}

// Change is one aligned entry of a diff. Line numbers are 1-based; a
// zero line number means the entry has no counterpart on that side.
// Modified entries carry both sides.
type Change struct {
	Kind    ChangeKind
	OldLine int
	NewLine int
	OldText string
	NewText string
}

// Diff is the result of comparing two texts: a merged rendering that
// interleaves both sides, plus one change entry per aligned line.
type Diff struct {
	Text    string
	Changes []Change
}

// HasChanges reports whether the two texts differed at all.
func (d Diff) HasChanges() bool {
	for _, c := range d.Changes {
		if c.Kind != Unchanged {
			return true
		}
	}
	return false
}

// MergedLine is one line of the merged rendering with its origin. A
// Modified change contributes two merged lines, the old one first.
type MergedLine struct {
	Kind ChangeKind
	Text string
}

// DiffText compares two texts line by line. Identical inputs produce
// a Diff whose Text equals the input and whose Changes holds only
// Unchanged entries.
func DiffText(oldText, newText string) Diff {
	changes := Changes(oldText, newText)

	merged := mergedLines(changes)
	var b strings.Builder
	for i, line := range merged {
		b.WriteString(line.Text)
		// The final newline is kept only when one of the inputs had
		// one, so diff(T, T).Text == T exactly.
		if i < len(merged)-1 ||
			strings.HasSuffix(oldText, "\n") || strings.HasSuffix(newText, "\n") {
			b.WriteByte('\n')
		}
	}
	return Diff{Text: b.String(), Changes: changes}
}

// Changes computes the aligned change entries between two texts.
// Adjacent removed and inserted runs are paired index by index into
// Modified entries; leftovers stay pure removals or insertions.
func Changes(oldText, newText string) []Change {
	oldLines := splitLines(oldText)
	newLines := splitLines(newText)
	edits := shortestEdit(oldLines, newLines)

	var changes []Change
	flush := func(removed, inserted []Change) {
		n := min(len(removed), len(inserted))
		for i := 0; i < n; i++ {
			changes = append(changes, Change{
				Kind:    Modified,
				OldLine: removed[i].OldLine,
				NewLine: inserted[i].NewLine,
				OldText: removed[i].OldText,
				NewText: inserted[i].NewText,
			})
		}
		changes = append(changes, removed[n:]...)
		changes = append(changes, inserted[n:]...)
	}

	var removed, inserted []Change
	for _, e := range edits {
		switch e.kind {
		case editKeep:
			flush(removed, inserted)
			removed, inserted = nil, nil
			changes = append(changes, Change{
				Kind:    Unchanged,
				OldLine: e.oldIndex + 1,
				NewLine: e.newIndex + 1,
				OldText: oldLines[e.oldIndex],
				NewText: newLines[e.newIndex],
			})
		case editRemove:
			removed = append(removed, Change{
				Kind:    Removed,
				OldLine: e.oldIndex + 1,
				OldText: oldLines[e.oldIndex],
			})
		case editInsert:
			inserted = append(inserted, Change{
				Kind:    Inserted,
				NewLine: e.newIndex + 1,
				NewText: newLines[e.newIndex],
			})
		}
	}
	flush(removed, inserted)
	return changes
}

// MergedLines returns the merged rendering with per-line origin, for
// callers that colorize output.
func MergedLines(oldText, newText string) []MergedLine {
	return mergedLines(Changes(oldText, newText))
}

func mergedLines(changes []Change) []MergedLine {
	lines := make([]MergedLine, 0, len(changes))
	for _, c := range changes {
		switch c.Kind {
		case Unchanged:
			lines = append(lines, MergedLine{Unchanged, c.OldText})
		case Removed:
			lines = append(lines, MergedLine{Removed, c.OldText})
		case Inserted:
			lines = append(lines, MergedLine{Inserted, c.NewText})
		case Modified:
			lines = append(lines,
				MergedLine{Removed, c.OldText},
				MergedLine{Inserted, c.NewText})
		}
	}
	return lines
}

func splitLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

type editKind uint8

const (
	editKeep editKind = iota
	editRemove
	editInsert
)

type edit struct {
	kind     editKind
	oldIndex int
	newIndex int
}

// shortestEdit runs the Myers O(ND) greedy algorithm and backtracks
// the trace into an edit script. Removals precede insertions at each
// divergence point.
func shortestEdit(oldLines, newLines []string) []edit {
	n, m := len(oldLines), len(newLines)
	maxDepth := n + m
	if maxDepth == 0 {
		return nil
	}

	// v[k+offset] holds the furthest x reached on diagonal k.
	offset := maxDepth
	v := make([]int, 2*maxDepth+1)
	var trace [][]int

outer:
	for d := 0; d <= maxDepth; d++ {
		snapshot := make([]int, len(v))
		copy(snapshot, v)
		trace = append(trace, snapshot)

		for k := -d; k <= d; k += 2 {
			var x int
			if k == -d || (k != d && v[k-1+offset] < v[k+1+offset]) {
				x = v[k+1+offset]
			} else {
				x = v[k-1+offset] + 1
			}
			y := x - k
			for x < n && y < m && oldLines[x] == newLines[y] {
				x++
				y++
			}
			v[k+offset] = x
			if x >= n && y >= m {
				break outer
			}
		}
	}

	// Backtrack from (n, m) through the saved traces.
	var edits []edit
	x, y := n, m
	for d := len(trace) - 1; d > 0; d-- {
		// trace[d] is the state before pass d, which is where pass d's
		// moves start from.
		prev := trace[d]
		k := x - y

		var prevK int
		if k == -d || (k != d && prev[k-1+offset] < prev[k+1+offset]) {
			prevK = k + 1
		} else {
			prevK = k - 1
		}
		prevX := prev[prevK+offset]
		prevY := prevX - prevK

		for x > prevX && y > prevY {
			x--
			y--
			edits = append(edits, edit{editKeep, x, y})
		}
		if x > prevX {
			x--
			edits = append(edits, edit{editRemove, x, 0})
		} else if y > prevY {
			y--
			edits = append(edits, edit{editInsert, 0, y})
		}
	}
	for x > 0 && y > 0 {
		x--
		y--
		edits = append(edits, edit{editKeep, x, y})
	}

	// Edits were collected back to front.
	for i, j := 0, len(edits)-1; i < j; i, j = i+1, j-1 {
		edits[i], edits[j] = edits[j], edits[i]
	}
	return edits
}
