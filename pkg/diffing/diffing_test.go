package diffing

import "testing"

func TestDiffIdenticalTexts(t *testing.T) {
	text := "struct Foo\n{\n  int a;\n};\n"
	d := DiffText(text, text)

	if d.Text != text {
		t.Fatalf("merged text = %q, want %q", d.Text, text)
	}
	if d.HasChanges() {
		t.Fatalf("identical texts reported changes: %+v", d.Changes)
	}
	for i, c := range d.Changes {
		if c.Kind != Unchanged {
			t.Errorf("change %d: kind = %v, want unchanged", i, c.Kind)
		}
		if c.OldLine != i+1 || c.NewLine != i+1 {
			t.Errorf("change %d: lines = (%d, %d), want (%d, %d)",
				i, c.OldLine, c.NewLine, i+1, i+1)
		}
	}
}

func TestDiffModifiedLine(t *testing.T) {
	d := DiffText("line1\nline2", "line1\nlineX")

	if len(d.Changes) != 2 {
		t.Fatalf("got %d changes, want 2: %+v", len(d.Changes), d.Changes)
	}

	first := d.Changes[0]
	if first.Kind != Unchanged || first.OldLine != 1 || first.NewLine != 1 {
		t.Errorf("first change = %+v, want unchanged line 1", first)
	}

	second := d.Changes[1]
	if second.Kind != Modified {
		t.Fatalf("second change kind = %v, want modified", second.Kind)
	}
	if second.OldLine != 2 || second.NewLine != 2 {
		t.Errorf("modified lines = (%d, %d), want (2, 2)", second.OldLine, second.NewLine)
	}
	if second.OldText != "line2" || second.NewText != "lineX" {
		t.Errorf("modified texts = (%q, %q)", second.OldText, second.NewText)
	}

	want := "line1\nline2\nlineX"
	if d.Text != want {
		t.Errorf("merged text = %q, want %q", d.Text, want)
	}
}

func TestDiffPreservesFinalNewlineState(t *testing.T) {
	// The round trip holds whether or not the text ends with a
	// newline.
	for _, text := range []string{"a", "a\n", "a\nb", "a\nb\n"} {
		if d := DiffText(text, text); d.Text != text {
			t.Errorf("DiffText(%q, %q).Text = %q", text, text, d.Text)
		}
	}
	if d := DiffText("a", "a\nb\n"); d.Text != "a\nb\n" {
		t.Errorf("merged text = %q, want %q", d.Text, "a\nb\n")
	}
}

func TestDiffInsertedLines(t *testing.T) {
	d := DiffText("a\nc", "a\nb\nc")

	var inserted []Change
	for _, c := range d.Changes {
		switch c.Kind {
		case Inserted:
			inserted = append(inserted, c)
		case Removed, Modified:
			t.Errorf("unexpected change: %+v", c)
		}
	}
	if len(inserted) != 1 {
		t.Fatalf("got %d insertions, want 1: %+v", len(inserted), d.Changes)
	}
	if inserted[0].NewText != "b" || inserted[0].NewLine != 2 {
		t.Errorf("insertion = %+v, want line 2 %q", inserted[0], "b")
	}
	if inserted[0].OldLine != 0 {
		t.Errorf("insertion has old line %d, want 0", inserted[0].OldLine)
	}
}

func TestDiffRemovedLines(t *testing.T) {
	d := DiffText("a\nb\nc", "a\nc")

	var removed []Change
	for _, c := range d.Changes {
		if c.Kind == Removed {
			removed = append(removed, c)
		}
	}
	if len(removed) != 1 {
		t.Fatalf("got %d removals, want 1: %+v", len(removed), d.Changes)
	}
	if removed[0].OldText != "b" || removed[0].OldLine != 2 {
		t.Errorf("removal = %+v, want line 2 %q", removed[0], "b")
	}
}

func TestDiffSymmetry(t *testing.T) {
	a := "one\ntwo\nthree\nfour"
	b := "one\n2\nthree\nfive\nsix"

	counts := func(changes []Change) (unchanged, inserted, removed, modified int) {
		for _, c := range changes {
			switch c.Kind {
			case Unchanged:
				unchanged++
			case Inserted:
				inserted++
			case Removed:
				removed++
			case Modified:
				modified++
			}
		}
		return
	}

	ab := DiffText(a, b)
	ba := DiffText(b, a)

	abU, abI, abR, abM := counts(ab.Changes)
	baU, baI, baR, baM := counts(ba.Changes)

	if abU != baU || abM != baM {
		t.Errorf("unchanged/modified counts differ: (%d, %d) vs (%d, %d)",
			abU, abM, baU, baM)
	}
	if abI != baR || abR != baI {
		t.Errorf("insert/remove counts not mirrored: +%d -%d vs +%d -%d",
			abI, abR, baI, baR)
	}
}

func TestDiffEmptyAgainstText(t *testing.T) {
	d := DiffText("", "a\nb")
	if len(d.Changes) != 2 {
		t.Fatalf("got %d changes, want 2", len(d.Changes))
	}
	for i, c := range d.Changes {
		if c.Kind != Inserted {
			t.Errorf("change %d: kind = %v, want inserted", i, c.Kind)
		}
	}
	if d.Text != "a\nb" {
		t.Errorf("merged text = %q", d.Text)
	}

	d = DiffText("", "")
	if len(d.Changes) != 0 || d.Text != "" {
		t.Errorf("empty diff = %q, %+v", d.Text, d.Changes)
	}
}

func TestMergedLinesMarkOrigin(t *testing.T) {
	lines := MergedLines("keep\nold", "keep\nnew")
	want := []MergedLine{
		{Unchanged, "keep"},
		{Removed, "old"},
		{Inserted, "new"},
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d merged lines, want %d: %+v", len(lines), len(want), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %+v, want %+v", i, lines[i], want[i])
		}
	}
}
