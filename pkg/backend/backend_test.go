package backend_test

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/clayne/resym/pkg/backend"
	"github.com/clayne/resym/pkg/diffing"
	"github.com/clayne/resym/pkg/pdb"
	"github.com/clayne/resym/pkg/pdb/codeview"
	"github.com/clayne/resym/pkg/pdb/pdbtest"
	"github.com/clayne/resym/pkg/reconstruct"
)

const tInt4 = codeview.TypeIndex(codeview.T_INT4)

func writePDB(t *testing.T, name string, build func(*pdbtest.Builder)) string {
	t.Helper()
	b := pdbtest.NewBuilder()
	build(b)
	path := filepath.Join(t.TempDir(), name)
	if err := b.WritePDB(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func basicPDB(t *testing.T) string {
	return writePDB(t, "basic.pdb", func(b *pdbtest.Builder) {
		foo := b.AddFieldList(pdbtest.Member("a", tInt4, 0, codeview.AccessPublic))
		b.AddStruct("Foo", foo, 4)
		bar := b.AddFieldList(pdbtest.Member("b", tInt4, 0, codeview.AccessPublic))
		b.AddStruct("foobar", bar, 4)
		baz := b.AddFieldList(pdbtest.Member("c", tInt4, 0, codeview.AccessPublic))
		b.AddStruct("Bar", baz, 4)
	})
}

// wait pumps the result queue until one arrives, polling the way a
// frontend would.
func wait(t *testing.T, b *backend.Backend) backend.Result {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if res, ok := b.PollResult(); ok {
			return res
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("no result within the deadline")
	return nil
}

func loadSlot(t *testing.T, b *backend.Backend, slot backend.PDBSlot, path string) {
	t.Helper()
	if err := b.Send(backend.LoadPDB{Slot: slot, Path: path}); err != nil {
		t.Fatal(err)
	}
	res := wait(t, b).(backend.LoadPDBResult)
	if res.Err != nil {
		t.Fatalf("load %s: %v", path, res.Err)
	}
	if res.Slot != slot {
		t.Fatalf("load result slot = %d, want %d", res.Slot, slot)
	}
}

func TestLoadAndFilter(t *testing.T) {
	b := backend.NewWithWorkers(2)
	defer b.Close()
	loadSlot(t, b, backend.SlotMain, basicPDB(t))

	send := func(filter string, ci, re bool) []pdb.TypeEntry {
		t.Helper()
		if err := b.Send(backend.UpdateTypeFilter{
			Slot:            backend.SlotMain,
			Filter:          filter,
			CaseInsensitive: ci,
			UseRegex:        re,
		}); err != nil {
			t.Fatal(err)
		}
		res := wait(t, b).(backend.FilteredTypesResult)
		if res.Err != nil {
			t.Fatal(res.Err)
		}
		return res.Types
	}

	names := func(entries []pdb.TypeEntry) []string {
		var out []string
		for _, e := range entries {
			out = append(out, e.Name)
		}
		return out
	}

	if got := names(send("", false, false)); len(got) != 3 {
		t.Errorf("empty filter returned %v", got)
	}
	if got := names(send("foo", false, false)); len(got) != 1 || got[0] != "foobar" {
		t.Errorf(`filter "foo" returned %v`, got)
	}
	if got := names(send("foo", true, false)); len(got) != 2 {
		t.Errorf(`case-insensitive "foo" returned %v`, got)
	}
	if got := names(send("^Bar$", false, true)); len(got) != 1 || got[0] != "Bar" {
		t.Errorf(`regex "^Bar$" returned %v`, got)
	}
	if err := b.Send(backend.UpdateTypeFilter{
		Slot:     backend.SlotMain,
		Filter:   "(",
		UseRegex: true,
	}); err != nil {
		t.Fatal(err)
	}
	if res := wait(t, b).(backend.FilteredTypesResult); res.Err == nil {
		t.Error("invalid regex did not fail")
	}
}

func TestFilterMergedDeduplicates(t *testing.T) {
	pathA := writePDB(t, "a.pdb", func(b *pdbtest.Builder) {
		shared := b.AddFieldList(pdbtest.Member("a", tInt4, 0, codeview.AccessPublic))
		b.AddStruct("Shared", shared, 4)
		only := b.AddFieldList(pdbtest.Member("x", tInt4, 0, codeview.AccessPublic))
		b.AddStruct("OnlyA", only, 4)
	})
	pathB := writePDB(t, "b.pdb", func(b *pdbtest.Builder) {
		shared := b.AddFieldList(pdbtest.Member("a", tInt4, 0, codeview.AccessPublic))
		b.AddStruct("Shared", shared, 4)
		only := b.AddFieldList(pdbtest.Member("y", tInt4, 0, codeview.AccessPublic))
		b.AddStruct("OnlyB", only, 4)
	})

	b := backend.NewWithWorkers(2)
	defer b.Close()
	loadSlot(t, b, backend.SlotMain, pathA)
	loadSlot(t, b, backend.SlotDiff, pathB)

	if err := b.Send(backend.UpdateTypeFilterMerged{
		Slots: []backend.PDBSlot{backend.SlotMain, backend.SlotDiff},
	}); err != nil {
		t.Fatal(err)
	}
	res := wait(t, b).(backend.FilteredTypesResult)
	if res.Err != nil {
		t.Fatal(res.Err)
	}

	seen := make(map[string]int)
	for _, e := range res.Types {
		seen[e.Name]++
	}
	if len(res.Types) != 3 {
		t.Fatalf("merged list = %+v, want 3 entries", res.Types)
	}
	if seen["Shared"] != 1 || seen["OnlyA"] != 1 || seen["OnlyB"] != 1 {
		t.Errorf("merged list = %+v", res.Types)
	}
}

func TestReconstructCommands(t *testing.T) {
	b := backend.NewWithWorkers(2)
	defer b.Close()
	loadSlot(t, b, backend.SlotMain, basicPDB(t))

	opts := reconstruct.Options{Flavor: reconstruct.FlavorPortable}
	if err := b.Send(backend.ReconstructTypeByName{
		Slot:    backend.SlotMain,
		Name:    "Foo",
		Options: opts,
	}); err != nil {
		t.Fatal(err)
	}
	res := wait(t, b).(backend.ReconstructTypeResult)
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if !strings.HasPrefix(res.Text, "struct Foo") {
		t.Errorf("unexpected text:\n%s", res.Text)
	}

	if err := b.Send(backend.ReconstructTypeByName{
		Slot:    backend.SlotMain,
		Name:    "DoesNotExist",
		Options: opts,
	}); err != nil {
		t.Fatal(err)
	}
	res = wait(t, b).(backend.ReconstructTypeResult)
	if !errors.Is(res.Err, pdb.ErrTypeNotFound) {
		t.Errorf("missing type: err = %v", res.Err)
	}
}

func TestDiffTypeByName(t *testing.T) {
	oldPath := writePDB(t, "old.pdb", func(b *pdbtest.Builder) {
		fl := b.AddFieldList(pdbtest.Member("a", tInt4, 0, codeview.AccessPublic))
		b.AddStruct("S", fl, 4)
	})
	newPath := writePDB(t, "new.pdb", func(b *pdbtest.Builder) {
		fl := b.AddFieldList(
			pdbtest.Member("a", tInt4, 0, codeview.AccessPublic),
			pdbtest.Member("b", tInt4, 4, codeview.AccessPublic),
		)
		b.AddStruct("S", fl, 8)
	})

	b := backend.NewWithWorkers(2)
	defer b.Close()
	loadSlot(t, b, backend.SlotMain, oldPath)
	loadSlot(t, b, backend.SlotDiff, newPath)

	if err := b.Send(backend.DiffTypeByName{
		From: backend.SlotMain,
		To:   backend.SlotDiff,
		Name: "S",
		Options: reconstruct.Options{
			Flavor: reconstruct.FlavorPortable,
		},
	}); err != nil {
		t.Fatal(err)
	}
	res := wait(t, b).(backend.DiffTypeResult)
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if !res.Diff.HasChanges() {
		t.Fatalf("no changes reported:\n%s", res.Diff.Text)
	}

	var inserted []diffing.Change
	for _, c := range res.Diff.Changes {
		if c.Kind == diffing.Inserted {
			inserted = append(inserted, c)
		}
	}
	if len(inserted) == 0 {
		t.Fatalf("no inserted lines: %+v", res.Diff.Changes)
	}
	found := false
	for _, c := range inserted {
		if strings.Contains(c.NewText, "int32_t b;") {
			found = true
		}
	}
	if !found {
		t.Errorf("added member not in insertions: %+v", inserted)
	}

	// A name missing from one slot fails the whole diff.
	if err := b.Send(backend.DiffTypeByName{
		From: backend.SlotMain,
		To:   backend.SlotDiff,
		Name: "Missing",
	}); err != nil {
		t.Fatal(err)
	}
	res = wait(t, b).(backend.DiffTypeResult)
	if !errors.Is(res.Err, pdb.ErrTypeNotFound) {
		t.Errorf("missing type: err = %v", res.Err)
	}
}

func TestDiffIdenticalContainers(t *testing.T) {
	build := func(b *pdbtest.Builder) {
		fl := b.AddFieldList(pdbtest.Member("a", tInt4, 0, codeview.AccessPublic))
		b.AddStruct("S", fl, 4)
	}
	pathA := writePDB(t, "a.pdb", build)
	pathB := writePDB(t, "b.pdb", build)

	b := backend.NewWithWorkers(2)
	defer b.Close()
	loadSlot(t, b, backend.SlotMain, pathA)
	loadSlot(t, b, backend.SlotDiff, pathB)

	if err := b.Send(backend.DiffTypeByName{
		From: backend.SlotMain,
		To:   backend.SlotDiff,
		Name: "S",
		Options: reconstruct.Options{
			Flavor: reconstruct.FlavorPortable,
		},
	}); err != nil {
		t.Fatal(err)
	}
	res := wait(t, b).(backend.DiffTypeResult)
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if res.Diff.HasChanges() {
		t.Errorf("identical types reported changes:\n%s", res.Diff.Text)
	}
}

func TestUnloadAndSlotErrors(t *testing.T) {
	b := backend.NewWithWorkers(1)
	defer b.Close()
	loadSlot(t, b, backend.SlotMain, basicPDB(t))

	if err := b.Send(backend.UnloadPDB{Slot: backend.SlotMain}); err != nil {
		t.Fatal(err)
	}
	res := wait(t, b).(backend.UnloadPDBResult)
	if res.Err != nil {
		t.Fatal(res.Err)
	}

	// The slot is empty now: queries fail, a second unload fails.
	if err := b.Send(backend.UpdateTypeFilter{Slot: backend.SlotMain}); err != nil {
		t.Fatal(err)
	}
	if filtered := wait(t, b).(backend.FilteredTypesResult); !errors.Is(filtered.Err, backend.ErrSlotEmpty) {
		t.Errorf("filter on empty slot: err = %v", filtered.Err)
	}
	if err := b.Send(backend.UnloadPDB{Slot: backend.SlotMain}); err != nil {
		t.Fatal(err)
	}
	if unload := wait(t, b).(backend.UnloadPDBResult); !errors.Is(unload.Err, backend.ErrSlotEmpty) {
		t.Errorf("double unload: err = %v", unload.Err)
	}
}

func TestLoadFailureKeepsSlotUsable(t *testing.T) {
	b := backend.NewWithWorkers(1)
	defer b.Close()
	loadSlot(t, b, backend.SlotMain, basicPDB(t))

	// A failed reload must leave the previous content intact.
	if err := b.Send(backend.LoadPDB{Slot: backend.SlotMain, Path: "/does/not/exist.pdb"}); err != nil {
		t.Fatal(err)
	}
	res := wait(t, b).(backend.LoadPDBResult)
	if res.Err == nil {
		t.Fatal("load of a missing file succeeded")
	}

	if err := b.Send(backend.UpdateTypeFilter{Slot: backend.SlotMain}); err != nil {
		t.Fatal(err)
	}
	filtered := wait(t, b).(backend.FilteredTypesResult)
	if filtered.Err != nil {
		t.Fatal(filtered.Err)
	}
	if len(filtered.Types) == 0 {
		t.Error("slot lost its content after a failed reload")
	}
}

func TestSendAfterClose(t *testing.T) {
	b := backend.NewWithWorkers(1)
	b.Close()
	if err := b.Send(backend.UnloadPDB{Slot: backend.SlotMain}); !errors.Is(err, backend.ErrClosed) {
		t.Errorf("send after close: err = %v", err)
	}
	// Close is idempotent.
	b.Close()
}

func TestPollResultNonBlocking(t *testing.T) {
	b := backend.NewWithWorkers(1)
	defer b.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, ok := b.PollResult(); ok {
			t.Error("poll on an idle backend returned a result")
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("PollResult blocked")
	}
}
