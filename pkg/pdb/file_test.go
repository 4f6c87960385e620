package pdb_test

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/clayne/resym/pkg/pdb"
	"github.com/clayne/resym/pkg/pdb/codeview"
	"github.com/clayne/resym/pkg/pdb/pdbtest"
)

const tInt4 = codeview.TypeIndex(codeview.T_INT4)

func loadBuilder(t *testing.T, b *pdbtest.Builder) *pdb.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.pdb")
	if err := b.WritePDB(path); err != nil {
		t.Fatal(err)
	}
	f, err := pdb.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestLoadIndexesCompleteTypes(t *testing.T) {
	b := pdbtest.NewBuilder()
	pointFields := b.AddFieldList(
		pdbtest.Member("x", tInt4, 0, codeview.AccessPublic),
		pdbtest.Member("y", tInt4, 4, codeview.AccessPublic),
	)
	point := b.AddStruct("Point", pointFields, 8)
	colorFields := b.AddFieldList(
		pdbtest.Enumerator("Red", 0),
		pdbtest.Enumerator("Green", 1),
	)
	b.AddEnum("Color", tInt4, colorFields)

	f := loadBuilder(t, b)

	types := f.CompleteTypes()
	if len(types) != 2 {
		t.Fatalf("got %d complete types, want 2: %+v", len(types), types)
	}
	if types[0].Name != "Point" || types[1].Name != "Color" {
		t.Errorf("type names = %q, %q", types[0].Name, types[1].Name)
	}

	index, err := f.FindTypeByName("Point")
	if err != nil {
		t.Fatal(err)
	}
	if index != point {
		t.Errorf("FindTypeByName(Point) = 0x%x, want 0x%x", uint32(index), uint32(point))
	}

	if _, err := f.FindTypeByName("Missing"); !errors.Is(err, pdb.ErrTypeNotFound) {
		t.Errorf("lookup of a missing type: err = %v", err)
	}
}

func TestForwardReferenceResolution(t *testing.T) {
	b := pdbtest.NewBuilder()
	fwd := b.AddStructForwardRef("Node")
	fields := b.AddFieldList(pdbtest.Member("value", tInt4, 0, codeview.AccessPublic))
	complete := b.AddStruct("Node", fields, 4)

	f := loadBuilder(t, b)

	if got := f.ResolveForwarder(fwd); got != complete {
		t.Errorf("ResolveForwarder(0x%x) = 0x%x, want 0x%x",
			uint32(fwd), uint32(got), uint32(complete))
	}
	// Complete types and unknown indices resolve to themselves.
	if got := f.ResolveForwarder(complete); got != complete {
		t.Errorf("complete type resolved to 0x%x", uint32(got))
	}
	if got := f.ResolveForwarder(0x9999); got != 0x9999 {
		t.Errorf("unknown index resolved to 0x%x", uint32(got))
	}

	// The forwarder must not be listed as a complete type.
	for _, entry := range f.CompleteTypes() {
		if entry.Index == fwd {
			t.Errorf("forward reference 0x%x listed as complete", uint32(fwd))
		}
	}
}

func TestUnresolvedForwarderKeepsIndex(t *testing.T) {
	b := pdbtest.NewBuilder()
	orphan := b.AddStructForwardRef("NeverDefined")
	fields := b.AddFieldList(pdbtest.Member("a", tInt4, 0, codeview.AccessPublic))
	b.AddStruct("Defined", fields, 4)

	f := loadBuilder(t, b)

	if got := f.ResolveForwarder(orphan); got != orphan {
		t.Errorf("orphan forwarder resolved to 0x%x", uint32(got))
	}
}

func TestAnonymousTagNaming(t *testing.T) {
	b := pdbtest.NewBuilder()
	fields := b.AddFieldList(pdbtest.Member("raw", tInt4, 0, codeview.AccessPublic))
	anon := b.AddUnion("<unnamed-tag>", fields, 4)

	f := loadBuilder(t, b)

	wantName := fmt.Sprintf("_unnamed_%d", uint32(anon))
	types := f.CompleteTypes()
	if len(types) != 1 || types[0].Name != wantName {
		t.Fatalf("complete types = %+v, want one entry named %q", types, wantName)
	}
	index, err := f.FindTypeByName(wantName)
	if err != nil || index != anon {
		t.Errorf("FindTypeByName(%q) = 0x%x, %v", wantName, uint32(index), err)
	}
}

func TestLoadReadsContainerMetadata(t *testing.T) {
	b := pdbtest.NewBuilder()
	fields := b.AddFieldList(pdbtest.Member("a", tInt4, 0, codeview.AccessPublic))
	b.AddStruct("S", fields, 4)
	b.SetMachine(pdb.MachineARM64)

	f := loadBuilder(t, b)

	if got := f.MachineName(); got != "ARM64" {
		t.Errorf("machine = %q, want ARM64", got)
	}
	if f.GUID() == "" {
		t.Error("GUID missing")
	}
	if f.Age() != 1 {
		t.Errorf("age = %d, want 1", f.Age())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := pdb.Load(filepath.Join(t.TempDir(), "nope.pdb")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
