package backend

import (
	"github.com/clayne/resym/pkg/pdb/codeview"
	"github.com/clayne/resym/pkg/reconstruct"
)

// PDBSlot identifies one of the containers the backend can hold open
// at a time.
type PDBSlot uint8

const (
	// SlotMain holds the container being browsed.
	SlotMain PDBSlot = 0
	// SlotDiff holds the container compared against.
	SlotDiff PDBSlot = 1
)

// Command is a request submitted to the backend. Every command
// produces exactly one Result.
type Command interface {
	isCommand()
}

// LoadPDB opens the container at Path into a slot, replacing whatever
// the slot held.
type LoadPDB struct {
	Slot PDBSlot
	Path string
}

// UnloadPDB empties a slot.
type UnloadPDB struct {
	Slot PDBSlot
}

// UpdateTypeFilter lists the types of one slot matching a filter. The
// empty filter matches everything.
type UpdateTypeFilter struct {
	Slot            PDBSlot
	Filter          string
	CaseInsensitive bool
	UseRegex        bool
}

// UpdateTypeFilterMerged lists the union of matching types across
// several slots, deduplicated by name.
type UpdateTypeFilterMerged struct {
	Slots           []PDBSlot
	Filter          string
	CaseInsensitive bool
	UseRegex        bool
}

// ReconstructTypeByIndex reconstructs the type at a raw stream index.
type ReconstructTypeByIndex struct {
	Slot    PDBSlot
	Index   codeview.TypeIndex
	Options reconstruct.Options
}

// ReconstructTypeByName reconstructs a type looked up by name.
type ReconstructTypeByName struct {
	Slot    PDBSlot
	Name    string
	Options reconstruct.Options
}

// DiffTypeByName reconstructs the named type from both slots and
// diffs the From rendering against the To rendering.
type DiffTypeByName struct {
	From    PDBSlot
	To      PDBSlot
	Name    string
	Options reconstruct.Options
}

func (LoadPDB) isCommand()                {}
func (UnloadPDB) isCommand()              {}
func (UpdateTypeFilter) isCommand()       {}
func (UpdateTypeFilterMerged) isCommand() {}
func (ReconstructTypeByIndex) isCommand() {}
func (ReconstructTypeByName) isCommand()  {}
func (DiffTypeByName) isCommand()         {}
