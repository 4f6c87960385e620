package backend

import (
	"github.com/clayne/resym/pkg/diffing"
	"github.com/clayne/resym/pkg/pdb"
)

// Result is the outcome of one command. Failed commands still produce
// a result, with Err set.
type Result interface {
	isResult()
}

// LoadPDBResult reports a completed LoadPDB.
type LoadPDBResult struct {
	Slot PDBSlot
	Path string
	Err  error
}

// UnloadPDBResult reports a completed UnloadPDB.
type UnloadPDBResult struct {
	Slot PDBSlot
	Err  error
}

// FilteredTypesResult carries the type list of an UpdateTypeFilter or
// UpdateTypeFilterMerged command.
type FilteredTypesResult struct {
	Slots []PDBSlot
	Types []pdb.TypeEntry
	Err   error
}

// ReconstructTypeResult carries reconstructed type text.
type ReconstructTypeResult struct {
	Slot PDBSlot
	Text string
	Err  error
}

// DiffTypeResult carries the diff of one type across two slots.
type DiffTypeResult struct {
	Name string
	Diff diffing.Diff
	Err  error
}

func (LoadPDBResult) isResult()         {}
func (UnloadPDBResult) isResult()       {}
func (FilteredTypesResult) isResult()   {}
func (ReconstructTypeResult) isResult() {}
func (DiffTypeResult) isResult()        {}
