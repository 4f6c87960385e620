// Package pdb loads Microsoft PDB debug files and indexes their type
// stream for reconstruction: it tracks every complete aggregate and
// enum definition and resolves forward declarations to their matching
// complete type.
package pdb

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/clayne/resym/pkg/pdb/codeview"
	"github.com/clayne/resym/pkg/pdb/msf"
)

// Fixed stream indices of a PDB container.
const (
	streamPDBInfo = 1
	streamTPI     = 2
	streamDBI     = 3
)

// TypeEntry is one complete type in declaration order: its display
// name (synthetic for anonymous tags) and type index.
type TypeEntry struct {
	Name  string
	Index codeview.TypeIndex
}

// File is a loaded PDB with its type stream fully indexed. All maps
// are immutable after Load returns; concurrent readers need no
// locking.
type File struct {
	Path string

	machine uint16
	info    *infoStream

	types *codeview.TypeStream

	completeTypes []TypeEntry
	nameToIndex   map[string]codeview.TypeIndex
	uniqueToIndex map[string]codeview.TypeIndex
	forwarders    map[codeview.TypeIndex]codeview.TypeIndex
}

// Load opens a PDB file, reads the streams it needs, and builds the
// type index. The file handle is released before Load returns; the
// returned File is a self-contained in-memory index.
func Load(path string) (*File, error) {
	container, err := msf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", path, err)
	}
	defer container.Close()

	f := &File{
		Path:          path,
		nameToIndex:   make(map[string]codeview.TypeIndex),
		uniqueToIndex: make(map[string]codeview.TypeIndex),
		forwarders:    make(map[codeview.TypeIndex]codeview.TypeIndex),
	}

	// The info and DBI streams only feed the reconstruction header;
	// a PDB missing them is still loadable.
	if stream, err := container.Stream(streamPDBInfo); err == nil && stream.Size() > 0 {
		f.info, _ = readInfoStream(stream.Reader())
	}
	if stream, err := container.Stream(streamDBI); err == nil && stream.Size() > 0 {
		if data, err := stream.ReadAll(); err == nil {
			if h, err := readDBIHeader(data); err == nil {
				f.machine = h.Machine
			}
		}
	}

	stream, err := container.Stream(streamTPI)
	if err != nil || stream.Size() == 0 {
		return nil, fmt.Errorf("%q: %w", path, ErrNoTypeStream)
	}
	data, err := stream.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read type stream of %q: %w", path, err)
	}
	f.types, err = codeview.ParseTypeStream(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse type stream of %q: %w", path, err)
	}

	f.buildIndex()
	return f, nil
}

// buildIndex performs the single pass over every type record, then
// resolves forward declarations against the now-immutable name lookup.
func (f *File) buildIndex() {
	start := time.Now()

	type pendingForwarder struct {
		name  string
		index codeview.TypeIndex
	}
	var pending []pendingForwarder

	for i := range f.types.Records {
		rec := &f.types.Records[i]
		if !codeview.IsTagKind(rec.Kind) {
			continue
		}
		tag, err := codeview.ParseTag(rec)
		if err != nil {
			// A single malformed record never aborts the load.
			slog.Debug("skipping malformed type record",
				"index", rec.Index, "error", err)
			continue
		}

		if tag.Properties.ForwardReference() {
			pending = append(pending, pendingForwarder{tag.Name, rec.Index})
			continue
		}

		f.nameToIndex[tag.Name] = rec.Index
		if tag.UniqueName != "" {
			f.uniqueToIndex[tag.UniqueName] = rec.Index
		}

		display := DisplayName(tag)
		if display != tag.Name {
			f.nameToIndex[display] = rec.Index
		}
		f.completeTypes = append(f.completeTypes, TypeEntry{display, rec.Index})
	}
	slog.Debug("PDB type pass done",
		"path", f.Path, "types", len(f.completeTypes), "elapsed", time.Since(start))

	// Resolve forwarders concurrently; the pass only reads
	// nameToIndex, which no longer changes. Each worker fills a
	// private map, merged after the barrier.
	fwdStart := time.Now()
	workers := min(runtime.NumCPU(), max(len(pending), 1))
	chunk := (len(pending) + workers - 1) / workers
	resolved := make([]map[codeview.TypeIndex]codeview.TypeIndex, workers)

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := min(lo+chunk, len(pending))
		if lo >= hi {
			continue
		}
		part := make(map[codeview.TypeIndex]codeview.TypeIndex)
		resolved[w] = part
		g.Go(func() error {
			for _, fwd := range pending[lo:hi] {
				if complete, ok := f.nameToIndex[fwd.name]; ok {
					part[fwd.index] = complete
				} else {
					slog.Debug("no complete definition for forward reference",
						"name", fwd.name, "index", fwd.index)
				}
			}
			return nil
		})
	}
	g.Wait()

	for _, part := range resolved {
		for fwd, complete := range part {
			f.forwarders[fwd] = complete
		}
	}
	slog.Debug("forwarder resolution done",
		"path", f.Path, "forwarders", len(f.forwarders), "elapsed", time.Since(fwdStart))
}

// isUnnamedTag reports whether a decoded tag name denotes an anonymous
// type.
func isUnnamedTag(name string) bool {
	return name == "" ||
		strings.Contains(name, "<unnamed-tag>") ||
		strings.Contains(name, "<anonymous-tag>") ||
		strings.Contains(name, "<unnamed-type-")
}

// DisplayName returns the name a tag is listed and reconstructed
// under. Anonymous tags get a stable synthetic name tied to their
// index.
func DisplayName(tag *codeview.Tag) string {
	if isUnnamedTag(tag.Name) {
		return fmt.Sprintf("_unnamed_%d", uint32(tag.Index))
	}
	return tag.Name
}

// CompleteTypes returns every complete aggregate/enum definition in
// declaration order. The returned slice must not be modified.
func (f *File) CompleteTypes() []TypeEntry { return f.completeTypes }

// TypeCount returns the number of records in the type stream.
func (f *File) TypeCount() int { return f.types.Count() }

// TypeRecord returns the raw record at the given index, or nil for
// simple or unknown indices.
func (f *File) TypeRecord(index codeview.TypeIndex) *codeview.Record {
	return f.types.Record(index)
}

// ResolveForwarder maps a forward-declaration index to its complete
// definition when one exists; otherwise the index is returned
// unchanged and the caller must treat it as incomplete.
func (f *File) ResolveForwarder(index codeview.TypeIndex) codeview.TypeIndex {
	if complete, ok := f.forwarders[index]; ok {
		return complete
	}
	return index
}

// FindTypeByName looks up a complete type by display name or by its
// decorated unique name.
func (f *File) FindTypeByName(name string) (codeview.TypeIndex, error) {
	if index, ok := f.nameToIndex[name]; ok {
		return index, nil
	}
	if index, ok := f.uniqueToIndex[name]; ok {
		return index, nil
	}
	return 0, fmt.Errorf("%q: %w", name, ErrTypeNotFound)
}

// MachineName returns the display name of the image architecture the
// PDB was produced for.
func (f *File) MachineName() string { return MachineName(f.machine) }

// GUID returns the PDB's GUID in registry format, or "" when the info
// stream was absent.
func (f *File) GUID() string {
	if f.info == nil {
		return ""
	}
	return f.info.guidString()
}

// Age returns the PDB age counter, or 0 when the info stream was
// absent.
func (f *File) Age() uint32 {
	if f.info == nil {
		return 0
	}
	return f.info.Age
}

// Version returns the PDB info stream version, or 0 when absent.
func (f *File) Version() uint32 {
	if f.info == nil {
		return 0
	}
	return f.info.Version
}
