// Package backend executes container commands asynchronously. Callers
// submit Commands and poll for Results; a pool of workers services the
// queue so long-running loads and reconstructions never block the
// submitter.
package backend

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/clayne/resym/pkg/diffing"
	"github.com/clayne/resym/pkg/pdb"
	"github.com/clayne/resym/pkg/reconstruct"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("backend is closed")

// ErrSlotEmpty is carried by results for commands that addressed a
// slot with no container loaded.
var ErrSlotEmpty = errors.New("no PDB loaded in slot")

// Backend owns the loaded containers and the worker pool.
type Backend struct {
	commands *queue[Command]
	results  *queue[Result]
	workers  sync.WaitGroup

	mu     sync.RWMutex
	closed bool
	slots  map[PDBSlot]*pdb.File
}

// New creates a backend with one worker per CPU, minus one for the
// caller's thread.
func New() *Backend {
	return NewWithWorkers(max(1, runtime.NumCPU()-1))
}

// NewWithWorkers creates a backend with an explicit worker count.
func NewWithWorkers(workers int) *Backend {
	if workers < 1 {
		workers = 1
	}
	b := &Backend{
		commands: newQueue[Command](),
		results:  newQueue[Result](),
		slots:    make(map[PDBSlot]*pdb.File),
	}
	b.workers.Add(workers)
	for i := 0; i < workers; i++ {
		go b.work()
	}
	slog.Debug("backend started", "workers", workers)
	return b
}

// Send enqueues a command. It never blocks on command execution.
func (b *Backend) Send(cmd Command) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	b.commands.in <- cmd
	return nil
}

// PollResult returns the next available result without blocking. The
// second return is false when no result is ready.
func (b *Backend) PollResult() (Result, bool) {
	select {
	case res, ok := <-b.results.out:
		if !ok {
			return nil, false
		}
		return res, true
	default:
		return nil, false
	}
}

// WaitResult blocks until a result is available or the backend is
// closed and drained.
func (b *Backend) WaitResult() (Result, bool) {
	res, ok := <-b.results.out
	return res, ok
}

// Close stops accepting commands, waits for in-flight commands to
// finish, and closes the result stream.
func (b *Backend) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	close(b.commands.in)
	b.workers.Wait()
	close(b.results.in)
}

func (b *Backend) work() {
	defer b.workers.Done()
	for cmd := range b.commands.out {
		b.results.in <- b.execute(cmd)
	}
}

func (b *Backend) execute(cmd Command) Result {
	switch c := cmd.(type) {
	case LoadPDB:
		file, err := pdb.Load(c.Path)
		if err != nil {
			return LoadPDBResult{Slot: c.Slot, Path: c.Path, Err: err}
		}
		b.mu.Lock()
		b.slots[c.Slot] = file
		b.mu.Unlock()
		return LoadPDBResult{Slot: c.Slot, Path: c.Path}

	case UnloadPDB:
		// In-flight commands holding the file keep it alive; the slot
		// just stops handing it out.
		b.mu.Lock()
		_, ok := b.slots[c.Slot]
		delete(b.slots, c.Slot)
		b.mu.Unlock()
		if !ok {
			return UnloadPDBResult{Slot: c.Slot, Err: fmt.Errorf("slot %d: %w", c.Slot, ErrSlotEmpty)}
		}
		return UnloadPDBResult{Slot: c.Slot}

	case UpdateTypeFilter:
		file, err := b.slotFile(c.Slot)
		if err != nil {
			return FilteredTypesResult{Slots: []PDBSlot{c.Slot}, Err: err}
		}
		types, err := filterTypes(file, c.Filter, c.CaseInsensitive, c.UseRegex)
		return FilteredTypesResult{Slots: []PDBSlot{c.Slot}, Types: types, Err: err}

	case UpdateTypeFilterMerged:
		files := make([]*pdb.File, 0, len(c.Slots))
		for _, slot := range c.Slots {
			file, err := b.slotFile(slot)
			if err != nil {
				continue
			}
			files = append(files, file)
		}
		types, err := filterTypesMerged(files, c.Filter, c.CaseInsensitive, c.UseRegex)
		return FilteredTypesResult{Slots: c.Slots, Types: types, Err: err}

	case ReconstructTypeByIndex:
		file, err := b.slotFile(c.Slot)
		if err != nil {
			return ReconstructTypeResult{Slot: c.Slot, Err: err}
		}
		text, err := reconstruct.Reconstruct(file, c.Index, c.Options)
		return ReconstructTypeResult{Slot: c.Slot, Text: text, Err: err}

	case ReconstructTypeByName:
		file, err := b.slotFile(c.Slot)
		if err != nil {
			return ReconstructTypeResult{Slot: c.Slot, Err: err}
		}
		text, err := reconstruct.ReconstructByName(file, c.Name, c.Options)
		return ReconstructTypeResult{Slot: c.Slot, Text: text, Err: err}

	case DiffTypeByName:
		diff, err := b.diffTypeByName(c)
		return DiffTypeResult{Name: c.Name, Diff: diff, Err: err}

	default:
		return FilteredTypesResult{Err: fmt.Errorf("unknown command %T", cmd)}
	}
}

func (b *Backend) diffTypeByName(c DiffTypeByName) (diffing.Diff, error) {
	from, err := b.slotFile(c.From)
	if err != nil {
		return diffing.Diff{}, err
	}
	to, err := b.slotFile(c.To)
	if err != nil {
		return diffing.Diff{}, err
	}

	// Headers would always differ between the two containers.
	opts := c.Options
	opts.PrintHeader = false

	var fromText, toText string
	var g errgroup.Group
	g.Go(func() error {
		var err error
		fromText, err = reconstruct.ReconstructByName(from, c.Name, opts)
		return err
	})
	g.Go(func() error {
		var err error
		toText, err = reconstruct.ReconstructByName(to, c.Name, opts)
		return err
	})
	if err := g.Wait(); err != nil {
		return diffing.Diff{}, err
	}
	return diffing.DiffText(fromText, toText), nil
}

func (b *Backend) slotFile(slot PDBSlot) (*pdb.File, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	file, ok := b.slots[slot]
	if !ok {
		return nil, fmt.Errorf("slot %d: %w", slot, ErrSlotEmpty)
	}
	return file, nil
}
