package reconstruct

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/clayne/resym/pkg/pdb"
	"github.com/clayne/resym/pkg/pdb/codeview"
	"github.com/clayne/resym/pkg/version"
)

// Options controls the reconstruction output.
type Options struct {
	Flavor                  Flavor
	PrintHeader             bool
	ReconstructDependencies bool
	PrintAccessSpecifiers   bool
}

// Reconstruct produces the definition of the type at index, preceded
// by the definitions of every named type it transitively depends on
// when ReconstructDependencies is set. The requested type always comes
// last.
func Reconstruct(f *pdb.File, index codeview.TypeIndex, opts Options) (string, error) {
	start := time.Now()

	text, refs, err := render(f, index, opts.Flavor, opts.PrintAccessSpecifiers)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	if opts.PrintHeader {
		out.WriteString(header(f))
	}

	if opts.ReconstructDependencies {
		deps, err := dependencyClosure(f, index, refs, opts)
		if err != nil {
			return "", err
		}
		out.WriteString(deps)
	}
	out.WriteString(text)

	slog.Debug("type reconstructed",
		"index", index, "dependencies", opts.ReconstructDependencies,
		"elapsed", time.Since(start))
	return out.String(), nil
}

// ReconstructByName looks a type up by name and reconstructs it.
func ReconstructByName(f *pdb.File, name string, opts Options) (string, error) {
	index, err := f.FindTypeByName(name)
	if err != nil {
		return "", err
	}
	return Reconstruct(f, index, opts)
}

// dependencyClosure renders every type the root transitively needs.
// The worklist always picks the numerically greatest unprocessed
// index, and blocks are emitted in the order they are processed.
func dependencyClosure(f *pdb.File, root codeview.TypeIndex, refs map[codeview.TypeIndex]struct{}, opts Options) (string, error) {
	needed := make(map[codeview.TypeIndex]struct{}, len(refs))
	for ref := range refs {
		needed[ref] = struct{}{}
	}
	processed := map[codeview.TypeIndex]struct{}{root: {}}

	var b strings.Builder
	for {
		next, ok := nextNeeded(needed, processed)
		if !ok {
			break
		}
		processed[next] = struct{}{}

		text, depRefs, err := render(f, next, opts.Flavor, opts.PrintAccessSpecifiers)
		if err != nil {
			return "", fmt.Errorf("dependency 0x%x: %w", uint32(next), err)
		}
		b.WriteString(text)
		b.WriteString("\n")
		for ref := range depRefs {
			needed[ref] = struct{}{}
		}
	}
	return b.String(), nil
}

func nextNeeded(needed, processed map[codeview.TypeIndex]struct{}) (codeview.TypeIndex, bool) {
	var best codeview.TypeIndex
	found := false
	for index := range needed {
		if _, done := processed[index]; done {
			continue
		}
		if !found || index > best {
			best = index
			found = true
		}
	}
	return best, found
}

// header emits the provenance comment placed before reconstructed
// output when print_header is enabled.
func header(f *pdb.File) string {
	var b strings.Builder
	b.WriteString("/*\n")
	fmt.Fprintf(&b, " * PDB file: %s\n", f.Path)
	fmt.Fprintf(&b, " * Image architecture: %s\n", f.MachineName())
	if guid := f.GUID(); guid != "" {
		fmt.Fprintf(&b, " * GUID: %s  Age: %d\n", guid, f.Age())
	}
	b.WriteString(" *\n")
	fmt.Fprintf(&b, " * Information extracted with resym v%s\n", version.Version)
	b.WriteString(" */\n\n")
	return b.String()
}
