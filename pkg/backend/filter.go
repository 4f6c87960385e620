package backend

import (
	"fmt"
	"regexp"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/clayne/resym/pkg/pdb"
)

// matcher builds the match predicate for a filter expression. The
// empty filter matches everything.
func matcher(filter string, caseInsensitive, useRegex bool) (func(string) bool, error) {
	if filter == "" {
		return func(string) bool { return true }, nil
	}

	if useRegex {
		pattern := filter
		if caseInsensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("filter %q: %w", filter, err)
		}
		return re.MatchString, nil
	}

	if caseInsensitive {
		needle := strings.ToLower(filter)
		return func(name string) bool {
			return strings.Contains(strings.ToLower(name), needle)
		}, nil
	}
	return func(name string) bool {
		return strings.Contains(name, filter)
	}, nil
}

// filterTypes returns the slot's complete types whose display name
// matches the filter, preserving declaration order. Each entry's test
// is independent, so the list is matched in parallel chunks.
func filterTypes(f *pdb.File, filter string, caseInsensitive, useRegex bool) ([]pdb.TypeEntry, error) {
	match, err := matcher(filter, caseInsensitive, useRegex)
	if err != nil {
		return nil, err
	}

	entries := f.CompleteTypes()
	workers := min(runtime.NumCPU(), max(len(entries), 1))
	chunk := (len(entries) + workers - 1) / workers
	parts := make([][]pdb.TypeEntry, workers)

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		w := w
		lo := w * chunk
		hi := min(lo+chunk, len(entries))
		if lo >= hi {
			continue
		}
		g.Go(func() error {
			var part []pdb.TypeEntry
			for _, entry := range entries[lo:hi] {
				if match(entry.Name) {
					part = append(part, entry)
				}
			}
			parts[w] = part
			return nil
		})
	}
	g.Wait()

	var out []pdb.TypeEntry
	for _, part := range parts {
		out = append(out, part...)
	}
	return out, nil
}

// filterTypesMerged unions the matching types of several containers,
// deduplicating by display name. The first container to declare a
// name wins.
func filterTypesMerged(files []*pdb.File, filter string, caseInsensitive, useRegex bool) ([]pdb.TypeEntry, error) {
	var (
		out  []pdb.TypeEntry
		seen = make(map[string]struct{})
	)
	for _, f := range files {
		matched, err := filterTypes(f, filter, caseInsensitive, useRegex)
		if err != nil {
			return nil, err
		}
		for _, entry := range matched {
			if _, ok := seen[entry.Name]; ok {
				continue
			}
			seen[entry.Name] = struct{}{}
			out = append(out, entry)
		}
	}
	return out, nil
}
