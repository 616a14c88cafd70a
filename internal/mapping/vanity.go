package mapping

import "sort"

// VanityEntry redirects one flat external path to a resource.
type VanityEntry struct {
	SourcePath string // resource declaring the vanity path
	VanityPath string
	Order      int64
}

// VanityTable maps vanity path strings to their entries, best first.
// Higher order wins; equal orders fall back to the lexicographically
// smaller source path so rebuilds are deterministic.
type VanityTable struct {
	entries map[string][]VanityEntry
}

func NewVanityTable() *VanityTable {
	return &VanityTable{entries: map[string][]VanityEntry{}}
}

func (t *VanityTable) Add(e VanityEntry) {
	t.entries[e.VanityPath] = append(t.entries[e.VanityPath], e)
}

// sortAll orders every entry list best-first. Called once after the
// build scan; the table is immutable afterwards.
func (t *VanityTable) sortAll() {
	for _, es := range t.entries {
		sort.SliceStable(es, func(i, j int) bool {
			if es[i].Order != es[j].Order {
				return es[i].Order > es[j].Order
			}
			return es[i].SourcePath < es[j].SourcePath
		})
	}
}

// Lookup returns the winning source path for a vanity path.
func (t *VanityTable) Lookup(vanityPath string) (string, bool) {
	es := t.entries[vanityPath]
	if len(es) == 0 {
		return "", false
	}
	return es[0].SourcePath, true
}

// Len returns the number of distinct vanity paths.
func (t *VanityTable) Len() int {
	return len(t.entries)
}
