package mapping

// aliasSource ranks where an alias came from: a node's own property
// beats the conventionally named content child.
type aliasSource int

const (
	sourceOwn aliasSource = iota
	sourceContentChild
)

type aliasTarget struct {
	childName string
	source    aliasSource
}

// AliasTable resolves per-segment substitute names in both directions.
// Forward: (parent path, alias segment) → real child name, any declared
// alias accepted. Reverse: child path → first declared alias, used when
// generating external paths.
type AliasTable struct {
	forward   map[string]map[string]aliasTarget // parent → alias → target
	canonical map[string]aliasEntry             // child path → first alias
}

type aliasEntry struct {
	alias  string
	source aliasSource
}

func NewAliasTable() *AliasTable {
	return &AliasTable{
		forward:   map[string]map[string]aliasTarget{},
		canonical: map[string]aliasEntry{},
	}
}

// Add registers the alias list declared for childName under parentPath.
// Own-node declarations take precedence over content-child declarations
// for both directions; within one declaration the first value is
// canonical for reverse mapping.
func (t *AliasTable) Add(parentPath, childName string, aliases []string, own bool) {
	if len(aliases) == 0 {
		return
	}
	src := sourceContentChild
	if own {
		src = sourceOwn
	}
	fwd := t.forward[parentPath]
	if fwd == nil {
		fwd = map[string]aliasTarget{}
		t.forward[parentPath] = fwd
	}
	for _, a := range aliases {
		if a == "" {
			continue
		}
		if cur, ok := fwd[a]; ok && cur.source <= src {
			continue
		}
		fwd[a] = aliasTarget{childName: childName, source: src}
	}
	childPath := parentPath + "/" + childName
	if parentPath == "/" {
		childPath = "/" + childName
	}
	if cur, ok := t.canonical[childPath]; !ok || src < cur.source {
		t.canonical[childPath] = aliasEntry{alias: aliases[0], source: src}
	}
}

// Resolve returns the real child name for an alias segment.
func (t *AliasTable) Resolve(parentPath, segment string) (string, bool) {
	if fwd := t.forward[parentPath]; fwd != nil {
		if tgt, ok := fwd[segment]; ok {
			return tgt.childName, true
		}
	}
	return "", false
}

// Canonical returns the alias to use in place of the final segment of
// childPath when generating external paths.
func (t *AliasTable) Canonical(childPath string) (string, bool) {
	e, ok := t.canonical[childPath]
	if !ok {
		return "", false
	}
	return e.alias, true
}
