package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/ohler55/ojg/oj"
)

// PropsFileName is the per-directory sidecar consulted by BillyStore for
// node type, capabilities and properties.
const PropsFileName = "_props.json"

// BillyStore exposes a billy.Filesystem as a read-only content tree.
// Directories are nodes; a _props.json sidecar inside a directory
// supplies its type, capabilities, properties and child order:
//
//	{"type": "pw:page",
//	 "capabilities": ["pw:VanityPath"],
//	 "properties": {"pw:alias": ["kind", "enfant"]},
//	 "order": ["first", "second"]}
//
// Directories without a sidecar get DefaultType, no properties, and
// name-sorted children.
type BillyStore struct {
	fs          billy.Filesystem
	DefaultType string
}

func NewBillyStore(fs billy.Filesystem) *BillyStore {
	return &BillyStore{fs: fs, DefaultType: "pw:folder"}
}

// GetNode implements Store.
func (s *BillyStore) GetNode(ctx context.Context, path string) (*Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path = Normalize(path)
	fi, err := s.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !fi.IsDir() {
		return nil, ErrNotFound // plain files are content, not nodes
	}

	n := &Node{Path: path, Type: s.DefaultType}
	meta, err := s.readProps(path)
	if err != nil {
		return nil, err
	}
	ordered := meta.apply(n)

	entries, err := s.fs.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("readdir %s: %w", path, err)
	}
	present := map[string]bool{}
	for _, e := range entries {
		if e.IsDir() {
			present[e.Name()] = true
		}
	}
	// Explicit order first, then remaining children name-sorted.
	for _, name := range ordered {
		if present[name] {
			n.Children = append(n.Children, name)
			delete(present, name)
		}
	}
	var rest []string
	for name := range present {
		rest = append(rest, name)
	}
	sort.Strings(rest)
	n.Children = append(n.Children, rest...)
	return n, nil
}

// Walk implements Store.
func (s *BillyStore) Walk(ctx context.Context, root string, fn WalkFunc) error {
	n, err := s.GetNode(ctx, root)
	if err != nil {
		return err
	}
	if err := fn(n); err != nil {
		return err
	}
	for _, name := range n.Children {
		if err := s.Walk(ctx, Join(n.Path, name), fn); err != nil {
			return err
		}
	}
	return nil
}

type billyMeta struct {
	typ   string
	caps  []string
	props map[string][]string
	order []string
}

func (m *billyMeta) apply(n *Node) (order []string) {
	if m == nil {
		return nil
	}
	if m.typ != "" {
		n.Type = m.typ
	}
	n.Capabilities = m.caps
	n.Properties = m.props
	return m.order
}

func (s *BillyStore) readProps(dir string) (*billyMeta, error) {
	f, err := s.fs.Open(Join(dir, PropsFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open props %s: %w", dir, err)
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read props %s: %w", dir, err)
	}
	parsed, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse props %s: %w", dir, err)
	}
	obj, ok := parsed.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("parse props %s: not a JSON object", dir)
	}
	m := &billyMeta{}
	if t, ok := obj["type"].(string); ok {
		m.typ = t
	}
	m.caps = stringList(obj["capabilities"])
	m.order = stringList(obj["order"])
	if props, ok := obj["properties"].(map[string]any); ok {
		m.props = make(map[string][]string, len(props))
		for k, v := range props {
			m.props[k] = stringList(v)
		}
	}
	return m, nil
}

// stringList coerces a JSON value (string, number, or array of either)
// into a string slice.
func stringList(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return []string{t}
	case []any:
		var out []string
		for _, e := range t {
			out = append(out, stringList(e)...)
		}
		return out
	default:
		return []string{fmt.Sprintf("%v", t)}
	}
}
