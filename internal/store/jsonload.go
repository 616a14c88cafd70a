package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ohler55/ojg/oj"
)

// JSON tree documents describe a content tree as nested objects. Keys
// starting with '.' are node metadata, everything else is a child node:
//
//	{"etc": {"map": {
//	    "http": {".type": "pw:mapping",
//	             "virtual.host.com.80": {
//	                 ".props": {"pw:redirectInternal": "/content/virtual"}}}}}}
//
// Recognized metadata keys: .type, .caps, .props, .order. JSON objects
// are unordered, so configuration order between siblings is taken from
// the .order array when present and falls back to name order otherwise.
const (
	jsonKeyType  = ".type"
	jsonKeyCaps  = ".caps"
	jsonKeyProps = ".props"
	jsonKeyOrder = ".order"
)

// LoadJSON parses a JSON tree document into a fresh MemoryStore.
func LoadJSON(data []byte) (*MemoryStore, error) {
	parsed, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse tree document: %w", err)
	}
	root, ok := parsed.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("tree document: top level is not a JSON object")
	}
	s := NewMemoryStore()
	if err := loadInto(func(n *Node) error { s.Put(n); return nil }, "/", root); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadJSONInto replays a JSON tree document through a node sink, parents
// before children. Used by cmd/build to stream into a SQLiteWriter.
func LoadJSONInto(data []byte, sink func(*Node) error) error {
	parsed, err := oj.Parse(data)
	if err != nil {
		return fmt.Errorf("parse tree document: %w", err)
	}
	root, ok := parsed.(map[string]any)
	if !ok {
		return fmt.Errorf("tree document: top level is not a JSON object")
	}
	return loadInto(sink, "/", root)
}

func loadInto(sink func(*Node) error, path string, obj map[string]any) error {
	for _, name := range childKeys(obj) {
		child, ok := obj[name].(map[string]any)
		if !ok {
			return fmt.Errorf("node %s: child %q is not an object", path, name)
		}
		n := &Node{Path: Join(path, name), Type: "pw:folder"}
		if t, ok := child[jsonKeyType].(string); ok {
			n.Type = t
		}
		n.Capabilities = stringList(child[jsonKeyCaps])
		if props, ok := child[jsonKeyProps].(map[string]any); ok {
			n.Properties = make(map[string][]string, len(props))
			for k, v := range props {
				n.Properties[k] = stringList(v)
			}
		}
		n.Children = childKeys(child)
		if err := sink(n); err != nil {
			return err
		}
		if err := loadInto(sink, n.Path, child); err != nil {
			return err
		}
	}
	return nil
}

// childKeys returns the non-metadata keys of obj in declared order
// (.order first, remaining keys sorted).
func childKeys(obj map[string]any) []string {
	declared := stringList(obj[jsonKeyOrder])
	seen := make(map[string]bool, len(declared))
	var keys []string
	for _, name := range declared {
		if _, ok := obj[name]; ok && !seen[name] {
			keys = append(keys, name)
			seen[name] = true
		}
	}
	var rest []string
	for name := range obj {
		if strings.HasPrefix(name, ".") || seen[name] {
			continue
		}
		rest = append(rest, name)
	}
	sort.Strings(rest)
	return append(keys, rest...)
}
