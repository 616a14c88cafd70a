// Package store provides path-addressed, read-mostly access to a
// hierarchical tree of typed nodes with string-list properties. The
// resolution engine only ever reads; the MemoryStore additionally
// supports mutation and change notification for tests and dev setups.
package store

import (
	"context"
	"errors"
	"strings"
)

var ErrNotFound = errors.New("node not found")

// Node is a single resource in the content tree.
type Node struct {
	Path         string
	Type         string
	Capabilities []string
	Properties   map[string][]string
	Children     []string // child names in stored order
}

// Property returns the first value of the named property.
func (n *Node) Property(name string) (string, bool) {
	vs := n.Properties[name]
	if len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// PropertyValues returns all values of the named property.
func (n *Node) PropertyValues(name string) []string {
	return n.Properties[name]
}

// HasCapability reports whether the capability marker is set on the node.
func (n *Node) HasCapability(name string) bool {
	for _, c := range n.Capabilities {
		if c == name {
			return true
		}
	}
	return false
}

// Name returns the final path segment.
func (n *Node) Name() string {
	return Base(n.Path)
}

// Store is the read contract the engine resolves against.
type Store interface {
	// GetNode returns the node at the given absolute path, or ErrNotFound.
	GetNode(ctx context.Context, path string) (*Node, error)
	// Walk visits root and every node below it, parents before children,
	// siblings in stored order. Visiting a missing root is ErrNotFound.
	Walk(ctx context.Context, root string, fn WalkFunc) error
}

// WalkFunc is called once per visited node. Returning an error aborts
// the walk and is propagated unchanged.
type WalkFunc func(n *Node) error

// Change describes a mutation at or below a path.
type Change struct {
	Path string
}

// Watchable is implemented by stores that can report changes.
type Watchable interface {
	Watch() <-chan Change
}

// Normalize brings a path into canonical form: leading slash, no
// trailing slash (except root), no empty segments.
func Normalize(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	var b strings.Builder
	b.Grow(len(p))
	for _, seg := range strings.Split(p[1:], "/") {
		if seg == "" {
			continue
		}
		b.WriteByte('/')
		b.WriteString(seg)
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}

// Parent returns the parent path of p ("/" for top-level nodes and root).
func Parent(p string) string {
	i := strings.LastIndexByte(p, '/')
	if i <= 0 {
		return "/"
	}
	return p[:i]
}

// Base returns the final segment of p ("" for root).
func Base(p string) string {
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return p
	}
	return p[i+1:]
}

// Join joins a parent path and a child name.
func Join(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}
