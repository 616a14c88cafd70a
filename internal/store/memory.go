package store

import (
	"context"
	"log"
	"sync"
)

// MemoryStore is a mutable in-memory content tree. It is the backend for
// tests and dev setups and the only backend that emits change
// notifications. Safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	nodes map[string]*Node

	watchMu  sync.Mutex
	watchers []chan Change
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes: map[string]*Node{
			"/": {Path: "/", Type: "pathwise:root"},
		},
	}
}

// Put inserts or replaces the node at n.Path and links it into its
// parent's child list. Missing intermediate nodes are not created.
func (s *MemoryStore) Put(n *Node) {
	n.Path = Normalize(n.Path)
	s.mu.Lock()
	old := s.nodes[n.Path]
	if old != nil && n.Children == nil {
		n.Children = old.Children
	}
	s.nodes[n.Path] = n
	if parent, ok := s.nodes[Parent(n.Path)]; ok && n.Path != "/" {
		name := Base(n.Path)
		linked := false
		for _, c := range parent.Children {
			if c == name {
				linked = true
				break
			}
		}
		if !linked {
			parent.Children = append(parent.Children, name)
		}
	}
	s.mu.Unlock()
	s.notify(n.Path)
}

// Delete removes the node at path and everything below it.
func (s *MemoryStore) Delete(path string) {
	path = Normalize(path)
	s.mu.Lock()
	delete(s.nodes, path)
	prefix := path + "/"
	for p := range s.nodes {
		if len(p) > len(prefix) && p[:len(prefix)] == prefix {
			delete(s.nodes, p)
		}
	}
	if parent, ok := s.nodes[Parent(path)]; ok {
		name := Base(path)
		kept := parent.Children[:0]
		for _, c := range parent.Children {
			if c != name {
				kept = append(kept, c)
			}
		}
		parent.Children = kept
	}
	s.mu.Unlock()
	s.notify(path)
}

// SetProperty replaces the named property on an existing node.
func (s *MemoryStore) SetProperty(path, name string, values ...string) {
	path = Normalize(path)
	s.mu.Lock()
	n, ok := s.nodes[path]
	if ok {
		if n.Properties == nil {
			n.Properties = map[string][]string{}
		}
		n.Properties[name] = values
	}
	s.mu.Unlock()
	if ok {
		s.notify(path)
	}
}

// RemoveProperty deletes the named property from an existing node.
func (s *MemoryStore) RemoveProperty(path, name string) {
	path = Normalize(path)
	s.mu.Lock()
	n, ok := s.nodes[path]
	if ok {
		delete(n.Properties, name)
	}
	s.mu.Unlock()
	if ok {
		s.notify(path)
	}
}

// GetNode implements Store.
func (s *MemoryStore) GetNode(ctx context.Context, path string) (*Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	n, ok := s.nodes[Normalize(path)]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return n.clone(), nil
}

// Walk implements Store.
func (s *MemoryStore) Walk(ctx context.Context, root string, fn WalkFunc) error {
	n, err := s.GetNode(ctx, root)
	if err != nil {
		return err
	}
	if err := fn(n); err != nil {
		return err
	}
	for _, name := range n.Children {
		child := Join(n.Path, name)
		s.mu.RLock()
		_, ok := s.nodes[child]
		s.mu.RUnlock()
		if !ok {
			continue // dangling child link
		}
		if err := s.Walk(ctx, child, fn); err != nil {
			return err
		}
	}
	return nil
}

// Watch implements Watchable. Each call returns a new buffered channel;
// events are dropped (with a log line) when a consumer falls behind.
func (s *MemoryStore) Watch() <-chan Change {
	ch := make(chan Change, 64)
	s.watchMu.Lock()
	s.watchers = append(s.watchers, ch)
	s.watchMu.Unlock()
	return ch
}

func (s *MemoryStore) notify(path string) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	for _, ch := range s.watchers {
		select {
		case ch <- Change{Path: path}:
		default:
			log.Printf("MemoryStore: watcher behind, dropping change for %s", path)
		}
	}
}

func (n *Node) clone() *Node {
	c := &Node{Path: n.Path, Type: n.Type}
	if n.Capabilities != nil {
		c.Capabilities = append([]string(nil), n.Capabilities...)
	}
	if n.Children != nil {
		c.Children = append([]string(nil), n.Children...)
	}
	if n.Properties != nil {
		c.Properties = make(map[string][]string, len(n.Properties))
		for k, vs := range n.Properties {
			c.Properties[k] = append([]string(nil), vs...)
		}
	}
	return c
}
