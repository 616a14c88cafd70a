// Package resolver is the engine core: the forward resolver that turns
// an inbound request path into a store resource plus decoration, and
// the reverse mapper that turns a resource path back into the
// externally visible URL.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pathwise/pathwise/api"
	"github.com/pathwise/pathwise/internal/decompose"
	"github.com/pathwise/pathwise/internal/mapping"
	"github.com/pathwise/pathwise/internal/store"
	"github.com/pathwise/pathwise/internal/vhost"
)

// Engine resolves and maps paths against the currently published index
// snapshot. All methods are safe for concurrent use; each call captures
// one snapshot at entry and uses it exclusively.
type Engine struct {
	store  store.Store
	holder *mapping.Holder
}

func New(st store.Store, h *mapping.Holder) *Engine {
	return &Engine{store: st, holder: h}
}

// Resolve maps an inbound request path to a store resource. Not-found
// is a normal result (the non-existing sentinel); only backing-store
// failures return an error.
func (e *Engine) Resolve(ctx context.Context, req *api.RequestContext, rawPath string) (*api.ResolvedResource, error) {
	snap := e.holder.Current()
	path := store.Normalize(rawPath)

	if req != nil && req.Host != "" {
		red, ok := vhost.RewriteInbound(snap.Rules, req.EffectiveScheme(), req.Host, req.EffectivePort(), path)
		if ok {
			if red.External {
				return &api.ResolvedResource{
					Path: path,
					Type: api.TypeRedirect,
					Properties: map[string]string{
						api.PropRedirectTarget: red.Path,
					},
				}, nil
			}
			path = store.Normalize(red.Path)
		}
	}

	// Star marker: a not-yet-created child under an existing parent.
	if parent, ok := decompose.StarInfo(path); ok {
		n, err := e.walk(ctx, snap, parent)
		if err != nil {
			return nil, err
		}
		if n != nil {
			return &api.ResolvedResource{Path: path, Type: api.TypeStar}, nil
		}
		return nonExisting(path), nil
	}

	// The demangled spelling is preferred; a node literally named like
	// a mangled segment (_x_y) is still reachable as a fallback.
	demangled := demangle(path)
	res, err := e.resolveCandidates(ctx, snap, req, demangled)
	if err != nil {
		return nil, err
	}
	if res.NonExisting() && demangled != path {
		raw, err := e.resolveCandidates(ctx, snap, req, path)
		if err != nil {
			return nil, err
		}
		if !raw.NonExisting() {
			return raw, nil
		}
	}
	return res, nil
}

// resolveCandidates probes the candidate sequence for one spelling of
// the path, longest first. GET and HEAD get the full decomposition;
// other methods get the exact path and one extension cut only.
func (e *Engine) resolveCandidates(ctx context.Context, snap *mapping.Snapshot, req *api.RequestContext, path string) (*api.ResolvedResource, error) {
	method := req.EffectiveMethod()
	if method == "GET" || method == "HEAD" {
		cutter := decompose.NewCutter(path, "/")
		for {
			candidate, dec, ok := cutter.Next()
			if !ok {
				break
			}
			n, err := e.probe(ctx, snap, candidate)
			if err != nil {
				return nil, err
			}
			if n != nil {
				return found(n, dec), nil
			}
		}
		return nonExisting(path), nil
	}

	n, err := e.probe(ctx, snap, path)
	if err != nil {
		return nil, err
	}
	if n != nil {
		return found(n, decompose.Decoration{}), nil
	}
	if cut, dec, ok := decompose.ExtensionCut(path); ok {
		n, err := e.probe(ctx, snap, cut)
		if err != nil {
			return nil, err
		}
		if n != nil {
			return found(n, dec), nil
		}
	}
	return nonExisting(path), nil
}

// probe checks one candidate path, applying the vanity table before the
// store walk. A nil node means a clean miss.
func (e *Engine) probe(ctx context.Context, snap *mapping.Snapshot, candidate string) (*store.Node, error) {
	target := candidate
	if src, ok := snap.Vanity.Lookup(candidate); ok {
		target = src
	}
	return e.walk(ctx, snap, target)
}

// walk descends the store segment by segment from the root, accepting
// either the stored child name or any declared alias for it. A miss at
// any segment fails the whole candidate; store I/O errors propagate.
func (e *Engine) walk(ctx context.Context, snap *mapping.Snapshot, path string) (*store.Node, error) {
	if path == "/" {
		n, err := e.store.GetNode(ctx, "/")
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("walk /: %w: %w", api.ErrStoreUnavailable, err)
		}
		return n, nil
	}
	cur := "/"
	var node *store.Node
	for _, seg := range strings.Split(strings.TrimPrefix(path, "/"), "/") {
		next := store.Join(cur, seg)
		n, err := e.store.GetNode(ctx, next)
		if errors.Is(err, store.ErrNotFound) {
			real, ok := snap.Alias.Resolve(cur, seg)
			if !ok {
				return nil, nil
			}
			next = store.Join(cur, real)
			n, err = e.store.GetNode(ctx, next)
			if errors.Is(err, store.ErrNotFound) {
				return nil, nil
			}
		}
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w: %w", next, api.ErrStoreUnavailable, err)
		}
		cur, node = next, n
	}
	return node, nil
}

// GetResource is the direct store passthrough: no decoration logic, no
// virtual hosts, no aliases. A missing node is (nil, nil).
func (e *Engine) GetResource(ctx context.Context, path string) (*store.Node, error) {
	n, err := e.store.GetNode(ctx, store.Normalize(path))
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get resource %s: %w: %w", path, api.ErrStoreUnavailable, err)
	}
	return n, nil
}

func found(n *store.Node, dec decompose.Decoration) *api.ResolvedResource {
	return &api.ResolvedResource{
		Path:     n.Path,
		PathInfo: dec.Raw,
		Type:     n.Type,
		Existing: true,
	}
}

func nonExisting(path string) *api.ResolvedResource {
	return &api.ResolvedResource{
		Path: path,
		Type: api.TypeNonExisting,
	}
}

// demangle undoes namespace mangling on inbound paths: a segment shaped
// _ns_name becomes ns:name.
func demangle(path string) string {
	segs := strings.Split(path, "/")
	changed := false
	for i, seg := range segs {
		if len(seg) < 3 || seg[0] != '_' {
			continue
		}
		j := strings.IndexByte(seg[1:], '_')
		if j <= 0 || j+2 > len(seg) {
			continue
		}
		segs[i] = seg[1:j+1] + ":" + seg[j+2:]
		changed = true
	}
	if !changed {
		return path
	}
	return strings.Join(segs, "/")
}
