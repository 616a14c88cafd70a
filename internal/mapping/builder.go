package mapping

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/pathwise/pathwise/api"
	"github.com/pathwise/pathwise/internal/store"
)

// Builder scans the configured store subtrees and produces snapshots.
// A build fails only on store I/O errors; malformed entries are skipped
// and recorded as diagnostics.
type Builder struct {
	Store   store.Store
	MapRoot string // defaults to api.DefaultMapRoot
}

func (b *Builder) mapRoot() string {
	if b.MapRoot == "" {
		return api.DefaultMapRoot
	}
	return store.Normalize(b.MapRoot)
}

// Rebuild scans the mapping tree and the full content tree and returns
// a complete snapshot. The caller assigns Generation and publishes.
func (b *Builder) Rebuild(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{
		Rules:   NewTree(),
		Vanity:  NewVanityTable(),
		Alias:   NewAliasTable(),
		Contrib: NewContribIndex(b.mapRoot()),
	}
	if err := b.scanMapTree(ctx, snap); err != nil {
		return nil, err
	}
	if err := b.scanContentTree(ctx, snap); err != nil {
		return nil, err
	}
	snap.Vanity.sortAll()
	for _, d := range snap.Diagnostics {
		log.Printf("mapping: %s", d)
	}
	return snap, nil
}

// scanMapTree compiles the rule tree and the outbound entry list from
// the nodes under the mapping root. A missing root is an empty tree.
func (b *Builder) scanMapTree(ctx context.Context, snap *Snapshot) error {
	root, err := b.Store.GetNode(ctx, b.mapRoot())
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read map root %s: %w: %w", b.mapRoot(), api.ErrStoreUnavailable, err)
	}
	for _, schemeName := range root.Children {
		schemeNode, err := b.Store.GetNode(ctx, store.Join(root.Path, schemeName))
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read scheme node %s: %w: %w", schemeName, api.ErrStoreUnavailable, err)
		}
		sn := &SchemeNode{Hosts: map[string]*Rule{}}
		snap.Rules.Schemes[schemeName] = sn

		if kind, target, ok := ruleTarget(schemeNode); ok {
			sn.Fallback = &Rule{Scheme: schemeName, Port: api.DefaultPort(schemeName), Kind: kind, Target: target}
			// No authority: a scheme fallback cannot produce outbound URLs.
		}
		for _, hostName := range schemeNode.Children {
			hostNode, err := b.Store.GetNode(ctx, store.Join(schemeNode.Path, hostName))
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("read host node %s: %w: %w", hostName, api.ErrStoreUnavailable, err)
			}
			host, port := parseHostPort(hostName, schemeName)
			rule := &Rule{
				Scheme: schemeName,
				Host:   host,
				Port:   port,
				Name:   hostName,
			}
			if kind, target, ok := ruleTarget(hostNode); ok {
				rule.Kind = kind
				rule.Target = target
				b.addOutbound(snap, rule, "")
			}
			if err := b.compileChildren(ctx, hostNode, rule, snap); err != nil {
				return err
			}
			sn.Hosts[strings.ToLower(hostName)] = rule
		}
	}
	return nil
}

// compileChildren turns the sub-rule nodes below a mapping node into
// pattern rules, preserving configuration order.
func (b *Builder) compileChildren(ctx context.Context, node *store.Node, parent *Rule, snap *Snapshot) error {
	for _, name := range node.Children {
		child, err := b.Store.GetNode(ctx, store.Join(node.Path, name))
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read sub-rule %s: %w: %w", name, api.ErrStoreUnavailable, err)
		}
		kind, target, ok := ruleTarget(child)
		if !ok {
			// A sub-rule without a redirect target only groups deeper
			// rules; still descend.
			kind, target = KindInternal, ""
		}
		src, _ := child.Property(api.PropMatch)
		if src == "" {
			src = name
		}
		pat, err := regexp.Compile(src)
		if err != nil {
			snap.Diagnostics = append(snap.Diagnostics,
				fmt.Sprintf("skip rule %s: bad match pattern %q: %v", child.Path, src, err))
			continue
		}
		rule := &Rule{
			Scheme:  parent.Scheme,
			Host:    parent.Host,
			Port:    parent.Port,
			Name:    name,
			Kind:    kind,
			Target:  target,
			Pattern: pat,
		}
		if target != "" {
			b.addOutbound(snap, rule, reversePattern(src))
		}
		if err := b.compileChildren(ctx, child, rule, snap); err != nil {
			return err
		}
		parent.Children = append(parent.Children, rule)
	}
	return nil
}

// addOutbound registers an internal-redirect rule for reverse mapping.
// Only rules with a real authority and a path-form target can produce
// URLs; pattern rules additionally need an invertible pattern.
func (b *Builder) addOutbound(snap *Snapshot, r *Rule, extPath string) {
	if r.Kind != KindInternal || r.Host == "" {
		return
	}
	if !strings.HasPrefix(r.Target, "/") {
		return // URL-form target, not reversible
	}
	if r.Pattern != nil {
		if extPath == "" {
			snap.Diagnostics = append(snap.Diagnostics,
				fmt.Sprintf("rule %s/%s: pattern %q not invertible, excluded from map()", r.Host, r.Name, r.Pattern))
			return
		}
		extPath = "/" + extPath
	}
	snap.Outbound = append(snap.Outbound, OutboundEntry{
		Prefix:  r.Target,
		ExtPath: extPath,
		Rule:    r,
	})
}

// reversePattern recovers the literal external path encoded in a match
// pattern, or "" when the pattern is not a plain anchored literal.
func reversePattern(src string) string {
	lit := strings.TrimPrefix(src, "^")
	lit = strings.TrimSuffix(lit, "$")
	if lit == "" || strings.ContainsAny(lit, `\.+*?()|[]{}^$`) {
		return ""
	}
	return lit
}

// ruleTarget extracts the redirect declaration of a mapping node.
func ruleTarget(n *store.Node) (Kind, string, bool) {
	if t, ok := n.Property(api.PropRedirectInternal); ok && t != "" {
		return KindInternal, t, true
	}
	if t, ok := n.Property(api.PropRedirectExternal); ok && t != "" {
		return KindExternal, t, true
	}
	return KindInternal, "", false
}

// scanContentTree collects vanity and alias declarations from the whole
// content tree, skipping the mapping configuration subtree.
func (b *Builder) scanContentTree(ctx context.Context, snap *Snapshot) error {
	mapRoot := b.mapRoot()
	err := b.Store.Walk(ctx, "/", func(n *store.Node) error {
		if n.Path == mapRoot || strings.HasPrefix(n.Path, mapRoot+"/") {
			return nil
		}
		b.collectVanity(n, snap)
		b.collectAlias(n, snap)
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan content tree: %w: %w", api.ErrStoreUnavailable, err)
	}
	return nil
}

func (b *Builder) collectVanity(n *store.Node, snap *Snapshot) {
	paths := n.PropertyValues(api.PropVanityPath)
	if len(paths) == 0 {
		return
	}
	if !n.HasCapability(api.CapVanityPath) {
		snap.Diagnostics = append(snap.Diagnostics,
			fmt.Sprintf("ignore vanity paths on %s: missing %s capability", n.Path, api.CapVanityPath))
		return
	}
	var order int64
	if o, ok := n.Property(api.PropVanityOrder); ok {
		v, err := strconv.ParseInt(o, 10, 64)
		if err != nil {
			snap.Diagnostics = append(snap.Diagnostics,
				fmt.Sprintf("skip vanity paths on %s: non-integer order %q", n.Path, o))
			return
		}
		order = v
	}
	for _, vp := range paths {
		if vp == "" {
			continue
		}
		snap.Vanity.Add(VanityEntry{
			SourcePath: n.Path,
			VanityPath: store.Normalize(vp),
			Order:      order,
		})
	}
	snap.Contrib.AddVanity(n.Path)
}

func (b *Builder) collectAlias(n *store.Node, snap *Snapshot) {
	aliases := n.PropertyValues(api.PropAlias)
	if len(aliases) == 0 || n.Path == "/" {
		return
	}
	parent := store.Parent(n.Path)
	name := n.Name()
	if name == api.ContentChildName && parent != "/" {
		// The content child's alias belongs to its parent's segment.
		snap.Alias.Add(store.Parent(parent), store.Base(parent), aliases, false)
	} else {
		snap.Alias.Add(parent, name, aliases, true)
	}
	snap.Contrib.AddAlias(n.Path)
}
