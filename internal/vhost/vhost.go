// Package vhost applies virtual-host mapping rules to request paths.
// The inbound direction rewrites a path before store lookup (or
// terminates resolution with an external redirect); the outbound
// direction picks the rule that turns a resource path back into an
// externally visible URL.
package vhost

import (
	"net/url"
	"strings"

	"github.com/pathwise/pathwise/api"
	"github.com/pathwise/pathwise/internal/mapping"
)

// Redirect is the outcome of an inbound rewrite.
type Redirect struct {
	// Path is the rewritten internal path, or the absolute target URL
	// when External is set.
	Path     string
	External bool
	Rule     *mapping.Rule
}

// RewriteInbound finds the most specific rule for the request authority
// and applies it to path. ok is false when no rule matched and the path
// is to be used unchanged.
func RewriteInbound(t *mapping.Tree, scheme, host string, port int, path string) (Redirect, bool) {
	rule := t.Lookup(scheme, host, port)
	if rule == nil {
		return Redirect{}, false
	}
	return applyRule(rule, path)
}

// applyRule tries the rule's children depth-first in configuration
// order before falling back to the rule's own target. First match wins.
func applyRule(r *mapping.Rule, path string) (Redirect, bool) {
	residual := strings.TrimPrefix(path, "/")
	for _, child := range r.Children {
		if red, ok := matchChild(child, residual); ok {
			return red, true
		}
	}
	if r.Target == "" {
		return Redirect{}, false
	}
	if r.Kind == mapping.KindExternal {
		return Redirect{Path: r.Target + path, External: true, Rule: r}, true
	}
	return Redirect{Path: internalTarget(r.Target) + path, Rule: r}, true
}

// matchChild applies a pattern rule to the residual path. The pattern
// must match at the start of the residual; the matched region is
// replaced by the expanded target and the remainder is appended.
func matchChild(c *mapping.Rule, residual string) (Redirect, bool) {
	m := c.Pattern.FindStringSubmatchIndex(residual)
	if m == nil || m[0] != 0 {
		return Redirect{}, false
	}
	tail := residual[m[1]:]
	for _, g := range c.Children {
		if red, ok := matchChild(g, strings.TrimPrefix(tail, "/")); ok {
			return red, true
		}
	}
	if c.Target == "" {
		return Redirect{}, false
	}
	expanded := string(c.Pattern.ExpandString(nil, c.Target, residual, m))
	if c.Kind == mapping.KindExternal {
		return Redirect{Path: expanded + tail, External: true, Rule: c}, true
	}
	return Redirect{Path: internalTarget(expanded) + tail, Rule: c}, true
}

// internalTarget reduces a URL-form internal redirect target to its
// path component; path-form targets pass through unchanged.
func internalTarget(target string) string {
	if !strings.Contains(target, "://") {
		return target
	}
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	return u.Path
}

// SelectOutbound picks the reverse-mapping entry for a resource path:
// the longest prefix match wins, and among equally long prefixes one
// matching the request context is preferred, then configuration order.
// The returned rest is the path remainder after the matched prefix.
func SelectOutbound(entries []mapping.OutboundEntry, ctx *api.RequestContext, path string) (mapping.OutboundEntry, string, bool) {
	best := -1
	bestLen := -1
	bestCtx := false
	for i, e := range entries {
		if !prefixMatches(path, e.Prefix) {
			continue
		}
		inCtx := e.Rule.MatchesContext(ctx)
		switch {
		case len(e.Prefix) > bestLen:
		case len(e.Prefix) == bestLen && inCtx && !bestCtx:
		default:
			continue
		}
		best, bestLen, bestCtx = i, len(e.Prefix), inCtx
	}
	if best < 0 {
		return mapping.OutboundEntry{}, "", false
	}
	e := entries[best]
	return e, path[len(e.Prefix):], true
}

// prefixMatches reports whether prefix covers path up to a segment or
// decoration boundary.
func prefixMatches(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	if len(path) == len(prefix) {
		return true
	}
	next := path[len(prefix)]
	return next == '/' || next == '.'
}
