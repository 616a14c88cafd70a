package resolver

import (
	"net/url"
	"strings"

	"github.com/pathwise/pathwise/api"
	"github.com/pathwise/pathwise/internal/mapping"
	"github.com/pathwise/pathwise/internal/vhost"
)

// Map produces the externally usable form of a resource path: aliases
// substituted, namespaces mangled, virtual-host prefixes stripped and
// replaced by the owning authority, reserved characters escaped. Always
// returns a usable string; unmappable input comes back as the escaped
// input path. An empty path maps to "/".
func (e *Engine) Map(req *api.RequestContext, path string) string {
	snap := e.holder.Current()

	// Fragment and query travel through untouched.
	tail := ""
	if i := strings.IndexAny(path, "#?"); i >= 0 {
		path, tail = path[:i], path[i:]
	}
	if path == "" {
		path = "/"
	}

	path = substituteAliases(snap.Alias, path)
	path = mangle(path)

	if entry, rest, ok := vhost.SelectOutbound(snap.Outbound, req, path); ok {
		mapped := entry.ExtPath + rest
		// Keep the result rooted: a fully consumed prefix leaves "" and
		// a decoration boundary leaves a bare ".ext", neither of which
		// may be glued onto the authority.
		if !strings.HasPrefix(mapped, "/") {
			mapped = "/" + mapped
		}
		if entry.Rule.MatchesContext(req) {
			return contextPath(req) + escapePath(mapped) + tail
		}
		return entry.Rule.URL() + contextPath(req) + escapePath(mapped) + tail
	}
	return contextPath(req) + escapePath(path) + tail
}

// substituteAliases rewrites each path segment to its canonical alias.
// Substitution stops after the first decoration dot: from there on the
// string is selectors/extension/suffix and passes through verbatim,
// except that the segment carrying the dot still gets its name part
// substituted.
func substituteAliases(t *mapping.AliasTable, path string) string {
	if path == "/" || !strings.HasPrefix(path, "/") {
		return path
	}
	segs := strings.Split(path[1:], "/")
	out := make([]string, 0, len(segs))
	cur := ""
	decorated := false
	for _, seg := range segs {
		if decorated {
			out = append(out, seg)
			continue
		}
		name, deco := seg, ""
		if d := strings.IndexByte(seg, '.'); d >= 0 {
			name, deco = seg[:d], seg[d:]
			decorated = true
		}
		cur = cur + "/" + name
		if alias, ok := t.Canonical(cur); ok {
			out = append(out, alias+deco)
		} else {
			out = append(out, seg)
		}
	}
	return "/" + strings.Join(out, "/")
}

func contextPath(req *api.RequestContext) string {
	if req == nil {
		return ""
	}
	return req.ContextPath
}

// mangle rewrites namespaced segments for URL use: ns:name → _ns_name.
func mangle(path string) string {
	if !strings.Contains(path, ":") {
		return path
	}
	segs := strings.Split(path, "/")
	for i, seg := range segs {
		if j := strings.IndexByte(seg, ':'); j > 0 {
			segs[i] = "_" + seg[:j] + "_" + seg[j+1:]
		}
	}
	return strings.Join(segs, "/")
}

// escapePath percent-encodes each path segment, leaving the '/'
// separators alone.
func escapePath(p string) string {
	if !strings.ContainsAny(p, " %\"<>#?") {
		return p
	}
	segs := strings.Split(p, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return strings.Join(segs, "/")
}
