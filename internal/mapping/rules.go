// Package mapping builds and holds the three immutable index snapshots
// the engine resolves against: the mapping rule tree, the vanity path
// table and the alias table. Snapshots are rebuilt wholesale on store
// change notifications and published by atomic pointer swap; readers
// never block and never observe a partially built index.
package mapping

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pathwise/pathwise/api"
)

// Kind tags what a mapping rule does with a matched path.
type Kind int

const (
	// KindInternal rewrites the path and resolution continues.
	KindInternal Kind = iota
	// KindExternal terminates resolution with an absolute redirect URL.
	KindExternal
)

// Rule is one node of the compiled mapping tree. Host-level rules carry
// no Pattern and match by virtue of the scheme/host/port lookup; child
// sub-rules match their Pattern against the residual path. Children are
// kept in configuration order, which is significant for tie-breaking.
type Rule struct {
	// Identity of the host entry this rule belongs to.
	Scheme string
	Host   string
	Port   int

	Name     string
	Kind     Kind
	Target   string
	Pattern  *regexp.Regexp
	Children []*Rule
}

// URL renders the rule's external authority, eliding default ports.
func (r *Rule) URL() string {
	if r.Host == "" {
		return ""
	}
	s := r.Scheme + "://" + r.Host
	if r.Port > 0 && r.Port != api.DefaultPort(r.Scheme) {
		s += ":" + strconv.Itoa(r.Port)
	}
	return s
}

// MatchesContext reports whether the rule's authority equals the
// request's (scheme, host, port).
func (r *Rule) MatchesContext(ctx *api.RequestContext) bool {
	if ctx == nil || ctx.Host == "" {
		return false
	}
	return r.Scheme == ctx.EffectiveScheme() &&
		strings.EqualFold(r.Host, ctx.Host) &&
		r.Port == ctx.EffectivePort()
}

// SchemeNode groups the host entries of one scheme. Fallback is the
// scheme node's own rule, applied when no host entry matches.
type SchemeNode struct {
	Hosts    map[string]*Rule // keyed "host.port" and bare "host"
	Fallback *Rule
}

// Tree is the compiled mapping configuration.
type Tree struct {
	Schemes map[string]*SchemeNode
}

func NewTree() *Tree {
	return &Tree{Schemes: map[string]*SchemeNode{}}
}

// Lookup finds the most specific rule for an inbound request authority:
// exact host.port entry, then bare host entry when the port is the
// scheme default, then the scheme fallback. Nil when nothing applies.
func (t *Tree) Lookup(scheme, host string, port int) *Rule {
	sn := t.Schemes[scheme]
	if sn == nil {
		return nil
	}
	if host != "" {
		host = strings.ToLower(host)
		if port <= 0 {
			port = api.DefaultPort(scheme)
		}
		if r := sn.Hosts[host+"."+strconv.Itoa(port)]; r != nil {
			return r
		}
		if port == api.DefaultPort(scheme) {
			if r := sn.Hosts[host]; r != nil {
				return r
			}
		}
	}
	return sn.Fallback
}

// OutboundEntry is one reverse-mapping candidate: an internal path
// prefix and the external path fragment that replaces it. Entries keep
// configuration order; the first longest match wins.
type OutboundEntry struct {
	Prefix  string // internal redirect target (path form)
	ExtPath string // external path replacing Prefix ("" for host rules)
	Rule    *Rule
}

// parseHostPort splits a host entry node name "host.port" / "host" into
// its parts, defaulting the port for the scheme. Node names follow the
// convention that a trailing all-digit dot segment is the port.
func parseHostPort(name, scheme string) (host string, port int) {
	host = strings.ToLower(name)
	port = api.DefaultPort(scheme)
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		if p, err := strconv.Atoi(name[i+1:]); err == nil {
			return strings.ToLower(name[:i]), p
		}
	}
	return host, port
}
