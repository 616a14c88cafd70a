// Package api holds the public contract types of the resolution engine:
// the request context handed in by the HTTP layer, the resolution result,
// and the property/type vocabulary understood by the index builder.
package api

import "errors"

// ErrStoreUnavailable marks backing-store I/O failures surfaced by
// resolution and index builds. A missing resource is never this error;
// it is a normal non-existing result.
var ErrStoreUnavailable = errors.New("content store unavailable")

// Sentinel resource types produced by the forward resolver.
const (
	// TypeNonExisting marks a resolution that matched nothing in the store.
	TypeNonExisting = "pathwise:nonexisting"
	// TypeStar marks a synthetic placeholder for a not-yet-created child.
	TypeStar = "pathwise:starResource"
	// TypeRedirect marks a terminal external redirect. The absolute target
	// URL is carried in the PropRedirectTarget property of the result.
	TypeRedirect = "pathwise:redirect"
)

// Property and capability names read from the content store.
const (
	PropRedirectInternal = "pw:redirectInternal"
	PropRedirectExternal = "pw:redirectExternal"
	PropMatch            = "pw:match"
	PropVanityPath       = "pw:vanityPath"
	PropVanityOrder      = "pw:vanityOrder"
	PropAlias            = "pw:alias"

	// PropRedirectTarget carries the resolved absolute URL on a
	// TypeRedirect result.
	PropRedirectTarget = "pw:target"

	// CapVanityPath must be present in a node's capability set for its
	// vanity path properties to take effect.
	CapVanityPath = "pw:VanityPath"
)

// DefaultMapRoot is the configuration subtree scanned for mapping rules.
const DefaultMapRoot = "/etc/map"

// ContentChildName is the conventionally named child consulted for alias
// properties when the node itself declares none.
const ContentChildName = "content"

// RequestContext describes the inbound request as far as the engine cares:
// enough to select a virtual-host rule and to elide the host part when
// mapping back to the caller's own host. Immutable per resolution call.
type RequestContext struct {
	Scheme      string // "" means "http"
	Host        string // "" means no virtual host
	Port        int    // -1 means default for scheme
	Method      string // "" means GET
	ContextPath string // servlet-style prefix, may be ""
}

// EffectiveScheme returns the scheme, defaulted to http.
func (c *RequestContext) EffectiveScheme() string {
	if c == nil || c.Scheme == "" {
		return "http"
	}
	return c.Scheme
}

// EffectivePort returns the port, resolving -1 to the scheme default.
func (c *RequestContext) EffectivePort() int {
	if c == nil || c.Port <= 0 {
		return DefaultPort(c.EffectiveScheme())
	}
	return c.Port
}

// EffectiveMethod returns the HTTP method, defaulted to GET.
func (c *RequestContext) EffectiveMethod() string {
	if c == nil || c.Method == "" {
		return "GET"
	}
	return c.Method
}

// DefaultPort returns the well-known port for a scheme, or -1 if the
// scheme has none.
func DefaultPort(scheme string) int {
	switch scheme {
	case "http":
		return 80
	case "https":
		return 443
	}
	return -1
}

// ResolvedResource is the outcome of a forward resolution. It is created
// per call and not retained by the engine.
type ResolvedResource struct {
	// Path is the path of the matched store resource, or the requested
	// path when nothing matched.
	Path string
	// PathInfo is the leftover decoration (selectors, extension, suffix)
	// exactly as found in the input, including its leading '.' or '/'.
	PathInfo string
	// Type is the store resource's type or one of the sentinel types.
	Type string
	// Existing reports whether Path names a resource present in the store.
	Existing bool
	// Properties carries synthetic result properties, notably
	// PropRedirectTarget for TypeRedirect results.
	Properties map[string]string
}

// NonExisting reports whether the result is the non-existing sentinel.
func (r *ResolvedResource) NonExisting() bool {
	return r != nil && r.Type == TypeNonExisting
}

// Star reports whether the result is the synthetic star resource.
func (r *ResolvedResource) Star() bool {
	return r != nil && r.Type == TypeStar
}
