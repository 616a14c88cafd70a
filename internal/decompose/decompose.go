// Package decompose splits a raw request path into candidate
// (resource path, decoration) pairs, most specific first. Cut points
// are '.' characters and any '/' that follows the first '.', so plain
// segment boundaries never produce a shorter candidate — resolution
// must not walk above the path the caller actually requested.
package decompose

import "strings"

// Decoration is the non-path remainder of a request path: selectors,
// extension and suffix. Raw preserves the input form, including its
// leading '.' or '/'.
type Decoration struct {
	Selectors []string
	Extension string
	Suffix    string
	Raw       string
}

// Parse splits a raw decoration string. An empty input is the zero
// Decoration.
func Parse(raw string) Decoration {
	d := Decoration{Raw: raw}
	if raw == "" {
		return d
	}
	if raw[0] == '/' {
		d.Suffix = raw
		return d
	}
	selExt := raw
	if i := strings.IndexByte(raw, '/'); i >= 0 {
		selExt = raw[:i]
		d.Suffix = raw[i:]
	}
	tokens := strings.Split(strings.TrimPrefix(selExt, "."), ".")
	d.Extension = tokens[len(tokens)-1]
	d.Selectors = tokens[:len(tokens)-1]
	return d
}

// Cutter enumerates candidate resource paths for a request path,
// longest first. It never proposes a candidate shorter than the floor.
// A Cutter is single-use; NewCutter restarts the enumeration.
type Cutter struct {
	path  string
	cuts  []int // cut points, ascending
	next  int   // index into cuts for the next (shorter) candidate; len(cuts) means "full path first"
	floor int   // minimum candidate length
}

// NewCutter prepares the enumeration of path against a floor path (the
// already alias/vanity-resolved root, "/" when unconstrained).
func NewCutter(path, floor string) *Cutter {
	c := &Cutter{path: path, floor: len(floor)}
	if floor == "/" {
		c.floor = 1
	}
	firstDot := -1
	for i := 0; i < len(path); i++ {
		switch path[i] {
		case '.':
			if firstDot < 0 {
				firstDot = i
			}
			c.cuts = append(c.cuts, i)
		case '/':
			if firstDot >= 0 && i > firstDot {
				c.cuts = append(c.cuts, i)
			}
		}
	}
	c.next = len(c.cuts)
	return c
}

// Next returns the next candidate, or ok == false when exhausted.
func (c *Cutter) Next() (candidate string, dec Decoration, ok bool) {
	if c.next == len(c.cuts) {
		c.next--
		return c.path, Decoration{}, true
	}
	for c.next >= 0 {
		cut := c.cuts[c.next]
		c.next--
		if cut < c.floor {
			return "", Decoration{}, false
		}
		return c.path[:cut], Parse(c.path[cut:]), true
	}
	return "", Decoration{}, false
}

// StarInfo recognizes the star marker: a final '*' segment, optionally
// followed by selectors and an extension. It returns the parent path
// the star applies to.
func StarInfo(path string) (parent string, ok bool) {
	i := strings.Index(path, "/*")
	if i < 0 {
		return "", false
	}
	if i+2 < len(path) && path[i+2] != '.' {
		return "", false
	}
	if i == 0 {
		return "/", true
	}
	return path[:i], true
}

// ExtensionCut returns the path with only the final segment's trailing
// decoration removed, for the single probe non-GET methods get. ok is
// false when the final segment carries no dot.
func ExtensionCut(path string) (string, Decoration, bool) {
	lastSlash := strings.LastIndexByte(path, '/')
	dot := strings.IndexByte(path[lastSlash+1:], '.')
	if dot < 0 {
		return "", Decoration{}, false
	}
	cut := lastSlash + 1 + dot
	return path[:cut], Parse(path[cut:]), true
}
