package mapping

import (
	"strings"

	"github.com/RoaringBitmap/roaring"
)

// ContribIndex records which store paths contributed entries to a
// snapshot. Paths are interned to uint32 IDs with one roaring bitmap per
// concern, so the watcher can membership-test a change notification and
// skip rebuilds that cannot affect the index.
type ContribIndex struct {
	ids     map[string]uint32
	nextID  uint32
	vanity  *roaring.Bitmap
	alias   *roaring.Bitmap
	mapRoot string
}

func NewContribIndex(mapRoot string) *ContribIndex {
	return &ContribIndex{
		ids:     map[string]uint32{},
		vanity:  roaring.New(),
		alias:   roaring.New(),
		mapRoot: mapRoot,
	}
}

func (c *ContribIndex) intern(path string) uint32 {
	id, ok := c.ids[path]
	if !ok {
		id = c.nextID
		c.nextID++
		c.ids[path] = id
	}
	return id
}

// AddVanity records path as contributing a vanity entry.
func (c *ContribIndex) AddVanity(path string) {
	c.vanity.Add(c.intern(path))
}

// AddAlias records path as contributing an alias entry.
func (c *ContribIndex) AddAlias(path string) {
	c.alias.Add(c.intern(path))
}

// Affects reports whether a change at path can invalidate the snapshot:
// anything under the mapping root always does, as does any path that
// contributed a vanity or alias entry.
func (c *ContribIndex) Affects(path string) bool {
	if path == c.mapRoot || strings.HasPrefix(path, c.mapRoot+"/") {
		return true
	}
	id, ok := c.ids[path]
	if !ok {
		return false
	}
	return c.vanity.Contains(id) || c.alias.Contains(id)
}
