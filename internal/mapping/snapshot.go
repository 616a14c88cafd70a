package mapping

import "sync/atomic"

// Snapshot is one complete, immutable build of the three indexes plus
// the bookkeeping the watcher needs. Resolution calls capture a
// snapshot reference at entry and use it for the call's duration.
type Snapshot struct {
	Rules    *Tree
	Vanity   *VanityTable
	Alias    *AliasTable
	Outbound []OutboundEntry
	Contrib  *ContribIndex

	// Diagnostics lists malformed configuration entries that were
	// skipped during the build, for operability.
	Diagnostics []string

	// Generation increments with every published rebuild.
	Generation uint64
}

// EmptySnapshot is what readers see before the first build completes.
func EmptySnapshot() *Snapshot {
	return &Snapshot{
		Rules:   NewTree(),
		Vanity:  NewVanityTable(),
		Alias:   NewAliasTable(),
		Contrib: NewContribIndex(""),
	}
}

// Holder publishes snapshots to concurrent readers. Publishing is a
// single atomic pointer swap; there is no reader locking and no partial
// visibility of a half-built index.
type Holder struct {
	cur atomic.Pointer[Snapshot]
}

func NewHolder() *Holder {
	h := &Holder{}
	h.cur.Store(EmptySnapshot())
	return h
}

// Current returns the currently published snapshot. Never nil.
func (h *Holder) Current() *Snapshot {
	return h.cur.Load()
}

// Publish atomically replaces the current snapshot.
func (h *Holder) Publish(s *Snapshot) {
	h.cur.Store(s)
}
