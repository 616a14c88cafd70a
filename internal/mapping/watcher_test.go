package mapping

import (
	"context"
	"testing"
	"time"

	"github.com/pathwise/pathwise/api"
	"github.com/pathwise/pathwise/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, s store.Store) (*Watcher, *Holder) {
	t.Helper()
	h := NewHolder()
	w := NewWatcher(&Builder{Store: s}, h)
	w.Settle = 5 * time.Millisecond
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(w.Close)
	return w, h
}

func waitForGeneration(t *testing.T, w *Watcher, min uint64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for w.Generation() < min {
		if time.Now().After(deadline) {
			t.Fatalf("generation stuck at %d, want >= %d", w.Generation(), min)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestWatcherInitialBuild(t *testing.T) {
	s := mapFixture(t)
	w, h := startWatcher(t, s)

	assert.Equal(t, uint64(1), w.Generation())
	snap := h.Current()
	_, ok := snap.Vanity.Lookup("/shortcut")
	assert.True(t, ok)
}

func TestWatcherRebuildsOnVanityChange(t *testing.T) {
	s := mapFixture(t)
	w, h := startWatcher(t, s)

	s.Put(&store.Node{Path: "/content/late",
		Capabilities: []string{api.CapVanityPath},
		Properties: map[string][]string{
			api.PropVanityPath:  {"/shortcut"},
			api.PropVanityOrder: {"500"},
		}})

	waitForGeneration(t, w, 2)
	src, ok := h.Current().Vanity.Lookup("/shortcut")
	require.True(t, ok)
	assert.Equal(t, "/content/late", src)
}

func TestWatcherRebuildsOnVanityRemoval(t *testing.T) {
	s := mapFixture(t)
	w, h := startWatcher(t, s)

	s.RemoveProperty("/content/vanity", api.PropVanityPath)

	waitForGeneration(t, w, 2)
	_, ok := h.Current().Vanity.Lookup("/shortcut")
	assert.False(t, ok)
}

func TestWatcherRebuildsOnMapTreeChange(t *testing.T) {
	s := mapFixture(t)
	w, h := startWatcher(t, s)

	s.Put(&store.Node{Path: "/etc/map/http/new.host.org.80", Properties: map[string][]string{
		api.PropRedirectInternal: {"/content/new"},
	}})

	waitForGeneration(t, w, 2)
	assert.NotNil(t, h.Current().Rules.Lookup("http", "new.host.org", 80))
}

func TestWatcherIgnoresUnrelatedChange(t *testing.T) {
	s := mapFixture(t)
	w, _ := startWatcher(t, s)

	s.Put(&store.Node{Path: "/content/plain", Type: "pw:page"})

	// Give the loop a chance to mis-trigger.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, uint64(1), w.Generation())
}

func TestWatcherVanityReordering(t *testing.T) {
	s := mapFixture(t)
	w, h := startWatcher(t, s)

	lookup := func() string {
		src, _ := h.Current().Vanity.Lookup("/shortcut")
		return src
	}
	require.Equal(t, "/content/vanity", lookup())

	// A competing entry with a higher order takes over.
	gen := w.Generation()
	s.Put(&store.Node{Path: "/content/b",
		Capabilities: []string{api.CapVanityPath},
		Properties: map[string][]string{
			api.PropVanityPath:  {"/shortcut"},
			api.PropVanityOrder: {"200"},
		}})
	waitForGeneration(t, w, gen+1)
	assert.Equal(t, "/content/b", lookup())

	// Removing it falls back to the original entry.
	gen = w.Generation()
	s.RemoveProperty("/content/b", api.PropVanityPath)
	waitForGeneration(t, w, gen+1)
	assert.Equal(t, "/content/vanity", lookup())

	// Re-adding restores it.
	gen = w.Generation()
	s.SetProperty("/content/b", api.PropVanityPath, "/shortcut")
	waitForGeneration(t, w, gen+1)
	assert.Equal(t, "/content/b", lookup())

	// Raising the original's order above 200 hands the path back...
	gen = w.Generation()
	s.SetProperty("/content/vanity", api.PropVanityOrder, "300")
	waitForGeneration(t, w, gen+1)
	assert.Equal(t, "/content/vanity", lookup())

	// ...and lowering it again returns it to the competitor.
	gen = w.Generation()
	s.SetProperty("/content/vanity", api.PropVanityOrder, "100")
	waitForGeneration(t, w, gen+1)
	assert.Equal(t, "/content/b", lookup())
}

func TestWatcherConcurrentReadsDuringRebuild(t *testing.T) {
	s := mapFixture(t)
	w, h := startWatcher(t, s)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			snap := h.Current()
			// A snapshot is always complete: the table pointers are set
			// even while a rebuild is in flight.
			assert.NotNil(t, snap.Vanity)
			assert.NotNil(t, snap.Rules)
			assert.NotNil(t, snap.Alias)
		}
	}()
	for i := 0; i < 20; i++ {
		s.SetProperty("/content/vanity", api.PropVanityOrder, "7")
	}
	<-done
	waitForGeneration(t, w, 2)
}
