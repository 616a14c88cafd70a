package mapping

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pathwise/pathwise/api"
	"github.com/pathwise/pathwise/internal/store"
)

// Watcher owns write access to a Holder. It performs the initial build
// and then rebuilds in the background whenever the store reports a
// change that can affect the index. Readers are never blocked; a
// resolution in flight keeps using the snapshot it captured at entry.
type Watcher struct {
	builder *Builder
	holder  *Holder

	// Debounce window for bursts of change notifications.
	Settle time.Duration

	gen    atomic.Uint64
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewWatcher(b *Builder, h *Holder) *Watcher {
	return &Watcher{builder: b, holder: h, Settle: 50 * time.Millisecond}
}

// Start performs the initial synchronous build and, when the store is
// watchable, launches the background rebuild loop.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.rebuild(ctx); err != nil {
		return err
	}
	watchable, ok := w.builder.Store.(store.Watchable)
	if !ok {
		return nil
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	ch := watchable.Watch()
	w.wg.Add(1)
	go w.loop(loopCtx, ch)
	return nil
}

// Close stops the background loop and waits for it to drain.
func (w *Watcher) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

// Generation returns the generation of the last published snapshot.
// Tests poll this instead of sleeping a fixed interval.
func (w *Watcher) Generation() uint64 {
	return w.gen.Load()
}

func (w *Watcher) loop(ctx context.Context, ch <-chan store.Change) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-ch:
			if !ok {
				return
			}
			if !w.affects(c.Path) {
				continue
			}
			w.settle(ctx, ch)
			if err := w.rebuild(ctx); err != nil {
				log.Printf("mapping: rebuild after change at %s failed: %v", c.Path, err)
			}
		}
	}
}

// settle drains further notifications for the debounce window so a
// burst of saves triggers one rebuild.
func (w *Watcher) settle(ctx context.Context, ch <-chan store.Change) {
	if w.Settle <= 0 {
		return
	}
	timer := time.NewTimer(w.Settle)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
			// absorbed into this rebuild
		case <-timer.C:
			return
		}
	}
}

// affects consults the current snapshot's contributing-path index. A
// path no snapshot knows about may still introduce new vanity or alias
// entries, so an unknown path falls back to reading the node.
func (w *Watcher) affects(path string) bool {
	path = store.Normalize(path)
	snap := w.holder.Current()
	if snap.Contrib != nil && snap.Contrib.Affects(path) {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	n, err := w.builder.Store.GetNode(ctx, path)
	if err != nil {
		// Deleted or unreadable: rebuild, the index may have gone stale.
		return true
	}
	return len(n.PropertyValues(api.PropAlias)) > 0 ||
		len(n.PropertyValues(api.PropVanityPath)) > 0
}

func (w *Watcher) rebuild(ctx context.Context) error {
	snap, err := w.builder.Rebuild(ctx)
	if err != nil {
		return err
	}
	// Single writer: bump the counter after publishing so Generation
	// never reports a snapshot that is not yet visible.
	snap.Generation = w.gen.Load() + 1
	w.holder.Publish(snap)
	w.gen.Store(snap.Generation)
	return nil
}
