// Package events aggregates the live event streams of many clusters into
// per-cluster snapshots from which the dashboard derives cluster status.
package events

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/klog/v2"
)

// CancelFunc tears a subscription down. It may be called more than once.
type CancelFunc func()

// Source delivers the events of one cluster. onData replaces the cluster's
// event list, onError reports a failure of the stream. Callbacks may arrive on
// any goroutine until the returned CancelFunc is called.
type Source interface {
	Subscribe(clusterName string, onData func([]corev1.Event), onError func(error)) CancelFunc
}

type subscription struct {
	name   string
	cancel CancelFunc
	once   sync.Once
	closed bool // guarded by Watcher.mu
}

func (s *subscription) stop() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// Watcher keeps one subscription per requested cluster and publishes a new
// Snapshot after every callback
type Watcher struct {
	source Source

	// reconcileMu serializes Observe and Close
	reconcileMu sync.Mutex
	notifyMu    sync.Mutex

	mu        sync.Mutex
	requested mapset.Set[string]
	subs      map[string]*subscription
	snapshot  Snapshot
	listeners []func(Snapshot)
	closed    bool
}

// NewWatcher creates a watcher that subscribes through source
func NewWatcher(source Source) *Watcher {
	return &Watcher{
		source:    source,
		requested: mapset.NewSet[string](),
		subs:      make(map[string]*subscription),
		snapshot:  emptySnapshot(),
	}
}

// OnChange registers fn to be called with every newly published snapshot
func (w *Watcher) OnChange(fn func(Snapshot)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

// Snapshot returns the current aggregated state. The returned maps must not be modified.
func (w *Watcher) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshot
}

// Observe makes names the set of watched clusters. Order and duplicates do not
// matter; calling it again with an equal set does nothing.
func (w *Watcher) Observe(names []string) {
	w.reconcileMu.Lock()
	defer w.reconcileMu.Unlock()

	wanted := mapset.NewSet[string](names...)

	w.mu.Lock()
	if w.closed || wanted.Equal(w.requested) {
		w.mu.Unlock()
		return
	}

	removed := w.requested.Difference(wanted)
	added := wanted.Difference(w.requested)
	w.requested = wanted

	var stale []*subscription
	for _, name := range removed.ToSlice() {
		if sub, ok := w.subs[name]; ok {
			sub.closed = true
			delete(w.subs, name)
			stale = append(stale, sub)
		}
	}

	fresh := make([]*subscription, 0, added.Cardinality())
	reset := false
	for _, name := range added.ToSlice() {
		sub := &subscription{name: name}
		w.subs[name] = sub
		fresh = append(fresh, sub)
		// A cluster watched again must not inherit the old stream's state
		next, cleared := w.snapshot.withReset(name)
		w.snapshot = next
		reset = reset || cleared
	}
	w.mu.Unlock()

	if reset {
		w.notify()
	}

	// Sources may call back synchronously, so no lock is held from here on
	for _, sub := range stale {
		klog.V(2).InfoS("Stopping event subscription", "cluster", sub.name)
		sub.stop()
	}

	for _, sub := range fresh {
		w.subscribe(sub)
	}
}

func (w *Watcher) subscribe(sub *subscription) {
	klog.V(2).InfoS("Starting event subscription", "cluster", sub.name)

	cancel := w.source.Subscribe(
		sub.name,
		func(items []corev1.Event) { w.update(sub, items, nil) },
		func(err error) { w.update(sub, nil, err) },
	)

	w.mu.Lock()
	sub.cancel = cancel
	closed := sub.closed
	w.mu.Unlock()

	// Removed while Subscribe was running
	if closed {
		sub.stop()
	}
}

func (w *Watcher) update(sub *subscription, items []corev1.Event, err error) {
	w.mu.Lock()
	if sub.closed || w.subs[sub.name] != sub {
		w.mu.Unlock()
		klog.V(4).InfoS("Dropping late event callback", "cluster", sub.name)
		return
	}

	if err != nil {
		klog.V(1).InfoS("Event stream failed", "cluster", sub.name, "err", err)
		w.snapshot = w.snapshot.withError(sub.name, err)
	} else {
		w.snapshot = w.snapshot.withEvents(sub.name, items)
	}
	w.mu.Unlock()

	w.notify()
}

// notify hands the latest snapshot to the listeners. Concurrent updates are
// delivered one at a time, each with the snapshot current at delivery.
func (w *Watcher) notify() {
	w.notifyMu.Lock()
	defer w.notifyMu.Unlock()

	w.mu.Lock()
	snapshot := w.snapshot
	listeners := make([]func(Snapshot), len(w.listeners))
	copy(listeners, w.listeners)
	w.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}

// Close cancels every live subscription. The watcher cannot be reused.
func (w *Watcher) Close() {
	w.reconcileMu.Lock()
	defer w.reconcileMu.Unlock()

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	subs := make([]*subscription, 0, len(w.subs))
	for name, sub := range w.subs {
		sub.closed = true
		subs = append(subs, sub)
		delete(w.subs, name)
	}
	w.requested = mapset.NewSet[string]()
	w.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}
	klog.V(2).InfoS("Event watcher closed", "subscriptions", len(subs))
}
