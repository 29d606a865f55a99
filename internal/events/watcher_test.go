package events

import (
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// fakeSource records subscriptions and lets tests fire callbacks by hand
type fakeSource struct {
	mu         sync.Mutex
	subscribed []string
	cancelled  map[string]int
	live       map[string]*fakeStream
}

type fakeStream struct {
	onData  func([]corev1.Event)
	onError func(error)
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		cancelled: map[string]int{},
		live:      map[string]*fakeStream{},
	}
}

func (f *fakeSource) Subscribe(name string, onData func([]corev1.Event), onError func(error)) CancelFunc {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed = append(f.subscribed, name)
	f.live[name] = &fakeStream{onData: onData, onError: onError}
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.cancelled[name]++
	}
}

func (f *fakeSource) stream(t *testing.T, name string) *fakeStream {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.live[name]
	require.True(t, ok, "no subscription for %s", name)
	return s
}

func (f *fakeSource) subscriptions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.subscribed...)
	sort.Strings(out)
	return out
}

func (f *fakeSource) cancellations() map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]int{}
	for k, v := range f.cancelled {
		out[k] = v
	}
	return out
}

func event(name string) corev1.Event {
	return corev1.Event{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "default"},
		Type:       corev1.EventTypeWarning,
		Reason:     "BackOff",
	}
}

func TestObserveSubscribesOncePerCluster(t *testing.T) {
	src := newFakeSource()
	w := NewWatcher(src)
	defer w.Close()

	w.Observe([]string{"a", "b"})
	w.Observe([]string{"b", "a", "a"})

	assert.Equal(t, []string{"a", "b"}, src.subscriptions())
	assert.Empty(t, src.cancellations())
}

func TestObserveReconcilesChanges(t *testing.T) {
	src := newFakeSource()
	w := NewWatcher(src)
	defer w.Close()

	w.Observe([]string{"a", "b"})
	w.Observe([]string{"b", "c"})

	assert.Equal(t, []string{"a", "b", "c"}, src.subscriptions())
	assert.Equal(t, map[string]int{"a": 1}, src.cancellations())
}

func TestCallbacksReplaceState(t *testing.T) {
	src := newFakeSource()
	w := NewWatcher(src)
	defer w.Close()

	w.Observe([]string{"a"})
	a := src.stream(t, "a")

	a.onData([]corev1.Event{event("e1"), event("e2")})
	assert.Len(t, w.Snapshot().Events["a"], 2)

	a.onData([]corev1.Event{event("e3")})
	events := w.Snapshot().Events["a"]
	require.Len(t, events, 1)
	assert.Equal(t, "e3", events[0].Name)

	a.onError(errors.New("first"))
	a.onError(errors.New("second"))
	assert.EqualError(t, w.Snapshot().Errors["a"], "second")
}

func TestSnapshotsAreNeverMutated(t *testing.T) {
	src := newFakeSource()
	w := NewWatcher(src)
	defer w.Close()

	w.Observe([]string{"a", "b"})
	src.stream(t, "a").onData([]corev1.Event{event("e1")})
	before := w.Snapshot()

	src.stream(t, "b").onData([]corev1.Event{event("e2")})
	src.stream(t, "a").onError(errors.New("boom"))
	after := w.Snapshot()

	assert.Len(t, before.Events, 1)
	assert.Empty(t, before.Errors)
	assert.Len(t, after.Events, 2)
	assert.Len(t, after.Errors, 1)
}

func TestErrorIsIsolatedPerCluster(t *testing.T) {
	src := newFakeSource()
	w := NewWatcher(src)
	defer w.Close()

	w.Observe([]string{"a", "b"})
	src.stream(t, "a").onError(errors.New("forbidden"))

	s := w.Snapshot()
	assert.Equal(t, StatusError, s.Status("a").Status)
	assert.Equal(t, StatusSuccess, s.Status("b").Status)
	assert.Empty(t, src.cancellations(), "a failing stream is not torn down")
}

func TestLateCallbackAfterRemovalIsIgnored(t *testing.T) {
	src := newFakeSource()
	w := NewWatcher(src)
	defer w.Close()

	w.Observe([]string{"a", "b"})
	a := src.stream(t, "a")
	w.Observe([]string{"b"})

	before := w.Snapshot()
	a.onData([]corev1.Event{event("late")})
	a.onError(errors.New("late"))
	after := w.Snapshot()

	assert.Equal(t, before, after)
	_, hasEvents := after.Events["a"]
	_, hasError := after.Errors["a"]
	assert.False(t, hasEvents)
	assert.False(t, hasError)
}

func TestReaddedClusterGetsFreshSubscription(t *testing.T) {
	src := newFakeSource()
	w := NewWatcher(src)
	defer w.Close()

	w.Observe([]string{"a"})
	old := src.stream(t, "a")
	old.onData([]corev1.Event{event("stale")})
	old.onError(errors.New("old cluster unreachable"))
	w.Observe(nil)
	assert.Equal(t, StatusError, w.Snapshot().Status("a").Status, "removed clusters keep their last state")

	w.Observe([]string{"a"})
	current := src.stream(t, "a")
	assert.Equal(t, StatusSuccess, w.Snapshot().Status("a").Status)

	old.onData([]corev1.Event{event("old")})
	assert.Empty(t, w.Snapshot().Events["a"])

	current.onData(nil)
	assert.Equal(t, StatusSuccess, w.Snapshot().Status("a").Status)
	assert.Nil(t, w.Snapshot().Errors["a"])

	current.onData([]corev1.Event{event("new")})
	assert.Len(t, w.Snapshot().Events["a"], 1)
	assert.Equal(t, StatusWarning, w.Snapshot().Status("a").Status)
}

func TestReaddNotifiesListeners(t *testing.T) {
	src := newFakeSource()
	w := NewWatcher(src)
	defer w.Close()

	w.Observe([]string{"a"})
	src.stream(t, "a").onError(errors.New("unreachable"))
	w.Observe(nil)

	var got []Snapshot
	w.OnChange(func(s Snapshot) { got = append(got, s) })
	w.Observe([]string{"a"})

	require.Len(t, got, 1)
	assert.Equal(t, StatusSuccess, got[0].Status("a").Status)
}

func TestCloseCancelsEveryLiveSubscriptionOnce(t *testing.T) {
	src := newFakeSource()
	w := NewWatcher(src)

	w.Observe([]string{"a", "b", "c"})
	w.Observe([]string{"b", "c", "d"})
	w.Close()
	w.Close()

	assert.Equal(t, map[string]int{"a": 1, "b": 1, "c": 1, "d": 1}, src.cancellations())

	// Closed watchers ignore further requests
	w.Observe([]string{"e"})
	assert.NotContains(t, src.subscriptions(), "e")
}

func TestOnChangeListeners(t *testing.T) {
	src := newFakeSource()
	w := NewWatcher(src)
	defer w.Close()

	var got []Snapshot
	w.OnChange(func(s Snapshot) { got = append(got, s) })

	w.Observe([]string{"a"})
	src.stream(t, "a").onData([]corev1.Event{event("e1")})

	require.Len(t, got, 1)
	assert.Equal(t, StatusWarning, got[0].Status("a").Status)
}

// syncSource calls back from inside Subscribe
type syncSource struct{}

func (syncSource) Subscribe(name string, onData func([]corev1.Event), onError func(error)) CancelFunc {
	if name == "broken" {
		onError(errors.New("unreachable"))
	} else {
		onData([]corev1.Event{event(name)})
	}
	return func() {}
}

func TestSynchronousCallbacksAreRecorded(t *testing.T) {
	w := NewWatcher(syncSource{})
	defer w.Close()

	w.Observe([]string{"ok", "broken"})

	s := w.Snapshot()
	assert.Equal(t, StatusWarning, s.Status("ok").Status)
	assert.Equal(t, StatusError, s.Status("broken").Status)
}

func TestConcurrentObserveAndCallbacks(t *testing.T) {
	src := newFakeSource()
	w := NewWatcher(src)

	sets := [][]string{{"a", "b"}, {"b", "c"}, {"a"}, {"c", "d", "a"}}
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w.Observe(sets[i%len(sets)])
		}(i)
	}
	wg.Wait()

	w.Observe([]string{"z"})
	w.Close()

	// Every subscription ever made has been cancelled exactly once
	subscribed := map[string]int{}
	for _, name := range src.subscriptions() {
		subscribed[name]++
	}
	assert.Equal(t, subscribed, src.cancellations())
}
