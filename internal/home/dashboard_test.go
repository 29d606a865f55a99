package home

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"

	"github.com/celikgo/autoz-dashboard/internal/cluster"
	"github.com/celikgo/autoz-dashboard/internal/config"
	"github.com/celikgo/autoz-dashboard/internal/events"
	"github.com/celikgo/autoz-dashboard/internal/recent"
)

type stream struct {
	onData  func([]corev1.Event)
	onError func(error)
}

type stubSource struct {
	mu        sync.Mutex
	streams   map[string]stream
	cancelled map[string]int
}

func newStubSource() *stubSource {
	return &stubSource{streams: map[string]stream{}, cancelled: map[string]int{}}
}

func (s *stubSource) Subscribe(name string, onData func([]corev1.Event), onError func(error)) events.CancelFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streams[name] = stream{onData: onData, onError: onError}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.cancelled[name]++
	}
}

func (s *stubSource) data(name string, items ...corev1.Event) {
	s.mu.Lock()
	fn := s.streams[name].onData
	s.mu.Unlock()
	fn(items)
}

func (s *stubSource) fail(name string, err error) {
	s.mu.Lock()
	fn := s.streams[name].onError
	s.mu.Unlock()
	fn(err)
}

func (s *stubSource) watched() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for name := range s.streams {
		if s.cancelled[name] == 0 {
			names = append(names, name)
		}
	}
	return names
}

func newProvider(names ...string) *cluster.Provider {
	cfg := &config.MultiClusterConfig{}
	for _, name := range names {
		cfg.Clusters = append(cfg.Clusters, config.ClusterConfig{Name: name, Context: name})
	}
	return cluster.NewProvider(cfg, "")
}

func rowStatuses(v View) map[string]events.Status {
	out := map[string]events.Status{}
	for _, row := range v.Clusters {
		out[row.Name] = row.Status
	}
	return out
}

func recentNames(v View) []string {
	var out []string
	for _, c := range v.Recent {
		out = append(out, c.Name)
	}
	return out
}

func TestViewCombinesRankingAndStatus(t *testing.T) {
	provider := newProvider("A", "B", "C", "D")
	store := recent.NewMemoryStore(3)
	src := newStubSource()
	d := NewDashboard(provider, store, events.NewWatcher(src), 3)
	d.Start()
	defer d.Close()

	require.NoError(t, d.Visit("A"))
	require.NoError(t, d.Visit("C"))

	src.data("B", corev1.Event{Type: corev1.EventTypeWarning})
	src.fail("D", errors.New("unauthorized"))

	v := d.View()
	assert.Equal(t, []string{"C", "A", "B"}, recentNames(v))
	assert.Equal(t, map[string]events.Status{
		"A": events.StatusSuccess,
		"B": events.StatusWarning,
		"C": events.StatusSuccess,
		"D": events.StatusError,
	}, rowStatuses(v))

	require.Len(t, v.Clusters, 4)
	assert.Equal(t, "D", v.Clusters[3].Name)
	assert.Equal(t, "unauthorized", v.Clusters[3].Message)
	assert.Equal(t, 1, v.Clusters[1].Events)
}

func TestVisitUnknownCluster(t *testing.T) {
	d := NewDashboard(newProvider("A"), recent.NewMemoryStore(3), events.NewWatcher(newStubSource()), 3)

	err := d.Visit("ghost")
	assert.ErrorIs(t, err, cluster.ErrClusterNotFound)
}

func TestDashboardFollowsClusterChanges(t *testing.T) {
	provider := newProvider("A", "B")
	src := newStubSource()
	d := NewDashboard(provider, recent.NewMemoryStore(3), events.NewWatcher(src), 3)
	d.Start()
	defer d.Close()

	assert.ElementsMatch(t, []string{"A", "B"}, src.watched())

	_, err := provider.AddCluster(config.ClusterConfig{Name: "lab", Server: "https://lab:6443"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A", "B", "lab"}, src.watched())

	src.data("lab", corev1.Event{})
	require.NoError(t, provider.RemoveCluster("lab"))
	assert.ElementsMatch(t, []string{"A", "B"}, src.watched())

	v := d.View()
	assert.Len(t, v.Clusters, 2)
}

func TestCloseCancelsSubscriptions(t *testing.T) {
	provider := newProvider("A", "B")
	src := newStubSource()
	d := NewDashboard(provider, recent.NewMemoryStore(3), events.NewWatcher(src), 3)
	d.Start()
	d.Close()

	assert.Empty(t, src.watched())

	// No longer following the provider
	_, err := provider.AddCluster(config.ClusterConfig{Name: "lab", Server: "https://lab:6443"})
	require.NoError(t, err)
	assert.Empty(t, src.watched())
}

type brokenStore struct{}

func (brokenStore) Names() ([]string, error) { return nil, errors.New("disk full") }
func (brokenStore) Touch(string) error       { return errors.New("disk full") }

func TestViewSurvivesBrokenRecentStore(t *testing.T) {
	d := NewDashboard(newProvider("A", "B", "C", "D"), brokenStore{}, events.NewWatcher(newStubSource()), 2)

	v := d.View()
	assert.Equal(t, []string{"A", "B"}, recentNames(v))
}

// lateProvider publishes a newer cluster set from another goroutine the first
// time the dashboard reads its clusters after subscribing
type lateProvider struct {
	mu       sync.Mutex
	current  *cluster.Set
	next     *cluster.Set
	fns      []func(*cluster.Set)
	switched bool
	done     chan struct{}
}

func (p *lateProvider) Clusters() *cluster.Set {
	p.mu.Lock()
	defer p.mu.Unlock()

	seen := p.current
	if !p.switched && len(p.fns) > 0 {
		p.switched = true
		p.current = p.next
		fns := append([]func(*cluster.Set){}, p.fns...)
		go func() {
			defer close(p.done)
			for _, fn := range fns {
				fn(p.next)
			}
		}()
	}
	return seen
}

func (p *lateProvider) Subscribe(fn func(*cluster.Set)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fns = append(p.fns, fn)
	return func() {}
}

func TestStartEndsOnNewestClusterSet(t *testing.T) {
	provider := &lateProvider{
		current: cluster.NewSet(cluster.Cluster{Name: "old"}),
		next:    cluster.NewSet(cluster.Cluster{Name: "new"}),
		done:    make(chan struct{}),
	}
	src := newStubSource()
	d := NewDashboard(provider, recent.NewMemoryStore(3), events.NewWatcher(src), 3)
	d.Start()
	defer d.Close()

	<-provider.done
	assert.Equal(t, []string{"new"}, src.watched())
}
