// Package home builds the dashboard home view: the quick access list of
// recently used clusters and the live status of every configured cluster.
package home

import (
	"fmt"
	"sync"

	"k8s.io/klog/v2"

	"github.com/celikgo/autoz-dashboard/internal/cluster"
	"github.com/celikgo/autoz-dashboard/internal/events"
	"github.com/celikgo/autoz-dashboard/internal/recent"
)

// ClusterProvider supplies the configured clusters and announces changes
type ClusterProvider interface {
	Clusters() *cluster.Set
	Subscribe(fn func(*cluster.Set)) func()
}

// Row is one line of the all-clusters table
type Row struct {
	cluster.Cluster
	Status  events.Status `json:"status"`
	Message string        `json:"message"`
	Events  int           `json:"events"`
}

// View is everything the home page shows
type View struct {
	Recent   []cluster.Cluster `json:"recent"`
	Clusters []Row             `json:"clusters"`
}

// Dashboard keeps the event watcher in step with the configured clusters
type Dashboard struct {
	provider  ClusterProvider
	recents   recent.Store
	watcher   *events.Watcher
	maxRecent int

	mu          sync.Mutex
	unsubscribe func()

	// observeMu orders the initial Observe against provider notifications
	observeMu sync.Mutex
}

// NewDashboard wires the collaborators together. Start must be called before
// the watcher follows configuration changes.
func NewDashboard(provider ClusterProvider, recents recent.Store, watcher *events.Watcher, maxRecent int) *Dashboard {
	return &Dashboard{
		provider:  provider,
		recents:   recents,
		watcher:   watcher,
		maxRecent: maxRecent,
	}
}

// Start subscribes to the current clusters and to every later change
func (d *Dashboard) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.unsubscribe != nil {
		return
	}

	d.unsubscribe = d.provider.Subscribe(func(set *cluster.Set) {
		klog.V(1).InfoS("Cluster set changed", "clusters", set.Len())
		d.observeCurrent()
	})
	d.observeCurrent()
}

// observeCurrent points the watcher at the provider's latest set. Reading the
// set under observeMu keeps an older set from overwriting a newer one.
func (d *Dashboard) observeCurrent() {
	d.observeMu.Lock()
	defer d.observeMu.Unlock()
	d.watcher.Observe(d.provider.Clusters().Names())
}

// Watcher exposes the underlying event watcher
func (d *Dashboard) Watcher() *events.Watcher {
	return d.watcher
}

// View computes the home view from the current clusters, recents and events
func (d *Dashboard) View() View {
	set := d.provider.Clusters()

	names, err := d.recents.Names()
	if err != nil {
		// The quick access list degrades to configuration order
		klog.ErrorS(err, "Failed to read recent clusters")
		names = nil
	}

	snapshot := d.watcher.Snapshot()
	rows := make([]Row, 0, set.Len())
	for _, c := range set.List() {
		status := snapshot.Status(c.Name)
		rows = append(rows, Row{
			Cluster: c,
			Status:  status.Status,
			Message: status.Message(),
			Events:  len(snapshot.Events[c.Name]),
		})
	}

	return View{
		Recent:   recent.Rank(set, names, d.maxRecent),
		Clusters: rows,
	}
}

// Visit records that the user opened a cluster
func (d *Dashboard) Visit(name string) error {
	if _, ok := d.provider.Clusters().Get(name); !ok {
		return fmt.Errorf("cluster '%s': %w", name, cluster.ErrClusterNotFound)
	}
	return d.recents.Touch(name)
}

// Close stops following configuration changes and tears down every event subscription
func (d *Dashboard) Close() {
	d.mu.Lock()
	if d.unsubscribe != nil {
		d.unsubscribe()
		d.unsubscribe = nil
	}
	d.mu.Unlock()

	d.watcher.Close()
}
