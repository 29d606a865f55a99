package cluster

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"k8s.io/klog/v2"

	"github.com/celikgo/autoz-dashboard/internal/config"
)

var (
	// ErrClusterExists is returned when adding a name that is already configured
	ErrClusterExists = errors.New("cluster already exists")
	// ErrStaticCluster is returned when removing a cluster that came from the configuration file
	ErrStaticCluster = errors.New("cluster is not a dynamic cluster")
)

// Provider owns the current cluster set. Static clusters come from the
// configuration file, dynamic ones are added at runtime. Subscribers are told
// about every change.
type Provider struct {
	path string

	mu          sync.RWMutex
	static      []Cluster
	dynamic     []Cluster
	current     *Set
	nextID      int
	subscribers map[int]func(*Set)

	notifyMu sync.Mutex
}

// NewProvider creates a provider seeded with cfg. path is the file that
// Reload and Watch read from; it may be empty when the provider is not backed by a file.
func NewProvider(cfg *config.MultiClusterConfig, path string) *Provider {
	p := &Provider{
		path:        path,
		static:      FromConfig(cfg).List(),
		subscribers: make(map[int]func(*Set)),
	}
	p.current = NewSet(p.static...)
	return p
}

// Clusters returns the current cluster set
func (p *Provider) Clusters() *Set {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Subscribe registers fn to be called with the new set after every change.
// The returned function removes the subscription.
func (p *Provider) Subscribe(fn func(*Set)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subscribers[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subscribers, id)
		p.mu.Unlock()
	}
}

// AddCluster adds a dynamic cluster
func (p *Provider) AddCluster(cc config.ClusterConfig) (Cluster, error) {
	cc.Source = config.SourceDynamic
	cc.IsDefault = false
	if err := config.ValidateCluster(cc); err != nil {
		return Cluster{}, err
	}
	c := FromClusterConfig(cc)

	p.mu.Lock()
	if _, exists := p.current.Get(c.Name); exists {
		p.mu.Unlock()
		return Cluster{}, fmt.Errorf("cluster '%s': %w", c.Name, ErrClusterExists)
	}
	p.dynamic = append(p.dynamic, c)
	p.rebuildLocked()
	p.mu.Unlock()

	klog.InfoS("Added dynamic cluster", "cluster", c.Name, "server", c.Server)
	p.publish()
	return c, nil
}

// RemoveCluster deletes a dynamic cluster. Static clusters can only be removed
// by editing the configuration file.
func (p *Provider) RemoveCluster(name string) error {
	p.mu.Lock()
	c, ok := p.current.Get(name)
	if !ok {
		p.mu.Unlock()
		return fmt.Errorf("cluster '%s': %w", name, ErrClusterNotFound)
	}
	if !c.IsDynamic() {
		p.mu.Unlock()
		return fmt.Errorf("cluster '%s': %w", name, ErrStaticCluster)
	}

	kept := make([]Cluster, 0, len(p.dynamic))
	for _, d := range p.dynamic {
		if d.Name != name {
			kept = append(kept, d)
		}
	}
	p.dynamic = kept
	p.rebuildLocked()
	p.mu.Unlock()

	klog.InfoS("Removed dynamic cluster", "cluster", name)
	p.publish()
	return nil
}

// Reload re-reads the configuration file. On error the current set is kept.
func (p *Provider) Reload() error {
	if p.path == "" {
		return nil
	}
	cfg, err := config.LoadConfig(p.path)
	if err != nil {
		return err
	}

	static := FromConfig(cfg)

	p.mu.Lock()
	p.static = static.List()
	// A static entry takes over a dynamic cluster of the same name for good
	kept := make([]Cluster, 0, len(p.dynamic))
	for _, d := range p.dynamic {
		if _, shadowed := static.Get(d.Name); shadowed {
			klog.InfoS("Dropping dynamic cluster replaced by configuration", "cluster", d.Name)
			continue
		}
		kept = append(kept, d)
	}
	p.dynamic = kept
	p.rebuildLocked()
	p.mu.Unlock()

	klog.V(1).InfoS("Reloaded cluster configuration", "path", p.path, "clusters", p.Clusters().Len())
	p.publish()
	return nil
}

// Watch reloads the configuration whenever its file changes, until ctx is done
func (p *Provider) Watch(ctx context.Context) error {
	if p.path == "" {
		return fmt.Errorf("provider is not backed by a configuration file")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory so editors that replace the file are picked up too
	target := filepath.Clean(p.path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := p.Reload(); err != nil {
				klog.ErrorS(err, "Ignoring invalid configuration change", "path", p.path)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			klog.ErrorS(err, "Configuration watch error", "path", p.path)
		}
	}
}

// rebuildLocked recomputes the current set. Static clusters come first.
func (p *Provider) rebuildLocked() {
	clusters := make([]Cluster, 0, len(p.static)+len(p.dynamic))
	clusters = append(clusters, p.static...)
	clusters = append(clusters, p.dynamic...)
	p.current = NewSet(clusters...)
}

func (p *Provider) publish() {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	p.mu.RLock()
	set := p.current
	subscribers := make([]func(*Set), 0, len(p.subscribers))
	for _, fn := range p.subscribers {
		subscribers = append(subscribers, fn)
	}
	p.mu.RUnlock()

	for _, fn := range subscribers {
		fn(set)
	}
}
