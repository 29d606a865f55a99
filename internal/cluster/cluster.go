package cluster

import (
	"github.com/celikgo/autoz-dashboard/internal/config"
)

// Cluster is a configured Kubernetes cluster the dashboard can connect to
type Cluster struct {
	Name        string `json:"name"`
	Server      string `json:"server,omitempty"`
	Context     string `json:"context,omitempty"`
	KubeConfig  string `json:"kubeconfig,omitempty"`
	Environment string `json:"environment,omitempty"`
	Region      string `json:"region,omitempty"`
	IsDefault   bool   `json:"isDefault,omitempty"`
	Source      string `json:"source"`
}

// IsDynamic reports whether the cluster was added at runtime
func (c Cluster) IsDynamic() bool {
	return c.Source == config.SourceDynamic
}

// FromClusterConfig converts a configuration entry into a Cluster
func FromClusterConfig(cc config.ClusterConfig) Cluster {
	source := cc.Source
	if source == "" {
		source = config.SourceStatic
	}
	return Cluster{
		Name:        cc.Name,
		Server:      cc.Server,
		Context:     cc.Context,
		KubeConfig:  cc.KubeConfig,
		Environment: cc.Environment,
		Region:      cc.Region,
		IsDefault:   cc.IsDefault,
		Source:      source,
	}
}

// Set is an immutable, insertion ordered mapping of cluster name to Cluster.
// The zero value and a nil *Set are both empty.
type Set struct {
	names  []string
	byName map[string]Cluster
}

// NewSet builds a Set keeping the given order. When a name repeats, the first
// entry wins.
func NewSet(clusters ...Cluster) *Set {
	s := &Set{
		names:  make([]string, 0, len(clusters)),
		byName: make(map[string]Cluster, len(clusters)),
	}
	for _, c := range clusters {
		if _, ok := s.byName[c.Name]; ok {
			continue
		}
		s.names = append(s.names, c.Name)
		s.byName[c.Name] = c
	}
	return s
}

// FromConfig builds a Set from the clusters of a loaded configuration
func FromConfig(cfg *config.MultiClusterConfig) *Set {
	if cfg == nil {
		return NewSet()
	}
	clusters := make([]Cluster, 0, len(cfg.Clusters))
	for _, cc := range cfg.Clusters {
		clusters = append(clusters, FromClusterConfig(cc))
	}
	return NewSet(clusters...)
}

// Len returns the number of clusters
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// Get looks a cluster up by name
func (s *Set) Get(name string) (Cluster, bool) {
	if s == nil {
		return Cluster{}, false
	}
	c, ok := s.byName[name]
	return c, ok
}

// Names returns the cluster names in order
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.names...)
}

// List returns the clusters in order
func (s *Set) List() []Cluster {
	if s == nil {
		return nil
	}
	clusters := make([]Cluster, 0, len(s.names))
	for _, name := range s.names {
		clusters = append(clusters, s.byName[name])
	}
	return clusters
}

// With returns a new Set with c appended
func (s *Set) With(c Cluster) *Set {
	return NewSet(append(s.List(), c)...)
}

// Without returns a new Set lacking the named cluster
func (s *Set) Without(name string) *Set {
	clusters := s.List()
	kept := clusters[:0]
	for _, c := range clusters {
		if c.Name != name {
			kept = append(kept, c)
		}
	}
	return NewSet(kept...)
}
