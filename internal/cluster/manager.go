package cluster

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/klog/v2"

	"github.com/celikgo/autoz-dashboard/internal/config"
)

// ErrClusterNotFound is returned for names that are not part of the cluster set
var ErrClusterNotFound = errors.New("cluster not found")

// ClientFactory builds a Kubernetes client for a cluster
type ClientFactory func(c Cluster, timeout time.Duration) (*rest.Config, kubernetes.Interface, error)

// Manager hands out connections to the configured clusters. Clients are built
// on first use and dropped when their cluster leaves the set.
type Manager struct {
	clients   map[string]*ClusterClient // Map of cluster name to client
	clusters  *Set
	timeout   time.Duration
	newClient ClientFactory
	mutex     sync.RWMutex // Protects clients and clusters
}

// ClusterClient wraps a Kubernetes client with cluster metadata
type ClusterClient struct {
	Cluster    Cluster
	RestConfig *rest.Config
	Clientset  kubernetes.Interface
	Connected  bool
	Error      error
}

// ManagerOption customizes a Manager
type ManagerOption func(*Manager)

// WithClientFactory replaces the kubeconfig based client construction
func WithClientFactory(f ClientFactory) ManagerOption {
	return func(m *Manager) {
		m.newClient = f
	}
}

// NewManager creates a cluster manager for the given set. No connection is
// made until a client is requested or ConnectAll is called.
func NewManager(clusters *Set, timeout time.Duration, opts ...ManagerOption) *Manager {
	if timeout <= 0 {
		timeout = config.DefaultTimeout * time.Second
	}
	m := &Manager{
		clients:   make(map[string]*ClusterClient),
		clusters:  clusters,
		timeout:   timeout,
		newClient: defaultClientFactory,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Sync replaces the cluster set. Clients of removed or changed clusters are dropped.
func (m *Manager) Sync(clusters *Set) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for name, client := range m.clients {
		c, ok := clusters.Get(name)
		if !ok || c != client.Cluster {
			klog.V(2).InfoS("Dropping cluster client", "cluster", name)
			delete(m.clients, name)
		}
	}
	m.clusters = clusters
}

// Clientset returns the Kubernetes client for a cluster, building it if needed
func (m *Manager) Clientset(name string) (kubernetes.Interface, error) {
	client, err := m.client(name)
	if err != nil {
		return nil, err
	}
	if client.Clientset == nil {
		return nil, client.Error
	}
	return client.Clientset, nil
}

func (m *Manager) client(name string) (*ClusterClient, error) {
	m.mutex.RLock()
	client, ok := m.clients[name]
	c, known := m.clusters.Get(name)
	m.mutex.RUnlock()

	if !known {
		return nil, fmt.Errorf("cluster '%s': %w", name, ErrClusterNotFound)
	}
	if ok && client.Clientset != nil {
		return client, nil
	}

	client = m.buildClient(c)

	m.mutex.Lock()
	defer m.mutex.Unlock()
	// Another caller may have won the race, or the cluster may be gone
	if current, ok := m.clusters.Get(name); !ok || current != c {
		return nil, fmt.Errorf("cluster '%s': %w", name, ErrClusterNotFound)
	}
	if existing, ok := m.clients[name]; ok && existing.Clientset != nil {
		return existing, nil
	}
	m.clients[name] = client
	return client, nil
}

func (m *Manager) buildClient(c Cluster) *ClusterClient {
	client := &ClusterClient{Cluster: c}
	restConfig, clientset, err := m.newClient(c, m.timeout)
	if err != nil {
		client.Error = err
		return client
	}
	client.RestConfig = restConfig
	client.Clientset = clientset
	return client
}

// ConnectAll builds clients for every cluster in parallel and verifies each one
// by asking for the server version
func (m *Manager) ConnectAll() error {
	m.mutex.RLock()
	clusters := m.clusters.List()
	m.mutex.RUnlock()

	var wg sync.WaitGroup
	connectionResults := make(chan *ClusterClient, len(clusters))

	for _, c := range clusters {
		wg.Add(1)
		go func(c Cluster) {
			defer wg.Done()
			connectionResults <- m.connectToCluster(c)
		}(c)
	}

	go func() {
		wg.Wait()
		close(connectionResults)
	}()

	var connectionErrors []string
	successfulConnections := 0

	for client := range connectionResults {
		m.mutex.Lock()
		if current, ok := m.clusters.Get(client.Cluster.Name); ok && current == client.Cluster {
			m.clients[client.Cluster.Name] = client
		}
		m.mutex.Unlock()

		if client.Connected {
			successfulConnections++
			klog.V(1).InfoS("Connected to cluster", "cluster", client.Cluster.Name)
		} else {
			connectionErrors = append(connectionErrors,
				fmt.Sprintf("Failed to connect to %s: %v", client.Cluster.Name, client.Error))
			klog.ErrorS(client.Error, "Failed to connect to cluster", "cluster", client.Cluster.Name)
		}
	}

	if len(clusters) > 0 && successfulConnections == 0 {
		return fmt.Errorf("failed to connect to any clusters:\n%s",
			strings.Join(connectionErrors, "\n"))
	}

	return nil
}

// connectToCluster builds a client and tests it
func (m *Manager) connectToCluster(c Cluster) *ClusterClient {
	client := m.buildClient(c)
	if client.Error != nil {
		return client
	}

	if _, err := client.Clientset.Discovery().ServerVersion(); err != nil {
		client.Error = fmt.Errorf("failed to connect to cluster: %w", err)
		return client
	}

	client.Connected = true
	return client
}

// defaultClientFactory loads the cluster's kubeconfig context, or talks to the
// bare server address when no context is configured
func defaultClientFactory(c Cluster, timeout time.Duration) (*rest.Config, kubernetes.Interface, error) {
	var restConfig *rest.Config

	if c.Context == "" {
		restConfig = &rest.Config{Host: c.Server}
	} else {
		kubeconfigPath := c.KubeConfig
		if kubeconfigPath == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return nil, nil, fmt.Errorf("cannot determine home directory: %w", err)
			}
			kubeconfigPath = filepath.Join(homeDir, ".kube", "config")
		}

		kubeconfigPath, err := config.ExpandHome(kubeconfigPath)
		if err != nil {
			return nil, nil, err
		}

		overrides := &clientcmd.ConfigOverrides{CurrentContext: c.Context}
		if c.Server != "" {
			overrides.ClusterInfo.Server = c.Server
		}

		restConfig, err = clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
			&clientcmd.ClientConfigLoadingRules{ExplicitPath: kubeconfigPath},
			overrides,
		).ClientConfig()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load kubeconfig: %w", err)
		}
	}

	restConfig.Timeout = timeout

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Kubernetes client: %w", err)
	}

	return restConfig, clientset, nil
}

// ConnectionStatus represents the status of a cluster connection
type ConnectionStatus struct {
	Name        string `json:"name"`
	Server      string `json:"server,omitempty"`
	Environment string `json:"environment"`
	Region      string `json:"region"`
	Source      string `json:"source"`
	Connected   bool   `json:"connected"`
	IsDefault   bool   `json:"isDefault"`
	Error       string `json:"error,omitempty"`
}

// ListClusters returns the connection state of every cluster in configuration order
func (m *Manager) ListClusters() []ConnectionStatus {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var clusters []ConnectionStatus
	for _, c := range m.clusters.List() {
		status := ConnectionStatus{
			Name:        c.Name,
			Server:      c.Server,
			Environment: c.Environment,
			Region:      c.Region,
			Source:      c.Source,
			IsDefault:   c.IsDefault,
		}

		if client, ok := m.clients[c.Name]; ok {
			status.Connected = client.Connected
			if client.Error != nil {
				status.Error = client.Error.Error()
			}
		}

		clusters = append(clusters, status)
	}

	return clusters
}

// TestConnections checks every cluster and reports the ones that fail
func (m *Manager) TestConnections() error {
	m.mutex.RLock()
	names := m.clusters.Names()
	m.mutex.RUnlock()

	var errs []string
	for _, name := range names {
		clientset, err := m.Clientset(name)
		if err == nil {
			_, err = clientset.Discovery().ServerVersion()
		}

		m.mutex.Lock()
		if client, ok := m.clients[name]; ok {
			client.Connected = err == nil
			client.Error = err
		}
		m.mutex.Unlock()

		if err != nil {
			errs = append(errs, fmt.Sprintf("Cluster %s: %v", name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("connection test failed:\n%s", strings.Join(errs, "\n"))
	}

	return nil
}
