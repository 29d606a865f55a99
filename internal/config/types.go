package config

// Cluster sources. Static clusters come from the configuration file, dynamic
// ones are added at runtime and only live in memory.
const (
	SourceStatic  = "static"
	SourceDynamic = "dynamic_cluster"
)

// ClusterConfig represents a single Kubernetes cluster configuration
// It tells us where the cluster is, how to connect to it, and what to call it
type ClusterConfig struct {
	Name        string `yaml:"name" json:"name"`                         // Human-readable name like "prod-us-east"
	Context     string `yaml:"context,omitempty" json:"context"`         // kubectl context name
	KubeConfig  string `yaml:"kubeconfig,omitempty" json:"kubeconfig"`   // Path to kubeconfig file
	Server      string `yaml:"server,omitempty" json:"server"`           // API server address, used when no context is given
	Region      string `yaml:"region,omitempty" json:"region"`           // Optional: AWS region, Azure location, etc.
	Environment string `yaml:"environment,omitempty" json:"environment"` // dev, staging, prod
	IsDefault   bool   `yaml:"default,omitempty" json:"default"`         // Mark one as default cluster
	Source      string `yaml:"source,omitempty" json:"source"`           // static or dynamic_cluster
}

// HomeConfig controls the dashboard home view
type HomeConfig struct {
	MaxRecent          int    `yaml:"maxRecent,omitempty" json:"maxRecent"`                   // Size of the quick access list
	RecentFile         string `yaml:"recentFile,omitempty" json:"recentFile"`                 // Where recently visited cluster names are kept
	PollInterval       int    `yaml:"pollInterval,omitempty" json:"pollInterval"`             // Event poll interval in seconds
	EventNamespace     string `yaml:"eventNamespace,omitempty" json:"eventNamespace"`         // Empty means all namespaces
	EventFieldSelector string `yaml:"eventFieldSelector,omitempty" json:"eventFieldSelector"` // e.g. type=Warning
}

// ServerConfig holds the HTTP API settings
type ServerConfig struct {
	Addr string `yaml:"addr,omitempty" json:"addr"`
}

// MultiClusterConfig holds all our cluster configurations
type MultiClusterConfig struct {
	Clusters []ClusterConfig `yaml:"clusters" json:"clusters"`
	// Global settings that apply to all clusters
	DefaultNamespace string       `yaml:"defaultNamespace,omitempty" json:"defaultNamespace"`
	Timeout          int          `yaml:"timeout,omitempty" json:"timeout"` // Connection timeout in seconds
	Home             HomeConfig   `yaml:"home,omitempty" json:"home"`
	Server           ServerConfig `yaml:"server,omitempty" json:"server"`
}
