package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"k8s.io/klog/v2"
	"sigs.k8s.io/yaml"
)

const (
	DefaultMaxRecent    = 3
	DefaultPollInterval = 10
	DefaultTimeout      = 30
	DefaultServerAddr   = ":8080"
)

// LoadConfig reads the multi-cluster configuration from a YAML file
func LoadConfig(configPath string) (*MultiClusterConfig, error) {
	// If no config path provided, try to find it in common locations
	if configPath == "" {
		configPath = FindDefaultConfigPath()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	config, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}

	klog.V(2).InfoS("Loaded configuration", "path", configPath, "clusters", len(config.Clusters))
	return config, nil
}

// Parse decodes, validates and defaults a configuration document
func Parse(data []byte) (*MultiClusterConfig, error) {
	var config MultiClusterConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	setDefaults(&config)

	return &config, nil
}

// FindDefaultConfigPath looks for config file in standard locations
// This follows the XDG specification and common practices
func FindDefaultConfigPath() string {
	// Check for config in current directory first
	if _, err := os.Stat("./mcd-config.yaml"); err == nil {
		return "./mcd-config.yaml"
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, ".mcd", "config.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" && homeDir != "" {
		configDir = filepath.Join(homeDir, ".config")
	}

	if configDir != "" {
		configPath := filepath.Join(configDir, "mcd", "config.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}

	// Return default path if nothing found
	if homeDir != "" {
		return filepath.Join(homeDir, ".mcd", "config.yaml")
	}

	return "./mcd-config.yaml"
}

// ExpandHome resolves a leading "~/" against the user's home directory
func ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot expand tilde in path: %w", err)
	}
	return filepath.Join(homeDir, path[2:]), nil
}

// ValidateCluster checks the fields of a single cluster entry
func ValidateCluster(cluster ClusterConfig) error {
	if cluster.Name == "" {
		return fmt.Errorf("cluster has no name")
	}

	if cluster.Context == "" && cluster.Server == "" {
		return fmt.Errorf("cluster '%s' has neither a context nor a server", cluster.Name)
	}

	if cluster.Source != "" && cluster.Source != SourceStatic && cluster.Source != SourceDynamic {
		return fmt.Errorf("cluster '%s' has unknown source %q", cluster.Name, cluster.Source)
	}

	// Validate kubeconfig path exists if specified
	if cluster.KubeConfig != "" {
		path, err := ExpandHome(cluster.KubeConfig)
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("kubeconfig file not found for cluster '%s': %s", cluster.Name, cluster.KubeConfig)
		}
	}

	return nil
}

// validateConfig ensures the configuration makes sense
func validateConfig(config *MultiClusterConfig) error {
	if len(config.Clusters) == 0 {
		return fmt.Errorf("no clusters defined in configuration")
	}

	clusterNames := make(map[string]bool)
	defaultCount := 0

	for i, cluster := range config.Clusters {
		if cluster.Name == "" {
			return fmt.Errorf("cluster at index %d has no name", i)
		}

		if err := ValidateCluster(cluster); err != nil {
			return err
		}

		if clusterNames[cluster.Name] {
			return fmt.Errorf("duplicate cluster name: %s", cluster.Name)
		}
		clusterNames[cluster.Name] = true

		if cluster.IsDefault {
			defaultCount++
		}
	}

	if config.Home.MaxRecent < 0 {
		return fmt.Errorf("home.maxRecent must not be negative")
	}

	if config.Home.PollInterval < 0 {
		return fmt.Errorf("home.pollInterval must not be negative")
	}

	// More than one default cluster is allowed, the first one wins
	if defaultCount > 1 {
		klog.Warning("Multiple clusters marked as default, using the first one")
	}

	return nil
}

// setDefaults fills in reasonable default values for missing configuration
func setDefaults(config *MultiClusterConfig) {
	if config.DefaultNamespace == "" {
		config.DefaultNamespace = "default"
	}

	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}

	if config.Home.MaxRecent == 0 {
		config.Home.MaxRecent = DefaultMaxRecent
	}

	if config.Home.PollInterval == 0 {
		config.Home.PollInterval = DefaultPollInterval
	}

	if config.Home.RecentFile == "" {
		if homeDir, err := os.UserHomeDir(); err == nil {
			config.Home.RecentFile = filepath.Join(homeDir, ".mcd", "recent.yaml")
		}
	} else if path, err := ExpandHome(config.Home.RecentFile); err == nil {
		config.Home.RecentFile = path
	}

	if config.Server.Addr == "" {
		config.Server.Addr = DefaultServerAddr
	}

	// Everything read from the file is static
	for i := range config.Clusters {
		if config.Clusters[i].Source == "" {
			config.Clusters[i].Source = SourceStatic
		}
	}

	// If no cluster is marked as default, mark the first one
	hasDefault := false
	for _, cluster := range config.Clusters {
		if cluster.IsDefault {
			hasDefault = true
			break
		}
	}

	if !hasDefault && len(config.Clusters) > 0 {
		config.Clusters[0].IsDefault = true
	}
}
