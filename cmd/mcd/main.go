package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"k8s.io/klog/v2"

	"github.com/celikgo/autoz-dashboard/internal/cluster"
	"github.com/celikgo/autoz-dashboard/internal/config"
	"github.com/celikgo/autoz-dashboard/internal/events"
	"github.com/celikgo/autoz-dashboard/internal/home"
	"github.com/celikgo/autoz-dashboard/internal/recent"
)

// Commands annotated with skipConfig run without a loaded configuration
const skipConfig = "skipConfig"

// Global variables to hold our core components
// These are initialized once in PersistentPreRunE and reused by all commands
var (
	appConfig       *config.MultiClusterConfig
	appConfigPath   string
	clusterProvider *cluster.Provider
	clusterManager  *cluster.Manager
	klogFlags       = flag.NewFlagSet("klog", flag.ExitOnError)
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mcd",
	Short: "Multi-Cluster Dashboard for Kubernetes",
	Long: `MCD (Multi-Cluster Dashboard) is the backend of a Kubernetes dashboard home view.

It keeps a quick access list of your most recently used clusters and watches the
events of every configured cluster to show whether it is healthy (success), has
warning events (warning), or cannot be reached (error).

Examples:
  mcd clusters list                          # Show all configured clusters
  mcd home                                   # Quick access list and cluster status
  mcd home --watch                           # Keep the status table up to date
  mcd events list --clusters=prod-us         # Events of one cluster
  mcd recent touch prod-us                   # Mark a cluster as recently used
  mcd serve                                  # Serve the home view over HTTP

Configuration:
  MCD looks for configuration in these locations (in order):
  1. ./mcd-config.yaml (current directory)
  2. ~/.mcd/config.yaml (user home directory)
  3. $XDG_CONFIG_HOME/mcd/config.yaml (XDG config directory)

  Use 'mcd config init' to create a sample configuration file.`,
	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if viper.GetBool("verbose") {
			if err := klogFlags.Set("v", "2"); err != nil {
				return fmt.Errorf("failed to raise log verbosity: %w", err)
			}
		}

		if cmd.Annotations[skipConfig] == "true" {
			return nil
		}

		appConfigPath = viper.GetString("config")
		if appConfigPath == "" {
			appConfigPath = config.FindDefaultConfigPath()
		}
		cfg, err := config.LoadConfig(appConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		appConfig = cfg

		clusterProvider = cluster.NewProvider(cfg, appConfigPath)
		clusterManager = cluster.NewManager(clusterProvider.Clusters(), time.Duration(cfg.Timeout)*time.Second)
		clusterProvider.Subscribe(clusterManager.Sync)

		return nil
	},
}

func main() {
	defer klog.Flush()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// klog flags (-v, --logtostderr, ...) live next to our own
	klog.InitFlags(klogFlags)
	rootCmd.PersistentFlags().AddGoFlagSet(klogFlags)

	rootCmd.PersistentFlags().String("config", "", "config file path (default: auto-detect)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable verbose output")
	rootCmd.PersistentFlags().String("output", "table", "output format (table, json, yaml)")

	for _, name := range []string{"config", "verbose", "output"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			// A flag name mismatch is a programming error
			panic(fmt.Sprintf("failed to bind %s flag: %v", name, err))
		}
	}

	rootCmd.AddCommand(newClustersCmd())
	rootCmd.AddCommand(newHomeCmd())
	rootCmd.AddCommand(newEventsCmd())
	rootCmd.AddCommand(newRecentCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newConfigCmd())
}

// initConfig reads ENV variables like MCD_OUTPUT
func initConfig() {
	viper.SetEnvPrefix("MCD")
	viper.AutomaticEnv()
}

// newRecentStore opens the recency store named in the configuration
func newRecentStore() recent.Store {
	if appConfig.Home.RecentFile == "" {
		return recent.NewMemoryStore(appConfig.Home.MaxRecent)
	}
	return recent.NewFileStore(appConfig.Home.RecentFile, appConfig.Home.MaxRecent)
}

// newDashboard builds the home view on top of the polling event source.
// The caller owns the returned dashboard and must Close it.
func newDashboard() *home.Dashboard {
	source := events.NewPollingSource(
		clusterManager,
		time.Duration(appConfig.Home.PollInterval)*time.Second,
		events.WithNamespace(appConfig.Home.EventNamespace),
		events.WithFieldSelector(appConfig.Home.EventFieldSelector),
		events.WithRequestTimeout(time.Duration(appConfig.Timeout)*time.Second),
	)

	return home.NewDashboard(clusterProvider, newRecentStore(), events.NewWatcher(source), appConfig.Home.MaxRecent)
}
