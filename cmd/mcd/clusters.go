package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/celikgo/autoz-dashboard/internal/cluster"
)

// newClustersCmd creates the clusters command and all its subcommands
func newClustersCmd() *cobra.Command {
	clustersCmd := &cobra.Command{
		Use:   "clusters",
		Short: "Manage and view cluster information",
		Long: `The clusters command provides information about all configured Kubernetes clusters.
Use this to check cluster connectivity and view how each cluster is configured.

Examples:
  mcd clusters list                    # Show all clusters with their connection status
  mcd clusters test                    # Test connectivity to all clusters
  mcd clusters list --output=json      # Show cluster info in JSON format`,
	}

	clustersCmd.AddCommand(newClustersListCmd())
	clustersCmd.AddCommand(newClustersTestCmd())

	return clustersCmd
}

// newClustersListCmd creates the 'clusters list' subcommand
func newClustersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configured clusters and their connection status",
		Long: `Display information about all clusters defined in your configuration file,
in configuration order. Every cluster is contacted once to report whether it is reachable.

The output shows:
- Cluster name, server and source (static from the file, or dynamic)
- Environment and region
- Connection status and whether it's marked as the default cluster
- Any error message if the connection failed`,

		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clusterManager.ConnectAll(); err != nil {
				klog.V(1).InfoS("Some clusters are unavailable", "err", err)
			}

			clusters := clusterManager.ListClusters()
			output := struct {
				Clusters []cluster.ConnectionStatus `json:"clusters"`
				Count    int                        `json:"count"`
			}{
				Clusters: clusters,
				Count:    len(clusters),
			}

			return printOutput(output, func(w *tabwriter.Writer) {
				outputClustersTable(w, clusters)
			})
		},
	}
}

// newClustersTestCmd creates the 'clusters test' subcommand
func newClustersTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Test connectivity to all configured clusters",
		Long: `Actively test the connection to each configured cluster by asking its API server
for its version. This is useful for diagnosing connectivity issues or verifying that
cluster credentials are working.`,

		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Testing cluster connections...")

			if err := clusterManager.TestConnections(); err != nil {
				fmt.Printf("❌ Connection test failed:\n%v\n", err)
				return nil // Don't return error to avoid double error printing
			}

			fmt.Println("✅ All cluster connections are healthy")
			return nil
		},
	}
}

// outputClustersTable displays cluster information in a human-readable table format
func outputClustersTable(w *tabwriter.Writer, clusters []cluster.ConnectionStatus) {
	fmt.Fprintln(w, "NAME\tSOURCE\tENVIRONMENT\tREGION\tSTATUS\tDEFAULT\tERROR")
	fmt.Fprintln(w, "----\t------\t-----------\t------\t------\t-------\t-----")

	for _, c := range clusters {
		status := "❌ Disconnected"
		if c.Connected {
			status = "✅ Connected"
		}

		defaultMarker := ""
		if c.IsDefault {
			defaultMarker = "⭐ Yes"
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.Name,
			c.Source,
			getValueOrDefault(c.Environment, "-"),
			getValueOrDefault(c.Region, "-"),
			status,
			defaultMarker,
			getValueOrDefault(truncate(c.Error, 50), "-"),
		)
	}
}
