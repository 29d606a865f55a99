package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/celikgo/autoz-dashboard/internal/events"
)

// newEventsCmd creates the events command with its subcommands
func newEventsCmd() *cobra.Command {
	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "View Kubernetes events across clusters",
		Long: `The events command shows the events behind a cluster's warning status.
Events are fetched from all selected clusters in parallel and merged, newest first.
Clusters that cannot be queried are listed on top with the reason.

Examples:
  mcd events list                                  # All clusters, configured filter
  mcd events list --clusters=prod-us,prod-eu       # Only some clusters
  mcd events list --namespace=kube-system          # One namespace
  mcd events list --selector=type=Warning          # Only warnings`,
	}

	eventsCmd.AddCommand(newEventsListCmd())
	return eventsCmd
}

// newEventsListCmd creates the 'events list' subcommand
func newEventsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events across multiple clusters",
		RunE: func(cmd *cobra.Command, args []string) error {
			clusterNames, _ := cmd.Flags().GetStringSlice("clusters")
			namespace, _ := cmd.Flags().GetString("namespace")
			selector, _ := cmd.Flags().GetString("selector")

			if !cmd.Flags().Changed("namespace") {
				namespace = appConfig.Home.EventNamespace
			}
			if !cmd.Flags().Changed("selector") {
				selector = appConfig.Home.EventFieldSelector
			}

			if len(clusterNames) == 0 {
				clusterNames = clusterProvider.Clusters().Names()
			}
			for _, name := range clusterNames {
				if _, ok := clusterProvider.Clusters().Get(name); !ok {
					return fmt.Errorf("unknown cluster %q, known clusters: %s",
						name, strings.Join(clusterProvider.Clusters().Names(), ", "))
				}
			}

			lister := events.NewLister(clusterManager, time.Duration(appConfig.Timeout)*time.Second)
			rows := lister.ListEvents(cmd.Context(), clusterNames, namespace, selector)

			output := struct {
				Events []events.EventInfo `json:"events"`
				Count  int                `json:"count"`
			}{
				Events: rows,
				Count:  len(rows),
			}

			return printOutput(output, func(w *tabwriter.Writer) {
				outputEventsTable(w, rows)
			})
		},
	}

	cmd.Flags().StringSlice("clusters", nil, "clusters to query (default: all)")
	cmd.Flags().String("namespace", "", "namespace to query (default: from config, all namespaces if unset)")
	cmd.Flags().String("selector", "", "event field selector, e.g. type=Warning (default: from config)")
	return cmd
}

func outputEventsTable(w *tabwriter.Writer, rows []events.EventInfo) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No events found.")
		return
	}

	fmt.Fprintln(w, "CLUSTER\tNAMESPACE\tTYPE\tREASON\tOBJECT\tAGE\tMESSAGE")
	fmt.Fprintln(w, "-------\t---------\t----\t------\t------\t---\t-------")

	for _, row := range rows {
		if row.Error != "" {
			fmt.Fprintf(w, "%s\t-\t❌\t-\t-\t-\t%s\n", row.ClusterName, truncate(row.Error, 80))
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			row.ClusterName,
			getValueOrDefault(row.Namespace, "-"),
			getValueOrDefault(row.Type, "-"),
			getValueOrDefault(row.Reason, "-"),
			getValueOrDefault(row.Object, "-"),
			getValueOrDefault(row.Age, "-"),
			truncate(row.Message, 80),
		)
	}
}
