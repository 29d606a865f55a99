package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/celikgo/autoz-dashboard/internal/cluster"
	"github.com/celikgo/autoz-dashboard/internal/recent"
)

// newRecentCmd creates the recent command which manages the quick access list
func newRecentCmd() *cobra.Command {
	recentCmd := &cobra.Command{
		Use:   "recent",
		Short: "Manage the recently used clusters",
		Long: `The recent command shows and updates the list of recently used clusters that
drives the quick access list of 'mcd home'. The list is stored in the file named by
home.recentFile in the configuration (default ~/.mcd/recent.yaml).`,
	}

	recentCmd.AddCommand(newRecentListCmd())
	recentCmd.AddCommand(newRecentTouchCmd())
	return recentCmd
}

func newRecentListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the quick access list",
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := newRecentStore().Names()
			if err != nil {
				return err
			}

			ranked := recent.Rank(clusterProvider.Clusters(), names, appConfig.Home.MaxRecent)
			output := struct {
				Recent  []string          `json:"recent"`
				Ranked  []cluster.Cluster `json:"ranked"`
				Maximum int               `json:"maximum"`
			}{
				Recent:  names,
				Ranked:  ranked,
				Maximum: appConfig.Home.MaxRecent,
			}

			return printOutput(output, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "#\tNAME\tSERVER\tENVIRONMENT")
				for i, c := range ranked {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, c.Name,
						getValueOrDefault(c.Server, "-"), getValueOrDefault(c.Environment, "-"))
				}
			})
		},
	}
}

func newRecentTouchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "touch NAME",
		Short: "Mark a cluster as the most recently used",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if _, ok := clusterProvider.Clusters().Get(name); !ok {
				return fmt.Errorf("cluster '%s': %w", name, cluster.ErrClusterNotFound)
			}
			if err := newRecentStore().Touch(name); err != nil {
				return err
			}
			fmt.Printf("✅ %s is now the most recently used cluster\n", name)
			return nil
		},
	}
}
