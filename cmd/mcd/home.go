package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/celikgo/autoz-dashboard/internal/cluster"
	"github.com/celikgo/autoz-dashboard/internal/events"
	"github.com/celikgo/autoz-dashboard/internal/home"
)

// newHomeCmd creates the 'home' command, the terminal version of the dashboard home page
func newHomeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "home",
		Short: "Show the quick access list and the live status of every cluster",
		Long: `Show the dashboard home view.

The quick access list holds the clusters you used most recently. When you have no
more clusters than fit in the list, all of them are shown in configuration order.

The status table watches the events of every cluster:
- success: no events were reported
- warning: the cluster reported events (see 'mcd events list')
- error:   the events could not be read, the message says why

Examples:
  mcd home                     # Wait for the first observation of every cluster
  mcd home --watch             # Redraw whenever a cluster's status changes
  mcd home --output=json       # Machine readable view`,

		RunE: func(cmd *cobra.Command, args []string) error {
			wait, _ := cmd.Flags().GetDuration("wait")
			watch, _ := cmd.Flags().GetBool("watch")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			dashboard := newDashboard()
			defer dashboard.Close()

			if watch {
				return watchHome(ctx, dashboard)
			}

			waitCtx, cancel := context.WithTimeout(ctx, wait)
			defer cancel()
			waitForObservations(waitCtx, dashboard)

			return printHome(dashboard.View())
		},
	}

	cmd.Flags().Duration("wait", 10*time.Second, "how long to wait for every cluster to report")
	cmd.Flags().Bool("watch", false, "keep running and redraw on every change")
	return cmd
}

// waitForObservations blocks until every configured cluster has reported
// events or an error at least once, or ctx is done
func waitForObservations(ctx context.Context, dashboard *home.Dashboard) {
	dashboard.Start()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if allObserved(dashboard) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func allObserved(dashboard *home.Dashboard) bool {
	snapshot := dashboard.Watcher().Snapshot()
	for _, name := range clusterProvider.Clusters().Names() {
		_, hasEvents := snapshot.Events[name]
		_, hasError := snapshot.Errors[name]
		if !hasEvents && !hasError {
			return false
		}
	}
	return true
}

func watchHome(ctx context.Context, dashboard *home.Dashboard) error {
	changes := make(chan struct{}, 1)
	notify := func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	}
	dashboard.Watcher().OnChange(func(events.Snapshot) { notify() })
	unsubscribe := clusterProvider.Subscribe(func(*cluster.Set) { notify() })
	defer unsubscribe()

	dashboard.Start()

	go func() {
		if err := clusterProvider.Watch(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: configuration changes will not be picked up: %v\n", err)
		}
	}()

	if err := printHome(dashboard.View()); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			fmt.Print("\033[H\033[2J")
			if err := printHome(dashboard.View()); err != nil {
				return err
			}
		}
	}
}

func printHome(view home.View) error {
	return printOutput(view, func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "RECENT")
		for i, c := range view.Recent {
			fmt.Fprintf(w, "%d.\t%s\t%s\n", i+1, c.Name, getValueOrDefault(c.Server, c.Context))
		}
		fmt.Fprintln(w)

		fmt.Fprintln(w, "NAME\tSTATUS\tEVENTS\tSERVER\tSOURCE\tMESSAGE")
		fmt.Fprintln(w, "----\t------\t------\t------\t------\t-------")
		for _, row := range view.Clusters {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
				row.Name,
				statusMarker(row.Status),
				row.Events,
				getValueOrDefault(row.Server, "-"),
				row.Source,
				truncate(row.Message, 60),
			)
		}
	})
}

func statusMarker(status events.Status) string {
	switch status {
	case events.StatusError:
		return "❌ error"
	case events.StatusWarning:
		return "⚠️  warning"
	default:
		return "✅ success"
	}
}
