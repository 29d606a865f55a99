package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/celikgo/autoz-dashboard/internal/events"
	"github.com/celikgo/autoz-dashboard/internal/metrics"
	"github.com/celikgo/autoz-dashboard/internal/server"
)

// newServeCmd creates the 'serve' command which runs the HTTP API
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the home view and cluster management over HTTP",
		Long: `Run the dashboard backend.

Endpoints:
  GET    /api/home                   quick access list and status of every cluster
  GET    /api/clusters               configured clusters
  POST   /api/clusters               add a dynamic cluster {"name", "server" or "context", ...}
  DELETE /api/clusters/:name         remove a dynamic cluster
  POST   /api/clusters/:name/visit   mark a cluster as recently used
  GET    /metrics                    Prometheus metrics
  GET    /healthz                    liveness

The configuration file is watched; clusters added to or removed from it are picked up
without a restart.`,

		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = appConfig.Server.Addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			clusterMetrics, err := metrics.NewClusterMetrics()
			if err != nil {
				return fmt.Errorf("failed to set up metrics: %w", err)
			}

			dashboard := newDashboard()
			dashboard.Watcher().OnChange(func(snapshot events.Snapshot) {
				clusterMetrics.Update(clusterProvider.Clusters().Names(), snapshot)
			})
			dashboard.Start()
			defer dashboard.Close()

			go func() {
				if err := clusterProvider.Watch(ctx); err != nil {
					klog.ErrorS(err, "Configuration changes will not be picked up")
				}
			}()

			gin.SetMode(gin.ReleaseMode)
			srv := server.New(dashboard, clusterProvider, clusterMetrics)

			fmt.Printf("Serving %d cluster(s) on http://%s\n", clusterProvider.Clusters().Len(), addr)
			return srv.Run(ctx, addr)
		},
	}

	cmd.Flags().String("addr", "", "listen address (default: server.addr from config)")
	return cmd
}
