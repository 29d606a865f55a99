package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/klog/v2"

	"github.com/celikgo/autoz-dashboard/internal/cluster"
	"github.com/celikgo/autoz-dashboard/internal/config"
	"github.com/celikgo/autoz-dashboard/internal/home"
	"github.com/celikgo/autoz-dashboard/internal/metrics"
)

// ClusterAdmin changes the set of dynamic clusters
type ClusterAdmin interface {
	Clusters() *cluster.Set
	AddCluster(cc config.ClusterConfig) (cluster.Cluster, error)
	RemoveCluster(name string) error
}

// Server exposes the home view over HTTP
type Server struct {
	dashboard *home.Dashboard
	admin     ClusterAdmin
	metrics   *metrics.ClusterMetrics
	engine    *gin.Engine
}

// New creates the server and its routes
func New(dashboard *home.Dashboard, admin ClusterAdmin, m *metrics.ClusterMetrics) *Server {
	s := &Server{
		dashboard: dashboard,
		admin:     admin,
		metrics:   m,
	}

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if m != nil {
		promHandler := promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})
		r.GET("/metrics", func(c *gin.Context) {
			s.refreshMetrics()
			promHandler.ServeHTTP(c.Writer, c.Request)
		})
	}

	api := r.Group("/api")
	{
		api.GET("/home", s.Home)
		api.GET("/clusters", s.ListClusters)
		api.POST("/clusters", s.AddCluster)
		api.DELETE("/clusters/:name", s.DeleteCluster)
		api.POST("/clusters/:name/visit", s.VisitCluster)
	}

	s.engine = r
	return s
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is done
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		klog.InfoS("Starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) refreshMetrics() {
	s.metrics.Update(s.admin.Clusters().Names(), s.dashboard.Watcher().Snapshot())
}
