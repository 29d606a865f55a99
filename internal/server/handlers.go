package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/celikgo/autoz-dashboard/internal/cluster"
	"github.com/celikgo/autoz-dashboard/internal/config"
)

// Home returns the quick access list and the status of every cluster
func (s *Server) Home(c *gin.Context) {
	c.JSON(http.StatusOK, s.dashboard.View())
}

// ListClusters returns the configured clusters in configuration order
func (s *Server) ListClusters(c *gin.Context) {
	c.JSON(http.StatusOK, s.admin.Clusters().List())
}

// AddClusterRequest represents add cluster request
type AddClusterRequest struct {
	Name        string `json:"name" binding:"required"`
	Server      string `json:"server"`
	Context     string `json:"context"`
	KubeConfig  string `json:"kubeconfig"`
	Environment string `json:"environment"`
	Region      string `json:"region"`
}

// AddCluster adds a dynamic cluster
func (s *Server) AddCluster(c *gin.Context) {
	var req AddClusterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	added, err := s.admin.AddCluster(config.ClusterConfig{
		Name:        req.Name,
		Server:      req.Server,
		Context:     req.Context,
		KubeConfig:  req.KubeConfig,
		Environment: req.Environment,
		Region:      req.Region,
	})
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, added)
}

// DeleteCluster removes a dynamic cluster
func (s *Server) DeleteCluster(c *gin.Context) {
	if err := s.admin.RemoveCluster(c.Param("name")); err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// VisitCluster records the cluster as recently used
func (s *Server) VisitCluster(c *gin.Context) {
	if err := s.dashboard.Visit(c.Param("name")); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, cluster.ErrClusterNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, cluster.ErrClusterNotFound):
		return http.StatusNotFound
	case errors.Is(err, cluster.ErrClusterExists):
		return http.StatusConflict
	case errors.Is(err, cluster.ErrStaticCluster):
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}
