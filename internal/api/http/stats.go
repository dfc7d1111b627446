package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/AgentOS/isolation/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"
)

// GroupStats describes one site group
type GroupStats struct {
	ID         types.SiteGroupID `json:"id"`
	Key        string            `json:"key"`
	Live       bool              `json:"live"`
	Process    types.ProcessID   `json:"process,omitempty"`
	Refs       int               `json:"refs"`
	Generation uint64            `json:"generation"`
}

// StatsSnapshot is the JSON counterpart of /metrics
type StatsSnapshot struct {
	Timestamp     time.Time           `json:"timestamp"`
	Trees         int                 `json:"trees"`
	LiveProcesses int                 `json:"live_processes"`
	Groups        []GroupStats        `json:"groups"`
	OpenBreakers  []string            `json:"open_breakers,omitempty"`
	Counts        monitoring.Snapshot `json:"counts"`
}

// Stats returns site group and process statistics
func (h *Handlers) Stats(c *gin.Context) {
	sites := h.coord.Sites()
	snap := StatsSnapshot{
		Timestamp:     time.Now(),
		Trees:         len(h.coord.Trees()),
		LiveProcesses: sites.LiveProcesses(),
		Counts:        h.metrics.Snapshot(),
	}
	for _, g := range sites.Groups() {
		gs := GroupStats{
			ID:         g.ID(),
			Key:        g.Key().String(),
			Live:       g.Live(),
			Refs:       g.Refs(),
			Generation: g.Generation(),
		}
		if p := g.Process(); p != nil {
			gs.Process = p.ID()
		}
		snap.Groups = append(snap.Groups, gs)
	}
	if h.breakers != nil {
		snap.OpenBreakers = h.breakers.Open()
	}
	c.JSON(http.StatusOK, snap)
}
