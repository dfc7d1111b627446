package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/AgentOS/isolation/internal/domain/frametree"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/utils"
)

// TreeSummary is one entry of the tree list
type TreeSummary struct {
	ID      frametree.TreeID `json:"id"`
	Root    types.FrameID    `json:"root"`
	URL     string           `json:"url"`
	Focused types.FrameID    `json:"focused,omitempty"`
}

// CreateTreeRequest opens a page
type CreateTreeRequest struct {
	URL string `json:"url" binding:"required"`
}

// ViewSizeRequest resizes a page's viewport
type ViewSizeRequest struct {
	Width  float64 `json:"width" binding:"gte=0"`
	Height float64 `json:"height" binding:"gte=0"`
}

func (r *CreateTreeRequest) Validate() error { return utils.ValidateURL(r.URL, true) }

// ListTrees lists open pages
func (h *Handlers) ListTrees(c *gin.Context) {
	trees := h.coord.Trees()
	out := make([]TreeSummary, 0, len(trees))
	for _, t := range trees {
		s, err := h.coord.Snapshot(t)
		if err != nil {
			// closed between listing and snapshot
			continue
		}
		out = append(out, TreeSummary{ID: s.ID, Root: s.Root.ID, URL: s.Root.URL, Focused: s.Focused})
	}
	c.JSON(http.StatusOK, gin.H{
		"trees": out,
		"count": len(out),
	})
}

// CreateTree opens a page on the requested URL
func (h *Handlers) CreateTree(c *gin.Context) {
	var req CreateTreeRequest
	if !bind(c, &req) {
		return
	}

	t, err := h.coord.NewTree(c.Request.Context(), req.URL)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"tree":    t.ID(),
		"root":    t.Root().ID(),
	})
}

// GetTree returns the tree snapshot as JSON
func (h *Handlers) GetTree(c *gin.Context) {
	t, ok := h.tree(c)
	if !ok {
		return
	}
	data, err := h.coord.SnapshotJSON(t)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

// CloseTree destroys a page
func (h *Handlers) CloseTree(c *gin.Context) {
	t, ok := h.tree(c)
	if !ok {
		return
	}
	if err := h.coord.CloseTree(t); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Depiction returns the text rendering of a tree's site groups
func (h *Handlers) Depiction(c *gin.Context) {
	t, ok := h.tree(c)
	if !ok {
		return
	}
	c.String(http.StatusOK, h.coord.Depiction(t))
}

// RenderViews lists one view per site group the tree touches
func (h *Handlers) RenderViews(c *gin.Context) {
	t, ok := h.tree(c)
	if !ok {
		return
	}
	views := h.coord.RenderViews(t)
	if views == nil {
		h.fail(c, frametree.ErrUnknownTree)
		return
	}
	c.JSON(http.StatusOK, gin.H{"views": views})
}

// SetViewSize resizes the page
func (h *Handlers) SetViewSize(c *gin.Context) {
	t, ok := h.tree(c)
	if !ok {
		return
	}
	var req ViewSizeRequest
	if !bind(c, &req) {
		return
	}
	t.SetViewSize(types.Size{Width: req.Width, Height: req.Height})
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RouteInput delivers a mouse event given in view coordinates
func (h *Handlers) RouteInput(c *gin.Context) {
	t, ok := h.tree(c)
	if !ok {
		return
	}
	var ev types.InputEvent
	if !bind(c, &ev) {
		return
	}
	if !ev.IsMouse() {
		badRequest(c, "only mouse events are routed by position")
		return
	}

	target, delivered, err := h.coord.RouteMouseEvent(t, ev)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"frame":   target.ID(),
		"event":   delivered,
	})
}
