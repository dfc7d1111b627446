package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/AgentOS/isolation/internal/domain/frametree"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/utils"
)

// CreateChildRequest inserts an iframe. Sandbox is the attribute value;
// leaving it out means no sandbox attribute at all.
type CreateChildRequest struct {
	Name           string      `json:"name"`
	Sandbox        *string     `json:"sandbox"`
	Index          *int        `json:"index"`
	Rect           *types.Rect `json:"rect"`
	Scale          float64     `json:"scale"`
	Hidden         bool        `json:"hidden"`
	NotHitTestable bool        `json:"not_hit_testable"`
	// URL, when set, is navigated to right after insertion
	URL string `json:"url"`
}

// NavigateRequest navigates a frame
type NavigateRequest struct {
	URL string `json:"url" binding:"required"`
}

// PopupRequest opens a window with the frame as opener
type PopupRequest struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// GeometryRequest places a frame inside its parent
type GeometryRequest struct {
	Rect        types.Rect `json:"rect"`
	Scale       float64    `json:"scale"`
	Visible     *bool      `json:"visible"`
	HitTestable *bool      `json:"hit_testable"`
}

// NameRequest sets window.name
type NameRequest struct {
	Name string `json:"name"`
}

// SandboxRequest replaces the container's sandbox attribute
type SandboxRequest struct {
	Sandbox *string `json:"sandbox"`
}

func (r *CreateChildRequest) Validate() error {
	if err := utils.ValidateFrameName(r.Name); err != nil {
		return err
	}
	if err := utils.ValidateSandbox(r.Sandbox); err != nil {
		return err
	}
	if err := utils.ValidateScale(r.Scale); err != nil {
		return err
	}
	return utils.ValidateURL(r.URL, false)
}

func (r *NavigateRequest) Validate() error { return utils.ValidateURL(r.URL, true) }

func (r *PopupRequest) Validate() error {
	if err := utils.ValidateFrameName(r.Name); err != nil {
		return err
	}
	return utils.ValidateURL(r.URL, false)
}

func (r *GeometryRequest) Validate() error { return utils.ValidateScale(r.Scale) }
func (r *NameRequest) Validate() error     { return utils.ValidateFrameName(r.Name) }
func (r *SandboxRequest) Validate() error  { return utils.ValidateSandbox(r.Sandbox) }

func sandboxFlags(attr *string) types.SandboxFlags {
	if attr == nil {
		return types.SandboxNone
	}
	return types.ParseSandbox(*attr)
}

// GetFrame returns a frame and its subtree
func (h *Handlers) GetFrame(c *gin.Context) {
	f, ok := h.frame(c)
	if !ok {
		return
	}
	s, err := h.coord.SnapshotFrame(f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tree":  f.Tree().ID(),
		"frame": s,
	})
}

// RemoveFrame detaches a frame and its subtree
func (h *Handlers) RemoveFrame(c *gin.Context) {
	f, ok := h.frame(c)
	if !ok {
		return
	}
	if err := f.Tree().Remove(f); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// CreateChild inserts an iframe under the frame
func (h *Handlers) CreateChild(c *gin.Context) {
	parent, ok := h.frame(c)
	if !ok {
		return
	}
	var req CreateChildRequest
	if !bind(c, &req) {
		return
	}

	opts := frametree.ChildOptions{
		Name:           req.Name,
		Sandbox:        sandboxFlags(req.Sandbox),
		Scale:          req.Scale,
		Hidden:         req.Hidden,
		NotHitTestable: req.NotHitTestable,
	}
	if req.Rect != nil {
		opts.Rect = *req.Rect
	}
	index := -1
	if req.Index != nil {
		index = *req.Index
	}

	child, err := parent.Tree().CreateChild(parent, index, opts)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp := gin.H{
		"success": true,
		"frame":   child.ID(),
	}
	if req.URL != "" {
		decision, err := h.coord.Navigate(c.Request.Context(), child, req.URL)
		if err != nil {
			// the frame exists; report the failed navigation alongside it
			resp["navigation_error"] = err.Error()
		} else {
			resp["decision"] = decision.String()
		}
	}
	c.JSON(http.StatusCreated, resp)
}

// Navigate starts a browser-initiated navigation
func (h *Handlers) Navigate(c *gin.Context) {
	f, ok := h.frame(c)
	if !ok {
		return
	}
	var req NavigateRequest
	if !bind(c, &req) {
		return
	}

	decision, err := h.coord.Navigate(c.Request.Context(), f, req.URL)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"success":  true,
		"decision": decision.String(),
	})
}

// Focus makes the frame the focused frame of its tree
func (h *Handlers) Focus(c *gin.Context) {
	f, ok := h.frame(c)
	if !ok {
		return
	}
	if err := h.coord.Focus(f); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// OpenPopup opens a new page with the frame as opener
func (h *Handlers) OpenPopup(c *gin.Context) {
	f, ok := h.frame(c)
	if !ok {
		return
	}
	var req PopupRequest
	if !bind(c, &req) {
		return
	}
	if req.URL == "" {
		req.URL = "about:blank"
	}

	t, err := h.coord.OpenPopup(c.Request.Context(), f, req.URL, req.Name)
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

// DisownOpener clears the frame's opener
func (h *Handlers) DisownOpener(c *gin.Context) {
	f, ok := h.frame(c)
	if !ok {
		return
	}
	if err := h.coord.DisownOpener(f); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SetGeometry moves or resizes the frame. Omitted flags keep their value.
func (h *Handlers) SetGeometry(c *gin.Context) {
	f, ok := h.frame(c)
	if !ok {
		return
	}
	var req GeometryRequest
	if !bind(c, &req) {
		return
	}

	g := f.Geometry()
	g.Rect = req.Rect
	if req.Scale > 0 {
		g.Scale = req.Scale
	}
	if req.Visible != nil {
		g.Visible = *req.Visible
	}
	if req.HitTestable != nil {
		g.HitTestable = *req.HitTestable
	}
	if err := h.coord.SetFrameGeometry(f, g); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SetName sets the frame's name
func (h *Handlers) SetName(c *gin.Context) {
	f, ok := h.frame(c)
	if !ok {
		return
	}
	var req NameRequest
	if !bind(c, &req) {
		return
	}
	if err := h.coord.SetFrameName(f, req.Name); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SetSandbox updates the sandbox attribute of the frame's container
func (h *Handlers) SetSandbox(c *gin.Context) {
	f, ok := h.frame(c)
	if !ok {
		return
	}
	var req SandboxRequest
	if !bind(c, &req) {
		return
	}
	if err := h.coord.SetPendingSandbox(f, sandboxFlags(req.Sandbox)); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
