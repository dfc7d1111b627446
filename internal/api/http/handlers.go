// Package http serves the embedder API: pages, frames, navigation, focus,
// input and the coordinator's views of them.
package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/isolation/internal/domain/frametree"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/domain/policy"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/domain/site"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"
)

// Version is reported by the root endpoint
const Version = "0.3.0"

// Handlers contains the embedder API handlers
type Handlers struct {
	coord    *frametree.Coordinator
	metrics  *monitoring.Metrics
	breakers *resilience.Set
	tracer   *tracing.Tracer
	logger   *zap.Logger
}

// NewHandlers creates the handlers. breakers and tracer may be nil.
func NewHandlers(coord *frametree.Coordinator, metrics *monitoring.Metrics, breakers *resilience.Set, tracer *tracing.Tracer, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		coord:    coord,
		metrics:  metrics,
		breakers: breakers,
		tracer:   tracer,
		logger:   logger.Named("api"),
	}
}

// Register mounts every route on r
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/stats", h.Stats)

	trees := r.Group("/trees")
	trees.GET("", h.ListTrees)
	trees.POST("", h.CreateTree)
	trees.GET("/:tree", h.GetTree)
	trees.DELETE("/:tree", h.CloseTree)
	trees.GET("/:tree/depiction", h.Depiction)
	trees.GET("/:tree/views", h.RenderViews)
	trees.PUT("/:tree/view", h.SetViewSize)
	trees.POST("/:tree/input", h.RouteInput)

	frames := r.Group("/frames")
	frames.GET("/:frame", h.GetFrame)
	frames.DELETE("/:frame", h.RemoveFrame)
	frames.POST("/:frame/children", h.CreateChild)
	frames.POST("/:frame/navigate", h.Navigate)
	frames.POST("/:frame/focus", h.Focus)
	frames.POST("/:frame/popup", h.OpenPopup)
	frames.POST("/:frame/disown-opener", h.DisownOpener)
	frames.PUT("/:frame/geometry", h.SetGeometry)
	frames.PUT("/:frame/name", h.SetName)
	frames.PUT("/:frame/sandbox", h.SetSandbox)
}

// Root handles the root endpoint
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "site isolation coordinator",
		"version": Version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	var open []string
	if h.breakers != nil {
		open = h.breakers.Open()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"trees":          len(h.coord.Trees()),
		"live_processes": h.coord.Sites().LiveProcesses(),
		"open_breakers":  open,
		"counts":         h.metrics.Snapshot(),
	})
}

// fail writes err with the status its class maps to
func (h *Handlers) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Warn("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{
		"success": false,
		"error":   err.Error(),
	})
}

// validator is implemented by requests with checks beyond binding tags
type validator interface {
	Validate() error
}

// bind decodes the JSON body into req and runs its field checks
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return false
	}
	if v, ok := req.(validator); ok {
		if err := v.Validate(); err != nil {
			badRequest(c, "Invalid request: "+err.Error())
			return false
		}
	}
	return true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   msg,
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, frametree.ErrUnknownFrame), errors.Is(err, frametree.ErrUnknownTree):
		return http.StatusNotFound
	case errors.Is(err, frametree.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, frametree.ErrIllegalNavigation), errors.Is(err, frametree.ErrSandboxedPopup),
		errors.Is(err, policy.ErrSchemeNotAllowed):
		return http.StatusForbidden
	case errors.Is(err, frametree.ErrCannotRemoveRoot), errors.Is(err, frametree.ErrFrameNotLive):
		return http.StatusConflict
	case errors.Is(err, site.ErrProcessLimit):
		return http.StatusTooManyRequests
	case errors.Is(err, frametree.ErrProcessLaunch):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// tree resolves the :tree parameter
func (h *Handlers) tree(c *gin.Context) (*frametree.Tree, bool) {
	n, err := strconv.ParseUint(c.Param("tree"), 10, 64)
	if err != nil {
		badRequest(c, "invalid tree id")
		return nil, false
	}
	t, ok := h.coord.Tree(frametree.TreeID(n))
	if !ok {
		h.fail(c, frametree.ErrUnknownTree)
		return nil, false
	}
	return t, true
}

// frame resolves the :frame parameter
func (h *Handlers) frame(c *gin.Context) (*frametree.Frame, bool) {
	n, err := strconv.ParseUint(c.Param("frame"), 10, 64)
	if err != nil {
		badRequest(c, "invalid frame id")
		return nil, false
	}
	f := h.coord.Find(types.FrameID(n))
	if f == nil {
		h.fail(c, frametree.ErrUnknownFrame)
		return nil, false
	}
	return f, true
}
