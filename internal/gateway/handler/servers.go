package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/modelriver/mcp-gateway/internal/directory"
	"go.uber.org/zap"
)

// TokenHeader carries the caller's ModelScope API token.
const TokenHeader = "X-Modelscope-Token"

const defaultSearch = "map"

// DirectoryService is the per-request wrapper consumed by the handlers.
type DirectoryService interface {
	ListServers(ctx context.Context, q directory.ListQuery) (*directory.ServerList, error)
	ListOperationalServers(ctx context.Context) (*directory.OperationalList, error)
	GetServer(ctx context.Context, serverID string) (*directory.ServerDetail, error)
}

// ServiceFactory builds a fresh DirectoryService bound to the given token.
// Instances are per-request; nothing is shared across calls.
type ServiceFactory func(token string) DirectoryService

// ServersHandler handles the MCP directory HTTP surface.
type ServersHandler struct {
	newService ServiceFactory
	timeout    time.Duration
	debug      bool
	logger     *zap.Logger
}

// NewServersHandler creates a ServersHandler. timeout bounds each upstream
// call chain; debug controls whether unclassified faults expose detail.
func NewServersHandler(factory ServiceFactory, timeout time.Duration, debug bool, logger *zap.Logger) *ServersHandler {
	return &ServersHandler{
		newService: factory,
		timeout:    timeout,
		debug:      debug,
		logger:     logger,
	}
}

// Register registers the server routes on the given router group.
func (h *ServersHandler) Register(rg *gin.RouterGroup) {
	servers := rg.Group("/servers")
	{
		servers.POST("/list", h.ListServers)
		servers.POST("/operational", h.ListOperationalServers)
		servers.POST("/detail", h.GetServer)
	}
}

// errorBody is the envelope for every non-2xx response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

type listServersRequest struct {
	Filter     map[string]any `json:"filter"`
	TotalCount *int           `json:"total_count"`
	Search     *string        `json:"search"`
}

// validate enforces the total_count range the way the upstream expects it,
// before any remote call is made.
func (r *listServersRequest) validate() error {
	if r.TotalCount != nil && (*r.TotalCount < 1 || *r.TotalCount > 100) {
		return fmt.Errorf("total_count must be between 1 and 100, got %d", *r.TotalCount)
	}
	return nil
}

type getServerRequest struct {
	ServerID string `json:"server_id" binding:"required"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// callCtx derives the bounded per-request context.
func (h *ServersHandler) callCtx(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return c.Request.Context(), func() {}
	}
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

// ListServers handles POST /servers/list. The body is optional; absent
// fields take their documented defaults (count 20, search "map").
func (h *ServersHandler) ListServers(c *gin.Context) {
	var req listServersRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.validationError(c, err)
		return
	}
	if err := req.validate(); err != nil {
		h.validationError(c, err)
		return
	}

	q := directory.ListQuery{Filter: req.Filter, Count: 20, Search: defaultSearch}
	if req.TotalCount != nil {
		q.Count = *req.TotalCount
	}
	if req.Search != nil {
		q.Search = *req.Search
	}

	ctx, cancel := h.callCtx(c)
	defer cancel()

	svc := h.newService(c.GetHeader(TokenHeader))
	result, err := svc.ListServers(ctx, q)
	if err != nil {
		// Every wrapper fault on this route surfaces as 500.
		h.writeError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListOperationalServers handles POST /servers/operational. The token
// header is required; the wrapper turns its absence into an
// AuthenticationError which maps to 401 here.
func (h *ServersHandler) ListOperationalServers(c *gin.Context) {
	ctx, cancel := h.callCtx(c)
	defer cancel()

	svc := h.newService(c.GetHeader(TokenHeader))
	result, err := svc.ListOperationalServers(ctx)
	if err != nil {
		h.writeError(c, err, map[directory.Kind]int{
			directory.KindAuthentication: http.StatusUnauthorized,
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetServer handles POST /servers/detail. A server_id without the leading
// "@" is normalized before the upstream query.
func (h *ServersHandler) GetServer(c *gin.Context) {
	var req getServerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.validationError(c, err)
		return
	}

	serverID := req.ServerID
	if !strings.HasPrefix(serverID, "@") {
		serverID = "@" + serverID
	}

	ctx, cancel := h.callCtx(c)
	defer cancel()

	svc := h.newService(c.GetHeader(TokenHeader))
	result, err := svc.GetServer(ctx, serverID)
	if err != nil {
		h.writeError(c, err, map[directory.Kind]int{
			directory.KindServerNotFound: http.StatusNotFound,
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Health handles GET /health.
func (h *ServersHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{
		Status:  "healthy",
		Message: "MCP directory gateway is running",
	})
}

func (h *ServersHandler) validationError(c *gin.Context, err error) {
	h.logger.Warn("request validation failed", zap.Error(err))
	c.JSON(http.StatusUnprocessableEntity, errorBody{
		Error:   "RequestValidationError",
		Message: "request validation failed",
		Detail:  err.Error(),
	})
}

// writeError maps a wrapper fault to its HTTP response. statusOverrides
// supplies route-specific mappings (404 for not-found on detail, 401 for
// auth on operational); every other classified fault is a 500 carrying its
// kind. Unclassified errors become an opaque InternalError whose detail is
// only exposed in debug deployments.
func (h *ServersHandler) writeError(c *gin.Context, err error, statusOverrides map[directory.Kind]int) {
	if apiErr := directory.AsAPIError(err); apiErr != nil {
		RecordUpstreamFault(string(apiErr.Kind))
		status := http.StatusInternalServerError
		if s, ok := statusOverrides[apiErr.Kind]; ok {
			status = s
		}
		c.JSON(status, errorBody{
			Error:   string(apiErr.Kind),
			Message: apiErr.Message,
			Detail:  apiErr.Detail,
		})
		return
	}

	h.logger.Error("unclassified failure", zap.Error(err))
	body := errorBody{
		Error:   "InternalError",
		Message: "an unexpected error occurred",
	}
	if h.debug {
		body.Detail = err.Error()
	}
	c.JSON(http.StatusInternalServerError, body)
}
