package projection

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jolla3/maziwa-smart-sub000/internal/aggregation"
	v1 "github.com/jolla3/maziwa-smart-sub000/internal/api/v1"
	"github.com/jolla3/maziwa-smart-sub000/internal/cache"
	coreagg "github.com/jolla3/maziwa-smart-sub000/internal/core/aggregation"
	httperr "github.com/jolla3/maziwa-smart-sub000/internal/core/errors"
	"github.com/jolla3/maziwa-smart-sub000/internal/ledger"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all read API routes on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/rollups", s.HandleRollup)
	r.GET("/v1/collection-events", s.HandleEvents)
	r.GET("/v1/collection-events/revision", s.HandleRevision)
}

// HandleRollup handles GET /v1/rollups
// Query parameters: dimension, id, granularity, start, end, allow_stale, refresh
func (s *Service) HandleRollup(c *gin.Context) {
	var query rollupQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		invalidQuery(c, err)
		return
	}

	key, err := s.rollupKey(query)
	if err != nil {
		invalidQuery(c, err)
		return
	}

	resp, err := s.Rollup(c.Request.Context(), key, cache.ReadOptions{AllowStale: query.AllowStale, Force: query.Refresh})
	if err != nil {
		writeReadError(c, "Failed to compute rollup", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleEvents handles GET /v1/collection-events
// Query parameters: producer_id, collector_id, slot, start, end, allow_stale, refresh
func (s *Service) HandleEvents(c *gin.Context) {
	var query eventsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		invalidQuery(c, err)
		return
	}

	filter, err := s.eventFilter(query)
	if err != nil {
		invalidQuery(c, err)
		return
	}

	resp, err := s.Events(c.Request.Context(), filter, cache.ReadOptions{AllowStale: query.AllowStale, Force: query.Refresh})
	if err != nil {
		writeReadError(c, "Failed to list collection events", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleRevision handles GET /v1/collection-events/revision
func (s *Service) HandleRevision(c *gin.Context) {
	var query eventsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		invalidQuery(c, err)
		return
	}

	filter, err := s.eventFilter(query)
	if err != nil {
		invalidQuery(c, err)
		return
	}

	rev, err := s.Revision(c.Request.Context(), filter)
	if err != nil {
		writeReadError(c, "Failed to read revision", err)
		return
	}
	c.JSON(http.StatusOK, v1.RevisionResponse{MaxRevision: rev})
}

func invalidQuery(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
		ErrorType: httperr.HttpInvalidQueryError,
		Message:   "Invalid query parameters",
		Details:   err.Error(),
	})
}

// writeReadError maps read failures to 400, 504 or 503. Causes are logged, not returned.
func writeReadError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, coreagg.ErrInvalidKey), errors.Is(err, ErrInvalidQuery):
		invalidQuery(c, err)
	case errors.Is(err, aggregation.ErrTimeout),
		errors.Is(err, ledger.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded):
		slog.Warn("[Projection] Read timed out", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusGatewayTimeout, httperr.ErrorResponse{
			ErrorType: httperr.HttpTimeoutError,
			Message:   msg,
		})
	default:
		slog.Error("[Projection] Read failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusServiceUnavailable, httperr.ErrorResponse{
			ErrorType: httperr.HttpUpstreamUnavailable,
			Message:   msg,
		})
	}
}
