package directory

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	v1 "github.com/jolla3/maziwa-smart-sub000/internal/api/v1"
	httperr "github.com/jolla3/maziwa-smart-sub000/internal/core/errors"
	"github.com/jolla3/maziwa-smart-sub000/internal/core/storage"
	"github.com/gin-gonic/gin"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Source serves one page of the producer or collector directory. The stores
// and the upstream client implement it.
type Source interface {
	ListDirectory(ctx context.Context, query storage.DirectoryQuery) (v1.Page, error)
}

// Handler serves GET /v1/directory.
type Handler struct {
	source          Source
	defaultPageSize int
	maxPageSize     int
}

func NewHandler(source Source, defaultPageSize, maxPageSize int) *Handler {
	if defaultPageSize <= 0 {
		defaultPageSize = DefaultPageSize
	}
	if maxPageSize < defaultPageSize {
		maxPageSize = max(MaxPageSize, defaultPageSize)
	}
	return &Handler{source: source, defaultPageSize: defaultPageSize, maxPageSize: maxPageSize}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/directory", h.List)
}

// List answers with the v1.Page envelope. page is zero-based.
func (h *Handler) List(c *gin.Context) {
	q, err := h.parseQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   err.Error(),
		})
		return
	}

	page, err := h.source.ListDirectory(c.Request.Context(), q)
	if err != nil {
		slog.Error("Failed to list directory", "kind", q.Kind, "page", q.Page, "error", err)
		status, errType := http.StatusServiceUnavailable, httperr.HttpUpstreamUnavailable
		if errors.Is(err, context.DeadlineExceeded) {
			status, errType = http.StatusGatewayTimeout, httperr.HttpTimeoutError
		}
		c.JSON(status, httperr.ErrorResponse{
			ErrorType: errType,
			Message:   "Directory unavailable",
		})
		return
	}
	if page.Items == nil {
		page.Items = []v1.Party{}
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) parseQuery(c *gin.Context) (storage.DirectoryQuery, error) {
	kind, err := v1.ParseDirectoryKind(c.Query("kind"))
	if err != nil {
		return storage.DirectoryQuery{}, err
	}

	q := storage.DirectoryQuery{
		Kind:     kind,
		Filter:   c.Query("filter"),
		PageSize: h.defaultPageSize,
	}
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return storage.DirectoryQuery{}, errors.New("page must be a non-negative integer")
		}
		q.Page = n
	}
	if raw := c.Query("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return storage.DirectoryQuery{}, errors.New("page_size must be a positive integer")
		}
		q.PageSize = min(n, h.maxPageSize)
	}
	return q, nil
}
