package ledger

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"

	v1 "github.com/jolla3/maziwa-smart-sub000/internal/api/v1"
	httperr "github.com/jolla3/maziwa-smart-sub000/internal/core/errors"
	"github.com/gin-gonic/gin"
)

const (
	msgReadBodyFailed = "Failed to read request body"
	msgInvalidJSON    = "Invalid JSON body"
	msgStoreFailed    = "Collection store unavailable"
	msgWriteTimedOut  = "Collection write timed out"
)

// ledgerError carries the structured HTTP error shape from a helper back to the handler.
// Helpers return this instead of writing to gin.Context directly, keeping them decoupled from HTTP.
type ledgerError struct {
	statusCode int
	errorType  string
	message    string
	details    interface{}
}

func (e *ledgerError) Error() string {
	return e.message
}

// RecordHandler handles POST /v1/collection-events.
// Rejections are answered with the RecordResult body so clients see the current record.
func (s *Service) RecordHandler(c *gin.Context) {
	req, lerr := s.parseRequest(c)
	if lerr != nil {
		writeError(c, lerr)
		return
	}

	cmd := RecordCommand{
		ProducerID:  req.ProducerID,
		CollectorID: req.CollectorID,
		Quantity:    req.Quantity,
	}
	if req.RecordedAt != nil {
		cmd.Now = *req.RecordedAt
	}

	res, err := s.RecordOrUpdate(c.Request.Context(), cmd)
	if err != nil {
		writeError(c, storeError(err))
		return
	}

	c.JSON(statusFor(res), res)
}

// parseRequest reads the bounded request body and binds it into a RecordRequest.
func (s *Service) parseRequest(c *gin.Context) (*v1.RecordRequest, *ledgerError) {
	// Enforce maximum body size to prevent OOM attacks
	maxBytes := int64(s.maxBodySizeBytes)
	limitedBody := io.LimitReader(c.Request.Body, maxBytes+1) // +1 to detect oversized requests

	bodyBytes, err := io.ReadAll(limitedBody)
	if err != nil {
		slog.Error("Failed to read request body", "error", err)
		return nil, &ledgerError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgReadBodyFailed,
		}
	}

	if int64(len(bodyBytes)) > maxBytes {
		slog.Warn("Request body exceeds maximum size", "size", len(bodyBytes), "max", maxBytes)
		return nil, &ledgerError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpInvalidJsonError,
			message:    "Request body exceeds maximum allowed size",
			details: map[string]interface{}{
				"max_size_mb": maxBytes / (1024 * 1024),
			},
		}
	}

	c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

	var req v1.RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("Invalid JSON body received", "error", err, "payload_size", len(bodyBytes))
		return nil, &ledgerError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgInvalidJSON,
			details:    map[string]interface{}{"reason": err.Error()},
		}
	}
	return &req, nil
}

// statusFor maps an outcome to its HTTP status.
func statusFor(res v1.RecordResult) int {
	switch res.Outcome {
	case v1.OutcomeCreated:
		return http.StatusCreated
	case v1.OutcomeUpdated:
		return http.StatusOK
	}
	switch res.Rejection.Reason {
	case v1.RejectedUpdateLimitExceeded, v1.RejectedConcurrentModification:
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

func storeError(err error) *ledgerError {
	if errors.Is(err, ErrTimeout) {
		slog.Error("Collection write timed out", "error", err)
		return &ledgerError{
			statusCode: http.StatusGatewayTimeout,
			errorType:  httperr.HttpTimeoutError,
			message:    msgWriteTimedOut,
		}
	}
	slog.Error("Failed to persist collection", "error", err)
	return &ledgerError{
		statusCode: http.StatusServiceUnavailable,
		errorType:  httperr.HttpUpstreamUnavailable,
		message:    msgStoreFailed,
	}
}

// writeError serializes a ledgerError as the JSON HTTP response.
func writeError(c *gin.Context, err *ledgerError) {
	c.JSON(err.statusCode, httperr.ErrorResponse{
		ErrorType: err.errorType,
		Message:   err.message,
		Details:   err.details,
	})
}
