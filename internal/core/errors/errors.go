package errors

const (
	HttpInternalError       = "internal_error"
	HttpInvalidJsonError    = "invalid_json"
	HttpInvalidQueryError   = "invalid_query"
	HttpUnauthorizedError   = "unauthorized"
	HttpUpstreamUnavailable = "upstream_unavailable"
	HttpTimeoutError        = "timeout"

	// Ledger rejections reuse the RejectedReason strings so clients can switch on one field.
	HttpInvalidQuantityError        = "invalid_quantity"
	HttpUnknownProducerError        = "unknown_producer"
	HttpUpdateLimitExceededError    = "update_limit_exceeded"
	HttpConcurrentModificationError = "concurrent_modification"
)

// ErrorResponse is the error body every JSON endpoint returns.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
