package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
// The prefix before the underscore names the module that owns the code.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeRateLimited        ErrorCode = "COMMON_004"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
)

const (
	CodeOK      ErrorCode = "OK"
	CodeUnknown ErrorCode = "UNKNOWN"
)

// Geometry error codes
const (
	// ErrCodeSchema marks a tabular dataset without recognised coordinate
	// columns. It halts that dataset only.
	ErrCodeSchema ErrorCode = "GEO_001"
	// ErrCodeInvalidGeometry marks an alert polygon with degenerate rings or
	// non-finite coordinates.
	ErrCodeInvalidGeometry ErrorCode = "GEO_002"
	// ErrCodeCoercion marks rows dropped for unparseable coordinates.
	ErrCodeCoercion ErrorCode = "GEO_003"
	// ErrCodeUnionFailed marks a polygon the union could not absorb.
	ErrCodeUnionFailed ErrorCode = "GEO_004"
	// ErrCodeUnknownCategory marks a category name outside the fixed set.
	ErrCodeUnknownCategory ErrorCode = "GEO_005"
)

// Source error codes
const (
	ErrCodeFeedUnavailable    ErrorCode = "SRC_001"
	ErrCodeDatasetUnavailable ErrorCode = "SRC_002"
	ErrCodePublishFailed      ErrorCode = "SRC_003"
)

// ErrorCodeHTTPStatus maps each code to the HTTP status used by the API.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeRateLimited:        http.StatusTooManyRequests,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,

	ErrCodeSchema:          http.StatusUnprocessableEntity,
	ErrCodeInvalidGeometry: http.StatusUnprocessableEntity,
	ErrCodeCoercion:        http.StatusUnprocessableEntity,
	ErrCodeUnionFailed:     http.StatusUnprocessableEntity,
	ErrCodeUnknownCategory: http.StatusNotFound,

	ErrCodeFeedUnavailable:    http.StatusBadGateway,
	ErrCodeDatasetUnavailable: http.StatusBadGateway,
	ErrCodePublishFailed:      http.StatusBadGateway,
}

// ErrorCodeMessage holds the default message per code.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeRateLimited:        "rate limit exceeded, retry later",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization error",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",

	ErrCodeSchema:          "dataset lacks coordinate columns",
	ErrCodeInvalidGeometry: "invalid alert geometry",
	ErrCodeCoercion:        "unparseable coordinates",
	ErrCodeUnionFailed:     "polygon could not be unioned",
	ErrCodeUnknownCategory: "unknown facility category",

	ErrCodeFeedUnavailable:    "alert feed unavailable",
	ErrCodeDatasetUnavailable: "dataset unavailable",
	ErrCodePublishFailed:      "snapshot publish failed",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 1 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
