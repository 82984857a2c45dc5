package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeFeatureDisabled    ErrorCode = "COMMON_015"
	ErrCodeNotImplemented     ErrorCode = "COMMON_016"
)

// Aliases
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")
)

// Ingestion Error Codes
const (
	ErrCodeUnsupportedFormat ErrorCode = "ING_001"
	ErrCodeDataSourceRead    ErrorCode = "ING_002"
	ErrCodeDataSourceParse   ErrorCode = "ING_003"
	ErrCodeMissingColumn     ErrorCode = "ING_004"
	ErrCodeEmptyTable        ErrorCode = "ING_005"
	ErrCodeHDF5Layout        ErrorCode = "ING_006"
)

// Substance Resolution Error Codes
const (
	ErrCodeSubstanceNotFound ErrorCode = "RES_001"
	ErrCodeLookupFailed      ErrorCode = "RES_002"
)

// Infrastructure Error Codes
const (
	ErrCodeStorageError      ErrorCode = "INF_001"
	ErrCodeSearchError       ErrorCode = "INF_002"
	ErrCodeMessageQueueError ErrorCode = "INF_003"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeFeatureDisabled:    http.StatusForbidden,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeUnsupportedFormat: http.StatusUnsupportedMediaType,
	ErrCodeDataSourceRead:    http.StatusBadRequest,
	ErrCodeDataSourceParse:   http.StatusUnprocessableEntity,
	ErrCodeMissingColumn:     http.StatusUnprocessableEntity,
	ErrCodeEmptyTable:        http.StatusUnprocessableEntity,
	ErrCodeHDF5Layout:        http.StatusUnprocessableEntity,

	ErrCodeSubstanceNotFound: http.StatusNotFound,
	ErrCodeLookupFailed:      http.StatusBadGateway,

	ErrCodeStorageError:      http.StatusInternalServerError,
	ErrCodeSearchError:       http.StatusInternalServerError,
	ErrCodeMessageQueueError: http.StatusInternalServerError,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeFeatureDisabled:    "feature disabled",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeUnsupportedFormat: "unsupported file format",
	ErrCodeDataSourceRead:    "failed to read raw file",
	ErrCodeDataSourceParse:   "failed to parse raw file",
	ErrCodeMissingColumn:     "expected column missing",
	ErrCodeEmptyTable:        "table has no usable columns",
	ErrCodeHDF5Layout:        "unexpected HDF5 layout",

	ErrCodeSubstanceNotFound: "substance not found",
	ErrCodeLookupFailed:      "substance lookup failed",

	ErrCodeStorageError:      "object storage error",
	ErrCodeSearchError:       "search backend error",
	ErrCodeMessageQueueError: "message queue error",
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
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}

//Personal.AI order the ending
