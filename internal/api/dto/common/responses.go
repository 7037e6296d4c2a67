// Package common holds the envelope shared by every control API response.
package common

// APIResponse wraps every body the daemon returns. Exactly one of Data and
// Error is set.
type APIResponse struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Error   *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse describes a failed request. Details carries field errors for
// rejected request bodies.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// MessageResponse is returned by commands that have no payload
type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorCode string

// Codes returned by the control API
const (
	ErrCodeBadRequest         ErrorCode = "BAD_REQUEST"
	ErrCodeValidation         ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeConflict           ErrorCode = "CONFLICT"
	ErrCodeUnprocessable      ErrorCode = "UNPROCESSABLE_ENTITY"
	ErrCodeTooManyRequests    ErrorCode = "TOO_MANY_REQUESTS"
	ErrCodeInternalServer     ErrorCode = "INTERNAL_SERVER_ERROR"
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

func NewSuccessResponse(data any) APIResponse {
	return APIResponse{Success: true, Data: data}
}

func NewMessageResponse(message string) APIResponse {
	return NewSuccessResponse(MessageResponse{Message: message})
}

func NewErrorResponse(code ErrorCode, message string, details any) APIResponse {
	return APIResponse{
		Success: false,
		Error:   &ErrorResponse{Code: string(code), Message: message, Details: details},
	}
}
