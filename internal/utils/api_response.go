package utils

import "time"

type SuccessResponse struct {
	Success bool  `json:"success"`
	Data    any   `json:"data"`
	Meta    *Meta `json:"meta,omitempty"`
}

type ErrorResponse struct {
	Success bool     `json:"success"`
	Error   APIError `json:"error"`
}

// APIError.Retryable tells clients the same request may succeed later,
// typically under the same Idempotency-Key.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

type Meta struct {
	Timestamp time.Time `json:"timestamp"`
}

var retryableCodes = map[string]bool{
	"TIMEOUT":                 true,
	"INTERNAL_ERROR":          true,
	"IDEMPOTENCY_IN_PROGRESS": true,
	"IDEMPOTENCY_UNAVAILABLE": true,
}

func CreateErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Success: false,
		Error: APIError{
			Code:      code,
			Message:   message,
			Retryable: retryableCodes[code],
		},
	}
}

// InvalidRequestResponse wraps a body binding failure.
func InvalidRequestResponse(err error) ErrorResponse {
	return CreateErrorResponse("INVALID_REQUEST", "Invalid request body: "+err.Error())
}

// InvalidPolicyIDResponse is returned when a :policyId path segment is not a
// positive integer.
func InvalidPolicyIDResponse() ErrorResponse {
	return CreateErrorResponse("INVALID_POLICY_ID", "Policy ID must be a positive integer")
}

func CreateSuccessResponse(data any) SuccessResponse {
	return SuccessResponse{
		Success: true,
		Data:    data,
		Meta: &Meta{
			Timestamp: time.Now().UTC(),
		},
	}
}
