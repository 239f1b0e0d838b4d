package api

import "fmt"

// ErrorType represents the category of a protocol error.
type ErrorType string

const (
	// ErrorTypeTransport covers vendor HTTP and stream failures. A transport
	// error ends the conversation with a single terminal error event.
	ErrorTypeTransport ErrorType = "transport_error"

	// ErrorTypeToolExecution covers tool handler failures. These never
	// surface as stream errors; they become failed tool results the model
	// can react to.
	ErrorTypeToolExecution ErrorType = "tool_execution_error"

	// ErrorTypeInvalidRequest covers malformed or unsupported requests
	// rejected before any vendor round-trip.
	ErrorTypeInvalidRequest ErrorType = "invalid_request"

	// ErrorTypeServer covers internal failures.
	ErrorTypeServer ErrorType = "server_error"
)

// APIError is a structured error with a category, an optional vendor-specific
// code (e.g. "rate_limit_error", "429"), an optional offending parameter,
// and a human-readable message.
type APIError struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code,omitempty"`
	Param   string    `json:"param,omitempty"`
	Message string    `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Type, e.Code, e.Message)
	}
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Type, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// NewTransportError creates an APIError for a vendor transport failure.
// The code carries the vendor-specific error identifier.
func NewTransportError(code, message string) *APIError {
	return &APIError{Type: ErrorTypeTransport, Code: code, Message: message}
}

// NewInvalidRequestError creates an APIError for invalid request parameters.
func NewInvalidRequestError(param, message string) *APIError {
	return &APIError{Type: ErrorTypeInvalidRequest, Param: param, Message: message}
}

// NewServerError creates an APIError for internal failures.
func NewServerError(message string) *APIError {
	return &APIError{Type: ErrorTypeServer, Message: message}
}

// ErrorResponse is the JSON wrapper for errors returned outside a stream.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// AsAPIError converts any error into an APIError, passing structured errors
// through unchanged and wrapping everything else as a server error.
func AsAPIError(err error) *APIError {
	if err == nil {
		return nil
	}
	if apiErr, ok := err.(*APIError); ok {
		return apiErr
	}
	return NewServerError(err.Error())
}
