package errors

// ErrorResponse is the JSON envelope every failed API call returns.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail carries what a client may safely see about a failure.
type ErrorDetail struct {
	// Code is the machine-readable error class, e.g. payment_required.
	Code          string         `json:"code,omitempty"`
	Display       string         `json:"message"`
	InternalError string         `json:"internal_error,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
}
