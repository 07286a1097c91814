package openaicompat

import "fmt"

// StatusError is a non-2xx response from the backend, body included.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("completion API status %d: %s", e.StatusCode, e.Body)
}

// APIError is a 2xx response whose payload carries an error object
// instead of a reply.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("completion API error: %s", e.Message)
}

// MalformedError is a 2xx response with no recognizable reply field.
// Body is kept raw for diagnosis.
type MalformedError struct {
	Body string
}

func (e *MalformedError) Error() string {
	return "completion API returned an unrecognizable payload"
}
