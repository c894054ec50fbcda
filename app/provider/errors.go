package provider

import (
	"errors"
	"fmt"
)

var ErrMissingPaymentID = errors.New("payment id is required")

// HTTPError is returned for non-2xx answers of the verify endpoint.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("payment verification failed: HTTP status %d", e.StatusCode)
}
