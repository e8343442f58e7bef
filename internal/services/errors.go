package services

import "fmt"

// Service errors
var (
	ErrNoSession = &ServiceError{Message: "no active session: run register or login first"}
)

// ServiceError represents a service-level error
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// InvalidChallengeURLError is returned for an answer URL that does not match
// the ERFT_stage{N}_p1-{v}_p2-{v}_p3-{v} format
type InvalidChallengeURLError struct {
	URL string
	Err error
}

func (e *InvalidChallengeURLError) Error() string {
	return fmt.Sprintf("invalid challenge URL %q: %v", e.URL, e.Err)
}

func (e *InvalidChallengeURLError) Unwrap() error {
	return e.Err
}
