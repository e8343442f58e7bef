package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// Kind represents the type of error
type Kind int

const (
	ErrInternal Kind = iota
	ErrNotFound
	ErrValidation
	// ErrTransport is a request that never produced a response (network, DNS, timeout)
	ErrTransport
	// ErrRejected is a non-2xx response from the portal API
	ErrRejected
)

func (k Kind) String() string {
	switch k {
	case ErrNotFound:
		return "not_found"
	case ErrValidation:
		return "validation"
	case ErrTransport:
		return "transport"
	case ErrRejected:
		return "rejected"
	default:
		return "internal"
	}
}

// Error is an application-level error with a kind for classification
type Error struct {
	Kind    Kind
	Message string
	// Status is the HTTP status of a rejected response
	Status int
	// Detail is the optional `detail` string carried by a rejected response body
	Detail string
	// Fields holds per-field validation messages keyed by JSON field name
	Fields map[string]string
	Err    error // underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Constructor functions for common error types

func NotFound(msg string) *Error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

func NotFoundf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func Validation(msg string) *Error {
	return &Error{Kind: ErrValidation, Message: msg}
}

func Validationf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithFields creates a validation error carrying per-field messages
func ValidationWithFields(msg string, fields map[string]string) *Error {
	return &Error{Kind: ErrValidation, Message: msg, Fields: fields}
}

// Transport wraps a failure to reach the API at all
func Transport(err error) *Error {
	return &Error{Kind: ErrTransport, Message: "request failed", Err: err}
}

// Rejected creates an error for a non-2xx API response. detail may be empty.
func Rejected(status int, detail string) *Error {
	msg := fmt.Sprintf("portal returned status %d", status)
	if detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, detail)
	}
	return &Error{Kind: ErrRejected, Message: msg, Status: status, Detail: detail}
}

func Internal(err error) *Error {
	return &Error{Kind: ErrInternal, Message: "internal error", Err: err}
}

func Internalf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrInternal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with additional context
func Wrap(err error, kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or ErrInternal
func KindOf(err error) Kind {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return ErrInternal
}

// IsTransport reports whether err is a request failure
func IsTransport(err error) bool {
	return err != nil && KindOf(err) == ErrTransport
}

// IsRejected reports whether err is a rejected API response
func IsRejected(err error) bool {
	return err != nil && KindOf(err) == ErrRejected
}

// UserMessage converts err into the text shown to the user.
//
// Request failures get the generic banner with the underlying message.
// Rejected responses show the server's detail, or fallback when it has none.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var appErr *Error
	if !stderrors.As(err, &appErr) {
		return fmt.Sprintf("Error: %v", err)
	}

	switch appErr.Kind {
	case ErrTransport:
		cause := appErr.Message
		if appErr.Err != nil {
			cause = appErr.Err.Error()
		}
		return fmt.Sprintf("Error: %s. Make sure the API server is running.", cause)
	case ErrRejected:
		if appErr.Detail != "" {
			return appErr.Detail
		}
		return fallback
	case ErrValidation:
		if len(appErr.Fields) == 0 {
			return appErr.Message
		}
		keys := make([]string, 0, len(appErr.Fields))
		for k := range appErr.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+" "+appErr.Fields[k])
		}
		return fmt.Sprintf("%s (%s)", appErr.Message, strings.Join(parts, "; "))
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
