package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType categorizes a failure so the chat reply can explain it.
type ErrorType string

const (
	ErrorTypeAuthRequired ErrorType = "auth_required"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeRestricted   ErrorType = "restricted"
	ErrorTypeRateLimited  ErrorType = "rate_limited"
	ErrorTypeTooLarge     ErrorType = "too_large"
	ErrorTypeBotCheck     ErrorType = "bot_check"
	ErrorTypeUnavailable  ErrorType = "unavailable"
	ErrorTypeNetwork      ErrorType = "network"
	ErrorTypeToolMissing  ErrorType = "tool_missing"
	ErrorTypeStorage      ErrorType = "storage"
	ErrorTypeInternal     ErrorType = "internal"
)

// DomainError carries a user-facing message key next to the technical cause.
type DomainError struct {
	Type     ErrorType      `json:"type"`
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	Details  map[string]any `json:"details,omitempty"`
	Cause    error          `json:"-"`
	UserMsg  string         `json:"user_message,omitempty"`
	UserArgs []any          `json:"-"`
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Type, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches another DomainError by type and code.
func (e *DomainError) Is(target error) bool {
	if t, ok := target.(*DomainError); ok {
		return e.Type == t.Type && e.Code == t.Code
	}
	return false
}

func NewDomainError(errType ErrorType, code, message string) *DomainError {
	return &DomainError{
		Type:    errType,
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}
}

func WrapDomainError(err error, errType ErrorType, code, message string) *DomainError {
	e := NewDomainError(errType, code, message)
	e.Cause = err
	return e
}

func (e *DomainError) WithDetails(details map[string]any) *DomainError {
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithUserMessage sets the message catalog key shown to the user and its format arguments.
func (e *DomainError) WithUserMessage(key string, args ...any) *DomainError {
	e.UserMsg = key
	e.UserArgs = args
	return e
}

// As returns the first DomainError in the chain.
func As(err error) (*DomainError, bool) {
	var de *DomainError
	if stderrors.As(err, &de) {
		return de, true
	}
	return nil, false
}

func IsType(err error, errType ErrorType) bool {
	de, ok := As(err)
	return ok && de.Type == errType
}
