package app

import (
	"fmt"
	"net/http"
)

// DomainError is an error the HTTP layer reports verbatim: Status and Code go
// on the wire, Details is optional extra context for the client.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func validationError(message string) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", message, nil)
}

func unavailableError(code, message string) *DomainError {
	return domainError(http.StatusServiceUnavailable, code, message, nil)
}
