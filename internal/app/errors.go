package app

import "fmt"

// DomainError is an expected, caller-visible failure: a validation problem,
// a denial, or a missing record. The HTTP layer maps it straight onto a
// response; anything else surfaces as a generic server error.
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
