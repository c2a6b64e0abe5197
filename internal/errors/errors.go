// Package errors defines the API-facing error classification.
// Services return plain error values; handlers map them onto DomainError
// codes so the HTTP layer stays consistent.
package errors

// DomainError is an error with a stable machine-readable code.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}
