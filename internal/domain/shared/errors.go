package shared

// DomainError is a rule violation the caller can fix. Code is the
// machine-readable error code returned to API clients.
type DomainError struct {
	Code    string
	Message string
	cause   error
}

func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// WithCause keeps err reachable through errors.Is and errors.As.
func (e *DomainError) WithCause(err error) *DomainError {
	e.cause = err
	return e
}

func (e *DomainError) Error() string {
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.cause
}
