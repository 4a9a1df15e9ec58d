package service

import "errors"

// Ошибки валидации заявки (400)
var (
	ErrMissingField    = errors.New("name, email and details are required")
	ErrInvalidEmail    = errors.New("invalid email")
	ErrDetailsTooShort = errors.New("details too short")
	ErrFileTooLarge    = errors.New("file too large")
)

var (
	ErrCodeAllocationExhausted = errors.New("could not allocate a unique order code")
	ErrOrderNotFound           = errors.New("order not found")
	ErrInvalidCredentials      = errors.New("invalid credentials")
)

// ValidationError указывает, какое поле не прошло проверку
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
