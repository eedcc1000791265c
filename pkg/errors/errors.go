package errors

import (
	"errors"
	"fmt"
)

var (
	ErrDeviceStateNotFound = errors.New("device state not found")
	ErrJourneyNotFound     = errors.New("journey not found")
	ErrAlertNotFound       = errors.New("alert not found")

	ErrInvalidInput = errors.New("invalid input data")
	ErrUnauthorized = errors.New("unauthorized access")
	ErrInvalidToken = errors.New("invalid or expired token")
)

type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
