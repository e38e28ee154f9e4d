package apperror

import (
	"errors"
	"net/http"
)

type Code string

const (
	Configuration Code = "CONFIGURATION"
	Network       Code = "NETWORK"
	Validation    Code = "VALIDATION"
	Storage       Code = "STORAGE"
	Interrupted   Code = "INTERRUPTED"
	BadRequest    Code = "BAD_REQUEST"
	NotFound      Code = "NOT_FOUND"
	Internal      Code = "INTERNAL"
)

type AppError struct {
	code    Code
	message string
	err     error
}

func New(code Code, message string) *AppError {
	return &AppError{code: code, message: message}
}

// Wrap tags err with code. The message is prepended to err's text.
func Wrap(code Code, err error, message string) *AppError {
	return &AppError{code: code, message: message, err: err}
}

func (e *AppError) Error() string {
	if e.err == nil {
		return e.message
	}
	if e.message == "" {
		return e.err.Error()
	}
	return e.message + ": " + e.err.Error()
}

func (e *AppError) Unwrap() error   { return e.err }
func (e *AppError) Code() Code      { return e.code }
func (e *AppError) Message() string { return e.message }

func (e *AppError) HTTPStatus() int {
	switch e.code {
	case BadRequest:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf returns the code of the outermost AppError in err's chain, or
// Internal when there is none.
func CodeOf(err error) Code {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.code
	}
	return Internal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// ExitCode maps err to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch CodeOf(err) {
	case Configuration:
		return 2
	case Network:
		return 3
	case Validation:
		return 4
	case Storage:
		return 5
	default:
		return 1
	}
}
