package parser

import (
	"errors"
	"fmt"
)

// Code classifies a registry failure.
type Code string

const (
	CodeNoParserAvailable Code = "NO_PARSER_AVAILABLE"
	CodeParserNotFound    Code = "PARSER_NOT_FOUND"
	CodeParseFailed       Code = "PARSE_FAILED"
	CodeValidationFailed  Code = "VALIDATION_FAILED"
	CodeNotTarget         Code = "NOT_ROBINHOOD_STATEMENT"
)

// Error is the only error type returned by Registry parse entry points.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf returns the Code carried by err, or "" if err is not an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
