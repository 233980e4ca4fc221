// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package micropub

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind is the machine-readable "error" value of an envelope.
type ErrorKind string

const (
	KindInvalidRequest    ErrorKind = "invalid_request"
	KindUnauthorized      ErrorKind = "unauthorized"
	KindInsufficientScope ErrorKind = "insufficient_scope"
	KindForbidden         ErrorKind = "forbidden"
	KindInvalidToken      ErrorKind = "invalid_token"
	KindNotFound          ErrorKind = "not_found"
	KindServerError       ErrorKind = "server_error"
)

// Error is an immutable protocol error.
type Error struct {
	kind    ErrorKind
	message string
	status  int
	debug   interface{}
	cause   error
}

// NewError constructs an error envelope.
func NewError(kind ErrorKind, status int, message string) *Error {
	return &Error{kind: kind, status: status, message: message}
}

// Errorf constructs an error envelope with a formatted message.
func Errorf(kind ErrorKind, status int, format string, args ...interface{}) *Error {
	return NewError(kind, status, fmt.Sprintf(format, args...))
}

// InvalidRequest is shorthand for a 400 invalid_request.
func InvalidRequest(format string, args ...interface{}) *Error {
	return Errorf(KindInvalidRequest, http.StatusBadRequest, format, args...)
}

// ServerError wraps an unexpected failure as a 500. The cause is logged and
// only reaches the client as debug data.
func ServerError(err error) *Error {
	e := NewError(KindServerError, http.StatusInternalServerError, "internal server error").WithDebug(err.Error())
	e.cause = err
	return e
}

// upstreamError is a 500 whose message is the cause verbatim, for failures
// of the token endpoint the client is expected to see.
func upstreamError(err error) *Error {
	e := NewError(KindServerError, http.StatusInternalServerError, err.Error())
	e.cause = err
	return e
}

// WithDebug returns a copy of e carrying debug data.
func (e *Error) WithDebug(debug interface{}) *Error {
	c := *e
	c.debug = debug
	return &c
}

func (e *Error) Kind() ErrorKind    { return e.kind }
func (e *Error) Message() string    { return e.message }
func (e *Error) Status() int        { return e.status }
func (e *Error) Debug() interface{} { return e.debug }

func (e *Error) Error() string {
	return string(e.kind) + ": " + e.message
}

func (e *Error) Unwrap() error { return e.cause }

// Envelope is the JSON body of an error response.
type Envelope struct {
	Error       ErrorKind   `json:"error"`
	Description string      `json:"error_description"`
	Data        interface{} `json:"data,omitempty"`
}

// Envelope renders e, dropping debug data unless includeDebug is set.
func (e *Error) Envelope(includeDebug bool) Envelope {
	env := Envelope{Error: e.kind, Description: e.message}
	if includeDebug {
		env.Data = e.debug
	}
	return env
}

// AsError converts any error into an *Error, treating unknown errors as
// server errors.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return ServerError(err)
}
