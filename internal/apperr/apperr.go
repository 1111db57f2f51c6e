package apperr

import "errors"

// Code represents an error category independent of the transport layer.
type Code string

const (
	// CodeAssetLoad means the photo could not be fetched or decoded, including timeouts.
	CodeAssetLoad Code = "asset_load"
	// CodeEncoding means the decoded photo could not be re-encoded as JPEG.
	CodeEncoding Code = "encoding"
	// CodeDownloadTrigger means the finished card could not be handed to the client.
	CodeDownloadTrigger Code = "download_trigger"
	CodeNotFound        Code = "not_found"
	CodeInvalidInput    Code = "invalid_input"
	CodeInternal        Code = "internal_error"
)

// Error wraps a failure with a stable code.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors by code, so errors.Is(err, apperr.New(CodeAssetLoad, "")) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates an error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap creates an error wrapping err. If err already carries a code, that code is kept.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: msg, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode reports whether err is an *Error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the code carried by err, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Sentinels for errors.Is checks.
var (
	ErrAssetLoad       = &Error{Code: CodeAssetLoad}
	ErrEncoding        = &Error{Code: CodeEncoding}
	ErrDownloadTrigger = &Error{Code: CodeDownloadTrigger}
	ErrNotFound        = &Error{Code: CodeNotFound}
	ErrInvalidInput    = &Error{Code: CodeInvalidInput}
)
