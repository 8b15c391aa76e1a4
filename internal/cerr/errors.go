// Package cerr defines the error kinds produced while running the check
// queue. None of these are ever returned to a submitter — submit, stop,
// reset and dispose always return normally (see the controller package
// doc comment) — they exist for the reportError collaborator and for
// structured logging.
package cerr

import (
	"errors"
	"fmt"
)

// Code categorizes a Error.
type Code string

const (
	// InvalidSubmission means submit's preconditions were violated.
	// The submission is dropped silently; this code exists for logging only.
	InvalidSubmission Code = "INVALID_SUBMISSION"

	// UnknownLocale means the document's locale was not registered with
	// the language registry. The entry is dropped without dispatch.
	UnknownLocale Code = "UNKNOWN_LOCALE"

	// DocumentNotFound means the entry's DocID no longer resolves to an
	// open document, most likely disposed between submit and dispatch.
	// The entry is dropped without dispatch, exactly like UnknownLocale.
	DocumentNotFound Code = "DOCUMENT_NOT_FOUND"

	// CheckFailure means the engine or document collaborator returned an
	// error while running a check. The worker logs it and continues.
	CheckFailure Code = "CHECK_FAILURE"

	// Fatal means an error escaped the worker loop's outermost frame.
	// The worker terminates and running becomes false.
	Fatal Code = "FATAL"

	// InterruptTimeout means waitForInterrupt exceeded its bound. The
	// caller proceeds regardless; this code exists for logging only.
	InterruptTimeout Code = "INTERRUPT_TIMEOUT"

	// InvalidConfig means a loaded configuration failed schema validation
	// or could not be parsed. Surfaced to the CLI, unlike the codes above.
	InvalidConfig Code = "INVALID_CONFIG"
)

// Error is a structured error carrying enough context for the logging
// collaborator to report something actionable.
type Error struct {
	Code    Code
	Message string
	DocID   string
	NStart  int
	NCache  int
	Err     error
}

func (e *Error) Error() string {
	base := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.DocID != "" {
		base = fmt.Sprintf("%s (doc=%s, nStart=%d, nCache=%d)", base, e.DocID, e.NStart, e.NCache)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", base, e.Err)
	}
	return base
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds an Error with the given code, message, and cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// WithDoc attaches document/entry context to an Error and returns it.
func (e *Error) WithDoc(docID string, nStart, nCache int) *Error {
	e.DocID = docID
	e.NStart = nStart
	e.NCache = nCache
	return e
}

// IsCode reports whether err (or any error it wraps) is a *Error with
// the given code.
func IsCode(err error, code Code) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}
