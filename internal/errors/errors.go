package errors

import (
	stderrors "errors"
	"fmt"
)

type ErrorType string

const (
	ErrorTypeNotFound           ErrorType = "NOT_FOUND"
	ErrorTypeCorrupt            ErrorType = "CORRUPT"
	ErrorTypeFileNotFound       ErrorType = "FILE_NOT_FOUND"
	ErrorTypeNothingStaged      ErrorType = "NOTHING_STAGED"
	ErrorTypeNoCommit           ErrorType = "NO_COMMIT"
	ErrorTypeAlreadyInitialized ErrorType = "ALREADY_INITIALIZED"
	ErrorTypeNotInitialized     ErrorType = "NOT_INITIALIZED"
	ErrorTypeInvalidPath        ErrorType = "INVALID_PATH"
	ErrorTypeBusy               ErrorType = "BUSY"
	ErrorTypeUsage              ErrorType = "USAGE"
	ErrorTypeInternal           ErrorType = "INTERNAL"
)

// Process exit codes. These are part of the command-line contract and
// must not be renumbered.
var exitCodes = map[ErrorType]int{
	ErrorTypeInternal:           1,
	ErrorTypeUsage:              2,
	ErrorTypeNotFound:           10,
	ErrorTypeCorrupt:            11,
	ErrorTypeFileNotFound:       20,
	ErrorTypeNothingStaged:      21,
	ErrorTypeNoCommit:           22,
	ErrorTypeAlreadyInitialized: 23,
	ErrorTypeNotInitialized:     24,
	ErrorTypeInvalidPath:        25,
	ErrorTypeBusy:               30,
}

type Error struct {
	Type    ErrorType `json:"code"`
	Message string    `json:"message"`
	Code    int       `json:"exit_code"`
	Details any       `json:"details,omitempty"`
	Err     error     `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same type, so the sentinels below work
// with errors.Is regardless of message or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// Sentinels for errors.Is.
var (
	ErrNotFound           = &Error{Type: ErrorTypeNotFound}
	ErrCorrupt            = &Error{Type: ErrorTypeCorrupt}
	ErrFileNotFound       = &Error{Type: ErrorTypeFileNotFound}
	ErrNothingStaged      = &Error{Type: ErrorTypeNothingStaged}
	ErrNoCommit           = &Error{Type: ErrorTypeNoCommit}
	ErrAlreadyInitialized = &Error{Type: ErrorTypeAlreadyInitialized}
	ErrNotInitialized     = &Error{Type: ErrorTypeNotInitialized}
	ErrInvalidPath        = &Error{Type: ErrorTypeInvalidPath}
	ErrBusy               = &Error{Type: ErrorTypeBusy}
	ErrUsage              = &Error{Type: ErrorTypeUsage}
)

func newError(t ErrorType, message string, details any) *Error {
	return &Error{
		Type:    t,
		Message: message,
		Code:    exitCodes[t],
		Details: details,
	}
}

// Wrap attaches a cause to a classified error.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

func NotFound(message string) *Error {
	return newError(ErrorTypeNotFound, message, nil)
}

func Corrupt(message string, details any) *Error {
	return newError(ErrorTypeCorrupt, message, details)
}

func FileNotFound(path string) *Error {
	return newError(ErrorTypeFileNotFound, fmt.Sprintf("working file %q does not exist", path), map[string]string{"file": path})
}

func NothingStaged(path string) *Error {
	return newError(ErrorTypeNothingStaged, fmt.Sprintf("nothing staged for %q", path), map[string]string{"file": path})
}

func NoCommit(path string) *Error {
	return newError(ErrorTypeNoCommit, fmt.Sprintf("no commit recorded for %q", path), map[string]string{"file": path})
}

func AlreadyInitialized(root string) *Error {
	return newError(ErrorTypeAlreadyInitialized, fmt.Sprintf("repository already initialized in %s", root), map[string]string{"root": root})
}

func NotInitialized(dir string) *Error {
	return newError(ErrorTypeNotInitialized, fmt.Sprintf("not a repository (or any parent of %s)", dir), nil)
}

func InvalidPath(path, reason string) *Error {
	return newError(ErrorTypeInvalidPath, fmt.Sprintf("invalid path %q: %s", path, reason), map[string]string{"file": path})
}

func Busy(message string) *Error {
	return newError(ErrorTypeBusy, message, nil)
}

func Usage(message string) *Error {
	return newError(ErrorTypeUsage, message, nil)
}

func Internal(message string, err error) *Error {
	return newError(ErrorTypeInternal, message, nil).Wrap(err)
}

// As returns the classified error in err's chain. Unclassified errors
// are reported as INTERNAL.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	return Internal(err.Error(), nil)
}

// TypeOf returns the error code of err, or "" for nil.
func TypeOf(err error) ErrorType {
	if err == nil {
		return ""
	}
	return As(err).Type
}

// ExitCode maps err to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if code := As(err).Code; code != 0 {
		return code
	}
	return exitCodes[ErrorTypeInternal]
}
