// Package errors defines the error kinds this filesystem reports to callers
// and a small wrapping type that lets a test or caller distinguish "what kind
// of failure was this" from "what's the human-readable message" without
// resorting to string matching.
package errors

import "fmt"

// Kind is one of the error categories from the filesystem's error table. It
// implements the `error` interface directly, so a bare Kind can be returned
// and compared with errors.Is, or dressed up with WithMessage/WrapError when
// more context is available.
type Kind string

const (
	NotMounted       = Kind("filesystem is not mounted")
	AlreadyMounted   = Kind("filesystem is already mounted")
	HandlesOpen      = Kind("cannot unmount: file descriptors still open")
	InvalidDisk      = Kind("disk image is not a valid filesystem")
	InvalidName      = Kind("invalid filename")
	NotFound         = Kind("no such file")
	Exists           = Kind("file already exists")
	DirFull          = Kind("root directory is full")
	FileBusy         = Kind("file has open descriptors")
	TooManyOpen      = Kind("too many open file descriptors")
	BadFD            = Kind("bad file descriptor")
	OffsetOutOfRange = Kind("offset out of range")
	OutOfSpace       = Kind("no free data blocks")
	DiskError        = Kind("block device I/O error")
	Corruption       = Kind("FAT chain traversal exceeded block count")
)

// Error implements the error interface.
func (k Kind) Error() string {
	return string(k)
}

// WithMessage attaches additional context to k without losing its identity:
// errors.Is(result, k) still holds.
func (k Kind) WithMessage(message string) *Error {
	return &Error{
		kind:    k,
		message: fmt.Sprintf("%s: %s", k.Error(), message),
	}
}

// WrapError attaches an underlying error to k, for kinds like DiskError that
// originate from a failure in an external collaborator (the block device).
func (k Kind) WrapError(err error) *Error {
	return &Error{
		kind:    k,
		message: fmt.Sprintf("%s: %s", k.Error(), err.Error()),
		cause:   err,
	}
}

// Error is a Kind decorated with a specific message and/or a wrapped cause.
// It satisfies errors.Is(err, SomeKind) via Unwrap, so callers can branch on
// the kind of failure without parsing strings.
type Error struct {
	kind    Kind
	message string
	cause   error
}

func (e *Error) Error() string {
	if e.message != "" {
		return e.message
	}
	return e.kind.Error()
}

// Unwrap exposes both the Kind and, if present, the wrapped cause, so
// `errors.Is(err, errors.NotFound)` succeeds regardless of whether err was
// built with WithMessage or WrapError, and `errors.Is(err, originalCause)`
// also succeeds for the latter.
func (e *Error) Unwrap() []error {
	if e.cause != nil {
		return []error{e.kind, e.cause}
	}
	return []error{e.kind}
}

// Cause returns the underlying error that triggered this one, if any.
func (e *Error) Cause() error {
	return e.cause
}

// WithMessage returns a copy of e with an additional message appended.
func (e *Error) WithMessage(message string) *Error {
	return &Error{
		kind:    e.kind,
		message: fmt.Sprintf("%s: %s", e.Error(), message),
		cause:   e,
	}
}
