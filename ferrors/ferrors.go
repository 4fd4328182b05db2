// Package ferrors defines the error taxonomy used across the fat32vol
// engine. Exported engine operations return a FatError rather than a bare
// error so callers can distinguish the documented failure kinds from
// incidental I/O failures; the FAT-copy consistency check (which returns a
// multierror) and the Close/Unmount methods return a plain error.
package ferrors

import (
	"fmt"
	"syscall"
)

// FatError is the error interface implemented by every failure this engine
// produces. It mirrors a DriverError: a sentinel condition that can carry an
// additional message and, when relevant, wrap the underlying OS error.
type FatError interface {
	error
	WithMessage(message string) FatError
	WrapError(err error) FatError
}

// Kind is one of the named failure conditions from spec.md section 7.
type Kind string

const (
	ImageNotFound Kind = Kind("image not found")
	ImageIOError  Kind = Kind("image I/O error")
	NotFound      Kind = Kind("no such file or directory")
	NotADirectory Kind = Kind("not a directory")
	IsADirectory  Kind = Kind("is a directory")
	AlreadyExists Kind = Kind("already exists")
	DirFull       Kind = Kind("directory full")
	FullDisk      Kind = Kind("no space left on device")
	NotEmpty      Kind = Kind("directory not empty")
	InUse         Kind = Kind("resource busy or in use")
	NotOpen       Kind = Kind("file not open")
	AlreadyOpen   Kind = Kind("file already open")
	TooManyOpen   Kind = Kind("too many open files")
	BadMode       Kind = Kind("bad mode")
	BadArgs       Kind = Kind("bad arguments")
	Corrupt       Kind = Kind("file system corrupted")
)

// Error implements the error interface for a bare Kind, so sentinels can be
// returned and compared directly.
func (k Kind) Error() string { return string(k) }

// WithMessage attaches a descriptive message to the sentinel, producing a new
// FatError that still unwraps to the sentinel Kind.
func (k Kind) WithMessage(message string) FatError {
	return &wrappedError{kind: k, message: message}
}

// WrapError attaches an underlying error (typically from the os or io
// packages) to the sentinel.
func (k Kind) WrapError(err error) FatError {
	return &wrappedError{kind: k, message: fmt.Sprintf("%s: %s", k, err.Error()), cause: err}
}

type wrappedError struct {
	kind    Kind
	message string
	cause   error
}

func (e *wrappedError) Error() string {
	if e.message != "" {
		return e.message
	}
	return e.kind.Error()
}

func (e *wrappedError) WithMessage(message string) FatError {
	return &wrappedError{kind: e.kind, message: fmt.Sprintf("%s: %s", e.message, message), cause: e}
}

func (e *wrappedError) WrapError(err error) FatError {
	return &wrappedError{kind: e.kind, message: fmt.Sprintf("%s: %s", e.Error(), err.Error()), cause: err}
}

// Is lets errors.Is(err, ferrors.NotFound) succeed against a wrapped error.
func (e *wrappedError) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.kind
}

// Unwrap exposes the underlying cause, if any, for errors.As/errors.Unwrap.
func (e *wrappedError) Unwrap() error { return e.cause }

// NewErrno wraps a raw syscall error code with a message, for structural
// failures detected while parsing the BPB or performing positional I/O
// against the image file. It mirrors disko.NewDriverErrorWithMessage.
func NewErrno(code syscall.Errno, message string) FatError {
	return &errnoError{code: code, message: message}
}

type errnoError struct {
	code    syscall.Errno
	message string
}

func (e *errnoError) Error() string {
	if e.message != "" {
		return fmt.Sprintf("%s: %s", e.code.Error(), e.message)
	}
	return e.code.Error()
}

func (e *errnoError) WithMessage(message string) FatError {
	return &errnoError{code: e.code, message: fmt.Sprintf("%s: %s", e.message, message)}
}

func (e *errnoError) WrapError(err error) FatError {
	return &errnoError{code: e.code, message: fmt.Sprintf("%s: %s", e.message, err.Error())}
}

func (e *errnoError) Errno() syscall.Errno { return e.code }
