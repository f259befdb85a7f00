// Package vfserrors defines the single typed error channel the filesystem
// core returns through, replacing the teacher's mix of negative sentinel
// ints and NFS3ERR_* status codes (see mit-pdos-go-nfsd/nfs_ops.go) with one
// Kind enum and an error type that rounds-trips cleanly, per the design
// note in spec.md section 9 ("Error channel").
package vfserrors

import "fmt"

// Kind enumerates every failure category named in spec.md section 7.
type Kind int

const (
	_ Kind = iota
	NotMounted
	AlreadyMounted
	BadImage
	NotFound
	AlreadyExists
	NotADirectory
	NotAFile
	NotEmpty
	NoInodes
	NoBlocks
	NameTooLong
	Invalid
	IOError
)

func (k Kind) String() string {
	switch k {
	case NotMounted:
		return "not mounted"
	case AlreadyMounted:
		return "already mounted"
	case BadImage:
		return "bad image"
	case NotFound:
		return "not found"
	case AlreadyExists:
		return "already exists"
	case NotADirectory:
		return "not a directory"
	case NotAFile:
		return "not a file"
	case NotEmpty:
		return "not empty"
	case NoInodes:
		return "no free inodes"
	case NoBlocks:
		return "no free blocks"
	case NameTooLong:
		return "name too long"
	case Invalid:
		return "invalid argument"
	case IOError:
		return "I/O error"
	default:
		return "unknown error"
	}
}

// Error is the single result type every public VFS operation fails with.
type Error struct {
	Kind Kind
	Op   string // the operation that failed, e.g. "create_file"
	Path string // the path involved, if any
	Err  error  // wrapped cause, if any
}

func (e *Error) Error() string {
	if e.Path != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Path, e.Kind, e.Err)
		}
		return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error with no wrapped cause.
func New(op string, path string, kind Kind) *Error {
	return &Error{Kind: kind, Op: op, Path: path}
}

// Wrap builds an Error of the given kind wrapping a lower-level cause.
func Wrap(op string, path string, kind Kind, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// KindOf returns the Kind of err if err is, or wraps, a *Error, so
// callers can compare it against a Kind value; ok is false otherwise.
func KindOf(err error) (Kind, bool) {
	var ve *Error
	if e, ok := err.(*Error); ok {
		ve = e
	} else if e, ok := errorsAs(err); ok {
		ve = e
	} else {
		return 0, false
	}
	return ve.Kind, true
}

func errorsAs(err error) (*Error, bool) {
	type unwrapper interface{ Unwrap() error }
	for err != nil {
		if ve, ok := err.(*Error); ok {
			return ve, true
		}
		u, ok := err.(unwrapper)
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}
