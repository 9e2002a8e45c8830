// Package fs provides the flat in-memory filesystem and its FUSE nodes.
//
// This file contains error types and error handling utilities.
package fs

import (
	"errors"
	"fmt"
	"syscall"

	"lsysfs/internal/logging"
	"lsysfs/internal/table"

	"golang.org/x/sys/unix"
)

var (
	errLogger = logging.GetLogger().WithPrefix("error")

	// ErrPathNotFound indicates a path doesn't resolve to any entry
	ErrPathNotFound = table.ErrNotFound

	// ErrAlreadyExists indicates the name is already taken
	ErrAlreadyExists = table.ErrNameConflict

	// ErrNoSpace indicates the entry table is full
	ErrNoSpace = table.ErrCapacityExceeded

	// ErrInvalidTarget indicates the path resolves to the wrong kind of entry
	ErrInvalidTarget = errors.New("invalid target for operation")

	// ErrInvalidPath indicates an invalid path format
	ErrInvalidPath = errors.New("invalid path format")
)

// Error wraps filesystem errors with context about the operation
// and affected path.
type Error struct {
	Op   string // Operation that failed (e.g., "unlink", "readdir")
	Path string // Affected path
	Err  error  // Underlying error
}

// Error implements the error interface, providing a formatted error message
func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("operation %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("operation %s on %s failed: %v", e.Op, e.Path, e.Err)
}

// Unwrap implements error unwrapping for the errors.Is/As functions
func (e *Error) Unwrap() error {
	return e.Err
}

// NewFSError creates a new Error with the given operation, path, and underlying error
func NewFSError(op string, path string, err error) *Error {
	fsErr := &Error{
		Op:   op,
		Path: path,
		Err:  err,
	}
	errLogger.Trace("Created new FSError: %v", fsErr)
	return fsErr
}

// Common operation names for consistent logging and error reporting
const (
	OpGetattr  = "getattr"  // Querying attributes
	OpReadDir  = "readdir"  // Listing a directory
	OpRead     = "read"     // Reading file content
	OpWrite    = "write"    // Replacing file content
	OpMkdir    = "mkdir"    // Creating a directory
	OpMknod    = "mknod"    // Creating a file
	OpUnlink   = "unlink"   // Removing a file
	OpRmdir    = "rmdir"    // Removing a directory
	OpUtimens  = "utimens"  // Refreshing timestamps
	OpTruncate = "truncate" // Resizing file content
)

// ToFuseError converts an error to the errno FUSE reports to the kernel.
// Errors that are already errnos pass through unchanged.
func ToFuseError(err error) error {
	if err == nil {
		return nil
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}

	op := ""
	var fsErr *Error
	if errors.As(err, &fsErr) {
		op = fsErr.Op
	}
	errLogger.Trace("Converting error to FUSE errno: %v", err)

	switch {
	case errors.Is(err, ErrPathNotFound):
		return unix.ENOENT
	case errors.Is(err, ErrAlreadyExists):
		return unix.EEXIST
	case errors.Is(err, ErrNoSpace):
		return unix.ENOSPC
	case errors.Is(err, ErrInvalidPath):
		return unix.EINVAL
	case errors.Is(err, ErrInvalidTarget):
		return invalidTargetErrno(op, fsErr)
	default:
		errLogger.Debug("Unknown error type, returning EIO: %v", err)
		return unix.EIO
	}
}

func invalidTargetErrno(op string, fsErr *Error) syscall.Errno {
	if fsErr != nil && fsErr.Path == "/" {
		switch op {
		case OpUnlink:
			return unix.EISDIR
		case OpRmdir:
			return unix.EBUSY
		}
	}
	switch op {
	case OpUnlink, OpRead, OpWrite, OpTruncate:
		return unix.EISDIR
	case OpRmdir, OpReadDir:
		return unix.ENOTDIR
	default:
		return unix.EINVAL
	}
}

// ReturnCode converts an error into the negative return code convention of
// FUSE callbacks. Success yields 0.
func ReturnCode(err error) int {
	if err == nil {
		return 0
	}
	var errno syscall.Errno
	if errors.As(ToFuseError(err), &errno) {
		return -int(errno)
	}
	return -int(unix.EIO)
}
